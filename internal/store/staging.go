package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/JonMunkholm/busreg/internal/core"
)

var _ core.StagingStore = (*Store)(nil)

const openBatchIndex = "staging_batch_one_open_per_submitter"

func (s *Store) HasOpenBatch(ctx context.Context, submitterID string) (bool, error) {
	sid := ToPgUUID(submitterID)
	if !sid.Valid {
		return false, nil
	}

	var open bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM staging_batch
			WHERE submitter_id = $1 AND status = 'in_progress'
		)`, sid).Scan(&open)
	if err != nil {
		return false, fmt.Errorf("check open batch: %w", err)
	}
	return open, nil
}

// Open creates an in-progress batch. The partial unique index on
// staging_batch makes this a single atomic check-and-insert, so of many
// concurrent opens for one submitter exactly one succeeds.
func (s *Store) Open(ctx context.Context, submitterID, tenantID, submissionID string) (string, error) {
	sid, tid, subID := ToPgUUID(submitterID), ToPgUUID(tenantID), ToPgUUID(submissionID)
	if !sid.Valid || !tid.Valid || !subID.Valid {
		return "", fmt.Errorf("open batch: invalid id (submitter %q, tenant %q, submission %q)", submitterID, tenantID, submissionID)
	}

	var batchID string
	err := s.pool.QueryRow(ctx, `
		INSERT INTO staging_batch (submitter_id, tenant_id, submission_id)
		VALUES ($1, $2, $3)
		RETURNING id::text`, sid, tid, subID).Scan(&batchID)
	if err != nil {
		if isUniqueViolation(err, openBatchIndex) {
			return "", core.ErrPreviousProcessNotCompleted
		}
		return "", fmt.Errorf("open batch: %w", err)
	}
	return batchID, nil
}

func (s *Store) MarkPopulated(ctx context.Context, batchID string) error {
	bid := ToPgUUID(batchID)
	if !bid.Valid {
		return core.ErrNotFound
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE staging_batch SET populated_at = now()
		WHERE id = $1 AND status = 'in_progress'`, bid)
	if err != nil {
		return fmt.Errorf("mark batch populated: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("mark batch populated: %w", core.ErrNotFound)
	}
	return nil
}

const batchColumns = `
	b.id::text, b.submission_id::text, b.submitter_id::text, b.status, b.populated_at IS NOT NULL, b.created_at,
	(SELECT count(*) FROM registration r WHERE r.staging_batch_id = b.id)`

func scanBatches(rows pgx.Rows) ([]core.BatchSummary, error) {
	defer rows.Close()

	var out []core.BatchSummary
	for rows.Next() {
		var b core.BatchSummary
		var status string
		if err := rows.Scan(&b.BatchID, &b.SubmissionID, &b.SubmitterID, &status, &b.Populated, &b.CreatedAt, &b.RowCount); err != nil {
			return nil, err
		}
		b.Status = core.BatchStatus(status)
		out = append(out, b)
	}
	return out, rows.Err()
}

// ListBatches returns the submitter's unresolved batches, newest first.
// It fails with ErrNoStagedProcess when there are none and with
// ErrStagingInProgress while the newest is still being written.
func (s *Store) ListBatches(ctx context.Context, submitterID string) ([]core.BatchSummary, error) {
	sid := ToPgUUID(submitterID)
	if !sid.Valid {
		return nil, core.ErrNoStagedProcess
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+batchColumns+`
		FROM staging_batch b
		WHERE b.submitter_id = $1 AND b.status = 'in_progress'
		ORDER BY b.created_at DESC`, sid)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	batches, err := scanBatches(rows)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}

	if len(batches) == 0 {
		return nil, core.ErrNoStagedProcess
	}
	if !batches[0].Populated {
		return nil, core.ErrStagingInProgress
	}
	return batches, nil
}

// ListStagedRows groups the staged registrations of batchID by licence.
func (s *Store) ListStagedRows(ctx context.Context, submitterID, batchID string) ([]core.StagedGroup, error) {
	sid, bid := ToPgUUID(submitterID), ToPgUUID(batchID)
	if !sid.Valid || !bid.Valid {
		return nil, core.ErrNoStagedProcess
	}

	var owner string
	err := s.pool.QueryRow(ctx, `
		SELECT submitter_id::text FROM staging_batch
		WHERE id = $1 AND status = 'in_progress'`, bid).Scan(&owner)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.ErrNoStagedProcess
	}
	if err != nil {
		return nil, fmt.Errorf("load batch: %w", err)
	}
	if owner != PgUUIDToString(sid) {
		return nil, core.ErrForbidden
	}

	rows, err := s.pool.Query(ctx, `
		SELECT l.licence_number, o.name, r.registration_number
		FROM registration r
		JOIN licence l ON l.id = r.licence_id
		JOIN operator o ON o.id = r.operator_id
		WHERE r.staging_batch_id = $1
		ORDER BY l.licence_number, r.registration_number, r.variation_number`, bid)
	if err != nil {
		return nil, fmt.Errorf("list staged rows: %w", err)
	}
	defer rows.Close()

	var groups []core.StagedGroup
	seen := make(map[string]struct{})
	for rows.Next() {
		var licence, operator, regNumber string
		if err := rows.Scan(&licence, &operator, &regNumber); err != nil {
			return nil, fmt.Errorf("list staged rows: %w", err)
		}
		if n := len(groups); n == 0 || groups[n-1].LicenceNumber != licence {
			groups = append(groups, core.StagedGroup{LicenceNumber: licence, OperatorName: operator})
		}
		key := licence + "\x00" + regNumber
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		g := &groups[len(groups)-1]
		g.RegistrationNumbers = append(g.RegistrationNumbers, regNumber)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list staged rows: %w", err)
	}
	return groups, nil
}

// Resolve commits or discards batchID. Commit detaches the rows from the
// batch, which makes them visible to search; discard deletes them. The batch
// row is locked for the duration, so two concurrent resolutions of one batch
// resolve it once.
func (s *Store) Resolve(ctx context.Context, submitterID, batchID string, decision core.Decision) (bool, error) {
	sid, bid := ToPgUUID(submitterID), ToPgUUID(batchID)
	if !sid.Valid || !bid.Valid {
		return false, nil
	}

	resolved := false
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		var owner, status string
		var populated bool
		err := tx.QueryRow(ctx, `
			SELECT submitter_id::text, status, populated_at IS NOT NULL
			FROM staging_batch WHERE id = $1
			FOR UPDATE`, bid).Scan(&owner, &status, &populated)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("lock batch: %w", err)
		}
		if owner != PgUUIDToString(sid) {
			return core.ErrForbidden
		}
		if core.BatchStatus(status) != core.BatchInProgress {
			return nil
		}

		switch decision {
		case core.DecisionCommit:
			if !populated {
				return core.ErrStagingInProgress
			}
			if _, err := tx.Exec(ctx, `UPDATE registration SET staging_batch_id = NULL WHERE staging_batch_id = $1`, bid); err != nil {
				return fmt.Errorf("commit rows: %w", err)
			}
			if _, err := tx.Exec(ctx, `UPDATE staging_batch SET status = 'completed', resolved_at = now() WHERE id = $1`, bid); err != nil {
				return fmt.Errorf("complete batch: %w", err)
			}
		case core.DecisionDiscard:
			if _, err := tx.Exec(ctx, `DELETE FROM registration WHERE staging_batch_id = $1`, bid); err != nil {
				return fmt.Errorf("discard rows: %w", err)
			}
			if _, err := tx.Exec(ctx, `DELETE FROM staging_batch WHERE id = $1`, bid); err != nil {
				return fmt.Errorf("delete batch: %w", err)
			}
		default:
			return fmt.Errorf("unknown decision %q", decision)
		}

		resolved = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return resolved, nil
}

// StaleBatches lists unresolved batches of every submitter created before
// cutoff, oldest first.
func (s *Store) StaleBatches(ctx context.Context, cutoff time.Time) ([]core.BatchSummary, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+batchColumns+`
		FROM staging_batch b
		WHERE b.status = 'in_progress' AND b.created_at < $1
		ORDER BY b.created_at`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("stale batches: %w", err)
	}
	batches, err := scanBatches(rows)
	if err != nil {
		return nil, fmt.Errorf("stale batches: %w", err)
	}
	return batches, nil
}
