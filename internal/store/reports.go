package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/JonMunkholm/busreg/internal/core"
)

var _ core.ReportStore = (*Store)(nil)

// Save stores report until it is read. Saving again for the same
// submission replaces the stored report.
func (s *Store) Save(ctx context.Context, report *core.Report) error {
	subID, sid := ToPgUUID(report.SubmissionID), ToPgUUID(report.SubmitterID)
	if !subID.Valid || !sid.Valid {
		return fmt.Errorf("save report: invalid submission %q or submitter %q", report.SubmissionID, report.SubmitterID)
	}

	body, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO submission_report (submission_id, submitter_id, report)
		VALUES ($1, $2, $3)
		ON CONFLICT (submission_id) DO UPDATE SET report = EXCLUDED.report, created_at = now()`,
		subID, sid, body)
	if err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	return nil
}

// RetrieveAndDelete removes and returns the report in one statement, so a
// report is handed out at most once even to concurrent readers.
func (s *Store) RetrieveAndDelete(ctx context.Context, submitterID, submissionID string) (*core.Report, error) {
	subID, sid := ToPgUUID(submissionID), ToPgUUID(submitterID)
	if !subID.Valid || !sid.Valid {
		return nil, core.ErrNotFound
	}

	var body []byte
	err := s.pool.QueryRow(ctx, `
		DELETE FROM submission_report
		WHERE submission_id = $1 AND submitter_id = $2
		RETURNING report`, subID, sid).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("retrieve report: %w", err)
	}

	var report core.Report
	if err := json.Unmarshal(body, &report); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &report, nil
}

// PurgeOlderThan deletes unread reports saved before cutoff.
func (s *Store) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM submission_report WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge reports: %w", err)
	}
	return tag.RowsAffected(), nil
}
