package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/JonMunkholm/busreg/internal/core"
)

var _ core.Upserter = (*Store)(nil)

const registrationKeyIndex = "registration_natural_key"

// Upsert writes one accepted record into batchID in its own transaction:
// operator and licence are fetched or created, then the registration is
// inserted unless the tenant already holds one with the same
// (registration number, operator, variation, route).
func (s *Store) Upsert(ctx context.Context, tenantID, batchID string, rec core.CandidateRecord, meta core.AuthorityMetadata) error {
	tid, bid := ToPgUUID(tenantID), ToPgUUID(batchID)
	if !tid.Valid || !bid.Valid {
		return fmt.Errorf("upsert: invalid tenant %q or batch %q", tenantID, batchID)
	}

	operatorName := strings.TrimSpace(meta.OperatorName)
	if operatorName == "" {
		operatorName = rec.OperatorName
	}
	licenceNumber := meta.LicenceNumber
	if licenceNumber == "" {
		licenceNumber = rec.LicenceNumber
	}

	return s.withTx(ctx, func(tx pgx.Tx) error {
		operatorID, err := getOrCreateOperator(ctx, tx, operatorName, meta.AuthorityOperatorID)
		if err != nil {
			return err
		}
		licenceID, err := getOrCreateLicence(ctx, tx, licenceNumber, meta.LicenceStatus, meta.AuthorityLicenceID)
		if err != nil {
			return err
		}

		var exists bool
		err = tx.QueryRow(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM registration
				WHERE registration_number = $1 AND operator_id = $2 AND variation_number = $3
				  AND tenant_id = $4 AND route_number = $5
			)`, rec.RegistrationNumber, operatorID, rec.VariationNumber, tid, rec.RouteNumber).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check registration: %w", err)
		}
		if exists {
			return core.ErrRecordAlreadyExists
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO registration (
				tenant_id, licence_id, operator_id, staging_batch_id,
				registration_number, variation_number, route_number, route_description,
				start_point, finish_point, via, subsidised, subsidy_detail, is_short_notice,
				received_date, granted_date, effective_date, end_date,
				bus_service_type_id, bus_service_type_description, traffic_area_id,
				application_type, publication_text, other_details
			) VALUES (
				$1, $2, $3, $4,
				$5, $6, $7, $8,
				$9, $10, $11, $12, $13, $14,
				$15, $16, $17, $18,
				$19, $20, $21,
				$22, $23, $24
			)`,
			tid, licenceID, operatorID, bid,
			rec.RegistrationNumber, rec.VariationNumber, rec.RouteNumber, rec.RouteDescription,
			rec.StartPoint, rec.FinishPoint, rec.Via, rec.Subsidised, rec.SubsidyDetail, rec.IsShortNotice,
			ToPgDate(rec.ReceivedDate), ToPgDate(rec.GrantedDate), ToPgDate(rec.EffectiveDate), ToPgDatePtr(rec.EndDate),
			rec.BusServiceTypeID, rec.BusServiceTypeDescription, rec.TrafficAreaID,
			rec.ApplicationType, ToPgText(rec.PublicationText), ToPgText(rec.OtherDetails),
		)
		if err != nil {
			if isUniqueViolation(err, registrationKeyIndex) {
				return core.ErrRecordAlreadyExists
			}
			return fmt.Errorf("insert registration: %w", err)
		}
		return nil
	})
}

// getOrCreateOperator inserts the operator unless it exists and returns its
// id. A concurrent insert of the same name makes ON CONFLICT skip the row,
// in which case the winner's row is read back.
func getOrCreateOperator(ctx context.Context, db DBTX, name string, authorityID int64) (int64, error) {
	var id int64
	err := db.QueryRow(ctx, `
		INSERT INTO operator (name, authority_operator_id) VALUES ($1, $2)
		ON CONFLICT (name) DO NOTHING
		RETURNING id`, name, ToPgInt8(authorityID)).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		err = db.QueryRow(ctx, `SELECT id FROM operator WHERE name = $1`, name).Scan(&id)
	}
	if err != nil {
		return 0, fmt.Errorf("get or create operator: %w", err)
	}
	return id, nil
}

func getOrCreateLicence(ctx context.Context, db DBTX, number, status string, authorityID int64) (int64, error) {
	var id int64
	err := db.QueryRow(ctx, `
		INSERT INTO licence (licence_number, licence_status, authority_licence_id) VALUES ($1, $2, $3)
		ON CONFLICT (licence_number) DO NOTHING
		RETURNING id`, number, ToPgText(status), ToPgInt8(authorityID)).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		err = db.QueryRow(ctx, `SELECT id FROM licence WHERE licence_number = $1`, number).Scan(&id)
	}
	if err != nil {
		return 0, fmt.Errorf("get or create licence: %w", err)
	}
	return id, nil
}
