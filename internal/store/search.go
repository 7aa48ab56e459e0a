package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/busreg/internal/core"
)

var _ core.RegistrationSearcher = (*Store)(nil)

// searchFilter accumulates WHERE conditions and their arguments.
type searchFilter struct {
	conds []string
	args  []any
}

func (f *searchFilter) add(cond string, arg any) {
	f.args = append(f.args, arg)
	f.conds = append(f.conds, strings.ReplaceAll(cond, "?", fmt.Sprintf("$%d", len(f.args))))
}

func (f *searchFilter) match(column, value string, strict bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	if strict {
		f.add(column+" = ?", value)
		return
	}
	f.add(column+` ILIKE '%' || ? || '%'`, escapeLike(value))
}

func (f *searchFilter) where() string {
	return "WHERE " + strings.Join(f.conds, " AND ")
}

// escapeLike escapes the ILIKE wildcards of a user value.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// buildSearchFilter turns q into conditions over the aliases r (registration),
// l (licence) and o (operator). Staged rows are never matched.
func buildSearchFilter(tenantID pgtype.UUID, q core.SearchQuery) *searchFilter {
	f := &searchFilter{}
	f.add("r.tenant_id = ?", tenantID)
	f.conds = append(f.conds, "r.staging_batch_id IS NULL")

	f.match("l.licence_number", q.LicenceNumber, q.Strict)
	f.match("r.registration_number", q.RegistrationNumber, q.Strict)
	f.match("o.name", q.OperatorName, q.Strict)
	f.match("r.route_number", q.RouteNumber, q.Strict)

	if q.LatestOnly {
		f.conds = append(f.conds, `r.variation_number = (
			SELECT max(r2.variation_number) FROM registration r2
			WHERE r2.registration_number = r.registration_number
			  AND r2.tenant_id = r.tenant_id
			  AND r2.staging_batch_id IS NULL)`)
	}
	if q.ActiveOnly {
		f.conds = append(f.conds, "(r.end_date IS NULL OR r.end_date >= CURRENT_DATE)")
	}
	return f
}

const searchFrom = `
	FROM registration r
	JOIN licence l ON l.id = r.licence_id
	JOIN operator o ON o.id = r.operator_id
`

// Search returns one page of committed registrations of tenantID and the
// number of matches across all pages.
func (s *Store) Search(ctx context.Context, tenantID string, q core.SearchQuery) (core.SearchResult, error) {
	q = q.Normalize()
	res := core.SearchResult{Rows: []core.Registration{}, Limit: q.Limit, Page: q.Page}

	tid := ToPgUUID(tenantID)
	if !tid.Valid {
		return res, nil
	}

	f := buildSearchFilter(tid, q)

	if err := s.pool.QueryRow(ctx, "SELECT count(*)"+searchFrom+f.where(), f.args...).Scan(&res.Total); err != nil {
		return res, fmt.Errorf("count registrations: %w", err)
	}
	if res.Total == 0 || q.Offset() >= res.Total {
		return res, nil
	}

	args := append(f.args, q.Limit, q.Offset())
	rows, err := s.pool.Query(ctx, `
		SELECT r.id, l.licence_number, coalesce(l.licence_status, ''), o.name,
		       r.registration_number, r.variation_number, r.route_number, r.route_description,
		       r.start_point, r.finish_point, r.via, r.application_type, r.traffic_area_id,
		       r.effective_date, r.end_date`+searchFrom+f.where()+fmt.Sprintf(`
		ORDER BY l.licence_number, r.registration_number, r.variation_number DESC, r.id
		LIMIT $%d OFFSET $%d`, len(f.args)+1, len(f.args)+2), args...)
	if err != nil {
		return res, fmt.Errorf("search registrations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var reg core.Registration
		var effective, end pgtype.Date
		if err := rows.Scan(
			&reg.ID, &reg.LicenceNumber, &reg.LicenceStatus, &reg.OperatorName,
			&reg.RegistrationNumber, &reg.VariationNumber, &reg.RouteNumber, &reg.RouteDescription,
			&reg.StartPoint, &reg.FinishPoint, &reg.Via, &reg.ApplicationType, &reg.TrafficAreaID,
			&effective, &end,
		); err != nil {
			return res, fmt.Errorf("scan registration: %w", err)
		}
		reg.EffectiveDate = effective.Time
		reg.EndDate = FromPgDatePtr(end)
		res.Rows = append(res.Rows, reg)
	}
	if err := rows.Err(); err != nil {
		return res, fmt.Errorf("search registrations: %w", err)
	}
	return res, nil
}
