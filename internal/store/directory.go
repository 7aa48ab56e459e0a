package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/JonMunkholm/busreg/internal/core"
)

// Directory maps the group and user names carried by a token to the tenant
// and submitter ids the pipeline works with.
type Directory struct {
	pool DBTX
}

// NewDirectory creates a Directory on db.
func NewDirectory(db DBTX) *Directory {
	return &Directory{pool: db}
}

// Resolve fetches or creates the tenant named groupName and its submitter
// named userName.
func (d *Directory) Resolve(ctx context.Context, groupName, userName string) (core.Identity, error) {
	groupName, userName = strings.TrimSpace(groupName), strings.TrimSpace(userName)
	if groupName == "" || userName == "" {
		return core.Identity{}, core.ErrNoIdentity
	}

	tenantID, err := getOrCreate(ctx, d.pool,
		`INSERT INTO tenant (name) VALUES ($1) ON CONFLICT (name) DO NOTHING RETURNING id::text`,
		`SELECT id::text FROM tenant WHERE name = $1`,
		groupName)
	if err != nil {
		return core.Identity{}, fmt.Errorf("resolve tenant: %w", err)
	}

	tid := ToPgUUID(tenantID)
	submitterID, err := getOrCreate(ctx, d.pool,
		`INSERT INTO submitter (tenant_id, name) VALUES ($1, $2) ON CONFLICT (tenant_id, name) DO NOTHING RETURNING id::text`,
		`SELECT id::text FROM submitter WHERE tenant_id = $1 AND name = $2`,
		tid, userName)
	if err != nil {
		return core.Identity{}, fmt.Errorf("resolve submitter: %w", err)
	}

	return core.Identity{
		SubmitterID:   submitterID,
		SubmitterName: userName,
		TenantID:      tenantID,
		TenantName:    groupName,
	}, nil
}

// getOrCreate runs insertSQL and, when ON CONFLICT skipped the row, reads
// the existing id with selectSQL. Both take the same arguments.
func getOrCreate(ctx context.Context, db DBTX, insertSQL, selectSQL string, args ...any) (string, error) {
	var id string
	err := db.QueryRow(ctx, insertSQL, args...).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		err = db.QueryRow(ctx, selectSQL, args...).Scan(&id)
	}
	return id, err
}
