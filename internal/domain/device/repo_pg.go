package device

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/futuremed/wardcare/internal/platform/db"
)

type queryable interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type deviceRepoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &deviceRepoPG{pool: pool}
}

func (r *deviceRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const deviceColumns = `id, employee_id, fingerprint, label, created_at, last_used_at, expires_at`

func (r *deviceRepoPG) Create(ctx context.Context, d *TrustedDevice) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO trusted_device (`+deviceColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		d.ID, d.EmployeeID, d.Fingerprint, d.Label, d.CreatedAt, d.LastUsedAt, d.ExpiresAt)
	if err != nil {
		return fmt.Errorf("insert trusted device: %w", err)
	}
	return nil
}

func (r *deviceRepoPG) ExistsUnexpired(ctx context.Context, employeeID uuid.UUID, fingerprint string, now time.Time) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM trusted_device
			WHERE employee_id = $1 AND fingerprint = $2 AND expires_at > $3
		)`, employeeID, fingerprint, now).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check trusted device: %w", err)
	}
	return exists, nil
}

func (r *deviceRepoPG) Touch(ctx context.Context, employeeID uuid.UUID, fingerprint string, at time.Time) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE trusted_device SET last_used_at = $3
		WHERE employee_id = $1 AND fingerprint = $2`, employeeID, fingerprint, at)
	if err != nil {
		return fmt.Errorf("touch trusted device: %w", err)
	}
	return nil
}

func (r *deviceRepoPG) ListUnexpired(ctx context.Context, employeeID uuid.UUID, now time.Time) ([]*TrustedDevice, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+deviceColumns+` FROM trusted_device
		WHERE employee_id = $1 AND expires_at > $2
		ORDER BY last_used_at DESC`, employeeID, now)
	if err != nil {
		return nil, fmt.Errorf("list trusted devices: %w", err)
	}
	defer rows.Close()

	var out []*TrustedDevice
	for rows.Next() {
		var d TrustedDevice
		if err := rows.Scan(&d.ID, &d.EmployeeID, &d.Fingerprint, &d.Label,
			&d.CreatedAt, &d.LastUsedAt, &d.ExpiresAt); err != nil {
			return nil, fmt.Errorf("scan trusted device: %w", err)
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}

func (r *deviceRepoPG) Delete(ctx context.Context, id, employeeID uuid.UUID) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM trusted_device WHERE id = $1 AND employee_id = $2`, id, employeeID)
	if err != nil {
		return false, fmt.Errorf("delete trusted device: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *deviceRepoPG) DeleteAll(ctx context.Context, employeeID uuid.UUID) (int64, error) {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM trusted_device WHERE employee_id = $1`, employeeID)
	if err != nil {
		return 0, fmt.Errorf("delete trusted devices: %w", err)
	}
	return tag.RowsAffected(), nil
}
