package ward

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/futuremed/wardcare/internal/platform/apperr"
	"github.com/futuremed/wardcare/internal/platform/db"
)

type queryable interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	uniqueWardNameIndex  = "ward_name_active_idx"
	uniqueBedNumberIndex = "bed_number_active_idx"
)

func connFor(ctx context.Context, pool *pgxpool.Pool) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return pool
}

func mapWriteErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if constraint, ok := db.UniqueViolation(err); ok {
		switch constraint {
		case uniqueWardNameIndex:
			return apperr.Conflict("A ward with this name already exists.")
		case uniqueBedNumberIndex:
			return apperr.Conflict("A bed with this number already exists in the ward.")
		}
		return apperr.Conflict("Record already exists.")
	}
	return fmt.Errorf("%s: %w", op, err)
}

// =========== Ward Repository ===========

type wardRepoPG struct {
	pool *pgxpool.Pool
}

func NewWardRepo(pool *pgxpool.Pool) WardRepository {
	return &wardRepoPG{pool: pool}
}

func (r *wardRepoPG) conn(ctx context.Context) queryable {
	return connFor(ctx, r.pool)
}

const wardColumns = `w.id, w.name, w.description, w.capacity, w.status,
	(SELECT COUNT(*) FROM bed b WHERE b.ward_id = w.id AND b.status = 'active'),
	w.created_at, w.updated_at`

func (r *wardRepoPG) scan(row pgx.Row) (*Ward, error) {
	var w Ward
	err := row.Scan(&w.ID, &w.Name, &w.Description, &w.Capacity, &w.State, &w.ActiveBeds, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Ward not found.")
		}
		return nil, fmt.Errorf("scan ward: %w", err)
	}
	return &w, nil
}

func (r *wardRepoPG) Create(ctx context.Context, w *Ward) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO ward (id, name, description, capacity, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`,
		w.ID, w.Name, w.Description, w.Capacity, w.State,
	).Scan(&w.CreatedAt, &w.UpdatedAt)
	return mapWriteErr("create ward", err)
}

func (r *wardRepoPG) Get(ctx context.Context, id uuid.UUID, scope db.Scope) (*Ward, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx,
		`SELECT `+wardColumns+` FROM ward w WHERE w.id = $1 AND `+
			scope.Predicate("w.status", string(RecordDeleted)), id))
}

func (r *wardRepoPG) GetForUpdate(ctx context.Context, id uuid.UUID) (*Ward, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx,
		`SELECT `+wardColumns+` FROM ward w WHERE w.id = $1 AND w.status = 'active' FOR UPDATE`, id))
}

func (r *wardRepoPG) Update(ctx context.Context, w *Ward) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE ward SET name = $2, description = $3, capacity = $4, status = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		w.ID, w.Name, w.Description, w.Capacity, w.State,
	).Scan(&w.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound("Ward not found.")
	}
	return mapWriteErr("update ward", err)
}

func (r *wardRepoPG) List(ctx context.Context, scope db.Scope, limit, offset int) ([]*Ward, int, error) {
	where := ` WHERE ` + scope.Predicate("w.status", string(RecordDeleted))

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM ward w`+where).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count wards: %w", err)
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+wardColumns+` FROM ward w`+where+` ORDER BY w.name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list wards: %w", err)
	}
	defer rows.Close()

	var out []*Ward
	for rows.Next() {
		w, err := r.scan(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, w)
	}
	return out, total, rows.Err()
}

// =========== Bed Repository ===========

type bedRepoPG struct {
	pool *pgxpool.Pool
}

func NewBedRepo(pool *pgxpool.Pool) BedRepository {
	return &bedRepoPG{pool: pool}
}

func (r *bedRepoPG) conn(ctx context.Context) queryable {
	return connFor(ctx, r.pool)
}

const bedColumns = `b.id, b.ward_id, w.name, b.bed_number, b.occupancy, b.status, b.created_at, b.updated_at`

const bedFrom = ` FROM bed b JOIN ward w ON w.id = b.ward_id`

func (r *bedRepoPG) scan(row pgx.Row) (*Bed, error) {
	var b Bed
	err := row.Scan(&b.ID, &b.WardID, &b.WardName, &b.BedNumber, &b.Occupancy, &b.State, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Bed not found.")
		}
		return nil, fmt.Errorf("scan bed: %w", err)
	}
	return &b, nil
}

func (r *bedRepoPG) scanAll(rows pgx.Rows) ([]*Bed, error) {
	defer rows.Close()
	var out []*Bed
	for rows.Next() {
		b, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *bedRepoPG) Create(ctx context.Context, b *Bed) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO bed (id, ward_id, bed_number, occupancy, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`,
		b.ID, b.WardID, b.BedNumber, b.Occupancy, b.State,
	).Scan(&b.CreatedAt, &b.UpdatedAt)
	return mapWriteErr("create bed", err)
}

func (r *bedRepoPG) Get(ctx context.Context, id uuid.UUID, scope db.Scope) (*Bed, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx,
		`SELECT `+bedColumns+bedFrom+` WHERE b.id = $1 AND `+
			scope.Predicate("b.status", string(RecordDeleted)), id))
}

func (r *bedRepoPG) GetForUpdate(ctx context.Context, id uuid.UUID) (*Bed, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx,
		`SELECT `+bedColumns+bedFrom+` WHERE b.id = $1 AND b.status = 'active' AND w.status = 'active' FOR UPDATE OF b`, id))
}

func (r *bedRepoPG) Update(ctx context.Context, b *Bed) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE bed SET ward_id = $2, bed_number = $3, occupancy = $4, status = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		b.ID, b.WardID, b.BedNumber, b.Occupancy, b.State,
	).Scan(&b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound("Bed not found.")
	}
	return mapWriteErr("update bed", err)
}

func (r *bedRepoPG) SetOccupancy(ctx context.Context, id uuid.UUID, state BedState) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE bed SET occupancy = $2, updated_at = NOW() WHERE id = $1`, id, state)
	if err != nil {
		return fmt.Errorf("set bed occupancy: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Bed not found.")
	}
	return nil
}

func (r *bedRepoPG) List(ctx context.Context, scope db.Scope, wardID *uuid.UUID, limit, offset int) ([]*Bed, int, error) {
	where := ` WHERE ` + scope.Predicate("b.status", string(RecordDeleted))
	args := []interface{}{}
	if wardID != nil {
		where += ` AND b.ward_id = $1`
		args = append(args, *wardID)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM bed b`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count beds: %w", err)
	}

	query := fmt.Sprintf(`SELECT `+bedColumns+bedFrom+where+
		` ORDER BY w.name, b.bed_number LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list beds: %w", err)
	}
	out, err := r.scanAll(rows)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *bedRepoPG) ListAvailable(ctx context.Context) ([]*Bed, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+bedColumns+bedFrom+`
		WHERE b.status = 'active' AND w.status = 'active' AND b.occupancy = 'available'
		AND NOT EXISTS (
			SELECT 1 FROM bed_assignment a WHERE a.bed_id = b.id AND a.status = 'active'
		)
		ORDER BY w.name, b.bed_number`)
	if err != nil {
		return nil, fmt.Errorf("list available beds: %w", err)
	}
	return r.scanAll(rows)
}
