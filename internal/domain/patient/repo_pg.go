package patient

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

func connFor(ctx context.Context, pool *pgxpool.Pool) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return pool
}

// catalogTable maps a catalog kind to its table and the join table linking
// it to patients.
type catalogTable struct {
	table, join, column string
}

var catalogTables = map[CatalogKind]catalogTable{
	KindAllergies:   {table: "allergy", join: "patient_allergy", column: "allergy_id"},
	KindMedications: {table: "medication", join: "patient_medication", column: "medication_id"},
	KindConditions:  {table: "condition", join: "patient_condition", column: "condition_id"},
}

func tableFor(kind CatalogKind) (catalogTable, error) {
	t, ok := catalogTables[kind]
	if !ok {
		return catalogTable{}, fmt.Errorf("unknown catalog kind %q", kind)
	}
	return t, nil
}

func idStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

// =========== Patient Repository ===========

type patientRepoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &patientRepoPG{pool: pool}
}

func (r *patientRepoPG) conn(ctx context.Context) queryable {
	return connFor(ctx, r.pool)
}

const patientColumns = `id, first_name, last_name, date_of_birth, gender, id_number, cellphone, status, created_at, updated_at`

func (r *patientRepoPG) scan(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.FirstName, &p.LastName, &p.DateOfBirth, &p.Gender,
		&p.IDNumber, &p.Cellphone, &p.State, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Patient not found.")
		}
		return nil, fmt.Errorf("scan patient: %w", err)
	}
	return &p, nil
}

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patient (id, first_name, last_name, date_of_birth, gender, id_number, cellphone, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`,
		p.ID, p.FirstName, p.LastName, p.DateOfBirth, p.Gender, p.IDNumber, p.Cellphone, p.State,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create patient: %w", err)
	}
	return nil
}

func (r *patientRepoPG) Get(ctx context.Context, id uuid.UUID, scope db.Scope) (*Patient, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx,
		`SELECT `+patientColumns+` FROM patient WHERE id = $1 AND `+
			scope.Predicate("status", string(StateDeleted)), id))
}

func (r *patientRepoPG) GetForUpdate(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx,
		`SELECT `+patientColumns+` FROM patient WHERE id = $1 AND status <> 'deleted' FOR UPDATE`, id))
}

func (r *patientRepoPG) Update(ctx context.Context, p *Patient) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE patient SET first_name = $2, last_name = $3, date_of_birth = $4, gender = $5,
			id_number = $6, cellphone = $7, status = $8, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		p.ID, p.FirstName, p.LastName, p.DateOfBirth, p.Gender, p.IDNumber, p.Cellphone, p.State,
	).Scan(&p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFound("Patient not found.")
		}
		return fmt.Errorf("update patient: %w", err)
	}
	return nil
}

func (r *patientRepoPG) SetState(ctx context.Context, id uuid.UUID, state State) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE patient SET status = $2, updated_at = NOW() WHERE id = $1`, id, state)
	if err != nil {
		return fmt.Errorf("set patient state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Patient not found.")
	}
	return nil
}

func (r *patientRepoPG) List(ctx context.Context, scope db.Scope, state State, limit, offset int) ([]*Patient, int, error) {
	where := ` WHERE ` + scope.Predicate("status", string(StateDeleted))
	args := []interface{}{}
	if state != "" {
		where += ` AND status = $1`
		args = append(args, state)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patient`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count patients: %w", err)
	}

	query := fmt.Sprintf(`SELECT `+patientColumns+` FROM patient`+where+
		` ORDER BY last_name, first_name LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list patients: %w", err)
	}
	defer rows.Close()

	var out []*Patient
	for rows.Next() {
		p, err := r.scan(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

func (r *patientRepoPG) GetSelections(ctx context.Context, patientID uuid.UUID) (*Selections, error) {
	sel := &Selections{}
	targets := map[CatalogKind]*[]uuid.UUID{
		KindAllergies:   &sel.AllergyIDs,
		KindMedications: &sel.MedicationIDs,
		KindConditions:  &sel.ConditionIDs,
	}
	for kind, dst := range targets {
		t := catalogTables[kind]
		rows, err := r.conn(ctx).Query(ctx,
			fmt.Sprintf(`SELECT %s FROM %s WHERE patient_id = $1 ORDER BY %s`, t.column, t.join, t.column), patientID)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", t.join, err)
		}
		ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", t.join, err)
		}
		*dst = ids
	}
	return sel, nil
}

func (r *patientRepoPG) ReplaceSelections(ctx context.Context, patientID uuid.UUID, sel Selections) error {
	for kind, ids := range sel.byKind() {
		t := catalogTables[kind]
		if _, err := r.conn(ctx).Exec(ctx,
			fmt.Sprintf(`DELETE FROM %s WHERE patient_id = $1`, t.join), patientID); err != nil {
			return fmt.Errorf("clear %s: %w", t.join, err)
		}
		if len(ids) == 0 {
			continue
		}
		if _, err := r.conn(ctx).Exec(ctx,
			fmt.Sprintf(`INSERT INTO %s (patient_id, %s) SELECT $1, unnest($2::uuid[])`, t.join, t.column),
			patientID, idStrings(ids)); err != nil {
			return fmt.Errorf("insert %s: %w", t.join, err)
		}
	}
	return nil
}

// =========== Catalog Repository ===========

type catalogRepoPG struct {
	pool *pgxpool.Pool
}

func NewCatalogRepo(pool *pgxpool.Pool) CatalogRepository {
	return &catalogRepoPG{pool: pool}
}

func (r *catalogRepoPG) conn(ctx context.Context) queryable {
	return connFor(ctx, r.pool)
}

func (r *catalogRepoPG) Create(ctx context.Context, item *CatalogItem) error {
	t, err := tableFor(item.Kind)
	if err != nil {
		return err
	}
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	err = r.conn(ctx).QueryRow(ctx,
		fmt.Sprintf(`INSERT INTO %s (id, name, description) VALUES ($1, $2, $3) RETURNING created_at`, t.table),
		item.ID, item.Name, item.Description,
	).Scan(&item.CreatedAt)
	if _, dup := db.UniqueViolation(err); dup {
		return apperr.Conflict("An entry with this name already exists.")
	}
	if err != nil {
		return fmt.Errorf("create %s: %w", t.table, err)
	}
	return nil
}

func (r *catalogRepoPG) List(ctx context.Context, kind CatalogKind) ([]*CatalogItem, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		fmt.Sprintf(`SELECT id, name, description, created_at FROM %s ORDER BY name`, t.table))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", t.table, err)
	}
	defer rows.Close()

	var out []*CatalogItem
	for rows.Next() {
		item := &CatalogItem{Kind: kind}
		if err := rows.Scan(&item.ID, &item.Name, &item.Description, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan %s: %w", t.table, err)
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (r *catalogRepoPG) CountExisting(ctx context.Context, kind CatalogKind, ids []uuid.UUID) (int, error) {
	t, err := tableFor(kind)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	var n int
	err = r.conn(ctx).QueryRow(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE id = ANY($1::uuid[])`, t.table), idStrings(ids)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", t.table, err)
	}
	return n, nil
}
