package admission

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

type admissionRepoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &admissionRepoPG{pool: pool}
}

func (r *admissionRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const admissionSelect = `SELECT a.id, a.patient_id, p.first_name || ' ' || p.last_name,
	a.doctor_id, d.first_name || ' ' || d.last_name,
	a.nurse_id, n.first_name || ' ' || n.last_name,
	a.admitted_at, a.notes, a.discharged_at, a.status, a.created_at, a.updated_at
	FROM admission a
	JOIN patient p ON p.id = a.patient_id
	JOIN employee d ON d.id = a.doctor_id
	JOIN employee n ON n.id = a.nurse_id`

func (r *admissionRepoPG) scan(row pgx.Row) (*Admission, error) {
	var a Admission
	err := row.Scan(&a.ID, &a.PatientID, &a.PatientName, &a.DoctorID, &a.DoctorName,
		&a.NurseID, &a.NurseName, &a.AdmittedAt, &a.Notes, &a.DischargedAt, &a.State,
		&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Admission not found.")
		}
		return nil, fmt.Errorf("scan admission: %w", err)
	}
	return &a, nil
}

func (r *admissionRepoPG) Create(ctx context.Context, a *Admission) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO admission (id, patient_id, doctor_id, nurse_id, admitted_at, notes, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`,
		a.ID, a.PatientID, a.DoctorID, a.NurseID, a.AdmittedAt, a.Notes, a.State,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create admission: %w", err)
	}
	return nil
}

func (r *admissionRepoPG) Get(ctx context.Context, id uuid.UUID, scope db.Scope) (*Admission, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx,
		admissionSelect+` WHERE a.id = $1 AND `+scope.Predicate("a.status", string(StateDeleted)), id))
}

func (r *admissionRepoPG) GetForUpdate(ctx context.Context, id uuid.UUID, scope db.Scope) (*Admission, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx,
		admissionSelect+` WHERE a.id = $1 AND `+scope.Predicate("a.status", string(StateDeleted))+
			` FOR UPDATE OF a`, id))
}

func (r *admissionRepoPG) Update(ctx context.Context, a *Admission) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE admission SET doctor_id = $2, nurse_id = $3, notes = $4, discharged_at = $5,
			status = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		a.ID, a.DoctorID, a.NurseID, a.Notes, a.DischargedAt, a.State,
	).Scan(&a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFound("Admission not found.")
		}
		return fmt.Errorf("update admission: %w", err)
	}
	return nil
}

func (r *admissionRepoPG) ActiveForPatient(ctx context.Context, patientID uuid.UUID) (*Admission, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx,
		admissionSelect+` WHERE a.patient_id = $1 AND a.status = 'active'
		ORDER BY a.admitted_at DESC LIMIT 1`, patientID))
}

func (r *admissionRepoPG) List(ctx context.Context, scope db.Scope, limit, offset int) ([]*Admission, int, error) {
	where := ` WHERE ` + scope.Predicate("a.status", string(StateDeleted))

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM admission a`+where).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count admissions: %w", err)
	}

	rows, err := r.conn(ctx).Query(ctx, admissionSelect+where+
		` ORDER BY a.admitted_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list admissions: %w", err)
	}
	defer rows.Close()

	var out []*Admission
	for rows.Next() {
		a, err := r.scan(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, a)
	}
	return out, total, rows.Err()
}
