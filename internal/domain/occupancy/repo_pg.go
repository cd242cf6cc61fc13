package occupancy

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

const (
	uniqueActiveBedIndex     = "bed_assignment_bed_active_idx"
	uniqueActivePatientIndex = "bed_assignment_patient_active_idx"
)

var (
	ErrBedTaken = apperr.Conflict("Selected bed has already been assigned to another patient.")
	// ErrPatientAssigned is shared with the application-level check.
	ErrPatientAssigned = apperr.Conflict("Patient already has an active bed assignment.")
)

const concurrencyMessage = "The bed assignment failed due to a concurrency conflict. Please try again."

type queryable interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func mapWriteErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if constraint, ok := db.UniqueViolation(err); ok {
		switch constraint {
		case uniqueActiveBedIndex:
			return ErrBedTaken
		case uniqueActivePatientIndex:
			return ErrPatientAssigned
		}
		return apperr.Conflict("Record already exists.")
	}
	if db.IsConcurrencyFailure(err) {
		return apperr.ConcurrencyConflict(concurrencyMessage, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

type assignmentRepoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &assignmentRepoPG{pool: pool}
}

func (r *assignmentRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const assignmentSelect = `SELECT ba.id, ba.patient_id, p.first_name || ' ' || p.last_name,
	ba.bed_id, b.bed_number, w.name, ba.assigned_at, ba.status, ba.created_at, ba.updated_at
	FROM bed_assignment ba
	JOIN patient p ON p.id = ba.patient_id
	JOIN bed b ON b.id = ba.bed_id
	JOIN ward w ON w.id = b.ward_id`

func (r *assignmentRepoPG) scan(row pgx.Row) (*Assignment, error) {
	var a Assignment
	err := row.Scan(&a.ID, &a.PatientID, &a.PatientName, &a.BedID, &a.BedNumber, &a.WardName,
		&a.AssignedAt, &a.State, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Bed assignment not found.")
		}
		return nil, fmt.Errorf("scan bed assignment: %w", err)
	}
	return &a, nil
}

func (r *assignmentRepoPG) Create(ctx context.Context, a *Assignment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO bed_assignment (id, patient_id, bed_id, assigned_at, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`,
		a.ID, a.PatientID, a.BedID, a.AssignedAt, a.State,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	return mapWriteErr("create bed assignment", err)
}

func (r *assignmentRepoPG) Get(ctx context.Context, id uuid.UUID, scope db.Scope) (*Assignment, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx,
		assignmentSelect+` WHERE ba.id = $1 AND `+scope.Predicate("ba.status", string(StateDeleted)), id))
}

func (r *assignmentRepoPG) GetForUpdate(ctx context.Context, id uuid.UUID, scope db.Scope) (*Assignment, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx,
		assignmentSelect+` WHERE ba.id = $1 AND `+scope.Predicate("ba.status", string(StateDeleted))+
			` FOR UPDATE OF ba`, id))
}

func (r *assignmentRepoPG) Update(ctx context.Context, a *Assignment) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE bed_assignment SET bed_id = $2, status = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		a.ID, a.BedID, a.State,
	).Scan(&a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound("Bed assignment not found.")
	}
	return mapWriteErr("update bed assignment", err)
}

func (r *assignmentRepoPG) ActiveForPatient(ctx context.Context, patientID uuid.UUID) (*Assignment, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx,
		assignmentSelect+` WHERE ba.patient_id = $1 AND ba.status = 'active' FOR UPDATE OF ba`, patientID))
}

func (r *assignmentRepoPG) BedTaken(ctx context.Context, bedID, exceptID uuid.UUID) (bool, error) {
	var taken bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM bed_assignment
			WHERE bed_id = $1 AND status = 'active' AND id <> $2)`, bedID, exceptID).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("check bed assignment: %w", err)
	}
	return taken, nil
}

func (r *assignmentRepoPG) List(ctx context.Context, scope db.Scope, limit, offset int) ([]*Assignment, int, error) {
	where := ` WHERE ` + scope.Predicate("ba.status", string(StateDeleted))

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM bed_assignment ba`+where).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count bed assignments: %w", err)
	}

	rows, err := r.conn(ctx).Query(ctx, assignmentSelect+where+
		` ORDER BY ba.assigned_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list bed assignments: %w", err)
	}
	defer rows.Close()

	var out []*Assignment
	for rows.Next() {
		a, err := r.scan(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, a)
	}
	return out, total, rows.Err()
}
