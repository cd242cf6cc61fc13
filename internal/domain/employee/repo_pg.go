package employee

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
	uniqueUsernameIndex = "employee_username_lower_idx"
	uniqueEmailIndex    = "employee_email_lower_idx"
)

type employeeRepoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &employeeRepoPG{pool: pool}
}

func (r *employeeRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const employeeColumns = `id, username, email, first_name, last_name, gender, role, status, hire_date,
	password_hash, failed_login_attempts, lockout_end,
	two_factor_enabled, two_factor_secret, recovery_codes,
	verification_token_hash, verification_expires, reset_hash, reset_expires,
	created_at, updated_at`

func (r *employeeRepoPG) scan(row pgx.Row) (*Employee, error) {
	var e Employee
	err := row.Scan(
		&e.ID, &e.Username, &e.Email, &e.FirstName, &e.LastName, &e.Gender, &e.Role, &e.Status, &e.HireDate,
		&e.PasswordHash, &e.FailedLoginAttempts, &e.LockoutEnd,
		&e.TwoFactorEnabled, &e.TwoFactorSecret, &e.RecoveryCodes,
		&e.VerificationTokenHash, &e.VerificationExpires, &e.ResetHash, &e.ResetExpires,
		&e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("User not found.")
		}
		return nil, fmt.Errorf("scan employee: %w", err)
	}
	return &e, nil
}

func (r *employeeRepoPG) Create(ctx context.Context, e *Employee) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO employee (
			id, username, email, first_name, last_name, gender, role, status, hire_date,
			password_hash, verification_token_hash, verification_expires
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at`,
		e.ID, e.Username, e.Email, e.FirstName, e.LastName, e.Gender, e.Role, e.Status, e.HireDate,
		e.PasswordHash, e.VerificationTokenHash, e.VerificationExpires,
	).Scan(&e.CreatedAt, &e.UpdatedAt)
	return mapWriteErr("create employee", err)
}

func (r *employeeRepoPG) Get(ctx context.Context, id uuid.UUID, scope db.Scope) (*Employee, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx,
		`SELECT `+employeeColumns+` FROM employee WHERE id = $1 AND `+
			scope.Predicate("status", string(StatusDeleted)), id))
}

func (r *employeeRepoPG) GetForUpdate(ctx context.Context, id uuid.UUID) (*Employee, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx,
		`SELECT `+employeeColumns+` FROM employee WHERE id = $1 AND status <> 'deleted' FOR UPDATE`, id))
}

func (r *employeeRepoPG) GetByLogin(ctx context.Context, login string) (*Employee, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx,
		`SELECT `+employeeColumns+` FROM employee
		WHERE (lower(username) = lower($1) OR lower(email) = lower($1)) AND status <> 'deleted'
		LIMIT 1`, login))
}

func (r *employeeRepoPG) GetByEmail(ctx context.Context, email string) (*Employee, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx,
		`SELECT `+employeeColumns+` FROM employee WHERE lower(email) = lower($1) AND status <> 'deleted'`, email))
}

func (r *employeeRepoPG) Update(ctx context.Context, e *Employee) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE employee SET
			username = $2, email = $3, first_name = $4, last_name = $5, gender = $6,
			role = $7, status = $8, hire_date = $9,
			password_hash = $10, failed_login_attempts = $11, lockout_end = $12,
			two_factor_enabled = $13, two_factor_secret = $14, recovery_codes = $15,
			verification_token_hash = $16, verification_expires = $17,
			reset_hash = $18, reset_expires = $19,
			updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		e.ID, e.Username, e.Email, e.FirstName, e.LastName, e.Gender,
		e.Role, e.Status, e.HireDate,
		e.PasswordHash, e.FailedLoginAttempts, e.LockoutEnd,
		e.TwoFactorEnabled, e.TwoFactorSecret, e.RecoveryCodes,
		e.VerificationTokenHash, e.VerificationExpires,
		e.ResetHash, e.ResetExpires,
	).Scan(&e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound("User not found.")
	}
	return mapWriteErr("update employee", err)
}

func (r *employeeRepoPG) List(ctx context.Context, scope db.Scope, role Role, limit, offset int) ([]*Employee, int, error) {
	where := ` WHERE ` + scope.Predicate("status", string(StatusDeleted))
	args := []interface{}{}
	if role != "" {
		where += ` AND role = $1`
		args = append(args, role)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM employee`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count employees: %w", err)
	}

	query := fmt.Sprintf(`SELECT `+employeeColumns+` FROM employee`+where+
		` ORDER BY last_name, first_name LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list employees: %w", err)
	}
	defer rows.Close()

	var out []*Employee
	for rows.Next() {
		e, err := r.scan(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, e)
	}
	return out, total, rows.Err()
}

func mapWriteErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if constraint, ok := db.UniqueViolation(err); ok {
		switch constraint {
		case uniqueUsernameIndex:
			return apperr.Conflict("Username is already taken.")
		case uniqueEmailIndex:
			return apperr.Conflict("This email is already associated with another account.")
		}
		return apperr.Conflict("Employee already exists.")
	}
	return fmt.Errorf("%s: %w", op, err)
}
