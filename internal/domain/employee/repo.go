package employee

import (
	"context"

	"github.com/google/uuid"

	"github.com/futuremed/wardcare/internal/platform/db"
)

// Repository defines the persistence interface for employees.
type Repository interface {
	Create(ctx context.Context, e *Employee) error
	Get(ctx context.Context, id uuid.UUID, scope db.Scope) (*Employee, error)
	// GetForUpdate locks the row for the current transaction.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*Employee, error)
	// GetByLogin matches username or email, case-insensitively.
	GetByLogin(ctx context.Context, login string) (*Employee, error)
	GetByEmail(ctx context.Context, email string) (*Employee, error)
	Update(ctx context.Context, e *Employee) error
	List(ctx context.Context, scope db.Scope, role Role, limit, offset int) ([]*Employee, int, error)
}
