package ward

import (
	"context"

	"github.com/google/uuid"

	"github.com/futuremed/wardcare/internal/platform/db"
)

type WardRepository interface {
	Create(ctx context.Context, w *Ward) error
	// Get fills ActiveBeds.
	Get(ctx context.Context, id uuid.UUID, scope db.Scope) (*Ward, error)
	// GetForUpdate locks an active ward row so capacity checks serialize.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*Ward, error)
	Update(ctx context.Context, w *Ward) error
	List(ctx context.Context, scope db.Scope, limit, offset int) ([]*Ward, int, error)
}

type BedRepository interface {
	Create(ctx context.Context, b *Bed) error
	Get(ctx context.Context, id uuid.UUID, scope db.Scope) (*Bed, error)
	// GetForUpdate locks an active bed of an active ward for the rest of the
	// transaction.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*Bed, error)
	Update(ctx context.Context, b *Bed) error
	SetOccupancy(ctx context.Context, id uuid.UUID, state BedState) error
	// List filters by ward when wardID is non-nil.
	List(ctx context.Context, scope db.Scope, wardID *uuid.UUID, limit, offset int) ([]*Bed, int, error)
	// ListAvailable returns active, available beds with no active assignment.
	ListAvailable(ctx context.Context) ([]*Bed, error)
}
