package patient

import (
	"context"

	"github.com/google/uuid"

	"github.com/futuremed/wardcare/internal/platform/db"
)

type Repository interface {
	Create(ctx context.Context, p *Patient) error
	Get(ctx context.Context, id uuid.UUID, scope db.Scope) (*Patient, error)
	// GetForUpdate locks a non-deleted patient row.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	SetState(ctx context.Context, id uuid.UUID, state State) error
	// List filters by state when state is non-empty.
	List(ctx context.Context, scope db.Scope, state State, limit, offset int) ([]*Patient, int, error)
	GetSelections(ctx context.Context, patientID uuid.UUID) (*Selections, error)
	// ReplaceSelections deletes every join row of the patient and inserts sel.
	ReplaceSelections(ctx context.Context, patientID uuid.UUID, sel Selections) error
}

type CatalogRepository interface {
	Create(ctx context.Context, item *CatalogItem) error
	List(ctx context.Context, kind CatalogKind) ([]*CatalogItem, error)
	// CountExisting returns how many of ids exist in the kind's catalog.
	CountExisting(ctx context.Context, kind CatalogKind, ids []uuid.UUID) (int, error)
}
