package occupancy

import (
	"context"

	"github.com/google/uuid"

	"github.com/futuremed/wardcare/internal/platform/db"
)

type Repository interface {
	// Create and Update report a second active assignment for the same bed
	// or patient as Conflict.
	Create(ctx context.Context, a *Assignment) error
	Get(ctx context.Context, id uuid.UUID, scope db.Scope) (*Assignment, error)
	GetForUpdate(ctx context.Context, id uuid.UUID, scope db.Scope) (*Assignment, error)
	Update(ctx context.Context, a *Assignment) error
	// ActiveForPatient locks and returns the patient's active assignment.
	ActiveForPatient(ctx context.Context, patientID uuid.UUID) (*Assignment, error)
	// BedTaken reports whether another active assignment holds bedID.
	BedTaken(ctx context.Context, bedID, exceptID uuid.UUID) (bool, error)
	List(ctx context.Context, scope db.Scope, limit, offset int) ([]*Assignment, int, error)
}
