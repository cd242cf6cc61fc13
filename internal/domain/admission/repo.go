package admission

import (
	"context"

	"github.com/google/uuid"

	"github.com/futuremed/wardcare/internal/platform/db"
)

type Repository interface {
	Create(ctx context.Context, a *Admission) error
	Get(ctx context.Context, id uuid.UUID, scope db.Scope) (*Admission, error)
	// GetForUpdate locks the admission row within scope.
	GetForUpdate(ctx context.Context, id uuid.UUID, scope db.Scope) (*Admission, error)
	Update(ctx context.Context, a *Admission) error
	// ActiveForPatient returns the latest active admission of the patient.
	ActiveForPatient(ctx context.Context, patientID uuid.UUID) (*Admission, error)
	List(ctx context.Context, scope db.Scope, limit, offset int) ([]*Admission, int, error)
}
