package device

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines the persistence interface for the trust ledger.
type Repository interface {
	Create(ctx context.Context, d *TrustedDevice) error
	// ExistsUnexpired reports whether any row for the pair expires after now.
	ExistsUnexpired(ctx context.Context, employeeID uuid.UUID, fingerprint string, now time.Time) (bool, error)
	Touch(ctx context.Context, employeeID uuid.UUID, fingerprint string, at time.Time) error
	ListUnexpired(ctx context.Context, employeeID uuid.UUID, now time.Time) ([]*TrustedDevice, error)
	// Delete removes one row owned by employeeID and reports whether it existed.
	Delete(ctx context.Context, id, employeeID uuid.UUID) (bool, error)
	DeleteAll(ctx context.Context, employeeID uuid.UUID) (int64, error)
}
