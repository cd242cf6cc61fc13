package ward

import (
	"time"

	"github.com/google/uuid"
)

// RecordState is the soft-delete state shared by wards and beds.
type RecordState string

const (
	RecordActive  RecordState = "active"
	RecordDeleted RecordState = "deleted"
)

func (s RecordState) Valid() bool {
	return s == RecordActive || s == RecordDeleted
}

// BedState is the occupancy of a bed, independent of its record state.
type BedState string

const (
	BedAvailable        BedState = "available"
	BedOccupied         BedState = "occupied"
	BedUnderMaintenance BedState = "under_maintenance"
)

func (s BedState) Valid() bool {
	switch s {
	case BedAvailable, BedOccupied, BedUnderMaintenance:
		return true
	}
	return false
}

// Ward is a capacity-bounded container of beds.
type Ward struct {
	ID          uuid.UUID   `db:"id" json:"id"`
	Name        string      `db:"name" json:"name"`
	Description *string     `db:"description" json:"description,omitempty"`
	Capacity    int         `db:"capacity" json:"capacity"`
	State       RecordState `db:"status" json:"status"`
	ActiveBeds  int         `db:"active_beds" json:"active_beds"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updated_at"`
}

// Full reports whether no further active bed fits.
func (w *Ward) Full() bool {
	return w.ActiveBeds >= w.Capacity
}

type Bed struct {
	ID        uuid.UUID   `db:"id" json:"id"`
	WardID    uuid.UUID   `db:"ward_id" json:"ward_id"`
	WardName  string      `db:"ward_name" json:"ward_name,omitempty"`
	BedNumber string      `db:"bed_number" json:"bed_number"`
	Occupancy BedState    `db:"occupancy" json:"occupancy"`
	State     RecordState `db:"status" json:"status"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt time.Time   `db:"updated_at" json:"updated_at"`
}

// Assignable reports whether the bed can take a patient, ignoring any
// assignment rows.
func (b *Bed) Assignable() bool {
	return b.State == RecordActive && b.Occupancy == BedAvailable
}
