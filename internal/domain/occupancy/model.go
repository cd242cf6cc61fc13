package occupancy

import (
	"time"

	"github.com/google/uuid"
)

type State string

const (
	StateActive  State = "active"
	StateDeleted State = "deleted"
)

func (s State) Valid() bool {
	return s == StateActive || s == StateDeleted
}

// Assignment places one patient in one bed. At most one active assignment
// exists per bed and per patient; partial unique indexes enforce both.
type Assignment struct {
	ID          uuid.UUID `db:"id" json:"id"`
	PatientID   uuid.UUID `db:"patient_id" json:"patient_id"`
	PatientName string    `db:"-" json:"patient_name"`
	BedID       uuid.UUID `db:"bed_id" json:"bed_id"`
	BedNumber   string    `db:"-" json:"bed_number"`
	WardName    string    `db:"-" json:"ward_name"`
	AssignedAt  time.Time `db:"assigned_at" json:"assigned_at"`
	State       State     `db:"status" json:"status"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

func (a *Assignment) Active() bool { return a.State == StateActive }
