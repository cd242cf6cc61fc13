package admission

import (
	"time"

	"github.com/google/uuid"

	"github.com/futuremed/wardcare/internal/domain/notify"
)

type State string

const (
	StateActive  State = "active"
	StateDeleted State = "deleted"
)

func (s State) Valid() bool {
	return s == StateActive || s == StateDeleted
}

const DefaultNotes = "Admitted via system"

// Admission is one care episode of a patient under a doctor and a nurse.
// Discharge does not change State; it stamps DischargedAt.
type Admission struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	PatientID    uuid.UUID  `db:"patient_id" json:"patient_id"`
	PatientName  string     `db:"-" json:"patient_name"`
	DoctorID     uuid.UUID  `db:"doctor_id" json:"doctor_id"`
	DoctorName   string     `db:"-" json:"doctor_name"`
	NurseID      uuid.UUID  `db:"nurse_id" json:"nurse_id"`
	NurseName    string     `db:"-" json:"nurse_name"`
	AdmittedAt   time.Time  `db:"admitted_at" json:"admitted_at"`
	Notes        string     `db:"notes" json:"notes"`
	DischargedAt *time.Time `db:"discharged_at" json:"discharged_at,omitempty"`
	State        State      `db:"status" json:"status"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// CareTeam is the notification audience of the admission.
func (a *Admission) CareTeam() notify.CareTeam {
	return notify.CareTeam{
		AdmissionID: a.ID,
		PatientID:   a.PatientID,
		PatientName: a.PatientName,
		DoctorID:    a.DoctorID,
		NurseID:     a.NurseID,
		AdmittedAt:  a.AdmittedAt,
	}
}
