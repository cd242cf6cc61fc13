package patient

import (
	"time"

	"github.com/google/uuid"
)

// State tracks where a patient is in the admission lifecycle.
type State string

const (
	StateActive     State = "active"
	StateAdmitted   State = "admitted"
	StateDischarged State = "discharged"
	StateDeleted    State = "deleted"
)

func (s State) Valid() bool {
	switch s {
	case StateActive, StateAdmitted, StateDischarged, StateDeleted:
		return true
	}
	return false
}

type Gender string

const (
	GenderMale           Gender = "male"
	GenderFemale         Gender = "female"
	GenderPreferNotToSay Gender = "prefer_not_to_say"
)

func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderPreferNotToSay:
		return true
	}
	return false
}

type Patient struct {
	ID          uuid.UUID `db:"id" json:"id"`
	FirstName   string    `db:"first_name" json:"first_name"`
	LastName    string    `db:"last_name" json:"last_name"`
	DateOfBirth time.Time `db:"date_of_birth" json:"date_of_birth"`
	Gender      Gender    `db:"gender" json:"gender"`
	IDNumber    string    `db:"id_number" json:"id_number"`
	Cellphone   string    `db:"cellphone" json:"cellphone"`
	State       State     `db:"status" json:"status"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

func (p *Patient) FullName() string {
	return p.FirstName + " " + p.LastName
}

// CatalogKind names one of the admin-managed clinical lists.
type CatalogKind string

const (
	KindAllergies   CatalogKind = "allergies"
	KindMedications CatalogKind = "medications"
	KindConditions  CatalogKind = "conditions"
)

func (k CatalogKind) Valid() bool {
	switch k {
	case KindAllergies, KindMedications, KindConditions:
		return true
	}
	return false
}

type CatalogItem struct {
	ID          uuid.UUID   `db:"id" json:"id"`
	Kind        CatalogKind `db:"-" json:"kind"`
	Name        string      `db:"name" json:"name"`
	Description *string     `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
}

// Selections are the catalog entries linked to a patient.
type Selections struct {
	AllergyIDs    []uuid.UUID `json:"allergy_ids"`
	MedicationIDs []uuid.UUID `json:"medication_ids"`
	ConditionIDs  []uuid.UUID `json:"condition_ids"`
}

func (s Selections) byKind() map[CatalogKind][]uuid.UUID {
	return map[CatalogKind][]uuid.UUID{
		KindAllergies:   s.AllergyIDs,
		KindMedications: s.MedicationIDs,
		KindConditions:  s.ConditionIDs,
	}
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
