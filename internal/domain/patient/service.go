package patient

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/futuremed/wardcare/internal/platform/apperr"
	"github.com/futuremed/wardcare/internal/platform/db"
)

type Service struct {
	repo    Repository
	catalog CatalogRepository
	tx      db.TxRunner
}

func NewService(repo Repository, catalog CatalogRepository, tx db.TxRunner) *Service {
	return &Service{repo: repo, catalog: catalog, tx: tx}
}

type Input struct {
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	DateOfBirth time.Time `json:"date_of_birth"`
	Gender      Gender    `json:"gender"`
	IDNumber    string    `json:"id_number"`
	Cellphone   string    `json:"cellphone"`
}

func (in *Input) validate() error {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.IDNumber = strings.TrimSpace(in.IDNumber)
	in.Cellphone = strings.TrimSpace(in.Cellphone)
	if in.FirstName == "" || in.LastName == "" {
		return apperr.Validation("First and last name are required.")
	}
	if in.DateOfBirth.IsZero() {
		return apperr.Validation("Date of birth is required.")
	}
	if in.DateOfBirth.After(time.Now()) {
		return apperr.Validation("Date of birth cannot be in the future.")
	}
	if !in.Gender.Valid() {
		return apperr.Validation("Gender must be male, female or prefer_not_to_say.")
	}
	if in.IDNumber == "" {
		return apperr.Validation("ID number is required.")
	}
	return nil
}

func (in Input) apply(p *Patient) {
	p.FirstName = in.FirstName
	p.LastName = in.LastName
	p.DateOfBirth = in.DateOfBirth
	p.Gender = in.Gender
	p.IDNumber = in.IDNumber
	p.Cellphone = in.Cellphone
}

// Register creates a patient in the active (not admitted) state.
func (s *Service) Register(ctx context.Context, in Input) (*Patient, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	p := &Patient{State: StateActive}
	in.apply(p)
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID, scope db.Scope) (*Patient, error) {
	return s.repo.Get(ctx, id, scope)
}

func (s *Service) List(ctx context.Context, scope db.Scope, state State, limit, offset int) ([]*Patient, int, error) {
	if state != "" && !state.Valid() {
		return nil, 0, apperr.Validation("Unknown patient state.")
	}
	return s.repo.List(ctx, scope, state, limit, offset)
}

func (s *Service) ListDischarged(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	return s.repo.List(ctx, db.ActiveOnly, StateDischarged, limit, offset)
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, in Input) (*Patient, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	var p *Patient
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		p, err = s.repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		in.apply(p)
		return s.repo.Update(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Delete soft deletes a patient. Admitted patients must be discharged first
// so that no bed stays occupied by a deleted record.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		p, err := s.repo.GetForUpdate(ctx, id)
		if err != nil {
			if apperr.Is(err, apperr.KindNotFound) {
				return apperr.NotFound("Patient not found or already deleted.")
			}
			return err
		}
		if p.State == StateAdmitted {
			return apperr.InvalidState("Cannot delete an admitted patient. Discharge the patient first.")
		}
		return s.repo.SetState(ctx, p.ID, StateDeleted)
	})
}

func (s *Service) Restore(ctx context.Context, id uuid.UUID) error {
	p, err := s.repo.Get(ctx, id, db.DeletedOnly)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return apperr.NotFound("Patient not found or is not deleted.")
		}
		return err
	}
	return s.repo.SetState(ctx, p.ID, StateActive)
}

// RestoreDischarged puts a discharged patient back into the admitted state.
func (s *Service) RestoreDischarged(ctx context.Context, id uuid.UUID) error {
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		p, err := s.repo.GetForUpdate(ctx, id)
		if err != nil || p.State != StateDischarged {
			if err == nil || apperr.Is(err, apperr.KindNotFound) {
				return apperr.NotFound("Patient not found or is not discharged.")
			}
			return err
		}
		return s.repo.SetState(ctx, p.ID, StateAdmitted)
	})
}

// -- Clinical selections --

func (s *Service) Selections(ctx context.Context, patientID uuid.UUID) (*Selections, error) {
	if _, err := s.repo.Get(ctx, patientID, db.ActiveOnly); err != nil {
		return nil, err
	}
	return s.repo.GetSelections(ctx, patientID)
}

var kindLabels = map[CatalogKind]string{
	KindAllergies:   "allergy",
	KindMedications: "medication",
	KindConditions:  "condition",
}

// ReplaceClinicalSelections clears the patient's allergy, medication and
// condition links and inserts sel. Unknown catalog ids are rejected. When
// called inside an outer transaction the writes join it.
func (s *Service) ReplaceClinicalSelections(ctx context.Context, patientID uuid.UUID, sel Selections) error {
	sel = Selections{
		AllergyIDs:    dedupe(sel.AllergyIDs),
		MedicationIDs: dedupe(sel.MedicationIDs),
		ConditionIDs:  dedupe(sel.ConditionIDs),
	}
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		for kind, ids := range sel.byKind() {
			if len(ids) == 0 {
				continue
			}
			n, err := s.catalog.CountExisting(ctx, kind, ids)
			if err != nil {
				return err
			}
			if n != len(ids) {
				return apperr.Validation(fmt.Sprintf("Unknown %s selected.", kindLabels[kind]))
			}
		}
		return s.repo.ReplaceSelections(ctx, patientID, sel)
	})
}

// -- Catalogs --

type CatalogInput struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

func (s *Service) AddCatalogItem(ctx context.Context, kind CatalogKind, in CatalogInput) (*CatalogItem, error) {
	if !kind.Valid() {
		return nil, apperr.Validation("Catalog must be allergies, medications or conditions.")
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.Validation("Name is required.")
	}
	item := &CatalogItem{Kind: kind, Name: name, Description: in.Description}
	if err := s.catalog.Create(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *Service) ListCatalog(ctx context.Context, kind CatalogKind) ([]*CatalogItem, error) {
	if !kind.Valid() {
		return nil, apperr.Validation("Catalog must be allergies, medications or conditions.")
	}
	return s.catalog.List(ctx, kind)
}
