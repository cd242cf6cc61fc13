package admission

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/futuremed/wardcare/internal/domain/employee"
	"github.com/futuremed/wardcare/internal/domain/notify"
	"github.com/futuremed/wardcare/internal/domain/patient"
	"github.com/futuremed/wardcare/internal/platform/apperr"
	"github.com/futuremed/wardcare/internal/platform/db"
)

// PatientStore is the part of the patient repository admissions write to.
type PatientStore interface {
	GetForUpdate(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
	SetState(ctx context.Context, id uuid.UUID, state patient.State) error
}

// ClinicalSelections replaces a patient's allergy, medication and condition
// links. It must join the caller's transaction.
type ClinicalSelections interface {
	ReplaceClinicalSelections(ctx context.Context, patientID uuid.UUID, sel patient.Selections) error
}

// StaffDirectory resolves employees. employee.Repository satisfies it.
type StaffDirectory interface {
	Get(ctx context.Context, id uuid.UUID, scope db.Scope) (*employee.Employee, error)
}

type Service struct {
	repo       Repository
	patients   PatientStore
	selections ClinicalSelections
	staff      StaffDirectory
	outbox     notify.Outbox
	tx         db.TxRunner
	now        func() time.Time
}

func NewService(
	repo Repository,
	patients PatientStore,
	selections ClinicalSelections,
	staff StaffDirectory,
	outbox notify.Outbox,
	tx db.TxRunner,
) *Service {
	return &Service{
		repo:       repo,
		patients:   patients,
		selections: selections,
		staff:      staff,
		outbox:     outbox,
		tx:         tx,
		now:        time.Now,
	}
}

type AdmitInput struct {
	PatientID uuid.UUID `json:"patient_id"`
	DoctorID  uuid.UUID `json:"doctor_id"`
	NurseID   uuid.UUID `json:"nurse_id"`
	Notes     string    `json:"notes"`
	patient.Selections
}

type EditInput struct {
	DoctorID uuid.UUID `json:"doctor_id"`
	NurseID  uuid.UUID `json:"nurse_id"`
	patient.Selections
}

// sender resolves the acting employee for notification texts. Unknown
// actors are reported as the system.
func (s *Service) sender(ctx context.Context, actor uuid.UUID) notify.Sender {
	if actor == uuid.Nil {
		return notify.Sender{}
	}
	e, err := s.staff.Get(ctx, actor, db.ActiveOnly)
	if err != nil {
		return notify.Sender{}
	}
	return notify.Sender{ID: e.ID, Name: e.FullName()}
}

// requireStaff checks that id is an active employee holding role.
func (s *Service) requireStaff(ctx context.Context, id uuid.UUID, role employee.Role, label string) (*employee.Employee, error) {
	e, err := s.staff.Get(ctx, id, db.ActiveOnly)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, apperr.NotFound("Selected " + label + " not found.")
		}
		return nil, err
	}
	if e.Role != role || e.Status != employee.StatusActive {
		return nil, apperr.Validation("Selected " + label + " is not an active " + label + ".")
	}
	return e, nil
}

func (s *Service) careTeam(ctx context.Context, doctorID, nurseID uuid.UUID) (*employee.Employee, *employee.Employee, error) {
	doctor, err := s.requireStaff(ctx, doctorID, employee.RoleDoctor, "doctor")
	if err != nil {
		return nil, nil, err
	}
	nurse, err := s.requireStaff(ctx, nurseID, employee.RoleNurse, "nurse")
	if err != nil {
		return nil, nil, err
	}
	return doctor, nurse, nil
}

// Admit opens an admission, replaces the patient's clinical selections and
// marks the patient admitted, all in one transaction. The doctor and nurse
// are notified once it commits.
func (s *Service) Admit(ctx context.Context, actor uuid.UUID, in AdmitInput) (*Admission, error) {
	var (
		a      *Admission
		drafts []notify.Draft
	)
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		p, err := s.patients.GetForUpdate(ctx, in.PatientID)
		if err != nil {
			if apperr.Is(err, apperr.KindNotFound) {
				return apperr.NotFound("Patient not found.")
			}
			return err
		}
		if p.State == patient.StateAdmitted {
			return apperr.Conflict("Patient is already admitted.")
		}
		doctor, nurse, err := s.careTeam(ctx, in.DoctorID, in.NurseID)
		if err != nil {
			return err
		}
		if err := s.selections.ReplaceClinicalSelections(ctx, p.ID, in.Selections); err != nil {
			return err
		}
		if err := s.patients.SetState(ctx, p.ID, patient.StateAdmitted); err != nil {
			return err
		}

		notes := strings.TrimSpace(in.Notes)
		if notes == "" {
			notes = DefaultNotes
		}
		a = &Admission{
			PatientID:   p.ID,
			PatientName: p.FullName(),
			DoctorID:    doctor.ID,
			DoctorName:  doctor.FullName(),
			NurseID:     nurse.ID,
			NurseName:   nurse.FullName(),
			AdmittedAt:  s.now(),
			Notes:       notes,
			State:       StateActive,
		}
		if err := s.repo.Create(ctx, a); err != nil {
			return err
		}
		drafts = notify.AssignmentDrafts(a.CareTeam(), s.sender(ctx, actor))
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.outbox.Dispatch(ctx, drafts)
	return a, nil
}

// Edit replaces the care team and the patient's clinical selections. The
// care team is notified only when the doctor or nurse changed.
func (s *Service) Edit(ctx context.Context, actor, id uuid.UUID, in EditInput) (*Admission, error) {
	var (
		a      *Admission
		drafts []notify.Draft
	)
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		a, err = s.repo.GetForUpdate(ctx, id, db.ActiveOnly)
		if err != nil {
			return err
		}
		doctor, nurse, err := s.careTeam(ctx, in.DoctorID, in.NurseID)
		if err != nil {
			return err
		}
		changed := a.DoctorID != doctor.ID || a.NurseID != nurse.ID

		if err := s.selections.ReplaceClinicalSelections(ctx, a.PatientID, in.Selections); err != nil {
			return err
		}
		a.DoctorID, a.DoctorName = doctor.ID, doctor.FullName()
		a.NurseID, a.NurseName = nurse.ID, nurse.FullName()
		if err := s.repo.Update(ctx, a); err != nil {
			return err
		}
		if changed {
			drafts = notify.AdmissionUpdatedDrafts(a.CareTeam(), s.sender(ctx, actor))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.outbox.Dispatch(ctx, drafts)
	return a, nil
}

// SoftDelete only flags the admission. Patient state and bed assignment are
// left for an explicit discharge.
func (s *Service) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		a, err := s.repo.GetForUpdate(ctx, id, db.ActiveOnly)
		if err != nil {
			if apperr.Is(err, apperr.KindNotFound) {
				return apperr.NotFound("Admission not found or already deleted.")
			}
			return err
		}
		a.State = StateDeleted
		return s.repo.Update(ctx, a)
	})
}

// Restore reactivates an admission without re-validating its references.
func (s *Service) Restore(ctx context.Context, id uuid.UUID) error {
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		a, err := s.repo.GetForUpdate(ctx, id, db.All)
		if err != nil {
			return err
		}
		a.State = StateActive
		return s.repo.Update(ctx, a)
	})
}

func (s *Service) Get(ctx context.Context, id uuid.UUID, scope db.Scope) (*Admission, error) {
	return s.repo.Get(ctx, id, scope)
}

func (s *Service) List(ctx context.Context, scope db.Scope, limit, offset int) ([]*Admission, int, error) {
	return s.repo.List(ctx, scope, limit, offset)
}
