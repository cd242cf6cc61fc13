package occupancy

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/futuremed/wardcare/internal/domain/admission"
	"github.com/futuremed/wardcare/internal/domain/employee"
	"github.com/futuremed/wardcare/internal/domain/notify"
	"github.com/futuremed/wardcare/internal/domain/patient"
	"github.com/futuremed/wardcare/internal/domain/ward"
	"github.com/futuremed/wardcare/internal/platform/apperr"
	"github.com/futuremed/wardcare/internal/platform/db"
)

// BedStore is the part of the bed inventory assignments touch.
type BedStore interface {
	Get(ctx context.Context, id uuid.UUID, scope db.Scope) (*ward.Bed, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*ward.Bed, error)
	SetOccupancy(ctx context.Context, id uuid.UUID, state ward.BedState) error
	ListAvailable(ctx context.Context) ([]*ward.Bed, error)
}

type PatientStore interface {
	GetForUpdate(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
	SetState(ctx context.Context, id uuid.UUID, state patient.State) error
}

type AdmissionStore interface {
	GetForUpdate(ctx context.Context, id uuid.UUID, scope db.Scope) (*admission.Admission, error)
	ActiveForPatient(ctx context.Context, patientID uuid.UUID) (*admission.Admission, error)
	Update(ctx context.Context, a *admission.Admission) error
}

type StaffDirectory interface {
	Get(ctx context.Context, id uuid.UUID, scope db.Scope) (*employee.Employee, error)
}

type Service struct {
	repo       Repository
	beds       BedStore
	patients   PatientStore
	admissions AdmissionStore
	staff      StaffDirectory
	outbox     notify.Outbox
	tx         db.TxRunner
	now        func() time.Time
}

func NewService(
	repo Repository,
	beds BedStore,
	patients PatientStore,
	admissions AdmissionStore,
	staff StaffDirectory,
	outbox notify.Outbox,
	tx db.TxRunner,
) *Service {
	return &Service{
		repo:       repo,
		beds:       beds,
		patients:   patients,
		admissions: admissions,
		staff:      staff,
		outbox:     outbox,
		tx:         tx,
		now:        time.Now,
	}
}

type AssignInput struct {
	PatientID uuid.UUID `json:"patient_id"`
	// BedID is optional; the first available bed is taken when it is nil.
	BedID *uuid.UUID `json:"bed_id,omitempty"`
}

// lockFreeBed locks bedID and checks that no other active assignment than
// exceptID holds it.
func (s *Service) lockFreeBed(ctx context.Context, bedID, exceptID uuid.UUID) (*ward.Bed, error) {
	bed, err := s.beds.GetForUpdate(ctx, bedID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, apperr.NotFound("Bed not found.")
		}
		return nil, err
	}
	if bed.Occupancy == ward.BedUnderMaintenance {
		return nil, apperr.InvalidState(fmt.Sprintf("Bed %s is under maintenance.", bed.BedNumber))
	}
	taken, err := s.repo.BedTaken(ctx, bed.ID, exceptID)
	if err != nil {
		return nil, err
	}
	if taken || bed.Occupancy == ward.BedOccupied {
		return nil, ErrBedTaken
	}
	return bed, nil
}

func (s *Service) pickBed(ctx context.Context) (uuid.UUID, error) {
	beds, err := s.beds.ListAvailable(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	if len(beds) == 0 {
		return uuid.Nil, apperr.InvalidState("No beds are currently available.")
	}
	return beds[0].ID, nil
}

// Assign gives an admitted patient a bed. The patient and bed rows are
// locked for the transaction and the partial unique indexes reject a second
// active assignment that slips past the checks.
func (s *Service) Assign(ctx context.Context, in AssignInput) (*Assignment, error) {
	var a *Assignment
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		p, err := s.patients.GetForUpdate(ctx, in.PatientID)
		if err != nil {
			if apperr.Is(err, apperr.KindNotFound) {
				return apperr.NotFound("Patient not found.")
			}
			return err
		}
		if _, err := s.admissions.ActiveForPatient(ctx, p.ID); err != nil || p.State != patient.StateAdmitted {
			if err == nil || apperr.Is(err, apperr.KindNotFound) {
				return apperr.InvalidState("Patient is not currently admitted.")
			}
			return err
		}
		if _, err := s.repo.ActiveForPatient(ctx, p.ID); err == nil {
			return ErrPatientAssigned
		} else if !apperr.Is(err, apperr.KindNotFound) {
			return err
		}

		bedID := uuid.Nil
		if in.BedID != nil {
			bedID = *in.BedID
		} else if bedID, err = s.pickBed(ctx); err != nil {
			return err
		}
		bed, err := s.lockFreeBed(ctx, bedID, uuid.Nil)
		if err != nil {
			return err
		}

		a = &Assignment{
			PatientID:   p.ID,
			PatientName: p.FullName(),
			BedID:       bed.ID,
			BedNumber:   bed.BedNumber,
			WardName:    bed.WardName,
			AssignedAt:  s.now(),
			State:       StateActive,
		}
		if err := s.repo.Create(ctx, a); err != nil {
			return err
		}
		return s.beds.SetOccupancy(ctx, bed.ID, ward.BedOccupied)
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Edit moves an active assignment to another bed. The old bed is freed and
// the new one occupied in the same transaction.
func (s *Service) Edit(ctx context.Context, id, bedID uuid.UUID) (*Assignment, error) {
	var a *Assignment
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		a, err = s.repo.GetForUpdate(ctx, id, db.All)
		if err != nil {
			return err
		}
		if !a.Active() {
			return apperr.InvalidState("Cannot edit inactive bed assignment.")
		}
		if a.BedID == bedID {
			return nil
		}
		bed, err := s.lockFreeBed(ctx, bedID, a.ID)
		if err != nil {
			return err
		}
		if err := s.beds.SetOccupancy(ctx, a.BedID, ward.BedAvailable); err != nil {
			return err
		}
		if err := s.beds.SetOccupancy(ctx, bed.ID, ward.BedOccupied); err != nil {
			return err
		}
		a.BedID, a.BedNumber, a.WardName = bed.ID, bed.BedNumber, bed.WardName
		return s.repo.Update(ctx, a)
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Delete soft deletes an active assignment and frees its bed.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		a, err := s.repo.GetForUpdate(ctx, id, db.ActiveOnly)
		if err != nil {
			if apperr.Is(err, apperr.KindNotFound) {
				return apperr.NotFound("Bed assignment not found or already deleted.")
			}
			return err
		}
		return s.release(ctx, a)
	})
}

func (s *Service) release(ctx context.Context, a *Assignment) error {
	a.State = StateDeleted
	if err := s.repo.Update(ctx, a); err != nil {
		return err
	}
	return s.beds.SetOccupancy(ctx, a.BedID, ward.BedAvailable)
}

// Restore reactivates a deleted assignment when neither its bed nor its
// patient has been given another one meanwhile.
func (s *Service) Restore(ctx context.Context, id uuid.UUID) error {
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		a, err := s.repo.GetForUpdate(ctx, id, db.DeletedOnly)
		if err != nil {
			return err
		}
		if _, err := s.patients.GetForUpdate(ctx, a.PatientID); err != nil {
			return err
		}
		if _, err := s.repo.ActiveForPatient(ctx, a.PatientID); err == nil {
			return ErrPatientAssigned
		} else if !apperr.Is(err, apperr.KindNotFound) {
			return err
		}
		if _, err := s.lockFreeBed(ctx, a.BedID, a.ID); err != nil {
			if apperr.Is(err, apperr.KindConflict) {
				return apperr.Conflict(fmt.Sprintf("Bed %s is already assigned to another patient.", a.BedNumber))
			}
			return err
		}
		a.State = StateActive
		if err := s.repo.Update(ctx, a); err != nil {
			return err
		}
		return s.beds.SetOccupancy(ctx, a.BedID, ward.BedOccupied)
	})
}

var errAdmissionClosed = apperr.NotFound("Admission not found or already discharged.")

// Discharge releases the patient's bed and marks the patient discharged.
// The admission stays active as the permanent record of the episode; only
// its discharge time is stamped. The care team is notified after commit.
func (s *Service) Discharge(ctx context.Context, actor, admissionID uuid.UUID) error {
	var drafts []notify.Draft
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		adm, err := s.admissions.GetForUpdate(ctx, admissionID, db.ActiveOnly)
		if err != nil {
			if apperr.Is(err, apperr.KindNotFound) {
				return errAdmissionClosed
			}
			return err
		}
		if adm.DischargedAt != nil {
			return errAdmissionClosed
		}
		p, err := s.patients.GetForUpdate(ctx, adm.PatientID)
		if err != nil {
			return err
		}
		if p.State != patient.StateAdmitted {
			return errAdmissionClosed
		}
		// Only the patient's current episode can be discharged.
		current, err := s.admissions.ActiveForPatient(ctx, p.ID)
		if err != nil {
			if apperr.Is(err, apperr.KindNotFound) {
				return errAdmissionClosed
			}
			return err
		}
		if current.ID != adm.ID {
			return errAdmissionClosed
		}
		a, err := s.repo.ActiveForPatient(ctx, p.ID)
		if err != nil {
			if apperr.Is(err, apperr.KindNotFound) {
				return apperr.InvalidState("Patient does not have an active bed assignment.")
			}
			return err
		}
		if err := s.release(ctx, a); err != nil {
			return err
		}
		if err := s.patients.SetState(ctx, p.ID, patient.StateDischarged); err != nil {
			return err
		}
		now := s.now()
		adm.DischargedAt = &now
		if err := s.admissions.Update(ctx, adm); err != nil {
			return err
		}
		drafts = notify.DischargeDrafts(adm.CareTeam(), s.sender(ctx, actor))
		return nil
	})
	if err != nil {
		return err
	}
	s.outbox.Dispatch(ctx, drafts)
	return nil
}

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

func (s *Service) Get(ctx context.Context, id uuid.UUID, scope db.Scope) (*Assignment, error) {
	return s.repo.Get(ctx, id, scope)
}

func (s *Service) List(ctx context.Context, scope db.Scope, limit, offset int) ([]*Assignment, int, error) {
	return s.repo.List(ctx, scope, limit, offset)
}
