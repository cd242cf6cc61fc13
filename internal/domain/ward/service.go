package ward

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/futuremed/wardcare/internal/platform/apperr"
	"github.com/futuremed/wardcare/internal/platform/db"
)

type Service struct {
	wards WardRepository
	beds  BedRepository
	tx    db.TxRunner
}

func NewService(wards WardRepository, beds BedRepository, tx db.TxRunner) *Service {
	return &Service{wards: wards, beds: beds, tx: tx}
}

func capacityReached(w *Ward) error {
	return apperr.InvalidState(fmt.Sprintf(
		"Cannot add more beds. The ward '%s' has reached its maximum capacity of %d beds.", w.Name, w.Capacity))
}

// -- Wards --

type WardInput struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Capacity    int     `json:"capacity"`
}

func (in *WardInput) validate() error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return apperr.Validation("Ward name is required.")
	}
	if in.Capacity <= 0 {
		return apperr.Validation("Capacity must be greater than zero.")
	}
	return nil
}

func (s *Service) CreateWard(ctx context.Context, in WardInput) (*Ward, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	w := &Ward{
		Name:        in.Name,
		Description: in.Description,
		Capacity:    in.Capacity,
		State:       RecordActive,
	}
	if err := s.wards.Create(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

func (s *Service) GetWard(ctx context.Context, id uuid.UUID, scope db.Scope) (*Ward, error) {
	return s.wards.Get(ctx, id, scope)
}

func (s *Service) ListWards(ctx context.Context, scope db.Scope, limit, offset int) ([]*Ward, int, error) {
	return s.wards.List(ctx, scope, limit, offset)
}

// UpdateWard refuses to shrink capacity below the ward's active bed count.
func (s *Service) UpdateWard(ctx context.Context, id uuid.UUID, in WardInput) (*Ward, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	var w *Ward
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		w, err = s.wards.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if in.Capacity < w.ActiveBeds {
			return apperr.InvalidState(fmt.Sprintf(
				"Capacity cannot be lower than the %d active beds in this ward.", w.ActiveBeds))
		}
		w.Name = in.Name
		w.Description = in.Description
		w.Capacity = in.Capacity
		return s.wards.Update(ctx, w)
	})
	if err != nil {
		return nil, err
	}
	return w, nil
}

// DeleteWard soft-deletes an empty ward. Its beds must be deleted first.
func (s *Service) DeleteWard(ctx context.Context, id uuid.UUID) error {
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		w, err := s.wards.GetForUpdate(ctx, id)
		if err != nil {
			if apperr.Is(err, apperr.KindNotFound) {
				return apperr.NotFound("Ward not found or has been deleted.")
			}
			return err
		}
		// Beds are added under the same row lock, so the count is stable here.
		if w.ActiveBeds > 0 {
			return apperr.InvalidState("Cannot delete a ward that still has active beds.")
		}
		w.State = RecordDeleted
		return s.wards.Update(ctx, w)
	})
}

func (s *Service) RestoreWard(ctx context.Context, id uuid.UUID) error {
	w, err := s.wards.Get(ctx, id, db.DeletedOnly)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return apperr.NotFound("Ward not found or already active.")
		}
		return err
	}
	w.State = RecordActive
	return s.wards.Update(ctx, w)
}

// -- Beds --

type BedInput struct {
	BedNumber string     `json:"bed_number"`
	WardID    *uuid.UUID `json:"ward_id,omitempty"`
}

// CreateBed adds an available bed to an active ward that still has room.
// The ward row is locked so concurrent adds cannot overshoot capacity.
func (s *Service) CreateBed(ctx context.Context, wardID uuid.UUID, in BedInput) (*Bed, error) {
	number := strings.TrimSpace(in.BedNumber)
	if number == "" {
		return nil, apperr.Validation("Bed number is required.")
	}
	var b *Bed
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		w, err := s.wards.GetForUpdate(ctx, wardID)
		if err != nil {
			if apperr.Is(err, apperr.KindNotFound) {
				return apperr.NotFound("Ward not found or has been deleted.")
			}
			return err
		}
		if w.Full() {
			return capacityReached(w)
		}
		b = &Bed{
			WardID:    w.ID,
			WardName:  w.Name,
			BedNumber: number,
			Occupancy: BedAvailable,
			State:     RecordActive,
		}
		return s.beds.Create(ctx, b)
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Service) GetBed(ctx context.Context, id uuid.UUID, scope db.Scope) (*Bed, error) {
	return s.beds.Get(ctx, id, scope)
}

func (s *Service) ListBeds(ctx context.Context, scope db.Scope, wardID *uuid.UUID, limit, offset int) ([]*Bed, int, error) {
	return s.beds.List(ctx, scope, wardID, limit, offset)
}

func (s *Service) ListAvailableBeds(ctx context.Context) ([]*Bed, error) {
	return s.beds.ListAvailable(ctx)
}

// UpdateBed renumbers a bed or moves it to another ward with spare capacity.
func (s *Service) UpdateBed(ctx context.Context, id uuid.UUID, in BedInput) (*Bed, error) {
	var b *Bed
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		b, err = s.beds.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if number := strings.TrimSpace(in.BedNumber); number != "" {
			b.BedNumber = number
		}
		if in.WardID != nil && *in.WardID != b.WardID {
			w, err := s.wards.GetForUpdate(ctx, *in.WardID)
			if err != nil {
				return err
			}
			if w.Full() {
				return capacityReached(w)
			}
			b.WardID = w.ID
			b.WardName = w.Name
		}
		return s.beds.Update(ctx, b)
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Service) DeleteBed(ctx context.Context, id uuid.UUID) error {
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		b, err := s.beds.GetForUpdate(ctx, id)
		if err != nil {
			if apperr.Is(err, apperr.KindNotFound) {
				return apperr.NotFound("Bed not found or deleted.")
			}
			return err
		}
		if b.Occupancy == BedOccupied {
			return apperr.InvalidState("Cannot delete an occupied bed.")
		}
		b.State = RecordDeleted
		return s.beds.Update(ctx, b)
	})
}

// RestoreBed reactivates a deleted bed as available, provided its ward is
// active and has room.
func (s *Service) RestoreBed(ctx context.Context, id uuid.UUID) error {
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		b, err := s.beds.Get(ctx, id, db.DeletedOnly)
		if err != nil {
			if apperr.Is(err, apperr.KindNotFound) {
				return apperr.NotFound("Bed not found or already active.")
			}
			return err
		}
		w, err := s.wards.GetForUpdate(ctx, b.WardID)
		if err != nil {
			if apperr.Is(err, apperr.KindNotFound) {
				return apperr.InvalidState("Restore the ward before restoring its beds.")
			}
			return err
		}
		if w.Full() {
			return capacityReached(w)
		}
		b.State = RecordActive
		b.Occupancy = BedAvailable
		return s.beds.Update(ctx, b)
	})
}

// SetBedState toggles maintenance. Occupancy itself is owned by bed
// assignments, so an occupied bed is left alone.
func (s *Service) SetBedState(ctx context.Context, id uuid.UUID, state BedState) error {
	if state != BedAvailable && state != BedUnderMaintenance {
		return apperr.Validation("Bed state must be available or under_maintenance.")
	}
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		b, err := s.beds.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if b.Occupancy == BedOccupied {
			return apperr.InvalidState("Cannot change the state of an occupied bed.")
		}
		return s.beds.SetOccupancy(ctx, b.ID, state)
	})
}
