package device

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/futuremed/wardcare/internal/platform/apperr"
)

// Service is the device trust ledger.
type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

func (s *Service) IsTrusted(ctx context.Context, employeeID uuid.UUID, fingerprint string) (bool, error) {
	if fingerprint == "" {
		return false, nil
	}
	return s.repo.ExistsUnexpired(ctx, employeeID, fingerprint, s.now())
}

// Add trusts fingerprint for ttlDays. Repeated calls add repeated rows.
func (s *Service) Add(ctx context.Context, employeeID uuid.UUID, fingerprint, label string, ttlDays int) (*TrustedDevice, error) {
	if ttlDays <= 0 {
		ttlDays = DefaultTrustDays
	}
	now := s.now()
	d := &TrustedDevice{
		EmployeeID:  employeeID,
		Fingerprint: fingerprint,
		Label:       label,
		CreatedAt:   now,
		LastUsedAt:  now,
		ExpiresAt:   now.AddDate(0, 0, ttlDays),
	}
	if err := s.repo.Create(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// TrustMessage is shown after a device has been added.
func TrustMessage(d *TrustedDevice, ttlDays int) string {
	return fmt.Sprintf("This device (%s) will be trusted for %d days.", d.Label, ttlDays)
}

func (s *Service) Touch(ctx context.Context, employeeID uuid.UUID, fingerprint string) error {
	return s.repo.Touch(ctx, employeeID, fingerprint, s.now())
}

// ListTrusted returns unexpired devices, most recently used first.
func (s *Service) ListTrusted(ctx context.Context, employeeID uuid.UUID) ([]*TrustedDevice, error) {
	return s.repo.ListUnexpired(ctx, employeeID, s.now())
}

func (s *Service) Remove(ctx context.Context, id, employeeID uuid.UUID) error {
	ok, err := s.repo.Delete(ctx, id, employeeID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound("Trusted device not found.")
	}
	return nil
}

func (s *Service) RemoveAll(ctx context.Context, employeeID uuid.UUID) (int64, error) {
	return s.repo.DeleteAll(ctx, employeeID)
}
