package employee

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/futuremed/wardcare/internal/platform/apperr"
	"github.com/futuremed/wardcare/internal/platform/db"
	"github.com/futuremed/wardcare/internal/platform/mail"
)

const (
	VerificationTTL = 24 * time.Hour
	ResetPINTTL     = 5 * time.Minute
)

// Mailer sends a templated email. *mail.Mailer satisfies it.
type Mailer interface {
	SendTemplate(ctx context.Context, to, templateID string, data map[string]string) error
}

// SessionRevoker ends every outstanding session of an employee.
type SessionRevoker interface {
	RevokeAllForUser(ctx context.Context, employeeID string, at time.Time) error
}

type Service struct {
	repo    Repository
	tx      db.TxRunner
	mailer  Mailer
	revoker SessionRevoker
	baseURL string
	logger  zerolog.Logger
	now     func() time.Time
}

func NewService(repo Repository, tx db.TxRunner, mailer Mailer, revoker SessionRevoker, baseURL string, logger zerolog.Logger) *Service {
	return &Service{
		repo:    repo,
		tx:      tx,
		mailer:  mailer,
		revoker: revoker,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger.With().Str("component", "employee").Logger(),
		now:     time.Now,
	}
}

type CreateInput struct {
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	Gender    *string    `json:"gender,omitempty"`
	Role      Role       `json:"role"`
	HireDate  *time.Time `json:"hire_date,omitempty"`
}

func (in *CreateInput) validate() error {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	switch {
	case in.Username == "":
		return apperr.Validation("username is required")
	case in.Email == "" || !strings.Contains(in.Email, "@"):
		return apperr.Validation("Please enter a valid email.")
	case in.FirstName == "" || in.LastName == "":
		return apperr.Validation("first_name and last_name are required")
	case !in.Role.Valid():
		return apperr.Validation(fmt.Sprintf("invalid role %q", in.Role))
	}
	return nil
}

// Create registers an inactive employee and emails a verification link.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Employee, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	token := uuid.NewString()
	hash, err := HashSecret(token)
	if err != nil {
		return nil, err
	}
	expires := s.now().Add(VerificationTTL)
	e := &Employee{
		Username:              in.Username,
		Email:                 in.Email,
		FirstName:             in.FirstName,
		LastName:              in.LastName,
		Gender:                in.Gender,
		Role:                  in.Role,
		HireDate:              in.HireDate,
		Status:                StatusInactive,
		VerificationTokenHash: &hash,
		VerificationExpires:   &expires,
	}
	if err := s.repo.Create(ctx, e); err != nil {
		return nil, err
	}
	if err := s.sendVerification(ctx, e, token); err != nil {
		s.logger.Warn().Err(err).Str("employee_id", e.ID.String()).Msg("verification email not sent")
	}
	return e, nil
}

// Seed creates an active employee with a password, bypassing email
// verification. It bootstraps the first administrator.
func (s *Service) Seed(ctx context.Context, in CreateInput, password string) (*Employee, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}
	hash, err := HashSecret(password)
	if err != nil {
		return nil, err
	}
	e := &Employee{
		Username:     in.Username,
		Email:        in.Email,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Gender:       in.Gender,
		Role:         in.Role,
		HireDate:     in.HireDate,
		Status:       StatusActive,
		PasswordHash: &hash,
	}
	if err := s.repo.Create(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Service) sendVerification(ctx context.Context, e *Employee, token string) error {
	link := fmt.Sprintf("%s/verify-email?employee_id=%s&token=%s",
		s.baseURL, e.ID, url.QueryEscape(token))
	return s.mailer.SendTemplate(ctx, e.Email, mail.TemplateEmployeeVerification, map[string]string{
		"EmployeeName":     e.FullName(),
		"VerificationLink": link,
	})
}

// ResendVerification issues a fresh 24h verification link.
func (s *Service) ResendVerification(ctx context.Context, email string) error {
	e, err := s.repo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return apperr.NotFound("No account associated with this email.")
		}
		return err
	}
	if e.Status == StatusActive {
		return apperr.InvalidState("Your email is already verified. Please log in.")
	}
	token := uuid.NewString()
	hash, err := HashSecret(token)
	if err != nil {
		return err
	}
	expires := s.now().Add(VerificationTTL)
	e.VerificationTokenHash = &hash
	e.VerificationExpires = &expires
	if err := s.repo.Update(ctx, e); err != nil {
		return err
	}
	return s.sendVerification(ctx, e, token)
}

// VerifyEmail activates the account. An employee created without a password
// must set one here.
func (s *Service) VerifyEmail(ctx context.Context, id uuid.UUID, token, password string) error {
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		e, err := s.repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if e.Status == StatusActive {
			return apperr.InvalidState("Email already verified. Please log in.")
		}
		if e.VerificationTokenHash == nil || e.VerificationExpires == nil ||
			!e.VerificationExpires.After(s.now()) || !CompareSecret(*e.VerificationTokenHash, token) {
			return apperr.InvalidState("Invalid or expired verification link.")
		}
		if !e.HasPassword() {
			if err := ValidatePassword(password); err != nil {
				return err
			}
			hash, err := HashSecret(password)
			if err != nil {
				return err
			}
			e.PasswordHash = &hash
		}
		e.Status = StatusActive
		e.VerificationTokenHash = nil
		e.VerificationExpires = nil
		return s.repo.Update(ctx, e)
	})
}

func (s *Service) ChangePassword(ctx context.Context, id uuid.UUID, current, next string) error {
	if err := ValidatePassword(next); err != nil {
		return err
	}
	e, err := s.repo.Get(ctx, id, db.ActiveOnly)
	if err != nil {
		return err
	}
	if ok, _ := CheckPassword(deref(e.PasswordHash), current); !ok {
		return apperr.AuthFailure("Current password is incorrect.")
	}
	hash, err := HashSecret(next)
	if err != nil {
		return err
	}
	e.PasswordHash = &hash
	return s.repo.Update(ctx, e)
}

// Deactivate disables the account and revokes its sessions.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) error {
	return s.setStatus(ctx, id, db.ActiveOnly, StatusDeactivated)
}

// ForgotPassword emails a 6-digit PIN valid for five minutes.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	e, err := s.repo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return apperr.NotFound("The email address you entered is not associated with any account.")
		}
		return err
	}
	pin, err := NewResetPIN()
	if err != nil {
		return err
	}
	hash, err := HashSecret(pin)
	if err != nil {
		return err
	}
	e.SetResetSlot(hash, s.now().Add(ResetPINTTL))
	if err := s.repo.Update(ctx, e); err != nil {
		return err
	}
	return s.mailer.SendTemplate(ctx, e.Email, mail.TemplatePasswordReset, map[string]string{
		"Name":     e.FullName(),
		"Email":    e.Email,
		"ResetPin": pin,
	})
}

func (s *Service) ResetPassword(ctx context.Context, email, pin, next string) error {
	if !isSixDigits(pin) {
		return apperr.Validation("PIN must be a 6-digit code.")
	}
	if err := ValidatePassword(next); err != nil {
		return err
	}
	e, err := s.repo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return apperr.AuthFailure("Invalid PIN.")
		}
		return err
	}
	if !e.ResetSlotValid(s.now()) || !CompareSecret(*e.ResetHash, pin) {
		return apperr.AuthFailure("Invalid PIN.")
	}
	hash, err := HashSecret(next)
	if err != nil {
		return err
	}
	e.PasswordHash = &hash
	e.ClearResetSlot()
	return s.repo.Update(ctx, e)
}

// -- Administration --

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Employee, error) {
	return s.repo.Get(ctx, id, db.ActiveOnly)
}

func (s *Service) List(ctx context.Context, scope db.Scope, role Role, limit, offset int) ([]*Employee, int, error) {
	if role != "" && !role.Valid() {
		return nil, 0, apperr.Validation(fmt.Sprintf("invalid role %q", role))
	}
	return s.repo.List(ctx, scope, role, limit, offset)
}

type UpdateInput struct {
	FirstName *string    `json:"first_name,omitempty"`
	LastName  *string    `json:"last_name,omitempty"`
	Gender    *string    `json:"gender,omitempty"`
	Role      *Role      `json:"role,omitempty"`
	HireDate  *time.Time `json:"hire_date,omitempty"`
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (*Employee, error) {
	if in.Role != nil && !in.Role.Valid() {
		return nil, apperr.Validation(fmt.Sprintf("invalid role %q", *in.Role))
	}
	var out *Employee
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		e, err := s.repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if in.FirstName != nil {
			e.FirstName = strings.TrimSpace(*in.FirstName)
		}
		if in.LastName != nil {
			e.LastName = strings.TrimSpace(*in.LastName)
		}
		if in.Gender != nil {
			e.Gender = in.Gender
		}
		if in.Role != nil {
			e.Role = *in.Role
		}
		if in.HireDate != nil {
			e.HireDate = in.HireDate
		}
		if e.FirstName == "" || e.LastName == "" {
			return apperr.Validation("first_name and last_name are required")
		}
		out = e
		return s.repo.Update(ctx, e)
	})
	return out, err
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.setStatus(ctx, id, db.ActiveOnly, StatusDeleted)
}

// Restore reactivates a deleted or deactivated account. Accounts that never
// set a password go back to inactive.
func (s *Service) Restore(ctx context.Context, id uuid.UUID) error {
	e, err := s.repo.Get(ctx, id, db.All)
	if err != nil {
		return err
	}
	if e.Status != StatusDeleted && e.Status != StatusDeactivated {
		return apperr.InvalidState("Employee is not deleted or deactivated.")
	}
	e.Status = StatusActive
	if !e.HasPassword() {
		e.Status = StatusInactive
	}
	return s.repo.Update(ctx, e)
}

func (s *Service) setStatus(ctx context.Context, id uuid.UUID, scope db.Scope, status AccountStatus) error {
	e, err := s.repo.Get(ctx, id, scope)
	if err != nil {
		return err
	}
	e.Status = status
	if err := s.repo.Update(ctx, e); err != nil {
		return err
	}
	if s.revoker != nil {
		if err := s.revoker.RevokeAllForUser(ctx, id.String(), s.now()); err != nil {
			return fmt.Errorf("revoke sessions: %w", err)
		}
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
