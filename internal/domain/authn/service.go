package authn

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/futuremed/wardcare/internal/domain/device"
	"github.com/futuremed/wardcare/internal/domain/employee"
	"github.com/futuremed/wardcare/internal/platform/apperr"
	"github.com/futuremed/wardcare/internal/platform/auth"
	"github.com/futuremed/wardcare/internal/platform/db"
	"github.com/futuremed/wardcare/internal/platform/mail"
)

const (
	StatusAuthenticated     = "authenticated"
	StatusTwoFactorRequired = "two_factor_required"

	UnlockTTL = time.Hour

	msgUnlockSent = "If your account is locked, an unlock link has been sent to your email."
)

// TrustLedger is the part of the device trust ledger the login flow uses.
type TrustLedger interface {
	IsTrusted(ctx context.Context, employeeID uuid.UUID, fingerprint string) (bool, error)
	Add(ctx context.Context, employeeID uuid.UUID, fingerprint, label string, ttlDays int) (*device.TrustedDevice, error)
	Touch(ctx context.Context, employeeID uuid.UUID, fingerprint string) error
	RemoveAll(ctx context.Context, employeeID uuid.UUID) (int64, error)
}

type Mailer interface {
	SendTemplate(ctx context.Context, to, templateID string, data map[string]string) error
}

type Options struct {
	TOTPIssuer   string
	BaseURL      string
	SupportEmail string
}

type Service struct {
	employees   employee.Repository
	devices     TrustLedger
	tokens      *auth.TokenIssuer
	revocations auth.RevocationStore
	challenges  *ChallengeStore
	store       Store
	audits      AuditRepository
	mailer      Mailer
	tx          db.TxRunner
	opts        Options
	logger      zerolog.Logger
	now         func() time.Time
}

func NewService(
	employees employee.Repository,
	devices TrustLedger,
	tokens *auth.TokenIssuer,
	revocations auth.RevocationStore,
	store Store,
	challengeTTL time.Duration,
	audits AuditRepository,
	mailer Mailer,
	tx db.TxRunner,
	opts Options,
	logger zerolog.Logger,
) *Service {
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	return &Service{
		employees:   employees,
		devices:     devices,
		tokens:      tokens,
		revocations: revocations,
		challenges:  NewChallengeStore(store, challengeTTL),
		store:       store,
		audits:      audits,
		mailer:      mailer,
		tx:          tx,
		opts:        opts,
		logger:      logger.With().Str("component", "authn").Logger(),
		now:         time.Now,
	}
}

// Client identifies the caller's device.
type Client struct {
	UserAgent string
	IP        string
}

func (c Client) fingerprint() string {
	return device.Fingerprint(c.UserAgent, c.IP)
}

type LoginInput struct {
	Login          string `json:"login"`
	Password       string `json:"password"`
	RememberMe     bool   `json:"remember_me"`
	RememberDevice bool   `json:"remember_device"`
}

// LoginResult is either an established session or an open 2FA challenge.
type LoginResult struct {
	Status         string             `json:"status"`
	Token          string             `json:"token,omitempty"`
	ExpiresAt      time.Time          `json:"expires_at"`
	Employee       *employee.Employee `json:"employee,omitempty"`
	ChallengeToken string             `json:"challenge_token,omitempty"`
	DeviceMessage  string             `json:"device_message,omitempty"`
	WelcomeMessage string             `json:"message,omitempty"`
}

// Login checks credentials and lockout, then either establishes a session
// or opens a 2FA challenge.
func (s *Service) Login(ctx context.Context, in LoginInput, client Client) (*LoginResult, error) {
	login := strings.TrimSpace(in.Login)
	if login == "" || in.Password == "" {
		return nil, apperr.Validation("Invalid input.")
	}
	found, err := s.employees.GetByLogin(ctx, login)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, apperr.AuthFailure(fmt.Sprintf("No user found with username/email '%s'", login))
		}
		return nil, err
	}

	var (
		e       *employee.Employee
		failure error
	)
	// The failed-attempt counter must commit even when the login fails, so
	// the outcome is carried out of the transaction instead of returned.
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		e, err = s.employees.GetForUpdate(ctx, found.ID)
		if err != nil {
			return err
		}
		now := s.now()
		if e.IsLocked(now) {
			left := e.LockoutRemaining(now)
			failure = apperr.AuthFailure(fmt.Sprintf(
				"Account is locked. Please try again in %d minutes and %d seconds.",
				int(left/time.Minute), int(left%time.Minute/time.Second)))
			return nil
		}
		if e.Status != employee.StatusActive {
			failure = apperr.AuthFailure("Your account is not active. Please contact administrator.")
			return nil
		}

		ok, legacy := employee.CheckPassword(deref(e.PasswordHash), in.Password)
		if !ok {
			locked, remaining := e.RegisterFailedLogin(now)
			if locked {
				failure = apperr.AuthFailure("Too many failed login attempts. Your account has been locked for 15 minutes.")
			} else {
				failure = apperr.AuthFailure(fmt.Sprintf(
					"Password does not match. %d attempt(s) remaining before lockout.", remaining))
			}
			return s.employees.Update(ctx, e)
		}

		e.ResetLoginFailures()
		if legacy {
			hash, err := employee.HashSecret(in.Password)
			if err != nil {
				return err
			}
			e.PasswordHash = &hash
		}
		return s.employees.Update(ctx, e)
	})
	if err != nil {
		return nil, err
	}
	if failure != nil {
		return nil, failure
	}

	fp := client.fingerprint()
	trusted := false
	if e.TwoFactorEnabled {
		trusted, err = s.devices.IsTrusted(ctx, e.ID, fp)
		if err != nil {
			return nil, err
		}
		if !trusted {
			c, err := s.challenges.Open(ctx, e.ID, fp, in.RememberDevice, in.RememberMe)
			if err != nil {
				return nil, err
			}
			return &LoginResult{
				Status:         StatusTwoFactorRequired,
				ChallengeToken: c.Token,
				ExpiresAt:      c.ExpiresAt,
			}, nil
		}
	}
	return s.completeLogin(ctx, e, client, fp, false, in.RememberMe, trusted)
}

type VerifyInput struct {
	ChallengeToken string `json:"challenge_token"`
	Code           string `json:"code"`
	RememberDevice bool   `json:"remember_device"`
}

// VerifyTwoFactor completes a challenge with a TOTP code or an unused
// recovery code. A wrong code keeps the challenge open until its attempt
// budget or lifetime runs out.
func (s *Service) VerifyTwoFactor(ctx context.Context, in VerifyInput, client Client) (*LoginResult, error) {
	c, err := s.challenges.Consume(ctx, in.ChallengeToken)
	if err != nil {
		if errors.Is(err, ErrMissing) {
			return nil, apperr.AuthFailure("Session expired. Please log in again.")
		}
		return nil, err
	}

	var (
		e        *employee.Employee
		rejected bool
	)
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		e, err = s.employees.GetForUpdate(ctx, c.EmployeeID)
		if err != nil {
			return err
		}
		if e.Status != employee.StatusActive || !e.TwoFactorEnabled {
			return apperr.AuthFailure("Invalid or expired session.")
		}
		if validCode(deref(e.TwoFactorSecret), in.Code, s.now()) {
			return nil
		}
		if e.ConsumeRecoveryCode(in.Code) {
			return s.employees.Update(ctx, e)
		}
		rejected = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if rejected {
		if _, err := s.challenges.Retry(ctx, c); err != nil {
			s.logger.Warn().Err(err).Msg("challenge not restored after wrong code")
		}
		return nil, apperr.AuthFailure("Invalid verification code.")
	}

	remember := c.RememberDevice || in.RememberDevice
	return s.completeLogin(ctx, e, client, c.DeviceFingerprint, remember, c.RememberMe, false)
}

// completeLogin issues the session, writes the audit row and updates device
// trust.
func (s *Service) completeLogin(ctx context.Context, e *employee.Employee, client Client, fp string, rememberDevice, rememberMe, trusted bool) (*LoginResult, error) {
	issued, err := s.tokens.Issue(auth.Principal{
		EmployeeID: e.ID,
		Username:   e.Username,
		Role:       string(e.Role),
	}, rememberMe)
	if err != nil {
		return nil, err
	}
	res := &LoginResult{
		Status:         StatusAuthenticated,
		Token:          issued.Token,
		ExpiresAt:      issued.ExpiresAt,
		Employee:       e,
		WelcomeMessage: fmt.Sprintf("Welcome back, %s!", e.FullName()),
	}

	audit := &LoginAudit{
		Username:  e.Username,
		LoginTime: s.now(),
		Success:   true,
		IPAddress: client.IP,
		UserAgent: client.UserAgent,
	}
	if err := s.audits.Record(ctx, audit); err != nil {
		s.logger.Error().Err(err).Str("employee_id", e.ID.String()).Msg("login audit not written")
	}

	switch {
	case rememberDevice && e.TwoFactorEnabled:
		d, err := s.devices.Add(ctx, e.ID, fp, device.Label(client.UserAgent), device.DefaultTrustDays)
		if err != nil {
			s.logger.Error().Err(err).Str("employee_id", e.ID.String()).Msg("trusted device not saved")
			break
		}
		res.DeviceMessage = device.TrustMessage(d, device.DefaultTrustDays)
	case trusted:
		if err := s.devices.Touch(ctx, e.ID, fp); err != nil {
			s.logger.Warn().Err(err).Str("employee_id", e.ID.String()).Msg("trusted device usage not updated")
		}
	}
	return res, nil
}

// Refresh reissues the session with the same remember policy and revokes
// the presented token.
func (s *Service) Refresh(ctx context.Context, claims *auth.Claims) (*auth.IssuedToken, error) {
	p := claims.Principal()
	e, err := s.employees.Get(ctx, p.EmployeeID, db.ActiveOnly)
	if err != nil {
		return nil, err
	}
	if e.Status != employee.StatusActive {
		return nil, apperr.AuthFailure("Your account is not active. Please contact administrator.")
	}
	issued, err := s.tokens.Issue(auth.Principal{
		EmployeeID: e.ID,
		Username:   e.Username,
		Role:       string(e.Role),
	}, claims.Remember)
	if err != nil {
		return nil, err
	}
	if err := s.revokeClaims(ctx, claims); err != nil {
		return nil, err
	}
	return issued, nil
}

func (s *Service) Logout(ctx context.Context, claims *auth.Claims) error {
	return s.revokeClaims(ctx, claims)
}

func (s *Service) revokeClaims(ctx context.Context, claims *auth.Claims) error {
	exp := s.now().Add(auth.RememberTTL)
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time
	}
	if err := s.revocations.Revoke(ctx, claims.ID, exp); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// -- Unlock by email --

// RequestUnlock emails an unlock link when the account exists and is locked.
// The caller always gets the same message.
func (s *Service) RequestUnlock(ctx context.Context, email string) (string, error) {
	e, err := s.employees.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return msgUnlockSent, nil
		}
		return "", err
	}
	if !e.IsLocked(s.now()) {
		return msgUnlockSent, nil
	}

	token := uuid.NewString()
	hash, err := employee.HashSecret(token)
	if err != nil {
		return "", err
	}
	e.SetResetSlot(hash, s.now().Add(UnlockTTL))
	if err := s.employees.Update(ctx, e); err != nil {
		return "", err
	}

	link := fmt.Sprintf("%s/unlock?email=%s&token=%s",
		s.opts.BaseURL, url.QueryEscape(e.Email), url.QueryEscape(token))
	err = s.mailer.SendTemplate(ctx, e.Email, mail.TemplateAccountUnlock, map[string]string{
		"Name":       e.FullName(),
		"UnlockLink": link,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("employee_id", e.ID.String()).Msg("unlock email not sent")
	}
	return msgUnlockSent, nil
}

func (s *Service) UnlockWithToken(ctx context.Context, email, token string) error {
	invalid := apperr.AuthFailure("Invalid or expired unlock link.")
	e, err := s.employees.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return invalid
		}
		return err
	}
	if token == "" || !e.ResetSlotValid(s.now()) || !employee.CompareSecret(*e.ResetHash, token) {
		return invalid
	}
	e.ResetLoginFailures()
	e.ClearResetSlot()
	return s.employees.Update(ctx, e)
}

// -- Two-factor enrolment --

func (s *Service) BeginTwoFactorSetup(ctx context.Context, employeeID uuid.UUID) (*Enrolment, error) {
	e, err := s.employees.Get(ctx, employeeID, db.ActiveOnly)
	if err != nil {
		return nil, err
	}
	if e.TwoFactorEnabled {
		return nil, apperr.InvalidState("Two-factor authentication is already enabled.")
	}
	enr, err := newEnrolment(s.opts.TOTPIssuer, e.Email)
	if err != nil {
		return nil, err
	}
	if err := s.store.Set(ctx, setupKeyPrefix+e.ID.String(), []byte(enr.Secret), SetupTTL); err != nil {
		return nil, err
	}
	return enr, nil
}

// ConfirmTwoFactorSetup enables 2FA once code matches the pending secret and
// returns the recovery codes. They are shown once and emailed.
func (s *Service) ConfirmTwoFactorSetup(ctx context.Context, employeeID uuid.UUID, code string) ([]string, error) {
	key := setupKeyPrefix + employeeID.String()
	raw, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrMissing) {
			return nil, apperr.InvalidState("Two-factor setup has expired. Please start again.")
		}
		return nil, err
	}
	secret := string(raw)
	if !validCode(secret, code, s.now()) {
		return nil, apperr.AuthFailure("Invalid verification code.")
	}
	codes, err := newRecoveryCodes()
	if err != nil {
		return nil, err
	}

	var e *employee.Employee
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		e, err = s.employees.GetForUpdate(ctx, employeeID)
		if err != nil {
			return err
		}
		if e.TwoFactorEnabled {
			return apperr.InvalidState("Two-factor authentication is already enabled.")
		}
		e.TwoFactorEnabled = true
		e.TwoFactorSecret = &secret
		e.SetRecoveryCodes(codes)
		return s.employees.Update(ctx, e)
	})
	if err != nil {
		return nil, err
	}
	if err := s.store.Delete(ctx, key); err != nil {
		s.logger.Warn().Err(err).Msg("pending totp secret not cleared")
	}

	err = s.mailer.SendTemplate(ctx, e.Email, mail.TemplateRecoveryCodes, map[string]string{
		"EmployeeName":  e.FullName(),
		"RecoveryCodes": strings.Join(codes, "\n"),
		"SupportEmail":  s.opts.SupportEmail,
		"LoginUrl":      s.opts.BaseURL + "/login",
	})
	if err != nil {
		s.logger.Error().Err(err).Str("employee_id", e.ID.String()).Msg("recovery codes email not sent")
	}
	return codes, nil
}

// DisableTwoFactor needs the password and a current code. Trusted devices
// are dropped with the secret.
func (s *Service) DisableTwoFactor(ctx context.Context, employeeID uuid.UUID, password, code string) error {
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		e, err := s.employees.GetForUpdate(ctx, employeeID)
		if err != nil {
			return err
		}
		if !e.TwoFactorEnabled {
			return apperr.InvalidState("Two-factor authentication is not enabled.")
		}
		if ok, _ := employee.CheckPassword(deref(e.PasswordHash), password); !ok {
			return apperr.AuthFailure("Current password is incorrect.")
		}
		if !validCode(deref(e.TwoFactorSecret), code, s.now()) {
			return apperr.AuthFailure("Invalid verification code.")
		}
		e.ClearTwoFactor()
		return s.employees.Update(ctx, e)
	})
	if err != nil {
		return err
	}
	if _, err := s.devices.RemoveAll(ctx, employeeID); err != nil {
		return fmt.Errorf("remove trusted devices: %w", err)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
