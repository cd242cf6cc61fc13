package employee

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role is the fixed set of staff roles. The string values travel in session
// tokens and are checked by auth.RequireRole.
type Role string

const (
	RoleAdministrator      Role = "ADMINISTRATOR"
	RoleWardAdmin          Role = "WARDADMIN"
	RoleNurse              Role = "NURSE"
	RoleNursingSister      Role = "NURSINGSISTER"
	RoleDoctor             Role = "DOCTOR"
	RoleScriptManager      Role = "SCRIPTMANAGER"
	RoleConsumablesManager Role = "CONSUMABLESMANAGER"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdministrator, RoleWardAdmin, RoleNurse, RoleNursingSister,
		RoleDoctor, RoleScriptManager, RoleConsumablesManager:
		return true
	}
	return false
}

// AccountStatus is the employee account state.
type AccountStatus string

const (
	StatusActive      AccountStatus = "active"
	StatusInactive    AccountStatus = "inactive"
	StatusDeactivated AccountStatus = "deactivated"
	StatusDeleted     AccountStatus = "deleted"
)

func (s AccountStatus) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusDeactivated, StatusDeleted:
		return true
	}
	return false
}

const (
	MaxFailedLogins = 5
	LockoutDuration = 15 * time.Minute
)

// Employee maps to the employee table. Credential columns never leave the
// service in JSON.
type Employee struct {
	ID                    uuid.UUID     `db:"id" json:"id"`
	Username              string        `db:"username" json:"username"`
	Email                 string        `db:"email" json:"email"`
	FirstName             string        `db:"first_name" json:"first_name"`
	LastName              string        `db:"last_name" json:"last_name"`
	Gender                *string       `db:"gender" json:"gender,omitempty"`
	Role                  Role          `db:"role" json:"role"`
	Status                AccountStatus `db:"status" json:"status"`
	HireDate              *time.Time    `db:"hire_date" json:"hire_date,omitempty"`
	PasswordHash          *string       `db:"password_hash" json:"-"`
	FailedLoginAttempts   int           `db:"failed_login_attempts" json:"-"`
	LockoutEnd            *time.Time    `db:"lockout_end" json:"lockout_end,omitempty"`
	TwoFactorEnabled      bool          `db:"two_factor_enabled" json:"two_factor_enabled"`
	TwoFactorSecret       *string       `db:"two_factor_secret" json:"-"`
	RecoveryCodes         *string       `db:"recovery_codes" json:"-"`
	VerificationTokenHash *string       `db:"verification_token_hash" json:"-"`
	VerificationExpires   *time.Time    `db:"verification_expires" json:"-"`
	ResetHash             *string       `db:"reset_hash" json:"-"`
	ResetExpires          *time.Time    `db:"reset_expires" json:"-"`
	CreatedAt             time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time     `db:"updated_at" json:"updated_at"`
}

func (e *Employee) FullName() string {
	return strings.TrimSpace(e.FirstName + " " + e.LastName)
}

// IsLocked reports whether a lockout is in force at now. An expired lockout
// needs no cleanup; it simply stops counting.
func (e *Employee) IsLocked(now time.Time) bool {
	return e.LockoutEnd != nil && e.LockoutEnd.After(now)
}

func (e *Employee) LockoutRemaining(now time.Time) time.Duration {
	if !e.IsLocked(now) {
		return 0
	}
	return e.LockoutEnd.Sub(now)
}

// RegisterFailedLogin counts a bad password. It returns whether the account
// is now locked and, if not, how many attempts remain.
func (e *Employee) RegisterFailedLogin(now time.Time) (locked bool, remaining int) {
	e.FailedLoginAttempts++
	if e.FailedLoginAttempts >= MaxFailedLogins {
		end := now.Add(LockoutDuration)
		e.LockoutEnd = &end
		return true, 0
	}
	return false, MaxFailedLogins - e.FailedLoginAttempts
}

func (e *Employee) ResetLoginFailures() {
	e.FailedLoginAttempts = 0
	e.LockoutEnd = nil
}

func (e *Employee) HasPassword() bool {
	return e.PasswordHash != nil && *e.PasswordHash != ""
}

const recoveryCodeSep = ","

// RecoveryCodeList returns the unused recovery codes.
func (e *Employee) RecoveryCodeList() []string {
	if e.RecoveryCodes == nil || *e.RecoveryCodes == "" {
		return nil
	}
	var codes []string
	for _, c := range strings.Split(*e.RecoveryCodes, recoveryCodeSep) {
		if c = strings.TrimSpace(c); c != "" {
			codes = append(codes, c)
		}
	}
	return codes
}

func (e *Employee) SetRecoveryCodes(codes []string) {
	if len(codes) == 0 {
		e.RecoveryCodes = nil
		return
	}
	joined := strings.Join(codes, recoveryCodeSep)
	e.RecoveryCodes = &joined
}

// ConsumeRecoveryCode removes code from the set when it matches exactly.
func (e *Employee) ConsumeRecoveryCode(code string) bool {
	code = strings.TrimSpace(code)
	if code == "" {
		return false
	}
	codes := e.RecoveryCodeList()
	for i, c := range codes {
		if c == code {
			e.SetRecoveryCodes(append(codes[:i:i], codes[i+1:]...))
			return true
		}
	}
	return false
}

func (e *Employee) ClearTwoFactor() {
	e.TwoFactorEnabled = false
	e.TwoFactorSecret = nil
	e.RecoveryCodes = nil
}

func (e *Employee) SetResetSlot(hash string, expires time.Time) {
	e.ResetHash = &hash
	e.ResetExpires = &expires
}

func (e *Employee) ClearResetSlot() {
	e.ResetHash = nil
	e.ResetExpires = nil
}

// ResetSlotValid reports whether the reset slot holds an unexpired secret.
func (e *Employee) ResetSlotValid(now time.Time) bool {
	return e.ResetHash != nil && e.ResetExpires != nil && e.ResetExpires.After(now)
}
