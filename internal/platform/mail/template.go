// Package mail renders templated account emails and hands them to a
// transport.
package mail

import (
	"fmt"
	"strings"
	"sync"
)

const (
	TemplateEmployeeVerification = "employee-verification"
	TemplatePasswordReset        = "password-reset"
	TemplateAccountUnlock        = "account-unlock"
	TemplateRecoveryCodes        = "two-factor-recovery-codes"
)

type Template struct {
	ID      string
	Subject string
	Body    string
}

// TemplateEngine holds templates keyed by ID and renders {{Key}} placeholders.
type TemplateEngine struct {
	mu        sync.RWMutex
	templates map[string]*Template
}

func NewTemplateEngine() *TemplateEngine {
	e := &TemplateEngine{templates: make(map[string]*Template)}
	e.registerBuiltIn()
	return e
}

func (e *TemplateEngine) registerBuiltIn() {
	builtIn := []Template{
		{
			ID:      TemplateEmployeeVerification,
			Subject: "Verify your FutureMed account",
			Body: "Dear {{EmployeeName}},\n\n" +
				"An account has been created for you. Verify your email address and set your password here:\n" +
				"{{VerificationLink}}\n\nThis link expires in 24 hours.",
		},
		{
			ID:      TemplatePasswordReset,
			Subject: "Password reset PIN",
			Body: "Dear {{Name}},\n\n" +
				"A password reset was requested for {{Email}}. Your reset PIN is {{ResetPin}}.\n" +
				"The PIN expires in 5 minutes. If you did not request a reset, ignore this email.",
		},
		{
			ID:      TemplateAccountUnlock,
			Subject: "Unlock your FutureMed account",
			Body: "Dear {{Name}},\n\n" +
				"Your account was locked after too many failed sign-in attempts. Unlock it here:\n" +
				"{{UnlockLink}}\n\nThis link expires in 1 hour.",
		},
		{
			ID:      TemplateRecoveryCodes,
			Subject: "Your two-factor recovery codes",
			Body: "Dear {{EmployeeName}},\n\n" +
				"Two-factor authentication is now enabled. Keep these recovery codes somewhere safe; " +
				"each can be used once if you lose access to your authenticator app:\n\n" +
				"{{RecoveryCodes}}\n\n" +
				"Sign in at {{LoginUrl}}. Questions? Contact {{SupportEmail}}.",
		},
	}
	for i := range builtIn {
		t := builtIn[i]
		e.templates[t.ID] = &t
	}
}

// RegisterTemplate adds or replaces a template.
func (e *TemplateEngine) RegisterTemplate(t Template) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.templates[t.ID] = &t
}

// Render substitutes data into the template. Placeholders without data are
// left as-is.
func (e *TemplateEngine) Render(templateID string, data map[string]string) (subject, body string, err error) {
	e.mu.RLock()
	t, ok := e.templates[templateID]
	e.mu.RUnlock()
	if !ok {
		return "", "", fmt.Errorf("template %q not found", templateID)
	}

	pairs := make([]string, 0, len(data)*2)
	for k, v := range data {
		pairs = append(pairs, "{{"+k+"}}", v)
	}
	r := strings.NewReplacer(pairs...)
	return r.Replace(t.Subject), r.Replace(t.Body), nil
}
