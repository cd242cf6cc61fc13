package mail

import (
	"context"
	"fmt"
)

// Mailer renders a template and sends the result.
type Mailer struct {
	sender    Sender
	templates *TemplateEngine
}

func NewMailer(sender Sender, templates *TemplateEngine) *Mailer {
	if templates == nil {
		templates = NewTemplateEngine()
	}
	return &Mailer{sender: sender, templates: templates}
}

func (m *Mailer) SendTemplate(ctx context.Context, to, templateID string, data map[string]string) error {
	subject, body, err := m.templates.Render(templateID, data)
	if err != nil {
		return fmt.Errorf("render %s: %w", templateID, err)
	}
	if err := m.sender.SendEmail(ctx, to, subject, body); err != nil {
		return fmt.Errorf("send %s: %w", templateID, err)
	}
	return nil
}
