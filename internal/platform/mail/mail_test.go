package mail

import (
	"bytes"
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestRender_PasswordReset(t *testing.T) {
	e := NewTemplateEngine()
	subject, body, err := e.Render(TemplatePasswordReset, map[string]string{
		"Name":     "Thandi Nkosi",
		"Email":    "thandi@futuremed.local",
		"ResetPin": "042917",
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if subject != "Password reset PIN" {
		t.Errorf("unexpected subject %q", subject)
	}
	for _, want := range []string{"Thandi Nkosi", "thandi@futuremed.local", "042917"} {
		if !strings.Contains(body, want) {
			t.Errorf("expected body to contain %q", want)
		}
	}
}

func TestRender_MissingKeyLeftAsIs(t *testing.T) {
	e := NewTemplateEngine()
	_, body, err := e.Render(TemplateAccountUnlock, map[string]string{"Name": "Sipho"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(body, "{{UnlockLink}}") {
		t.Error("expected unresolved placeholder to remain")
	}
}

func TestRender_UnknownTemplate(t *testing.T) {
	if _, _, err := NewTemplateEngine().Render("no-such-template", nil); err == nil {
		t.Error("expected error for unknown template")
	}
}

func TestRegisterTemplate_Overrides(t *testing.T) {
	e := NewTemplateEngine()
	e.RegisterTemplate(Template{ID: TemplateAccountUnlock, Subject: "Unlock {{Name}}", Body: "{{UnlockLink}}"})
	subject, body, _ := e.Render(TemplateAccountUnlock, map[string]string{"Name": "A", "UnlockLink": "http://x"})
	if subject != "Unlock A" || body != "http://x" {
		t.Errorf("override not applied: %q / %q", subject, body)
	}
}

func TestMailer_SendTemplate(t *testing.T) {
	rec := &RecordingSender{}
	m := NewMailer(rec, nil)

	err := m.SendTemplate(context.Background(), "nurse@futuremed.local", TemplateRecoveryCodes, map[string]string{
		"EmployeeName":  "Lerato",
		"RecoveryCodes": "AAAA1111\nBBBB2222",
		"SupportEmail":  "support@futuremed.local",
		"LoginUrl":      "http://localhost:3000/login",
	})
	if err != nil {
		t.Fatalf("SendTemplate: %v", err)
	}

	sent := rec.Sent()
	if len(sent) != 1 {
		t.Fatalf("expected 1 email, got %d", len(sent))
	}
	if sent[0].To != "nurse@futuremed.local" || !strings.Contains(sent[0].Body, "BBBB2222") {
		t.Errorf("unexpected email: %+v", sent[0])
	}
}

func TestMailer_SenderFailure(t *testing.T) {
	m := NewMailer(&RecordingSender{ShouldFail: true}, nil)
	err := m.SendTemplate(context.Background(), "a@b.c", TemplatePasswordReset, nil)
	if err == nil {
		t.Fatal("expected error from failing sender")
	}
}

func TestSMTPSender_BuildsMessage(t *testing.T) {
	s := NewSMTPSender(SMTPConfig{Host: "smtp.local", Port: 2525, From: "no-reply@futuremed.local"})
	var gotAddr string
	var gotMsg []byte
	s.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr = addr
		gotMsg = msg
		if a != nil {
			t.Error("expected no auth without username")
		}
		return nil
	}

	if err := s.SendEmail(context.Background(), "doc@futuremed.local", "Hello", "line1\nline2"); err != nil {
		t.Fatalf("SendEmail: %v", err)
	}
	if gotAddr != "smtp.local:2525" {
		t.Errorf("unexpected addr %q", gotAddr)
	}
	if !bytes.Contains(gotMsg, []byte("Subject: Hello\r\n")) || !bytes.Contains(gotMsg, []byte("line1\r\nline2")) {
		t.Errorf("unexpected message:\n%s", gotMsg)
	}
}

func TestSMTPSender_RejectsHeaderInjection(t *testing.T) {
	s := NewSMTPSender(SMTPConfig{Host: "smtp.local", Port: 25})
	s.send = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("should not be called")
	}
	if err := s.SendEmail(context.Background(), "a@b.c\r\nBcc: x@y.z", "Hi", "body"); err == nil {
		t.Error("expected header injection to be rejected")
	}
}

func TestLogSender_DoesNotLogBody(t *testing.T) {
	var buf bytes.Buffer
	s := NewLogSender(zerolog.New(&buf))
	_ = s.SendEmail(context.Background(), "a@b.c", "Password reset PIN", "Your PIN is 123456")
	if strings.Contains(buf.String(), "123456") {
		t.Error("email body must not be logged")
	}
	if !strings.Contains(buf.String(), "a@b.c") {
		t.Error("expected recipient in log")
	}
}
