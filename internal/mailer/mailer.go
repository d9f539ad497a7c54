// Package mailer sends patient reminder e-mails through Resend.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"care-portal-server/internal/models"

	"github.com/resend/resend-go/v2"
)

// ErrNotConfigured is returned when sending without a Resend API key.
var ErrNotConfigured = errors.New("email service not configured (missing RESEND_API_KEY)")

// Mailer delivers reminder e-mails. In dev mode messages are only logged.
type Mailer struct {
	client    *resend.Client
	fromEmail string
	appName   string
	isDev     bool
}

// New returns a Mailer. A Resend client is only created outside dev mode.
func New(apiKey, fromEmail, appName string, isDev bool) *Mailer {
	var client *resend.Client
	if apiKey != "" && !isDev {
		client = resend.NewClient(apiKey)
	}
	return &Mailer{
		client:    client,
		fromEmail: fromEmail,
		appName:   appName,
		isDev:     isDev,
	}
}

// GoalReminder e-mails a goal reminder to the patient.
func (m *Mailer) GoalReminder(ctx context.Context, to *models.User, message string) error {
	if to == nil || to.Email == "" {
		return fmt.Errorf("reminder recipient has no email address")
	}
	subject, body := goalReminderTemplate(to.FullName(), message, m.appName)

	if m.isDev {
		slog.InfoContext(ctx, "email sent (dev mode)", "type", "goal_reminder", "to", to.Email, "subject", subject)
		return nil
	}

	if m.client == nil {
		return ErrNotConfigured
	}

	params := &resend.SendEmailRequest{
		From:    m.fromEmail,
		To:      []string{to.Email},
		Subject: subject,
		Text:    body,
	}

	if _, err := m.client.Emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("send goal reminder: %w", err)
	}
	slog.InfoContext(ctx, "email sent", "type", "goal_reminder", "to", to.Email)
	return nil
}

func goalReminderTemplate(name, message, appName string) (subject, body string) {
	subject = fmt.Sprintf("%s: goal reminder", appName)
	greeting := "Hi,"
	if name != "" {
		greeting = fmt.Sprintf("Hi %s,", name)
	}
	body = fmt.Sprintf("%s\n\n%s\n\nYou can log today's progress from your dashboard.\n\n%s", greeting, message, appName)
	return subject, body
}
