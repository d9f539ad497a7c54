package mailer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"care-portal-server/internal/models"
)

func TestGoalReminderDevModeLogsOnly(t *testing.T) {
	m := New("re_key", "from@example.com", "Care Portal", true)
	if m.client != nil {
		t.Fatal("dev mode mailer created a Resend client")
	}

	to := &models.User{Email: "pat@example.com", FirstName: "Pat"}
	if err := m.GoalReminder(context.Background(), to, "Your steps goal is due today."); err != nil {
		t.Errorf("GoalReminder() error = %v", err)
	}
}

func TestGoalReminderNotConfigured(t *testing.T) {
	m := New("", "from@example.com", "Care Portal", false)
	err := m.GoalReminder(context.Background(), &models.User{Email: "pat@example.com"}, "msg")
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("GoalReminder() error = %v, want ErrNotConfigured", err)
	}
}

func TestGoalReminderNoRecipient(t *testing.T) {
	m := New("", "", "Care Portal", true)
	if err := m.GoalReminder(context.Background(), &models.User{}, "msg"); err == nil {
		t.Error("GoalReminder() with empty email: expected error")
	}
}

func TestGoalReminderTemplate(t *testing.T) {
	subject, body := goalReminderTemplate("Pat Lee", "Your weight goal is due in 2 day(s).", "Care Portal")
	if subject != "Care Portal: goal reminder" {
		t.Errorf("subject = %q", subject)
	}
	for _, want := range []string{"Hi Pat Lee,", "Your weight goal is due in 2 day(s)."} {
		if !strings.Contains(body, want) {
			t.Errorf("body = %q, missing %q", body, want)
		}
	}
}
