package jobs

import (
	"context"
	"testing"
	"time"
)

func TestNewSchedulerRejectsBadSpec(t *testing.T) {
	job := NewGoalNotificationJob(newTestDB(t))
	if _, err := NewScheduler(job, "every morning", time.Local); err == nil {
		t.Error("NewScheduler() with invalid spec: expected error")
	}
}

func TestSchedulerStartStop(t *testing.T) {
	job := NewGoalNotificationJob(newTestDB(t))
	s, err := NewScheduler(job, "0 9 * * *", time.UTC)
	if err != nil {
		t.Fatalf("NewScheduler() error = %v", err)
	}
	s.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}

func TestSchedulerTickRunsSweep(t *testing.T) {
	db := newTestDB(t)
	patient := createPatient(t, db, "pat@example.com")
	g := createGoal(t, db, patient, "steps", 30, 27, 5, "5000")

	s, err := NewScheduler(newTestJob(db), "@daily", time.Local)
	if err != nil {
		t.Fatalf("NewScheduler() error = %v", err)
	}
	s.tick()

	if ns := notificationsFor(t, db, g.ID); len(ns) != 1 {
		t.Errorf("got %d notifications after tick, want 1", len(ns))
	}
}
