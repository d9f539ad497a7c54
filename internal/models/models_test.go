package models

import (
	"testing"
	"time"
)

func TestDayKeyAndStartOfDay(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*60*60)
	ts := time.Date(2026, 3, 14, 23, 59, 0, 0, loc)

	if got := DayKey(ts); got != "2026-03-14" {
		t.Errorf("DayKey() = %q, want %q", got, "2026-03-14")
	}
	want := time.Date(2026, 3, 14, 0, 0, 0, 0, loc)
	if got := StartOfDay(ts); !got.Equal(want) {
		t.Errorf("StartOfDay() = %v, want %v", got, want)
	}
}

func TestGoalDueDate(t *testing.T) {
	created := time.Date(2026, 1, 30, 10, 0, 0, 0, time.UTC)
	want := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	if got := GoalDueDate(created, 30); !got.Equal(want) {
		t.Errorf("GoalDueDate() = %v, want %v", got, want)
	}
}

func TestPasswordRoundTrip(t *testing.T) {
	var u User
	if err := u.SetPassword("Str0ngPass"); err != nil {
		t.Fatalf("SetPassword() error = %v", err)
	}
	if u.Password == "Str0ngPass" {
		t.Fatal("password stored in clear text")
	}
	if !u.CheckPassword("Str0ngPass") {
		t.Error("CheckPassword(correct) = false")
	}
	if u.CheckPassword("wrong") {
		t.Error("CheckPassword(wrong) = true")
	}
}

func TestFullName(t *testing.T) {
	u := User{FirstName: "Ada"}
	if got := u.FullName(); got != "Ada" {
		t.Errorf("FullName() = %q, want %q", got, "Ada")
	}
	u.LastName = "Lovelace"
	if got := u.FullName(); got != "Ada Lovelace" {
		t.Errorf("FullName() = %q, want %q", got, "Ada Lovelace")
	}
}
