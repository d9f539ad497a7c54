package progress

import (
	"context"
	"fmt"
	"testing"
	"time"

	"care-portal-server/internal/database"
	"care-portal-server/internal/models"

	"github.com/google/go-cmp/cmp"
)

func TestCompute(t *testing.T) {
	tests := []struct {
		name                    string
		frequency, total, today int
		want                    Progress
	}{
		{
			name:      "no entries",
			frequency: 30,
			want:      Progress{RemainingDays: 30, Status: models.GoalActive},
		},
		{
			name:      "partial",
			frequency: 30, total: 18, today: 1,
			want: Progress{CompletedDays: 18, RemainingDays: 12, CompletionPercent: 60, Status: models.GoalActive, TodayCompleted: true},
		},
		{
			name:      "exactly complete",
			frequency: 7, total: 7,
			want: Progress{CompletedDays: 7, CompletionPercent: 100, Status: models.GoalCompleted},
		},
		{
			name:      "over complete is clamped",
			frequency: 5, total: 9,
			want: Progress{CompletedDays: 5, CompletionPercent: 100, Status: models.GoalCompleted},
		},
		{
			name:      "rounds to two decimals",
			frequency: 3, total: 1,
			want: Progress{CompletedDays: 1, RemainingDays: 2, CompletionPercent: 33.33, Status: models.GoalActive},
		},
		{
			name:      "zero frequency",
			frequency: 0, total: 4,
			want: Progress{Status: models.GoalActive},
		},
		{
			name:      "negative input",
			frequency: 10, total: -3,
			want: Progress{RemainingDays: 10, Status: models.GoalActive},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compute(tt.frequency, tt.total, tt.today)
			if diff := cmp.Diff(got, tt.want); diff != "" {
				t.Errorf("Compute(%d, %d, %d) mismatch (-got +want):\n%s", tt.frequency, tt.total, tt.today, diff)
			}
		})
	}
}

func TestComputeInvariants(t *testing.T) {
	for f := 0; f <= 40; f++ {
		for n := 0; n <= 45; n++ {
			p := Compute(f, n, 0)
			if p.CompletionPercent < 0 || p.CompletionPercent > 100 {
				t.Fatalf("Compute(%d, %d): percent %v out of range", f, n, p.CompletionPercent)
			}
			if p.CompletedDays+p.RemainingDays != f {
				t.Fatalf("Compute(%d, %d): completed %d + remaining %d != frequency", f, n, p.CompletedDays, p.RemainingDays)
			}
			wantCompleted := f > 0 && n >= f
			if (p.Status == models.GoalCompleted) != wantCompleted {
				t.Fatalf("Compute(%d, %d): status %q", f, n, p.Status)
			}
		}
	}
}

func TestThresholdsAchieved(t *testing.T) {
	th := DefaultThresholds()
	tests := []struct {
		percent float64
		pastDue bool
		want    bool
	}{
		{79.99, false, false},
		{80, false, true},
		{85, true, false},
		{90, true, true},
	}
	for _, tt := range tests {
		if got := th.Achieved(tt.percent, tt.pastDue); got != tt.want {
			t.Errorf("Achieved(%v, %v) = %v, want %v", tt.percent, tt.pastDue, got, tt.want)
		}
	}

	custom := Thresholds{OnTrack: 50, Overdue: 60}
	if !custom.Achieved(55, false) {
		t.Error("custom Achieved(55, false) = false, want true")
	}
}

func TestParseMeasure(t *testing.T) {
	tests := []struct {
		in     string
		want   float64
		wantOK bool
	}{
		{"10000", 10000, true},
		{" 72.5 ", 72.5, true},
		{"2l", 0, false},
		{"", 0, false},
		{"NaN", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseMeasure(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseMeasure(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestValuePercent(t *testing.T) {
	if got := ValuePercent(50, 70); got != 71.43 {
		t.Errorf("ValuePercent(50, 70) = %v, want 71.43", got)
	}
	if got := ValuePercent(12000, 10000); got != 120 {
		t.Errorf("ValuePercent(12000, 10000) = %v, want 120", got)
	}
}

func TestLoadCounts(t *testing.T) {
	db, err := database.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory() error = %v", err)
	}
	ctx := context.Background()
	today := time.Date(2026, 5, 10, 12, 0, 0, 0, time.Local)

	for i := 0; i < 3; i++ {
		day := today.AddDate(0, 0, -i)
		log := models.GoalLog{GoalID: "g1", PatientID: "p", LoggedAt: day, LoggedOn: models.DayKey(day)}
		if err := db.Create(&log).Error; err != nil {
			t.Fatalf("create log: %v", err)
		}
	}
	yesterday := today.AddDate(0, 0, -1)
	if err := db.Create(&models.GoalLog{GoalID: "g2", PatientID: "p", LoggedAt: yesterday, LoggedOn: models.DayKey(yesterday)}).Error; err != nil {
		t.Fatalf("create log: %v", err)
	}

	got, err := LoadCounts(ctx, db, []string{"g1", "g2", "g3"}, models.DayKey(today))
	if err != nil {
		t.Fatalf("LoadCounts() error = %v", err)
	}
	want := Counts{
		"g1": {Total: 3, Today: 1},
		"g2": {Total: 1, Today: 0},
	}
	if diff := cmp.Diff(got, want); diff != "" {
		t.Errorf("LoadCounts() mismatch (-got +want):\n%s", diff)
	}

	g := &models.Goal{BaseModel: models.BaseModel{ID: "g3"}, Frequency: 4}
	if p := got.Progress(g); p.CompletedDays != 0 || p.RemainingDays != 4 {
		t.Errorf("Progress(g3) = %+v, want no completed days", p)
	}
}

func ExampleCompute() {
	p := Compute(30, 18, 0)
	fmt.Println(p.CompletedDays, p.RemainingDays, p.CompletionPercent, p.Status)
	// Output: 18 12 60 active
}
