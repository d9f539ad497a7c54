// Package progress derives goal completion state from goal-log counts.
// Nothing here is persisted; callers recount on every read.
package progress

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"care-portal-server/internal/models"

	"gorm.io/gorm"
)

// Reminder thresholds, in completion percent. A goal that is past due must
// reach the stricter overdue threshold to count as achieved.
const (
	DefaultOnTrackThreshold = 80.0
	DefaultOverdueThreshold = 90.0
)

// Thresholds decides whether a goal is achieved enough to skip a reminder.
type Thresholds struct {
	OnTrack float64
	Overdue float64
}

// DefaultThresholds returns the 80/90 reminder thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{OnTrack: DefaultOnTrackThreshold, Overdue: DefaultOverdueThreshold}
}

// Achieved reports whether percent meets the threshold that applies.
func (t Thresholds) Achieved(percent float64, pastDue bool) bool {
	if pastDue {
		return percent >= t.Overdue
	}
	return percent >= t.OnTrack
}

// ParseMeasure reads a numeric goal target or recorded value such as
// "10000" or "72.5".
func ParseMeasure(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// ValuePercent is latest as a percentage of target, rounded to two decimals.
// target must be positive.
func ValuePercent(latest, target float64) float64 {
	return math.Round(latest/target*100*100) / 100
}

// Progress is the derived view of one goal.
type Progress struct {
	CompletedDays     int               `json:"completed_days"`
	RemainingDays     int               `json:"remaining_days"`
	CompletionPercent float64           `json:"completion_percent"`
	Status            models.GoalStatus `json:"status"`
	TodayCompleted    bool              `json:"today_completed"`
}

// Compute derives progress for a goal with the given frequency from the
// number of log entries in total and on the current day.
func Compute(frequency, total, today int) Progress {
	if frequency < 0 {
		frequency = 0
	}
	if total < 0 {
		total = 0
	}

	completed := min(total, frequency)
	p := Progress{
		CompletedDays:  completed,
		RemainingDays:  frequency - completed,
		Status:         models.GoalActive,
		TodayCompleted: today > 0,
	}
	if frequency == 0 {
		return p
	}

	p.CompletionPercent = math.Round(float64(completed)*100/float64(frequency)*100) / 100
	if completed >= frequency {
		p.Status = models.GoalCompleted
	}
	return p
}

// Count holds the number of log entries for one goal.
type Count struct {
	Total int64
	Today int64
}

// Counts maps goal IDs to their log counts. Missing goals have no entries.
type Counts map[string]Count

// Progress computes the progress of g from the loaded counts.
func (c Counts) Progress(g *models.Goal) Progress {
	n := c[g.ID]
	return Compute(g.Frequency, int(n.Total), int(n.Today))
}

// LoadCounts counts log entries for every goal in goalIDs with one grouped
// query. day is the DayKey of the current day.
func LoadCounts(ctx context.Context, db *gorm.DB, goalIDs []string, day string) (Counts, error) {
	counts := make(Counts, len(goalIDs))
	if len(goalIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		GoalID string
		Total  int64
		Today  int64
	}
	err := db.WithContext(ctx).
		Model(&models.GoalLog{}).
		Select("goal_id, COUNT(*) AS total, SUM(CASE WHEN logged_on = ? THEN 1 ELSE 0 END) AS today", day).
		Where("goal_id IN ?", goalIDs).
		Group("goal_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count goal logs: %w", err)
	}

	for _, r := range rows {
		counts[r.GoalID] = Count{Total: r.Total, Today: r.Today}
	}
	return counts, nil
}
