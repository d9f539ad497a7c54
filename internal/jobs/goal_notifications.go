// Package jobs holds the background work of the portal: the daily goal
// reminder sweep and the scheduler that drives it.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"care-portal-server/internal/models"
	"care-portal-server/internal/progress"

	"gorm.io/gorm"
)

// GoalNotificationJobName identifies the sweep in logs and in the lease table.
const GoalNotificationJobName = "goal-notifications"

// dueWindowDays is how far ahead of its due date a goal starts getting reminders.
const dueWindowDays = 7

// measuredTypes are goal types whose progress is the patient's latest
// tracking record of that type rather than the latest goal log.
var measuredTypes = map[string]bool{"weight": true, "bmi": true}

// ErrJobAlreadyRunning is returned when a sweep is already in progress in
// this process or, with a lease, in another one.
var ErrJobAlreadyRunning = errors.New("job already running")

// Notifier delivers a reminder outside the app, e.g. by e-mail.
type Notifier interface {
	GoalReminder(ctx context.Context, to *models.User, message string) error
}

// Summary counts what a sweep did.
type Summary struct {
	Checked         int `json:"checked"`
	Notified        int `json:"notified"`
	AlreadyNotified int `json:"already_notified"`
	OnTrack         int `json:"on_track"`
	Failed          int `json:"failed"`
}

type outcome int

const (
	outcomeOnTrack outcome = iota
	outcomeAlreadyNotified
	outcomeNotified
)

// GoalNotificationJob reminds patients about active goals that are due soon
// or overdue and not on track. At most one reminder per goal per day.
type GoalNotificationJob struct {
	db         *gorm.DB
	thresholds progress.Thresholds
	notifier   Notifier
	lease      *Lease
	running    atomic.Bool

	// Now is the clock used for day boundaries. Defaults to time.Now.
	Now func() time.Time
}

// Option configures a GoalNotificationJob.
type Option func(*GoalNotificationJob)

// WithThresholds overrides the 80/90 achievement thresholds.
func WithThresholds(t progress.Thresholds) Option {
	return func(j *GoalNotificationJob) { j.thresholds = t }
}

// WithNotifier also delivers every new reminder through n.
func WithNotifier(n Notifier) Option {
	return func(j *GoalNotificationJob) { j.notifier = n }
}

// WithLease requires l to be held for the duration of a sweep.
func WithLease(l *Lease) Option {
	return func(j *GoalNotificationJob) { j.lease = l }
}

// NewGoalNotificationJob returns a sweep over db.
func NewGoalNotificationJob(db *gorm.DB, opts ...Option) *GoalNotificationJob {
	j := &GoalNotificationJob{
		db:         db,
		thresholds: progress.DefaultThresholds(),
		Now:        time.Now,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Run performs one sweep. A failure on one goal is logged and counted; only
// a failure to load the goals aborts the sweep.
func (j *GoalNotificationJob) Run(ctx context.Context) (Summary, error) {
	if !j.running.CompareAndSwap(false, true) {
		slog.WarnContext(ctx, "goal notification sweep skipped, previous run still active")
		return Summary{}, ErrJobAlreadyRunning
	}
	defer j.running.Store(false)

	if j.lease != nil {
		ok, err := j.lease.Acquire(ctx)
		if err != nil {
			return Summary{}, err
		}
		if !ok {
			slog.WarnContext(ctx, "goal notification sweep skipped, lease held elsewhere")
			return Summary{}, ErrJobAlreadyRunning
		}
		defer func() {
			if err := j.lease.Release(context.WithoutCancel(ctx)); err != nil {
				slog.ErrorContext(ctx, "release job lease", slog.Any("err", err))
			}
		}()
	}

	started := time.Now()
	slog.InfoContext(ctx, "starting goal notification sweep")

	summary, err := j.sweep(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "goal notification sweep failed", slog.Any("err", err))
		return summary, err
	}

	slog.InfoContext(ctx, "finished goal notification sweep",
		"checked", summary.Checked,
		"notified", summary.Notified,
		"already_notified", summary.AlreadyNotified,
		"on_track", summary.OnTrack,
		"failed", summary.Failed,
		"duration_ms", time.Since(started).Milliseconds(),
	)
	return summary, nil
}

func (j *GoalNotificationJob) sweep(ctx context.Context) (Summary, error) {
	var summary Summary

	today := models.StartOfDay(j.Now())
	day := models.DayKey(today)

	// Goals whose due day is at most dueWindowDays ahead, including overdue ones.
	var goals []models.Goal
	err := j.db.WithContext(ctx).
		Preload("Patient").
		Where("status = ? AND due_date < ?", models.GoalActive, today.AddDate(0, 0, dueWindowDays+1)).
		Order("due_date asc").
		Find(&goals).Error
	if err != nil {
		return summary, fmt.Errorf("load active goals: %w", err)
	}

	ids := make([]string, len(goals))
	for i := range goals {
		ids[i] = goals[i].ID
	}
	counts, err := progress.LoadCounts(ctx, j.db, ids, day)
	if err != nil {
		return summary, err
	}

	for i := range goals {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		g := &goals[i]
		summary.Checked++
		result, err := j.processGoal(ctx, g, counts.Progress(g), today)
		if err != nil {
			summary.Failed++
			slog.ErrorContext(ctx, "goal reminder failed", "goal_id", g.ID, slog.Any("err", err))
			continue
		}
		switch result {
		case outcomeNotified:
			summary.Notified++
		case outcomeAlreadyNotified:
			summary.AlreadyNotified++
		default:
			summary.OnTrack++
		}
	}
	return summary, nil
}

func (j *GoalNotificationJob) processGoal(ctx context.Context, g *models.Goal, p progress.Progress, today time.Time) (outcome, error) {
	daysUntilDue := daysBetween(today, g.DueDate)
	percent, recorded, err := j.measure(ctx, g, p)
	if err != nil {
		return 0, err
	}
	if recorded && j.thresholds.Achieved(percent, daysUntilDue < 0) {
		return outcomeOnTrack, nil
	}

	day := models.DayKey(today)
	var existing int64
	err := j.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("goal_id = ? AND dedupe_day = ?", g.ID, day).
		Count(&existing).Error
	if err != nil {
		return 0, fmt.Errorf("check existing reminder: %w", err)
	}
	if existing > 0 {
		return outcomeAlreadyNotified, nil
	}

	message := ReminderMessage(g, daysUntilDue)
	goalID := g.ID
	n := models.Notification{
		UserID:    g.PatientID,
		Message:   message,
		Type:      models.NotificationGoalUpdate,
		GoalID:    &goalID,
		DedupeDay: &day,
	}
	if err := j.db.WithContext(ctx).Create(&n).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return outcomeAlreadyNotified, nil
		}
		return 0, fmt.Errorf("create reminder: %w", err)
	}
	slog.InfoContext(ctx, "goal reminder created", "goal_id", g.ID, "patient_id", g.PatientID, "days_until_due", daysUntilDue)

	if j.notifier != nil {
		if err := j.notifier.GoalReminder(ctx, &g.Patient, message); err != nil {
			return 0, fmt.Errorf("deliver reminder: %w", err)
		}
	}
	return outcomeNotified, nil
}

// measure returns how far g has got towards its target, in percent. With a
// numeric target that is the latest recorded value over the target, and
// recorded is false when nothing has been recorded yet. Otherwise it falls
// back to the share of days logged.
func (j *GoalNotificationJob) measure(ctx context.Context, g *models.Goal, p progress.Progress) (percent float64, recorded bool, err error) {
	target, ok := progress.ParseMeasure(g.TargetValue)
	if !ok || target <= 0 {
		return p.CompletionPercent, true, nil
	}
	latest, recorded, err := j.latestValue(ctx, g)
	if err != nil || !recorded {
		return 0, false, err
	}
	return progress.ValuePercent(latest, target), true, nil
}

func (j *GoalNotificationJob) latestValue(ctx context.Context, g *models.Goal) (float64, bool, error) {
	if kind := strings.ToLower(strings.TrimSpace(g.TargetType)); measuredTypes[kind] {
		var records []models.TrackingRecord
		err := j.db.WithContext(ctx).
			Where("patient_id = ? AND type = ?", g.PatientID, kind).
			Order("recorded_at desc, created_at desc").
			Limit(1).
			Find(&records).Error
		if err != nil {
			return 0, false, fmt.Errorf("load latest %s record: %w", kind, err)
		}
		if len(records) == 0 {
			return 0, false, nil
		}
		return records[0].Value, true, nil
	}

	var logs []models.GoalLog
	err := j.db.WithContext(ctx).
		Where("goal_id = ?", g.ID).
		Order("logged_at desc").
		Limit(1).
		Find(&logs).Error
	if err != nil {
		return 0, false, fmt.Errorf("load latest goal log: %w", err)
	}
	if len(logs) == 0 {
		return 0, false, nil
	}
	v, ok := progress.ParseMeasure(logs[0].Value)
	return v, ok, nil
}

// ReminderMessage is the notification text for a goal due in daysUntilDue
// calendar days. Negative values mean overdue.
func ReminderMessage(g *models.Goal, daysUntilDue int) string {
	subject := fmt.Sprintf("Your %s goal (target: %s)", g.TargetType, g.TargetValue)
	switch {
	case daysUntilDue < 0:
		return fmt.Sprintf("%s was due %d day(s) ago and has not been achieved. Please update your progress.", subject, -daysUntilDue)
	case daysUntilDue == 0:
		return subject + " is due today and has not been achieved. Please update your progress."
	default:
		return fmt.Sprintf("%s is due in %d day(s) and is not on track. Please update your progress.", subject, daysUntilDue)
	}
}

// daysBetween counts calendar days from the day of from to the day of to,
// in from's location.
func daysBetween(from, to time.Time) int {
	to = to.In(from.Location())
	a := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}
