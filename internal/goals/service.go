// Package goals owns the wellness goal write paths and the per-patient
// progress view.
package goals

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"care-portal-server/internal/models"
	"care-portal-server/internal/progress"

	"gorm.io/gorm"
)

// Service creates goals, appends goal-log entries and reports progress.
type Service struct {
	db *gorm.DB

	// Now is the clock used for day boundaries. Defaults to time.Now.
	Now func() time.Time
}

// NewService returns a goal service backed by db.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db, Now: time.Now}
}

// CreateInput describes a goal a doctor sets for a patient.
type CreateInput struct {
	DoctorID    string
	PatientID   string
	TargetType  string
	TargetValue string
	Frequency   int
}

// Create stores a new active goal. The doctor must hold an active assignment
// for the patient.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Goal, error) {
	if in.Frequency < 1 {
		return nil, ErrInvalidFrequency
	}

	if err := CheckAssignment(ctx, s.db, in.DoctorID, in.PatientID); err != nil {
		return nil, err
	}

	var patient models.User
	err := s.db.WithContext(ctx).
		Where("id = ? AND role = ?", in.PatientID, models.RolePatient).
		First(&patient).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPatientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load patient: %w", err)
	}

	now := s.Now()
	goal := models.Goal{
		BaseModel:   models.BaseModel{CreatedAt: now, UpdatedAt: now},
		PatientID:   in.PatientID,
		DoctorID:    in.DoctorID,
		TargetType:  strings.TrimSpace(in.TargetType),
		TargetValue: strings.TrimSpace(in.TargetValue),
		Frequency:   in.Frequency,
		DueDate:     models.GoalDueDate(now, in.Frequency),
		Status:      models.GoalActive,
	}
	if err := s.db.WithContext(ctx).Create(&goal).Error; err != nil {
		return nil, fmt.Errorf("create goal: %w", err)
	}
	return &goal, nil
}

// LogResult is the stored entry and the goal's progress after it.
type LogResult struct {
	Entry    models.GoalLog    `json:"entry"`
	Progress progress.Progress `json:"progress"`
}

// LogEntry appends today's progress entry for a goal owned by patientID.
// An empty value records the goal's target value.
func (s *Service) LogEntry(ctx context.Context, patientID, goalID, value string) (*LogResult, error) {
	var goal models.Goal
	err := s.db.WithContext(ctx).First(&goal, "id = ?", goalID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrGoalNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load goal: %w", err)
	}

	if goal.PatientID != patientID {
		return nil, ErrNotGoalOwner
	}
	if goal.Status == models.GoalCancelled {
		return nil, ErrGoalNotActive
	}

	now := s.Now()
	day := models.DayKey(now)
	counts, err := progress.LoadCounts(ctx, s.db, []string{goal.ID}, day)
	if err != nil {
		return nil, err
	}
	current := counts[goal.ID]
	if goal.Status == models.GoalCompleted || current.Total >= int64(goal.Frequency) {
		return nil, ErrGoalCompleted
	}
	if current.Today > 0 {
		return nil, ErrAlreadyLoggedToday
	}

	value = strings.TrimSpace(value)
	if value == "" {
		value = goal.TargetValue
	}
	entry := models.GoalLog{
		GoalID:    goal.ID,
		PatientID: patientID,
		Value:     value,
		LoggedAt:  now,
		LoggedOn:  day,
	}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrAlreadyLoggedToday
		}
		return nil, fmt.Errorf("create goal log: %w", err)
	}

	p := progress.Compute(goal.Frequency, int(current.Total)+1, int(current.Today)+1)
	if p.Status == models.GoalCompleted {
		err := s.db.WithContext(ctx).Model(&goal).Update("status", models.GoalCompleted).Error
		if err != nil {
			return nil, fmt.Errorf("mark goal completed: %w", err)
		}
	}

	return &LogResult{Entry: entry, Progress: p}, nil
}

// GoalProgress is one row of a patient's dashboard.
type GoalProgress struct {
	GoalID    string `json:"goal_id"`
	Title     string `json:"title"`
	Target    string `json:"target"`
	Frequency int    `json:"frequency"`
	progress.Progress
	Doctor  *models.UserSanitized `json:"doctor,omitempty"`
	DueDate time.Time             `json:"due_date"`
}

// PatientProgress returns progress for every goal of the patient, newest
// first. Log counts are loaded with a single query.
func (s *Service) PatientProgress(ctx context.Context, patientID string) ([]GoalProgress, error) {
	var goals []models.Goal
	err := s.db.WithContext(ctx).
		Preload("Doctor").
		Where("patient_id = ?", patientID).
		Order("created_at desc").
		Find(&goals).Error
	if err != nil {
		return nil, fmt.Errorf("load goals: %w", err)
	}

	ids := make([]string, len(goals))
	for i := range goals {
		ids[i] = goals[i].ID
	}
	counts, err := progress.LoadCounts(ctx, s.db, ids, models.DayKey(s.Now()))
	if err != nil {
		return nil, err
	}

	out := make([]GoalProgress, 0, len(goals))
	for i := range goals {
		g := &goals[i]
		gp := GoalProgress{
			GoalID:    g.ID,
			Title:     g.TargetType,
			Target:    g.TargetValue,
			Frequency: g.Frequency,
			Progress:  counts.Progress(g),
			DueDate:   g.DueDate,
		}
		if g.Status == models.GoalCancelled {
			gp.Status = models.GoalCancelled
		}
		if g.Doctor.ID != "" {
			doctor := g.Doctor.Sanitize()
			gp.Doctor = &doctor
		}
		out = append(out, gp)
	}
	return out, nil
}

// recentLogLimit caps the logs returned with each goal in list views.
const recentLogLimit = 10

// GoalsForPatient lists a patient's goals, newest first, each with its
// latest recentLogLimit logs.
func (s *Service) GoalsForPatient(ctx context.Context, patientID string) ([]models.Goal, error) {
	var goals []models.Goal
	err := s.db.WithContext(ctx).
		Preload("Logs", func(db *gorm.DB) *gorm.DB { return db.Order("logged_at desc") }).
		Where("patient_id = ?", patientID).
		Order("created_at desc").
		Find(&goals).Error
	if err != nil {
		return nil, fmt.Errorf("load goals: %w", err)
	}
	// A preload limit would apply across all goals, so trim per goal.
	for i := range goals {
		if len(goals[i].Logs) > recentLogLimit {
			goals[i].Logs = goals[i].Logs[:recentLogLimit]
		}
	}
	return goals, nil
}

// CheckAssignment returns ErrNotAssigned unless doctorID actively cares for
// patientID.
func CheckAssignment(ctx context.Context, db *gorm.DB, doctorID, patientID string) error {
	var n int64
	err := db.WithContext(ctx).
		Model(&models.PatientAssignment{}).
		Where("doctor_id = ? AND patient_id = ? AND status = ?", doctorID, patientID, models.AssignmentActive).
		Count(&n).Error
	if err != nil {
		return fmt.Errorf("check assignment: %w", err)
	}
	if n == 0 {
		return ErrNotAssigned
	}
	return nil
}
