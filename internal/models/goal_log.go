package models

import "time"

// GoalLog is one day of progress on a goal. Rows are never updated.
type GoalLog struct {
	BaseModel
	GoalID    string    `gorm:"size:36;not null;uniqueIndex:idx_goal_log_day" json:"goalId"`
	PatientID string    `gorm:"size:36;not null;index" json:"patientId"`
	Value     string    `gorm:"size:100" json:"value"`
	LoggedAt  time.Time `json:"loggedAt"`
	LoggedOn  string    `gorm:"size:10;not null;uniqueIndex:idx_goal_log_day" json:"loggedOn"`
}
