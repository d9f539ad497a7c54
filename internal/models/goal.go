package models

import "time"

// GoalStatus is the lifecycle state of a wellness goal.
type GoalStatus string

const (
	GoalActive    GoalStatus = "active"
	GoalCompleted GoalStatus = "completed"
	GoalCancelled GoalStatus = "cancelled"
)

// Goal is a wellness target a doctor sets for a patient. It is met once the
// patient has logged progress on Frequency distinct days.
type Goal struct {
	BaseModel
	PatientID   string     `gorm:"size:36;not null;index" json:"patientId"`
	DoctorID    string     `gorm:"size:36;not null;index" json:"doctorId"`
	TargetType  string     `gorm:"size:100;not null" json:"targetType"`
	TargetValue string     `gorm:"size:100;not null" json:"targetValue"`
	Frequency   int        `gorm:"not null" json:"frequency"`
	DueDate     time.Time  `gorm:"index" json:"dueDate"`
	Status      GoalStatus `gorm:"size:20;index;default:'active'" json:"status"`

	Patient User      `gorm:"foreignKey:PatientID" json:"-"`
	Doctor  User      `gorm:"foreignKey:DoctorID" json:"-"`
	Logs    []GoalLog `gorm:"foreignKey:GoalID" json:"logs,omitempty"`
}

// GoalDueDate is the creation day plus frequency days.
func GoalDueDate(createdAt time.Time, frequency int) time.Time {
	return createdAt.AddDate(0, 0, frequency)
}
