package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BaseModel contains common columns for all tables
type BaseModel struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BeforeCreate will set a UUID rather than numeric ID
func (base *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if base.ID == "" {
		base.ID = NewID()
	}
	return nil
}

// NewID returns a random UUID string.
func NewID() string {
	return uuid.New().String()
}

// DayLayout formats the calendar-day keys stored in GoalLog.LoggedOn and
// Notification.DedupeDay.
const DayLayout = "2006-01-02"

// DayKey returns the local calendar day of t as a DayLayout string.
func DayKey(t time.Time) string {
	return t.Format(DayLayout)
}

// StartOfDay returns local midnight of the day containing t.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// All lists every model for schema migration.
func All() []any {
	return []any{
		&User{},
		&RefreshToken{},
		&PatientAssignment{},
		&Goal{},
		&GoalLog{},
		&TrackingRecord{},
		&Notification{},
		&Appointment{},
		&Message{},
		&Prescription{},
		&JobLease{},
	}
}
