package models

// NotificationType groups notifications for the client.
type NotificationType string

const (
	NotificationReminder   NotificationType = "reminder"
	NotificationGoalUpdate NotificationType = "goal_update"
	NotificationSystem     NotificationType = "system"
)

// Notification is an in-app message for one user. Goal reminders carry
// GoalID and DedupeDay; the pair is unique so a goal is reminded at most once
// per day.
type Notification struct {
	BaseModel
	UserID    string           `gorm:"size:36;not null;index" json:"userId"`
	Message   string           `gorm:"type:text;not null" json:"message"`
	Type      NotificationType `gorm:"size:20;default:'system'" json:"type"`
	IsRead    bool             `gorm:"default:false" json:"read"`
	GoalID    *string          `gorm:"size:36;uniqueIndex:idx_notification_goal_day" json:"goalId,omitempty"`
	DedupeDay *string          `gorm:"size:10;uniqueIndex:idx_notification_goal_day" json:"-"`
}
