package models

import "time"

// JobLease is a named, expiring lock row shared by every server process.
type JobLease struct {
	Name      string    `gorm:"primaryKey;size:100" json:"name"`
	Holder    string    `gorm:"size:100;not null" json:"holder"`
	ExpiresAt time.Time `gorm:"not null" json:"expiresAt"`
}
