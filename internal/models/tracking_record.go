package models

import "time"

// TrackingRecord is a free-standing health measurement such as weight or BMI.
type TrackingRecord struct {
	BaseModel
	PatientID  string    `gorm:"size:36;not null;index" json:"patientId"`
	Type       string    `gorm:"size:50;not null;index" json:"type"`
	Value      float64   `json:"value"`
	Unit       string    `gorm:"size:20" json:"unit,omitempty"`
	Notes      string    `gorm:"type:text" json:"notes,omitempty"`
	RecordedAt time.Time `gorm:"index" json:"recordedAt"`
}
