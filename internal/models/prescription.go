package models

import "time"

// Prescription is a medication order written by a doctor for a patient.
type Prescription struct {
	BaseModel
	PatientID    string    `gorm:"size:36;not null;index" json:"patientId"`
	DoctorID     string    `gorm:"size:36;not null;index" json:"doctorId"`
	Medicine     string    `gorm:"size:255;not null" json:"medicine"`
	Dosage       string    `gorm:"size:100;not null" json:"dosage"`
	Frequency    string    `gorm:"size:100" json:"frequency"`
	DurationDays int       `json:"durationDays"`
	Notes        string    `gorm:"type:text" json:"notes,omitempty"`
	IssuedAt     time.Time `json:"issuedAt"`

	Patient User `gorm:"foreignKey:PatientID" json:"-"`
	Doctor  User `gorm:"foreignKey:DoctorID" json:"doctor"`
}
