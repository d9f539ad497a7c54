package models

import (
	"time"
)

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	StatusPending     AppointmentStatus = "pending"
	StatusConfirmed   AppointmentStatus = "confirmed"
	StatusCancelled   AppointmentStatus = "cancelled"
	StatusCompleted   AppointmentStatus = "completed"
	StatusRescheduled AppointmentStatus = "rescheduled"
)

// Appointment is a booked visit between a patient and a doctor.
type Appointment struct {
	BaseModel
	PatientID  string            `gorm:"size:36;index" json:"patientId"`
	DoctorID   string            `gorm:"size:36;index" json:"doctorId"`
	StartTime  time.Time         `gorm:"index" json:"startTime"`
	EndTime    time.Time         `json:"endTime"`
	Status     AppointmentStatus `gorm:"size:20;default:'pending'" json:"status"`
	Department string            `gorm:"size:100" json:"department,omitempty"`
	Reason     string            `gorm:"size:255" json:"reason"`
	Notes      string            `gorm:"type:text" json:"notes"`
	IsFollowUp bool              `gorm:"default:false" json:"isFollowUp"`

	Patient User `gorm:"foreignKey:PatientID" json:"-"`
	Doctor  User `gorm:"foreignKey:DoctorID" json:"-"`
}

// IsOpen reports whether the appointment can still be changed by the patient.
func (a *Appointment) IsOpen() bool {
	return a.Status == StatusPending || a.Status == StatusConfirmed || a.Status == StatusRescheduled
}
