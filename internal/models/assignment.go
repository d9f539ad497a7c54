package models

// AssignmentStatus tells whether a doctor currently cares for a patient.
type AssignmentStatus string

const (
	AssignmentActive   AssignmentStatus = "active"
	AssignmentInactive AssignmentStatus = "inactive"
)

// PatientAssignment maps a doctor to a patient. Doctor-scoped reads and
// writes on patient data require an active row.
type PatientAssignment struct {
	BaseModel
	DoctorID  string           `gorm:"size:36;not null;uniqueIndex:idx_assignment_pair" json:"doctorId"`
	PatientID string           `gorm:"size:36;not null;uniqueIndex:idx_assignment_pair;index" json:"patientId"`
	Status    AssignmentStatus `gorm:"size:20;default:'active'" json:"status"`

	Doctor  User `gorm:"foreignKey:DoctorID" json:"doctor,omitempty"`
	Patient User `gorm:"foreignKey:PatientID" json:"patient,omitempty"`
}
