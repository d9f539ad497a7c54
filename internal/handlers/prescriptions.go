package handlers

import (
	"strings"
	"time"

	"care-portal-server/internal/models"
	"care-portal-server/internal/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// PrescriptionHandler handles prescriptions written by doctors.
type PrescriptionHandler struct {
	DB *gorm.DB
}

// NewPrescriptionHandler creates a new PrescriptionHandler.
func NewPrescriptionHandler(db *gorm.DB) *PrescriptionHandler {
	return &PrescriptionHandler{DB: db}
}

// CreatePrescriptionRequest is a medication order for one patient.
type CreatePrescriptionRequest struct {
	Medicine     string `json:"medicine" binding:"required,max=255"`
	Dosage       string `json:"dosage" binding:"required,max=100"`
	Frequency    string `json:"frequency" binding:"max=100"`
	DurationDays int    `json:"durationDays" binding:"omitempty,min=1"`
	Notes        string `json:"notes"`
}

// CreatePrescription writes a prescription for a patient assigned to the
// calling doctor.
func (h *PrescriptionHandler) CreatePrescription(c *gin.Context) {
	doctorID, role, ok := currentUser(c)
	if !ok {
		return
	}
	patientID, ok := uuidParam(c, "patientId", "Patient")
	if !ok {
		return
	}

	var req CreatePrescriptionRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	if !requireAssignedDoctor(c, h.DB, doctorID, role, patientID) {
		return
	}
	if _, ok := loadPatient(c, h.DB, patientID); !ok {
		return
	}

	p := models.Prescription{
		PatientID:    patientID,
		DoctorID:     doctorID,
		Medicine:     strings.TrimSpace(req.Medicine),
		Dosage:       strings.TrimSpace(req.Dosage),
		Frequency:    req.Frequency,
		DurationDays: req.DurationDays,
		Notes:        req.Notes,
		IssuedAt:     time.Now(),
	}
	if err := h.DB.WithContext(c.Request.Context()).Create(&p).Error; err != nil {
		utils.InternalError(c, "Failed to create prescription", err)
		return
	}

	utils.Created(c, "Prescription created successfully", p)
}

// GetMyPrescriptions lists the calling patient's prescriptions, newest first.
func (h *PrescriptionHandler) GetMyPrescriptions(c *gin.Context) {
	patientID, _, ok := currentUser(c)
	if !ok {
		return
	}

	prescriptions := []models.Prescription{}
	if err := h.DB.WithContext(c.Request.Context()).
		Preload("Doctor").
		Where("patient_id = ?", patientID).
		Order("issued_at desc").
		Find(&prescriptions).Error; err != nil {
		utils.InternalError(c, "Failed to fetch prescriptions", err)
		return
	}

	utils.Success(c, "Prescriptions fetched successfully", prescriptions)
}
