package handlers

import (
	"care-portal-server/internal/goals"
	"care-portal-server/internal/models"
	"care-portal-server/internal/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// DoctorHandler serves a doctor's view of their assigned patients.
type DoctorHandler struct {
	DB    *gorm.DB
	Goals *goals.Service
}

// NewDoctorHandler creates a new DoctorHandler.
func NewDoctorHandler(db *gorm.DB, goalService *goals.Service) *DoctorHandler {
	return &DoctorHandler{DB: db, Goals: goalService}
}

// GetMyPatients lists the patients actively assigned to the calling doctor.
// Admins get every patient.
func (h *DoctorHandler) GetMyPatients(c *gin.Context) {
	userID, role, ok := currentUser(c)
	if !ok {
		return
	}

	query := h.DB.WithContext(c.Request.Context()).
		Where("users.role = ?", models.RolePatient).
		Order("users.first_name asc")
	if role != models.RoleAdmin {
		query = query.
			Joins("JOIN patient_assignments pa ON pa.patient_id = users.id").
			Where("pa.doctor_id = ? AND pa.status = ?", userID, models.AssignmentActive)
	}

	var patients []models.User
	if err := query.Find(&patients).Error; err != nil {
		utils.InternalError(c, "Failed to fetch patients", err)
		return
	}

	utils.Success(c, "Patients fetched successfully", models.SanitizeUsers(patients))
}

// PatientProfile is a patient with their goals, prescriptions and upcoming
// appointments with the calling doctor.
type PatientProfile struct {
	Patient       models.UserSanitized  `json:"patient"`
	Goals         []goals.GoalProgress  `json:"goals"`
	Prescriptions []models.Prescription `json:"prescriptions"`
	Appointments  []models.Appointment  `json:"appointments"`
}

// GetPatientProfile returns an assigned patient's profile.
func (h *DoctorHandler) GetPatientProfile(c *gin.Context) {
	userID, role, ok := currentUser(c)
	if !ok {
		return
	}
	patientID, ok := uuidParam(c, "patientId", "Patient")
	if !ok {
		return
	}
	if !requireAssignedDoctor(c, h.DB, userID, role, patientID) {
		return
	}
	patient, ok := loadPatient(c, h.DB, patientID)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	progress, err := h.Goals.PatientProgress(ctx, patientID)
	if err != nil {
		utils.InternalError(c, "Failed to load goals", err)
		return
	}

	var prescriptions []models.Prescription
	if err := h.DB.WithContext(ctx).Preload("Doctor").
		Where("patient_id = ?", patientID).
		Order("issued_at desc").
		Find(&prescriptions).Error; err != nil {
		utils.InternalError(c, "Failed to load prescriptions", err)
		return
	}

	apptQuery := h.DB.WithContext(ctx).
		Where("patient_id = ? AND start_time >= ?", patientID, h.Goals.Now()).
		Order("start_time asc")
	if role == models.RoleDoctor {
		apptQuery = apptQuery.Where("doctor_id = ?", userID)
	}
	var appointments []models.Appointment
	if err := apptQuery.Find(&appointments).Error; err != nil {
		utils.InternalError(c, "Failed to load appointments", err)
		return
	}

	utils.Success(c, "Patient profile fetched successfully", PatientProfile{
		Patient:       patient.Sanitize(),
		Goals:         progress,
		Prescriptions: prescriptions,
		Appointments:  appointments,
	})
}

// GetPatientGoals lists an assigned patient's goals with their logs.
func (h *DoctorHandler) GetPatientGoals(c *gin.Context) {
	userID, role, ok := currentUser(c)
	if !ok {
		return
	}
	patientID, ok := uuidParam(c, "patientId", "Patient")
	if !ok {
		return
	}
	if !requireAssignedDoctor(c, h.DB, userID, role, patientID) {
		return
	}

	list, err := h.Goals.GoalsForPatient(c.Request.Context(), patientID)
	if err != nil {
		utils.InternalError(c, "Failed to load goals", err)
		return
	}
	utils.Success(c, "Goals fetched successfully", list)
}
