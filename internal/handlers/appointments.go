package handlers

import (
	"errors"
	"strings"
	"time"

	"care-portal-server/internal/models"
	"care-portal-server/internal/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// AppointmentHandler handles appointment related requests.
type AppointmentHandler struct {
	DB *gorm.DB
}

// NewAppointmentHandler creates a new AppointmentHandler.
func NewAppointmentHandler(db *gorm.DB) *AppointmentHandler {
	return &AppointmentHandler{DB: db}
}

const defaultAppointmentLength = 30 * time.Minute

// CreateAppointmentRequest represents the request body for creating an appointment.
// PatientID is taken from the token when a patient books.
type CreateAppointmentRequest struct {
	DoctorID   string    `json:"doctorId" binding:"required,uuid"`
	PatientID  string    `json:"patientId" binding:"omitempty,uuid"`
	StartTime  time.Time `json:"startTime" binding:"required"`
	EndTime    time.Time `json:"endTime"`
	Department string    `json:"department" binding:"max=100"`
	Reason     string    `json:"reason" binding:"required,max=255"`
	Notes      string    `json:"notes"`
	IsFollowUp bool      `json:"isFollowUp"`
}

// CreateAppointment books a visit with a doctor.
func (h *AppointmentHandler) CreateAppointment(c *gin.Context) {
	userID, role, ok := currentUser(c)
	if !ok {
		return
	}

	var req CreateAppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	patientID := strings.ToLower(req.PatientID)
	doctorID := strings.ToLower(req.DoctorID)
	switch role {
	case models.RolePatient:
		if patientID != "" && patientID != userID {
			utils.Forbidden(c, "Patients can only book appointments for themselves.")
			return
		}
		patientID = userID
	case models.RoleDoctor:
		if doctorID != userID {
			utils.Forbidden(c, "Doctors can only book appointments for themselves.")
			return
		}
	}
	if patientID == "" {
		utils.BadRequest(c, "patientId is required")
		return
	}

	if !req.StartTime.After(time.Now()) {
		utils.BadRequest(c, "Appointment date must be in the future.")
		return
	}
	end := req.EndTime
	if end.IsZero() {
		end = req.StartTime.Add(defaultAppointmentLength)
	}
	if !end.After(req.StartTime) {
		utils.BadRequest(c, "endTime must be after startTime.")
		return
	}

	ctx := c.Request.Context()
	db := h.DB.WithContext(ctx)

	var doctor models.User
	if err := db.Where("id = ? AND role = ?", doctorID, models.RoleDoctor).First(&doctor).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Doctor not found or user is not a doctor")
		} else {
			utils.InternalError(c, "Database error verifying doctor", err)
		}
		return
	}
	if _, ok := loadPatient(c, h.DB, patientID); !ok {
		return
	}

	var overlapping int64
	if err := db.Model(&models.Appointment{}).
		Where("doctor_id = ? AND status IN ? AND start_time < ? AND end_time > ?", doctorID,
			[]models.AppointmentStatus{models.StatusPending, models.StatusConfirmed, models.StatusRescheduled},
			end, req.StartTime).
		Count(&overlapping).Error; err != nil {
		utils.InternalError(c, "Failed to check doctor availability", err)
		return
	}
	if overlapping > 0 {
		utils.Conflict(c, "The doctor already has an appointment at that time.")
		return
	}

	appointment := models.Appointment{
		PatientID:  patientID,
		DoctorID:   doctorID,
		StartTime:  req.StartTime,
		EndTime:    end,
		Department: req.Department,
		Reason:     req.Reason,
		Notes:      req.Notes,
		IsFollowUp: req.IsFollowUp,
		Status:     models.StatusPending,
	}

	if err := db.Create(&appointment).Error; err != nil {
		utils.InternalError(c, "Failed to create appointment", err)
		return
	}

	utils.Created(c, "Appointment created successfully", appointment)
}

// GetAppointmentsForUser lists the caller's appointments; admins see all.
// ?status= filters by status.
func (h *AppointmentHandler) GetAppointmentsForUser(c *gin.Context) {
	userID, role, ok := currentUser(c)
	if !ok {
		return
	}

	query := h.DB.WithContext(c.Request.Context()).Order("start_time asc")
	switch role {
	case models.RolePatient:
		query = query.Where("patient_id = ?", userID)
	case models.RoleDoctor:
		query = query.Where("doctor_id = ?", userID)
	case models.RoleAdmin:
	default:
		utils.Forbidden(c, "User role not permitted to view appointments")
		return
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", strings.ToLower(status))
	}

	appointments := []models.Appointment{}
	if err := query.Find(&appointments).Error; err != nil {
		utils.InternalError(c, "Failed to fetch appointments", err)
		return
	}

	utils.Success(c, "Appointments fetched successfully", appointments)
}

// loadAppointment fetches the appointment named by the :id parameter and
// checks that the caller takes part in it.
func (h *AppointmentHandler) loadAppointment(c *gin.Context) (*models.Appointment, string, models.Role, bool) {
	userID, role, ok := currentUser(c)
	if !ok {
		return nil, "", "", false
	}
	id, ok := uuidParam(c, "id", "Appointment")
	if !ok {
		return nil, "", "", false
	}

	var appointment models.Appointment
	if err := h.DB.WithContext(c.Request.Context()).First(&appointment, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Appointment not found")
		} else {
			utils.InternalError(c, "Database error", err)
		}
		return nil, "", "", false
	}

	if role != models.RoleAdmin && userID != appointment.PatientID && userID != appointment.DoctorID {
		utils.Forbidden(c, "You are not authorized to access this appointment")
		return nil, "", "", false
	}
	return &appointment, userID, role, true
}

// GetAppointmentByID returns one appointment to its patient, its doctor or
// an admin.
func (h *AppointmentHandler) GetAppointmentByID(c *gin.Context) {
	appointment, _, _, ok := h.loadAppointment(c)
	if !ok {
		return
	}
	utils.Success(c, "Appointment fetched successfully", appointment)
}

// UpdateAppointmentStatusRequest represents the request body for updating an appointment's status.
type UpdateAppointmentStatusRequest struct {
	Status models.AppointmentStatus `json:"status" binding:"required,oneof=pending confirmed cancelled completed"`
	Notes  string                   `json:"notes"`
}

// UpdateAppointmentStatus changes an appointment's status. Doctors and
// admins may set any status; patients may only cancel an open appointment.
func (h *AppointmentHandler) UpdateAppointmentStatus(c *gin.Context) {
	var req UpdateAppointmentStatusRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	appointment, _, role, ok := h.loadAppointment(c)
	if !ok {
		return
	}

	if role == models.RolePatient {
		if req.Status != models.StatusCancelled {
			utils.Forbidden(c, "Patients can only cancel appointments.")
			return
		}
		if !appointment.IsOpen() {
			utils.BadRequest(c, "Only pending or confirmed appointments can be cancelled.")
			return
		}
	}

	appointment.Status = req.Status
	if req.Notes != "" {
		appointment.Notes = req.Notes
	}

	if err := h.DB.WithContext(c.Request.Context()).Save(appointment).Error; err != nil {
		utils.InternalError(c, "Failed to update appointment status", err)
		return
	}

	utils.Success(c, "Appointment status updated successfully", appointment)
}

// RescheduleAppointmentRequest represents the request body for rescheduling an appointment.
type RescheduleAppointmentRequest struct {
	NewAppointmentAt time.Time `json:"newAppointmentAt" binding:"required"`
	Notes            string    `json:"notes"`
}

// RescheduleAppointment moves an open appointment to a new start time,
// keeping its length.
func (h *AppointmentHandler) RescheduleAppointment(c *gin.Context) {
	var req RescheduleAppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	if !req.NewAppointmentAt.After(time.Now()) {
		utils.BadRequest(c, "New appointment date must be in the future.")
		return
	}

	appointment, _, _, ok := h.loadAppointment(c)
	if !ok {
		return
	}
	if !appointment.IsOpen() {
		utils.BadRequest(c, "Only open appointments can be rescheduled.")
		return
	}

	length := appointment.EndTime.Sub(appointment.StartTime)
	if length <= 0 {
		length = defaultAppointmentLength
	}
	appointment.StartTime = req.NewAppointmentAt
	appointment.EndTime = req.NewAppointmentAt.Add(length)
	appointment.Status = models.StatusRescheduled
	if req.Notes != "" {
		appointment.Notes = req.Notes
	}

	if err := h.DB.WithContext(c.Request.Context()).Save(appointment).Error; err != nil {
		utils.InternalError(c, "Failed to reschedule appointment", err)
		return
	}

	utils.Success(c, "Appointment rescheduled successfully", appointment)
}
