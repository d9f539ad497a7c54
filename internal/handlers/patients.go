package handlers

import (
	"time"

	"care-portal-server/internal/goals"
	"care-portal-server/internal/models"
	"care-portal-server/internal/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// PatientHandler serves the patient dashboard.
type PatientHandler struct {
	DB    *gorm.DB
	Goals *goals.Service
}

// NewPatientHandler creates a new PatientHandler.
func NewPatientHandler(db *gorm.DB, goalService *goals.Service) *PatientHandler {
	return &PatientHandler{DB: db, Goals: goalService}
}

// DashboardStats summarizes a patient's activity.
type DashboardStats struct {
	TotalGoals           int   `json:"total_goals"`
	ActiveGoals          int   `json:"active_goals"`
	CompletedGoals       int   `json:"completed_goals"`
	GoalsLoggedToday     int   `json:"goals_logged_today"`
	UpcomingAppointments int64 `json:"upcoming_appointments"`
	UnreadNotifications  int64 `json:"unread_notifications"`
}

// AppointmentSummary is an appointment with its doctor.
type AppointmentSummary struct {
	ID         string                   `json:"id"`
	StartTime  time.Time                `json:"start_time"`
	Status     models.AppointmentStatus `json:"status"`
	Department string                   `json:"department,omitempty"`
	Reason     string                   `json:"reason"`
	Doctor     models.UserSanitized     `json:"doctor"`
}

// DoctorResponse is a recent message from one of the patient's doctors.
type DoctorResponse struct {
	MessageID string               `json:"message_id"`
	Content   string               `json:"content"`
	Subject   string               `json:"subject,omitempty"`
	SentAt    time.Time            `json:"sent_at"`
	Read      bool                 `json:"read"`
	Doctor    models.UserSanitized `json:"doctor"`
}

// PatientDashboard is the payload of GET /patient/dashboard-data.
type PatientDashboard struct {
	Stats                DashboardStats        `json:"stats"`
	GoalProgress         []goals.GoalProgress  `json:"goal_progress"`
	UpcomingAppointments []AppointmentSummary  `json:"upcoming_appointments"`
	DoctorResponses      []DoctorResponse      `json:"doctor_responses"`
	Prescriptions        []models.Prescription `json:"prescriptions"`
}

const dashboardListLimit = 5

// GetDashboard returns goal progress, appointments, messages and
// prescriptions for the calling patient.
func (h *PatientHandler) GetDashboard(c *gin.Context) {
	patientID, _, ok := currentUser(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	db := h.DB.WithContext(ctx)
	now := h.Goals.Now()

	progress, err := h.Goals.PatientProgress(ctx, patientID)
	if err != nil {
		utils.InternalError(c, "Failed to load goal progress", err)
		return
	}

	d := PatientDashboard{
		GoalProgress:         progress,
		UpcomingAppointments: []AppointmentSummary{},
		DoctorResponses:      []DoctorResponse{},
	}
	d.Stats.TotalGoals = len(progress)
	for _, gp := range progress {
		switch gp.Status {
		case models.GoalActive:
			d.Stats.ActiveGoals++
		case models.GoalCompleted:
			d.Stats.CompletedGoals++
		}
		if gp.TodayCompleted {
			d.Stats.GoalsLoggedToday++
		}
	}

	upcoming := db.Model(&models.Appointment{}).
		Where("patient_id = ? AND start_time >= ? AND status IN ?", patientID, now,
			[]models.AppointmentStatus{models.StatusPending, models.StatusConfirmed, models.StatusRescheduled})
	if err := upcoming.Count(&d.Stats.UpcomingAppointments).Error; err != nil {
		utils.InternalError(c, "Failed to count appointments", err)
		return
	}

	var appointments []models.Appointment
	err = db.Preload("Doctor").
		Where("patient_id = ? AND start_time >= ? AND status IN ?", patientID, now,
			[]models.AppointmentStatus{models.StatusPending, models.StatusConfirmed, models.StatusRescheduled}).
		Order("start_time asc").
		Limit(dashboardListLimit).
		Find(&appointments).Error
	if err != nil {
		utils.InternalError(c, "Failed to load appointments", err)
		return
	}
	for i := range appointments {
		a := &appointments[i]
		d.UpcomingAppointments = append(d.UpcomingAppointments, AppointmentSummary{
			ID:         a.ID,
			StartTime:  a.StartTime,
			Status:     a.Status,
			Department: a.Department,
			Reason:     a.Reason,
			Doctor:     a.Doctor.Sanitize(),
		})
	}

	var messages []models.Message
	err = db.Preload("Sender").
		Joins("JOIN users senders ON senders.id = messages.sender_id").
		Where("messages.receiver_id = ? AND senders.role = ?", patientID, models.RoleDoctor).
		Order("messages.created_at desc").
		Limit(dashboardListLimit).
		Find(&messages).Error
	if err != nil {
		utils.InternalError(c, "Failed to load doctor responses", err)
		return
	}
	for i := range messages {
		m := &messages[i]
		d.DoctorResponses = append(d.DoctorResponses, DoctorResponse{
			MessageID: m.ID,
			Content:   m.Content,
			Subject:   m.Subject,
			SentAt:    m.CreatedAt,
			Read:      m.Status == models.MessageStatusRead,
			Doctor:    m.Sender.Sanitize(),
		})
	}

	if err := db.Preload("Doctor").
		Where("patient_id = ?", patientID).
		Order("issued_at desc").
		Limit(dashboardListLimit).
		Find(&d.Prescriptions).Error; err != nil {
		utils.InternalError(c, "Failed to load prescriptions", err)
		return
	}

	if err := db.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", patientID, false).
		Count(&d.Stats.UnreadNotifications).Error; err != nil {
		utils.InternalError(c, "Failed to count notifications", err)
		return
	}

	utils.Success(c, "Dashboard data fetched successfully", d)
}
