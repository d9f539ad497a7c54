package handlers

import (
	"errors"

	"care-portal-server/internal/goals"
	"care-portal-server/internal/middleware"
	"care-portal-server/internal/models"
	"care-portal-server/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// currentUser returns the authenticated user's ID and role, writing a 401
// when either is missing.
func currentUser(c *gin.Context) (string, models.Role, bool) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return "", "", false
	}
	role, ok := middleware.GetUserRoleFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return "", "", false
	}
	return userID, role, true
}

// uuidParam reads a path parameter that must be a UUID, writing a 400 when
// it is not.
func uuidParam(c *gin.Context, name, label string) (string, bool) {
	raw := c.Param(name)
	id, err := uuid.Parse(raw)
	if err != nil {
		utils.BadRequest(c, "Invalid "+label+" ID format")
		return "", false
	}
	return id.String(), true
}

// respondGoalError maps goal service errors to HTTP responses.
func respondGoalError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, goals.ErrGoalNotFound):
		utils.NotFound(c, "Goal not found")
	case errors.Is(err, goals.ErrPatientNotFound):
		utils.NotFound(c, "Patient not found")
	case errors.Is(err, goals.ErrNotAssigned):
		utils.Forbidden(c, "You are not assigned to this patient")
	case errors.Is(err, goals.ErrNotGoalOwner):
		utils.Forbidden(c, "You can only track your own goals")
	case errors.Is(err, goals.ErrGoalNotActive):
		utils.BadRequest(c, "Goal is no longer active")
	case errors.Is(err, goals.ErrGoalCompleted):
		utils.BadRequest(c, "Goal already completed")
	case errors.Is(err, goals.ErrInvalidFrequency):
		utils.BadRequest(c, "Frequency must be at least 1 day")
	case errors.Is(err, goals.ErrAlreadyLoggedToday):
		utils.Conflict(c, "Progress already logged today")
	default:
		utils.InternalError(c, "Goal operation failed", err)
	}
}

// requireAssignedDoctor writes a 403 unless the doctor is actively assigned
// to the patient. Admins pass.
func requireAssignedDoctor(c *gin.Context, db *gorm.DB, userID string, role models.Role, patientID string) bool {
	if role == models.RoleAdmin {
		return true
	}
	if role != models.RoleDoctor {
		utils.Forbidden(c, "You do not have permission to access this resource.")
		return false
	}
	if err := goals.CheckAssignment(c.Request.Context(), db, userID, patientID); err != nil {
		respondGoalError(c, err)
		return false
	}
	return true
}

// loadPatient fetches a patient account, writing 404 when it does not exist.
func loadPatient(c *gin.Context, db *gorm.DB, patientID string) (*models.User, bool) {
	var patient models.User
	err := db.WithContext(c.Request.Context()).
		Where("id = ? AND role = ?", patientID, models.RolePatient).
		First(&patient).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.NotFound(c, "Patient not found")
		return nil, false
	}
	if err != nil {
		utils.InternalError(c, "Failed to load patient", err)
		return nil, false
	}
	return &patient, true
}
