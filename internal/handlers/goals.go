package handlers

import (
	"care-portal-server/internal/goals"
	"care-portal-server/internal/utils"

	"github.com/gin-gonic/gin"
)

// GoalHandler handles goal creation by doctors and progress logging by
// patients.
type GoalHandler struct {
	Goals *goals.Service
}

// NewGoalHandler creates a new GoalHandler.
func NewGoalHandler(goalService *goals.Service) *GoalHandler {
	return &GoalHandler{Goals: goalService}
}

// CreateGoalRequest is a goal set by a doctor. PatientID may instead come
// from the path.
type CreateGoalRequest struct {
	PatientID       string `json:"patient_id" binding:"omitempty,uuid"`
	TargetType      string `json:"target_type" binding:"required"`
	GoalTargetValue string `json:"goal_target_value" binding:"required"`
	Frequency       int    `json:"frequency" binding:"required,min=1"`
}

// CreateGoal creates a goal for a patient assigned to the calling doctor.
func (h *GoalHandler) CreateGoal(c *gin.Context) {
	doctorID, _, ok := currentUser(c)
	if !ok {
		return
	}

	var req CreateGoalRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	patientID := req.PatientID
	if c.Param("patientId") != "" {
		if patientID, ok = uuidParam(c, "patientId", "Patient"); !ok {
			return
		}
	}
	if patientID == "" {
		utils.BadRequest(c, "patient_id is required")
		return
	}

	goal, err := h.Goals.Create(c.Request.Context(), goals.CreateInput{
		DoctorID:    doctorID,
		PatientID:   patientID,
		TargetType:  req.TargetType,
		TargetValue: req.GoalTargetValue,
		Frequency:   req.Frequency,
	})
	if err != nil {
		respondGoalError(c, err)
		return
	}

	utils.Created(c, "Goal created successfully", goal)
}

// GetMyGoals lists the calling patient's goals with their logs.
func (h *GoalHandler) GetMyGoals(c *gin.Context) {
	patientID, _, ok := currentUser(c)
	if !ok {
		return
	}

	list, err := h.Goals.GoalsForPatient(c.Request.Context(), patientID)
	if err != nil {
		utils.InternalError(c, "Failed to load goals", err)
		return
	}
	utils.Success(c, "Goals fetched successfully", list)
}

// TrackGoalRequest optionally overrides the logged value.
type TrackGoalRequest struct {
	Value string `json:"value"`
}

// TrackGoal logs today's progress on one of the calling patient's goals.
func (h *GoalHandler) TrackGoal(c *gin.Context) {
	patientID, _, ok := currentUser(c)
	if !ok {
		return
	}
	goalID, ok := uuidParam(c, "goalId", "Goal")
	if !ok {
		return
	}

	var req TrackGoalRequest
	if c.Request.ContentLength > 0 && !utils.BindAndValidate(c, &req) {
		return
	}

	res, err := h.Goals.LogEntry(c.Request.Context(), patientID, goalID, req.Value)
	if err != nil {
		respondGoalError(c, err)
		return
	}

	utils.Created(c, "Progress logged successfully", res)
}
