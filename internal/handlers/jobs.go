package handlers

import (
	"errors"

	"care-portal-server/internal/jobs"
	"care-portal-server/internal/utils"

	"github.com/gin-gonic/gin"
)

// JobHandler lets admins trigger background jobs by hand.
type JobHandler struct {
	GoalNotifications *jobs.GoalNotificationJob
}

// NewJobHandler creates a new JobHandler.
func NewJobHandler(goalNotifications *jobs.GoalNotificationJob) *JobHandler {
	return &JobHandler{GoalNotifications: goalNotifications}
}

// RunGoalNotifications runs the goal reminder sweep now and returns its
// summary.
func (h *JobHandler) RunGoalNotifications(c *gin.Context) {
	summary, err := h.GoalNotifications.Run(c.Request.Context())
	if errors.Is(err, jobs.ErrJobAlreadyRunning) {
		utils.Conflict(c, "Goal notification job is already running")
		return
	}
	if err != nil {
		utils.InternalError(c, "Goal notification job failed", err)
		return
	}

	utils.Success(c, "Goal notification job completed", summary)
}
