package handlers

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"care-portal-server/internal/goals"
	"care-portal-server/internal/models"
	"care-portal-server/internal/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// TrackingHandler handles a patient's health measurements. Entries that
// name a goal are logged as goal progress instead.
type TrackingHandler struct {
	DB    *gorm.DB
	Goals *goals.Service
}

// NewTrackingHandler creates a new TrackingHandler.
func NewTrackingHandler(db *gorm.DB, goalService *goals.Service) *TrackingHandler {
	return &TrackingHandler{DB: db, Goals: goalService}
}

// TrackingRecordRequest creates or replaces a measurement. With GoalID set
// it logs today's progress on that goal and Type is not needed.
type TrackingRecordRequest struct {
	GoalID     string     `json:"goal_id" binding:"omitempty,uuid"`
	Type       string     `json:"type" binding:"required_without=GoalID"`
	Value      *float64   `json:"value" binding:"required_without=GoalID"`
	Unit       string     `json:"unit"`
	Notes      string     `json:"notes"`
	RecordedAt *time.Time `json:"recordedAt"`
}

// CreateRecord stores a measurement for the calling patient.
func (h *TrackingHandler) CreateRecord(c *gin.Context) {
	patientID, _, ok := currentUser(c)
	if !ok {
		return
	}

	var req TrackingRecordRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	if req.GoalID != "" {
		var value string
		if req.Value != nil {
			value = strconv.FormatFloat(*req.Value, 'f', -1, 64)
		}
		res, err := h.Goals.LogEntry(c.Request.Context(), patientID, req.GoalID, value)
		if err != nil {
			respondGoalError(c, err)
			return
		}
		utils.Created(c, "Progress logged successfully", res)
		return
	}

	record := models.TrackingRecord{
		PatientID:  patientID,
		Type:       strings.ToLower(strings.TrimSpace(req.Type)),
		Value:      *req.Value,
		Unit:       req.Unit,
		Notes:      req.Notes,
		RecordedAt: time.Now(),
	}
	if req.RecordedAt != nil {
		record.RecordedAt = *req.RecordedAt
	}

	if err := h.DB.Create(&record).Error; err != nil {
		utils.InternalError(c, "Failed to create tracking record", err)
		return
	}

	utils.Created(c, "Tracking record created successfully", record)
}

// GetRecords lists the calling patient's measurements, newest first,
// optionally filtered by ?type=.
func (h *TrackingHandler) GetRecords(c *gin.Context) {
	patientID, _, ok := currentUser(c)
	if !ok {
		return
	}

	query := h.DB.Where("patient_id = ?", patientID).Order("recorded_at desc")
	if t := c.Query("type"); t != "" {
		query = query.Where("type = ?", strings.ToLower(t))
	}

	var records []models.TrackingRecord
	if err := query.Find(&records).Error; err != nil {
		utils.InternalError(c, "Failed to fetch tracking records", err)
		return
	}

	utils.Success(c, "Tracking records fetched successfully", records)
}

// UpdateRecord replaces one of the calling patient's measurements.
func (h *TrackingHandler) UpdateRecord(c *gin.Context) {
	record, ok := h.ownedRecord(c)
	if !ok {
		return
	}

	var req TrackingRecordRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	if req.Type == "" || req.Value == nil {
		utils.BadRequest(c, "type and value are required")
		return
	}

	record.Type = strings.ToLower(strings.TrimSpace(req.Type))
	record.Value = *req.Value
	record.Unit = req.Unit
	record.Notes = req.Notes
	if req.RecordedAt != nil {
		record.RecordedAt = *req.RecordedAt
	}

	if err := h.DB.Save(record).Error; err != nil {
		utils.InternalError(c, "Failed to update tracking record", err)
		return
	}

	utils.Success(c, "Tracking record updated successfully", record)
}

// DeleteRecord removes one of the calling patient's measurements.
func (h *TrackingHandler) DeleteRecord(c *gin.Context) {
	record, ok := h.ownedRecord(c)
	if !ok {
		return
	}

	if err := h.DB.Delete(record).Error; err != nil {
		utils.InternalError(c, "Failed to delete tracking record", err)
		return
	}

	utils.Success(c, "Tracking record deleted successfully", nil)
}

func (h *TrackingHandler) ownedRecord(c *gin.Context) (*models.TrackingRecord, bool) {
	patientID, _, ok := currentUser(c)
	if !ok {
		return nil, false
	}
	id, ok := uuidParam(c, "id", "Tracking record")
	if !ok {
		return nil, false
	}

	var record models.TrackingRecord
	err := h.DB.First(&record, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.NotFound(c, "Tracking record not found")
		return nil, false
	}
	if err != nil {
		utils.InternalError(c, "Database error", err)
		return nil, false
	}
	if record.PatientID != patientID {
		utils.Forbidden(c, "You can only change your own tracking records")
		return nil, false
	}
	return &record, true
}
