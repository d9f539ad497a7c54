package handlers

import (
	"errors"

	"care-portal-server/internal/models"
	"care-portal-server/internal/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const notificationListLimit = 50

// NotificationHandler serves the in-app notification inbox.
type NotificationHandler struct {
	DB *gorm.DB
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(db *gorm.DB) *NotificationHandler {
	return &NotificationHandler{DB: db}
}

// GetNotifications lists the caller's most recent notifications, newest first.
// ?unread=true restricts the list to unread ones.
func (h *NotificationHandler) GetNotifications(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}

	query := h.DB.WithContext(c.Request.Context()).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Limit(notificationListLimit)
	if c.Query("unread") == "true" {
		query = query.Where("is_read = ?", false)
	}

	notifications := []models.Notification{}
	if err := query.Find(&notifications).Error; err != nil {
		utils.InternalError(c, "Failed to fetch notifications", err)
		return
	}

	utils.Success(c, "Notifications fetched successfully", notifications)
}

// MarkRead marks one of the caller's notifications as read.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id", "Notification")
	if !ok {
		return
	}

	db := h.DB.WithContext(c.Request.Context())
	var n models.Notification
	err := db.First(&n, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.NotFound(c, "Notification not found")
		return
	}
	if err != nil {
		utils.InternalError(c, "Database error", err)
		return
	}
	if n.UserID != userID {
		utils.Forbidden(c, "You can only update your own notifications")
		return
	}

	if !n.IsRead {
		if err := db.Model(&n).Update("is_read", true).Error; err != nil {
			utils.InternalError(c, "Failed to update notification", err)
			return
		}
		n.IsRead = true
	}

	utils.Success(c, "Notification marked as read", n)
}
