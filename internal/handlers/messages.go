package handlers

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"care-portal-server/internal/goals"
	"care-portal-server/internal/models"
	"care-portal-server/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MessageHandler handles messaging related requests.
type MessageHandler struct {
	DB *gorm.DB
}

// NewMessageHandler creates a new MessageHandler.
func NewMessageHandler(db *gorm.DB) *MessageHandler {
	return &MessageHandler{DB: db}
}

// SendMessageRequest represents the request body for sending a message.
type SendMessageRequest struct {
	RecipientID     string `json:"recipientId" binding:"required,uuid"`
	Content         string `json:"content" binding:"required"`
	Subject         string `json:"subject" binding:"max=255"`
	ParentMessageID string `json:"parentMessageId" binding:"omitempty,uuid"`
}

// canMessage reports whether sender may write to recipient. Admins may write
// to anyone; a doctor and a patient need an active assignment.
func (h *MessageHandler) canMessage(ctx context.Context, senderID string, senderRole models.Role, recipient *models.User) (bool, error) {
	if senderRole == models.RoleAdmin || recipient.Role == models.RoleAdmin {
		return true, nil
	}

	var doctorID, patientID string
	switch {
	case senderRole == models.RoleDoctor && recipient.Role == models.RolePatient:
		doctorID, patientID = senderID, recipient.ID
	case senderRole == models.RolePatient && recipient.Role == models.RoleDoctor:
		doctorID, patientID = recipient.ID, senderID
	default:
		return false, nil
	}

	err := goals.CheckAssignment(ctx, h.DB, doctorID, patientID)
	if errors.Is(err, goals.ErrNotAssigned) {
		return false, nil
	}
	return err == nil, err
}

// SendMessage handles sending a new message.
func (h *MessageHandler) SendMessage(c *gin.Context) {
	senderID, senderRole, ok := currentUser(c)
	if !ok {
		return
	}

	var req SendMessageRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	recipientID := strings.ToLower(req.RecipientID)
	if senderID == recipientID {
		utils.BadRequest(c, "Cannot send a message to yourself.")
		return
	}

	ctx := c.Request.Context()
	var recipient models.User
	if err := h.DB.WithContext(ctx).First(&recipient, "id = ?", recipientID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Recipient user not found")
		} else {
			utils.InternalError(c, "Database error verifying recipient", err)
		}
		return
	}

	allowed, err := h.canMessage(ctx, senderID, senderRole, &recipient)
	if err != nil {
		utils.InternalError(c, "Failed to verify assignment", err)
		return
	}
	if !allowed {
		slog.InfoContext(ctx, "message denied",
			"sender_role", senderRole, "recipient_role", recipient.Role)
		utils.Forbidden(c, "You are not authorized to send a message to this user.")
		return
	}

	message := models.Message{
		SenderID:   senderID,
		ReceiverID: recipient.ID,
		Content:    req.Content,
		Subject:    req.Subject,
		ParentID:   req.ParentMessageID,
		Status:     models.MessageStatusSent,
	}

	if err := h.DB.WithContext(ctx).Create(&message).Error; err != nil {
		utils.InternalError(c, "Failed to send message", err)
		return
	}

	utils.Created(c, "Message sent successfully", message)
}

// GetMessagesForUser lists every message the caller sent or received, or
// with ?withUser= only the conversation with that user. Received messages
// are marked read.
func (h *MessageHandler) GetMessagesForUser(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}

	db := h.DB.WithContext(c.Request.Context())
	query := db.Preload("Sender").Preload("Receiver").Order("created_at asc")

	if other := c.Query("withUser"); other != "" {
		otherID, err := uuid.Parse(other)
		if err != nil {
			utils.BadRequest(c, "Invalid 'withUser' ID format")
			return
		}
		query = query.Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
			userID, otherID.String(), otherID.String(), userID)
	} else {
		query = query.Where("sender_id = ? OR receiver_id = ?", userID, userID)
	}

	messages := []models.Message{}
	if err := query.Find(&messages).Error; err != nil {
		utils.InternalError(c, "Failed to fetch messages", err)
		return
	}

	var unread []string
	for i := range messages {
		if messages[i].ReceiverID == userID && messages[i].Status == models.MessageStatusSent {
			unread = append(unread, messages[i].ID)
		}
	}
	if len(unread) > 0 {
		now := time.Now()
		err := db.Model(&models.Message{}).
			Where("id IN ?", unread).
			Updates(map[string]any{"status": models.MessageStatusRead, "read_at": now}).Error
		if err != nil {
			utils.InternalError(c, "Failed to mark messages as read", err)
			return
		}
		for i := range messages {
			if messages[i].ReceiverID == userID && messages[i].Status == models.MessageStatusSent {
				messages[i].Status = models.MessageStatusRead
				messages[i].ReadAt = &now
			}
		}
	}

	utils.Success(c, "Messages fetched successfully", messages)
}

// ConversationPreview is the latest message exchanged with one partner.
type ConversationPreview struct {
	Partner     models.UserSanitized `json:"partner"`
	LastMessage models.Message       `json:"lastMessage"`
	UnreadCount int64                `json:"unreadCount"`
}

// GetConversations lists the caller's conversation partners with the latest
// message and unread count of each.
func (h *MessageHandler) GetConversations(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}
	db := h.DB.WithContext(c.Request.Context())

	var partnerIDs []string
	err := db.Raw(`
		SELECT DISTINCT partner_id FROM (
			SELECT receiver_id AS partner_id FROM messages WHERE sender_id = ?
			UNION
			SELECT sender_id AS partner_id FROM messages WHERE receiver_id = ?
		) AS partners
	`, userID, userID).Scan(&partnerIDs).Error
	if err != nil {
		utils.InternalError(c, "Failed to fetch conversation partners", err)
		return
	}

	previews := []ConversationPreview{}
	for _, partnerID := range partnerIDs {
		var partner models.User
		if err := db.First(&partner, "id = ?", partnerID).Error; err != nil {
			continue
		}

		var last models.Message
		err := db.Preload("Sender").Preload("Receiver").
			Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
				userID, partnerID, partnerID, userID).
			Order("created_at desc").First(&last).Error
		if err != nil {
			continue
		}

		var unread int64
		if err := db.Model(&models.Message{}).
			Where("sender_id = ? AND receiver_id = ? AND status = ?", partnerID, userID, models.MessageStatusSent).
			Count(&unread).Error; err != nil {
			utils.InternalError(c, "Failed to count unread messages", err)
			return
		}

		previews = append(previews, ConversationPreview{
			Partner:     partner.Sanitize(),
			LastMessage: last,
			UnreadCount: unread,
		})
	}

	utils.Success(c, "Conversations fetched successfully", previews)
}

// MarkMessageAsRead marks a message addressed to the caller as read.
func (h *MessageHandler) MarkMessageAsRead(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}
	messageID, ok := uuidParam(c, "messageId", "Message")
	if !ok {
		return
	}

	db := h.DB.WithContext(c.Request.Context())
	var message models.Message
	if err := db.First(&message, "id = ?", messageID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Message not found")
		} else {
			utils.InternalError(c, "Database error", err)
		}
		return
	}
	if message.ReceiverID != userID {
		utils.Forbidden(c, "You are not authorized to mark this message as read.")
		return
	}

	if message.Status == models.MessageStatusRead {
		utils.Success(c, "Message already marked as read", message)
		return
	}

	now := time.Now()
	message.Status = models.MessageStatusRead
	message.ReadAt = &now
	if err := db.Save(&message).Error; err != nil {
		utils.InternalError(c, "Failed to update message status", err)
		return
	}

	utils.Success(c, "Message marked as read successfully", message)
}

// NewMessagesRequest represents the query params for getting new messages
type NewMessagesRequest struct {
	Since string `form:"since" binding:"required"`
}

// GetNewMessages lists messages sent or received after ?since= (RFC 3339).
func (h *MessageHandler) GetNewMessages(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}

	var req NewMessagesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		utils.BadRequest(c, "since is required")
		return
	}
	since, err := time.Parse(time.RFC3339, req.Since)
	if err != nil {
		utils.BadRequest(c, "Invalid timestamp format. Use RFC3339 format (e.g., 2006-01-02T15:04:05Z07:00)")
		return
	}

	messages := []models.Message{}
	if err := h.DB.WithContext(c.Request.Context()).
		Preload("Sender").Preload("Receiver").
		Where("(receiver_id = ? OR sender_id = ?) AND created_at > ?", userID, userID, since).
		Order("created_at desc").
		Find(&messages).Error; err != nil {
		utils.InternalError(c, "Failed to fetch messages", err)
		return
	}

	utils.Success(c, "New messages fetched successfully", messages)
}

// ConversationEntry is one line of a patient's care conversation.
type ConversationEntry struct {
	ID      string      `json:"id"`
	Sender  models.Role `json:"sender"`
	Name    string      `json:"name"`
	Message string      `json:"message"`
	Time    time.Time   `json:"time"`
}

func conversationEntry(m *models.Message) ConversationEntry {
	return ConversationEntry{
		ID:      m.ID,
		Sender:  m.Sender.Role,
		Name:    m.Sender.FullName(),
		Message: m.Content,
		Time:    m.CreatedAt,
	}
}

// GetPatientConversation returns the messages between a patient and their
// doctors, oldest first. Doctors must be assigned to the patient.
func (h *MessageHandler) GetPatientConversation(c *gin.Context) {
	userID, role, ok := currentUser(c)
	if !ok {
		return
	}
	patientID, ok := uuidParam(c, "patientId", "Patient")
	if !ok {
		return
	}
	if role == models.RolePatient {
		if userID != patientID {
			utils.Forbidden(c, "Unauthorized to view this patient")
			return
		}
	} else if !requireAssignedDoctor(c, h.DB, userID, role, patientID) {
		return
	}
	if _, ok := loadPatient(c, h.DB, patientID); !ok {
		return
	}

	var messages []models.Message
	err := h.DB.WithContext(c.Request.Context()).
		Preload("Sender").
		Joins("JOIN users senders ON senders.id = messages.sender_id").
		Joins("JOIN users receivers ON receivers.id = messages.receiver_id").
		Where("(messages.sender_id = ? AND receivers.role = ?) OR (messages.receiver_id = ? AND senders.role = ?)",
			patientID, models.RoleDoctor, patientID, models.RoleDoctor).
		Order("messages.created_at asc").
		Find(&messages).Error
	if err != nil {
		utils.InternalError(c, "Failed to fetch conversations", err)
		return
	}

	entries := make([]ConversationEntry, 0, len(messages))
	for i := range messages {
		entries = append(entries, conversationEntry(&messages[i]))
	}
	utils.Success(c, "Conversations fetched successfully", entries)
}

// PatientConversationRequest is a doctor's message to a patient.
type PatientConversationRequest struct {
	Message string `json:"message" binding:"required"`
}

// PostPatientConversation sends a message from the calling doctor to an
// assigned patient.
func (h *MessageHandler) PostPatientConversation(c *gin.Context) {
	doctorID, role, ok := currentUser(c)
	if !ok {
		return
	}
	if role != models.RoleDoctor {
		utils.Forbidden(c, "Only doctors can start conversations")
		return
	}
	patientID, ok := uuidParam(c, "patientId", "Patient")
	if !ok {
		return
	}

	var req PatientConversationRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	text := strings.TrimSpace(req.Message)
	if text == "" {
		utils.BadRequest(c, "Message is required")
		return
	}

	if !requireAssignedDoctor(c, h.DB, doctorID, role, patientID) {
		return
	}
	if _, ok := loadPatient(c, h.DB, patientID); !ok {
		return
	}

	db := h.DB.WithContext(c.Request.Context())
	message := models.Message{
		SenderID:   doctorID,
		ReceiverID: patientID,
		Content:    text,
		Status:     models.MessageStatusSent,
	}
	if err := db.Create(&message).Error; err != nil {
		utils.InternalError(c, "Failed to create conversation", err)
		return
	}
	if err := db.First(&message.Sender, "id = ?", doctorID).Error; err != nil {
		utils.InternalError(c, "Failed to load sender", err)
		return
	}

	utils.Created(c, "Message sent successfully", conversationEntry(&message))
}
