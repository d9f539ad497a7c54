package handlers

import (
	"errors"
	"strings"

	"care-portal-server/internal/models"
	"care-portal-server/internal/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AdminHandler handles user management, doctor-patient assignment and the
// admin dashboard.
type AdminHandler struct {
	DB *gorm.DB
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(db *gorm.DB) *AdminHandler {
	return &AdminHandler{DB: db}
}

// CreateUserRequest represents the request body for creating a user by an admin.
type CreateUserRequest struct {
	FirstName      string `json:"firstName" binding:"required"`
	LastName       string `json:"lastName"`
	Email          string `json:"email" binding:"required,email"`
	Password       string `json:"password" binding:"required" validate:"strongpassword"`
	Role           string `json:"role" binding:"required,oneof=admin doctor patient"`
	PhoneNumber    string `json:"phoneNumber"`
	Specialization string `json:"specialization"`
	CurrentIssue   string `json:"currentIssue"`
}

// CreateUser creates an account of any role.
func (h *AdminHandler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	h.create(c, req)
}

// CreateDoctorRequest is CreateUserRequest without the role.
type CreateDoctorRequest struct {
	FirstName      string `json:"firstName" binding:"required"`
	LastName       string `json:"lastName"`
	Email          string `json:"email" binding:"required,email"`
	Password       string `json:"password" binding:"required" validate:"strongpassword"`
	PhoneNumber    string `json:"phoneNumber"`
	Specialization string `json:"specialization" binding:"required"`
}

// CreateDoctor creates a doctor account.
func (h *AdminHandler) CreateDoctor(c *gin.Context) {
	var req CreateDoctorRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	h.create(c, CreateUserRequest{
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Email:          req.Email,
		Password:       req.Password,
		Role:           string(models.RoleDoctor),
		PhoneNumber:    req.PhoneNumber,
		Specialization: req.Specialization,
	})
}

func (h *AdminHandler) create(c *gin.Context, req CreateUserRequest) {
	user := models.User{
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Email:          strings.ToLower(strings.TrimSpace(req.Email)),
		Role:           models.Role(req.Role),
		Status:         models.UserStatusActive,
		PhoneNumber:    req.PhoneNumber,
		Specialization: req.Specialization,
		CurrentIssue:   req.CurrentIssue,
	}
	if !createUser(c, h.DB, &user, req.Password) {
		return
	}
	utils.Created(c, "User created successfully", user.Sanitize())
}

// GetUsers lists accounts, optionally filtered by ?role=.
func (h *AdminHandler) GetUsers(c *gin.Context) {
	query := h.DB.Order("created_at desc")
	if role := c.Query("role"); role != "" {
		query = query.Where("role = ?", role)
	}

	var users []models.User
	if err := query.Find(&users).Error; err != nil {
		utils.InternalError(c, "Failed to fetch users", err)
		return
	}

	utils.Success(c, "Users fetched successfully", models.SanitizeUsers(users))
}

// GetUserByID handles fetching a single user by ID (admin).
func (h *AdminHandler) GetUserByID(c *gin.Context) {
	userID, ok := uuidParam(c, "id", "User")
	if !ok {
		return
	}

	var user models.User
	err := h.DB.First(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.NotFound(c, "User not found")
		return
	}
	if err != nil {
		utils.InternalError(c, "Database error", err)
		return
	}
	utils.Success(c, "User fetched successfully", user.Sanitize())
}

// UpdateUserRequest represents the request body for updating a user by an admin.
type UpdateUserRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email" binding:"omitempty,email"`
	Role      string `json:"role" binding:"omitempty,oneof=admin doctor patient"`
	Status    string `json:"status" binding:"omitempty,oneof=active inactive"`
}

// UpdateUser handles updating a user by ID (admin).
func (h *AdminHandler) UpdateUser(c *gin.Context) {
	userID, ok := uuidParam(c, "id", "User")
	if !ok {
		return
	}

	var req UpdateUserRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var user models.User
	if err := h.DB.First(&user, "id = ?", userID).Error; err != nil {
		utils.NotFound(c, "User not found")
		return
	}

	if req.FirstName != "" {
		user.FirstName = req.FirstName
	}
	if req.LastName != "" {
		user.LastName = req.LastName
	}
	if email := strings.ToLower(strings.TrimSpace(req.Email)); email != "" && email != user.Email {
		var taken int64
		if err := h.DB.Model(&models.User{}).Where("email = ? AND id <> ?", email, user.ID).Count(&taken).Error; err != nil {
			utils.InternalError(c, "Database error checking email", err)
			return
		}
		if taken > 0 {
			utils.Conflict(c, "New email is already in use")
			return
		}
		user.Email = email
	}
	if req.Role != "" {
		user.Role = models.Role(req.Role)
	}
	if req.Status != "" {
		user.Status = models.UserStatus(req.Status)
	}

	if err := h.DB.Save(&user).Error; err != nil {
		utils.InternalError(c, "Failed to update user", err)
		return
	}

	utils.Success(c, "User updated successfully", user.Sanitize())
}

// DeactivateUser marks an account inactive. Accounts are never hard
// deleted since goals, logs and messages reference them.
func (h *AdminHandler) DeactivateUser(c *gin.Context) {
	userID, ok := uuidParam(c, "id", "User")
	if !ok {
		return
	}

	res := h.DB.Model(&models.User{}).Where("id = ?", userID).Update("status", models.UserStatusInactive)
	if res.Error != nil {
		utils.InternalError(c, "Failed to deactivate user", res.Error)
		return
	}
	if res.RowsAffected == 0 {
		utils.NotFound(c, "User not found")
		return
	}

	utils.Success(c, "User deactivated successfully", nil)
}

// GetDoctors lists every doctor. Open to all authenticated users so
// patients can pick one when booking.
func (h *AdminHandler) GetDoctors(c *gin.Context) {
	var doctors []models.User
	err := h.DB.Where("role = ? AND status = ?", models.RoleDoctor, models.UserStatusActive).
		Order("first_name asc").
		Find(&doctors).Error
	if err != nil {
		utils.InternalError(c, "Failed to fetch doctors", err)
		return
	}

	utils.Success(c, "Doctors fetched successfully", models.SanitizeUsers(doctors))
}

// AssignPatientRequest links a patient to a doctor.
type AssignPatientRequest struct {
	DoctorID  string `json:"doctorId" binding:"required,uuid"`
	PatientID string `json:"patientId" binding:"required,uuid"`
	Status    string `json:"status" binding:"omitempty,oneof=active inactive"`
}

// AssignPatient creates or updates the assignment of a patient to a doctor.
func (h *AdminHandler) AssignPatient(c *gin.Context) {
	var req AssignPatientRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var doctor models.User
	err := h.DB.Where("id = ? AND role = ?", req.DoctorID, models.RoleDoctor).First(&doctor).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.NotFound(c, "Doctor not found")
		return
	}
	if err != nil {
		utils.InternalError(c, "Database error verifying doctor", err)
		return
	}
	if _, ok := loadPatient(c, h.DB, req.PatientID); !ok {
		return
	}

	status := models.AssignmentActive
	if req.Status != "" {
		status = models.AssignmentStatus(req.Status)
	}
	assignment := models.PatientAssignment{
		DoctorID:  req.DoctorID,
		PatientID: req.PatientID,
		Status:    status,
	}
	err = h.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "doctor_id"}, {Name: "patient_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "updated_at"}),
	}).Create(&assignment).Error
	if err != nil {
		utils.InternalError(c, "Failed to assign patient", err)
		return
	}

	if err := h.DB.Where("doctor_id = ? AND patient_id = ?", req.DoctorID, req.PatientID).First(&assignment).Error; err != nil {
		utils.InternalError(c, "Failed to load assignment", err)
		return
	}
	utils.Success(c, "Patient assigned successfully", assignment)
}

// AdminDashboard is the admin overview.
type AdminDashboard struct {
	TotalDoctors   int64                  `json:"total_doctors"`
	TotalPatients  int64                  `json:"total_patients"`
	ActivePatients int64                  `json:"active_patients"`
	ActiveGoals    int64                  `json:"active_goals"`
	RecentPatients []models.UserSanitized `json:"recent_patients"`
}

// GetDashboard returns account and goal counts with the newest patients.
func (h *AdminHandler) GetDashboard(c *gin.Context) {
	var d AdminDashboard
	counts := []struct {
		dst   *int64
		model any
		where string
		args  []any
	}{
		{&d.TotalDoctors, &models.User{}, "role = ?", []any{models.RoleDoctor}},
		{&d.TotalPatients, &models.User{}, "role = ?", []any{models.RolePatient}},
		{&d.ActivePatients, &models.User{}, "role = ? AND status = ?", []any{models.RolePatient, models.UserStatusActive}},
		{&d.ActiveGoals, &models.Goal{}, "status = ?", []any{models.GoalActive}},
	}
	for _, q := range counts {
		if err := h.DB.Model(q.model).Where(q.where, q.args...).Count(q.dst).Error; err != nil {
			utils.InternalError(c, "Failed to load dashboard", err)
			return
		}
	}

	var recent []models.User
	if err := h.DB.Where("role = ?", models.RolePatient).Order("created_at desc").Limit(5).Find(&recent).Error; err != nil {
		utils.InternalError(c, "Failed to load dashboard", err)
		return
	}
	d.RecentPatients = models.SanitizeUsers(recent)

	utils.Success(c, "Dashboard data fetched successfully", d)
}
