package handlers

import (
	"errors"
	"strings"
	"time"

	"care-portal-server/internal/config"
	"care-portal-server/internal/models"
	"care-portal-server/internal/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const refreshCookieName = "refresh_token"

// AuthHandler handles authentication-related requests.
type AuthHandler struct {
	DB  *gorm.DB
	Cfg *config.Config
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(db *gorm.DB, cfg *config.Config) *AuthHandler {
	return &AuthHandler{DB: db, Cfg: cfg}
}

// SignupRequest is a patient self-registration.
type SignupRequest struct {
	FirstName    string     `json:"firstName" binding:"required"`
	LastName     string     `json:"lastName"`
	Email        string     `json:"email" binding:"required,email"`
	Password     string     `json:"password" binding:"required" validate:"strongpassword"`
	PhoneNumber  string     `json:"phoneNumber"`
	DateOfBirth  *time.Time `json:"dateOfBirth"`
	CurrentIssue string     `json:"currentIssue"`
}

// Signup registers a new patient account.
func (h *AuthHandler) Signup(c *gin.Context) {
	var req SignupRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	user := models.User{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Role:         models.RolePatient,
		Status:       models.UserStatusActive,
		PhoneNumber:  req.PhoneNumber,
		DateOfBirth:  req.DateOfBirth,
		CurrentIssue: req.CurrentIssue,
	}
	if !createUser(c, h.DB, &user, req.Password) {
		return
	}

	utils.Created(c, "User registered successfully", user.Sanitize())
}

// createUser hashes the password and stores the user, answering 409 for a
// taken email.
func createUser(c *gin.Context, db *gorm.DB, user *models.User, password string) bool {
	var existing int64
	if err := db.Model(&models.User{}).Where("email = ?", user.Email).Count(&existing).Error; err != nil {
		utils.InternalError(c, "Database error", err)
		return false
	}
	if existing > 0 {
		utils.Conflict(c, "User with this email already exists")
		return false
	}

	if err := user.SetPassword(password); err != nil {
		utils.InternalError(c, "Failed to hash password", err)
		return false
	}

	if err := db.Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			utils.Conflict(c, "User with this email already exists")
			return false
		}
		utils.InternalError(c, "Failed to create user", err)
		return false
	}
	return true
}

// LoginRequest represents the request body for user login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse represents the response body for successful login.
type LoginResponse struct {
	AccessToken  string               `json:"accessToken"`
	RefreshToken string               `json:"refreshToken"`
	User         models.UserSanitized `json:"user"`
}

// Login handles user login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var user models.User
	err := h.DB.Where("email = ?", strings.ToLower(strings.TrimSpace(req.Email))).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.Unauthorized(c, "Invalid email or password")
		return
	}
	if err != nil {
		utils.InternalError(c, "Database error", err)
		return
	}

	if !user.CheckPassword(req.Password) {
		utils.Unauthorized(c, "Invalid email or password")
		return
	}
	if user.Status == models.UserStatusInactive {
		utils.Forbidden(c, "Account is inactive")
		return
	}

	accessToken, refreshToken, ok := h.issueTokens(c, &user)
	if !ok {
		return
	}

	utils.Success(c, "Login successful", LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user.Sanitize(),
	})
}

// issueTokens signs a token pair, stores the refresh token and sets it as
// an HTTP-only cookie.
func (h *AuthHandler) issueTokens(c *gin.Context, user *models.User) (string, string, bool) {
	accessToken, refreshTokenString, err := utils.GenerateTokens(user, h.Cfg)
	if err != nil {
		utils.InternalError(c, "Failed to generate tokens", err)
		return "", "", false
	}

	refreshToken := models.RefreshToken{
		UserID:    user.ID,
		Token:     refreshTokenString,
		ExpiresAt: time.Now().Add(time.Duration(h.Cfg.JWTRefreshExpirationHours) * time.Hour),
	}
	if err := h.DB.Create(&refreshToken).Error; err != nil {
		utils.InternalError(c, "Failed to store refresh token", err)
		return "", "", false
	}

	c.SetCookie(
		refreshCookieName,
		refreshTokenString,
		h.Cfg.JWTRefreshExpirationHours*60*60,
		"/",
		"",
		h.Cfg.IsProduction(),
		true,
	)
	return accessToken, refreshTokenString, true
}

// RefreshTokenRequest represents the request body for token refresh.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// RefreshTokenResponse represents the response body for successful token refresh.
type RefreshTokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// RefreshToken rotates a refresh token into a new token pair.
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	token, err := c.Cookie(refreshCookieName)
	if err != nil || token == "" {
		var req RefreshTokenRequest
		if !utils.BindAndValidate(c, &req) {
			return
		}
		token = req.RefreshToken
	}

	claims, err := utils.ValidateToken(token, h.Cfg.JWTRefreshSecret)
	if err != nil {
		utils.Unauthorized(c, "Invalid refresh token")
		return
	}

	var storedToken models.RefreshToken
	err = h.DB.Where("token = ? AND user_id = ? AND is_revoked = ? AND expires_at > ?",
		token, claims.UserID, false, time.Now()).First(&storedToken).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.Unauthorized(c, "Refresh token not found, expired, or revoked")
		return
	}
	if err != nil {
		utils.InternalError(c, "Database error checking refresh token", err)
		return
	}

	var user models.User
	if err := h.DB.First(&user, "id = ?", claims.UserID).Error; err != nil {
		utils.Unauthorized(c, "User no longer exists")
		return
	}

	if err := h.DB.Model(&storedToken).Update("is_revoked", true).Error; err != nil {
		utils.InternalError(c, "Failed to revoke refresh token", err)
		return
	}

	accessToken, refreshToken, ok := h.issueTokens(c, &user)
	if !ok {
		return
	}

	utils.Success(c, "Access token refreshed successfully", RefreshTokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	})
}

// LogoutRequest represents the request body for user logout.
type LogoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Logout revokes the caller's refresh token.
func (h *AuthHandler) Logout(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}

	var req LogoutRequest
	_ = c.ShouldBindJSON(&req)
	token := req.RefreshToken
	if token == "" {
		token, _ = c.Cookie(refreshCookieName)
	}
	if token == "" {
		utils.BadRequest(c, "Refresh token is required")
		return
	}

	err := h.DB.Model(&models.RefreshToken{}).
		Where("token = ? AND user_id = ? AND is_revoked = ?", token, userID, false).
		Updates(map[string]any{"is_revoked": true, "expires_at": time.Now()}).Error
	if err != nil {
		utils.InternalError(c, "Failed to revoke refresh token", err)
		return
	}

	c.SetCookie(refreshCookieName, "", -1, "/", "", h.Cfg.IsProduction(), true)
	utils.Success(c, "Logout successful", nil)
}

// GetProfile handles fetching the currently authenticated user's profile.
func (h *AuthHandler) GetProfile(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}

	var user models.User
	err := h.DB.First(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.NotFound(c, "User profile not found")
		return
	}
	if err != nil {
		utils.InternalError(c, "Database error", err)
		return
	}

	utils.Success(c, "Profile fetched successfully", user.Sanitize())
}

// UpdateProfileRequest represents the request body for updating user profile.
type UpdateProfileRequest struct {
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	PhoneNumber    string `json:"phoneNumber"`
	Address        string `json:"address"`
	Specialization string `json:"specialization"`
	CurrentIssue   string `json:"currentIssue"`
}

// UpdateProfile handles updating the currently authenticated user's profile.
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	userID, role, ok := currentUser(c)
	if !ok {
		return
	}

	var req UpdateProfileRequest
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
	if req.PhoneNumber != "" {
		user.PhoneNumber = req.PhoneNumber
	}
	if req.Address != "" {
		user.Address = req.Address
	}
	if req.Specialization != "" && role == models.RoleDoctor {
		user.Specialization = req.Specialization
	}
	if req.CurrentIssue != "" && role == models.RolePatient {
		user.CurrentIssue = req.CurrentIssue
	}

	if err := h.DB.Save(&user).Error; err != nil {
		utils.InternalError(c, "Failed to update profile", err)
		return
	}

	utils.Success(c, "Profile updated successfully", user.Sanitize())
}
