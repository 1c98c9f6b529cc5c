package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/arcadelab/staff-server/config"
	"github.com/arcadelab/staff-server/middleware"
	"github.com/arcadelab/staff-server/models"
	"github.com/arcadelab/staff-server/utils"
)

// AuthController handles staff login/logout and session introspection.
type AuthController struct {
	db *gorm.DB
}

// NewAuthController creates a new controller instance.
func NewAuthController(db *gorm.DB) *AuthController {
	return &AuthController{db: db}
}

type loginRequest struct {
	EventKey string `json:"event_key"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login authenticates a staff member against one event and issues a session
// token carrying the resolved capability set.
func (a *AuthController) Login(ctx *gin.Context) {
	var req loginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request body")
		return
	}

	eventKey := strings.TrimSpace(req.EventKey)
	username := strings.TrimSpace(req.Username)
	if eventKey == "" || username == "" || req.Password == "" {
		utils.Error(ctx, http.StatusBadRequest, 40002, "event_key, username and password required")
		return
	}

	staff, err := models.FindStaffByUsername(a.db, eventKey, username)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50001, "failed to look up staff")
		return
	}
	if staff == nil {
		utils.Error(ctx, http.StatusUnauthorized, 40120, "invalid credentials")
		return
	}
	if !staff.IsActive {
		utils.Error(ctx, http.StatusForbidden, 40320, "staff inactive")
		return
	}
	if !utils.CheckPassword(staff.PasswordHash, req.Password) {
		utils.Error(ctx, http.StatusUnauthorized, 40120, "invalid credentials")
		return
	}

	access, err := models.ResolveStaffAccess(a.db, eventKey, staff.ID, staff.Role)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50002, "failed to resolve staff access")
		return
	}

	cfg := config.Get()
	token, err := utils.GenerateStaffToken(staff.ID, staff.Username, staff.Role, staff.EventKey,
		access, time.Duration(cfg.JWTExpiresHours)*time.Hour)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50003, "failed to issue token")
		return
	}

	utils.Success(ctx, gin.H{
		"token": token,
		"staff": gin.H{
			"id":        staff.ID,
			"username":  staff.Username,
			"role":      staff.Role,
			"full_name": staff.FullName,
			"email":     staff.Email,
			"event_key": staff.EventKey,
			"access":    access,
		},
	})
}

// Logout revokes the presented token until its natural expiration.
func (a *AuthController) Logout(ctx *gin.Context) {
	authHeader := ctx.GetHeader("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 {
		utils.Error(ctx, http.StatusBadRequest, 40003, "missing bearer token")
		return
	}
	tokenString := strings.TrimSpace(parts[1])

	claims, err := utils.ParseStaffToken(tokenString)
	if err == nil && claims.ExpiresAt != nil {
		utils.BlacklistToken(tokenString, claims.ExpiresAt.Time)
	}

	utils.Success(ctx, gin.H{"message": "logged out"})
}

// Me returns the authenticated staff identity and capability set.
func (a *AuthController) Me(ctx *gin.Context) {
	claims, ok := middleware.StaffClaims(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	utils.Success(ctx, gin.H{
		"staff": gin.H{
			"staff_id":  claims.StaffID,
			"username":  claims.Username,
			"role":      claims.Role,
			"event_key": claims.EventKey,
			"access":    claims.Access,
		},
	})
}
