package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/arcadelab/staff-server/middleware"
	"github.com/arcadelab/staff-server/models"
	"github.com/arcadelab/staff-server/utils"
)

// GateController handles attendee check-in decisions at the gate.
type GateController struct {
	db *gorm.DB
}

// NewGateController creates a new controller instance.
func NewGateController(db *gorm.DB) *GateController {
	return &GateController{db: db}
}

type gateRequest struct {
	RegID  string `json:"reg_id"`
	Reason string `json:"reason"`
}

// Approve transitions a registration to CHECKED_IN.
func (g *GateController) Approve(ctx *gin.Context) {
	claims, ok := middleware.StaffClaims(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var req gateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request body")
		return
	}
	regID := strings.TrimSpace(req.RegID)
	if regID == "" {
		utils.Error(ctx, http.StatusBadRequest, 40021, "reg_id required")
		return
	}

	item, err := models.ApproveCheckin(g.db, claims.EventKey, regID, claims.StaffID, claims.Username)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50020, "failed to approve check-in")
		return
	}
	if item == nil {
		utils.Error(ctx, http.StatusNotFound, 40420, "registration not found")
		return
	}

	utils.Success(ctx, gin.H{"item": item})
}

// Reject transitions a registration to REJECTED with an optional reason.
func (g *GateController) Reject(ctx *gin.Context) {
	claims, ok := middleware.StaffClaims(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var req gateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request body")
		return
	}
	regID := strings.TrimSpace(req.RegID)
	if regID == "" {
		utils.Error(ctx, http.StatusBadRequest, 40021, "reg_id required")
		return
	}

	reason := utils.SanitizeText(strings.TrimSpace(req.Reason))

	item, err := models.RejectCheckin(g.db, claims.EventKey, regID, claims.StaffID, claims.Username, reason)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50021, "failed to reject check-in")
		return
	}
	if item == nil {
		utils.Error(ctx, http.StatusNotFound, 40420, "registration not found")
		return
	}

	utils.Success(ctx, gin.H{"item": item})
}
