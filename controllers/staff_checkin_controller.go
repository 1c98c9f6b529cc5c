package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/arcadelab/staff-server/middleware"
	"github.com/arcadelab/staff-server/models"
	"github.com/arcadelab/staff-server/utils"
)

// StaffCheckinController manages checkin days and staff attendance scans.
type StaffCheckinController struct {
	db *gorm.DB
}

// NewStaffCheckinController creates a new controller instance.
func NewStaffCheckinController(db *gorm.DB) *StaffCheckinController {
	return &StaffCheckinController{db: db}
}

// ListDays lists the event's checkin days, optionally including inactive ones.
func (s *StaffCheckinController) ListDays(ctx *gin.Context) {
	claims, ok := middleware.StaffClaims(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	includeInactive := strings.TrimSpace(ctx.Query("include_inactive")) == "1"

	cacheKey := "cache:days:" + claims.EventKey + ":active"
	if includeInactive {
		cacheKey = "cache:days:" + claims.EventKey + ":all"
	}
	if b, ok := utils.CacheGetBytes(cacheKey); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	items, err := models.CheckinDaysList(s.db, claims.EventKey, includeInactive)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50030, "failed to list checkin days")
		return
	}

	wrapper := utils.JSONResponse{Code: 0, Message: "success", Data: gin.H{"items": items}}
	utils.CacheSetJSON(cacheKey, wrapper, 5*time.Minute)
	utils.Success(ctx, gin.H{"items": items})
}

type createDayRequest struct {
	CheckinDate string `json:"checkin_date"`
	Title       string `json:"title"`
	Note        string `json:"note"`
}

// CreateDay upserts a checkin day on its (event, date) natural key.
func (s *StaffCheckinController) CreateDay(ctx *gin.Context) {
	claims, ok := middleware.StaffClaims(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var req createDayRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40030, "invalid request body")
		return
	}

	item, err := models.CreateCheckinDay(s.db, claims.EventKey, req.CheckinDate,
		utils.SanitizeText(req.Title), utils.SanitizeText(req.Note), claims.StaffID)
	if err != nil {
		if errors.Is(err, models.ErrInvalidDate) {
			utils.Error(ctx, http.StatusBadRequest, 40031, err.Error())
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50031, "failed to create checkin day")
		return
	}

	utils.InvalidateByPrefix("cache:days:" + claims.EventKey)
	utils.Success(ctx, gin.H{"item": item})
}

type setDayActiveRequest struct {
	IsActive bool `json:"is_active"`
}

// SetDayActive flips a day's active flag.
func (s *StaffCheckinController) SetDayActive(ctx *gin.Context) {
	claims, ok := middleware.StaffClaims(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var req setDayActiveRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40032, "invalid request body")
		return
	}

	item, err := models.SetCheckinDayActive(s.db, claims.EventKey, ctx.Param("id"), req.IsActive)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50032, "failed to update checkin day")
		return
	}
	if item == nil {
		utils.Error(ctx, http.StatusNotFound, 40430, "day not found")
		return
	}

	utils.InvalidateByPrefix("cache:days:" + claims.EventKey)
	utils.Success(ctx, gin.H{"item": item})
}

type scanRequest struct {
	RegNo       string `json:"reg_no"`
	DayID       string `json:"day_id"`
	CheckinDate string `json:"checkin_date"`
}

// Scan records a staff member's attendance for a day. The day resolves from
// an explicit day_id when supplied, otherwise from the active day matching
// the given or current UTC calendar date.
func (s *StaffCheckinController) Scan(ctx *gin.Context) {
	claims, ok := middleware.StaffClaims(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var req scanRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40033, "invalid request body")
		return
	}

	regNo := models.NormalizeRegNo(req.RegNo)
	if regNo == "" {
		utils.Error(ctx, http.StatusBadRequest, 40034, "reg_no required")
		return
	}

	member, err := models.FindStaffMemberByRegNo(s.db, claims.EventKey, regNo)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50033, "failed to look up staff member")
		return
	}
	if member == nil {
		utils.Error(ctx, http.StatusBadRequest, 40035, models.ErrUnknownStaffReg.Error())
		return
	}

	var day *models.CheckinDay
	if dayID := strings.TrimSpace(req.DayID); dayID != "" {
		day, err = models.FindDayByID(s.db, claims.EventKey, dayID)
	} else {
		dateText := strings.TrimSpace(req.CheckinDate)
		if dateText == "" {
			dateText = time.Now().UTC().Format("2006-01-02")
		}
		day, err = models.FindActiveDayByDate(s.db, claims.EventKey, dateText)
	}
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50034, "failed to resolve checkin day")
		return
	}
	if day == nil {
		utils.Error(ctx, http.StatusBadRequest, 40036, models.ErrNoActiveDay.Error())
		return
	}
	if !day.IsActive {
		utils.Error(ctx, http.StatusBadRequest, 40037, models.ErrDayInactive.Error())
		return
	}

	item, err := models.ScanStaffCheckin(s.db, claims.EventKey, day.ID, regNo, claims.StaffID, claims.Username)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50035, "failed to record staff checkin")
		return
	}

	utils.Success(ctx, gin.H{"item": item, "day": day, "member": member})
}

// MyCheckins returns the caller's own attendance history, resolved through
// the staff_reg_no on their capability grant.
func (s *StaffCheckinController) MyCheckins(ctx *gin.Context) {
	claims, ok := middleware.StaffClaims(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	staffRegNo := ""
	if claims.Access.StaffRegNo != nil {
		staffRegNo = *claims.Access.StaffRegNo
	}

	items, err := models.MyCheckins(s.db, claims.EventKey, staffRegNo, 180)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50036, "failed to list checkins")
		return
	}

	utils.Success(ctx, gin.H{
		"profile": gin.H{
			"username":     claims.Username,
			"role":         claims.Role,
			"staff_reg_no": claims.Access.StaffRegNo,
		},
		"items": items,
	})
}

// DayCheckins lists all scans recorded against one day.
func (s *StaffCheckinController) DayCheckins(ctx *gin.Context) {
	claims, ok := middleware.StaffClaims(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	day, err := models.FindDayByID(s.db, claims.EventKey, ctx.Param("id"))
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50037, "failed to look up day")
		return
	}
	if day == nil {
		utils.Error(ctx, http.StatusNotFound, 40430, "day not found")
		return
	}

	items, err := models.DayCheckinsList(s.db, claims.EventKey, day.ID)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50038, "failed to list day checkins")
		return
	}

	utils.Success(ctx, gin.H{"day": day, "items": items})
}
