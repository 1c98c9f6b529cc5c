package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/arcadelab/staff-server/middleware"
	"github.com/arcadelab/staff-server/models"
	"github.com/arcadelab/staff-server/utils"
)

// GameController serves game and reward preset listings for GAME terminals.
type GameController struct {
	db *gorm.DB
}

// NewGameController creates a new controller instance.
func NewGameController(db *gorm.DB) *GameController {
	return &GameController{db: db}
}

// ListGames returns the event's active games.
func (g *GameController) ListGames(ctx *gin.Context) {
	claims, ok := middleware.StaffClaims(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	cacheKey := "cache:games:" + claims.EventKey
	if b, ok := utils.CacheGetBytes(cacheKey); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	items, err := models.ActiveGames(g.db, claims.EventKey)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50040, "failed to list games")
		return
	}

	wrapper := utils.JSONResponse{Code: 0, Message: "success", Data: gin.H{"items": items}}
	utils.CacheSetJSON(cacheKey, wrapper, 5*time.Minute)
	utils.Success(ctx, gin.H{"items": items})
}

// ListPresets returns a game's active TICKETS reward presets.
func (g *GameController) ListPresets(ctx *gin.Context) {
	claims, ok := middleware.StaffClaims(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	gameID := ctx.Param("gameId")
	cacheKey := "cache:presets:" + claims.EventKey + ":" + gameID
	if b, ok := utils.CacheGetBytes(cacheKey); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	items, err := models.ActivePresetsByGame(g.db, claims.EventKey, gameID)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50041, "failed to list presets")
		return
	}

	wrapper := utils.JSONResponse{Code: 0, Message: "success", Data: gin.H{"items": items}}
	utils.CacheSetJSON(cacheKey, wrapper, 5*time.Minute)
	utils.Success(ctx, gin.H{"items": items})
}
