package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/arcadelab/staff-server/config"
	"github.com/arcadelab/staff-server/controllers"
	"github.com/arcadelab/staff-server/middleware"
	"github.com/arcadelab/staff-server/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Replace default console logger with file-based zap logger
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		// fallback to default recovery if logger failed to init
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length", middleware.SessionTokenHeader},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}

	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}

	r.Use(cors.New(corsCfg))

	r.GET("/", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"ok": true, "service": "arcade-staff-server"})
	})

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	authController := controllers.NewAuthController(db)
	walletController := controllers.NewWalletController(db)
	gateController := controllers.NewGateController(db)
	checkinController := controllers.NewStaffCheckinController(db)
	gameController := controllers.NewGameController(db)

	authGroup := r.Group("/api/staff/auth")
	authGroup.Use(middleware.RateLimitMiddleware())
	authGroup.POST("/login", authController.Login)
	authGroup.POST("/logout", middleware.StaffAuthRequired(), authController.Logout)

	staff := r.Group("/api/staff")
	staff.Use(middleware.StaffAuthRequired())

	staff.GET("/me", authController.Me)

	// Permanent staff attendance
	staff.GET("/staff-checkin/days", checkinController.ListDays)
	staff.POST("/staff-checkin/days", middleware.RequireAccess("can_manage_checkin_days"), checkinController.CreateDay)
	staff.PATCH("/staff-checkin/days/:id/active", middleware.RequireAccess("can_manage_checkin_days"), checkinController.SetDayActive)
	staff.GET("/staff-checkin/days/:id/checkins", middleware.RequireAccess("can_manage_checkin_days"), checkinController.DayCheckins)
	staff.POST("/staff-checkin/scan", middleware.RequireAccess("can_staff_checkin"), checkinController.Scan)
	staff.GET("/staff-checkin/my", checkinController.MyCheckins)

	// Wallet lookup (gate + game)
	staff.GET("/wallets/lookup", walletController.Lookup)

	// Gate check-in
	staff.POST("/checkin/approve", middleware.RequireAccess("can_gate"), gateController.Approve)
	staff.POST("/checkin/reject", middleware.RequireAccess("can_gate"), gateController.Reject)

	// Games + presets (GAME staff)
	staff.GET("/games", middleware.RequireAccess("can_game"), gameController.ListGames)
	staff.GET("/games/:gameId/presets", middleware.RequireAccess("can_game"), gameController.ListPresets)

	// Transactions
	staff.POST("/txns/debit", middleware.RequireAccess("can_game"), walletController.Debit)
	staff.POST("/txns/reward", middleware.RequireAccess("can_game"), walletController.Reward)
	staff.POST("/txns/prize-redeem", middleware.RequireAccess("can_prize"), walletController.PrizeRedeem)
	// Backward-compatible alias for older clients that still call /txns/credit.
	staff.POST("/txns/credit", middleware.RequireAccess("can_game"), walletController.Reward)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "route not found")
	})

	return r
}
