package main

import (
	"github.com/arcadelab/staff-server/config"
	"github.com/arcadelab/staff-server/models"
	"github.com/arcadelab/staff-server/routes"
	"github.com/arcadelab/staff-server/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db := config.InitDatabase(
		&models.Staff{},
		&models.StaffAccess{},
		&models.Registration{},
		&models.RegistrationMember{},
		&models.Plan{},
		&models.Wallet{},
		&models.WalletTransaction{},
		&models.Game{},
		&models.RewardPreset{},
		&models.CheckinDay{},
		&models.StaffCheckin{},
		&models.StaffMember{},
		&models.StaffAuditEvent{},
	)

	r := routes.SetupRouter(db)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
