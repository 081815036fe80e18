package main

import (
	"context"
	"flag"
	"fmt"

	"equipment-system/internal/repositories"
	"equipment-system/internal/services"
	"equipment-system/migrations"
	"equipment-system/pkg/config"
	"equipment-system/pkg/database/postgresql"
	applogger "equipment-system/pkg/logger"
	"equipment-system/seeders"

	"go.uber.org/zap"
)

func main() {
	runAdmin := flag.Bool("admin", false, "create the super admin from SUPER_ADMIN_* variables")
	runEquipment := flag.Bool("equipment", false, "insert demo equipment")
	runAll := flag.Bool("all", false, "run every seeder")
	flag.Parse()

	if !*runAdmin && !*runEquipment && !*runAll {
		fmt.Println("no seeder selected; available flags:")
		flag.PrintDefaults()
		return
	}

	cfg := config.New()
	logger := applogger.NewLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	dbPool, err := postgresql.ConnectDB(ctx, cfg.Postgres.DSN, logger)
	if err != nil {
		logger.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer dbPool.Close()

	if err := migrations.Up(dbPool); err != nil {
		logger.Fatal("failed to apply migrations", zap.Error(err))
	}

	if *runAll || *runAdmin {
		userRepo := repositories.NewUserRepository(dbPool, logger)
		if err := seeders.SeedSuperAdmin(ctx, userRepo, cfg.SuperAdmin, logger); err != nil {
			logger.Fatal("super admin seeding failed", zap.Error(err))
		}
	}

	if *runAll || *runEquipment {
		equipmentRepo := repositories.NewEquipmentRepository(dbPool, logger)
		if err := seeders.SeedDemoEquipment(ctx, equipmentRepo, services.NewEquipmentFactoryManager(), logger); err != nil {
			logger.Fatal("equipment seeding failed", zap.Error(err))
		}
	}

	logger.Info("seeding finished")
}
