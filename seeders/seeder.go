package seeders

import (
	"context"
	"errors"
	"fmt"

	"equipment-system/internal/entities"
	"equipment-system/internal/repositories"
	"equipment-system/internal/services"
	"equipment-system/pkg/config"
	apperrors "equipment-system/pkg/errors"
	"equipment-system/pkg/utils"

	"go.uber.org/zap"
)

// SeedSuperAdmin creates the configured admin account unless the email exists.
func SeedSuperAdmin(ctx context.Context, userRepo repositories.UserRepositoryInterface, cfg config.SuperAdminConfig, logger *zap.Logger) error {
	if cfg.Email == "" || cfg.Password == "" {
		return fmt.Errorf("SUPER_ADMIN_EMAIL and SUPER_ADMIN_PASSWORD must be set")
	}

	_, err := userRepo.FindByEmail(ctx, cfg.Email)
	if err == nil {
		logger.Info("super admin already exists, skipping", zap.String("email", cfg.Email))
		return nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return err
	}

	hash, err := utils.HashPassword(cfg.Password)
	if err != nil {
		return err
	}
	user, err := userRepo.CreateUser(ctx, &entities.User{
		Name:     cfg.Name,
		Email:    cfg.Email,
		Password: hash,
		Role:     entities.UserRoleAdmin,
		IsActive: true,
	})
	if err != nil {
		return fmt.Errorf("create super admin: %w", err)
	}
	logger.Info("super admin created", zap.Uint64("userID", user.ID), zap.String("email", user.Email))
	return nil
}

type demoEquipment struct {
	Type entities.EquipmentType
	Data services.EquipmentCreationData
}

var demoEquipments = []demoEquipment{
	{entities.EquipmentTypeLaptop, services.EquipmentCreationData{Name: "Dell XPS 15", Brand: "Dell", ModelName: "XPS15"}},
	{entities.EquipmentTypeLaptop, services.EquipmentCreationData{Name: "ThinkPad T14", Brand: "Lenovo", ModelName: "T14 Gen 4"}},
	{entities.EquipmentTypeMonitor, services.EquipmentCreationData{Name: "UltraSharp 27", Brand: "Dell", ModelName: "U2723QE"}},
	{entities.EquipmentTypeMonitor, services.EquipmentCreationData{Name: "LG 34 Ultrawide", Brand: "LG", ModelName: "34WN80C"}},
	{entities.EquipmentTypePrinter, services.EquipmentCreationData{Name: "Office LaserJet", Brand: "HP", ModelName: "M404dn"}},
}

// SeedDemoEquipment inserts a few available items through the factory so
// seeded rows obey the same validation as API-created ones.
func SeedDemoEquipment(ctx context.Context, equipmentRepo repositories.EquipmentRepositoryInterface, factory *services.EquipmentFactoryManager, logger *zap.Logger) error {
	for _, d := range demoEquipments {
		e, err := factory.CreateEquipment(d.Type, d.Data)
		if err != nil {
			return err
		}
		created, err := equipmentRepo.Create(ctx, e)
		if err != nil {
			return fmt.Errorf("seed equipment %q: %w", d.Data.Name, err)
		}
		logger.Info("equipment seeded", zap.Uint64("equipmentID", created.ID), zap.String("name", created.Name))
	}
	return nil
}
