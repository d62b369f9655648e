package main

import (
	"context"
	"fmt"

	"bhms/internal/database"
	"bhms/internal/services"
	"bhms/pkg/config"
	"bhms/pkg/logger"
)

// seedData 初始化种子数据：确保配置中的管理员存在
func seedData(cfg *config.Config) error {
	appLogger := logger.GetLogger()
	appLogger.Info("Starting seed data initialization...")

	authService := services.NewAuthService(database.GetDB(), appLogger)
	admin, created, err := authService.EnsureAdmin(context.Background(), cfg.Admin.Username, cfg.Admin.Password)
	if err != nil {
		return fmt.Errorf("创建默认管理员失败: %w", err)
	}

	if created {
		appLogger.WithField("username", admin.Username).Info("Default admin created")
	} else {
		appLogger.WithField("username", admin.Username).Info("Default admin already exists")
	}
	return nil
}
