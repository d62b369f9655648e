package database

import (
	"bhms/internal/models"
	"bhms/pkg/logger"

	"gorm.io/gorm"
)

// Migrate 执行数据库迁移
func Migrate() error {
	return MigrateDB(DB)
}

// MigrateDB 对指定连接执行迁移
func MigrateDB(db *gorm.DB) error {
	appLogger := logger.GetLogger()
	appLogger.Info("Starting database migration...")

	// 按依赖顺序：合同引用房间和租客，付款引用合同
	err := db.AutoMigrate(
		&models.Admin{},
		&models.Room{},
		&models.Tenant{},
		&models.Contract{},
		&models.Payment{},
	)
	if err != nil {
		appLogger.Errorf("Database migration failed: %v", err)
		return err
	}

	appLogger.Info("Database migration completed successfully")
	return nil
}
