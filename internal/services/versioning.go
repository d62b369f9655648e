package services

import (
	"time"

	apperrors "bhms/pkg/errors"

	"gorm.io/gorm"
)

// updateVersioned 乐观锁更新：仅当版本号未变化时写入，并把版本号加一
func updateVersioned(tx *gorm.DB, model interface{}, resource string, id, version uint, updates map[string]interface{}) error {
	updates["version"] = gorm.Expr("version + ?", 1)
	updates["updated_at"] = time.Now()

	res := tx.Model(model).Where("id = ? AND version = ?", id, version).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.NewConflict("%s已被其他人修改，请刷新后重试", resource)
	}
	return nil
}

// checkVersion 读取后立即比较版本号，避免在过期数据上做无谓的校验
func checkVersion(resource string, current, expected uint) error {
	if current != expected {
		return apperrors.NewConflict("%s已被其他人修改，请刷新后重试", resource)
	}
	return nil
}
