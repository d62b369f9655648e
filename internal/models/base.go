package models

import (
	"time"

	"gorm.io/gorm"
)

// BaseModel 基础模型
type BaseModel struct {
	ID        uint      `json:"id" gorm:"primarykey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RecordState 记录生命周期状态
type RecordState string

// 记录状态常量
const (
	RecordActive  RecordState = "active"
	RecordDeleted RecordState = "deleted" // 软删除后的墓碑状态
)

// Lifecycle 软删除生命周期，删除后记录保留但不再出现在任何查询中
type Lifecycle struct {
	State     RecordState `json:"state" gorm:"size:20;not null;index"`
	DeletedAt *time.Time  `json:"deleted_at,omitempty"`
}

// IsLive 记录是否未被删除
func (l *Lifecycle) IsLive() bool {
	return l.State == RecordActive
}

// MarkDeleted 标记为已删除
func (l *Lifecycle) MarkDeleted(at time.Time) {
	l.State = RecordDeleted
	l.DeletedAt = &at
}

// Live 只查询未删除的记录，table 为空时不加表名前缀
func Live(table string) func(db *gorm.DB) *gorm.DB {
	column := "state"
	if table != "" {
		column = table + ".state"
	}
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(column+" = ?", RecordActive)
	}
}
