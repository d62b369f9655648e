package models

import (
	"time"

	"gorm.io/datatypes"
)

// Contract 租赁合同，拥有其下所有付款记录
type Contract struct {
	BaseModel
	Lifecycle
	TenantID  uint           `json:"tenant_id" gorm:"not null;index"`
	Tenant    *Tenant        `json:"tenant,omitempty" gorm:"foreignKey:TenantID"`
	RoomID    uint           `json:"room_id" gorm:"not null;index"`
	Room      *Room          `json:"room,omitempty" gorm:"foreignKey:RoomID"`
	StartDate datatypes.Date `json:"start_date" gorm:"not null"`
	EndDate   datatypes.Date `json:"end_date" gorm:"not null"`
	IsActive  bool           `json:"is_active" gorm:"not null;index"`
	Version   uint           `json:"version" gorm:"not null"`
	Payments  []Payment      `json:"payments,omitempty" gorm:"foreignKey:ContractID"`
}

// TableName 表名
func (c *Contract) TableName() string {
	return "contracts"
}

// Start 开始日期
func (c *Contract) Start() time.Time {
	return time.Time(c.StartDate)
}

// End 结束日期（含当天）
func (c *Contract) End() time.Time {
	return time.Time(c.EndDate)
}

// Occupies 是否参与房间占用判断：未删除且有效
func (c *Contract) Occupies() bool {
	return c.IsLive() && c.IsActive
}
