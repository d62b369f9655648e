package models

import "time"

// PaymentStatus 付款状态
type PaymentStatus int

// 付款状态常量，数值与历史数据保持一致
const (
	PaymentUnpaid  PaymentStatus = 0
	PaymentPaid    PaymentStatus = 1
	PaymentOverdue PaymentStatus = 2
)

// Valid 是否为合法状态
func (s PaymentStatus) Valid() bool {
	return s >= PaymentUnpaid && s <= PaymentOverdue
}

func (s PaymentStatus) String() string {
	switch s {
	case PaymentUnpaid:
		return "unpaid"
	case PaymentPaid:
		return "paid"
	case PaymentOverdue:
		return "overdue"
	default:
		return "unknown"
	}
}

// 未付款账单的默认付款方式
const PaymentMethodInvoice = "invoice"

// Payment 付款记录
type Payment struct {
	BaseModel
	ContractID    uint          `json:"contract_id" gorm:"not null;index"`
	Contract      *Contract     `json:"contract,omitempty" gorm:"foreignKey:ContractID"`
	Amount        float64       `json:"amount" gorm:"type:decimal(12,2);not null"`
	Description   string        `json:"description" gorm:"not null;size:255"`
	Status        PaymentStatus `json:"status" gorm:"not null;index"`
	PaymentMethod string        `json:"payment_method" gorm:"size:50"`
	PaymentDate   *time.Time    `json:"payment_date"`
	Version       uint          `json:"version" gorm:"not null"`
}

// TableName 表名
func (p *Payment) TableName() string {
	return "payments"
}
