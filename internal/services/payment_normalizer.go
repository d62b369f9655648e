package services

import (
	"time"

	"bhms/internal/models"
)

// Normalize 统一付款状态与付款日期：
// 已付款但没有日期时退回未付款；未付款或逾期时清空日期。
func Normalize(status models.PaymentStatus, paymentDate *time.Time) (models.PaymentStatus, *time.Time) {
	switch status {
	case models.PaymentPaid:
		if paymentDate == nil {
			return models.PaymentUnpaid, nil
		}
	case models.PaymentUnpaid, models.PaymentOverdue:
		return status, nil
	}
	return status, paymentDate
}

// NormalizePayment 写入前规范化付款记录，返回是否有修改
func NormalizePayment(p *models.Payment) bool {
	status, date := Normalize(p.Status, p.PaymentDate)
	changed := status != p.Status || (date == nil) != (p.PaymentDate == nil)
	p.Status, p.PaymentDate = status, date
	return changed
}
