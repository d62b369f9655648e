package services

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"bhms/internal/models"
	apperrors "bhms/pkg/errors"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// fieldValidator 与 gin binding 使用同一套校验规则
var fieldValidator = validator.New()

// DateLayout 日期输入格式
const DateLayout = "2006-01-02"

// ParseDate 解析 YYYY-MM-DD，返回UTC零点
func ParseDate(field, value string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, apperrors.NewValidation(field, "日期格式错误，应为 YYYY-MM-DD")
	}
	return t.UTC(), nil
}

// parseOptionalDate 空字符串返回 nil
func parseOptionalDate(field, value string) (*time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	t, err := ParseDate(field, value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// dateOnly 去掉时分秒，统一到UTC
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ValidateDateRange 结束日期必须晚于开始日期
func ValidateDateRange(start, end time.Time) error {
	if !dateOnly(end).After(dateOnly(start)) {
		return apperrors.NewValidation("end_date", "结束日期必须晚于开始日期")
	}
	return nil
}

// Overlaps 两个闭区间 [aStart, aEnd] 与 [bStart, bEnd] 是否有交集
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !dateOnly(aStart).After(dateOnly(bEnd)) && !dateOnly(bStart).After(dateOnly(aEnd))
}

func validateLength(field, value string, min, max int) error {
	n := utf8.RuneCountInString(value)
	if n < min || n > max {
		return apperrors.NewValidation(field, "长度必须在%d-%d个字符之间", min, max)
	}
	return nil
}

func validateRoomFields(roomNumber string, price float64, status models.RoomStatus) error {
	if strings.TrimSpace(roomNumber) == "" {
		return apperrors.NewValidation("room_number", "房间号不能为空")
	}
	if err := validateLength("room_number", roomNumber, 1, 20); err != nil {
		return err
	}
	if price < 0 {
		return apperrors.NewValidation("price", "价格不能为负数")
	}
	if !status.Valid() {
		return apperrors.NewValidation("status", "状态只能是 empty、occupied 或 maintenance")
	}
	return nil
}

func validateTenantFields(fullName, phone, email string) error {
	if err := validateLength("full_name", strings.TrimSpace(fullName), 1, 100); err != nil {
		return err
	}
	if err := validateLength("phone", strings.TrimSpace(phone), 1, 10); err != nil {
		return err
	}
	if err := fieldValidator.Var(email, "required,email"); err != nil {
		return apperrors.NewValidation("email", "邮箱格式错误")
	}
	return nil
}

func validatePassword(password string) error {
	if utf8.RuneCountInString(password) < 6 {
		return apperrors.NewValidation("password", "密码至少6个字符")
	}
	return nil
}

func validatePaymentFields(amount float64, description, method string, status models.PaymentStatus) error {
	if amount <= 0 {
		return apperrors.NewValidation("amount", "金额必须大于0")
	}
	if strings.TrimSpace(description) == "" {
		return apperrors.NewValidation("description", "付款说明不能为空")
	}
	if err := validateLength("description", description, 1, 255); err != nil {
		return err
	}
	if utf8.RuneCountInString(method) > 50 {
		return apperrors.NewValidation("payment_method", "付款方式最多50个字符")
	}
	if !status.Valid() {
		return apperrors.NewValidation("status", "状态只能是 0（未付）、1（已付）或 2（逾期）")
	}
	return nil
}

// normalizeEmail 邮箱统一小写比较
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// notFound 把 gorm 的记录不存在转换为业务错误
func notFound(err error, resource string, id uint) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.NewNotFound(resource, id)
	}
	return err
}
