package errors

import (
	stderrors "errors"
	"fmt"
)

// ========== 业务错误类型 ==========

// ValidationError 输入格式或取值范围错误
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return e.Field + ": " + e.Message
	}
	return e.Message
}

// ConflictError 与现有数据冲突：合同时间重叠、并发修改、唯一字段重复
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// NotFoundError 实体不存在或已被删除
type NotFoundError struct {
	Resource string
	ID       uint
}

func (e *NotFoundError) Error() string {
	if e.ID == 0 {
		return e.Resource + "不存在"
	}
	return fmt.Sprintf("%s不存在: %d", e.Resource, e.ID)
}

// ForbiddenError 角色无权执行该操作
type ForbiddenError struct {
	Message string
}

func (e *ForbiddenError) Error() string { return e.Message }

// NewValidation 创建校验错误
func NewValidation(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// NewConflict 创建冲突错误
func NewConflict(format string, args ...interface{}) error {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// NewNotFound 创建不存在错误
func NewNotFound(resource string, id uint) error {
	return &NotFoundError{Resource: resource, ID: id}
}

// NewForbidden 创建权限错误
func NewForbidden(format string, args ...interface{}) error {
	return &ForbiddenError{Message: fmt.Sprintf(format, args...)}
}

// CodeOf 返回错误对应的响应码，非业务错误返回 CodeServerError
func CodeOf(err error) int {
	var (
		ve *ValidationError
		ce *ConflictError
		ne *NotFoundError
		fe *ForbiddenError
	)
	switch {
	case err == nil:
		return CodeSuccess
	case stderrors.As(err, &ve):
		return CodeInvalidParam
	case stderrors.As(err, &ce):
		return CodeConflict
	case stderrors.As(err, &ne):
		return CodeNotFound
	case stderrors.As(err, &fe):
		return CodeForbidden
	default:
		return CodeServerError
	}
}

// IsValidation 判断是否为校验错误
func IsValidation(err error) bool {
	var ve *ValidationError
	return stderrors.As(err, &ve)
}

// IsConflict 判断是否为冲突错误
func IsConflict(err error) bool {
	var ce *ConflictError
	return stderrors.As(err, &ce)
}

// IsNotFound 判断是否为不存在错误
func IsNotFound(err error) bool {
	var ne *NotFoundError
	return stderrors.As(err, &ne)
}

// IsForbidden 判断是否为权限错误
func IsForbidden(err error) bool {
	var fe *ForbiddenError
	return stderrors.As(err, &fe)
}
