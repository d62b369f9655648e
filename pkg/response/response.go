package response

import (
	"net/http"

	"bhms/pkg/errors"
	"bhms/pkg/logger"
	"bhms/pkg/pagination"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Response 统一返回格式
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ========== 基础返回方法 ==========

// Success 成功返回
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    errors.CodeSuccess,
		Message: "success",
		Data:    data,
	})
}

// SuccessWithMessage 成功返回（自定义消息）
func SuccessWithMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    errors.CodeSuccess,
		Message: message,
		Data:    data,
	})
}

// SuccessWithPage 分页成功返回
func SuccessWithPage(c *gin.Context, data interface{}, pageInfo *pagination.PageInfo) {
	c.JSON(http.StatusOK, gin.H{
		"code":      errors.CodeSuccess,
		"message":   "success",
		"data":      data,
		"page_info": pageInfo,
	})
}

// Error 通用错误返回
func Error(c *gin.Context, code int, message string) {
	c.JSON(http.StatusOK, Response{
		Code:    code,
		Message: message,
	})
}

// FromError 按业务错误类型返回，未知错误记录日志后返回通用失败信息
func FromError(c *gin.Context, err error, fallback string) {
	code := errors.CodeOf(err)
	if code != errors.CodeServerError {
		Error(c, code, err.Error())
		return
	}

	logger.GetLogger().WithFields(logrus.Fields{
		"request_id": c.GetString("request_id"),
		"path":       c.FullPath(),
	}).WithError(err).Error(fallback)
	_ = c.Error(err)
	ServerError(c, fallback)
}

// ========== HTTP错误快捷方法 ==========

func BadRequest(c *gin.Context, message string) {
	Error(c, errors.CodeInvalidParam, message)
}

func Unauthorized(c *gin.Context, message string) {
	Error(c, errors.CodeUnauthorized, message)
}

func Forbidden(c *gin.Context, message string) {
	Error(c, errors.CodeForbidden, message)
}

func NotFound(c *gin.Context, message string) {
	Error(c, errors.CodeNotFound, message)
}

func Conflict(c *gin.Context, message string) {
	Error(c, errors.CodeConflict, message)
}

func TooManyRequests(c *gin.Context, message string) {
	Error(c, errors.CodeTooManyRequests, message)
}

func ServerError(c *gin.Context, message string) {
	Error(c, errors.CodeServerError, message)
}
