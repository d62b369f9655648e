package handlers

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"bhms/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

func init() {
	// 校验错误里使用 json 字段名
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	}
}

// bindJSON 解析请求体，失败时直接返回 400 并给出第一个字段错误
func bindJSON(c *gin.Context, req interface{}) bool {
	err := c.ShouldBindJSON(req)
	if err == nil {
		return true
	}

	var validationErr validator.ValidationErrors
	if errors.As(err, &validationErr) && len(validationErr) > 0 {
		response.BadRequest(c, describeFieldError(validationErr[0])) // 只返回第一个错误
		return false
	}
	response.BadRequest(c, "请求参数格式错误")
	return false
}

func describeFieldError(fieldErr validator.FieldError) string {
	field := fieldErr.Field()
	switch fieldErr.Tag() {
	case "required":
		return fmt.Sprintf("%s: 不能为空", field)
	case "max":
		return fmt.Sprintf("%s: 不能超过 %s", field, fieldErr.Param())
	case "min":
		return fmt.Sprintf("%s: 不能小于 %s", field, fieldErr.Param())
	case "gt":
		return fmt.Sprintf("%s: 必须大于 %s", field, fieldErr.Param())
	case "email":
		return fmt.Sprintf("%s: 邮箱格式错误", field)
	case "oneof":
		return fmt.Sprintf("%s: 只能是 %s", field, fieldErr.Param())
	default:
		return fmt.Sprintf("%s: 验证失败", field)
	}
}

// parseID 解析路径中的 :id
func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		response.BadRequest(c, "ID格式错误")
		return 0, false
	}
	return uint(id), true
}

// queryUint 解析可选的数字查询参数，缺省返回 0
func queryUint(c *gin.Context, key string) (uint, bool) {
	raw := c.Query(key)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		response.BadRequest(c, key+" 格式错误")
		return 0, false
	}
	return uint(v), true
}

// queryBool 解析可选的布尔查询参数
func queryBool(c *gin.Context, key string) (*bool, bool) {
	raw := c.Query(key)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		response.BadRequest(c, key+" 格式错误")
		return nil, false
	}
	return &v, true
}
