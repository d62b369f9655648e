package handlers

import (
	"strconv"

	"bhms/internal/middleware"
	"bhms/internal/models"
	"bhms/internal/services"
	"bhms/pkg/pagination"
	"bhms/pkg/response"

	"github.com/gin-gonic/gin"
)

type PaymentHandler struct {
	service *services.PaymentService
}

func NewPaymentHandler(service *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		service: service,
	}
}

// Create 新增付款记录
func (h *PaymentHandler) Create(c *gin.Context) {
	var req services.CreatePaymentInput
	if !bindJSON(c, &req) {
		return
	}

	payment, err := h.service.Create(c.Request.Context(), middleware.GetPrincipal(c), req)
	if err != nil {
		response.FromError(c, err, "创建付款记录失败")
		return
	}
	response.Success(c, payment)
}

// GetByID 获取付款记录
func (h *PaymentHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	payment, err := h.service.GetByID(c.Request.Context(), middleware.GetPrincipal(c), id)
	if err != nil {
		response.FromError(c, err, "查询失败")
		return
	}
	response.Success(c, payment)
}

// GetAll 分页查询，支持 contract_id 和 status
func (h *PaymentHandler) GetAll(c *gin.Context) {
	var filter services.PaymentFilter
	var ok bool
	if filter.ContractID, ok = queryUint(c, "contract_id"); !ok {
		return
	}
	if raw := c.Query("status"); raw != "" {
		v, err := strconv.Atoi(raw)
		status := models.PaymentStatus(v)
		if err != nil || !status.Valid() {
			response.BadRequest(c, "status 只能是 0、1 或 2")
			return
		}
		filter.Status = &status
	}
	pageParams := pagination.ParsePageParams(c)

	payments, total, err := h.service.List(c.Request.Context(), middleware.GetPrincipal(c), filter, pageParams)
	if err != nil {
		response.FromError(c, err, "查询失败")
		return
	}

	pageInfo := pagination.NewPageInfo(pageParams.Page, pageParams.PageSize, total)
	response.SuccessWithPage(c, payments, pageInfo)
}

// Update 修改付款记录
func (h *PaymentHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req services.UpdatePaymentInput
	if !bindJSON(c, &req) {
		return
	}

	payment, err := h.service.Update(c.Request.Context(), middleware.GetPrincipal(c), id, req)
	if err != nil {
		response.FromError(c, err, "更新付款记录失败")
		return
	}
	response.Success(c, payment)
}

// Pay 登记付款
func (h *PaymentHandler) Pay(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req services.PayInput
	if !bindJSON(c, &req) {
		return
	}

	payment, err := h.service.Pay(c.Request.Context(), middleware.GetPrincipal(c), id, req)
	if err != nil {
		response.FromError(c, err, "登记付款失败")
		return
	}
	response.Success(c, payment)
}

// Delete 删除付款记录
func (h *PaymentHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), middleware.GetPrincipal(c), id); err != nil {
		response.FromError(c, err, "删除付款记录失败")
		return
	}
	response.SuccessWithMessage(c, "删除成功", nil)
}
