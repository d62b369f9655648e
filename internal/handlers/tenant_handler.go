package handlers

import (
	"bhms/internal/middleware"
	"bhms/internal/services"
	"bhms/pkg/pagination"
	"bhms/pkg/response"

	"github.com/gin-gonic/gin"
)

type TenantHandler struct {
	service *services.TenantService
}

func NewTenantHandler(service *services.TenantService) *TenantHandler {
	return &TenantHandler{
		service: service,
	}
}

// Create 创建租客
func (h *TenantHandler) Create(c *gin.Context) {
	var req services.CreateTenantInput
	if !bindJSON(c, &req) {
		return
	}

	tenant, err := h.service.Create(c.Request.Context(), middleware.GetPrincipal(c), req)
	if err != nil {
		response.FromError(c, err, "创建租客失败")
		return
	}
	response.Success(c, tenant)
}

// GetByID 获取租客
func (h *TenantHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	tenant, err := h.service.GetByID(c.Request.Context(), middleware.GetPrincipal(c), id)
	if err != nil {
		response.FromError(c, err, "查询失败")
		return
	}
	response.Success(c, tenant)
}

// GetAll 分页查询租客
func (h *TenantHandler) GetAll(c *gin.Context) {
	pageParams := pagination.ParsePageParams(c)

	tenants, total, err := h.service.List(c.Request.Context(), middleware.GetPrincipal(c), c.Query("keyword"), pageParams)
	if err != nil {
		response.FromError(c, err, "查询失败")
		return
	}

	pageInfo := pagination.NewPageInfo(pageParams.Page, pageParams.PageSize, total)
	response.SuccessWithPage(c, tenants, pageInfo)
}

// Update 更新租客，租客本人也可以调用
func (h *TenantHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req services.UpdateTenantInput
	if !bindJSON(c, &req) {
		return
	}

	tenant, err := h.service.Update(c.Request.Context(), middleware.GetPrincipal(c), id, req)
	if err != nil {
		response.FromError(c, err, "更新租客失败")
		return
	}
	response.Success(c, tenant)
}

// Delete 删除租客
func (h *TenantHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), middleware.GetPrincipal(c), id); err != nil {
		response.FromError(c, err, "删除租客失败")
		return
	}
	response.SuccessWithMessage(c, "删除成功", nil)
}
