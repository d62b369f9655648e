package handlers

import (
	"bhms/internal/middleware"
	"bhms/internal/services"
	"bhms/pkg/pagination"
	"bhms/pkg/response"

	"github.com/gin-gonic/gin"
)

type ContractHandler struct {
	service *services.ContractService
}

func NewContractHandler(service *services.ContractService) *ContractHandler {
	return &ContractHandler{
		service: service,
	}
}

// Create 创建合同及首笔付款
func (h *ContractHandler) Create(c *gin.Context) {
	var req services.CreateContractInput
	if !bindJSON(c, &req) {
		return
	}

	contract, err := h.service.Create(c.Request.Context(), middleware.GetPrincipal(c), req)
	if err != nil {
		response.FromError(c, err, "创建合同失败")
		return
	}
	response.Success(c, contract)
}

// GetByID 合同详情
func (h *ContractHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	contract, err := h.service.GetByID(c.Request.Context(), middleware.GetPrincipal(c), id)
	if err != nil {
		response.FromError(c, err, "查询失败")
		return
	}
	response.Success(c, contract)
}

// GetAll 分页查询，支持 room_id、tenant_id、is_active
func (h *ContractHandler) GetAll(c *gin.Context) {
	var filter services.ContractFilter
	var ok bool
	if filter.RoomID, ok = queryUint(c, "room_id"); !ok {
		return
	}
	if filter.TenantID, ok = queryUint(c, "tenant_id"); !ok {
		return
	}
	if filter.IsActive, ok = queryBool(c, "is_active"); !ok {
		return
	}
	pageParams := pagination.ParsePageParams(c)

	contracts, total, err := h.service.List(c.Request.Context(), middleware.GetPrincipal(c), filter, pageParams)
	if err != nil {
		response.FromError(c, err, "查询失败")
		return
	}

	pageInfo := pagination.NewPageInfo(pageParams.Page, pageParams.PageSize, total)
	response.SuccessWithPage(c, contracts, pageInfo)
}

// Update 修改合同
func (h *ContractHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req services.UpdateContractInput
	if !bindJSON(c, &req) {
		return
	}

	contract, err := h.service.Update(c.Request.Context(), middleware.GetPrincipal(c), id, req)
	if err != nil {
		response.FromError(c, err, "更新合同失败")
		return
	}
	response.Success(c, contract)
}

// Delete 软删除合同
func (h *ContractHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), middleware.GetPrincipal(c), id); err != nil {
		response.FromError(c, err, "删除合同失败")
		return
	}
	response.SuccessWithMessage(c, "删除成功", nil)
}
