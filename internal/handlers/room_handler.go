package handlers

import (
	"bhms/internal/middleware"
	"bhms/internal/services"
	"bhms/pkg/pagination"
	"bhms/pkg/response"

	"github.com/gin-gonic/gin"
)

type RoomHandler struct {
	service *services.RoomService
}

func NewRoomHandler(service *services.RoomService) *RoomHandler {
	return &RoomHandler{
		service: service,
	}
}

// Create 创建房间
func (h *RoomHandler) Create(c *gin.Context) {
	var req services.CreateRoomInput
	if !bindJSON(c, &req) {
		return
	}

	room, err := h.service.Create(c.Request.Context(), middleware.GetPrincipal(c), req)
	if err != nil {
		response.FromError(c, err, "创建房间失败")
		return
	}
	response.Success(c, room)
}

// GetByID 获取房间
func (h *RoomHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	room, err := h.service.GetByID(c.Request.Context(), middleware.GetPrincipal(c), id)
	if err != nil {
		response.FromError(c, err, "查询失败")
		return
	}
	response.Success(c, room)
}

// GetAll 分页查询，支持 status 和 keyword
func (h *RoomHandler) GetAll(c *gin.Context) {
	pageParams := pagination.ParsePageParams(c)
	filter := services.RoomFilter{
		Status:  c.Query("status"),
		Keyword: c.Query("keyword"),
	}

	rooms, total, err := h.service.List(c.Request.Context(), middleware.GetPrincipal(c), filter, pageParams)
	if err != nil {
		response.FromError(c, err, "查询失败")
		return
	}

	pageInfo := pagination.NewPageInfo(pageParams.Page, pageParams.PageSize, total)
	response.SuccessWithPage(c, rooms, pageInfo)
}

// Update 更新房间
func (h *RoomHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req services.UpdateRoomInput
	if !bindJSON(c, &req) {
		return
	}

	room, err := h.service.Update(c.Request.Context(), middleware.GetPrincipal(c), id, req)
	if err != nil {
		response.FromError(c, err, "更新房间失败")
		return
	}
	response.Success(c, room)
}

// Delete 删除房间
func (h *RoomHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), middleware.GetPrincipal(c), id); err != nil {
		response.FromError(c, err, "删除房间失败")
		return
	}
	response.SuccessWithMessage(c, "删除成功", nil)
}
