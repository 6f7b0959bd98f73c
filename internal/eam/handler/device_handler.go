package handler

import (
	"github.com/bitfantasy/nimo-eam/internal/eam/service"
	"github.com/gin-gonic/gin"
)

// DeviceHandler 设备处理器
type DeviceHandler struct {
	svc *service.DeviceService
}

// NewDeviceHandler 创建设备处理器
func NewDeviceHandler(svc *service.DeviceService) *DeviceHandler {
	return &DeviceHandler{svc: svc}
}

// List 设备列表
// GET /api/v1/devices
func (h *DeviceHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := filterParams(c, "status", "department_id", "keyword")

	devices, total, err := h.svc.List(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		InternalError(c, "获取设备列表失败: "+err.Error())
		return
	}
	Success(c, ListData(devices, page, pageSize, total))
}

// Get 设备详情
// GET /api/v1/devices/:id
func (h *DeviceHandler) Get(c *gin.Context) {
	device, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, device)
}

// Create 创建设备
// POST /api/v1/devices
func (h *DeviceHandler) Create(c *gin.Context) {
	var req service.CreateDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	device, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Created(c, device)
}

// Update 更新设备台账
// PUT /api/v1/devices/:id
func (h *DeviceHandler) Update(c *gin.Context) {
	var req service.UpdateDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	device, err := h.svc.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, device)
}

// Retire 设备报废
// POST /api/v1/devices/:id/retire
func (h *DeviceHandler) Retire(c *gin.Context) {
	device, err := h.svc.Retire(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, device)
}
