package handler

import (
	"github.com/bitfantasy/nimo-eam/internal/eam/service"
	"github.com/bitfantasy/nimo-eam/internal/eam/workflow"
	"github.com/gin-gonic/gin"
)

// RepairHandler 维修单处理器
type RepairHandler struct {
	svc *service.RepairService
}

// NewRepairHandler 创建维修单处理器
func NewRepairHandler(svc *service.RepairService) *RepairHandler {
	return &RepairHandler{svc: svc}
}

// List 维修单列表
// GET /api/v1/repairs
func (h *RepairHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := filterParams(c, "status_request", "status_inspection", "status_acceptance", "device_id", "created_by", "keyword")

	orders, total, err := h.svc.List(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		InternalError(c, "获取维修单列表失败: "+err.Error())
		return
	}
	Success(c, ListData(orders, page, pageSize, total))
}

// Get 维修单详情
// GET /api/v1/repairs/:id
func (h *RepairHandler) Get(c *gin.Context) {
	order, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, order)
}

// Create 创建维修单
// POST /api/v1/repairs
func (h *RepairHandler) Create(c *gin.Context) {
	var req service.CreateRepairRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	order, err := h.svc.Create(c.Request.Context(), GetUserID(c), req)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Created(c, order)
}

// SaveRequest 修改报修信息
// PUT /api/v1/repairs/:id/request
func (h *RepairHandler) SaveRequest(c *gin.Context) {
	var req service.SaveRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	order, err := h.svc.SaveRequest(c.Request.Context(), c.Param("id"), GetUserID(c), req)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, order)
}

// SaveInspection 保存检修数据
// PUT /api/v1/repairs/:id/inspection
func (h *RepairHandler) SaveInspection(c *gin.Context) {
	var req service.SaveInspectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	order, err := h.svc.SaveInspection(c.Request.Context(), c.Param("id"), GetUserID(c), req)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, order)
}

// SaveAcceptance 保存验收数据
// PUT /api/v1/repairs/:id/acceptance
func (h *RepairHandler) SaveAcceptance(c *gin.Context) {
	var req service.SaveAcceptanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	order, err := h.svc.SaveAcceptance(c.Request.Context(), c.Param("id"), GetUserID(c), req)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, order)
}

// ReviewRequest 审批请求
type ReviewRequest struct {
	Action string `json:"action" binding:"required"` // approve | reject
	Reason string `json:"reason"`
}

// Review 审批一个阶段
// POST /api/v1/repairs/:id/review/:phase
func (h *RepairHandler) Review(c *gin.Context) {
	phase, err := workflow.ParsePhase(c.Param("phase"))
	if err != nil {
		BadRequest(c, err.Error())
		return
	}

	var req ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	action, err := workflow.ParseAction(req.Action)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}

	order, err := h.svc.Review(c.Request.Context(), c.Param("id"), phase, action, req.Reason, GetUserID(c))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, order)
}

// RequestLimitedUse 申请限制性使用
// POST /api/v1/repairs/:id/limited-use
func (h *RepairHandler) RequestLimitedUse(c *gin.Context) {
	order, err := h.svc.RequestLimitedUse(c.Request.Context(), c.Param("id"), GetUserID(c))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, order)
}

// ReviewLimitedUseRequest 限制性使用审批请求
type ReviewLimitedUseRequest struct {
	Approve bool   `json:"approve"`
	Reason  string `json:"reason"`
}

// ReviewLimitedUse 审批限制性使用申请
// POST /api/v1/repairs/:id/limited-use/review
func (h *RepairHandler) ReviewLimitedUse(c *gin.Context) {
	var req ReviewLimitedUseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	order, err := h.svc.ReviewLimitedUse(c.Request.Context(), c.Param("id"), GetUserID(c), req.Approve, req.Reason)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, order)
}

// Delete 删除维修单
// DELETE /api/v1/repairs/:id
func (h *RepairHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, nil)
}
