package handler

import (
	"github.com/bitfantasy/nimo-eam/internal/eam/service"
	"github.com/gin-gonic/gin"
)

// StockHandler 库存处理器
type StockHandler struct {
	svc *service.StockService
}

// NewStockHandler 创建库存处理器
func NewStockHandler(svc *service.StockService) *StockHandler {
	return &StockHandler{svc: svc}
}

// ListItems 耗材台账列表
// GET /api/v1/stock/items
func (h *StockHandler) ListItems(c *gin.Context) {
	page, pageSize := GetPagination(c)
	items, total, err := h.svc.ListItems(c.Request.Context(), page, pageSize, c.Query("keyword"))
	if err != nil {
		InternalError(c, "获取耗材列表失败: "+err.Error())
		return
	}
	Success(c, ListData(items, page, pageSize, total))
}

// GetItem 耗材详情
// GET /api/v1/stock/items/:id
func (h *StockHandler) GetItem(c *gin.Context) {
	item, err := h.svc.GetItem(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, item)
}

// CreateItem 创建耗材
// POST /api/v1/stock/items
func (h *StockHandler) CreateItem(c *gin.Context) {
	var req service.CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	item, err := h.svc.CreateItem(c.Request.Context(), req)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Created(c, item)
}

// GetAlerts 低于安全库存的耗材
// GET /api/v1/stock/alerts
func (h *StockHandler) GetAlerts(c *gin.Context) {
	items, err := h.svc.GetAlerts(c.Request.Context())
	if err != nil {
		InternalError(c, "获取库存预警失败: "+err.Error())
		return
	}
	Success(c, gin.H{"items": items})
}

// ListTransactions 库存流水
// GET /api/v1/stock/items/:id/transactions
func (h *StockHandler) ListTransactions(c *gin.Context) {
	page, pageSize := GetPagination(c)
	txs, total, err := h.svc.ListTransactions(c.Request.Context(), c.Param("id"), page, pageSize)
	if err != nil {
		InternalError(c, "获取库存流水失败: "+err.Error())
		return
	}
	Success(c, ListData(txs, page, pageSize, total))
}

// Receive 耗材入库
// POST /api/v1/stock/receipts
func (h *StockHandler) Receive(c *gin.Context) {
	var req service.ReceiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	if err := h.svc.Receive(c.Request.Context(), GetUserID(c), req); err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, nil)
}

// ListIssues 出库单列表
// GET /api/v1/stock/issues
func (h *StockHandler) ListIssues(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := filterParams(c, "status", "item_id", "repair_id")

	issues, total, err := h.svc.ListIssues(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		InternalError(c, "获取出库单列表失败: "+err.Error())
		return
	}
	Success(c, ListData(issues, page, pageSize, total))
}

// GetIssue 出库单详情
// GET /api/v1/stock/issues/:id
func (h *StockHandler) GetIssue(c *gin.Context) {
	issue, err := h.svc.GetIssue(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, issue)
}

// CreateIssue 创建独立领用出库单
// POST /api/v1/stock/issues
func (h *StockHandler) CreateIssue(c *gin.Context) {
	var req service.CreateIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	issue, err := h.svc.CreateIssue(c.Request.Context(), GetUserID(c), req)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Created(c, issue)
}

// ApproveIssue 批准出库并扣减库存
// POST /api/v1/stock/issues/:id/approve
func (h *StockHandler) ApproveIssue(c *gin.Context) {
	if err := h.svc.ApproveIssue(c.Request.Context(), c.Param("id"), GetUserID(c)); err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, nil)
}

// CancelIssue 取消出库单；已批准的回冲库存
// POST /api/v1/stock/issues/:id/cancel
func (h *StockHandler) CancelIssue(c *gin.Context) {
	if err := h.svc.CancelIssue(c.Request.Context(), c.Param("id"), GetUserID(c)); err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, nil)
}
