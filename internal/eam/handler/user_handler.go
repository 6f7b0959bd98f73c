package handler

import (
	"github.com/bitfantasy/nimo-eam/internal/eam/entity"
	"github.com/bitfantasy/nimo-eam/internal/eam/service"
	"github.com/gin-gonic/gin"
)

// UserHandler 用户处理器
type UserHandler struct {
	svc *service.UserService
}

// NewUserHandler 创建用户处理器
func NewUserHandler(svc *service.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

// List 用户列表
// GET /api/v1/users
func (h *UserHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := filterParams(c, "role", "department_id", "status", "keyword")

	users, total, err := h.svc.List(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		InternalError(c, "获取用户列表失败: "+err.Error())
		return
	}
	Success(c, ListData(users, page, pageSize, total))
}

// Get 用户详情
// GET /api/v1/users/:id
func (h *UserHandler) Get(c *gin.Context) {
	user, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, user)
}

// Create 创建用户（仅管理员）
// POST /api/v1/users
func (h *UserHandler) Create(c *gin.Context) {
	var req service.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	user, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Created(c, user)
}

// Update 更新用户（仅管理员）
// PUT /api/v1/users/:id
func (h *UserHandler) Update(c *gin.Context) {
	var req service.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	user, err := h.svc.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, user)
}

// SetSignatureRequest 登记电子签名请求
type SetSignatureRequest struct {
	SignatureURL string `json:"signature_url" binding:"required"`
}

// SetSignature 登记本人电子签名
// PUT /api/v1/users/me/signature
func (h *UserHandler) SetSignature(c *gin.Context) {
	var req SetSignatureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	user, err := h.svc.SetSignature(c.Request.Context(), GetUserID(c), req.SignatureURL)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, user)
}

// ListDepartments 部门列表
// GET /api/v1/departments
func (h *UserHandler) ListDepartments(c *gin.Context) {
	depts, err := h.svc.ListDepartments(c.Request.Context())
	if err != nil {
		InternalError(c, "获取部门列表失败: "+err.Error())
		return
	}
	Success(c, gin.H{"items": depts})
}

// CreateDepartment 创建部门（仅管理员）
// POST /api/v1/departments
func (h *UserHandler) CreateDepartment(c *gin.Context) {
	var dept entity.Department
	if err := c.ShouldBindJSON(&dept); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	if err := h.svc.CreateDepartment(c.Request.Context(), &dept); err != nil {
		HandleServiceError(c, err)
		return
	}
	Created(c, dept)
}
