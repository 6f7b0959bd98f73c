package service

import (
	"context"
	"fmt"

	"github.com/bitfantasy/nimo-eam/internal/eam/entity"
	"github.com/bitfantasy/nimo-eam/internal/eam/repository"
	"golang.org/x/crypto/bcrypt"
)

// UserService 用户管理服务
type UserService struct {
	repo *repository.UserRepository
}

// NewUserService 创建用户服务
func NewUserService(repo *repository.UserRepository) *UserService {
	return &UserService{repo: repo}
}

// Get 用户详情
func (s *UserService) Get(ctx context.Context, id string) (*entity.User, error) {
	return s.repo.FindByID(ctx, id)
}

// List 用户列表
func (s *UserService) List(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.User, int64, error) {
	return s.repo.List(ctx, page, pageSize, filters)
}

// CreateUserRequest 创建用户请求
type CreateUserRequest struct {
	Username     string `json:"username" binding:"required"`
	Password     string `json:"password" binding:"required,min=8"`
	Name         string `json:"name" binding:"required"`
	Email        string `json:"email"`
	Mobile       string `json:"mobile"`
	Role         string `json:"role"`
	DepartmentID string `json:"department_id"`
}

// Create 创建用户
func (s *UserService) Create(ctx context.Context, req CreateUserRequest) (*entity.User, error) {
	if _, err := s.repo.FindByUsername(ctx, req.Username); err == nil {
		return nil, &ConflictError{Reason: fmt.Sprintf("用户名 %s 已存在", req.Username)}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	role := req.Role
	if role == "" {
		role = entity.RoleUser
	}
	user := &entity.User{
		Username:     req.Username,
		PasswordHash: string(hash),
		Name:         req.Name,
		Email:        req.Email,
		Mobile:       req.Mobile,
		Role:         role,
		DepartmentID: req.DepartmentID,
		Status:       "active",
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("创建用户失败: %w", err)
	}
	return user, nil
}

// UpdateUserRequest 更新用户请求
type UpdateUserRequest struct {
	Name         *string `json:"name"`
	Email        *string `json:"email"`
	Mobile       *string `json:"mobile"`
	Role         *string `json:"role"`
	DepartmentID *string `json:"department_id"`
	Status       *string `json:"status"`
}

// Update 更新用户资料
func (s *UserService) Update(ctx context.Context, id string, req UpdateUserRequest) (*entity.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Email != nil {
		user.Email = *req.Email
	}
	if req.Mobile != nil {
		user.Mobile = *req.Mobile
	}
	if req.Role != nil {
		user.Role = *req.Role
	}
	if req.DepartmentID != nil {
		user.DepartmentID = *req.DepartmentID
	}
	if req.Status != nil {
		user.Status = *req.Status
	}
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("更新用户失败: %w", err)
	}
	return user, nil
}

// SetSignature 登记电子签名（审批与检修/验收录入的前置条件）
func (s *UserService) SetSignature(ctx context.Context, id, signatureURL string) (*entity.User, error) {
	if signatureURL == "" {
		return nil, preconditionFailed("签名地址不能为空")
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	user.SignatureURL = signatureURL
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("更新签名失败: %w", err)
	}
	return user, nil
}

// ListDepartments 部门列表
func (s *UserService) ListDepartments(ctx context.Context) ([]entity.Department, error) {
	return s.repo.ListDepartments(ctx)
}

// CreateDepartment 创建部门
func (s *UserService) CreateDepartment(ctx context.Context, dept *entity.Department) error {
	return s.repo.CreateDepartment(ctx, dept)
}
