package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-eam/internal/eam/entity"
	"github.com/bitfantasy/nimo-eam/internal/eam/repository"
)

// DeviceService 设备台账服务
type DeviceService struct {
	repo *repository.DeviceRepository
}

// NewDeviceService 创建设备服务
func NewDeviceService(repo *repository.DeviceRepository) *DeviceService {
	return &DeviceService{repo: repo}
}

// Get 设备详情
func (s *DeviceService) Get(ctx context.Context, id string) (*entity.Device, error) {
	return s.repo.FindByID(ctx, id)
}

// List 设备列表
func (s *DeviceService) List(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Device, int64, error) {
	return s.repo.List(ctx, page, pageSize, filters)
}

// CreateDeviceRequest 创建设备请求
type CreateDeviceRequest struct {
	Code         string     `json:"code" binding:"required"`
	Name         string     `json:"name" binding:"required"`
	Model        string     `json:"model"`
	SerialNo     string     `json:"serial_no"`
	DepartmentID string     `json:"department_id"`
	Location     string     `json:"location"`
	PurchasedAt  *time.Time `json:"purchased_at"`
	Notes        string     `json:"notes"`
}

// Create 创建设备，初始状态为NEW
func (s *DeviceService) Create(ctx context.Context, req CreateDeviceRequest) (*entity.Device, error) {
	device := &entity.Device{
		Code:         req.Code,
		Name:         req.Name,
		Model:        req.Model,
		SerialNo:     req.SerialNo,
		DepartmentID: req.DepartmentID,
		Location:     req.Location,
		Status:       entity.DeviceStatusNew,
		PurchasedAt:  req.PurchasedAt,
		Notes:        req.Notes,
	}
	if err := s.repo.Create(ctx, device); err != nil {
		return nil, fmt.Errorf("创建设备失败: %w", err)
	}
	return device, nil
}

// UpdateDeviceRequest 更新设备请求
type UpdateDeviceRequest struct {
	Name         *string `json:"name"`
	Model        *string `json:"model"`
	SerialNo     *string `json:"serial_no"`
	DepartmentID *string `json:"department_id"`
	Location     *string `json:"location"`
	Notes        *string `json:"notes"`
}

// Update 更新设备台账信息（状态由维修流程驱动，不在此修改）
func (s *DeviceService) Update(ctx context.Context, id string, req UpdateDeviceRequest) (*entity.Device, error) {
	device, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		device.Name = *req.Name
	}
	if req.Model != nil {
		device.Model = *req.Model
	}
	if req.SerialNo != nil {
		device.SerialNo = *req.SerialNo
	}
	if req.DepartmentID != nil {
		device.DepartmentID = *req.DepartmentID
	}
	if req.Location != nil {
		device.Location = *req.Location
	}
	if req.Notes != nil {
		device.Notes = *req.Notes
	}
	if err := s.repo.Update(ctx, device); err != nil {
		return nil, fmt.Errorf("更新设备失败: %w", err)
	}
	return device, nil
}

// Retire 设备报废
func (s *DeviceService) Retire(ctx context.Context, id string) (*entity.Device, error) {
	device, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if device.Status == entity.DeviceStatusUnderRepair {
		return nil, invalidTransition("设备维修中，不能报废")
	}
	device.Status = entity.DeviceStatusRetired
	if err := s.repo.Update(ctx, device); err != nil {
		return nil, fmt.Errorf("更新设备失败: %w", err)
	}
	return device, nil
}
