package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bitfantasy/nimo-eam/internal/eam/entity"
	"gorm.io/gorm"
)

// DeviceRepository 设备仓储
type DeviceRepository struct {
	db *gorm.DB
}

// NewDeviceRepository 创建设备仓储
func NewDeviceRepository(db *gorm.DB) *DeviceRepository {
	return &DeviceRepository{db: db}
}

// FindByID 根据ID查找设备
func (r *DeviceRepository) FindByID(ctx context.Context, id string) (*entity.Device, error) {
	var device entity.Device
	err := r.db.WithContext(ctx).
		Preload("Department").
		Where("id = ?", id).
		First(&device).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &device, nil
}

// List 设备列表
func (r *DeviceRepository) List(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Device, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.Device{})
	if kw := filters["keyword"]; kw != "" {
		like := "%" + kw + "%"
		query = query.Where("name ILIKE ? OR code ILIKE ?", like, like)
	}
	if status := filters["status"]; status != "" {
		query = query.Where("status = ?", status)
	}
	if dept := filters["department_id"]; dept != "" {
		query = query.Where("department_id = ?", dept)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var devices []entity.Device
	err := query.Preload("Department").
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&devices).Error
	return devices, total, err
}

// Create 创建设备
func (r *DeviceRepository) Create(ctx context.Context, device *entity.Device) error {
	if device.ID == "" {
		device.ID = generateID()
	}
	return r.db.WithContext(ctx).Create(device).Error
}

// Update 更新设备
func (r *DeviceRepository) Update(ctx context.Context, device *entity.Device) error {
	return r.db.WithContext(ctx).Save(device).Error
}

// UpdateStatus 更新设备状态，需在调用方事务内执行
func (r *DeviceRepository) UpdateStatus(tx *gorm.DB, id, status string) error {
	return tx.Model(&entity.Device{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		}).Error
}
