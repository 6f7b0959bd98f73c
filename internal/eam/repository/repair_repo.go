package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bitfantasy/nimo-eam/internal/eam/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RepairRepository 维修单仓储
type RepairRepository struct {
	db *gorm.DB
}

// NewRepairRepository 创建维修单仓储
func NewRepairRepository(db *gorm.DB) *RepairRepository {
	return &RepairRepository{db: db}
}

// DB 返回底层db用于事务
func (r *RepairRepository) DB() *gorm.DB {
	return r.db
}

// FindByID 根据ID查找维修单（含全部行项）
func (r *RepairRepository) FindByID(ctx context.Context, id string) (*entity.RepairOrder, error) {
	var order entity.RepairOrder
	err := r.db.WithContext(ctx).
		Preload("Device").
		Preload("Creator").
		Preload("InspectionMaterials", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		Preload("InspectionMaterials.Item").
		Preload("InspectionFindings", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		Preload("AcceptanceMaterials", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

// FindByIDForUpdate 事务内加行锁读取维修单
func (r *RepairRepository) FindByIDForUpdate(tx *gorm.DB, id string) (*entity.RepairOrder, error) {
	var order entity.RepairOrder
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

// List 维修单列表
func (r *RepairRepository) List(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.RepairOrder, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.RepairOrder{})

	if kw := filters["keyword"]; kw != "" {
		like := "%" + kw + "%"
		query = query.Where("code ILIKE ? OR location_issue ILIKE ?", like, like)
	}
	if deviceID := filters["device_id"]; deviceID != "" {
		query = query.Where("device_id = ?", deviceID)
	}
	if createdBy := filters["created_by"]; createdBy != "" {
		query = query.Where("created_by = ?", createdBy)
	}
	if st := filters["status_request"]; st != "" {
		query = query.Where("status_request = ?", st)
	}
	if st := filters["status_inspection"]; st != "" {
		query = query.Where("status_inspection = ?", st)
	}
	if st := filters["status_acceptance"]; st != "" {
		query = query.Where("status_acceptance = ?", st)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []entity.RepairOrder
	err := query.
		Preload("Device").
		Preload("Creator").
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&orders).Error
	return orders, total, err
}

// Create 创建维修单
func (r *RepairRepository) Create(ctx context.Context, order *entity.RepairOrder) error {
	if order.ID == "" {
		order.ID = generateID()
	}
	return r.db.WithContext(ctx).Create(order).Error
}

// GenerateCode 生成维修单编号，后缀取自随机ID避免同日撞号
func (r *RepairRepository) GenerateCode() string {
	suffix := strings.ToUpper(generateID()[:8])
	return fmt.Sprintf("RO-%s-%s", time.Now().Format("20060102"), suffix)
}

// ReplaceInspectionMaterials 事务内整体替换检修用料行项
func (r *RepairRepository) ReplaceInspectionMaterials(tx *gorm.DB, repairID string, materials []entity.InspectionMaterial) error {
	if err := tx.Where("repair_id = ?", repairID).Delete(&entity.InspectionMaterial{}).Error; err != nil {
		return err
	}
	for i := range materials {
		materials[i].ID = generateID()
		materials[i].RepairID = repairID
		materials[i].SortOrder = i
	}
	if len(materials) == 0 {
		return nil
	}
	return tx.Create(&materials).Error
}

// ReplaceInspectionFindings 事务内整体替换检修记录
func (r *RepairRepository) ReplaceInspectionFindings(tx *gorm.DB, repairID string, findings []entity.InspectionFinding) error {
	if err := tx.Where("repair_id = ?", repairID).Delete(&entity.InspectionFinding{}).Error; err != nil {
		return err
	}
	for i := range findings {
		findings[i].ID = generateID()
		findings[i].RepairID = repairID
		findings[i].SortOrder = i
	}
	if len(findings) == 0 {
		return nil
	}
	return tx.Create(&findings).Error
}

// ListAcceptanceMaterials 事务内读取现有验收材料（用于保存时与新行项合并）
func (r *RepairRepository) ListAcceptanceMaterials(tx *gorm.DB, repairID string) ([]entity.AcceptanceMaterial, error) {
	var materials []entity.AcceptanceMaterial
	err := tx.Where("repair_id = ?", repairID).
		Order("sort_order ASC").
		Find(&materials).Error
	return materials, err
}

// ReplaceAcceptanceMaterials 事务内整体替换验收材料行项
func (r *RepairRepository) ReplaceAcceptanceMaterials(tx *gorm.DB, repairID string, materials []entity.AcceptanceMaterial) error {
	if err := tx.Where("repair_id = ?", repairID).Delete(&entity.AcceptanceMaterial{}).Error; err != nil {
		return err
	}
	for i := range materials {
		materials[i].ID = generateID()
		materials[i].RepairID = repairID
		materials[i].SortOrder = i
	}
	if len(materials) == 0 {
		return nil
	}
	return tx.Create(&materials).Error
}

// Delete 事务内删除维修单及其行项
func (r *RepairRepository) Delete(tx *gorm.DB, repairID string) error {
	if err := tx.Where("repair_id = ?", repairID).Delete(&entity.InspectionMaterial{}).Error; err != nil {
		return err
	}
	if err := tx.Where("repair_id = ?", repairID).Delete(&entity.InspectionFinding{}).Error; err != nil {
		return err
	}
	if err := tx.Where("repair_id = ?", repairID).Delete(&entity.AcceptanceMaterial{}).Error; err != nil {
		return err
	}
	return tx.Where("id = ?", repairID).Delete(&entity.RepairOrder{}).Error
}
