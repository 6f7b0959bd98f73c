package repository

import (
	"context"
	"errors"

	"github.com/bitfantasy/nimo-eam/internal/eam/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StockRepository 库存仓储
type StockRepository struct {
	db *gorm.DB
}

// NewStockRepository 创建库存仓储
func NewStockRepository(db *gorm.DB) *StockRepository {
	return &StockRepository{db: db}
}

// DB 返回底层db用于事务
func (r *StockRepository) DB() *gorm.DB {
	return r.db
}

// FindItemByID 根据ID查找耗材
func (r *StockRepository) FindItemByID(ctx context.Context, id string) (*entity.StockItem, error) {
	var item entity.StockItem
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

// FindItemForUpdate 事务内加行锁读取耗材，用于扣减前校验
func (r *StockRepository) FindItemForUpdate(tx *gorm.DB, id string) (*entity.StockItem, error) {
	var item entity.StockItem
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

// ListItems 耗材列表
func (r *StockRepository) ListItems(ctx context.Context, page, pageSize int, keyword string) ([]entity.StockItem, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.StockItem{})
	if keyword != "" {
		like := "%" + keyword + "%"
		query = query.Where("name ILIKE ? OR code ILIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []entity.StockItem
	err := query.Order("code ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&items).Error
	return items, total, err
}

// GetAlerts 获取低于安全库存的耗材
func (r *StockRepository) GetAlerts(ctx context.Context) ([]entity.StockItem, error) {
	var items []entity.StockItem
	err := r.db.WithContext(ctx).
		Where("on_hand < safety_stock AND safety_stock > 0").
		Find(&items).Error
	return items, err
}

// CreateItem 创建耗材
func (r *StockRepository) CreateItem(ctx context.Context, item *entity.StockItem) error {
	if item.ID == "" {
		item.ID = generateID()
	}
	return r.db.WithContext(ctx).Create(item).Error
}

// UpdateItem 更新耗材
func (r *StockRepository) UpdateItem(tx *gorm.DB, item *entity.StockItem) error {
	return tx.Save(item).Error
}

// FindIssueByID 根据ID查找出库单
func (r *StockRepository) FindIssueByID(ctx context.Context, id string) (*entity.StockIssue, error) {
	var issue entity.StockIssue
	err := r.db.WithContext(ctx).
		Preload("Item").
		Where("id = ?", id).
		First(&issue).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &issue, nil
}

// ListIssuesByRepair 事务内读取维修单下指定状态的出库记录
func (r *StockRepository) ListIssuesByRepair(tx *gorm.DB, repairID string, statuses ...string) ([]entity.StockIssue, error) {
	var issues []entity.StockIssue
	query := tx.Where("repair_id = ?", repairID)
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}
	err := query.Order("created_at ASC").Find(&issues).Error
	return issues, err
}

// ListIssues 出库单列表
func (r *StockRepository) ListIssues(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.StockIssue, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.StockIssue{})
	if itemID := filters["item_id"]; itemID != "" {
		query = query.Where("item_id = ?", itemID)
	}
	if repairID := filters["repair_id"]; repairID != "" {
		query = query.Where("repair_id = ?", repairID)
	}
	if status := filters["status"]; status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var issues []entity.StockIssue
	err := query.Preload("Item").
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&issues).Error
	return issues, total, err
}

// CreateIssue 创建出库单
func (r *StockRepository) CreateIssue(tx *gorm.DB, issue *entity.StockIssue) error {
	if issue.ID == "" {
		issue.ID = generateID()
	}
	return tx.Create(issue).Error
}

// UpdateIssue 更新出库单
func (r *StockRepository) UpdateIssue(tx *gorm.DB, issue *entity.StockIssue) error {
	return tx.Save(issue).Error
}

// DeleteIssuesByRepair 事务内删除维修单下所有出库记录（删单级联）
func (r *StockRepository) DeleteIssuesByRepair(tx *gorm.DB, repairID string) error {
	return tx.Where("repair_id = ?", repairID).Delete(&entity.StockIssue{}).Error
}

// CreateTransaction 记录库存流水
func (r *StockRepository) CreateTransaction(tx *gorm.DB, t *entity.StockTransaction) error {
	if t.ID == "" {
		t.ID = generateID()
	}
	return tx.Create(t).Error
}

// ListTransactions 库存流水列表
func (r *StockRepository) ListTransactions(ctx context.Context, itemID string, page, pageSize int) ([]entity.StockTransaction, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.StockTransaction{})
	if itemID != "" {
		query = query.Where("item_id = ?", itemID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var txs []entity.StockTransaction
	err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&txs).Error
	return txs, total, err
}
