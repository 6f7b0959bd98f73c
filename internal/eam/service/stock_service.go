package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/bitfantasy/nimo-eam/internal/eam/entity"
	"github.com/bitfantasy/nimo-eam/internal/eam/repository"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// 数量统一保留4位小数，避免多次小额扣减的浮点漂移
const qtyPrecision = 4

// StockService 库存台账与出库单服务
type StockService struct {
	repo *repository.StockRepository
}

// NewStockService 创建库存服务
func NewStockService(repo *repository.StockRepository) *StockService {
	return &StockService{repo: repo}
}

// === 台账 ===

// GetItem 耗材详情
func (s *StockService) GetItem(ctx context.Context, id string) (*entity.StockItem, error) {
	return s.repo.FindItemByID(ctx, id)
}

// ListItems 耗材列表
func (s *StockService) ListItems(ctx context.Context, page, pageSize int, keyword string) ([]entity.StockItem, int64, error) {
	return s.repo.ListItems(ctx, page, pageSize, keyword)
}

// GetAlerts 低库存预警
func (s *StockService) GetAlerts(ctx context.Context) ([]entity.StockItem, error) {
	return s.repo.GetAlerts(ctx)
}

// ListTransactions 库存流水
func (s *StockService) ListTransactions(ctx context.Context, itemID string, page, pageSize int) ([]entity.StockTransaction, int64, error) {
	return s.repo.ListTransactions(ctx, itemID, page, pageSize)
}

// CreateItemRequest 创建耗材请求
type CreateItemRequest struct {
	Code          string          `json:"code" binding:"required"`
	Name          string          `json:"name" binding:"required"`
	Specification string          `json:"specification"`
	Unit          string          `json:"unit"`
	OnHand        decimal.Decimal `json:"on_hand"`
	SafetyStock   decimal.Decimal `json:"safety_stock"`
}

// CreateItem 创建耗材
func (s *StockService) CreateItem(ctx context.Context, req CreateItemRequest) (*entity.StockItem, error) {
	if req.OnHand.IsNegative() {
		return nil, preconditionFailed("期初库存不能为负数")
	}
	unit := req.Unit
	if unit == "" {
		unit = "pcs"
	}
	item := &entity.StockItem{
		Code:          req.Code,
		Name:          req.Name,
		Specification: req.Specification,
		Unit:          unit,
		OnHand:        req.OnHand.Round(qtyPrecision),
		SafetyStock:   req.SafetyStock.Round(qtyPrecision),
	}
	if err := s.repo.CreateItem(ctx, item); err != nil {
		return nil, fmt.Errorf("创建耗材失败: %w", err)
	}
	return item, nil
}

// debit 事务内扣减库存；余额不足返回错误，不产生部分写
func (s *StockService) debit(tx *gorm.DB, item *entity.StockItem, qty decimal.Decimal) error {
	next := item.OnHand.Sub(qty).Round(qtyPrecision)
	if next.IsNegative() {
		return &InsufficientStockError{Shortfalls: []Shortfall{{
			ItemID:    item.ID,
			ItemCode:  item.Code,
			ItemName:  item.Name,
			Requested: qty,
			OnHand:    item.OnHand,
			Short:     qty.Sub(item.OnHand).Round(qtyPrecision),
		}}}
	}
	now := time.Now()
	item.OnHand = next
	item.LastMovedAt = &now
	return s.repo.UpdateItem(tx, item)
}

// credit 事务内回补库存
func (s *StockService) credit(tx *gorm.DB, item *entity.StockItem, qty decimal.Decimal) error {
	now := time.Now()
	item.OnHand = item.OnHand.Add(qty).Round(qtyPrecision)
	item.LastMovedAt = &now
	return s.repo.UpdateItem(tx, item)
}

// MaterialLine 检修用料中引用台账耗材的行项
type MaterialLine struct {
	ItemID   string
	Quantity decimal.Decimal
}

// ReconcileRepairIssues 事务内按检修用料对账维修单的PENDING出库记录：
// 数量变化的行更新，删除的行置为CANCELED（保留记录），新增的行创建。
func (s *StockService) ReconcileRepairIssues(tx *gorm.DB, repairID, actorID string, lines []MaterialLine) error {
	desired := make(map[string]decimal.Decimal, len(lines))
	for _, l := range lines {
		desired[l.ItemID] = desired[l.ItemID].Add(l.Quantity).Round(qtyPrecision)
	}

	existing, err := s.repo.ListIssuesByRepair(tx, repairID, entity.IssueStatusPending)
	if err != nil {
		return fmt.Errorf("读取出库记录失败: %w", err)
	}

	now := time.Now()
	seen := make(map[string]bool, len(existing))
	for i := range existing {
		issue := &existing[i]
		want, ok := desired[issue.ItemID]
		if !ok || seen[issue.ItemID] {
			// 行项已移除或重复，撤销而非删除
			issue.Status = entity.IssueStatusCanceled
			issue.CanceledAt = &now
			if err := s.repo.UpdateIssue(tx, issue); err != nil {
				return fmt.Errorf("撤销出库记录失败: %w", err)
			}
			continue
		}
		seen[issue.ItemID] = true
		if !issue.Quantity.Equal(want) {
			issue.Quantity = want
			if err := s.repo.UpdateIssue(tx, issue); err != nil {
				return fmt.Errorf("更新出库记录失败: %w", err)
			}
		}
	}

	for itemID, qty := range desired {
		if seen[itemID] {
			continue
		}
		// 校验台账耗材存在
		if _, err := s.repo.FindItemForUpdate(tx, itemID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("耗材不存在: %s: %w", itemID, err)
			}
			return err
		}
		issue := &entity.StockIssue{
			ItemID:      itemID,
			RepairID:    &repairID,
			Quantity:    qty,
			Status:      entity.IssueStatusPending,
			RequestedBy: actorID,
			OccurredAt:  now,
		}
		if err := s.repo.CreateIssue(tx, issue); err != nil {
			return fmt.Errorf("创建出库记录失败: %w", err)
		}
	}
	return nil
}

// FinalizeRepairIssues 检修终审通过时的两段式库存落账：
// 第一遍对全部PENDING行加锁校验余额并汇总缺口，任一缺口则整体失败；
// 第二遍逐行扣减并置为APPROVED。两遍共用同一事务内的行锁，
// 并发审批同一耗材时在此串行化。
func (s *StockService) FinalizeRepairIssues(tx *gorm.DB, repairID, repairCode, actorID string) error {
	issues, err := s.repo.ListIssuesByRepair(tx, repairID, entity.IssueStatusPending)
	if err != nil {
		return fmt.Errorf("读取出库记录失败: %w", err)
	}
	if len(issues) == 0 {
		return nil
	}

	// 需求按耗材汇总
	required := make(map[string]decimal.Decimal, len(issues))
	for _, issue := range issues {
		required[issue.ItemID] = required[issue.ItemID].Add(issue.Quantity).Round(qtyPrecision)
	}

	// 固定加锁顺序，避免并发审批互相死锁
	itemIDs := make([]string, 0, len(required))
	for id := range required {
		itemIDs = append(itemIDs, id)
	}
	sort.Strings(itemIDs)

	// 第一遍：加锁校验，汇总全部缺口
	items := make(map[string]*entity.StockItem, len(itemIDs))
	var shortfalls []Shortfall
	for _, id := range itemIDs {
		item, err := s.repo.FindItemForUpdate(tx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("耗材不存在: %s: %w", id, err)
			}
			return err
		}
		items[id] = item
		need := required[id]
		if item.OnHand.LessThan(need) {
			shortfalls = append(shortfalls, Shortfall{
				ItemID:    item.ID,
				ItemCode:  item.Code,
				ItemName:  item.Name,
				Requested: need,
				OnHand:    item.OnHand,
				Short:     need.Sub(item.OnHand).Round(qtyPrecision),
			})
		}
	}
	if len(shortfalls) > 0 {
		return &InsufficientStockError{Shortfalls: shortfalls}
	}

	// 第二遍：扣减落账
	now := time.Now()
	for _, id := range itemIDs {
		item := items[id]
		if err := s.debit(tx, item, required[id]); err != nil {
			return err
		}
		if err := s.repo.CreateTransaction(tx, &entity.StockTransaction{
			ItemID:        item.ID,
			ItemCode:      item.Code,
			ItemName:      item.Name,
			Type:          entity.TxTypeRepairOut,
			Quantity:      required[id].Neg(),
			ReferenceType: "REPAIR",
			ReferenceID:   repairID,
			ReferenceCode: repairCode,
			CreatedBy:     actorID,
		}); err != nil {
			return fmt.Errorf("记录库存流水失败: %w", err)
		}
	}
	for i := range issues {
		issue := &issues[i]
		issue.Status = entity.IssueStatusApproved
		issue.ApprovedBy = &actorID
		issue.ApprovedAt = &now
		if err := s.repo.UpdateIssue(tx, issue); err != nil {
			return fmt.Errorf("更新出库记录失败: %w", err)
		}
	}
	return nil
}

// DeleteRepairIssues 删除维修单的全部出库记录（仅用于维修单级联删除）
func (s *StockService) DeleteRepairIssues(tx *gorm.DB, repairID string) error {
	return s.repo.DeleteIssuesByRepair(tx, repairID)
}

// === 独立出库单（不挂维修单） ===

// CreateIssueRequest 创建领用出库请求
type CreateIssueRequest struct {
	ItemID   string          `json:"item_id" binding:"required"`
	Quantity decimal.Decimal `json:"quantity" binding:"required"`
	Notes    string          `json:"notes"`
}

// CreateIssue 创建独立领用出库单（PENDING，不扣库存）
func (s *StockService) CreateIssue(ctx context.Context, actorID string, req CreateIssueRequest) (*entity.StockIssue, error) {
	if !req.Quantity.IsPositive() {
		return nil, preconditionFailed("出库数量必须为正数")
	}
	if _, err := s.repo.FindItemByID(ctx, req.ItemID); err != nil {
		return nil, err
	}

	issue := &entity.StockIssue{
		ItemID:      req.ItemID,
		Quantity:    req.Quantity.Round(qtyPrecision),
		Status:      entity.IssueStatusPending,
		RequestedBy: actorID,
		OccurredAt:  time.Now(),
		Notes:       req.Notes,
	}
	if err := s.repo.CreateIssue(s.repo.DB().WithContext(ctx), issue); err != nil {
		return nil, fmt.Errorf("创建出库单失败: %w", err)
	}
	return issue, nil
}

// ApproveIssue 审批独立出库单，扣减库存
func (s *StockService) ApproveIssue(ctx context.Context, id, actorID string) error {
	return s.repo.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var issue entity.StockIssue
		if err := tx.Where("id = ?", id).First(&issue).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return repository.ErrNotFound
			}
			return err
		}
		if issue.Status != entity.IssueStatusPending {
			return invalidTransition("出库单当前状态 %s 不允许审批", issue.Status)
		}

		item, err := s.repo.FindItemForUpdate(tx, issue.ItemID)
		if err != nil {
			return err
		}
		if err := s.debit(tx, item, issue.Quantity); err != nil {
			return err
		}

		now := time.Now()
		issue.Status = entity.IssueStatusApproved
		issue.ApprovedBy = &actorID
		issue.ApprovedAt = &now
		if err := s.repo.UpdateIssue(tx, &issue); err != nil {
			return err
		}
		return s.repo.CreateTransaction(tx, &entity.StockTransaction{
			ItemID:        item.ID,
			ItemCode:      item.Code,
			ItemName:      item.Name,
			Type:          entity.TxTypeIssueOut,
			Quantity:      issue.Quantity.Neg(),
			ReferenceType: "ISSUE",
			ReferenceID:   issue.ID,
			CreatedBy:     actorID,
		})
	})
}

// CancelIssue 撤销出库单；已扣库存的先回补再置为CANCELED
func (s *StockService) CancelIssue(ctx context.Context, id, actorID string) error {
	return s.repo.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var issue entity.StockIssue
		if err := tx.Where("id = ?", id).First(&issue).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return repository.ErrNotFound
			}
			return err
		}
		if issue.Status == entity.IssueStatusCanceled {
			return invalidTransition("出库单已撤销")
		}

		if issue.Status == entity.IssueStatusApproved {
			item, err := s.repo.FindItemForUpdate(tx, issue.ItemID)
			if err != nil {
				return err
			}
			if err := s.credit(tx, item, issue.Quantity); err != nil {
				return err
			}
			refType := "ISSUE"
			refID := issue.ID
			if issue.RepairID != nil {
				refType = "REPAIR"
				refID = *issue.RepairID
			}
			if err := s.repo.CreateTransaction(tx, &entity.StockTransaction{
				ItemID:        item.ID,
				ItemCode:      item.Code,
				ItemName:      item.Name,
				Type:          entity.TxTypeCancelIn,
				Quantity:      issue.Quantity,
				ReferenceType: refType,
				ReferenceID:   refID,
				CreatedBy:     actorID,
			}); err != nil {
				return err
			}
		}

		now := time.Now()
		issue.Status = entity.IssueStatusCanceled
		issue.CanceledAt = &now
		return s.repo.UpdateIssue(tx, &issue)
	})
}

// ReceiveRequest 入库请求
type ReceiveRequest struct {
	ItemID   string          `json:"item_id" binding:"required"`
	Quantity decimal.Decimal `json:"quantity" binding:"required"`
	Notes    string          `json:"notes"`
}

// Receive 耗材入库
func (s *StockService) Receive(ctx context.Context, actorID string, req ReceiveRequest) error {
	if !req.Quantity.IsPositive() {
		return preconditionFailed("入库数量必须为正数")
	}
	return s.repo.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := s.repo.FindItemForUpdate(tx, req.ItemID)
		if err != nil {
			return err
		}
		if err := s.credit(tx, item, req.Quantity.Round(qtyPrecision)); err != nil {
			return err
		}
		return s.repo.CreateTransaction(tx, &entity.StockTransaction{
			ItemID:        item.ID,
			ItemCode:      item.Code,
			ItemName:      item.Name,
			Type:          entity.TxTypeReceiptIn,
			Quantity:      req.Quantity.Round(qtyPrecision),
			ReferenceType: "RECEIPT",
			ReferenceID:   item.ID,
			Notes:         req.Notes,
			CreatedBy:     actorID,
		})
	})
}

// ListIssues 出库单列表
func (s *StockService) ListIssues(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.StockIssue, int64, error) {
	return s.repo.ListIssues(ctx, page, pageSize, filters)
}

// GetIssue 出库单详情
func (s *StockService) GetIssue(ctx context.Context, id string) (*entity.StockIssue, error) {
	return s.repo.FindIssueByID(ctx, id)
}
