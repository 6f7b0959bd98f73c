package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockIssueStatus 出库单状态
const (
	IssueStatusPending  = "PENDING"  // 计划中，未扣库存
	IssueStatusApproved = "APPROVED" // 已扣减库存
	IssueStatusCanceled = "CANCELED"
)

// StockTransactionType 库存流水类型
const (
	TxTypeRepairOut = "REPAIR_OUT" // 维修领用出库
	TxTypeIssueOut  = "ISSUE_OUT"  // 普通领用出库
	TxTypeReceiptIn = "RECEIPT_IN" // 入库
	TxTypeCancelIn  = "CANCEL_IN"  // 撤销出库回补
	TxTypeAdjust    = "ADJUST"     // 库存调整
)

// StockItem 耗材台账
type StockItem struct {
	ID            string          `json:"id" gorm:"primaryKey;size:32"`
	Code          string          `json:"code" gorm:"size:64;not null;uniqueIndex"`
	Name          string          `json:"name" gorm:"size:200;not null"`
	Specification string          `json:"specification" gorm:"size:500"`
	Unit          string          `json:"unit" gorm:"size:20;not null;default:pcs"`
	OnHand        decimal.Decimal `json:"on_hand" gorm:"type:decimal(12,4);not null;default:0"`
	SafetyStock   decimal.Decimal `json:"safety_stock" gorm:"type:decimal(12,4);default:0"`
	LastMovedAt   *time.Time      `json:"last_moved_at"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	DeletedAt     *time.Time      `json:"deleted_at" gorm:"index"`
}

func (StockItem) TableName() string {
	return "eam_stock_items"
}

// StockIssue 出库记录；挂在维修单下表示检修用料预占，repair_id 为空表示独立领用
type StockIssue struct {
	ID          string          `json:"id" gorm:"primaryKey;size:32"`
	ItemID      string          `json:"item_id" gorm:"size:32;not null;index"`
	RepairID    *string         `json:"repair_id" gorm:"size:32;index"`
	Quantity    decimal.Decimal `json:"quantity" gorm:"type:decimal(12,4);not null"`
	Status      string          `json:"status" gorm:"size:20;not null;default:PENDING;index"`
	RequestedBy string          `json:"requested_by" gorm:"size:32;not null"`
	ApprovedBy  *string         `json:"approved_by" gorm:"size:32"`
	ApprovedAt  *time.Time      `json:"approved_at"`
	OccurredAt  time.Time       `json:"occurred_at"`
	CanceledAt  *time.Time      `json:"canceled_at"`
	Notes       string          `json:"notes" gorm:"type:text"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`

	// 关联
	Item *StockItem `json:"item,omitempty" gorm:"foreignKey:ItemID"`
}

func (StockIssue) TableName() string {
	return "eam_stock_issues"
}

// StockTransaction 库存流水，只增不改
type StockTransaction struct {
	ID            string          `json:"id" gorm:"primaryKey;size:32"`
	ItemID        string          `json:"item_id" gorm:"size:32;not null;index"`
	ItemCode      string          `json:"item_code" gorm:"size:64"`
	ItemName      string          `json:"item_name" gorm:"size:200"`
	Type          string          `json:"type" gorm:"size:20;not null"`
	Quantity      decimal.Decimal `json:"quantity" gorm:"type:decimal(12,4);not null"` // 正=入，负=出
	ReferenceType string          `json:"reference_type" gorm:"size:20"`               // REPAIR, ISSUE
	ReferenceID   string          `json:"reference_id" gorm:"size:64"`
	ReferenceCode string          `json:"reference_code" gorm:"size:50"`
	Notes         string          `json:"notes" gorm:"type:text"`
	CreatedBy     string          `json:"created_by" gorm:"size:32;not null"`
	CreatedAt     time.Time       `json:"created_at"`
}

func (StockTransaction) TableName() string {
	return "eam_stock_transactions"
}
