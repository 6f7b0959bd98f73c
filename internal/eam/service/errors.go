package service

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// InvalidTransitionError 当前阶段状态不允许该操作（状态/角色/阶段顺序不符）
type InvalidTransitionError struct {
	Reason string
}

func (e *InvalidTransitionError) Error() string {
	return e.Reason
}

func invalidTransition(format string, args ...interface{}) error {
	return &InvalidTransitionError{Reason: fmt.Sprintf(format, args...)}
}

// PreconditionError 前置条件不满足（缺少签名、缺少驳回原因、设备状态不符）
type PreconditionError struct {
	Reason string
}

func (e *PreconditionError) Error() string {
	return e.Reason
}

func preconditionFailed(format string, args ...interface{}) error {
	return &PreconditionError{Reason: fmt.Sprintf(format, args...)}
}

// ConflictError 操作与已有记录冲突（已有审批记录的维修单不可删除）
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string {
	return e.Reason
}

// Shortfall 单行库存缺口
type Shortfall struct {
	ItemID    string          `json:"item_id"`
	ItemCode  string          `json:"item_code"`
	ItemName  string          `json:"item_name"`
	Requested decimal.Decimal `json:"requested"`
	OnHand    decimal.Decimal `json:"on_hand"`
	Short     decimal.Decimal `json:"short"`
}

// InsufficientStockError 库存不足，一次性汇总全部缺口行
type InsufficientStockError struct {
	Shortfalls []Shortfall
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, 0, len(e.Shortfalls))
	for _, s := range e.Shortfalls {
		parts = append(parts, fmt.Sprintf("%s 缺 %s（需要%s, 可用%s）",
			s.ItemName, s.Short.String(), s.Requested.String(), s.OnHand.String()))
	}
	return "库存不足: " + strings.Join(parts, "; ")
}
