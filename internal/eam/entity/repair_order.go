package entity

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// 报修阶段状态
const (
	RequestStatusWaitingTech     = "WAITING_TECH"
	RequestStatusWaitingManager  = "WAITING_MANAGER"
	RequestStatusWaitingDirector = "WAITING_DIRECTOR"
	RequestStatusCompleted       = "COMPLETED"
	RequestStatusRejected        = "REJECTED"
)

// 检修阶段状态
const (
	InspectionStatusPending         = "PENDING"
	InspectionStatusLeadApproved    = "LEAD_APPROVED"
	InspectionStatusManagerApproved = "MANAGER_APPROVED"
	InspectionStatusAdminApproved   = "ADMIN_APPROVED"
	InspectionStatusRejected        = "REJECTED"
)

// 验收阶段状态
const (
	AcceptanceStatusPending         = "PENDING"
	AcceptanceStatusLeadApproved    = "LEAD_APPROVED"
	AcceptanceStatusManagerApproved = "MANAGER_APPROVED"
	AcceptanceStatusAccepted        = "ACCEPTED"
	AcceptanceStatusRejected        = "REJECTED"
)

// 限制性使用子流程状态
const (
	LimitedUseNone     = ""
	LimitedUsePending  = "PENDING"
	LimitedUseApproved = "APPROVED"
	LimitedUseRejected = "REJECTED"
)

// RepairOrder 维修单，三个阶段（报修/检修/验收）各自独立推进
type RepairOrder struct {
	ID                  string `json:"id" gorm:"primaryKey;size:32"`
	Code                string `json:"code" gorm:"size:50;not null;uniqueIndex"`
	DeviceID            string `json:"device_id" gorm:"size:32;not null;index"`
	CreatedBy           string `json:"created_by" gorm:"size:32;not null;index"`
	CreatedDepartmentID string `json:"created_department_id" gorm:"size:32"`

	LocationIssue  string `json:"location_issue" gorm:"type:text"`
	Recommendation string `json:"recommendation" gorm:"type:text"`
	Note           string `json:"note" gorm:"type:text"`

	StatusRequest    string `json:"status_request" gorm:"size:20;not null;default:WAITING_TECH;index"`
	StatusInspection string `json:"status_inspection" gorm:"size:20;not null;default:PENDING;index"`
	StatusAcceptance string `json:"status_acceptance" gorm:"size:20;not null;default:PENDING;index"`

	// 报修阶段审批人（各字段仅在对应节点通过时写入一次）
	RequestTechID       *string    `json:"request_tech_id" gorm:"size:32"`
	RequestTechAt       *time.Time `json:"request_tech_at"`
	RequestManagerID    *string    `json:"request_manager_id" gorm:"size:32"`
	RequestManagerAt    *time.Time `json:"request_manager_at"`
	RequestDirectorID   *string    `json:"request_director_id" gorm:"size:32"`
	RequestDirectorAt   *time.Time `json:"request_director_at"`

	// 检修阶段
	InspectionCreatedBy  *string    `json:"inspection_created_by" gorm:"size:32"`
	InspectionCreatedAt  *time.Time `json:"inspection_created_at"`
	InspectionLeadID     *string    `json:"inspection_lead_id" gorm:"size:32"`
	InspectionLeadAt     *time.Time `json:"inspection_lead_at"`
	InspectionManagerID  *string    `json:"inspection_manager_id" gorm:"size:32"`
	InspectionManagerAt  *time.Time `json:"inspection_manager_at"`
	InspectionDirectorID *string    `json:"inspection_director_id" gorm:"size:32"`
	InspectionDirectorAt *time.Time `json:"inspection_director_at"`

	// 验收阶段
	AcceptanceCreatedBy  *string    `json:"acceptance_created_by" gorm:"size:32"`
	AcceptanceCreatedAt  *time.Time `json:"acceptance_created_at"`
	AcceptanceLeadID     *string    `json:"acceptance_lead_id" gorm:"size:32"`
	AcceptanceLeadAt     *time.Time `json:"acceptance_lead_at"`
	AcceptanceManagerID  *string    `json:"acceptance_manager_id" gorm:"size:32"`
	AcceptanceManagerAt  *time.Time `json:"acceptance_manager_at"`
	AcceptanceDirectorID *string    `json:"acceptance_director_id" gorm:"size:32"`
	AcceptanceDirectorAt *time.Time `json:"acceptance_director_at"`

	// 验收记录
	AcceptanceNote     string         `json:"acceptance_note" gorm:"type:text"`
	FailureCause       string         `json:"failure_cause" gorm:"type:text"`
	FailureDescription string         `json:"failure_description" gorm:"type:text"`
	RecoveredMaterials datatypes.JSON `json:"recovered_materials" gorm:"type:jsonb"` // 回收材料清单
	ScrapMaterials     datatypes.JSON `json:"scrap_materials" gorm:"type:jsonb"`     // 报废材料清单
	OtherOpinions      string         `json:"other_opinions" gorm:"type:text"`

	// 任一阶段驳回时置位，该阶段重新编辑后清除
	Canceled        bool       `json:"canceled" gorm:"not null;default:false"`
	CanceledAt      *time.Time `json:"canceled_at"`
	RejectionReason string     `json:"rejection_reason" gorm:"type:text"`
	RejectedBy      *string    `json:"rejected_by" gorm:"size:32"`

	// 限制性使用子流程，与三个主阶段互不影响
	LimitedUseStatus      string     `json:"limited_use_status" gorm:"size:20"`
	LimitedUseRequestedBy *string    `json:"limited_use_requested_by" gorm:"size:32"`
	LimitedUseReviewedBy  *string    `json:"limited_use_reviewed_by" gorm:"size:32"`
	LimitedUseReviewedAt  *time.Time `json:"limited_use_reviewed_at"`

	CommitteeMembers datatypes.JSON `json:"committee_members" gorm:"type:jsonb"` // 委员会成员用户ID列表

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 关联
	Device              *Device              `json:"device,omitempty" gorm:"foreignKey:DeviceID"`
	Creator             *User                `json:"creator,omitempty" gorm:"foreignKey:CreatedBy"`
	InspectionMaterials []InspectionMaterial `json:"inspection_materials,omitempty" gorm:"foreignKey:RepairID"`
	InspectionFindings  []InspectionFinding  `json:"inspection_findings,omitempty" gorm:"foreignKey:RepairID"`
	AcceptanceMaterials []AcceptanceMaterial `json:"acceptance_materials,omitempty" gorm:"foreignKey:RepairID"`
}

func (RepairOrder) TableName() string {
	return "eam_repair_orders"
}

// ApproverRecorded 是否已有任一审批记录（有则禁止删除）
func (o *RepairOrder) ApproverRecorded() bool {
	for _, p := range []*string{
		o.RequestTechID, o.RequestManagerID, o.RequestDirectorID,
		o.InspectionLeadID, o.InspectionManagerID, o.InspectionDirectorID,
		o.AcceptanceLeadID, o.AcceptanceManagerID, o.AcceptanceDirectorID,
	} {
		if p != nil {
			return true
		}
	}
	return false
}

// InspectionMaterial 检修用料行项
type InspectionMaterial struct {
	ID       string          `json:"id" gorm:"primaryKey;size:32"`
	RepairID string          `json:"repair_id" gorm:"size:32;not null;index"`
	ItemID   *string         `json:"item_id" gorm:"size:32;index"` // 为空表示新物料（仅登记名称）
	ItemName string          `json:"item_name" gorm:"size:200;not null"`
	Quantity decimal.Decimal `json:"quantity" gorm:"type:decimal(12,4);not null"`
	Unit     string          `json:"unit" gorm:"size:20;default:pcs"`
	IsNew    bool            `json:"is_new" gorm:"not null;default:false"`
	Notes    string          `json:"notes" gorm:"type:text"`
	SortOrder int            `json:"sort_order" gorm:"default:0"`
	CreatedAt time.Time      `json:"created_at"`

	// 关联
	Item *StockItem `json:"item,omitempty" gorm:"foreignKey:ItemID"`
}

func (InspectionMaterial) TableName() string {
	return "eam_inspection_materials"
}

// InspectionFinding 检修记录（现象/原因/处理），不参与流程流转
type InspectionFinding struct {
	ID          string    `json:"id" gorm:"primaryKey;size:32"`
	RepairID    string    `json:"repair_id" gorm:"size:32;not null;index"`
	Description string    `json:"description" gorm:"type:text;not null"`
	Cause       string    `json:"cause" gorm:"type:text"`
	Solution    string    `json:"solution" gorm:"type:text"`
	Notes       string    `json:"notes" gorm:"type:text"`
	SortOrder   int       `json:"sort_order" gorm:"default:0"`
	CreatedAt   time.Time `json:"created_at"`
}

func (InspectionFinding) TableName() string {
	return "eam_inspection_findings"
}

// AcceptanceMaterial 验收材料行项
type AcceptanceMaterial struct {
	ID            string          `json:"id" gorm:"primaryKey;size:32"`
	RepairID      string          `json:"repair_id" gorm:"size:32;not null;index"`
	ItemID        *string         `json:"item_id" gorm:"size:32"`
	ItemName      string          `json:"item_name" gorm:"size:200;not null"`
	ItemCode      string          `json:"item_code" gorm:"size:64"`
	Specification string          `json:"specification" gorm:"size:500"`
	Quantity      decimal.Decimal `json:"quantity" gorm:"type:decimal(12,4);not null"`
	Unit          string          `json:"unit" gorm:"size:20;default:pcs"`
	Notes         string          `json:"notes" gorm:"type:text"`
	SortOrder     int             `json:"sort_order" gorm:"default:0"`
	CreatedAt     time.Time       `json:"created_at"`
}

func (AcceptanceMaterial) TableName() string {
	return "eam_acceptance_materials"
}
