package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/bitfantasy/nimo-eam/internal/eam/entity"
	"github.com/bitfantasy/nimo-eam/internal/eam/repository"
	"github.com/bitfantasy/nimo-eam/internal/eam/workflow"
	"github.com/bitfantasy/nimo-eam/internal/shared/notify"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// RepairService 维修单流程编排：三阶段审批、库存联动、设备状态联动、通知分发
type RepairService struct {
	repo       *repository.RepairRepository
	deviceRepo *repository.DeviceRepository
	userRepo   *repository.UserRepository
	stock      *StockService
	notifier   notify.Notifier
	logger     *zap.Logger
}

// NewRepairService 创建维修服务
func NewRepairService(
	repo *repository.RepairRepository,
	deviceRepo *repository.DeviceRepository,
	userRepo *repository.UserRepository,
	stock *StockService,
	notifier notify.Notifier,
	logger *zap.Logger,
) *RepairService {
	return &RepairService{
		repo:       repo,
		deviceRepo: deviceRepo,
		userRepo:   userRepo,
		stock:      stock,
		notifier:   notifier,
		logger:     logger,
	}
}

// Get 维修单详情
func (s *RepairService) Get(ctx context.Context, id string) (*entity.RepairOrder, error) {
	return s.repo.FindByID(ctx, id)
}

// List 维修单列表
func (s *RepairService) List(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.RepairOrder, int64, error) {
	return s.repo.List(ctx, page, pageSize, filters)
}

// CreateRepairRequest 创建维修单请求
type CreateRepairRequest struct {
	DeviceID           string   `json:"device_id" binding:"required"`
	LocationIssue      string   `json:"location_issue" binding:"required"`
	Recommendation     string   `json:"recommendation"`
	Note               string   `json:"note"`
	CommitteeMemberIDs []string `json:"committee_member_ids"`
}

// Create 创建维修单，三个阶段均处于初始状态
func (s *RepairService) Create(ctx context.Context, actorID string, req CreateRepairRequest) (*entity.RepairOrder, error) {
	actor, err := s.userRepo.FindByID(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("查找用户失败: %w", err)
	}

	device, err := s.deviceRepo.FindByID(ctx, req.DeviceID)
	if err != nil {
		return nil, fmt.Errorf("设备不存在: %w", err)
	}
	if device.Status != entity.DeviceStatusNew && device.Status != entity.DeviceStatusInUse {
		return nil, preconditionFailed("设备当前状态 %s 不允许报修", device.Status)
	}

	var committee datatypes.JSON
	if len(req.CommitteeMemberIDs) > 0 {
		members, err := s.userRepo.FindByIDs(ctx, req.CommitteeMemberIDs)
		if err != nil {
			return nil, fmt.Errorf("查找委员会成员失败: %w", err)
		}
		if len(members) != len(req.CommitteeMemberIDs) {
			return nil, preconditionFailed("委员会成员不存在或已停用")
		}
		committee, _ = json.Marshal(req.CommitteeMemberIDs)
	}

	order := &entity.RepairOrder{
		Code:                s.repo.GenerateCode(),
		DeviceID:            device.ID,
		CreatedBy:           actor.ID,
		CreatedDepartmentID: actor.DepartmentID,
		LocationIssue:       req.LocationIssue,
		Recommendation:      req.Recommendation,
		Note:                req.Note,
		StatusRequest:       entity.RequestStatusWaitingTech,
		StatusInspection:    entity.InspectionStatusPending,
		StatusAcceptance:    entity.AcceptanceStatusPending,
		CommitteeMembers:    committee,
	}
	if err := s.repo.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("创建维修单失败: %w", err)
	}

	title := "新维修申请"
	content := fmt.Sprintf("**维修单** %s\n**设备** %s\n**故障描述** %s", order.Code, device.Name, req.LocationIssue)
	s.notifyRole(entity.RoleManager, title, content)
	s.notifyRole(entity.RoleAdmin, title, content)
	s.notifyRole(entity.RoleTechnician, title, content)

	return s.repo.FindByID(ctx, order.ID)
}

// SaveRequestRequest 修改报修信息请求
type SaveRequestRequest struct {
	LocationIssue      string   `json:"location_issue" binding:"required"`
	Recommendation     string   `json:"recommendation"`
	Note               string   `json:"note"`
	CommitteeMemberIDs []string `json:"committee_member_ids"`
}

// SaveRequest 修改报修信息。仅在报修阶段可编辑（初始或被驳回）时允许；
// 被驳回后的保存会把报修阶段重置回待技术员审批并清除整单驳回标记。
func (s *RepairService) SaveRequest(ctx context.Context, orderID, actorID string, req SaveRequestRequest) (*entity.RepairOrder, error) {
	actor, err := s.userRepo.FindByID(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("查找用户失败: %w", err)
	}

	var committee datatypes.JSON
	if len(req.CommitteeMemberIDs) > 0 {
		members, err := s.userRepo.FindByIDs(ctx, req.CommitteeMemberIDs)
		if err != nil {
			return nil, fmt.Errorf("查找委员会成员失败: %w", err)
		}
		if len(members) != len(req.CommitteeMemberIDs) {
			return nil, preconditionFailed("委员会成员不存在或已停用")
		}
		committee, _ = json.Marshal(req.CommitteeMemberIDs)
	}

	err = s.repo.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := s.repo.FindByIDForUpdate(tx, orderID)
		if err != nil {
			return err
		}
		if order.CreatedBy != actor.ID && actor.Role != entity.RoleAdmin {
			return preconditionFailed("仅维修单创建人或管理员可修改报修信息")
		}
		if !workflow.Editable(workflow.PhaseRequest, order.StatusRequest) {
			return invalidTransition("报修阶段当前状态 %s 不允许修改", order.StatusRequest)
		}

		// 被驳回后重新编辑：报修阶段回到待技术员审批，清除整单驳回标记
		if order.StatusRequest == entity.RequestStatusRejected {
			order.StatusRequest = entity.RequestStatusWaitingTech
			order.Canceled = false
			order.CanceledAt = nil
			order.RejectionReason = ""
			order.RejectedBy = nil
			order.RequestTechID = nil
			order.RequestTechAt = nil
			order.RequestManagerID = nil
			order.RequestManagerAt = nil
			order.RequestDirectorID = nil
			order.RequestDirectorAt = nil
		}

		order.LocationIssue = req.LocationIssue
		order.Recommendation = req.Recommendation
		order.Note = req.Note
		if len(req.CommitteeMemberIDs) > 0 {
			order.CommitteeMembers = committee
		}
		return tx.Save(order).Error
	})
	if err != nil {
		return nil, err
	}

	s.notifyRole(entity.RoleTechnician, "报修信息已更新",
		fmt.Sprintf("维修单 %s 的报修信息已更新，请审批", orderID))

	return s.repo.FindByID(ctx, orderID)
}

// InspectionMaterialInput 检修用料行项输入
type InspectionMaterialInput struct {
	ItemID   *string         `json:"item_id"`
	ItemName string          `json:"item_name"`
	Quantity decimal.Decimal `json:"quantity" binding:"required"`
	Unit     string          `json:"unit"`
	IsNew    bool            `json:"is_new"`
	Notes    string          `json:"notes"`
}

// InspectionFindingInput 检修记录输入
type InspectionFindingInput struct {
	Description string `json:"description" binding:"required"`
	Cause       string `json:"cause"`
	Solution    string `json:"solution"`
	Notes       string `json:"notes"`
}

// SaveInspectionRequest 保存检修数据请求
type SaveInspectionRequest struct {
	Materials []InspectionMaterialInput `json:"materials"`
	Findings  []InspectionFindingInput  `json:"findings"`
}

// SaveInspection 保存检修用料与检修记录。
// 仅在检修阶段可编辑（初始或被驳回）且验收未开始时允许；
// 被驳回后的首次保存会把检修阶段重置回待审批并清除整单驳回标记。
func (s *RepairService) SaveInspection(ctx context.Context, orderID, actorID string, req SaveInspectionRequest) (*entity.RepairOrder, error) {
	actor, err := s.userRepo.FindByID(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("查找用户失败: %w", err)
	}

	for _, m := range req.Materials {
		if !m.Quantity.IsPositive() {
			return nil, preconditionFailed("用料数量必须为正数")
		}
		if m.IsNew && m.ItemName == "" {
			return nil, preconditionFailed("新物料必须填写名称")
		}
		if !m.IsNew && (m.ItemID == nil || *m.ItemID == "") {
			return nil, preconditionFailed("台账物料必须指定耗材")
		}
	}

	err = s.repo.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := s.repo.FindByIDForUpdate(tx, orderID)
		if err != nil {
			return err
		}
		if order.CreatedBy != actor.ID && actor.Role != entity.RoleAdmin {
			return preconditionFailed("仅维修单创建人或管理员可编辑检修数据")
		}
		if order.StatusRequest != entity.RequestStatusCompleted {
			return invalidTransition("报修阶段未完成，不能录入检修数据")
		}
		if !workflow.Editable(workflow.PhaseInspection, order.StatusInspection) {
			return invalidTransition("检修阶段当前状态 %s 不允许编辑", order.StatusInspection)
		}
		if order.StatusAcceptance != entity.AcceptanceStatusPending {
			return invalidTransition("验收阶段已开始，检修数据已冻结")
		}

		now := time.Now()
		if order.InspectionCreatedBy == nil {
			if !actor.HasSignature() {
				return preconditionFailed("用户 %s 未登记电子签名，不能录入检修数据", actor.Name)
			}
			order.InspectionCreatedBy = &actor.ID
			order.InspectionCreatedAt = &now
		}

		// 被驳回后重新编辑：检修阶段回到待审批，清除整单驳回标记；
		// 已完成的报修阶段不受影响
		if order.StatusInspection == entity.InspectionStatusRejected {
			order.StatusInspection = entity.InspectionStatusPending
			order.Canceled = false
			order.CanceledAt = nil
			order.RejectionReason = ""
			order.RejectedBy = nil
			order.InspectionLeadID = nil
			order.InspectionLeadAt = nil
			order.InspectionManagerID = nil
			order.InspectionManagerAt = nil
			order.InspectionDirectorID = nil
			order.InspectionDirectorAt = nil
		}

		materials := make([]entity.InspectionMaterial, 0, len(req.Materials))
		lines := make([]MaterialLine, 0, len(req.Materials))
		for _, m := range req.Materials {
			unit := m.Unit
			if unit == "" {
				unit = "pcs"
			}
			materials = append(materials, entity.InspectionMaterial{
				ItemID:   m.ItemID,
				ItemName: m.ItemName,
				Quantity: m.Quantity.Round(qtyPrecision),
				Unit:     unit,
				IsNew:    m.IsNew,
				Notes:    m.Notes,
			})
			if !m.IsNew && m.ItemID != nil {
				lines = append(lines, MaterialLine{ItemID: *m.ItemID, Quantity: m.Quantity})
			}
		}
		if err := s.repo.ReplaceInspectionMaterials(tx, order.ID, materials); err != nil {
			return fmt.Errorf("保存检修用料失败: %w", err)
		}

		findings := make([]entity.InspectionFinding, 0, len(req.Findings))
		for _, f := range req.Findings {
			findings = append(findings, entity.InspectionFinding{
				Description: f.Description,
				Cause:       f.Cause,
				Solution:    f.Solution,
				Notes:       f.Notes,
			})
		}
		if err := s.repo.ReplaceInspectionFindings(tx, order.ID, findings); err != nil {
			return fmt.Errorf("保存检修记录失败: %w", err)
		}

		// 台账物料行对账出库预占
		if err := s.stock.ReconcileRepairIssues(tx, order.ID, actor.ID, lines); err != nil {
			return err
		}

		return tx.Save(order).Error
	})
	if err != nil {
		return nil, err
	}

	s.notifyRole(entity.RoleTeamLead, "检修数据已提交",
		fmt.Sprintf("维修单 %s 的检修数据已更新，请审批", orderID))

	return s.repo.FindByID(ctx, orderID)
}

// AcceptanceMaterialInput 验收材料行项输入
type AcceptanceMaterialInput struct {
	ItemID        *string         `json:"item_id"`
	ItemName      string          `json:"item_name" binding:"required"`
	ItemCode      string          `json:"item_code"`
	Specification string          `json:"specification"`
	Quantity      decimal.Decimal `json:"quantity" binding:"required"`
	Unit          string          `json:"unit"`
	Notes         string          `json:"notes"`
}

// RecycleLine 回收/报废材料行
type RecycleLine struct {
	Name     string          `json:"name"`
	Quantity decimal.Decimal `json:"quantity"`
	Unit     string          `json:"unit"`
	Notes    string          `json:"notes"`
}

// SaveAcceptanceRequest 保存验收数据请求
type SaveAcceptanceRequest struct {
	Note               string                    `json:"note"`
	FailureCause       string                    `json:"failure_cause"`
	FailureDescription string                    `json:"failure_description"`
	OtherOpinions      string                    `json:"other_opinions"`
	RecoveredMaterials []RecycleLine             `json:"recovered_materials"`
	ScrapMaterials     []RecycleLine             `json:"scrap_materials"`
	Materials          []AcceptanceMaterialInput `json:"materials"`
}

// SaveAcceptance 保存验收数据。材料行项与已有记录合并：
// 新提交未填的 item_code/specification/notes 按耗材ID（其次名称）沿用旧值。
func (s *RepairService) SaveAcceptance(ctx context.Context, orderID, actorID string, req SaveAcceptanceRequest) (*entity.RepairOrder, error) {
	actor, err := s.userRepo.FindByID(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("查找用户失败: %w", err)
	}
	for _, m := range req.Materials {
		if !m.Quantity.IsPositive() {
			return nil, preconditionFailed("验收材料数量必须为正数")
		}
	}

	err = s.repo.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := s.repo.FindByIDForUpdate(tx, orderID)
		if err != nil {
			return err
		}
		if order.CreatedBy != actor.ID && actor.Role != entity.RoleAdmin {
			return preconditionFailed("仅维修单创建人或管理员可编辑验收数据")
		}
		if order.StatusInspection != entity.InspectionStatusAdminApproved {
			return invalidTransition("检修阶段未审批完成，不能录入验收数据")
		}
		if !workflow.Editable(workflow.PhaseAcceptance, order.StatusAcceptance) {
			return invalidTransition("验收阶段当前状态 %s 不允许编辑", order.StatusAcceptance)
		}

		now := time.Now()
		if order.AcceptanceCreatedBy == nil {
			if !actor.HasSignature() {
				return preconditionFailed("用户 %s 未登记电子签名，不能录入验收数据", actor.Name)
			}
			order.AcceptanceCreatedBy = &actor.ID
			order.AcceptanceCreatedAt = &now
		}

		if order.StatusAcceptance == entity.AcceptanceStatusRejected {
			order.StatusAcceptance = entity.AcceptanceStatusPending
			order.Canceled = false
			order.CanceledAt = nil
			order.RejectionReason = ""
			order.RejectedBy = nil
			order.AcceptanceLeadID = nil
			order.AcceptanceLeadAt = nil
			order.AcceptanceManagerID = nil
			order.AcceptanceManagerAt = nil
			order.AcceptanceDirectorID = nil
			order.AcceptanceDirectorAt = nil
		}

		// 与旧行项合并：先按耗材ID索引旧行，再按名称
		existing, err := s.repo.ListAcceptanceMaterials(tx, order.ID)
		if err != nil {
			return fmt.Errorf("读取验收材料失败: %w", err)
		}
		byID := make(map[string]*entity.AcceptanceMaterial)
		byName := make(map[string]*entity.AcceptanceMaterial)
		for i := range existing {
			if existing[i].ItemID != nil {
				byID[*existing[i].ItemID] = &existing[i]
			}
			byName[existing[i].ItemName] = &existing[i]
		}

		materials := make([]entity.AcceptanceMaterial, 0, len(req.Materials))
		for _, m := range req.Materials {
			var prev *entity.AcceptanceMaterial
			if m.ItemID != nil {
				prev = byID[*m.ItemID]
			}
			if prev == nil {
				prev = byName[m.ItemName]
			}
			mat := entity.AcceptanceMaterial{
				ItemID:        m.ItemID,
				ItemName:      m.ItemName,
				ItemCode:      m.ItemCode,
				Specification: m.Specification,
				Quantity:      m.Quantity.Round(qtyPrecision),
				Unit:          m.Unit,
				Notes:         m.Notes,
			}
			if mat.Unit == "" {
				mat.Unit = "pcs"
			}
			if prev != nil {
				if mat.ItemCode == "" {
					mat.ItemCode = prev.ItemCode
				}
				if mat.Specification == "" {
					mat.Specification = prev.Specification
				}
				if mat.Notes == "" {
					mat.Notes = prev.Notes
				}
			}
			materials = append(materials, mat)
		}
		if err := s.repo.ReplaceAcceptanceMaterials(tx, order.ID, materials); err != nil {
			return fmt.Errorf("保存验收材料失败: %w", err)
		}

		order.AcceptanceNote = req.Note
		order.FailureCause = req.FailureCause
		order.FailureDescription = req.FailureDescription
		order.OtherOpinions = req.OtherOpinions
		if req.RecoveredMaterials != nil {
			order.RecoveredMaterials, _ = json.Marshal(req.RecoveredMaterials)
		}
		if req.ScrapMaterials != nil {
			order.ScrapMaterials, _ = json.Marshal(req.ScrapMaterials)
		}

		return tx.Save(order).Error
	})
	if err != nil {
		return nil, err
	}

	s.notifyRole(entity.RoleTeamLead, "验收数据已提交",
		fmt.Sprintf("维修单 %s 的验收数据已更新，请审批", orderID))

	return s.repo.FindByID(ctx, orderID)
}

// Review 审批一个阶段：approve 按流转表推进一步，reject 驳回整个阶段。
// 状态推进、审批人落档、库存落账、设备状态变更在同一事务内完成。
func (s *RepairService) Review(ctx context.Context, orderID string, phase workflow.Phase, action workflow.Action, reason, actorID string) (*entity.RepairOrder, error) {
	actor, err := s.userRepo.FindByID(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("查找用户失败: %w", err)
	}

	var nextRole string
	var finalApproved bool
	err = s.repo.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := s.repo.FindByIDForUpdate(tx, orderID)
		if err != nil {
			return err
		}

		// 阶段顺序约束
		if phase == workflow.PhaseInspection && order.StatusRequest != entity.RequestStatusCompleted {
			return invalidTransition("报修阶段未完成，检修阶段不能审批")
		}
		if phase == workflow.PhaseAcceptance && order.StatusInspection != entity.InspectionStatusAdminApproved {
			return invalidTransition("检修阶段未审批完成，验收阶段不能审批")
		}

		current := phaseStatus(order, phase)
		now := time.Now()

		switch action {
		case workflow.ActionApprove:
			step, err := workflow.Advance(phase, current, actor.Role)
			if err != nil {
				return &InvalidTransitionError{Reason: err.Error()}
			}
			if !actor.HasSignature() {
				return preconditionFailed("用户 %s 未登记电子签名，不能审批", actor.Name)
			}

			setPhaseStatus(order, phase, step.To)
			applySlot(order, step.Slot, actor.ID, now)

			if workflow.FinalStep(phase, step) {
				finalApproved = true
				switch phase {
				case workflow.PhaseRequest:
					if err := s.deviceRepo.UpdateStatus(tx, order.DeviceID, entity.DeviceStatusUnderRepair); err != nil {
						return fmt.Errorf("更新设备状态失败: %w", err)
					}
				case workflow.PhaseInspection:
					if err := s.stock.FinalizeRepairIssues(tx, order.ID, order.Code, actor.ID); err != nil {
						return err
					}
				case workflow.PhaseAcceptance:
					if err := s.deviceRepo.UpdateStatus(tx, order.DeviceID, entity.DeviceStatusInUse); err != nil {
						return fmt.Errorf("更新设备状态失败: %w", err)
					}
				}
			} else {
				nextRole = workflow.RequiredRole(phase, step.To)
			}

		case workflow.ActionReject:
			if strings.TrimSpace(reason) == "" {
				return preconditionFailed("驳回原因不能为空")
			}
			if _, err := workflow.RejectFrom(phase, current, actor.Role); err != nil {
				return &InvalidTransitionError{Reason: err.Error()}
			}
			setPhaseStatus(order, phase, workflow.StateRejected)
			order.Canceled = true
			order.CanceledAt = &now
			order.RejectionReason = reason
			order.RejectedBy = &actor.ID
		}

		return tx.Save(order).Error
	})
	if err != nil {
		return nil, err
	}

	// 事务提交后再分发通知
	switch {
	case action == workflow.ActionReject:
		s.notifyOrderCreator(ctx, orderID, "维修单已驳回",
			fmt.Sprintf("维修单 %s 的%s阶段被驳回: %s", orderID, phase, reason))
	case finalApproved:
		s.notifyOrderCreator(ctx, orderID, "审批完成",
			fmt.Sprintf("维修单 %s 的%s阶段审批已全部通过", orderID, phase))
	case nextRole != "":
		s.notifyRole(nextRole, "待审批提醒",
			fmt.Sprintf("维修单 %s 的%s阶段等待您审批", orderID, phase))
	}

	return s.repo.FindByID(ctx, orderID)
}

// RequestLimitedUse 申请限制性使用，独立于三个主阶段
func (s *RepairService) RequestLimitedUse(ctx context.Context, orderID, actorID string) (*entity.RepairOrder, error) {
	actor, err := s.userRepo.FindByID(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("查找用户失败: %w", err)
	}

	err = s.repo.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := s.repo.FindByIDForUpdate(tx, orderID)
		if err != nil {
			return err
		}
		if order.CreatedBy != actor.ID && actor.Role != entity.RoleAdmin {
			return preconditionFailed("仅维修单创建人或管理员可申请限制性使用")
		}
		if order.LimitedUseStatus == entity.LimitedUsePending {
			return invalidTransition("已有待审批的限制性使用申请")
		}
		order.LimitedUseStatus = entity.LimitedUsePending
		order.LimitedUseRequestedBy = &actor.ID
		order.LimitedUseReviewedBy = nil
		order.LimitedUseReviewedAt = nil
		return tx.Save(order).Error
	})
	if err != nil {
		return nil, err
	}

	s.notifyRole(entity.RoleDirector, "限制性使用申请",
		fmt.Sprintf("维修单 %s 提交了设备限制性使用申请，请审批", orderID))

	return s.repo.FindByID(ctx, orderID)
}

// ReviewLimitedUse 审批限制性使用申请；通过时设备转为限制性使用状态
func (s *RepairService) ReviewLimitedUse(ctx context.Context, orderID, actorID string, approve bool, reason string) (*entity.RepairOrder, error) {
	actor, err := s.userRepo.FindByID(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("查找用户失败: %w", err)
	}
	switch actor.Role {
	case entity.RoleTeamLead, entity.RoleDirector, entity.RoleAdmin:
	default:
		return nil, invalidTransition("角色 %s 无权审批限制性使用申请", actor.Role)
	}
	if !approve && strings.TrimSpace(reason) == "" {
		return nil, preconditionFailed("驳回原因不能为空")
	}

	err = s.repo.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := s.repo.FindByIDForUpdate(tx, orderID)
		if err != nil {
			return err
		}
		if order.LimitedUseStatus != entity.LimitedUsePending {
			return invalidTransition("限制性使用申请当前状态 %s 不允许审批", order.LimitedUseStatus)
		}

		now := time.Now()
		order.LimitedUseReviewedBy = &actor.ID
		order.LimitedUseReviewedAt = &now
		if approve {
			order.LimitedUseStatus = entity.LimitedUseApproved
			if err := s.deviceRepo.UpdateStatus(tx, order.DeviceID, entity.DeviceStatusLimitedUse); err != nil {
				return fmt.Errorf("更新设备状态失败: %w", err)
			}
		} else {
			order.LimitedUseStatus = entity.LimitedUseRejected
		}
		return tx.Save(order).Error
	})
	if err != nil {
		return nil, err
	}

	s.notifyOrderCreator(ctx, orderID, "限制性使用审批结果",
		fmt.Sprintf("维修单 %s 的限制性使用申请已处理", orderID))

	return s.repo.FindByID(ctx, orderID)
}

// Delete 删除维修单。任一审批人字段已写入则拒绝；先级联删除出库记录。
func (s *RepairService) Delete(ctx context.Context, orderID string) error {
	return s.repo.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := s.repo.FindByIDForUpdate(tx, orderID)
		if err != nil {
			return err
		}
		if order.ApproverRecorded() {
			return &ConflictError{Reason: "维修单已有审批记录，不能删除"}
		}
		if err := s.stock.DeleteRepairIssues(tx, order.ID); err != nil {
			return fmt.Errorf("删除出库记录失败: %w", err)
		}
		return s.repo.Delete(tx, order.ID)
	})
}

// === 内部辅助 ===

func phaseStatus(o *entity.RepairOrder, p workflow.Phase) string {
	switch p {
	case workflow.PhaseRequest:
		return o.StatusRequest
	case workflow.PhaseInspection:
		return o.StatusInspection
	default:
		return o.StatusAcceptance
	}
}

func setPhaseStatus(o *entity.RepairOrder, p workflow.Phase, status string) {
	switch p {
	case workflow.PhaseRequest:
		o.StatusRequest = status
	case workflow.PhaseInspection:
		o.StatusInspection = status
	default:
		o.StatusAcceptance = status
	}
}

func applySlot(o *entity.RepairOrder, slot workflow.ApproverSlot, actorID string, now time.Time) {
	id := actorID
	t := now
	switch slot {
	case workflow.SlotRequestTech:
		o.RequestTechID, o.RequestTechAt = &id, &t
	case workflow.SlotRequestManager:
		o.RequestManagerID, o.RequestManagerAt = &id, &t
	case workflow.SlotRequestDirector:
		o.RequestDirectorID, o.RequestDirectorAt = &id, &t
	case workflow.SlotInspectionLead:
		o.InspectionLeadID, o.InspectionLeadAt = &id, &t
	case workflow.SlotInspectionManager:
		o.InspectionManagerID, o.InspectionManagerAt = &id, &t
	case workflow.SlotInspectionDirector:
		o.InspectionDirectorID, o.InspectionDirectorAt = &id, &t
	case workflow.SlotAcceptanceLead:
		o.AcceptanceLeadID, o.AcceptanceLeadAt = &id, &t
	case workflow.SlotAcceptanceManager:
		o.AcceptanceManagerID, o.AcceptanceManagerAt = &id, &t
	case workflow.SlotAcceptanceDirector:
		o.AcceptanceDirectorID, o.AcceptanceDirectorAt = &id, &t
	}
}

// notifyRole 异步向角色组推送通知，失败只记日志
func (s *RepairService) notifyRole(role, title, content string) {
	go func() {
		if err := s.notifier.NotifyRole(context.Background(), role, title, content); err != nil {
			s.logger.Warn("角色组通知发送失败",
				zap.String("role", role),
				zap.Error(err))
		}
	}()
}

// notifyOrderCreator 异步通知维修单创建人
func (s *RepairService) notifyOrderCreator(ctx context.Context, orderID, title, content string) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		s.logger.Warn("查找维修单失败，跳过通知", zap.String("order_id", orderID), zap.Error(err))
		return
	}
	go func() {
		if err := s.notifier.NotifyUser(context.Background(), order.CreatedBy, title, content); err != nil {
			s.logger.Warn("用户通知发送失败",
				zap.String("user_id", order.CreatedBy),
				zap.Error(err))
		}
	}()
}
