// Package workflow 维修单三阶段审批的纯状态机。
// 每个阶段一张流转表：当前状态 + 审批角色 → 下一状态。
// 不依赖数据库，副作用由 service 层在同一事务内执行。
package workflow

import "fmt"

// Phase 审批阶段
type Phase int

const (
	PhaseRequest Phase = iota // 报修
	PhaseInspection           // 检修
	PhaseAcceptance           // 验收
)

func (p Phase) String() string {
	switch p {
	case PhaseRequest:
		return "request"
	case PhaseInspection:
		return "inspection"
	case PhaseAcceptance:
		return "acceptance"
	}
	return "unknown"
}

// ParsePhase 解析阶段名
func ParsePhase(s string) (Phase, error) {
	switch s {
	case "request":
		return PhaseRequest, nil
	case "inspection":
		return PhaseInspection, nil
	case "acceptance":
		return PhaseAcceptance, nil
	}
	return 0, fmt.Errorf("未知审批阶段: %s", s)
}

// Action 审批动作
type Action int

const (
	ActionApprove Action = iota
	ActionReject
)

func (a Action) String() string {
	if a == ActionReject {
		return "reject"
	}
	return "approve"
}

// ParseAction 解析动作名
func ParseAction(s string) (Action, error) {
	switch s {
	case "approve":
		return ActionApprove, nil
	case "reject":
		return ActionReject, nil
	}
	return 0, fmt.Errorf("未知审批动作: %s", s)
}

// ApproverSlot 审批通过后写入的审批人字段槽位
type ApproverSlot int

const (
	SlotRequestTech ApproverSlot = iota
	SlotRequestManager
	SlotRequestDirector
	SlotInspectionLead
	SlotInspectionManager
	SlotInspectionDirector
	SlotAcceptanceLead
	SlotAcceptanceManager
	SlotAcceptanceDirector
)

// Step 单个审批节点：From 状态下由 Role 审批，通过后进入 To
type Step struct {
	From string
	To   string
	Role string
	Slot ApproverSlot
}

// 阶段状态常量与 entity 包保持一致；workflow 只处理字符串，
// 避免反向依赖实体定义。
const (
	StateRejected = "REJECTED"

	reqWaitingTech     = "WAITING_TECH"
	reqWaitingManager  = "WAITING_MANAGER"
	reqWaitingDirector = "WAITING_DIRECTOR"
	reqCompleted       = "COMPLETED"

	pending         = "PENDING"
	leadApproved    = "LEAD_APPROVED"
	managerApproved = "MANAGER_APPROVED"
	adminApproved   = "ADMIN_APPROVED"
	accepted        = "ACCEPTED"
)

var transitions = map[Phase][]Step{
	PhaseRequest: {
		{From: reqWaitingTech, To: reqWaitingManager, Role: "technician", Slot: SlotRequestTech},
		{From: reqWaitingManager, To: reqWaitingDirector, Role: "manager", Slot: SlotRequestManager},
		{From: reqWaitingDirector, To: reqCompleted, Role: "director", Slot: SlotRequestDirector},
	},
	PhaseInspection: {
		{From: pending, To: leadApproved, Role: "team_lead", Slot: SlotInspectionLead},
		{From: leadApproved, To: managerApproved, Role: "manager", Slot: SlotInspectionManager},
		{From: managerApproved, To: adminApproved, Role: "director", Slot: SlotInspectionDirector},
	},
	PhaseAcceptance: {
		{From: pending, To: leadApproved, Role: "team_lead", Slot: SlotAcceptanceLead},
		{From: leadApproved, To: managerApproved, Role: "manager", Slot: SlotAcceptanceManager},
		{From: managerApproved, To: accepted, Role: "director", Slot: SlotAcceptanceDirector},
	},
}

var initialStates = map[Phase]string{
	PhaseRequest:    reqWaitingTech,
	PhaseInspection: pending,
	PhaseAcceptance: pending,
}

var terminalStates = map[Phase]string{
	PhaseRequest:    reqCompleted,
	PhaseInspection: adminApproved,
	PhaseAcceptance: accepted,
}

// InitialState 阶段初始状态
func InitialState(p Phase) string {
	return initialStates[p]
}

// TerminalState 阶段审批完成的终态（不含 REJECTED）
func TerminalState(p Phase) string {
	return terminalStates[p]
}

// IsTerminal 状态是否为终态（通过或驳回）
func IsTerminal(p Phase, state string) bool {
	return state == terminalStates[p] || state == StateRejected
}

// Editable 阶段数据是否可编辑：仅初始状态或被驳回后允许
func Editable(p Phase, state string) bool {
	return state == initialStates[p] || state == StateRejected
}

// stepFrom 返回 state 对应的待审批节点，终态返回 nil
func stepFrom(p Phase, state string) *Step {
	for i := range transitions[p] {
		if transitions[p][i].From == state {
			return &transitions[p][i]
		}
	}
	return nil
}

// RequiredRole 当前状态下有权审批的角色；终态返回空串
func RequiredRole(p Phase, state string) string {
	if s := stepFrom(p, state); s != nil {
		return s.Role
	}
	return ""
}

// Advance 按角色推进一步，返回通过后的节点
func Advance(p Phase, state, role string) (*Step, error) {
	s := stepFrom(p, state)
	if s == nil {
		return nil, fmt.Errorf("%s阶段当前状态 %s 不允许审批", phaseLabel(p), state)
	}
	if s.Role != role {
		return nil, fmt.Errorf("%s阶段当前节点需要 %s 审批，实际角色 %s", phaseLabel(p), s.Role, role)
	}
	return s, nil
}

// RejectFrom 校验驳回：任一非终态均可由当前节点角色驳回
func RejectFrom(p Phase, state, role string) (*Step, error) {
	s := stepFrom(p, state)
	if s == nil {
		return nil, fmt.Errorf("%s阶段当前状态 %s 不允许驳回", phaseLabel(p), state)
	}
	if s.Role != role {
		return nil, fmt.Errorf("%s阶段当前节点需要 %s 驳回，实际角色 %s", phaseLabel(p), s.Role, role)
	}
	return s, nil
}

// FinalStep 是否为该阶段最后一个审批节点
func FinalStep(p Phase, s *Step) bool {
	return s != nil && s.To == terminalStates[p]
}

func phaseLabel(p Phase) string {
	switch p {
	case PhaseRequest:
		return "报修"
	case PhaseInspection:
		return "检修"
	case PhaseAcceptance:
		return "验收"
	}
	return "?"
}
