package entity

import (
	"time"
)

// 角色代码
const (
	RoleUser       = "user"       // 普通用户（报修人）
	RoleTechnician = "technician" // 技术员
	RoleTeamLead   = "team_lead"  // 组长/科室负责人
	RoleManager    = "manager"    // 部门经理
	RoleDirector   = "director"   // 主管领导
	RoleAdmin      = "admin"      // 系统管理员
)

// User 用户实体
type User struct {
	ID           string     `json:"id" gorm:"primaryKey;size:32"`
	Username     string     `json:"username" gorm:"size:64;not null;uniqueIndex"`
	PasswordHash string     `json:"-" gorm:"size:128;not null"`
	Name         string     `json:"name" gorm:"size:64;not null"`
	Email        string     `json:"email" gorm:"size:128;index"`
	Mobile       string     `json:"mobile" gorm:"size:20"`
	Role         string     `json:"role" gorm:"size:32;not null;default:user"`
	DepartmentID string     `json:"department_id" gorm:"size:32;index"`
	SignatureURL string     `json:"signature_url" gorm:"size:512"` // 电子签名，审批前置条件
	Status       string     `json:"status" gorm:"size:16;not null;default:active"`
	LastLoginAt  *time.Time `json:"last_login_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	DeletedAt    *time.Time `json:"deleted_at" gorm:"index"`

	// 关联
	Department *Department `json:"department,omitempty" gorm:"foreignKey:DepartmentID"`
}

func (User) TableName() string {
	return "eam_users"
}

// HasSignature 是否已登记电子签名
func (u *User) HasSignature() bool {
	return u.SignatureURL != ""
}

// Department 部门实体
type Department struct {
	ID        string    `json:"id" gorm:"primaryKey;size:32"`
	Code      string    `json:"code" gorm:"size:32;uniqueIndex"`
	Name      string    `json:"name" gorm:"size:128;not null"`
	LeaderID  string    `json:"leader_id" gorm:"size:32"`
	Status    string    `json:"status" gorm:"size:16;not null;default:active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 关联
	Leader *User `json:"leader,omitempty" gorm:"foreignKey:LeaderID"`
}

func (Department) TableName() string {
	return "eam_departments"
}
