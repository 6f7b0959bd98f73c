package entity

import (
	"time"
)

// DeviceStatus 设备状态
const (
	DeviceStatusNew         = "NEW"          // 新设备，未投用
	DeviceStatusInUse       = "IN_USE"       // 正常使用
	DeviceStatusUnderRepair = "UNDER_REPAIR" // 维修中
	DeviceStatusLimitedUse  = "LIMITED_USE"  // 限制性使用
	DeviceStatusRetired     = "RETIRED"      // 报废
)

// Device 设备实体
type Device struct {
	ID           string     `json:"id" gorm:"primaryKey;size:32"`
	Code         string     `json:"code" gorm:"size:64;not null;uniqueIndex"`
	Name         string     `json:"name" gorm:"size:200;not null"`
	Model        string     `json:"model" gorm:"size:128"`
	SerialNo     string     `json:"serial_no" gorm:"size:100"`
	DepartmentID string     `json:"department_id" gorm:"size:32;index"`
	Location     string     `json:"location" gorm:"size:200"`
	Status       string     `json:"status" gorm:"size:20;not null;default:NEW"`
	PurchasedAt  *time.Time `json:"purchased_at"`
	Notes        string     `json:"notes" gorm:"type:text"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	DeletedAt    *time.Time `json:"deleted_at" gorm:"index"`

	// 关联
	Department *Department `json:"department,omitempty" gorm:"foreignKey:DepartmentID"`
}

func (Device) TableName() string {
	return "eam_devices"
}
