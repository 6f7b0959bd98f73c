package entity

import "gorm.io/gorm"

// AutoMigrate 自动迁移所有EAM表
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		// 基础数据
		&Department{},
		&User{},
		&Device{},

		// 维修流程
		&RepairOrder{},
		&InspectionMaterial{},
		&InspectionFinding{},
		&AcceptanceMaterial{},

		// 库存
		&StockItem{},
		&StockIssue{},
		&StockTransaction{},
	)
}
