package repository

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("record not found")
)

// generateID 生成32位ID
func generateID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:32]
}

// Repositories EAM仓库集合
type Repositories struct {
	User   *UserRepository
	Device *DeviceRepository
	Repair *RepairRepository
	Stock  *StockRepository
}

// NewRepositories 创建EAM仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:   NewUserRepository(db),
		Device: NewDeviceRepository(db),
		Repair: NewRepairRepository(db),
		Stock:  NewStockRepository(db),
	}
}
