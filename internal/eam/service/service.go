package service

import (
	"github.com/bitfantasy/nimo-eam/internal/config"
	"github.com/bitfantasy/nimo-eam/internal/eam/repository"
	"github.com/bitfantasy/nimo-eam/internal/shared/notify"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Services 服务集合
type Services struct {
	Auth   *AuthService
	User   *UserService
	Device *DeviceService
	Repair *RepairService
	Stock  *StockService
}

// NewServices 创建服务集合
func NewServices(repos *repository.Repositories, rdb *redis.Client, cfg *config.Config, logger *zap.Logger) *Services {
	var notifier notify.Notifier = notify.Nop{}
	if cfg.Notify.WebhookURL != "" {
		notifier = notify.NewWebhookNotifier(cfg.Notify.WebhookURL, cfg.Notify.Secret, logger)
	}

	stockSvc := NewStockService(repos.Stock)

	return &Services{
		Auth:   NewAuthService(repos.User, rdb, cfg),
		User:   NewUserService(repos.User),
		Device: NewDeviceService(repos.Device),
		Repair: NewRepairService(repos.Repair, repos.Device, repos.User, stockSvc, notifier, logger),
		Stock:  stockSvc,
	}
}
