package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/skinshop-next/internal/authz"
	"github.com/skinshop-next/internal/cache"
	"github.com/skinshop-next/internal/config"
	"github.com/skinshop-next/internal/logger"
	"github.com/skinshop-next/internal/metrics"
	"github.com/skinshop-next/internal/models"
	"github.com/skinshop-next/internal/queue"
	"github.com/skinshop-next/internal/repository"
	"github.com/skinshop-next/internal/securebox"
	"github.com/skinshop-next/internal/service"
	"github.com/skinshop-next/internal/upstream"

	"gorm.io/gorm"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client
	Upstream    *upstream.Client

	// Repositories
	DeviceStorageRepo repository.DeviceStorageRepository

	// Services
	AuthzService    *authz.Service
	SessionService  *service.SessionService
	CartService     *service.CartService
	SelectionStore  *service.SelectionStore
	CheckoutService *service.CheckoutService
	OrderService    *service.OrderService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	api := upstream.New(upstream.Config{
		BaseURL: cfg.Upstream.BaseURL,
		Timeout: time.Duration(cfg.Upstream.TimeoutSeconds) * time.Second,
	}, upstream.WithObserver(metrics.ObserveUpstream))

	c, err := Build(cfg, models.DB, api, queueClient)
	if err != nil {
		logger.Errorw("provider_build_failed", "error", err)
		panic(err)
	}
	return c
}

// Build 以给定数据库与上游客户端组装容器
func Build(cfg *config.Config, db *gorm.DB, api *upstream.Client, queueClient *queue.Client) (*Container, error) {
	if cfg == nil || db == nil || api == nil {
		return nil, fmt.Errorf("provider: config, db and upstream client are required")
	}
	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
		Upstream:    api,
	}

	// 1. 初始化 Repositories
	if err := c.initRepositories(db); err != nil {
		return nil, err
	}

	// 2. 初始化 Services
	if err := c.initServices(db); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Container) initRepositories(db *gorm.DB) error {
	box, err := securebox.New(c.Config.Storage.Secret)
	if err != nil {
		return fmt.Errorf("init storage sealing failed: %w", err)
	}
	if !box.Enabled() {
		logger.Warnw("provider_device_storage_unsealed", "hint", "set storage.secret to seal persisted tokens")
	}
	c.DeviceStorageRepo = repository.NewDeviceStorageRepository(db, box)
	return nil
}

func (c *Container) initServices(db *gorm.DB) error {
	authzService, err := authz.NewService(db)
	if err != nil {
		return fmt.Errorf("init authz failed: %w", err)
	}
	if err := authzService.BootstrapBuiltinRoles(); err != nil {
		return fmt.Errorf("bootstrap builtin roles failed: %w", err)
	}
	c.AuthzService = authzService

	c.SessionService = service.NewSessionService(c.DeviceStorageRepo, c.Upstream, service.NewTokenDecoder(c.Config.Upstream.JWTSecret))
	c.CartService = service.NewCartService(c.Upstream)
	c.CartService.SetRefreshObserver(metrics.ObserveCartRefresh)
	c.SelectionStore = service.NewSelectionStore()

	var scheduler service.CleanupScheduler
	if c.QueueClient.Enabled() {
		scheduler = c.QueueClient
	}
	c.CheckoutService = service.NewCheckoutService(
		c.SessionService,
		c.CartService,
		c.SelectionStore,
		c.Upstream,
		c.Upstream,
		service.NewPendingCheckoutStore(),
		scheduler,
		service.CheckoutOptions{
			ShippingFee:   models.NewMoneyFromInt(c.Config.Checkout.ShippingFee),
			PaymentMethod: c.Config.Checkout.PaymentMethod,
			PendingTTL:    time.Duration(c.Config.Checkout.PendingTTLMinutes) * time.Minute,
		},
	)
	c.CheckoutService.SetCleanupObserver(func(report *service.CleanupReport) {
		metrics.ObserveCleanup(len(report.Failed), report.RetryScheduled)
	})
	c.OrderService = service.NewOrderService(c.Upstream, c.Config.Orders.PageSize)

	// 登出时清理设备相关的进程内状态
	c.SessionService.OnLogout(func(deviceID string) {
		c.SelectionStore.Reset(deviceID)
		c.CheckoutService.Discard(context.Background(), deviceID)
		c.OrderService.Forget(deviceID)
	})
	return nil
}

// Rehydrate 从设备存储恢复会话
func (c *Container) Rehydrate(ctx context.Context) {
	start := time.Now()
	if err := c.SessionService.Rehydrate(ctx); err != nil {
		logger.Errorw("provider_session_rehydrate_failed", "error", err)
		return
	}
	logger.Infow("provider_session_rehydrated", "elapsed_ms", time.Since(start).Milliseconds())
}

// Close 释放外部连接
func (c *Container) Close() {
	if c == nil {
		return
	}
	if err := c.QueueClient.Close(); err != nil {
		logger.Warnw("provider_close_queue_client_failed", "error", err)
	}
	if err := cache.Close(); err != nil {
		logger.Warnw("provider_close_redis_failed", "error", err)
	}
}
