package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/skinshop-next/internal/logger"
	"github.com/skinshop-next/internal/provider"
	"github.com/skinshop-next/internal/queue"
	"github.com/skinshop-next/internal/service"

	"github.com/hibiken/asynq"
)

// cleanupRetrier 购物车清理补偿执行者
type cleanupRetrier interface {
	RetryCleanup(ctx context.Context, deviceID, userID string, productIDs []string) (*service.CleanupReport, error)
}

// Consumer 异步任务消费者
type Consumer struct {
	cleanup cleanupRetrier
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	if c == nil || c.CheckoutService == nil {
		return &Consumer{}
	}
	return &Consumer{cleanup: c.CheckoutService}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskCartCleanupRetry, c.handleCartCleanupRetry)
}

func (c *Consumer) handleCartCleanupRetry(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil || c.cleanup == nil {
		logger.Debugw("worker_cart_cleanup_skip_nil", "task_nil", task == nil)
		return nil
	}
	payload, err := queue.ParseCartCleanupRetryPayload(task.Payload())
	if err != nil {
		logger.Warnw("worker_cart_cleanup_invalid_payload", "error", err)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	report, err := c.cleanup.RetryCleanup(ctx, payload.DeviceID, payload.UserID, payload.ProductIDs)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, service.ErrCleanupAbandoned):
		logger.Infow("worker_cart_cleanup_abandoned",
			"device_id", payload.DeviceID,
			"user_id", payload.UserID,
			"product_ids", payload.ProductIDs,
		)
		return nil
	default:
		failed := payload.ProductIDs
		if report != nil {
			failed = report.Failed
		}
		logger.Warnw("worker_cart_cleanup_failed",
			"device_id", payload.DeviceID,
			"user_id", payload.UserID,
			"failed", failed,
			"error", err,
		)
		return err
	}
}
