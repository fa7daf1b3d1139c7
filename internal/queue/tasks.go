package queue

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/skinshop-next/internal/constants"

	"github.com/hibiken/asynq"
)

// TaskCartCleanupRetry 下单后购物车行删除失败的补偿任务
const TaskCartCleanupRetry = constants.TaskCartCleanupRetry

var (
	// ErrQueueDisabled 队列未启用
	ErrQueueDisabled = errors.New("queue disabled")
	// ErrInvalidPayload 任务载荷不完整
	ErrInvalidPayload = errors.New("invalid task payload")
)

// CartCleanupRetryPayload 清理重试任务载荷
type CartCleanupRetryPayload struct {
	DeviceID   string   `json:"device_id"`
	UserID     string   `json:"user_id"`
	ProductIDs []string `json:"product_ids"`
}

// Validate 校验载荷
func (p CartCleanupRetryPayload) Validate() error {
	if strings.TrimSpace(p.DeviceID) == "" || strings.TrimSpace(p.UserID) == "" || len(p.ProductIDs) == 0 {
		return ErrInvalidPayload
	}
	return nil
}

// NewCartCleanupRetryTask 创建清理重试任务
func NewCartCleanupRetryTask(payload CartCleanupRetryPayload) (*asynq.Task, error) {
	if err := payload.Validate(); err != nil {
		return nil, err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCartCleanupRetry, body), nil
}

// ParseCartCleanupRetryPayload 解析清理重试任务载荷
func ParseCartCleanupRetryPayload(body []byte) (CartCleanupRetryPayload, error) {
	var payload CartCleanupRetryPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return payload, err
	}
	return payload, payload.Validate()
}
