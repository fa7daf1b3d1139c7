package cache

import (
	"context"
	"strings"
	"time"

	"github.com/skinshop-next/internal/models"
)

func pendingCheckoutKey(id string) string {
	return "checkout:pending:" + strings.TrimSpace(id)
}

func pendingCheckoutClaimKey(id string) string {
	return "checkout:claim:" + strings.TrimSpace(id)
}

// GetPendingCheckout 获取待结算草稿
func GetPendingCheckout(ctx context.Context, id string) (*models.OrderDraft, bool, error) {
	if strings.TrimSpace(id) == "" {
		return nil, false, nil
	}
	var draft models.OrderDraft
	hit, err := GetJSON(ctx, pendingCheckoutKey(id), &draft)
	if err != nil || !hit {
		return nil, hit, err
	}
	return &draft, true, nil
}

// SetPendingCheckout 写入待结算草稿
func SetPendingCheckout(ctx context.Context, draft *models.OrderDraft, ttl time.Duration) error {
	if draft == nil || strings.TrimSpace(draft.ID) == "" {
		return nil
	}
	return SetJSON(ctx, pendingCheckoutKey(draft.ID), draft, ttl)
}

// DelPendingCheckout 删除待结算草稿
func DelPendingCheckout(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return nil
	}
	return Del(ctx, pendingCheckoutKey(id))
}

// ClaimPendingCheckout 以 SETNX 占用草稿提交权；Redis 未启用时总是成功
func ClaimPendingCheckout(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	if strings.TrimSpace(id) == "" {
		return false, nil
	}
	if !Enabled() {
		return true, nil
	}
	return redisClient.SetNX(ctx, buildKey(pendingCheckoutClaimKey(id)), "1", ttl).Result()
}

// ReleasePendingCheckout 释放草稿提交权
func ReleasePendingCheckout(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return nil
	}
	return Del(ctx, pendingCheckoutClaimKey(id))
}
