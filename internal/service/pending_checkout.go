package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/skinshop-next/internal/cache"
	"github.com/skinshop-next/internal/models"
)

// PendingCheckoutStore 待结算草稿存储
type PendingCheckoutStore interface {
	Save(ctx context.Context, draft *models.OrderDraft, ttl time.Duration) error
	Load(ctx context.Context, id string) (*models.OrderDraft, error)
	Delete(ctx context.Context, id string) error
	// Claim 原子占用草稿，已被占用时返回 false
	Claim(ctx context.Context, id string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, id string) error
}

// NewPendingCheckoutStore Redis 启用时跨实例共享，否则进程内保存
func NewPendingCheckoutStore() PendingCheckoutStore {
	if cache.Enabled() {
		return RedisPendingCheckoutStore{}
	}
	return NewMemoryPendingCheckoutStore()
}

// MemoryPendingCheckoutStore 进程内实现
type MemoryPendingCheckoutStore struct {
	mu     sync.Mutex
	drafts map[string]*models.OrderDraft
	claims map[string]time.Time
	now    func() time.Time
}

// NewMemoryPendingCheckoutStore 创建进程内存储
func NewMemoryPendingCheckoutStore() *MemoryPendingCheckoutStore {
	return &MemoryPendingCheckoutStore{
		drafts: make(map[string]*models.OrderDraft),
		claims: make(map[string]time.Time),
		now:    time.Now,
	}
}

// Save 保存草稿并清理已过期条目
func (m *MemoryPendingCheckoutStore) Save(_ context.Context, draft *models.OrderDraft, ttl time.Duration) error {
	if draft == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for id, existing := range m.drafts {
		if existing.Expired(now) {
			delete(m.drafts, id)
		}
	}
	cp := *draft
	if ttl > 0 && cp.ExpiresAt.IsZero() {
		cp.ExpiresAt = now.Add(ttl)
	}
	m.drafts[cp.ID] = &cp
	return nil
}

// Load 读取草稿，缺失或过期返回 ErrDraftMissing
func (m *MemoryPendingCheckoutStore) Load(_ context.Context, id string) (*models.OrderDraft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	draft, ok := m.drafts[strings.TrimSpace(id)]
	if !ok {
		return nil, ErrDraftMissing
	}
	if draft.Expired(m.now()) {
		delete(m.drafts, draft.ID)
		return nil, ErrDraftMissing
	}
	cp := *draft
	return &cp, nil
}

// Delete 删除草稿
func (m *MemoryPendingCheckoutStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.drafts, strings.TrimSpace(id))
	return nil
}

// Claim 占用草稿直到 ttl 到期或 Release
func (m *MemoryPendingCheckoutStore) Claim(_ context.Context, id string, ttl time.Duration) (bool, error) {
	id = strings.TrimSpace(id)
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for claimed, until := range m.claims {
		if !now.Before(until) {
			delete(m.claims, claimed)
		}
	}
	if _, ok := m.claims[id]; ok {
		return false, nil
	}
	m.claims[id] = now.Add(ttl)
	return true, nil
}

// Release 释放占用
func (m *MemoryPendingCheckoutStore) Release(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.claims, strings.TrimSpace(id))
	return nil
}

// RedisPendingCheckoutStore Redis 实现，过期由 TTL 负责
type RedisPendingCheckoutStore struct{}

// Save 保存草稿
func (RedisPendingCheckoutStore) Save(ctx context.Context, draft *models.OrderDraft, ttl time.Duration) error {
	return cache.SetPendingCheckout(ctx, draft, ttl)
}

// Load 读取草稿
func (RedisPendingCheckoutStore) Load(ctx context.Context, id string) (*models.OrderDraft, error) {
	draft, ok, err := cache.GetPendingCheckout(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok || draft.Expired(time.Now()) {
		return nil, ErrDraftMissing
	}
	return draft, nil
}

// Delete 删除草稿
func (RedisPendingCheckoutStore) Delete(ctx context.Context, id string) error {
	return cache.DelPendingCheckout(ctx, id)
}

// Claim SETNX 占用
func (RedisPendingCheckoutStore) Claim(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	return cache.ClaimPendingCheckout(ctx, id, ttl)
}

// Release 释放占用
func (RedisPendingCheckoutStore) Release(ctx context.Context, id string) error {
	return cache.ReleasePendingCheckout(ctx, id)
}
