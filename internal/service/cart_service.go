package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/skinshop-next/internal/logger"
	"github.com/skinshop-next/internal/models"
)

// CartService 购物车会话存储：按用户缓存服务端快照，只做整体替换
type CartService struct {
	api       CartAPI
	seq       atomic.Uint64
	mu        sync.RWMutex
	snapshots map[string]*cartSnapshot
	locks     *keyedMutex
	onRefresh func(outcome string)
}

type cartSnapshot struct {
	cart       *models.Cart
	appliedSeq uint64
	fetchedAt  time.Time
}

// NewCartService 创建购物车服务
func NewCartService(api CartAPI) *CartService {
	return &CartService{
		api:       api,
		snapshots: make(map[string]*cartSnapshot),
		locks:     newKeyedMutex(),
	}
}

// SetRefreshObserver 挂载刷新结果观察者（指标）
func (s *CartService) SetRefreshObserver(fn func(outcome string)) {
	s.onRefresh = fn
}

// Refresh 拉取完整购物车；失败时保留旧快照并返回错误，过期响应直接丢弃
func (s *CartService) Refresh(ctx context.Context, sess *models.Session) (*models.Cart, error) {
	if !sess.Authenticated() {
		return nil, ErrNotAuthenticated
	}
	seq := s.seq.Add(1)
	cart, err := s.api.FetchCart(ctx, sess.ID, sess.Token)
	if err != nil {
		logger.Warnw("cart_refresh_failed", "user_id", sess.ID, "seq", seq, "error", err)
		s.observe("failed")
		return s.Snapshot(sess.ID), err
	}
	applied := s.apply(sess.ID, seq, cart)
	if applied {
		s.observe("applied")
	} else {
		logger.Debugw("cart_refresh_stale_discarded", "user_id", sess.ID, "seq", seq)
		s.observe("discarded")
	}
	return s.Snapshot(sess.ID), nil
}

// Snapshot 返回当前快照副本（未加载时为 nil）
func (s *CartService) Snapshot(userID string) *models.Cart {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry := s.snapshots[userID]
	if entry == nil {
		return nil
	}
	return entry.cart.Clone()
}

// Count 快照中所有行数量之和，无快照时为 0
func (s *CartService) Count(userID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry := s.snapshots[userID]
	if entry == nil {
		return 0
	}
	return entry.cart.ItemCount()
}

// Forget 丢弃用户快照
func (s *CartService) Forget(userID string) {
	s.mu.Lock()
	delete(s.snapshots, userID)
	s.mu.Unlock()
}

// AddItem 加入购物车并返回变更后的权威快照
func (s *CartService) AddItem(ctx context.Context, sess *models.Session, productID string, quantity int) (*models.Cart, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	if strings.TrimSpace(productID) == "" {
		return nil, ErrCartItemNotFound
	}
	return s.mutate(ctx, sess, "add", func() error {
		return s.api.AddCartItem(ctx, sess.ID, sess.Token, productID, quantity)
	})
}

// UpdateQuantity 修改某商品数量并返回变更后的权威快照
func (s *CartService) UpdateQuantity(ctx context.Context, sess *models.Session, productID string, quantity int) (*models.Cart, error) {
	if quantity < 1 {
		return nil, ErrQuantityBelowMinimum
	}
	return s.mutate(ctx, sess, "update", func() error {
		return s.api.UpdateCartItem(ctx, sess.ID, sess.Token, productID, quantity)
	})
}

// RemoveItem 删除某商品并返回变更后的权威快照
func (s *CartService) RemoveItem(ctx context.Context, sess *models.Session, productID string) (*models.Cart, error) {
	return s.mutate(ctx, sess, "remove", func() error {
		return s.api.DeleteCartItem(ctx, sess.ID, sess.Token, productID)
	})
}

// ChangeQuantity 按购物车行修改数量：低于 1 需确认删除，超过库存直接拒绝且不发请求
func (s *CartService) ChangeQuantity(ctx context.Context, sess *models.Session, itemID string, quantity int) (*models.Cart, error) {
	item, err := s.ResolveItem(ctx, sess, itemID)
	if err != nil {
		return nil, err
	}
	if quantity < 1 {
		return nil, ErrQuantityBelowMinimum
	}
	if quantity > item.Product.StockQuantity {
		return nil, fmt.Errorf("%w: %d > %d", ErrStockExceeded, quantity, item.Product.StockQuantity)
	}
	return s.UpdateQuantity(ctx, sess, item.Product.ID, quantity)
}

// ResolveItem 在快照中查找购物车行，快照缺失时先刷新
func (s *CartService) ResolveItem(ctx context.Context, sess *models.Session, itemID string) (models.CartItem, error) {
	if !sess.Authenticated() {
		return models.CartItem{}, ErrNotAuthenticated
	}
	cart := s.Snapshot(sess.ID)
	if cart == nil {
		var err error
		if cart, err = s.Refresh(ctx, sess); err != nil {
			return models.CartItem{}, err
		}
	}
	item, ok := cart.FindItem(itemID)
	if !ok {
		return models.CartItem{}, ErrCartItemNotFound
	}
	return item, nil
}

func (s *CartService) mutate(ctx context.Context, sess *models.Session, action string, call func() error) (*models.Cart, error) {
	if !sess.Authenticated() {
		return nil, ErrNotAuthenticated
	}
	unlock := s.locks.Lock(sess.ID)
	defer unlock()

	if err := call(); err != nil {
		logger.Warnw("cart_mutation_failed", "user_id", sess.ID, "action", action, "error", err)
		return nil, err
	}
	cart, err := s.Refresh(ctx, sess)
	if err != nil {
		return cart, fmt.Errorf("%w: %v", ErrCartRefreshFailed, err)
	}
	return cart, nil
}

func (s *CartService) apply(userID string, seq uint64, cart *models.Cart) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := s.snapshots[userID]
	if entry != nil && entry.appliedSeq > seq {
		return false
	}
	s.snapshots[userID] = &cartSnapshot{cart: cart.Clone(), appliedSeq: seq, fetchedAt: time.Now()}
	return true
}

func (s *CartService) observe(outcome string) {
	if s.onRefresh != nil {
		s.onRefresh(outcome)
	}
}
