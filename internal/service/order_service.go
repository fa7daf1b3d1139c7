package service

import (
	"context"
	"strings"
	"sync"

	"github.com/skinshop-next/internal/constants"
	"github.com/skinshop-next/internal/logger"
	"github.com/skinshop-next/internal/models"
	"github.com/skinshop-next/internal/upstream"
)

const (
	historyScopeMine = "mine"
	historyScopeAll  = "all"
	staffSortBy      = "createdAt_desc"
)

// OrderHistory 订单分页结果（供列表与加载更多使用）
type OrderHistory struct {
	Orders     []models.Order `json:"orders"`
	Page       int            `json:"page"`
	TotalPages int            `json:"total_pages"`
	TotalCount int            `json:"total_count"`
	HasMore    bool           `json:"has_more"`
}

// OrderListFilter 员工/管理员订单列表筛选
type OrderListFilter struct {
	Page   int
	Status string
}

type historyCursor struct {
	loading    bool
	page       int
	totalPages int
	status     string
}

// OrderService 订单历史与状态流转
type OrderService struct {
	api      OrderAPI
	pageSize int

	mu      sync.Mutex
	cursors map[string]*historyCursor
}

// NewOrderService 创建订单服务
func NewOrderService(api OrderAPI, pageSize int) *OrderService {
	if pageSize <= 0 {
		pageSize = constants.DefaultOrdersPageSize
	}
	return &OrderService{
		api:      api,
		pageSize: pageSize,
		cursors:  make(map[string]*historyCursor),
	}
}

// History 当前用户订单分页；同一设备同时只允许一个分页请求
func (s *OrderService) History(ctx context.Context, deviceID string, sess *models.Session, page int) (*OrderHistory, error) {
	if !sess.Authenticated() {
		return nil, ErrNotAuthenticated
	}
	if page < 1 {
		page = 1
	}
	return s.fetchPage(ctx, cursorKey(deviceID, historyScopeMine), "", page, func(p int) upstream.OrderQuery {
		return upstream.OrderQuery{UserID: sess.ID, Page: p, Limit: s.pageSize}
	}, sess.Token)
}

// LoadMore 加载下一页，已到末页时返回空结果
func (s *OrderService) LoadMore(ctx context.Context, deviceID string, sess *models.Session) (*OrderHistory, error) {
	if !sess.Authenticated() {
		return nil, ErrNotAuthenticated
	}
	return s.loadMore(ctx, cursorKey(deviceID, historyScopeMine), sess.Token, func(p int, _ string) upstream.OrderQuery {
		return upstream.OrderQuery{UserID: sess.ID, Page: p, Limit: s.pageSize}
	})
}

// ListAll 员工/管理员查看全部订单
func (s *OrderService) ListAll(ctx context.Context, deviceID string, sess *models.Session, filter OrderListFilter) (*OrderHistory, error) {
	if !sess.Authenticated() {
		return nil, ErrNotAuthenticated
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	status := strings.ToUpper(strings.TrimSpace(filter.Status))
	if status == "ALL" {
		status = ""
	}
	if status != "" && !IsKnownOrderStatus(status) {
		return nil, ErrInvalidOrderStatus
	}
	return s.fetchPage(ctx, cursorKey(deviceID, historyScopeAll), status, page, func(p int) upstream.OrderQuery {
		return upstream.OrderQuery{Page: p, Limit: s.pageSize, Status: status, SortBy: staffSortBy}
	}, sess.Token)
}

// LoadMoreAll 员工/管理员列表加载下一页
func (s *OrderService) LoadMoreAll(ctx context.Context, deviceID string, sess *models.Session) (*OrderHistory, error) {
	if !sess.Authenticated() {
		return nil, ErrNotAuthenticated
	}
	return s.loadMore(ctx, cursorKey(deviceID, historyScopeAll), sess.Token, func(p int, status string) upstream.OrderQuery {
		return upstream.OrderQuery{Page: p, Limit: s.pageSize, Status: status, SortBy: staffSortBy}
	})
}

// Get 查询订单；普通用户只能看到自己的订单
func (s *OrderService) Get(ctx context.Context, sess *models.Session, orderID string) (*models.Order, error) {
	if !sess.Authenticated() {
		return nil, ErrNotAuthenticated
	}
	order, err := s.api.GetOrder(ctx, sess.Token, orderID)
	if err != nil {
		if rejected, ok := upstream.AsRejected(err); ok && rejected.Status == 404 {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if !isStaffRole(sess.Role) && order.User.ID != "" && order.User.ID != sess.ID {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// Cancel 用户取消订单，仅 PENDING 可取消
func (s *OrderService) Cancel(ctx context.Context, sess *models.Session, orderID string) (*models.Order, error) {
	order, err := s.Get(ctx, sess, orderID)
	if err != nil {
		return nil, err
	}
	if !CanCancel(order.OrderStatus) {
		return nil, ErrStatusTransitionInvalid
	}
	return s.transition(ctx, sess, order, constants.OrderStatusCancelled)
}

// Advance 员工推进订单到下一状态
func (s *OrderService) Advance(ctx context.Context, sess *models.Session, orderID string) (*models.Order, error) {
	order, err := s.Get(ctx, sess, orderID)
	if err != nil {
		return nil, err
	}
	next, ok := NextStaffStatus(order.OrderStatus)
	if !ok {
		return nil, ErrStatusTransitionInvalid
	}
	return s.transition(ctx, sess, order, next)
}

// SetStatus 管理员直接设置任意已知状态
func (s *OrderService) SetStatus(ctx context.Context, sess *models.Session, orderID, status string) (*models.Order, error) {
	if !IsKnownOrderStatus(status) {
		return nil, ErrInvalidOrderStatus
	}
	order, err := s.Get(ctx, sess, orderID)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, sess, order, NormalizeOrderStatus(status))
}

// Forget 清理设备分页状态
func (s *OrderService) Forget(deviceID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cursors, cursorKey(deviceID, historyScopeMine))
	delete(s.cursors, cursorKey(deviceID, historyScopeAll))
}

func (s *OrderService) transition(ctx context.Context, sess *models.Session, order *models.Order, status string) (*models.Order, error) {
	updated, err := s.api.UpdateOrderStatus(ctx, sess.Token, order.ID, status)
	if err != nil {
		logger.Warnw("order_status_update_failed",
			"order_id", order.ID,
			"from", order.OrderStatus,
			"to", status,
			"error", err,
		)
		return nil, err
	}
	logger.Infow("order_status_updated",
		"order_id", order.ID,
		"from", order.OrderStatus,
		"to", status,
		"operator", sess.ID,
		"role", sess.Role,
	)
	return updated, nil
}

func (s *OrderService) fetchPage(ctx context.Context, key, status string, page int, build func(page int) upstream.OrderQuery, token string) (*OrderHistory, error) {
	release, err := s.acquire(key)
	if err != nil {
		return nil, err
	}
	result, err := s.query(ctx, token, build(page))
	release(result, status)
	return result, err
}

func (s *OrderService) loadMore(ctx context.Context, key, token string, build func(page int, status string) upstream.OrderQuery) (*OrderHistory, error) {
	s.mu.Lock()
	cursor := s.cursors[key]
	if cursor != nil && cursor.loading {
		s.mu.Unlock()
		return nil, ErrPageLoading
	}
	if cursor == nil || cursor.page >= cursor.totalPages {
		page, totalPages := 0, 0
		if cursor != nil {
			page, totalPages = cursor.page, cursor.totalPages
		}
		s.mu.Unlock()
		return &OrderHistory{Orders: []models.Order{}, Page: page, TotalPages: totalPages}, nil
	}
	cursor.loading = true
	next, status := cursor.page+1, cursor.status
	s.mu.Unlock()

	result, err := s.query(ctx, token, build(next, status))

	s.mu.Lock()
	cursor.loading = false
	if err == nil {
		cursor.page = result.Page
		cursor.totalPages = result.TotalPages
	}
	s.mu.Unlock()
	return result, err
}

func (s *OrderService) acquire(key string) (func(result *OrderHistory, status string), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cursor := s.cursors[key]
	if cursor != nil && cursor.loading {
		return nil, ErrPageLoading
	}
	if cursor == nil {
		cursor = &historyCursor{}
		s.cursors[key] = cursor
	}
	cursor.loading = true
	return func(result *OrderHistory, status string) {
		s.mu.Lock()
		defer s.mu.Unlock()
		cursor.loading = false
		if result != nil {
			cursor.page = result.Page
			cursor.totalPages = result.TotalPages
			cursor.status = status
		}
	}, nil
}

func (s *OrderService) query(ctx context.Context, token string, query upstream.OrderQuery) (*OrderHistory, error) {
	page, err := s.api.ListOrders(ctx, token, query)
	if err != nil {
		logger.Warnw("order_history_fetch_failed", "page", query.Page, "status", query.Status, "error", err)
		return nil, err
	}
	totalPages := page.TotalPages
	if totalPages <= 0 {
		totalPages = 1
	}
	return &OrderHistory{
		Orders:     page.Orders,
		Page:       page.CurrentPage,
		TotalPages: totalPages,
		TotalCount: page.TotalCount,
		HasMore:    page.CurrentPage < totalPages,
	}, nil
}

func cursorKey(deviceID, scope string) string {
	return deviceID + "|" + scope
}

func isStaffRole(role string) bool {
	switch strings.ToUpper(strings.TrimSpace(role)) {
	case constants.RoleStaff, constants.RoleManager:
		return true
	default:
		return false
	}
}
