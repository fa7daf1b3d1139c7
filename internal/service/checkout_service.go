package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/skinshop-next/internal/constants"
	"github.com/skinshop-next/internal/logger"
	"github.com/skinshop-next/internal/models"
	"github.com/skinshop-next/internal/upstream"

	"github.com/google/uuid"
	"go.uber.org/multierr"
)

const defaultPendingCheckoutTTL = 30 * time.Minute

// CheckoutOptions 结算配置
type CheckoutOptions struct {
	ShippingFee   models.Money
	PaymentMethod string
	PendingTTL    time.Duration
}

// CleanupReport 下单后清理购物车行的汇总结果
type CleanupReport struct {
	Attempted      int      `json:"attempted"`
	Removed        []string `json:"removed"`
	Failed         []string `json:"failed"`
	RetryScheduled bool     `json:"retry_scheduled"`
	Warning        string   `json:"warning,omitempty"`
	Err            error    `json:"-"`
}

// OK 全部清理成功
func (r *CleanupReport) OK() bool {
	return r == nil || len(r.Failed) == 0
}

// CommitResult 提交结果
type CommitResult struct {
	Order   *models.Order  `json:"order"`
	Cart    *models.Cart   `json:"cart"`
	Cleanup *CleanupReport `json:"cleanup"`
	Landing string         `json:"landing"`
}

// CheckoutService 待结算草稿与下单流程
type CheckoutService struct {
	sessions   *SessionService
	carts      *CartService
	selections *SelectionStore
	orders     OrderAPI
	cartAPI    CartAPI
	pending    PendingCheckoutStore
	scheduler  CleanupScheduler
	options    CheckoutOptions
	now        func() time.Time

	mu     sync.Mutex
	latest map[string]string // deviceID -> draftID

	onCleanup func(report *CleanupReport)
}

// NewCheckoutService 创建结算服务
func NewCheckoutService(
	sessions *SessionService,
	carts *CartService,
	selections *SelectionStore,
	orders OrderAPI,
	cartAPI CartAPI,
	pending PendingCheckoutStore,
	scheduler CleanupScheduler,
	options CheckoutOptions,
) *CheckoutService {
	if options.PendingTTL <= 0 {
		options.PendingTTL = defaultPendingCheckoutTTL
	}
	if strings.TrimSpace(options.PaymentMethod) == "" {
		options.PaymentMethod = constants.PaymentMethodCOD
	}
	if options.ShippingFee.IsZero() {
		options.ShippingFee = models.NewMoneyFromInt(constants.DefaultShippingFee)
	}
	if pending == nil {
		pending = NewMemoryPendingCheckoutStore()
	}
	return &CheckoutService{
		sessions:   sessions,
		carts:      carts,
		selections: selections,
		orders:     orders,
		cartAPI:    cartAPI,
		pending:    pending,
		scheduler:  scheduler,
		options:    options,
		now:        time.Now,
		latest:     make(map[string]string),
	}
}

// SetCleanupObserver 挂载清理结果观察者（指标）
func (s *CheckoutService) SetCleanupObserver(fn func(report *CleanupReport)) {
	s.onCleanup = fn
}

// BuildOrderDraft 由已选购物车行计算草稿金额
func BuildOrderDraft(items []models.CartItem, shippingFee models.Money) *models.OrderDraft {
	draft := &models.OrderDraft{
		Items:       make([]models.DraftItem, 0, len(items)),
		ShippingFee: shippingFee,
		Discount:    models.NewMoneyFromInt(0),
	}
	subtotal := models.NewMoneyFromInt(0)
	for _, item := range items {
		draft.Items = append(draft.Items, models.DraftItem{
			ProductID:   item.Product.ID,
			ProductName: item.Product.Name,
			Quantity:    item.Quantity,
			Image:       item.Product.FirstImage(),
			Price:       item.Product.Price,
		})
		draft.TotalQuantity += item.Quantity
		subtotal = subtotal.Add(item.Product.Price.Mul(item.Quantity))
	}
	draft.TotalPrice = subtotal.Add(shippingFee)
	return draft
}

// BuildDraft 以当前选择生成待结算草稿
func (s *CheckoutService) BuildDraft(ctx context.Context, deviceID string, sess *models.Session) (*models.OrderDraft, error) {
	if !sess.Authenticated() {
		return nil, ErrNotAuthenticated
	}
	cart := s.carts.Snapshot(sess.ID)
	if cart == nil {
		return nil, ErrEmptySelection
	}
	var selected []models.CartItem
	s.selections.With(deviceID, func(sel *Selection) {
		selected = sel.Selected(cart.Items)
	})
	if len(selected) == 0 {
		return nil, ErrEmptySelection
	}

	draft := BuildOrderDraft(selected, s.options.ShippingFee)
	now := s.now()
	draft.ID = uuid.NewString()
	draft.DeviceID = deviceID
	draft.UserID = sess.ID
	draft.CreatedAt = now
	draft.ExpiresAt = now.Add(s.options.PendingTTL)
	if err := s.pending.Save(ctx, draft, s.options.PendingTTL); err != nil {
		return nil, err
	}

	s.mu.Lock()
	previous := s.latest[deviceID]
	s.latest[deviceID] = draft.ID
	s.mu.Unlock()
	if previous != "" && previous != draft.ID {
		if err := s.pending.Delete(ctx, previous); err != nil {
			logger.Warnw("checkout_draft_delete_failed", "draft_id", previous, "error", err)
		}
	}
	logger.Infow("checkout_draft_created",
		"device_id", deviceID,
		"user_id", sess.ID,
		"draft_id", draft.ID,
		"items", len(draft.Items),
		"total_price", draft.TotalPrice.String(),
	)
	return draft, nil
}

// PendingDraft 读取草稿，缺失、过期或不属于该设备时返回 ErrDraftMissing
func (s *CheckoutService) PendingDraft(ctx context.Context, deviceID, draftID string) (*models.OrderDraft, error) {
	if strings.TrimSpace(draftID) == "" {
		return nil, ErrDraftMissing
	}
	draft, err := s.pending.Load(ctx, draftID)
	if err != nil {
		return nil, err
	}
	if draft == nil || draft.DeviceID != deviceID || draft.Expired(s.now()) {
		return nil, ErrDraftMissing
	}
	return draft, nil
}

// UpdateAddress 结算页补全地址（走资料更新接口）
func (s *CheckoutService) UpdateAddress(ctx context.Context, deviceID string, update upstream.ProfileUpdate) (*models.Session, error) {
	return s.sessions.UpdateProfile(ctx, deviceID, update)
}

// Discard 丢弃设备最近的草稿
func (s *CheckoutService) Discard(ctx context.Context, deviceID string) {
	s.mu.Lock()
	draftID := s.latest[deviceID]
	delete(s.latest, deviceID)
	s.mu.Unlock()
	if draftID != "" {
		if err := s.pending.Delete(ctx, draftID); err != nil {
			logger.Warnw("checkout_draft_delete_failed", "draft_id", draftID, "error", err)
		}
	}
}

// Commit 提交草稿：占用草稿、校验地址、创建订单、汇总清理购物车、强制刷新
func (s *CheckoutService) Commit(ctx context.Context, deviceID, draftID string) (*CommitResult, error) {
	sess, err := s.sessions.Current(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if _, err := s.PendingDraft(ctx, deviceID, draftID); err != nil {
		return nil, err
	}
	claimed, err := s.pending.Claim(ctx, draftID, s.options.PendingTTL)
	if err != nil {
		return nil, err
	}
	if !claimed {
		// 草稿仍在说明另一请求正在提交
		if _, err := s.PendingDraft(ctx, deviceID, draftID); err != nil {
			return nil, err
		}
		return nil, ErrCheckoutInProgress
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		if err := s.pending.Release(context.WithoutCancel(ctx), draftID); err != nil {
			logger.Warnw("checkout_draft_release_failed", "draft_id", draftID, "error", err)
		}
	}()

	// 占用后重新读取，排除在占用前已提交完成的情况
	draft, err := s.PendingDraft(ctx, deviceID, draftID)
	if err != nil {
		return nil, err
	}
	if draft.UserID != sess.ID {
		return nil, ErrDraftMissing
	}
	if !sess.HasShippingAddress() {
		return nil, ErrAddressIncomplete
	}

	order, err := s.orders.CreateOrder(ctx, sess.Token, buildCreateOrderRequest(sess, draft, s.options.PaymentMethod))
	if err != nil {
		logger.Warnw("checkout_order_submit_failed", "device_id", deviceID, "draft_id", draft.ID, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrOrderSubmitFailed, err)
	}
	committed = true
	logger.Infow("checkout_order_created", "device_id", deviceID, "draft_id", draft.ID, "order_id", order.ID)

	// 订单已创建，后续步骤不随请求取消而中断
	bg := context.WithoutCancel(ctx)
	report := s.cleanup(bg, deviceID, sess, draft.ProductIDs())

	cart, refreshErr := s.carts.Refresh(bg, sess)
	if refreshErr != nil {
		logger.Warnw("checkout_cart_refresh_failed", "device_id", deviceID, "error", refreshErr)
	}
	if cart != nil {
		s.selections.With(deviceID, func(sel *Selection) {
			sel.Retain(cart.Items)
		})
	}

	if err := s.pending.Delete(bg, draft.ID); err != nil {
		logger.Warnw("checkout_draft_delete_failed", "draft_id", draft.ID, "error", err)
	}
	s.mu.Lock()
	if s.latest[deviceID] == draft.ID {
		delete(s.latest, deviceID)
	}
	s.mu.Unlock()

	return &CommitResult{
		Order:   order,
		Cart:    cart,
		Cleanup: report,
		Landing: constants.LandingOrderSuccess,
	}, nil
}

// RetryCleanup 补偿删除上次失败的购物车行；设备已登出或换了账号时放弃
func (s *CheckoutService) RetryCleanup(ctx context.Context, deviceID, userID string, productIDs []string) (*CleanupReport, error) {
	sess, ok, err := s.sessions.LoadStored(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if !ok || !sess.Authenticated() || sess.ID != userID {
		return nil, ErrCleanupAbandoned
	}
	report := s.deleteLines(ctx, sess, productIDs)
	if len(report.Removed) > 0 {
		if _, err := s.carts.Refresh(ctx, sess); err != nil {
			logger.Warnw("checkout_cleanup_retry_refresh_failed", "device_id", deviceID, "error", err)
		}
	}
	if s.onCleanup != nil {
		s.onCleanup(report)
	}
	if !report.OK() {
		return report, report.Err
	}
	logger.Infow("checkout_cleanup_retry_done", "device_id", deviceID, "user_id", userID, "removed", report.Removed)
	return report, nil
}

// cleanup 并发删除已下单的购物车行，失败项交给补偿任务
func (s *CheckoutService) cleanup(ctx context.Context, deviceID string, sess *models.Session, productIDs []string) *CleanupReport {
	report := s.deleteLines(ctx, sess, productIDs)
	if len(report.Failed) > 0 {
		report.Warning = fmt.Sprintf("%d of %d cart lines could not be removed after the order was placed", len(report.Failed), report.Attempted)
		logger.Warnw("checkout_cleanup_partial_failure",
			"device_id", deviceID,
			"user_id", sess.ID,
			"failed", report.Failed,
			"errors", len(multierr.Errors(report.Err)),
			"error", report.Err,
		)
		if s.scheduler != nil {
			if err := s.scheduler.EnqueueCartCleanupRetry(deviceID, sess.ID, report.Failed); err != nil {
				logger.Warnw("checkout_cleanup_retry_enqueue_failed", "device_id", deviceID, "error", err)
			} else {
				report.RetryScheduled = true
			}
		}
	}
	if s.onCleanup != nil {
		s.onCleanup(report)
	}
	return report
}

// deleteLines 并发删除，全部等待完成后汇总失败项
func (s *CheckoutService) deleteLines(ctx context.Context, sess *models.Session, productIDs []string) *CleanupReport {
	report := &CleanupReport{
		Attempted: len(productIDs),
		Removed:   []string{},
		Failed:    []string{},
	}
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, productID := range productIDs {
		wg.Add(1)
		go func(productID string) {
			defer wg.Done()
			err := s.cartAPI.DeleteCartItem(ctx, sess.ID, sess.Token, productID)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failed = append(report.Failed, productID)
				report.Err = multierr.Append(report.Err, fmt.Errorf("delete cart line %s: %w", productID, err))
				return
			}
			report.Removed = append(report.Removed, productID)
		}(productID)
	}
	wg.Wait()
	return report
}

func buildCreateOrderRequest(sess *models.Session, draft *models.OrderDraft, paymentMethod string) upstream.CreateOrderRequest {
	items := make([]upstream.CreateOrderItem, 0, len(draft.Items))
	for _, item := range draft.Items {
		items = append(items, upstream.CreateOrderItem{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return upstream.CreateOrderRequest{
		UserID:        sess.ID,
		Items:         items,
		PaymentMethod: paymentMethod,
		ShippingFee:   draft.ShippingFee.Number(),
		Discount:      draft.Discount.Number(),
		ShippingAddress: models.ShippingAddress{
			AddressLine1: sess.Address,
			City:         sess.City,
			Phone:        sess.Phone,
		},
	}
}
