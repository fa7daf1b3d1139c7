package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/skinshop-next/internal/models"
	"github.com/skinshop-next/internal/repository"
	"github.com/skinshop-next/internal/securebox"
	"github.com/skinshop-next/internal/upstream"

	"github.com/glebarez/sqlite"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"
)

func setupStorage(t *testing.T) *repository.GormDeviceStorageRepository {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := models.MigrateAll(db); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	box, err := securebox.New("test-secret")
	if err != nil {
		t.Fatalf("securebox failed: %v", err)
	}
	return repository.NewDeviceStorageRepository(db, box)
}

// slowStorage 在删除前停顿，模拟慢速设备存储
type slowStorage struct {
	repository.DeviceStorageRepository
	deleteDelay time.Duration
}

func (s *slowStorage) Delete(ctx context.Context, deviceID string, keys ...string) error {
	time.Sleep(s.deleteDelay)
	return s.DeviceStorageRepository.Delete(ctx, deviceID, keys...)
}

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("upstream-secret"))
	if err != nil {
		t.Fatalf("sign token failed: %v", err)
	}
	return token
}

func testSession(id string) *models.Session {
	return &models.Session{
		ID:      id,
		Role:    "USER",
		Token:   "tok-" + id,
		Address: "1 Main St",
		City:    "Hanoi",
		Phone:   "0900",
	}
}

func testProduct(id string, price int64, stock int) models.Product {
	return models.Product{
		ID:            id,
		Name:          "product-" + id,
		Images:        []string{id + ".png"},
		Price:         models.NewMoneyFromInt(price),
		StockQuantity: stock,
	}
}

type fakeAuthAPI struct {
	token         string
	loginErr      error
	profileErr    error
	passwordErr   error
	profileCalls  int
	passwordCalls int
	lastProfile   upstream.ProfileUpdate
}

func (f *fakeAuthAPI) Login(_ context.Context, _, _ string) (string, error) {
	return f.token, f.loginErr
}

func (f *fakeAuthAPI) UpdateProfile(_ context.Context, _, _ string, update upstream.ProfileUpdate) (models.SessionPatch, error) {
	f.profileCalls++
	f.lastProfile = update
	if f.profileErr != nil {
		return models.SessionPatch{}, f.profileErr
	}
	return models.SessionPatch{
		FullName: &update.FullName,
		City:     &update.City,
		Address:  &update.Address,
		Phone:    &update.Phone,
	}, nil
}

func (f *fakeAuthAPI) ChangePassword(_ context.Context, _, _, _, _ string) error {
	f.passwordCalls++
	return f.passwordErr
}

// fakeCartAPI 内存购物车，按商品 ID 维护数量
type fakeCartAPI struct {
	mu         sync.Mutex
	items      []models.CartItem
	fetchErr   error
	deleteErrs map[string]error
	calls      []string
}

func newFakeCartAPI(items ...models.CartItem) *fakeCartAPI {
	return &fakeCartAPI{items: items, deleteErrs: map[string]error{}}
}

func (f *fakeCartAPI) record(call string) {
	f.calls = append(f.calls, call)
}

func (f *fakeCartAPI) callCount(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, call := range f.calls {
		if strings.HasPrefix(call, prefix) {
			n++
		}
	}
	return n
}

func (f *fakeCartAPI) FetchCart(_ context.Context, userID, _ string) (*models.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("fetch")
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	cart := &models.Cart{ID: "cart-" + userID, User: userID, Items: append([]models.CartItem(nil), f.items...)}
	total := models.NewMoneyFromInt(0)
	for _, item := range cart.Items {
		total = total.Add(item.Product.Price.Mul(item.Quantity))
	}
	cart.TotalPrice = total
	return cart, nil
}

func (f *fakeCartAPI) AddCartItem(_ context.Context, _, _, productID string, quantity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("add:" + productID)
	for i := range f.items {
		if f.items[i].Product.ID == productID {
			f.items[i].Quantity += quantity
			return nil
		}
	}
	f.items = append(f.items, models.CartItem{ID: "line-" + productID, Product: testProduct(productID, 1000, 99), Quantity: quantity})
	return nil
}

func (f *fakeCartAPI) UpdateCartItem(_ context.Context, _, _, productID string, quantity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("update:" + productID)
	for i := range f.items {
		if f.items[i].Product.ID == productID {
			f.items[i].Quantity = quantity
			return nil
		}
	}
	return &upstream.RejectedError{Status: 404, Message: "not in cart"}
}

func (f *fakeCartAPI) DeleteCartItem(_ context.Context, _, _, productID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("delete:" + productID)
	if err := f.deleteErrs[productID]; err != nil {
		return err
	}
	kept := f.items[:0]
	for _, item := range f.items {
		if item.Product.ID != productID {
			kept = append(kept, item)
		}
	}
	f.items = kept
	return nil
}

type fakeOrderAPI struct {
	mu        sync.Mutex
	orders    map[string]*models.Order
	createErr error
	created   []upstream.CreateOrderRequest
	pages     map[int]*models.OrderPage
	queries   []upstream.OrderQuery
	block     chan struct{}
	delay     time.Duration
}

func newFakeOrderAPI() *fakeOrderAPI {
	return &fakeOrderAPI{orders: map[string]*models.Order{}, pages: map[int]*models.OrderPage{}}
}

func (f *fakeOrderAPI) CreateOrder(_ context.Context, _ string, req upstream.CreateOrderRequest) (*models.Order, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, req)
	order := &models.Order{ID: fmt.Sprintf("order-%d", len(f.created)), OrderStatus: "PENDING", User: models.OrderUser{ID: req.UserID}}
	f.orders[order.ID] = order
	return order, nil
}

func (f *fakeOrderAPI) ListOrders(_ context.Context, _ string, query upstream.OrderQuery) (*models.OrderPage, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	if page, ok := f.pages[query.Page]; ok {
		return page, nil
	}
	return &models.OrderPage{Orders: []models.Order{}, CurrentPage: query.Page, TotalPages: 1}, nil
}

func (f *fakeOrderAPI) GetOrder(_ context.Context, _, orderID string) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[orderID]
	if !ok {
		return nil, &upstream.RejectedError{Status: 404, Message: "Order not found"}
	}
	cp := *order
	return &cp, nil
}

func (f *fakeOrderAPI) UpdateOrderStatus(_ context.Context, _, orderID, status string) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[orderID]
	if !ok {
		return nil, &upstream.RejectedError{Status: 404, Message: "Order not found"}
	}
	order.OrderStatus = status
	cp := *order
	return &cp, nil
}

type fakeScheduler struct {
	mu    sync.Mutex
	calls [][]string
	err   error
}

func (f *fakeScheduler) EnqueueCartCleanupRetry(_, _ string, productIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, append([]string(nil), productIDs...))
	return f.err
}
