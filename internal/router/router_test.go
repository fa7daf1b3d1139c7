package router

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/skinshop-next/internal/config"
	"github.com/skinshop-next/internal/constants"
	"github.com/skinshop-next/internal/models"
	"github.com/skinshop-next/internal/provider"
	"github.com/skinshop-next/internal/upstream"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"gorm.io/gorm"
)

type storefrontLine struct {
	itemID    string
	productID string
	price     int
	quantity  int
}

// fakeStorefront 模拟商城 REST API 的最小子集
type fakeStorefront struct {
	mu      sync.Mutex
	lines   []storefrontLine
	removed map[string]bool
	orders  int
}

func newFakeStorefront() *fakeStorefront {
	return &fakeStorefront{
		lines: []storefrontLine{
			{itemID: "i1", productID: "p1", price: 100000, quantity: 2},
			{itemID: "i2", productID: "p2", price: 50000, quantity: 1},
		},
		removed: make(map[string]bool),
	}
}

func (f *fakeStorefront) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	path := r.URL.Path
	switch {
	case r.Method == http.MethodGet && strings.HasPrefix(path, "/carts/"):
		_, _ = io.WriteString(w, f.renderCart(strings.TrimPrefix(path, "/carts/")))
	case r.Method == http.MethodDelete && strings.HasPrefix(path, "/carts/"):
		parts := strings.Split(path, "/")
		f.removed[parts[len(parts)-1]] = true
		_, _ = io.WriteString(w, `{"success":true}`)
	case r.Method == http.MethodPost && path == "/orders":
		f.orders++
		fmt.Fprintf(w, `{"success":true,"data":{"_id":"o-%d","userId":{"_id":"u1"},"orderStatus":"PENDING","totalPrice":300000}}`, f.orders)
	case r.Method == http.MethodGet && path == "/orders":
		_, _ = io.WriteString(w, `{"success":true,"data":{"data":[{"_id":"o-1","userId":{"_id":"u1"},"orderStatus":"PENDING"}],"totalCount":1,"totalPages":1,"currentPage":1}}`)
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"success":false,"message":"not found"}`)
	}
}

func (f *fakeStorefront) renderCart(userID string) string {
	items := make([]string, 0, len(f.lines))
	for _, line := range f.lines {
		if f.removed[line.productID] {
			continue
		}
		items = append(items, fmt.Sprintf(
			`{"_id":%q,"product":{"_id":%q,"name":"Item %s","images":[],"price":%d,"stockQuantity":10},"quantity":%d}`,
			line.itemID, line.productID, line.productID, line.price, line.quantity,
		))
	}
	return fmt.Sprintf(`{"success":true,"data":{"_id":"c1","user":%q,"items":[%s]}}`, userID, strings.Join(items, ","))
}

type gatewayFixture struct {
	engine    *gin.Engine
	container *provider.Container
}

func newGatewayFixture(t *testing.T) *gatewayFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	srv := httptest.NewServer(newFakeStorefront())
	t.Cleanup(srv.Close)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, models.MigrateAll(db))

	cfg := &config.Config{}
	cfg.Server.Mode = "debug"
	api := upstream.New(upstream.Config{BaseURL: srv.URL, Timeout: 5 * time.Second})
	container, err := provider.Build(cfg, db, api, nil)
	require.NoError(t, err)

	return &gatewayFixture{engine: SetupRouter(cfg, container), container: container}
}

func (f *gatewayFixture) do(t *testing.T, method, path, deviceID, body string) gjson.Result {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if deviceID != "" {
		req.Header.Set(constants.DeviceIDHeader, deviceID)
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return gjson.ParseBytes(w.Body.Bytes())
}

func (f *gatewayFixture) login(t *testing.T, deviceID string, claims jwt.MapClaims) gjson.Result {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("storefront"))
	require.NoError(t, err)
	return f.do(t, http.MethodPost, "/api/v1/auth/token", deviceID, fmt.Sprintf(`{"token":%q}`, token))
}

func TestGatewaySessionStates(t *testing.T) {
	f := newGatewayFixture(t)

	health := f.do(t, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, "ok", health.Get("status").String())
	assert.False(t, health.Get("sessions_ready").Bool())

	assert.Equal(t, int64(400), f.do(t, http.MethodGet, "/api/v1/me", "", "").Get("status_code").Int())
	assert.Equal(t, int64(503), f.do(t, http.MethodGet, "/api/v1/me", "dev-1", "").Get("status_code").Int())

	f.container.Rehydrate(context.Background())
	assert.Equal(t, int64(401), f.do(t, http.MethodGet, "/api/v1/me", "dev-1", "").Get("status_code").Int())

	resp := f.login(t, "dev-1", jwt.MapClaims{"id": "u1", "role": "user"})
	assert.Equal(t, int64(0), resp.Get("status_code").Int())
	assert.Equal(t, constants.LandingHome, resp.Get("data.landing").String())

	me := f.do(t, http.MethodGet, "/api/v1/me", "dev-1", "")
	assert.Equal(t, "u1", me.Get("data.user.id").String())
	assert.Equal(t, int64(401), f.do(t, http.MethodGet, "/api/v1/me", "dev-2", "").Get("status_code").Int())

	f.do(t, http.MethodPost, "/api/v1/auth/logout", "dev-1", "")
	assert.Equal(t, int64(401), f.do(t, http.MethodGet, "/api/v1/me", "dev-1", "").Get("status_code").Int())
}

func TestGatewayCheckoutFlow(t *testing.T) {
	f := newGatewayFixture(t)
	f.container.Rehydrate(context.Background())
	f.login(t, "dev-1", jwt.MapClaims{"id": "u1", "address": "12 Le Loi", "city": "Hue", "phone": "0911"})

	cart := f.do(t, http.MethodGet, "/api/v1/cart", "dev-1", "")
	require.Equal(t, int64(0), cart.Get("status_code").Int(), cart.Raw)
	assert.Equal(t, int64(3), cart.Get("data.count").Int())
	assert.Len(t, cart.Get("data.selected_ids").Array(), 0)
	assert.Equal(t, int64(3), f.do(t, http.MethodGet, "/api/v1/cart/count", "dev-1", "").Get("data.count").Int())

	draftResp := f.do(t, http.MethodPost, "/api/v1/checkout/drafts", "dev-1", "")
	assert.Equal(t, int64(400), draftResp.Get("status_code").Int(), "empty selection should be rejected")

	all := f.do(t, http.MethodPost, "/api/v1/cart/selection/toggle-all", "dev-1", "")
	assert.True(t, all.Get("data.all_selected").Bool())

	draftResp = f.do(t, http.MethodPost, "/api/v1/checkout/drafts", "dev-1", "")
	require.Equal(t, int64(0), draftResp.Get("status_code").Int(), draftResp.Raw)
	assert.Equal(t, "300000.00", draftResp.Get("data.draft.totalPrice").String())
	assert.Equal(t, int64(3), draftResp.Get("data.draft.totalQuantity").Int())
	assert.True(t, draftResp.Get("data.address_complete").Bool())
	draftID := draftResp.Get("data.draft.id").String()

	other := f.do(t, http.MethodGet, "/api/v1/checkout/drafts/"+draftID, "dev-2", "")
	assert.NotEqual(t, int64(0), other.Get("status_code").Int())

	commit := f.do(t, http.MethodPost, "/api/v1/checkout/drafts/"+draftID+"/commit", "dev-1", "")
	require.Equal(t, int64(0), commit.Get("status_code").Int(), commit.Raw)
	assert.Equal(t, constants.LandingOrderSuccess, commit.Get("data.landing").String())
	assert.Equal(t, "o-1", commit.Get("data.order._id").String())
	assert.Len(t, commit.Get("data.cart.items").Array(), 0)
	assert.Equal(t, int64(2), commit.Get("data.cleanup.attempted").Int())

	gone := f.do(t, http.MethodPost, "/api/v1/checkout/drafts/"+draftID+"/commit", "dev-1", "")
	assert.Equal(t, int64(410), gone.Get("status_code").Int())
}

func TestGatewayRoleAreas(t *testing.T) {
	f := newGatewayFixture(t)
	f.container.Rehydrate(context.Background())

	f.login(t, "dev-user", jwt.MapClaims{"id": "u1"})
	assert.Equal(t, int64(403), f.do(t, http.MethodGet, "/api/v1/staff/orders", "dev-user", "").Get("status_code").Int())

	staff := f.login(t, "dev-staff", jwt.MapClaims{"id": "s1", "role": "STAFF"})
	assert.Equal(t, constants.LandingStaff, staff.Get("data.landing").String())
	orders := f.do(t, http.MethodGet, "/api/v1/staff/orders?status=all", "dev-staff", "")
	require.Equal(t, int64(0), orders.Get("status_code").Int(), orders.Raw)
	assert.Equal(t, "o-1", orders.Get("data.orders.0._id").String())
	assert.Equal(t, int64(403), f.do(t, http.MethodGet, "/api/v1/admin/orders", "dev-staff", "").Get("status_code").Int())

	manager := f.login(t, "dev-manager", jwt.MapClaims{"id": "m1", "role": "MANAGER"})
	assert.Equal(t, constants.LandingAdmin, manager.Get("data.landing").String())
	assert.Equal(t, int64(0), f.do(t, http.MethodGet, "/api/v1/staff/orders", "dev-manager", "").Get("status_code").Int())
	policies := f.do(t, http.MethodGet, "/api/v1/admin/authz/policies?role=STAFF", "dev-manager", "")
	require.Equal(t, int64(0), policies.Get("status_code").Int(), policies.Raw)
	assert.NotEmpty(t, policies.Get("data.policies").Array())
}
