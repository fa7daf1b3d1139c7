package authz

import (
	"fmt"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupAuthzServiceTest(t *testing.T) *Service {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	svc, err := NewService(db)
	if err != nil {
		t.Fatalf("new authz service failed: %v", err)
	}
	if err := svc.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("bootstrap roles failed: %v", err)
	}
	return svc
}

func TestRoleAreas(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	cases := []struct {
		role   string
		path   string
		method string
		allow  bool
	}{
		{"USER", "/api/v1/cart/items/abc", "PUT", true},
		{"USER", "/api/v1/orders/o1/cancel", "POST", true},
		{"USER", "/api/v1/staff/orders", "GET", false},
		{"USER", "/api/v1/admin/orders/o1/status", "PATCH", false},
		{"", "/api/v1/me", "GET", true},
		{"GUEST", "/api/v1/checkout/drafts", "POST", true},
		{"STAFF", "/api/v1/staff/orders/o1/advance", "POST", true},
		{"STAFF", "/api/v1/cart", "GET", true},
		{"STAFF", "/api/v1/admin/orders", "GET", false},
		{"MANAGER", "/api/v1/admin/orders/o1/status", "PATCH", true},
		{"manager", "/api/v1/staff/orders", "GET", true},
		{"MANAGER", "/api/v1/cart/count", "GET", true},
	}
	for _, tc := range cases {
		allow, err := svc.EnforceRole(tc.role, tc.path, tc.method)
		if err != nil {
			t.Fatalf("enforce %s %s failed: %v", tc.role, tc.path, err)
		}
		if allow != tc.allow {
			t.Fatalf("role %q %s %s: want %v got %v", tc.role, tc.method, tc.path, tc.allow, allow)
		}
	}
}

func TestBootstrapIsIdempotent(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("second bootstrap failed: %v", err)
	}
	policies, err := svc.RolePolicies("STAFF")
	if err != nil {
		t.Fatalf("role policies failed: %v", err)
	}
	seen := map[string]int{}
	for _, p := range policies {
		seen[p.Subject+p.Object+p.Action]++
	}
	for key, n := range seen {
		if n != 1 {
			t.Fatalf("duplicate policy %s", key)
		}
	}
	if _, ok := seen["role:USER/cart*"]; !ok {
		t.Fatalf("staff should inherit customer policies: %+v", policies)
	}
}

func TestGrantAndRevokeRolePolicy(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.GrantRolePolicy("staff", "/reports/:id", "get"); err != nil {
		t.Fatalf("grant failed: %v", err)
	}
	allow, err := svc.EnforceRole("STAFF", "/api/v1/reports/7", "GET")
	if err != nil || !allow {
		t.Fatalf("expected allow after grant: %v %v", allow, err)
	}
	if err := svc.RevokeRolePolicy("STAFF", "/reports/:id", "GET"); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	allow, err = svc.EnforceRole("STAFF", "/api/v1/reports/7", "GET")
	if err != nil || allow {
		t.Fatalf("expected deny after revoke: %v %v", allow, err)
	}
}

func TestNormalizeObject(t *testing.T) {
	cases := map[string]string{
		"":                "/",
		"/api/v1":         "/",
		"/api/v1/cart":    "/cart",
		"staff/orders":    "/staff/orders",
		" /admin/orders ": "/admin/orders",
	}
	for in, want := range cases {
		if got := NormalizeObject(in); got != want {
			t.Fatalf("normalize %q: want %q got %q", in, want, got)
		}
	}
}
