package service

import (
	"context"
	"errors"
	"testing"

	"github.com/skinshop-next/internal/models"
	"github.com/skinshop-next/internal/upstream"
)

func TestCartRefreshFailureKeepsPriorSnapshot(t *testing.T) {
	ctx := context.Background()
	api := newFakeCartAPI(models.CartItem{ID: "i1", Product: testProduct("p1", 100000, 5), Quantity: 2})
	svc := NewCartService(api)
	sess := testSession("u1")

	if _, err := svc.Refresh(ctx, sess); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	api.fetchErr = upstream.ErrNetwork
	cart, err := svc.Refresh(ctx, sess)
	if !errors.Is(err, upstream.ErrNetwork) {
		t.Fatalf("expected network error, got %v", err)
	}
	if cart == nil || len(cart.Items) != 1 || cart.Items[0].Quantity != 2 {
		t.Fatalf("prior snapshot should be kept: %+v", cart)
	}
	if svc.Count("u1") != 2 {
		t.Fatalf("count should come from prior snapshot, got %d", svc.Count("u1"))
	}
	if svc.Count("nobody") != 0 {
		t.Fatalf("count without snapshot should be 0")
	}
}

func TestCartRefreshDiscardsStaleResponse(t *testing.T) {
	svc := NewCartService(newFakeCartAPI())
	older := &models.Cart{ID: "c", Items: []models.CartItem{{ID: "old", Quantity: 1}}}
	newer := &models.Cart{ID: "c", Items: []models.CartItem{{ID: "new", Quantity: 4}}}

	if !svc.apply("u1", 2, newer) {
		t.Fatalf("newer response should apply")
	}
	if svc.apply("u1", 1, older) {
		t.Fatalf("older response must be discarded")
	}
	if got := svc.Snapshot("u1"); got.Items[0].ID != "new" {
		t.Fatalf("snapshot replaced by stale response: %+v", got)
	}
}

func TestChangeQuantityBoundaries(t *testing.T) {
	ctx := context.Background()
	api := newFakeCartAPI(models.CartItem{ID: "i1", Product: testProduct("p1", 100000, 3), Quantity: 2})
	svc := NewCartService(api)
	sess := testSession("u1")
	if _, err := svc.Refresh(ctx, sess); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}

	if _, err := svc.ChangeQuantity(ctx, sess, "i1", 4); !errors.Is(err, ErrStockExceeded) {
		t.Fatalf("expected ErrStockExceeded, got %v", err)
	}
	if api.callCount("update") != 0 {
		t.Fatalf("stock exceeded must not reach upstream")
	}
	if svc.Snapshot("u1").Items[0].Quantity != 2 {
		t.Fatalf("quantity must stay unchanged")
	}

	if _, err := svc.ChangeQuantity(ctx, sess, "i1", 0); !errors.Is(err, ErrQuantityBelowMinimum) {
		t.Fatalf("expected ErrQuantityBelowMinimum, got %v", err)
	}
	if _, err := svc.ChangeQuantity(ctx, sess, "missing", 1); !errors.Is(err, ErrCartItemNotFound) {
		t.Fatalf("expected ErrCartItemNotFound, got %v", err)
	}

	cart, err := svc.ChangeQuantity(ctx, sess, "i1", 3)
	if err != nil {
		t.Fatalf("change quantity failed: %v", err)
	}
	if cart.Items[0].Quantity != 3 {
		t.Fatalf("mutation should return the authoritative cart, got %+v", cart.Items[0])
	}
}

func TestCartMutationsReturnAuthoritativeCart(t *testing.T) {
	ctx := context.Background()
	api := newFakeCartAPI(models.CartItem{ID: "i1", Product: testProduct("p1", 100000, 5), Quantity: 1})
	svc := NewCartService(api)
	sess := testSession("u1")

	cart, err := svc.AddItem(ctx, sess, "p2", 2)
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if len(cart.Items) != 2 || cart.ItemCount() != 3 {
		t.Fatalf("unexpected cart after add: %+v", cart)
	}
	cart, err = svc.RemoveItem(ctx, sess, "p1")
	if err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if len(cart.Items) != 1 || cart.Items[0].Product.ID != "p2" {
		t.Fatalf("unexpected cart after remove: %+v", cart)
	}
	if _, err := svc.AddItem(ctx, sess, "p3", 0); !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}
	if _, err := svc.AddItem(ctx, &models.Session{ID: "u1"}, "p3", 1); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
}

func TestSelectionToggleAllRoundTrip(t *testing.T) {
	items := []models.CartItem{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	sel := NewSelection()
	sel.Toggle("b")

	before := sel.IDs(items)
	sel.ToggleAll(items)
	if sel.Len() != 3 {
		t.Fatalf("toggle-all from partial should select everything, got %d", sel.Len())
	}
	sel.ToggleAll(items)
	if sel.Len() != 0 {
		t.Fatalf("toggle-all from full should clear, got %d", sel.Len())
	}

	sel = NewSelection()
	sel.ToggleAll(items)
	sel.ToggleAll(items)
	sel.ToggleAll(items)
	sel.ToggleAll(items)
	if sel.Len() != 0 {
		t.Fatalf("double toggle-all should return to the original empty set")
	}
	if len(before) != 1 || before[0] != "b" {
		t.Fatalf("unexpected partial selection: %v", before)
	}
}

func TestSelectionRetainAndOrder(t *testing.T) {
	items := []models.CartItem{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	sel := NewSelection()
	sel.Toggle("c")
	sel.Toggle("a")
	if ids := sel.IDs(items); len(ids) != 2 || ids[0] != "a" || ids[1] != "c" {
		t.Fatalf("selected ids should follow cart order: %v", ids)
	}
	sel.Retain(items[:2])
	if sel.Contains("c") || !sel.Contains("a") {
		t.Fatalf("retain should drop ids no longer in the cart")
	}
	sel.Remove("a")
	if sel.Len() != 0 {
		t.Fatalf("remove failed")
	}
}

func TestSelectionToggleAllIgnoresLinesGoneFromCart(t *testing.T) {
	sel := NewSelection()
	sel.ToggleAll([]models.CartItem{{ID: "a"}, {ID: "b"}})

	// 其他设备删除了 b 并加入 c
	current := []models.CartItem{{ID: "a"}, {ID: "c"}}
	sel.ToggleAll(current)
	if sel.Len() != 2 || !sel.Contains("a") || !sel.Contains("c") || sel.Contains("b") {
		t.Fatalf("partial selection of the current cart should select everything: %v", sel.IDs(current))
	}
	sel.ToggleAll(current)
	if sel.Len() != 0 {
		t.Fatalf("toggle-all from full should clear, got %d", sel.Len())
	}
}
