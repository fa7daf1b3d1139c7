package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/skinshop-next/internal/constants"
	"github.com/skinshop-next/internal/models"
	"github.com/skinshop-next/internal/upstream"

	"github.com/golang-jwt/jwt/v5"
)

type checkoutFixture struct {
	sessions   *SessionService
	carts      *CartService
	selections *SelectionStore
	cartAPI    *fakeCartAPI
	orderAPI   *fakeOrderAPI
	scheduler  *fakeScheduler
	checkout   *CheckoutService
}

func newCheckoutFixture(t *testing.T, claims jwt.MapClaims) *checkoutFixture {
	t.Helper()
	ctx := context.Background()
	f := &checkoutFixture{
		selections: NewSelectionStore(),
		cartAPI: newFakeCartAPI(
			models.CartItem{ID: "i1", Product: testProduct("p1", 100000, 10), Quantity: 2},
			models.CartItem{ID: "i2", Product: testProduct("p2", 50000, 10), Quantity: 1},
			models.CartItem{ID: "i3", Product: testProduct("p3", 20000, 10), Quantity: 1},
		),
		orderAPI:  newFakeOrderAPI(),
		scheduler: &fakeScheduler{},
	}
	f.sessions = NewSessionService(setupStorage(t), &fakeAuthAPI{}, NewTokenDecoder(""))
	if err := f.sessions.Rehydrate(ctx); err != nil {
		t.Fatalf("rehydrate failed: %v", err)
	}
	sess, err := f.sessions.Login(ctx, "dev-1", signToken(t, claims))
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	f.carts = NewCartService(f.cartAPI)
	if _, err := f.carts.Refresh(ctx, sess); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	f.checkout = NewCheckoutService(f.sessions, f.carts, f.selections, f.orderAPI, f.cartAPI, NewMemoryPendingCheckoutStore(), f.scheduler, CheckoutOptions{})
	return f
}

func (f *checkoutFixture) selectLines(deviceID string, ids ...string) {
	f.selections.With(deviceID, func(sel *Selection) {
		for _, id := range ids {
			sel.Toggle(id)
		}
	})
}

func addressClaims() jwt.MapClaims {
	return jwt.MapClaims{"id": "u1", "address": "12 Le Loi", "city": "Hue", "phone": "0911"}
}

func TestBuildOrderDraftTotals(t *testing.T) {
	items := []models.CartItem{
		{ID: "i1", Product: testProduct("p1", 100000, 10), Quantity: 2},
		{ID: "i2", Product: testProduct("p2", 50000, 10), Quantity: 1},
	}
	draft := BuildOrderDraft(items, models.NewMoneyFromInt(constants.DefaultShippingFee))
	if draft.TotalQuantity != 3 {
		t.Fatalf("expected total quantity 3, got %d", draft.TotalQuantity)
	}
	if draft.TotalPrice.String() != "300000.00" {
		t.Fatalf("expected total 300000.00, got %s", draft.TotalPrice.String())
	}
	if draft.Discount.String() != "0.00" || draft.Items[0].Image != "p1.png" {
		t.Fatalf("unexpected draft: %+v", draft)
	}
}

func TestBuildDraftRequiresSelection(t *testing.T) {
	f := newCheckoutFixture(t, addressClaims())
	sess, _ := f.sessions.Current(context.Background(), "dev-1")
	if _, err := f.checkout.BuildDraft(context.Background(), "dev-1", sess); !errors.Is(err, ErrEmptySelection) {
		t.Fatalf("expected ErrEmptySelection, got %v", err)
	}
}

func TestCommitRejectsIncompleteAddress(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t, jwt.MapClaims{"id": "u1", "city": "Hue"})
	sess, _ := f.sessions.Current(ctx, "dev-1")
	f.selectLines("dev-1", "i1")
	draft, err := f.checkout.BuildDraft(ctx, "dev-1", sess)
	if err != nil {
		t.Fatalf("build draft failed: %v", err)
	}
	if _, err := f.checkout.Commit(ctx, "dev-1", draft.ID); !errors.Is(err, ErrAddressIncomplete) {
		t.Fatalf("expected ErrAddressIncomplete, got %v", err)
	}
	if len(f.orderAPI.created) != 0 {
		t.Fatalf("order must not be created without address")
	}
	if _, err := f.checkout.PendingDraft(ctx, "dev-1", draft.ID); err != nil {
		t.Fatalf("draft should survive: %v", err)
	}
}

func TestCommitSubmitFailurePreservesDraft(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t, addressClaims())
	sess, _ := f.sessions.Current(ctx, "dev-1")
	f.selectLines("dev-1", "i1", "i2")
	draft, err := f.checkout.BuildDraft(ctx, "dev-1", sess)
	if err != nil {
		t.Fatalf("build draft failed: %v", err)
	}

	f.orderAPI.createErr = &upstream.RejectedError{Status: 400, Message: "Out of stock"}
	_, err = f.checkout.Commit(ctx, "dev-1", draft.ID)
	if !errors.Is(err, ErrOrderSubmitFailed) || upstream.MessageOf(err) != "Out of stock" {
		t.Fatalf("expected submit failure carrying server message, got %v", err)
	}
	if f.cartAPI.callCount("delete") != 0 {
		t.Fatalf("cart must be untouched on submit failure")
	}
	if _, err := f.checkout.PendingDraft(ctx, "dev-1", draft.ID); err != nil {
		t.Fatalf("draft should survive submit failure: %v", err)
	}

	f.orderAPI.createErr = nil
	if _, err := f.checkout.Commit(ctx, "dev-1", draft.ID); err != nil {
		t.Fatalf("retry after submit failure should succeed: %v", err)
	}
	if len(f.orderAPI.created) != 1 {
		t.Fatalf("expected exactly one order, got %d", len(f.orderAPI.created))
	}
}

func TestCommitConcurrentSubmitsCreateOneOrder(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t, addressClaims())
	sess, _ := f.sessions.Current(ctx, "dev-1")
	f.selectLines("dev-1", "i1", "i2")
	draft, err := f.checkout.BuildDraft(ctx, "dev-1", sess)
	if err != nil {
		t.Fatalf("build draft failed: %v", err)
	}
	f.orderAPI.delay = 50 * time.Millisecond

	const attempts = 5
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  []error
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.checkout.Commit(ctx, "dev-1", draft.ID)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
				return
			}
			rejected = append(rejected, err)
		}()
	}
	wg.Wait()

	if succeeded != 1 || len(f.orderAPI.created) != 1 {
		t.Fatalf("successful commits=%d orders created upstream=%d", succeeded, len(f.orderAPI.created))
	}
	for _, err := range rejected {
		if !errors.Is(err, ErrCheckoutInProgress) && !errors.Is(err, ErrDraftMissing) {
			t.Fatalf("duplicate commit should be rejected as in progress or missing, got %v", err)
		}
	}
	if _, err := f.checkout.Commit(ctx, "dev-1", draft.ID); !errors.Is(err, ErrDraftMissing) {
		t.Fatalf("committed draft should be gone, got %v", err)
	}
}

func TestCommitCleanupPartialFailureStillSucceeds(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t, addressClaims())
	sess, _ := f.sessions.Current(ctx, "dev-1")
	f.selectLines("dev-1", "i1", "i2", "i3")
	draft, err := f.checkout.BuildDraft(ctx, "dev-1", sess)
	if err != nil {
		t.Fatalf("build draft failed: %v", err)
	}

	var observed *CleanupReport
	f.checkout.SetCleanupObserver(func(report *CleanupReport) { observed = report })
	f.cartAPI.deleteErrs["p2"] = upstream.ErrNetwork

	result, err := f.checkout.Commit(ctx, "dev-1", draft.ID)
	if err != nil {
		t.Fatalf("commit should succeed once the order exists: %v", err)
	}
	if result.Landing != constants.LandingOrderSuccess || result.Order == nil {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.Cleanup.OK() || len(result.Cleanup.Failed) != 1 || result.Cleanup.Failed[0] != "p2" {
		t.Fatalf("cleanup should report p2 as failed: %+v", result.Cleanup)
	}
	if result.Cleanup.Attempted != 3 || len(result.Cleanup.Removed) != 2 || result.Cleanup.Warning == "" {
		t.Fatalf("unexpected cleanup report: %+v", result.Cleanup)
	}
	if !result.Cleanup.RetryScheduled || len(f.scheduler.calls) != 1 || f.scheduler.calls[0][0] != "p2" {
		t.Fatalf("retry should be scheduled for p2: %v", f.scheduler.calls)
	}
	if observed != result.Cleanup {
		t.Fatalf("cleanup observer not invoked")
	}
	if len(result.Cart.Items) != 1 || result.Cart.Items[0].Product.ID != "p2" {
		t.Fatalf("cart should reflect server state after refresh: %+v", result.Cart.Items)
	}
	f.selections.With("dev-1", func(sel *Selection) {
		if sel.Len() != 1 || !sel.Contains("i2") {
			t.Fatalf("selection should keep only surviving lines")
		}
	})
	if _, err := f.checkout.PendingDraft(ctx, "dev-1", draft.ID); !errors.Is(err, ErrDraftMissing) {
		t.Fatalf("draft should be consumed after commit, got %v", err)
	}

	req := f.orderAPI.created[0]
	if req.ShippingFee.String() != "50000" || req.Discount.String() != "0" || req.PaymentMethod != constants.PaymentMethodCOD {
		t.Fatalf("unexpected order request: %+v", req)
	}
	if req.ShippingAddress.AddressLine1 != "12 Le Loi" || len(req.Items) != 3 {
		t.Fatalf("unexpected order request: %+v", req)
	}
}

func TestPendingDraftScopedToDeviceAndExpiry(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t, addressClaims())
	sess, _ := f.sessions.Current(ctx, "dev-1")
	f.selectLines("dev-1", "i1")
	draft, err := f.checkout.BuildDraft(ctx, "dev-1", sess)
	if err != nil {
		t.Fatalf("build draft failed: %v", err)
	}
	if _, err := f.checkout.PendingDraft(ctx, "dev-2", draft.ID); !errors.Is(err, ErrDraftMissing) {
		t.Fatalf("other device must not see the draft, got %v", err)
	}
	if _, err := f.checkout.PendingDraft(ctx, "dev-1", ""); !errors.Is(err, ErrDraftMissing) {
		t.Fatalf("empty id should be missing, got %v", err)
	}

	f.checkout.now = func() time.Time { return time.Now().Add(2 * defaultPendingCheckoutTTL) }
	if _, err := f.checkout.PendingDraft(ctx, "dev-1", draft.ID); !errors.Is(err, ErrDraftMissing) {
		t.Fatalf("expired draft should be missing, got %v", err)
	}
}

func TestBuildDraftReplacesPreviousDraft(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t, addressClaims())
	sess, _ := f.sessions.Current(ctx, "dev-1")
	f.selectLines("dev-1", "i1")
	first, err := f.checkout.BuildDraft(ctx, "dev-1", sess)
	if err != nil {
		t.Fatalf("build draft failed: %v", err)
	}
	second, err := f.checkout.BuildDraft(ctx, "dev-1", sess)
	if err != nil {
		t.Fatalf("build draft failed: %v", err)
	}
	if _, err := f.checkout.PendingDraft(ctx, "dev-1", first.ID); !errors.Is(err, ErrDraftMissing) {
		t.Fatalf("previous draft should be dropped, got %v", err)
	}
	f.checkout.Discard(ctx, "dev-1")
	if _, err := f.checkout.PendingDraft(ctx, "dev-1", second.ID); !errors.Is(err, ErrDraftMissing) {
		t.Fatalf("discarded draft should be missing, got %v", err)
	}
}

func TestRetryCleanupRemovesRemainingLines(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t, addressClaims())

	f.cartAPI.deleteErrs["p2"] = upstream.ErrNetwork
	report, err := f.checkout.RetryCleanup(ctx, "dev-1", "u1", []string{"p2"})
	if err == nil || report.OK() {
		t.Fatalf("retry should fail while upstream keeps failing: %v", err)
	}

	delete(f.cartAPI.deleteErrs, "p2")
	report, err = f.checkout.RetryCleanup(ctx, "dev-1", "u1", []string{"p2"})
	if err != nil || !report.OK() {
		t.Fatalf("retry should succeed: %v %+v", err, report)
	}
	if _, ok := f.carts.Snapshot("u1").FindItem("i2"); ok {
		t.Fatalf("cart snapshot should be refreshed after retry")
	}

	if _, err := f.checkout.RetryCleanup(ctx, "dev-1", "someone-else", []string{"p1"}); !errors.Is(err, ErrCleanupAbandoned) {
		t.Fatalf("expected ErrCleanupAbandoned for another account, got %v", err)
	}
	if err := f.sessions.Logout(ctx, "dev-1"); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if _, err := f.checkout.RetryCleanup(ctx, "dev-1", "u1", []string{"p1"}); !errors.Is(err, ErrCleanupAbandoned) {
		t.Fatalf("expected ErrCleanupAbandoned after logout, got %v", err)
	}
}
