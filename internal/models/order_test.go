package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestOrderAcceptsStringAndObjectReferences(t *testing.T) {
	raw := `{
		"_id": "o1",
		"userId": "u1",
		"items": [
			{"productId": "p1", "quantity": 2, "price": 100000},
			{"productId": {"_id": "p2", "name": "Toner", "price": "50000"}, "quantity": 1, "price": 50000}
		],
		"totalQuantity": 3,
		"totalPrice": 350000,
		"orderStatus": "PENDING"
	}`
	var order Order
	if err := json.Unmarshal([]byte(raw), &order); err != nil {
		t.Fatalf("unmarshal order failed: %v", err)
	}
	if order.User.ID != "u1" {
		t.Fatalf("unexpected user id: %q", order.User.ID)
	}
	if order.Items[0].Product.ID != "p1" || order.Items[1].Product.Name != "Toner" {
		t.Fatalf("unexpected items: %+v", order.Items)
	}
	if order.TotalPrice.String() != "350000.00" {
		t.Fatalf("unexpected total: %s", order.TotalPrice.String())
	}
}

func TestCartItemCountAndClone(t *testing.T) {
	cart := &Cart{Items: []CartItem{
		{ID: "a", Quantity: 2, Product: Product{Images: []string{"x.png"}}},
		{ID: "b", Quantity: 1},
	}}
	if cart.ItemCount() != 3 {
		t.Fatalf("want 3 got %d", cart.ItemCount())
	}
	var empty *Cart
	if empty.ItemCount() != 0 {
		t.Fatalf("nil cart should count 0")
	}

	cp := cart.Clone()
	cp.Items[0].Product.Images[0] = "y.png"
	cp.Items[1].Quantity = 5
	if cart.Items[0].Product.Images[0] != "x.png" || cart.Items[1].Quantity != 1 {
		t.Fatalf("clone must not share state with the original")
	}
}

func TestMoneyArithmetic(t *testing.T) {
	total := NewMoneyFromInt(100000).Mul(2).Add(NewMoneyFromInt(50000))
	if total.String() != "250000.00" {
		t.Fatalf("unexpected total: %s", total.String())
	}
	if total.Number().String() != "250000" {
		t.Fatalf("unexpected number form: %s", total.Number().String())
	}
}

func TestSessionHasShippingAddress(t *testing.T) {
	sess := &Session{Address: "1 Main St", City: "Hanoi", Phone: " "}
	if sess.HasShippingAddress() {
		t.Fatalf("blank phone must not count as complete")
	}
	phone := "0900"
	SessionPatch{Phone: &phone}.Apply(sess)
	if !sess.HasShippingAddress() {
		t.Fatalf("patched session should be complete")
	}
}

func TestOrderDraftExpired(t *testing.T) {
	now := time.Now()
	draft := &OrderDraft{ExpiresAt: now.Add(time.Minute)}
	if draft.Expired(now) {
		t.Fatalf("draft should still be valid")
	}
	if !draft.Expired(now.Add(2 * time.Minute)) {
		t.Fatalf("draft should be expired")
	}
}
