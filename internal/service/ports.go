package service

import (
	"context"

	"github.com/skinshop-next/internal/models"
	"github.com/skinshop-next/internal/upstream"
)

// AuthAPI 上游认证与资料接口
type AuthAPI interface {
	Login(ctx context.Context, email, password string) (string, error)
	UpdateProfile(ctx context.Context, userID, token string, update upstream.ProfileUpdate) (models.SessionPatch, error)
	ChangePassword(ctx context.Context, userID, token, oldPassword, newPassword string) error
}

// CartAPI 上游购物车接口
type CartAPI interface {
	FetchCart(ctx context.Context, userID, token string) (*models.Cart, error)
	AddCartItem(ctx context.Context, userID, token, productID string, quantity int) error
	UpdateCartItem(ctx context.Context, userID, token, productID string, quantity int) error
	DeleteCartItem(ctx context.Context, userID, token, productID string) error
}

// OrderAPI 上游订单接口
type OrderAPI interface {
	CreateOrder(ctx context.Context, token string, req upstream.CreateOrderRequest) (*models.Order, error)
	ListOrders(ctx context.Context, token string, query upstream.OrderQuery) (*models.OrderPage, error)
	GetOrder(ctx context.Context, token, orderID string) (*models.Order, error)
	UpdateOrderStatus(ctx context.Context, token, orderID, status string) (*models.Order, error)
}

// CleanupScheduler 购物车清理补偿任务入队
type CleanupScheduler interface {
	EnqueueCartCleanupRetry(deviceID, userID string, productIDs []string) error
}
