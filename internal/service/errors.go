package service

import "errors"

var (
	ErrInvalidToken            = errors.New("invalid token")
	ErrSessionUnknown          = errors.New("session is still being restored")
	ErrNotAuthenticated        = errors.New("not authenticated")
	ErrInvalidDeviceID         = errors.New("invalid device id")
	ErrInvalidCredentials      = errors.New("email and password are required")
	ErrInvalidQuantity         = errors.New("quantity must be at least 1")
	ErrQuantityBelowMinimum    = errors.New("quantity below minimum, confirm deletion")
	ErrStockExceeded           = errors.New("quantity exceeds stock")
	ErrCartItemNotFound        = errors.New("cart item not found")
	ErrCartRefreshFailed       = errors.New("cart refresh failed")
	ErrEmptySelection          = errors.New("selection is empty")
	ErrDraftMissing            = errors.New("order draft missing")
	ErrCheckoutInProgress      = errors.New("order draft is already being submitted")
	ErrAddressIncomplete       = errors.New("shipping address incomplete")
	ErrOrderSubmitFailed       = errors.New("order submit failed")
	ErrPageLoading             = errors.New("page is already loading")
	ErrOrderNotFound           = errors.New("order not found")
	ErrInvalidOrderStatus      = errors.New("invalid order status")
	ErrStatusTransitionInvalid = errors.New("order status transition not allowed")
	ErrForbidden               = errors.New("forbidden")
	ErrCleanupAbandoned        = errors.New("cart cleanup abandoned, session changed")
)
