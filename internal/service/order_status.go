package service

import (
	"strings"

	"github.com/skinshop-next/internal/constants"
)

var knownOrderStatuses = map[string]struct{}{
	constants.OrderStatusPending:    {},
	constants.OrderStatusConfirmed:  {},
	constants.OrderStatusProcessing: {},
	constants.OrderStatusShipping:   {},
	constants.OrderStatusDelivered:  {},
	constants.OrderStatusCancelled:  {},
	constants.OrderStatusReturned:   {},
	constants.OrderStatusRefunded:   {},
	constants.OrderStatusFailed:     {},
}

// staffNextStatus 员工推进链路
var staffNextStatus = map[string]string{
	constants.OrderStatusPending:   constants.OrderStatusConfirmed,
	constants.OrderStatusConfirmed: constants.OrderStatusShipping,
	constants.OrderStatusShipping:  constants.OrderStatusDelivered,
}

// NormalizeOrderStatus 统一大小写，SHIPPED 归一为 SHIPPING
func NormalizeOrderStatus(status string) string {
	normalized := strings.ToUpper(strings.TrimSpace(status))
	if normalized == constants.OrderStatusShipped {
		return constants.OrderStatusShipping
	}
	return normalized
}

// IsKnownOrderStatus 是否为已知状态
func IsKnownOrderStatus(status string) bool {
	_, ok := knownOrderStatuses[NormalizeOrderStatus(status)]
	return ok
}

// NextStaffStatus 员工推进后的下一状态
func NextStaffStatus(current string) (string, bool) {
	next, ok := staffNextStatus[NormalizeOrderStatus(current)]
	return next, ok
}

// CanCancel 仅待确认订单可取消
func CanCancel(status string) bool {
	return NormalizeOrderStatus(status) == constants.OrderStatusPending
}
