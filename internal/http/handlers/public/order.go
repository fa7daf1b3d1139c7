package public

import (
	"strings"

	handlershared "github.com/skinshop-next/internal/http/handlers/shared"
	"github.com/skinshop-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

// ListOrders 我的订单（按页重置游标）
func (h *Handler) ListOrders(c *gin.Context) {
	deviceID, ok := getDeviceID(c)
	if !ok {
		return
	}
	sess, ok := getSession(c)
	if !ok {
		return
	}
	history, err := h.OrderService.History(c.Request.Context(), deviceID, sess, handlershared.ParsePage(c.Query("page")))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, history)
}

// LoadMoreOrders 加载下一页
func (h *Handler) LoadMoreOrders(c *gin.Context) {
	deviceID, ok := getDeviceID(c)
	if !ok {
		return
	}
	sess, ok := getSession(c)
	if !ok {
		return
	}
	history, err := h.OrderService.LoadMore(c.Request.Context(), deviceID, sess)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, history)
}

// GetOrder 订单详情
func (h *Handler) GetOrder(c *gin.Context) {
	sess, ok := getSession(c)
	if !ok {
		return
	}
	order, err := h.OrderService.Get(c.Request.Context(), sess, strings.TrimSpace(c.Param("id")))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, order)
}

// CancelOrder 取消待处理订单
func (h *Handler) CancelOrder(c *gin.Context) {
	sess, ok := getSession(c)
	if !ok {
		return
	}
	order, err := h.OrderService.Cancel(c.Request.Context(), sess, strings.TrimSpace(c.Param("id")))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, order)
}
