package admin

import (
	"strings"

	handlershared "github.com/skinshop-next/internal/http/handlers/shared"
	"github.com/skinshop-next/internal/http/response"
	"github.com/skinshop-next/internal/service"

	"github.com/gin-gonic/gin"
)

// SetOrderStatusRequest 管理端改状态请求
type SetOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// ListOrders 员工/管理端订单列表，status 为空或 all 时不过滤
func (h *Handler) ListOrders(c *gin.Context) {
	deviceID, ok := getDeviceID(c)
	if !ok {
		return
	}
	sess, ok := getSession(c)
	if !ok {
		return
	}
	filter := service.OrderListFilter{
		Page:   handlershared.ParsePage(c.Query("page")),
		Status: strings.TrimSpace(c.Query("status")),
	}
	history, err := h.OrderService.ListAll(c.Request.Context(), deviceID, sess, filter)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, history)
}

// LoadMoreOrders 沿用当前筛选加载下一页
func (h *Handler) LoadMoreOrders(c *gin.Context) {
	deviceID, ok := getDeviceID(c)
	if !ok {
		return
	}
	sess, ok := getSession(c)
	if !ok {
		return
	}
	history, err := h.OrderService.LoadMoreAll(c.Request.Context(), deviceID, sess)
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

// AdvanceOrder 员工推进订单到下一状态
func (h *Handler) AdvanceOrder(c *gin.Context) {
	sess, ok := getSession(c)
	if !ok {
		return
	}
	orderID := strings.TrimSpace(c.Param("id"))
	order, err := h.OrderService.Advance(c.Request.Context(), sess, orderID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	requestLog(c).Infow("staff_order_advanced", "order_id", orderID, "status", order.OrderStatus, "operator", sess.ID)
	response.Success(c, order)
}

// SetOrderStatus 管理员直接设置订单状态
func (h *Handler) SetOrderStatus(c *gin.Context) {
	sess, ok := getSession(c)
	if !ok {
		return
	}
	var req SetOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErrorWithMsg(c, response.CodeBadRequest, "status is required", err)
		return
	}
	orderID := strings.TrimSpace(c.Param("id"))
	order, err := h.OrderService.SetStatus(c.Request.Context(), sess, orderID, req.Status)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	requestLog(c).Infow("admin_order_status_set", "order_id", orderID, "status", order.OrderStatus, "operator", sess.ID)
	response.Success(c, order)
}
