package public

import (
	"errors"
	"strings"

	"github.com/skinshop-next/internal/http/response"
	"github.com/skinshop-next/internal/models"
	"github.com/skinshop-next/internal/service"

	"github.com/gin-gonic/gin"
)

// AddCartItemRequest 加入购物车请求
type AddCartItemRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity"`
}

// UpdateCartItemRequest 修改数量请求；数量低于 1 时需 confirm 才会删除
type UpdateCartItemRequest struct {
	Quantity int  `json:"quantity"`
	Confirm  bool `json:"confirm"`
}

// ToggleSelectionRequest 勾选切换请求
type ToggleSelectionRequest struct {
	ItemID string `json:"item_id" binding:"required"`
}

// CartView 购物车视图
type CartView struct {
	Cart        *models.Cart `json:"cart"`
	Count       int          `json:"count"`
	SelectedIDs []string     `json:"selected_ids"`
	AllSelected bool         `json:"all_selected"`
	Stale       bool         `json:"stale"`
	Warning     string       `json:"warning,omitempty"`
}

func (h *Handler) cartView(deviceID string, cart *models.Cart) CartView {
	view := CartView{Cart: cart, Count: cart.ItemCount(), SelectedIDs: []string{}}
	if cart == nil {
		return view
	}
	h.SelectionStore.With(deviceID, func(sel *service.Selection) {
		view.SelectedIDs = sel.IDs(cart.Items)
		view.AllSelected = len(cart.Items) > 0 && sel.Len() == len(cart.Items)
	})
	return view
}

// GetCart 刷新购物车并重置勾选；刷新失败时回退到旧快照
func (h *Handler) GetCart(c *gin.Context) {
	deviceID, ok := getDeviceID(c)
	if !ok {
		return
	}
	sess, ok := getSession(c)
	if !ok {
		return
	}
	cart, err := h.CartService.Refresh(c.Request.Context(), sess)
	h.SelectionStore.Reset(deviceID)
	if err != nil {
		if cart == nil {
			respondServiceError(c, err)
			return
		}
		view := h.cartView(deviceID, cart)
		view.Stale = true
		view.Warning = "cart could not be refreshed, showing the last known state"
		response.Success(c, view)
		return
	}
	response.Success(c, h.cartView(deviceID, cart))
}

// GetCartCount 购物车数量角标
func (h *Handler) GetCartCount(c *gin.Context) {
	sess, ok := getSession(c)
	if !ok {
		return
	}
	response.Success(c, gin.H{"count": h.CartService.Count(sess.ID)})
}

// AddCartItem 加入购物车
func (h *Handler) AddCartItem(c *gin.Context) {
	deviceID, ok := getDeviceID(c)
	if !ok {
		return
	}
	sess, ok := getSession(c)
	if !ok {
		return
	}
	var req AddCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErrorWithMsg(c, response.CodeBadRequest, "product_id is required", err)
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	cart, err := h.CartService.AddItem(c.Request.Context(), sess, strings.TrimSpace(req.ProductID), req.Quantity)
	h.respondMutation(c, deviceID, cart, err)
}

// UpdateCartItem 修改数量：超出库存拒绝，低于 1 需确认删除
func (h *Handler) UpdateCartItem(c *gin.Context) {
	deviceID, ok := getDeviceID(c)
	if !ok {
		return
	}
	sess, ok := getSession(c)
	if !ok {
		return
	}
	var req UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErrorWithMsg(c, response.CodeBadRequest, "invalid quantity payload", err)
		return
	}
	itemID := strings.TrimSpace(c.Param("item_id"))
	if req.Quantity < 1 && req.Confirm {
		h.removeLine(c, deviceID, sess, itemID)
		return
	}
	cart, err := h.CartService.ChangeQuantity(c.Request.Context(), sess, itemID, req.Quantity)
	h.respondMutation(c, deviceID, cart, err)
}

// DeleteCartItem 删除购物车行
func (h *Handler) DeleteCartItem(c *gin.Context) {
	deviceID, ok := getDeviceID(c)
	if !ok {
		return
	}
	sess, ok := getSession(c)
	if !ok {
		return
	}
	h.removeLine(c, deviceID, sess, strings.TrimSpace(c.Param("item_id")))
}

func (h *Handler) removeLine(c *gin.Context, deviceID string, sess *models.Session, itemID string) {
	item, err := h.CartService.ResolveItem(c.Request.Context(), sess, itemID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	cart, err := h.CartService.RemoveItem(c.Request.Context(), sess, item.Product.ID)
	if err == nil || errors.Is(err, service.ErrCartRefreshFailed) {
		h.SelectionStore.With(deviceID, func(sel *service.Selection) {
			sel.Remove(itemID)
		})
	}
	h.respondMutation(c, deviceID, cart, err)
}

// respondMutation 变更已生效但刷新失败时仍返回成功并标记 stale
func (h *Handler) respondMutation(c *gin.Context, deviceID string, cart *models.Cart, err error) {
	if err != nil {
		if errors.Is(err, service.ErrCartRefreshFailed) {
			view := h.cartView(deviceID, cart)
			view.Stale = true
			view.Warning = "change saved but the cart could not be refreshed"
			response.Success(c, view)
			return
		}
		respondServiceError(c, err)
		return
	}
	h.SelectionStore.With(deviceID, func(sel *service.Selection) {
		sel.Retain(cart.Items)
	})
	response.Success(c, h.cartView(deviceID, cart))
}

// ToggleSelection 切换单行勾选
func (h *Handler) ToggleSelection(c *gin.Context) {
	deviceID, ok := getDeviceID(c)
	if !ok {
		return
	}
	sess, ok := getSession(c)
	if !ok {
		return
	}
	var req ToggleSelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErrorWithMsg(c, response.CodeBadRequest, "item_id is required", err)
		return
	}
	cart := h.CartService.Snapshot(sess.ID)
	if _, found := cart.FindItem(req.ItemID); !found {
		respondServiceError(c, service.ErrCartItemNotFound)
		return
	}
	h.SelectionStore.With(deviceID, func(sel *service.Selection) {
		sel.Toggle(req.ItemID)
	})
	response.Success(c, h.cartView(deviceID, cart))
}

// ToggleAllSelection 全选 / 全不选
func (h *Handler) ToggleAllSelection(c *gin.Context) {
	deviceID, ok := getDeviceID(c)
	if !ok {
		return
	}
	sess, ok := getSession(c)
	if !ok {
		return
	}
	cart := h.CartService.Snapshot(sess.ID)
	if cart == nil {
		respondServiceError(c, service.ErrCartItemNotFound)
		return
	}
	h.SelectionStore.With(deviceID, func(sel *service.Selection) {
		sel.ToggleAll(cart.Items)
	})
	response.Success(c, h.cartView(deviceID, cart))
}
