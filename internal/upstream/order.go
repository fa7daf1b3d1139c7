package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/skinshop-next/internal/models"

	"github.com/tidwall/gjson"
)

// CreateOrderItem 下单行
type CreateOrderItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// CreateOrderRequest 下单请求体
type CreateOrderRequest struct {
	UserID          string                 `json:"userId"`
	Items           []CreateOrderItem      `json:"items"`
	PaymentMethod   string                 `json:"paymentMethod"`
	ShippingFee     json.Number            `json:"shippingFee"`
	Discount        json.Number            `json:"discount"`
	ShippingAddress models.ShippingAddress `json:"shippingAddress"`
}

// OrderQuery 订单列表查询参数
type OrderQuery struct {
	UserID string
	Page   int
	Limit  int
	Status string
	SortBy string
}

func (q OrderQuery) encode() string {
	values := url.Values{}
	if strings.TrimSpace(q.UserID) != "" {
		values.Set("userId", strings.TrimSpace(q.UserID))
	}
	if q.Page > 0 {
		values.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		values.Set("limit", strconv.Itoa(q.Limit))
	}
	if strings.TrimSpace(q.Status) != "" {
		values.Set("status", strings.TrimSpace(q.Status))
	}
	if strings.TrimSpace(q.SortBy) != "" {
		values.Set("sortBy", strings.TrimSpace(q.SortBy))
	}
	return values.Encode()
}

// CreateOrder 创建订单
func (c *Client) CreateOrder(ctx context.Context, token string, req CreateOrderRequest) (*models.Order, error) {
	body, err := c.doJSON(ctx, "order_create", http.MethodPost, "/orders", token, req)
	if err != nil {
		return nil, err
	}
	var order models.Order
	if err := decodeData(body, "data", &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// ListOrders 分页查询订单
func (c *Client) ListOrders(ctx context.Context, token string, query OrderQuery) (*models.OrderPage, error) {
	endpoint := "/orders"
	if encoded := query.encode(); encoded != "" {
		endpoint += "?" + encoded
	}
	body, err := c.doJSON(ctx, "order_list", http.MethodGet, endpoint, token, nil)
	if err != nil {
		return nil, err
	}
	var page models.OrderPage
	if err := decodeData(body, "data", &page); err != nil {
		return nil, err
	}
	if page.Orders == nil {
		page.Orders = []models.Order{}
	}
	if page.CurrentPage <= 0 {
		page.CurrentPage = 1
	}
	return &page, nil
}

// GetOrder 查询单个订单
func (c *Client) GetOrder(ctx context.Context, token, orderID string) (*models.Order, error) {
	body, err := c.doJSON(ctx, "order_get", http.MethodGet, "/orders/"+pathEscape(orderID), token, nil)
	if err != nil {
		return nil, err
	}
	var order models.Order
	if err := decodeData(body, "data", &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateOrderStatus 变更订单状态
func (c *Client) UpdateOrderStatus(ctx context.Context, token, orderID, status string) (*models.Order, error) {
	endpoint := "/orders/" + pathEscape(orderID) + "/status"
	body, err := c.doJSON(ctx, "order_update_status", http.MethodPatch, endpoint, token, map[string]string{
		"status": status,
	})
	if err != nil {
		return nil, err
	}
	if !gjson.GetBytes(body, "data").IsObject() {
		return &models.Order{ID: orderID, OrderStatus: status}, nil
	}
	var order models.Order
	if err := decodeData(body, "data", &order); err != nil {
		return nil, err
	}
	return &order, nil
}
