package models

import (
	"bytes"
	"encoding/json"
	"time"
)

// OrderProduct 订单行引用的商品（上游可能返回 ID 字符串或展开对象）
type OrderProduct struct {
	ID     string   `json:"_id"`
	Name   string   `json:"name,omitempty"`
	Images []string `json:"images,omitempty"`
	Price  Money    `json:"price"`
}

// UnmarshalJSON 兼容字符串引用
func (p *OrderProduct) UnmarshalJSON(b []byte) error {
	if id, ok := refID(b); ok {
		*p = OrderProduct{ID: id}
		return nil
	}
	type alias OrderProduct
	var v alias
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*p = OrderProduct(v)
	return nil
}

// OrderUser 订单所属用户（同样兼容字符串引用）
type OrderUser struct {
	ID       string `json:"_id"`
	FullName string `json:"fullName,omitempty"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

// UnmarshalJSON 兼容字符串引用
func (u *OrderUser) UnmarshalJSON(b []byte) error {
	if id, ok := refID(b); ok {
		*u = OrderUser{ID: id}
		return nil
	}
	type alias OrderUser
	var v alias
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*u = OrderUser(v)
	return nil
}

func refID(b []byte) (string, bool) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || b[0] != '"' {
		return "", false
	}
	var id string
	if err := json.Unmarshal(b, &id); err != nil {
		return "", false
	}
	return id, true
}

// OrderItem 订单行
type OrderItem struct {
	ID       string       `json:"_id,omitempty"`
	Product  OrderProduct `json:"productId"`
	Quantity int          `json:"quantity"`
	Price    Money        `json:"price"`
	SubTotal Money        `json:"subTotal"`
}

// ShippingAddress 收货地址
type ShippingAddress struct {
	AddressLine1 string `json:"addressLine1"`
	AddressLine2 string `json:"addressLine2,omitempty"`
	City         string `json:"city"`
	Province     string `json:"province,omitempty"`
	Phone        string `json:"phone"`
}

// Order 服务端订单（客户端可见部分）
type Order struct {
	ID              string          `json:"_id"`
	User            OrderUser       `json:"userId"`
	Items           []OrderItem     `json:"items"`
	TotalQuantity   int             `json:"totalQuantity"`
	TotalPrice      Money           `json:"totalPrice"`
	Discount        Money           `json:"discount"`
	ShippingFee     Money           `json:"shippingFee"`
	PaymentMethod   string          `json:"paymentMethod,omitempty"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	OrderStatus     string          `json:"orderStatus"`
	CreatedAt       string          `json:"createdAt,omitempty"`
	UpdatedAt       string          `json:"updatedAt,omitempty"`
}

// OrderPage 订单分页结果
type OrderPage struct {
	Orders      []Order `json:"data"`
	TotalCount  int     `json:"totalCount"`
	TotalPages  int     `json:"totalPages"`
	CurrentPage int     `json:"currentPage"`
}

// HasMore 是否还有下一页
func (p *OrderPage) HasMore() bool {
	return p != nil && p.CurrentPage < p.TotalPages
}

// DraftItem 结算草稿行
type DraftItem struct {
	ProductID   string `json:"productId"`
	ProductName string `json:"productName"`
	Quantity    int    `json:"quantity"`
	Image       string `json:"image"`
	Price       Money  `json:"price"`
}

// OrderDraft 待提交订单（pending checkout）
type OrderDraft struct {
	ID            string      `json:"id"`
	DeviceID      string      `json:"deviceId"`
	UserID        string      `json:"userId"`
	Items         []DraftItem `json:"items"`
	TotalQuantity int         `json:"totalQuantity"`
	ShippingFee   Money       `json:"shippingFee"`
	Discount      Money       `json:"discount"`
	TotalPrice    Money       `json:"totalPrice"`
	CreatedAt     time.Time   `json:"createdAt"`
	ExpiresAt     time.Time   `json:"expiresAt"`
}

// ProductIDs 草稿中的商品 ID 列表
func (d *OrderDraft) ProductIDs() []string {
	if d == nil {
		return nil
	}
	ids := make([]string, 0, len(d.Items))
	for _, item := range d.Items {
		ids = append(ids, item.ProductID)
	}
	return ids
}

// Expired 判断草稿是否已过期
func (d *OrderDraft) Expired(now time.Time) bool {
	return d == nil || (!d.ExpiresAt.IsZero() && !now.Before(d.ExpiresAt))
}
