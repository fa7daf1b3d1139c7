package models

// Product 购物车内嵌的商品快照
type Product struct {
	ID              string   `json:"_id"`
	Name            string   `json:"name"`
	Images          []string `json:"images"`
	Price           Money    `json:"price"`
	StockQuantity   int      `json:"stockQuantity"`
	PromotionID     *string  `json:"promotionId,omitempty"`
	OriginalPrice   Money    `json:"originalPrice"`
	DiscountedPrice Money    `json:"discountedPrice"`
}

// FirstImage 返回首张图片
func (p Product) FirstImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// CartItem 购物车行
type CartItem struct {
	ID       string  `json:"_id"`
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

// Cart 服务端权威购物车快照
type Cart struct {
	ID         string     `json:"_id"`
	User       string     `json:"user"`
	Items      []CartItem `json:"items"`
	TotalPrice Money      `json:"totalPrice"`
	CreatedAt  string     `json:"createdAt,omitempty"`
	UpdatedAt  string     `json:"updatedAt,omitempty"`
}

// ItemCount 所有行数量之和
func (c *Cart) ItemCount() int {
	if c == nil {
		return 0
	}
	total := 0
	for _, item := range c.Items {
		total += item.Quantity
	}
	return total
}

// FindItem 按行 ID 查找
func (c *Cart) FindItem(itemID string) (CartItem, bool) {
	if c == nil {
		return CartItem{}, false
	}
	for _, item := range c.Items {
		if item.ID == itemID {
			return item, true
		}
	}
	return CartItem{}, false
}

// Clone 深拷贝快照
func (c *Cart) Clone() *Cart {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Items = make([]CartItem, len(c.Items))
	for i, item := range c.Items {
		cp.Items[i] = item
		if item.Product.Images != nil {
			cp.Items[i].Product.Images = append([]string(nil), item.Product.Images...)
		}
	}
	return &cp
}
