package upstream

import (
	"context"
	"net/http"

	"github.com/skinshop-next/internal/models"
)

func cartItemPath(userID, productID string) string {
	return "/carts/" + pathEscape(userID) + "/items/" + pathEscape(productID)
}

// FetchCart 拉取完整购物车快照
func (c *Client) FetchCart(ctx context.Context, userID, token string) (*models.Cart, error) {
	body, err := c.doJSON(ctx, "cart_fetch", http.MethodGet, "/carts/"+pathEscape(userID), token, nil)
	if err != nil {
		return nil, err
	}
	var cart models.Cart
	if err := decodeData(body, "data", &cart); err != nil {
		return nil, err
	}
	if cart.Items == nil {
		cart.Items = []models.CartItem{}
	}
	return &cart, nil
}

// AddCartItem 加入购物车
func (c *Client) AddCartItem(ctx context.Context, userID, token, productID string, quantity int) error {
	_, err := c.doJSON(ctx, "cart_add_item", http.MethodPost, "/carts", token, map[string]interface{}{
		"userId":    userID,
		"productId": productID,
		"quantity":  quantity,
	})
	return err
}

// UpdateCartItem 修改购物车行数量
func (c *Client) UpdateCartItem(ctx context.Context, userID, token, productID string, quantity int) error {
	_, err := c.doJSON(ctx, "cart_update_item", http.MethodPut, cartItemPath(userID, productID), token, map[string]int{
		"quantity": quantity,
	})
	return err
}

// DeleteCartItem 删除购物车行
func (c *Client) DeleteCartItem(ctx context.Context, userID, token, productID string) error {
	_, err := c.doJSON(ctx, "cart_delete_item", http.MethodDelete, cartItemPath(userID, productID), token, nil)
	return err
}
