package backend

import (
	"context"
	"net/http"
)

// CartLine is one product line in a server-backed cart.
type CartLine struct {
	ProductID string  `json:"product"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Image     string  `json:"image"`
	Quantity  int     `json:"quantity"`
	Category  string  `json:"category,omitempty"`
	Brand     string  `json:"brand,omitempty"`
}

// ServerCart is the authoritative cart for a signed-in user.
type ServerCart struct {
	ID         string     `json:"_id,omitempty"`
	UserID     string     `json:"user,omitempty"`
	Items      []CartLine `json:"items"`
	TotalPrice float64    `json:"totalPrice,omitempty"`
}

type cartMutation struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// FetchCart returns the signed-in user's cart.
func (c *Client) FetchCart(ctx context.Context, token string) (ServerCart, error) {
	var cart ServerCart
	err := c.do(ctx, http.MethodGet, "/cart", token, nil, nil, &cart)
	return cart, err
}

// AddToCart adds quantity of a product; the response is the full updated cart.
func (c *Client) AddToCart(ctx context.Context, token, productID string, quantity int) (ServerCart, error) {
	var cart ServerCart
	err := c.do(ctx, http.MethodPost, "/cart/add", token, nil,
		cartMutation{ProductID: productID, Quantity: quantity}, &cart)
	return cart, err
}

// UpdateCartItem sets a line's quantity as-is; the server decides what a
// non-positive quantity means.
func (c *Client) UpdateCartItem(ctx context.Context, token, productID string, quantity int) (ServerCart, error) {
	var cart ServerCart
	err := c.do(ctx, http.MethodPut, "/cart/update", token, nil,
		cartMutation{ProductID: productID, Quantity: quantity}, &cart)
	return cart, err
}

// RemoveCartItem removes a line; the response is the full updated cart.
func (c *Client) RemoveCartItem(ctx context.Context, token, productID string) (ServerCart, error) {
	var cart ServerCart
	err := c.do(ctx, http.MethodDelete, "/cart/item/"+productID, token, nil, nil, &cart)
	return cart, err
}

// ClearCart empties the signed-in user's cart.
func (c *Client) ClearCart(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodDelete, "/cart/clear", token, nil, nil, nil)
}
