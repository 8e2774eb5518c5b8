package backend

import (
	"context"
	"net/http"
)

// OrderAddress is the delivery address captured at checkout.
type OrderAddress struct {
	FirstName           string `json:"firstName"`
	LastName            string `json:"lastName"`
	Country             string `json:"country"`
	Address             string `json:"address"`
	City                string `json:"city"`
	Phone               string `json:"phone"`
	Email               string `json:"email"`
	SpecialInstructions string `json:"specialInstructions,omitempty"`
}

// OrderItem is a purchased line.
type OrderItem struct {
	ProductID string  `json:"product"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	Image     string  `json:"image,omitempty"`
}

// Order is a placed order as the backend represents it.
type Order struct {
	ID            string       `json:"_id"`
	UserID        string       `json:"user,omitempty"`
	Items         []OrderItem  `json:"items"`
	Address       OrderAddress `json:"address"`
	Subtotal      float64      `json:"subtotal"`
	Shipping      float64      `json:"shipping"`
	Total         float64      `json:"total"`
	Status        string       `json:"status"`
	PaymentMethod string       `json:"paymentMethod"`
	IsPaid        bool         `json:"isPaid"`
	PaidAt        string       `json:"paidAt,omitempty"`
	CreatedAt     string       `json:"createdAt,omitempty"`
	UpdatedAt     string       `json:"updatedAt,omitempty"`
}

// CheckoutRequest places an order for the signed-in user's cart contents.
type CheckoutRequest struct {
	Address       OrderAddress `json:"address"`
	PaymentMethod string       `json:"paymentMethod"`
}

// CreateOrder places an order.
func (c *Client) CreateOrder(ctx context.Context, token string, req CheckoutRequest) (Order, error) {
	var order Order
	err := c.do(ctx, http.MethodPost, "/orders", token, nil, req, &order)
	return order, err
}

// ListOrders returns all orders.
func (c *Client) ListOrders(ctx context.Context, token string) ([]Order, error) {
	var orders []Order
	err := c.do(ctx, http.MethodGet, "/orders", token, nil, nil, &orders)
	return orders, err
}

// MyOrders returns the signed-in user's orders.
func (c *Client) MyOrders(ctx context.Context, token string) ([]Order, error) {
	var orders []Order
	err := c.do(ctx, http.MethodGet, "/orders/myorders", token, nil, nil, &orders)
	return orders, err
}

// OrderCount returns the number of orders.
func (c *Client) OrderCount(ctx context.Context, token string) (int, error) {
	var out struct {
		Count int `json:"count"`
	}
	err := c.do(ctx, http.MethodGet, "/orders/count", token, nil, nil, &out)
	return out.Count, err
}

// GetOrder returns a single order.
func (c *Client) GetOrder(ctx context.Context, token, id string) (Order, error) {
	var order Order
	err := c.do(ctx, http.MethodGet, "/orders/"+id, token, nil, nil, &order)
	return order, err
}

// UpdateOrderStatus moves an order through its lifecycle.
func (c *Client) UpdateOrderStatus(ctx context.Context, token, id, status string) (Order, error) {
	var order Order
	err := c.do(ctx, http.MethodPut, "/orders/"+id+"/status", token, nil,
		map[string]string{"status": status}, &order)
	return order, err
}

// DeleteOrder removes an order.
func (c *Client) DeleteOrder(ctx context.Context, token, id string) error {
	return c.do(ctx, http.MethodDelete, "/orders/"+id, token, nil, nil, nil)
}
