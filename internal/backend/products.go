package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// Product is a catalog item as the backend represents it.
type Product struct {
	ID          string  `json:"_id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Stock       int     `json:"stock"`
	Image       string  `json:"image"`
	Category    string  `json:"category"`
	Brand       string  `json:"brand,omitempty"`
	Rating      float64 `json:"rating,omitempty"`
	NumReviews  int     `json:"numReviews,omitempty"`
	IsActive    bool    `json:"isActive"`
	CreatedAt   string  `json:"createdAt,omitempty"`
	UpdatedAt   string  `json:"updatedAt,omitempty"`
}

// ProductInput carries the writable fields for create and update.
type ProductInput struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Stock       int     `json:"stock"`
	Image       string  `json:"image"`
	Category    string  `json:"category"`
	Brand       string  `json:"brand,omitempty"`
	IsActive    *bool   `json:"isActive,omitempty"`
}

// ProductFilter narrows a product listing.
type ProductFilter struct {
	ShowAll         bool
	IncludeInactive bool
	MinPrice        *float64
	MaxPrice        *float64
	Sort            string
	Category        string
	Search          string
}

func (f ProductFilter) query() url.Values {
	q := url.Values{}
	q.Set("showAll", strconv.FormatBool(f.ShowAll))
	if f.IncludeInactive {
		q.Set("includeInactive", "true")
	}
	if f.MinPrice != nil {
		q.Set("minPrice", strconv.FormatFloat(*f.MinPrice, 'f', -1, 64))
	}
	if f.MaxPrice != nil {
		q.Set("maxPrice", strconv.FormatFloat(*f.MaxPrice, 'f', -1, 64))
	}
	if f.Sort != "" {
		q.Set("sort", f.Sort)
	}
	if f.Category != "" {
		q.Set("category", f.Category)
	}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	return q
}

// ListProducts returns the catalog, filtered. The backend responds either
// with a bare array or an envelope with a "products" field; both are handled.
func (c *Client) ListProducts(ctx context.Context, filter ProductFilter) ([]Product, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/products", "", filter.query(), nil, &raw); err != nil {
		return nil, err
	}

	var envelope struct {
		Products []Product `json:"products"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Products != nil {
		return envelope.Products, nil
	}

	var products []Product
	if err := json.Unmarshal(raw, &products); err != nil {
		return nil, fmt.Errorf("decoding product listing: %w", err)
	}
	return products, nil
}

// GetProduct returns a single catalog item.
func (c *Client) GetProduct(ctx context.Context, id string) (Product, error) {
	var p Product
	err := c.do(ctx, http.MethodGet, "/products/"+id, "", nil, nil, &p)
	return p, err
}

// ProductCount returns the catalog size.
func (c *Client) ProductCount(ctx context.Context, token string) (int, error) {
	var out struct {
		Count int `json:"count"`
	}
	err := c.do(ctx, http.MethodGet, "/products/count", token, nil, nil, &out)
	return out.Count, err
}

// CreateProduct adds a catalog item.
func (c *Client) CreateProduct(ctx context.Context, token string, input ProductInput) (Product, error) {
	var p Product
	err := c.do(ctx, http.MethodPost, "/products", token, nil, input, &p)
	return p, err
}

// UpdateProduct modifies a catalog item.
func (c *Client) UpdateProduct(ctx context.Context, token, id string, input ProductInput) (Product, error) {
	var p Product
	err := c.do(ctx, http.MethodPut, "/products/"+id, token, nil, input, &p)
	return p, err
}

// DeleteProduct removes a catalog item.
func (c *Client) DeleteProduct(ctx context.Context, token, id string) error {
	return c.do(ctx, http.MethodDelete, "/products/"+id, token, nil, nil, nil)
}
