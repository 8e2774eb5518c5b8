// Package cart maintains a consistent cart view across anonymous and
// authenticated sessions. A guest cart lives in the durable local state
// store and is mutated synchronously; once a user is signed in the server
// cart is authoritative and every mutation round-trips to the backend.
package cart

import (
	"github.com/velora/storefront-bridge/internal/backend"
)

// Item is one cart line. Lines are keyed by ProductID: a cart holds at most
// one line per product, and Quantity is always at least 1.
type Item struct {
	ProductID string  `json:"product"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Image     string  `json:"image"`
	Quantity  int     `json:"quantity"`
	Category  string  `json:"category,omitempty"`
	Brand     string  `json:"brand,omitempty"`
}

// Cart is an ordered collection of lines.
type Cart struct {
	Items []Item `json:"items"`
}

// Total is the sum of price times quantity over all lines.
func (c Cart) Total() float64 {
	var total float64
	for _, item := range c.Items {
		total += item.Price * float64(item.Quantity)
	}
	return total
}

// Count is the total number of units across all lines.
func (c Cart) Count() int {
	var count int
	for _, item := range c.Items {
		count += item.Quantity
	}
	return count
}

// add merges an item into the cart: an existing line for the product has its
// quantity incremented, otherwise a new line is appended. Items with a
// quantity below one are ignored; a cart line is always at least one unit.
func (c Cart) add(item Item) Cart {
	if item.Quantity < 1 {
		return c
	}

	for i, existing := range c.Items {
		if existing.ProductID == item.ProductID {
			items := make([]Item, len(c.Items))
			copy(items, c.Items)
			items[i].Quantity += item.Quantity
			return Cart{Items: items}
		}
	}

	items := make([]Item, len(c.Items), len(c.Items)+1)
	copy(items, c.Items)
	return Cart{Items: append(items, item)}
}

// setQuantity updates a line's quantity. A quantity of zero or less removes
// the line entirely. Other lines are unaffected.
func (c Cart) setQuantity(productID string, quantity int) Cart {
	if quantity <= 0 {
		return c.remove(productID)
	}

	items := make([]Item, len(c.Items))
	copy(items, c.Items)
	for i := range items {
		if items[i].ProductID == productID {
			items[i].Quantity = quantity
		}
	}
	return Cart{Items: items}
}

// remove drops the line for the product, if present.
func (c Cart) remove(productID string) Cart {
	items := make([]Item, 0, len(c.Items))
	for _, item := range c.Items {
		if item.ProductID != productID {
			items = append(items, item)
		}
	}
	return Cart{Items: items}
}

// fromServer converts the backend's cart representation.
func fromServer(sc backend.ServerCart) Cart {
	items := make([]Item, 0, len(sc.Items))
	for _, line := range sc.Items {
		items = append(items, Item{
			ProductID: line.ProductID,
			Name:      line.Name,
			Price:     line.Price,
			Image:     line.Image,
			Quantity:  line.Quantity,
			Category:  line.Category,
			Brand:     line.Brand,
		})
	}
	return Cart{Items: items}
}
