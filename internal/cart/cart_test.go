package cart

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/velora/storefront-bridge/internal/backend"
)

func TestAdd_NewProduct(t *testing.T) {
	c := Cart{}.add(Item{ProductID: "p1", Name: "Ring", Price: 10, Quantity: 2})

	assert.Len(t, c.Items, 1)
	assert.Equal(t, "p1", c.Items[0].ProductID)
	assert.Equal(t, 2, c.Items[0].Quantity)
}

func TestAdd_ExistingProductMergesQuantity(t *testing.T) {
	c := Cart{}.add(Item{ProductID: "p1", Price: 10, Quantity: 1})
	c = c.add(Item{ProductID: "p1", Price: 10, Quantity: 2})

	assert.Len(t, c.Items, 1, "no duplicate line")
	assert.Equal(t, 3, c.Items[0].Quantity)
	assert.Equal(t, 30.0, c.Total())
}

func TestAdd_DoesNotMutateReceiver(t *testing.T) {
	original := Cart{}.add(Item{ProductID: "p1", Quantity: 1})
	_ = original.add(Item{ProductID: "p1", Quantity: 5})

	assert.Equal(t, 1, original.Items[0].Quantity)
}

func TestSetQuantity_Positive(t *testing.T) {
	c := Cart{}.add(Item{ProductID: "p1", Quantity: 1})
	c = c.add(Item{ProductID: "p2", Quantity: 4})

	c = c.setQuantity("p1", 7)

	assert.Len(t, c.Items, 2)
	assert.Equal(t, 7, c.Items[0].Quantity)
	assert.Equal(t, 4, c.Items[1].Quantity, "other lines unaffected")
}

func TestSetQuantity_ZeroRemovesLine(t *testing.T) {
	c := Cart{}.add(Item{ProductID: "p1", Quantity: 3})
	c = c.setQuantity("p1", 0)

	assert.Empty(t, c.Items)
}

func TestSetQuantity_NegativeRemovesLine(t *testing.T) {
	c := Cart{}.add(Item{ProductID: "p1", Quantity: 3})
	c = c.setQuantity("p1", -2)

	assert.Empty(t, c.Items)
}

func TestRemove(t *testing.T) {
	c := Cart{}.add(Item{ProductID: "p1", Quantity: 1})
	c = c.add(Item{ProductID: "p2", Quantity: 2})

	c = c.remove("p1")

	assert.Len(t, c.Items, 1)
	assert.Equal(t, "p2", c.Items[0].ProductID)
}

func TestTotalAndCount(t *testing.T) {
	c := Cart{}.add(Item{ProductID: "p1", Price: 10, Quantity: 3})
	c = c.add(Item{ProductID: "p2", Price: 2.5, Quantity: 2})

	assert.Equal(t, 35.0, c.Total())
	assert.Equal(t, 5, c.Count())
}

func TestFromServer(t *testing.T) {
	sc := backend.ServerCart{
		Items: []backend.CartLine{
			{ProductID: "p1", Name: "Ring", Price: 10, Quantity: 2, Category: "rings"},
		},
	}

	c := fromServer(sc)

	assert.Len(t, c.Items, 1)
	assert.Equal(t, Item{ProductID: "p1", Name: "Ring", Price: 10, Quantity: 2, Category: "rings"}, c.Items[0])
}
