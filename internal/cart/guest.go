package cart

import (
	"fmt"

	"github.com/velora/storefront-bridge/internal/localstore"
)

const guestKeyPrefix = "guest_cart:"

// GuestStore persists guest cart snapshots in the durable local state store,
// keyed by guest identity.
type GuestStore struct {
	store *localstore.Store
}

func NewGuestStore(store *localstore.Store) *GuestStore {
	return &GuestStore{store: store}
}

// Load returns the snapshot for a guest, or an empty cart when none exists.
func (g *GuestStore) Load(guestID string) (Cart, error) {
	var cart Cart
	found, err := g.store.Get(guestKeyPrefix+guestID, &cart)
	if err != nil {
		return Cart{}, fmt.Errorf("loading guest cart: %w", err)
	}
	if !found {
		return Cart{}, nil
	}
	return cart, nil
}

// Save overwrites the snapshot for a guest.
func (g *GuestStore) Save(guestID string, cart Cart) error {
	if err := g.store.Put(guestKeyPrefix+guestID, cart); err != nil {
		return fmt.Errorf("saving guest cart: %w", err)
	}
	return nil
}

// Clear removes the snapshot for a guest.
func (g *GuestStore) Clear(guestID string) error {
	if err := g.store.Delete(guestKeyPrefix + guestID); err != nil {
		return fmt.Errorf("clearing guest cart: %w", err)
	}
	return nil
}
