package cart

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/velora/storefront-bridge/internal/backend"
)

// Backend is the slice of the upstream client the cart service uses.
type Backend interface {
	FetchCart(ctx context.Context, token string) (backend.ServerCart, error)
	AddToCart(ctx context.Context, token, productID string, quantity int) (backend.ServerCart, error)
	UpdateCartItem(ctx context.Context, token, productID string, quantity int) (backend.ServerCart, error)
	RemoveCartItem(ctx context.Context, token, productID string) (backend.ServerCart, error)
	ClearCart(ctx context.Context, token string) error
}

// Principal identifies the cart owner for a single operation: a guest ID for
// anonymous sessions, or a bearer token once signed in. The token wins when
// both are present.
type Principal struct {
	GuestID string
	Token   string
}

// Authenticated reports whether the principal is a signed-in user.
func (p Principal) Authenticated() bool {
	return p.Token != ""
}

// Service executes cart operations for either population. Guest mutations
// are local, synchronous and optimistic; authenticated mutations round-trip
// to the backend and adopt the returned cart wholesale.
type Service struct {
	backend Backend
	guests  *GuestStore
}

func NewService(b Backend, guests *GuestStore) *Service {
	return &Service{backend: b, guests: guests}
}

// Get returns the current cart view for the principal.
func (s *Service) Get(ctx context.Context, p Principal) Result {
	if !p.Authenticated() {
		cart, err := s.guests.Load(p.GuestID)
		if err != nil {
			return failure(err, RecoverNone)
		}
		return success(cart)
	}

	sc, err := s.backend.FetchCart(ctx, p.Token)
	if err != nil {
		return failure(err, RecoverNone)
	}
	return success(fromServer(sc))
}

// Add merges an item into the cart. A line already present for the product
// has its quantity incremented by item.Quantity rather than duplicated.
func (s *Service) Add(ctx context.Context, p Principal, item Item) Result {
	if !p.Authenticated() {
		return s.mutateGuest(p.GuestID, func(c Cart) Cart {
			return c.add(item)
		})
	}

	sc, err := s.backend.AddToCart(ctx, p.Token, item.ProductID, item.Quantity)
	if err != nil {
		return failure(err, RecoverRefetch)
	}
	return success(fromServer(sc))
}

// UpdateQuantity sets a line's quantity. For a guest cart a quantity of zero
// or less removes the line; for a signed-in user the update is sent as-is and
// the server's response is authoritative.
func (s *Service) UpdateQuantity(ctx context.Context, p Principal, productID string, quantity int) Result {
	if !p.Authenticated() {
		return s.mutateGuest(p.GuestID, func(c Cart) Cart {
			return c.setQuantity(productID, quantity)
		})
	}

	sc, err := s.backend.UpdateCartItem(ctx, p.Token, productID, quantity)
	if err != nil {
		return failure(err, RecoverRefetch)
	}
	return success(fromServer(sc))
}

// Remove drops a line from the cart.
func (s *Service) Remove(ctx context.Context, p Principal, productID string) Result {
	if !p.Authenticated() {
		return s.mutateGuest(p.GuestID, func(c Cart) Cart {
			return c.remove(productID)
		})
	}

	sc, err := s.backend.RemoveCartItem(ctx, p.Token, productID)
	if err != nil {
		return failure(err, RecoverRefetch)
	}
	return success(fromServer(sc))
}

// Clear empties the cart. The guest snapshot is deleted from durable storage;
// for a signed-in user the server cart is cleared.
func (s *Service) Clear(ctx context.Context, p Principal) Result {
	if !p.Authenticated() {
		if err := s.guests.Clear(p.GuestID); err != nil {
			return failure(err, RecoverNone)
		}
		return success(Cart{})
	}

	if err := s.backend.ClearCart(ctx, p.Token); err != nil {
		return failure(err, RecoverRefetch)
	}
	return success(Cart{})
}

// ReconcileLogin is the guest-to-authenticated transition: the authoritative
// server cart is fetched and replaces the active view wholesale. The guest
// cart is not merged into it; the durable guest snapshot is left intact.
func (s *Service) ReconcileLogin(ctx context.Context, token string) Result {
	sc, err := s.backend.FetchCart(ctx, token)
	if err != nil {
		return failure(err, RecoverRefetch)
	}
	return success(fromServer(sc))
}

// Logout is the authenticated-to-guest transition: the active view is
// cleared.
func (s *Service) Logout() Cart {
	return Cart{}
}

// mutateGuest applies a local mutation and persists the snapshot. A snapshot
// write failure is logged, not surfaced: guest mutations are optimistic and
// the updated view is still returned.
func (s *Service) mutateGuest(guestID string, mutate func(Cart) Cart) Result {
	cart, err := s.guests.Load(guestID)
	if err != nil {
		return failure(err, RecoverNone)
	}

	cart = mutate(cart)

	if err := s.guests.Save(guestID, cart); err != nil {
		log.Warn().Err(err).Msg("guest cart snapshot write failed")
	}
	return success(cart)
}
