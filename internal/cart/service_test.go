package cart

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velora/storefront-bridge/internal/backend"
	"github.com/velora/storefront-bridge/internal/localstore"
)

// fakeBackend serves a canned server cart and records calls.
type fakeBackend struct {
	cart  backend.ServerCart
	err   error
	calls []string
}

func (f *fakeBackend) FetchCart(ctx context.Context, token string) (backend.ServerCart, error) {
	f.calls = append(f.calls, "fetch")
	return f.cart, f.err
}

func (f *fakeBackend) AddToCart(ctx context.Context, token, productID string, quantity int) (backend.ServerCart, error) {
	f.calls = append(f.calls, "add")
	return f.cart, f.err
}

func (f *fakeBackend) UpdateCartItem(ctx context.Context, token, productID string, quantity int) (backend.ServerCart, error) {
	f.calls = append(f.calls, "update")
	return f.cart, f.err
}

func (f *fakeBackend) RemoveCartItem(ctx context.Context, token, productID string) (backend.ServerCart, error) {
	f.calls = append(f.calls, "remove")
	return f.cart, f.err
}

func (f *fakeBackend) ClearCart(ctx context.Context, token string) error {
	f.calls = append(f.calls, "clear")
	return f.err
}

func newService(t *testing.T, b Backend) *Service {
	t.Helper()
	store, err := localstore.New(t.TempDir())
	require.NoError(t, err)
	return NewService(b, NewGuestStore(store))
}

func guest() Principal {
	return Principal{GuestID: "g-1"}
}

func signedIn() Principal {
	return Principal{GuestID: "g-1", Token: "tok"}
}

func requireCart(t *testing.T, r Result) Cart {
	t.Helper()
	err, failed := r.Failed()
	require.False(t, failed, "unexpected failure: %v", err)
	c, ok := r.Cart()
	require.True(t, ok)
	return c
}

func TestGuestAdd_NewAndExistingProduct(t *testing.T) {
	b := &fakeBackend{}
	svc := newService(t, b)
	ctx := context.Background()

	c := requireCart(t, svc.Add(ctx, guest(), Item{ProductID: "p1", Price: 10, Quantity: 1}))
	assert.Len(t, c.Items, 1)

	c = requireCart(t, svc.Add(ctx, guest(), Item{ProductID: "p1", Price: 10, Quantity: 2}))
	require.Len(t, c.Items, 1, "one line per product")
	assert.Equal(t, 3, c.Items[0].Quantity)
	assert.Equal(t, 30.0, c.Total())

	assert.Empty(t, b.calls, "guest mutations never reach the backend")
}

func TestGuestAdd_NonPositiveQuantityIgnored(t *testing.T) {
	b := &fakeBackend{}
	svc := newService(t, b)
	ctx := context.Background()

	// a negative add never creates a line
	c := requireCart(t, svc.Add(ctx, guest(), Item{ProductID: "p1", Quantity: -5}))
	assert.Empty(t, c.Items)

	// nor can it drag an existing line to zero
	requireCart(t, svc.Add(ctx, guest(), Item{ProductID: "p2", Quantity: 3}))
	c = requireCart(t, svc.Add(ctx, guest(), Item{ProductID: "p2", Quantity: -3}))
	require.Len(t, c.Items, 1)
	assert.Equal(t, 3, c.Items[0].Quantity)

	c = requireCart(t, svc.Add(ctx, guest(), Item{ProductID: "p2", Quantity: 0}))
	assert.Equal(t, 3, c.Items[0].Quantity)
}

func TestGuestCart_PersistsAcrossServiceInstances(t *testing.T) {
	store, err := localstore.New(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	first := NewService(&fakeBackend{}, NewGuestStore(store))
	requireCart(t, first.Add(ctx, guest(), Item{ProductID: "p1", Quantity: 2}))

	second := NewService(&fakeBackend{}, NewGuestStore(store))
	c := requireCart(t, second.Get(ctx, guest()))
	require.Len(t, c.Items, 1)
	assert.Equal(t, 2, c.Items[0].Quantity)
}

func TestGuestUpdateQuantity_ZeroRemoves(t *testing.T) {
	svc := newService(t, &fakeBackend{})
	ctx := context.Background()

	requireCart(t, svc.Add(ctx, guest(), Item{ProductID: "p1", Quantity: 2}))
	c := requireCart(t, svc.UpdateQuantity(ctx, guest(), "p1", 0))

	assert.Empty(t, c.Items)
}

func TestGuestClear_DeletesSnapshot(t *testing.T) {
	svc := newService(t, &fakeBackend{})
	ctx := context.Background()

	requireCart(t, svc.Add(ctx, guest(), Item{ProductID: "p1", Quantity: 2}))
	c := requireCart(t, svc.Clear(ctx, guest()))
	assert.Empty(t, c.Items)

	c = requireCart(t, svc.Get(ctx, guest()))
	assert.Empty(t, c.Items)
}

func TestAuthenticatedMutations_ServerResponseAuthoritative(t *testing.T) {
	b := &fakeBackend{
		cart: backend.ServerCart{
			Items: []backend.CartLine{{ProductID: "p9", Name: "Bracelet", Price: 55, Quantity: 1}},
		},
	}
	svc := newService(t, b)
	ctx := context.Background()

	// whatever is added, the view is replaced by the server's response
	c := requireCart(t, svc.Add(ctx, signedIn(), Item{ProductID: "p1", Quantity: 3}))
	require.Len(t, c.Items, 1)
	assert.Equal(t, "p9", c.Items[0].ProductID)
	assert.Equal(t, []string{"add"}, b.calls)
}

func TestAuthenticatedUpdate_SentAsIs(t *testing.T) {
	b := &fakeBackend{}
	svc := newService(t, b)

	// a non-positive quantity is forwarded; the server decides
	requireCart(t, svc.UpdateQuantity(context.Background(), signedIn(), "p1", 0))
	assert.Equal(t, []string{"update"}, b.calls)
}

func TestAuthenticatedMutationFailure_SignalsRefetch(t *testing.T) {
	b := &fakeBackend{err: errors.New("upstream down")}
	svc := newService(t, b)

	result := svc.Add(context.Background(), signedIn(), Item{ProductID: "p1", Quantity: 1})

	err, failed := result.Failed()
	require.True(t, failed)
	assert.Error(t, err)
	assert.Equal(t, RecoverRefetch, result.Recovery())

	_, ok := result.Cart()
	assert.False(t, ok)
}

func TestReconcileLogin_ReplacesViewAndKeepsGuestSnapshot(t *testing.T) {
	store, err := localstore.New(t.TempDir())
	require.NoError(t, err)

	b := &fakeBackend{
		cart: backend.ServerCart{
			Items: []backend.CartLine{{ProductID: "server-item", Price: 5, Quantity: 1}},
		},
	}
	svc := NewService(b, NewGuestStore(store))
	ctx := context.Background()

	// guest accumulates a cart before signing in
	requireCart(t, svc.Add(ctx, guest(), Item{ProductID: "guest-item", Quantity: 2}))

	// login: the server cart replaces the view wholesale, no merge
	c := requireCart(t, svc.ReconcileLogin(ctx, "tok"))
	require.Len(t, c.Items, 1)
	assert.Equal(t, "server-item", c.Items[0].ProductID)

	// the durable guest snapshot is untouched
	snapshot, err := NewGuestStore(store).Load("g-1")
	require.NoError(t, err)
	require.Len(t, snapshot.Items, 1)
	assert.Equal(t, "guest-item", snapshot.Items[0].ProductID)
}

func TestLogout_ClearsView(t *testing.T) {
	svc := newService(t, &fakeBackend{})
	assert.Empty(t, svc.Logout().Items)
}
