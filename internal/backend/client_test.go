package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RequiresURL(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestListProducts_Envelope(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/products", r.URL.Path)
		gotQuery = r.URL.RawQuery
		json.NewEncoder(w).Encode(map[string]any{
			"products": []map[string]any{{"_id": "p1", "name": "Silver Ring", "price": 42.5}},
		})
	}))
	defer server.Close()

	client, err := New(Config{APIURL: server.URL})
	require.NoError(t, err)

	products, err := client.ListProducts(context.Background(), ProductFilter{ShowAll: true, Category: "rings"})
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "p1", products[0].ID)
	assert.Equal(t, "Silver Ring", products[0].Name)
	assert.Contains(t, gotQuery, "showAll=true")
	assert.Contains(t, gotQuery, "category=rings")
}

func TestListProducts_BareArray(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]any{{"_id": "p1", "name": "Pendant"}})
	}))
	defer server.Close()

	client, err := New(Config{APIURL: server.URL})
	require.NoError(t, err)

	products, err := client.ListProducts(context.Background(), ProductFilter{ShowAll: true})
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Pendant", products[0].Name)
}

func TestDo_AttachesBearerToken(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(map[string]int{"count": 7})
	}))
	defer server.Close()

	client, err := New(Config{APIURL: server.URL})
	require.NoError(t, err)

	count, err := client.ProductCount(context.Background(), "user-token")
	require.NoError(t, err)
	assert.Equal(t, 7, count)
	assert.Equal(t, "Bearer user-token", gotAuth)
}

func TestDo_FallsBackToServiceToken(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(map[string]int{"count": 7})
	}))
	defer server.Close()

	client, err := New(Config{APIURL: server.URL, ServiceToken: "service-token"})
	require.NoError(t, err)

	_, err = client.ProductCount(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "Bearer service-token", gotAuth)
}

func TestDo_UpstreamErrorBecomesStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"message": "product not found"})
	}))
	defer server.Close()

	client, err := New(Config{APIURL: server.URL})
	require.NoError(t, err)

	_, err = client.GetProduct(context.Background(), "missing")
	require.Error(t, err)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	assert.Equal(t, "product not found", statusErr.Message)

	status, message := statusErr.Status()
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "product not found", message)
}

func TestStatusError_ServerErrorsCollapseToBadGateway(t *testing.T) {
	statusErr := &StatusError{StatusCode: http.StatusInternalServerError, Message: "boom"}

	status, message := statusErr.Status()
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Equal(t, http.StatusText(http.StatusBadGateway), message)
}

func TestLogin_DecodesTokenAndUser(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/users/login", r.URL.Path)

		var creds Credentials
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		assert.Equal(t, "ada@example.test", creds.Email)

		json.NewEncoder(w).Encode(LoginResult{
			Token: "issued-token",
			User:  User{ID: "u1", Name: "Ada", Role: "customer"},
		})
	}))
	defer server.Close()

	client, err := New(Config{APIURL: server.URL})
	require.NoError(t, err)

	result, err := client.Login(context.Background(), Credentials{Email: "ada@example.test", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "issued-token", result.Token)
	assert.Equal(t, "u1", result.User.ID)
}

func TestCartMutations_ReturnFullCart(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/cart/add", r.URL.Path)

		var m cartMutation
		require.NoError(t, json.NewDecoder(r.Body).Decode(&m))
		assert.Equal(t, "p1", m.ProductID)
		assert.Equal(t, 2, m.Quantity)

		json.NewEncoder(w).Encode(ServerCart{
			Items: []CartLine{{ProductID: "p1", Name: "Ring", Price: 10, Quantity: 2}},
		})
	}))
	defer server.Close()

	client, err := New(Config{APIURL: server.URL})
	require.NoError(t, err)

	cart, err := client.AddToCart(context.Background(), "tok", "p1", 2)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 2, cart.Items[0].Quantity)
}

func TestUpdateOrderStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "/orders/o1/status", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "shipped", body["status"])

		json.NewEncoder(w).Encode(Order{ID: "o1", Status: "shipped"})
	}))
	defer server.Close()

	client, err := New(Config{APIURL: server.URL})
	require.NoError(t, err)

	order, err := client.UpdateOrderStatus(context.Background(), "tok", "o1", "shipped")
	require.NoError(t, err)
	assert.Equal(t, "shipped", order.Status)
}
