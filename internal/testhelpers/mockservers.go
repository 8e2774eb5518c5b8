package testhelpers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// MockCommerceServer provides a configurable mock commerce API server for
// testing. Canned values are returned for each resource; StatusCode forces an
// error response for every route when set to a non-200 value.
type MockCommerceServer struct {
	Server         *httptest.Server
	StatusCode     int            // HTTP status code to return (200 if not set)
	RequestCount   int            // Number of requests received
	LastAuthHeader string         // Captured Authorization header from last request
	LastBody       map[string]any // Captured JSON body from last request with one

	Products []map[string]any // Products returned from listing and lookup
	Cart     map[string]any   // Cart returned from cart routes
	User     map[string]any   // User returned from login and profile routes
	Token    string           // Token returned from login
	Orders   []map[string]any // Orders returned from order listings
}

// SetupMockCommerceServer creates a mock commerce API server covering the
// routes the bridge calls. Returns a MockCommerceServer with configurable
// response values and request tracking.
func SetupMockCommerceServer(t *testing.T) *MockCommerceServer {
	t.Helper()

	mock := &MockCommerceServer{
		StatusCode: http.StatusOK,
		Products: []map[string]any{
			{"_id": "p1", "name": "Gold Ring", "price": 120.0, "category": "rings"},
			{"_id": "p2", "name": "Silver Necklace", "price": 80.0, "category": "necklaces"},
		},
		Cart: map[string]any{
			"_id":        "cart-1",
			"items":      []map[string]any{},
			"totalPrice": 0.0,
		},
		User:  map[string]any{"_id": "u1", "name": "Avery Stone", "email": "avery@example.com", "role": "customer"},
		Token: "backend-token",
	}

	router := http.NewServeMux()

	intercept := func(handler func(w http.ResponseWriter, r *http.Request)) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			mock.RequestCount++
			mock.LastAuthHeader = r.Header.Get("Authorization")

			mock.LastBody = nil
			if r.Body != nil {
				var body map[string]any
				if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
					mock.LastBody = body
				}
			}

			if mock.StatusCode != http.StatusOK {
				w.WriteHeader(mock.StatusCode)
				WriteJSON(w, map[string]any{"message": "mock failure"})
				return
			}

			handler(w, r)
		}
	}

	router.HandleFunc("GET /products", intercept(func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, map[string]any{"products": mock.Products, "total": len(mock.Products)})
	}))
	router.HandleFunc("GET /products/count", intercept(func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, map[string]any{"count": len(mock.Products)})
	}))
	router.HandleFunc("GET /products/{id}", intercept(func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		for _, p := range mock.Products {
			if p["_id"] == id {
				WriteJSON(w, p)
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
		WriteJSON(w, map[string]any{"message": "product not found"})
	}))
	router.HandleFunc("POST /products", intercept(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		WriteJSON(w, map[string]any{"_id": "p-new"})
	}))
	router.HandleFunc("PUT /products/{id}", intercept(func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, map[string]any{"_id": r.PathValue("id")})
	}))
	router.HandleFunc("DELETE /products/{id}", intercept(func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, map[string]any{"message": "deleted"})
	}))

	router.HandleFunc("POST /users/login", intercept(func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, map[string]any{"token": mock.Token, "user": mock.User})
	}))
	router.HandleFunc("POST /users/register", intercept(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		WriteJSON(w, map[string]any{"token": mock.Token, "user": mock.User})
	}))
	router.HandleFunc("GET /users/me", intercept(func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, mock.User)
	}))
	router.HandleFunc("GET /users", intercept(func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, []map[string]any{mock.User})
	}))
	router.HandleFunc("GET /users/count", intercept(func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, map[string]any{"count": 1})
	}))
	router.HandleFunc("PUT /users/{id}", intercept(func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, map[string]any{"_id": r.PathValue("id")})
	}))
	router.HandleFunc("DELETE /users/{id}", intercept(func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, map[string]any{"message": "deleted"})
	}))

	router.HandleFunc("GET /cart", intercept(func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, mock.Cart)
	}))
	router.HandleFunc("POST /cart/add", intercept(func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, mock.Cart)
	}))
	router.HandleFunc("PUT /cart/update", intercept(func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, mock.Cart)
	}))
	router.HandleFunc("DELETE /cart/item/{id}", intercept(func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, mock.Cart)
	}))
	router.HandleFunc("DELETE /cart/clear", intercept(func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, map[string]any{"message": "cleared"})
	}))

	router.HandleFunc("POST /orders", intercept(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		WriteJSON(w, map[string]any{"_id": "order-1", "status": "pending"})
	}))
	router.HandleFunc("GET /orders", intercept(func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, mock.Orders)
	}))
	router.HandleFunc("GET /orders/myorders", intercept(func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, mock.Orders)
	}))
	router.HandleFunc("GET /orders/count", intercept(func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, map[string]any{"count": len(mock.Orders)})
	}))
	router.HandleFunc("GET /orders/{id}", intercept(func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, map[string]any{"_id": r.PathValue("id"), "status": "pending"})
	}))
	router.HandleFunc("PUT /orders/{id}/status", intercept(func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, map[string]any{"_id": r.PathValue("id")})
	}))
	router.HandleFunc("DELETE /orders/{id}", intercept(func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, map[string]any{"message": "deleted"})
	}))

	router.HandleFunc("POST /contact", intercept(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		WriteJSON(w, map[string]any{"message": "received"})
	}))
	router.HandleFunc("GET /contact", intercept(func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, []map[string]any{})
	}))
	router.HandleFunc("DELETE /contact/{id}", intercept(func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, map[string]any{"message": "deleted"})
	}))

	mock.Server = httptest.NewServer(router)
	t.Cleanup(mock.Server.Close)

	return mock
}

// Close shuts down the mock server.
func (m *MockCommerceServer) Close() {
	m.Server.Close()
}
