package main

import (
	"encoding/json"
	"net/http"

	"github.com/velora/storefront-bridge/internal/audit"
	"github.com/velora/storefront-bridge/internal/backend"
	"github.com/velora/storefront-bridge/internal/signal"
)

// The admin surface forwards the caller's own bearer token to the backend:
// the bridge validates role and shape, the backend remains the authority.

func handleAdminCreateProduct(client *backend.Client, bus *signal.Bus) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer drainRequestBody(r)

		var input backend.ProductInput
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			requestError(w, http.StatusBadRequest)
			return
		}

		product, err := client.CreateProduct(r.Context(), bearerToken(r), input)
		if err != nil {
			writeError(w, r, err)
			return
		}

		publishInvalidations(r, bus, "product-items", "products-count")
		writeJSON(w, http.StatusCreated, product)
	})
}

func handleAdminUpdateProduct(client *backend.Client, bus *signal.Bus) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer drainRequestBody(r)

		id := r.PathValue("id")
		audit.Log(r.Context()).Resource = "product:" + id

		var input backend.ProductInput
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			requestError(w, http.StatusBadRequest)
			return
		}

		product, err := client.UpdateProduct(r.Context(), bearerToken(r), id, input)
		if err != nil {
			writeError(w, r, err)
			return
		}

		publishInvalidations(r, bus, "product-items")
		writeJSON(w, http.StatusOK, product)
	})
}

func handleAdminDeleteProduct(client *backend.Client, bus *signal.Bus) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer drainRequestBody(r)

		id := r.PathValue("id")
		audit.Log(r.Context()).Resource = "product:" + id

		if err := client.DeleteProduct(r.Context(), bearerToken(r), id); err != nil {
			writeError(w, r, err)
			return
		}

		publishInvalidations(r, bus, "product-items", "products-count")
		w.WriteHeader(http.StatusNoContent)
	})
}

// handleAdminCounts serves the dashboard tallies from their cached loaders.
func handleAdminCounts(ld *loaders) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer drainRequestBody(r)

		counts := map[string]int{}

		products, err := ld.productsCount.Get(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		counts["products"] = products

		users, err := ld.usersCount.Get(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		counts["users"] = users

		orders, err := ld.ordersCount.Get(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		counts["orders"] = orders

		writeJSON(w, http.StatusOK, counts)
	})
}

func handleAdminListUsers(client *backend.Client) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer drainRequestBody(r)

		users, err := client.ListUsers(r.Context(), bearerToken(r))
		if err != nil {
			writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, users)
	})
}

func handleAdminUpdateUser(client *backend.Client) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer drainRequestBody(r)

		id := r.PathValue("id")
		audit.Log(r.Context()).Resource = "user:" + id

		var update backend.UserUpdate
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			requestError(w, http.StatusBadRequest)
			return
		}

		user, err := client.UpdateUser(r.Context(), bearerToken(r), id, update)
		if err != nil {
			writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, user)
	})
}

func handleAdminDeleteUser(client *backend.Client, bus *signal.Bus) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer drainRequestBody(r)

		id := r.PathValue("id")
		audit.Log(r.Context()).Resource = "user:" + id

		if err := client.DeleteUser(r.Context(), bearerToken(r), id); err != nil {
			writeError(w, r, err)
			return
		}

		publishInvalidations(r, bus, "users-count")
		w.WriteHeader(http.StatusNoContent)
	})
}

func handleAdminListOrders(client *backend.Client) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer drainRequestBody(r)

		orders, err := client.ListOrders(r.Context(), bearerToken(r))
		if err != nil {
			writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, orders)
	})
}

func handleAdminUpdateOrderStatus(client *backend.Client) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer drainRequestBody(r)

		id := r.PathValue("id")
		audit.Log(r.Context()).Resource = "order:" + id

		var update struct {
			Status string `json:"status"`
		}
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil || update.Status == "" {
			requestError(w, http.StatusBadRequest)
			return
		}

		order, err := client.UpdateOrderStatus(r.Context(), bearerToken(r), id, update.Status)
		if err != nil {
			writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, order)
	})
}

func handleAdminDeleteOrder(client *backend.Client, bus *signal.Bus) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer drainRequestBody(r)

		id := r.PathValue("id")
		audit.Log(r.Context()).Resource = "order:" + id

		if err := client.DeleteOrder(r.Context(), bearerToken(r), id); err != nil {
			writeError(w, r, err)
			return
		}

		publishInvalidations(r, bus, "orders-count")
		w.WriteHeader(http.StatusNoContent)
	})
}

func handleAdminListContacts(client *backend.Client) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer drainRequestBody(r)

		messages, err := client.ListContacts(r.Context(), bearerToken(r))
		if err != nil {
			writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, messages)
	})
}

func handleAdminDeleteContact(client *backend.Client) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer drainRequestBody(r)

		if err := client.DeleteContact(r.Context(), bearerToken(r), r.PathValue("id")); err != nil {
			writeError(w, r, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	})
}
