package main

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/velora/storefront-bridge/internal/audit"
	"github.com/velora/storefront-bridge/internal/backend"
	"github.com/velora/storefront-bridge/internal/cached"
	"github.com/velora/storefront-bridge/internal/cart"
	"github.com/velora/storefront-bridge/internal/config"
	"github.com/velora/storefront-bridge/internal/signal"
	"github.com/velora/storefront-bridge/internal/storefront"
)

// HTTPStatuser provides HTTP status information for errors
type HTTPStatuser interface {
	Status() (int, string)
}

// loaders groups the cached read loaders the handlers serve from.
type loaders struct {
	products      *cached.Loader[[]backend.Product]
	productsCount *cached.Loader[int]
	usersCount    *cached.Loader[int]
	ordersCount   *cached.Loader[int]
}

// principal resolves the cart owner for a request. A bearer token wins; a
// guest cookie is read next; failing both, a fresh guest identity is minted
// and set on the response.
func principal(cfg config.CartConfig, w http.ResponseWriter, r *http.Request) cart.Principal {
	if token := bearerToken(r); token != "" {
		return cart.Principal{Token: token}
	}

	if cookie, err := r.Cookie(cfg.GuestCookie); err == nil && cookie.Value != "" {
		audit.Log(r.Context()).GuestID = cookie.Value
		return cart.Principal{GuestID: cookie.Value}
	}

	guestID := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.GuestCookie,
		Value:    guestID,
		Path:     "/",
		MaxAge:   int(cfg.GuestTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	audit.Log(r.Context()).GuestID = guestID
	return cart.Principal{GuestID: guestID}
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	header := r.Header.Get("Authorization")
	if len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):]
	}
	return ""
}

// listingFilter reads product filter parameters from the query string.
func listingFilter(r *http.Request) (backend.ProductFilter, bool) {
	q := r.URL.Query()

	filter := backend.ProductFilter{
		Sort:     q.Get("sort"),
		Category: q.Get("category"),
		Search:   q.Get("search"),
	}
	filtered := filter.Sort != "" || filter.Category != "" || filter.Search != ""

	if v := q.Get("minPrice"); v != "" {
		if price, err := strconv.ParseFloat(v, 64); err == nil {
			filter.MinPrice = &price
			filtered = true
		}
	}
	if v := q.Get("maxPrice"); v != "" {
		if price, err := strconv.ParseFloat(v, 64); err == nil {
			filter.MaxPrice = &price
			filtered = true
		}
	}
	if q.Get("showAll") == "true" {
		filter.ShowAll = true
		filtered = true
	}

	return filter, filtered
}

// handleListProducts serves the catalog. The unfiltered listing is served
// from the cache; ?refresh=true forces a fetch; a filtered listing goes to
// the backend directly since its result is request-specific.
func handleListProducts(ld *loaders, client *backend.Client) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer drainRequestBody(r)

		filter, filtered := listingFilter(r)
		if filtered {
			products, err := client.ListProducts(r.Context(), filter)
			if err != nil {
				writeError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, products)
			return
		}

		get := ld.products.Get
		if r.URL.Query().Get("refresh") == "true" {
			get = ld.products.Refresh
		}

		products, err := get(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, products)
	})
}

func handleGetProduct(client *backend.Client) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer drainRequestBody(r)

		id := r.PathValue("id")
		audit.Log(r.Context()).Resource = "product:" + id

		product, err := client.GetProduct(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, product)
	})
}

func handleStorefrontProfile(store *storefront.Store) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer drainRequestBody(r)

		profile := store.Current()
		if !profile.IsLoaded() {
			writeJSONError(w, http.StatusServiceUnavailable, "storefront profile not loaded")
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"categories":            profile.Categories(),
			"collections":           profile.Collections(),
			"freeShippingThreshold": profile.FreeShippingThreshold(),
		})
	})
}

// limiterIdleExpiry is how long a client bucket survives without traffic
// before a sweep reclaims it. A reclaimed client starts over with a full
// burst, so the expiry is kept well above the refill interval.
const limiterIdleExpiry = time.Hour

const limiterSweepInterval = 10 * time.Minute

// ipRateLimiter applies a per-client-IP token bucket. Idle buckets are swept
// periodically so the tracked set stays bounded by active traffic.
type ipRateLimiter struct {
	mu        sync.Mutex
	clients   map[string]*limiterEntry
	limit     rate.Limit
	burst     int
	lastSweep time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newIPRateLimiter(perMinute, burst int) *ipRateLimiter {
	return &ipRateLimiter{
		clients:   make(map[string]*limiterEntry),
		limit:     rate.Every(time.Minute / time.Duration(perMinute)),
		burst:     burst,
		lastSweep: time.Now(),
	}
}

func (l *ipRateLimiter) allow(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}

	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) >= limiterSweepInterval {
		l.sweep(now)
	}

	entry, ok := l.clients[host]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[host] = entry
	}
	entry.lastSeen = now
	return entry.limiter.Allow()
}

// sweep drops buckets idle longer than limiterIdleExpiry. Callers hold l.mu.
func (l *ipRateLimiter) sweep(now time.Time) {
	for host, entry := range l.clients {
		if now.Sub(entry.lastSeen) >= limiterIdleExpiry {
			delete(l.clients, host)
		}
	}
	l.lastSweep = now
}

func handleSubmitContact(client *backend.Client, limiter *ipRateLimiter) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer drainRequestBody(r)

		if !limiter.allow(r.RemoteAddr) {
			writeJSONError(w, http.StatusTooManyRequests, "too many submissions, try again later")
			return
		}

		var msg backend.ContactMessage
		if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
			requestError(w, http.StatusBadRequest)
			return
		}

		saved, err := client.SubmitContact(r.Context(), msg)
		if err != nil {
			writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, saved)
	})
}

func handleLogin(client *backend.Client, carts *cart.Service) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer drainRequestBody(r)

		var creds backend.Credentials
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			requestError(w, http.StatusBadRequest)
			return
		}

		result, err := client.Login(r.Context(), creds)
		if err != nil {
			writeError(w, r, err)
			return
		}

		audit.Log(r.Context()).Email = result.User.Email

		// The server cart replaces the guest view on login; the guest snapshot
		// is retained untouched.
		response := map[string]any{
			"token": result.Token,
			"user":  result.User,
		}
		if c, ok := carts.ReconcileLogin(r.Context(), result.Token).Cart(); ok {
			response["cart"] = c
		}

		writeJSON(w, http.StatusOK, response)
	})
}

func handleRegister(client *backend.Client) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer drainRequestBody(r)

		var reg backend.Registration
		if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
			requestError(w, http.StatusBadRequest)
			return
		}

		result, err := client.Register(r.Context(), reg)
		if err != nil {
			writeError(w, r, err)
			return
		}

		audit.Log(r.Context()).Email = result.User.Email

		writeJSON(w, http.StatusCreated, map[string]any{
			"token": result.Token,
			"user":  result.User,
		})
	})
}

// cartResponse adds the recovery hint to failed mutation responses so clients
// know whether a refetch would resolve the divergence.
func cartResponse(w http.ResponseWriter, r *http.Request, result cart.Result) {
	if err, failed := result.Failed(); failed {
		status, message := errorStatus(err)
		log.Ctx(r.Context()).Info().Err(err).Msg("cart operation failed")

		recovery := "none"
		if result.Recovery() == cart.RecoverRefetch {
			recovery = "refetch"
		}

		writeJSON(w, status, map[string]string{
			"error":    message,
			"recovery": recovery,
		})
		return
	}

	c, _ := result.Cart()
	writeJSON(w, http.StatusOK, c)
}

func handleGetCart(cfg config.CartConfig, carts *cart.Service) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer drainRequestBody(r)

		p := principal(cfg, w, r)
		cartResponse(w, r, carts.Get(r.Context(), p))
	})
}

func handleAddCartItem(cfg config.CartConfig, carts *cart.Service) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer drainRequestBody(r)

		var item cart.Item
		if err := json.NewDecoder(r.Body).Decode(&item); err != nil || item.ProductID == "" || item.Quantity < 0 {
			requestError(w, http.StatusBadRequest)
			return
		}
		if item.Quantity == 0 {
			item.Quantity = 1
		}

		p := principal(cfg, w, r)
		cartResponse(w, r, carts.Add(r.Context(), p, item))
	})
}

func handleUpdateCartItem(cfg config.CartConfig, carts *cart.Service) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer drainRequestBody(r)

		var update struct {
			Quantity int `json:"quantity"`
		}
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			requestError(w, http.StatusBadRequest)
			return
		}

		p := principal(cfg, w, r)
		cartResponse(w, r, carts.UpdateQuantity(r.Context(), p, r.PathValue("id"), update.Quantity))
	})
}

func handleRemoveCartItem(cfg config.CartConfig, carts *cart.Service) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer drainRequestBody(r)

		p := principal(cfg, w, r)
		cartResponse(w, r, carts.Remove(r.Context(), p, r.PathValue("id")))
	})
}

func handleClearCart(cfg config.CartConfig, carts *cart.Service) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer drainRequestBody(r)

		p := principal(cfg, w, r)
		cartResponse(w, r, carts.Clear(r.Context(), p))
	})
}

func handleCreateOrder(client *backend.Client) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer drainRequestBody(r)

		token := bearerToken(r)
		if token == "" {
			writeJSONError(w, http.StatusUnauthorized, "sign in to place an order")
			return
		}

		var req backend.CheckoutRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			requestError(w, http.StatusBadRequest)
			return
		}

		order, err := client.CreateOrder(r.Context(), token, req)
		if err != nil {
			writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, order)
	})
}

func handleMyOrders(client *backend.Client) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer drainRequestBody(r)

		token := bearerToken(r)
		if token == "" {
			writeJSONError(w, http.StatusUnauthorized, "sign in to view orders")
			return
		}

		orders, err := client.MyOrders(r.Context(), token)
		if err != nil {
			writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, orders)
	})
}

func handleCurrentUser(client *backend.Client) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer drainRequestBody(r)

		token := bearerToken(r)
		if token == "" {
			writeJSONError(w, http.StatusUnauthorized, "not signed in")
			return
		}

		user, err := client.CurrentUser(r.Context(), token)
		if err != nil {
			writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, user)
	})
}

func handleHealthCheck() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer drainRequestBody(r)

		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}

func maxRequestSize(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.MaxBytesHandler(next, limit)
	}
}

// ErrorResponse represents a JSON error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		requestError(w, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if _, err := w.Write(body); err != nil {
		// record failure to log: trying to respond to the client at this
		// point will likely fail
		log.Info().Msgf("failed to write response: %v", err)
	}
}

// writeJSONError writes a JSON error response with the given status code and message.
func writeJSONError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{Error: message}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		// At this point the status code has been written, so we can only log
		log.Info().Msgf("failed to write JSON error response: %v", err)
	}
}

// writeError maps an upstream or internal error to a response, recording it
// in the audit entry.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := errorStatus(err)

	audit.Log(r.Context()).Error = err.Error()
	log.Ctx(r.Context()).Info().Err(err).Int("status", status).Msg("request failed")

	writeJSONError(w, status, message)
}

// errorStatus extracts HTTP status code and message from an error.
// Returns (StatusInternalServerError, StatusText) for errors that don't implement HTTPStatuser.
func errorStatus(err error) (int, string) {
	if errors.Is(err, cached.ErrLoadFailed) {
		return http.StatusBadGateway, err.Error()
	}

	var statuser HTTPStatuser
	if errors.As(err, &statuser) {
		return statuser.Status()
	}
	return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)
}

func requestError(w http.ResponseWriter, statusCode int) {
	http.Error(w, http.StatusText(statusCode), statusCode)
}

// drainRequestBody drains the request body by reading and discarding the contents.
// This is useful to ensure the request body is fully consumed, which is important
// for connection reuse in HTTP/1 clients.
func drainRequestBody(r *http.Request) {
	if r.Body != nil {
		// 5kb max: after this we'll assume the client is broken or malicious
		// and close the connection
		io.CopyN(io.Discard, r.Body, 5*1024*1024)
	}
}

// publishInvalidations marks the affected cache keys after a successful admin
// mutation, notifying this instance's subscribers and the shared journal.
func publishInvalidations(r *http.Request, bus *signal.Bus, keys ...string) {
	for _, key := range keys {
		bus.Publish(r.Context(), key)
	}
	audit.Log(r.Context()).InvalidatedKeys = keys
}
