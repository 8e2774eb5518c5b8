package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/justinas/alice"

	"github.com/velora/storefront-bridge/internal/audit"
	"github.com/velora/storefront-bridge/internal/backend"
	"github.com/velora/storefront-bridge/internal/cache"
	"github.com/velora/storefront-bridge/internal/cached"
	"github.com/velora/storefront-bridge/internal/cart"
	"github.com/velora/storefront-bridge/internal/config"
	"github.com/velora/storefront-bridge/internal/jwt"
	"github.com/velora/storefront-bridge/internal/localstore"
	"github.com/velora/storefront-bridge/internal/observe"
	"github.com/velora/storefront-bridge/internal/server"
	sig "github.com/velora/storefront-bridge/internal/signal"
	"github.com/velora/storefront-bridge/internal/storefront"
)

func configureServerRoutes(ctx context.Context, cfg config.Config, deps *dependencies) (http.Handler, error) {
	// wrap a mux such that HTTP telemetry is configured by default
	muxWithoutTelemetry := http.NewServeMux()
	mux := observe.NewMux(muxWithoutTelemetry)

	// configure middleware
	auditor := audit.Middleware()

	authorizer, err := jwt.Middleware(cfg.Authorization)
	if err != nil {
		return nil, fmt.Errorf("authorizer configuration failed: %w", err)
	}

	// The request body size is fairly limited to prevent accidental or
	// deliberate abuse. Given the current API shape, this is not configurable.
	requestLimitBytes := int64(20 << 10) // 20 KB
	requestLimiter := maxRequestSize(requestLimitBytes)

	publicRoutes := alice.New(requestLimiter, auditor)
	adminRoutes := alice.New(requestLimiter, auditor, authorizer, jwt.RequireAdmin())

	client := deps.client
	bus := deps.bus
	ld := deps.loaders

	// catalog
	mux.Handle("GET /products", publicRoutes.Then(handleListProducts(ld, client)))
	mux.Handle("GET /products/{id}", publicRoutes.Then(handleGetProduct(client)))
	mux.Handle("GET /storefront", publicRoutes.Then(handleStorefrontProfile(deps.profile)))

	// cart: guest cookie or bearer token selects the owner
	mux.Handle("GET /cart", publicRoutes.Then(handleGetCart(cfg.Cart, deps.carts)))
	mux.Handle("POST /cart/items", publicRoutes.Then(handleAddCartItem(cfg.Cart, deps.carts)))
	mux.Handle("PUT /cart/items/{id}", publicRoutes.Then(handleUpdateCartItem(cfg.Cart, deps.carts)))
	mux.Handle("DELETE /cart/items/{id}", publicRoutes.Then(handleRemoveCartItem(cfg.Cart, deps.carts)))
	mux.Handle("DELETE /cart", publicRoutes.Then(handleClearCart(cfg.Cart, deps.carts)))

	// accounts and orders
	mux.Handle("POST /users/login", publicRoutes.Then(handleLogin(client, deps.carts)))
	mux.Handle("POST /users/register", publicRoutes.Then(handleRegister(client)))
	mux.Handle("GET /users/me", publicRoutes.Then(handleCurrentUser(client)))
	mux.Handle("POST /orders", publicRoutes.Then(handleCreateOrder(client)))
	mux.Handle("GET /orders/mine", publicRoutes.Then(handleMyOrders(client)))

	// contact form, rate limited per client IP
	contactLimiter := newIPRateLimiter(cfg.Server.ContactRatePerMinute, cfg.Server.ContactRateBurst)
	mux.Handle("POST /contact", publicRoutes.Then(handleSubmitContact(client, contactLimiter)))

	// admin surface: locally validated JWT with the admin role
	mux.Handle("POST /admin/products", adminRoutes.Then(handleAdminCreateProduct(client, bus)))
	mux.Handle("PUT /admin/products/{id}", adminRoutes.Then(handleAdminUpdateProduct(client, bus)))
	mux.Handle("DELETE /admin/products/{id}", adminRoutes.Then(handleAdminDeleteProduct(client, bus)))
	mux.Handle("GET /admin/counts", adminRoutes.Then(handleAdminCounts(ld)))
	mux.Handle("GET /admin/users", adminRoutes.Then(handleAdminListUsers(client)))
	mux.Handle("PUT /admin/users/{id}", adminRoutes.Then(handleAdminUpdateUser(client)))
	mux.Handle("DELETE /admin/users/{id}", adminRoutes.Then(handleAdminDeleteUser(client, bus)))
	mux.Handle("GET /admin/orders", adminRoutes.Then(handleAdminListOrders(client)))
	mux.Handle("PUT /admin/orders/{id}/status", adminRoutes.Then(handleAdminUpdateOrderStatus(client)))
	mux.Handle("DELETE /admin/orders/{id}", adminRoutes.Then(handleAdminDeleteOrder(client, bus)))
	mux.Handle("GET /admin/contact", adminRoutes.Then(handleAdminListContacts(client)))
	mux.Handle("DELETE /admin/contact/{id}", adminRoutes.Then(handleAdminDeleteContact(client)))

	// healthchecks are not included in telemetry or authorization
	muxWithoutTelemetry.Handle("GET /healthcheck", alice.New(requestLimiter).Then(handleHealthCheck()))

	return mux, nil
}

// dependencies are the shared services the route handlers draw on.
type dependencies struct {
	client  *backend.Client
	bus     *sig.Bus
	loaders *loaders
	carts   *cart.Service
	profile *storefront.Store
}

// buildDependencies wires the state store, invalidation journal, caches and
// loaders. The returned hooks close everything in reverse dependency order on
// shutdown.
func buildDependencies(ctx context.Context, cfg config.Config, hooks *server.ShutdownHooks) (*dependencies, error) {
	state, err := localstore.New(cfg.State.Dir)
	if err != nil {
		return nil, fmt.Errorf("state store configuration failed: %w", err)
	}

	var journal sig.Journal
	switch cfg.Cache.Journal {
	case "valkey":
		valkeyClient, err := sig.NewValkeyClient(cfg.Cache.Valkey)
		if err != nil {
			return nil, fmt.Errorf("valkey journal configuration failed: %w", err)
		}
		valkeyJournal := sig.NewValkeyJournal(valkeyClient)
		hooks.AddClose("valkey journal", valkeyJournal)
		journal = valkeyJournal
	default:
		journal = sig.NewFileJournal(state)
	}

	bus := sig.NewBus(journal)

	client, err := backend.New(backend.Config{
		APIURL:       cfg.Backend.APIURL,
		ServiceToken: cfg.Backend.ServiceToken,
		HTTPClient:   &http.Client{Timeout: cfg.Backend.Timeout()},
	})
	if err != nil {
		return nil, fmt.Errorf("backend client configuration failed: %w", err)
	}

	// Retention is deliberately longer than the loader TTLs: an entry past
	// its freshness window must remain readable so a failed refresh can fall
	// back to it.
	productStore, err := cache.NewMemory[cached.Entry[[]backend.Product]](cfg.Cache.Retention, cfg.Cache.MaxEntries)
	if err != nil {
		return nil, fmt.Errorf("product cache configuration failed: %w", err)
	}
	productCache := cache.NewInstrumented[cached.Entry[[]backend.Product]](productStore, "product-items")
	hooks.Add("product cache", productCache.Close)

	countStore, err := cache.NewMemory[cached.Entry[int]](cfg.Cache.Retention, cfg.Cache.MaxEntries)
	if err != nil {
		return nil, fmt.Errorf("count cache configuration failed: %w", err)
	}
	countCache := cache.NewInstrumented[cached.Entry[int]](countStore, "counts")
	hooks.Add("count cache", countCache.Close)

	loaderOptions := []cached.Option[int]{cached.WithTTL[int](cfg.Cache.CountsTTL)}
	if cfg.Cache.CoalesceRefresh {
		loaderOptions = append(loaderOptions, cached.WithCoalescing[int]())
	}

	productOptions := []cached.Option[[]backend.Product]{cached.WithTTL[[]backend.Product](cfg.Cache.TTL)}
	if cfg.Cache.CoalesceRefresh {
		productOptions = append(productOptions, cached.WithCoalescing[[]backend.Product]())
	}

	serviceToken := cfg.Backend.ServiceToken

	ld := &loaders{
		products: cached.NewLoader("product-items", productCache, bus,
			func(ctx context.Context) ([]backend.Product, error) {
				return client.ListProducts(ctx, backend.ProductFilter{})
			},
			productOptions...,
		),
		productsCount: cached.NewLoader("products-count", countCache, bus,
			func(ctx context.Context) (int, error) {
				return client.ProductCount(ctx, serviceToken)
			},
			loaderOptions...,
		),
		usersCount: cached.NewLoader("users-count", countCache, bus,
			func(ctx context.Context) (int, error) {
				return client.UserCount(ctx, serviceToken)
			},
			loaderOptions...,
		),
		ordersCount: cached.NewLoader("orders-count", countCache, bus,
			func(ctx context.Context) (int, error) {
				return client.OrderCount(ctx, serviceToken)
			},
			loaderOptions...,
		),
	}

	carts := cart.NewService(client, cart.NewGuestStore(state))

	profile := storefront.NewStore()

	return &dependencies{
		client:  client,
		bus:     bus,
		loaders: ld,
		carts:   carts,
		profile: profile,
	}, nil
}

func main() {
	configureLogging()

	logBuildInfo()

	err := launchServer()
	if err != nil {
		log.Fatal().Err(err).Msg("server failed to start")
	}
}

func launchServer() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("configuration load failed: %w", err)
	}

	// configure telemetry, including wrapping default HTTP client
	shutdownTelemetry, err := observe.Configure(ctx, cfg.Observe)
	if err != nil {
		return fmt.Errorf("telemetry bootstrap failed: %w", err)
	}

	http.DefaultTransport = observe.HTTPTransport(
		configureHTTPTransport(cfg.Server),
		cfg.Observe,
	)
	http.DefaultClient = &http.Client{
		Transport: http.DefaultTransport,
	}

	hooks := &server.ShutdownHooks{}

	deps, err := buildDependencies(ctx, cfg, hooks)
	if err != nil {
		return err
	}

	// setup routing and dependencies
	handler, err := configureServerRoutes(ctx, cfg, deps)
	if err != nil {
		return fmt.Errorf("server routing configuration failed: %w", err)
	}

	// Refresh the storefront profile periodically when one is configured.
	if cfg.Storefront.ProfilePath != "" {
		go storefront.PeriodicRefresh(ctx, deps.profile, cfg.Storefront.ProfilePath, cfg.Storefront.RefreshInterval)
	}

	hooks.AddContext("telemetry", shutdownTelemetry)

	// start the server
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           handler,
		MaxHeaderBytes:    20 << 10,         // 20 KB
		ReadHeaderTimeout: 20 * time.Second, // Prevent Slowloris attacks
	}

	err = server.Serve(ctx, cfg.Server, httpServer, hooks)
	if err != nil {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

func configureLogging() {
	// Set global level to the minimum: allows the Open Telemetry logging to be
	// configured separately. However, it means that any logger that sets its
	// level will log as this effectively disables the global level.
	zerolog.SetGlobalLevel(zerolog.Level(-128))

	// default level is Info
	log.Logger = log.Level(zerolog.InfoLevel)

	if os.Getenv("ENV") == "development" {
		log.Logger = log.
			Output(zerolog.ConsoleWriter{Out: os.Stdout}).
			Level(zerolog.DebugLevel)
	}

	zerolog.DefaultContextLogger = &log.Logger
}

func logBuildInfo() {
	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	ev := log.Info()
	for _, v := range buildInfo.Settings {
		if strings.HasPrefix(v.Key, "vcs.") ||
			strings.HasPrefix(v.Key, "GO") ||
			v.Key == "CGO_ENABLED" {
			ev = ev.Str(v.Key, v.Value)
		}
	}

	ev.Msg("build information")
}

func configureHTTPTransport(cfg config.ServerConfig) *http.Transport {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	transport.MaxIdleConns = cfg.OutgoingHTTPMaxIdleConns
	transport.MaxConnsPerHost = cfg.OutgoingHTTPMaxConnsPerHost

	return transport
}
