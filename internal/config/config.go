package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Authorization AuthorizationConfig
	Backend       BackendConfig
	Cache         CacheConfig
	Cart          CartConfig
	Observe       ObserveConfig
	Server        ServerConfig
	State         StateConfig
	Storefront    StorefrontConfig
}

type ServerConfig struct {
	Port                   int `env:"SERVER_PORT, default=8080"`
	ShutdownTimeoutSeconds int `env:"SERVER_SHUTDOWN_TIMEOUT_SECS, default=25"`

	OutgoingHTTPMaxIdleConns    int `env:"SERVER_OUTGOING_MAX_IDLE_CONNS, default=100"`
	OutgoingHTTPMaxConnsPerHost int `env:"SERVER_OUTGOING_MAX_CONNS_PER_HOST, default=20"`

	// ContactRatePerMinute limits contact form submissions per client IP.
	ContactRatePerMinute int `env:"SERVER_CONTACT_RATE_PER_MINUTE, default=6"`
	ContactRateBurst     int `env:"SERVER_CONTACT_RATE_BURST, default=3"`
}

// BackendConfig locates the upstream commerce API. All persistence and
// business logic live behind this boundary.
type BackendConfig struct {
	APIURL         string `env:"BACKEND_API_URL, required"`
	TimeoutSeconds int    `env:"BACKEND_TIMEOUT_SECS, default=15"`

	// ServiceToken authorizes bridge-originated calls that are not made on
	// behalf of a signed-in customer (counts, admin listings).
	ServiceToken string `env:"BACKEND_SERVICE_TOKEN"`
}

func (c BackendConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// CacheConfig specifies the catalog read cache.
type CacheConfig struct {
	// MaxEntries bounds the in-memory cache.
	MaxEntries int `env:"CACHE_MAX_ENTRIES, default=10000"`

	// Retention bounds how long the store keeps an entry at all. It is set
	// well above the freshness TTLs so that a stale entry survives a failed
	// refresh and remains readable.
	Retention time.Duration `env:"CACHE_RETENTION, default=24h"`

	// TTL is the default freshness window for cached reads.
	TTL time.Duration `env:"CACHE_TTL, default=5m"`

	// CountsTTL covers the dashboard count keys, which tolerate more staleness.
	CountsTTL time.Duration `env:"CACHE_COUNTS_TTL, default=10m"`

	// CoalesceRefresh shares a single in-flight fetch between concurrent
	// refreshes of the same key. Off by default: racing refreshes are
	// last-write-wins.
	CoalesceRefresh bool `env:"CACHE_COALESCE_REFRESH, default=false"`

	// Journal selects the invalidation journal: "file" (default) or "valkey".
	Journal string `env:"CACHE_JOURNAL, default=file"`

	Valkey ValkeyConfig
}

// ValkeyConfig specifies the shared invalidation journal connection.
type ValkeyConfig struct {
	// Address is the Valkey server address (host:port).
	Address string `env:"VALKEY_ADDRESS"`

	// TLS enables TLS connection to Valkey. Defaults to true so the secure
	// option is the default.
	TLS bool `env:"VALKEY_TLS, default=true"`

	Username string `env:"VALKEY_USERNAME"`
	Password string `env:"VALKEY_PASSWORD"`
}

// CartConfig specifies guest cart behaviour.
type CartConfig struct {
	// GuestCookie names the cookie carrying the guest cart identity.
	GuestCookie string `env:"CART_GUEST_COOKIE, default=velora_guest"`

	// GuestTTL is the lifetime of the guest identity cookie.
	GuestTTL time.Duration `env:"CART_GUEST_TTL, default=720h"`
}

// StateConfig locates the durable state store used for guest cart snapshots
// and the file invalidation journal.
type StateConfig struct {
	Dir string `env:"STATE_DIR, default=./state"`
}

// StorefrontConfig locates the curated storefront profile document.
type StorefrontConfig struct {
	ProfilePath     string        `env:"STOREFRONT_PROFILE_PATH"`
	RefreshInterval time.Duration `env:"STOREFRONT_REFRESH_INTERVAL, default=5m"`
}

type AuthorizationConfig struct {
	Audience            string `env:"JWT_AUDIENCE, default=storefront-admin"`
	IssuerURL           string `env:"JWT_ISSUER_URL"`
	ConfigurationStatic string `env:"JWT_JWKS_STATIC"`
}

type ObserveConfig struct {
	SDKLogLevel                string `env:"OBSERVE_OTEL_LOG_LEVEL, default=info"`
	Enabled                    bool   `env:"OBSERVE_ENABLED, default=false"`
	MetricsEnabled             bool   `env:"OBSERVE_METRICS_ENABLED, default=true"`
	Type                       string `env:"OBSERVE_TYPE, default=grpc"`
	ServiceName                string `env:"OBSERVE_SERVICE_NAME, default=storefront-bridge"`
	TraceBatchTimeoutSeconds   int    `env:"OBSERVE_TRACE_BATCH_TIMEOUT_SECS, default=20"`
	MetricReadIntervalSeconds  int    `env:"OBSERVE_METRIC_READ_INTERVAL_SECS, default=60"`
	HTTPTransportEnabled       bool   `env:"OBSERVE_HTTP_TRANSPORT_ENABLED, default=true"`
	HTTPConnectionTraceEnabled bool   `env:"OBSERVE_CONNECTION_TRACE_ENABLED, default=true"`
}

func Load(ctx context.Context) (Config, error) {
	return load(ctx, nil) // load from OS environment
}

func load(ctx context.Context, lookup envconfig.Lookuper) (Config, error) {
	var cfg Config
	err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookup, // nil defaults to OS environment
	})
	if err != nil {
		return cfg, err
	}

	if err := cfg.Cache.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid cache configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the cache configuration is valid.
func (c *CacheConfig) Validate() error {
	switch c.Journal {
	case "file", "valkey":
	default:
		return fmt.Errorf("unknown CACHE_JOURNAL type: %q", c.Journal)
	}

	if c.Journal == "valkey" && c.Valkey.Address == "" {
		return fmt.Errorf("VALKEY_ADDRESS required when CACHE_JOURNAL=valkey")
	}

	// a stale entry must remain readable after its freshness window lapses
	if c.Retention <= c.TTL || c.Retention <= c.CountsTTL {
		return fmt.Errorf("CACHE_RETENTION (%v) must exceed CACHE_TTL (%v) and CACHE_COUNTS_TTL (%v)",
			c.Retention, c.TTL, c.CountsTTL)
	}

	return nil
}
