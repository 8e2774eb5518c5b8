// Package audit writes one structured log entry per request, accumulating
// detail as the request passes through middleware and handlers.
package audit

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Level is the log level used for audit entries. Audit entries are emitted
// regardless of the configured global level filter for lower levels.
const Level = zerolog.InfoLevel

// Entry is the audit record for a single request. Handlers retrieve the
// active entry with Log() and fill in fields as they learn them; the
// middleware writes the completed entry exactly once, panics included.
type Entry struct {
	Method    string
	Path      string
	Status    int
	SourceIP  string
	UserAgent string

	GuestID string

	Authorized     bool
	AuthSubject    string
	AuthIssuer     string
	AuthAudience   []string
	AuthExpirySecs int64
	Role           string
	Name           string
	Email          string

	Resource        string
	InvalidatedKeys []string

	Error string
}

// MarshalZerologObject serializes the entry as nested dicts: request and
// authorization are always present, session and catalog only when populated.
func (e *Entry) MarshalZerologObject(event *zerolog.Event) {
	request := zerolog.Dict().
		Str("method", e.Method).
		Str("path", e.Path).
		Int("status", e.Status).
		Str("sourceIP", e.SourceIP).
		Str("userAgent", e.UserAgent)
	event.Dict("request", request)

	session := NewOptionalEvent(nil)
	session.Str("guestID", e.GuestID)
	session.Set(event, "session")

	authorization := NewOptionalEvent(nil)
	authorization.Bool("authorized", e.Authorized)
	authorization.Str("subject", e.AuthSubject)
	authorization.Str("issuer", e.AuthIssuer)
	authorization.Strs("audience", e.AuthAudience)
	authorization.Str("role", e.Role)
	authorization.Str("name", e.Name)
	authorization.Str("email", e.Email)
	expiry(authorization, e.AuthExpirySecs)
	authorization.Set(event, "authorization")

	catalog := NewOptionalEvent(nil)
	catalog.Str("resource", e.Resource)
	catalog.Strs("invalidatedKeys", e.InvalidatedKeys)
	catalog.Set(event, "catalog")

	if e.Error != "" {
		event.Str("error", e.Error)
	}
}

// expiry renders an expiry instant alongside the remaining validity, making
// log scans for soon-to-expire tokens cheap.
func expiry(oe *OptionalEvent, secs int64) {
	if secs == 0 {
		return
	}

	at := time.Unix(secs, 0)
	oe.Str("expiry", at.Format(time.RFC3339))
	oe.Str("expiryRemaining", time.Until(at).Round(time.Second).String())
}

// Begin captures the request details available before the handler runs.
func (e *Entry) Begin(r *http.Request) {
	e.Method = r.Method
	e.Path = r.URL.Path
	e.UserAgent = r.UserAgent()
	e.Status = http.StatusOK

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		e.SourceIP = host
	} else {
		e.SourceIP = r.RemoteAddr
	}
}

// End returns a function that writes the audit entry via the context logger.
// Deferred by the middleware so the entry is written exactly once per request.
func (e *Entry) End(ctx context.Context) func() {
	return func() {
		log.Ctx(ctx).WithLevel(Level).EmbedObject(e).Msg("audit")
	}
}

type entryContextKey struct{}

// Context returns a context carrying an audit entry, creating one if absent.
func Context(ctx context.Context) (context.Context, *Entry) {
	if entry, ok := ctx.Value(entryContextKey{}).(*Entry); ok {
		return ctx, entry
	}

	entry := &Entry{}
	return context.WithValue(ctx, entryContextKey{}, entry), entry
}

// Log returns the audit entry for the current request. When no entry is
// present a detached entry is returned: writes to it are valid but will not
// appear in the audit log.
func Log(ctx context.Context) *Entry {
	if entry, ok := ctx.Value(entryContextKey{}).(*Entry); ok {
		return entry
	}
	return &Entry{}
}

// statusCapture records the response status for the audit entry.
type statusCapture struct {
	http.ResponseWriter
	entry *Entry
}

func (s *statusCapture) WriteHeader(statusCode int) {
	s.entry.Status = statusCode
	s.ResponseWriter.WriteHeader(statusCode)
}

// Middleware establishes the audit entry for each request and guarantees it
// is written, re-panicking after recording when the handler panics.
func Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, entry := Context(r.Context())
			entry.Begin(r)

			defer entry.End(ctx)()

			defer func() {
				if p := recover(); p != nil {
					if entry.Error != "" {
						entry.Error = fmt.Sprintf("%s; panic: %v", entry.Error, p)
					} else {
						entry.Error = fmt.Sprintf("panic: %v", p)
					}
					panic(p)
				}
			}()

			next.ServeHTTP(&statusCapture{ResponseWriter: w, entry: entry}, r)
		})
	}
}
