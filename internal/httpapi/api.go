// Package httpapi is the HTTP surface of the authorization service: the
// permission-check endpoint, liveness/readiness probes, and the metrics
// scrape handler, with the access-control middleware chain around them.
package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/relexro/authz-core/internal/obs"
	"github.com/relexro/authz-core/pkg/auth"
	"github.com/relexro/authz-core/pkg/authz"
	rxerr "github.com/relexro/authz-core/pkg/errors"
	"github.com/relexro/authz-core/pkg/store"
)

// Config holds the HTTP-layer limits.
type Config struct {
	// MaxBodyBytes caps the request body size. Defaults to 64 KB.
	MaxBodyBytes int64 `yaml:"max_body_bytes" env:"HTTP_MAX_BODY_BYTES" envDefault:"65536"`

	// RateLimitPerSecond is the sustained per-IP request rate. Zero
	// disables rate limiting.
	RateLimitPerSecond int `yaml:"rate_limit_per_second" env:"HTTP_RATE_LIMIT_PER_SECOND" envDefault:"50"`

	// RateLimitBurst is the per-IP burst size.
	RateLimitBurst int `yaml:"rate_limit_burst" env:"HTTP_RATE_LIMIT_BURST" envDefault:"100"`
}

// DefaultConfig returns the default HTTP-layer limits.
func DefaultConfig() Config {
	return Config{
		MaxBodyBytes:       64 * 1024,
		RateLimitPerSecond: 50,
		RateLimitBurst:     100,
	}
}

// API is the HTTP layer. It resolves the caller's identity, evaluates the
// permission check, and maps structured errors to status codes.
type API struct {
	mux        *http.ServeMux
	resolver   *auth.Resolver
	dispatcher *authz.Dispatcher
	records    store.RecordStore
	logger     *slog.Logger
	cfg        Config
}

// New assembles the API over the given resolver, dispatcher, and record
// store (used for the readiness probe).
func New(resolver *auth.Resolver, dispatcher *authz.Dispatcher, records store.RecordStore, logger *slog.Logger, cfg Config) *API {
	if logger == nil {
		logger = slog.Default()
	}
	a := &API{
		mux:        http.NewServeMux(),
		resolver:   resolver,
		dispatcher: dispatcher,
		records:    records,
		logger:     logger,
		cfg:        cfg,
	}

	a.mux.HandleFunc("POST /permissions/check", a.CheckPermissions)
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the full handler chain for the server.
func (a *API) Handler() http.Handler {
	h := http.Handler(a.mux)
	h = MaxBodyBytes(h, a.cfg.MaxBodyBytes)
	if a.cfg.RateLimitPerSecond > 0 {
		h = RateLimit(h, a.cfg.RateLimitBurst, a.cfg.RateLimitPerSecond)
	}
	h = Logging(a.logger, h)
	h = RequestID(h)
	return obs.Instrument(h)
}

// --- Handlers ---

// CheckPermissions evaluates one permission check for the authenticated
// caller. Denial is a normal 200 response with allowed=false; HTTP
// errors are reserved for requests that could not be evaluated at all.
func (a *API) CheckPermissions(w http.ResponseWriter, r *http.Request) {
	authCtx, err := a.resolver.Resolve(r)
	if err != nil {
		if rxerr.IsAuthentication(err) {
			obs.ObserveAuthFailure()
		}
		a.writeError(w, r, err)
		return
	}

	// Health-check probes acknowledge liveness and authorize nothing.
	if authCtx == nil {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
		return
	}

	var req authz.CheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, r, rxerr.Wrap(err, rxerr.CodeValidation, "request body is not valid JSON"))
		return
	}

	ctx := auth.ContextWithAuthContext(r.Context(), authCtx)
	dec, err := a.dispatcher.Check(ctx, authCtx.UserID, req)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dec)
}

// Healthz reports process liveness.
func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "authz-core",
	})
}

// Ready reports readiness, pinging the record store when it supports it.
func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if p, ok := a.records.(store.Pinger); ok {
		if err := p.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"status": "not_ready",
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps a structured error to its HTTP status. Server-side
// faults are logged with full context and returned as a generic message;
// client errors carry their message through.
func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	rErr := rxerr.FromError(err)
	status := rErr.HTTPStatus()

	message := rErr.Message
	if status >= http.StatusInternalServerError {
		a.logger.ErrorContext(r.Context(), "internal fault",
			"code", rErr.Code,
			"error", err,
			"request_id", RequestIDFromContext(r.Context()),
		)
		message = "internal error"
	}

	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"code":    rErr.Code,
			"message": message,
		},
	})
}
