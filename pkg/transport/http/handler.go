// Package http adapts the pforte gateway to HTTP. Every tenant-scoped
// route passes through the authorization gate before its handler runs;
// denied requests are answered with a redirect, mirroring how a browser
// session would be bounced between pages.
package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/kweidner/pforte/pkg/analytics"
	"github.com/kweidner/pforte/pkg/auth"
	"github.com/kweidner/pforte/pkg/gate"
	"github.com/kweidner/pforte/pkg/observability"
	"github.com/kweidner/pforte/pkg/record"
	"github.com/kweidner/pforte/pkg/tenant"
)

// sessionCookie is the cookie carrying the session token.
const sessionCookie = "session"

// defaultPageLimit is the page size used when the request omits one.
const defaultPageLimit = 10

// defaultAnalyticsDays is the series length used when the request omits one.
const defaultAnalyticsDays = 30

// Handler serves the tenant-scoped dashboard API.
type Handler struct {
	gate      *gate.Gate
	limiter   auth.RateLimiter
	directory *tenant.Directory
	store     record.Store
	analytics *analytics.Generator
	logger    *slog.Logger
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithRateLimiter sets the per-tenant rate limiter. Without one, requests
// are never throttled.
func WithRateLimiter(l auth.RateLimiter) HandlerOption {
	return func(h *Handler) { h.limiter = l }
}

// WithHandlerLogger sets the structured logger.
func WithHandlerLogger(l *slog.Logger) HandlerOption {
	return func(h *Handler) { h.logger = l }
}

// NewHandler creates the API handler. The gate, directory, store, and
// analytics generator are required.
func NewHandler(g *gate.Gate, directory *tenant.Directory, store record.Store, gen *analytics.Generator, opts ...HandlerOption) *Handler {
	h := &Handler{
		gate:      g,
		directory: directory,
		store:     store,
		analytics: gen,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes returns the route multiplexer for the API.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", h.handleHealth)
	mux.HandleFunc("GET /login", h.handleLogin)

	mux.Handle("GET /{tenant}/dashboard", h.protect("/dashboard", h.handleDashboard))
	mux.Handle("GET /{tenant}/users", h.protect("/users", h.handleListUsers))
	mux.Handle("POST /{tenant}/users", h.protect("/users", h.handleCreateUser))
	mux.Handle("DELETE /{tenant}/users/{id}", h.protect("/users", h.handleDeleteUser))
	mux.Handle("GET /{tenant}/settings", h.protect("/settings", h.handleGetSettings))
	mux.Handle("PUT /{tenant}/settings", h.protect("/settings", h.handleUpdateSettings))

	return mux
}

// protect runs the authorization gate before the wrapped handler. The route
// argument is the tenant-agnostic policy template ("/users"), so item paths
// like /{tenant}/users/{id} authorize against the collection route. Denied
// requests are redirected to the decision's target; admitted requests get
// the resolved identity injected into the context and are counted against
// the tenant's rate budget.
func (h *Handler) protect(route string, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenantID := r.PathValue("tenant")

		decision := h.gate.Authorize(r.Context(), sessionToken(r), tenantID, "/"+tenantID+route)
		if !decision.Admitted() {
			observability.AuthzDecisionsTotal.WithLabelValues("denied", string(decision.Reason)).Inc()
			h.logger.Info("request denied",
				slog.String("tenant", tenantID),
				slog.String("path", r.URL.Path),
				slog.String("reason", string(decision.Reason)),
				slog.String("request_id", RequestIDFromContext(r.Context())))
			http.Redirect(w, r, decision.Target, http.StatusFound)
			return
		}
		observability.AuthzDecisionsTotal.WithLabelValues("admitted", "").Inc()

		if h.limiter != nil {
			if err := h.limiter.Allow(r.Context(), decision.Identity); err != nil {
				observability.RateLimitRejectedTotal.WithLabelValues(decision.Identity.TenantID).Inc()
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
		}

		ctx := auth.ContextWithIdentity(r.Context(), decision.Identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// sessionToken extracts the session token from the request: the session
// cookie first, then a bearer Authorization header.
func sessionToken(r *http.Request) string {
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	if ah := r.Header.Get("Authorization"); len(ah) > 7 && ah[:7] == "Bearer " {
		return ah[7:]
	}
	return ""
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleLogin is the public landing target for denied requests.
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "sign in required"})
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	identity := auth.IdentityFromContext(r.Context())

	days := defaultAnalyticsDays
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		days = n
	}

	t, err := h.directory.Get(identity.TenantID)
	if err != nil {
		writeError(w, http.StatusNotFound, "tenant not found")
		return
	}

	writeJSON(w, http.StatusOK, dashboardResponse{
		Tenant:      t.ID,
		DisplayName: t.DisplayName,
		Latest:      h.analytics.Latest(identity.TenantID),
		Series:      h.analytics.Series(identity.TenantID, days),
	})
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	identity := auth.IdentityFromContext(r.Context())

	q, err := queryFromRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	start := time.Now()
	res, err := h.store.Query(r.Context(), identity.TenantID, q)
	observability.QueryDuration.WithLabelValues(identity.TenantID).Observe(time.Since(start).Seconds())
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	identity := auth.IdentityFromContext(r.Context())

	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.Fields) == 0 {
		writeError(w, http.StatusBadRequest, "fields must not be empty")
		return
	}

	id, err := h.store.Insert(r.Context(), identity.TenantID, req.Fields)
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	observability.RecordsInsertedTotal.WithLabelValues(identity.TenantID).Inc()

	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (h *Handler) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	identity := auth.IdentityFromContext(r.Context())

	if err := h.store.Delete(r.Context(), identity.TenantID, r.PathValue("id")); err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	identity := auth.IdentityFromContext(r.Context())

	t, err := h.directory.Get(identity.TenantID)
	if err != nil {
		writeError(w, http.StatusNotFound, "tenant not found")
		return
	}
	writeJSON(w, http.StatusOK, settingsFromTenant(t))
}

func (h *Handler) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	identity := auth.IdentityFromContext(r.Context())

	var req settingsPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	// The tenant id comes from the admitted identity, never from the body.
	updated := tenant.Tenant{
		ID:             identity.TenantID,
		DisplayName:    req.DisplayName,
		PrimaryColor:   req.PrimaryColor,
		SecondaryColor: req.SecondaryColor,
		LogoRef:        req.Logo,
		Theme:          req.Theme,
	}
	if err := h.directory.Update(updated); err != nil {
		writeError(w, http.StatusNotFound, "tenant not found")
		return
	}
	writeJSON(w, http.StatusOK, settingsFromTenant(updated))
}

// queryFromRequest parses the list query parameters. Absent page and limit
// fall back to defaults; present but malformed values are rejected rather
// than coerced.
func queryFromRequest(r *http.Request) (record.Query, error) {
	values := r.URL.Query()
	q := record.Query{
		Search:      values.Get("search"),
		FilterField: values.Get("filter_by"),
		FilterValue: values.Get("filter_value"),
		SortField:   values.Get("sort_by"),
		Page:        1,
		Limit:       defaultPageLimit,
	}

	if v := values.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return record.Query{}, errors.New("page must be an integer")
		}
		q.Page = n
	}
	if v := values.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return record.Query{}, errors.New("limit must be an integer")
		}
		q.Limit = n
	}
	return q, nil
}

// writeStoreError maps store sentinel errors to HTTP status codes.
func (h *Handler) writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, record.ErrInvalidQuery):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, record.ErrNotFound):
		writeError(w, http.StatusNotFound, "record not found")
	case errors.Is(err, record.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "storage unavailable")
	default:
		h.logger.Error("store operation failed",
			slog.String("error", err.Error()),
			slog.String("request_id", RequestIDFromContext(r.Context())))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

type createUserRequest struct {
	Fields map[string]string `json:"fields"`
}

type settingsPayload struct {
	ID             string `json:"id,omitempty"`
	DisplayName    string `json:"displayName"`
	PrimaryColor   string `json:"primaryColor"`
	SecondaryColor string `json:"secondaryColor"`
	Logo           string `json:"logo"`
	Theme          string `json:"theme"`
}

func settingsFromTenant(t tenant.Tenant) settingsPayload {
	return settingsPayload{
		ID:             t.ID,
		DisplayName:    t.DisplayName,
		PrimaryColor:   t.PrimaryColor,
		SecondaryColor: t.SecondaryColor,
		Logo:           t.LogoRef,
		Theme:          t.Theme,
	}
}

type dashboardResponse struct {
	Tenant      string            `json:"tenant"`
	DisplayName string            `json:"displayName"`
	Latest      analytics.Daily   `json:"latest"`
	Series      []analytics.Daily `json:"series"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
