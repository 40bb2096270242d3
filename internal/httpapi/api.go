package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"pqrs.org/internal/auth"
	"pqrs.org/internal/obs"
	"pqrs.org/internal/pqrs"
)

// ReadyProbe reports whether the service can take traffic (DB ping when a
// database is configured).
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Deps carries the services the HTTP layer delegates to.
type Deps struct {
	Auth     *auth.Service
	Resolver *auth.Resolver
	Users    auth.UserStore
	Roles    auth.RoleStore
	Tickets  *pqrs.Service

	MaxPageSize     int
	DefaultPageSize int
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	readyProbe ReadyProbe
	version    string
	deps       Deps
}

func New(rp ReadyProbe, version string, deps Deps) *API {
	if deps.MaxPageSize <= 0 {
		deps.MaxPageSize = 100
	}
	if deps.DefaultPageSize <= 0 || deps.DefaultPageSize > deps.MaxPageSize {
		deps.DefaultPageSize = 20
	}
	a := &API{
		mux:        http.NewServeMux(),
		readyProbe: rp,
		version:    version,
		deps:       deps,
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	// authentication and account management
	a.mux.HandleFunc("/v1/auth/login", a.handleLogin)
	a.mux.HandleFunc("/v1/auth/register", a.handleRegister)
	a.mux.HandleFunc("/v1/auth/refresh", a.handleRefresh)
	a.mux.HandleFunc("/v1/auth/change-password", a.handleChangePassword)
	a.mux.HandleFunc("/v1/auth/me", a.handleMe)
	a.mux.HandleFunc("/v1/auth/validate-username", a.handleValidateUsername)
	a.mux.HandleFunc("/v1/auth/validate-email", a.handleValidateEmail)
	a.mux.HandleFunc("/v1/auth/logout", a.handleLogout)

	// user administration
	a.mux.HandleFunc("/v1/users", a.handleUsers)
	a.mux.HandleFunc("/v1/users/", a.handleUserScoped)

	// PQRS tickets
	a.mux.HandleFunc("/v1/pqrs", a.handleTickets)
	a.mux.HandleFunc("/v1/pqrs/", a.handleTicketScoped)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the fully wrapped http.Handler for the server.
func (a *API) Handler() http.Handler {
	return obs.Instrument(a.withAuth(a.mux))
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "pqrs-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		obs.SetReady(false)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	obs.SetReady(true)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "pqrs-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}
