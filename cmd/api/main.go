package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"pqrs.org/internal/auth"
	"pqrs.org/internal/config"
	"pqrs.org/internal/httpapi"
	"pqrs.org/internal/obs"
	"pqrs.org/internal/pqrs"
)

var (
	version = "0.3.0"
	commit  = "dev"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	obs.Init()
	obs.InitBuildInfo(version, commit)

	var db *sql.DB
	if cfg.PGDSN != "" {
		db, err = sql.Open("pgx", cfg.PGDSN)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	var (
		users   auth.UserStore
		roles   auth.RoleStore
		tickets pqrs.Store
	)
	if db != nil {
		store := auth.NewPGStore(db)
		users, roles = store, store
		tickets = pqrs.NewPGStore(db)
	} else {
		// In-memory fallback for local development without PostgreSQL.
		store := auth.NewMemoryStore()
		seedRoles(store)
		users, roles = store, store
		tickets = pqrs.NewMemoryStore()
		log.Print("no PQRS_PG_DSN set, using in-memory stores")
	}

	tokens, err := auth.NewTokenService(cfg.AuthSecret,
		auth.WithIssuer(cfg.AuthIssuer),
		auth.WithAccessTTL(cfg.AccessTTL),
		auth.WithRefreshTTL(cfg.RefreshTTL),
	)
	if err != nil {
		log.Fatalf("token service: %v", err)
	}
	authSvc, err := auth.NewService(users, roles, tokens)
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}

	api := httpapi.New(httpapi.ReadyProbe{DB: db}, version, httpapi.Deps{
		Auth:            authSvc,
		Resolver:        auth.NewResolver(tokens, users),
		Users:           users,
		Roles:           roles,
		Tickets:         pqrs.NewService(tickets),
		MaxPageSize:     cfg.MaxPageSize,
		DefaultPageSize: cfg.DefaultPageSize,
	})

	handler := httpapi.Logging(
		httpapi.SecurityHeaders(
			httpapi.CORS(
				httpapi.MaxBodyBytes(
					httpapi.RateLimit(api.Handler(), cfg.RateLimitBurst, cfg.RateLimitPerSecond),
					cfg.MaxBodyBytes,
				),
			),
		),
	)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting pqrs-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if db != nil {
		_ = db.Close()
	}
	log.Println("Stopped")
}

// seedRoles mirrors the SQL seed catalog for the in-memory store.
func seedRoles(store *auth.MemoryStore) {
	perm := func(name, desc string) auth.Permission {
		return auth.Permission{ID: "perm-" + name, Name: name, Description: desc}
	}
	crear := perm("crear_pqrs", "Radicar tickets PQRS")
	ver := perm("ver_pqrs", "Consultar cualquier ticket PQRS")
	gestionar := perm("gestionar_pqrs", "Gestionar, asignar y cambiar el estado de tickets")
	eliminar := perm("eliminar_pqrs", "Eliminar tickets PQRS")
	usuarios := perm("gestionar_usuarios", "Administrar cuentas de usuario")

	store.AddRole(auth.Role{
		Name:        "Administrador",
		Description: "Acceso completo al sistema",
		Permissions: []auth.Permission{crear, ver, gestionar, eliminar, usuarios},
	})
	store.AddRole(auth.Role{
		Name:        "Gestor",
		Description: "Gestiona los tickets PQRS",
		Permissions: []auth.Permission{crear, ver, gestionar},
	})
	store.AddRole(auth.Role{
		Name:        "Supervisor",
		Description: "Consulta y supervisa los tickets",
		Permissions: []auth.Permission{ver},
	})
	store.AddRole(auth.Role{
		Name:        "Usuario",
		Description: "Radica y consulta sus propios tickets",
		Permissions: []auth.Permission{crear},
	})
}
