package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"siteledger/internal/domain/allocation"
	"siteledger/internal/domain/attendance"
	"siteledger/internal/domain/audit"
	"siteledger/internal/domain/bill"
	"siteledger/internal/domain/capital"
	"siteledger/internal/domain/contract"
	"siteledger/internal/domain/expense"
	"siteledger/internal/domain/identity"
	"siteledger/internal/domain/ledger"
	"siteledger/internal/domain/notifications"
	"siteledger/internal/domain/reports"
	"siteledger/internal/domain/settlement"
	"siteledger/internal/domain/site"
	"siteledger/internal/domain/wallet"
	"siteledger/internal/platform/config"
	"siteledger/internal/platform/db"
	"siteledger/internal/platform/email"
	"siteledger/internal/platform/metrics"
	"siteledger/internal/transport/http/api"
	allocationhandler "siteledger/internal/transport/http/handlers/allocations"
	attendancehandler "siteledger/internal/transport/http/handlers/attendance"
	audithandler "siteledger/internal/transport/http/handlers/audit"
	authhandler "siteledger/internal/transport/http/handlers/auth"
	billhandler "siteledger/internal/transport/http/handlers/bills"
	capitalhandler "siteledger/internal/transport/http/handlers/capital"
	contracthandler "siteledger/internal/transport/http/handlers/contracts"
	expensehandler "siteledger/internal/transport/http/handlers/expenses"
	ledgerhandler "siteledger/internal/transport/http/handlers/ledger"
	notificationshandler "siteledger/internal/transport/http/handlers/notifications"
	reportshandler "siteledger/internal/transport/http/handlers/reports"
	settlementhandler "siteledger/internal/transport/http/handlers/settlements"
	sitehandler "siteledger/internal/transport/http/handlers/sites"
	userhandler "siteledger/internal/transport/http/handlers/users"
	wallethandler "siteledger/internal/transport/http/handlers/wallet"
	"siteledger/internal/transport/http/middleware"
)

// App is the composed engine: one pool, one router, one metrics collector.
type App struct {
	Config  config.Config
	DB      *pgxpool.Pool
	Router  http.Handler
	Metrics *metrics.Collector
}

// New connects, migrates, seeds, and wires every service behind the router.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, cfg.MigrationsDir); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}
	if cfg.RunSeed {
		if err := db.Seed(ctx, pool, cfg); err != nil {
			pool.Close()
			return nil, fmt.Errorf("seed: %w", err)
		}
	}

	defaultGSTRate, err := decimal.NewFromString(cfg.DefaultGSTRate)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("default gst rate: %w", err)
	}

	app := &App{Config: cfg, DB: pool, Metrics: metrics.New()}
	app.Router = app.buildRouter(defaultGSTRate)
	return app, nil
}

func (a *App) buildRouter(defaultGSTRate decimal.Decimal) http.Handler {
	cfg := a.Config
	pool := a.DB

	identitySvc := identity.NewService(identity.NewStore(pool))
	siteSvc := site.NewService(site.NewStore(pool))
	walletSvc := wallet.NewService(wallet.NewStore(pool), identitySvc)
	ledgerStore := ledger.NewStore(pool)
	ledgerSvc := ledger.NewService(ledgerStore, walletSvc, identitySvc, siteSvc.Store)
	allocationSvc := allocation.NewService(allocation.NewStore(pool), walletSvc, identitySvc, siteSvc.Store)
	expenseSvc := expense.NewService(expense.NewStore(pool), walletSvc, identitySvc, siteSvc.Store)
	billSvc := bill.NewService(bill.NewStore(pool), walletSvc, identitySvc, siteSvc.Store, defaultGSTRate)
	contractSvc := contract.NewService(contract.NewStore(pool), ledgerStore, walletSvc, identitySvc, siteSvc.Store)
	attendanceSvc := attendance.NewService(attendance.NewStore(pool), ledgerStore, identitySvc, siteSvc.Store)
	settlementSvc := settlement.NewService(ledgerStore, walletSvc, identitySvc)
	capitalSvc := capital.NewService(capital.NewStore(pool))
	reportsSvc := reports.NewService(reports.NewStore(pool), walletSvc, identitySvc)
	auditSvc := audit.New(pool)

	notifySvc := notifications.New(notifications.NewStore(pool), email.New(cfg))
	notifySvc.DefaultFrom = cfg.EmailFrom

	idemStore := middleware.NewIdempotencyStore(pool)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(a.Metrics))
	router.Use(middleware.Recoverer)
	router.Use(middleware.SecureHeaders(cfg.Environment == "production"))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.Auth(cfg.JWTSecret))
	router.Use(middleware.RateLimit(cfg.RateLimitPerMin, time.Minute))
	router.Use(middleware.SensitiveMutationRateLimit(cfg.RateLimitPerMin, time.Minute))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	router.With(middleware.RequireAuth, middleware.RequireRole(identity.RoleDeveloper)).
		Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			api.Success(w, a.Metrics.Snapshot(), middleware.GetRequestID(r.Context()))
		})

	router.Route("/api/v1", func(r chi.Router) {
		authhandler.NewHandler(identitySvc, cfg.JWTSecret, cfg.TokenTTL).RegisterRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)

			userhandler.NewHandler(identitySvc, auditSvc).RegisterRoutes(r)
			sitehandler.NewHandler(siteSvc, auditSvc).RegisterRoutes(r)
			allocationhandler.NewHandler(allocationSvc, walletSvc, notifySvc, auditSvc).RegisterRoutes(r)
			wallethandler.NewHandler(walletSvc).RegisterRoutes(r)
			ledgerhandler.NewHandler(ledgerSvc, notifySvc, auditSvc).RegisterRoutes(r)
			settlementhandler.NewHandler(settlementSvc, notifySvc, auditSvc, idemStore).
				WithMetrics(a.Metrics).RegisterRoutes(r)
			expensehandler.NewHandler(expenseSvc, auditSvc).RegisterRoutes(r)
			billhandler.NewHandler(billSvc, notifySvc, auditSvc).RegisterRoutes(r)
			contracthandler.NewHandler(contractSvc, notifySvc, auditSvc).RegisterRoutes(r)
			attendancehandler.NewHandler(attendanceSvc, auditSvc).RegisterRoutes(r)
			capitalhandler.NewHandler(capitalSvc, auditSvc).RegisterRoutes(r)
			reportshandler.NewHandler(reportsSvc).RegisterRoutes(r)
			notificationshandler.NewHandler(notifySvc).RegisterRoutes(r)
			audithandler.NewHandler(auditSvc).RegisterRoutes(r)
		})
	})

	return router
}

// Run serves until ctx is canceled, then drains in-flight requests. Engine
// transactions are request-scoped, so the drain window is all the shutdown
// coordination needed.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.Config.Addr,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", a.Config.Addr, "env", a.Config.Environment)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

// Close releases the pool; call after Run returns.
func (a *App) Close() {
	a.DB.Close()
}
