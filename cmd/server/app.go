package main

import (
	"net/http"

	"github.com/juju/clock"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/contractpro/contractpro/auth"
	"github.com/contractpro/contractpro/gate"
	"github.com/contractpro/contractpro/internal/config"
	"github.com/contractpro/contractpro/internal/db"
	"github.com/contractpro/contractpro/internal/handlers"
	"github.com/contractpro/contractpro/internal/metrics"
	"github.com/contractpro/contractpro/internal/middleware"
	"github.com/contractpro/contractpro/internal/policy"
	"github.com/contractpro/contractpro/internal/services"
)

// App is the main application handler that sets up all routes.
type App struct {
	mux     *http.ServeMux
	handler http.Handler

	authn    *auth.Authenticator
	authGate *policy.AuthGate
	metrics  *metrics.Metrics

	auth      *handlers.AuthHandler
	clients   *handlers.ClientHandler
	contracts *handlers.ContractHandler
	invoices  *handlers.InvoiceHandler
	dashboard *handlers.DashboardHandler
	health    *handlers.HealthHandler
}

// NewApp wires services, handlers and middleware over conn.
func NewApp(cfg *config.Config, conn *gorm.DB, clk clock.Clock, log zerolog.Logger) *App {
	m := metrics.New()
	authGate := policy.NewAuthGate(conn, clk, cfg.Auth.RoleCache)
	deps := services.Deps{
		DB:      conn,
		Clock:   clk,
		Gate:    authGate,
		Log:     log.With().Str("component", "services").Logger(),
		Metrics: m,
	}
	tokens := auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, clk)
	users := services.NewUserService(deps, tokens)

	environment := "production"
	if cfg.App.Dev {
		environment = "development"
	}
	hlog := log.With().Str("component", "http").Logger()
	a := &App{
		mux:       http.NewServeMux(),
		authn:     auth.NewAuthenticator(tokens, users.VerifyActive),
		authGate:  authGate,
		metrics:   m,
		auth:      handlers.NewAuthHandler(users, hlog),
		clients:   handlers.NewClientHandler(services.NewClientService(deps), hlog),
		contracts: handlers.NewContractHandler(services.NewContractService(deps), hlog),
		invoices:  handlers.NewInvoiceHandler(services.NewInvoiceService(deps), hlog),
		dashboard: handlers.NewDashboardHandler(services.NewDashboardService(deps), hlog),
		health:    handlers.NewHealthHandler(clk, environment, func() error { return db.Ping(conn) }),
	}
	a.setupRoutes()

	limiter := middleware.NewRateLimiter(cfg.Server.RateLimit, cfg.Server.RateWindow, clk)
	a.handler = middleware.Chain(a.mux,
		middleware.Recover(hlog),
		middleware.SecureHeaders,
		middleware.CORS(cfg.Server.CORSOrigins),
		a.authn.Middleware,
		middleware.Logger(hlog, clk, m),
		limiter.Middleware,
	)
	return a
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.handler.ServeHTTP(w, r)
}

// setupRoutes configures all application routes.
func (a *App) setupRoutes() {
	// Operations
	a.mux.HandleFunc("GET /health", a.health.Live)
	a.mux.HandleFunc("GET /healthz", a.health.Ready)
	a.mux.Handle("GET /metrics", a.metrics.Handler())
	a.mux.HandleFunc("/", handlers.NotFound)

	// Auth
	ah := a.auth
	a.mux.HandleFunc("POST /api/auth/register", ah.Register)
	a.mux.HandleFunc("POST /api/auth/signup", ah.Signup)
	a.mux.HandleFunc("POST /api/auth/login", ah.Login)
	a.mux.Handle("GET /api/auth/me", a.authn.RequireAuth(http.HandlerFunc(ah.Me)))
	a.mux.Handle("PUT /api/auth/profile", a.authn.RequireAuth(http.HandlerFunc(ah.UpdateProfile)))
	a.mux.Handle("POST /api/auth/logout", a.authn.RequireAuth(http.HandlerFunc(ah.Logout)))

	// Clients
	ch := a.clients
	a.mux.Handle("GET /api/clients", a.protect(policy.ResourceClient, gate.ActionList, ch.List))
	a.mux.Handle("POST /api/clients", a.protect(policy.ResourceClient, gate.ActionCreate, ch.Create))
	a.mux.Handle("GET /api/clients/{id}", a.protect(policy.ResourceClient, gate.ActionView, ch.Get))
	a.mux.Handle("PUT /api/clients/{id}", a.protect(policy.ResourceClient, gate.ActionUpdate, ch.Update))
	a.mux.Handle("DELETE /api/clients/{id}", a.protect(policy.ResourceClient, gate.ActionDelete, ch.Delete))
	a.mux.Handle("GET /api/clients/{id}/contracts", a.protect(policy.ResourceClient, gate.ActionView, ch.Contracts))
	a.mux.Handle("GET /api/clients/{id}/invoices", a.protect(policy.ResourceClient, gate.ActionView, ch.Invoices))

	// Contracts
	kh := a.contracts
	a.mux.Handle("GET /api/contracts", a.protect(policy.ResourceContract, gate.ActionList, kh.List))
	a.mux.Handle("POST /api/contracts", a.protect(policy.ResourceContract, gate.ActionCreate, kh.Create))
	a.mux.Handle("GET /api/contracts/{id}", a.protect(policy.ResourceContract, gate.ActionView, kh.Get))
	a.mux.Handle("PUT /api/contracts/{id}", a.protect(policy.ResourceContract, gate.ActionUpdate, kh.Update))
	a.mux.Handle("DELETE /api/contracts/{id}", a.protect(policy.ResourceContract, gate.ActionDelete, kh.Delete))
	a.mux.Handle("POST /api/contracts/{id}/send-signature", a.protect(policy.ResourceContract, gate.ActionSend, kh.SendForSignature))
	a.mux.Handle("POST /api/contracts/{id}/sign", a.protect(policy.ResourceContract, gate.ActionSign, kh.Sign))
	a.mux.Handle("GET /api/contracts/{id}/export-pdf", a.protect(policy.ResourceContract, gate.ActionExport, kh.ExportPDF))

	// Invoices
	ih := a.invoices
	a.mux.Handle("GET /api/invoices", a.protect(policy.ResourceInvoice, gate.ActionList, ih.List))
	a.mux.Handle("POST /api/invoices", a.protect(policy.ResourceInvoice, gate.ActionCreate, ih.Create))
	a.mux.Handle("GET /api/invoices/{id}", a.protect(policy.ResourceInvoice, gate.ActionView, ih.Get))
	a.mux.Handle("PUT /api/invoices/{id}", a.protect(policy.ResourceInvoice, gate.ActionUpdate, ih.Update))
	a.mux.Handle("DELETE /api/invoices/{id}", a.protect(policy.ResourceInvoice, gate.ActionDelete, ih.Delete))
	a.mux.Handle("POST /api/invoices/{id}/send", a.protect(policy.ResourceInvoice, gate.ActionSend, ih.Send))
	a.mux.Handle("POST /api/invoices/{id}/remind", a.protect(policy.ResourceInvoice, gate.ActionRemind, ih.Remind))
	a.mux.Handle("POST /api/invoices/{id}/mark-paid", a.protect(policy.ResourceInvoice, gate.ActionMarkPaid, ih.MarkPaid))
	a.mux.Handle("GET /api/invoices/{id}/export-pdf", a.protect(policy.ResourceInvoice, gate.ActionExport, ih.ExportPDF))

	// Dashboard
	dh := a.dashboard
	a.mux.Handle("GET /api/dashboard/stats", a.protect(policy.ResourceDashboard, gate.ActionView, dh.Stats))
	a.mux.Handle("GET /api/dashboard/revenue", a.protect(policy.ResourceDashboard, gate.ActionView, dh.Revenue))
	a.mux.Handle("GET /api/dashboard/activity", a.protect(policy.ResourceDashboard, gate.ActionView, dh.Activity))
	a.mux.Handle("GET /api/dashboard/upcoming-deadlines", a.protect(policy.ResourceDashboard, gate.ActionView, dh.UpcomingDeadlines))
	a.mux.Handle("GET /api/dashboard/client-stats", a.protect(policy.ResourceDashboard, gate.ActionView, dh.ClientStats))
	a.mux.Handle("GET /api/dashboard/client-projects", a.protect(policy.ResourceDashboard, gate.ActionView, dh.ClientProjects))
	a.mux.Handle("GET /api/dashboard/client-freelancers", a.protect(policy.ResourceDashboard, gate.ActionView, dh.ClientFreelancers))
	a.mux.Handle("GET /api/dashboard/admin-stats", a.requireAdmin(dh.AdminStats))
}

// protect requires a valid token and the role permission resource:action.
// Record ownership is checked by the services once the record is loaded.
func (a *App) protect(resource string, action gate.Action, h http.HandlerFunc) http.Handler {
	return a.authn.RequireAuth(a.authGate.RequirePermission(resource, action)(h))
}

// requireAdmin requires a valid token held by an admin.
func (a *App) requireAdmin(h http.HandlerFunc) http.Handler {
	return a.authn.RequireAuth(a.authGate.RequireAdmin()(h))
}
