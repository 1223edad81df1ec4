// Package server wires handlers, middleware and collaborators into the root http.Handler.
package server

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/cors"
	"gorm.io/gorm"

	"github.com/NickCamacho15/bbb-truck-sales-sub000/auth"
	"github.com/NickCamacho15/bbb-truck-sales-sub000/httpx"
	"github.com/NickCamacho15/bbb-truck-sales-sub000/internal/config"
	"github.com/NickCamacho15/bbb-truck-sales-sub000/internal/handlers"
	"github.com/NickCamacho15/bbb-truck-sales-sub000/internal/metrics"
	"github.com/NickCamacho15/bbb-truck-sales-sub000/internal/middleware"
	"github.com/NickCamacho15/bbb-truck-sales-sub000/internal/services"
	"github.com/NickCamacho15/bbb-truck-sales-sub000/internal/storage"
)

const (
	formLimit   = 10
	formWindow  = time.Minute
	loginLimit  = 10
	loginWindow = 15 * time.Minute
)

// Deps are the collaborators the router needs. Registry may be nil to disable metrics.
type Deps struct {
	DB       *gorm.DB
	Config   *config.Config
	Auth     *auth.Service
	Store    storage.Store
	Registry *prometheus.Registry
}

type app struct {
	mux     *http.ServeMux
	db      *gorm.DB
	cfg     *config.Config
	auth    *auth.Service
	metrics *metrics.Metrics

	trucks    *handlers.TruckHandler
	inquiries *handlers.InquiryHandler
	financing *handlers.FinancingHandler
	analytics *handlers.AnalyticsHandler
	upload    *handlers.UploadHandler
	login     *handlers.AuthHandler

	forms  *middleware.RateLimiter
	logins *middleware.RateLimiter
}

// New constructs the root http.Handler with all routes and middlewares applied.
func New(d Deps) http.Handler {
	a := &app{
		mux:    http.NewServeMux(),
		db:     d.DB,
		cfg:    d.Config,
		auth:   d.Auth,
		forms:  middleware.NewRateLimiter(formLimit, formWindow),
		logins: middleware.NewRateLimiter(loginLimit, loginWindow),
	}
	if d.Registry != nil && d.Config.App.MetricsEnabled {
		a.metrics = metrics.New(d.Registry)
	}

	truckSvc := services.NewTruckService(d.DB)
	views := services.NewViewRecorder(d.DB, d.Config.App.ViewHashSalt)
	if a.metrics != nil {
		views.Observer = a.metrics
	}

	a.trucks = handlers.NewTruckHandler(truckSvc, views)
	a.inquiries = handlers.NewInquiryHandler(services.NewInquiryService(d.DB, truckSvc))
	a.financing = handlers.NewFinancingHandler(services.NewFinancingService(d.DB, truckSvc))
	a.analytics = handlers.NewAnalyticsHandler(services.NewAnalyticsService(d.DB), services.NewStatsService(d.DB))
	a.upload = handlers.NewUploadHandler(d.Store)
	users := services.NewUserService(d.DB)
	if d.Auth.Users == nil {
		d.Auth.Users = users
	}
	a.login = handlers.NewAuthHandler(users, d.Auth)

	a.setupRoutes(d.Registry)
	return a.handler()
}

func (a *app) admin(fn http.HandlerFunc) http.Handler { return a.auth.RequireAdminFunc(fn) }

func (a *app) setupRoutes(reg *prometheus.Registry) {
	// Health
	a.mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	a.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := a.db.WithContext(r.Context()).Exec("SELECT 1").Error; err != nil {
			httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if a.metrics != nil && reg != nil {
		a.mux.Handle("GET /metrics", metrics.Handler(reg))
	}

	// Public catalog
	a.mux.HandleFunc("GET /api/trucks", a.trucks.List)
	a.mux.HandleFunc("GET /api/trucks/{id}", a.trucks.Get)
	a.mux.Handle("POST /api/inquiries", a.forms.Limit(http.HandlerFunc(a.inquiries.Create)))
	a.mux.Handle("POST /api/financing", a.forms.Limit(http.HandlerFunc(a.financing.Create)))
	a.mux.Handle("GET /uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(a.cfg.Storage.UploadDir))))

	// Auth
	a.mux.Handle("POST /api/auth/login", a.logins.Limit(http.HandlerFunc(a.login.Login)))
	a.mux.HandleFunc("POST /api/auth/logout", a.login.Logout)
	a.mux.Handle("GET /api/auth/me", a.admin(a.login.Me))

	// Inventory admin
	a.mux.Handle("POST /api/trucks", a.admin(a.trucks.Create))
	a.mux.Handle("PUT /api/trucks/{id}", a.admin(a.trucks.Update))
	a.mux.Handle("PATCH /api/trucks/{id}", a.admin(a.trucks.Patch))
	a.mux.Handle("DELETE /api/trucks/{id}", a.admin(a.trucks.Delete))
	a.mux.Handle("POST /api/upload", a.admin(a.upload.Upload))

	// Back office
	a.mux.Handle("GET /api/inquiries", a.admin(a.inquiries.List))
	a.mux.Handle("GET /api/inquiries/{id}", a.admin(a.inquiries.Get))
	a.mux.Handle("PATCH /api/inquiries/{id}", a.admin(a.inquiries.UpdateStatus))
	a.mux.Handle("DELETE /api/inquiries/{id}", a.admin(a.inquiries.Delete))

	a.mux.Handle("GET /api/financing", a.admin(a.financing.List))
	a.mux.Handle("GET /api/financing/{id}", a.admin(a.financing.Get))
	a.mux.Handle("PATCH /api/financing/{id}", a.admin(a.financing.Update))
	a.mux.Handle("DELETE /api/financing/{id}", a.admin(a.financing.Delete))

	a.mux.Handle("GET /api/analytics", a.admin(a.analytics.Report))
	a.mux.Handle("GET /api/admin/stats", a.admin(a.analytics.Dashboard))
}

// handler applies the global middleware. Metrics sit outermost so the matched
// route pattern set by the mux is visible after the call returns.
func (a *app) handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   a.cfg.Server.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           600,
	})
	var h http.Handler = middleware.Visitor(a.mux)
	h = c.Handler(h)
	h = middleware.Recover(h)
	h = middleware.Logger(h)
	return a.metrics.Middleware(h)
}
