// Package api assembles the control-plane REST surface: target and TPG
// lifecycle management (add_target/del_target, add_tpg/enable_tpg/
// del_tpg, add_portal/del_portal, set_tpg_param, set_node_acl,
// force_channel_offline) plus the read-only session/connection queries,
// wired through chi with bearer-token auth.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/marmos91/iscsitgt/internal/controlplane/api/auth"
	"github.com/marmos91/iscsitgt/internal/controlplane/api/handlers"
	apiMiddleware "github.com/marmos91/iscsitgt/internal/controlplane/api/middleware"
	"github.com/marmos91/iscsitgt/internal/controlplane/audit"
	"github.com/marmos91/iscsitgt/internal/controlplane/store"
	"github.com/marmos91/iscsitgt/internal/logger"
	"github.com/marmos91/iscsitgt/internal/target/portal"
	"github.com/marmos91/iscsitgt/internal/target/session"
)

// Deps bundles everything NewRouter needs to wire the control-plane API.
type Deps struct {
	Store         store.Store
	Targets       *portal.Registry
	Sessions      *session.Registry
	Audit         *audit.Log
	JWTService    *auth.JWTService
	AdminUsername string
	AdminPassHash string
}

// NewRouter creates and configures the chi router with all middleware and routes.
//
// Routes:
//   - GET  /health, /health/ready, /health/stores        - unauthenticated probes
//   - POST /api/v1/auth/login, /auth/refresh             - unauthenticated
//   - GET  /api/v1/auth/me                                - authenticated
//   - /api/v1/targets/*, /api/v1/tpgs/*                   - admin only (mutating)
//   - GET  /api/v1/sessions, /connections/stats           - any authenticated operator
//   - POST /api/v1/sessions/{key}/offline                 - admin only
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	healthHandler := handlers.NewHealthHandler(deps.Targets, deps.Sessions, deps.Store)
	r.Route("/health", func(r chi.Router) {
		r.Get("/", healthHandler.Liveness)
		r.Get("/ready", healthHandler.Readiness)
		r.Get("/stores", healthHandler.Stores)
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/health", http.StatusTemporaryRedirect)
	})

	authHandler := handlers.NewAuthHandler(deps.AdminUsername, deps.AdminPassHash, deps.JWTService)
	targetHandler := handlers.NewTargetHandler(deps.Store)
	tpgHandler := handlers.NewTPGHandler(deps.Store)
	portalHandler := handlers.NewPortalHandler(deps.Store)
	nodeACLHandler := handlers.NewNodeACLHandler(deps.Store)
	tpgParamHandler := handlers.NewTPGParamHandler(deps.Store)
	sessionHandler := handlers.NewSessionHandler(deps.Sessions, deps.Audit)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)

			r.Group(func(r chi.Router) {
				r.Use(apiMiddleware.JWTAuth(deps.JWTService))
				r.Get("/me", authHandler.Me)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(apiMiddleware.JWTAuth(deps.JWTService))

			// Read-only queries: any authenticated operator.
			r.Route("/sessions", func(r chi.Router) {
				r.Get("/", sessionHandler.List)
				r.Get("/stats", sessionHandler.Stats)
				r.Get("/{key}/history", sessionHandler.History)

				r.Group(func(r chi.Router) {
					r.Use(apiMiddleware.RequireAdmin())
					r.Post("/{key}/offline", sessionHandler.ForceOffline)
				})
			})
			r.Get("/connections/stats", sessionHandler.ConnectionStats)

			// Mutating configuration: admin only.
			r.Group(func(r chi.Router) {
				r.Use(apiMiddleware.RequireAdmin())

				r.Route("/targets", func(r chi.Router) {
					r.Post("/", targetHandler.Create)
					r.Get("/", targetHandler.List)

					r.Route("/{iqn}", func(r chi.Router) {
						r.Get("/", targetHandler.Get)
						r.Delete("/", targetHandler.Delete)

						r.Route("/tpgs", func(r chi.Router) {
							r.Post("/", tpgHandler.Create)
							r.Get("/", tpgHandler.List)
						})
					})
				})

				r.Route("/tpgs/{id}", func(r chi.Router) {
					r.Put("/enable", tpgHandler.Enable)
					r.Delete("/", tpgHandler.Delete)

					r.Route("/portals", func(r chi.Router) {
						r.Post("/", portalHandler.Create)
						r.Get("/", portalHandler.List)
						r.Delete("/", portalHandler.Delete)
					})

					r.Route("/node-acls", func(r chi.Router) {
						r.Put("/", nodeACLHandler.Set)
						r.Get("/", nodeACLHandler.List)
						r.Delete("/", nodeACLHandler.Delete)
					})

					r.Route("/params", func(r chi.Router) {
						r.Put("/", tpgParamHandler.Set)
						r.Get("/", tpgParamHandler.List)
					})
				})
			})
		})
	})

	return r
}

// requestLogger logs each request at Debug level with method, path,
// status, duration and request ID.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		defer func() {
			logger.DebugCtx(r.Context(), "http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start).String(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
