package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimid "github.com/go-chi/chi/v5/middleware"

	"github.com/indexer-coordinator/engine/internal/api/handlers"
	mw "github.com/indexer-coordinator/engine/internal/api/middleware"
)

type Dependencies struct {
	HMACSecret      []byte
	AllowedOrigins  []string
	Limiter         *mw.IPLimiter
	HealthHandler   *handlers.HealthHandler
	ProjectsHandler *handlers.ProjectsHandler
	PaygHandler     *handlers.PaygHandler
}

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()

	// Built-in middleware
	r.Use(mw.RequestID)
	r.Use(mw.Recovery)
	r.Use(mw.Logging)
	r.Use(mw.CORS(dep.AllowedOrigins...))
	if dep.Limiter != nil {
		r.Use(dep.Limiter.Middleware)
	}
	r.Use(chimid.Compress(5))

	// Health endpoints
	hh := dep.HealthHandler
	if hh == nil {
		hh = handlers.NewHealthHandler(nil)
	}
	r.Get("/healthz", hh.Liveness)
	r.Get("/readyz", hh.Readiness)

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(mw.Auth(dep.HMACSecret))

		api.Route("/projects", func(pr chi.Router) {
			pr.Get("/", dep.ProjectsHandler.List)
			pr.Post("/", dep.ProjectsHandler.Create)
			pr.Route("/{id}", func(one chi.Router) {
				one.Get("/", dep.ProjectsHandler.Get)
				one.Delete("/", dep.ProjectsHandler.Delete)
				one.Put("/status", dep.ProjectsHandler.UpdateStatus)
				one.Put("/config", dep.ProjectsHandler.UpdateConfig)
				one.Put("/project-config", dep.ProjectsHandler.UpdateProjectConfig)
				one.Get("/logs", dep.ProjectsHandler.Logs)
				one.Get("/payg", dep.PaygHandler.Get)
				one.Put("/payg", dep.PaygHandler.Update)
			})
		})

		api.Get("/defaults/{projectType}", dep.ProjectsHandler.Defaults)
	})

	return r
}
