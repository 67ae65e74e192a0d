// Package routes maps URLs onto the handlers package.
package routes

import (
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"yatube.dev/yatube/handlers"
	"yatube.dev/yatube/metrics"
)

// NewRouter builds the full application router. Unmatched paths get the
// custom 404 page.
func NewRouter(env *handlers.Env) *mux.Router {
	router := mux.NewRouter()
	protect := handlers.CSRF(env)
	router.Use(metrics.Middleware, protect, handlers.LoadUser(env))

	CreatePostRoutes(env, router)
	CreateUserRoutes(env, router)
	CreateAuthRoutes(env, router)

	router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	router.HandleFunc("/healthz", handlers.Healthz(env)).Methods("GET")

	router.NotFoundHandler = protect(handlers.LoadUser(env)(handlers.NotFound(env)))
	return router
}
