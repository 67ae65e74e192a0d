package routes

import (
	"github.com/gorilla/mux"
	"yatube.dev/yatube/handlers"
)

func CreateAuthRoutes(env *handlers.Env, router *mux.Router) *mux.Router {
	router.HandleFunc("/auth/signup/", handlers.Signup(env)).Methods("GET", "POST")
	router.HandleFunc("/auth/login/", handlers.Login(env)).Methods("GET", "POST")
	router.HandleFunc("/auth/logout/", handlers.Logout(env)).Methods("POST")
	router.HandleFunc("/auth/delete/", handlers.LoginRequired(handlers.DeleteAccount(env))).Methods("POST")

	return router
}
