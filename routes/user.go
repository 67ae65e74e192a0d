package routes

import (
	"github.com/gorilla/mux"
	"yatube.dev/yatube/handlers"
)

func CreateUserRoutes(env *handlers.Env, router *mux.Router) *mux.Router {
	router.HandleFunc("/profile/{username}/", handlers.Profile(env)).Methods("GET")
	router.HandleFunc("/profile/{username}/follow/", handlers.LoginRequired(handlers.ProfileFollow(env))).Methods("POST")
	router.HandleFunc("/profile/{username}/unfollow/", handlers.LoginRequired(handlers.ProfileUnfollow(env))).Methods("POST")
	router.HandleFunc("/follow/", handlers.LoginRequired(handlers.FollowIndex(env))).Methods("GET")
	router.HandleFunc("/devices/", handlers.LoginRequired(handlers.RegisterDevice(env))).Methods("POST")

	return router
}
