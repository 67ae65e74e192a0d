package routes

import (
	"net/http"

	"github.com/gorilla/mux"
	"yatube.dev/yatube/handlers"
	"yatube.dev/yatube/services"
)

func CreatePostRoutes(env *handlers.Env, router *mux.Router) *mux.Router {
	router.HandleFunc("/", handlers.CachePage(env, services.IndexCachePrefix, env.IndexCacheTTL, handlers.Index(env))).Methods("GET")
	router.HandleFunc("/group/{slug}/", handlers.GroupPosts(env)).Methods("GET")
	router.HandleFunc("/posts/{id:[0-9]+}/", handlers.PostDetail(env)).Methods("GET")
	router.HandleFunc("/create/", handlers.LoginRequired(handlers.CreatePost(env))).Methods("GET", "POST")
	router.HandleFunc("/posts/{id:[0-9]+}/edit/", handlers.LoginRequired(handlers.EditPost(env))).Methods("GET", "POST")
	router.HandleFunc("/posts/{id:[0-9]+}/delete/", handlers.LoginRequired(handlers.DeletePost(env))).Methods("POST")
	router.HandleFunc("/posts/{id:[0-9]+}/comment/", handlers.LoginRequired(handlers.AddComment(env))).Methods("POST")
	router.HandleFunc("/comments/{id:[0-9]+}/delete/", handlers.LoginRequired(handlers.DeleteComment(env))).Methods("POST")
	router.HandleFunc("/groups/new/", handlers.LoginRequired(handlers.CreateGroup(env))).Methods("GET", "POST")

	if env.Images != nil {
		router.PathPrefix("/media/").Handler(http.StripPrefix("/media/", env.Images.Handler())).Methods("GET", "HEAD")
	}

	return router
}
