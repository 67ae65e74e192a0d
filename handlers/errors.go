package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"yatube.dev/yatube/services"
)

// NotFound renders the custom 404 page.
func NotFound(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		notFound(env, w, r)
	}
}

func notFound(env *Env, w http.ResponseWriter, r *http.Request) {
	env.Views.Render(w, http.StatusNotFound, "404.html", ErrorView{
		Layout: env.layout(r, "Page not found"),
		Path:   r.URL.Path,
	})
}

func logError(where string, err error) {
	log.Printf("%s error: %v", where, err)
}

func serverError(env *Env, w http.ResponseWriter, r *http.Request, where string, err error) {
	logError(where, err)
	env.Views.Render(w, http.StatusInternalServerError, "500.html", ErrorView{
		Layout: env.layout(r, "Server error"),
		Path:   r.URL.Path,
	})
}

// failed handles the errors every page treats alike: unknown objects get
// the 404 page, anything else is logged as a 500.
func failed(env *Env, w http.ResponseWriter, r *http.Request, where string, err error) {
	if errors.Is(err, services.ErrNotFound) {
		notFound(env, w, r)
		return
	}
	serverError(env, w, r, where, err)
}

func intVar(r *http.Request, name string) (int, bool) {
	id, err := strconv.Atoi(mux.Vars(r)[name])
	return id, err == nil
}

func postURL(id int) string {
	return "/posts/" + strconv.Itoa(id) + "/"
}

func profileURL(username string) string {
	return "/profile/" + username + "/"
}
