package handlers

import (
	"errors"
	"net/http"

	"yatube.dev/yatube/services"
)

// AddComment is open to every signed-in user, not only the post author.
func AddComment(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := intVar(r, "id")
		if !ok {
			notFound(env, w, r)
			return
		}
		text := r.FormValue("text")
		_, err := env.Blog.AddComment(r.Context(), id, CurrentUser(r), text)
		if err != nil {
			if ve, ok := services.IsValidation(err); ok {
				renderPostDetail(env, w, r, id, http.StatusBadRequest, text, ve.Message)
				return
			}
			failed(env, w, r, "AddComment", err)
			return
		}
		http.Redirect(w, r, postURL(id), http.StatusFound)
	}
}

func DeleteComment(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := intVar(r, "id")
		if !ok {
			notFound(env, w, r)
			return
		}
		postID, err := env.Blog.DeleteComment(r.Context(), id, CurrentUser(r))
		if err != nil && !errors.Is(err, services.ErrPermission) {
			failed(env, w, r, "DeleteComment", err)
			return
		}
		http.Redirect(w, r, postURL(postID), http.StatusFound)
	}
}
