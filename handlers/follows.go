package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"yatube.dev/yatube/services"
)

// FollowIndex lists posts by the authors the viewer follows.
func FollowIndex(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := env.Blog.FeedFor(r.Context(), CurrentUser(r).ID, r.URL.Query().Get("page"))
		if err != nil {
			serverError(env, w, r, "FollowIndex", err)
			return
		}
		env.Views.Render(w, http.StatusOK, "follow.html", PostListView{
			Layout: env.layout(r, "Following"),
			Page:   page,
		})
	}
}

// ProfileFollow subscribes the viewer to the profile's author. Following
// yourself or following twice re-renders the profile with the reason.
func ProfileFollow(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		author, err := env.Blog.GetUser(r.Context(), mux.Vars(r)["username"])
		if err != nil {
			failed(env, w, r, "ProfileFollow", err)
			return
		}
		err = env.Blog.Follow(r.Context(), CurrentUser(r), author)
		if ve, ok := services.IsValidation(err); ok {
			renderProfile(env, w, r, author, http.StatusBadRequest, ve.Message)
			return
		}
		if errors.Is(err, services.ErrConflict) {
			renderProfile(env, w, r, author, http.StatusConflict, "You already follow "+author.Name()+".")
			return
		}
		if err != nil {
			serverError(env, w, r, "ProfileFollow", err)
			return
		}
		http.Redirect(w, r, profileURL(author.Username), http.StatusFound)
	}
}

func ProfileUnfollow(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		author, err := env.Blog.GetUser(r.Context(), mux.Vars(r)["username"])
		if err != nil {
			failed(env, w, r, "ProfileUnfollow", err)
			return
		}
		if err := env.Blog.Unfollow(r.Context(), CurrentUser(r), author); err != nil {
			serverError(env, w, r, "ProfileUnfollow", err)
			return
		}
		http.Redirect(w, r, profileURL(author.Username), http.StatusFound)
	}
}
