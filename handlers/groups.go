package handlers

import (
	"errors"
	"net/http"

	"yatube.dev/yatube/services"
)

func CreateGroup(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view := GroupFormView{Layout: env.layout(r, "New group")}
		if r.Method == http.MethodGet {
			env.Views.Render(w, http.StatusOK, "group_form.html", view)
			return
		}

		in := services.GroupInput{
			Title:       r.FormValue("title"),
			Slug:        r.FormValue("slug"),
			Description: r.FormValue("description"),
		}
		view.GroupTitle, view.Slug, view.Description = in.Title, in.Slug, in.Description

		group, err := env.Blog.CreateGroup(r.Context(), in)
		if ve, ok := services.IsValidation(err); ok {
			view.Errors = map[string]string{ve.Field: ve.Message}
			env.Views.Render(w, http.StatusBadRequest, "group_form.html", view)
			return
		}
		if errors.Is(err, services.ErrConflict) {
			view.Errors = map[string]string{"slug": "A group with this slug already exists."}
			env.Views.Render(w, http.StatusConflict, "group_form.html", view)
			return
		}
		if err != nil {
			serverError(env, w, r, "CreateGroup", err)
			return
		}
		http.Redirect(w, r, "/group/"+group.Slug+"/", http.StatusFound)
	}
}
