package handlers

import (
	"errors"
	"net/http"
	"strings"

	"yatube.dev/yatube/services"
)

// safeNext only follows local paths so the login form cannot be used as an
// open redirect.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}

func Signup(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view := AuthFormView{Layout: env.layout(r, "Sign up")}
		if r.Method == http.MethodGet {
			env.Views.Render(w, http.StatusOK, "signup.html", view)
			return
		}

		in := services.SignupInput{
			Username:    r.FormValue("username"),
			Password:    r.FormValue("password"),
			DisplayName: r.FormValue("display_name"),
			Email:       r.FormValue("email"),
		}
		view.Username, view.DisplayName, view.Email = in.Username, in.DisplayName, in.Email

		user, err := env.Auth.Signup(r.Context(), in)
		if ve, ok := services.IsValidation(err); ok {
			view.Errors = map[string]string{ve.Field: ve.Message}
			env.Views.Render(w, http.StatusBadRequest, "signup.html", view)
			return
		}
		if errors.Is(err, services.ErrConflict) {
			view.Error = "A user with that username already exists."
			env.Views.Render(w, http.StatusConflict, "signup.html", view)
			return
		}
		if err != nil {
			serverError(env, w, r, "Signup", err)
			return
		}
		if err := env.setSession(w, user); err != nil {
			serverError(env, w, r, "Signup session", err)
			return
		}
		http.Redirect(w, r, "/", http.StatusFound)
	}
}

func Login(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view := AuthFormView{Layout: env.layout(r, "Log in"), Next: r.FormValue("next")}
		if r.Method == http.MethodGet {
			env.Views.Render(w, http.StatusOK, "login.html", view)
			return
		}

		view.Username = r.FormValue("username")
		user, err := env.Auth.Login(r.Context(), view.Username, r.FormValue("password"))
		if errors.Is(err, services.ErrInvalidCredentials) {
			view.Error = "Please enter a correct username and password."
			env.Views.Render(w, http.StatusBadRequest, "login.html", view)
			return
		}
		if err != nil {
			serverError(env, w, r, "Login", err)
			return
		}
		if err := env.setSession(w, user); err != nil {
			serverError(env, w, r, "Login session", err)
			return
		}
		http.Redirect(w, r, safeNext(view.Next), http.StatusFound)
	}
}

func Logout(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		env.clearSession(w)
		http.Redirect(w, r, "/", http.StatusFound)
	}
}

// DeleteAccount removes the viewer together with everything they wrote.
func DeleteAccount(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := env.Blog.DeleteUser(r.Context(), CurrentUser(r).ID); err != nil {
			serverError(env, w, r, "DeleteAccount", err)
			return
		}
		env.clearSession(w)
		http.Redirect(w, r, "/", http.StatusFound)
	}
}
