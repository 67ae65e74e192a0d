// Package handlers implements the HTML pages and form actions of the blog.
// Every handler is a closure over *Env, registered by the routes package.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/csrf"
	"yatube.dev/yatube/models"
	"yatube.dev/yatube/services"
)

const (
	SessionCookie = "session"
	CSRFCookie    = "_gorilla_csrf"
)

// Env holds the collaborators shared by all handlers.
type Env struct {
	Blog          *services.Blog
	Auth          *services.Auth
	Cache         services.PageCache
	Images        services.ImageStorage
	Views         *Renderer
	IndexCacheTTL time.Duration
	SessionTTL    time.Duration
	SecureCookies bool
	// CSRFKey is the 32-byte key the form token cookie is signed with.
	CSRFKey []byte
	// Health reports whether backing services are reachable; nil means
	// always healthy.
	Health func(ctx context.Context) error
}

func (env *Env) layout(r *http.Request, title string) Layout {
	return Layout{
		Viewer:    CurrentUser(r),
		Title:     title,
		CSRFField: csrf.TemplateField(r),
		CSRFToken: csrf.Token(r),
	}
}

func (env *Env) setSession(w http.ResponseWriter, u *models.User) error {
	token, err := env.Auth.IssueToken(u)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(env.SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   env.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (env *Env) clearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   env.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}
