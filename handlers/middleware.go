package handlers

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/csrf"
	"github.com/gorilla/mux"
	"yatube.dev/yatube/metrics"
	"yatube.dev/yatube/models"
)

type contextKey int

const userKey contextKey = iota

// CurrentUser returns the signed-in user, or nil for anonymous requests.
func CurrentUser(r *http.Request) *models.User {
	u, _ := r.Context().Value(userKey).(*models.User)
	return u
}

func withUser(r *http.Request, u *models.User) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), userKey, u))
}

// LoadUser resolves the session cookie into the request context. A bad or
// expired token is dropped and the request continues anonymously.
func LoadUser(env *Env) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookie)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}
			u, err := env.Auth.Authenticate(r.Context(), cookie.Value)
			if err != nil {
				env.clearSession(w)
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, withUser(r, u))
		})
	}
}

// LoginURL is where anonymous users are sent, remembering next.
func LoginURL(next string) string {
	return "/auth/login/?next=" + url.QueryEscape(next)
}

// LoginRequired redirects anonymous requests to the login page.
func LoginRequired(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if CurrentUser(r) == nil {
			http.Redirect(w, r, LoginURL(r.URL.RequestURI()), http.StatusFound)
			return
		}
		next(w, r)
	}
}

type responseBuffer struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func newResponseBuffer() *responseBuffer {
	return &responseBuffer{header: make(http.Header), status: http.StatusOK}
}

func (b *responseBuffer) Header() http.Header         { return b.header }
func (b *responseBuffer) Write(p []byte) (int, error) { return b.body.Write(p) }
func (b *responseBuffer) WriteHeader(status int)      { b.status = status }

func (b *responseBuffer) flush(w http.ResponseWriter) {
	for k, v := range b.header {
		w.Header()[k] = v
	}
	w.WriteHeader(b.status)
	w.Write(b.body.Bytes())
}

// CSRF rejects POST requests whose form token does not match the signed
// cookie. Without SecureCookies the site is assumed to run over plain HTTP
// and the Referer check gorilla/csrf applies to HTTPS is skipped.
func CSRF(env *Env) mux.MiddlewareFunc {
	protect := csrf.Protect(env.CSRFKey,
		csrf.Secure(env.SecureCookies),
		csrf.Path("/"),
		csrf.CookieName(CSRFCookie),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.Printf("CSRF error: %s %s: %v", r.Method, r.URL.Path, csrf.FailureReason(r))
			http.Error(w, "Forbidden (CSRF token missing or incorrect.)", http.StatusForbidden)
		})),
	)
	return func(next http.Handler) http.Handler {
		h := protect(next)
		if env.SecureCookies {
			return h
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h.ServeHTTP(w, csrf.PlaintextHTTPRequest(r))
		})
	}
}

// CachePage serves GET responses of next from the page cache. The key is
// prefix, the viewer and the request URI; entries live for ttl or until the
// prefix is cleared.
func CachePage(env *Env, prefix string, ttl time.Duration, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || env.Cache == nil {
			next(w, r)
			return
		}
		viewer := "anon"
		if u := CurrentUser(r); u != nil {
			// Signed-in pages embed a form token bound to the browser's
			// CSRF cookie, so each browser gets its own copy.
			c, err := r.Cookie(CSRFCookie)
			if err != nil {
				next(w, r)
				return
			}
			sum := sha256.Sum256([]byte(c.Value))
			viewer = fmt.Sprintf("u%d-%s", u.ID, hex.EncodeToString(sum[:6]))
		}
		key := prefix + ":" + viewer + ":" + r.URL.RequestURI()

		body, ok, err := env.Cache.Get(r.Context(), key)
		if err != nil {
			metrics.PageCache.WithLabelValues("error").Inc()
			log.Printf("[Cache] get %s error: %v", key, err)
		}
		if ok {
			metrics.PageCache.WithLabelValues("hit").Inc()
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Header().Set("X-Cache", "HIT")
			w.Write(body)
			return
		}
		metrics.PageCache.WithLabelValues("miss").Inc()

		buf := newResponseBuffer()
		next(buf, r)
		if buf.status == http.StatusOK {
			if err := env.Cache.Set(r.Context(), key, buf.body.Bytes(), ttl); err != nil {
				log.Printf("[Cache] set %s error: %v", key, err)
			}
		}
		buf.header.Set("X-Cache", "MISS")
		buf.flush(w)
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (s *statusWriter) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// LogRequests writes one line per request.
func LogRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		log.Printf("%s %s %d %s", r.Method, r.URL.RequestURI(), sw.status, time.Since(start).Round(time.Microsecond))
	})
}
