package handlers

import "net/http"

// Healthz answers 200 while the backing services respond.
func Healthz(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if env.Health != nil {
			if err := env.Health(r.Context()); err != nil {
				logError("Healthz", err)
				http.Error(w, "unhealthy", http.StatusServiceUnavailable)
				return
			}
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok"))
	}
}
