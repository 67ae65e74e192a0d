// Package metrics holds the Prometheus collectors shared by the service and
// HTTP layers.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PostsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "yatube_posts_created_total",
		Help: "Posts published.",
	})
	CommentsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "yatube_comments_created_total",
		Help: "Comments added to posts.",
	})
	Follows = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "yatube_follow_changes_total",
		Help: "Follow edges created or removed.",
	}, []string{"action"})
	PageCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "yatube_page_cache_requests_total",
		Help: "Page cache lookups by result.",
	}, []string{"result"})
	Notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "yatube_push_notifications_total",
		Help: "Push notifications by outcome.",
	}, []string{"outcome"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "yatube_http_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware records request latency labelled with the matched mux route
// template, so /posts/1/ and /posts/2/ share a series.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if cur := mux.CurrentRoute(r); cur != nil {
			if tmpl, err := cur.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}
		requestDuration.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).
			Observe(time.Since(start).Seconds())
	})
}
