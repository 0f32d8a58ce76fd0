// Package metrics declares the Prometheus collectors the application
// exports on /metrics. promauto registers each one with the default
// registry at package init.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal counts handled requests by method, chi route
	// pattern and status code.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "challenge_tracker_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "route", "status"})

	// HTTPRequestDuration records request latency by method and route.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "challenge_tracker_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	// LoginsTotal counts Kakao logins by result (success, failure).
	LoginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "challenge_tracker_logins_total",
		Help: "Total number of Kakao login attempts",
	}, []string{"result"})

	ChallengesCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "challenge_tracker_challenges_created_total",
		Help: "Total number of challenges created through the catalogue",
	})

	// ProgressUpdatesTotal counts accepted progress saves by kind
	// (created, updated).
	ProgressUpdatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "challenge_tracker_progress_updates_total",
		Help: "Total number of saved progress updates",
	}, []string{"kind"})

	// PlaceholdersCreatedTotal counts rows materialised by a progress
	// update, by entity (challenge, user).
	PlaceholdersCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "challenge_tracker_placeholders_created_total",
		Help: "Total number of placeholder rows created on demand",
	}, []string{"entity"})

	// RedisErrorsTotal counts failed Redis commands by command name.
	RedisErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "challenge_tracker_redis_errors_total",
		Help: "Total number of Redis command errors",
	}, []string{"command"})
)
