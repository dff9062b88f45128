package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Cache counters are labelled by the level that answered
var (
	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "happyplace_cache_hits_total",
		Help: "Cache lookups answered without rebuilding, by level (memo, object).",
	}, []string{"level"})

	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "happyplace_cache_misses_total",
		Help: "Cache lookups that had to rebuild the value.",
	})

	CacheGroupFlushes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "happyplace_cache_group_flushes_total",
		Help: "Cache group invalidations, by group.",
	}, []string{"group"})
)

// AjaxActions counts dispatched AJAX actions by action and outcome
var AjaxActions = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "happyplace_ajax_actions_total",
	Help: "AJAX actions dispatched, by action and outcome.",
}, []string{"action", "outcome"})

// Self-test gauges are labelled by suite and check name
var (
	SelfTestDuration = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "happyplace_selftest_duration_seconds",
		Help: "Duration of the last run of each self-test check.",
	}, []string{"suite", "check"})

	SelfTestPassed = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "happyplace_selftest_passed",
		Help: "1 if the last run of the self-test check passed, else 0.",
	}, []string{"suite", "check"})
)

// EmailsSent counts outbound emails by kind and outcome
var EmailsSent = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "happyplace_emails_sent_total",
	Help: "Emails handed to the delivery provider, by kind and outcome.",
}, []string{"kind", "outcome"})

// RequestDuration observes API latency by route pattern and method
var RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "happyplace_http_request_duration_seconds",
	Help:    "Time taken to answer API requests, by route and method.",
	Buckets: prometheus.DefBuckets,
}, []string{"route", "method"})
