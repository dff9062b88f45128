package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/golang/glog"
	"github.com/gorilla/mux"
	"github.com/robfig/cron"

	"github.com/happyplace/dashboard/controller"
	"github.com/happyplace/dashboard/metrics"
)

// StartServer owns the http process and cron jobs
func StartServer(port int64) {

	// Set up the cron jobs
	c := cron.New()
	for schedule, job := range cronJobs() {
		err := c.AddFunc(schedule, job)
		if err != nil {
			glog.Fatalf("cron schedule %q: %v", schedule, err)
		}
	}
	c.Start()

	glog.Fatal(http.ListenAndServe(fmt.Sprintf(":%d", port), NewRouter()))
}

// NewRouter registers every handler
func NewRouter() *mux.Router {
	r := mux.NewRouter()

	for url, handler := range handlers {
		r.Handle(url, timed(url, handler))
	}

	r.NotFoundHandler = http.HandlerFunc(controller.NotFoundHandler)

	return r
}

// timed records the time taken to answer requests to a route
func timed(route string, handler func(http.ResponseWriter, *http.Request)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		handler(w, r)
		metrics.RequestDuration.WithLabelValues(route, r.Method).
			Observe(time.Since(start).Seconds())
	})
}
