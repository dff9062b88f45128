package controller

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	h "github.com/happyplace/dashboard/helpers"
	"github.com/happyplace/dashboard/models"
)

var promHandler = promhttp.Handler()

// MetricsHandler exposes the prometheus metrics to local scrapers and to
// those who run diagnostics
func MetricsHandler(w http.ResponseWriter, r *http.Request) {
	c, status, err := models.MakeContext(r, w)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	switch c.GetHTTPMethod() {
	case "OPTIONS":
		c.RespondWithOptions([]string{"OPTIONS", "GET"})
		return
	case "GET":
	default:
		c.RespondWithStatus(http.StatusMethodNotAllowed)
		return
	}

	local := c.IP != nil && c.IP.IsLoopback()
	if !local && !models.HasCapability(c.Auth.Role, models.CapRunDiagnostics) {
		c.RespondWithErrorMessage(h.NoAuthMessage, http.StatusForbidden)
		return
	}

	promHandler.ServeHTTP(w, r)
}
