package controller

import (
	"net/http"
	"runtime"

	"github.com/happyplace/dashboard/models"
)

var (
	// BuildVersion and BuildDate are set via ldflags during build
	BuildVersion = "development"
	BuildDate    = "unknown"
)

// VersionHandler returns build information
func VersionHandler(w http.ResponseWriter, r *http.Request) {
	c := models.MakeEmptyContext(r, w)

	switch c.GetHTTPMethod() {
	case "OPTIONS":
		c.RespondWithOptions([]string{"OPTIONS", "GET"})
		return
	case "GET":
		c.RespondWithData(map[string]string{
			"version": BuildVersion,
			"date":    BuildDate,
			"go":      runtime.Version(),
		})
		return
	default:
		c.RespondWithStatus(http.StatusMethodNotAllowed)
		return
	}
}
