package controller

import (
	"fmt"
	"net/http"
	"time"

	h "github.com/happyplace/dashboard/helpers"
	"github.com/happyplace/dashboard/models"
)

// LeadsCSVController is a web controller
type LeadsCSVController struct{}

// LeadsCSVHandler is a web handler
func LeadsCSVHandler(w http.ResponseWriter, r *http.Request) {
	c, status, err := models.MakeContext(r, w)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	ctl := LeadsCSVController{}

	switch c.GetHTTPMethod() {
	case "OPTIONS":
		c.RespondWithOptions([]string{"OPTIONS", "HEAD", "GET"})
		return
	case "HEAD":
		ctl.ReadMany(c)
	case "GET":
		ctl.ReadMany(c)
	default:
		c.RespondWithStatus(http.StatusMethodNotAllowed)
		return
	}
}

// ReadMany handles GET, exporting every lead that matches the filters
func (ctl *LeadsCSVController) ReadMany(c *models.Context) {
	// Start Authorisation
	perms := models.GetPermission(c.AuthContext(h.ItemTypes[h.ItemTypeLead], 0))
	if !perms.CanRead {
		c.RespondWithErrorMessage(h.NoAuthMessage, http.StatusForbidden)
		return
	}
	// End Authorisation

	filter, status, err := leadFilter(c)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	body, status, err := models.GetLeadsCSV(filter)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	c.RespondWithBody(
		body,
		"text/csv; charset=utf-8",
		fmt.Sprintf("leads-%s.csv", time.Now().Format("2006-01-02")),
	)
}
