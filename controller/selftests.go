package controller

import (
	"net/http"
	"time"

	"github.com/happyplace/dashboard/audit"
	h "github.com/happyplace/dashboard/helpers"
	"github.com/happyplace/dashboard/models"
)

// SelfTestsController is a web controller
type SelfTestsController struct{}

// SelfTestsHandler is a web handler
func SelfTestsHandler(w http.ResponseWriter, r *http.Request) {
	c, status, err := models.MakeContext(r, w)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	if !models.HasCapability(c.Auth.Role, models.CapRunDiagnostics) {
		c.RespondWithErrorMessage(h.NoAuthMessage, http.StatusForbidden)
		return
	}

	ctl := SelfTestsController{}

	switch c.GetHTTPMethod() {
	case "OPTIONS":
		c.RespondWithOptions([]string{"OPTIONS", "POST", "HEAD", "GET"})
		return
	case "POST":
		ctl.Create(c)
	case "HEAD":
		ctl.ReadMany(c)
	case "GET":
		ctl.ReadMany(c)
	default:
		c.RespondWithStatus(http.StatusMethodNotAllowed)
		return
	}
}

// Create handles POST, running ?suite= or every suite
func (ctl *SelfTestsController) Create(c *models.Context) {
	runs, status, err := models.RunSelfTests(
		c.Request.Context(),
		c.Request.URL.Query().Get("suite"),
		c.Auth.UserID,
	)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	for _, run := range runs {
		audit.Create(
			h.ItemTypes[h.ItemTypeSelfTest],
			run.ID,
			c.Auth.UserID,
			time.Now(),
			c.IP,
		)
	}

	c.RespondWithData(runs)
}

// ReadMany handles GET, the most recent runs first
func (ctl *SelfTestsController) ReadMany(c *models.Context) {
	limit, _, status, err := h.GetLimitAndOffset(c.Request.URL.Query())
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	runs, status, err := models.GetSelfTestRuns(limit)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	c.RespondWithData(runs)
}
