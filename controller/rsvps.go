package controller

import (
	"fmt"
	"net/http"
	"time"

	"github.com/happyplace/dashboard/audit"
	h "github.com/happyplace/dashboard/helpers"
	"github.com/happyplace/dashboard/models"
)

// RSVPsController is a web controller
type RSVPsController struct{}

// RSVPsHandler is a web handler
func RSVPsHandler(w http.ResponseWriter, r *http.Request) {
	c, status, err := models.MakeContext(r, w)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	ctl := RSVPsController{}

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

// Create handles POST, anyone may register for an open house
func (ctl *RSVPsController) Create(c *models.Context) {
	oh, ac, ok := loadOpenHouse(c, func(p models.PermissionType) bool { return p.CanRead })
	if !ok {
		return
	}

	m := models.RSVPType{}
	err := c.Fill(&m)
	if err != nil {
		c.RespondWithErrorMessage(
			fmt.Sprintf("The post data is invalid: %v", err.Error()),
			http.StatusBadRequest,
		)
		return
	}

	status, err := oh.RSVP(ac, &m)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	audit.Create(
		h.ItemTypes[h.ItemTypeOpenHouse],
		oh.ID,
		c.Auth.UserID,
		time.Now(),
		c.IP,
	)

	c.RespondWithData(m)
}

// ReadMany handles GET, the guest list is for the host agent
func (ctl *RSVPsController) ReadMany(c *models.Context) {
	oh, _, ok := loadOpenHouse(c, func(p models.PermissionType) bool { return p.CanUpdate })
	if !ok {
		return
	}

	ems, status, err := models.GetRSVPs(oh.ID)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	c.RespondWithData(ems)
}
