package controller

import (
	"fmt"
	"net/http"
	"time"

	"github.com/happyplace/dashboard/audit"
	h "github.com/happyplace/dashboard/helpers"
	"github.com/happyplace/dashboard/models"
)

// OpenHousesController is a web controller
type OpenHousesController struct{}

// OpenHousesHandler is a web handler
func OpenHousesHandler(w http.ResponseWriter, r *http.Request) {
	c, status, err := models.MakeContext(r, w)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	ctl := OpenHousesController{}

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

// Create handles POST
func (ctl *OpenHousesController) Create(c *models.Context) {
	m := models.OpenHouseType{}
	err := c.Fill(&m)
	if err != nil {
		c.RespondWithErrorMessage(
			fmt.Sprintf("The post data is invalid: %v", err.Error()),
			http.StatusBadRequest,
		)
		return
	}

	// Start : Authorisation
	ac := c.AuthContext(h.ItemTypes[h.ItemTypeOpenHouse], 0)
	if !models.GetPermission(ac).CanCreate {
		c.RespondWithErrorMessage(h.NoAuthMessage, http.StatusForbidden)
		return
	}
	if m.AgentID == 0 || !models.HasCapability(ac.Role, models.CapEditOthersListings) {
		m.AgentID = c.Auth.AgentID
	}
	// End : Authorisation

	status, err := m.Insert(ac)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	audit.Create(
		h.ItemTypes[h.ItemTypeOpenHouse],
		m.ID,
		c.Auth.UserID,
		time.Now(),
		c.IP,
	)

	c.RespondWithSeeOther(fmt.Sprintf("%s/%d", h.APITypeOpenHouse, m.ID))
}

// ReadMany handles GET
func (ctl *OpenHousesController) ReadMany(c *models.Context) {
	perms := models.GetPermission(c.AuthContext(h.ItemTypes[h.ItemTypeOpenHouse], 0))
	if !perms.CanRead {
		c.RespondWithErrorMessage(h.NoAuthMessage, http.StatusForbidden)
		return
	}

	query := c.Request.URL.Query()

	limit, offset, status, err := h.GetLimitAndOffset(query)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	filter := models.OpenHouseFilter{Upcoming: query.Get("upcoming") == "true"}
	filter.Status, status, err = h.GetStatusFilter(query, models.OpenHouseStatuses)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}
	filter.AgentID, status, err = h.GetInt64Param(query, "agentId")
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}
	filter.ListingID, status, err = h.GetInt64Param(query, "listingId")
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	ems, total, status, err := models.GetOpenHouses(filter, limit, offset)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	thisLink := h.GetLinkToThisPage(*c.Request.URL, offset, limit, total)

	m := models.OpenHousesType{}
	m.OpenHouses = h.ConstructArray(
		ems,
		h.APITypeOpenHouse,
		total,
		limit,
		offset,
		c.Request.URL,
	)
	m.Meta.Links = []h.LinkType{
		{Rel: "self", Href: thisLink.String()},
	}
	m.Meta.Permissions = perms

	c.RespondWithData(m)
}
