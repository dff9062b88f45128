package controller

import (
	"fmt"
	"net/http"
	"time"

	"github.com/happyplace/dashboard/audit"
	h "github.com/happyplace/dashboard/helpers"
	"github.com/happyplace/dashboard/models"
)

// ListingsController is a web controller
type ListingsController struct{}

// ListingsHandler is a web handler
func ListingsHandler(w http.ResponseWriter, r *http.Request) {
	c, status, err := models.MakeContext(r, w)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	ctl := ListingsController{}

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
func (ctl *ListingsController) Create(c *models.Context) {
	m := models.ListingType{}
	err := c.Fill(&m)
	if err != nil {
		c.RespondWithErrorMessage(
			fmt.Sprintf("The post data is invalid: %v", err.Error()),
			http.StatusBadRequest,
		)
		return
	}

	// Start : Authorisation
	ac := c.AuthContext(h.ItemTypes[h.ItemTypeListing], 0)
	perms := models.GetPermission(ac)
	if !perms.CanCreate {
		c.RespondWithErrorMessage(h.NoAuthMessage, http.StatusForbidden)
		return
	}
	// Only those who may edit others' listings may list for another agent
	if m.AgentID == 0 || !models.HasCapability(c.Auth.Role, models.CapEditOthersListings) {
		m.AgentID = c.Auth.AgentID
	}
	// End : Authorisation

	status, err := m.Insert(ac)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	audit.Create(
		h.ItemTypes[h.ItemTypeListing],
		m.ID,
		c.Auth.UserID,
		time.Now(),
		c.IP,
	)

	c.RespondWithSeeOther(fmt.Sprintf("%s/%d", h.APITypeListing, m.ID))
}

// ReadMany handles GET
func (ctl *ListingsController) ReadMany(c *models.Context) {
	perms := models.GetPermission(c.AuthContext(h.ItemTypes[h.ItemTypeListing], 0))
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

	filter := models.ListingFilter{City: query.Get("city")}

	filter.Status, status, err = h.GetStatusFilter(query, models.ListingStatuses)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}
	filter.AgentID, status, err = h.GetInt64Param(query, "agentId")
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}
	filter.MinPrice, status, err = h.GetInt64Param(query, "minPrice")
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}
	filter.MaxPrice, status, err = h.GetInt64Param(query, "maxPrice")
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	ems, total, status, err := models.GetListings(filter, limit, offset)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	thisLink := h.GetLinkToThisPage(*c.Request.URL, offset, limit, total)

	m := models.ListingsType{}
	m.Listings = h.ConstructArray(
		ems,
		h.APITypeListing,
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
