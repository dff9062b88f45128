package controller

import (
	"fmt"
	"net/http"
	"time"

	"github.com/happyplace/dashboard/audit"
	h "github.com/happyplace/dashboard/helpers"
	"github.com/happyplace/dashboard/models"
)

// ListingController is a web controller
type ListingController struct{}

// ListingHandler is a web handler
func ListingHandler(w http.ResponseWriter, r *http.Request) {
	c, status, err := models.MakeContext(r, w)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	ctl := ListingController{}

	switch c.GetHTTPMethod() {
	case "OPTIONS":
		c.RespondWithOptions([]string{"OPTIONS", "HEAD", "GET", "PUT", "PATCH", "DELETE"})
		return
	case "HEAD":
		ctl.Read(c)
	case "GET":
		ctl.Read(c)
	case "PUT":
		ctl.Update(c)
	case "PATCH":
		ctl.Patch(c)
	case "DELETE":
		ctl.Delete(c)
	default:
		c.RespondWithStatus(http.StatusMethodNotAllowed)
		return
	}
}

// Read handles GET
func (ctl *ListingController) Read(c *models.Context) {
	id, ok := routeID(c, "listing_id")
	if !ok {
		return
	}

	m, status, err := models.GetListing(id)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	perms := models.GetPermission(
		c.AuthContext(h.ItemTypes[h.ItemTypeListing], m.ID).WithOwner(m.AgentID),
	)
	if !perms.CanRead {
		c.RespondWithErrorMessage(h.NoAuthMessage, http.StatusForbidden)
		return
	}
	m.Meta.Permissions = perms

	// Views by the listing agent are not counted
	if !perms.IsOwner {
		go models.IncrementListingViews(m.ID)
	}

	c.RespondWithData(m)
}

// Update handles PUT
func (ctl *ListingController) Update(c *models.Context) {
	id, ok := routeID(c, "listing_id")
	if !ok {
		return
	}

	m, status, err := models.GetListing(id)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}
	owner := m.AgentID

	// Start : Authorisation
	ac := c.AuthContext(h.ItemTypes[h.ItemTypeListing], m.ID).WithOwner(owner)
	perms := models.GetPermission(ac)
	if !perms.CanUpdate {
		c.RespondWithErrorMessage(h.NoAuthMessage, http.StatusForbidden)
		return
	}
	// End : Authorisation

	err = c.Fill(&m)
	if err != nil {
		c.RespondWithErrorMessage(
			fmt.Sprintf("The post data is invalid: %v", err.Error()),
			http.StatusBadRequest,
		)
		return
	}
	m.ID = id
	if !models.HasCapability(ac.Role, models.CapEditOthersListings) {
		m.AgentID = owner
	}

	status, err = m.Update(ac)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	audit.Replace(
		h.ItemTypes[h.ItemTypeListing],
		m.ID,
		c.Auth.UserID,
		time.Now(),
		c.IP,
	)

	c.RespondWithSeeOther(fmt.Sprintf("%s/%d", h.APITypeListing, m.ID))
}

// Patch handles PATCH
func (ctl *ListingController) Patch(c *models.Context) {
	id, ok := routeID(c, "listing_id")
	if !ok {
		return
	}

	patches := []h.PatchType{}
	err := c.Fill(&patches)
	if err != nil {
		c.RespondWithErrorMessage(
			fmt.Sprintf("The post data is invalid: %v", err.Error()),
			http.StatusBadRequest,
		)
		return
	}

	status, err := h.TestPatch(patches)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	m, status, err := models.GetListing(id)
	if err != nil {
		// A deleted listing may be undeleted by patching its flag
		if status != http.StatusNotFound || !m.Meta.Flags.Deleted {
			c.RespondWithErrorDetail(err, status)
			return
		}
	}

	// Start : Authorisation
	ac := c.AuthContext(h.ItemTypes[h.ItemTypeListing], m.ID).WithOwner(m.AgentID)
	perms := models.GetPermission(ac)
	if !perms.CanUpdate {
		c.RespondWithErrorMessage(h.NoAuthMessage, http.StatusForbidden)
		return
	}
	for _, patch := range patches {
		switch patch.Path {
		case "/meta/flags/deleted":
			if !perms.CanDelete {
				c.RespondWithErrorMessage(h.NoAuthMessage, http.StatusForbidden)
				return
			}
		case "/meta/flags/featured":
			// Featuring is an office decision
			if !models.HasCapability(ac.Role, models.CapEditOthersListings) {
				c.RespondWithErrorMessage(h.NoAuthMessage, http.StatusForbidden)
				return
			}
		}
	}
	// End : Authorisation

	status, err = m.Patch(ac, patches)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	audit.Update(
		h.ItemTypes[h.ItemTypeListing],
		m.ID,
		c.Auth.UserID,
		time.Now(),
		c.IP,
	)

	c.RespondWithOK()
}

// Delete handles DELETE
func (ctl *ListingController) Delete(c *models.Context) {
	id, ok := routeID(c, "listing_id")
	if !ok {
		return
	}

	m, status, err := models.GetListing(id)
	if err != nil {
		if status == http.StatusNotFound {
			c.RespondWithOK()
			return
		}
		c.RespondWithErrorDetail(err, status)
		return
	}

	// Start : Authorisation
	ac := c.AuthContext(h.ItemTypes[h.ItemTypeListing], m.ID).WithOwner(m.AgentID)
	perms := models.GetPermission(ac)
	if !perms.CanDelete {
		c.RespondWithErrorMessage(h.NoAuthMessage, http.StatusForbidden)
		return
	}
	// End : Authorisation

	status, err = m.Delete(ac)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	audit.Delete(
		h.ItemTypes[h.ItemTypeListing],
		m.ID,
		c.Auth.UserID,
		time.Now(),
		c.IP,
	)

	c.RespondWithOK()
}
