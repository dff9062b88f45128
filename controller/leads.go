package controller

import (
	"fmt"
	"net/http"
	"time"

	"github.com/happyplace/dashboard/audit"
	h "github.com/happyplace/dashboard/helpers"
	"github.com/happyplace/dashboard/models"
)

// LeadsController is a web controller
type LeadsController struct{}

// LeadsHandler is a web handler
func LeadsHandler(w http.ResponseWriter, r *http.Request) {
	c, status, err := models.MakeContext(r, w)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	ctl := LeadsController{}

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

// Create handles POST. Guests submit the public enquiry form, agents enter
// leads by hand.
func (ctl *LeadsController) Create(c *models.Context) {
	m := models.LeadType{}
	err := c.Fill(&m)
	if err != nil {
		c.RespondWithErrorMessage(
			fmt.Sprintf("The post data is invalid: %v", err.Error()),
			http.StatusBadRequest,
		)
		return
	}

	ac := c.AuthContext(h.ItemTypes[h.ItemTypeLead], 0)
	if !models.GetPermission(ac).CanCreate {
		c.RespondWithErrorMessage(h.NoAuthMessage, http.StatusForbidden)
		return
	}

	var status int
	if models.HasCapability(ac.Role, models.CapManageLeads) {
		if m.AgentID == 0 || !models.HasCapability(ac.Role, models.CapViewAllLeads) {
			m.AgentID = c.Auth.AgentID
		}
		if m.Source == "" {
			m.Source = models.LeadSourceManual
		}
		status, err = m.Insert(ac)
	} else {
		// A guest may name the agent only when not asking about a listing
		if m.ListingID > 0 {
			m.AgentID = 0
		}
		m.Source = ""
		status, err = m.Submit(ac)
	}
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	audit.Create(
		h.ItemTypes[h.ItemTypeLead],
		m.ID,
		c.Auth.UserID,
		time.Now(),
		c.IP,
	)

	// The submitter of a public form cannot read the lead back
	if !models.HasCapability(ac.Role, models.CapManageLeads) {
		c.RespondWithStatus(http.StatusCreated)
		return
	}

	c.RespondWithSeeOther(fmt.Sprintf("%s/%d", h.APITypeLead, m.ID))
}

// leadFilter reads the collection filters from the query string, scoped to
// the caller's own leads unless they may see every lead
func leadFilter(c *models.Context) (models.LeadFilter, int, error) {
	query := c.Request.URL.Query()

	filter := models.LeadFilter{}

	var (
		status int
		err    error
	)
	filter.Status, status, err = h.GetStatusFilter(query, models.LeadStatuses)
	if err != nil {
		return filter, status, err
	}
	if source := query.Get("source"); source != "" {
		valid := false
		for _, s := range models.LeadSources {
			valid = valid || s == source
		}
		if !valid {
			return filter, http.StatusBadRequest,
				fmt.Errorf("source (%s) is not one of %v", source, models.LeadSources)
		}
		filter.Source = source
	}
	filter.ListingID, status, err = h.GetInt64Param(query, "listingId")
	if err != nil {
		return filter, status, err
	}
	filter.AgentID, status, err = h.GetInt64Param(query, "agentId")
	if err != nil {
		return filter, status, err
	}

	if !models.HasCapability(c.Auth.Role, models.CapViewAllLeads) {
		filter.AgentID = c.Auth.AgentID
	}

	if query.Get("since") != "" {
		filter.Since, err = time.Parse("2006-01-02", query.Get("since"))
		if err != nil {
			return filter, http.StatusBadRequest,
				fmt.Errorf("since must be a date of the form YYYY-MM-DD")
		}
	}

	return filter, http.StatusOK, nil
}

// ReadMany handles GET
func (ctl *LeadsController) ReadMany(c *models.Context) {
	perms := models.GetPermission(c.AuthContext(h.ItemTypes[h.ItemTypeLead], 0))
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

	filter, status, err := leadFilter(c)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	ems, total, status, err := models.GetLeads(filter, limit, offset)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	thisLink := h.GetLinkToThisPage(*c.Request.URL, offset, limit, total)

	m := models.LeadsType{}
	m.Leads = h.ConstructArray(
		ems,
		h.APITypeLead,
		total,
		limit,
		offset,
		c.Request.URL,
	)
	m.Meta.Links = []h.LinkType{
		{Rel: "self", Href: thisLink.String()},
		{Rel: "csv", Href: h.APITypeLead + "/csv"},
	}
	m.Meta.Permissions = perms

	c.RespondWithData(m)
}
