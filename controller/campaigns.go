package controller

import (
	"fmt"
	"net/http"
	"time"

	"github.com/happyplace/dashboard/audit"
	h "github.com/happyplace/dashboard/helpers"
	"github.com/happyplace/dashboard/models"
)

// CampaignsController is a web controller
type CampaignsController struct{}

// CampaignsHandler is a web handler
func CampaignsHandler(w http.ResponseWriter, r *http.Request) {
	c, status, err := models.MakeContext(r, w)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	ctl := CampaignsController{}

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
func (ctl *CampaignsController) Create(c *models.Context) {
	ac := c.AuthContext(h.ItemTypes[h.ItemTypeCampaign], 0)
	if !models.GetPermission(ac).CanCreate {
		c.RespondWithErrorMessage(h.NoAuthMessage, http.StatusForbidden)
		return
	}

	m := models.CampaignType{}
	err := c.Fill(&m)
	if err != nil {
		c.RespondWithErrorMessage(
			fmt.Sprintf("The post data is invalid: %v", err.Error()),
			http.StatusBadRequest,
		)
		return
	}
	m.AgentID = c.Auth.AgentID

	status, err := m.Insert(ac)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	audit.Create(
		h.ItemTypes[h.ItemTypeCampaign],
		m.ID,
		c.Auth.UserID,
		time.Now(),
		c.IP,
	)

	c.RespondWithSeeOther(fmt.Sprintf("%s/%d", h.APITypeCampaign, m.ID))
}

// ReadMany handles GET
func (ctl *CampaignsController) ReadMany(c *models.Context) {
	perms := models.GetPermission(c.AuthContext(h.ItemTypes[h.ItemTypeCampaign], 0))
	if !perms.CanCreate {
		c.RespondWithErrorMessage(h.NoAuthMessage, http.StatusForbidden)
		return
	}

	limit, offset, status, err := h.GetLimitAndOffset(c.Request.URL.Query())
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	// Brokers see the campaigns of the whole office
	agentID := c.Auth.AgentID
	if models.HasCapability(c.Auth.Role, models.CapViewAllLeads) {
		agentID = 0
	}

	ems, total, status, err := models.GetCampaigns(agentID, limit, offset)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	thisLink := h.GetLinkToThisPage(*c.Request.URL, offset, limit, total)

	m := models.CampaignsType{}
	m.Campaigns = h.ConstructArray(
		ems,
		h.APITypeCampaign,
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
