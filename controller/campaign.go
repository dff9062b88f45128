package controller

import (
	"fmt"
	"net/http"
	"time"

	"github.com/happyplace/dashboard/audit"
	h "github.com/happyplace/dashboard/helpers"
	"github.com/happyplace/dashboard/models"
)

// CampaignController is a web controller
type CampaignController struct{}

// CampaignHandler is a web handler
func CampaignHandler(w http.ResponseWriter, r *http.Request) {
	c, status, err := models.MakeContext(r, w)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	ctl := CampaignController{}

	switch c.GetHTTPMethod() {
	case "OPTIONS":
		c.RespondWithOptions([]string{"OPTIONS", "HEAD", "GET", "PUT", "DELETE"})
		return
	case "HEAD":
		ctl.Read(c)
	case "GET":
		ctl.Read(c)
	case "PUT":
		ctl.Update(c)
	case "DELETE":
		ctl.Delete(c)
	default:
		c.RespondWithStatus(http.StatusMethodNotAllowed)
		return
	}
}

func loadCampaign(
	c *models.Context,
	allowed func(models.PermissionType) bool,
) (
	models.CampaignType,
	models.AuthContext,
	bool,
) {
	id, ok := routeID(c, "campaign_id")
	if !ok {
		return models.CampaignType{}, models.AuthContext{}, false
	}

	m, status, err := models.GetCampaign(id)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return models.CampaignType{}, models.AuthContext{}, false
	}

	ac := c.AuthContext(h.ItemTypes[h.ItemTypeCampaign], m.ID).WithOwner(m.AgentID)
	perms := models.GetPermission(ac)
	if !allowed(perms) {
		c.RespondWithErrorMessage(h.NoAuthMessage, http.StatusForbidden)
		return models.CampaignType{}, models.AuthContext{}, false
	}
	m.Meta.Permissions = perms

	return m, ac, true
}

// Read handles GET
func (ctl *CampaignController) Read(c *models.Context) {
	m, _, ok := loadCampaign(c, func(p models.PermissionType) bool { return p.CanRead })
	if !ok {
		return
	}

	c.RespondWithData(m)
}

// Update handles PUT
func (ctl *CampaignController) Update(c *models.Context) {
	m, ac, ok := loadCampaign(c, func(p models.PermissionType) bool { return p.CanUpdate })
	if !ok {
		return
	}
	id := m.ID
	owner := m.AgentID

	err := c.Fill(&m)
	if err != nil {
		c.RespondWithErrorMessage(
			fmt.Sprintf("The post data is invalid: %v", err.Error()),
			http.StatusBadRequest,
		)
		return
	}
	m.ID = id
	m.AgentID = owner

	status, err := m.Update(ac)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	audit.Replace(
		h.ItemTypes[h.ItemTypeCampaign],
		m.ID,
		c.Auth.UserID,
		time.Now(),
		c.IP,
	)

	c.RespondWithSeeOther(fmt.Sprintf("%s/%d", h.APITypeCampaign, m.ID))
}

// Delete handles DELETE
func (ctl *CampaignController) Delete(c *models.Context) {
	m, ac, ok := loadCampaign(c, func(p models.PermissionType) bool { return p.CanDelete })
	if !ok {
		return
	}

	status, err := m.Delete(ac)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	audit.Delete(
		h.ItemTypes[h.ItemTypeCampaign],
		m.ID,
		c.Auth.UserID,
		time.Now(),
		c.IP,
	)

	c.RespondWithOK()
}

// CampaignSendHandler sends a campaign now
func CampaignSendHandler(w http.ResponseWriter, r *http.Request) {
	c, status, err := models.MakeContext(r, w)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	switch c.GetHTTPMethod() {
	case "OPTIONS":
		c.RespondWithOptions([]string{"OPTIONS", "POST"})
		return
	case "POST":
		m, ac, ok := loadCampaign(c, func(p models.PermissionType) bool { return p.CanUpdate })
		if !ok {
			return
		}
		if !models.HasCapability(ac.Role, models.CapSendCampaigns) {
			c.RespondWithErrorMessage(h.NoAuthMessage, http.StatusForbidden)
			return
		}

		status, err := m.Send(ac)
		if err != nil {
			c.RespondWithErrorDetail(err, status)
			return
		}

		audit.Update(
			h.ItemTypes[h.ItemTypeCampaign],
			m.ID,
			c.Auth.UserID,
			time.Now(),
			c.IP,
		)

		c.RespondWithData(m)
	default:
		c.RespondWithStatus(http.StatusMethodNotAllowed)
		return
	}
}
