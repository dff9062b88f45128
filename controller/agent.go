package controller

import (
	"fmt"
	"net/http"
	"time"

	"github.com/happyplace/dashboard/audit"
	h "github.com/happyplace/dashboard/helpers"
	"github.com/happyplace/dashboard/models"
)

// AgentController is a web controller
type AgentController struct{}

// AgentHandler is a web handler
func AgentHandler(w http.ResponseWriter, r *http.Request) {
	c, status, err := models.MakeContext(r, w)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	ctl := AgentController{}

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

// Read handles GET
func (ctl *AgentController) Read(c *models.Context) {
	id, ok := routeID(c, "agent_id")
	if !ok {
		return
	}

	m, status, err := models.GetAgent(id)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}
	m.Meta.Permissions = models.GetPermission(
		c.AuthContext(h.ItemTypes[h.ItemTypeAgent], m.ID).WithOwner(m.ID),
	)

	c.RespondWithData(m)
}

// Update handles PUT, agents may edit their own profile
func (ctl *AgentController) Update(c *models.Context) {
	id, ok := routeID(c, "agent_id")
	if !ok {
		return
	}

	m, status, err := models.GetAgent(id)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	ac := c.AuthContext(h.ItemTypes[h.ItemTypeAgent], m.ID).WithOwner(m.ID)
	if !models.GetPermission(ac).CanUpdate {
		c.RespondWithErrorMessage(h.NoAuthMessage, http.StatusForbidden)
		return
	}
	userID := m.UserID

	err = c.Fill(&m)
	if err != nil {
		c.RespondWithErrorMessage(
			fmt.Sprintf("The post data is invalid: %v", err.Error()),
			http.StatusBadRequest,
		)
		return
	}
	m.ID = id
	// Linking a profile to a login is for those who manage agents
	if !models.HasCapability(ac.Role, models.CapManageAgents) {
		m.UserID = userID
	}

	status, err = m.Update(ac)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	audit.Replace(
		h.ItemTypes[h.ItemTypeAgent],
		m.ID,
		c.Auth.UserID,
		time.Now(),
		c.IP,
	)

	c.RespondWithSeeOther(fmt.Sprintf("%s/%d", h.APITypeAgent, m.ID))
}

// Delete handles DELETE
func (ctl *AgentController) Delete(c *models.Context) {
	id, ok := routeID(c, "agent_id")
	if !ok {
		return
	}

	ac := c.AuthContext(h.ItemTypes[h.ItemTypeAgent], id).WithOwner(id)
	if !models.GetPermission(ac).CanDelete {
		c.RespondWithErrorMessage(h.NoAuthMessage, http.StatusForbidden)
		return
	}

	m, status, err := models.GetAgent(id)
	if err != nil {
		if status == http.StatusNotFound {
			c.RespondWithOK()
			return
		}
		c.RespondWithErrorDetail(err, status)
		return
	}

	status, err = m.Delete(ac)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	audit.Delete(
		h.ItemTypes[h.ItemTypeAgent],
		m.ID,
		c.Auth.UserID,
		time.Now(),
		c.IP,
	)

	c.RespondWithOK()
}
