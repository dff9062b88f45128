package controller

import (
	"fmt"
	"net/http"
	"time"

	"github.com/happyplace/dashboard/audit"
	h "github.com/happyplace/dashboard/helpers"
	"github.com/happyplace/dashboard/models"
)

// AgentsController is a web controller
type AgentsController struct{}

// AgentsHandler is a web handler
func AgentsHandler(w http.ResponseWriter, r *http.Request) {
	c, status, err := models.MakeContext(r, w)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	ctl := AgentsController{}

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
func (ctl *AgentsController) Create(c *models.Context) {
	ac := c.AuthContext(h.ItemTypes[h.ItemTypeAgent], 0)
	if !models.GetPermission(ac).CanCreate {
		c.RespondWithErrorMessage(h.NoAuthMessage, http.StatusForbidden)
		return
	}

	m := models.AgentType{}
	err := c.Fill(&m)
	if err != nil {
		c.RespondWithErrorMessage(
			fmt.Sprintf("The post data is invalid: %v", err.Error()),
			http.StatusBadRequest,
		)
		return
	}

	status, err := m.Insert(ac)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	audit.Create(
		h.ItemTypes[h.ItemTypeAgent],
		m.ID,
		c.Auth.UserID,
		time.Now(),
		c.IP,
	)

	c.RespondWithSeeOther(fmt.Sprintf("%s/%d", h.APITypeAgent, m.ID))
}

// ReadMany handles GET
func (ctl *AgentsController) ReadMany(c *models.Context) {
	perms := models.GetPermission(c.AuthContext(h.ItemTypes[h.ItemTypeAgent], 0))

	limit, offset, status, err := h.GetLimitAndOffset(c.Request.URL.Query())
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	ems, total, status, err := models.GetAgents(limit, offset)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	thisLink := h.GetLinkToThisPage(*c.Request.URL, offset, limit, total)

	m := models.AgentsType{}
	m.Agents = h.ConstructArray(
		ems,
		h.APITypeAgent,
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
