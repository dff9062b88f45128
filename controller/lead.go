package controller

import (
	"fmt"
	"net/http"
	"time"

	"github.com/happyplace/dashboard/audit"
	h "github.com/happyplace/dashboard/helpers"
	"github.com/happyplace/dashboard/models"
)

// LeadController is a web controller
type LeadController struct{}

// LeadHandler is a web handler
func LeadHandler(w http.ResponseWriter, r *http.Request) {
	c, status, err := models.MakeContext(r, w)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	ctl := LeadController{}

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

// loadLead fetches the lead named by the route and checks the caller may
// act on it
func loadLead(
	c *models.Context,
	allowed func(models.PermissionType) bool,
) (
	models.LeadType,
	models.AuthContext,
	bool,
) {
	id, ok := routeID(c, "lead_id")
	if !ok {
		return models.LeadType{}, models.AuthContext{}, false
	}

	m, status, err := models.GetLead(id)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return models.LeadType{}, models.AuthContext{}, false
	}

	ac := c.AuthContext(h.ItemTypes[h.ItemTypeLead], m.ID).WithOwner(m.AgentID)
	perms := models.GetPermission(ac)
	if !allowed(perms) {
		c.RespondWithErrorMessage(h.NoAuthMessage, http.StatusForbidden)
		return models.LeadType{}, models.AuthContext{}, false
	}
	m.Meta.Permissions = perms

	return m, ac, true
}

// Read handles GET
func (ctl *LeadController) Read(c *models.Context) {
	m, _, ok := loadLead(c, func(p models.PermissionType) bool { return p.CanRead })
	if !ok {
		return
	}

	c.RespondWithData(m)
}

// Update handles PUT
func (ctl *LeadController) Update(c *models.Context) {
	m, ac, ok := loadLead(c, func(p models.PermissionType) bool { return p.CanUpdate })
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
	if !models.HasCapability(ac.Role, models.CapViewAllLeads) {
		m.AgentID = owner
	}

	status, err := m.Update(ac)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	audit.Replace(
		h.ItemTypes[h.ItemTypeLead],
		m.ID,
		c.Auth.UserID,
		time.Now(),
		c.IP,
	)

	c.RespondWithSeeOther(fmt.Sprintf("%s/%d", h.APITypeLead, m.ID))
}

// Patch handles PATCH, which moves a lead through the pipeline
func (ctl *LeadController) Patch(c *models.Context) {
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

	m, ac, ok := loadLead(c, func(p models.PermissionType) bool { return p.CanUpdate })
	if !ok {
		return
	}

	status, err = m.Patch(ac, patches)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	audit.Update(
		h.ItemTypes[h.ItemTypeLead],
		m.ID,
		c.Auth.UserID,
		time.Now(),
		c.IP,
	)

	c.RespondWithOK()
}

// Delete handles DELETE
func (ctl *LeadController) Delete(c *models.Context) {
	m, ac, ok := loadLead(c, func(p models.PermissionType) bool { return p.CanDelete })
	if !ok {
		return
	}

	status, err := m.Delete(ac)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	audit.Delete(
		h.ItemTypes[h.ItemTypeLead],
		m.ID,
		c.Auth.UserID,
		time.Now(),
		c.IP,
	)

	c.RespondWithOK()
}

// LeadNotesHandler is a web handler for the private notes of a lead
func LeadNotesHandler(w http.ResponseWriter, r *http.Request) {
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
		m, ac, ok := loadLead(c, func(p models.PermissionType) bool { return p.CanUpdate })
		if !ok {
			return
		}

		note := struct {
			Note string `json:"note"`
		}{}
		err = c.Fill(&note)
		if err != nil {
			c.RespondWithErrorMessage(
				fmt.Sprintf("The post data is invalid: %v", err.Error()),
				http.StatusBadRequest,
			)
			return
		}

		n, status, err := m.AddNote(ac, note.Note)
		if err != nil {
			c.RespondWithErrorDetail(err, status)
			return
		}

		audit.Update(
			h.ItemTypes[h.ItemTypeLead],
			m.ID,
			c.Auth.UserID,
			time.Now(),
			c.IP,
		)

		c.RespondWithData(n)
	default:
		c.RespondWithStatus(http.StatusMethodNotAllowed)
		return
	}
}
