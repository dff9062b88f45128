package controller

import (
	"fmt"
	"net/http"
	"time"

	"github.com/happyplace/dashboard/audit"
	h "github.com/happyplace/dashboard/helpers"
	"github.com/happyplace/dashboard/models"
)

// OpenHouseController is a web controller
type OpenHouseController struct{}

// OpenHouseHandler is a web handler
func OpenHouseHandler(w http.ResponseWriter, r *http.Request) {
	c, status, err := models.MakeContext(r, w)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	ctl := OpenHouseController{}

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

func loadOpenHouse(
	c *models.Context,
	allowed func(models.PermissionType) bool,
) (
	models.OpenHouseType,
	models.AuthContext,
	bool,
) {
	id, ok := routeID(c, "open_house_id")
	if !ok {
		return models.OpenHouseType{}, models.AuthContext{}, false
	}

	m, status, err := models.GetOpenHouse(id)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return models.OpenHouseType{}, models.AuthContext{}, false
	}

	ac := c.AuthContext(h.ItemTypes[h.ItemTypeOpenHouse], m.ID).WithOwner(m.AgentID)
	perms := models.GetPermission(ac)
	if !allowed(perms) {
		c.RespondWithErrorMessage(h.NoAuthMessage, http.StatusForbidden)
		return models.OpenHouseType{}, models.AuthContext{}, false
	}
	m.Meta.Permissions = perms

	return m, ac, true
}

// Read handles GET
func (ctl *OpenHouseController) Read(c *models.Context) {
	m, _, ok := loadOpenHouse(c, func(p models.PermissionType) bool { return p.CanRead })
	if !ok {
		return
	}

	c.RespondWithData(m)
}

// Update handles PUT
func (ctl *OpenHouseController) Update(c *models.Context) {
	m, ac, ok := loadOpenHouse(c, func(p models.PermissionType) bool { return p.CanUpdate })
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
	if !models.HasCapability(ac.Role, models.CapEditOthersListings) {
		m.AgentID = owner
	}

	status, err := m.Update(ac)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	audit.Replace(
		h.ItemTypes[h.ItemTypeOpenHouse],
		m.ID,
		c.Auth.UserID,
		time.Now(),
		c.IP,
	)

	c.RespondWithSeeOther(fmt.Sprintf("%s/%d", h.APITypeOpenHouse, m.ID))
}

// Patch handles PATCH of the status
func (ctl *OpenHouseController) Patch(c *models.Context) {
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

	m, ac, ok := loadOpenHouse(c, func(p models.PermissionType) bool { return p.CanUpdate })
	if !ok {
		return
	}

	status, err = m.Patch(ac, patches)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	audit.Update(
		h.ItemTypes[h.ItemTypeOpenHouse],
		m.ID,
		c.Auth.UserID,
		time.Now(),
		c.IP,
	)

	c.RespondWithOK()
}

// Delete handles DELETE
func (ctl *OpenHouseController) Delete(c *models.Context) {
	m, ac, ok := loadOpenHouse(c, func(p models.PermissionType) bool { return p.CanDelete })
	if !ok {
		return
	}

	status, err := m.Delete(ac)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	audit.Delete(
		h.ItemTypes[h.ItemTypeOpenHouse],
		m.ID,
		c.Auth.UserID,
		time.Now(),
		c.IP,
	)

	c.RespondWithOK()
}
