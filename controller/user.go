package controller

import (
	"fmt"
	"net/http"
	"time"

	"github.com/happyplace/dashboard/audit"
	h "github.com/happyplace/dashboard/helpers"
	"github.com/happyplace/dashboard/models"
)

// UserController is a web controller
type UserController struct{}

// UserHandler is a web handler
func UserHandler(w http.ResponseWriter, r *http.Request) {
	c, status, err := models.MakeContext(r, w)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	ctl := UserController{}

	switch c.GetHTTPMethod() {
	case "OPTIONS":
		c.RespondWithOptions([]string{"OPTIONS", "HEAD", "GET", "PUT"})
		return
	case "HEAD":
		ctl.Read(c)
	case "GET":
		ctl.Read(c)
	case "PUT":
		ctl.Update(c)
	default:
		c.RespondWithStatus(http.StatusMethodNotAllowed)
		return
	}
}

// Read handles GET
func (ctl *UserController) Read(c *models.Context) {
	id, ok := routeID(c, "user_id")
	if !ok {
		return
	}

	perms := models.GetPermission(c.AuthContext(h.ItemTypes[h.ItemTypeUser], id))
	if !perms.CanRead {
		c.RespondWithErrorMessage(h.NoAuthMessage, http.StatusForbidden)
		return
	}

	m, status, err := models.GetUser(id)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	c.RespondWithData(m)
}

// Update handles PUT. A change of role takes effect at once as the user's
// access tokens are revoked.
func (ctl *UserController) Update(c *models.Context) {
	id, ok := routeID(c, "user_id")
	if !ok {
		return
	}

	ac := c.AuthContext(h.ItemTypes[h.ItemTypeUser], id)
	if !models.GetPermission(ac).CanUpdate {
		c.RespondWithErrorMessage(h.NoAuthMessage, http.StatusForbidden)
		return
	}

	m, status, err := models.GetUser(id)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}
	email := m.Email
	current := m.Role

	err = c.Fill(&m)
	if err != nil {
		c.RespondWithErrorMessage(
			fmt.Sprintf("The post data is invalid: %v", err.Error()),
			http.StatusBadRequest,
		)
		return
	}
	m.ID = id
	m.Email = email

	if !mayGrantRole(c, m.Role) || !mayGrantRole(c, current) {
		c.RespondWithErrorMessage(h.NoAuthMessage, http.StatusForbidden)
		return
	}
	if id == c.Auth.UserID && m.Role != current {
		c.RespondWithErrorMessage("You cannot change your own role", http.StatusBadRequest)
		return
	}

	status, err = m.Update(ac)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	audit.Replace(
		h.ItemTypes[h.ItemTypeUser],
		m.ID,
		c.Auth.UserID,
		time.Now(),
		c.IP,
	)

	c.RespondWithSeeOther(fmt.Sprintf("%s/%d", h.APITypeUser, m.ID))
}
