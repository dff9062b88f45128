package controller

import (
	"net/http"

	h "github.com/happyplace/dashboard/helpers"
	"github.com/happyplace/dashboard/models"
)

// ActivityHandler returns the activity feed of the caller's agent, or of
// the whole office for those who see every lead
func ActivityHandler(w http.ResponseWriter, r *http.Request) {
	c, status, err := models.MakeContext(r, w)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	switch c.GetHTTPMethod() {
	case "OPTIONS":
		c.RespondWithOptions([]string{"OPTIONS", "HEAD", "GET"})
		return
	case "HEAD", "GET":
	default:
		c.RespondWithStatus(http.StatusMethodNotAllowed)
		return
	}

	perms := models.GetPermission(c.AuthContext(h.ItemTypes[h.ItemTypeActivity], 0))
	if !perms.CanRead {
		c.RespondWithErrorMessage(h.NoAuthMessage, http.StatusForbidden)
		return
	}

	limit, _, status, err := h.GetLimitAndOffset(c.Request.URL.Query())
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	ems, status, err := models.GetActivity(models.ScopeFor(c.Auth).AgentID, limit)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	c.RespondWithData(ems)
}
