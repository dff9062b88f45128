package controller

import (
	"net/http"

	"github.com/happyplace/dashboard/models"
)

// WhoAmIHandler is the web handler
func WhoAmIHandler(w http.ResponseWriter, r *http.Request) {
	c, status, err := models.MakeContext(r, w)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	ctl := WhoAmIController{}

	switch c.GetHTTPMethod() {
	case "OPTIONS":
		c.RespondWithOptions([]string{"OPTIONS", "GET"})
		return
	case "GET":
		ctl.Read(c)
	default:
		c.RespondWithStatus(http.StatusMethodNotAllowed)
		return
	}
}

// WhoAmIController is the web controller
type WhoAmIController struct{}

// WhoAmIType is the signed in user and what they may do
type WhoAmIType struct {
	User         models.UserType `json:"user"`
	Capabilities []string        `json:"capabilities"`
	Sections     []string        `json:"sections"`
}

// Read handles GET
func (wc *WhoAmIController) Read(c *models.Context) {
	if c.IsGuest() {
		c.RespondWithErrorMessage(
			"You must be authenticated to ask 'who am I?'",
			http.StatusUnauthorized,
		)
		return
	}

	u, status, err := models.GetUser(c.Auth.UserID)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	m := WhoAmIType{
		User:         u,
		Capabilities: models.GetRoleCapabilities(u.Role),
		Sections:     []string{},
	}
	for _, s := range models.GetSections(u.Role) {
		m.Sections = append(m.Sections, s.ID)
	}

	c.RespondWithData(m)
}
