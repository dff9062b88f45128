package controller

import (
	"net/http"

	"github.com/golang/glog"

	h "github.com/happyplace/dashboard/helpers"
	"github.com/happyplace/dashboard/models"
)

// DashboardType is the section menu with the overview already loaded
type DashboardType struct {
	Sections []models.SectionType      `json:"sections"`
	Overview models.SectionDataType    `json:"overview"`
	Stats    models.DashboardStatsType `json:"stats"`
}

// DashboardHandler is a web handler
func DashboardHandler(w http.ResponseWriter, r *http.Request) {
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

	if c.IsGuest() {
		c.RespondWithErrorMessage(h.NoAuthMessage, http.StatusUnauthorized)
		return
	}
	if !models.HasCapability(c.Auth.Role, models.CapViewDashboard) {
		c.RespondWithErrorMessage(h.NoAuthMessage, http.StatusForbidden)
		return
	}

	wc := c.MakeWidgetContext()

	m := DashboardType{Sections: models.GetSections(c.Auth.Role)}

	m.Stats, err = models.GetDashboardStats(wc.Ctx, wc.Memo, wc.Scope)
	if err != nil {
		glog.Errorf("GetDashboardStats(%d) %+v", c.Auth.UserID, err)
		c.RespondWithErrorDetail(err, http.StatusInternalServerError)
		return
	}

	if s, ok := models.GetSection(c.Auth.Role, "overview"); ok {
		m.Overview, err = models.GetSectionData(wc, s)
		if err != nil {
			glog.Errorf("GetSectionData(overview) %+v", err)
			c.RespondWithErrorDetail(err, http.StatusInternalServerError)
			return
		}
	}

	c.RespondWithData(m)
}

// DashboardSectionHandler returns the data of a section, or its rendered
// HTML when asked for ?format=html
func DashboardSectionHandler(w http.ResponseWriter, r *http.Request) {
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

	if c.IsGuest() {
		c.RespondWithErrorMessage(h.NoAuthMessage, http.StatusUnauthorized)
		return
	}

	// A section the role may not see is indistinguishable from one that
	// does not exist
	s, ok := models.GetSection(c.Auth.Role, c.RouteVars["section"])
	if !ok {
		c.RespondWithNotFound()
		return
	}

	wc := c.MakeWidgetContext()

	if c.Request.URL.Query().Get("format") == "html" {
		fragment, err := models.RenderSection(wc, s)
		if err != nil {
			glog.Errorf("RenderSection(%s) %+v", s.ID, err)
			c.RespondWithErrorDetail(err, http.StatusInternalServerError)
			return
		}
		c.RespondWithHTML([]byte(fragment), http.StatusOK)
		return
	}

	m, err := models.GetSectionData(wc, s)
	if err != nil {
		glog.Errorf("GetSectionData(%s) %+v", s.ID, err)
		c.RespondWithErrorDetail(err, http.StatusInternalServerError)
		return
	}

	c.RespondWithData(m)
}
