package controller

import (
	"fmt"
	"net/http"
	"time"

	"github.com/happyplace/dashboard/audit"
	e "github.com/happyplace/dashboard/errors"
	h "github.com/happyplace/dashboard/helpers"
	"github.com/happyplace/dashboard/models"
)

// FlyersHandler is a web handler
func FlyersHandler(w http.ResponseWriter, r *http.Request) {
	c, status, err := models.MakeContext(r, w)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	switch c.GetHTTPMethod() {
	case "OPTIONS":
		c.RespondWithOptions([]string{"OPTIONS", "GET", "POST"})
		return
	case "GET":
		c.RespondWithData(map[string][]string{"templates": models.FlyerTemplateNames()})
	case "POST":
		createFlyer(c)
	default:
		c.RespondWithStatus(http.StatusMethodNotAllowed)
		return
	}
}

// marketingContext checks the caller may produce marketing for the listing
func marketingContext(c *models.Context, itemType string, listingID int64) (models.AuthContext, int, error) {
	listing, status, err := models.GetListing(listingID)
	if err != nil {
		return models.AuthContext{}, status, err
	}

	// Ownership of marketing follows the listing
	ac := c.AuthContext(h.ItemTypes[itemType], listing.ID).WithOwner(listing.AgentID)
	perms := models.GetPermission(ac)
	if !perms.CanRead || !perms.CanUpdate {
		return models.AuthContext{}, http.StatusForbidden,
			e.New(c.Auth.UserID, "marketingContext", e.NoCreate, h.NoAuthMessage)
	}

	return ac, http.StatusOK, nil
}

func createFlyer(c *models.Context) {
	req := struct {
		ListingID int64  `json:"listingId"`
		Template  string `json:"template"`
	}{}
	err := c.Fill(&req)
	if err != nil {
		c.RespondWithErrorMessage(
			fmt.Sprintf("The post data is invalid: %v", err.Error()),
			http.StatusBadRequest,
		)
		return
	}
	if req.Template == "" {
		req.Template = models.FlyerTemplateClassic
	}

	ac, status, err := marketingContext(c, h.ItemTypeFlyer, req.ListingID)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	m, status, err := models.GenerateFlyer(c.Request.Context(), ac, req.ListingID, req.Template)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	audit.Create(
		h.ItemTypes[h.ItemTypeFlyer],
		m.ID,
		c.Auth.UserID,
		time.Now(),
		c.IP,
	)

	c.RespondWithData(m)
}
