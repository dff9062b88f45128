package controller

import (
	"fmt"
	"net/http"
	"time"

	"github.com/happyplace/dashboard/audit"
	h "github.com/happyplace/dashboard/helpers"
	"github.com/happyplace/dashboard/models"
)

// SocialPostsHandler is a web handler
func SocialPostsHandler(w http.ResponseWriter, r *http.Request) {
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
		platforms := map[string]int{}
		for _, p := range models.SocialPlatformNames() {
			platforms[p] = models.SocialPlatformLimit(p)
		}
		c.RespondWithData(map[string]interface{}{
			"platforms": platforms,
			"postTypes": models.SocialPostTypes,
		})
	case "POST":
		createSocialPost(c)
	default:
		c.RespondWithStatus(http.StatusMethodNotAllowed)
		return
	}
}

func createSocialPost(c *models.Context) {
	req := models.SocialPostRequest{}
	err := c.Fill(&req)
	if err != nil {
		c.RespondWithErrorMessage(
			fmt.Sprintf("The post data is invalid: %v", err.Error()),
			http.StatusBadRequest,
		)
		return
	}

	status, err := req.Validate()
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	ac, status, err := marketingContext(c, h.ItemTypeSocialPost, req.ListingID)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	m, status, err := models.GenerateSocialPost(c.Request.Context(), ac, req)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	audit.Create(
		h.ItemTypes[h.ItemTypeSocialPost],
		m.ID,
		c.Auth.UserID,
		time.Now(),
		c.IP,
	)

	c.RespondWithData(m)
}
