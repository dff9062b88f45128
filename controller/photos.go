package controller

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/golang/glog"

	"github.com/happyplace/dashboard/audit"
	h "github.com/happyplace/dashboard/helpers"
	"github.com/happyplace/dashboard/models"
)

// PhotosController is a web controller
type PhotosController struct{}

// PhotosHandler is a web handler
func PhotosHandler(w http.ResponseWriter, r *http.Request) {
	c, status, err := models.MakeContext(r, w)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	ctl := PhotosController{}

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

// photoListing loads the listing named by the route
func photoListing(c *models.Context) (models.ListingType, models.AuthContext, models.PermissionType, bool) {
	listingID, ok := routeID(c, "listing_id")
	if !ok {
		return models.ListingType{}, models.AuthContext{}, models.PermissionType{}, false
	}

	listing, status, err := models.GetListing(listingID)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return models.ListingType{}, models.AuthContext{}, models.PermissionType{}, false
	}

	ac := c.AuthContext(h.ItemTypes[h.ItemTypeListing], listing.ID).WithOwner(listing.AgentID)
	return listing, ac, models.GetPermission(ac), true
}

// Create handles POST of a multipart form, every file part is a photo
func (ctl *PhotosController) Create(c *models.Context) {
	listing, ac, perms, ok := photoListing(c)
	if !ok {
		return
	}
	if !perms.CanUpdate {
		c.RespondWithErrorMessage(h.NoAuthMessage, http.StatusForbidden)
		return
	}

	mr, err := c.Request.MultipartReader()
	if err != nil {
		c.RespondWithErrorMessage(
			fmt.Sprintf("Only multipart forms can be posted: %v", err.Error()),
			http.StatusBadRequest,
		)
		return
	}

	photos := []models.PhotoType{}

	part, err := mr.NextPart()
	for err == nil {
		if part.FormName() != "" && part.FileName() != "" {
			m := models.PhotoType{ListingID: listing.ID}

			// One byte over the limit is enough to reject it
			m.Content, err = io.ReadAll(io.LimitReader(part, int64(models.MaxPhotoSize)+1))
			if err != nil {
				glog.Errorf("+%v", err)
				c.RespondWithErrorMessage(
					fmt.Sprintf("Couldn't not read form part: %v", err.Error()),
					http.StatusBadRequest,
				)
				return
			}

			status, err := m.Insert(c.Request.Context(), ac)
			if err != nil {
				c.RespondWithErrorDetail(err, status)
				return
			}
			photos = append(photos, m)
		}
		part, err = mr.NextPart()
	}

	if len(photos) == 0 {
		c.RespondWithErrorMessage("No photo was uploaded", http.StatusBadRequest)
		return
	}

	audit.Update(
		h.ItemTypes[h.ItemTypeListing],
		listing.ID,
		c.Auth.UserID,
		time.Now(),
		c.IP,
	)

	c.RespondWithData(photos)
}

// ReadMany handles GET
func (ctl *PhotosController) ReadMany(c *models.Context) {
	listing, _, perms, ok := photoListing(c)
	if !ok {
		return
	}
	if !perms.CanRead {
		c.RespondWithErrorMessage(h.NoAuthMessage, http.StatusForbidden)
		return
	}

	c.RespondWithData(listing.Photos)
}

// PhotoHandler is a web handler for a single photo
func PhotoHandler(w http.ResponseWriter, r *http.Request) {
	c, status, err := models.MakeContext(r, w)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	switch c.GetHTTPMethod() {
	case "OPTIONS":
		c.RespondWithOptions([]string{"OPTIONS", "DELETE"})
		return
	case "DELETE":
		listing, _, perms, ok := photoListing(c)
		if !ok {
			return
		}
		if !perms.CanUpdate {
			c.RespondWithErrorMessage(h.NoAuthMessage, http.StatusForbidden)
			return
		}

		photoID, ok := routeID(c, "photo_id")
		if !ok {
			return
		}

		m, status, err := models.GetPhoto(listing.ID, photoID)
		if err != nil {
			if status == http.StatusNotFound {
				c.RespondWithOK()
				return
			}
			c.RespondWithErrorDetail(err, status)
			return
		}

		status, err = m.Delete(c.Request.Context())
		if err != nil {
			c.RespondWithErrorDetail(err, status)
			return
		}

		audit.Update(
			h.ItemTypes[h.ItemTypeListing],
			listing.ID,
			c.Auth.UserID,
			time.Now(),
			c.IP,
		)

		c.RespondWithOK()
	default:
		c.RespondWithStatus(http.StatusMethodNotAllowed)
		return
	}
}
