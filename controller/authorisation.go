package controller

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	h "github.com/happyplace/dashboard/helpers"
	"github.com/happyplace/dashboard/models"
)

// PermissionController is a web controller
type PermissionController struct{}

// PermissionHandler is a web handler that tells the front end what the
// caller may do with an item, so it can hide what they may not
func PermissionHandler(w http.ResponseWriter, r *http.Request) {
	c, status, err := models.MakeContext(r, w)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	ctl := PermissionController{}

	switch c.GetHTTPMethod() {
	case "OPTIONS":
		c.RespondWithOptions([]string{"OPTIONS", "HEAD", "GET"})
		return
	case "HEAD":
		ctl.Read(c)
	case "GET":
		ctl.Read(c)
	default:
		c.RespondWithStatus(http.StatusMethodNotAllowed)
		return
	}
}

// Read handles GET
func (ctl *PermissionController) Read(c *models.Context) {
	ac, status, err := GetAuthContext(c)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	c.RespondWithData(models.GetPermission(ac))
}

// GetAuthContext returns the auth context named by the itemType and itemId
// query parameters. Items that belong to an agent are looked up so that
// ownership is known.
func GetAuthContext(c *models.Context) (models.AuthContext, int, error) {
	query := c.Request.URL.Query()

	itemType := strings.ToLower(strings.TrimSpace(query.Get("itemType")))
	itemTypeID, exists := h.ItemTypes[itemType]
	if !exists {
		return models.AuthContext{}, http.StatusBadRequest,
			fmt.Errorf("You must specify a valid itemType")
	}

	var itemID int64
	if query.Get("itemId") != "" {
		id, err := strconv.ParseInt(strings.TrimSpace(query.Get("itemId")), 10, 64)
		if err != nil || id < 0 {
			return models.AuthContext{}, http.StatusBadRequest,
				fmt.Errorf("itemId needs to be a positive integer")
		}
		itemID = id
	}

	ac := c.AuthContext(itemTypeID, itemID)
	if itemID == 0 {
		return ac, http.StatusOK, nil
	}

	switch itemType {
	case h.ItemTypeListing, h.ItemTypeLead, h.ItemTypeOpenHouse, h.ItemTypeAgent, h.ItemTypeCampaign:
		owner, status, err := itemOwner(itemType, itemID)
		if err != nil {
			return models.AuthContext{}, status, err
		}
		ac = ac.WithOwner(owner)
	}

	return ac, http.StatusOK, nil
}
