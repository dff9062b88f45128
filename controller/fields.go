package controller

import (
	"fmt"
	"net/http"
	"time"

	"github.com/happyplace/dashboard/audit"
	h "github.com/happyplace/dashboard/helpers"
	"github.com/happyplace/dashboard/models"
)

// FieldsController is a web controller
type FieldsController struct{}

// FieldsHandler is a web handler for the custom fields of an item
func FieldsHandler(w http.ResponseWriter, r *http.Request) {
	c, status, err := models.MakeContext(r, w)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	ctl := FieldsController{}

	switch c.GetHTTPMethod() {
	case "OPTIONS":
		c.RespondWithOptions([]string{"OPTIONS", "GET", "HEAD", "PUT"})
		return
	case "GET":
		ctl.ReadMany(c)
	case "HEAD":
		ctl.ReadMany(c)
	case "PUT":
		ctl.UpdateMany(c)
	default:
		c.RespondWithStatus(http.StatusMethodNotAllowed)
		return
	}
}

// itemOwner returns the agent an item belongs to
func itemOwner(itemType string, itemID int64) (int64, int, error) {
	switch itemType {
	case h.ItemTypeListing:
		m, status, err := models.GetListing(itemID)
		return m.AgentID, status, err
	case h.ItemTypeLead:
		m, status, err := models.GetLead(itemID)
		return m.AgentID, status, err
	case h.ItemTypeOpenHouse:
		m, status, err := models.GetOpenHouse(itemID)
		return m.AgentID, status, err
	case h.ItemTypeAgent:
		m, status, err := models.GetAgent(itemID)
		return m.ID, status, err
	case h.ItemTypeCampaign:
		m, status, err := models.GetCampaign(itemID)
		return m.AgentID, status, err
	}
	return 0, http.StatusNotFound, fmt.Errorf("Items of type %s have no owner", itemType)
}

// itemAuthContext resolves the owner of an item and the caller's
// permissions on it
func itemAuthContext(
	c *models.Context,
	itemType string,
	itemID int64,
) (
	models.AuthContext,
	models.PermissionType,
	int,
	error,
) {
	owner, status, err := itemOwner(itemType, itemID)
	if err != nil {
		return models.AuthContext{}, models.PermissionType{}, status, err
	}

	ac := c.AuthContext(h.ItemTypes[itemType], itemID).WithOwner(owner)
	return ac, models.GetPermission(ac), http.StatusOK, nil
}

// fieldsContext resolves the item named by the route and the caller's
// permissions on it
func fieldsContext(c *models.Context) (models.AuthContext, string, models.PermissionType, bool) {
	itemType, ok := fieldItemTypes[c.RouteVars["type"]]
	if !ok {
		c.RespondWithNotFound()
		return models.AuthContext{}, "", models.PermissionType{}, false
	}

	itemID, ok := routeID(c, "item_id")
	if !ok {
		return models.AuthContext{}, "", models.PermissionType{}, false
	}

	ac, perms, status, err := itemAuthContext(c, itemType, itemID)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return models.AuthContext{}, "", models.PermissionType{}, false
	}

	return ac, itemType, perms, true
}

// ReadMany handles GET
func (ctl *FieldsController) ReadMany(c *models.Context) {
	ac, _, perms, ok := fieldsContext(c)
	if !ok {
		return
	}
	if !perms.CanRead {
		c.RespondWithErrorMessage(h.NoAuthMessage, http.StatusForbidden)
		return
	}

	ems, status, err := models.GetFields(ac.ItemTypeID, ac.ItemID)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	total := int64(len(ems))
	m := models.FieldsType{}
	m.Fields = h.ConstructArray(
		ems,
		fmt.Sprintf(h.APITypeField, c.RouteVars["type"], ac.ItemID),
		total,
		total,
		0,
		c.Request.URL,
	)

	c.RespondWithData(m)
}

// UpdateMany handles PUT of one or more fields
func (ctl *FieldsController) UpdateMany(c *models.Context) {
	ac, _, perms, ok := fieldsContext(c)
	if !ok {
		return
	}
	if !perms.CanUpdate {
		c.RespondWithErrorMessage(h.NoAuthMessage, http.StatusForbidden)
		return
	}

	ems := []models.FieldType{}
	err := c.Fill(&ems)
	if err != nil {
		c.RespondWithErrorMessage(
			fmt.Sprintf("The post data is invalid: %v", err.Error()),
			http.StatusBadRequest,
		)
		return
	}

	status, err := models.UpsertFields(ac, ac.ItemTypeID, ac.ItemID, ems)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	audit.Update(
		ac.ItemTypeID,
		ac.ItemID,
		c.Auth.UserID,
		time.Now(),
		c.IP,
	)

	c.RespondWithOK()
}

// FieldHandler is a web handler for a single field
func FieldHandler(w http.ResponseWriter, r *http.Request) {
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
		ac, _, perms, ok := fieldsContext(c)
		if !ok {
			return
		}
		if !perms.CanUpdate {
			c.RespondWithErrorMessage(h.NoAuthMessage, http.StatusForbidden)
			return
		}

		status, err := models.DeleteField(ac, ac.ItemTypeID, ac.ItemID, c.RouteVars["key"])
		if err != nil {
			c.RespondWithErrorDetail(err, status)
			return
		}

		audit.Update(
			ac.ItemTypeID,
			ac.ItemID,
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
