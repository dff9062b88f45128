package controller

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/happyplace/dashboard/audit"
	e "github.com/happyplace/dashboard/errors"
	h "github.com/happyplace/dashboard/helpers"
	"github.com/happyplace/dashboard/models"
)

func init() {
	for _, a := range []models.AjaxAction{
		{Name: "hph_get_dashboard_stats", Capability: models.CapViewDashboard, Handler: ajaxDashboardStats},
		{Name: "hph_get_section", Capability: models.CapViewDashboard, Handler: ajaxSection},
		{Name: "hph_save_listing", Capability: models.CapEditListings, Handler: ajaxSaveListing},
		{Name: "hph_delete_listing", Capability: models.CapDeleteListings, Handler: ajaxDeleteListing},
		{Name: "hph_update_listing_status", Capability: models.CapEditListings, Handler: ajaxListingStatus},
		{Name: "hph_save_lead", Capability: models.CapManageLeads, Handler: ajaxSaveLead},
		{Name: "hph_update_lead_status", Capability: models.CapManageLeads, Handler: ajaxLeadStatus},
		{Name: "hph_add_lead_note", Capability: models.CapManageLeads, Handler: ajaxLeadNote},
		{Name: "hph_delete_lead", Capability: models.CapManageLeads, Handler: ajaxDeleteLead},
		{Name: "hph_submit_lead", NoPriv: true, Handler: ajaxSubmitLead},
		{Name: "hph_save_open_house", Capability: models.CapManageOpenHouses, Handler: ajaxSaveOpenHouse},
		{Name: "hph_delete_open_house", Capability: models.CapManageOpenHouses, Handler: ajaxDeleteOpenHouse},
		{Name: "hph_rsvp_open_house", NoPriv: true, Handler: ajaxRSVP},
		{Name: "hph_save_agent_profile", Capability: models.CapViewDashboard, Handler: ajaxSaveAgentProfile},
		{Name: "hph_save_field", Capability: models.CapViewDashboard, Handler: ajaxSaveField},
		{Name: "hph_generate_flyer", Capability: models.CapUseMarketing, Handler: ajaxFlyer},
		{Name: "hph_generate_social_post", Capability: models.CapUseMarketing, Handler: ajaxSocialPost},
		{Name: "hph_create_campaign", Capability: models.CapUseMarketing, Handler: ajaxCreateCampaign},
		{Name: "hph_send_campaign", Capability: models.CapSendCampaigns, Handler: ajaxSendCampaign},
		{Name: "hph_get_notifications", Capability: models.CapViewDashboard, Handler: ajaxNotifications},
		{Name: "hph_mark_notification_read", Capability: models.CapViewDashboard, Handler: ajaxMarkNotificationRead},
		{Name: "hph_run_self_tests", Capability: models.CapRunDiagnostics, Handler: ajaxRunSelfTests},
	} {
		models.RegisterAjaxAction(a)
	}
}

// ajaxMessageType is the data of an action that only reports what it did
type ajaxMessageType struct {
	ID      int64  `json:"id,omitempty"`
	Message string `json:"message"`
}

var (
	mayRead   = func(p models.PermissionType) bool { return p.CanRead }
	mayCreate = func(p models.PermissionType) bool { return p.CanCreate }
	mayUpdate = func(p models.PermissionType) bool { return p.CanUpdate }
	mayDelete = func(p models.PermissionType) bool { return p.CanDelete }
)

// ajaxAuthorise returns the auth context for an item, or a 403 if the
// caller may not act on it
func ajaxAuthorise(
	c *models.Context,
	itemType string,
	itemID int64,
	owner int64,
	allowed func(models.PermissionType) bool,
	code e.ErrCode,
) (
	models.AuthContext,
	int,
	error,
) {
	ac := c.AuthContext(h.ItemTypes[itemType], itemID)
	if itemID > 0 {
		ac = ac.WithOwner(owner)
	}
	if !allowed(models.GetPermission(ac)) {
		return ac, http.StatusForbidden,
			e.New(c.Auth.UserID, "ajaxAuthorise", code, h.NoAuthMessage)
	}
	return ac, http.StatusOK, nil
}

// invalidForm answers a form that failed validation, the problems are
// returned to highlight each field
func invalidForm(c *models.Context, problems map[string]string) (interface{}, int, error) {
	return problems, http.StatusBadRequest,
		e.New(c.Auth.UserID, "invalidForm", e.InvalidContent,
			"Please correct the highlighted fields")
}

// validateAjaxForm runs the form validation, returning a response when it
// fails
func validateAjaxForm(
	c *models.Context,
	form string,
	req models.AjaxRequest,
) (
	map[string]string,
	interface{},
	int,
	error,
) {
	clean, problems, err := models.ValidateForm(form, req.Params)
	if err != nil {
		return nil, nil, http.StatusInternalServerError, err
	}
	if len(problems) > 0 {
		data, status, err := invalidForm(c, problems)
		return nil, data, status, err
	}
	return clean, nil, http.StatusOK, nil
}

func formFloat(v string) float64 {
	f, _ := strconv.ParseFloat(v, 64)
	return f
}

func badParam(err error) (interface{}, int, error) {
	return nil, http.StatusBadRequest, err
}

func ajaxDashboardStats(c *models.Context, _ models.AjaxRequest) (interface{}, int, error) {
	wc := c.MakeWidgetContext()

	m, err := models.GetDashboardStats(wc.Ctx, wc.Memo, wc.Scope)
	if err != nil {
		return nil, http.StatusInternalServerError, err
	}
	return m, http.StatusOK, nil
}

func ajaxSection(c *models.Context, req models.AjaxRequest) (interface{}, int, error) {
	s, ok := models.GetSection(c.Auth.Role, req.Params["section"])
	if !ok {
		return nil, http.StatusNotFound,
			fmt.Errorf("Section (%s) does not exist", req.Params["section"])
	}

	wc := c.MakeWidgetContext()

	if req.Params["format"] == "json" {
		data, err := models.GetSectionData(wc, s)
		if err != nil {
			return nil, http.StatusInternalServerError, err
		}
		return data, http.StatusOK, nil
	}

	html, err := models.RenderSection(wc, s)
	if err != nil {
		return nil, http.StatusInternalServerError, err
	}
	return map[string]string{"section": s.ID, "html": string(html)}, http.StatusOK, nil
}

func ajaxSaveListing(c *models.Context, req models.AjaxRequest) (interface{}, int, error) {
	id, err := req.Int64("id")
	if err != nil {
		return badParam(err)
	}

	clean, data, status, err := validateAjaxForm(c, models.FormListing, req)
	if err != nil {
		return data, status, err
	}

	m := models.ListingType{}
	var ac models.AuthContext
	if id > 0 {
		m, status, err = models.GetListing(id)
		if err != nil {
			return nil, status, err
		}
		ac, status, err = ajaxAuthorise(c, h.ItemTypeListing, m.ID, m.AgentID, mayUpdate, e.NoUpdate)
	} else {
		ac, status, err = ajaxAuthorise(c, h.ItemTypeListing, 0, 0, mayCreate, e.NoCreate)
		m.AgentID = c.Auth.AgentID
	}
	if err != nil {
		return nil, status, err
	}

	othersListings := models.HasCapability(ac.Role, models.CapEditOthersListings)
	if agentID, err := req.Int64("agentId"); err == nil && agentID > 0 && othersListings {
		m.AgentID = agentID
	}

	m.Title = clean["title"]
	m.Address = clean["address"]
	m.City = clean["city"]
	m.State = clean["state"]
	m.Zip = clean["zip"]
	m.Price, _ = strconv.ParseInt(clean["price"], 10, 64)
	m.Beds = int64(formFloat(clean["beds"]))
	m.Baths = formFloat(clean["baths"])
	m.SqFt = int64(formFloat(clean["sqft"]))
	m.Status = clean["status"]
	m.Description = clean["description"]
	if othersListings {
		m.Meta.Flags.Featured = clean["featured"] == "true"
	}

	if id > 0 {
		status, err = m.Update(ac)
	} else {
		status, err = m.Insert(ac)
	}
	if err != nil {
		return nil, status, err
	}

	if id > 0 {
		audit.Replace(h.ItemTypes[h.ItemTypeListing], m.ID, c.Auth.UserID, time.Now(), c.IP)
	} else {
		audit.Create(h.ItemTypes[h.ItemTypeListing], m.ID, c.Auth.UserID, time.Now(), c.IP)
	}

	return ajaxMessageType{ID: m.ID, Message: "Listing saved"}, http.StatusOK, nil
}

func ajaxDeleteListing(c *models.Context, req models.AjaxRequest) (interface{}, int, error) {
	id, err := req.RequiredInt64("id")
	if err != nil {
		return badParam(err)
	}

	m, status, err := models.GetListing(id)
	if err != nil {
		return nil, status, err
	}

	ac, status, err := ajaxAuthorise(c, h.ItemTypeListing, m.ID, m.AgentID, mayDelete, e.NoDelete)
	if err != nil {
		return nil, status, err
	}

	status, err = m.Delete(ac)
	if err != nil {
		return nil, status, err
	}

	audit.Delete(h.ItemTypes[h.ItemTypeListing], m.ID, c.Auth.UserID, time.Now(), c.IP)

	return ajaxMessageType{ID: m.ID, Message: "Listing deleted"}, http.StatusOK, nil
}

func ajaxListingStatus(c *models.Context, req models.AjaxRequest) (interface{}, int, error) {
	id, err := req.RequiredInt64("id")
	if err != nil {
		return badParam(err)
	}

	patches := []h.PatchType{{
		Operation: "replace",
		Path:      "/status",
		RawValue:  strings.TrimSpace(req.Params["status"]),
	}}
	status, err := h.TestPatch(patches)
	if err != nil {
		return nil, status, err
	}

	m, status, err := models.GetListing(id)
	if err != nil {
		return nil, status, err
	}

	ac, status, err := ajaxAuthorise(c, h.ItemTypeListing, m.ID, m.AgentID, mayUpdate, e.NoUpdate)
	if err != nil {
		return nil, status, err
	}

	status, err = m.Patch(ac, patches)
	if err != nil {
		return nil, status, err
	}

	audit.Update(h.ItemTypes[h.ItemTypeListing], m.ID, c.Auth.UserID, time.Now(), c.IP)

	return ajaxMessageType{ID: m.ID, Message: "Listing status updated"}, http.StatusOK, nil
}

func ajaxSaveLead(c *models.Context, req models.AjaxRequest) (interface{}, int, error) {
	id, err := req.Int64("id")
	if err != nil {
		return badParam(err)
	}
	listingID, err := req.Int64("listingId")
	if err != nil {
		return badParam(err)
	}

	clean, data, status, err := validateAjaxForm(c, models.FormLead, req)
	if err != nil {
		return data, status, err
	}

	m := models.LeadType{}
	var ac models.AuthContext
	if id > 0 {
		m, status, err = models.GetLead(id)
		if err != nil {
			return nil, status, err
		}
		ac, status, err = ajaxAuthorise(c, h.ItemTypeLead, m.ID, m.AgentID, mayUpdate, e.NoUpdate)
	} else {
		ac, status, err = ajaxAuthorise(c, h.ItemTypeLead, 0, 0, mayCreate, e.NoCreate)
		m.AgentID = c.Auth.AgentID
		m.Source = models.LeadSourceManual
	}
	if err != nil {
		return nil, status, err
	}

	m.Name = clean["name"]
	m.Email = clean["email"]
	m.Phone = clean["phone"]
	m.Message = clean["message"]
	if clean["source"] != "" {
		m.Source = clean["source"]
	}
	if clean["status"] != "" {
		m.Status = clean["status"]
	}
	if listingID > 0 {
		m.ListingID = listingID
	}

	if id > 0 {
		status, err = m.Update(ac)
	} else {
		status, err = m.Insert(ac)
	}
	if err != nil {
		return nil, status, err
	}

	if id > 0 {
		audit.Replace(h.ItemTypes[h.ItemTypeLead], m.ID, c.Auth.UserID, time.Now(), c.IP)
	} else {
		audit.Create(h.ItemTypes[h.ItemTypeLead], m.ID, c.Auth.UserID, time.Now(), c.IP)
	}

	return ajaxMessageType{ID: m.ID, Message: "Lead saved"}, http.StatusOK, nil
}

// ajaxLead loads a lead named by the id parameter and authorises the caller
func ajaxLead(
	c *models.Context,
	req models.AjaxRequest,
	allowed func(models.PermissionType) bool,
	code e.ErrCode,
) (
	models.LeadType,
	models.AuthContext,
	int,
	error,
) {
	id, err := req.RequiredInt64("id")
	if err != nil {
		return models.LeadType{}, models.AuthContext{}, http.StatusBadRequest, err
	}

	m, status, err := models.GetLead(id)
	if err != nil {
		return models.LeadType{}, models.AuthContext{}, status, err
	}

	ac, status, err := ajaxAuthorise(c, h.ItemTypeLead, m.ID, m.AgentID, allowed, code)
	return m, ac, status, err
}

func ajaxLeadStatus(c *models.Context, req models.AjaxRequest) (interface{}, int, error) {
	m, ac, status, err := ajaxLead(c, req, mayUpdate, e.NoUpdate)
	if err != nil {
		return nil, status, err
	}

	status, err = m.UpdateStatus(ac, strings.TrimSpace(req.Params["status"]))
	if err != nil {
		return nil, status, err
	}

	audit.Update(h.ItemTypes[h.ItemTypeLead], m.ID, c.Auth.UserID, time.Now(), c.IP)

	return ajaxMessageType{ID: m.ID, Message: "Lead status updated"}, http.StatusOK, nil
}

func ajaxLeadNote(c *models.Context, req models.AjaxRequest) (interface{}, int, error) {
	m, ac, status, err := ajaxLead(c, req, mayUpdate, e.NoUpdate)
	if err != nil {
		return nil, status, err
	}

	n, status, err := m.AddNote(ac, req.Params["note"])
	if err != nil {
		return nil, status, err
	}

	audit.Update(h.ItemTypes[h.ItemTypeLead], m.ID, c.Auth.UserID, time.Now(), c.IP)

	return n, http.StatusOK, nil
}

func ajaxDeleteLead(c *models.Context, req models.AjaxRequest) (interface{}, int, error) {
	m, ac, status, err := ajaxLead(c, req, mayDelete, e.NoDelete)
	if err != nil {
		return nil, status, err
	}

	status, err = m.Delete(ac)
	if err != nil {
		return nil, status, err
	}

	audit.Delete(h.ItemTypes[h.ItemTypeLead], m.ID, c.Auth.UserID, time.Now(), c.IP)

	return ajaxMessageType{ID: m.ID, Message: "Lead deleted"}, http.StatusOK, nil
}

// ajaxSubmitLead is the public enquiry form on a listing page or an agent's
// contact page
func ajaxSubmitLead(c *models.Context, req models.AjaxRequest) (interface{}, int, error) {
	listingID, err := req.Int64("listingId")
	if err != nil {
		return badParam(err)
	}
	agentID, err := req.Int64("agentId")
	if err != nil {
		return badParam(err)
	}

	// Visitors choose neither the source nor the pipeline stage
	delete(req.Params, "source")
	delete(req.Params, "status")

	clean, data, status, err := validateAjaxForm(c, models.FormLead, req)
	if err != nil {
		return data, status, err
	}

	ac, status, err := ajaxAuthorise(c, h.ItemTypeLead, 0, 0, mayCreate, e.NoCreate)
	if err != nil {
		return nil, status, err
	}

	m := models.LeadType{
		ListingID: listingID,
		AgentID:   agentID,
		Name:      clean["name"],
		Email:     clean["email"],
		Phone:     clean["phone"],
		Message:   clean["message"],
	}
	status, err = m.Submit(ac)
	if err != nil {
		return nil, status, err
	}

	audit.Create(h.ItemTypes[h.ItemTypeLead], m.ID, c.Auth.UserID, time.Now(), c.IP)

	return ajaxMessageType{Message: "Thank you, an agent will be in touch shortly"}, http.StatusOK, nil
}

func ajaxSaveOpenHouse(c *models.Context, req models.AjaxRequest) (interface{}, int, error) {
	id, err := req.Int64("id")
	if err != nil {
		return badParam(err)
	}

	clean, data, status, err := validateAjaxForm(c, models.FormOpenHouse, req)
	if err != nil {
		return data, status, err
	}

	m := models.OpenHouseType{}
	var ac models.AuthContext
	if id > 0 {
		m, status, err = models.GetOpenHouse(id)
		if err != nil {
			return nil, status, err
		}
		ac, status, err = ajaxAuthorise(c, h.ItemTypeOpenHouse, m.ID, m.AgentID, mayUpdate, e.NoUpdate)
	} else {
		ac, status, err = ajaxAuthorise(c, h.ItemTypeOpenHouse, 0, 0, mayCreate, e.NoCreate)
		m.AgentID = c.Auth.AgentID
	}
	if err != nil {
		return nil, status, err
	}

	m.ListingID = int64(formFloat(clean["listingId"]))
	m.Starts, _ = time.Parse(time.RFC3339, clean["starts"])
	m.Ends, _ = time.Parse(time.RFC3339, clean["ends"])
	m.Notes = clean["notes"]

	if id > 0 {
		status, err = m.Update(ac)
	} else {
		status, err = m.Insert(ac)
	}
	if err != nil {
		return nil, status, err
	}

	if id > 0 {
		audit.Replace(h.ItemTypes[h.ItemTypeOpenHouse], m.ID, c.Auth.UserID, time.Now(), c.IP)
	} else {
		audit.Create(h.ItemTypes[h.ItemTypeOpenHouse], m.ID, c.Auth.UserID, time.Now(), c.IP)
	}

	return ajaxMessageType{ID: m.ID, Message: "Open house saved"}, http.StatusOK, nil
}

func ajaxDeleteOpenHouse(c *models.Context, req models.AjaxRequest) (interface{}, int, error) {
	id, err := req.RequiredInt64("id")
	if err != nil {
		return badParam(err)
	}

	m, status, err := models.GetOpenHouse(id)
	if err != nil {
		return nil, status, err
	}

	ac, status, err := ajaxAuthorise(c, h.ItemTypeOpenHouse, m.ID, m.AgentID, mayDelete, e.NoDelete)
	if err != nil {
		return nil, status, err
	}

	status, err = m.Delete(ac)
	if err != nil {
		return nil, status, err
	}

	audit.Delete(h.ItemTypes[h.ItemTypeOpenHouse], m.ID, c.Auth.UserID, time.Now(), c.IP)

	return ajaxMessageType{ID: m.ID, Message: "Open house cancelled"}, http.StatusOK, nil
}

// ajaxRSVP registers a visitor for an open house
func ajaxRSVP(c *models.Context, req models.AjaxRequest) (interface{}, int, error) {
	id, err := req.RequiredInt64("openHouseId")
	if err != nil {
		return badParam(err)
	}

	m, status, err := models.GetOpenHouse(id)
	if err != nil {
		return nil, status, err
	}

	ac, status, err := ajaxAuthorise(c, h.ItemTypeOpenHouse, m.ID, m.AgentID, mayRead, e.NoRead)
	if err != nil {
		return nil, status, err
	}

	rsvp := models.RSVPType{
		OpenHouseID: m.ID,
		Name:        req.Params["name"],
		Email:       req.Params["email"],
		Phone:       req.Params["phone"],
	}
	status, err = m.RSVP(ac, &rsvp)
	if err != nil {
		return nil, status, err
	}

	return ajaxMessageType{Message: "You are registered, see you there"}, http.StatusOK, nil
}

func ajaxSaveAgentProfile(c *models.Context, req models.AjaxRequest) (interface{}, int, error) {
	agentID := c.Auth.AgentID
	if id, err := req.Int64("agentId"); err == nil && id > 0 &&
		models.HasCapability(c.Auth.Role, models.CapManageAgents) {
		agentID = id
	}
	if agentID <= 0 {
		return nil, http.StatusBadRequest,
			e.New(c.Auth.UserID, "ajaxSaveAgentProfile", e.OutOfRange,
				"You do not have an agent profile")
	}

	clean, data, status, err := validateAjaxForm(c, models.FormAgentProfile, req)
	if err != nil {
		return data, status, err
	}

	m, status, err := models.GetAgent(agentID)
	if err != nil {
		return nil, status, err
	}

	ac, status, err := ajaxAuthorise(c, h.ItemTypeAgent, m.ID, m.ID, mayUpdate, e.NoUpdate)
	if err != nil {
		return nil, status, err
	}

	m.DisplayName = clean["displayName"]
	m.Email = clean["email"]
	m.Phone = clean["phone"]
	m.LicenseNumber = clean["licenseNumber"]
	m.Office = clean["office"]
	m.Bio = clean["bio"]
	m.Social = models.SocialLinksType{
		Website:   clean["website"],
		Facebook:  clean["facebook"],
		Instagram: clean["instagram"],
		LinkedIn:  clean["linkedin"],
	}

	status, err = m.Update(ac)
	if err != nil {
		return nil, status, err
	}

	audit.Replace(h.ItemTypes[h.ItemTypeAgent], m.ID, c.Auth.UserID, time.Now(), c.IP)

	return ajaxMessageType{ID: m.ID, Message: "Profile saved"}, http.StatusOK, nil
}

// fieldValue types a submitted custom field value the way a JSON body would
func fieldValue(v string) interface{} {
	v = strings.TrimSpace(v)
	switch v {
	case "true":
		return true
	case "false":
		return false
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	return v
}

// ajaxSaveField sets one custom field, an empty value removes it
func ajaxSaveField(c *models.Context, req models.AjaxRequest) (interface{}, int, error) {
	itemType, ok := fieldItemTypes[req.Params["type"]]
	if !ok {
		return nil, http.StatusBadRequest,
			e.New(c.Auth.UserID, "ajaxSaveField", e.OutOfRange,
				fmt.Sprintf("Items of type (%s) do not have fields", req.Params["type"]))
	}
	itemID, err := req.RequiredInt64("itemId")
	if err != nil {
		return badParam(err)
	}

	ac, perms, status, err := itemAuthContext(c, itemType, itemID)
	if err != nil {
		return nil, status, err
	}
	if !perms.CanUpdate {
		return nil, http.StatusForbidden,
			e.New(c.Auth.UserID, "ajaxSaveField", e.NoUpdate, h.NoAuthMessage)
	}

	key := req.Params["key"]
	if strings.TrimSpace(req.Params["value"]) == "" {
		status, err = models.DeleteField(ac, h.ItemTypes[itemType], itemID, key)
		if err != nil {
			return nil, status, err
		}
		return ajaxMessageType{ID: itemID, Message: "Field removed"}, http.StatusOK, nil
	}

	status, err = models.UpsertFields(
		ac,
		h.ItemTypes[itemType],
		itemID,
		[]models.FieldType{{Key: key, Value: fieldValue(req.Params["value"])}},
	)
	if err != nil {
		return nil, status, err
	}

	audit.Update(h.ItemTypes[itemType], itemID, c.Auth.UserID, time.Now(), c.IP)

	return ajaxMessageType{ID: itemID, Message: "Field saved"}, http.StatusOK, nil
}

func ajaxFlyer(c *models.Context, req models.AjaxRequest) (interface{}, int, error) {
	listingID, err := req.RequiredInt64("listingId")
	if err != nil {
		return badParam(err)
	}
	template := req.Params["template"]
	if template == "" {
		template = models.FlyerTemplateClassic
	}

	ac, status, err := marketingContext(c, h.ItemTypeFlyer, listingID)
	if err != nil {
		return nil, status, err
	}

	m, status, err := models.GenerateFlyer(c.Request.Context(), ac, listingID, template)
	if err != nil {
		return nil, status, err
	}

	audit.Create(h.ItemTypes[h.ItemTypeFlyer], m.ID, c.Auth.UserID, time.Now(), c.IP)

	return m, http.StatusOK, nil
}

func ajaxSocialPost(c *models.Context, req models.AjaxRequest) (interface{}, int, error) {
	sp := models.SocialPostRequest{
		Platform:  req.Params["platform"],
		PostType:  req.Params["postType"],
		WithImage: req.Params["withImage"] == "true" || req.Params["withImage"] == "1",
	}

	var err error
	if sp.ListingID, err = req.RequiredInt64("listingId"); err != nil {
		return badParam(err)
	}
	if sp.OpenHouseID, err = req.Int64("openHouseId"); err != nil {
		return badParam(err)
	}
	if sp.PreviousPrice, err = req.Int64("previousPrice"); err != nil {
		return badParam(err)
	}

	status, err := sp.Validate()
	if err != nil {
		return nil, status, err
	}

	ac, status, err := marketingContext(c, h.ItemTypeSocialPost, sp.ListingID)
	if err != nil {
		return nil, status, err
	}

	m, status, err := models.GenerateSocialPost(c.Request.Context(), ac, sp)
	if err != nil {
		return nil, status, err
	}

	audit.Create(h.ItemTypes[h.ItemTypeSocialPost], m.ID, c.Auth.UserID, time.Now(), c.IP)

	return m, http.StatusOK, nil
}

func ajaxCreateCampaign(c *models.Context, req models.AjaxRequest) (interface{}, int, error) {
	ac, status, err := ajaxAuthorise(c, h.ItemTypeCampaign, 0, 0, mayCreate, e.NoCreate)
	if err != nil {
		return nil, status, err
	}

	m := models.CampaignType{
		AgentID:         c.Auth.AgentID,
		Name:            req.Params["name"],
		Subject:         req.Params["subject"],
		Body:            req.Params["body"],
		RecipientStatus: req.Params["recipientStatus"],
	}
	if s := strings.TrimSpace(req.Params["scheduledFor"]); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return nil, http.StatusBadRequest,
				e.New(c.Auth.UserID, "ajaxCreateCampaign", e.UnexpectedType,
					"scheduledFor must be a date and time (RFC3339)")
		}
		m.ScheduledFor = &t
	}

	status, err = m.Insert(ac)
	if err != nil {
		return nil, status, err
	}

	audit.Create(h.ItemTypes[h.ItemTypeCampaign], m.ID, c.Auth.UserID, time.Now(), c.IP)

	return m, http.StatusOK, nil
}

func ajaxSendCampaign(c *models.Context, req models.AjaxRequest) (interface{}, int, error) {
	id, err := req.RequiredInt64("id")
	if err != nil {
		return badParam(err)
	}

	m, status, err := models.GetCampaign(id)
	if err != nil {
		return nil, status, err
	}

	ac, status, err := ajaxAuthorise(c, h.ItemTypeCampaign, m.ID, m.AgentID, mayUpdate, e.NoUpdate)
	if err != nil {
		return nil, status, err
	}

	status, err = m.Send(ac)
	if err != nil {
		return nil, status, err
	}

	audit.Update(h.ItemTypes[h.ItemTypeCampaign], m.ID, c.Auth.UserID, time.Now(), c.IP)

	return ajaxMessageType{
		ID:      m.ID,
		Message: fmt.Sprintf("Campaign sent to %d recipients", m.SentCount),
	}, http.StatusOK, nil
}

func ajaxNotifications(c *models.Context, req models.AjaxRequest) (interface{}, int, error) {
	limit, err := req.Int64("limit")
	if err != nil {
		return badParam(err)
	}
	if limit <= 0 || limit > h.MaxQueryLimit {
		limit = h.DefaultQueryLimit
	}

	m, status, err := models.ListNotifications(c.Auth.UserID, limit)
	if err != nil {
		return nil, status, err
	}
	return m, http.StatusOK, nil
}

// ajaxMarkNotificationRead marks one notification read, or all of them when
// no id is given
func ajaxMarkNotificationRead(c *models.Context, req models.AjaxRequest) (interface{}, int, error) {
	id, err := req.Int64("id")
	if err != nil {
		return badParam(err)
	}

	ac, status, err := ajaxAuthorise(c, h.ItemTypeNotification, id, 0, mayUpdate, e.NoUpdate)
	if err != nil {
		return nil, status, err
	}

	status, err = models.MarkNotificationRead(ac, id)
	if err != nil {
		return nil, status, err
	}

	return ajaxMessageType{ID: id, Message: "Marked as read"}, http.StatusOK, nil
}

func ajaxRunSelfTests(c *models.Context, req models.AjaxRequest) (interface{}, int, error) {
	runs, status, err := models.RunSelfTests(c.Request.Context(), req.Params["suite"], c.Auth.UserID)
	if err != nil {
		return nil, status, err
	}

	for _, run := range runs {
		audit.Create(h.ItemTypes[h.ItemTypeSelfTest], run.ID, c.Auth.UserID, time.Now(), c.IP)
	}

	return runs, http.StatusOK, nil
}
