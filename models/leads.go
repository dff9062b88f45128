package models

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"net/mail"
	"strings"
	"text/template"
	"time"

	"github.com/golang/glog"

	c "github.com/happyplace/dashboard/cache"
	e "github.com/happyplace/dashboard/errors"
	h "github.com/happyplace/dashboard/helpers"
)

const (
	LeadStatusNew       string = "new"
	LeadStatusContacted string = "contacted"
	LeadStatusQualified string = "qualified"
	LeadStatusNurturing string = "nurturing"
	LeadStatusClosed    string = "closed"
	LeadStatusLost      string = "lost"
)

// LeadStatuses are the stages of the pipeline in order
var LeadStatuses = []string{
	LeadStatusNew,
	LeadStatusContacted,
	LeadStatusQualified,
	LeadStatusNurturing,
	LeadStatusClosed,
	LeadStatusLost,
}

// Where a lead came from
const (
	LeadSourceWebsite   string = "website"
	LeadSourceOpenHouse string = "open_house"
	LeadSourceReferral  string = "referral"
	LeadSourceManual    string = "manual"
)

// LeadSources are the valid values of a lead source
var LeadSources = []string{
	LeadSourceWebsite,
	LeadSourceOpenHouse,
	LeadSourceReferral,
	LeadSourceManual,
}

// LeadsType is a collection of leads
type LeadsType struct {
	Leads h.ArrayType    `json:"leads"`
	Meta  h.CoreMetaType `json:"meta"`
}

// LeadType is an enquiry from a prospective client
type LeadType struct {
	ID            int64          `json:"id"`
	AgentID       int64          `json:"agentId"`
	ListingIDNull sql.NullInt64  `json:"-"`
	ListingID     int64          `json:"listingId,omitempty"`
	Name          string         `json:"name"`
	Email         string         `json:"email"`
	Phone         string         `json:"phone,omitempty"`
	Source        string         `json:"source"`
	Status        string         `json:"status"`
	Message       string         `json:"message,omitempty"`
	Notes         []LeadNoteType `json:"notes,omitempty"`
	Fields        []FieldType    `json:"fields,omitempty"`

	Meta h.DefaultMetaType `json:"meta"`
}

// LeadNoteType is a private note an agent keeps about a lead
type LeadNoteType struct {
	ID          int64     `json:"id"`
	LeadID      int64     `json:"leadId"`
	Note        string    `json:"note"`
	Created     time.Time `json:"created"`
	CreatedByID int64     `json:"createdById"`
}

// LeadFilter narrows a collection of leads
type LeadFilter struct {
	AgentID   int64
	Status    string
	Source    string
	ListingID int64
	Since     time.Time
}

// IsValidLeadStatus reports whether s is a lead status
func IsValidLeadStatus(s string) bool {
	for _, v := range LeadStatuses {
		if v == s {
			return true
		}
	}
	return false
}

func isValidLeadSource(s string) bool {
	for _, v := range LeadSources {
		if v == s {
			return true
		}
	}
	return false
}

// FirstName is the first word of the lead's name, used in greetings
func (m LeadType) FirstName() string {
	parts := strings.Fields(m.Name)
	if len(parts) == 0 {
		return ""
	}
	return parts[0]
}

// Validate returns an error if the lead cannot be saved
func (m *LeadType) Validate(exists bool) (int, error) {
	m.Name = strings.TrimSpace(SanitiseText(m.Name))
	m.Email = strings.ToLower(strings.TrimSpace(m.Email))
	m.Message = strings.TrimSpace(SanitiseText(m.Message))

	if exists && m.ID <= 0 {
		return http.StatusBadRequest, fmt.Errorf("Lead ID is required")
	}

	if m.AgentID <= 0 {
		return http.StatusBadRequest, fmt.Errorf("You must specify an agent")
	}

	if m.Name == "" {
		return http.StatusBadRequest, fmt.Errorf("Name is a required field")
	}

	if _, err := mail.ParseAddress(m.Email); err != nil {
		return http.StatusBadRequest,
			e.New(0, "LeadType.Validate", e.InvalidContent,
				fmt.Sprintf("%s is not a valid email address", m.Email))
	}

	var err error
	m.Phone, err = ValidatePhone(m.Phone)
	if err != nil {
		return http.StatusBadRequest, err
	}

	if m.Source == "" {
		m.Source = LeadSourceWebsite
	}
	if !isValidLeadSource(m.Source) {
		return http.StatusBadRequest,
			e.New(0, "LeadType.Validate", e.OutOfRange,
				fmt.Sprintf("Source (%s) must be one of %v", m.Source, LeadSources))
	}

	if m.Status == "" {
		m.Status = LeadStatusNew
	}
	if !IsValidLeadStatus(m.Status) {
		return http.StatusBadRequest,
			e.New(0, "LeadType.Validate", e.OutOfRange,
				fmt.Sprintf("Status (%s) must be one of %v", m.Status, LeadStatuses))
	}

	if m.ListingID > 0 {
		m.ListingIDNull = sql.NullInt64{Int64: m.ListingID, Valid: true}
	} else {
		m.ListingIDNull = sql.NullInt64{}
	}

	m.Meta.Flags.SetVisible()

	return http.StatusOK, nil
}

// Insert saves a new lead. Guests submitting the public form have a user ID
// of zero.
func (m *LeadType) Insert(ac AuthContext) (int, error) {
	status, err := m.Validate(false)
	if err != nil {
		return status, err
	}

	m.Meta.CreatedByID = ac.UserID
	m.Meta.Created = time.Now()

	tx, err := h.GetTransaction()
	if err != nil {
		return http.StatusInternalServerError, err
	}
	defer tx.Rollback()

	createdBy := sql.NullInt64{Int64: ac.UserID, Valid: ac.UserID > 0}

	err = tx.QueryRow(`
INSERT INTO leads (
    agent_id, listing_id, name, email, phone,
    source, status, message, created, created_by
) VALUES (
    $1, $2, $3, $4, $5,
    $6, $7, $8, $9, $10
) RETURNING lead_id`,
		m.AgentID,
		m.ListingIDNull,
		m.Name,
		m.Email,
		m.Phone,

		m.Source,
		m.Status,
		m.Message,
		m.Meta.Created,
		createdBy,
	).Scan(
		&m.ID,
	)
	if err != nil {
		return http.StatusInternalServerError,
			fmt.Errorf("Error inserting data and returning ID: %+v", err)
	}

	err = tx.Commit()
	if err != nil {
		return http.StatusInternalServerError,
			fmt.Errorf("Transaction failed: %v", err.Error())
	}

	ac.mutated(
		h.ItemTypes[h.ItemTypeLead], m.ID, m.AgentID, ActionCreated,
		fmt.Sprintf("New lead %s", m.Name),
	)

	return http.StatusOK, nil
}

// Submit records a lead from the public enquiry form and tells the agent
// about it
func (m *LeadType) Submit(ac AuthContext) (int, error) {
	m.Status = LeadStatusNew
	if m.Source == "" {
		m.Source = LeadSourceWebsite
	}

	status, err := m.resolveAgent()
	if err != nil {
		return status, err
	}

	// Enquiries from reported spammers are kept but nobody is told of them
	spam := ac.UserID <= 0 && IsKnownSpammer(context.Background(), m.Email)
	if spam {
		m.Status = LeadStatusLost
	}

	status, err = m.Insert(ac)
	if err != nil {
		return status, err
	}

	if !spam {
		go m.notifyAgent()
	}

	return http.StatusOK, nil
}

// leadLookups find the agent a public enquiry goes to. Tests replace them.
var leadLookups = struct {
	listing func(id int64) (ListingType, int, error)
	agent   func(id int64) (AgentType, int, error)
}{
	listing: GetListing,
	agent:   GetAgent,
}

// resolveAgent routes an enquiry about a listing to the listing agent. An
// enquiry without a listing goes to the agent the visitor chose, who must
// exist.
func (m *LeadType) resolveAgent() (int, error) {
	if m.ListingID > 0 {
		listing, status, err := leadLookups.listing(m.ListingID)
		if err != nil {
			return status, err
		}
		m.AgentID = listing.AgentID
		return http.StatusOK, nil
	}

	if m.AgentID <= 0 {
		return http.StatusBadRequest,
			fmt.Errorf("You must specify a listing or an agent")
	}

	_, status, err := leadLookups.agent(m.AgentID)
	if err != nil {
		if status == http.StatusNotFound {
			return http.StatusBadRequest,
				fmt.Errorf("Agent (%d) does not exist", m.AgentID)
		}
		return status, err
	}

	return http.StatusOK, nil
}

var (
	leadSubjectTemplate = template.Must(template.New("subject").Parse(
		`New enquiry from {{.Lead.Name}}`))

	leadTextTemplate = template.Must(template.New("text").Parse(
		`Hi {{.Agent.DisplayName}},

{{.Lead.Name}} <{{.Lead.Email}}>{{if .Lead.Phone}} ({{.Lead.Phone}}){{end}} sent an enquiry{{if .ListingTitle}} about {{.ListingTitle}}{{end}}:

{{.Lead.Message}}

{{.LeadURL}}
`))

	leadHTMLTemplate = template.Must(template.New("html").Parse(
		`<p>Hi {{.Agent.DisplayName | html}},</p>
<p><strong>{{.Lead.Name | html}}</strong> &lt;{{.Lead.Email | html}}&gt;{{if .Lead.Phone}} ({{.Lead.Phone | html}}){{end}} sent an enquiry{{if .ListingTitle}} about {{.ListingTitle | html}}{{end}}:</p>
<blockquote>{{.Lead.Message | html}}</blockquote>
<p><a href="{{.LeadURL}}">View the lead</a></p>`))
)

func (m *LeadType) notifyAgent() {
	agent, _, err := GetAgent(m.AgentID)
	if err != nil {
		glog.Errorf("GetAgent(%d) %+v", m.AgentID, err)
		return
	}

	data := struct {
		Agent        AgentType
		Lead         LeadType
		ListingTitle string
		LeadURL      string
	}{
		Agent:   agent,
		Lead:    *m,
		LeadURL: fmt.Sprintf("%s/%d", h.APITypeLead, m.ID),
	}
	if m.ListingID > 0 {
		data.ListingTitle = GetListingTitle(m.ListingID)
	}

	_, err = MergeAndSendEmail(
		EmailKindLeadNotification,
		m.Email,
		agent.Email,
		leadSubjectTemplate,
		leadTextTemplate,
		leadHTMLTemplate,
		data,
	)
	if err != nil {
		glog.Errorf("MergeAndSendEmail(lead %d) %+v", m.ID, err)
	}

	users, err := GetAgentUsers(m.AgentID)
	if err != nil {
		glog.Errorf("GetAgentUsers(%d) %+v", m.AgentID, err)
		return
	}
	for _, userID := range users {
		_, _, err := CreateNotification(
			userID,
			NotificationKindNewLead,
			fmt.Sprintf("New enquiry from %s", m.Name),
			h.ItemTypes[h.ItemTypeLead],
			m.ID,
		)
		if err != nil {
			glog.Errorf("CreateNotification(%d) %+v", userID, err)
		}
	}
}

// Update saves changes to a lead
func (m *LeadType) Update(ac AuthContext) (int, error) {
	status, err := m.Validate(true)
	if err != nil {
		return status, err
	}

	m.Meta.SetEdited(ac.UserID, time.Now())

	tx, err := h.GetTransaction()
	if err != nil {
		return http.StatusInternalServerError, err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
UPDATE leads
   SET agent_id = $2
      ,listing_id = $3
      ,name = $4
      ,email = $5
      ,phone = $6
      ,source = $7
      ,status = $8
      ,message = $9
      ,edited = $10
      ,edited_by = $11
 WHERE lead_id = $1`,
		m.ID,
		m.AgentID,
		m.ListingIDNull,
		m.Name,
		m.Email,
		m.Phone,
		m.Source,
		m.Status,
		m.Message,
		m.Meta.EditedNullable,
		m.Meta.EditedByNullable,
	)
	if err != nil {
		return http.StatusInternalServerError,
			fmt.Errorf("Update of lead failed: %v", err.Error())
	}

	err = tx.Commit()
	if err != nil {
		return http.StatusInternalServerError,
			fmt.Errorf("Transaction failed: %v", err.Error())
	}

	ac.mutated(
		h.ItemTypes[h.ItemTypeLead], m.ID, m.AgentID, ActionUpdated,
		fmt.Sprintf("Updated lead %s", m.Name),
	)

	return http.StatusOK, nil
}

// UpdateStatus moves the lead to another stage of the pipeline
func (m *LeadType) UpdateStatus(ac AuthContext, status string) (int, error) {
	if !IsValidLeadStatus(status) {
		return http.StatusBadRequest,
			e.New(ac.UserID, "LeadType.UpdateStatus", e.OutOfRange,
				fmt.Sprintf("Status (%s) must be one of %v", status, LeadStatuses))
	}

	if m.Status == status {
		return http.StatusOK, nil
	}

	m.Meta.SetEdited(ac.UserID, time.Now())

	db, err := h.GetConnection()
	if err != nil {
		return http.StatusInternalServerError, err
	}

	_, err = db.Exec(`
UPDATE leads
   SET status = $2
      ,edited = $3
      ,edited_by = $4
 WHERE lead_id = $1`,
		m.ID,
		status,
		m.Meta.EditedNullable,
		m.Meta.EditedByNullable,
	)
	if err != nil {
		return http.StatusInternalServerError,
			fmt.Errorf("Update failed: %v", err.Error())
	}

	from := m.Status
	m.Status = status

	ac.mutated(
		h.ItemTypes[h.ItemTypeLead], m.ID, m.AgentID, ActionStatusChanged,
		fmt.Sprintf("Moved %s from %s to %s", m.Name, from, status),
	)

	return http.StatusOK, nil
}

// Patch partially updates a lead, only /status is supported
func (m *LeadType) Patch(ac AuthContext, patches []h.PatchType) (int, error) {
	for _, patch := range patches {
		status, err := patch.ScanRawValue()
		if err != nil {
			return status, err
		}

		switch patch.Path {
		case "/status":
			if !patch.String.Valid {
				return http.StatusBadRequest, fmt.Errorf("status must be a string")
			}
			status, err = m.UpdateStatus(ac, patch.String.String)
			if err != nil {
				return status, err
			}
		default:
			return http.StatusBadRequest,
				fmt.Errorf("Unsupported path in patch replace operation")
		}
	}

	return http.StatusOK, nil
}

// AddNote appends a private note to the lead
func (m *LeadType) AddNote(ac AuthContext, note string) (LeadNoteType, int, error) {
	note = strings.TrimSpace(SanitiseText(note))
	if note == "" {
		return LeadNoteType{}, http.StatusBadRequest, fmt.Errorf("Note cannot be empty")
	}

	n := LeadNoteType{
		LeadID:      m.ID,
		Note:        note,
		CreatedByID: ac.UserID,
	}

	db, err := h.GetConnection()
	if err != nil {
		return LeadNoteType{}, http.StatusInternalServerError, err
	}

	err = db.QueryRow(`
INSERT INTO lead_notes (
    lead_id, note, created_by
) VALUES (
    $1, $2, $3
) RETURNING note_id, created`,
		n.LeadID,
		n.Note,
		n.CreatedByID,
	).Scan(
		&n.ID,
		&n.Created,
	)
	if err != nil {
		return LeadNoteType{}, http.StatusInternalServerError,
			fmt.Errorf("Error inserting data and returning ID: %+v", err)
	}

	ac.mutated(
		h.ItemTypes[h.ItemTypeLead], m.ID, m.AgentID, ActionNoteAdded,
		fmt.Sprintf("Added a note to %s", m.Name),
	)

	return n, http.StatusOK, nil
}

// Delete soft deletes a lead
func (m *LeadType) Delete(ac AuthContext) (int, error) {
	db, err := h.GetConnection()
	if err != nil {
		return http.StatusInternalServerError, err
	}

	_, err = db.Exec(`
UPDATE leads
   SET is_deleted = true
 WHERE lead_id = $1`,
		m.ID,
	)
	if err != nil {
		return http.StatusInternalServerError,
			fmt.Errorf("Delete failed: %v", err.Error())
	}

	ac.mutated(
		h.ItemTypes[h.ItemTypeLead], m.ID, m.AgentID, ActionDeleted,
		fmt.Sprintf("Removed lead %s", m.Name),
	)

	return http.StatusOK, nil
}

// GetLead returns a lead with its notes
func GetLead(id int64) (LeadType, int, error) {
	if id == 0 {
		return LeadType{}, http.StatusNotFound, fmt.Errorf("Lead not found")
	}

	mcKey := fmt.Sprintf(mcLeadKeys[c.CacheDetail], id)
	var m LeadType
	if !c.Get(mcKey, &m) {
		db, err := h.GetConnection()
		if err != nil {
			return LeadType{}, http.StatusInternalServerError, err
		}

		var createdBy sql.NullInt64
		err = db.QueryRow(`
SELECT lead_id
      ,agent_id
      ,listing_id
      ,name
      ,email

      ,phone
      ,source
      ,status
      ,message
      ,created

      ,created_by
      ,edited
      ,edited_by
      ,is_deleted
  FROM leads
 WHERE lead_id = $1`,
			id,
		).Scan(
			&m.ID,
			&m.AgentID,
			&m.ListingIDNull,
			&m.Name,
			&m.Email,

			&m.Phone,
			&m.Source,
			&m.Status,
			&m.Message,
			&m.Meta.Created,

			&createdBy,
			&m.Meta.EditedNullable,
			&m.Meta.EditedByNullable,
			&m.Meta.Flags.Deleted,
		)
		if err == sql.ErrNoRows {
			return LeadType{}, http.StatusNotFound,
				fmt.Errorf("Lead with ID %d not found", id)
		} else if err != nil {
			glog.Errorf("db.QueryRow(%d) %+v", id, err)
			return LeadType{}, http.StatusInternalServerError,
				fmt.Errorf("Database query failed")
		}

		if m.ListingIDNull.Valid {
			m.ListingID = m.ListingIDNull.Int64
		}
		if createdBy.Valid {
			m.Meta.CreatedByID = createdBy.Int64
		}
		m.Meta.Resolve()
		m.Meta.Flags.SetVisible()
		m.Meta.Links = []h.LinkType{
			h.GetLink("self", "", h.ItemTypeLead, m.ID),
			h.GetLink("agent", "", h.ItemTypeAgent, m.AgentID),
		}
		if m.ListingID > 0 {
			m.Meta.Links = append(m.Meta.Links,
				h.GetLink("listing", GetListingTitle(m.ListingID), h.ItemTypeListing, m.ListingID))
		}

		notes, status, err := getLeadNotes(db, m.ID)
		if err != nil {
			return LeadType{}, status, err
		}
		m.Notes = notes

		fields, status, err := GetFields(h.ItemTypes[h.ItemTypeLead], m.ID)
		if err != nil {
			return LeadType{}, status, err
		}
		m.Fields = fields

		c.Set(mcKey, m, mcTTL)
	}

	if m.Meta.Flags.Deleted {
		return m, http.StatusNotFound,
			e.New(0, "GetLead", e.Deleted, fmt.Sprintf("Lead %d has been deleted", id))
	}

	return m, http.StatusOK, nil
}

func getLeadNotes(db *sql.DB, leadID int64) ([]LeadNoteType, int, error) {
	rows, err := db.Query(`
SELECT note_id
      ,lead_id
      ,note
      ,created
      ,created_by
  FROM lead_notes
 WHERE lead_id = $1
 ORDER BY created DESC`,
		leadID,
	)
	if err != nil {
		return []LeadNoteType{}, http.StatusInternalServerError,
			fmt.Errorf("Database query failed: %v", err.Error())
	}
	defer rows.Close()

	ems := []LeadNoteType{}
	for rows.Next() {
		var m LeadNoteType
		err = rows.Scan(
			&m.ID,
			&m.LeadID,
			&m.Note,
			&m.Created,
			&m.CreatedByID,
		)
		if err != nil {
			return []LeadNoteType{}, http.StatusInternalServerError,
				fmt.Errorf("Row parsing error: %v", err.Error())
		}
		ems = append(ems, m)
	}
	err = rows.Err()
	if err != nil {
		return []LeadNoteType{}, http.StatusInternalServerError,
			fmt.Errorf("Error fetching rows: %v", err.Error())
	}

	return ems, http.StatusOK, nil
}

// GetLeads returns a page of leads matching the filter, newest first. A
// limit of zero returns every lead.
func GetLeads(
	filter LeadFilter,
	limit int64,
	offset int64,
) (
	[]LeadType,
	int64,
	int,
	error,
) {
	db, err := h.GetConnection()
	if err != nil {
		return []LeadType{}, 0, http.StatusInternalServerError, err
	}

	var since interface{}
	if !filter.Since.IsZero() {
		since = filter.Since
	}
	var lim interface{}
	if limit > 0 {
		lim = limit
	}

	rows, err := db.Query(`--GetLeads
SELECT COUNT(*) OVER() AS total
      ,lead_id
  FROM leads
 WHERE is_deleted IS NOT TRUE
   AND ($1 = 0 OR agent_id = $1)
   AND ($2 = '' OR status = $2)
   AND ($3 = '' OR source = $3)
   AND ($4 = 0 OR listing_id = $4)
   AND ($5::timestamptz IS NULL OR created >= $5)
 ORDER BY created DESC
 LIMIT $6
OFFSET $7`,
		filter.AgentID,
		filter.Status,
		filter.Source,
		filter.ListingID,
		since,
		lim,
		offset,
	)
	if err != nil {
		return []LeadType{}, 0, http.StatusInternalServerError,
			fmt.Errorf("Database query failed: %v", err.Error())
	}
	defer rows.Close()

	var (
		total int64
		ids   []int64
	)
	for rows.Next() {
		var id int64
		err = rows.Scan(&total, &id)
		if err != nil {
			return []LeadType{}, 0, http.StatusInternalServerError,
				fmt.Errorf("Row parsing error: %v", err.Error())
		}
		ids = append(ids, id)
	}
	err = rows.Err()
	if err != nil {
		return []LeadType{}, 0, http.StatusInternalServerError,
			fmt.Errorf("Error fetching rows: %v", err.Error())
	}
	rows.Close()

	if limit > 0 && offset > h.GetMaxOffset(total, limit) {
		return []LeadType{}, 0, http.StatusBadRequest,
			fmt.Errorf("not enough records, offset (%d) would return an empty page", offset)
	}

	ems := []LeadType{}
	for _, id := range ids {
		m, status, err := GetLead(id)
		if err != nil {
			return []LeadType{}, 0, status, err
		}
		ems = append(ems, m)
	}

	return ems, total, http.StatusOK, nil
}
