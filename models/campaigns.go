package models

import (
	"database/sql"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"github.com/golang/glog"
	"github.com/lib/pq"

	c "github.com/happyplace/dashboard/cache"
	e "github.com/happyplace/dashboard/errors"
	h "github.com/happyplace/dashboard/helpers"
)

// Campaign statuses
const (
	CampaignStatusDraft     string = "draft"
	CampaignStatusScheduled string = "scheduled"
	CampaignStatusSent      string = "sent"
)

// CampaignsType is a collection of campaigns
type CampaignsType struct {
	Campaigns h.ArrayType    `json:"campaigns"`
	Meta      h.CoreMetaType `json:"meta"`
}

// CampaignType is an email sent to many leads at once. The body is markdown
// and may contain merge tokens such as {first_name}.
type CampaignType struct {
	ID                   int64       `json:"id"`
	AgentID              int64       `json:"agentId"`
	Name                 string      `json:"name"`
	Subject              string      `json:"subject"`
	Body                 string      `json:"body"`
	BodyHTML             string      `json:"html"`
	RecipientStatus      string      `json:"recipientStatus,omitempty"`
	Status               string      `json:"status"`
	ScheduledForNullable pq.NullTime `json:"-"`
	ScheduledFor         *time.Time  `json:"scheduledFor,omitempty"`
	SentNullable         pq.NullTime `json:"-"`
	Sent                 *time.Time  `json:"sent,omitempty"`
	SentCount            int64       `json:"sentCount"`

	Meta h.DefaultMetaType `json:"meta"`
}

// CampaignMergeTokens are replaced in the subject and body of each email
var CampaignMergeTokens = []string{
	"{first_name}",
	"{name}",
	"{agent_name}",
	"{agent_email}",
	"{agent_phone}",
}

// Validate returns an error if the campaign cannot be saved
func (m *CampaignType) Validate(exists bool) (int, error) {
	m.Name = strings.TrimSpace(SanitiseText(m.Name))
	m.Subject = strings.TrimSpace(StripControlChars(m.Subject))
	m.Body = strings.TrimSpace(m.Body)

	if exists && m.ID <= 0 {
		return http.StatusBadRequest, fmt.Errorf("Campaign ID is required")
	}

	if m.AgentID <= 0 {
		return http.StatusBadRequest, fmt.Errorf("You must specify an agent")
	}

	if m.Name == "" {
		return http.StatusBadRequest, fmt.Errorf("Name is a required field")
	}
	if m.Subject == "" {
		return http.StatusBadRequest, fmt.Errorf("Subject is a required field")
	}
	if m.Body == "" {
		return http.StatusBadRequest, fmt.Errorf("Body is a required field")
	}

	if m.RecipientStatus != "" && !IsValidLeadStatus(m.RecipientStatus) {
		return http.StatusBadRequest,
			e.New(0, "CampaignType.Validate", e.OutOfRange,
				fmt.Sprintf("Recipient status (%s) must be one of %v", m.RecipientStatus, LeadStatuses))
	}

	if m.Status == CampaignStatusSent {
		return http.StatusConflict,
			e.New(0, "CampaignType.Validate", e.AlreadySent,
				"A campaign that has been sent cannot be changed")
	}

	if m.ScheduledFor != nil && !m.ScheduledFor.IsZero() {
		m.Status = CampaignStatusScheduled
		m.ScheduledForNullable = pq.NullTime{Time: *m.ScheduledFor, Valid: true}
	} else {
		m.Status = CampaignStatusDraft
		m.ScheduledFor = nil
		m.ScheduledForNullable = pq.NullTime{}
	}

	m.BodyHTML = ProcessMarkdown(m.Body)

	m.Meta.Flags.SetVisible()

	return http.StatusOK, nil
}

// Insert saves a new campaign
func (m *CampaignType) Insert(ac AuthContext) (int, error) {
	status, err := m.Validate(false)
	if err != nil {
		return status, err
	}

	m.Meta.CreatedByID = ac.UserID
	m.Meta.Created = time.Now()

	db, err := h.GetConnection()
	if err != nil {
		return http.StatusInternalServerError, err
	}

	err = db.QueryRow(`
INSERT INTO campaigns (
    agent_id, name, subject, body, body_html,
    recipient_status, status, scheduled_for, created, created_by
) VALUES (
    $1, $2, $3, $4, $5,
    $6, $7, $8, $9, $10
) RETURNING campaign_id`,
		m.AgentID,
		m.Name,
		m.Subject,
		m.Body,
		m.BodyHTML,

		m.RecipientStatus,
		m.Status,
		m.ScheduledForNullable,
		m.Meta.Created,
		m.Meta.CreatedByID,
	).Scan(
		&m.ID,
	)
	if err != nil {
		return http.StatusInternalServerError,
			fmt.Errorf("Error inserting data and returning ID: %+v", err)
	}

	ac.mutated(
		h.ItemTypes[h.ItemTypeCampaign], m.ID, m.AgentID, ActionCreated,
		fmt.Sprintf("Created campaign %s", m.Name),
	)

	return http.StatusOK, nil
}

// Update saves changes to a campaign that has not been sent
func (m *CampaignType) Update(ac AuthContext) (int, error) {
	status, err := m.Validate(true)
	if err != nil {
		return status, err
	}

	m.Meta.SetEdited(ac.UserID, time.Now())

	db, err := h.GetConnection()
	if err != nil {
		return http.StatusInternalServerError, err
	}

	res, err := db.Exec(`
UPDATE campaigns
   SET name = $2
      ,subject = $3
      ,body = $4
      ,body_html = $5
      ,recipient_status = $6
      ,status = $7
      ,scheduled_for = $8
      ,edited = $9
      ,edited_by = $10
 WHERE campaign_id = $1
   AND status <> 'sent'`,
		m.ID,
		m.Name,
		m.Subject,
		m.Body,
		m.BodyHTML,
		m.RecipientStatus,
		m.Status,
		m.ScheduledForNullable,
		m.Meta.EditedNullable,
		m.Meta.EditedByNullable,
	)
	if err != nil {
		return http.StatusInternalServerError,
			fmt.Errorf("Update of campaign failed: %v", err.Error())
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return http.StatusConflict,
			e.New(ac.UserID, "CampaignType.Update", e.AlreadySent,
				fmt.Sprintf("Campaign %d has already been sent", m.ID))
	}

	ac.mutated(
		h.ItemTypes[h.ItemTypeCampaign], m.ID, m.AgentID, ActionUpdated,
		fmt.Sprintf("Updated campaign %s", m.Name),
	)

	return http.StatusOK, nil
}

// Delete soft deletes a campaign
func (m *CampaignType) Delete(ac AuthContext) (int, error) {
	db, err := h.GetConnection()
	if err != nil {
		return http.StatusInternalServerError, err
	}

	_, err = db.Exec(`
UPDATE campaigns
   SET is_deleted = true
 WHERE campaign_id = $1`,
		m.ID,
	)
	if err != nil {
		return http.StatusInternalServerError,
			fmt.Errorf("Delete failed: %v", err.Error())
	}

	ac.mutated(
		h.ItemTypes[h.ItemTypeCampaign], m.ID, m.AgentID, ActionDeleted,
		fmt.Sprintf("Removed campaign %s", m.Name),
	)

	return http.StatusOK, nil
}

// Compliance scans the subject and body for fair housing problems
func (m *CampaignType) Compliance() ComplianceResultType {
	return CheckCompliance(m.Subject, m.Body)
}

// MergeCampaign fills the merge tokens for one lead. Values placed into the
// HTML part are escaped.
func MergeCampaign(m CampaignType, lead LeadType, agent AgentType) (string, string, string) {
	values := []string{
		lead.FirstName(),
		lead.Name,
		agent.DisplayName,
		agent.Email,
		agent.Phone,
	}

	var plain, escaped []string
	for i, token := range CampaignMergeTokens {
		plain = append(plain, token, values[i])
		escaped = append(escaped, token, html.EscapeString(values[i]))
	}
	text := strings.NewReplacer(plain...)

	return text.Replace(m.Subject),
		text.Replace(m.Body),
		strings.NewReplacer(escaped...).Replace(m.BodyHTML)
}

// Send emails the campaign to every matching lead of the agent. A campaign
// is claimed before the first email so that it is only ever sent once.
func (m *CampaignType) Send(ac AuthContext) (int, error) {
	if m.Status == CampaignStatusSent {
		return http.StatusConflict,
			e.New(ac.UserID, "CampaignType.Send", e.AlreadySent,
				fmt.Sprintf("Campaign %d has already been sent", m.ID))
	}

	result := m.Compliance()
	if !result.Passed() {
		phrases := []string{}
		for _, v := range result.Violations {
			phrases = append(phrases, v.Phrase)
		}
		return http.StatusUnprocessableEntity,
			e.New(ac.UserID, "CampaignType.Send", e.ComplianceViolation,
				fmt.Sprintf("Campaign cannot be sent, it contains: %s", strings.Join(phrases, ", ")))
	}

	agent, status, err := GetAgent(m.AgentID)
	if err != nil {
		return status, err
	}

	leads, _, status, err := GetLeads(
		LeadFilter{AgentID: m.AgentID, Status: m.RecipientStatus}, 0, 0,
	)
	if err != nil {
		return status, err
	}

	db, err := h.GetConnection()
	if err != nil {
		return http.StatusInternalServerError, err
	}

	now := time.Now()
	err = db.QueryRow(`
UPDATE campaigns
   SET status = 'sent'
      ,sent = $2
 WHERE campaign_id = $1
   AND status <> 'sent'
RETURNING campaign_id`,
		m.ID,
		now,
	).Scan(new(int64))
	if err == sql.ErrNoRows {
		return http.StatusConflict,
			e.New(ac.UserID, "CampaignType.Send", e.AlreadySent,
				fmt.Sprintf("Campaign %d has already been sent", m.ID))
	} else if err != nil {
		return http.StatusInternalServerError,
			fmt.Errorf("Update failed: %v", err.Error())
	}
	PurgeCache(h.ItemTypes[h.ItemTypeCampaign], m.ID)

	var sent int64
	for _, lead := range leads {
		if !IsDeliverable(lead.Email) {
			glog.Infof("campaign %d: not delivering to %s", m.ID, lead.Email)
			continue
		}

		subject, text, body := MergeCampaign(*m, lead, agent)
		email := EmailType{
			Kind:     EmailKindCampaign,
			FromName: agent.DisplayName,
			ReplyTo:  agent.Email,
			To:       lead.Email,
			Subject:  subject,
			BodyText: text,
			BodyHTML: emailHTMLHeader + body + emailHTMLFooter,
		}
		_, err := email.Send()
		if err != nil {
			glog.Errorf("campaign %d: Send(%s) %+v", m.ID, lead.Email, err)
			continue
		}
		sent++
	}

	_, err = db.Exec(`
UPDATE campaigns
   SET sent_count = $2
 WHERE campaign_id = $1`,
		m.ID,
		sent,
	)
	if err != nil {
		glog.Errorf("campaign %d: recording sent_count %+v", m.ID, err)
	}

	m.Status = CampaignStatusSent
	m.Sent = &now
	m.SentCount = sent

	users, err := GetAgentUsers(m.AgentID)
	if err != nil {
		glog.Errorf("GetAgentUsers(%d) %+v", m.AgentID, err)
	}
	for _, userID := range users {
		_, _, err := CreateNotification(
			userID,
			NotificationKindCampaignSent,
			fmt.Sprintf("Campaign %s was sent to %d leads", m.Name, sent),
			h.ItemTypes[h.ItemTypeCampaign],
			m.ID,
		)
		if err != nil {
			glog.Errorf("CreateNotification(%d) %+v", userID, err)
		}
	}

	ac.mutated(
		h.ItemTypes[h.ItemTypeCampaign], m.ID, m.AgentID, ActionSent,
		fmt.Sprintf("Sent campaign %s to %d leads", m.Name, sent),
	)

	return http.StatusOK, nil
}

// SendScheduledCampaigns sends every campaign whose scheduled time has
// passed. It returns the number of campaigns sent.
func SendScheduledCampaigns(now time.Time) (int, error) {
	db, err := h.GetConnection()
	if err != nil {
		return 0, err
	}

	rows, err := db.Query(`
SELECT campaign_id
  FROM campaigns
 WHERE status = 'scheduled'
   AND scheduled_for <= $1
   AND is_deleted IS NOT TRUE`,
		now,
	)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		err = rows.Scan(&id)
		if err != nil {
			return 0, err
		}
		ids = append(ids, id)
	}
	err = rows.Err()
	if err != nil {
		return 0, err
	}
	rows.Close()

	var count int
	for _, id := range ids {
		m, _, err := GetCampaign(id)
		if err != nil {
			glog.Errorf("GetCampaign(%d) %+v", id, err)
			continue
		}

		// Sent on behalf of whoever scheduled it
		_, err = m.Send(AuthContext{UserID: m.Meta.CreatedByID})
		if err != nil {
			glog.Errorf("campaign %d: %+v", id, err)
			continue
		}
		count++
	}

	return count, nil
}

// GetCampaign returns a campaign
func GetCampaign(id int64) (CampaignType, int, error) {
	if id == 0 {
		return CampaignType{}, http.StatusNotFound, fmt.Errorf("Campaign not found")
	}

	mcKey := fmt.Sprintf(mcCampaignKeys[c.CacheDetail], id)
	var m CampaignType
	if !c.Get(mcKey, &m) {
		db, err := h.GetConnection()
		if err != nil {
			return CampaignType{}, http.StatusInternalServerError, err
		}

		err = db.QueryRow(`
SELECT campaign_id
      ,agent_id
      ,name
      ,subject
      ,body

      ,body_html
      ,recipient_status
      ,status
      ,scheduled_for
      ,sent

      ,sent_count
      ,created
      ,created_by
      ,edited
      ,edited_by

      ,is_deleted
  FROM campaigns
 WHERE campaign_id = $1`,
			id,
		).Scan(
			&m.ID,
			&m.AgentID,
			&m.Name,
			&m.Subject,
			&m.Body,

			&m.BodyHTML,
			&m.RecipientStatus,
			&m.Status,
			&m.ScheduledForNullable,
			&m.SentNullable,

			&m.SentCount,
			&m.Meta.Created,
			&m.Meta.CreatedByID,
			&m.Meta.EditedNullable,
			&m.Meta.EditedByNullable,

			&m.Meta.Flags.Deleted,
		)
		if err == sql.ErrNoRows {
			return CampaignType{}, http.StatusNotFound,
				fmt.Errorf("Campaign with ID %d not found", id)
		} else if err != nil {
			glog.Errorf("db.QueryRow(%d) %+v", id, err)
			return CampaignType{}, http.StatusInternalServerError,
				fmt.Errorf("Database query failed")
		}

		if m.ScheduledForNullable.Valid {
			t := m.ScheduledForNullable.Time
			m.ScheduledFor = &t
		}
		if m.SentNullable.Valid {
			t := m.SentNullable.Time
			m.Sent = &t
		}
		m.Meta.Resolve()
		m.Meta.Flags.SetVisible()
		m.Meta.Links = []h.LinkType{
			h.GetLink("self", "", h.ItemTypeCampaign, m.ID),
			h.GetLink("agent", "", h.ItemTypeAgent, m.AgentID),
		}

		c.Set(mcKey, m, mcTTL)
	}

	if m.Meta.Flags.Deleted {
		return m, http.StatusNotFound,
			e.New(0, "GetCampaign", e.Deleted, fmt.Sprintf("Campaign %d has been deleted", id))
	}

	return m, http.StatusOK, nil
}

// GetCampaigns returns a page of an agent's campaigns, newest first. An
// agent ID of zero returns the campaigns of every agent.
func GetCampaigns(
	agentID int64,
	limit int64,
	offset int64,
) (
	[]CampaignType,
	int64,
	int,
	error,
) {
	db, err := h.GetConnection()
	if err != nil {
		return []CampaignType{}, 0, http.StatusInternalServerError, err
	}

	rows, err := db.Query(`--GetCampaigns
SELECT COUNT(*) OVER() AS total
      ,campaign_id
  FROM campaigns
 WHERE is_deleted IS NOT TRUE
   AND ($1 = 0 OR agent_id = $1)
 ORDER BY created DESC
 LIMIT $2
OFFSET $3`,
		agentID,
		limit,
		offset,
	)
	if err != nil {
		return []CampaignType{}, 0, http.StatusInternalServerError,
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
			return []CampaignType{}, 0, http.StatusInternalServerError,
				fmt.Errorf("Row parsing error: %v", err.Error())
		}
		ids = append(ids, id)
	}
	err = rows.Err()
	if err != nil {
		return []CampaignType{}, 0, http.StatusInternalServerError,
			fmt.Errorf("Error fetching rows: %v", err.Error())
	}
	rows.Close()

	if offset > h.GetMaxOffset(total, limit) {
		return []CampaignType{}, 0, http.StatusBadRequest,
			fmt.Errorf("not enough records, offset (%d) would return an empty page", offset)
	}

	ems := []CampaignType{}
	for _, id := range ids {
		m, status, err := GetCampaign(id)
		if err != nil {
			return []CampaignType{}, 0, status, err
		}
		ems = append(ems, m)
	}

	return ems, total, http.StatusOK, nil
}
