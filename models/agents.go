package models

import (
	"database/sql"
	"fmt"
	"net/http"
	"net/mail"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/golang/glog"

	c "github.com/happyplace/dashboard/cache"
	e "github.com/happyplace/dashboard/errors"
	h "github.com/happyplace/dashboard/helpers"
)

var phoneRegex = regexp.MustCompile(`^\+?[0-9 ().-]{7,20}$`)

// AgentsType is a collection of agents
type AgentsType struct {
	Agents h.ArrayType    `json:"agents"`
	Meta   h.CoreMetaType `json:"meta"`
}

// SocialLinksType are an agent's public profiles
type SocialLinksType struct {
	Website   string `json:"website,omitempty"`
	Facebook  string `json:"facebook,omitempty"`
	Instagram string `json:"instagram,omitempty"`
	LinkedIn  string `json:"linkedin,omitempty"`
}

// AgentType is the public profile of an agent
type AgentType struct {
	ID            int64           `json:"id"`
	UserIDNull    sql.NullInt64   `json:"-"`
	UserID        int64           `json:"userId,omitempty"`
	DisplayName   string          `json:"displayName"`
	Email         string          `json:"email"`
	Phone         string          `json:"phone,omitempty"`
	LicenseNumber string          `json:"licenseNumber,omitempty"`
	Bio           string          `json:"bio,omitempty"`
	BioHTML       string          `json:"html,omitempty"`
	Office        string          `json:"office,omitempty"`
	PhotoURL      string          `json:"photoUrl,omitempty"`
	Social        SocialLinksType `json:"social"`
	Fields        []FieldType     `json:"fields,omitempty"`

	Meta h.DefaultMetaType `json:"meta"`
}

// ValidatePhone normalises and checks a phone number, empty is valid
func ValidatePhone(phone string) (string, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return "", nil
	}
	if !phoneRegex.MatchString(phone) {
		return "", fmt.Errorf("%s is not a valid phone number", phone)
	}
	return phone, nil
}

// ValidateURL checks a link is absolute http(s), empty is valid
func ValidateURL(link string) (string, error) {
	link = strings.TrimSpace(link)
	if link == "" {
		return "", nil
	}
	u, err := url.Parse(link)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%s is not a valid URL", link)
	}
	return u.String(), nil
}

// Validate returns an error if the agent cannot be saved
func (m *AgentType) Validate(exists bool) (int, error) {
	m.DisplayName = strings.TrimSpace(SanitiseText(m.DisplayName))
	m.Email = strings.ToLower(strings.TrimSpace(m.Email))
	m.LicenseNumber = strings.TrimSpace(SanitiseText(m.LicenseNumber))
	m.Office = strings.TrimSpace(SanitiseText(m.Office))

	if exists && m.ID <= 0 {
		return http.StatusBadRequest, fmt.Errorf("Agent ID is required")
	}

	if m.DisplayName == "" {
		return http.StatusBadRequest, fmt.Errorf("Display name is a required field")
	}

	if _, err := mail.ParseAddress(m.Email); err != nil {
		return http.StatusBadRequest,
			e.New(0, "AgentType.Validate", e.InvalidContent,
				fmt.Sprintf("%s is not a valid email address", m.Email))
	}

	var err error
	m.Phone, err = ValidatePhone(m.Phone)
	if err != nil {
		return http.StatusBadRequest, err
	}

	for _, link := range []*string{
		&m.PhotoURL,
		&m.Social.Website,
		&m.Social.Facebook,
		&m.Social.Instagram,
		&m.Social.LinkedIn,
	} {
		*link, err = ValidateURL(*link)
		if err != nil {
			return http.StatusBadRequest, err
		}
	}

	m.BioHTML = ProcessMarkdown(m.Bio)

	if m.UserID > 0 {
		m.UserIDNull = sql.NullInt64{Int64: m.UserID, Valid: true}
	} else {
		m.UserIDNull = sql.NullInt64{}
	}

	m.Meta.Flags.SetVisible()

	return http.StatusOK, nil
}

// Insert saves a new agent
func (m *AgentType) Insert(ac AuthContext) (int, error) {
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

	err = tx.QueryRow(`
INSERT INTO agents (
    user_id, display_name, email, phone, license_number,
    bio, bio_html, office, photo_url, website_url,
    facebook_url, instagram_url, linkedin_url, created, created_by
) VALUES (
    $1, $2, $3, $4, $5,
    $6, $7, $8, $9, $10,
    $11, $12, $13, $14, $15
) RETURNING agent_id`,
		m.UserIDNull,
		m.DisplayName,
		m.Email,
		m.Phone,
		m.LicenseNumber,

		m.Bio,
		m.BioHTML,
		m.Office,
		m.PhotoURL,
		m.Social.Website,

		m.Social.Facebook,
		m.Social.Instagram,
		m.Social.LinkedIn,
		m.Meta.Created,
		m.Meta.CreatedByID,
	).Scan(
		&m.ID,
	)
	if err != nil {
		return http.StatusInternalServerError,
			fmt.Errorf("Error inserting data and returning ID: %+v", err)
	}

	// The user acts as this agent from now on
	if m.UserIDNull.Valid {
		_, err = tx.Exec(`
UPDATE users
   SET agent_id = $2
 WHERE user_id = $1`,
			m.UserID,
			m.ID,
		)
		if err != nil {
			return http.StatusInternalServerError,
				fmt.Errorf("Could not link user to agent: %v", err.Error())
		}
	}

	err = tx.Commit()
	if err != nil {
		return http.StatusInternalServerError,
			fmt.Errorf("Transaction failed: %v", err.Error())
	}

	if m.UserIDNull.Valid {
		PurgeCache(h.ItemTypes[h.ItemTypeUser], m.UserID)
		if err := PurgeUserAccessTokens(m.UserID); err != nil {
			glog.Errorf("PurgeUserAccessTokens(%d) %+v", m.UserID, err)
		}
	}

	ac.mutated(
		h.ItemTypes[h.ItemTypeAgent], m.ID, m.ID, ActionCreated,
		fmt.Sprintf("Added agent %s", m.DisplayName),
	)

	return http.StatusOK, nil
}

// Update saves the agent's profile
func (m *AgentType) Update(ac AuthContext) (int, error) {
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
UPDATE agents
   SET display_name = $2
      ,email = $3
      ,phone = $4
      ,license_number = $5
      ,bio = $6
      ,bio_html = $7
      ,office = $8
      ,photo_url = $9
      ,website_url = $10
      ,facebook_url = $11
      ,instagram_url = $12
      ,linkedin_url = $13
      ,edited = $14
      ,edited_by = $15
 WHERE agent_id = $1`,
		m.ID,
		m.DisplayName,
		m.Email,
		m.Phone,
		m.LicenseNumber,
		m.Bio,
		m.BioHTML,
		m.Office,
		m.PhotoURL,
		m.Social.Website,
		m.Social.Facebook,
		m.Social.Instagram,
		m.Social.LinkedIn,
		m.Meta.EditedNullable,
		m.Meta.EditedByNullable,
	)
	if err != nil {
		return http.StatusInternalServerError,
			fmt.Errorf("Update of agent failed: %v", err.Error())
	}

	err = tx.Commit()
	if err != nil {
		return http.StatusInternalServerError,
			fmt.Errorf("Transaction failed: %v", err.Error())
	}

	ac.mutated(
		h.ItemTypes[h.ItemTypeAgent], m.ID, m.ID, ActionUpdated,
		fmt.Sprintf("Updated the profile of %s", m.DisplayName),
	)

	return http.StatusOK, nil
}

// Delete soft deletes the agent
func (m *AgentType) Delete(ac AuthContext) (int, error) {
	db, err := h.GetConnection()
	if err != nil {
		return http.StatusInternalServerError, err
	}

	_, err = db.Exec(`
UPDATE agents
   SET is_deleted = true
 WHERE agent_id = $1`,
		m.ID,
	)
	if err != nil {
		return http.StatusInternalServerError,
			fmt.Errorf("Delete failed: %v", err.Error())
	}

	ac.mutated(
		h.ItemTypes[h.ItemTypeAgent], m.ID, m.ID, ActionDeleted,
		fmt.Sprintf("Removed agent %s", m.DisplayName),
	)

	return http.StatusOK, nil
}

// GetAgent returns an agent
func GetAgent(id int64) (AgentType, int, error) {
	if id == 0 {
		return AgentType{}, http.StatusNotFound, fmt.Errorf("Agent not found")
	}

	mcKey := fmt.Sprintf(mcAgentKeys[c.CacheDetail], id)
	var m AgentType
	if !c.Get(mcKey, &m) {
		db, err := h.GetConnection()
		if err != nil {
			return AgentType{}, http.StatusInternalServerError, err
		}

		err = db.QueryRow(`
SELECT agent_id
      ,user_id
      ,display_name
      ,email
      ,phone

      ,license_number
      ,bio
      ,bio_html
      ,office
      ,photo_url

      ,website_url
      ,facebook_url
      ,instagram_url
      ,linkedin_url
      ,created

      ,created_by
      ,edited
      ,edited_by
      ,is_deleted
  FROM agents
 WHERE agent_id = $1`,
			id,
		).Scan(
			&m.ID,
			&m.UserIDNull,
			&m.DisplayName,
			&m.Email,
			&m.Phone,

			&m.LicenseNumber,
			&m.Bio,
			&m.BioHTML,
			&m.Office,
			&m.PhotoURL,

			&m.Social.Website,
			&m.Social.Facebook,
			&m.Social.Instagram,
			&m.Social.LinkedIn,
			&m.Meta.Created,

			&m.Meta.CreatedByID,
			&m.Meta.EditedNullable,
			&m.Meta.EditedByNullable,
			&m.Meta.Flags.Deleted,
		)
		if err == sql.ErrNoRows {
			return AgentType{}, http.StatusNotFound,
				fmt.Errorf("Agent with ID %d not found", id)
		} else if err != nil {
			glog.Errorf("db.QueryRow(%d) %+v", id, err)
			return AgentType{}, http.StatusInternalServerError,
				fmt.Errorf("Database query failed")
		}

		if m.UserIDNull.Valid {
			m.UserID = m.UserIDNull.Int64
		}
		m.Meta.Resolve()
		m.Meta.Flags.SetVisible()
		m.Meta.Links = []h.LinkType{
			h.GetLink("self", "", h.ItemTypeAgent, m.ID),
		}

		fields, status, err := GetFields(h.ItemTypes[h.ItemTypeAgent], m.ID)
		if err != nil {
			return AgentType{}, status, err
		}
		m.Fields = fields

		c.Set(mcKey, m, mcTTL)
	}

	if m.Meta.Flags.Deleted {
		return m, http.StatusNotFound,
			e.New(0, "GetAgent", e.Deleted, fmt.Sprintf("Agent %d has been deleted", id))
	}

	return m, http.StatusOK, nil
}

// GetAgents returns a page of agents
func GetAgents(limit int64, offset int64) ([]AgentType, int64, int, error) {
	db, err := h.GetConnection()
	if err != nil {
		return []AgentType{}, 0, http.StatusInternalServerError, err
	}

	rows, err := db.Query(`
SELECT COUNT(*) OVER() AS total
      ,agent_id
  FROM agents
 WHERE is_deleted IS NOT TRUE
 ORDER BY display_name, agent_id
 LIMIT $1
OFFSET $2`,
		limit,
		offset,
	)
	if err != nil {
		return []AgentType{}, 0, http.StatusInternalServerError,
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
			return []AgentType{}, 0, http.StatusInternalServerError,
				fmt.Errorf("Row parsing error: %v", err.Error())
		}
		ids = append(ids, id)
	}
	err = rows.Err()
	if err != nil {
		return []AgentType{}, 0, http.StatusInternalServerError,
			fmt.Errorf("Error fetching rows: %v", err.Error())
	}
	rows.Close()

	if offset > h.GetMaxOffset(total, limit) {
		return []AgentType{}, 0, http.StatusBadRequest,
			fmt.Errorf("not enough records, offset (%d) would return an empty page", offset)
	}

	ems := []AgentType{}
	for _, id := range ids {
		m, status, err := GetAgent(id)
		if err != nil {
			return []AgentType{}, 0, status, err
		}
		m.Bio = ""
		ems = append(ems, m)
	}

	return ems, total, http.StatusOK, nil
}

// GetAgentUsers returns the IDs of the users acting for an agent, the agent
// themselves and any assistants
func GetAgentUsers(agentID int64) ([]int64, error) {
	db, err := h.GetConnection()
	if err != nil {
		return nil, err
	}

	rows, err := db.Query(`
SELECT user_id
  FROM users
 WHERE agent_id = $1
   AND is_banned IS NOT TRUE`,
		agentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		err = rows.Scan(&id)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}
