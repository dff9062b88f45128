package models

import (
	"database/sql"
	"fmt"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/golang/glog"
	"github.com/lib/pq"

	c "github.com/happyplace/dashboard/cache"
	e "github.com/happyplace/dashboard/errors"
	h "github.com/happyplace/dashboard/helpers"
)

const (
	OpenHouseStatusScheduled string = "scheduled"
	OpenHouseStatusActive    string = "active"
	OpenHouseStatusCompleted string = "completed"
	OpenHouseStatusCancelled string = "cancelled"
)

// OpenHouseStatuses are the valid values of an open house status
var OpenHouseStatuses = []string{
	OpenHouseStatusScheduled,
	OpenHouseStatusActive,
	OpenHouseStatusCompleted,
	OpenHouseStatusCancelled,
}

// MaxOpenHouseDuration is the longest an open house may run
const MaxOpenHouseDuration = 12 * time.Hour

// OpenHousesType is a collection of open houses
type OpenHousesType struct {
	OpenHouses h.ArrayType    `json:"openHouses"`
	Meta       h.CoreMetaType `json:"meta"`
}

// OpenHouseType is a scheduled viewing of a listing
type OpenHouseType struct {
	ID           int64       `json:"id"`
	ListingID    int64       `json:"listingId"`
	ListingTitle string      `json:"listingTitle,omitempty"`
	AgentID      int64       `json:"agentId"`
	Starts       time.Time   `json:"starts"`
	Ends         time.Time   `json:"ends"`
	Status       string      `json:"status"`
	RSVPCount    int64       `json:"rsvpCount"`
	Notes        string      `json:"notes,omitempty"`
	Fields       []FieldType `json:"fields,omitempty"`

	Meta h.DefaultMetaType `json:"meta"`
}

// RSVPType is a visitor registering for an open house
type RSVPType struct {
	ID          int64     `json:"id"`
	OpenHouseID int64     `json:"openHouseId"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone,omitempty"`
	Created     time.Time `json:"created"`
}

// OpenHouseFilter narrows a collection of open houses
type OpenHouseFilter struct {
	AgentID   int64
	ListingID int64
	Status    string
	Upcoming  bool
}

// IsValidOpenHouseStatus reports whether s is an open house status
func IsValidOpenHouseStatus(s string) bool {
	for _, v := range OpenHouseStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// Validate returns an error if the open house cannot be saved
func (m *OpenHouseType) Validate(exists bool) (int, error) {
	m.Notes = strings.TrimSpace(SanitiseText(m.Notes))

	if exists && m.ID <= 0 {
		return http.StatusBadRequest, fmt.Errorf("Open house ID is required")
	}

	if m.ListingID <= 0 {
		return http.StatusBadRequest, fmt.Errorf("You must specify a listing")
	}
	if m.AgentID <= 0 {
		return http.StatusBadRequest, fmt.Errorf("You must specify a host agent")
	}

	if m.Starts.IsZero() || m.Ends.IsZero() {
		return http.StatusBadRequest, fmt.Errorf("Start and end times are required")
	}
	if !m.Ends.After(m.Starts) {
		return http.StatusBadRequest,
			e.New(0, "OpenHouseType.Validate", e.OutOfRange,
				"The open house must end after it starts")
	}
	if m.Ends.Sub(m.Starts) > MaxOpenHouseDuration {
		return http.StatusBadRequest,
			e.New(0, "OpenHouseType.Validate", e.OutOfRange,
				fmt.Sprintf("An open house cannot last longer than %s", MaxOpenHouseDuration))
	}
	if !exists && m.Ends.Before(time.Now()) {
		return http.StatusBadRequest,
			e.New(0, "OpenHouseType.Validate", e.OutOfRange,
				"Cannot schedule an open house in the past")
	}

	if m.Status == "" {
		m.Status = OpenHouseStatusScheduled
	}
	if !IsValidOpenHouseStatus(m.Status) {
		return http.StatusBadRequest,
			e.New(0, "OpenHouseType.Validate", e.OutOfRange,
				fmt.Sprintf("Status (%s) must be one of %v", m.Status, OpenHouseStatuses))
	}

	m.Meta.Flags.SetVisible()

	return http.StatusOK, nil
}

// Insert saves a new open house
func (m *OpenHouseType) Insert(ac AuthContext) (int, error) {
	status, err := m.Validate(false)
	if err != nil {
		return status, err
	}

	listing, status, err := GetListing(m.ListingID)
	if err != nil {
		return status, err
	}
	m.ListingTitle = listing.Title

	m.Meta.CreatedByID = ac.UserID
	m.Meta.Created = time.Now()

	tx, err := h.GetTransaction()
	if err != nil {
		return http.StatusInternalServerError, err
	}
	defer tx.Rollback()

	err = tx.QueryRow(`
INSERT INTO open_houses (
    listing_id, agent_id, starts, ends, status,
    notes, created, created_by
) VALUES (
    $1, $2, $3, $4, $5,
    $6, $7, $8
) RETURNING open_house_id`,
		m.ListingID,
		m.AgentID,
		m.Starts,
		m.Ends,
		m.Status,

		m.Notes,
		m.Meta.Created,
		m.Meta.CreatedByID,
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
		h.ItemTypes[h.ItemTypeOpenHouse], m.ID, m.AgentID, ActionCreated,
		fmt.Sprintf("Scheduled an open house at %s on %s",
			m.ListingTitle, m.Starts.Format("Mon Jan 2 3:04pm")),
	)

	return http.StatusOK, nil
}

// Update saves changes to an open house
func (m *OpenHouseType) Update(ac AuthContext) (int, error) {
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
UPDATE open_houses
   SET listing_id = $2
      ,agent_id = $3
      ,starts = $4
      ,ends = $5
      ,status = $6
      ,notes = $7
      ,edited = $8
      ,edited_by = $9
 WHERE open_house_id = $1`,
		m.ID,
		m.ListingID,
		m.AgentID,
		m.Starts,
		m.Ends,
		m.Status,
		m.Notes,
		m.Meta.EditedNullable,
		m.Meta.EditedByNullable,
	)
	if err != nil {
		return http.StatusInternalServerError,
			fmt.Errorf("Update of open house failed: %v", err.Error())
	}

	err = tx.Commit()
	if err != nil {
		return http.StatusInternalServerError,
			fmt.Errorf("Transaction failed: %v", err.Error())
	}

	ac.mutated(
		h.ItemTypes[h.ItemTypeOpenHouse], m.ID, m.AgentID, ActionUpdated,
		fmt.Sprintf("Updated the open house at %s", GetListingTitle(m.ListingID)),
	)

	return http.StatusOK, nil
}

// Patch partially updates an open house, only /status is supported
func (m *OpenHouseType) Patch(ac AuthContext, patches []h.PatchType) (int, error) {
	for _, patch := range patches {
		status, err := patch.ScanRawValue()
		if err != nil {
			return status, err
		}

		if patch.Path != "/status" {
			return http.StatusBadRequest,
				fmt.Errorf("Unsupported path in patch replace operation")
		}
		if !patch.String.Valid || !IsValidOpenHouseStatus(patch.String.String) {
			return http.StatusBadRequest,
				fmt.Errorf("status must be one of %v", OpenHouseStatuses)
		}

		m.Status = patch.String.String
		m.Meta.SetEdited(ac.UserID, time.Now())

		db, err := h.GetConnection()
		if err != nil {
			return http.StatusInternalServerError, err
		}

		_, err = db.Exec(`
UPDATE open_houses
   SET status = $2
      ,edited = $3
      ,edited_by = $4
 WHERE open_house_id = $1`,
			m.ID,
			m.Status,
			m.Meta.EditedNullable,
			m.Meta.EditedByNullable,
		)
		if err != nil {
			return http.StatusInternalServerError,
				fmt.Errorf("Update failed: %v", err.Error())
		}

		ac.mutated(
			h.ItemTypes[h.ItemTypeOpenHouse], m.ID, m.AgentID, ActionStatusChanged,
			fmt.Sprintf("Marked the open house at %s as %s",
				GetListingTitle(m.ListingID), m.Status),
		)
	}

	return http.StatusOK, nil
}

// Delete soft deletes an open house
func (m *OpenHouseType) Delete(ac AuthContext) (int, error) {
	db, err := h.GetConnection()
	if err != nil {
		return http.StatusInternalServerError, err
	}

	_, err = db.Exec(`
UPDATE open_houses
   SET is_deleted = true
 WHERE open_house_id = $1`,
		m.ID,
	)
	if err != nil {
		return http.StatusInternalServerError,
			fmt.Errorf("Delete failed: %v", err.Error())
	}

	ac.mutated(
		h.ItemTypes[h.ItemTypeOpenHouse], m.ID, m.AgentID, ActionDeleted,
		fmt.Sprintf("Removed the open house at %s", GetListingTitle(m.ListingID)),
	)

	return http.StatusOK, nil
}

// Validate returns an error if the RSVP cannot be saved
func (m *RSVPType) Validate() (int, error) {
	m.Name = strings.TrimSpace(SanitiseText(m.Name))
	m.Email = strings.ToLower(strings.TrimSpace(m.Email))

	if m.OpenHouseID <= 0 {
		return http.StatusBadRequest, fmt.Errorf("You must specify an open house")
	}
	if m.Name == "" {
		return http.StatusBadRequest, fmt.Errorf("Name is a required field")
	}
	if _, err := mail.ParseAddress(m.Email); err != nil {
		return http.StatusBadRequest,
			e.New(0, "RSVPType.Validate", e.InvalidContent,
				fmt.Sprintf("%s is not a valid email address", m.Email))
	}

	var err error
	m.Phone, err = ValidatePhone(m.Phone)
	if err != nil {
		return http.StatusBadRequest, err
	}

	return http.StatusOK, nil
}

// RSVP registers a visitor for the open house. Each email address may
// register once; the visitor also becomes a lead of the host agent.
func (m *OpenHouseType) RSVP(ac AuthContext, rsvp *RSVPType) (int, error) {
	rsvp.OpenHouseID = m.ID
	status, err := rsvp.Validate()
	if err != nil {
		return status, err
	}

	if m.Status != OpenHouseStatusScheduled && m.Status != OpenHouseStatusActive {
		return http.StatusBadRequest,
			fmt.Errorf("This open house is %s and is not taking RSVPs", m.Status)
	}

	tx, err := h.GetTransaction()
	if err != nil {
		return http.StatusInternalServerError, err
	}
	defer tx.Rollback()

	err = tx.QueryRow(`
INSERT INTO open_house_rsvps (
    open_house_id, name, email, phone
) VALUES (
    $1, $2, $3, $4
) RETURNING rsvp_id, created`,
		rsvp.OpenHouseID,
		rsvp.Name,
		rsvp.Email,
		rsvp.Phone,
	).Scan(
		&rsvp.ID,
		&rsvp.Created,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return http.StatusConflict,
				fmt.Errorf("%s has already registered for this open house", rsvp.Email)
		}
		return http.StatusInternalServerError,
			fmt.Errorf("Error inserting data and returning ID: %+v", err)
	}

	err = tx.QueryRow(`
UPDATE open_houses
   SET rsvp_count = rsvp_count + 1
 WHERE open_house_id = $1
RETURNING rsvp_count`,
		m.ID,
	).Scan(
		&m.RSVPCount,
	)
	if err != nil {
		return http.StatusInternalServerError,
			fmt.Errorf("Update failed: %v", err.Error())
	}

	err = tx.Commit()
	if err != nil {
		return http.StatusInternalServerError,
			fmt.Errorf("Transaction failed: %v", err.Error())
	}

	ac.mutated(
		h.ItemTypes[h.ItemTypeOpenHouse], m.ID, m.AgentID, ActionRSVP,
		fmt.Sprintf("%s will attend the open house at %s",
			rsvp.Name, GetListingTitle(m.ListingID)),
	)

	lead := LeadType{
		AgentID:   m.AgentID,
		ListingID: m.ListingID,
		Name:      rsvp.Name,
		Email:     rsvp.Email,
		Phone:     rsvp.Phone,
		Source:    LeadSourceOpenHouse,
		Message:   fmt.Sprintf("RSVP for the open house on %s", m.Starts.Format("Mon Jan 2 3:04pm")),
	}
	if _, err := lead.Insert(ac); err != nil {
		glog.Warningf("lead.Insert(rsvp %d) %+v", rsvp.ID, err)
	}

	return http.StatusOK, nil
}

// GetRSVPs returns the visitors registered for an open house
func GetRSVPs(openHouseID int64) ([]RSVPType, int, error) {
	db, err := h.GetConnection()
	if err != nil {
		return []RSVPType{}, http.StatusInternalServerError, err
	}

	rows, err := db.Query(`
SELECT rsvp_id
      ,open_house_id
      ,name
      ,email
      ,phone
      ,created
  FROM open_house_rsvps
 WHERE open_house_id = $1
 ORDER BY created`,
		openHouseID,
	)
	if err != nil {
		return []RSVPType{}, http.StatusInternalServerError,
			fmt.Errorf("Database query failed: %v", err.Error())
	}
	defer rows.Close()

	ems := []RSVPType{}
	for rows.Next() {
		var m RSVPType
		err = rows.Scan(
			&m.ID,
			&m.OpenHouseID,
			&m.Name,
			&m.Email,
			&m.Phone,
			&m.Created,
		)
		if err != nil {
			return []RSVPType{}, http.StatusInternalServerError,
				fmt.Errorf("Row parsing error: %v", err.Error())
		}
		ems = append(ems, m)
	}
	err = rows.Err()
	if err != nil {
		return []RSVPType{}, http.StatusInternalServerError,
			fmt.Errorf("Error fetching rows: %v", err.Error())
	}

	return ems, http.StatusOK, nil
}

// GetOpenHouse returns an open house
func GetOpenHouse(id int64) (OpenHouseType, int, error) {
	if id == 0 {
		return OpenHouseType{}, http.StatusNotFound, fmt.Errorf("Open house not found")
	}

	mcKey := fmt.Sprintf(mcOpenHouseKeys[c.CacheDetail], id)
	var m OpenHouseType
	if !c.Get(mcKey, &m) {
		db, err := h.GetConnection()
		if err != nil {
			return OpenHouseType{}, http.StatusInternalServerError, err
		}

		err = db.QueryRow(`
SELECT open_house_id
      ,listing_id
      ,agent_id
      ,starts
      ,ends

      ,status
      ,rsvp_count
      ,notes
      ,created
      ,created_by

      ,edited
      ,edited_by
      ,is_deleted
  FROM open_houses
 WHERE open_house_id = $1`,
			id,
		).Scan(
			&m.ID,
			&m.ListingID,
			&m.AgentID,
			&m.Starts,
			&m.Ends,

			&m.Status,
			&m.RSVPCount,
			&m.Notes,
			&m.Meta.Created,
			&m.Meta.CreatedByID,

			&m.Meta.EditedNullable,
			&m.Meta.EditedByNullable,
			&m.Meta.Flags.Deleted,
		)
		if err == sql.ErrNoRows {
			return OpenHouseType{}, http.StatusNotFound,
				fmt.Errorf("Open house with ID %d not found", id)
		} else if err != nil {
			glog.Errorf("db.QueryRow(%d) %+v", id, err)
			return OpenHouseType{}, http.StatusInternalServerError,
				fmt.Errorf("Database query failed")
		}

		m.ListingTitle = GetListingTitle(m.ListingID)
		m.Meta.Resolve()
		m.Meta.Flags.SetVisible()
		m.Meta.Links = []h.LinkType{
			h.GetLink("self", "", h.ItemTypeOpenHouse, m.ID),
			h.GetLink("listing", m.ListingTitle, h.ItemTypeListing, m.ListingID),
			h.GetLink("agent", "", h.ItemTypeAgent, m.AgentID),
		}

		fields, status, err := GetFields(h.ItemTypes[h.ItemTypeOpenHouse], m.ID)
		if err != nil {
			return OpenHouseType{}, status, err
		}
		m.Fields = fields

		c.Set(mcKey, m, mcTTL)
	}

	if m.Meta.Flags.Deleted {
		return m, http.StatusNotFound,
			e.New(0, "GetOpenHouse", e.Deleted, fmt.Sprintf("Open house %d has been deleted", id))
	}

	return m, http.StatusOK, nil
}

// GetOpenHouses returns a page of open houses, soonest first
func GetOpenHouses(
	filter OpenHouseFilter,
	limit int64,
	offset int64,
) (
	[]OpenHouseType,
	int64,
	int,
	error,
) {
	db, err := h.GetConnection()
	if err != nil {
		return []OpenHouseType{}, 0, http.StatusInternalServerError, err
	}

	rows, err := db.Query(`--GetOpenHouses
SELECT COUNT(*) OVER() AS total
      ,open_house_id
  FROM open_houses
 WHERE is_deleted IS NOT TRUE
   AND ($1 = 0 OR agent_id = $1)
   AND ($2 = 0 OR listing_id = $2)
   AND ($3 = '' OR status = $3)
   AND ($4 IS NOT TRUE OR ends > NOW())
 ORDER BY starts
 LIMIT $5
OFFSET $6`,
		filter.AgentID,
		filter.ListingID,
		filter.Status,
		filter.Upcoming,
		limit,
		offset,
	)
	if err != nil {
		return []OpenHouseType{}, 0, http.StatusInternalServerError,
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
			return []OpenHouseType{}, 0, http.StatusInternalServerError,
				fmt.Errorf("Row parsing error: %v", err.Error())
		}
		ids = append(ids, id)
	}
	err = rows.Err()
	if err != nil {
		return []OpenHouseType{}, 0, http.StatusInternalServerError,
			fmt.Errorf("Error fetching rows: %v", err.Error())
	}
	rows.Close()

	if offset > h.GetMaxOffset(total, limit) {
		return []OpenHouseType{}, 0, http.StatusBadRequest,
			fmt.Errorf("not enough records, offset (%d) would return an empty page", offset)
	}

	ems := []OpenHouseType{}
	for _, id := range ids {
		m, status, err := GetOpenHouse(id)
		if err != nil {
			return []OpenHouseType{}, 0, status, err
		}
		ems = append(ems, m)
	}

	return ems, total, http.StatusOK, nil
}

// UpdateOpenHouseStatuses starts open houses whose start time has passed
// and completes those that have ended. It returns the number changed.
func UpdateOpenHouseStatuses(now time.Time) (int64, error) {
	db, err := h.GetConnection()
	if err != nil {
		return 0, err
	}

	rows, err := db.Query(`
UPDATE open_houses
   SET status = CASE WHEN ends <= $1 THEN $2 ELSE $3 END
 WHERE is_deleted IS NOT TRUE
   AND (
           (status IN ($4, $3) AND ends <= $1)
        OR (status = $4 AND starts <= $1 AND ends > $1)
       )
RETURNING open_house_id, agent_id`,
		now,
		OpenHouseStatusCompleted,
		OpenHouseStatusActive,
		OpenHouseStatusScheduled,
	)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var changed int64
	for rows.Next() {
		var id, agentID int64
		err = rows.Scan(&id, &agentID)
		if err != nil {
			return changed, err
		}
		PurgeCache(h.ItemTypes[h.ItemTypeOpenHouse], id)
		changed++
	}
	err = rows.Err()
	if err != nil {
		return changed, err
	}

	if changed > 0 {
		InvalidateDashboard(nil)
	}

	return changed, nil
}
