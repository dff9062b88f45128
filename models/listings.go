package models

import (
	"database/sql"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/golang/glog"
	"github.com/lib/pq"

	c "github.com/happyplace/dashboard/cache"
	e "github.com/happyplace/dashboard/errors"
	h "github.com/happyplace/dashboard/helpers"
)

const (
	// ListingStatusActive is on the market
	ListingStatusActive string = "active"

	// ListingStatusPending is under contract
	ListingStatusPending string = "pending"

	// ListingStatusSold has closed
	ListingStatusSold string = "sold"

	// ListingStatusWithdrawn has been taken off the market
	ListingStatusWithdrawn string = "withdrawn"

	// ListingStatusComingSoon is not yet on the market
	ListingStatusComingSoon string = "coming_soon"
)

// ListingStatuses are the valid values of a listing status
var ListingStatuses = []string{
	ListingStatusActive,
	ListingStatusPending,
	ListingStatusSold,
	ListingStatusWithdrawn,
	ListingStatusComingSoon,
}

var (
	zipRegex   = regexp.MustCompile(`^\d{5}(-\d{4})?$`)
	stateRegex = regexp.MustCompile(`^[A-Z]{2}$`)
)

// ListingsType is a collection of listings
type ListingsType struct {
	Listings h.ArrayType    `json:"listings"`
	Meta     h.CoreMetaType `json:"meta"`
}

// ListingType is a property for sale
type ListingType struct {
	ID              int64          `json:"id"`
	AgentID         int64          `json:"agentId"`
	Title           string         `json:"title"`
	Address         string         `json:"address"`
	City            string         `json:"city"`
	State           string         `json:"state"`
	Zip             string         `json:"zip"`
	Price           int64          `json:"price"`
	Beds            int64          `json:"beds"`
	Baths           float64        `json:"baths"`
	SqFt            int64          `json:"sqft"`
	Status          string         `json:"status"`
	Description     string         `json:"description,omitempty"`
	DescriptionHTML string         `json:"html,omitempty"`
	Features        pq.StringArray `json:"features"`
	ViewCount       int64          `json:"viewCount"`
	Photos          []PhotoType    `json:"photos,omitempty"`
	Fields          []FieldType    `json:"fields,omitempty"`

	Meta h.DefaultMetaType `json:"meta"`
}

// ListingFilter narrows a collection of listings
type ListingFilter struct {
	AgentID  int64
	Status   string
	City     string
	MinPrice int64
	MaxPrice int64
	Deleted  bool
}

// IsValidListingStatus reports whether s is a listing status
func IsValidListingStatus(s string) bool {
	for _, v := range ListingStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// Validate returns an error if the listing cannot be saved
func (m *ListingType) Validate(exists bool) (int, error) {
	m.Title = strings.TrimSpace(SanitiseText(m.Title))
	m.Address = strings.TrimSpace(SanitiseText(m.Address))
	m.City = strings.TrimSpace(SanitiseText(m.City))
	m.State = strings.ToUpper(strings.TrimSpace(SanitiseText(m.State)))
	m.Zip = strings.TrimSpace(m.Zip)

	if exists && m.ID <= 0 {
		return http.StatusBadRequest, fmt.Errorf("Listing ID is required")
	}

	if m.AgentID <= 0 {
		return http.StatusBadRequest, fmt.Errorf("You must specify an agent")
	}

	if m.Title == "" {
		return http.StatusBadRequest, fmt.Errorf("Title is a required field")
	}
	if m.Address == "" {
		return http.StatusBadRequest, fmt.Errorf("Address is a required field")
	}
	if m.City == "" {
		return http.StatusBadRequest, fmt.Errorf("City is a required field")
	}
	if !stateRegex.MatchString(m.State) {
		return http.StatusBadRequest,
			fmt.Errorf("State (%s) must be a two letter code", m.State)
	}
	if !zipRegex.MatchString(m.Zip) {
		return http.StatusBadRequest,
			fmt.Errorf("Zip (%s) is not a valid zip code", m.Zip)
	}

	if m.Price < 0 {
		return http.StatusBadRequest, fmt.Errorf("Price cannot be negative")
	}
	if m.Beds < 0 || m.Baths < 0 || m.SqFt < 0 {
		return http.StatusBadRequest,
			fmt.Errorf("Beds, baths and sqft cannot be negative")
	}

	if m.Status == "" {
		m.Status = ListingStatusComingSoon
	}
	if !IsValidListingStatus(m.Status) {
		return http.StatusBadRequest,
			e.New(0, "ListingType.Validate", e.OutOfRange,
				fmt.Sprintf("Status (%s) must be one of %v", m.Status, ListingStatuses))
	}

	m.DescriptionHTML = ProcessMarkdown(m.Description)

	features := pq.StringArray{}
	seen := map[string]bool{}
	for _, f := range m.Features {
		f = strings.TrimSpace(SanitiseText(f))
		if f == "" || seen[strings.ToLower(f)] {
			continue
		}
		seen[strings.ToLower(f)] = true
		features = append(features, f)
	}
	m.Features = features

	m.Meta.Flags.SetVisible()

	return http.StatusOK, nil
}

// Insert saves a new listing
func (m *ListingType) Insert(ac AuthContext) (int, error) {
	status, err := m.Validate(false)
	if err != nil {
		return status, err
	}

	m.Meta.CreatedByID = ac.UserID
	m.Meta.Created = time.Now()

	// Guard against double submission of the same form
	dupeKey := "dupe_" + h.MD5Sum(fmt.Sprintf(
		"%d|%s|%s|%s|%d|%d",
		m.AgentID, m.Title, m.Address, m.Zip, m.Price, m.Meta.CreatedByID,
	))
	if v, ok := c.GetInt64(dupeKey); ok {
		m.ID = v
		return http.StatusOK, nil
	}

	tx, err := h.GetTransaction()
	if err != nil {
		return http.StatusInternalServerError, err
	}
	defer tx.Rollback()

	err = tx.QueryRow(`
INSERT INTO listings (
    agent_id, title, address, city, state,
    zip, price, beds, baths, sqft,
    status, description, description_html, features, created,
    created_by, is_featured
) VALUES (
    $1, $2, $3, $4, $5,
    $6, $7, $8, $9, $10,
    $11, $12, $13, $14, $15,
    $16, $17
) RETURNING listing_id`,
		m.AgentID,
		m.Title,
		m.Address,
		m.City,
		m.State,

		m.Zip,
		m.Price,
		m.Beds,
		m.Baths,
		m.SqFt,

		m.Status,
		m.Description,
		m.DescriptionHTML,
		m.Features,
		m.Meta.Created,

		m.Meta.CreatedByID,
		m.Meta.Flags.Featured,
	).Scan(
		&m.ID,
	)
	if err != nil {
		glog.Errorf(`Could not create listing: %+v`, err)
		return http.StatusInternalServerError,
			fmt.Errorf("Error inserting data and returning ID: %+v", err)
	}

	err = tx.Commit()
	if err != nil {
		return http.StatusInternalServerError,
			fmt.Errorf("Transaction failed: %v", err.Error())
	}

	c.SetInt64(dupeKey, m.ID, 60*5)

	ac.mutated(
		h.ItemTypes[h.ItemTypeListing], m.ID, m.AgentID, ActionCreated,
		fmt.Sprintf("Listed %s", m.Title),
	)

	return http.StatusOK, nil
}

// Update saves changes to a listing
func (m *ListingType) Update(ac AuthContext) (int, error) {
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
UPDATE listings
   SET agent_id = $2
      ,title = $3
      ,address = $4
      ,city = $5
      ,state = $6
      ,zip = $7
      ,price = $8
      ,beds = $9
      ,baths = $10
      ,sqft = $11
      ,status = $12
      ,description = $13
      ,description_html = $14
      ,features = $15
      ,edited = $16
      ,edited_by = $17
      ,is_featured = $18
 WHERE listing_id = $1`,
		m.ID,
		m.AgentID,
		m.Title,
		m.Address,
		m.City,
		m.State,
		m.Zip,
		m.Price,
		m.Beds,
		m.Baths,
		m.SqFt,
		m.Status,
		m.Description,
		m.DescriptionHTML,
		m.Features,
		m.Meta.EditedNullable,
		m.Meta.EditedByNullable,
		m.Meta.Flags.Featured,
	)
	if err != nil {
		return http.StatusInternalServerError,
			fmt.Errorf("Update of listing failed: %v", err.Error())
	}

	err = tx.Commit()
	if err != nil {
		return http.StatusInternalServerError,
			fmt.Errorf("Transaction failed: %v", err.Error())
	}

	ac.mutated(
		h.ItemTypes[h.ItemTypeListing], m.ID, m.AgentID, ActionUpdated,
		fmt.Sprintf("Updated %s", m.Title),
	)

	return http.StatusOK, nil
}

// Patch partially updates a listing. Supported paths are /status, /price
// and the featured and deleted flags.
func (m *ListingType) Patch(ac AuthContext, patches []h.PatchType) (int, error) {
	tx, err := h.GetTransaction()
	if err != nil {
		return http.StatusInternalServerError, err
	}
	defer tx.Rollback()

	summaries := []string{}
	action := ActionUpdated

	for _, patch := range patches {
		m.Meta.SetEdited(ac.UserID, time.Now())

		status, err := patch.ScanRawValue()
		if err != nil {
			return status, err
		}

		var (
			column string
			value  interface{}
		)

		switch patch.Path {
		case "/status":
			if !patch.String.Valid || !IsValidListingStatus(patch.String.String) {
				return http.StatusBadRequest,
					fmt.Errorf("status must be one of %v", ListingStatuses)
			}
			column = "status"
			value = patch.String.String
			m.Status = patch.String.String
			action = ActionStatusChanged
			summaries = append(summaries,
				fmt.Sprintf("Marked %s as %s", m.Title, statusLabel(m.Status)))

		case "/price":
			if !patch.Float64.Valid || patch.Float64.Float64 < 0 {
				return http.StatusBadRequest,
					fmt.Errorf("price must be a positive number")
			}
			column = "price"
			value = int64(patch.Float64.Float64)
			m.Price = int64(patch.Float64.Float64)
			summaries = append(summaries,
				fmt.Sprintf("Changed the price of %s to %s", m.Title, FormatPrice(m.Price)))

		case "/meta/flags/featured":
			if !patch.Bool.Valid {
				return http.StatusBadRequest, fmt.Errorf("featured must be a boolean")
			}
			column = "is_featured"
			value = patch.Bool.Bool
			m.Meta.Flags.Featured = patch.Bool.Bool

		case "/meta/flags/deleted":
			if !patch.Bool.Valid {
				return http.StatusBadRequest, fmt.Errorf("deleted must be a boolean")
			}
			column = "is_deleted"
			value = patch.Bool.Bool
			m.Meta.Flags.Deleted = patch.Bool.Bool

		default:
			return http.StatusBadRequest,
				fmt.Errorf("Unsupported path in patch replace operation")
		}

		m.Meta.Flags.SetVisible()
		_, err = tx.Exec(`
UPDATE listings
   SET `+column+` = $2
      ,edited = $3
      ,edited_by = $4
 WHERE listing_id = $1`,
			m.ID,
			value,
			m.Meta.EditedNullable,
			m.Meta.EditedByNullable,
		)
		if err != nil {
			return http.StatusInternalServerError,
				fmt.Errorf("Update failed: %v", err.Error())
		}
	}

	err = tx.Commit()
	if err != nil {
		return http.StatusInternalServerError,
			fmt.Errorf("Transaction failed: %v", err.Error())
	}

	ac.mutated(
		h.ItemTypes[h.ItemTypeListing], m.ID, m.AgentID, action,
		strings.Join(summaries, "; "),
	)

	return http.StatusOK, nil
}

// Delete soft deletes a listing
func (m *ListingType) Delete(ac AuthContext) (int, error) {
	tx, err := h.GetTransaction()
	if err != nil {
		return http.StatusInternalServerError, err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
UPDATE listings
   SET is_deleted = true
 WHERE listing_id = $1`,
		m.ID,
	)
	if err != nil {
		return http.StatusInternalServerError,
			fmt.Errorf("Delete failed: %v", err.Error())
	}

	// Open houses of a deleted listing will not happen
	_, err = tx.Exec(`
UPDATE open_houses
   SET status = $2
 WHERE listing_id = $1
   AND status = $3`,
		m.ID,
		OpenHouseStatusCancelled,
		OpenHouseStatusScheduled,
	)
	if err != nil {
		return http.StatusInternalServerError,
			fmt.Errorf("Cancelling open houses failed: %v", err.Error())
	}

	err = tx.Commit()
	if err != nil {
		return http.StatusInternalServerError,
			fmt.Errorf("Transaction failed: %v", err.Error())
	}

	ac.mutated(
		h.ItemTypes[h.ItemTypeListing], m.ID, m.AgentID, ActionDeleted,
		fmt.Sprintf("Removed %s", m.Title),
	)

	return http.StatusOK, nil
}

// GetListing returns a listing, deleted listings are reported as such
func GetListing(id int64) (ListingType, int, error) {
	if id == 0 {
		return ListingType{}, http.StatusNotFound, fmt.Errorf("Listing not found")
	}

	mcKey := fmt.Sprintf(mcListingKeys[c.CacheDetail], id)
	var m ListingType
	if !c.Get(mcKey, &m) {
		db, err := h.GetConnection()
		if err != nil {
			glog.Errorf("h.GetConnection() %+v", err)
			return ListingType{}, http.StatusInternalServerError, err
		}

		err = db.QueryRow(`
SELECT listing_id
      ,agent_id
      ,title
      ,address
      ,city

      ,state
      ,zip
      ,price
      ,beds
      ,baths

      ,sqft
      ,status
      ,description
      ,description_html
      ,features

      ,view_count
      ,created
      ,created_by
      ,edited
      ,edited_by

      ,is_featured
      ,is_deleted
  FROM listings
 WHERE listing_id = $1`,
			id,
		).Scan(
			&m.ID,
			&m.AgentID,
			&m.Title,
			&m.Address,
			&m.City,

			&m.State,
			&m.Zip,
			&m.Price,
			&m.Beds,
			&m.Baths,

			&m.SqFt,
			&m.Status,
			&m.Description,
			&m.DescriptionHTML,
			&m.Features,

			&m.ViewCount,
			&m.Meta.Created,
			&m.Meta.CreatedByID,
			&m.Meta.EditedNullable,
			&m.Meta.EditedByNullable,

			&m.Meta.Flags.Featured,
			&m.Meta.Flags.Deleted,
		)
		if err == sql.ErrNoRows {
			return ListingType{}, http.StatusNotFound,
				fmt.Errorf("Listing with ID %d not found", id)
		} else if err != nil {
			glog.Errorf("db.QueryRow(%d) %+v", id, err)
			return ListingType{}, http.StatusInternalServerError,
				fmt.Errorf("Database query failed")
		}

		m.Meta.Resolve()
		m.Meta.Flags.SetVisible()
		m.Meta.Links = []h.LinkType{
			h.GetLink("self", "", h.ItemTypeListing, m.ID),
			h.GetLink("agent", "", h.ItemTypeAgent, m.AgentID),
		}

		photos, status, err := GetPhotos(m.ID)
		if err != nil {
			return ListingType{}, status, err
		}
		m.Photos = photos

		fields, status, err := GetFields(h.ItemTypes[h.ItemTypeListing], m.ID)
		if err != nil {
			return ListingType{}, status, err
		}
		m.Fields = fields

		c.Set(mcKey, m, mcTTL)
	}

	if m.Meta.Flags.Deleted {
		return m, http.StatusNotFound,
			e.New(0, "GetListing", e.Deleted, fmt.Sprintf("Listing %d has been deleted", id))
	}

	return m, http.StatusOK, nil
}

// GetListingTitle returns the title of a listing for use in links
func GetListingTitle(id int64) string {
	mcKey := fmt.Sprintf(mcListingKeys[c.CacheTitle], id)
	if title, ok := c.GetString(mcKey); ok {
		return title
	}

	m, _, err := GetListing(id)
	if err != nil {
		glog.Warningf("GetListing(%d) %+v", id, err)
		return ""
	}

	c.SetString(mcKey, m.Title, mcTTL)

	return m.Title
}

// GetListings returns a page of listings matching the filter
func GetListings(
	filter ListingFilter,
	limit int64,
	offset int64,
) (
	[]ListingType,
	int64,
	int,
	error,
) {
	db, err := h.GetConnection()
	if err != nil {
		return []ListingType{}, 0, http.StatusInternalServerError, err
	}

	rows, err := db.Query(`--GetListings
SELECT COUNT(*) OVER() AS total
      ,listing_id
  FROM listings
 WHERE is_deleted = $1
   AND ($2 = 0 OR agent_id = $2)
   AND ($3 = '' OR status = $3)
   AND ($4 = '' OR LOWER(city) = LOWER($4))
   AND ($5 = 0 OR price >= $5)
   AND ($6 = 0 OR price <= $6)
 ORDER BY is_featured DESC
         ,COALESCE(edited, created) DESC
 LIMIT $7
OFFSET $8`,
		filter.Deleted,
		filter.AgentID,
		filter.Status,
		filter.City,
		filter.MinPrice,
		filter.MaxPrice,
		limit,
		offset,
	)
	if err != nil {
		return []ListingType{}, 0, http.StatusInternalServerError,
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
			return []ListingType{}, 0, http.StatusInternalServerError,
				fmt.Errorf("Row parsing error: %v", err.Error())
		}
		ids = append(ids, id)
	}
	err = rows.Err()
	if err != nil {
		return []ListingType{}, 0, http.StatusInternalServerError,
			fmt.Errorf("Error fetching rows: %v", err.Error())
	}
	rows.Close()

	if offset > h.GetMaxOffset(total, limit) {
		return []ListingType{}, 0, http.StatusBadRequest,
			fmt.Errorf("not enough records, offset (%d) would return an empty page", offset)
	}

	ems := []ListingType{}
	for _, id := range ids {
		m, status, err := GetListing(id)
		if err != nil && !filter.Deleted {
			return []ListingType{}, 0, status, err
		}
		// The collection does not need the full description
		m.Description = ""
		ems = append(ems, m)
	}

	return ems, total, http.StatusOK, nil
}

// IncrementListingViews records a public view of a listing
func IncrementListingViews(id int64) {
	db, err := h.GetConnection()
	if err != nil {
		glog.Warning(err)
		return
	}

	_, err = db.Exec(`
UPDATE listings
   SET view_count = view_count + 1
 WHERE listing_id = $1`,
		id,
	)
	if err != nil {
		glog.Errorf("IncrementListingViews(%d) %+v", id, err)
	}
}

// FormatPrice renders a price in dollars with thousands separators
func FormatPrice(price int64) string {
	neg := price < 0
	if neg {
		price = -price
	}

	s := fmt.Sprintf("%d", price)
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}

	if neg {
		return "-$" + b.String()
	}
	return "$" + b.String()
}

// statusLabel turns a status value into words
func statusLabel(status string) string {
	return strings.ReplaceAll(status, "_", " ")
}
