package models

import (
	"database/sql"
	"fmt"
	"math"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/lib/pq"

	c "github.com/happyplace/dashboard/cache"
	h "github.com/happyplace/dashboard/helpers"
)

// Custom field value types
const (
	FieldTypeString  string = "string"
	FieldTypeNumber  string = "number"
	FieldTypeDate    string = "date"
	FieldTypeBoolean string = "boolean"
)

var fieldKeyRegex = regexp.MustCompile(`^[a-z][a-z0-9_]{0,63}$`)

// FieldsType is a collection of custom fields
type FieldsType struct {
	Fields h.ArrayType `json:"fields"`
}

// FieldType is a typed custom value attached to an item
type FieldType struct {
	ID      int64           `json:"-"`
	Key     string          `json:"key"`
	Type    string          `json:"type"`
	Value   interface{}     `json:"value"`
	String  sql.NullString  `json:"-"`
	Number  sql.NullFloat64 `json:"-"`
	Date    pq.NullTime     `json:"-"`
	Boolean sql.NullBool    `json:"-"`
}

// Validate types the value of the field. A string that parses as a date
// (YYYY-MM-DD) is stored as a date.
func (m *FieldType) Validate() (int, error) {
	m.Key = strings.ToLower(strings.TrimSpace(SanitiseText(m.Key)))
	if !fieldKeyRegex.MatchString(m.Key) {
		return http.StatusBadRequest,
			fmt.Errorf("Field key (%s) must be lower case letters, numbers and underscores", m.Key)
	}

	m.String = sql.NullString{}
	m.Number = sql.NullFloat64{}
	m.Date = pq.NullTime{}
	m.Boolean = sql.NullBool{}

	switch v := m.Value.(type) {
	case int:
		m.Number = sql.NullFloat64{Float64: float64(v), Valid: true}
		m.Type = FieldTypeNumber
	case int64:
		m.Number = sql.NullFloat64{Float64: float64(v), Valid: true}
		m.Type = FieldTypeNumber
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return http.StatusBadRequest, fmt.Errorf("Field %s is not a valid number", m.Key)
		}
		m.Number = sql.NullFloat64{Float64: v, Valid: true}
		m.Type = FieldTypeNumber
	case bool:
		m.Boolean = sql.NullBool{Bool: v, Valid: true}
		m.Type = FieldTypeBoolean
	case string:
		s := strings.TrimSpace(SanitiseText(v))
		if s == "" {
			return http.StatusBadRequest, fmt.Errorf("Field %s value is empty", m.Key)
		}

		if t, err := time.Parse("2006-01-02", s); err == nil {
			m.Date = pq.NullTime{Time: t, Valid: true}
			m.Type = FieldTypeDate
		} else {
			m.String = sql.NullString{String: s, Valid: true}
			m.Type = FieldTypeString
		}
	default:
		return http.StatusBadRequest,
			fmt.Errorf("The type of value of field %s cannot be determined or is invalid", m.Key)
	}

	m.resolve()

	return http.StatusOK, nil
}

// resolve sets Value from the typed column
func (m *FieldType) resolve() {
	switch m.Type {
	case FieldTypeString:
		m.Value = m.String.String
	case FieldTypeNumber:
		m.Value = m.Number.Float64
	case FieldTypeDate:
		m.Value = m.Date.Time.Format("2006-01-02")
	case FieldTypeBoolean:
		m.Value = m.Boolean.Bool
	}
}

func fieldsCacheKey(itemTypeID int64, itemID int64) (string, bool) {
	keys, ok := itemTypeKeys[itemTypeID]
	if !ok {
		return "", false
	}
	k, ok := keys[c.CacheFields]
	if !ok {
		return "", false
	}
	return fmt.Sprintf(k, itemID), true
}

func isFieldItemType(itemTypeID int64) bool {
	for _, v := range h.ItemTypesWithFields {
		if v == itemTypeID {
			return true
		}
	}
	return false
}

// UpsertFields saves the fields of an item in one transaction
func UpsertFields(
	ac AuthContext,
	itemTypeID int64,
	itemID int64,
	ems []FieldType,
) (
	int,
	error,
) {
	if !isFieldItemType(itemTypeID) {
		return http.StatusBadRequest,
			fmt.Errorf("Item type %d does not support custom fields", itemTypeID)
	}

	for i := range ems {
		status, err := ems[i].Validate()
		if err != nil {
			return status, err
		}
	}

	tx, err := h.GetTransaction()
	if err != nil {
		return http.StatusInternalServerError, err
	}
	defer tx.Rollback()

	for i := range ems {
		m := &ems[i]
		err = tx.QueryRow(`
INSERT INTO field_values (
    item_type_id, item_id, key, value_type, string,
    "number", date, "boolean"
) VALUES (
    $1, $2, $3, $4, $5,
    $6, $7, $8
)
ON CONFLICT (item_type_id, item_id, key) DO UPDATE
   SET value_type = EXCLUDED.value_type
      ,string = EXCLUDED.string
      ,"number" = EXCLUDED."number"
      ,date = EXCLUDED.date
      ,"boolean" = EXCLUDED."boolean"
RETURNING field_id`,
			itemTypeID,
			itemID,
			m.Key,
			m.Type,
			m.String,

			m.Number,
			m.Date,
			m.Boolean,
		).Scan(
			&m.ID,
		)
		if err != nil {
			return http.StatusInternalServerError,
				fmt.Errorf("Error upserting field %s: %v", m.Key, err.Error())
		}
	}

	err = tx.Commit()
	if err != nil {
		return http.StatusInternalServerError,
			fmt.Errorf("Transaction failed: %v", err.Error())
	}

	if key, ok := fieldsCacheKey(itemTypeID, itemID); ok {
		c.Delete(key)
	}

	keys := []string{}
	for _, m := range ems {
		keys = append(keys, m.Key)
	}

	fireMutation(MutationType{
		Memo:       ac.Memo,
		UserID:     ac.UserID,
		AgentID:    ac.AgentID,
		ItemTypeID: itemTypeID,
		ItemID:     itemID,
		Action:     ActionFieldSaved,
		Summary:    "Updated " + strings.Join(keys, ", "),
	})

	return http.StatusOK, nil
}

// DeleteField removes a single field from an item
func DeleteField(ac AuthContext, itemTypeID int64, itemID int64, key string) (int, error) {
	db, err := h.GetConnection()
	if err != nil {
		return http.StatusInternalServerError, err
	}

	res, err := db.Exec(`
DELETE FROM field_values
 WHERE item_type_id = $1
   AND item_id = $2
   AND key = $3`,
		itemTypeID,
		itemID,
		key,
	)
	if err != nil {
		return http.StatusInternalServerError,
			fmt.Errorf("Delete failed: %v", err.Error())
	}

	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return http.StatusNotFound, fmt.Errorf("Field %s not found", key)
	}

	if k, ok := fieldsCacheKey(itemTypeID, itemID); ok {
		c.Delete(k)
	}

	fireMutation(MutationType{
		Memo:       ac.Memo,
		UserID:     ac.UserID,
		AgentID:    ac.AgentID,
		ItemTypeID: itemTypeID,
		ItemID:     itemID,
		Action:     ActionFieldSaved,
	})

	return http.StatusOK, nil
}

// GetFields returns the custom fields of an item sorted by key
func GetFields(itemTypeID int64, itemID int64) ([]FieldType, int, error) {
	mcKey, cacheable := fieldsCacheKey(itemTypeID, itemID)

	ems := []FieldType{}
	if cacheable && c.Get(mcKey, &ems) {
		for i := range ems {
			ems[i].resolve()
		}
		return ems, http.StatusOK, nil
	}

	db, err := h.GetConnection()
	if err != nil {
		return []FieldType{}, http.StatusInternalServerError, err
	}

	rows, err := db.Query(`
SELECT field_id
      ,key
      ,value_type
      ,string
      ,"number"
      ,date
      ,"boolean"
  FROM field_values
 WHERE item_type_id = $1
   AND item_id = $2
 ORDER BY key`,
		itemTypeID,
		itemID,
	)
	if err != nil {
		return []FieldType{}, http.StatusInternalServerError,
			fmt.Errorf("Database query failed: %v", err.Error())
	}
	defer rows.Close()

	for rows.Next() {
		var m FieldType
		err = rows.Scan(
			&m.ID,
			&m.Key,
			&m.Type,
			&m.String,
			&m.Number,
			&m.Date,
			&m.Boolean,
		)
		if err != nil {
			return []FieldType{}, http.StatusInternalServerError,
				fmt.Errorf("Row parsing error: %v", err.Error())
		}
		ems = append(ems, m)
	}
	err = rows.Err()
	if err != nil {
		return []FieldType{}, http.StatusInternalServerError,
			fmt.Errorf("Error fetching rows: %v", err.Error())
	}

	// Value is an interface and is rebuilt from the typed columns
	cached := make([]FieldType, len(ems))
	for i, m := range ems {
		m.Value = nil
		cached[i] = m
		ems[i].resolve()
	}
	if cacheable {
		c.Set(mcKey, cached, mcTTL)
	}

	return ems, http.StatusOK, nil
}
