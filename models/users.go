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
	h "github.com/happyplace/dashboard/helpers"
)

// UsersType is a collection of users
type UsersType struct {
	Users h.ArrayType    `json:"users"`
	Meta  h.CoreMetaType `json:"meta"`
}

// UserType is someone who can sign in
type UserType struct {
	ID              int64         `json:"id"`
	Email           string        `json:"email"`
	DisplayName     string        `json:"displayName"`
	Role            string        `json:"role"`
	AgentIDNullable sql.NullInt64 `json:"-"`
	AgentID         int64         `json:"agentId,omitempty"`
	Created         time.Time     `json:"created"`
	LastActiveNull  pq.NullTime   `json:"-"`
	LastActive      string        `json:"lastActive,omitempty"`
	IsBanned        bool          `json:"banned"`
}

// Validate returns an error if the user is not valid
func (m *UserType) Validate() (int, error) {
	m.Email = strings.ToLower(strings.TrimSpace(m.Email))
	m.DisplayName = strings.TrimSpace(SanitiseText(m.DisplayName))

	if _, err := mail.ParseAddress(m.Email); err != nil {
		return http.StatusBadRequest,
			fmt.Errorf("%s is not a valid email address", m.Email)
	}

	if m.Role == "" {
		m.Role = RoleSubscriber
	}
	if !IsValidRole(m.Role) {
		return http.StatusBadRequest,
			fmt.Errorf("role (%s) is not a valid role", m.Role)
	}

	if m.AgentID > 0 {
		m.AgentIDNullable = sql.NullInt64{Int64: m.AgentID, Valid: true}
	} else {
		m.AgentIDNullable = sql.NullInt64{}
	}

	return http.StatusOK, nil
}

// Insert creates the user
func (m *UserType) Insert() (int, error) {
	status, err := m.Validate()
	if err != nil {
		return status, err
	}

	tx, err := h.GetTransaction()
	if err != nil {
		return http.StatusInternalServerError, err
	}
	defer tx.Rollback()

	err = tx.QueryRow(`
INSERT INTO users (
    email, display_name, role, agent_id
) VALUES (
    $1, $2, $3, $4
) RETURNING user_id, created`,
		m.Email,
		m.DisplayName,
		m.Role,
		m.AgentIDNullable,
	).Scan(
		&m.ID,
		&m.Created,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return http.StatusConflict,
				fmt.Errorf("A user with the email %s already exists", m.Email)
		}
		return http.StatusInternalServerError,
			fmt.Errorf("Error inserting data and returning ID: %+v", err)
	}

	err = tx.Commit()
	if err != nil {
		return http.StatusInternalServerError,
			fmt.Errorf("Transaction failed: %v", err.Error())
	}

	return http.StatusOK, nil
}

// Update saves the user's name, role and agent
func (m *UserType) Update(ac AuthContext) (int, error) {
	status, err := m.Validate()
	if err != nil {
		return status, err
	}

	tx, err := h.GetTransaction()
	if err != nil {
		return http.StatusInternalServerError, err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
UPDATE users
   SET display_name = $2
      ,role = $3
      ,agent_id = $4
      ,is_banned = $5
 WHERE user_id = $1`,
		m.ID,
		m.DisplayName,
		m.Role,
		m.AgentIDNullable,
		m.IsBanned,
	)
	if err != nil {
		return http.StatusInternalServerError,
			fmt.Errorf("Update of user failed: %v", err.Error())
	}

	err = tx.Commit()
	if err != nil {
		return http.StatusInternalServerError,
			fmt.Errorf("Transaction failed: %v", err.Error())
	}

	m.saved(ac)

	return http.StatusOK, nil
}

// saved runs once an update has committed. The user's tokens are revoked so
// that a new role applies at once.
func (m *UserType) saved(ac AuthContext) {
	ac.mutated(
		h.ItemTypes[h.ItemTypeUser],
		m.ID,
		m.AgentID,
		ActionUpdated,
		fmt.Sprintf("Updated user %s", m.DisplayName),
	)

	err := PurgeUserAccessTokens(m.ID)
	if err != nil {
		glog.Errorf("PurgeUserAccessTokens(%d) %+v", m.ID, err)
	}
}

// UpdateLastActive records when the user was last seen
func UpdateLastActive(userID int64, lastActive time.Time) {
	db, err := h.GetConnection()
	if err != nil {
		glog.Warning(err)
		return
	}

	_, err = db.Exec(`
UPDATE users
   SET last_active = $2
 WHERE user_id = $1`,
		userID,
		lastActive,
	)
	if err != nil {
		glog.Errorf("UpdateLastActive(%d) %+v", userID, err)
	}
}

func (m *UserType) resolve() {
	if m.AgentIDNullable.Valid {
		m.AgentID = m.AgentIDNullable.Int64
	}
	if m.LastActiveNull.Valid {
		m.LastActive = m.LastActiveNull.Time.Format(time.RFC3339Nano)
	}
}

const userColumns = `
SELECT user_id
      ,email
      ,display_name
      ,role
      ,agent_id
      ,created
      ,last_active
      ,is_banned
  FROM users`

func scanUser(row interface{ Scan(...interface{}) error }) (UserType, error) {
	var m UserType
	err := row.Scan(
		&m.ID,
		&m.Email,
		&m.DisplayName,
		&m.Role,
		&m.AgentIDNullable,
		&m.Created,
		&m.LastActiveNull,
		&m.IsBanned,
	)
	if err != nil {
		return UserType{}, err
	}
	m.resolve()
	return m, nil
}

// GetUser returns a user
func GetUser(id int64) (UserType, int, error) {
	if id == 0 {
		return UserType{}, http.StatusNotFound, fmt.Errorf("User not found")
	}

	mcKey := fmt.Sprintf(mcUserKeys[c.CacheDetail], id)
	var m UserType
	if c.Get(mcKey, &m) {
		return m, http.StatusOK, nil
	}

	db, err := h.GetConnection()
	if err != nil {
		return UserType{}, http.StatusInternalServerError, err
	}

	m, err = scanUser(db.QueryRow(userColumns+`
 WHERE user_id = $1`,
		id,
	))
	if err == sql.ErrNoRows {
		return UserType{}, http.StatusNotFound,
			fmt.Errorf("User with ID %d not found", id)
	} else if err != nil {
		glog.Errorf("db.QueryRow(%d) %+v", id, err)
		return UserType{}, http.StatusInternalServerError,
			fmt.Errorf("Database query failed")
	}

	c.Set(mcKey, m, mcTTL)

	return m, http.StatusOK, nil
}

// GetUserByEmailAddress returns the user with the email address
func GetUserByEmailAddress(email string) (UserType, int, error) {
	db, err := h.GetConnection()
	if err != nil {
		return UserType{}, http.StatusInternalServerError, err
	}

	m, err := scanUser(db.QueryRow(userColumns+`
 WHERE LOWER(email) = LOWER($1)`,
		strings.TrimSpace(email),
	))
	if err == sql.ErrNoRows {
		return UserType{}, http.StatusNotFound,
			fmt.Errorf("User with email %s not found", email)
	} else if err != nil {
		glog.Errorf("db.QueryRow(%s) %+v", email, err)
		return UserType{}, http.StatusInternalServerError,
			fmt.Errorf("Database query failed")
	}

	return m, http.StatusOK, nil
}

// GetUsers returns a page of users, optionally of a single role
func GetUsers(role string, limit int64, offset int64) ([]UserType, int64, int, error) {
	db, err := h.GetConnection()
	if err != nil {
		return []UserType{}, 0, http.StatusInternalServerError, err
	}

	rows, err := db.Query(`
SELECT COUNT(*) OVER() AS total
      ,user_id
      ,email
      ,display_name
      ,role
      ,agent_id
      ,created
      ,last_active
      ,is_banned
  FROM users
 WHERE ($1 = '' OR role = $1)
 ORDER BY display_name, user_id
 LIMIT $2
OFFSET $3`,
		role,
		limit,
		offset,
	)
	if err != nil {
		return []UserType{}, 0, http.StatusInternalServerError,
			fmt.Errorf("Database query failed: %v", err.Error())
	}
	defer rows.Close()

	var (
		total int64
		ems   = []UserType{}
	)
	for rows.Next() {
		var m UserType
		err = rows.Scan(
			&total,
			&m.ID,
			&m.Email,
			&m.DisplayName,
			&m.Role,
			&m.AgentIDNullable,
			&m.Created,
			&m.LastActiveNull,
			&m.IsBanned,
		)
		if err != nil {
			return []UserType{}, 0, http.StatusInternalServerError,
				fmt.Errorf("Row parsing error: %v", err.Error())
		}
		m.resolve()
		ems = append(ems, m)
	}
	err = rows.Err()
	if err != nil {
		return []UserType{}, 0, http.StatusInternalServerError,
			fmt.Errorf("Error fetching rows: %v", err.Error())
	}

	if offset > h.GetMaxOffset(total, limit) {
		return []UserType{}, 0, http.StatusBadRequest,
			fmt.Errorf("not enough records, offset (%d) would return an empty page", offset)
	}

	return ems, total, http.StatusOK, nil
}
