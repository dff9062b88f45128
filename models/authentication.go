package models

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/golang/glog"

	c "github.com/happyplace/dashboard/cache"
	h "github.com/happyplace/dashboard/helpers"
)

// AccessTokenLength is the number of chars in an issued access token
const AccessTokenLength = 64

// AccessTokenType is a bearer token issued to a user
type AccessTokenType struct {
	AccessTokenID int64     `json:"-"`
	TokenValue    string    `json:"accessToken"`
	UserID        int64     `json:"-"`
	User          UserType  `json:"user"`
	Created       time.Time `json:"created"`
	Expires       time.Time `json:"expires"`
}

func accessTokenTTL(expires time.Time) int32 {
	ttl := int32(time.Until(expires).Seconds())
	if ttl <= 0 {
		return 1
	}
	if ttl > mcTTL {
		return mcTTL
	}
	return ttl
}

// Insert saves a new access token for the user
func (m *AccessTokenType) Insert() (int, error) {
	if m.TokenValue == "" {
		tokenValue, err := h.RandString(AccessTokenLength)
		if err != nil {
			return http.StatusInternalServerError,
				fmt.Errorf("Could not generate a random string: %v", err)
		}
		m.TokenValue = tokenValue
	}

	tx, err := h.GetTransaction()
	if err != nil {
		return http.StatusInternalServerError, err
	}
	defer tx.Rollback()

	err = tx.QueryRow(`
INSERT INTO access_tokens (
    token_value, user_id
) VALUES (
    $1, $2
) RETURNING access_token_id, created, expires`,
		m.TokenValue,
		m.UserID,
	).Scan(
		&m.AccessTokenID,
		&m.Created,
		&m.Expires,
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

	u, status, err := GetUser(m.UserID)
	if err != nil {
		return status, err
	}
	m.User = u

	mcKey := fmt.Sprintf(mcAccessTokenKeys[c.CacheDetail], m.TokenValue)
	c.Set(mcKey, m, accessTokenTTL(m.Expires))

	return http.StatusOK, nil
}

// GetAccessToken returns the stored token for the token value
func GetAccessToken(token string) (AccessTokenType, int, error) {
	mcKey := fmt.Sprintf(mcAccessTokenKeys[c.CacheDetail], token)
	var m AccessTokenType
	if c.Get(mcKey, &m) {
		return m, http.StatusOK, nil
	}

	db, err := h.GetConnection()
	if err != nil {
		return AccessTokenType{}, http.StatusInternalServerError, err
	}

	err = db.QueryRow(`
SELECT access_token_id
      ,token_value
      ,user_id
      ,created
      ,expires
  FROM access_tokens
 WHERE token_value = $1`,
		token,
	).Scan(
		&m.AccessTokenID,
		&m.TokenValue,
		&m.UserID,
		&m.Created,
		&m.Expires,
	)
	if err == sql.ErrNoRows {
		return AccessTokenType{}, http.StatusNotFound,
			fmt.Errorf("Token not found")
	} else if err != nil {
		glog.Errorf("db.QueryRow(%s) %+v", token, err)
		return AccessTokenType{}, http.StatusInternalServerError,
			fmt.Errorf("Database query failed")
	}

	u, status, err := GetUser(m.UserID)
	if err != nil {
		return AccessTokenType{}, status, err
	}
	m.User = u

	c.Set(mcKey, m, accessTokenTTL(m.Expires))

	return m, http.StatusOK, nil
}

// Delete revokes the access token
func (m *AccessTokenType) Delete() (int, error) {
	tx, err := h.GetTransaction()
	if err != nil {
		return http.StatusInternalServerError, err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
DELETE FROM access_tokens
 WHERE token_value = $1`,
		m.TokenValue,
	)
	if err != nil {
		return http.StatusInternalServerError,
			fmt.Errorf("Could not delete token: %v", err.Error())
	}

	err = tx.Commit()
	if err != nil {
		return http.StatusInternalServerError,
			fmt.Errorf("Could not commit transaction: %v", err.Error())
	}

	// The token value is a string so PurgeCache cannot be used
	c.Delete(fmt.Sprintf(mcAccessTokenKeys[c.CacheDetail], m.TokenValue))

	return http.StatusOK, nil
}

// PurgeUserAccessTokens drops every cached token of the user, used when a
// user's role changes so the next request reloads it
func PurgeUserAccessTokens(userID int64) error {
	db, err := h.GetConnection()
	if err != nil {
		return err
	}

	rows, err := db.Query(`
SELECT token_value
  FROM access_tokens
 WHERE user_id = $1
   AND expires > NOW()`,
		userID,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var token string
		err = rows.Scan(&token)
		if err != nil {
			return err
		}
		c.Delete(fmt.Sprintf(mcAccessTokenKeys[c.CacheDetail], token))
	}

	return rows.Err()
}
