package models

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/golang/glog"

	h "github.com/happyplace/dashboard/helpers"
)

// ActivityType is an entry in the activity feed
type ActivityType struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"userId"`
	AgentID    int64     `json:"agentId,omitempty"`
	ItemTypeID int64     `json:"-"`
	ItemType   string    `json:"itemType"`
	ItemID     int64     `json:"itemId"`
	Action     string    `json:"action"`
	Summary    string    `json:"summary"`
	Created    time.Time `json:"created"`
}

// RecordActivity appends to the activity feed. Failures are logged and
// never fail the change that caused them.
func RecordActivity(
	userID int64,
	agentID int64,
	itemTypeID int64,
	itemID int64,
	action string,
	summary string,
) {
	db, err := h.GetConnection()
	if err != nil {
		glog.Warningf("h.GetConnection() %+v", err)
		return
	}

	agent := sql.NullInt64{Int64: agentID, Valid: agentID > 0}

	_, err = db.Exec(`
INSERT INTO activity (
    user_id, agent_id, item_type_id, item_id, action,
    summary
) VALUES (
    $1, $2, $3, $4, $5,
    $6
)`,
		userID,
		agent,
		itemTypeID,
		itemID,
		action,

		summary,
	)
	if err != nil {
		glog.Errorf("RecordActivity(%d, %d, %s) %+v", itemTypeID, itemID, action, err)
	}
}

// GetActivity returns the most recent activity. A zero agent ID returns
// activity across every agent.
func GetActivity(agentID int64, limit int64) ([]ActivityType, int, error) {
	if limit <= 0 {
		limit = h.DefaultQueryLimit
	}

	db, err := h.GetConnection()
	if err != nil {
		return []ActivityType{}, http.StatusInternalServerError, err
	}

	rows, err := db.Query(`--GetActivity
SELECT activity_id
      ,user_id
      ,COALESCE(agent_id, 0)
      ,item_type_id
      ,item_id
      ,action
      ,summary
      ,created
  FROM activity
 WHERE ($1 = 0 OR agent_id = $1)
 ORDER BY created DESC
 LIMIT $2`,
		agentID,
		limit,
	)
	if err != nil {
		return []ActivityType{}, http.StatusInternalServerError,
			fmt.Errorf("Database query failed: %v", err.Error())
	}
	defer rows.Close()

	ems := []ActivityType{}
	for rows.Next() {
		var m ActivityType
		err = rows.Scan(
			&m.ID,
			&m.UserID,
			&m.AgentID,
			&m.ItemTypeID,
			&m.ItemID,
			&m.Action,
			&m.Summary,
			&m.Created,
		)
		if err != nil {
			return []ActivityType{}, http.StatusInternalServerError,
				fmt.Errorf("Row parsing error: %v", err.Error())
		}
		m.ItemType, _ = h.GetItemTypeFromInt(m.ItemTypeID)
		ems = append(ems, m)
	}
	err = rows.Err()
	if err != nil {
		return []ActivityType{}, http.StatusInternalServerError,
			fmt.Errorf("Error fetching rows: %v", err.Error())
	}

	return ems, http.StatusOK, nil
}
