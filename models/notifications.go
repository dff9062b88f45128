package models

import (
	"fmt"
	"net/http"
	"time"

	h "github.com/happyplace/dashboard/helpers"
)

// Kinds of notification
const (
	NotificationKindNewLead      string = "new_lead"
	NotificationKindRSVP         string = "rsvp"
	NotificationKindCampaignSent string = "campaign_sent"
	NotificationKindSelfTest     string = "selftest_failed"
)

// NotificationRetention is how long read notifications are kept
const NotificationRetention = 30 * 24 * time.Hour

// NotificationType tells a user about something that needs their attention
type NotificationType struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"-"`
	Kind       string    `json:"kind"`
	Message    string    `json:"message"`
	ItemTypeID int64     `json:"-"`
	ItemType   string    `json:"itemType"`
	ItemID     int64     `json:"itemId"`
	Read       bool      `json:"read"`
	Created    time.Time `json:"created"`
}

// NotificationsType are a user's notifications with the unread count
type NotificationsType struct {
	Unread        int64              `json:"unread"`
	Notifications []NotificationType `json:"notifications"`
}

// CreateNotification stores a notification for a user
func CreateNotification(
	userID int64,
	kind string,
	message string,
	itemTypeID int64,
	itemID int64,
) (
	NotificationType,
	int,
	error,
) {
	m := NotificationType{
		UserID:     userID,
		Kind:       kind,
		Message:    SanitiseText(message),
		ItemTypeID: itemTypeID,
		ItemID:     itemID,
	}
	m.ItemType, _ = h.GetItemTypeFromInt(itemTypeID)

	db, err := h.GetConnection()
	if err != nil {
		return NotificationType{}, http.StatusInternalServerError, err
	}

	err = db.QueryRow(`
INSERT INTO notifications (
    user_id, kind, message, item_type_id, item_id
) VALUES (
    $1, $2, $3, $4, $5
) RETURNING notification_id, created`,
		m.UserID,
		m.Kind,
		m.Message,
		m.ItemTypeID,
		m.ItemID,
	).Scan(
		&m.ID,
		&m.Created,
	)
	if err != nil {
		return NotificationType{}, http.StatusInternalServerError,
			fmt.Errorf("Error inserting data and returning ID: %+v", err)
	}

	InvalidateDashboard(nil)

	return m, http.StatusOK, nil
}

// ListNotifications returns a user's newest notifications and how many are
// unread
func ListNotifications(userID int64, limit int64) (NotificationsType, int, error) {
	if limit <= 0 {
		limit = h.DefaultQueryLimit
	}

	db, err := h.GetConnection()
	if err != nil {
		return NotificationsType{}, http.StatusInternalServerError, err
	}

	rows, err := db.Query(`--ListNotifications
SELECT COUNT(*) FILTER (WHERE is_read IS NOT TRUE) OVER() AS unread
      ,notification_id
      ,user_id
      ,kind
      ,message
      ,item_type_id
      ,item_id
      ,is_read
      ,created
  FROM notifications
 WHERE user_id = $1
 ORDER BY is_read
         ,created DESC
 LIMIT $2`,
		userID,
		limit,
	)
	if err != nil {
		return NotificationsType{}, http.StatusInternalServerError,
			fmt.Errorf("Database query failed: %v", err.Error())
	}
	defer rows.Close()

	ems := NotificationsType{Notifications: []NotificationType{}}
	for rows.Next() {
		var m NotificationType
		err = rows.Scan(
			&ems.Unread,
			&m.ID,
			&m.UserID,
			&m.Kind,
			&m.Message,
			&m.ItemTypeID,
			&m.ItemID,
			&m.Read,
			&m.Created,
		)
		if err != nil {
			return NotificationsType{}, http.StatusInternalServerError,
				fmt.Errorf("Row parsing error: %v", err.Error())
		}
		m.ItemType, _ = h.GetItemTypeFromInt(m.ItemTypeID)
		ems.Notifications = append(ems.Notifications, m)
	}
	err = rows.Err()
	if err != nil {
		return NotificationsType{}, http.StatusInternalServerError,
			fmt.Errorf("Error fetching rows: %v", err.Error())
	}

	return ems, http.StatusOK, nil
}

// MarkNotificationRead marks one of the user's notifications as read. A
// notification ID of zero marks all of them.
func MarkNotificationRead(ac AuthContext, notificationID int64) (int, error) {
	db, err := h.GetConnection()
	if err != nil {
		return http.StatusInternalServerError, err
	}

	res, err := db.Exec(`
UPDATE notifications
   SET is_read = true
 WHERE user_id = $1
   AND ($2 = 0 OR notification_id = $2)
   AND is_read IS NOT TRUE`,
		ac.UserID,
		notificationID,
	)
	if err != nil {
		return http.StatusInternalServerError,
			fmt.Errorf("Update failed: %v", err.Error())
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 && notificationID > 0 {
		return http.StatusNotFound,
			fmt.Errorf("Notification %d not found", notificationID)
	}

	InvalidateDashboard(ac.Memo)

	return http.StatusOK, nil
}

// PurgeOldNotifications deletes read notifications older than the retention
// period and returns how many were removed
func PurgeOldNotifications(now time.Time) (int64, error) {
	db, err := h.GetConnection()
	if err != nil {
		return 0, err
	}

	res, err := db.Exec(`
DELETE FROM notifications
 WHERE is_read = true
   AND created < $1`,
		now.Add(-NotificationRetention),
	)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}
