package controller

import (
	"net/http"

	h "github.com/happyplace/dashboard/helpers"
	"github.com/happyplace/dashboard/models"
)

// NotificationsHandler is a web handler
func NotificationsHandler(w http.ResponseWriter, r *http.Request) {
	c, status, err := models.MakeContext(r, w)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	switch c.GetHTTPMethod() {
	case "OPTIONS":
		c.RespondWithOptions([]string{"OPTIONS", "HEAD", "GET"})
		return
	case "HEAD", "GET":
		perms := models.GetPermission(c.AuthContext(h.ItemTypes[h.ItemTypeNotification], 0))
		if !perms.CanRead {
			c.RespondWithErrorMessage(h.NoAuthMessage, http.StatusForbidden)
			return
		}

		limit, _, status, err := h.GetLimitAndOffset(c.Request.URL.Query())
		if err != nil {
			c.RespondWithErrorDetail(err, status)
			return
		}

		m, status, err := models.ListNotifications(c.Auth.UserID, limit)
		if err != nil {
			c.RespondWithErrorDetail(err, status)
			return
		}

		c.RespondWithData(m)
	default:
		c.RespondWithStatus(http.StatusMethodNotAllowed)
		return
	}
}

// NotificationHandler marks a notification as read
func NotificationHandler(w http.ResponseWriter, r *http.Request) {
	c, status, err := models.MakeContext(r, w)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	switch c.GetHTTPMethod() {
	case "OPTIONS":
		c.RespondWithOptions([]string{"OPTIONS", "PATCH", "PUT"})
		return
	case "PATCH", "PUT":
		id, ok := routeID(c, "notification_id")
		if !ok {
			return
		}

		ac := c.AuthContext(h.ItemTypes[h.ItemTypeNotification], id)
		if !models.GetPermission(ac).CanUpdate {
			c.RespondWithErrorMessage(h.NoAuthMessage, http.StatusForbidden)
			return
		}

		// Notifications are only ever marked read, the user is checked in
		// the query
		status, err := models.MarkNotificationRead(ac, id)
		if err != nil {
			c.RespondWithErrorDetail(err, status)
			return
		}

		c.RespondWithOK()
	default:
		c.RespondWithStatus(http.StatusMethodNotAllowed)
		return
	}
}
