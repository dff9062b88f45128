package audit

import (
	"net"
	"time"

	"github.com/golang/glog"

	h "github.com/happyplace/dashboard/helpers"
)

// Internal single-char indication of the auditable actions
const (
	create  = `C`
	replace = `R`
	update  = `U`
	delete  = `D`
)

// Create records an insert/create/POST action
func Create(itemTypeID int64, itemID int64, userID int64, seen time.Time, ipAddress net.IP) {
	recordAction(itemTypeID, itemID, userID, seen, ipAddress, create)
}

// Replace records a full update/replace/PUT action
func Replace(itemTypeID int64, itemID int64, userID int64, seen time.Time, ipAddress net.IP) {
	recordAction(itemTypeID, itemID, userID, seen, ipAddress, replace)
}

// Update records a partial update/PATCH action
func Update(itemTypeID int64, itemID int64, userID int64, seen time.Time, ipAddress net.IP) {
	recordAction(itemTypeID, itemID, userID, seen, ipAddress, update)
}

// Delete records a remove/DELETE action
func Delete(itemTypeID int64, itemID int64, userID int64, seen time.Time, ipAddress net.IP) {
	recordAction(itemTypeID, itemID, userID, seen, ipAddress, delete)
}

// recordAction appends to the audit log. Requests without a usable remote
// address (tests, internal jobs) are not audited.
func recordAction(
	itemTypeID int64,
	itemID int64,
	userID int64,
	seen time.Time,
	ipAddress net.IP,
	action string,
) {
	if ipAddress == nil {
		if glog.V(2) {
			glog.Infof("IP Address was nil for itemTypeId = %d", itemTypeID)
		}
		return
	}

	db, err := h.GetConnection()
	if err != nil {
		glog.Error(err)
		return
	}

	_, err = db.Exec(`
INSERT INTO ips (
    item_type_id, item_id, user_id, seen, action, ip
) VALUES (
    $1, $2, $3, $4, $5, $6
)`,
		itemTypeID,
		itemID,
		userID,
		seen,
		action,
		ipAddress.String(),
	)
	if err != nil {
		glog.Error(err)
	}
}
