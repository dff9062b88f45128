package models

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang/glog"

	conf "github.com/happyplace/dashboard/config"
	e "github.com/happyplace/dashboard/errors"
	h "github.com/happyplace/dashboard/helpers"
	"github.com/happyplace/dashboard/metrics"
)

// AjaxActionNames are the actions the dashboard front end calls. Each must
// be registered before the server starts.
var AjaxActionNames = []string{
	"hph_get_dashboard_stats",
	"hph_get_section",
	"hph_save_listing",
	"hph_delete_listing",
	"hph_update_listing_status",
	"hph_save_lead",
	"hph_update_lead_status",
	"hph_add_lead_note",
	"hph_delete_lead",
	"hph_submit_lead",
	"hph_save_open_house",
	"hph_delete_open_house",
	"hph_rsvp_open_house",
	"hph_save_agent_profile",
	"hph_save_field",
	"hph_generate_flyer",
	"hph_generate_social_post",
	"hph_create_campaign",
	"hph_send_campaign",
	"hph_get_notifications",
	"hph_mark_notification_read",
	"hph_run_self_tests",
}

// AjaxRequest is a dispatched action with its parameters
type AjaxRequest struct {
	Action string
	Nonce  string
	Params map[string]string
}

// Int64 returns a numeric parameter, zero if it is absent
func (r AjaxRequest) Int64(name string) (int64, error) {
	v := strings.TrimSpace(r.Params[name])
	if v == "" {
		return 0, nil
	}

	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, e.New(0, "AjaxRequest.Int64", e.UnexpectedType,
			fmt.Sprintf("%s (%s) is not a number", name, v))
	}
	return i, nil
}

// RequiredInt64 returns a numeric parameter that must be greater than zero
func (r AjaxRequest) RequiredInt64(name string) (int64, error) {
	i, err := r.Int64(name)
	if err != nil {
		return 0, err
	}
	if i <= 0 {
		return 0, e.New(0, "AjaxRequest.RequiredInt64", e.OutOfRange,
			fmt.Sprintf("%s is required", name))
	}
	return i, nil
}

// AjaxHandler answers an action, returning the data for the response
// envelope
type AjaxHandler func(c *Context, req AjaxRequest) (interface{}, int, error)

// AjaxAction is an entry in the dispatch table. NoPriv actions accept guests,
// a Capability, when set, is required of signed in callers.
type AjaxAction struct {
	Name       string
	NoPriv     bool
	Capability string
	Handler    AjaxHandler
}

// AjaxResponse is the envelope of every AJAX response
type AjaxResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
}

var (
	ajaxActionsLock sync.RWMutex
	ajaxActions     = map[string]AjaxAction{}
)

// RegisterAjaxAction adds an action to the dispatch table, replacing any
// action of the same name
func RegisterAjaxAction(a AjaxAction) {
	ajaxActionsLock.Lock()
	defer ajaxActionsLock.Unlock()

	if _, ok := ajaxActions[a.Name]; ok {
		glog.Warningf("AJAX action %s registered twice", a.Name)
	}
	ajaxActions[a.Name] = a
}

// GetAjaxAction returns a registered action
func GetAjaxAction(name string) (AjaxAction, bool) {
	ajaxActionsLock.RLock()
	defer ajaxActionsLock.RUnlock()

	a, ok := ajaxActions[name]
	return a, ok
}

// RegisteredAjaxActions lists the registered actions in name order
func RegisteredAjaxActions() []string {
	ajaxActionsLock.RLock()
	defer ajaxActionsLock.RUnlock()

	names := []string{}
	for k := range ajaxActions {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// CheckAjaxRegistry reports every known action that is missing or has no
// handler
func CheckAjaxRegistry() []string {
	missing := []string{}
	for _, name := range AjaxActionNames {
		a, ok := GetAjaxAction(name)
		if !ok || a.Handler == nil {
			missing = append(missing, name)
		}
	}
	return missing
}

// nonceUser is the user a nonce is bound to, guests share user 0
func nonceUser(userID int64) int64 {
	if userID < 0 {
		return 0
	}
	return userID
}

// CreateNonce returns the nonce for an action and user at the given time
func CreateNonce(action string, userID int64, now time.Time) string {
	return h.CreateNonce(conf.ConfigStrings[conf.NonceSecret], action, nonceUser(userID), now)
}

// VerifyNonce returns 1 for a nonce issued in the current tick, 2 for the
// previous tick and 0 if the nonce is not valid
func VerifyNonce(nonce string, action string, userID int64, now time.Time) int {
	return h.VerifyNonce(conf.ConfigStrings[conf.NonceSecret], nonce, action, nonceUser(userID), now)
}

// DispatchAjax checks the caller may perform the action and runs it
func DispatchAjax(c *Context, req AjaxRequest) (interface{}, int, error) {
	a, ok := GetAjaxAction(req.Action)
	if !ok {
		metrics.AjaxActions.WithLabelValues("unknown", "unknown_action").Inc()
		return nil, http.StatusBadRequest,
			e.New(c.Auth.UserID, "DispatchAjax", e.UnknownAction,
				fmt.Sprintf("Unknown action (%s)", req.Action))
	}

	if c.IsGuest() && !a.NoPriv {
		metrics.AjaxActions.WithLabelValues(a.Name, "login_required").Inc()
		return nil, http.StatusUnauthorized,
			e.New(c.Auth.UserID, "DispatchAjax", e.LoginRequired,
				"You must be signed in to do that")
	}

	if VerifyNonce(req.Nonce, a.Name, c.Auth.UserID, time.Now()) == 0 {
		metrics.AjaxActions.WithLabelValues(a.Name, "invalid_nonce").Inc()
		return nil, http.StatusForbidden,
			e.New(c.Auth.UserID, "DispatchAjax", e.InvalidNonce,
				"Security check failed, please reload the page")
	}

	if !c.IsGuest() && a.Capability != "" && !HasCapability(c.Auth.Role, a.Capability) {
		metrics.AjaxActions.WithLabelValues(a.Name, "no_capability").Inc()
		return nil, http.StatusForbidden,
			e.New(c.Auth.UserID, "DispatchAjax", e.NoCapability,
				fmt.Sprintf("You do not have permission to %s", strings.TrimPrefix(a.Name, "hph_")))
	}

	data, status, err := a.Handler(c, req)
	if err != nil {
		metrics.AjaxActions.WithLabelValues(a.Name, "error").Inc()
		return data, status, err
	}

	metrics.AjaxActions.WithLabelValues(a.Name, "success").Inc()
	return data, status, nil
}
