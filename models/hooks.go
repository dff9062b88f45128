package models

import (
	"sync"

	c "github.com/happyplace/dashboard/cache"
	h "github.com/happyplace/dashboard/helpers"
)

// Mutation actions
const (
	ActionCreated       string = "created"
	ActionUpdated       string = "updated"
	ActionDeleted       string = "deleted"
	ActionStatusChanged string = "status_changed"
	ActionNoteAdded     string = "note_added"
	ActionFieldSaved    string = "field_saved"
	ActionRSVP          string = "rsvp"
	ActionSent          string = "sent"
)

// MutationType describes a change to an entity
type MutationType struct {
	Memo       *c.Memo
	UserID     int64
	AgentID    int64
	ItemTypeID int64
	ItemID     int64
	Action     string
	Summary    string
}

var (
	mutationHooksLock sync.RWMutex
	mutationHooks     = []func(MutationType){
		purgeItemHook,
		recordActivityHook,
		// Last, so that no dashboard read can cache a feed without the new
		// activity
		invalidateDashboardHook,
	}
)

// RegisterMutationHook adds a function to be called after every change to
// an entity
func RegisterMutationHook(hook func(MutationType)) {
	mutationHooksLock.Lock()
	defer mutationHooksLock.Unlock()

	mutationHooks = append(mutationHooks, hook)
}

func fireMutation(ev MutationType) {
	mutationHooksLock.RLock()
	hooks := make([]func(MutationType), len(mutationHooks))
	copy(hooks, mutationHooks)
	mutationHooksLock.RUnlock()

	for _, hook := range hooks {
		hook(ev)
	}
}

// mutated fires the hooks for a change made by the caller
func (ac AuthContext) mutated(
	itemTypeID int64,
	itemID int64,
	agentID int64,
	action string,
	summary string,
) {
	fireMutation(MutationType{
		Memo:       ac.Memo,
		UserID:     ac.UserID,
		AgentID:    agentID,
		ItemTypeID: itemTypeID,
		ItemID:     itemID,
		Action:     action,
		Summary:    summary,
	})
}

func purgeItemHook(ev MutationType) {
	PurgeCache(ev.ItemTypeID, ev.ItemID)
}

// dashboardWatched are the item types that feed the dashboard aggregates
var dashboardWatched = map[int64]bool{
	h.ItemTypes[h.ItemTypeAgent]:     true,
	h.ItemTypes[h.ItemTypeLead]:      true,
	h.ItemTypes[h.ItemTypeListing]:   true,
	h.ItemTypes[h.ItemTypeOpenHouse]: true,
	h.ItemTypes[h.ItemTypeUser]:      true,
	h.ItemTypes[h.ItemTypeField]:     true,
}

func invalidateDashboardHook(ev MutationType) {
	if dashboardWatched[ev.ItemTypeID] || ev.Action == ActionFieldSaved {
		InvalidateDashboard(ev.Memo)
	}
}

// recordActivity writes the activity row. Tests replace it.
var recordActivity = RecordActivity

func recordActivityHook(ev MutationType) {
	if ev.Summary == "" {
		return
	}
	recordActivity(ev.UserID, ev.AgentID, ev.ItemTypeID, ev.ItemID, ev.Action, ev.Summary)
}
