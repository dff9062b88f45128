package models

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	c "github.com/happyplace/dashboard/cache"
	h "github.com/happyplace/dashboard/helpers"
)

// withActivity swaps the activity writer for fn
func withActivity(t *testing.T, fn func(int64, int64, int64, int64, string, string)) {
	prev := recordActivity
	recordActivity = fn
	t.Cleanup(func() { recordActivity = prev })
}

func TestWatchedWritesRebuildTheDashboard(t *testing.T) {
	withActivity(t, func(int64, int64, int64, int64, string, string) {})

	tests := []struct {
		itemType string
		action   string
		rebuilds bool
	}{
		{itemType: h.ItemTypeListing, action: ActionUpdated, rebuilds: true},
		{itemType: h.ItemTypeAgent, action: ActionUpdated, rebuilds: true},
		{itemType: h.ItemTypeLead, action: ActionCreated, rebuilds: true},
		{itemType: h.ItemTypeOpenHouse, action: ActionDeleted, rebuilds: true},
		{itemType: h.ItemTypeUser, action: ActionUpdated, rebuilds: true},
		{itemType: h.ItemTypeField, action: ActionUpdated, rebuilds: true},
		{itemType: h.ItemTypeCampaign, action: ActionFieldSaved, rebuilds: true},
		{itemType: h.ItemTypeCampaign, action: ActionSent, rebuilds: false},
		{itemType: h.ItemTypeFlyer, action: ActionCreated, rebuilds: false},
	}

	for _, tt := range tests {
		t.Run(tt.itemType+"/"+tt.action, func(t *testing.T) {
			calls := stubDashboard(t)
			c.InitMemoryCache()

			scope := DashboardScope{UserID: 10, AgentID: 5}
			_, err := GetDashboardStats(context.Background(), c.NewMemo(), scope)
			require.NoError(t, err)
			require.Equal(t, 1, calls.stats)

			fireMutation(MutationType{
				Memo:       c.NewMemo(),
				UserID:     10,
				ItemTypeID: h.ItemTypes[tt.itemType],
				ItemID:     3,
				Action:     tt.action,
			})

			_, err = GetDashboardStats(context.Background(), c.NewMemo(), scope)
			require.NoError(t, err)

			want := 1
			if tt.rebuilds {
				want = 2
			}
			assert.Equal(t, want, calls.stats)
		})
	}
}

func TestActivityIsRecordedBeforeTheDashboardIsFlushed(t *testing.T) {
	calls := stubDashboard(t)
	c.InitMemoryCache()

	scope := DashboardScope{UserID: 10, AgentID: 5}
	recorded := []string{}

	// A dashboard read made while the activity row is written must not
	// outlive the write
	withActivity(t, func(_, _, _, _ int64, action string, summary string) {
		recorded = append(recorded, summary)
		_, err := GetDashboardStats(context.Background(), c.NewMemo(), scope)
		require.NoError(t, err)
	})

	ac := AuthContext{UserID: 10, AgentID: 5, Role: RoleAgent, Memo: c.NewMemo()}
	ac.mutated(h.ItemTypes[h.ItemTypeLead], 8, 5, ActionCreated, "New lead from Ann")

	require.Equal(t, []string{"New lead from Ann"}, recorded)
	require.Equal(t, 1, calls.stats)

	_, err := GetDashboardStats(context.Background(), c.NewMemo(), scope)
	require.NoError(t, err)
	assert.Equal(t, 2, calls.stats, "the read inside the hook should have been invalidated")
}

func TestUserUpdateInvalidatesTheDashboard(t *testing.T) {
	calls := stubDashboard(t)
	c.InitMemoryCache()

	recorded := []int64{}
	withActivity(t, func(_, _, itemTypeID, itemID int64, _ string, _ string) {
		if itemTypeID == h.ItemTypes[h.ItemTypeUser] {
			recorded = append(recorded, itemID)
		}
	})

	scope := DashboardScope{UserID: 1}
	_, err := GetDashboardStats(context.Background(), c.NewMemo(), scope)
	require.NoError(t, err)

	m := UserType{ID: 12, DisplayName: "Sam", Role: RoleAssistant, AgentID: 5}
	m.saved(AuthContext{UserID: 1, Role: RoleAdministrator, Memo: c.NewMemo()})

	_, err = GetDashboardStats(context.Background(), c.NewMemo(), scope)
	require.NoError(t, err)
	assert.Equal(t, 2, calls.stats)
	assert.Equal(t, []int64{12}, recorded)
}
