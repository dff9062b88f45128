package models

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	c "github.com/happyplace/dashboard/cache"
)

type dashboardCalls struct {
	stats    int
	agentIDs []int64
}

func stubDashboard(t *testing.T) *dashboardCalls {
	calls := &dashboardCalls{}

	prevDash, prevWidgets := dashboardQueries, widgetQueries
	t.Cleanup(func() {
		dashboardQueries, widgetQueries = prevDash, prevWidgets
		c.DisableCache()
	})
	c.DisableCache()

	dashboardQueries.stats = func(_ context.Context, agentID int64, now time.Time) (DashboardStatsType, error) {
		calls.stats++
		calls.agentIDs = append(calls.agentIDs, agentID)
		return DashboardStatsType{
			ActiveListings:    4,
			TotalListingValue: 2500000,
			NewLeads:          3,
			ConversionRate:    12.5,
			Generated:         now,
		}, nil
	}
	dashboardQueries.activity = func(context.Context, int64, int64) ([]ActivityType, error) {
		return []ActivityType{{ID: 1, ItemType: "lead", Summary: "New lead from Ann", Created: time.Now()}}, nil
	}
	dashboardQueries.inbox = func(context.Context, int64) (NotificationsType, error) {
		return NotificationsType{Unread: 1, Notifications: []NotificationType{{ID: 9, Message: "RSVP received"}}}, nil
	}
	dashboardQueries.pipeline = func(context.Context, int64) (LeadPipelineType, error) {
		return buildPipeline(map[string]int64{LeadStatusNew: 3, LeadStatusClosed: 1}), nil
	}
	dashboardQueries.performance = func(context.Context, int64, int64) ([]ListingPerformanceType, error) {
		return []ListingPerformanceType{{ListingID: 42, Title: "Bungalow", Views: 100}}, nil
	}

	widgetQueries.listings = func(int64, int64) ([]ListingType, error) {
		return []ListingType{{ID: 42, Title: "Bungalow <3", City: "Austin", Price: 500000, Status: ListingStatusComingSoon}}, nil
	}
	widgetQueries.leads = func(int64, int64) ([]LeadType, error) { return []LeadType{}, nil }
	widgetQueries.openHouses = func(int64, int64) ([]OpenHouseType, error) { return nil, nil }
	widgetQueries.selfTests = func(int64) ([]SelfTestRunType, error) { return nil, nil }
	widgetQueries.agent = func(id int64) (AgentType, error) { return AgentType{ID: id, DisplayName: "Jo"}, nil }

	return calls
}

func widgetContext(auth AuthType) WidgetContext {
	return WidgetContext{
		Ctx:   context.Background(),
		Memo:  c.NewMemo(),
		Auth:  auth,
		Scope: ScopeFor(auth),
	}
}

func TestScopeFor(t *testing.T) {
	assert.Equal(t, DashboardScope{UserID: 10, AgentID: 5}, ScopeFor(AuthType{UserID: 10, AgentID: 5, Role: RoleAgent}))
	assert.Equal(t, DashboardScope{UserID: 11}, ScopeFor(AuthType{UserID: 11, AgentID: 1, Role: RoleBroker}))
}

func TestSectionsByRole(t *testing.T) {
	ids := func(role string) []string {
		out := []string{}
		for _, s := range GetSections(role) {
			out = append(out, s.ID)
		}
		return out
	}

	assert.Equal(t,
		[]string{"overview", "listings", "leads", "open-houses", "marketing", "profile", "performance", "diagnostics"},
		ids(RoleAdministrator),
	)
	assert.NotContains(t, ids(RoleAgent), "diagnostics")
	assert.NotContains(t, ids(RoleAssistant), "performance")
	assert.Empty(t, ids(RoleSubscriber))
	assert.Empty(t, ids(RoleGuest))

	_, ok := GetSection(RoleAgent, "diagnostics")
	assert.False(t, ok)
	s, ok := GetSection(RoleAgent, "open-houses")
	assert.True(t, ok)
	assert.Equal(t, "Open Houses", s.Title)
}

func TestSectionsNameRealWidgets(t *testing.T) {
	assert.NoError(t, checkSections(context.Background()))
}

func TestDashboardStatsAreMemoised(t *testing.T) {
	calls := stubDashboard(t)
	wc := widgetContext(AuthType{UserID: 10, AgentID: 5, Role: RoleAgent})

	a, err := GetDashboardStats(wc.Ctx, wc.Memo, wc.Scope)
	require.NoError(t, err)
	b, err := GetDashboardStats(wc.Ctx, wc.Memo, wc.Scope)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, 1, calls.stats)
	assert.Equal(t, []int64{5}, calls.agentIDs)

	InvalidateDashboard(wc.Memo)
	_, err = GetDashboardStats(wc.Ctx, wc.Memo, wc.Scope)
	require.NoError(t, err)
	assert.Equal(t, 2, calls.stats)
}

func TestEmptyFeedsSurviveTheSharedCache(t *testing.T) {
	stubDashboard(t)
	c.InitMemoryCache()

	dashboardQueries.activity = func(context.Context, int64, int64) ([]ActivityType, error) {
		return []ActivityType{}, nil
	}
	dashboardQueries.inbox = func(context.Context, int64) (NotificationsType, error) {
		return NotificationsType{Notifications: []NotificationType{}}, nil
	}

	scope := DashboardScope{UserID: 10, AgentID: 5}
	asJSON := func(v interface{}) string {
		b, err := json.Marshal(v)
		require.NoError(t, err)
		return string(b)
	}

	// Each call stands for a new request with its own memo
	for i := 0; i < 2; i++ {
		activity, err := GetRecentActivity(context.Background(), c.NewMemo(), scope, 10)
		require.NoError(t, err)
		assert.Equal(t, "[]", asJSON(activity), "request %d", i+1)

		inbox, err := GetNotifications(context.Background(), c.NewMemo(), scope.UserID)
		require.NoError(t, err)
		assert.JSONEq(t, `{"unread":0,"notifications":[]}`, asJSON(inbox), "request %d", i+1)
	}
}

func TestDashboardStatsError(t *testing.T) {
	stubDashboard(t)
	dashboardQueries.stats = func(context.Context, int64, time.Time) (DashboardStatsType, error) {
		return DashboardStatsType{}, fmt.Errorf("database is down")
	}

	wc := widgetContext(AuthType{UserID: 10, AgentID: 5, Role: RoleAgent})
	_, err := RenderWidget(wc, WidgetStats)
	assert.EqualError(t, err, "widget stats: database is down")
}

func TestBuildPipeline(t *testing.T) {
	m := buildPipeline(map[string]int64{LeadStatusNew: 6, LeadStatusClosed: 2})

	require.Len(t, m.Stages, len(LeadStatuses))
	assert.Equal(t, LeadStatuses[0], m.Stages[0].Status)
	assert.Equal(t, int64(8), m.Total)
	assert.Equal(t, 25.0, m.ConversionRate)

	assert.Equal(t, 0.0, conversionRate(0, 0))
	assert.Equal(t, 33.3, conversionRate(1, 3))
}

func TestRenderWidgets(t *testing.T) {
	stubDashboard(t)
	wc := widgetContext(AuthType{UserID: 1, AgentID: 0, Role: RoleAdministrator})

	for _, id := range WidgetIDs() {
		html, err := RenderWidget(wc, id)
		require.NoError(t, err, id)
		assert.True(t, strings.HasPrefix(string(html), `<div class="hph-widget" id="hph-widget-`+id+`">`), id)
	}

	html, err := RenderWidget(wc, WidgetStats)
	require.NoError(t, err)
	assert.Contains(t, string(html), "$2,500,000")
	assert.Contains(t, string(html), "12.5%")

	html, err = RenderWidget(wc, WidgetListingTable)
	require.NoError(t, err)
	assert.Contains(t, string(html), "Bungalow &lt;3")
	assert.Contains(t, string(html), "coming soon")

	_, err = RenderWidget(wc, "weather")
	assert.Error(t, err)
}

func TestQuickActionsFollowCapabilities(t *testing.T) {
	stubDashboard(t)

	data, err := GetWidgetData(widgetContext(AuthType{UserID: 12, AgentID: 5, Role: RoleAssistant}), WidgetQuickActions)
	require.NoError(t, err)

	actions := data.([]QuickActionType)
	names := []string{}
	for _, a := range actions {
		names = append(names, a.Action)
	}
	assert.Contains(t, names, "hph_save_listing")
	assert.NotContains(t, names, "hph_run_self_tests")
}

func TestRenderSection(t *testing.T) {
	stubDashboard(t)
	wc := widgetContext(AuthType{UserID: 10, AgentID: 5, Role: RoleAgent})

	s, ok := GetSection(RoleAgent, "overview")
	require.True(t, ok)

	html, err := RenderSection(wc, s)
	require.NoError(t, err)
	assert.Contains(t, string(html), `id="hph-section-overview"`)
	for _, id := range s.Widgets {
		assert.Contains(t, string(html), `id="hph-widget-`+id+`"`)
	}

	data, err := GetSectionData(wc, s)
	require.NoError(t, err)
	assert.Len(t, data.Data, len(s.Widgets))
}
