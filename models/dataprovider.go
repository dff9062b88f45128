package models

import (
	"context"
	"database/sql"
	"math"
	"time"

	"github.com/golang/glog"
	"golang.org/x/sync/errgroup"

	c "github.com/happyplace/dashboard/cache"
	h "github.com/happyplace/dashboard/helpers"
)

// NewLeadWindow is how far back a lead counts as new
const NewLeadWindow = 30 * 24 * time.Hour

// DashboardScope is whose data a dashboard shows. An AgentID of zero
// aggregates across every agent.
type DashboardScope struct {
	UserID  int64
	AgentID int64
}

// ScopeFor returns the dashboard scope of the caller. Brokers and
// administrators see the whole brokerage, everyone else sees their agent.
func ScopeFor(auth AuthType) DashboardScope {
	scope := DashboardScope{UserID: auth.UserID, AgentID: auth.AgentID}
	if HasCapability(auth.Role, CapViewAllLeads) {
		scope.AgentID = 0
	}
	return scope
}

// DashboardStatsType are the headline numbers of the overview
type DashboardStatsType struct {
	ActiveListings     int64            `json:"activeListings"`
	PendingListings    int64            `json:"pendingListings"`
	SoldListings       int64            `json:"soldListings"`
	ComingSoonListings int64            `json:"comingSoonListings"`
	TotalListingValue  int64            `json:"totalListingValue"`
	TotalLeads         int64            `json:"totalLeads"`
	NewLeads           int64            `json:"newLeads"`
	LeadsByStatus      map[string]int64 `json:"leadsByStatus"`
	UpcomingOpenHouses int64            `json:"upcomingOpenHouses"`
	RSVPTotal          int64            `json:"rsvpTotal"`
	ConversionRate     float64          `json:"conversionRate"`
	Generated          time.Time        `json:"generated"`
}

// ListingPerformanceType is how a listing is doing
type ListingPerformanceType struct {
	ListingID    int64  `json:"listingId"`
	Title        string `json:"title"`
	Status       string `json:"status"`
	Price        int64  `json:"price"`
	Views        int64  `json:"views"`
	Leads        int64  `json:"leads"`
	OpenHouses   int64  `json:"openHouses"`
	RSVPs        int64  `json:"rsvps"`
	DaysOnMarket int64  `json:"daysOnMarket"`
}

// PipelineStageType is the number of leads at one stage
type PipelineStageType struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// LeadPipelineType is the lead funnel in stage order
type LeadPipelineType struct {
	Stages         []PipelineStageType `json:"stages"`
	Total          int64               `json:"total"`
	ConversionRate float64             `json:"conversionRate"`
}

// dashboardQueries build the aggregates from the database. Tests replace
// them.
var dashboardQueries = struct {
	stats       func(ctx context.Context, agentID int64, now time.Time) (DashboardStatsType, error)
	activity    func(ctx context.Context, agentID int64, limit int64) ([]ActivityType, error)
	performance func(ctx context.Context, agentID int64, listingID int64) ([]ListingPerformanceType, error)
	pipeline    func(ctx context.Context, agentID int64) (LeadPipelineType, error)
	inbox       func(ctx context.Context, userID int64) (NotificationsType, error)
}{
	stats:       queryDashboardStats,
	activity:    queryRecentActivity,
	performance: queryListingPerformance,
	pipeline:    queryLeadPipeline,
	inbox:       queryNotifications,
}

// InvalidateDashboard makes every cached aggregate unreachable and forgets
// what the request has memoised
func InvalidateDashboard(memo *c.Memo) {
	c.FlushGroup(DashboardGroup)
	memo.Flush()
}

// GetDashboardStats returns the overview numbers for the scope
func GetDashboardStats(
	ctx context.Context,
	memo *c.Memo,
	scope DashboardScope,
) (
	DashboardStatsType,
	error,
) {
	key := c.KeyFor("stats", scope.UserID, scope.AgentID)
	return c.Remember(memo, DashboardGroup, key, DashboardTTL(),
		func() (DashboardStatsType, error) {
			return dashboardQueries.stats(ctx, scope.AgentID, time.Now())
		},
	)
}

// GetRecentActivity returns the latest entries of the activity feed
func GetRecentActivity(
	ctx context.Context,
	memo *c.Memo,
	scope DashboardScope,
	limit int64,
) (
	[]ActivityType,
	error,
) {
	key := c.KeyFor("activity", scope.UserID, scope.AgentID, limit)
	return c.Remember(memo, DashboardGroup, key, DashboardTTL(),
		func() ([]ActivityType, error) {
			return dashboardQueries.activity(ctx, scope.AgentID, limit)
		},
	)
}

// GetNotifications returns the user's notifications
func GetNotifications(
	ctx context.Context,
	memo *c.Memo,
	userID int64,
) (
	NotificationsType,
	error,
) {
	key := c.KeyFor("notifications", userID)
	return c.Remember(memo, DashboardGroup, key, DashboardTTL(),
		func() (NotificationsType, error) {
			return dashboardQueries.inbox(ctx, userID)
		},
	)
}

// GetListingPerformance returns the performance of one listing, or of the
// scope's most viewed listings when listingID is zero
func GetListingPerformance(
	ctx context.Context,
	memo *c.Memo,
	scope DashboardScope,
	listingID int64,
) (
	[]ListingPerformanceType,
	error,
) {
	key := c.KeyFor("performance", scope.UserID, scope.AgentID, listingID)
	return c.Remember(memo, DashboardGroup, key, DashboardTTL(),
		func() ([]ListingPerformanceType, error) {
			return dashboardQueries.performance(ctx, scope.AgentID, listingID)
		},
	)
}

// GetLeadPipeline returns the number of leads at each stage
func GetLeadPipeline(
	ctx context.Context,
	memo *c.Memo,
	scope DashboardScope,
) (
	LeadPipelineType,
	error,
) {
	key := c.KeyFor("pipeline", scope.UserID, scope.AgentID)
	return c.Remember(memo, DashboardGroup, key, DashboardTTL(),
		func() (LeadPipelineType, error) {
			return dashboardQueries.pipeline(ctx, scope.AgentID)
		},
	)
}

// conversionRate is the percentage of leads that closed, to one decimal
// place
func conversionRate(closed int64, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(closed)/float64(total)*1000) / 10
}

func queryDashboardStats(
	ctx context.Context,
	agentID int64,
	now time.Time,
) (
	DashboardStatsType,
	error,
) {
	db, err := h.GetConnection()
	if err != nil {
		return DashboardStatsType{}, err
	}

	m := DashboardStatsType{
		LeadsByStatus: map[string]int64{},
		Generated:     now,
	}
	for _, s := range LeadStatuses {
		m.LeadsByStatus[s] = 0
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return db.QueryRowContext(ctx, `--DashboardStats listings
SELECT COUNT(*) FILTER (WHERE status = $2)
      ,COUNT(*) FILTER (WHERE status = $3)
      ,COUNT(*) FILTER (WHERE status = $4)
      ,COUNT(*) FILTER (WHERE status = $5)
      ,COALESCE(SUM(price) FILTER (WHERE status IN ($2, $3)), 0)
  FROM listings
 WHERE is_deleted IS NOT TRUE
   AND ($1 = 0 OR agent_id = $1)`,
			agentID,
			ListingStatusActive,
			ListingStatusPending,
			ListingStatusSold,
			ListingStatusComingSoon,
		).Scan(
			&m.ActiveListings,
			&m.PendingListings,
			&m.SoldListings,
			&m.ComingSoonListings,
			&m.TotalListingValue,
		)
	})

	var (
		byStatus = map[string]int64{}
		newLeads int64
	)
	g.Go(func() error {
		rows, err := db.QueryContext(ctx, `--DashboardStats leads
SELECT status
      ,COUNT(*)
      ,COUNT(*) FILTER (WHERE created >= $2)
  FROM leads
 WHERE is_deleted IS NOT TRUE
   AND ($1 = 0 OR agent_id = $1)
 GROUP BY status`,
			agentID,
			now.Add(-NewLeadWindow),
		)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var (
				status       string
				count, fresh int64
			)
			err = rows.Scan(&status, &count, &fresh)
			if err != nil {
				return err
			}
			byStatus[status] = count
			newLeads += fresh
		}
		return rows.Err()
	})

	g.Go(func() error {
		return db.QueryRowContext(ctx, `--DashboardStats open houses
SELECT COUNT(*)
      ,COALESCE(SUM(rsvp_count), 0)
  FROM open_houses
 WHERE is_deleted IS NOT TRUE
   AND ($1 = 0 OR agent_id = $1)
   AND status IN ($2, $3)
   AND ends > $4`,
			agentID,
			OpenHouseStatusScheduled,
			OpenHouseStatusActive,
			now,
		).Scan(
			&m.UpcomingOpenHouses,
			&m.RSVPTotal,
		)
	})

	if err := g.Wait(); err != nil {
		glog.Errorf("queryDashboardStats(%d) %+v", agentID, err)
		return DashboardStatsType{}, err
	}

	for s, n := range byStatus {
		m.LeadsByStatus[s] = n
		m.TotalLeads += n
	}
	m.NewLeads = newLeads
	m.ConversionRate = conversionRate(m.LeadsByStatus[LeadStatusClosed], m.TotalLeads)

	return m, nil
}

func queryRecentActivity(_ context.Context, agentID int64, limit int64) ([]ActivityType, error) {
	ems, _, err := GetActivity(agentID, limit)
	return ems, err
}

func queryNotifications(_ context.Context, userID int64) (NotificationsType, error) {
	ems, _, err := ListNotifications(userID, 10)
	return ems, err
}

func queryListingPerformance(
	ctx context.Context,
	agentID int64,
	listingID int64,
) (
	[]ListingPerformanceType,
	error,
) {
	db, err := h.GetConnection()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `--ListingPerformance
SELECT l.listing_id
      ,l.title
      ,l.status
      ,l.price
      ,l.view_count
      ,(SELECT COUNT(*) FROM leads
         WHERE listing_id = l.listing_id AND is_deleted IS NOT TRUE)
      ,(SELECT COUNT(*) FROM open_houses
         WHERE listing_id = l.listing_id AND is_deleted IS NOT TRUE)
      ,(SELECT COALESCE(SUM(rsvp_count), 0) FROM open_houses
         WHERE listing_id = l.listing_id AND is_deleted IS NOT TRUE)
      ,EXTRACT(DAY FROM NOW() - l.created)::bigint
  FROM listings l
 WHERE l.is_deleted IS NOT TRUE
   AND ($1 = 0 OR l.agent_id = $1)
   AND ($2 = 0 OR l.listing_id = $2)
 ORDER BY l.view_count DESC
         ,l.listing_id
 LIMIT 10`,
		agentID,
		listingID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ems := []ListingPerformanceType{}
	for rows.Next() {
		var m ListingPerformanceType
		err = rows.Scan(
			&m.ListingID,
			&m.Title,
			&m.Status,
			&m.Price,
			&m.Views,
			&m.Leads,
			&m.OpenHouses,
			&m.RSVPs,
			&m.DaysOnMarket,
		)
		if err != nil {
			return nil, err
		}
		ems = append(ems, m)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	if listingID > 0 && len(ems) == 0 {
		return nil, sql.ErrNoRows
	}

	return ems, nil
}

func queryLeadPipeline(ctx context.Context, agentID int64) (LeadPipelineType, error) {
	db, err := h.GetConnection()
	if err != nil {
		return LeadPipelineType{}, err
	}

	rows, err := db.QueryContext(ctx, `--LeadPipeline
SELECT status
      ,COUNT(*)
  FROM leads
 WHERE is_deleted IS NOT TRUE
   AND ($1 = 0 OR agent_id = $1)
 GROUP BY status`,
		agentID,
	)
	if err != nil {
		return LeadPipelineType{}, err
	}
	defer rows.Close()

	counts := map[string]int64{}
	for rows.Next() {
		var (
			status string
			count  int64
		)
		err = rows.Scan(&status, &count)
		if err != nil {
			return LeadPipelineType{}, err
		}
		counts[status] = count
	}
	if err = rows.Err(); err != nil {
		return LeadPipelineType{}, err
	}

	return buildPipeline(counts), nil
}

// buildPipeline orders the counts by stage, including empty stages
func buildPipeline(counts map[string]int64) LeadPipelineType {
	m := LeadPipelineType{Stages: []PipelineStageType{}}
	for _, s := range LeadStatuses {
		m.Stages = append(m.Stages, PipelineStageType{Status: s, Count: counts[s]})
		m.Total += counts[s]
	}
	m.ConversionRate = conversionRate(counts[LeadStatusClosed], m.Total)
	return m
}
