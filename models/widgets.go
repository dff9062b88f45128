package models

import (
	"fmt"
	"html/template"
	"sort"
	"strings"
	"time"
)

// Widget IDs
const (
	WidgetStats              string = "stats"
	WidgetRecentActivity     string = "recent-activity"
	WidgetNotifications      string = "notifications"
	WidgetUpcomingOpenHouses string = "upcoming-open-houses"
	WidgetLeadPipeline       string = "lead-pipeline"
	WidgetQuickActions       string = "quick-actions"
	WidgetListingTable       string = "listing-table"
	WidgetLeadTable          string = "lead-table"
	WidgetListingPerformance string = "listing-performance"
	WidgetMarketingTools     string = "marketing-tools"
	WidgetProfileForm        string = "profile-form"
	WidgetSelfTests          string = "self-tests"
)

const widgetRows int64 = 10

type widget struct {
	title    string
	load     func(wc WidgetContext) (interface{}, error)
	template *template.Template
}

// widgetQueries load the tables shown by widgets. Tests replace them.
var widgetQueries = struct {
	listings   func(agentID int64, limit int64) ([]ListingType, error)
	leads      func(agentID int64, limit int64) ([]LeadType, error)
	openHouses func(agentID int64, limit int64) ([]OpenHouseType, error)
	selfTests  func(limit int64) ([]SelfTestRunType, error)
	agent      func(agentID int64) (AgentType, error)
}{
	listings: func(agentID int64, limit int64) ([]ListingType, error) {
		ems, _, _, err := GetListings(ListingFilter{AgentID: agentID}, limit, 0)
		return ems, err
	},
	leads: func(agentID int64, limit int64) ([]LeadType, error) {
		ems, _, _, err := GetLeads(LeadFilter{AgentID: agentID}, limit, 0)
		return ems, err
	},
	openHouses: func(agentID int64, limit int64) ([]OpenHouseType, error) {
		ems, _, _, err := GetOpenHouses(OpenHouseFilter{AgentID: agentID, Upcoming: true}, limit, 0)
		return ems, err
	},
	selfTests: func(limit int64) ([]SelfTestRunType, error) {
		ems, _, err := GetSelfTestRuns(limit)
		return ems, err
	},
	agent: func(agentID int64) (AgentType, error) {
		m, _, err := GetAgent(agentID)
		return m, err
	},
}

// QuickActionType is a shortcut shown on the overview
type QuickActionType struct {
	Label      string `json:"label"`
	Action     string `json:"action"`
	Capability string `json:"-"`
}

var quickActions = []QuickActionType{
	{Label: "Add listing", Action: "hph_save_listing", Capability: CapEditListings},
	{Label: "Add lead", Action: "hph_save_lead", Capability: CapManageLeads},
	{Label: "Schedule open house", Action: "hph_save_open_house", Capability: CapManageOpenHouses},
	{Label: "Create flyer", Action: "hph_generate_flyer", Capability: CapUseMarketing},
	{Label: "New campaign", Action: "hph_create_campaign", Capability: CapUseMarketing},
	{Label: "Run self tests", Action: "hph_run_self_tests", Capability: CapRunDiagnostics},
}

// MarketingToolsType lists what the marketing suite can produce
type MarketingToolsType struct {
	FlyerTemplates  []string `json:"flyerTemplates"`
	SocialPlatforms []string `json:"socialPlatforms"`
	SocialPostTypes []string `json:"socialPostTypes"`
	CanSend         bool     `json:"canSend"`
}

// ProfileFormType is the profile form with the agent's current values
type ProfileFormType struct {
	Form  FormType  `json:"form"`
	Agent AgentType `json:"agent"`
}

var widgetFuncs = template.FuncMap{
	"price": FormatPrice,
	"label": statusLabel,
	"date": func(t time.Time) string {
		return t.Format("Jan 2, 2006")
	},
	"datetime": func(t time.Time) string {
		return t.Format("Mon Jan 2 3:04pm")
	},
	"pct": func(f float64) string {
		return fmt.Sprintf("%.1f%%", f)
	},
}

func widgetTemplate(id string, body string) *template.Template {
	return template.Must(template.New(id).Funcs(widgetFuncs).Parse(body))
}

var widgets = map[string]widget{
	WidgetStats: {
		title: "At a glance",
		load: func(wc WidgetContext) (interface{}, error) {
			return GetDashboardStats(wc.Ctx, wc.Memo, wc.Scope)
		},
		template: widgetTemplate(WidgetStats, `
<ul class="hph-stats">
<li><span>Active listings</span> <strong>{{.ActiveListings}}</strong></li>
<li><span>Pending</span> <strong>{{.PendingListings}}</strong></li>
<li><span>Sold</span> <strong>{{.SoldListings}}</strong></li>
<li><span>Listing value</span> <strong>{{price .TotalListingValue}}</strong></li>
<li><span>New leads</span> <strong>{{.NewLeads}}</strong></li>
<li><span>Upcoming open houses</span> <strong>{{.UpcomingOpenHouses}}</strong></li>
<li><span>RSVPs</span> <strong>{{.RSVPTotal}}</strong></li>
<li><span>Conversion</span> <strong>{{pct .ConversionRate}}</strong></li>
</ul>`),
	},
	WidgetRecentActivity: {
		title: "Recent activity",
		load: func(wc WidgetContext) (interface{}, error) {
			return GetRecentActivity(wc.Ctx, wc.Memo, wc.Scope, widgetRows)
		},
		template: widgetTemplate(WidgetRecentActivity, `
{{if .}}<ol class="hph-activity">{{range .}}
<li data-type="{{.ItemType}}"><time>{{datetime .Created}}</time> {{.Summary}}</li>{{end}}
</ol>{{else}}<p class="hph-empty">Nothing has happened yet.</p>{{end}}`),
	},
	WidgetNotifications: {
		title: "Notifications",
		load: func(wc WidgetContext) (interface{}, error) {
			return GetNotifications(wc.Ctx, wc.Memo, wc.Scope.UserID)
		},
		template: widgetTemplate(WidgetNotifications, `
<p class="hph-unread">{{.Unread}} unread</p>
<ul>{{range .Notifications}}
<li class="{{if .Read}}read{{else}}unread{{end}}" data-id="{{.ID}}">{{.Message}}</li>{{end}}
</ul>`),
	},
	WidgetUpcomingOpenHouses: {
		title: "Upcoming open houses",
		load: func(wc WidgetContext) (interface{}, error) {
			return widgetQueries.openHouses(wc.Scope.AgentID, 5)
		},
		template: widgetTemplate(WidgetUpcomingOpenHouses, `
{{if .}}<ul class="hph-open-houses">{{range .}}
<li data-id="{{.ID}}"><strong>{{.ListingTitle}}</strong> {{datetime .Starts}} <span>{{.RSVPCount}} RSVPs</span></li>{{end}}
</ul>{{else}}<p class="hph-empty">No open houses scheduled.</p>{{end}}`),
	},
	WidgetLeadPipeline: {
		title: "Lead pipeline",
		load: func(wc WidgetContext) (interface{}, error) {
			return GetLeadPipeline(wc.Ctx, wc.Memo, wc.Scope)
		},
		template: widgetTemplate(WidgetLeadPipeline, `
<ol class="hph-pipeline">{{range .Stages}}
<li data-status="{{.Status}}"><span>{{label .Status}}</span> <strong>{{.Count}}</strong></li>{{end}}
</ol>
<p>{{.Total}} leads, {{pct .ConversionRate}} closed</p>`),
	},
	WidgetQuickActions: {
		title: "Quick actions",
		load: func(wc WidgetContext) (interface{}, error) {
			ems := []QuickActionType{}
			for _, a := range quickActions {
				if HasCapability(wc.Auth.Role, a.Capability) {
					ems = append(ems, a)
				}
			}
			return ems, nil
		},
		template: widgetTemplate(WidgetQuickActions, `
<ul class="hph-actions">{{range .}}
<li><button type="button" data-action="{{.Action}}">{{.Label}}</button></li>{{end}}
</ul>`),
	},
	WidgetListingTable: {
		title: "Listings",
		load: func(wc WidgetContext) (interface{}, error) {
			return widgetQueries.listings(wc.Scope.AgentID, widgetRows)
		},
		template: widgetTemplate(WidgetListingTable, `
<table class="hph-table">
<thead><tr><th>Title</th><th>City</th><th>Price</th><th>Status</th><th>Views</th></tr></thead>
<tbody>{{range .}}
<tr data-id="{{.ID}}"><td>{{.Title}}</td><td>{{.City}}</td><td>{{price .Price}}</td><td>{{label .Status}}</td><td>{{.ViewCount}}</td></tr>{{end}}
</tbody>
</table>`),
	},
	WidgetLeadTable: {
		title: "Leads",
		load: func(wc WidgetContext) (interface{}, error) {
			return widgetQueries.leads(wc.Scope.AgentID, widgetRows)
		},
		template: widgetTemplate(WidgetLeadTable, `
<table class="hph-table">
<thead><tr><th>Name</th><th>Email</th><th>Source</th><th>Status</th><th>Received</th></tr></thead>
<tbody>{{range .}}
<tr data-id="{{.ID}}"><td>{{.Name}}</td><td><a href="mailto:{{.Email}}">{{.Email}}</a></td><td>{{label .Source}}</td><td>{{label .Status}}</td><td>{{date .Meta.Created}}</td></tr>{{end}}
</tbody>
</table>`),
	},
	WidgetListingPerformance: {
		title: "Listing performance",
		load: func(wc WidgetContext) (interface{}, error) {
			return GetListingPerformance(wc.Ctx, wc.Memo, wc.Scope, 0)
		},
		template: widgetTemplate(WidgetListingPerformance, `
<table class="hph-table">
<thead><tr><th>Listing</th><th>Views</th><th>Leads</th><th>Open houses</th><th>RSVPs</th><th>Days on market</th></tr></thead>
<tbody>{{range .}}
<tr data-id="{{.ListingID}}"><td>{{.Title}}</td><td>{{.Views}}</td><td>{{.Leads}}</td><td>{{.OpenHouses}}</td><td>{{.RSVPs}}</td><td>{{.DaysOnMarket}}</td></tr>{{end}}
</tbody>
</table>`),
	},
	WidgetMarketingTools: {
		title: "Marketing tools",
		load: func(wc WidgetContext) (interface{}, error) {
			return MarketingToolsType{
				FlyerTemplates:  FlyerTemplateNames(),
				SocialPlatforms: SocialPlatformNames(),
				SocialPostTypes: SocialPostTypes,
				CanSend:         HasCapability(wc.Auth.Role, CapSendCampaigns),
			}, nil
		},
		template: widgetTemplate(WidgetMarketingTools, `
<h3>Flyers</h3>
<ul>{{range .FlyerTemplates}}<li data-template="{{.}}">{{label .}}</li>{{end}}</ul>
<h3>Social posts</h3>
<ul>{{range .SocialPlatforms}}<li data-platform="{{.}}">{{.}}</li>{{end}}</ul>
{{if .CanSend}}<button type="button" data-action="hph_create_campaign">New email campaign</button>{{end}}`),
	},
	WidgetProfileForm: {
		title: "Your profile",
		load: func(wc WidgetContext) (interface{}, error) {
			form, _ := GetForm(FormAgentProfile)
			m := ProfileFormType{Form: form}
			if wc.Auth.AgentID > 0 {
				agent, err := widgetQueries.agent(wc.Auth.AgentID)
				if err != nil {
					return nil, err
				}
				m.Agent = agent
			}
			return m, nil
		},
		template: widgetTemplate(WidgetProfileForm, `
<form data-action="{{.Form.Action}}">{{range .Form.Fields}}
<label>{{.Label}}{{if .Required}} *{{end}}
{{if eq .Type "textarea" "html"}}<textarea name="{{.Name}}"></textarea>{{else}}<input name="{{.Name}}" type="{{.Type}}">{{end}}
</label>{{end}}
<button type="submit">Save</button>
</form>`),
	},
	WidgetSelfTests: {
		title: "Self tests",
		load: func(wc WidgetContext) (interface{}, error) {
			return widgetQueries.selfTests(5)
		},
		template: widgetTemplate(WidgetSelfTests, `
{{if .}}<ul class="hph-selftests">{{range .}}
<li class="{{if .Failed}}failed{{else}}passed{{end}}">{{.Suite}} {{.Passed}} passed, {{.Failed}} failed <time>{{datetime .Created}}</time></li>{{end}}
</ul>{{else}}<p class="hph-empty">No self tests have run.</p>{{end}}
<button type="button" data-action="hph_run_self_tests">Run now</button>`),
	},
}

// WidgetIDs lists every widget in name order
func WidgetIDs() []string {
	ids := []string{}
	for id := range widgets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// GetWidgetData loads the data of a single widget
func GetWidgetData(wc WidgetContext, id string) (interface{}, error) {
	w, ok := widgets[id]
	if !ok {
		return nil, fmt.Errorf("unknown widget %s", id)
	}
	return w.load(wc)
}

// RenderWidget loads a widget's data and renders it as HTML
func RenderWidget(wc WidgetContext, id string) (template.HTML, error) {
	w, ok := widgets[id]
	if !ok {
		return "", fmt.Errorf("unknown widget %s", id)
	}

	data, err := w.load(wc)
	if err != nil {
		return "", fmt.Errorf("widget %s: %v", id, err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, `<div class="hph-widget" id="hph-widget-%s"><h3>%s</h3>`,
		id, template.HTMLEscapeString(w.title))
	err = w.template.Execute(&b, data)
	if err != nil {
		return "", fmt.Errorf("widget %s: %v", id, err)
	}
	b.WriteString(`</div>`)

	return template.HTML(b.String()), nil
}
