package models

import (
	"context"
	"fmt"
	"html/template"
	"sort"
	"strings"

	c "github.com/happyplace/dashboard/cache"
)

// SectionType is a page of the dashboard
type SectionType struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Icon       string   `json:"icon"`
	Capability string   `json:"capability"`
	Order      int      `json:"order"`
	Widgets    []string `json:"widgets"`
}

// SectionDataType is a section with the data of each of its widgets
type SectionDataType struct {
	SectionType
	Data map[string]interface{} `json:"data"`
}

var sections = []SectionType{
	{
		ID:         "overview",
		Title:      "Overview",
		Icon:       "gauge",
		Capability: CapViewDashboard,
		Order:      10,
		Widgets: []string{
			WidgetStats,
			WidgetQuickActions,
			WidgetRecentActivity,
			WidgetNotifications,
			WidgetUpcomingOpenHouses,
		},
	},
	{
		ID:         "listings",
		Title:      "Listings",
		Icon:       "house",
		Capability: CapEditListings,
		Order:      20,
		Widgets:    []string{WidgetListingTable},
	},
	{
		ID:         "leads",
		Title:      "Leads",
		Icon:       "users",
		Capability: CapManageLeads,
		Order:      30,
		Widgets:    []string{WidgetLeadPipeline, WidgetLeadTable},
	},
	{
		ID:         "open-houses",
		Title:      "Open Houses",
		Icon:       "calendar",
		Capability: CapManageOpenHouses,
		Order:      40,
		Widgets:    []string{WidgetUpcomingOpenHouses},
	},
	{
		ID:         "marketing",
		Title:      "Marketing",
		Icon:       "megaphone",
		Capability: CapUseMarketing,
		Order:      50,
		Widgets:    []string{WidgetMarketingTools},
	},
	{
		ID:         "profile",
		Title:      "Profile",
		Icon:       "id-card",
		Capability: CapViewDashboard,
		Order:      60,
		Widgets:    []string{WidgetProfileForm},
	},
	{
		ID:         "performance",
		Title:      "Performance",
		Icon:       "chart",
		Capability: CapViewReports,
		Order:      70,
		Widgets:    []string{WidgetListingPerformance, WidgetLeadPipeline},
	},
	{
		ID:         "diagnostics",
		Title:      "Diagnostics",
		Icon:       "stethoscope",
		Capability: CapRunDiagnostics,
		Order:      80,
		Widgets:    []string{WidgetSelfTests},
	},
}

// AllSections returns every section in display order
func AllSections() []SectionType {
	ems := make([]SectionType, len(sections))
	copy(ems, sections)
	sort.SliceStable(ems, func(i, j int) bool { return ems[i].Order < ems[j].Order })
	return ems
}

// GetSections returns the sections the role may see in display order
func GetSections(role string) []SectionType {
	ems := []SectionType{}
	for _, s := range AllSections() {
		if HasCapability(role, s.Capability) {
			ems = append(ems, s)
		}
	}
	return ems
}

// GetSection returns a section if the role may see it
func GetSection(role string, id string) (SectionType, bool) {
	for _, s := range GetSections(role) {
		if s.ID == id {
			return s, true
		}
	}
	return SectionType{}, false
}

// WidgetContext is what a widget needs to load its data
type WidgetContext struct {
	Ctx   context.Context
	Memo  *c.Memo
	Auth  AuthType
	Scope DashboardScope
}

// GetSectionData loads the data of every widget in the section
func GetSectionData(wc WidgetContext, s SectionType) (SectionDataType, error) {
	m := SectionDataType{
		SectionType: s,
		Data:        map[string]interface{}{},
	}

	for _, id := range s.Widgets {
		w, ok := widgets[id]
		if !ok {
			return SectionDataType{}, fmt.Errorf("section %s has unknown widget %s", s.ID, id)
		}

		data, err := w.load(wc)
		if err != nil {
			return SectionDataType{}, err
		}
		m.Data[id] = data
	}

	return m, nil
}

var sectionTemplate = template.Must(template.New("section").Parse(
	`<section class="hph-section" id="hph-section-{{.ID}}" data-icon="{{.Icon}}">
<h2>{{.Title}}</h2>
{{range .Widgets}}{{.}}
{{end}}</section>`))

// RenderSection renders every widget of the section into one HTML fragment
func RenderSection(wc WidgetContext, s SectionType) (template.HTML, error) {
	rendered := []template.HTML{}
	for _, id := range s.Widgets {
		fragment, err := RenderWidget(wc, id)
		if err != nil {
			return "", err
		}
		rendered = append(rendered, fragment)
	}

	var b strings.Builder
	err := sectionTemplate.Execute(&b, struct {
		ID      string
		Title   string
		Icon    string
		Widgets []template.HTML
	}{
		ID:      s.ID,
		Title:   s.Title,
		Icon:    s.Icon,
		Widgets: rendered,
	})
	if err != nil {
		return "", err
	}

	return template.HTML(b.String()), nil
}
