package models

import (
	"sort"
)

// Roles a user may hold
const (
	RoleAdministrator string = "administrator"
	RoleBroker        string = "broker"
	RoleAgent         string = "agent"
	RoleAssistant     string = "assistant"
	RoleSubscriber    string = "subscriber"

	// RoleGuest is never stored, it describes a request without a token
	RoleGuest string = "guest"
)

// Capabilities granted by roles
const (
	CapViewDashboard      string = "view_dashboard"
	CapEditListings       string = "edit_listings"
	CapEditOthersListings string = "edit_others_listings"
	CapDeleteListings     string = "delete_listings"
	CapManageLeads        string = "manage_leads"
	CapViewAllLeads       string = "view_all_leads"
	CapManageOpenHouses   string = "manage_open_houses"
	CapManageAgents       string = "manage_agents"
	CapUseMarketing       string = "use_marketing"
	CapSendCampaigns      string = "send_campaigns"
	CapViewReports        string = "view_reports"
	CapRunDiagnostics     string = "run_diagnostics"
	CapManageSettings     string = "manage_settings"
)

// Capabilities lists every capability
var Capabilities = []string{
	CapViewDashboard,
	CapEditListings,
	CapEditOthersListings,
	CapDeleteListings,
	CapManageLeads,
	CapViewAllLeads,
	CapManageOpenHouses,
	CapManageAgents,
	CapUseMarketing,
	CapSendCampaigns,
	CapViewReports,
	CapRunDiagnostics,
	CapManageSettings,
}

var agentCapabilities = []string{
	CapViewDashboard,
	CapEditListings,
	CapDeleteListings,
	CapManageLeads,
	CapManageOpenHouses,
	CapUseMarketing,
	CapSendCampaigns,
	CapViewReports,
}

// roleCapabilities is the permission table. An administrator holds every
// capability.
var roleCapabilities = map[string]map[string]bool{
	RoleAdministrator: capabilitySet(Capabilities...),
	RoleBroker: capabilitySet(append(
		agentCapabilities,
		CapEditOthersListings,
		CapViewAllLeads,
		CapManageAgents,
		CapRunDiagnostics,
	)...),
	RoleAgent: capabilitySet(agentCapabilities...),
	RoleAssistant: capabilitySet(
		CapViewDashboard,
		CapEditListings,
		CapManageLeads,
		CapManageOpenHouses,
		CapUseMarketing,
	),
	RoleSubscriber: capabilitySet(),
	RoleGuest:      capabilitySet(),
}

func capabilitySet(caps ...string) map[string]bool {
	m := map[string]bool{}
	for _, cap := range caps {
		m[cap] = true
	}
	return m
}

// IsValidRole reports whether the role can be assigned to a user
func IsValidRole(role string) bool {
	if role == RoleGuest {
		return false
	}
	_, ok := roleCapabilities[role]
	return ok
}

// HasCapability reports whether the role holds the capability
func HasCapability(role string, capability string) bool {
	caps, ok := roleCapabilities[role]
	if !ok {
		return false
	}
	return caps[capability]
}

// GetRoleCapabilities returns the sorted capabilities of a role
func GetRoleCapabilities(role string) []string {
	caps := []string{}
	for cap, ok := range roleCapabilities[role] {
		if ok {
			caps = append(caps, cap)
		}
	}
	sort.Strings(caps)
	return caps
}
