package models

import (
	c "github.com/happyplace/dashboard/cache"
	h "github.com/happyplace/dashboard/helpers"
)

// AuthContext describes the caller and the item they want to act on
type AuthContext struct {
	UserID     int64
	AgentID    int64
	Role       string
	ItemTypeID int64
	ItemID     int64

	// OwnerAgentID is the agent the item belongs to, if known
	OwnerAgentID int64

	// Memo is flushed along with the dashboard group when the caller
	// changes something
	Memo *c.Memo
}

// PermissionType is what the caller may do with an item
type PermissionType struct {
	CanCreate bool `json:"create"`
	CanRead   bool `json:"read"`
	CanUpdate bool `json:"update"`
	CanDelete bool `json:"delete"`
	IsOwner   bool `json:"owner"`
	IsGuest   bool `json:"guest"`
	IsAdmin   bool `json:"admin"`
}

// MakeAuthorisationContext builds the permission context for an item
func MakeAuthorisationContext(
	auth AuthType,
	itemTypeID int64,
	itemID int64,
	memo *c.Memo,
) AuthContext {
	role := auth.Role
	if auth.UserID <= 0 {
		role = RoleGuest
	}

	return AuthContext{
		UserID:     auth.UserID,
		AgentID:    auth.AgentID,
		Role:       role,
		ItemTypeID: itemTypeID,
		ItemID:     itemID,
		Memo:       memo,
	}
}

// ForItem returns a copy of the context for another item
func (ac AuthContext) ForItem(itemTypeID int64, itemID int64) AuthContext {
	ac.ItemTypeID = itemTypeID
	ac.ItemID = itemID
	ac.OwnerAgentID = 0
	return ac
}

// WithOwner returns a copy of the context with the owning agent set
func (ac AuthContext) WithOwner(agentID int64) AuthContext {
	ac.OwnerAgentID = agentID
	return ac
}

// isOwner is true for new items and for items belonging to the caller's
// agent
func (ac AuthContext) isOwner() bool {
	if ac.UserID <= 0 {
		return false
	}
	if ac.ItemID == 0 || ac.OwnerAgentID == 0 {
		return true
	}
	return ac.AgentID > 0 && ac.AgentID == ac.OwnerAgentID
}

// GetPermission combines the role's capabilities with ownership of the item
func GetPermission(ac AuthContext) PermissionType {
	m := PermissionType{
		IsGuest: ac.UserID <= 0,
		IsAdmin: ac.Role == RoleAdministrator,
		IsOwner: ac.isOwner(),
	}

	has := func(cap string) bool { return HasCapability(ac.Role, cap) }

	switch ac.ItemTypeID {
	case h.ItemTypes[h.ItemTypeListing],
		h.ItemTypes[h.ItemTypePhoto],
		h.ItemTypes[h.ItemTypeFlyer],
		h.ItemTypes[h.ItemTypeSocialPost]:
		// Listings are public, marketing material is not
		m.CanRead = ac.ItemTypeID == h.ItemTypes[h.ItemTypeListing] || has(CapUseMarketing)
		others := has(CapEditOthersListings)
		m.CanCreate = has(CapEditListings)
		m.CanUpdate = has(CapEditListings) && (m.IsOwner || others)
		m.CanDelete = has(CapDeleteListings) && (m.IsOwner || others)

	case h.ItemTypes[h.ItemTypeLead]:
		all := has(CapViewAllLeads)
		// Guests may submit a lead through the public form
		m.CanCreate = true
		m.CanRead = has(CapManageLeads) && (m.IsOwner || all)
		m.CanUpdate = m.CanRead
		m.CanDelete = m.CanRead

	case h.ItemTypes[h.ItemTypeOpenHouse]:
		others := has(CapEditOthersListings)
		m.CanRead = true
		m.CanCreate = has(CapManageOpenHouses)
		m.CanUpdate = has(CapManageOpenHouses) && (m.IsOwner || others)
		m.CanDelete = m.CanUpdate

	case h.ItemTypes[h.ItemTypeAgent]:
		// Agents may edit their own profile
		m.CanRead = true
		m.CanCreate = has(CapManageAgents)
		m.CanUpdate = has(CapManageAgents) || (m.IsOwner && has(CapViewDashboard))
		m.CanDelete = has(CapManageAgents)

	case h.ItemTypes[h.ItemTypeCampaign]:
		m.CanRead = has(CapUseMarketing) && (m.IsOwner || has(CapViewAllLeads))
		m.CanCreate = has(CapUseMarketing)
		m.CanUpdate = m.CanRead
		m.CanDelete = m.CanRead

	case h.ItemTypes[h.ItemTypeUser]:
		m.CanRead = has(CapManageAgents) || (ac.UserID > 0 && ac.UserID == ac.ItemID)
		m.CanCreate = has(CapManageAgents)
		m.CanUpdate = has(CapManageAgents)
		m.CanDelete = has(CapManageSettings)

	case h.ItemTypes[h.ItemTypeSelfTest]:
		m.CanRead = has(CapRunDiagnostics)
		m.CanCreate = m.CanRead

	case h.ItemTypes[h.ItemTypeActivity],
		h.ItemTypes[h.ItemTypeNotification]:
		m.CanRead = has(CapViewDashboard)
		m.CanUpdate = m.CanRead
	}

	// Administrators may do anything that is possible
	if m.IsAdmin {
		m.CanCreate = true
		m.CanRead = true
		m.CanUpdate = true
		m.CanDelete = true
	}

	return m
}
