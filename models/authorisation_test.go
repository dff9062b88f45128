package models

import (
	"testing"

	"github.com/stretchr/testify/assert"

	h "github.com/happyplace/dashboard/helpers"
)

func authFor(role string, userID int64, agentID int64) AuthType {
	return AuthType{UserID: userID, AgentID: agentID, Role: role}
}

func TestGuestPermissions(t *testing.T) {
	guest := AuthType{Role: RoleAgent}

	ac := MakeAuthorisationContext(guest, h.ItemTypes[h.ItemTypeLead], 0, nil)
	assert.Equal(t, RoleGuest, ac.Role, "a request without a user is always a guest")

	perms := GetPermission(ac)
	assert.True(t, perms.IsGuest)
	assert.False(t, perms.IsOwner)
	assert.True(t, perms.CanCreate, "guests submit enquiries")
	assert.False(t, perms.CanRead)

	perms = GetPermission(MakeAuthorisationContext(guest, h.ItemTypes[h.ItemTypeOpenHouse], 3, nil))
	assert.True(t, perms.CanRead)
	assert.False(t, perms.CanCreate)

	perms = GetPermission(MakeAuthorisationContext(guest, h.ItemTypes[h.ItemTypeListing], 3, nil))
	assert.True(t, perms.CanRead)
	assert.False(t, perms.CanUpdate)

	perms = GetPermission(MakeAuthorisationContext(guest, h.ItemTypes[h.ItemTypeFlyer], 3, nil))
	assert.False(t, perms.CanRead)
}

func TestAgentOwnsListing(t *testing.T) {
	agent := authFor(RoleAgent, 10, 5)

	own := MakeAuthorisationContext(agent, h.ItemTypes[h.ItemTypeListing], 100, nil).WithOwner(5)
	perms := GetPermission(own)
	assert.True(t, perms.IsOwner)
	assert.True(t, perms.CanUpdate)
	assert.True(t, perms.CanDelete)

	other := own.WithOwner(6)
	perms = GetPermission(other)
	assert.False(t, perms.IsOwner)
	assert.True(t, perms.CanRead)
	assert.False(t, perms.CanUpdate)
	assert.False(t, perms.CanDelete)
}

func TestBrokerEditsOthersListings(t *testing.T) {
	broker := authFor(RoleBroker, 11, 1)

	ac := MakeAuthorisationContext(broker, h.ItemTypes[h.ItemTypeListing], 100, nil).WithOwner(5)
	perms := GetPermission(ac)
	assert.False(t, perms.IsOwner)
	assert.True(t, perms.CanUpdate)
	assert.True(t, perms.CanDelete)
	assert.False(t, perms.IsAdmin)
}

func TestAssistantCannotDeleteListings(t *testing.T) {
	assistant := authFor(RoleAssistant, 12, 5)

	ac := MakeAuthorisationContext(assistant, h.ItemTypes[h.ItemTypeListing], 100, nil).WithOwner(5)
	perms := GetPermission(ac)
	assert.True(t, perms.CanUpdate)
	assert.False(t, perms.CanDelete)
}

func TestLeadVisibility(t *testing.T) {
	agent := authFor(RoleAgent, 10, 5)
	broker := authFor(RoleBroker, 11, 1)

	lead := func(a AuthType, owner int64) PermissionType {
		return GetPermission(
			MakeAuthorisationContext(a, h.ItemTypes[h.ItemTypeLead], 9, nil).WithOwner(owner),
		)
	}

	assert.True(t, lead(agent, 5).CanRead)
	assert.False(t, lead(agent, 6).CanRead)
	assert.False(t, lead(agent, 6).CanDelete)
	assert.True(t, lead(broker, 6).CanRead)
	assert.True(t, lead(broker, 6).CanUpdate)
}

func TestSubscriberHasNoDashboard(t *testing.T) {
	sub := authFor(RoleSubscriber, 20, 0)

	perms := GetPermission(MakeAuthorisationContext(sub, h.ItemTypes[h.ItemTypeNotification], 0, nil))
	assert.False(t, perms.CanRead)

	perms = GetPermission(MakeAuthorisationContext(sub, h.ItemTypes[h.ItemTypeUser], 20, nil))
	assert.True(t, perms.CanRead, "users may read themselves")
	assert.False(t, perms.CanUpdate)

	perms = GetPermission(MakeAuthorisationContext(sub, h.ItemTypes[h.ItemTypeUser], 21, nil))
	assert.False(t, perms.CanRead)
}

func TestAgentProfile(t *testing.T) {
	agent := authFor(RoleAgent, 10, 5)

	perms := GetPermission(MakeAuthorisationContext(agent, h.ItemTypes[h.ItemTypeAgent], 5, nil).WithOwner(5))
	assert.True(t, perms.CanUpdate)
	assert.False(t, perms.CanDelete)

	perms = GetPermission(MakeAuthorisationContext(agent, h.ItemTypes[h.ItemTypeAgent], 6, nil).WithOwner(6))
	assert.True(t, perms.CanRead)
	assert.False(t, perms.CanUpdate)
}

func TestSelfTestsNeedDiagnostics(t *testing.T) {
	typeID := h.ItemTypes[h.ItemTypeSelfTest]

	assert.False(t, GetPermission(MakeAuthorisationContext(authFor(RoleAgent, 10, 5), typeID, 0, nil)).CanRead)
	assert.True(t, GetPermission(MakeAuthorisationContext(authFor(RoleBroker, 11, 1), typeID, 0, nil)).CanRead)
}

func TestAdministratorMayDoAnything(t *testing.T) {
	admin := authFor(RoleAdministrator, 1, 0)

	for name, typeID := range h.ItemTypes {
		perms := GetPermission(
			MakeAuthorisationContext(admin, typeID, 99, nil).WithOwner(42),
		)
		assert.True(t, perms.IsAdmin, name)
		assert.True(t, perms.CanCreate, name)
		assert.True(t, perms.CanRead, name)
		assert.True(t, perms.CanUpdate, name)
		assert.True(t, perms.CanDelete, name)
	}
}

func TestForItemClearsOwner(t *testing.T) {
	ac := MakeAuthorisationContext(authFor(RoleAgent, 10, 5), h.ItemTypes[h.ItemTypeListing], 1, nil).
		WithOwner(6)

	next := ac.ForItem(h.ItemTypes[h.ItemTypeLead], 2)
	assert.Equal(t, int64(0), next.OwnerAgentID)
	assert.Equal(t, int64(2), next.ItemID)
	assert.Equal(t, int64(6), ac.OwnerAgentID)
}

func TestRoles(t *testing.T) {
	assert.True(t, IsValidRole(RoleAgent))
	assert.False(t, IsValidRole(RoleGuest))
	assert.False(t, IsValidRole("superuser"))

	assert.True(t, HasCapability(RoleAdministrator, CapManageSettings))
	assert.False(t, HasCapability(RoleBroker, CapManageSettings))
	assert.False(t, HasCapability("superuser", CapViewDashboard))

	assert.ElementsMatch(t, Capabilities, GetRoleCapabilities(RoleAdministrator))
	assert.Empty(t, GetRoleCapabilities(RoleSubscriber))
}
