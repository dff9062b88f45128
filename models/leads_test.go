package models

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubLeadLookups(t *testing.T) {
	prev := leadLookups
	t.Cleanup(func() { leadLookups = prev })

	leadLookups.listing = func(id int64) (ListingType, int, error) {
		if id != 42 {
			return ListingType{}, http.StatusNotFound, fmt.Errorf("Listing not found")
		}
		return ListingType{ID: 42, AgentID: 5}, http.StatusOK, nil
	}
	leadLookups.agent = func(id int64) (AgentType, int, error) {
		if id != 7 {
			return AgentType{}, http.StatusNotFound, fmt.Errorf("Agent not found")
		}
		return AgentType{ID: 7, DisplayName: "Jo"}, http.StatusOK, nil
	}
}

func TestEnquiryAboutAListingGoesToItsAgent(t *testing.T) {
	stubLeadLookups(t)

	// The listing decides, whatever agent the visitor sent
	m := LeadType{ListingID: 42, AgentID: 7}
	status, err := m.resolveAgent()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, int64(5), m.AgentID)

	m = LeadType{ListingID: 9}
	status, err = m.resolveAgent()
	assert.Error(t, err)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestEnquiryToAnAgent(t *testing.T) {
	stubLeadLookups(t)

	m := LeadType{AgentID: 7}
	status, err := m.resolveAgent()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, int64(7), m.AgentID)

	m = LeadType{AgentID: 8}
	status, err = m.resolveAgent()
	assert.EqualError(t, err, "Agent (8) does not exist")
	assert.Equal(t, http.StatusBadRequest, status)

	m = LeadType{}
	status, err = m.resolveAgent()
	assert.EqualError(t, err, "You must specify a listing or an agent")
	assert.Equal(t, http.StatusBadRequest, status)
}
