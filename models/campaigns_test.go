package models

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	e "github.com/happyplace/dashboard/errors"
)

func TestMergeCampaign(t *testing.T) {
	m := CampaignType{
		Subject:  "Hi {first_name}, news from {agent_name}",
		Body:     "Dear {name},\nCall me on {agent_phone} or {agent_email}.",
		BodyHTML: "<p>Dear {name},</p><p>{agent_name}</p>",
	}
	lead := LeadType{Name: "Ann <b>Smith</b>"}
	agent := AgentType{DisplayName: "Jo & Co", Email: "jo@example.test", Phone: "555 0100"}

	subject, text, html := MergeCampaign(m, lead, agent)

	assert.Equal(t, "Hi Ann, news from Jo & Co", subject)
	assert.Equal(t, "Dear Ann <b>Smith</b>,\nCall me on 555 0100 or jo@example.test.", text)
	assert.Equal(t, "<p>Dear Ann &lt;b&gt;Smith&lt;/b&gt;,</p><p>Jo &amp; Co</p>", html)
}

func TestMergeCampaignUnknownTokens(t *testing.T) {
	subject, _, _ := MergeCampaign(
		CampaignType{Subject: "{first_name}{unknown}"},
		LeadType{},
		AgentType{},
	)
	assert.Equal(t, "{unknown}", subject)
}

func TestLeadFirstName(t *testing.T) {
	assert.Equal(t, "Ann", LeadType{Name: "  Ann  Smith "}.FirstName())
	assert.Equal(t, "", LeadType{}.FirstName())
}

func TestCampaignValidate(t *testing.T) {
	m := CampaignType{
		AgentID: 5,
		Name:    " Spring <i>update</i> ",
		Subject: "Spring market\x07",
		Body:    "The **market** is moving.",
	}

	status, err := m.Validate(false)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Spring update", m.Name)
	assert.Equal(t, "Spring market", m.Subject)
	assert.Equal(t, CampaignStatusDraft, m.Status)
	assert.Contains(t, m.BodyHTML, "<strong>market</strong>")

	when := time.Now().Add(time.Hour)
	m.ScheduledFor = &when
	_, err = m.Validate(false)
	require.NoError(t, err)
	assert.Equal(t, CampaignStatusScheduled, m.Status)
	assert.True(t, m.ScheduledForNullable.Valid)

	m.RecipientStatus = "hot"
	status, err = m.Validate(false)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, e.OutOfRange, e.Code(err))

	m.RecipientStatus = ""
	m.Status = CampaignStatusSent
	_, err = m.Validate(true)
	assert.Error(t, err, "an existing campaign needs an ID")

	m.ID = 3
	status, err = m.Validate(true)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, e.AlreadySent, e.Code(err))

	_, err = (&CampaignType{AgentID: 5, Name: "x", Subject: "y"}).Validate(false)
	assert.Error(t, err)
}

func TestCampaignSendRefusals(t *testing.T) {
	ac := AuthContext{UserID: 10, AgentID: 5, Role: RoleAgent}

	sent := CampaignType{ID: 1, AgentID: 5, Status: CampaignStatusSent}
	status, err := sent.Send(ac)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, e.AlreadySent, e.Code(err))

	risky := CampaignType{
		ID:      2,
		AgentID: 5,
		Status:  CampaignStatusDraft,
		Subject: "Perfect for singles",
		Body:    "A great first home.",
	}
	status, err = risky.Send(ac)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, e.ComplianceViolation, e.Code(err))
	assert.Contains(t, err.Error(), "perfect for singles")
}
