package models

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	conf "github.com/happyplace/dashboard/config"
	e "github.com/happyplace/dashboard/errors"
)

func withNonceSecret(t *testing.T) {
	prev := conf.ConfigStrings[conf.NonceSecret]
	conf.ConfigStrings[conf.NonceSecret] = "test-secret"
	t.Cleanup(func() { conf.ConfigStrings[conf.NonceSecret] = prev })
}

func ajaxContext(auth AuthType) *Context {
	c := MakeEmptyContext(
		httptest.NewRequest(http.MethodPost, "/api/v1/ajax", nil),
		httptest.NewRecorder(),
	)
	c.Auth = auth
	return c
}

func registerTestActions() {
	echo := func(c *Context, req AjaxRequest) (interface{}, int, error) {
		return req.Params["say"], http.StatusOK, nil
	}

	RegisterAjaxAction(AjaxAction{Name: "test_public", NoPriv: true, Handler: echo})
	RegisterAjaxAction(AjaxAction{Name: "test_private", Capability: CapViewDashboard, Handler: echo})
	RegisterAjaxAction(AjaxAction{Name: "test_broker", Capability: CapManageAgents, Handler: echo})
}

func TestDispatchAjaxUnknownAction(t *testing.T) {
	withNonceSecret(t)
	registerTestActions()

	_, status, err := DispatchAjax(ajaxContext(AuthType{Role: RoleGuest}), AjaxRequest{Action: "test_nope"})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, e.UnknownAction, e.Code(err))
}

func TestDispatchAjaxGuest(t *testing.T) {
	withNonceSecret(t)
	registerTestActions()

	guest := ajaxContext(AuthType{Role: RoleGuest})

	_, status, err := DispatchAjax(guest, AjaxRequest{
		Action: "test_private",
		Nonce:  CreateNonce("test_private", 0, time.Now()),
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, e.LoginRequired, e.Code(err))

	_, status, err = DispatchAjax(guest, AjaxRequest{Action: "test_public", Nonce: "bad"})
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, e.InvalidNonce, e.Code(err))

	data, status, err := DispatchAjax(guest, AjaxRequest{
		Action: "test_public",
		Nonce:  CreateNonce("test_public", 0, time.Now()),
		Params: map[string]string{"say": "hello"},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "hello", data)
}

func TestDispatchAjaxSignedIn(t *testing.T) {
	withNonceSecret(t)
	registerTestActions()

	agent := ajaxContext(AuthType{UserID: 10, AgentID: 5, Role: RoleAgent})

	// A nonce for one action or user is no good for another
	_, status, err := DispatchAjax(agent, AjaxRequest{
		Action: "test_private",
		Nonce:  CreateNonce("test_public", 10, time.Now()),
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, status)

	_, _, err = DispatchAjax(agent, AjaxRequest{
		Action: "test_private",
		Nonce:  CreateNonce("test_private", 11, time.Now()),
	})
	assert.Equal(t, e.InvalidNonce, e.Code(err))

	_, status, err = DispatchAjax(agent, AjaxRequest{
		Action: "test_broker",
		Nonce:  CreateNonce("test_broker", 10, time.Now()),
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, e.NoCapability, e.Code(err))

	_, status, err = DispatchAjax(agent, AjaxRequest{
		Action: "test_private",
		Nonce:  CreateNonce("test_private", 10, time.Now()),
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
}

func TestNonceWithoutSecret(t *testing.T) {
	prev := conf.ConfigStrings[conf.NonceSecret]
	conf.ConfigStrings[conf.NonceSecret] = ""
	defer func() { conf.ConfigStrings[conf.NonceSecret] = prev }()

	now := time.Now()
	assert.Equal(t, 0, VerifyNonce(CreateNonce("test_public", 0, now), "test_public", 0, now))
}

func TestGuestNonceIsShared(t *testing.T) {
	withNonceSecret(t)

	now := time.Now()
	assert.Equal(t, CreateNonce("x", 0, now), CreateNonce("x", -1, now))
	assert.Equal(t, 1, VerifyNonce(CreateNonce("x", -1, now), "x", 0, now))
}

func TestAjaxRequestInt64(t *testing.T) {
	req := AjaxRequest{Params: map[string]string{
		"listingId": " 42 ",
		"zero":      "0",
		"word":      "forty",
	}}

	i, err := req.Int64("listingId")
	require.NoError(t, err)
	assert.Equal(t, int64(42), i)

	i, err = req.Int64("missing")
	require.NoError(t, err)
	assert.Equal(t, int64(0), i)

	_, err = req.Int64("word")
	assert.Equal(t, e.UnexpectedType, e.Code(err))

	_, err = req.RequiredInt64("zero")
	assert.Equal(t, e.OutOfRange, e.Code(err))

	_, err = req.RequiredInt64("missing")
	assert.Error(t, err)
}

func TestCheckAjaxRegistry(t *testing.T) {
	registerTestActions()

	missing := CheckAjaxRegistry()
	for _, name := range missing {
		assert.Contains(t, AjaxActionNames, name)
	}
	assert.Contains(t, RegisteredAjaxActions(), "test_public")
}
