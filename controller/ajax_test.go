package controller

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	conf "github.com/happyplace/dashboard/config"
	e "github.com/happyplace/dashboard/errors"
	"github.com/happyplace/dashboard/models"
)

type ajaxReply struct {
	Success bool `json:"success"`
	Data    struct {
		Message string            `json:"message"`
		Code    e.ErrCode         `json:"code"`
		Errors  map[string]string `json:"errors"`
	} `json:"data"`
}

func withNonceSecret(t *testing.T) {
	prev := conf.ConfigStrings[conf.NonceSecret]
	conf.ConfigStrings[conf.NonceSecret] = "controller-test"
	t.Cleanup(func() { conf.ConfigStrings[conf.NonceSecret] = prev })
}

func postAjax(t *testing.T, form url.Values) (*httptest.ResponseRecorder, ajaxReply) {
	r := httptest.NewRequest(http.MethodPost, "/api/v1/ajax", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()

	AjaxHandler(w, r)

	var reply ajaxReply
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reply), w.Body.String())
	return w, reply
}

func TestEveryAjaxActionIsRegistered(t *testing.T) {
	assert.Empty(t, models.CheckAjaxRegistry())

	a, ok := models.GetAjaxAction("hph_submit_lead")
	require.True(t, ok)
	assert.True(t, a.NoPriv)

	a, ok = models.GetAjaxAction("hph_send_campaign")
	require.True(t, ok)
	assert.False(t, a.NoPriv)
	assert.Equal(t, models.CapSendCampaigns, a.Capability)
}

func TestAjaxMissingAction(t *testing.T) {
	w, reply := postAjax(t, url.Values{"nonce": {"x"}})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, reply.Success)
	assert.Equal(t, e.UnknownAction, reply.Data.Code)
}

func TestAjaxUnknownAction(t *testing.T) {
	w, reply := postAjax(t, url.Values{"action": {"hph_make_coffee"}})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, e.UnknownAction, reply.Data.Code)
	assert.Equal(t, "Unknown action (hph_make_coffee)", reply.Data.Message)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
}

func TestAjaxGuestNeedsLogin(t *testing.T) {
	withNonceSecret(t)

	w, reply := postAjax(t, url.Values{"action": {"hph_get_dashboard_stats"}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, e.LoginRequired, reply.Data.Code)
}

func TestAjaxBadNonce(t *testing.T) {
	withNonceSecret(t)

	w, reply := postAjax(t, url.Values{
		"action": {"hph_submit_lead"},
		"nonce":  {"0123456789ab"},
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, e.InvalidNonce, reply.Data.Code)
}

func TestAjaxSubmitLeadValidation(t *testing.T) {
	withNonceSecret(t)

	w, reply := postAjax(t, url.Values{
		"action": {"hph_submit_lead"},
		"nonce":  {models.CreateNonce("hph_submit_lead", 0, time.Now())},
		"email":  {"not an email"},
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, reply.Success)
	assert.Equal(t, e.InvalidContent, reply.Data.Code)
	assert.Equal(t, "Please correct the highlighted fields", reply.Data.Message)
	assert.Equal(t, "Name is required", reply.Data.Errors["name"])
	assert.Equal(t, "Email is not a valid email address", reply.Data.Errors["email"])
}

func TestAjaxNonceHeaderAndJSON(t *testing.T) {
	withNonceSecret(t)

	body := `{"action":"hph_submit_lead","listingId":"abc"}`
	r := httptest.NewRequest(http.MethodPost, "/api/v1/ajax", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	r.Header.Set("X-HPH-Nonce", models.CreateNonce("hph_submit_lead", 0, time.Now()))
	w := httptest.NewRecorder()

	AjaxHandler(w, r)

	var reply ajaxReply
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reply))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, e.UnexpectedType, reply.Data.Code)
}

func TestAjaxSubmitLeadAgentMustBeANumber(t *testing.T) {
	withNonceSecret(t)

	w, reply := postAjax(t, url.Values{
		"action":  {"hph_submit_lead"},
		"nonce":   {models.CreateNonce("hph_submit_lead", 0, time.Now())},
		"agentId": {"jo"},
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, e.UnexpectedType, reply.Data.Code)
	assert.Equal(t, "agentId (jo) is not a number", reply.Data.Message)
}

func TestAjaxMethods(t *testing.T) {
	w := httptest.NewRecorder()
	AjaxHandler(w, httptest.NewRequest(http.MethodOptions, "/api/v1/ajax", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OPTIONS,POST", w.Header().Get("Allow"))

	w = httptest.NewRecorder()
	AjaxHandler(w, httptest.NewRequest(http.MethodGet, "/api/v1/ajax", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestAjaxParamString(t *testing.T) {
	assert.Equal(t, "", ajaxParamString(nil))
	assert.Equal(t, "true", ajaxParamString(true))
	assert.Equal(t, "42", ajaxParamString(float64(42)))
	assert.Equal(t, "1.5", ajaxParamString(1.5))
	assert.Equal(t, `["a","b"]`, ajaxParamString([]interface{}{"a", "b"}))
}

func TestNonceHandler(t *testing.T) {
	withNonceSecret(t)

	w := httptest.NewRecorder()
	NonceHandler(w, httptest.NewRequest(http.MethodGet, "/api/v1/nonce?action=hph_rsvp_open_house", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data NonceType `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "hph_rsvp_open_house", resp.Data.Action)
	assert.Equal(t, 1, models.VerifyNonce(resp.Data.Nonce, "hph_rsvp_open_house", 0, time.Now()))

	w = httptest.NewRecorder()
	NonceHandler(w, httptest.NewRequest(http.MethodGet, "/api/v1/nonce?action=hph_delete_listing", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	NonceHandler(w, httptest.NewRequest(http.MethodGet, "/api/v1/nonce?action=nope", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAlwaysOK(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/api/v1/ajax", strings.NewReader("action=hph_make_coffee"))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r.Header.Set("X-Always-200", "1")
	w := httptest.NewRecorder()

	AjaxHandler(w, r)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"success":false`)
}
