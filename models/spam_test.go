package models

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	conf "github.com/happyplace/dashboard/config"
)

func spamServer(t *testing.T, status int, body string) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "json", r.URL.Query().Get("f"))
		assert.NotEmpty(t, r.URL.Query().Get("email"))
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))

	prevURL := spamLookupURL
	prevCheck := conf.ConfigBool[conf.SpamCheck]
	spamLookupURL = srv.URL + "/api"
	conf.ConfigBool[conf.SpamCheck] = true

	t.Cleanup(func() {
		srv.Close()
		spamLookupURL = prevURL
		conf.ConfigBool[conf.SpamCheck] = prevCheck
	})
}

func TestIsKnownSpammer(t *testing.T) {
	recent := time.Now().Add(-24 * time.Hour).Unix()
	spamServer(t, http.StatusOK, fmt.Sprintf(
		`{"success":1,"email":{"lastseen":%d,"frequency":12,"appears":1,"confidence":87.5}}`,
		recent,
	))

	assert.True(t, IsKnownSpammer(context.Background(), "spam@example.test"))
	assert.False(t, IsKnownSpammer(context.Background(), ""))
}

func TestIsKnownSpammerStale(t *testing.T) {
	old := time.Now().AddDate(-2, 0, 0).Unix()
	spamServer(t, http.StatusOK, fmt.Sprintf(
		`{"success":1,"email":{"lastseen":%d,"frequency":1,"appears":1,"confidence":5}}`,
		old,
	))

	assert.False(t, IsKnownSpammer(context.Background(), "reformed@example.test"))
}

func TestIsKnownSpammerFailsOpen(t *testing.T) {
	spamServer(t, http.StatusServiceUnavailable, `down`)
	assert.False(t, IsKnownSpammer(context.Background(), "buyer@example.test"))

	spamServer(t, http.StatusOK, `{not json`)
	assert.False(t, IsKnownSpammer(context.Background(), "buyer@example.test"))
}

func TestIsKnownSpammerDisabled(t *testing.T) {
	spamServer(t, http.StatusOK, `{"success":1,"email":{"appears":1,"confidence":99}}`)
	conf.ConfigBool[conf.SpamCheck] = false

	assert.False(t, IsKnownSpammer(context.Background(), "spam@example.test"))
}
