package models

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/golang/glog"

	conf "github.com/happyplace/dashboard/config"
)

// spamLookupURL is the StopForumSpam API, tests point it elsewhere
var spamLookupURL = "https://api.stopforumspam.org/api"

var spamClient = &http.Client{Timeout: 3 * time.Second}

type spamLookupResponse struct {
	Success int64 `json:"success"`
	Email   struct {
		LastSeen   int64   `json:"lastseen"`
		Frequency  int64   `json:"frequency"`
		Appears    int64   `json:"appears"`
		Confidence float64 `json:"confidence"`
	} `json:"email"`
}

// IsKnownSpammer reports whether an email address submitting a public form
// has been reported for spam in the last year. Lookup failures are not
// spam, enquiries must never be lost because the service is down.
func IsKnownSpammer(ctx context.Context, email string) bool {
	if !conf.ConfigBool[conf.SpamCheck] || email == "" {
		return false
	}

	u, err := url.Parse(spamLookupURL)
	if err != nil {
		glog.Errorf("url.Parse(%s) %+v", spamLookupURL, err)
		return false
	}
	q := u.Query()
	q.Set("f", "json")
	q.Set("unix", "")
	q.Set("email", email)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		glog.Errorf("http.NewRequest() %+v", err)
		return false
	}

	resp, err := spamClient.Do(req)
	if err != nil {
		glog.Warningf("spam lookup: %+v", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		glog.Warningf("spam lookup: status %d", resp.StatusCode)
		return false
	}

	var m spamLookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		glog.Warningf("spam lookup: %+v", err)
		return false
	}

	spammer := m.Success > 0 &&
		m.Email.Appears > 0 &&
		m.Email.LastSeen > time.Now().AddDate(-1, 0, 0).Unix() &&
		m.Email.Confidence > 0
	if spammer && bool(glog.V(2)) {
		glog.Infof("IsKnownSpammer(%s) confidence %.2f", email, m.Email.Confidence)
	}
	return spammer
}
