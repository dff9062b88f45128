package models

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	c "github.com/happyplace/dashboard/cache"
	conf "github.com/happyplace/dashboard/config"
)

func stubSelfTests(t *testing.T, suites map[string]SelfTestSuite) (*[]SelfTestRunType, *string) {
	saved := []SelfTestRunType{}
	notified := ""

	prevSuites, prevSave, prevNotify := selfTestSuites, saveSelfTestRun, notifySelfTestFailure
	selfTestSuites = func() map[string]SelfTestSuite { return suites }
	saveSelfTestRun = func(m *SelfTestRunType) error {
		m.ID = int64(len(saved) + 1)
		saved = append(saved, *m)
		return nil
	}
	notifySelfTestFailure = func(_ []SelfTestRunType, failed string) { notified = failed }

	t.Cleanup(func() {
		selfTestSuites, saveSelfTestRun, notifySelfTestFailure = prevSuites, prevSave, prevNotify
	})
	return &saved, &notified
}

func TestNewCheck(t *testing.T) {
	ok := newCheck("s", "ok", 0, func(context.Context) error { return nil })
	r := ok.Run(context.Background())
	assert.True(t, r.Passed)
	assert.Equal(t, "ok", r.Name)
	assert.Equal(t, "s", r.Suite)

	bad := newCheck("s", "bad", 0, func(context.Context) error { return fmt.Errorf("broken") })
	r = bad.Run(context.Background())
	assert.False(t, r.Passed)
	assert.Equal(t, "broken", r.Message)

	slow := newCheck("s", "slow", time.Millisecond, func(context.Context) error {
		time.Sleep(20 * time.Millisecond)
		return nil
	})
	r = slow.Run(context.Background())
	assert.False(t, r.Passed)
	assert.Contains(t, r.Message, "threshold is 1ms")
	assert.Equal(t, int64(1), r.ThresholdMS)
}

func TestSuiteRunKeepsOrderAndSurvivesPanics(t *testing.T) {
	s := SelfTestSuite{Name: "x", Checks: []SelfTestCheck{
		newCheck("x", "first", 0, func(context.Context) error {
			time.Sleep(10 * time.Millisecond)
			return nil
		}),
		newCheck("x", "second", 0, func(context.Context) error { panic("boom") }),
		newCheck("x", "third", 0, func(context.Context) error { return fmt.Errorf("no") }),
	}}

	run, err := s.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, run.Results, 3)
	assert.Equal(t, "first", run.Results[0].Name)
	assert.Equal(t, "second", run.Results[1].Name)
	assert.Equal(t, "third", run.Results[2].Name)
	assert.Equal(t, "panic: boom", run.Results[1].Message)
	assert.Equal(t, int64(1), run.Passed)
	assert.Equal(t, int64(2), run.Failed)
}

func TestRunSelfTests(t *testing.T) {
	pass := func(context.Context) error { return nil }
	fail := func(context.Context) error { return fmt.Errorf("nope") }

	saved, notified := stubSelfTests(t, map[string]SelfTestSuite{
		"good": {Name: "good", Checks: []SelfTestCheck{newCheck("good", "a", 0, pass)}},
		"bad":  {Name: "bad", Checks: []SelfTestCheck{newCheck("bad", "b", 0, fail)}},
	})

	runs, status, err := RunSelfTests(context.Background(), "good", 7)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	require.Len(t, runs, 1)
	assert.Equal(t, int64(7), runs[0].CreatedBy)
	assert.Equal(t, int64(1), runs[0].ID)
	assert.Empty(t, *notified)

	runs, _, err = RunSelfTests(context.Background(), "all", 7)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "bad", runs[0].Suite)
	assert.Equal(t, "good", runs[1].Suite)
	assert.Len(t, *saved, 3)
	assert.Equal(t, "bad (1)", *notified)

	_, status, err = RunSelfTests(context.Background(), "chaos", 7)
	assert.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestFailureNotificationLinksTheFailedRun(t *testing.T) {
	runs := []SelfTestRunType{
		{ID: 4, Suite: "component", Passed: 3},
		{ID: 5, Suite: "integration", Passed: 4, Failed: 1},
		{ID: 6, Suite: "performance", Failed: 2},
	}
	assert.Equal(t, int64(5), firstFailedRun(runs))
	assert.Equal(t, int64(0), firstFailedRun(runs[:1]))
}

func TestSelfTestSuiteNames(t *testing.T) {
	assert.Equal(t,
		[]string{SuiteComponent, SuiteIntegration, SuitePerformance},
		SelfTestSuiteNames(),
	)
}

func TestCacheRoundTripCheck(t *testing.T) {
	c.DisableCache()
	assert.EqualError(t, cacheRoundTrip(context.Background()), "cache is not configured")

	c.InitMemoryCache()
	defer c.DisableCache()
	assert.NoError(t, cacheRoundTrip(context.Background()))
}

func TestNonceCheck(t *testing.T) {
	withConfig(t, conf.NonceSecret, "")
	assert.Error(t, checkNonce(context.Background()))

	withConfig(t, conf.NonceSecret, "s3cret")
	assert.NoError(t, checkNonce(context.Background()))
}

func TestEmailConfigCheck(t *testing.T) {
	withConfig(t, conf.SendGridAPIKey, "")
	assert.Error(t, checkEmailConfig(context.Background()))

	withConfig(t, conf.SendGridAPIKey, "SG.key")
	withConfig(t, conf.EmailFrom, "not an address")
	assert.Error(t, checkEmailConfig(context.Background()))

	withConfig(t, conf.EmailFrom, "")
	assert.NoError(t, checkEmailConfig(context.Background()))
}

func TestComponentSuiteNamesEveryWidget(t *testing.T) {
	names := map[string]bool{}
	for _, check := range componentSuite().Checks {
		names[check.Name] = true
	}

	for _, id := range WidgetIDs() {
		assert.True(t, names["widget-"+id], id)
	}
	assert.True(t, names["ajax-actions"])
}
