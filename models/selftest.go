package models

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/golang/glog"
	"golang.org/x/sync/errgroup"

	h "github.com/happyplace/dashboard/helpers"
	"github.com/happyplace/dashboard/metrics"
)

// Self-test suites
const (
	SuiteComponent   string = "component"
	SuitePerformance string = "performance"
	SuiteIntegration string = "integration"
)

// selfTestTimeout bounds a single check
const selfTestTimeout = 30 * time.Second

// SelfTestResult is the outcome of one check
type SelfTestResult struct {
	Name        string        `json:"name"`
	Suite       string        `json:"suite"`
	Passed      bool          `json:"passed"`
	Duration    time.Duration `json:"-"`
	DurationMS  int64         `json:"durationMs"`
	Message     string        `json:"message,omitempty"`
	Threshold   time.Duration `json:"-"`
	ThresholdMS int64         `json:"thresholdMs,omitempty"`
}

// SelfTestCheck is a single named check of a suite
type SelfTestCheck struct {
	Name  string
	Suite string
	Run   func(ctx context.Context) SelfTestResult
}

// SelfTestSuite is a group of checks run together
type SelfTestSuite struct {
	Name   string
	Checks []SelfTestCheck
}

// SelfTestRunType is the stored summary of a suite run
type SelfTestRunType struct {
	ID         int64            `json:"id"`
	Suite      string           `json:"suite"`
	Passed     int64            `json:"passed"`
	Failed     int64            `json:"failed"`
	DurationMS int64            `json:"durationMs"`
	Results    []SelfTestResult `json:"results"`
	Created    time.Time        `json:"created"`
	CreatedBy  int64            `json:"createdById,omitempty"`
}

// newCheck wraps fn as a check. fn fails the check by returning an error,
// and a check that takes longer than threshold fails even if fn succeeded.
// A zero threshold is not enforced.
func newCheck(
	suite string,
	name string,
	threshold time.Duration,
	fn func(ctx context.Context) error,
) SelfTestCheck {
	return SelfTestCheck{
		Name:  name,
		Suite: suite,
		Run: func(ctx context.Context) SelfTestResult {
			r := SelfTestResult{
				Name:        name,
				Suite:       suite,
				Threshold:   threshold,
				ThresholdMS: threshold.Milliseconds(),
			}

			start := time.Now()
			err := fn(ctx)
			r.Duration = time.Since(start)
			r.DurationMS = r.Duration.Milliseconds()

			switch {
			case err != nil:
				r.Message = err.Error()
			case threshold > 0 && r.Duration > threshold:
				r.Message = fmt.Sprintf("took %s, threshold is %s",
					r.Duration.Round(time.Millisecond), threshold)
			default:
				r.Passed = true
			}

			return r
		},
	}
}

// Run executes every check of the suite concurrently and records the
// outcome of each as a metric. The results are in check order.
func (s SelfTestSuite) Run(ctx context.Context) (SelfTestRunType, error) {
	run := SelfTestRunType{
		Suite:   s.Name,
		Results: make([]SelfTestResult, len(s.Checks)),
		Created: time.Now(),
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, check := range s.Checks {
		i, check := i, check
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(gctx, selfTestTimeout)
			defer cancel()

			run.Results[i] = safeRun(cctx, check)
			return nil
		})
	}
	err := g.Wait()
	if err != nil {
		return SelfTestRunType{}, err
	}

	for _, r := range run.Results {
		if r.Passed {
			run.Passed++
		} else {
			run.Failed++
		}

		metrics.SelfTestDuration.WithLabelValues(r.Suite, r.Name).Set(r.Duration.Seconds())
		passed := 0.0
		if r.Passed {
			passed = 1
		}
		metrics.SelfTestPassed.WithLabelValues(r.Suite, r.Name).Set(passed)
	}
	run.DurationMS = time.Since(run.Created).Milliseconds()

	return run, nil
}

// safeRun turns a panicking check into a failed result
func safeRun(ctx context.Context, check SelfTestCheck) (r SelfTestResult) {
	defer func() {
		if p := recover(); p != nil {
			glog.Errorf("self test %s/%s panicked: %v", check.Suite, check.Name, p)
			r = SelfTestResult{
				Name:    check.Name,
				Suite:   check.Suite,
				Message: fmt.Sprintf("panic: %v", p),
			}
		}
	}()
	return check.Run(ctx)
}

// selfTestSuites builds the suites afresh so that checks see current
// configuration
var selfTestSuites = func() map[string]SelfTestSuite {
	return map[string]SelfTestSuite{
		SuiteComponent:   componentSuite(),
		SuitePerformance: performanceSuite(),
		SuiteIntegration: integrationSuite(),
	}
}

// SelfTestSuiteNames lists the suites in name order
func SelfTestSuiteNames() []string {
	names := []string{}
	for k := range selfTestSuites() {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// saveSelfTestRun stores a run summary. Tests replace it.
var saveSelfTestRun = insertSelfTestRun

// RunSelfTests runs the named suite, or every suite if name is empty or
// "all", and stores a summary of each run. Administrators are notified of
// failures.
func RunSelfTests(ctx context.Context, name string, userID int64) ([]SelfTestRunType, int, error) {
	suites := selfTestSuites()

	names := []string{}
	if name == "" || name == "all" {
		for k := range suites {
			names = append(names, k)
		}
		sort.Strings(names)
	} else {
		if _, ok := suites[name]; !ok {
			return []SelfTestRunType{}, http.StatusBadRequest,
				fmt.Errorf("Unknown suite (%s), must be one of %v", name, SelfTestSuiteNames())
		}
		names = append(names, name)
	}

	runs := []SelfTestRunType{}
	failed := []string{}
	for _, n := range names {
		run, err := suites[n].Run(ctx)
		if err != nil {
			return []SelfTestRunType{}, http.StatusInternalServerError, err
		}
		run.CreatedBy = userID

		err = saveSelfTestRun(&run)
		if err != nil {
			glog.Errorf("saveSelfTestRun(%s) %+v", n, err)
		}

		if run.Failed > 0 {
			failed = append(failed, fmt.Sprintf("%s (%d)", n, run.Failed))
		}
		runs = append(runs, run)
	}

	if len(failed) > 0 {
		notifySelfTestFailure(runs, strings.Join(failed, ", "))
	}

	return runs, http.StatusOK, nil
}

// notifySelfTestFailure tells every administrator about failed checks
var notifySelfTestFailure = func(runs []SelfTestRunType, failed string) {
	admins, _, _, err := GetUsers(RoleAdministrator, 100, 0)
	if err != nil {
		glog.Errorf("GetUsers(%s) %+v", RoleAdministrator, err)
		return
	}

	for _, u := range admins {
		_, _, err := CreateNotification(
			u.ID,
			NotificationKindSelfTest,
			"Self tests failed: "+failed,
			h.ItemTypes[h.ItemTypeSelfTest],
			firstFailedRun(runs),
		)
		if err != nil {
			glog.Errorf("CreateNotification(%d) %+v", u.ID, err)
		}
	}
}

// firstFailedRun returns the id of the first run with a failed check
func firstFailedRun(runs []SelfTestRunType) int64 {
	for _, run := range runs {
		if run.Failed > 0 {
			return run.ID
		}
	}
	return 0
}

func insertSelfTestRun(m *SelfTestRunType) error {
	results, err := json.Marshal(m.Results)
	if err != nil {
		return err
	}

	db, err := h.GetConnection()
	if err != nil {
		return err
	}

	return db.QueryRow(`
INSERT INTO selftest_runs (
    suite, passed, failed, duration_ms, results,
    created, created_by
) VALUES (
    $1, $2, $3, $4, $5,
    $6, $7
) RETURNING run_id`,
		m.Suite,
		m.Passed,
		m.Failed,
		m.DurationMS,
		string(results),

		m.Created,
		m.CreatedBy,
	).Scan(
		&m.ID,
	)
}

// GetSelfTestRuns returns the most recent runs, newest first
func GetSelfTestRuns(limit int64) ([]SelfTestRunType, int, error) {
	db, err := h.GetConnection()
	if err != nil {
		return []SelfTestRunType{}, http.StatusInternalServerError, err
	}

	rows, err := db.Query(`
SELECT run_id
      ,suite
      ,passed
      ,failed
      ,duration_ms
      ,results
      ,created
      ,created_by
  FROM selftest_runs
 ORDER BY created DESC
 LIMIT $1`,
		limit,
	)
	if err != nil {
		return []SelfTestRunType{}, http.StatusInternalServerError,
			fmt.Errorf("Database query failed: %v", err.Error())
	}
	defer rows.Close()

	ems := []SelfTestRunType{}
	for rows.Next() {
		var (
			m       SelfTestRunType
			results string
		)
		err = rows.Scan(
			&m.ID,
			&m.Suite,
			&m.Passed,
			&m.Failed,
			&m.DurationMS,
			&results,
			&m.Created,
			&m.CreatedBy,
		)
		if err != nil {
			return []SelfTestRunType{}, http.StatusInternalServerError,
				fmt.Errorf("Row parsing error: %v", err.Error())
		}

		err = json.Unmarshal([]byte(results), &m.Results)
		if err != nil {
			glog.Warningf("selftest run %d has unreadable results: %+v", m.ID, err)
		}

		ems = append(ems, m)
	}
	err = rows.Err()
	if err != nil {
		return []SelfTestRunType{}, http.StatusInternalServerError,
			fmt.Errorf("Error fetching rows: %v", err.Error())
	}

	return ems, http.StatusOK, nil
}
