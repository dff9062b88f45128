package models

import (
	"context"
	"fmt"
	"net/http"
	netmail "net/mail"
	"strings"
	"time"

	c "github.com/happyplace/dashboard/cache"
	conf "github.com/happyplace/dashboard/config"
	h "github.com/happyplace/dashboard/helpers"
)

// Performance thresholds
const (
	thresholdQuery     = 500 * time.Millisecond
	thresholdDashboard = time.Second
	thresholdCache     = 50 * time.Millisecond
	thresholdSite      = 2 * time.Second
)

// selfTestAuth is who the component checks render the dashboard as
var selfTestAuth = AuthType{Role: RoleAdministrator}

func componentSuite() SelfTestSuite {
	checks := []SelfTestCheck{
		newCheck(SuiteComponent, "sections", 0, checkSections),
		newCheck(SuiteComponent, "ajax-actions", 0, func(context.Context) error {
			if missing := CheckAjaxRegistry(); len(missing) > 0 {
				return fmt.Errorf("not registered: %s", strings.Join(missing, ", "))
			}
			return nil
		}),
		newCheck(SuiteComponent, "forms", 0, func(context.Context) error {
			for _, id := range FormIDs() {
				f, _ := GetForm(id)
				if err := f.Check(); err != nil {
					return err
				}
			}
			return nil
		}),
	}

	// One check per widget so a broken widget is named in the results
	for _, id := range WidgetIDs() {
		id := id
		checks = append(checks, newCheck(SuiteComponent, "widget-"+id, 0,
			func(ctx context.Context) error {
				_, err := RenderWidget(WidgetContext{
					Ctx:   ctx,
					Memo:  c.NewMemo(),
					Auth:  selfTestAuth,
					Scope: ScopeFor(selfTestAuth),
				}, id)
				return err
			},
		))
	}

	return SelfTestSuite{Name: SuiteComponent, Checks: checks}
}

// checkSections verifies every section names widgets that exist and is
// visible to administrators
func checkSections(context.Context) error {
	seen := map[string]bool{}
	for _, s := range AllSections() {
		if seen[s.ID] {
			return fmt.Errorf("section %s is defined twice", s.ID)
		}
		seen[s.ID] = true

		if len(s.Widgets) == 0 {
			return fmt.Errorf("section %s has no widgets", s.ID)
		}
		for _, id := range s.Widgets {
			if _, ok := widgets[id]; !ok {
				return fmt.Errorf("section %s has unknown widget %s", s.ID, id)
			}
		}
		if _, ok := GetSection(RoleAdministrator, s.ID); !ok {
			return fmt.Errorf("section %s is hidden from administrators", s.ID)
		}
	}
	return nil
}

func performanceSuite() SelfTestSuite {
	return SelfTestSuite{
		Name: SuitePerformance,
		Checks: []SelfTestCheck{
			newCheck(SuitePerformance, "listing-query", thresholdQuery,
				func(context.Context) error {
					_, _, _, err := GetListings(ListingFilter{}, h.DefaultQueryLimit, 0)
					return err
				}),
			newCheck(SuitePerformance, "lead-query", thresholdQuery,
				func(context.Context) error {
					_, _, _, err := GetLeads(LeadFilter{}, h.DefaultQueryLimit, 0)
					return err
				}),
			newCheck(SuitePerformance, "dashboard-stats", thresholdDashboard,
				func(ctx context.Context) error {
					// Built directly so that the cache does not hide a slow query
					_, err := dashboardQueries.stats(ctx, 0, time.Now())
					return err
				}),
			newCheck(SuitePerformance, "cache-round-trip", thresholdCache, cacheRoundTrip),
			newCheck(SuitePerformance, "site-response", thresholdSite, checkSiteURL),
		},
	}
}

func integrationSuite() SelfTestSuite {
	return SelfTestSuite{
		Name: SuiteIntegration,
		Checks: []SelfTestCheck{
			newCheck(SuiteIntegration, "database", 0, h.PingDB),
			newCheck(SuiteIntegration, "cache", 0, cacheRoundTrip),
			newCheck(SuiteIntegration, "object-storage", 0, func(ctx context.Context) error {
				s, err := GetStorage()
				if err != nil {
					return err
				}
				ok, err := s.BucketExists(ctx)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("bucket %s does not exist", conf.ConfigStrings[conf.StorageBucket])
				}
				return nil
			}),
			newCheck(SuiteIntegration, "email", 0, checkEmailConfig),
			newCheck(SuiteIntegration, "nonce", 0, checkNonce),
		},
	}
}

// cacheRoundTrip writes, reads and deletes a value in the shared cache
func cacheRoundTrip(context.Context) error {
	if !c.Enabled() {
		return fmt.Errorf("cache is not configured")
	}

	key := fmt.Sprintf("selftest_%d", time.Now().UnixNano())
	want := time.Now().Format(time.RFC3339Nano)

	c.SetString(key, want, 60)
	got, ok := c.GetString(key)
	if !ok {
		return fmt.Errorf("value was not stored")
	}
	if got != want {
		return fmt.Errorf("read %q, wrote %q", got, want)
	}

	c.Delete(key)
	if _, ok := c.GetString(key); ok {
		return fmt.Errorf("value survived delete")
	}

	return nil
}

// checkSiteURL fetches the public site
func checkSiteURL(ctx context.Context) error {
	siteURL := conf.ConfigStrings[conf.SiteURL]
	if siteURL == "" {
		return fmt.Errorf("site URL is not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, siteURL, nil)
	if err != nil {
		return err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("%s answered %s", siteURL, resp.Status)
	}
	return nil
}

func checkEmailConfig(context.Context) error {
	if conf.ConfigStrings[conf.SendGridAPIKey] == "" {
		return fmt.Errorf("SendGrid API key is not configured")
	}

	from := conf.ConfigStrings[conf.EmailFrom]
	if from == "" {
		from = defaultEmailFrom
	}
	if _, err := netmail.ParseAddress(from); err != nil {
		return fmt.Errorf("from address (%s) is not valid: %v", from, err)
	}

	return nil
}

// checkNonce issues a nonce and checks it only verifies for its own action
func checkNonce(context.Context) error {
	if conf.ConfigStrings[conf.NonceSecret] == "" {
		return fmt.Errorf("nonce secret is not configured")
	}

	now := time.Now()
	nonce := CreateNonce("hph_selftest", 1, now)

	if VerifyNonce(nonce, "hph_selftest", 1, now) != 1 {
		return fmt.Errorf("nonce did not verify")
	}
	if VerifyNonce(nonce, "hph_other", 1, now) != 0 {
		return fmt.Errorf("nonce verified for another action")
	}
	if VerifyNonce(nonce, "hph_selftest", 2, now) != 0 {
		return fmt.Errorf("nonce verified for another user")
	}

	return nil
}
