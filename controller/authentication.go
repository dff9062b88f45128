package controller

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang/glog"
	"golang.org/x/oauth2"

	"github.com/happyplace/dashboard/audit"
	conf "github.com/happyplace/dashboard/config"
	h "github.com/happyplace/dashboard/helpers"
	"github.com/happyplace/dashboard/models"
)

// AuthController is a web controller
type AuthController struct{}

// AuthHandler is a web handler
func AuthHandler(w http.ResponseWriter, r *http.Request) {
	c, status, err := models.MakeContext(r, w)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	ctl := AuthController{}

	switch c.GetHTTPMethod() {
	case "OPTIONS":
		c.RespondWithOptions([]string{"OPTIONS", "POST"})
		return
	case "POST":
		ctl.Create(c)
	default:
		c.RespondWithStatus(http.StatusMethodNotAllowed)
		return
	}
}

func oauthConfig() (*oauth2.Config, bool) {
	cfg := &oauth2.Config{
		ClientID:     conf.ConfigStrings[conf.OAuthClientID],
		ClientSecret: conf.ConfigStrings[conf.OAuthClientSecret],
		RedirectURL:  conf.ConfigStrings[conf.OAuthRedirectURL],
		Scopes:       []string{"openid", "profile", "email"},
		Endpoint: oauth2.Endpoint{
			AuthURL:  conf.ConfigStrings[conf.OAuthAuthURL],
			TokenURL: conf.ConfigStrings[conf.OAuthTokenURL],
		},
	}

	ok := cfg.ClientID != "" &&
		cfg.ClientSecret != "" &&
		cfg.Endpoint.TokenURL != "" &&
		conf.ConfigStrings[conf.OAuthUserInfoURL] != ""

	return cfg, ok
}

// Create handles POST. The code returned to the sign in callback is
// exchanged for the identity of the user, who must already be known to us,
// and an access token is issued for them.
func (ctl *AuthController) Create(c *models.Context) {
	cfg, ok := oauthConfig()
	if !ok {
		glog.Errorf("oauth is not configured")
		c.RespondWithErrorMessage("Sign in is not configured", http.StatusServiceUnavailable)
		return
	}

	callback := struct {
		Code string `json:"code"`
	}{}
	err := c.Fill(&callback)
	if err != nil {
		c.RespondWithErrorMessage(
			fmt.Sprintf("The post data is invalid: %v", err.Error()),
			http.StatusBadRequest,
		)
		return
	}
	if callback.Code == "" {
		c.RespondWithErrorMessage(
			"code is a required POST parameter",
			http.StatusBadRequest,
		)
		return
	}

	ctx := c.Request.Context()

	token, err := cfg.Exchange(ctx, callback.Code)
	if err != nil {
		glog.Warningf("oauth exchange: %v", err)
		c.RespondWithErrorMessage("The sign in code was not accepted", http.StatusUnauthorized)
		return
	}

	resp, err := cfg.Client(ctx, token).Get(conf.ConfigStrings[conf.OAuthUserInfoURL])
	if err != nil {
		glog.Errorf("oauth userinfo: %v", err)
		c.RespondWithErrorMessage(err.Error(), http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		c.RespondWithErrorMessage(err.Error(), http.StatusBadGateway)
		return
	}
	if resp.StatusCode != http.StatusOK {
		glog.Errorf("oauth userinfo answered %s: %s", resp.Status, raw)
		c.RespondWithErrorMessage("Could not fetch your identity", http.StatusBadGateway)
		return
	}

	userInfo := struct {
		Email         string `json:"email"`
		EmailVerified *bool  `json:"email_verified"`
	}{}
	err = json.Unmarshal(raw, &userInfo)
	if err != nil {
		c.RespondWithErrorMessage(err.Error(), http.StatusBadGateway)
		return
	}
	if userInfo.Email == "" {
		c.RespondWithErrorMessage("No email address was received", http.StatusBadGateway)
		return
	}
	if userInfo.EmailVerified != nil && !*userInfo.EmailVerified {
		c.RespondWithErrorMessage("Your email address has not been verified", http.StatusForbidden)
		return
	}

	user, status, err := models.GetUserByEmailAddress(userInfo.Email)
	if err != nil {
		if status == http.StatusNotFound {
			c.RespondWithErrorMessage(
				fmt.Sprintf("%s does not have an account", userInfo.Email),
				http.StatusForbidden,
			)
			return
		}
		c.RespondWithErrorDetail(err, status)
		return
	}
	if user.IsBanned {
		c.RespondWithErrorMessage(h.NoAuthMessage, http.StatusForbidden)
		return
	}

	m := models.AccessTokenType{UserID: user.ID}
	status, err = m.Insert()
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	audit.Create(
		h.ItemTypes[h.ItemTypeAuth],
		m.AccessTokenID,
		user.ID,
		time.Now(),
		c.IP,
	)

	c.RespondWithData(m)
}

// AuthAccessTokenController is a web controller
type AuthAccessTokenController struct{}

// AuthAccessTokenHandler is a web handler
func AuthAccessTokenHandler(w http.ResponseWriter, r *http.Request) {
	c, status, err := models.MakeContext(r, w)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	ctl := AuthAccessTokenController{}

	switch c.GetHTTPMethod() {
	case "OPTIONS":
		c.RespondWithOptions([]string{"OPTIONS", "HEAD", "GET", "DELETE"})
		return
	case "HEAD":
		ctl.Read(c)
	case "GET":
		ctl.Read(c)
	case "DELETE":
		ctl.Delete(c)
	default:
		c.RespondWithStatus(http.StatusMethodNotAllowed)
		return
	}
}

// Read handles GET
func (ctl *AuthAccessTokenController) Read(c *models.Context) {
	m, status, err := models.GetAccessToken(c.RouteVars["access_token"])
	if err != nil {
		c.RespondWithErrorMessage(
			fmt.Sprintf("Error retrieving access token: %v", err.Error()),
			status,
		)
		return
	}
	c.RespondWithData(m)
}

// Delete handles DELETE, signing out of the current session
func (ctl *AuthAccessTokenController) Delete(c *models.Context) {
	authToken := c.Auth.AccessToken.TokenValue
	pathToken := c.RouteVars["access_token"]

	if authToken == `` {
		c.RespondWithErrorMessage(
			`an access_token is expected as the access_token that authenticates the current request`,
			http.StatusBadRequest,
		)
		return
	}

	if !strings.EqualFold(authToken, pathToken) {
		c.RespondWithErrorMessage(
			`you can only delete the access_token for the currently authenticated session`,
			http.StatusBadRequest,
		)
		return
	}

	m, status, err := models.GetAccessToken(pathToken)
	if err != nil {
		c.RespondWithErrorMessage(
			fmt.Sprintf("error retrieving access token: %v", err.Error()),
			status,
		)
		return
	}

	status, err = m.Delete()
	if err != nil {
		c.RespondWithErrorMessage(
			fmt.Sprintf("error deleting access token: %v", err.Error()),
			status,
		)
		return
	}

	audit.Delete(
		h.ItemTypes[h.ItemTypeAuth],
		m.AccessTokenID,
		c.Auth.UserID,
		time.Now(),
		c.IP,
	)

	c.RespondWithOK()
}
