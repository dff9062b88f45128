package controller

import (
	"fmt"
	"net/http"
	"strconv"

	h "github.com/happyplace/dashboard/helpers"
	"github.com/happyplace/dashboard/models"
)

// RootHandler is a web handler
func RootHandler(w http.ResponseWriter, r *http.Request) {
	c, status, err := models.MakeContext(r, w)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	switch c.GetHTTPMethod() {
	case "OPTIONS":
		c.RespondWithOptions([]string{"OPTIONS", "GET"})
		return
	case "GET":
		c.RespondWithData(
			h.LinkArrayType{Links: []h.LinkType{
				{Rel: "api", Href: "/api"},
			}},
		)
		return
	default:
		c.RespondWithStatus(http.StatusMethodNotAllowed)
		return
	}
}

// APIHandler is a web handler
func APIHandler(w http.ResponseWriter, r *http.Request) {
	c, status, err := models.MakeContext(r, w)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	switch c.GetHTTPMethod() {
	case "OPTIONS":
		c.RespondWithOptions([]string{"OPTIONS", "GET"})
		return
	case "GET":
		c.RespondWithData(
			h.LinkArrayType{Links: []h.LinkType{
				{Rel: "v1", Href: "/api/v1"},
			}},
		)
		return
	default:
		c.RespondWithStatus(http.StatusMethodNotAllowed)
		return
	}
}

// V1Handler is a web handler
func V1Handler(w http.ResponseWriter, r *http.Request) {
	c, status, err := models.MakeContext(r, w)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	switch c.GetHTTPMethod() {
	case "OPTIONS":
		c.RespondWithOptions([]string{"OPTIONS", "GET"})
		return
	case "GET":
		c.RespondWithData(
			h.LinkArrayType{Links: []h.LinkType{
				h.GetLink("activity", "", h.ItemTypeActivity, 0),
				h.GetLink("agent", "", h.ItemTypeAgent, 0),
				{Rel: "ajax", Href: "/api/v1/ajax"},
				h.GetLink("auth", "", h.ItemTypeAuth, 0),
				h.GetLink("campaign", "", h.ItemTypeCampaign, 0),
				{Rel: "dashboard", Href: "/api/v1/dashboard"},
				h.GetLink("flyer", "", h.ItemTypeFlyer, 0),
				h.GetLink("lead", "", h.ItemTypeLead, 0),
				h.GetLink("listing", "", h.ItemTypeListing, 0),
				{Rel: "nonce", Href: "/api/v1/nonce"},
				h.GetLink("notification", "", h.ItemTypeNotification, 0),
				h.GetLink("open_house", "", h.ItemTypeOpenHouse, 0),
				h.GetLink("selftest", "", h.ItemTypeSelfTest, 0),
				h.GetLink("social_post", "", h.ItemTypeSocialPost, 0),
				h.GetLink("user", "", h.ItemTypeUser, 0),
				h.GetLink("whoami", "", h.ItemTypeWhoAmI, 0),
			}},
		)
		return
	default:
		c.RespondWithStatus(http.StatusMethodNotAllowed)
		return
	}
}

// NotFoundHandler answers every unknown route
func NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	c := models.MakeEmptyContext(r, w)
	c.RespondWithNotFound()
}

// routeID parses a numeric route variable, responding with 400 if it is not
// a number
func routeID(c *models.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.RouteVars[name], 10, 64)
	if err != nil || id <= 0 {
		c.RespondWithErrorMessage(
			fmt.Sprintf("The supplied %s ('%s') is not a number.", name, c.RouteVars[name]),
			http.StatusBadRequest,
		)
		return 0, false
	}
	return id, true
}

// fieldItemTypes maps the collection names in field routes to item types
var fieldItemTypes = map[string]string{
	"agents":     h.ItemTypeAgent,
	"leads":      h.ItemTypeLead,
	"listings":   h.ItemTypeListing,
	"openhouses": h.ItemTypeOpenHouse,
}
