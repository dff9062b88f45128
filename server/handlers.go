package server

import (
	"net/http"

	"github.com/happyplace/dashboard/controller"
)

var (
	handlers = map[string]func(http.ResponseWriter, *http.Request){
		"/":        controller.RootHandler,
		"/api":     controller.APIHandler,
		"/api/v1":  controller.V1Handler,
		"/metrics": controller.MetricsHandler,

		"/api/v1/version": controller.VersionHandler,
		"/api/v1/metrics": controller.MetricsHandler,

		"/api/v1/auth":                             controller.AuthHandler,
		"/api/v1/auth/{access_token:[0-9A-Za-z]+}": controller.AuthAccessTokenHandler,
		"/api/v1/whoami":                           controller.WhoAmIHandler,
		"/api/v1/permissions":                      controller.PermissionHandler,
		"/api/v1/nonce":                            controller.NonceHandler,

		"/api/v1/ajax": controller.AjaxHandler,

		"/api/v1/dashboard":                              controller.DashboardHandler,
		"/api/v1/dashboard/{section:[a-z_-]+}":           controller.DashboardSectionHandler,
		"/api/v1/activity":                               controller.ActivityHandler,
		"/api/v1/notifications":                          controller.NotificationsHandler,
		"/api/v1/notifications/{notification_id:[0-9]+}": controller.NotificationHandler,
		"/api/v1/selftests":                              controller.SelfTestsHandler,

		"/api/v1/listings":                                              controller.ListingsHandler,
		"/api/v1/listings/{listing_id:[0-9]+}":                          controller.ListingHandler,
		"/api/v1/listings/{listing_id:[0-9]+}/photos":                   controller.PhotosHandler,
		"/api/v1/listings/{listing_id:[0-9]+}/photos/{photo_id:[0-9]+}": controller.PhotoHandler,

		"/api/v1/leads":                        controller.LeadsHandler,
		"/api/v1/leads/csv":                    controller.LeadsCSVHandler,
		"/api/v1/leads/{lead_id:[0-9]+}":       controller.LeadHandler,
		"/api/v1/leads/{lead_id:[0-9]+}/notes": controller.LeadNotesHandler,

		"/api/v1/openhouses":                              controller.OpenHousesHandler,
		"/api/v1/openhouses/{open_house_id:[0-9]+}":       controller.OpenHouseHandler,
		"/api/v1/openhouses/{open_house_id:[0-9]+}/rsvps": controller.RSVPsHandler,

		"/api/v1/agents":                   controller.AgentsHandler,
		"/api/v1/agents/{agent_id:[0-9]+}": controller.AgentHandler,

		"/api/v1/users":                  controller.UsersHandler,
		"/api/v1/users/{user_id:[0-9]+}": controller.UserHandler,

		"/api/v1/{type:agents|leads|listings|openhouses}/{item_id:[0-9]+}/fields":                  controller.FieldsHandler,
		"/api/v1/{type:agents|leads|listings|openhouses}/{item_id:[0-9]+}/fields/{key:[a-z0-9_]+}": controller.FieldHandler,

		"/api/v1/flyers":      controller.FlyersHandler,
		"/api/v1/socialposts": controller.SocialPostsHandler,

		"/api/v1/campaigns":                           controller.CampaignsHandler,
		"/api/v1/campaigns/{campaign_id:[0-9]+}":      controller.CampaignHandler,
		"/api/v1/campaigns/{campaign_id:[0-9]+}/send": controller.CampaignSendHandler,

		"/api/v1/files/{key:.+}": controller.FileHandler,
	}
)
