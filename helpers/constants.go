package helpers

const (
	ItemTypeActivity     string = "activity"
	ItemTypeAgent        string = "agent"
	ItemTypeAuth         string = "auth"
	ItemTypeCampaign     string = "campaign"
	ItemTypeField        string = "field"
	ItemTypeFlyer        string = "flyer"
	ItemTypeLead         string = "lead"
	ItemTypeListing      string = "listing"
	ItemTypeNotification string = "notification"
	ItemTypeOpenHouse    string = "open_house"
	ItemTypePhoto        string = "photo"
	ItemTypeSelfTest     string = "selftest"
	ItemTypeSocialPost   string = "social_post"
	ItemTypeUser         string = "user"
	ItemTypeWhoAmI       string = "whoami"
)

// ItemTypes maps the item type names to the IDs stored in the database
var ItemTypes = map[string]int64{
	ItemTypeUser:         1,
	ItemTypeAgent:        2,
	ItemTypeListing:      3,
	ItemTypeLead:         4,
	ItemTypeOpenHouse:    5,
	ItemTypeField:        6,
	ItemTypePhoto:        7,
	ItemTypeFlyer:        8,
	ItemTypeSocialPost:   9,
	ItemTypeCampaign:     10,
	ItemTypeActivity:     11,
	ItemTypeNotification: 12,
	ItemTypeSelfTest:     13,
	ItemTypeAuth:         14,
}

// ItemTypesWithFields are the item types that may carry custom fields
var ItemTypesWithFields = map[string]int64{
	ItemTypeAgent:     2,
	ItemTypeListing:   3,
	ItemTypeLead:      4,
	ItemTypeOpenHouse: 5,
}

const (
	APITypeActivity     string = "/api/v1/activity"
	APITypeAgent        string = "/api/v1/agents"
	APITypeAuth         string = "/api/v1/auth"
	APITypeCampaign     string = "/api/v1/campaigns"
	APITypeField        string = "/api/v1/%s/%d/fields"
	APITypeFlyer        string = "/api/v1/flyers"
	APITypeLead         string = "/api/v1/leads"
	APITypeListing      string = "/api/v1/listings"
	APITypeNotification string = "/api/v1/notifications"
	APITypeOpenHouse    string = "/api/v1/openhouses"
	APITypePhoto        string = "/api/v1/listings/%d/photos"
	APITypeSelfTest     string = "/api/v1/selftests"
	APITypeSocialPost   string = "/api/v1/socialposts"
	APITypeUser         string = "/api/v1/users"
	APITypeWhoAmI       string = "/api/v1/whoami"
)

// ItemTypesToAPIItem maps item types to their collection URLs
var ItemTypesToAPIItem = map[string]string{
	ItemTypeActivity:     APITypeActivity,
	ItemTypeAgent:        APITypeAgent,
	ItemTypeAuth:         APITypeAuth,
	ItemTypeCampaign:     APITypeCampaign,
	ItemTypeField:        APITypeField,
	ItemTypeFlyer:        APITypeFlyer,
	ItemTypeLead:         APITypeLead,
	ItemTypeListing:      APITypeListing,
	ItemTypeNotification: APITypeNotification,
	ItemTypeOpenHouse:    APITypeOpenHouse,
	ItemTypePhoto:        APITypePhoto,
	ItemTypeSelfTest:     APITypeSelfTest,
	ItemTypeSocialPost:   APITypeSocialPost,
	ItemTypeUser:         APITypeUser,
	ItemTypeWhoAmI:       APITypeWhoAmI,
}

// GetItemTypeFromInt returns the item type name for an ID
func GetItemTypeFromInt(id int64) (string, bool) {
	for k, v := range ItemTypes {
		if v == id {
			return k, true
		}
	}
	return "", false
}
