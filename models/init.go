package models

import (
	"encoding/gob"
	"time"
)

func init() {
	// Values held in interface fields must be registered before the object
	// cache can encode them
	gob.Register(AccessTokenType{})
	gob.Register(AgentType{})
	gob.Register(CampaignType{})
	gob.Register(FieldType{})
	gob.Register(LeadType{})
	gob.Register(ListingType{})
	gob.Register(OpenHouseType{})
	gob.Register(PermissionType{})
	gob.Register(PhotoType{})
	gob.Register(UserType{})
	gob.Register(time.Time{})
}
