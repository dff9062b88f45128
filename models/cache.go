package models

import (
	"fmt"

	c "github.com/happyplace/dashboard/cache"
	conf "github.com/happyplace/dashboard/config"
	h "github.com/happyplace/dashboard/helpers"
)

// This file contains setup and helper functions for caching model objects.
// It should only contain functions specifically for dealing with models;
// anything else should go in the cache package.

var (
	mcAccessTokenKeys = map[int]string{
		c.CacheDetail: "au_%s",
	}
	mcAgentKeys = map[int]string{
		c.CacheDetail: "ag_d%d",
		c.CacheFields: "ag_f%d",
	}
	mcCampaignKeys = map[int]string{
		c.CacheDetail: "cp_d%d",
	}
	mcLeadKeys = map[int]string{
		c.CacheDetail: "ld_d%d",
		c.CacheFields: "ld_f%d",
	}
	mcListingKeys = map[int]string{
		c.CacheDetail: "ls_d%d",
		c.CacheTitle:  "ls_t%d",
		c.CacheFields: "ls_f%d",
		c.CachePhotos: "ls_p%d",
	}
	mcOpenHouseKeys = map[int]string{
		c.CacheDetail: "oh_d%d",
		c.CacheFields: "oh_f%d",
	}
	mcUserKeys = map[int]string{
		c.CacheDetail: "us_d%d",
		c.CacheCounts: "us_la%d",
	}
)

const mcTTL int32 = 60 * 60 * 24 * 7 // 1 Week

// DashboardGroup is the cache group holding every dashboard aggregate
const DashboardGroup string = "dashboard"

// DashboardTTL is how long an aggregate may be served without a rebuild
func DashboardTTL() int32 {
	ttl := conf.ConfigInt64s[conf.DashboardCacheTTL]
	if ttl <= 0 {
		return 60 * 60
	}
	return int32(ttl)
}

var itemTypeKeys = map[int64]map[int]string{
	h.ItemTypes[h.ItemTypeAgent]:     mcAgentKeys,
	h.ItemTypes[h.ItemTypeCampaign]:  mcCampaignKeys,
	h.ItemTypes[h.ItemTypeLead]:      mcLeadKeys,
	h.ItemTypes[h.ItemTypeListing]:   mcListingKeys,
	h.ItemTypes[h.ItemTypeOpenHouse]: mcOpenHouseKeys,
	h.ItemTypes[h.ItemTypeUser]:      mcUserKeys,
}

// PurgeCache removes an item from the cache
func PurgeCache(itemTypeID int64, itemID int64) {
	keys, ok := itemTypeKeys[itemTypeID]
	if !ok {
		return
	}

	for _, mcKeyFmt := range keys {
		c.Delete(fmt.Sprintf(mcKeyFmt, itemID))
	}
}

// PurgeCacheByScope removes a single kind of cached data for an item
func PurgeCacheByScope(scope int, itemTypeID int64, itemID int64) {
	keys, ok := itemTypeKeys[itemTypeID]
	if !ok {
		return
	}

	if mcKeyFmt, ok := keys[scope]; ok {
		c.Delete(fmt.Sprintf(mcKeyFmt, itemID))
	}
}
