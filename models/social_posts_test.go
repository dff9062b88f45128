package models

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testListing() ListingType {
	return ListingType{
		ID:      42,
		AgentID: 5,
		Title:   "Charming bungalow",
		Address: "12 Palm Street",
		City:    "San Diego",
		State:   "CA",
		Price:   1250000,
		Beds:    3,
		Baths:   2,
		SqFt:    1800,
	}
}

func testAgent() AgentType {
	return AgentType{ID: 5, DisplayName: "Jo Realtor", Email: "jo@example.test", Phone: "555 0100"}
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "$0", FormatPrice(0))
	assert.Equal(t, "$999", FormatPrice(999))
	assert.Equal(t, "$1,000", FormatPrice(1000))
	assert.Equal(t, "$1,250,000", FormatPrice(1250000))
	assert.Equal(t, "-$12,500", FormatPrice(-12500))
}

func TestHashtagsFor(t *testing.T) {
	tags := hashtagsFor(SocialPostJustListed, testListing())
	assert.Equal(t,
		[]string{"#JustListed", "#NewListing", "#SanDiegoRealEstate", "#RealEstate", "#HomeForSale"},
		tags,
	)

	// No city gives no city tag, and duplicates are dropped
	tags = hashtagsFor(SocialPostOpenHouse, ListingType{})
	assert.Equal(t, []string{"#OpenHouse", "#RealEstate", "#HomeForSale"}, tags)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "the quick…", truncate("the quick brown fox", 12))
	assert.Equal(t, "abcdefghi…", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "é", truncate("éééé", 1))

	s := truncate(strings.Repeat("ü ", 100), 21)
	assert.LessOrEqual(t, utf8.RuneCountInString(s), 21)
	assert.True(t, strings.HasSuffix(s, "…"))
}

func TestComposeSocialPostJustListed(t *testing.T) {
	body, tags, err := ComposeSocialPost(
		SocialPlatformFacebook, SocialPostJustListed, testListing(), testAgent(), nil, 0,
	)
	require.NoError(t, err)

	assert.Empty(t, tags, "facebook posts carry no hashtags")
	assert.Contains(t, body, "Just listed! Charming bungalow in San Diego, CA.")
	assert.Contains(t, body, "$1,250,000")
	assert.Contains(t, body, "Jo Realtor at 555 0100")
}

func TestComposeSocialPostTwitterFits(t *testing.T) {
	listing := testListing()
	listing.Title = strings.Repeat("Spacious family home with views ", 20)

	body, tags, err := ComposeSocialPost(
		SocialPlatformTwitter, SocialPostJustListed, listing, testAgent(), nil, 0,
	)
	require.NoError(t, err)

	assert.LessOrEqual(t, utf8.RuneCountInString(body), SocialPlatformLimit(SocialPlatformTwitter))
	assert.NotEmpty(t, tags)
	assert.True(t, strings.HasSuffix(body, strings.Join(tags, " ")))
	assert.Contains(t, body, "…")
}

func TestComposeSocialPostPriceDrop(t *testing.T) {
	body, _, err := ComposeSocialPost(
		SocialPlatformLinkedIn, SocialPostPriceDrop, testListing(), testAgent(), nil, 1300000,
	)
	require.NoError(t, err)
	assert.Contains(t, body, "is now $1,250,000 (was $1,300,000).")

	// An unchanged price is not a drop
	body, _, err = ComposeSocialPost(
		SocialPlatformLinkedIn, SocialPostPriceDrop, testListing(), testAgent(), nil, 1250000,
	)
	require.NoError(t, err)
	assert.NotContains(t, body, "was")
}

func TestComposeSocialPostOpenHouse(t *testing.T) {
	starts := time.Date(2024, 6, 1, 13, 0, 0, 0, time.UTC)
	oh := &OpenHouseType{Starts: starts, Ends: starts.Add(2 * time.Hour)}

	body, _, err := ComposeSocialPost(
		SocialPlatformInstagram, SocialPostOpenHouse, testListing(), testAgent(), oh, 0,
	)
	require.NoError(t, err)
	assert.Contains(t, body, "Open house Saturday, June 1 from 1:00pm to 3:00pm at 12 Palm Street")
	assert.Contains(t, body, "#OpenHouse")
}

func TestComposeSocialPostUnknown(t *testing.T) {
	_, _, err := ComposeSocialPost("myspace", SocialPostJustSold, testListing(), testAgent(), nil, 0)
	assert.Error(t, err)

	_, _, err = ComposeSocialPost(SocialPlatformTwitter, "just_rented", testListing(), testAgent(), nil, 0)
	assert.Error(t, err)
}

func TestSocialPostRequestValidate(t *testing.T) {
	m := SocialPostRequest{ListingID: 1, Platform: " Twitter ", PostType: "JUST_SOLD"}
	_, err := m.Validate()
	require.NoError(t, err)
	assert.Equal(t, SocialPlatformTwitter, m.Platform)
	assert.Equal(t, SocialPostJustSold, m.PostType)

	m = SocialPostRequest{Platform: "twitter", PostType: "just_sold"}
	_, err = m.Validate()
	assert.Error(t, err)

	m = SocialPostRequest{ListingID: 1, Platform: "twitter", PostType: "rumour"}
	_, err = m.Validate()
	assert.Error(t, err)
}
