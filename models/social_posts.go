package models

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"text/template"
	"time"
	"unicode/utf8"

	"github.com/golang/glog"

	e "github.com/happyplace/dashboard/errors"
	h "github.com/happyplace/dashboard/helpers"
)

// Social platforms
const (
	SocialPlatformFacebook  string = "facebook"
	SocialPlatformInstagram string = "instagram"
	SocialPlatformTwitter   string = "twitter"
	SocialPlatformLinkedIn  string = "linkedin"
)

// Kinds of social post
const (
	SocialPostJustListed string = "just_listed"
	SocialPostOpenHouse  string = "open_house"
	SocialPostPriceDrop  string = "price_drop"
	SocialPostJustSold   string = "just_sold"
)

// SocialPostTypes are the valid kinds of social post
var SocialPostTypes = []string{
	SocialPostJustListed,
	SocialPostOpenHouse,
	SocialPostPriceDrop,
	SocialPostJustSold,
}

type socialPlatform struct {
	limit       int
	hashtags    bool
	imageWidth  int
	imageHeight int
}

// Character limits are those of the platforms, images are their preferred
// shapes
var socialPlatforms = map[string]socialPlatform{
	SocialPlatformFacebook:  {limit: 63206, imageWidth: 1200, imageHeight: 630},
	SocialPlatformInstagram: {limit: 2200, hashtags: true, imageWidth: 1080, imageHeight: 1080},
	SocialPlatformTwitter:   {limit: 280, hashtags: true, imageWidth: 1200, imageHeight: 675},
	SocialPlatformLinkedIn:  {limit: 3000, imageWidth: 1200, imageHeight: 627},
}

// SocialPlatformNames lists the platforms in name order
func SocialPlatformNames() []string {
	names := []string{}
	for k := range socialPlatforms {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// SocialPlatformLimit is the maximum length in characters of a post
func SocialPlatformLimit(platform string) int {
	return socialPlatforms[platform].limit
}

var socialTemplates = map[string]*template.Template{
	SocialPostJustListed: template.Must(template.New(SocialPostJustListed).Parse(
		`Just listed! {{.Listing.Title}} in {{.Listing.City}}, {{.Listing.State}}. ` +
			`{{.Listing.Beds}} beds, {{.Listing.Baths}} baths{{if .Listing.SqFt}}, {{.Listing.SqFt}} sq ft{{end}} for {{.Price}}. ` +
			`Contact {{.Agent.DisplayName}}{{if .Agent.Phone}} at {{.Agent.Phone}}{{end}} to arrange a viewing.`)),
	SocialPostOpenHouse: template.Must(template.New(SocialPostOpenHouse).Parse(
		`Open house{{if .OpenHouse}} {{.OpenHouse.Starts.Format "Monday, January 2 from 3:04pm"}} to {{.OpenHouse.Ends.Format "3:04pm"}}{{end}} ` +
			`at {{.Listing.Address}}, {{.Listing.City}}. {{.Listing.Title}}, offered at {{.Price}}. ` +
			`Stop by and say hello to {{.Agent.DisplayName}}!`)),
	SocialPostPriceDrop: template.Must(template.New(SocialPostPriceDrop).Parse(
		`Price improvement! {{.Listing.Title}} in {{.Listing.City}} is now {{.Price}}` +
			`{{if .PreviousPrice}} (was {{.PreviousPrice}}){{end}}. ` +
			`Contact {{.Agent.DisplayName}} for details.`)),
	SocialPostJustSold: template.Must(template.New(SocialPostJustSold).Parse(
		`Just sold! Congratulations to the new owners of {{.Listing.Title}} in {{.Listing.City}}. ` +
			`Thinking of selling? Talk to {{.Agent.DisplayName}}.`)),
}

var hashtagStrip = regexp.MustCompile(`[^A-Za-z0-9]`)

var postTypeHashtags = map[string][]string{
	SocialPostJustListed: {"#JustListed", "#NewListing"},
	SocialPostOpenHouse:  {"#OpenHouse"},
	SocialPostPriceDrop:  {"#PriceReduced"},
	SocialPostJustSold:   {"#JustSold", "#Sold"},
}

// SocialPostType is marketing copy for one platform
type SocialPostType struct {
	ID          int64                `json:"id"`
	ListingID   int64                `json:"listingId"`
	Platform    string               `json:"platform"`
	PostType    string               `json:"postType"`
	Body        string               `json:"body"`
	Hashtags    []string             `json:"hashtags,omitempty"`
	ImageKey    string               `json:"-"`
	ImageURL    string               `json:"imageUrl,omitempty"`
	Compliance  ComplianceResultType `json:"compliance"`
	Created     time.Time            `json:"created"`
	CreatedByID int64                `json:"createdById"`
}

// SocialPostRequest is what an agent asks for
type SocialPostRequest struct {
	ListingID     int64  `json:"listingId"`
	Platform      string `json:"platform"`
	PostType      string `json:"postType"`
	OpenHouseID   int64  `json:"openHouseId"`
	PreviousPrice int64  `json:"previousPrice"`
	WithImage     bool   `json:"withImage"`
}

// Validate returns an error if the request names an unknown platform or
// kind of post
func (m *SocialPostRequest) Validate() (int, error) {
	m.Platform = strings.ToLower(strings.TrimSpace(m.Platform))
	m.PostType = strings.ToLower(strings.TrimSpace(m.PostType))

	if m.ListingID <= 0 {
		return http.StatusBadRequest, fmt.Errorf("You must specify a listing")
	}
	if _, ok := socialPlatforms[m.Platform]; !ok {
		return http.StatusBadRequest,
			e.New(0, "SocialPostRequest.Validate", e.OutOfRange,
				fmt.Sprintf("Platform (%s) must be one of %v", m.Platform, SocialPlatformNames()))
	}
	if _, ok := socialTemplates[m.PostType]; !ok {
		return http.StatusBadRequest,
			e.New(0, "SocialPostRequest.Validate", e.OutOfRange,
				fmt.Sprintf("Post type (%s) must be one of %v", m.PostType, SocialPostTypes))
	}

	return http.StatusOK, nil
}

// hashtagsFor returns the hashtags of a post without duplicates
func hashtagsFor(postType string, listing ListingType) []string {
	tags := []string{}
	seen := map[string]bool{}
	add := func(tag string) {
		k := strings.ToLower(tag)
		if tag == "#" || seen[k] {
			return
		}
		seen[k] = true
		tags = append(tags, tag)
	}

	for _, t := range postTypeHashtags[postType] {
		add(t)
	}
	add("#" + hashtagStrip.ReplaceAllString(listing.City, "") + "RealEstate")
	add("#RealEstate")
	add("#HomeForSale")

	return tags
}

// truncate shortens s to at most limit runes, ending with an ellipsis
func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	if limit <= 1 {
		return string([]rune(s)[:limit])
	}

	r := []rune(s)[:limit-1]
	cut := strings.LastIndexAny(string(r), " \n")
	if cut > len(string(r))/2 {
		return strings.TrimRight(string(r)[:cut], " ,.;:") + "…"
	}
	return string(r) + "…"
}

// ComposeSocialPost writes the text of a post. Hashtags are kept when they
// fit; the body is shortened so that the whole post fits the platform.
func ComposeSocialPost(
	platform string,
	postType string,
	listing ListingType,
	agent AgentType,
	openHouse *OpenHouseType,
	previousPrice int64,
) (
	string,
	[]string,
	error,
) {
	p, ok := socialPlatforms[platform]
	if !ok {
		return "", nil, fmt.Errorf("unknown platform %s", platform)
	}
	t, ok := socialTemplates[postType]
	if !ok {
		return "", nil, fmt.Errorf("unknown post type %s", postType)
	}

	data := struct {
		Listing       ListingType
		Agent         AgentType
		OpenHouse     *OpenHouseType
		Price         string
		PreviousPrice string
	}{
		Listing:   listing,
		Agent:     agent,
		OpenHouse: openHouse,
		Price:     FormatPrice(listing.Price),
	}
	if previousPrice > 0 && previousPrice != listing.Price {
		data.PreviousPrice = FormatPrice(previousPrice)
	}

	var buf bytes.Buffer
	err := t.Execute(&buf, data)
	if err != nil {
		return "", nil, err
	}
	body := strings.Join(strings.Fields(buf.String()), " ")

	var tags []string
	if p.hashtags {
		tags = hashtagsFor(postType, listing)
	}

	suffix := ""
	if len(tags) > 0 {
		suffix = "\n\n" + strings.Join(tags, " ")
	}

	// Drop hashtags rather than the message
	for len(tags) > 0 && utf8.RuneCountInString(suffix) > p.limit/3 {
		tags = tags[:len(tags)-1]
		suffix = ""
		if len(tags) > 0 {
			suffix = "\n\n" + strings.Join(tags, " ")
		}
	}

	body = truncate(body, p.limit-utf8.RuneCountInString(suffix))

	return body + suffix, tags, nil
}

// GenerateSocialPost composes, optionally illustrates, and records a post
func GenerateSocialPost(
	ctx context.Context,
	ac AuthContext,
	req SocialPostRequest,
) (
	SocialPostType,
	int,
	error,
) {
	status, err := req.Validate()
	if err != nil {
		return SocialPostType{}, status, err
	}

	listing, status, err := GetListing(req.ListingID)
	if err != nil {
		return SocialPostType{}, status, err
	}

	agent, status, err := GetAgent(listing.AgentID)
	if err != nil {
		return SocialPostType{}, status, err
	}

	var openHouse *OpenHouseType
	if req.PostType == SocialPostOpenHouse && req.OpenHouseID > 0 {
		oh, status, err := GetOpenHouse(req.OpenHouseID)
		if err != nil {
			return SocialPostType{}, status, err
		}
		if oh.ListingID != listing.ID {
			return SocialPostType{}, http.StatusBadRequest,
				fmt.Errorf("Open house %d is not for listing %d", oh.ID, listing.ID)
		}
		openHouse = &oh
	}

	body, tags, err := ComposeSocialPost(
		req.Platform, req.PostType, listing, agent, openHouse, req.PreviousPrice,
	)
	if err != nil {
		return SocialPostType{}, http.StatusInternalServerError, err
	}

	m := SocialPostType{
		ListingID:   listing.ID,
		Platform:    req.Platform,
		PostType:    req.PostType,
		Body:        body,
		Hashtags:    tags,
		Compliance:  CheckCompliance(body),
		CreatedByID: ac.UserID,
	}

	if req.WithImage && len(listing.Photos) > 0 {
		m.ImageKey, err = makeSocialImage(ctx, req.Platform, listing)
		if err != nil {
			glog.Warningf("makeSocialImage(%s, %d) %+v", req.Platform, listing.ID, err)
		} else {
			m.ImageURL = ObjectURL(m.ImageKey)
		}
	}

	db, err := h.GetConnection()
	if err != nil {
		return SocialPostType{}, http.StatusInternalServerError, err
	}

	err = db.QueryRowContext(ctx, `
INSERT INTO social_posts (
    listing_id, platform, post_type, body, image_key,
    created_by
) VALUES (
    $1, $2, $3, $4, $5,
    $6
) RETURNING social_post_id, created`,
		m.ListingID,
		m.Platform,
		m.PostType,
		m.Body,
		m.ImageKey,

		m.CreatedByID,
	).Scan(
		&m.ID,
		&m.Created,
	)
	if err != nil {
		return SocialPostType{}, http.StatusInternalServerError,
			fmt.Errorf("Error inserting data and returning ID: %+v", err)
	}

	return m, http.StatusOK, nil
}

// makeSocialImage crops the first photo of the listing to the platform's
// preferred shape and stores it
func makeSocialImage(ctx context.Context, platform string, listing ListingType) (string, error) {
	p := socialPlatforms[platform]
	photo := listing.Photos[0]

	content, _, _, err := FetchObject(ctx, photo.FileKey)
	if err != nil {
		return "", err
	}

	img, err := CropImage(content, p.imageWidth, p.imageHeight)
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("social/%d/%s-%dx%d-%s.jpg",
		listing.ID, platform, p.imageWidth, p.imageHeight, photo.FileSHA1)
	_, err = StoreObject(ctx, key, img, ImageJpegMimeType)
	if err != nil {
		return "", err
	}

	return key, nil
}
