package models

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/http"
	"sort"
	"time"

	"github.com/golang/glog"

	e "github.com/happyplace/dashboard/errors"
	h "github.com/happyplace/dashboard/helpers"
)

// Flyer templates
const (
	FlyerTemplateClassic string = "classic"
	FlyerTemplateModern  string = "modern"
	FlyerTemplateLuxury  string = "luxury"
)

// FlyerType is a printable page advertising a listing
type FlyerType struct {
	ID          int64                `json:"id"`
	ListingID   int64                `json:"listingId"`
	Template    string               `json:"template"`
	FileKey     string               `json:"-"`
	URL         string               `json:"url"`
	HeroURL     string               `json:"heroUrl,omitempty"`
	Compliance  ComplianceResultType `json:"compliance"`
	Created     time.Time            `json:"created"`
	CreatedByID int64                `json:"createdById"`
}

// flyerData is what every flyer template is rendered with
type flyerData struct {
	Listing     ListingType
	Agent       AgentType
	Price       string
	Description template.HTML
	HeroURL     string
	Generated   time.Time
}

const flyerHead = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Listing.Title}}</title>
<style>{{template "style"}}</style>
</head>`

const flyerFacts = `<ul class="facts">
<li>{{.Listing.Beds}} beds</li>
<li>{{.Listing.Baths}} baths</li>
{{if .Listing.SqFt}}<li>{{.Listing.SqFt}} sq ft</li>{{end}}
</ul>
{{if .Listing.Features}}<ul class="features">{{range .Listing.Features}}<li>{{.}}</li>{{end}}</ul>{{end}}`

const flyerAgent = `<footer class="agent">
{{if .Agent.PhotoURL}}<img src="{{.Agent.PhotoURL}}" alt="">{{end}}
<p class="name">{{.Agent.DisplayName}}</p>
{{if .Agent.Office}}<p>{{.Agent.Office}}</p>{{end}}
{{if .Agent.Phone}}<p>{{.Agent.Phone}}</p>{{end}}
<p>{{.Agent.Email}}</p>
{{if .Agent.LicenseNumber}}<p class="license">License {{.Agent.LicenseNumber}}</p>{{end}}
</footer>`

func flyerTemplate(name string, style string, body string) *template.Template {
	t := template.Must(template.New(name).Parse(flyerHead + body))
	template.Must(t.New("style").Parse(style))
	template.Must(t.New("facts").Parse(flyerFacts))
	template.Must(t.New("agent").Parse(flyerAgent))
	return t
}

var flyerTemplates = map[string]*template.Template{
	FlyerTemplateClassic: flyerTemplate(FlyerTemplateClassic,
		`body{font-family:Georgia,serif;margin:0;color:#222}header{text-align:center}.price{font-size:2em}`,
		`<body class="classic">
<header>{{if .HeroURL}}<img class="hero" src="{{.HeroURL}}" alt="">{{end}}
<h1>{{.Listing.Title}}</h1>
<p class="address">{{.Listing.Address}}, {{.Listing.City}}, {{.Listing.State}} {{.Listing.Zip}}</p>
<p class="price">{{.Price}}</p></header>
{{template "facts" .}}
<div class="description">{{.Description}}</div>
{{template "agent" .}}
</body></html>`),
	FlyerTemplateModern: flyerTemplate(FlyerTemplateModern,
		`body{font-family:Helvetica,Arial,sans-serif;margin:0}.hero{width:100%}.band{background:#111;color:#fff;padding:1em}`,
		`<body class="modern">
{{if .HeroURL}}<img class="hero" src="{{.HeroURL}}" alt="">{{end}}
<div class="band"><h1>{{.Listing.Title}}</h1><p>{{.Price}} | {{.Listing.City}}, {{.Listing.State}}</p></div>
{{template "facts" .}}
<div class="description">{{.Description}}</div>
{{template "agent" .}}
</body></html>`),
	FlyerTemplateLuxury: flyerTemplate(FlyerTemplateLuxury,
		`body{font-family:"Playfair Display",serif;background:#0d0d0d;color:#e8d9b0;margin:0}h1{letter-spacing:.1em;text-transform:uppercase}`,
		`<body class="luxury">
{{if .HeroURL}}<img class="hero" src="{{.HeroURL}}" alt="">{{end}}
<h1>{{.Listing.Title}}</h1>
<p class="address">{{.Listing.Address}}, {{.Listing.City}}</p>
<p class="price">Offered at {{.Price}}</p>
<div class="description">{{.Description}}</div>
{{template "facts" .}}
{{template "agent" .}}
</body></html>`),
}

// FlyerTemplateNames lists the flyer templates in name order
func FlyerTemplateNames() []string {
	names := []string{}
	for k := range flyerTemplates {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// RenderFlyer renders a listing into a flyer template
func RenderFlyer(
	templateName string,
	listing ListingType,
	agent AgentType,
	heroURL string,
) (
	[]byte,
	error,
) {
	t, ok := flyerTemplates[templateName]
	if !ok {
		return nil, e.New(0, "RenderFlyer", e.OutOfRange,
			fmt.Sprintf("Template (%s) must be one of %v", templateName, FlyerTemplateNames()))
	}

	var buf bytes.Buffer
	err := t.Execute(&buf, flyerData{
		Listing: listing,
		Agent:   agent,
		Price:   FormatPrice(listing.Price),
		// Sanitised when the listing was saved
		Description: template.HTML(listing.DescriptionHTML),
		HeroURL:     heroURL,
		Generated:   time.Now(),
	})
	if err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// makeHeroImage crops the first photo of a listing to the flyer hero size
// and stores it, returning its URL. Listings without photos have no hero.
func makeHeroImage(ctx context.Context, listing ListingType) (string, error) {
	if len(listing.Photos) == 0 {
		return "", nil
	}
	photo := listing.Photos[0]

	content, _, _, err := FetchObject(ctx, photo.FileKey)
	if err != nil {
		return "", err
	}

	hero, err := CropImage(content, HeroWidth, HeroHeight)
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("flyers/%d/hero-%s.jpg", listing.ID, photo.FileSHA1)
	_, err = StoreObject(ctx, key, hero, ImageJpegMimeType)
	if err != nil {
		return "", err
	}

	return ObjectURL(key), nil
}

// GenerateFlyer renders, stores and records a flyer for a listing
func GenerateFlyer(
	ctx context.Context,
	ac AuthContext,
	listingID int64,
	templateName string,
) (
	FlyerType,
	int,
	error,
) {
	if _, ok := flyerTemplates[templateName]; !ok {
		return FlyerType{}, http.StatusBadRequest,
			e.New(ac.UserID, "GenerateFlyer", e.OutOfRange,
				fmt.Sprintf("Template (%s) must be one of %v", templateName, FlyerTemplateNames()))
	}

	listing, status, err := GetListing(listingID)
	if err != nil {
		return FlyerType{}, status, err
	}

	agent, status, err := GetAgent(listing.AgentID)
	if err != nil {
		return FlyerType{}, status, err
	}

	heroURL, err := makeHeroImage(ctx, listing)
	if err != nil {
		glog.Warningf("makeHeroImage(%d) %+v", listing.ID, err)
	}

	content, err := RenderFlyer(templateName, listing, agent, heroURL)
	if err != nil {
		glog.Errorf("RenderFlyer(%s, %d) %+v", templateName, listing.ID, err)
		return FlyerType{}, http.StatusInternalServerError, err
	}

	sha1, err := h.SHA1(content)
	if err != nil {
		return FlyerType{}, http.StatusInternalServerError, err
	}

	m := FlyerType{
		ListingID:   listing.ID,
		Template:    templateName,
		FileKey:     fmt.Sprintf("flyers/%d/%s-%s.html", listing.ID, templateName, sha1),
		HeroURL:     heroURL,
		Compliance:  CheckCompliance(listing.Title, listing.Description),
		CreatedByID: ac.UserID,
	}

	status, err = StoreObject(ctx, m.FileKey, content, "text/html; charset=utf-8")
	if err != nil {
		return FlyerType{}, status, err
	}
	m.URL = ObjectURL(m.FileKey)

	db, err := h.GetConnection()
	if err != nil {
		return FlyerType{}, http.StatusInternalServerError, err
	}

	err = db.QueryRowContext(ctx, `
INSERT INTO flyers (
    listing_id, template, file_key, created_by
) VALUES (
    $1, $2, $3, $4
) RETURNING flyer_id, created`,
		m.ListingID,
		m.Template,
		m.FileKey,
		m.CreatedByID,
	).Scan(
		&m.ID,
		&m.Created,
	)
	if err != nil {
		return FlyerType{}, http.StatusInternalServerError,
			fmt.Errorf("Error inserting data and returning ID: %+v", err)
	}

	return m, http.StatusOK, nil
}
