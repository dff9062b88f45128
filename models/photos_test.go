package models

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	e "github.com/happyplace/dashboard/errors"
)

func testPNG(t *testing.T, width int, height int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		img.Set(x, height/2, color.RGBA{R: 200, A: 255})
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func withMemoryStore(t *testing.T) *MemoryStore {
	prev := storage
	s := NewMemoryStore()
	SetStorage(s)
	t.Cleanup(func() { storage = prev })
	return s
}

func TestProcessPhotoScalesToJPEG(t *testing.T) {
	m := PhotoType{ListingID: 1, Content: testPNG(t, 3000, 1500)}

	status, err := m.ProcessPhoto()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)

	assert.Equal(t, ImageJpegMimeType, m.MimeType)
	assert.Equal(t, int64(PhotoMaxWidth), m.Width)
	assert.Equal(t, int64(1024), m.Height)
	assert.Len(t, m.FileSHA1, 40)

	_, format, err := image.Decode(bytes.NewReader(m.Content))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
}

func TestProcessPhotoRejects(t *testing.T) {
	m := PhotoType{}
	status, err := m.ProcessPhoto()
	assert.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, status)

	m = PhotoType{Content: []byte("GIF89a but not really")}
	status, err = m.ProcessPhoto()
	assert.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, status)

	m = PhotoType{Content: testPNG(t, 320, 200)}
	status, err = m.ProcessPhoto()
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, e.InvalidDimensions, e.Code(err))

	m = PhotoType{Content: make([]byte, MaxPhotoSize+1)}
	status, err = m.ProcessPhoto()
	assert.Equal(t, http.StatusRequestEntityTooLarge, status)
	assert.Equal(t, e.FileTooLarge, e.Code(err))
}

func TestCropImage(t *testing.T) {
	out, err := CropImage(testPNG(t, 1000, 1000), HeroWidth, HeroHeight)
	require.NoError(t, err)

	img, err := jpeg.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, HeroWidth, img.Bounds().Dx())
	assert.Equal(t, HeroHeight, img.Bounds().Dy())

	_, err = CropImage([]byte("nope"), 10, 10)
	assert.Error(t, err)
}

func TestObjectStore(t *testing.T) {
	prev := storage
	storage = nil
	_, err := StoreObject(context.Background(), "a", []byte("x"), "text/plain")
	assert.Equal(t, e.StorageUnavailable, e.Code(err))
	storage = prev

	s := withMemoryStore(t)

	status, err := StoreObject(context.Background(), "flyers/1/a.html", []byte("<p>hi</p>"), "text/html")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, s.Len())

	content, ct, status, err := FetchObject(context.Background(), "flyers/1/a.html")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "text/html", ct)
	assert.Equal(t, "<p>hi</p>", string(content))

	_, _, status, err = FetchObject(context.Background(), "flyers/1/missing.html")
	assert.Error(t, err)
	assert.Equal(t, http.StatusNotFound, status)

	assert.Equal(t, "/api/v1/files/flyers/1/a.html", ObjectURL("/flyers/1/a.html"))
}

func TestRenderFlyer(t *testing.T) {
	listing := testListing()
	listing.Features = []string{"Pool", "Garage"}
	listing.DescriptionHTML = "<p>Light <strong>filled</strong></p>"
	agent := testAgent()
	agent.LicenseNumber = "DRE 0123"

	for _, name := range FlyerTemplateNames() {
		out, err := RenderFlyer(name, listing, agent, "/api/v1/files/hero.jpg")
		require.NoError(t, err, name)

		html := string(out)
		assert.True(t, strings.HasPrefix(html, "<!DOCTYPE html>"), name)
		assert.Contains(t, html, `<body class="`+name+`">`)
		assert.Contains(t, html, "$1,250,000")
		assert.Contains(t, html, "<strong>filled</strong>")
		assert.Contains(t, html, "<li>Pool</li>")
		assert.Contains(t, html, "License DRE 0123")
		assert.Contains(t, html, `src="/api/v1/files/hero.jpg"`)
	}

	listing.Title = `<script>alert("x")</script>`
	out, err := RenderFlyer(FlyerTemplateClassic, listing, agent, "")
	require.NoError(t, err)
	assert.NotContains(t, string(out), "<script>")
	assert.NotContains(t, string(out), `class="hero"`)

	_, err = RenderFlyer("brutalist", listing, agent, "")
	assert.Equal(t, e.OutOfRange, e.Code(err))
}

func TestMakeHeroImage(t *testing.T) {
	s := withMemoryStore(t)

	url, err := makeHeroImage(context.Background(), ListingType{ID: 1})
	require.NoError(t, err)
	assert.Empty(t, url)

	require.NoError(t, s.Put(context.Background(), "listings/1/photos/abc.jpg", testPNG(t, 1600, 900), ImagePngMimeType))

	listing := ListingType{ID: 1, Photos: []PhotoType{{FileKey: "listings/1/photos/abc.jpg", FileSHA1: "abc"}}}
	url, err = makeHeroImage(context.Background(), listing)
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/files/flyers/1/hero-abc.jpg", url)

	content, ct, _, err := FetchObject(context.Background(), "flyers/1/hero-abc.jpg")
	require.NoError(t, err)
	assert.Equal(t, ImageJpegMimeType, ct)
	assert.NotEmpty(t, content)
}
