package models

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"net/http"
	"time"

	// Registers the GIF and PNG decoders with image.Decode
	_ "image/gif"
	_ "image/png"

	"github.com/disintegration/imaging"
	"github.com/golang/glog"
	"github.com/microcosm-cc/exifutil"
	"github.com/rwcarlsen/goexif/exif"

	c "github.com/happyplace/dashboard/cache"
	e "github.com/happyplace/dashboard/errors"
	h "github.com/happyplace/dashboard/helpers"
)

const (
	// MaxPhotoSize is the maximum size (in bytes) of an uploaded photo
	MaxPhotoSize int = 1024 * 1024 * 15

	// PhotoMaxWidth is the width photos are scaled down to
	PhotoMaxWidth int = 2048

	// PhotoMinWidth is the smallest photo accepted
	PhotoMinWidth int = 640

	// ImageJpegMimeType is the mime type for JPG images
	ImageJpegMimeType string = "image/jpeg"

	// ImagePngMimeType is the mime type for PNG images
	ImagePngMimeType string = "image/png"

	// ImageGifMimeType is the mime type for GIF images
	ImageGifMimeType string = "image/gif"

	// HeroWidth and HeroHeight are the dimensions of a flyer hero image
	HeroWidth  int = 1200
	HeroHeight int = 800
)

// PhotoType is a photo of a listing
type PhotoType struct {
	ID          int64     `json:"id"`
	ListingID   int64     `json:"listingId"`
	FileKey     string    `json:"-"`
	FileSHA1    string    `json:"sha1"`
	MimeType    string    `json:"mimeType"`
	Width       int64     `json:"width"`
	Height      int64     `json:"height"`
	SortOrder   int64     `json:"sortOrder"`
	URL         string    `json:"url"`
	Created     time.Time `json:"created"`
	CreatedByID int64     `json:"createdById"`

	Content []byte `json:"-"`
}

// ProcessPhoto decodes an upload, applies its EXIF orientation and scales it
// to PhotoMaxWidth. The result is always a JPEG.
func (m *PhotoType) ProcessPhoto() (int, error) {
	if len(m.Content) == 0 {
		return http.StatusBadRequest, fmt.Errorf("No photo was uploaded")
	}
	if len(m.Content) > MaxPhotoSize {
		return http.StatusRequestEntityTooLarge,
			e.New(0, "PhotoType.ProcessPhoto", e.FileTooLarge,
				fmt.Sprintf("Photos must be below %dMB in size", MaxPhotoSize/1024/1024))
	}

	img, format, err := image.Decode(bytes.NewReader(m.Content))
	if err != nil {
		glog.Warningf("image.Decode() %+v", err)
		return http.StatusBadRequest,
			fmt.Errorf("The file is not a GIF, JPEG or PNG image")
	}

	if format == "jpeg" {
		img = applyExifOrientation(m.Content, img)
	}

	if img.Bounds().Dx() < PhotoMinWidth {
		return http.StatusBadRequest,
			e.New(0, "PhotoType.ProcessPhoto", e.InvalidDimensions,
				fmt.Sprintf("Photos must be at least %dpx wide", PhotoMinWidth))
	}

	if img.Bounds().Dx() > PhotoMaxWidth {
		img = imaging.Resize(img, PhotoMaxWidth, 0, imaging.Lanczos)
	}

	content, err := encodeJPEG(img)
	if err != nil {
		return http.StatusInternalServerError, err
	}

	sha1, err := h.SHA1(content)
	if err != nil {
		return http.StatusInternalServerError, fmt.Errorf("Couldn't generate SHA-1")
	}

	m.Content = content
	m.FileSHA1 = sha1
	m.MimeType = ImageJpegMimeType
	m.Width = int64(img.Bounds().Dx())
	m.Height = int64(img.Bounds().Dy())

	return http.StatusOK, nil
}

// applyExifOrientation rotates a JPEG so that it is upright. Photos without
// readable EXIF data are returned unchanged.
func applyExifOrientation(content []byte, img image.Image) image.Image {
	ex, err := exif.Decode(bytes.NewReader(content))
	if err != nil {
		return img
	}

	tag, err := ex.Get(exif.Orientation)
	if err != nil {
		return img
	}

	orientation, err := tag.Int(0)
	if err != nil {
		return img
	}

	angle, flipMode, _ := exifutil.ProcessOrientation(int64(orientation))
	if angle != 0 {
		img = exifutil.Rotate(img, angle)
	}
	if flipMode != 0 {
		img = exifutil.Flip(img, flipMode)
	}

	return img
}

func encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85})
	if err != nil {
		glog.Errorf("jpeg.Encode() %+v", err)
		return nil, err
	}
	return buf.Bytes(), nil
}

// CropImage fills the given dimensions with the centre of the image
func CropImage(content []byte, width int, height int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}

	return encodeJPEG(imaging.Fill(img, width, height, imaging.Center, imaging.Lanczos))
}

func photoKey(listingID int64, sha1 string) string {
	return fmt.Sprintf("listings/%d/photos/%s.jpg", listingID, sha1)
}

// Insert processes and stores a photo and records it against the listing
func (m *PhotoType) Insert(ctx context.Context, ac AuthContext) (int, error) {
	status, err := m.ProcessPhoto()
	if err != nil {
		return status, err
	}

	m.FileKey = photoKey(m.ListingID, m.FileSHA1)
	status, err = StoreObject(ctx, m.FileKey, m.Content, m.MimeType)
	if err != nil {
		return status, err
	}

	m.CreatedByID = ac.UserID

	tx, err := h.GetTransaction()
	if err != nil {
		return http.StatusInternalServerError, err
	}
	defer tx.Rollback()

	err = tx.QueryRow(`
INSERT INTO listing_photos (
    listing_id, file_key, file_sha1, mime_type, width,
    height, sort_order, created_by
) VALUES (
    $1, $2, $3, $4, $5,
    $6, (SELECT COUNT(*) FROM listing_photos WHERE listing_id = $1), $7
) RETURNING photo_id, sort_order, created`,
		m.ListingID,
		m.FileKey,
		m.FileSHA1,
		m.MimeType,
		m.Width,

		m.Height,
		m.CreatedByID,
	).Scan(
		&m.ID,
		&m.SortOrder,
		&m.Created,
	)
	if err != nil {
		return http.StatusInternalServerError,
			fmt.Errorf("Error inserting data and returning ID: %+v", err)
	}

	err = tx.Commit()
	if err != nil {
		return http.StatusInternalServerError,
			fmt.Errorf("Transaction failed: %v", err.Error())
	}

	m.URL = ObjectURL(m.FileKey)
	m.Content = nil

	PurgeCache(h.ItemTypes[h.ItemTypeListing], m.ListingID)

	return http.StatusOK, nil
}

// Delete removes the photo from the listing and the object store
func (m *PhotoType) Delete(ctx context.Context) (int, error) {
	db, err := h.GetConnection()
	if err != nil {
		return http.StatusInternalServerError, err
	}

	_, err = db.Exec(`
DELETE FROM listing_photos
 WHERE photo_id = $1
   AND listing_id = $2`,
		m.ID,
		m.ListingID,
	)
	if err != nil {
		return http.StatusInternalServerError,
			fmt.Errorf("Delete failed: %v", err.Error())
	}

	if s, err := GetStorage(); err == nil {
		err = s.Remove(ctx, m.FileKey)
		if err != nil {
			glog.Warningf("storage.Remove(%s) %+v", m.FileKey, err)
		}
	}

	PurgeCache(h.ItemTypes[h.ItemTypeListing], m.ListingID)

	return http.StatusOK, nil
}

// GetPhotos returns the photos of a listing in display order
func GetPhotos(listingID int64) ([]PhotoType, int, error) {
	mcKey := fmt.Sprintf(mcListingKeys[c.CachePhotos], listingID)
	ems := []PhotoType{}
	if c.Get(mcKey, &ems) {
		return ems, http.StatusOK, nil
	}

	db, err := h.GetConnection()
	if err != nil {
		return []PhotoType{}, http.StatusInternalServerError, err
	}

	rows, err := db.Query(`
SELECT photo_id
      ,listing_id
      ,file_key
      ,file_sha1
      ,mime_type
      ,width
      ,height
      ,sort_order
      ,created
      ,created_by
  FROM listing_photos
 WHERE listing_id = $1
 ORDER BY sort_order, photo_id`,
		listingID,
	)
	if err != nil {
		return []PhotoType{}, http.StatusInternalServerError,
			fmt.Errorf("Database query failed: %v", err.Error())
	}
	defer rows.Close()

	for rows.Next() {
		var m PhotoType
		err = rows.Scan(
			&m.ID,
			&m.ListingID,
			&m.FileKey,
			&m.FileSHA1,
			&m.MimeType,
			&m.Width,
			&m.Height,
			&m.SortOrder,
			&m.Created,
			&m.CreatedByID,
		)
		if err != nil {
			return []PhotoType{}, http.StatusInternalServerError,
				fmt.Errorf("Row parsing error: %v", err.Error())
		}
		m.URL = ObjectURL(m.FileKey)
		ems = append(ems, m)
	}
	err = rows.Err()
	if err != nil {
		return []PhotoType{}, http.StatusInternalServerError,
			fmt.Errorf("Error fetching rows: %v", err.Error())
	}

	c.Set(mcKey, ems, mcTTL)

	return ems, http.StatusOK, nil
}

// GetPhoto returns a single photo of a listing
func GetPhoto(listingID int64, photoID int64) (PhotoType, int, error) {
	photos, status, err := GetPhotos(listingID)
	if err != nil {
		return PhotoType{}, status, err
	}

	for _, p := range photos {
		if p.ID == photoID {
			return p, http.StatusOK, nil
		}
	}

	return PhotoType{}, http.StatusNotFound,
		fmt.Errorf("Photo %d not found on listing %d", photoID, listingID)
}
