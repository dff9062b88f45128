package helpers

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

const (
	// DefaultQueryLimit defines the default number of items per page for APIs
	DefaultQueryLimit int64 = 25

	// MaxQueryLimit is the largest page a client may ask for
	MaxQueryLimit int64 = 250

	// DefaultQueryOffset defines the default offset for API responses
	DefaultQueryOffset int64 = 0
)

// LinkArrayType is a collection of links
type LinkArrayType struct {
	Links []LinkType `json:"links"`
}

// LinkType is a link
type LinkType struct {
	Rel   string `json:"rel,omitempty"` // REST
	Href  string `json:"href"`
	Title string `json:"title,omitempty"`
	Text  string `json:"text,omitempty"` // HTML
}

// GetLimitAndOffset returns the Limit and Offset for a given request querystring
func GetLimitAndOffset(query url.Values) (int64, int64, int, error) {
	limit := DefaultQueryLimit
	if query.Get("limit") != "" {
		inLimit, err := strconv.ParseInt(query.Get("limit"), 10, 64)
		if err != nil {
			return 0, 0, http.StatusBadRequest,
				fmt.Errorf("limit (%s) is not a number", query.Get("limit"))
		}

		if inLimit < 1 {
			return 0, 0, http.StatusBadRequest,
				fmt.Errorf("limit (%d) cannot be zero or negative", inLimit)
		}

		if inLimit%5 != 0 {
			return 0, 0, http.StatusBadRequest,
				fmt.Errorf("limit (%d) must be a multiple of 5", inLimit)
		}

		if inLimit > MaxQueryLimit {
			return 0, 0, http.StatusBadRequest,
				fmt.Errorf("limit (%d) cannot exceed %d", inLimit, MaxQueryLimit)
		}

		limit = inLimit
	}

	offset := DefaultQueryOffset
	if query.Get("offset") != "" {
		inOffset, err := strconv.ParseInt(query.Get("offset"), 10, 64)
		if err != nil {
			return 0, 0, http.StatusBadRequest,
				fmt.Errorf("offset (%s) is not a number", query.Get("offset"))
		}

		if inOffset < 0 {
			return 0, 0, http.StatusBadRequest,
				fmt.Errorf("offset (%d) cannot be negative", inOffset)
		}

		if inOffset%limit != 0 {
			return 0, 0, http.StatusBadRequest,
				fmt.Errorf(
					"offset (%d) must be a multiple of limit (%d) or zero",
					inOffset,
					limit,
				)
		}

		offset = inOffset
	}

	return limit, offset, http.StatusOK, nil
}

// GetStatusFilter returns the status filter for a request query, which must
// be one of the allowed values if given
func GetStatusFilter(query url.Values, allowed []string) (string, int, error) {
	status := query.Get("status")
	if status == "" {
		return "", http.StatusOK, nil
	}

	for _, a := range allowed {
		if a == status {
			return status, http.StatusOK, nil
		}
	}

	return "", http.StatusBadRequest,
		fmt.Errorf("status (%s) is not one of %v", status, allowed)
}

// GetInt64Param returns a positive int64 from the request query, or zero if
// it was not supplied
func GetInt64Param(query url.Values, name string) (int64, int, error) {
	if query.Get(name) == "" {
		return 0, http.StatusOK, nil
	}

	i, err := strconv.ParseInt(query.Get(name), 10, 64)
	if err != nil {
		return 0, http.StatusBadRequest,
			fmt.Errorf("%s (%s) is not a number", name, query.Get(name))
	}

	if i < 0 {
		return 0, http.StatusBadRequest,
			fmt.Errorf("%s (%d) cannot be negative", name, i)
	}

	return i, http.StatusOK, nil
}

// GetPageCount returns the number of pages for a given total and items per
// page
func GetPageCount(total int64, limit int64) int64 {
	if limit == 0 {
		limit = DefaultQueryLimit
	}

	pages := total / limit

	if total%limit > 0 {
		pages++
	}

	return pages
}

// GetMaxOffset returns the maximum possible offset for a given number of
// pages and limit per page
func GetMaxOffset(total int64, limit int64) int64 {
	if total <= 0 {
		return 0
	}
	return ((total - 1) / limit) * limit
}

func pageLink(requestURL url.URL, rel string, offset int64, limit int64) LinkType {
	q := requestURL.Query()
	if offset > 0 {
		q.Set("offset", strconv.FormatInt(offset, 10))
	} else {
		q.Del("offset")
	}
	requestURL.RawQuery = q.Encode()

	return LinkType{
		Rel:   rel,
		Href:  requestURL.String(),
		Title: getPageNumberAsTitle(offset, limit),
	}
}

// GetLinkToThisPage returns a link to the current page
func GetLinkToThisPage(
	requestURL url.URL,
	offset int64,
	limit int64,
	total int64,
) url.URL {
	if offset == 0 {
		q := requestURL.Query()
		q.Del("offset")
		requestURL.RawQuery = q.Encode()
	}

	return requestURL
}

func getPageNumberAsTitle(offset int64, limit int64) string {
	if offset == DefaultQueryOffset {
		return "1"
	}
	return strconv.FormatInt(offset/limit+1, 10)
}

// GetArrayLinks returns a collection of valid links for navigating a
// collection of items
func GetArrayLinks(
	requestURL url.URL,
	offset int64,
	limit int64,
	total int64,
) []LinkType {
	if limit == 0 {
		limit = DefaultQueryLimit
	}

	maxOffset := GetMaxOffset(total, limit)

	var arrayLinks []LinkType

	if offset > limit {
		arrayLinks = append(arrayLinks, pageLink(requestURL, "first", 0, limit))
	}

	if offset > 0 {
		prev := offset - limit
		if prev < 0 {
			prev = 0
		}
		arrayLinks = append(arrayLinks, pageLink(requestURL, "prev", prev, limit))
	}

	arrayLinks = append(arrayLinks, pageLink(requestURL, "self", offset, limit))

	if offset < maxOffset {
		arrayLinks = append(arrayLinks, pageLink(requestURL, "next", offset+limit, limit))
	}

	if offset+limit < maxOffset {
		arrayLinks = append(arrayLinks, pageLink(requestURL, "last", maxOffset, limit))
	}

	return arrayLinks
}

// GetLink returns a link to an item
func GetLink(rel string, title string, itemType string, itemID int64) LinkType {
	var href string
	if itemID > 0 {
		href = fmt.Sprintf("%s/%d", ItemTypesToAPIItem[itemType], itemID)
	} else {
		href = ItemTypesToAPIItem[itemType]
	}

	return LinkType{Rel: rel, Href: href, Title: title}
}
