package controller

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/happyplace/dashboard/models"
)

// FileHandler serves objects from the object store. Keys carry the SHA-1 of
// the content so a key never changes meaning and responses are immutable.
func FileHandler(w http.ResponseWriter, r *http.Request) {
	c := models.MakeEmptyContext(r, w)

	switch c.GetHTTPMethod() {
	case "OPTIONS":
		c.RespondWithOptions([]string{"OPTIONS", "HEAD", "GET"})
		return
	case "HEAD", "GET":
	default:
		c.RespondWithStatus(http.StatusMethodNotAllowed)
		return
	}

	key := c.RouteVars["key"]
	if key == "" || strings.Contains(key, "..") {
		c.RespondWithErrorMessage(
			fmt.Sprintf("The supplied file key is not valid: %s", key),
			http.StatusBadRequest,
		)
		return
	}

	content, contentType, status, err := models.FetchObject(c.Request.Context(), key)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	oneYear := time.Hour * 24 * 365
	c.ResponseWriter.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d, immutable", oneYear/time.Second))
	c.ResponseWriter.Header().Set("Expires", time.Now().Add(oneYear).Format(time.RFC1123))
	c.ResponseWriter.Header().Set("Content-Type", contentType)
	c.ResponseWriter.Header().Set("X-Content-Type-Options", "nosniff")
	c.WriteResponse(content, http.StatusOK)
}
