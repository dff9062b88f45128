package controller

import (
	"fmt"
	"net/http"
	"time"

	"github.com/happyplace/dashboard/models"
)

// NonceType is a token for one AJAX action
type NonceType struct {
	Action string `json:"action"`
	Nonce  string `json:"nonce"`
}

// NonceHandler issues nonces for AJAX actions. Guests receive nonces for
// the actions they may call.
func NonceHandler(w http.ResponseWriter, r *http.Request) {
	c, status, err := models.MakeContext(r, w)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	switch c.GetHTTPMethod() {
	case "OPTIONS":
		c.RespondWithOptions([]string{"OPTIONS", "GET"})
		return
	case "GET":
	default:
		c.RespondWithStatus(http.StatusMethodNotAllowed)
		return
	}

	action := c.Request.URL.Query().Get("action")
	a, ok := models.GetAjaxAction(action)
	if !ok {
		c.RespondWithErrorMessage(
			fmt.Sprintf("Unknown action (%s)", action),
			http.StatusBadRequest,
		)
		return
	}
	if c.IsGuest() && !a.NoPriv {
		c.RespondWithErrorMessage("You must be signed in", http.StatusUnauthorized)
		return
	}

	c.RespondWithData(NonceType{
		Action: a.Name,
		Nonce:  models.CreateNonce(a.Name, c.Auth.UserID, time.Now()),
	})
}
