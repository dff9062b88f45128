package controller

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang/glog"

	e "github.com/happyplace/dashboard/errors"
	"github.com/happyplace/dashboard/models"
)

// maxAjaxBody caps a request body that is not a file upload
const maxAjaxBody int64 = 1 << 20

// AjaxHandler is the single endpoint the dashboard front end posts actions to
func AjaxHandler(w http.ResponseWriter, r *http.Request) {
	c, status, err := models.MakeContext(r, w)
	if err != nil {
		respondAjaxError(c, nil, err, status)
		return
	}

	switch c.GetHTTPMethod() {
	case "OPTIONS":
		c.RespondWithOptions([]string{"OPTIONS", "POST"})
		return
	case "POST":
		req, status, err := parseAjaxRequest(c)
		if err != nil {
			respondAjaxError(c, nil, err, status)
			return
		}

		data, status, err := models.DispatchAjax(c, req)
		if err != nil {
			respondAjaxError(c, data, err, status)
			return
		}

		respondAjax(c, models.AjaxResponse{Success: true, Data: data}, http.StatusOK)
	default:
		c.RespondWithStatus(http.StatusMethodNotAllowed)
		return
	}
}

// parseAjaxRequest reads the action, nonce and parameters from a form or
// JSON body. Every parameter is flattened to a string as a form would send
// it.
func parseAjaxRequest(c *models.Context) (models.AjaxRequest, int, error) {
	req := models.AjaxRequest{Params: map[string]string{}}

	ct, _, _ := mime.ParseMediaType(c.Request.Header.Get("Content-Type"))

	switch ct {
	case "application/json":
		raw := map[string]interface{}{}
		err := json.NewDecoder(io.LimitReader(c.Request.Body, maxAjaxBody)).Decode(&raw)
		if err != nil && err != io.EOF {
			return req, http.StatusBadRequest,
				e.New(c.Auth.UserID, "parseAjaxRequest", e.InvalidContent,
					fmt.Sprintf("The post data is invalid: %v", err.Error()))
		}
		for k, v := range raw {
			req.Params[k] = ajaxParamString(v)
		}

	default:
		c.Request.Body = http.MaxBytesReader(c.ResponseWriter, c.Request.Body, maxAjaxBody)

		var err error
		if ct == "multipart/form-data" {
			err = c.Request.ParseMultipartForm(maxAjaxBody)
		} else {
			err = c.Request.ParseForm()
		}
		if err != nil {
			return req, http.StatusBadRequest,
				e.New(c.Auth.UserID, "parseAjaxRequest", e.InvalidContent,
					fmt.Sprintf("The post data is invalid: %v", err.Error()))
		}
		for k, v := range c.Request.Form {
			if len(v) > 0 {
				req.Params[k] = v[0]
			}
		}
	}

	req.Action = strings.TrimSpace(req.Params["action"])
	req.Nonce = strings.TrimSpace(req.Params["nonce"])
	if req.Nonce == "" {
		req.Nonce = c.Request.Header.Get("X-HPH-Nonce")
	}
	delete(req.Params, "action")
	delete(req.Params, "nonce")

	if req.Action == "" {
		return req, http.StatusBadRequest,
			e.New(c.Auth.UserID, "parseAjaxRequest", e.UnknownAction, "No action was given")
	}

	return req, http.StatusOK, nil
}

func ajaxParamString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// ajaxErrorType is the data of a failed AJAX response
type ajaxErrorType struct {
	Message string      `json:"message"`
	Code    e.ErrCode   `json:"code,omitempty"`
	Errors  interface{} `json:"errors,omitempty"`
}

func respondAjaxError(c *models.Context, data interface{}, err error, status int) {
	if status < http.StatusBadRequest {
		status = http.StatusInternalServerError
	}

	message := err.Error()
	if status >= http.StatusInternalServerError {
		glog.Errorf("ajax: %+v", err)
		message = http.StatusText(status)
	}

	respondAjax(
		c,
		models.AjaxResponse{
			Success: false,
			Data: ajaxErrorType{
				Message: message,
				Code:    e.Code(err),
				Errors:  data,
			},
		},
		status,
	)
}

func respondAjax(c *models.Context, resp models.AjaxResponse, status int) {
	output, err := json.Marshal(resp)
	if err != nil {
		c.RespondWithErrorMessage(
			fmt.Sprintf("Could not format response: %v", err.Error()),
			http.StatusInternalServerError,
		)
		return
	}

	c.ResponseWriter.Header().Set("Content-Type", "application/json; charset=utf-8")
	c.ResponseWriter.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	c.WriteResponse(output, status)
}
