package models

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/golang/glog"
	"github.com/gorilla/mux"

	"github.com/happyplace/dashboard/cache"
	e "github.com/happyplace/dashboard/errors"
)

// Context is everything a handler needs to know about the request it is
// answering
type Context struct {
	Request        *http.Request
	ResponseWriter http.ResponseWriter
	Auth           AuthType
	RouteVars      map[string]string
	StartTime      time.Time
	IP             net.IP

	// Memo holds the values computed during this request
	Memo *cache.Memo
}

// AuthType describes who made the request
type AuthType struct {
	UserID      int64
	AgentID     int64
	Role        string
	Method      string
	AccessToken AccessTokenType
}

// StandardResponse is the envelope for every REST response
type StandardResponse struct {
	Context string      `json:"context"`
	Status  int         `json:"status"`
	Data    interface{} `json:"data"`
	Errors  []string    `json:"error"`
}

// MakeContext creates the context for a request and authenticates the caller
func MakeContext(
	request *http.Request,
	responseWriter http.ResponseWriter,
) (
	*Context,
	int,
	error,
) {
	c := MakeEmptyContext(request, responseWriter)

	status, err := c.authenticate()
	if err != nil {
		c.Auth = AuthType{UserID: -1, Role: RoleGuest}
		return c, status, err
	}

	return c, http.StatusOK, nil
}

// MakeEmptyContext creates a context without authenticating, used by
// handlers that must answer regardless of the token presented
func MakeEmptyContext(
	request *http.Request,
	responseWriter http.ResponseWriter,
) *Context {
	return &Context{
		Request:        request,
		ResponseWriter: responseWriter,
		RouteVars:      mux.Vars(request),
		StartTime:      time.Now(),
		IP:             GetRequestIP(request),
		Memo:           cache.NewMemo(),
		Auth:           AuthType{Role: RoleGuest},
	}
}

// GetRequestIP returns the remote IP of the request
func GetRequestIP(request *http.Request) net.IP {
	host, _, _ := net.SplitHostPort(request.RemoteAddr)
	return net.ParseIP(host)
}

func (c *Context) authenticate() (int, error) {
	// Authorisation is accepted by query string or header
	atQuery := c.Request.URL.Query().Get("access_token")
	atHeader := c.Request.Header.Get("Authorization")
	var accessToken string

	// Expected header is: "Authorization: Bearer access_token"
	if atHeader != "" {
		authParts := strings.Split(strings.Trim(atHeader, " "), " ")

		if len(authParts) != 2 {
			glog.Warningf(`AccessToken must have two parts: %s`, atHeader)
			return http.StatusUnauthorized,
				e.New(0, "context.authenticate", e.InvalidToken, "Invalid access token")
		}

		if authParts[0] != "Bearer" {
			glog.Warningf(`AccessToken must have Bearer header: %s`, atHeader)
			return http.StatusUnauthorized,
				e.New(
					0,
					"context.authenticate",
					e.InvalidToken,
					"Authorization header must be in the format 'Bearer access_token'",
				)
		}

		accessToken = authParts[1]
		c.Auth.Method = "header"

	} else if atQuery != "" {
		accessToken = atQuery
		c.Auth.Method = "query"
	}

	// Since the request URL is reused, trim access_token if present
	query := c.Request.URL.Query()
	if query.Get("access_token") != "" {
		query.Del("access_token")
		c.Request.URL.RawQuery = query.Encode()
	}

	if accessToken == "" {
		return http.StatusOK, nil
	}

	storedToken, status, err := GetAccessToken(accessToken)
	if err != nil {
		glog.Warningf(`Invalid access token: %s  %+v`, accessToken, err)
		if status != http.StatusNotFound {
			return status, err
		}
		return http.StatusUnauthorized,
			e.New(0, "context.authenticate", e.InvalidToken, "Invalid (bad or expired) access token")
	}

	if !storedToken.Expires.IsZero() && storedToken.Expires.Before(c.StartTime) {
		return http.StatusUnauthorized,
			e.New(storedToken.UserID, "context.authenticate", e.ExpiredToken, "Access token has expired")
	}

	if storedToken.User.IsBanned {
		return http.StatusForbidden,
			e.New(storedToken.UserID, "context.authenticate", e.InvalidToken, "Banned")
	}

	c.Auth.AccessToken = storedToken
	c.Auth.UserID = storedToken.UserID
	c.Auth.AgentID = storedToken.User.AgentID
	c.Auth.Role = storedToken.User.Role

	// Only record last activity once a minute at most
	lastActiveKey := fmt.Sprintf(mcUserKeys[cache.CacheCounts], c.Auth.UserID)
	if _, ok := cache.GetInt64(lastActiveKey); !ok {
		go UpdateLastActive(c.Auth.UserID, c.StartTime)
		cache.SetInt64(lastActiveKey, 1, 60)
	}

	return http.StatusOK, nil
}

// IsGuest reports whether the request carried no valid access token
func (c *Context) IsGuest() bool {
	return c.Auth.UserID <= 0
}

// AuthContext returns the permission context for an item as seen by the
// caller
func (c *Context) AuthContext(itemTypeID int64, itemID int64) AuthContext {
	return MakeAuthorisationContext(c.Auth, itemTypeID, itemID, c.Memo)
}

// GetHTTPMethod returns the request method, honouring method overrides on
// POST requests
func (c *Context) GetHTTPMethod() string {
	m := c.Request.Method

	if m == http.MethodPost {
		if c.Request.Header.Get("X-HTTP-Method-Override") != "" {
			m = strings.ToUpper(c.Request.Header.Get("X-HTTP-Method-Override"))
		}
		if c.Request.URL.Query().Get("method") != "" {
			m = strings.ToUpper(c.Request.URL.Query().Get("method"))
		}

		switch m {
		case "DELETE", "GET", "HEAD", "OPTIONS", "PATCH", "POST", "PUT":
		default:
			return c.Request.Method
		}
	}

	return m
}

// Respond writes the standard envelope
func (c *Context) Respond(
	data interface{},
	statusCode int,
	errors []string,
) error {
	obj := StandardResponse{
		Context: c.Request.URL.Query().Get("context"),
		Status:  statusCode,
		Data:    data,
		Errors:  errors,
	}

	c.setCacheHeaders(statusCode)

	output, err := FormatAsJSON(c, obj)
	if err != nil {
		http.Error(c.ResponseWriter, err.Error(), http.StatusInternalServerError)
		return err
	}

	return c.WriteResponse(output, statusCode)
}

func (c *Context) setCacheHeaders(statusCode int) {
	c.ResponseWriter.Header().Set("Access-Control-Allow-Origin", "*")

	if c.IsGuest() &&
		statusCode == http.StatusOK &&
		c.GetHTTPMethod() == http.MethodGet {
		c.ResponseWriter.Header().Set(`Cache-Control`, `public, max-age=300`)
	} else {
		c.ResponseWriter.Header().Set(`Cache-Control`, `no-cache, max-age=0`)
	}
	c.ResponseWriter.Header().Set(`Vary`, `Authorization`)
}

// WriteResponse writes the status and body
func (c *Context) WriteResponse(output []byte, statusCode int) error {
	if c.Request.Header.Get("X-Always-200") != "" {
		c.ResponseWriter.WriteHeader(http.StatusOK)
	} else {
		c.ResponseWriter.WriteHeader(statusCode)
	}

	// HEAD requests return no body
	if c.GetHTTPMethod() == http.MethodHead {
		return nil
	}

	_, err := c.ResponseWriter.Write(output)
	if err != nil {
		// A broken pipe is the client going away
		opErr, ok := err.(*net.OpError)
		if ok && opErr.Err == syscall.EPIPE {
			glog.Warningf(
				"Error writing %s response to %s : %+v",
				c.GetHTTPMethod(),
				c.Request.URL.String(),
				err,
			)
			return err
		}

		glog.Errorf(
			"Error writing %s response to %s : %+v",
			c.GetHTTPMethod(),
			c.Request.URL.String(),
			err,
		)
		return err
	}

	return nil
}

// RespondWithOptions answers an OPTIONS request
func (c *Context) RespondWithOptions(options []string) error {
	c.ResponseWriter.Header().Set("Allow", strings.Join(options, ","))
	c.ResponseWriter.Header().Set("Content-Length", "0")
	c.ResponseWriter.WriteHeader(http.StatusOK)
	return nil
}

// RespondWithStatus responds with the status code and no data
func (c *Context) RespondWithStatus(statusCode int) error {
	return c.Respond(nil, statusCode, nil)
}

// RespondWithError responds with the status code and its description as
// the error
func (c *Context) RespondWithError(statusCode int) error {
	return c.RespondWithErrorMessage(http.StatusText(statusCode), statusCode)
}

// RespondWithErrorMessage responds with the status code and an error message
func (c *Context) RespondWithErrorMessage(message string, statusCode int) error {
	return c.Respond(nil, statusCode, []string{message})
}

// RespondWithErrorDetail responds with the error code and message in the
// data object when the error carries one
func (c *Context) RespondWithErrorDetail(err error, statusCode int) error {
	if e.Code(err) == 0 {
		return c.RespondWithErrorMessage(err.Error(), statusCode)
	}
	return c.Respond(err, statusCode, []string{err.Error()})
}

// RespondWithData responds with 200 and the data
func (c *Context) RespondWithData(data interface{}) error {
	return c.Respond(data, http.StatusOK, nil)
}

// RespondWithOK responds with 200 and no data
func (c *Context) RespondWithOK() error {
	return c.RespondWithData(nil)
}

// RespondWithSeeOther responds with a redirect to a created item
func (c *Context) RespondWithSeeOther(location string) error {
	c.ResponseWriter.Header().Set("Location", location)
	return c.RespondWithStatus(http.StatusFound)
}

// RespondWithNotFound responds with 404
func (c *Context) RespondWithNotFound() error {
	return c.RespondWithError(http.StatusNotFound)
}

// RespondWithNotImplemented responds with 501
func (c *Context) RespondWithNotImplemented() error {
	return c.RespondWithError(http.StatusNotImplemented)
}

// RespondWithHTML writes a rendered fragment
func (c *Context) RespondWithHTML(fragment []byte, statusCode int) error {
	c.setCacheHeaders(statusCode)
	c.ResponseWriter.Header().Set("Content-Type", "text/html; charset=utf-8")
	c.ResponseWriter.Header().Set("Content-Length", strconv.Itoa(len(fragment)))
	return c.WriteResponse(fragment, statusCode)
}

// RespondWithBody writes an arbitrary body with the given content type
func (c *Context) RespondWithBody(body []byte, contentType string, filename string) error {
	c.setCacheHeaders(http.StatusOK)
	c.ResponseWriter.Header().Set("Content-Type", contentType)
	c.ResponseWriter.Header().Set("Content-Length", strconv.Itoa(len(body)))
	if filename != "" {
		c.ResponseWriter.Header().Set(
			"Content-Disposition",
			fmt.Sprintf(`attachment; filename="%s"`, filename),
		)
	}
	return c.WriteResponse(body, http.StatusOK)
}

// FormatAsJSON marshals the response, wrapping it in a JSONP callback when
// one was asked for
func FormatAsJSON(c *Context, input interface{}) ([]byte, error) {
	var data interface{} = input

	if c.Request.Header.Get("X-Disable-Boiler") != "" ||
		c.Request.URL.Query().Get("disableBoiler") != "" {
		if r, ok := input.(StandardResponse); ok {
			data = r.Data
		}
	}

	output, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	if callback := c.Request.URL.Query().Get("callback"); callback != "" {
		requestContext := c.Request.URL.Query().Get("context")

		outputString := callback + "(" + string(output)
		if requestContext != "" {
			outputString = outputString + ", \"" + requestContext + "\")"
		} else {
			outputString = outputString + ")"
		}

		output = []byte(outputString)
	}

	c.ResponseWriter.Header().Set("Content-Type", "application/json")
	c.ResponseWriter.Header().Set("Content-Length", strconv.Itoa(len(output)))

	return output, nil
}

// RequestDecoder unmarshals a request body into a value
type RequestDecoder interface {
	Unmarshal(c *Context, v interface{}) error
}

// JSONRequestDecoder decodes JSON bodies
type JSONRequestDecoder struct{}

// Unmarshal implements RequestDecoder
func (d *JSONRequestDecoder) Unmarshal(c *Context, v interface{}) error {
	defer c.Request.Body.Close()
	return json.NewDecoder(c.Request.Body).Decode(v)
}

// FormRequestDecoder decodes form encoded bodies
type FormRequestDecoder struct{}

// Unmarshal implements RequestDecoder
func (d *FormRequestDecoder) Unmarshal(c *Context, v interface{}) error {
	if c.Request.Form == nil {
		err := c.Request.ParseForm()
		if err != nil {
			return err
		}
	}
	return UnmarshalForm(c.Request.PostForm, v)
}

var decoders = map[string]RequestDecoder{
	"application/json":                  new(JSONRequestDecoder),
	"application/x-www-form-urlencoded": new(FormRequestDecoder),
	"multipart/form-data":               new(FormRequestDecoder),
}

// Fill decodes the request body into v according to its content type
func (c *Context) Fill(v interface{}) error {
	ct := c.Request.Header.Get("Content-Type")
	if strings.TrimSpace(ct) == "" {
		ct = "application/x-www-form-urlencoded"
	}

	// ignore charset
	ct = strings.TrimSpace(strings.Split(ct, ";")[0])

	decoder, ok := decoders[ct]
	if !ok {
		return e.New(
			c.Auth.UserID,
			"context.Fill",
			e.BadContentType,
			fmt.Sprintf("Cannot decode request for %s data", ct),
		)
	}

	return decoder.Unmarshal(c, v)
}

// UnmarshalForm fills the struct or map v from the form values. Struct
// fields are matched by their json tag, or by name if they have none.
func UnmarshalForm(form url.Values, v interface{}) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr {
		return fmt.Errorf("v must be a pointer")
	}
	rv = rv.Elem()

	switch rv.Kind() {
	case reflect.Struct:
		rt := rv.Type()
		for i := 0; i < rt.NumField(); i++ {
			if rt.Field(i).PkgPath != "" {
				continue
			}
			err := unmarshalField(form, rt.Field(i), rv.Field(i))
			if err != nil {
				return err
			}
		}
	case reflect.Map:
		if rv.IsNil() {
			return fmt.Errorf("v must point to a struct or a non-nil map type")
		}
		for k, vals := range form {
			if len(vals) > 0 {
				rv.SetMapIndex(reflect.ValueOf(k), reflect.ValueOf(vals[0]))
			}
		}
	default:
		return fmt.Errorf("v must point to a struct or a non-nil map type")
	}

	return nil
}

func formName(t reflect.StructField) string {
	tag := strings.Split(t.Tag.Get("json"), ",")[0]
	if tag == "-" {
		return ""
	}
	if tag != "" {
		return tag
	}
	return t.Name
}

func unmarshalField(form url.Values, t reflect.StructField, v reflect.Value) error {
	name := formName(t)
	if name == "" {
		return nil
	}

	fvs := form[name]
	if len(fvs) == 0 {
		return nil
	}
	fv := strings.TrimSpace(fvs[0])

	switch v.Kind() {
	case reflect.Int, reflect.Int32, reflect.Int64:
		if fv == "" {
			return nil
		}
		i, err := strconv.ParseInt(fv, 10, 64)
		if err != nil {
			return fmt.Errorf("%s (%s) is not a number", name, fv)
		}
		v.SetInt(i)
	case reflect.Float32, reflect.Float64:
		if fv == "" {
			return nil
		}
		f, err := strconv.ParseFloat(fv, 64)
		if err != nil {
			return fmt.Errorf("%s (%s) is not a number", name, fv)
		}
		v.SetFloat(f)
	case reflect.String:
		v.SetString(fvs[0])
	case reflect.Bool:
		// 1, true, on, yes are all true
		switch strings.ToLower(fv) {
		case "1", "true", "on", "yes":
			v.SetBool(true)
		default:
			v.SetBool(false)
		}
	case reflect.Slice:
		if t.Type.Elem().Kind() != reflect.String {
			return nil
		}
		sv := reflect.MakeSlice(t.Type, len(fvs), len(fvs))
		for i, s := range fvs {
			sv.Index(i).SetString(s)
		}
		v.Set(sv)
	default:
		if glog.V(2) {
			glog.Infof("unmarshalField: unsupported kind %s for %s", v.Kind(), name)
		}
	}

	return nil
}

// MakeWidgetContext returns what the dashboard widgets need to know about
// this request
func (c *Context) MakeWidgetContext() WidgetContext {
	return WidgetContext{
		Ctx:   c.Request.Context(),
		Memo:  c.Memo,
		Auth:  c.Auth,
		Scope: ScopeFor(c.Auth),
	}
}
