package models

import (
	"fmt"
	"html"
	"net/mail"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Form field types, each has its own sanitiser
const (
	FormFieldText     string = "text"
	FormFieldTextarea string = "textarea"
	FormFieldHTML     string = "html"
	FormFieldEmail    string = "email"
	FormFieldPhone    string = "phone"
	FormFieldURL      string = "url"
	FormFieldNumber   string = "number"
	FormFieldPrice    string = "price"
	FormFieldSelect   string = "select"
	FormFieldDate     string = "date"
	FormFieldDateTime string = "datetime"
	FormFieldCheckbox string = "checkbox"
)

// Form IDs
const (
	FormListing      string = "listing"
	FormLead         string = "lead"
	FormOpenHouse    string = "open_house"
	FormAgentProfile string = "agent_profile"
)

// FormFieldType describes one input of a form
type FormFieldType struct {
	Name      string   `json:"name"`
	Label     string   `json:"label"`
	Type      string   `json:"type"`
	Required  bool     `json:"required"`
	Options   []string `json:"options,omitempty"`
	MaxLength int      `json:"maxLength,omitempty"`
}

// FormType is a form rendered on the dashboard
type FormType struct {
	ID     string          `json:"id"`
	Title  string          `json:"title"`
	Action string          `json:"action"`
	Fields []FormFieldType `json:"fields"`
}

var forms = map[string]FormType{
	FormListing: {
		ID:     FormListing,
		Title:  "Listing",
		Action: "hph_save_listing",
		Fields: []FormFieldType{
			{Name: "title", Label: "Title", Type: FormFieldText, Required: true, MaxLength: 200},
			{Name: "address", Label: "Street address", Type: FormFieldText, Required: true, MaxLength: 200},
			{Name: "city", Label: "City", Type: FormFieldText, Required: true, MaxLength: 100},
			{Name: "state", Label: "State", Type: FormFieldText, Required: true, MaxLength: 2},
			{Name: "zip", Label: "Zip", Type: FormFieldText, Required: true, MaxLength: 10},
			{Name: "price", Label: "Price", Type: FormFieldPrice, Required: true},
			{Name: "beds", Label: "Bedrooms", Type: FormFieldNumber},
			{Name: "baths", Label: "Bathrooms", Type: FormFieldNumber},
			{Name: "sqft", Label: "Square feet", Type: FormFieldNumber},
			{Name: "status", Label: "Status", Type: FormFieldSelect, Required: true, Options: ListingStatuses},
			{Name: "description", Label: "Description", Type: FormFieldTextarea, MaxLength: 20000},
			{Name: "featured", Label: "Featured", Type: FormFieldCheckbox},
		},
	},
	FormLead: {
		ID:     FormLead,
		Title:  "Lead",
		Action: "hph_save_lead",
		Fields: []FormFieldType{
			{Name: "name", Label: "Name", Type: FormFieldText, Required: true, MaxLength: 200},
			{Name: "email", Label: "Email", Type: FormFieldEmail, Required: true},
			{Name: "phone", Label: "Phone", Type: FormFieldPhone},
			{Name: "source", Label: "Source", Type: FormFieldSelect, Options: LeadSources},
			{Name: "status", Label: "Status", Type: FormFieldSelect, Options: LeadStatuses},
			{Name: "message", Label: "Message", Type: FormFieldTextarea, MaxLength: 5000},
		},
	},
	FormOpenHouse: {
		ID:     FormOpenHouse,
		Title:  "Open house",
		Action: "hph_save_open_house",
		Fields: []FormFieldType{
			{Name: "listingId", Label: "Listing", Type: FormFieldNumber, Required: true},
			{Name: "starts", Label: "Starts", Type: FormFieldDateTime, Required: true},
			{Name: "ends", Label: "Ends", Type: FormFieldDateTime, Required: true},
			{Name: "notes", Label: "Notes", Type: FormFieldTextarea, MaxLength: 2000},
		},
	},
	FormAgentProfile: {
		ID:     FormAgentProfile,
		Title:  "Profile",
		Action: "hph_save_agent_profile",
		Fields: []FormFieldType{
			{Name: "displayName", Label: "Name", Type: FormFieldText, Required: true, MaxLength: 200},
			{Name: "email", Label: "Email", Type: FormFieldEmail, Required: true},
			{Name: "phone", Label: "Phone", Type: FormFieldPhone},
			{Name: "licenseNumber", Label: "License number", Type: FormFieldText, MaxLength: 50},
			{Name: "office", Label: "Office", Type: FormFieldText, MaxLength: 200},
			{Name: "bio", Label: "Biography", Type: FormFieldHTML, MaxLength: 10000},
			{Name: "website", Label: "Website", Type: FormFieldURL},
			{Name: "facebook", Label: "Facebook", Type: FormFieldURL},
			{Name: "instagram", Label: "Instagram", Type: FormFieldURL},
			{Name: "linkedin", Label: "LinkedIn", Type: FormFieldURL},
		},
	},
}

// GetForm returns the definition of a form
func GetForm(id string) (FormType, bool) {
	f, ok := forms[id]
	return f, ok
}

// FormIDs lists the forms in name order
func FormIDs() []string {
	ids := []string{}
	for id := range forms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Check reports problems with the definition of a form
func (f FormType) Check() error {
	if f.ID == "" || f.Title == "" {
		return fmt.Errorf("form must have an id and a title")
	}
	if len(f.Fields) == 0 {
		return fmt.Errorf("form %s has no fields", f.ID)
	}

	seen := map[string]bool{}
	for _, field := range f.Fields {
		if field.Name == "" {
			return fmt.Errorf("form %s has a field without a name", f.ID)
		}
		if seen[field.Name] {
			return fmt.Errorf("form %s has field %s twice", f.ID, field.Name)
		}
		seen[field.Name] = true

		if _, ok := sanitisers[field.Type]; !ok {
			return fmt.Errorf("form %s field %s has unknown type %s", f.ID, field.Name, field.Type)
		}
		if field.Type == FormFieldSelect && len(field.Options) == 0 {
			return fmt.Errorf("form %s field %s is a select without options", f.ID, field.Name)
		}
	}

	return nil
}

type sanitiser func(field FormFieldType, value string) (string, error)

var sanitisers = map[string]sanitiser{
	FormFieldText:     sanitiseTextField,
	FormFieldTextarea: sanitiseTextareaField,
	FormFieldHTML:     sanitiseHTMLField,
	FormFieldEmail:    sanitiseEmailField,
	FormFieldPhone:    sanitisePhoneField,
	FormFieldURL:      sanitiseURLField,
	FormFieldNumber:   sanitiseNumberField,
	FormFieldPrice:    sanitisePriceField,
	FormFieldSelect:   sanitiseSelectField,
	FormFieldDate:     sanitiseDateField,
	FormFieldDateTime: sanitiseDateTimeField,
	FormFieldCheckbox: sanitiseCheckboxField,
}

// SanitiseFormValue cleans a submitted value according to the field type
func SanitiseFormValue(field FormFieldType, value string) (string, error) {
	fn, ok := sanitisers[field.Type]
	if !ok {
		return "", fmt.Errorf("unknown field type %s", field.Type)
	}

	v, err := fn(field, strings.TrimSpace(StripControlChars(value)))
	if err != nil {
		return "", err
	}

	if field.MaxLength > 0 && len([]rune(v)) > field.MaxLength {
		return "", fmt.Errorf("%s must be at most %d characters", field.Label, field.MaxLength)
	}

	return v, nil
}

// ValidateForm sanitises the submitted values of a form. It returns the
// clean values and, keyed by field name, every problem found.
func ValidateForm(id string, values map[string]string) (map[string]string, map[string]string, error) {
	f, ok := GetForm(id)
	if !ok {
		return nil, nil, fmt.Errorf("unknown form %s", id)
	}

	clean := map[string]string{}
	problems := map[string]string{}

	for _, field := range f.Fields {
		raw, present := values[field.Name]
		if !present || strings.TrimSpace(raw) == "" {
			if field.Required {
				problems[field.Name] = fmt.Sprintf("%s is required", field.Label)
			} else if field.Type == FormFieldCheckbox {
				clean[field.Name] = "false"
			}
			continue
		}

		v, err := SanitiseFormValue(field, raw)
		if err != nil {
			problems[field.Name] = err.Error()
			continue
		}
		if v == "" && field.Required {
			problems[field.Name] = fmt.Sprintf("%s is required", field.Label)
			continue
		}
		clean[field.Name] = v
	}

	return clean, problems, nil
}

func sanitiseTextField(_ FormFieldType, v string) (string, error) {
	v = strings.ReplaceAll(v, "\n", " ")
	return strings.TrimSpace(html.UnescapeString(SanitiseText(v))), nil
}

func sanitiseTextareaField(_ FormFieldType, v string) (string, error) {
	return strings.TrimSpace(html.UnescapeString(SanitiseText(v))), nil
}

func sanitiseHTMLField(_ FormFieldType, v string) (string, error) {
	return strings.TrimSpace(string(SanitiseHTML([]byte(v)))), nil
}

func sanitiseEmailField(field FormFieldType, v string) (string, error) {
	addr, err := mail.ParseAddress(v)
	if err != nil {
		return "", fmt.Errorf("%s is not a valid email address", field.Label)
	}
	return strings.ToLower(addr.Address), nil
}

func sanitisePhoneField(field FormFieldType, v string) (string, error) {
	p, err := ValidatePhone(v)
	if err != nil {
		return "", fmt.Errorf("%s is not a valid phone number", field.Label)
	}
	return p, nil
}

func sanitiseURLField(field FormFieldType, v string) (string, error) {
	u, err := ValidateURL(v)
	if err != nil {
		return "", fmt.Errorf("%s is not a valid URL", field.Label)
	}
	return u, nil
}

func sanitiseNumberField(field FormFieldType, v string) (string, error) {
	f, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", ""), 64)
	if err != nil {
		return "", fmt.Errorf("%s must be a number", field.Label)
	}
	if f < 0 {
		return "", fmt.Errorf("%s cannot be negative", field.Label)
	}
	return strconv.FormatFloat(f, 'f', -1, 64), nil
}

func sanitisePriceField(field FormFieldType, v string) (string, error) {
	v = strings.NewReplacer("$", "", ",", "", " ", "").Replace(v)
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return "", fmt.Errorf("%s must be an amount in dollars", field.Label)
	}
	if f < 0 {
		return "", fmt.Errorf("%s cannot be negative", field.Label)
	}
	return strconv.FormatInt(int64(f+0.5), 10), nil
}

func sanitiseSelectField(field FormFieldType, v string) (string, error) {
	for _, o := range field.Options {
		if o == v {
			return v, nil
		}
	}
	return "", fmt.Errorf("%s must be one of %s", field.Label, strings.Join(field.Options, ", "))
}

func sanitiseDateField(field FormFieldType, v string) (string, error) {
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return "", fmt.Errorf("%s must be a date (YYYY-MM-DD)", field.Label)
	}
	return t.Format("2006-01-02"), nil
}

func sanitiseDateTimeField(field FormFieldType, v string) (string, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t.Format(time.RFC3339), nil
		}
	}
	return "", fmt.Errorf("%s must be a date and time", field.Label)
}

func sanitiseCheckboxField(_ FormFieldType, v string) (string, error) {
	switch strings.ToLower(v) {
	case "1", "true", "on", "yes":
		return "true", nil
	}
	return "false", nil
}
