package models

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormsAreWellFormed(t *testing.T) {
	for _, id := range FormIDs() {
		f, ok := GetForm(id)
		require.True(t, ok, id)
		assert.NoError(t, f.Check(), id)
	}

	_, ok := GetForm("mortgage_calculator")
	assert.False(t, ok)
}

func TestFormCheck(t *testing.T) {
	f := FormType{ID: "x", Title: "X", Fields: []FormFieldType{
		{Name: "a", Type: FormFieldText},
		{Name: "a", Type: FormFieldText},
	}}
	assert.Error(t, f.Check())

	f.Fields = []FormFieldType{{Name: "a", Type: "colour"}}
	assert.Error(t, f.Check())

	f.Fields = []FormFieldType{{Name: "a", Type: FormFieldSelect}}
	assert.Error(t, f.Check())

	assert.Error(t, FormType{ID: "x", Title: "X"}.Check())
}

func TestValidateFormListing(t *testing.T) {
	clean, problems, err := ValidateForm(FormListing, map[string]string{
		"title":       "  Sunny <b>home</b>\n",
		"address":     "1 Main St",
		"city":        "Austin",
		"state":       "TX",
		"zip":         "78701",
		"price":       "$ 1,250,000.60",
		"beds":        "3",
		"baths":       "2.5",
		"status":      ListingStatuses[0],
		"description": "Tom & Jerry's <script>alert(1)</script>place",
	})
	require.NoError(t, err)
	assert.Empty(t, problems)

	assert.Equal(t, "Sunny home", clean["title"])
	assert.Equal(t, "1250001", clean["price"])
	assert.Equal(t, "2.5", clean["baths"])
	assert.Equal(t, "false", clean["featured"], "a missing checkbox is unchecked")
	assert.NotContains(t, clean["description"], "<script>")
	assert.Contains(t, clean["description"], "Tom & Jerry's")
	_, ok := clean["sqft"]
	assert.False(t, ok)
}

func TestValidateFormProblems(t *testing.T) {
	clean, problems, err := ValidateForm(FormListing, map[string]string{
		"title":  "   ",
		"state":  "Texas",
		"price":  "a lot",
		"beds":   "-1",
		"status": "haunted",
	})
	require.NoError(t, err)

	assert.Equal(t, "Title is required", problems["title"])
	assert.Equal(t, "City is required", problems["city"])
	assert.Equal(t, "State must be at most 2 characters", problems["state"])
	assert.Equal(t, "Price must be an amount in dollars", problems["price"])
	assert.Equal(t, "Bedrooms cannot be negative", problems["beds"])
	assert.Contains(t, problems["status"], "Status must be one of")
	assert.NotContains(t, clean, "title")

	_, _, err = ValidateForm("nope", nil)
	assert.Error(t, err)
}

func TestValidateFormLead(t *testing.T) {
	clean, problems, err := ValidateForm(FormLead, map[string]string{
		"name":  "Sam Buyer",
		"email": "Sam Buyer <SAM@Example.Test>",
		"phone": "bogus",
	})
	require.NoError(t, err)

	assert.Equal(t, "sam@example.test", clean["email"])
	assert.Equal(t, "Phone is not a valid phone number", problems["phone"])

	_, problems, err = ValidateForm(FormLead, map[string]string{
		"name":  "Sam",
		"email": "not an email",
	})
	require.NoError(t, err)
	assert.Equal(t, "Email is not a valid email address", problems["email"])
}

func TestSanitiseFormValue(t *testing.T) {
	dt := FormFieldType{Label: "Starts", Type: FormFieldDateTime}

	v, err := SanitiseFormValue(dt, "2024-06-01T13:00")
	require.NoError(t, err)
	assert.Equal(t, "2024-06-01T13:00:00Z", v)

	v, err = SanitiseFormValue(dt, "2024-06-01T13:00:00+10:00")
	require.NoError(t, err)
	assert.Equal(t, "2024-06-01T13:00:00+10:00", v)

	_, err = SanitiseFormValue(dt, "next tuesday")
	assert.Error(t, err)

	d := FormFieldType{Label: "Day", Type: FormFieldDate}
	_, err = SanitiseFormValue(d, "2024-02-30")
	assert.Error(t, err)

	cb := FormFieldType{Label: "Featured", Type: FormFieldCheckbox}
	for in, want := range map[string]string{"on": "true", "YES": "true", "1": "true", "off": "false", "0": "false"} {
		v, err = SanitiseFormValue(cb, in)
		require.NoError(t, err)
		assert.Equal(t, want, v, in)
	}

	u := FormFieldType{Label: "Website", Type: FormFieldURL}
	_, err = SanitiseFormValue(u, "javascript:alert(1)")
	assert.Error(t, err)
	v, err = SanitiseFormValue(u, "https://example.test/me")
	require.NoError(t, err)
	assert.Equal(t, "https://example.test/me", v)

	n := FormFieldType{Label: "Size", Type: FormFieldNumber}
	v, err = SanitiseFormValue(n, "1,800")
	require.NoError(t, err)
	assert.Equal(t, "1800", v)

	_, err = SanitiseFormValue(FormFieldType{Type: "colour"}, "red")
	assert.Error(t, err)

	// Control characters never reach the stored value
	v, err = SanitiseFormValue(FormFieldType{Label: "Name", Type: FormFieldText}, "Jo\x00\x07 Smith")
	require.NoError(t, err)
	assert.Equal(t, "Jo Smith", v)
}

func TestUnmarshalForm(t *testing.T) {
	form := url.Values{
		"title":    {"  Villa  "},
		"price":    {"500000"},
		"baths":    {"1.5"},
		"features": {"pool", "garage"},
		"ignored":  {"x"},
	}

	m := ListingType{}
	require.NoError(t, UnmarshalForm(form, &m))
	assert.Equal(t, "  Villa  ", m.Title)
	assert.Equal(t, int64(500000), m.Price)
	assert.Equal(t, 1.5, m.Baths)
	assert.Equal(t, []string{"pool", "garage"}, []string(m.Features))

	bad := url.Values{"price": {"cheap"}}
	assert.Error(t, UnmarshalForm(bad, &m))

	flags := struct {
		WithImage bool `json:"withImage"`
		Other     bool
	}{}
	require.NoError(t, UnmarshalForm(url.Values{"withImage": {"on"}, "Other": {"nope"}}, &flags))
	assert.True(t, flags.WithImage)
	assert.False(t, flags.Other)

	values := map[string]string{}
	require.NoError(t, UnmarshalForm(url.Values{"a": {"1", "2"}}, &values))
	assert.Equal(t, "1", values["a"])

	var nilMap map[string]string
	assert.Error(t, UnmarshalForm(url.Values{}, &nilMap))
	assert.Error(t, UnmarshalForm(url.Values{}, m))
}
