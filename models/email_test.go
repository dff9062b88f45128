package models

import (
	"fmt"
	"net/http"
	"testing"
	"text/template"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	conf "github.com/happyplace/dashboard/config"
)

func withConfig(t *testing.T, key string, value string) {
	prev, ok := conf.ConfigStrings[key]
	conf.ConfigStrings[key] = value
	t.Cleanup(func() {
		if ok {
			conf.ConfigStrings[key] = prev
		} else {
			delete(conf.ConfigStrings, key)
		}
	})
}

func captureEmails(t *testing.T) *[]EmailType {
	sent := []EmailType{}
	prev := deliverEmail
	deliverEmail = func(m *EmailType) error {
		sent = append(sent, *m)
		return nil
	}
	t.Cleanup(func() { deliverEmail = prev })
	return &sent
}

func TestIsDeliverable(t *testing.T) {
	withConfig(t, conf.Environment, "dev")
	withConfig(t, conf.InternalDomain, "@happyplace.local")

	assert.True(t, IsDeliverable("tester@happyplace.local"))
	assert.True(t, IsDeliverable("Tester <TESTER@HappyPlace.Local>"))
	assert.False(t, IsDeliverable("buyer@example.test"))
	assert.False(t, IsDeliverable("buyer@evilhappyplace.local"))
	assert.False(t, IsDeliverable("not an address"))

	withConfig(t, conf.InternalDomain, "")
	assert.False(t, IsDeliverable("tester@happyplace.local"))

	withConfig(t, conf.Environment, "prod")
	assert.True(t, IsDeliverable("buyer@example.test"))
}

func TestMergeAndSendEmail(t *testing.T) {
	withConfig(t, conf.Environment, "dev")
	withConfig(t, conf.InternalDomain, "@happyplace.local")
	withConfig(t, conf.EmailFrom, "Happy Place <notify@happyplace.local>")
	sent := captureEmails(t)

	subject := template.Must(template.New("s").Parse(`New lead: {{.Name}}`))
	text := template.Must(template.New("t").Parse(`{{.Name}} wrote`))
	body := template.Must(template.New("h").Parse(`<p>{{.Name}}</p>`))
	data := struct{ Name string }{"Ann"}

	status, err := MergeAndSendEmail(
		EmailKindLeadNotification, "", "agent@happyplace.local", subject, text, body, data,
	)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	require.Len(t, *sent, 1)

	m := (*sent)[0]
	assert.Equal(t, "notify@happyplace.local", m.From)
	assert.Equal(t, "Happy Place", m.FromName)
	assert.Equal(t, "New lead: Ann", m.Subject)
	assert.Equal(t, "<p>Ann</p>", m.BodyHTML)

	// Outside production real clients are skipped without error
	status, err = MergeAndSendEmail(
		EmailKindLeadNotification, "", "client@example.test", subject, text, body, data,
	)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Len(t, *sent, 1)
}

func TestEmailSendRefusesBlank(t *testing.T) {
	sent := captureEmails(t)

	m := EmailType{From: "a@happyplace.local", To: "b@happyplace.local"}
	status, err := m.Send()
	assert.Error(t, err)
	assert.Equal(t, http.StatusPreconditionFailed, status)

	m = EmailType{From: "a@happyplace.local", Subject: "Hi"}
	_, err = m.Send()
	assert.Error(t, err)

	assert.Empty(t, *sent)
}

func TestEmailSendDeliveryFailure(t *testing.T) {
	prev := deliverEmail
	deliverEmail = func(*EmailType) error { return fmt.Errorf("provider down") }
	defer func() { deliverEmail = prev }()

	m := EmailType{From: "a@happyplace.local", To: "b@happyplace.local", Subject: "Hi"}
	status, err := m.Send()
	assert.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, status)
}

func TestAnchorRelativeUrls(t *testing.T) {
	withConfig(t, conf.SiteURL, "https://happyplace.example/")

	assert.Equal(t,
		`<a href="https://happyplace.example/listings/1"><img src="https://happyplace.example/files/x.png">`,
		AnchorRelativeUrls(`<a href="/listings/1"><img src="/files/x.png">`),
	)

	withConfig(t, conf.SiteURL, "")
	assert.Equal(t, `<a href="/x">`, AnchorRelativeUrls(`<a href="/x">`))
}
