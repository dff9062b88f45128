package models

import (
	"bytes"
	"fmt"
	"html"
	"net/http"
	netmail "net/mail"
	"strings"
	"text/template"

	"github.com/golang/glog"
	sendgrid "github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	conf "github.com/happyplace/dashboard/config"
	"github.com/happyplace/dashboard/metrics"
)

// Kinds of email, used to label metrics
const (
	EmailKindLeadNotification string = "lead_notification"
	EmailKindRSVP             string = "rsvp"
	EmailKindCampaign         string = "campaign"
)

const (
	defaultEmailFrom string = "notify@happyplace.local"

	emailHTMLHeader string = `<!DOCTYPE html>
<meta charset="utf-8"><div>`

	emailHTMLFooter string = `</div>`
)

// EmailType describes an email
type EmailType struct {
	Kind     string
	FromName string
	From     string
	ReplyTo  string
	To       string
	Subject  string
	BodyText string
	BodyHTML string
}

// deliverEmail hands a validated email to the provider. Tests replace it.
var deliverEmail = sendViaSendGrid

// IsDeliverable reports whether an email may be sent to the address in
// this environment. Outside of production only the internal domain
// receives mail so that copied data never reaches real clients.
func IsDeliverable(to string) bool {
	if conf.IsProduction() {
		return true
	}

	domain := strings.TrimPrefix(conf.ConfigStrings[conf.InternalDomain], "@")
	if domain == "" {
		return false
	}

	addr, err := netmail.ParseAddress(to)
	if err != nil {
		return false
	}

	return strings.HasSuffix(strings.ToLower(addr.Address), "@"+strings.ToLower(domain))
}

// MergeAndSendEmail renders the three templates with data and sends the
// result
func MergeAndSendEmail(
	kind string,
	replyTo string,
	to string,
	subjectTemplate *template.Template,
	textTemplate *template.Template,
	htmlTemplate *template.Template,
	data interface{},
) (int, error) {
	if !IsDeliverable(to) {
		glog.Infof("non-production environment, skipping email to %s", to)
		metrics.EmailsSent.WithLabelValues(kind, "skipped").Inc()
		return http.StatusOK, nil
	}

	email := EmailType{
		Kind:    kind,
		ReplyTo: replyTo,
		To:      to,
	}

	var emailSubject bytes.Buffer
	err := subjectTemplate.Execute(&emailSubject, data)
	if err != nil {
		glog.Errorf("%s %+v", "subjectTemplate.Execute()", err)
		return http.StatusInternalServerError, err
	}
	email.Subject = html.UnescapeString(emailSubject.String())

	var emailText bytes.Buffer
	err = textTemplate.Execute(&emailText, data)
	if err != nil {
		glog.Errorf("%s %+v", "textTemplate.Execute()", err)
		return http.StatusInternalServerError, err
	}
	email.BodyText = html.UnescapeString(emailText.String())

	var emailHTML bytes.Buffer
	err = htmlTemplate.Execute(&emailHTML, data)
	if err != nil {
		glog.Errorf("%s %+v", "htmlTemplate.Execute()", err)
		return http.StatusInternalServerError, err
	}
	email.BodyHTML = emailHTML.String()

	return email.Send()
}

// Send validates the email and passes it to the delivery provider
func (m *EmailType) Send() (int, error) {
	if m.From == "" {
		m.From = conf.ConfigStrings[conf.EmailFrom]
		if m.From == "" {
			m.From = defaultEmailFrom
		}
	}

	f, err := netmail.ParseAddress(m.From)
	if err != nil {
		return http.StatusPreconditionFailed, err
	}
	m.From = f.Address
	if m.FromName == "" {
		m.FromName = f.Name
	}

	if m.From == "" || m.To == "" {
		return http.StatusPreconditionFailed,
			fmt.Errorf("Cannot send an email without " +
				"both from: and to: email addresses")
	}

	if m.Subject == "" && m.BodyText == "" && m.BodyHTML == "" {
		return http.StatusPreconditionFailed,
			fmt.Errorf("Not willing to send a blank email")
	}

	err = deliverEmail(m)
	if err != nil {
		metrics.EmailsSent.WithLabelValues(m.Kind, "failed").Inc()
		return http.StatusInternalServerError, err
	}

	metrics.EmailsSent.WithLabelValues(m.Kind, "sent").Inc()
	return http.StatusOK, nil
}

func sendViaSendGrid(m *EmailType) error {
	apiKey := conf.ConfigStrings[conf.SendGridAPIKey]
	if apiKey == "" {
		glog.Warningf("No email provider configured")
		return fmt.Errorf("email is not configured")
	}

	sgm := mail.NewV3MailInit(
		&mail.Email{Name: m.FromName, Address: m.From},
		m.Subject,
		&mail.Email{Address: m.To},
		mail.NewContent("text/plain", m.BodyText),
	)
	if m.BodyHTML != "" {
		sgm.AddContent(
			mail.NewContent(
				"text/html",
				emailHTMLHeader+AnchorRelativeUrls(m.BodyHTML)+emailHTMLFooter,
			),
		)
	}
	if m.ReplyTo != "" {
		sgm.SetReplyTo(&mail.Email{Address: m.ReplyTo})
	}

	req := sendgrid.GetRequest(
		apiKey,
		"/v3/mail/send",
		"https://api.sendgrid.com",
	)
	req.Method = "POST"
	req.Body = mail.GetRequestBody(sgm)
	resp, err := sendgrid.API(req)
	if err != nil {
		glog.Errorf("SendGrid: %s", err.Error())
		return err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		glog.Errorf("SendGrid: %d %s", resp.StatusCode, resp.Body)
		return fmt.Errorf("email provider rejected the message (%d)", resp.StatusCode)
	}

	if glog.V(2) {
		glog.Infof("SendGrid: success %d %s", resp.StatusCode, m.To)
	}

	return nil
}

// AnchorRelativeUrls makes the relative links and images of an email
// absolute against the site URL
func AnchorRelativeUrls(bodyText string) string {
	siteURL := strings.TrimRight(conf.ConfigStrings[conf.SiteURL], "/")
	if siteURL == "" {
		return bodyText
	}

	bodyText = strings.Replace(bodyText, `img src="/`, `img src="`+siteURL+`/`, -1)
	bodyText = strings.Replace(bodyText, `a href="/`, `a href="`+siteURL+`/`, -1)

	return bodyText
}
