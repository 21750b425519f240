package email

import (
	"bytes"
	"html/template"
)

// WelcomeSubject is the subject line of the sign-up email.
const WelcomeSubject = "Welcome to SportsMed Pro"

var welcomeTmpl = template.Must(template.New("welcome").Parse(`<!doctype html>
<html><body style="font-family: sans-serif; color: #1f2937;">
<h1 style="color: #2563eb;">Welcome to SportsMed Pro, {{.FirstName}}!</h1>
<p>Your {{.UserType}} account has been created.</p>
<p>You can now sign in, review your profile and, if you wish, connect your health metrics
from the Biometrics page. Nothing is collected until you give consent.</p>
<p><a href="{{.LoginURL}}">Sign in to SportsMed Pro</a></p>
<p style="color: #6b7280; font-size: 12px;">Professional sports medicine management.</p>
</body></html>`))

// WelcomeData fills the welcome template.
type WelcomeData struct {
	FirstName string
	UserType  string
	LoginURL  string
}

// WelcomeRequest renders the sign-up email for one recipient.
// PRE: to is a valid address
// POST: Returns a SendRequest with an HTML-escaped body
func WelcomeRequest(to string, data WelcomeData) (SendRequest, error) {
	var buf bytes.Buffer
	if err := welcomeTmpl.Execute(&buf, data); err != nil {
		return SendRequest{}, err
	}
	return SendRequest{
		To:      []string{to},
		Subject: WelcomeSubject,
		HTML:    buf.String(),
	}, nil
}
