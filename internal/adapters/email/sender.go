package email

import (
	"context"
	"time"
)

// SendRequest contains the data needed to send an email via an external provider.
type SendRequest struct {
	To      []string
	From    string // e.g. "SportsMed Pro <noreply@sportsmed.example>"
	Subject string
	HTML    string
	ReplyTo string
}

// SendResult contains the response from the email provider.
type SendResult struct {
	MessageID string
	SentAt    time.Time
}

// Sender delivers transactional email.
type Sender interface {
	Send(ctx context.Context, req SendRequest) (SendResult, error)
}
