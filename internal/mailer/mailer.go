// Package mailer declares the outbound email contract used by the contact relay.
package mailer

import "context"

// Message is one plain-text email.
type Message struct {
	From    string
	To      []string
	ReplyTo string
	Subject string
	Text    string
}

// Mailer hands a message to an email provider and returns the provider's
// message ID. Delivery itself is the provider's business.
type Mailer interface {
	Send(ctx context.Context, msg Message) (string, error)
}
