// Package resend sends mailer.Message values through the Resend API.
package resend

import (
	"context"
	"fmt"
	"net/http"

	"github.com/resend/resend-go/v2"

	"github.com/sakif/ca-portal/internal/mailer"
)

// compile-time check that *Mailer implements mailer.Mailer
var _ mailer.Mailer = (*Mailer)(nil)

// Mailer is a mailer.Mailer backed by a Resend client.
type Mailer struct {
	client *resend.Client
}

// New creates a Mailer authenticated with apiKey.
func New(apiKey string) *Mailer {
	return &Mailer{client: resend.NewClient(apiKey)}
}

// NewWithHTTPClient lets tests and callers with custom transports supply the
// *http.Client the Resend SDK uses.
func NewWithHTTPClient(httpClient *http.Client, apiKey string) *Mailer {
	return &Mailer{client: resend.NewCustomClient(httpClient, apiKey)}
}

// Send delivers msg and returns Resend's email ID.
func (m *Mailer) Send(ctx context.Context, msg mailer.Message) (string, error) {
	sent, err := m.client.Emails.SendWithContext(ctx, toRequest(msg))
	if err != nil {
		return "", fmt.Errorf("mailer/resend: sending %q: %w", msg.Subject, err)
	}
	return sent.Id, nil
}

func toRequest(msg mailer.Message) *resend.SendEmailRequest {
	return &resend.SendEmailRequest{
		From:    msg.From,
		To:      msg.To,
		ReplyTo: msg.ReplyTo,
		Subject: msg.Subject,
		Text:    msg.Text,
	}
}
