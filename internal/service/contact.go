package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/sakif/ca-portal/internal/apperror"
	"github.com/sakif/ca-portal/internal/mailer"
)

// DefaultContactFrom is Resend's shared sender, usable before a domain is verified.
const DefaultContactFrom = "Contato App CA <onboarding@resend.dev>"

// contactSubjectPrefix tags every relayed email so the inbox can filter them.
const contactSubjectPrefix = "[App CA] - "

// ErrContactNotConfigured means there is no mailer or no recipient address.
var ErrContactNotConfigured = errors.New("contact relay is not configured")

// ContactInput is the contact form.
type ContactInput struct {
	From    string `json:"from"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// Validate checks the form with ozzo-validation. All three fields are required.
func (in ContactInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.From, validation.Required, is.EmailFormat),
		validation.Field(&in.Subject, validation.Required, validation.Length(1, 150)),
		validation.Field(&in.Message, validation.Required, validation.Length(1, 5000)),
	)
}

// ContactService relays the contact form to the club's inbox.
//
// REPLY-TO, NOT CC:
// The email is sent from the portal's own address to the club, with the
// member's address as Reply-To. Replying in the inbox goes straight to the
// member, and the member's address is never used as a sender.
type ContactService struct {
	mailer mailer.Mailer
	to     string
	from   string
	logger *slog.Logger
}

// NewContactService creates a ContactService. m may be nil and to may be
// empty; Send then fails with ErrContactNotConfigured.
func NewContactService(m mailer.Mailer, to, from string, logger *slog.Logger) *ContactService {
	if from == "" {
		from = DefaultContactFrom
	}
	return &ContactService{mailer: m, to: to, from: from, logger: logger}
}

// Send validates in and hands it to the mailer. It returns the provider's
// message ID.
//
// OUTCOMES:
//   - apperror.ErrValidation: a field is missing or malformed
//   - ErrContactNotConfigured: no mailer or recipient
//   - apperror.ErrUnavailable: the provider rejected or failed the request
func (s *ContactService) Send(ctx context.Context, in ContactInput) (string, error) {
	in.From = strings.TrimSpace(in.From)
	in.Subject = strings.TrimSpace(in.Subject)
	in.Message = strings.TrimSpace(in.Message)

	if err := fromValidation(in.Validate()); err != nil {
		return "", err
	}

	if s.mailer == nil || s.to == "" {
		s.logger.Error("contact form submitted but the relay is not configured")
		return "", ErrContactNotConfigured
	}

	id, err := s.mailer.Send(ctx, mailer.Message{
		From:    s.from,
		To:      []string{s.to},
		ReplyTo: in.From,
		Subject: contactSubjectPrefix + in.Subject,
		Text:    "Mensagem de: " + in.From + "\n\n" + in.Message,
	})
	if err != nil {
		s.logger.Error("contact email failed",
			slog.String("replyTo", in.From),
			slog.String("error", err.Error()),
		)
		return "", apperror.Unavailable("email provider", err)
	}

	s.logger.Info("contact email sent", slog.String("id", id))
	return id, nil
}
