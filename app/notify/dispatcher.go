// Package notify renders templated notification mail and hands it to the
// mail transport. Transport failures are logged and surfaced to the
// caller exactly once; there is no retry here.
package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// Mailer is the mail-transport collaborator contract: fire-and-forget
// delivery of one rendered message.
type Mailer interface {
	SendMail(ctx context.Context, to, subject, body string) error
}

// Dispatcher renders a subject/body template pair against a context and
// submits the result to the Mailer.
type Dispatcher struct {
	mailer Mailer
	log    zerolog.Logger
}

func NewDispatcher(mailer Mailer, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		mailer: mailer,
		log:    log.With().Str("component", "notify").Logger(),
	}
}

// Send renders and submits one notification. The error return lets
// synchronous callers (account creation) react; callers past the point
// of no return log and absorb it instead.
func (d *Dispatcher) Send(ctx context.Context, to, subjectTemplate, bodyTemplate string, tmplContext map[string]string) error {
	subject := Render(subjectTemplate, tmplContext)
	body := Render(bodyTemplate, tmplContext)

	if err := d.mailer.SendMail(ctx, to, subject, body); err != nil {
		d.log.Error().Err(err).Str("to", to).Str("subject", subject).Msg("mail submission failed")
		return err
	}

	d.log.Debug().Str("to", to).Str("subject", subject).Msg("mail submitted")
	return nil
}
