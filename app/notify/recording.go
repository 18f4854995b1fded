package notify

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// SentMail is one message captured by the RecordingMailer.
type SentMail struct {
	To      string
	Subject string
	Body    string
}

// RecordingMailer logs and records messages instead of delivering them.
// Used in tests and in deployments running without a mail relay.
type RecordingMailer struct {
	mu   sync.Mutex
	sent []SentMail
	err  error
	log  zerolog.Logger
}

func NewRecordingMailer(log zerolog.Logger) *RecordingMailer {
	return &RecordingMailer{
		log: log.With().Str("component", "recording_mailer").Logger(),
	}
}

// FailWith makes every subsequent SendMail return err. Pass nil to clear.
func (m *RecordingMailer) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *RecordingMailer) SendMail(ctx context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, SentMail{To: to, Subject: subject, Body: body})
	m.log.Info().Str("to", to).Str("subject", subject).Msg("recorded mail (not delivered)")
	return nil
}

// Sent returns a copy of everything recorded so far.
func (m *RecordingMailer) Sent() []SentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SentMail, len(m.sent))
	copy(out, m.sent)
	return out
}
