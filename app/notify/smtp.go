package notify

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/wneessen/go-mail"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration
	Insecure bool
}

// SMTPMailer delivers notifications over SMTP.
type SMTPMailer struct {
	cfg SMTPConfig
	log zerolog.Logger
}

func NewSMTPMailer(cfg SMTPConfig, log zerolog.Logger) *SMTPMailer {
	return &SMTPMailer{
		cfg: cfg,
		log: log.With().Str("component", "smtp_mailer").Logger(),
	}
}

func (s *SMTPMailer) SendMail(ctx context.Context, to, subject, body string) error {
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	m := mail.NewMsg()
	if err := m.From(s.cfg.From); err != nil {
		return err
	}
	if err := m.To(to); err != nil {
		return err
	}
	m.Subject(subject)
	m.SetBodyString(mail.TypeTextPlain, body)

	tlsPolicy := mail.TLSMandatory
	if s.cfg.Insecure {
		tlsPolicy = mail.TLSOpportunistic
	}

	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithTLSPolicy(tlsPolicy),
	}
	if s.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}

	c, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return err
	}

	s.log.Info().Str("host", s.cfg.Host).Int("port", s.cfg.Port).Str("to", to).Str("subject", subject).Msg("attempting smtp send")
	if err := c.DialAndSendWithContext(ctx, m); err != nil {
		s.log.Error().Err(err).Str("to", to).Msg("smtp send failed")
		return err
	}

	s.log.Info().Str("to", to).Msg("smtp send ok")
	return nil
}
