package notify

import (
	"context"
	"fmt"
	"io"

	"gopkg.in/gomail.v2"

	"github.com/paradisestayz/staywatch/internal/logger"
)

// EmailConfig configures the SMTP sink.
type EmailConfig struct {
	SMTPHost string
	SMTPPort int
	From     string
	Password string
	To       []string
	CC       []string
}

// EmailSink delivers report messages over SMTP. Email is normally the
// primary channel: the cleaning staff distribution list.
type EmailSink struct {
	cfg    EmailConfig
	dialer *gomail.Dialer
	logger *logger.Logger
}

// NewEmailSink creates the SMTP sink.
func NewEmailSink(cfg EmailConfig, log *logger.Logger) *EmailSink {
	return &EmailSink{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.From, cfg.Password),
		logger: log,
	}
}

func (s *EmailSink) Name() string { return "email" }

// Send builds and delivers the email. Attachments are attached from
// memory; the HTML body is preferred with the plain body as the
// alternative part.
func (s *EmailSink) Send(ctx context.Context, msg Message) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", s.cfg.To...)
	if len(s.cfg.CC) > 0 {
		m.SetHeader("Cc", s.cfg.CC...)
	}
	m.SetHeader("Subject", msg.Subject)

	if msg.HTMLBody != "" {
		m.SetBody("text/plain", msg.Body)
		m.AddAlternative("text/html", msg.HTMLBody)
	} else {
		m.SetBody("text/plain", msg.Body)
	}

	for _, att := range msg.Attachments {
		data := att.Data
		m.Attach(att.Filename, gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(data)
			return err
		}))
	}

	// gomail has no context support; the dialer's own socket timeouts
	// bound the call.
	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	s.logger.Info("email sent",
		logger.Field{Key: "to", Value: s.cfg.To},
		logger.Field{Key: "subject", Value: msg.Subject})
	return nil
}
