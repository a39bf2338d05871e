package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/paradisestayz/staywatch/internal/logger"
)

// SMSConfig configures the Comms Centre SMS sink.
type SMSConfig struct {
	APIURL         string
	APIKey         string
	Recipients     []string // E.164 phone numbers
	TimeoutSeconds int
}

// SMSSink delivers short summaries through the Comms Centre send API.
type SMSSink struct {
	cfg    SMSConfig
	http   *resty.Client
	logger *logger.Logger
}

type commsSendRequest struct {
	Channels []string `json:"channels"`
	To       []string `json:"to,omitempty"`
	Body     string   `json:"body"`
}

type commsSendResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// NewSMSSink creates the SMS sink.
func NewSMSSink(cfg SMSConfig, log *logger.Logger) *SMSSink {
	timeout := cfg.TimeoutSeconds
	if timeout <= 0 {
		timeout = 30
	}

	client := resty.New()
	client.SetTimeout(time.Duration(timeout) * time.Second)
	client.SetHeader("Content-Type", "application/json")
	client.SetHeader("x-integration-key", cfg.APIKey)

	return &SMSSink{cfg: cfg, http: client, logger: log}
}

func (s *SMSSink) Name() string { return "sms" }

// Send posts the plain-text body to the recipients. SMS carries no
// attachments; the subject line plus body summary is the whole payload.
func (s *SMSSink) Send(ctx context.Context, msg Message) error {
	body := msg.Subject
	if body == "" {
		body = msg.Body
	}

	var parsed commsSendResponse
	res, err := s.http.R().
		SetContext(ctx).
		SetBody(commsSendRequest{
			Channels: []string{"sms"},
			To:       s.cfg.Recipients,
			Body:     body,
		}).
		SetResult(&parsed).
		Post(s.cfg.APIURL)
	if err != nil {
		return fmt.Errorf("send sms: %w", err)
	}

	if res.StatusCode() != http.StatusOK || !parsed.Success {
		return fmt.Errorf("send sms: api returned status %d: %s", res.StatusCode(), res.String())
	}

	s.logger.Info("sms sent", logger.Field{Key: "recipients", Value: len(s.cfg.Recipients)})
	return nil
}
