package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	config "github.com/anjiri1684/liquidity/configs"
	"go.uber.org/zap"
)

const brevoSendURL = "https://api.brevo.com/v3/smtp/email"

// BrevoService sends transactional email through the Brevo HTTP API. A nil
// *BrevoService or one without an API key drops messages.
type BrevoService struct {
	apiKey      string
	senderEmail string
	senderName  string
	endpoint    string
	httpClient  *http.Client
	log         *zap.Logger
}

type brevoPayload struct {
	Sender      map[string]string   `json:"sender"`
	To          []map[string]string `json:"to"`
	Subject     string              `json:"subject"`
	HTMLContent string              `json:"htmlContent"`
}

func NewBrevoService(cfg config.EmailConfig, log *zap.Logger) *BrevoService {
	if cfg.APIKey == "" || cfg.SenderEmail == "" || cfg.SenderName == "" {
		log.Warn("email service not configured, notifications will be skipped")
	}
	return &BrevoService{
		apiKey:      cfg.APIKey,
		senderEmail: cfg.SenderEmail,
		senderName:  cfg.SenderName,
		endpoint:    brevoSendURL,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		log:         log,
	}
}

func (s *BrevoService) Enabled() bool {
	return s != nil && s.apiKey != "" && s.senderEmail != ""
}

func (s *BrevoService) Send(ctx context.Context, toName, toEmail, subject, htmlContent string) error {
	if !s.Enabled() {
		return nil
	}
	if toEmail == "" || !strings.Contains(toEmail, "@") {
		return fmt.Errorf("invalid recipient email: %s", toEmail)
	}

	recipientName := toName
	if recipientName == "" {
		recipientName = toEmail[:strings.Index(toEmail, "@")]
	}

	body, err := json.Marshal(brevoPayload{
		Sender:      map[string]string{"name": s.senderName, "email": s.senderEmail},
		To:          []map[string]string{{"email": toEmail, "name": recipientName}},
		Subject:     subject,
		HTMLContent: htmlContent,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("api-key", s.apiKey)
	req.Header.Set("content-type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("brevo returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// SendAsync sends in the background and logs the outcome.
func (s *BrevoService) SendAsync(toName, toEmail, subject, htmlContent string) {
	if !s.Enabled() {
		return
	}
	go func() {
		if err := s.Send(context.Background(), toName, toEmail, subject, htmlContent); err != nil {
			s.log.Error("failed to send email", zap.String("to", toEmail), zap.String("subject", subject), zap.Error(err))
			return
		}
		s.log.Debug("email sent", zap.String("to", toEmail), zap.String("subject", subject))
	}()
}
