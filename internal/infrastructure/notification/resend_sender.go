package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	notifdomain "github.com/storefront/backend/internal/domain/notification"
	"go.uber.org/zap"
)

// ResendSender delivers order-status emails through the Resend HTTP API.
type ResendSender struct {
	config     *Config
	httpClient *http.Client
	logger     *zap.Logger
}

// NewResendSender creates a new sender
func NewResendSender(config *Config, logger *zap.Logger) (*ResendSender, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &ResendSender{
		config:     config,
		httpClient: &http.Client{Timeout: config.RequestTimeout},
		logger:     logger,
	}, nil
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

type sendResponse struct {
	ID string `json:"id"`
}

// Send renders and delivers the email for a notification intent
func (s *ResendSender) Send(ctx context.Context, intent *notifdomain.Intent) error {
	msg, err := BuildMessage(intent)
	if err != nil {
		return err
	}

	body, err := json.Marshal(sendRequest{
		From:    s.config.FromAddress,
		To:      []string{intent.Recipient},
		Subject: msg.Subject,
		HTML:    msg.HTML,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal email request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.BaseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build email request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.config.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("email provider returned %d: %s", resp.StatusCode, string(respBody))
	}

	var out sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err == nil && out.ID != "" {
		s.logger.Info("Email sent",
			zap.String("email_id", out.ID),
			zap.String("order_id", intent.OrderID),
			zap.String("order_status", intent.OrderStatus),
		)
	}
	return nil
}
