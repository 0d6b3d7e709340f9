// Package sms sends booking reminders as text messages. Real carriers sit
// behind an HTTP webhook; local runs use the no-op sender.
package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Sender delivers a text message. ProviderID names the backend in delivery
// records.
type Sender interface {
	Send(ctx context.Context, to string, body string) error
	ProviderID() string
}

const defaultWebhookTimeout = 5 * time.Second

type WebhookConfig struct {
	URL     string
	Token   string
	Timeout time.Duration
}

// WebhookSender posts {"to","body"} as JSON and treats any 2xx as delivered.
type WebhookSender struct {
	url   string
	token string
	http  *http.Client
}

type webhookMessage struct {
	To   string `json:"to"`
	Body string `json:"body"`
}

func NewWebhookSender(cfg WebhookConfig) *WebhookSender {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultWebhookTimeout
	}
	return &WebhookSender{
		url:   strings.TrimSpace(cfg.URL),
		token: strings.TrimSpace(cfg.Token),
		http:  &http.Client{Timeout: cfg.Timeout},
	}
}

func (s *WebhookSender) ProviderID() string {
	return "sms-webhook"
}

func (s *WebhookSender) Send(ctx context.Context, to string, body string) error {
	if s.url == "" {
		return errors.New("sms webhook url not configured")
	}
	to = strings.TrimSpace(to)
	if to == "" {
		return errors.New("sms recipient is empty")
	}
	raw, err := json.Marshal(webhookMessage{To: to, Body: body})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("sms webhook: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		if msg := strings.TrimSpace(string(detail)); msg != "" {
			return fmt.Errorf("sms webhook returned %d: %s", resp.StatusCode, msg)
		}
		return fmt.Errorf("sms webhook returned %d", resp.StatusCode)
	}
	return nil
}

// NoopSender accepts every message.
type NoopSender struct{}

func NewNoopSender() *NoopSender {
	return &NoopSender{}
}

func (s *NoopSender) ProviderID() string {
	return "sms-noop"
}

func (s *NoopSender) Send(_ context.Context, _ string, _ string) error {
	return nil
}
