// Package httpsender transmits finalized reports to a backend endpoint as
// JSON over HTTP. Each Send runs on its own goroutine and resolves through
// the returned channel; the caller is never blocked on network I/O.
package httpsender

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/faultline-io/faultline/pkg/faultline"
)

const defaultTimeout = 30 * time.Second

// Option configures a Sender.
type Option func(*Sender)

// WithClient sets the HTTP client. Defaults to a client with a 30s timeout.
func WithClient(client *http.Client) Option {
	return func(s *Sender) {
		if client != nil {
			s.client = client
		}
	}
}

// WithAPIKey sets the value sent in the X-API-Key header.
func WithAPIKey(key string) Option {
	return func(s *Sender) {
		s.apiKey = key
	}
}

// WithLogger sets the diagnostic logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Sender) {
		s.logger = logger
	}
}

// Sender POSTs reports to a fixed endpoint.
type Sender struct {
	endpoint string
	apiKey   string
	client   *http.Client
	logger   *zap.Logger
}

var _ faultline.Sender = (*Sender)(nil)

// New creates a sender targeting endpoint.
func New(endpoint string, opts ...Option) *Sender {
	s := &Sender{
		endpoint: endpoint,
		client:   &http.Client{Timeout: defaultTimeout},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send transmits one report. The returned channel delivers exactly one
// value and is then closed.
func (s *Sender) Send(ctx context.Context, report faultline.StoredReport) <-chan error {
	result := make(chan error, 1)
	go func() {
		defer close(result)
		result <- s.post(ctx, report)
	}()
	return result
}

func (s *Sender) post(ctx context.Context, report faultline.StoredReport) error {
	body, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report %s: %w", report.SessionID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request for %s: %w", report.SessionID, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("X-API-Key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send report %s: %w", report.SessionID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("send report %s: backend returned %s", report.SessionID, resp.Status)
	}

	s.logger.Debug("report accepted by backend",
		zap.String("session_id", report.SessionID), zap.Int("status", resp.StatusCode))
	return nil
}
