// Package conferencectl manages participants inside the vendor's voice
// conference: mute, unmute and kick through the Sinch Calling API.
package conferencectl

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// SinchClient calls the conference management endpoints. Credentials are
// the same application key/secret that signs voice callbacks.
type SinchClient struct {
	baseURL string
	auth    string

	httpClient *http.Client
}

type Option func(*SinchClient)

// WithHTTPClient overrides the default client, mainly for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(s *SinchClient) { s.httpClient = c }
}

func NewSinchClient(baseURL, applicationKey, applicationSecret string, opts ...Option) *SinchClient {
	s := &SinchClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		auth:       "Basic " + base64.StdEncoding.EncodeToString([]byte(applicationKey+":"+applicationSecret)),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SinchClient) Mute(ctx context.Context, conferenceID, callID string) error {
	return s.command(ctx, conferenceID, callID, "mute")
}

func (s *SinchClient) Unmute(ctx context.Context, conferenceID, callID string) error {
	return s.command(ctx, conferenceID, callID, "unmute")
}

// Kick removes the participant from the conference.
func (s *SinchClient) Kick(ctx context.Context, conferenceID, callID string) error {
	return s.do(ctx, http.MethodDelete, conferenceID, callID, nil)
}

func (s *SinchClient) command(ctx context.Context, conferenceID, callID, command string) error {
	body := []byte(fmt.Sprintf(`{"command":%q}`, command))
	return s.do(ctx, http.MethodPatch, conferenceID, callID, body)
}

func (s *SinchClient) do(ctx context.Context, method, conferenceID, callID string, body []byte) error {
	url := fmt.Sprintf("%s/calling/v1/conferences/id/%s/%s", s.baseURL, conferenceID, callID)

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", s.auth)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("conferencectl: %s %s: %w", method, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("conferencectl: %s %s: unexpected status %d: %s", method, url, resp.StatusCode, bytes.TrimSpace(snippet))
	}
	return nil
}
