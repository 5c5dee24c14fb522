package rooms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// SambaClient notifies the Digital Samba API about phone participants
// joining and leaving a room.
type SambaClient struct {
	baseURL      string
	developerKey string

	// sendCallerNumber controls whether caller line identities are
	// forwarded; some deployments must withhold them.
	sendCallerNumber bool

	httpClient *http.Client
}

type SambaOption func(*SambaClient)

// WithHTTPClient overrides the default client, mainly for tests.
func WithHTTPClient(c *http.Client) SambaOption {
	return func(s *SambaClient) { s.httpClient = c }
}

// WithoutCallerNumbers omits caller numbers from joined-notifications.
func WithoutCallerNumbers() SambaOption {
	return func(s *SambaClient) { s.sendCallerNumber = false }
}

func NewSambaClient(baseURL, developerKey string, opts ...SambaOption) *SambaClient {
	s := &SambaClient{
		baseURL:          baseURL,
		developerKey:     developerKey,
		sendCallerNumber: true,
		httpClient:       &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// joinedPayload is the wire shape of one phone participant. The API takes
// an array so several participants can be announced at once.
type joinedPayload struct {
	CallID       string `json:"call_id"`
	CallerNumber string `json:"caller_number,omitempty"`
	Name         string `json:"name,omitempty"`
	ExternalID   string `json:"external_id,omitempty"`
}

func (s *SambaClient) NotifyJoined(ctx context.Context, roomID string, p Participant) error {
	body := joinedPayload{
		CallID:     p.CallID,
		Name:       p.Name,
		ExternalID: p.ExternalID,
	}
	if s.sendCallerNumber {
		body.CallerNumber = formatCallerNumber(p.CallerNumber)
	}
	path := fmt.Sprintf("/api/v1/rooms/%s/phone-participants/joined", roomID)
	return s.post(ctx, path, []joinedPayload{body})
}

func (s *SambaClient) NotifyLeft(ctx context.Context, roomID, callID string) error {
	path := fmt.Sprintf("/api/v1/rooms/%s/phone-participants/left", roomID)
	return s.post(ctx, path, []string{callID})
}

func (s *SambaClient) post(ctx context.Context, path string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.developerKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("rooms: %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("rooms: %s: unexpected status %d: %s", path, resp.StatusCode, bytes.TrimSpace(snippet))
	}
	return nil
}

// formatCallerNumber converts digits-only numbers to international format;
// anything else (already-prefixed, anonymous, empty) passes through.
func formatCallerNumber(n string) string {
	if n == "" {
		return ""
	}
	for _, r := range n {
		if r < '0' || r > '9' {
			return n
		}
	}
	return "+" + n
}
