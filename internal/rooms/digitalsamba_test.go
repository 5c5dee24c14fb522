package rooms

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	method string
	path   string
	auth   string
	body   []byte
}

func captureServer(t *testing.T, status int) (*httptest.Server, *[]capturedRequest) {
	t.Helper()
	var captured []capturedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		captured = append(captured, capturedRequest{
			method: r.Method,
			path:   r.URL.Path,
			auth:   r.Header.Get("Authorization"),
			body:   body,
		})
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, &captured
}

func TestNotifyJoined_PayloadShape(t *testing.T) {
	srv, captured := captureServer(t, http.StatusOK)
	client := NewSambaClient(srv.URL, "dev-key")

	err := client.NotifyJoined(context.Background(), "room-1", Participant{
		CallID:       "c1",
		CallerNumber: "4512345678",
		Name:         "Alice",
		ExternalID:   "ext-1",
	})
	require.NoError(t, err)

	require.Len(t, *captured, 1)
	req := (*captured)[0]
	require.Equal(t, http.MethodPost, req.method)
	require.Equal(t, "/api/v1/rooms/room-1/phone-participants/joined", req.path)
	require.Equal(t, "Bearer dev-key", req.auth)

	var payload []map[string]any
	require.NoError(t, json.Unmarshal(req.body, &payload))
	require.Len(t, payload, 1)
	require.Equal(t, "c1", payload[0]["call_id"])
	require.Equal(t, "+4512345678", payload[0]["caller_number"])
	require.Equal(t, "Alice", payload[0]["name"])
	require.Equal(t, "ext-1", payload[0]["external_id"])
}

func TestNotifyJoined_WithoutCallerNumbers(t *testing.T) {
	srv, captured := captureServer(t, http.StatusOK)
	client := NewSambaClient(srv.URL, "dev-key", WithoutCallerNumbers())

	err := client.NotifyJoined(context.Background(), "room-1", Participant{
		CallID:       "c1",
		CallerNumber: "4512345678",
	})
	require.NoError(t, err)

	var payload []map[string]any
	require.NoError(t, json.Unmarshal((*captured)[0].body, &payload))
	_, present := payload[0]["caller_number"]
	require.False(t, present)
}

func TestNotifyLeft_PayloadShape(t *testing.T) {
	srv, captured := captureServer(t, http.StatusOK)
	client := NewSambaClient(srv.URL, "dev-key")

	err := client.NotifyLeft(context.Background(), "room-1", "c1")
	require.NoError(t, err)

	req := (*captured)[0]
	require.Equal(t, "/api/v1/rooms/room-1/phone-participants/left", req.path)

	var payload []string
	require.NoError(t, json.Unmarshal(req.body, &payload))
	require.Equal(t, []string{"c1"}, payload)
}

func TestNotify_UpstreamErrorIsReturned(t *testing.T) {
	srv, _ := captureServer(t, http.StatusBadGateway)
	client := NewSambaClient(srv.URL, "dev-key")

	err := client.NotifyJoined(context.Background(), "room-1", Participant{CallID: "c1"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "502")
}

func TestFormatCallerNumber(t *testing.T) {
	cases := map[string]string{
		"4512345678":  "+4512345678",
		"+4512345678": "+4512345678",
		"anonymous":   "anonymous",
		"":            "",
		"45 12 34":    "45 12 34",
	}
	for in, want := range cases {
		require.Equal(t, want, formatCallerNumber(in), "input %q", in)
	}
}
