package voice

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func newWebhookRouter(t *testing.T, validator RequestValidator) (*gin.Engine, machineFixture) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	fx := newMachineFixture(t)
	h := WebhookHandler{Machine: fx.machine, Validator: validator}

	r := gin.New()
	r.POST("/webhooks/sinch/voice", h.HandleVoiceEvent)
	return r, fx
}

func postEvent(r *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/sinch/voice", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandleVoiceEvent_IncomingCallReturnsMenu(t *testing.T) {
	r, _ := newWebhookRouter(t, nil)

	w := postEvent(r, `{"event":"ice","callid":"c1","cli":"4512345678"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	action := out["action"].(map[string]any)
	require.Equal(t, "runMenu", action["name"])
}

func TestHandleVoiceEvent_PinInputConnects(t *testing.T) {
	r, fx := newWebhookRouter(t, nil)

	w := postEvent(r, `{"event":"pie","callid":"c1","menuResult":{"type":"return","value":"1234"}}`)
	require.Equal(t, http.StatusOK, w.Code)

	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	action := out["action"].(map[string]any)
	require.Equal(t, "connectConf", action["name"])
	require.Equal(t, "conf-1", action["conferenceId"])
	fx.rec.Wait()
}

func TestHandleVoiceEvent_DisconnectHasEmptyBody(t *testing.T) {
	r, _ := newWebhookRouter(t, nil)

	w := postEvent(r, `{"event":"dice","callid":"c1"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, w.Body.Bytes())
}

func TestHandleVoiceEvent_AnsweredCallHasEmptyBody(t *testing.T) {
	r, _ := newWebhookRouter(t, nil)

	w := postEvent(r, `{"event":"ace","callid":"c1"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, w.Body.Bytes())
}

func TestHandleVoiceEvent_RejectsUnsupportedEvent(t *testing.T) {
	r, _ := newWebhookRouter(t, nil)

	w := postEvent(r, `{"event":"notify","callid":"c1"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleVoiceEvent_RejectsInvalidBody(t *testing.T) {
	r, _ := newWebhookRouter(t, nil)

	w := postEvent(r, `not json`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = postEvent(r, `{"event":"ice"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleVoiceEvent_SignatureGate(t *testing.T) {
	secret := base64.StdEncoding.EncodeToString([]byte("super-secret-key"))
	validator := NewSinchSignatureValidator("app-key", secret)
	r, _ := newWebhookRouter(t, validator)

	body := []byte(`{"event":"ice","callid":"c1","cli":"4512345678"}`)

	// Unsigned request is refused.
	w := postEvent(r, string(body))
	require.Equal(t, http.StatusUnauthorized, w.Code)

	// Properly signed request passes.
	req := httptest.NewRequest(http.MethodPost, "/webhooks/sinch/voice", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Timestamp", "2026-08-28T10:00:00Z")
	req.Header.Set("Authorization", validator.Sign(http.MethodPost, "application/json", "2026-08-28T10:00:00Z", "/webhooks/sinch/voice", body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}
