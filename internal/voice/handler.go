package voice

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"dialin-bridge/internal/stats"
	"dialin-bridge/pkg/logger"
)

const maxEventBodyBytes = 1 << 20

// WebhookHandler terminates the vendor's voice callbacks: it captures the
// raw body (the signature covers the exact bytes on the wire), validates
// the signature, dispatches to the state machine, and renders the SVAML
// response.
type WebhookHandler struct {
	Machine   *StateMachine
	Validator RequestValidator
	Monitor   *stats.Monitor
}

func (h WebhookHandler) HandleVoiceEvent(c *gin.Context) {
	log := logger.FromGin(c)

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxEventBodyBytes+1))
	if err != nil {
		log.Warn("reading callback body failed", "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	if len(body) > maxEventBodyBytes {
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": "body too large"})
		return
	}

	if h.Validator != nil && !h.Validator.Validate(c.Request, body) {
		log.Warn("callback signature validation failed")
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	ev, err := ParseEvent(body)
	if err != nil {
		log.Warn("callback parse failed", "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid event"})
		return
	}

	h.Monitor.EventReceived(ev.Event)
	ctx := logger.With(c.Request.Context(), log)

	var resp Response
	switch ev.Event {
	case EventIncomingCall:
		resp, err = h.Machine.OnIncomingCall(ctx, ev.CallID, ev.CLI)
	case EventPinInput:
		resp = h.Machine.OnPinEntered(ctx, ev.CallID, ev.Digits())
	case EventDisconnected:
		resp, err = h.Machine.OnDisconnected(ctx, ev.CallID)
	case EventAnsweredCall:
		// Answered-call events carry no decision for inbound dial-in.
		resp = Empty{}
	default:
		log.Warn("unsupported callback event", "event", ev.Event, "call_id", ev.CallID)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": ErrUnsupportedEvent.Error()})
		return
	}
	if err != nil {
		log.Error("callback handling failed", "event", ev.Event, "call_id", ev.CallID, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "event handling failed"})
		return
	}

	payload, err := Render(resp)
	if err != nil {
		log.Error("response render failed", "event", ev.Event, "call_id", ev.CallID, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "response render failed"})
		return
	}
	if payload == nil {
		c.Status(http.StatusOK)
		return
	}
	c.Data(http.StatusOK, "application/json", payload)
}
