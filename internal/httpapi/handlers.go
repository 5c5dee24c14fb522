package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"dialin-bridge/internal/audit"
	"dialin-bridge/internal/conferencectl"
	"dialin-bridge/internal/directory"
	"dialin-bridge/internal/registry"
	"dialin-bridge/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.

type Handlers struct {
	Directory  directory.Store
	Registry   registry.Registry
	Conference *conferencectl.SinchClient

	// Audit is optional; when set, admin mutations are recorded best-effort.
	Audit *audit.Service
}

func (h Handlers) auditDirectoryChange(c *gin.Context, conferenceID string, pin int, message string) {
	if h.Audit == nil {
		return
	}
	actor := c.GetString("username")
	if err := h.Audit.LogDirectoryChange(c.Request.Context(), actor, c.ClientIP(), conferenceID, pin, message); err != nil {
		logger.FromGin(c).Warn("audit append failed", "err", err)
	}
}

func (h Handlers) auditConferenceControl(c *gin.Context, conferenceID, callID, message string) {
	if h.Audit == nil {
		return
	}
	actor := c.GetString("username")
	if err := h.Audit.LogConferenceControl(c.Request.Context(), actor, c.ClientIP(), conferenceID, callID, message); err != nil {
		logger.FromGin(c).Warn("audit append failed", "err", err)
	}
}

// --- Conferences ---

type createConferenceRequest struct {
	ConferenceID string `json:"conference_id"`
	RoomID       string `json:"room_id"`
}

func (h Handlers) CreateConference(c *gin.Context) {
	var req createConferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	conf := directory.Conference{ConferenceID: req.ConferenceID, RoomID: req.RoomID}
	if err := h.Directory.CreateConference(c.Request.Context(), conf); err != nil {
		abortStoreError(c, err)
		return
	}
	h.auditDirectoryChange(c, conf.ConferenceID, 0, "conference created")
	c.JSON(http.StatusCreated, conf)
}

func (h Handlers) ListConferences(c *gin.Context) {
	confs, err := h.Directory.ListConferences(c.Request.Context())
	if err != nil {
		abortStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conferences": confs})
}

func (h Handlers) DeleteConference(c *gin.Context) {
	conferenceID := c.Param("conference_id")
	if conferenceID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "conference_id required"})
		return
	}
	if err := h.Directory.DeleteConference(c.Request.Context(), conferenceID); err != nil {
		abortStoreError(c, err)
		return
	}
	h.auditDirectoryChange(c, conferenceID, 0, "conference deleted")
	c.Status(http.StatusNoContent)
}

// --- Users ---

type createUserRequest struct {
	PIN          int    `json:"pin"`
	ConferenceID string `json:"conference_id"`
	DisplayName  string `json:"display_name"`
	ExternalID   string `json:"external_id"`
	Role         string `json:"role"`
}

func (h Handlers) CreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	user := directory.User{
		PIN:          req.PIN,
		ConferenceID: req.ConferenceID,
		DisplayName:  req.DisplayName,
		ExternalID:   req.ExternalID,
		Role:         directory.ClassifyRole(directory.Role(req.Role), req.DisplayName),
	}
	if err := h.Directory.CreateUser(c.Request.Context(), user); err != nil {
		abortStoreError(c, err)
		return
	}
	h.auditDirectoryChange(c, user.ConferenceID, user.PIN, "user created")
	c.JSON(http.StatusCreated, user)
}

func (h Handlers) ListUsers(c *gin.Context) {
	users, err := h.Directory.ListUsers(c.Request.Context(), c.Query("conference_id"))
	if err != nil {
		abortStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

func (h Handlers) DeleteUser(c *gin.Context) {
	pin, ok := pinParam(c)
	if !ok {
		return
	}
	if err := h.Directory.DeleteUserByPin(c.Request.Context(), pin); err != nil {
		abortStoreError(c, err)
		return
	}
	h.auditDirectoryChange(c, "", pin, "user deleted")
	c.Status(http.StatusNoContent)
}

type updateExternalIDRequest struct {
	ExternalID string `json:"external_id"`
}

// UpdateUserExternalID rebinds a PIN to a different room-service identity.
// Live calls are unaffected; the external id is captured at join time.
func (h Handlers) UpdateUserExternalID(c *gin.Context) {
	pin, ok := pinParam(c)
	if !ok {
		return
	}
	var req updateExternalIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if err := h.Directory.UpdateUserExternalID(c.Request.Context(), pin, req.ExternalID); err != nil {
		abortStoreError(c, err)
		return
	}
	h.auditDirectoryChange(c, "", pin, "user external id updated")
	c.Status(http.StatusNoContent)
}

// ListConferencesAndUsers returns the full directory in one shot, grouped
// per conference. Convenience for provisioning dashboards.
func (h Handlers) ListConferencesAndUsers(c *gin.Context) {
	ctx := c.Request.Context()

	confs, err := h.Directory.ListConferences(ctx)
	if err != nil {
		abortStoreError(c, err)
		return
	}
	users, err := h.Directory.ListUsers(ctx, "")
	if err != nil {
		abortStoreError(c, err)
		return
	}

	byConference := make(map[string][]directory.User, len(confs))
	for _, u := range users {
		byConference[u.ConferenceID] = append(byConference[u.ConferenceID], u)
	}

	type conferenceWithUsers struct {
		directory.Conference
		Users []directory.User `json:"users"`
	}
	out := make([]conferenceWithUsers, 0, len(confs))
	for _, conf := range confs {
		cu := conferenceWithUsers{Conference: conf, Users: byConference[conf.ConferenceID]}
		if cu.Users == nil {
			cu.Users = []directory.User{}
		}
		out = append(out, cu)
	}
	c.JSON(http.StatusOK, gin.H{"conferences": out})
}

// --- Live calls ---

func (h Handlers) ListLiveCalls(c *gin.Context) {
	calls, err := h.Registry.ListAll(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "listing live calls failed"})
		return
	}
	if calls == nil {
		calls = []registry.LiveCall{}
	}
	c.JSON(http.StatusOK, gin.H{"calls": calls})
}

func (h Handlers) ListConferenceLiveCalls(c *gin.Context) {
	conferenceID := c.Param("conference_id")
	if conferenceID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "conference_id required"})
		return
	}
	calls, err := h.Registry.ListByConference(c.Request.Context(), conferenceID, false)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "listing live calls failed"})
		return
	}
	if calls == nil {
		calls = []registry.LiveCall{}
	}
	c.JSON(http.StatusOK, gin.H{"calls": calls})
}

// --- Conference control ---

func (h Handlers) MuteCall(c *gin.Context) {
	h.controlCall(c, "mute", h.Conference.Mute)
}

func (h Handlers) UnmuteCall(c *gin.Context) {
	h.controlCall(c, "unmute", h.Conference.Unmute)
}

// KickCall removes the leg from the voice conference. The registry row is
// dropped by the disconnect callback the vendor fires afterwards, so room
// presence is reconciled on the usual path.
func (h Handlers) KickCall(c *gin.Context) {
	h.controlCall(c, "kick", h.Conference.Kick)
}

func (h Handlers) controlCall(c *gin.Context, action string, fn func(ctx context.Context, conferenceID, callID string) error) {
	if h.Conference == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "conference control not configured"})
		return
	}
	callID := c.Param("call_id")
	if callID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "call_id required"})
		return
	}

	call, err := h.Registry.Get(c.Request.Context(), callID)
	if errors.Is(err, registry.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "call not found"})
		return
	}
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "call lookup failed"})
		return
	}

	if err := fn(c.Request.Context(), call.ConferenceID, callID); err != nil {
		logger.FromGin(c).Error("conference control failed", "action", action, "call_id", callID, "err", err)
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": action + " failed"})
		return
	}
	h.auditConferenceControl(c, call.ConferenceID, callID, action)
	c.Status(http.StatusNoContent)
}

// --- helpers ---

func pinParam(c *gin.Context) (int, bool) {
	pin, err := strconv.Atoi(c.Param("pin"))
	if err != nil || pin <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "pin must be a positive integer"})
		return 0, false
	}
	return pin, true
}

func abortStoreError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, directory.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, directory.ErrConflict):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "already exists"})
	case errors.Is(err, directory.ErrInvalidArgument):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid argument"})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "store failure"})
	}
}
