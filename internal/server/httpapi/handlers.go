// Package httpapi exposes the sync server over HTTP JSON: account endpoints,
// the combined delta endpoint and per-table fallback operations.
package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"arcana/internal/common"
	"arcana/internal/models"
	"arcana/internal/server/services"
	"arcana/internal/shared"
)

type Handler struct {
	users *services.UserService
	sync  *services.SyncService
}

func NewHandler(users *services.UserService, sync *services.SyncService) *Handler {
	return &Handler{users: users, sync: sync}
}

type credentialsBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionBody struct {
	Token  string `json:"token"`
	UserID string `json:"user_id"`
}

func (h *Handler) Register(c *gin.Context) {
	var body credentialsBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json body"})
		return
	}

	session, err := h.users.Register(c.Request.Context(), body.Email, body.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sessionBody{Token: session.Token, UserID: session.UserID})
}

func (h *Handler) Login(c *gin.Context) {
	var body credentialsBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json body"})
		return
	}

	session, err := h.users.Login(c.Request.Context(), body.Email, body.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionBody{Token: session.Token, UserID: session.UserID})
}

func (h *Handler) Delta(c *gin.Context) {
	var req common.DeltaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json body"})
		return
	}

	resp, err := h.sync.Delta(c.Request.Context(), UserIDFromContext(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) Fetch(c *gin.Context) {
	var since *time.Time
	if raw := c.Query("since"); raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid since timestamp"})
			return
		}
		since = &t
	}

	records, err := h.sync.Fetch(c.Request.Context(), UserIDFromContext(c), models.Table(c.Param("table")), since)
	if err != nil {
		writeError(c, err)
		return
	}
	if records == nil {
		records = []json.RawMessage{}
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}

func (h *Handler) Upsert(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil || len(raw) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing record body"})
		return
	}

	err = h.sync.Upsert(c.Request.Context(), UserIDFromContext(c), models.Table(c.Param("table")), raw)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) Delete(c *gin.Context) {
	err := h.sync.Delete(c.Request.Context(), UserIDFromContext(c), models.Table(c.Param("table")), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// writeError maps the error taxonomy to HTTP statuses. Anything unmapped is a
// 500 with a generic body so internals never leak to clients.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, shared.ErrValidation):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, shared.ErrEmailAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, shared.ErrInvalidEmailPassword):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, shared.ErrOwnershipDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, shared.ErrTableNotSyncable):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, shared.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
