// Package api exposes the document tracking operations over HTTP. Identity
// claims arrive as headers injected by the fronting gateway after token
// verification; this layer adapts them and never inspects raw tokens.
package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/epw80/document-tracking-platform/pkg/document"
	"github.com/epw80/document-tracking-platform/pkg/identity"
	"github.com/epw80/document-tracking-platform/pkg/lifecycle"
	"github.com/epw80/document-tracking-platform/pkg/notify"
	"github.com/epw80/document-tracking-platform/pkg/storage"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Claim headers set by the fronting gateway
const (
	HeaderSub      = "X-Identity-Sub"
	HeaderUsername = "X-Identity-Username"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The gateway terminates origins in production
		return true
	},
}

// Handler serves the tracking API
type Handler struct {
	Service *lifecycle.Service
	Hub     *notify.Hub
	Logger  *slog.Logger
}

// NewRouter builds the gin engine with all routes registered
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", h.Health)
	r.GET("/ws/events", h.Events)

	apiGroup := r.Group("/api")
	{
		apiGroup.POST("/documents", h.Intake)
		apiGroup.POST("/documents/status", h.Advance)
		apiGroup.GET("/documents/one", h.Fetch)
		apiGroup.GET("/documents", h.List)
	}
	return r
}

// claims adapts gateway headers into identity claims
func claims(c *gin.Context) identity.Claims {
	return identity.Claims{
		Sub:      c.GetHeader(HeaderSub),
		Username: c.GetHeader(HeaderUsername),
	}
}

// owner resolves the request's owner scope from its claim headers
func (h *Handler) owner(c *gin.Context) identity.Owner {
	return identity.Resolve(claims(c), h.Logger)
}

// Health reports service liveness
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"subscribers": h.Hub.SubscriberCount(),
	})
}

type intakeRequest struct {
	ObjectKey    string `json:"objectKey" binding:"required"`
	QueuedTime   string `json:"queuedTime" binding:"required"`
	ExpiresAfter int64  `json:"expiresAfter"`
}

// Intake creates the tracking record for an uploaded document
func (h *Handler) Intake(c *gin.Context) {
	var req intakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	doc, err := h.Service.Intake(c.Request.Context(), req.ObjectKey, req.QueuedTime, claims(c), req.ExpiresAfter)
	if err != nil {
		var perr *lifecycle.PartialIntakeError
		if errors.As(err, &perr) {
			// Degraded success: tracked, but invisible to listings
			c.JSON(http.StatusMultiStatus, gin.H{
				"document": perr.Doc,
				"warning":  "list entry not written; document is fetchable by key only",
			})
			return
		}
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, doc)
}

type advanceRequest struct {
	ObjectKey string            `json:"objectKey" binding:"required"`
	Status    document.Status   `json:"status" binding:"required"`
	Metadata  map[string]string `json:"metadata"`
}

// Advance applies a forward-only status transition
func (h *Handler) Advance(c *gin.Context) {
	var req advanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	doc, err := h.Service.Advance(c.Request.Context(), req.ObjectKey, h.owner(c), req.Status, req.Metadata)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// Fetch returns one document's tracking record
func (h *Handler) Fetch(c *gin.Context) {
	objectKey := c.Query("objectKey")
	if objectKey == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "objectKey query parameter is required"})
		return
	}

	doc, err := h.Service.Fetch(c.Request.Context(), objectKey, h.owner(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// List enumerates the caller's documents for a UTC date range
func (h *Handler) List(c *gin.Context) {
	start, err := time.Parse("2006-01-02", c.Query("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
		return
	}
	end := start
	if raw := c.Query("endDate"); raw != "" {
		end, err = time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "endDate must be YYYY-MM-DD"})
			return
		}
	}

	entries, err := h.Service.List(c.Request.Context(), h.owner(c), start, end)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"documents": entries,
		"count":     len(entries),
	})
}

// Events upgrades the connection to the document event feed, scoped to the
// caller's owner identity.
func (h *Handler) Events(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.Logger.Error("failed to upgrade connection",
			slog.String("error", err.Error()))
		return
	}

	owner := h.owner(c)
	ownerID, scoped := owner.ID()
	sub := notify.NewClient(h.Hub, conn, ownerID, scoped, h.Logger)
	sub.Start()

	h.Logger.Info("event feed subscriber connected",
		slog.String("subscriberID", sub.ID()),
		slog.String("userId", ownerID))
}

// fail maps service errors onto HTTP statuses
func (h *Handler) fail(c *gin.Context, err error) {
	var verr *lifecycle.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
	case errors.Is(err, storage.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
	case errors.Is(err, storage.ErrAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"error": "document already exists; use the status endpoint to update it"})
	case errors.Is(err, document.ErrInvalidTransition), errors.Is(err, document.ErrInvalidStatus):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case storage.IsRetryable(err):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "tracking store unavailable, retry with backoff"})
	default:
		h.Logger.Error("request failed",
			slog.String("path", c.FullPath()),
			slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
