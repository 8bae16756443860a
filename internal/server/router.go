package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/snapfest/backend/internal/catalog"
	"github.com/snapfest/backend/internal/contest"
	"github.com/snapfest/backend/internal/control"
)

const (
	adminSubjectContextKey = "snapfest_admin_subject"
	streamHeartbeatPeriod  = 25 * time.Second
)

var (
	errMissingEngine      = errors.New("event engine dependency required")
	errMissingCatalog     = errors.New("catalog dependency required")
	errMissingFlags       = errors.New("control flags dependency required")
	errMissingSessions    = errors.New("session store dependency required")
	errMissingAdminTokens = errors.New("admin token validator dependency required")
)

// EventHandler processes one inbound webhook event.
type EventHandler interface {
	HandleEvent(ctx context.Context, event contest.InboundEvent) contest.Outcome
}

// AdminTokenValidator checks admin bearer tokens and returns the subject.
type AdminTokenValidator interface {
	Validate(token string) (string, error)
}

// Dependencies wires the HTTP surface to the core components.
type Dependencies struct {
	Engine      EventHandler
	Catalog     *catalog.Catalog
	Flags       *control.Flags
	Sessions    *contest.Sessions
	AdminTokens AdminTokenValidator
	Dispatcher  *ChangeDispatcher
	Logger      *zap.Logger
}

// NewHTTPHandler builds the gin router: the webhook intake plus the
// token-guarded administrative surface.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Engine == nil {
		return nil, errMissingEngine
	}
	if deps.Catalog == nil {
		return nil, errMissingCatalog
	}
	if deps.Flags == nil {
		return nil, errMissingFlags
	}
	if deps.Sessions == nil {
		return nil, errMissingSessions
	}
	if deps.AdminTokens == nil {
		return nil, errMissingAdminTokens
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	dispatcher := deps.Dispatcher
	if dispatcher == nil {
		dispatcher = NewChangeDispatcher()
	}
	deps.Catalog.SetNotifier(dispatcher.Publish)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	handler := &httpHandler{
		engine:     deps.Engine,
		catalog:    deps.Catalog,
		flags:      deps.Flags,
		sessions:   deps.Sessions,
		tokens:     deps.AdminTokens,
		dispatcher: dispatcher,
		logger:     logger,
	}

	router.POST("/webhook/events", handler.handleWebhookEvents)

	admin := router.Group("/admin")
	admin.Use(handler.authorizeAdmin)
	admin.GET("/submissions", handler.handleListSubmissions)
	admin.POST("/submissions/batch", handler.handleBatchUpdate)
	admin.POST("/submissions/:key", handler.handleUpdateSubmission)
	admin.DELETE("/submissions", handler.handleClearSubmissions)
	admin.GET("/flags", handler.handleGetFlags)
	admin.POST("/flags", handler.handleSetFlags)
	admin.GET("/stream", handler.handleChangeStream)

	return router, nil
}

type httpHandler struct {
	engine     EventHandler
	catalog    *catalog.Catalog
	flags      *control.Flags
	sessions   *contest.Sessions
	tokens     AdminTokenValidator
	dispatcher *ChangeDispatcher
	logger     *zap.Logger
}

type webhookRequestPayload struct {
	Events []contest.InboundEvent `json:"events"`
}

type webhookResponsePayload struct {
	Results []contest.Outcome `json:"results"`
}

// handleWebhookEvents dispatches each event of the batch as its own task,
// mirroring how the chat platform delivers batches. Per-user ordering is
// enforced inside the engine, not here.
func (h *httpHandler) handleWebhookEvents(c *gin.Context) {
	var request webhookRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil || len(request.Events) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	results := make([]contest.Outcome, len(request.Events))
	var group sync.WaitGroup
	for index, event := range request.Events {
		group.Add(1)
		go func(index int, event contest.InboundEvent) {
			defer group.Done()
			results[index] = h.engine.HandleEvent(c.Request.Context(), event)
		}(index, event)
	}
	group.Wait()

	c.JSON(http.StatusOK, webhookResponsePayload{Results: results})
}

func (h *httpHandler) handleListSubmissions(c *gin.Context) {
	records := h.catalog.List()
	c.JSON(http.StatusOK, gin.H{
		"submissions": records,
		"count":       len(records),
	})
}

type updateSubmissionPayload struct {
	Status   *catalog.Status `json:"status"`
	IsWinner *bool           `json:"is_winner"`
}

func (h *httpHandler) handleUpdateSubmission(c *gin.Context) {
	key := c.Param("key")

	var request updateSubmissionPayload
	if err := c.ShouldBindJSON(&request); err != nil || (request.Status == nil && request.IsWinner == nil) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	// The winner update runs first: it is the only mutation that can be
	// refused while the record exists, so a refusal leaves the record
	// untouched rather than half-updated.
	if request.IsWinner != nil {
		if err := h.catalog.SetWinner(key, *request.IsWinner); err != nil {
			h.writeCatalogError(c, err)
			return
		}
	}
	if request.Status != nil {
		if err := h.catalog.SetStatus(key, *request.Status); err != nil {
			h.writeCatalogError(c, err)
			return
		}
	}

	record, _ := h.catalog.Get(key)
	c.JSON(http.StatusOK, record)
}

type batchUpdatePayload struct {
	Items []catalog.UpdateItem `json:"items"`
}

func (h *httpHandler) handleBatchUpdate(c *gin.Context) {
	var request batchUpdatePayload
	if err := c.ShouldBindJSON(&request); err != nil || len(request.Items) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	result := h.catalog.BatchUpdate(request.Items)
	c.JSON(http.StatusOK, result)
}

func (h *httpHandler) handleClearSubmissions(c *gin.Context) {
	removed := h.catalog.Clear()
	h.sessions.Clear()
	h.flags.ResetGuestCounter()
	h.logger.Info("catalog cleared by admin",
		zap.String("subject", c.GetString(adminSubjectContextKey)),
		zap.Int("removed", removed))
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

type flagsPayload struct {
	TestMode        *bool `json:"test_mode"`
	SubmissionsOpen *bool `json:"submissions_open"`
	WinnersLocked   *bool `json:"winners_locked"`
}

func (h *httpHandler) handleGetFlags(c *gin.Context) {
	testMode, submissionsOpen, winnersLocked := h.flags.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"test_mode":        testMode,
		"submissions_open": submissionsOpen,
		"winners_locked":   winnersLocked,
	})
}

func (h *httpHandler) handleSetFlags(c *gin.Context) {
	var request flagsPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	if request.TestMode != nil {
		h.flags.SetTestMode(*request.TestMode)
	}
	if request.SubmissionsOpen != nil {
		h.flags.SetSubmissionsOpen(*request.SubmissionsOpen)
	}
	if request.WinnersLocked != nil {
		h.flags.SetWinnersLocked(*request.WinnersLocked)
	}

	h.logger.Info("control flags updated",
		zap.String("subject", c.GetString(adminSubjectContextKey)))
	h.handleGetFlags(c)
}

// handleChangeStream serves the catalog change feed over server-sent
// events for live gallery tooling.
func (h *httpHandler) handleChangeStream(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	stream, cleanup := h.dispatcher.Subscribe(c.Request.Context())
	defer cleanup()

	heartbeat := time.NewTicker(streamHeartbeatPeriod)
	defer heartbeat.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case change, open := <-stream:
			if !open {
				return false
			}
			c.SSEvent("change", change)
			return true
		case <-heartbeat.C:
			c.SSEvent("heartbeat", time.Now().UTC().Format(time.RFC3339))
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

func (h *httpHandler) authorizeAdmin(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	subject, err := h.tokens.Validate(token)
	if err != nil {
		h.logger.Warn("admin token validation failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Set(adminSubjectContextKey, subject)
	c.Next()
}

func (h *httpHandler) writeCatalogError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, catalog.ErrUnknownKey):
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown_key"})
	case errors.Is(err, catalog.ErrWinnersLocked):
		c.JSON(http.StatusLocked, gin.H{"error": "winners_locked"})
	case errors.Is(err, catalog.ErrLocked):
		c.JSON(http.StatusLocked, gin.H{"error": "locked"})
	default:
		h.logger.Error("catalog update failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update_failed"})
	}
}
