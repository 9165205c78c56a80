package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/prepverse/mockportal-backend/internal/config"
	"github.com/prepverse/mockportal-backend/internal/response"
	"github.com/prepverse/mockportal-backend/internal/service"
)

const (
	refreshInterval   = 15 * time.Second
	keepAliveInterval = 30 * time.Second
	refreshTimeout    = 5 * time.Second // prevent slow queries from blocking the SSE loop
)

// MonitorHandler streams the live violation feed of a test to admins
// over SSE. Live events arrive via Redis pub/sub; durable counts are
// refreshed from PostgreSQL on a slow cadence.
type MonitorHandler struct {
	rdb            *redis.Client
	catalogService *service.CatalogService
	historyService *service.HistoryService
	log            zerolog.Logger
}

// NewMonitorHandler creates a new MonitorHandler.
func NewMonitorHandler(
	rdb *redis.Client,
	catalogService *service.CatalogService,
	historyService *service.HistoryService,
	log zerolog.Logger,
) *MonitorHandler {
	return &MonitorHandler{
		rdb:            rdb,
		catalogService: catalogService,
		historyService: historyService,
		log:            log.With().Str("component", "monitor_handler").Logger(),
	}
}

// MonitorTestSSE godoc
// GET /api/v1/admin/tests/:test_id/monitor
func (h *MonitorHandler) MonitorTestSSE(c *gin.Context) {
	testID, err := uuid.Parse(c.Param("test_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	test, err := h.catalogService.GetTestWithQuestions(c.Request.Context(), testID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrTestNotFound)
		return
	}

	reqCtx := c.Request.Context()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("Access-Control-Allow-Origin", "*")

	h.sendSnapshot(c, reqCtx, testID, test.Name, test.QuestionCount)

	pubsub := h.rdb.Subscribe(reqCtx, config.CacheKey.ViolationChannel(testID.String()))
	defer pubsub.Close()

	ch := pubsub.Channel()

	keepAliveTicker := time.NewTicker(keepAliveInterval)
	defer keepAliveTicker.Stop()

	refreshTicker := time.NewTicker(refreshInterval)
	defer refreshTicker.Stop()

	// Skip DB refreshes until a live event proves someone is testing.
	hasActivity := false

	h.log.Info().Str("test_id", testID.String()).Msg("Admin attached to violation monitor SSE")

	pingPayload, _ := json.Marshal(map[string]string{"type": "ping"})

	for {
		select {
		case <-reqCtx.Done():
			h.log.Info().Str("test_id", testID.String()).Msg("Admin detached from violation monitor SSE")
			return

		case msg := <-ch:
			// Forward raw JSON directly, no deserialization needed
			c.Writer.Write([]byte("data: "))
			c.Writer.Write([]byte(msg.Payload))
			c.Writer.Write([]byte("\n\n"))
			c.Writer.Flush()
			hasActivity = true

		case <-refreshTicker.C:
			if !hasActivity {
				continue
			}
			h.sendRefresh(c, reqCtx, testID)

		case <-keepAliveTicker.C:
			c.Writer.Write([]byte("data: "))
			c.Writer.Write(pingPayload)
			c.Writer.Write([]byte("\n\n"))
			c.Writer.Flush()
		}
	}
}

// sendSnapshot writes the first SSE event: test metadata plus the
// durable per-student violation totals.
func (h *MonitorHandler) sendSnapshot(c *gin.Context, parentCtx context.Context, testID uuid.UUID, testName string, questionCount int) {
	ctx, cancel := context.WithTimeout(parentCtx, refreshTimeout)
	defer cancel()

	report, err := h.historyService.ReportForTest(ctx, testID)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to fetch initial violation report")
		report = &service.TestReport{ViolationCounts: map[int]int64{}}
	}

	c.SSEvent("message", map[string]interface{}{
		"type": "snapshot",
		"data": map[string]interface{}{
			"test": map[string]interface{}{
				"id":              testID.String(),
				"name":            testName,
				"total_questions": questionCount,
			},
			"violation_counts": report.ViolationCounts,
			"total_violations": report.TotalViolations,
		},
	})
	c.Writer.Flush()
}

// sendRefresh re-polls the durable violation counts and sends a compact
// refresh event.
func (h *MonitorHandler) sendRefresh(c *gin.Context, parentCtx context.Context, testID uuid.UUID) {
	ctx, cancel := context.WithTimeout(parentCtx, refreshTimeout)
	defer cancel()

	report, err := h.historyService.ReportForTest(ctx, testID)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to fetch violation counts for refresh")
		return
	}

	c.SSEvent("message", map[string]interface{}{
		"type":             "refresh",
		"violation_counts": report.ViolationCounts,
		"total_violations": report.TotalViolations,
	})
	c.Writer.Flush()
}
