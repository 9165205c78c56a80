package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/prepverse/mockportal-backend/internal/middleware"
	"github.com/prepverse/mockportal-backend/internal/service"
	ws "github.com/prepverse/mockportal-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler handles the WebSocket proctor stream: low-latency
// violation reporting and visibility signals from the test-taking app.
type WSHandler struct {
	sessionService *service.SessionService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(sessionService *service.SessionService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		sessionService: sessionService,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// ProctorStream godoc
// WS /ws/v1/student/attempt/stream
// Upgrades to WebSocket for real-time proctoring during an attempt.
func (h *WSHandler) ProctorStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	studentID := claims.UserID

	// The stream only makes sense during a live attempt.
	if _, err := h.sessionService.TimeRemaining(studentID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no attempt in progress"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().Int("student_id", studentID).Logger()
	wsLog.Info().Msg("Student connected to proctor stream")

	for {
		var msg ws.RequestPayload
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			break
		}

		switch msg.Action {
		case ws.ActionViolation:
			h.handleViolation(conn, wsLog, studentID, &msg)
		case ws.ActionVisibility:
			h.handleVisibility(conn, wsLog, studentID, &msg)
		case ws.ActionPing:
			h.handlePing(conn, studentID)
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			ws.WriteError(conn, "unknown action: "+string(msg.Action))
		}
	}
}

// handleViolation appends the event to the attempt's violation log and
// acks with the running total.
func (h *WSHandler) handleViolation(conn *websocket.Conn, wsLog zerolog.Logger, studentID int, msg *ws.RequestPayload) {
	if msg.Message == "" {
		ws.WriteError(conn, "message is required")
		return
	}

	if err := h.sessionService.RecordViolation(context.Background(), studentID, msg.Message); err != nil {
		ws.WriteError(conn, "no attempt in progress")
		return
	}

	count, _ := h.sessionService.ViolationCount(studentID)
	wsLog.Info().Str("message", msg.Message).Int("total", count).Msg("Violation recorded")

	ws.WriteTyped(conn, ws.LoggedResponse{Event: ws.EventLogged, Violations: count})
}

// handleVisibility persists an immediate snapshot when the app goes to
// the background, so force-kills right after lose nothing.
func (h *WSHandler) handleVisibility(conn *websocket.Conn, wsLog zerolog.Logger, studentID int, msg *ws.RequestPayload) {
	if msg.State != "hidden" {
		// Returning to the foreground needs no server action.
		ws.WriteTyped(conn, ws.SavedResponse{Event: ws.EventSaved})
		return
	}

	if err := h.sessionService.SaveNow(context.Background(), studentID); err != nil {
		ws.WriteError(conn, "no attempt in progress")
		return
	}

	wsLog.Debug().Msg("Visibility lost, snapshot saved")
	ws.WriteTyped(conn, ws.SavedResponse{Event: ws.EventSaved})
}

// handlePing answers with the authoritative server-side countdown.
func (h *WSHandler) handlePing(conn *websocket.Conn, studentID int) {
	remaining, err := h.sessionService.TimeRemaining(studentID)
	if err != nil {
		ws.WriteError(conn, "no attempt in progress")
		return
	}
	ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong, TimeRemaining: remaining})
}
