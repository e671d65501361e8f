package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/examgate/examgate-backend/internal/config"
	"github.com/examgate/examgate-backend/internal/response"
	"github.com/examgate/examgate-backend/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	keepAliveInterval = 30 * time.Second
	writeTimeout      = 10 * time.Second
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allow-list permits all origins (development mode).
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

// MonitorHandler streams authorization and submission events for one exam to
// connected proctors over WebSocket, fed by Redis Pub/Sub.
type MonitorHandler struct {
	rdb            *redis.Client
	sessionService *service.SessionService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewMonitorHandler creates a new MonitorHandler.
func NewMonitorHandler(rdb *redis.Client, sessionService *service.SessionService, log zerolog.Logger, allowedOrigins []string) *MonitorHandler {
	return &MonitorHandler{
		rdb:            rdb,
		sessionService: sessionService,
		log:            log.With().Str("component", "monitor_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// MonitorExamWS godoc
// WS /ws/v1/proctor/exams/:serial/monitor?token=...
// Upgrades to WebSocket and forwards this exam's monitor events.
func (h *MonitorHandler) MonitorExamWS(c *gin.Context) {
	examSerial := c.Param("serial")

	exam, err := h.sessionService.GetOpenExam(c.Request.Context(), examSerial)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrExamNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().Str("exam", exam.Serial).Logger()
	wsLog.Info().Msg("Proctor attached to live monitor")

	reqCtx := c.Request.Context()
	pubsub := h.rdb.Subscribe(reqCtx, config.CacheKey.ExamMonitorChannel(exam.Serial))
	defer pubsub.Close()
	events := pubsub.Channel()

	// Discard inbound frames but notice the close handshake.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-reqCtx.Done():
			return
		case <-done:
			wsLog.Debug().Msg("Proctor disconnected")
			return
		case msg, ok := <-events:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
				wsLog.Warn().Err(err).Msg("Monitor write failed")
				return
			}
		case <-keepAlive.C:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
