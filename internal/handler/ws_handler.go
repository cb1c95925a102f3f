package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/searchlab/examgen-backend/internal/model"
	"github.com/searchlab/examgen-backend/internal/service"
	"github.com/searchlab/examgen-backend/internal/stream"
	ws "github.com/searchlab/examgen-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins slice permits all origins (development mode).
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

// WSHandler serves the WebSocket variant of the generation stream.
type WSHandler struct {
	svc      *service.ExamService
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a WSHandler.
func NewWSHandler(svc *service.ExamService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		svc:      svc,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// GenerateExam godoc
// WS /ws/v1/exam/generate
// The first client frame carries the topic request; the server then streams
// generation events as JSON frames until end_stream.
func (h *WSHandler) GenerateExam(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	var req model.ExamFromTopicRequest
	if err := ws.ReadJSON(conn, &req); err != nil {
		ws.WriteError(conn, "invalid request frame")
		return
	}
	if req.Subject == "" || req.ExamTitle == "" || len(req.QuestionSpecs) == 0 {
		ws.WriteError(conn, "subject, exam_title and question_specs are required")
		return
	}
	for _, spec := range req.QuestionSpecs {
		if !spec.QuestionType.Valid() || spec.Count < 1 {
			ws.WriteError(conn, "invalid question spec")
			return
		}
	}

	ch, err := h.svc.StartTopicJob(req)
	if err != nil {
		if errors.Is(err, service.ErrBusy) {
			ws.WriteError(conn, "another generation job is already running")
		} else {
			ws.WriteError(conn, err.Error())
		}
		return
	}

	h.log.Info().Str("subject", req.Subject).Msg("Client attached to generation WebSocket")

	ctx := c.Request.Context()
	for {
		ev, err := ch.Next(ctx)
		if err != nil {
			h.log.Info().Msg("Client disconnected from generation WebSocket")
			return
		}
		if err := ws.WriteFrame(conn, ws.NewFrame(ev)); err != nil {
			h.log.Debug().Err(err).Msg("WebSocket write failed")
			return
		}
		if ev.Type == stream.EventEndStream {
			return
		}
	}
}
