// Package handler exposes the HTTP surface: exam generation with SSE
// streaming, single-question regeneration, presets, and the WebSocket
// variant of the generation stream.
package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/searchlab/examgen-backend/internal/config"
	"github.com/searchlab/examgen-backend/internal/model"
	"github.com/searchlab/examgen-backend/internal/response"
	"github.com/searchlab/examgen-backend/internal/service"
	"github.com/searchlab/examgen-backend/internal/stream"
	"github.com/searchlab/examgen-backend/internal/validator"
)

// ExamHandler handles exam generation endpoints.
type ExamHandler struct {
	svc            *service.ExamService
	maxUploadBytes int64
	log            zerolog.Logger
}

// NewExamHandler creates an ExamHandler.
func NewExamHandler(svc *service.ExamService, cfg *config.Config, log zerolog.Logger) *ExamHandler {
	return &ExamHandler{
		svc:            svc,
		maxUploadBytes: cfg.MaxUploadBytes,
		log:            log.With().Str("component", "exam_handler").Logger(),
	}
}

// GenerateFromTopic godoc
// POST /exam/from-topic
// Starts a web-research generation job and streams its events as SSE.
func (h *ExamHandler) GenerateFromTopic(c *gin.Context) {
	var req model.ExamFromTopicRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	for _, spec := range req.QuestionSpecs {
		if !spec.QuestionType.Valid() {
			response.FailWithDetail(c, http.StatusBadRequest, response.ErrValidation,
				fmt.Sprintf("unknown question type %q", spec.QuestionType))
			return
		}
	}

	ch, err := h.svc.StartTopicJob(req)
	if err != nil {
		h.failStart(c, err)
		return
	}
	h.streamSSE(c, ch)
}

// GenerateFromFile godoc
// POST /exam/from-file
// Starts a generation job over an uploaded document and streams SSE.
func (h *ExamHandler) GenerateFromFile(c *gin.Context) {
	var req model.ExamFromFileRequest
	if err := c.ShouldBind(&req); err != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, validator.TranslateErrors(err))
		return
	}

	fileHeader, err := c.FormFile("example_paper")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrFileRequired)
		return
	}
	if fileHeader.Size > h.maxUploadBytes {
		response.Fail(c, http.StatusRequestEntityTooLarge, response.ErrFileTooLarge)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	data, err := io.ReadAll(file)
	file.Close()
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	// Reject blank uploads before taking the gate; a busy check must not be
	// burned on a file that can never produce an exam.
	if len(bytes.TrimSpace(data)) == 0 {
		response.Fail(c, http.StatusBadRequest, response.ErrEmptyFile)
		return
	}

	ch, err := h.svc.StartFileJob(req, fileHeader.Filename, data)
	if err != nil {
		h.failStart(c, err)
		return
	}
	h.streamSSE(c, ch)
}

// RegenerateQuestion godoc
// POST /exam/regenerate-question/:exam_id/:question_id
// Synchronously replaces one question of a stored exam.
func (h *ExamHandler) RegenerateQuestion(c *gin.Context) {
	examID := c.Param("exam_id")
	questionID := c.Param("question_id")

	question, err := h.svc.RegenerateQuestion(c.Request.Context(), examID, questionID)
	switch {
	case errors.Is(err, service.ErrExamNotFound), errors.Is(err, service.ErrQuestionNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	case errors.Is(err, service.ErrBusy):
		response.Fail(c, http.StatusTooManyRequests, response.ErrJobBusy)
		return
	case err != nil:
		response.FailWithDetail(c, http.StatusInternalServerError, response.ErrGenerationFailed, err.Error())
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"exam_id":  examID,
		"question": question,
	})
}

// GetExam godoc
// GET /exam/:exam_id
// Returns a finished exam from the registry.
func (h *ExamHandler) GetExam(c *gin.Context) {
	exam, err := h.svc.GetExam(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}
	response.Success(c, http.StatusOK, exam)
}

// Presets godoc
// GET /exam/presets
// Lists the built-in exam blueprints.
func (h *ExamHandler) Presets(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{"presets": h.svc.Presets()})
}

func (h *ExamHandler) failStart(c *gin.Context, err error) {
	if errors.Is(err, service.ErrBusy) {
		response.Fail(c, http.StatusTooManyRequests, response.ErrJobBusy)
		return
	}
	response.FailWithDetail(c, http.StatusInternalServerError, response.ErrInternal, err.Error())
}

// streamSSE forwards the job's events to the client until end_stream. A
// disconnected client stops the forwarding loop but not the job itself.
func (h *ExamHandler) streamSSE(c *gin.Context, ch *stream.Channel) {
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	ctx := c.Request.Context()
	for {
		ev, err := ch.Next(ctx)
		if err != nil {
			h.log.Info().Msg("Client disconnected from generation SSE")
			return
		}

		payload, err := json.Marshal(ev.Data)
		if err != nil {
			h.log.Error().Err(err).Str("event", string(ev.Type)).Msg("Dropping unserializable event")
			continue
		}
		fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", ev.Type, payload)
		c.Writer.Flush()

		if ev.Type == stream.EventEndStream {
			return
		}
	}
}
