// Package service coordinates generation jobs: it enforces the single-job
// gate, drives ingestion and the generation pipeline, and maintains the
// in-memory exam registry.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/searchlab/examgen-backend/internal/gate"
	"github.com/searchlab/examgen-backend/internal/ingest"
	"github.com/searchlab/examgen-backend/internal/metrics"
	"github.com/searchlab/examgen-backend/internal/model"
	"github.com/searchlab/examgen-backend/internal/pipeline"
	"github.com/searchlab/examgen-backend/internal/registry"
	"github.com/searchlab/examgen-backend/internal/stream"
)

// Domain errors.
var (
	ErrBusy             = errors.New("another generation job is already running")
	ErrExamNotFound     = errors.New("exam not found")
	ErrQuestionNotFound = errors.New("question not found in exam")
	ErrNoSourceMaterial = ingest.ErrNoSourceMaterial
)

// Ingestor runs the ingestion phase. Satisfied by ingest.Service.
type Ingestor interface {
	FromWeb(ctx context.Context, subject, gradeLevel string, sink stream.Sink) (model.IngestionSummary, error)
	FromUpload(ctx context.Context, subject, filename string, data []byte, sink stream.Sink) (model.IngestionSummary, string, error)
}

// SpecInferrer proposes an exam blueprint for an uploaded document.
// Satisfied by agent.SpecGenerator.
type SpecInferrer interface {
	Infer(ctx context.Context, documentText string) ([]model.QuestionSpec, error)
}

// ExamPipeline runs the generation phase. Satisfied by pipeline.Pipeline.
type ExamPipeline interface {
	Run(ctx context.Context, req pipeline.Request, sink stream.Sink) ([]model.ExamQuestion, model.CompiledExam, error)
	GenerateAndSolve(ctx context.Context, req pipeline.Request, sink stream.Sink) ([]model.ExamQuestion, error)
}

// ExamService owns the generation job lifecycle. At most one job runs at any
// time; callers that lose the race get ErrBusy immediately.
type ExamService struct {
	gate     *gate.Gate
	registry *registry.Registry
	ingestor Ingestor
	specs    SpecInferrer
	pipe     ExamPipeline
	log      zerolog.Logger
}

// NewExamService creates an ExamService.
func NewExamService(g *gate.Gate, reg *registry.Registry, ingestor Ingestor, specs SpecInferrer, pipe ExamPipeline, log zerolog.Logger) *ExamService {
	return &ExamService{
		gate:     g,
		registry: reg,
		ingestor: ingestor,
		specs:    specs,
		pipe:     pipe,
		log:      log.With().Str("component", "exam_service").Logger(),
	}
}

// Busy reports whether a generation job currently holds the gate.
func (s *ExamService) Busy() bool {
	return s.gate.Held()
}

// Presets returns the built-in exam blueprints.
func (s *ExamService) Presets() []model.Preset {
	return model.Presets
}

// GetExam returns a finished exam from the registry.
func (s *ExamService) GetExam(examID string) (*model.FullExam, error) {
	exam, ok := s.registry.Get(examID)
	if !ok {
		return nil, ErrExamNotFound
	}
	return exam, nil
}

// StartTopicJob starts a web-research generation job in the background and
// returns the event channel to stream from. Returns ErrBusy without side
// effects if another job holds the gate.
func (s *ExamService) StartTopicJob(req model.ExamFromTopicRequest) (*stream.Channel, error) {
	if !s.gate.TryAcquire() {
		return nil, ErrBusy
	}

	ch := stream.NewChannel()
	sink := stream.NewChannelSink(ch)
	go s.runJob("topic", sink, func(ctx context.Context, sink stream.Sink) (*model.FullExam, error) {
		summary, err := s.ingestor.FromWeb(ctx, req.Subject, req.GradeLevel, sink)
		if err != nil {
			return nil, err
		}
		return s.generate(ctx, pipeline.Request{
			Subject:    req.Subject,
			GradeLevel: req.GradeLevel,
			ExamTitle:  req.ExamTitle,
			Specs:      req.QuestionSpecs,
		}, summary, sink)
	})
	return ch, nil
}

// StartFileJob starts a generation job over an uploaded document. The exam
// blueprint is inferred from the document text. Returns ErrBusy without side
// effects if another job holds the gate.
func (s *ExamService) StartFileJob(req model.ExamFromFileRequest, filename string, data []byte) (*stream.Channel, error) {
	if !s.gate.TryAcquire() {
		return nil, ErrBusy
	}

	ch := stream.NewChannel()
	sink := stream.NewChannelSink(ch)
	go s.runJob("file", sink, func(ctx context.Context, sink stream.Sink) (*model.FullExam, error) {
		summary, text, err := s.ingestor.FromUpload(ctx, req.Subject, filename, data, sink)
		if err != nil {
			return nil, err
		}

		sink.Progress(pipeline.StepSpecGeneration, stream.StatusInProgress)
		specs, err := s.specs.Infer(ctx, text)
		if err != nil {
			return nil, err
		}
		sink.Progress(pipeline.StepSpecGeneration, stream.StatusCompleted)
		sink.Log(fmt.Sprintf("Inferred %d question specs from the document.", len(specs)))

		return s.generate(ctx, pipeline.Request{
			Subject:    req.Subject,
			GradeLevel: req.GradeLevel,
			ExamTitle:  req.ExamTitle,
			Specs:      specs,
		}, summary, sink)
	})
	return ch, nil
}

// runJob executes one background job while holding the gate. The sink's End
// fires on every exit path, including panics, so the stream always
// terminates.
func (s *ExamService) runJob(source string, sink stream.Sink, job func(ctx context.Context, sink stream.Sink) (*model.FullExam, error)) {
	start := time.Now()
	outcome := "failed"
	metrics.ActiveJobs.Inc()
	// End fires after Release: a consumer that has seen end_stream can start
	// the next job without racing the gate.
	defer sink.End()
	defer func() {
		s.gate.Release()
		metrics.ActiveJobs.Dec()
		metrics.JobsTotal.WithLabelValues(source, outcome).Inc()
		metrics.JobDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())
	}()
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Msg("Generation job panicked")
			sink.Error(fmt.Sprintf("internal error: %v", r))
		}
	}()

	// The job deliberately outlives the HTTP request that started it; a
	// disconnected client does not abort generation.
	exam, err := job(context.Background(), sink)
	if err != nil {
		s.log.Error().Err(err).Msg("Generation job failed")
		sink.Error(err.Error())
		return
	}

	outcome = "completed"
	metrics.QuestionsGenerated.Add(float64(len(exam.Questions)))
	s.registry.Put(exam)
	sink.Final(exam)
	s.log.Info().
		Str("exam_id", exam.ExamID).
		Int("questions", len(exam.Questions)).
		Int("exams_stored", s.registry.Len()).
		Msg("Generation job finished")
}

func (s *ExamService) generate(ctx context.Context, req pipeline.Request, summary model.IngestionSummary, sink stream.Sink) (*model.FullExam, error) {
	questions, compiled, err := s.pipe.Run(ctx, req, sink)
	if err != nil {
		return nil, err
	}

	return &model.FullExam{
		ExamID:            model.NewExamID(),
		IngestionSummary:  summary,
		ExamTitle:         req.ExamTitle,
		ExamPaperMarkdown: compiled.ExamPaper,
		AnswerKeyMarkdown: compiled.AnswerKey,
		Questions:         questions,
		SourcesUsed:       summary.IngestedSources,
	}, nil
}

// RegenerateQuestion synchronously replaces one question of a stored exam
// with a freshly generated and solved one of the same type. The replacement
// keeps the original question id and position. Runs under the gate, so it
// fails fast with ErrBusy while a full job is running.
func (s *ExamService) RegenerateQuestion(ctx context.Context, examID, questionID string) (model.ExamQuestion, error) {
	exam, ok := s.registry.Get(examID)
	if !ok {
		return model.ExamQuestion{}, ErrExamNotFound
	}

	var original *model.ExamQuestion
	for i := range exam.Questions {
		if exam.Questions[i].ID == questionID {
			original = &exam.Questions[i]
			break
		}
	}
	if original == nil {
		return model.ExamQuestion{}, ErrQuestionNotFound
	}

	if !s.gate.TryAcquire() {
		return model.ExamQuestion{}, ErrBusy
	}
	defer s.gate.Release()

	questions, err := s.pipe.GenerateAndSolve(ctx, pipeline.Request{
		Subject: exam.Subject(),
		Specs: []model.QuestionSpec{{
			QuestionType: original.QuestionType,
			Count:        1,
			Prompt:       "Generate a different version.",
		}},
	}, stream.NopSink{})
	if err != nil {
		metrics.RegenerationsTotal.WithLabelValues("failed").Inc()
		return model.ExamQuestion{}, fmt.Errorf("regenerate question: %w", err)
	}

	replacement := questions[0]
	replacement.ID = questionID
	if !s.registry.ReplaceQuestion(examID, replacement) {
		return model.ExamQuestion{}, ErrQuestionNotFound
	}

	metrics.RegenerationsTotal.WithLabelValues("completed").Inc()
	s.log.Info().Str("exam_id", examID).Str("question_id", questionID).Msg("Question regenerated")
	return replacement, nil
}
