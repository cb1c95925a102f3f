package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/searchlab/examgen-backend/internal/gate"
	"github.com/searchlab/examgen-backend/internal/model"
	"github.com/searchlab/examgen-backend/internal/pipeline"
	"github.com/searchlab/examgen-backend/internal/registry"
	"github.com/searchlab/examgen-backend/internal/stream"
)

type fakeIngestor struct {
	block   chan struct{} // if set, FromWeb waits until closed
	err     error
	summary model.IngestionSummary
}

func (f *fakeIngestor) FromWeb(ctx context.Context, subject, gradeLevel string, sink stream.Sink) (model.IngestionSummary, error) {
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return model.IngestionSummary{}, f.err
	}
	summary := f.summary
	if summary.Message == "" {
		summary.Message = "Ingestion complete for '" + subject + "'."
	}
	return summary, nil
}

func (f *fakeIngestor) FromUpload(ctx context.Context, subject, filename string, data []byte, sink stream.Sink) (model.IngestionSummary, string, error) {
	if f.err != nil {
		return model.IngestionSummary{}, "", f.err
	}
	return model.IngestionSummary{
		Message:               "Ingestion complete for '" + subject + "'.",
		ProcessedSourcesCount: 1,
		TotalChunksIngested:   3,
		IngestedSources:       []string{filename},
	}, string(data), nil
}

type fakeSpecs struct {
	specs []model.QuestionSpec
	err   error
}

func (f *fakeSpecs) Infer(context.Context, string) ([]model.QuestionSpec, error) {
	return f.specs, f.err
}

type fakePipeline struct {
	runErr   error
	runPanic bool
	genErr   error
}

func (f *fakePipeline) Run(ctx context.Context, req pipeline.Request, sink stream.Sink) ([]model.ExamQuestion, model.CompiledExam, error) {
	if f.runPanic {
		panic("solver exploded")
	}
	if f.runErr != nil {
		return nil, model.CompiledExam{}, f.runErr
	}
	var questions []model.ExamQuestion
	for _, spec := range req.Specs {
		for i := 0; i < spec.Count; i++ {
			questions = append(questions, model.ExamQuestion{
				ID:           model.NewQuestionID(),
				QuestionType: spec.QuestionType,
				QuestionText: "generated for " + req.Subject,
				Solution:     model.GeneratedSolution{Explanation: "because"},
			})
		}
	}
	return questions, model.CompiledExam{ExamPaper: "# " + req.ExamTitle, AnswerKey: "# Key"}, nil
}

func (f *fakePipeline) GenerateAndSolve(ctx context.Context, req pipeline.Request, sink stream.Sink) ([]model.ExamQuestion, error) {
	if f.genErr != nil {
		return nil, f.genErr
	}
	return []model.ExamQuestion{{
		ID:           model.NewQuestionID(),
		QuestionType: req.Specs[0].QuestionType,
		QuestionText: "regenerated",
		Solution:     model.GeneratedSolution{Explanation: "fresh"},
	}}, nil
}

func newTestService(ing Ingestor, specs SpecInferrer, pipe ExamPipeline) (*ExamService, *registry.Registry) {
	reg := registry.New()
	return NewExamService(gate.New(), reg, ing, specs, pipe, zerolog.Nop()), reg
}

func topicRequest() model.ExamFromTopicRequest {
	return model.ExamFromTopicRequest{
		Subject:    "Photosynthesis",
		GradeLevel: "High School",
		ExamTitle:  "Biology Quiz",
		QuestionSpecs: []model.QuestionSpec{
			{QuestionType: model.QuestionTypeMCQ, Count: 2},
		},
	}
}

// drain consumes events until end_stream, returning everything seen.
func drain(t *testing.T, ch *stream.Channel) []stream.Event {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var events []stream.Event
	for {
		ev, err := ch.Next(ctx)
		if err != nil {
			t.Fatalf("stream did not terminate: %v", err)
		}
		events = append(events, ev)
		if ev.Type == stream.EventEndStream {
			return events
		}
	}
}

func TestStartTopicJobProducesFinalResult(t *testing.T) {
	svc, reg := newTestService(&fakeIngestor{}, &fakeSpecs{}, &fakePipeline{})

	ch, err := svc.StartTopicJob(topicRequest())
	if err != nil {
		t.Fatalf("StartTopicJob returned error: %v", err)
	}
	events := drain(t, ch)

	var final *stream.Event
	for i := range events {
		if events[i].Type == stream.EventFinalResult {
			final = &events[i]
		}
	}
	if final == nil {
		t.Fatal("no final_result event")
	}
	exam, ok := final.Data.(*model.FullExam)
	if !ok {
		t.Fatalf("final result is %T", final.Data)
	}
	if len(exam.Questions) != 2 || exam.ExamTitle != "Biology Quiz" {
		t.Errorf("exam = %+v", exam)
	}
	if exam.Subject() != "Photosynthesis" {
		t.Errorf("Subject() = %q", exam.Subject())
	}
	if _, ok := reg.Get(exam.ExamID); !ok {
		t.Error("finished exam not in registry")
	}
}

func TestStartTopicJobBusy(t *testing.T) {
	blocker := make(chan struct{})
	svc, _ := newTestService(&fakeIngestor{block: blocker}, &fakeSpecs{}, &fakePipeline{})

	ch, err := svc.StartTopicJob(topicRequest())
	if err != nil {
		t.Fatalf("first job rejected: %v", err)
	}

	if _, err := svc.StartTopicJob(topicRequest()); !errors.Is(err, ErrBusy) {
		t.Fatalf("second job error = %v, want ErrBusy", err)
	}

	close(blocker)
	drain(t, ch)

	// The gate is released before end_stream is published, so a new job can
	// start as soon as the stream ends.
	ch2, err := svc.StartTopicJob(topicRequest())
	if err != nil {
		t.Fatalf("job after release rejected: %v", err)
	}
	drain(t, ch2)
}

func TestJobFailureStillEndsStream(t *testing.T) {
	svc, _ := newTestService(&fakeIngestor{err: errors.New("search quota exhausted")}, &fakeSpecs{}, &fakePipeline{})

	ch, err := svc.StartTopicJob(topicRequest())
	if err != nil {
		t.Fatalf("StartTopicJob returned error: %v", err)
	}
	events := drain(t, ch)

	sawError := false
	for _, ev := range events {
		if ev.Type == stream.EventError {
			sawError = true
		}
		if ev.Type == stream.EventFinalResult {
			t.Error("failed job emitted a final result")
		}
	}
	if !sawError {
		t.Error("no error event before end_stream")
	}
	if svc.Busy() {
		t.Error("gate still held after failed job")
	}
}

func TestJobPanicEndsStreamAndReleasesGate(t *testing.T) {
	svc, _ := newTestService(&fakeIngestor{}, &fakeSpecs{}, &fakePipeline{runPanic: true})

	ch, err := svc.StartTopicJob(topicRequest())
	if err != nil {
		t.Fatalf("StartTopicJob returned error: %v", err)
	}
	events := drain(t, ch)

	sawError := false
	for _, ev := range events {
		if ev.Type == stream.EventError {
			sawError = true
		}
	}
	if !sawError {
		t.Error("panicking job did not emit an error event")
	}
	if svc.Busy() {
		t.Error("gate still held after panicking job")
	}
}

func TestStartFileJobInfersSpecs(t *testing.T) {
	specs := &fakeSpecs{specs: []model.QuestionSpec{{QuestionType: model.QuestionTypeOpenEnded, Count: 3}}}
	svc, _ := newTestService(&fakeIngestor{}, specs, &fakePipeline{})

	ch, err := svc.StartFileJob(model.ExamFromFileRequest{
		ExamTitle: "Uploaded Exam", Subject: "Chemistry", GradeLevel: "College",
	}, "notes.txt", []byte("document text"))
	if err != nil {
		t.Fatalf("StartFileJob returned error: %v", err)
	}
	events := drain(t, ch)

	for _, ev := range events {
		if ev.Type == stream.EventFinalResult {
			exam := ev.Data.(*model.FullExam)
			if len(exam.Questions) != 3 {
				t.Errorf("got %d questions, want 3 from inferred specs", len(exam.Questions))
			}
			return
		}
	}
	t.Fatal("no final_result event")
}

func TestRegenerateQuestionPreservesID(t *testing.T) {
	svc, reg := newTestService(&fakeIngestor{}, &fakeSpecs{}, &fakePipeline{})
	exam := &model.FullExam{
		ExamID:           model.NewExamID(),
		IngestionSummary: model.IngestionSummary{Message: "Ingestion complete for 'Algebra'."},
		Questions: []model.ExamQuestion{
			{ID: "q-aaaa0000", QuestionType: model.QuestionTypeMCQ, QuestionText: "old"},
		},
	}
	reg.Put(exam)

	got, err := svc.RegenerateQuestion(context.Background(), exam.ExamID, "q-aaaa0000")
	if err != nil {
		t.Fatalf("RegenerateQuestion returned error: %v", err)
	}
	if got.ID != "q-aaaa0000" {
		t.Errorf("replacement id = %q, want original id", got.ID)
	}
	if got.QuestionText != "regenerated" {
		t.Errorf("replacement text = %q", got.QuestionText)
	}

	stored, _ := reg.Get(exam.ExamID)
	if stored.Questions[0].QuestionText != "regenerated" {
		t.Error("registry still holds the old question")
	}
	if svc.Busy() {
		t.Error("gate still held after regeneration")
	}
}

func TestRegenerateQuestionErrors(t *testing.T) {
	svc, reg := newTestService(&fakeIngestor{}, &fakeSpecs{}, &fakePipeline{genErr: errors.New("model refused")})
	exam := &model.FullExam{
		ExamID:    model.NewExamID(),
		Questions: []model.ExamQuestion{{ID: "q-bbbb1111", QuestionType: model.QuestionTypeOpenEnded}},
	}
	reg.Put(exam)

	if _, err := svc.RegenerateQuestion(context.Background(), "exam-missing", "q-bbbb1111"); !errors.Is(err, ErrExamNotFound) {
		t.Errorf("unknown exam error = %v", err)
	}
	if _, err := svc.RegenerateQuestion(context.Background(), exam.ExamID, "q-missing"); !errors.Is(err, ErrQuestionNotFound) {
		t.Errorf("unknown question error = %v", err)
	}
	if _, err := svc.RegenerateQuestion(context.Background(), exam.ExamID, "q-bbbb1111"); err == nil {
		t.Error("expected generation failure to propagate")
	}
	if svc.Busy() {
		t.Error("gate still held after failed regeneration")
	}
}

func TestRegenerateQuestionBusy(t *testing.T) {
	blocker := make(chan struct{})
	svc, reg := newTestService(&fakeIngestor{block: blocker}, &fakeSpecs{}, &fakePipeline{})
	exam := &model.FullExam{
		ExamID:    model.NewExamID(),
		Questions: []model.ExamQuestion{{ID: "q-cccc2222", QuestionType: model.QuestionTypeMCQ}},
	}
	reg.Put(exam)

	ch, err := svc.StartTopicJob(topicRequest())
	if err != nil {
		t.Fatalf("StartTopicJob returned error: %v", err)
	}

	if _, err := svc.RegenerateQuestion(context.Background(), exam.ExamID, "q-cccc2222"); !errors.Is(err, ErrBusy) {
		t.Errorf("regeneration during job error = %v, want ErrBusy", err)
	}

	close(blocker)
	drain(t, ch)
}
