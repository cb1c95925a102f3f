package model

import (
	"strings"

	"github.com/google/uuid"
)

// QuestionType enumerates the kinds of questions the pipeline can produce.
// The wire values match what clients send and what the prompt templates expect.
type QuestionType string

const (
	QuestionTypeMCQ         QuestionType = "MCQ"
	QuestionTypeOpenEnded   QuestionType = "Open-Ended"
	QuestionTypeMathProblem QuestionType = "Math Problem"
)

// Valid reports whether t is a known question type.
func (t QuestionType) Valid() bool {
	switch t {
	case QuestionTypeMCQ, QuestionTypeOpenEnded, QuestionTypeMathProblem:
		return true
	}
	return false
}

// QuestionSpec describes one section of the requested exam: how many
// questions of a given type to generate, optionally steered by a free-text
// prompt. Specs are immutable once submitted; one pipeline run consumes an
// ordered sequence of them.
type QuestionSpec struct {
	QuestionType QuestionType `json:"question_type" binding:"required"`
	Count        int          `json:"count" binding:"required,min=1,max=50"`
	Prompt       string       `json:"prompt"`
}

// GeneratedQuestion is the question-generation stage's intermediate output:
// a question without a solution. Options is only present for choice-type
// questions.
type GeneratedQuestion struct {
	QuestionText string   `json:"question_text"`
	Options      []string `json:"options,omitempty"`
	ImageURL     string   `json:"image_url,omitempty"`
}

// TaggedQuestion pairs a generated question with the type of the spec that
// produced it, so the solving stage can dispatch without re-deriving it.
type TaggedQuestion struct {
	Question GeneratedQuestion
	Type     QuestionType
}

// GeneratedSolution is the solving stage's output for a single question.
// CorrectOptionIndex is only meaningful for choice-type questions.
type GeneratedSolution struct {
	Explanation        string `json:"explanation"`
	FinalAnswer        string `json:"final_answer,omitempty"`
	CorrectOptionIndex *int   `json:"correct_option_index,omitempty"`
}

// ExamQuestion is a finalized question: a generated question zipped with its
// solution and given a stable opaque id.
type ExamQuestion struct {
	ID           string            `json:"id"`
	QuestionType QuestionType      `json:"question_type"`
	QuestionText string            `json:"question_text"`
	Options      []string          `json:"options,omitempty"`
	ImageURL     string            `json:"image_url,omitempty"`
	Solution     GeneratedSolution `json:"solution"`
}

// CompiledExam holds the compilation stage's two rendered documents.
type CompiledExam struct {
	ExamPaper string `json:"exam_paper"`
	AnswerKey string `json:"answer_key"`
}

// IngestionSummary describes what the ingestion phase fed into the semantic
// store for one job.
type IngestionSummary struct {
	Message               string   `json:"message"`
	ProcessedSourcesCount int      `json:"processed_sources_count"`
	TotalChunksIngested   int      `json:"total_chunks_ingested"`
	CollectionsCreated    []string `json:"collections_created"`
	IngestedSources       []string `json:"ingested_sources"`
}

// FullExam is the top-level aggregate produced by one successful pipeline
// run. It lives in the in-memory registry for the lifetime of the process
// and is only mutated by single-question regeneration.
type FullExam struct {
	ExamID            string           `json:"exam_id"`
	IngestionSummary  IngestionSummary `json:"ingestion_summary"`
	ExamTitle         string           `json:"exam_title"`
	ExamPaperMarkdown string           `json:"exam_paper_markdown"`
	AnswerKeyMarkdown string           `json:"answer_key_markdown"`
	Questions         []ExamQuestion   `json:"questions"`
	SourcesUsed       []string         `json:"sources_used"`
}

// Subject returns the subject the exam was generated for, recovered from the
// ingestion summary message ("Ingestion complete for '<subject>'.").
func (e *FullExam) Subject() string {
	parts := strings.SplitN(e.IngestionSummary.Message, "'", 3)
	if len(parts) < 3 {
		return ""
	}
	return parts[1]
}

// NewExamID mints an opaque exam identifier.
func NewExamID() string {
	return "exam-" + strings.ReplaceAll(uuid.New().String(), "-", "")
}

// NewQuestionID mints an opaque question identifier.
func NewQuestionID() string {
	return "q-" + strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
}

// ExamFromTopicRequest is the payload for POST /exam/from-topic.
type ExamFromTopicRequest struct {
	Subject       string         `json:"subject" binding:"required,min=2,max=200"`
	GradeLevel    string         `json:"grade_level" binding:"required,min=2,max=100"`
	ExamTitle     string         `json:"exam_title" binding:"required,min=3,max=255"`
	QuestionSpecs []QuestionSpec `json:"question_specs" binding:"required,min=1,dive"`
}

// ExamFromFileRequest carries the multipart form fields for POST /exam/from-file.
// The file itself is read separately by the handler.
type ExamFromFileRequest struct {
	ExamTitle  string `form:"exam_title" binding:"required,min=3,max=255"`
	Subject    string `form:"subject" binding:"required,min=2,max=200"`
	GradeLevel string `form:"grade_level" binding:"required,min=2,max=100"`
}
