package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/searchlab/examgen-backend/internal/model"
)

// Compiler renders solved questions into the final exam paper and answer key
// markdown documents.
type Compiler struct {
	llm Completer
	log zerolog.Logger
}

// NewCompiler creates a Compiler.
func NewCompiler(llm Completer, log zerolog.Logger) *Compiler {
	return &Compiler{llm: llm, log: log.With().Str("component", "compiler").Logger()}
}

// Compile renders the exam paper (questions only) and the answer key
// (solutions keyed by question id) as two markdown documents.
func (c *Compiler) Compile(ctx context.Context, examTitle string, questions []model.ExamQuestion) (model.CompiledExam, error) {
	raw, err := json.Marshal(questions)
	if err != nil {
		return model.CompiledExam{}, fmt.Errorf("marshal questions: %w", err)
	}

	var out model.CompiledExam
	if err := c.llm.CompleteJSON(ctx, compilePrompt(examTitle, string(raw)), 0.0, &out); err != nil {
		return model.CompiledExam{}, fmt.Errorf("compile exam: %w", err)
	}
	if out.ExamPaper == "" || out.AnswerKey == "" {
		return model.CompiledExam{}, fmt.Errorf("compile exam: model returned empty document")
	}

	c.log.Info().Int("questions", len(questions)).Msg("Exam compiled")
	return out, nil
}
