package agent

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/searchlab/examgen-backend/internal/model"
)

// MathSolver solves math problems with step-by-step reasoning at zero
// temperature.
type MathSolver struct {
	llm Completer
	log zerolog.Logger
}

// NewMathSolver creates a MathSolver.
func NewMathSolver(llm Completer, log zerolog.Logger) *MathSolver {
	return &MathSolver{llm: llm, log: log.With().Str("component", "math_solver").Logger()}
}

// Solve produces a worked solution with a final answer.
func (s *MathSolver) Solve(ctx context.Context, questionText string) (model.GeneratedSolution, error) {
	var out model.GeneratedSolution
	if err := s.llm.CompleteJSON(ctx, mathSolutionPrompt(questionText), 0.0, &out); err != nil {
		return model.GeneratedSolution{}, fmt.Errorf("solve math problem: %w", err)
	}
	if out.Explanation == "" {
		return model.GeneratedSolution{}, fmt.Errorf("solve math problem: model returned empty explanation")
	}
	return out, nil
}

// GeneralSolver answers multiple-choice and open-ended questions. For MCQ it
// returns the correct option index, for open-ended a model answer.
type GeneralSolver struct {
	llm Completer
	log zerolog.Logger
}

// NewGeneralSolver creates a GeneralSolver.
func NewGeneralSolver(llm Completer, log zerolog.Logger) *GeneralSolver {
	return &GeneralSolver{llm: llm, log: log.With().Str("component", "general_solver").Logger()}
}

// Solve answers one question of the given type.
func (s *GeneralSolver) Solve(ctx context.Context, questionType model.QuestionType, questionText string, options []string) (model.GeneratedSolution, error) {
	var out model.GeneratedSolution
	prompt := generalSolutionPrompt(string(questionType), questionText, options)
	if err := s.llm.CompleteJSON(ctx, prompt, 0.0, &out); err != nil {
		return model.GeneratedSolution{}, fmt.Errorf("solve %s question: %w", questionType, err)
	}
	if out.Explanation == "" {
		return model.GeneratedSolution{}, fmt.Errorf("solve %s question: model returned empty explanation", questionType)
	}
	if questionType == model.QuestionTypeMCQ {
		if out.CorrectOptionIndex == nil {
			return model.GeneratedSolution{}, fmt.Errorf("solve MCQ question: model returned no option index")
		}
		if idx := *out.CorrectOptionIndex; idx < 0 || idx >= len(options) {
			return model.GeneratedSolution{}, fmt.Errorf("solve MCQ question: option index %d out of range", idx)
		}
	}
	return out, nil
}
