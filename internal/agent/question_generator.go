package agent

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/searchlab/examgen-backend/internal/model"
)

// GenerateRequest describes one question-generation call.
type GenerateRequest struct {
	Subject    string
	GradeLevel string
	Type       model.QuestionType
	Count      int
	Prompt     string
}

// QuestionGenerator writes exam questions grounded in retrieved context.
type QuestionGenerator struct {
	llm      Completer
	contexts ContextProvider
	log      zerolog.Logger
}

// NewQuestionGenerator creates a QuestionGenerator.
func NewQuestionGenerator(llm Completer, contexts ContextProvider, log zerolog.Logger) *QuestionGenerator {
	return &QuestionGenerator{
		llm:      llm,
		contexts: contexts,
		log:      log.With().Str("component", "question_generator").Logger(),
	}
}

// Generate retrieves context for the subject and writes req.Count questions
// of req.Type. The returned slice preserves the model's output order.
func (g *QuestionGenerator) Generate(ctx context.Context, req GenerateRequest) ([]model.GeneratedQuestion, error) {
	contextBlock, err := g.contexts.BuildContext(ctx, req.Subject)
	if err != nil {
		return nil, fmt.Errorf("build context: %w", err)
	}

	var out struct {
		Questions []model.GeneratedQuestion `json:"questions"`
	}
	prompt := questionPrompt(req.Subject, req.GradeLevel, string(req.Type), req.Count, req.Prompt, contextBlock)
	if err := g.llm.CompleteJSON(ctx, prompt, 0.3, &out); err != nil {
		return nil, fmt.Errorf("generate %s questions: %w", req.Type, err)
	}
	if len(out.Questions) == 0 {
		// One spec coming back empty does not fail the run; the pipeline
		// rejects only a fully empty question stage.
		g.log.Warn().Str("type", string(req.Type)).Int("requested", req.Count).Msg("Model returned no questions")
		return nil, nil
	}

	g.log.Info().
		Str("type", string(req.Type)).
		Int("requested", req.Count).
		Int("generated", len(out.Questions)).
		Msg("Questions generated")
	return out.Questions, nil
}
