package agent

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/searchlab/examgen-backend/internal/model"
)

// specInferenceLimit caps how much document text the blueprint prompt sees.
const specInferenceLimit = 12000

// SpecGenerator infers an exam blueprint from an uploaded document.
type SpecGenerator struct {
	llm Completer
	log zerolog.Logger
}

// NewSpecGenerator creates a SpecGenerator.
func NewSpecGenerator(llm Completer, log zerolog.Logger) *SpecGenerator {
	return &SpecGenerator{llm: llm, log: log.With().Str("component", "spec_generator").Logger()}
}

// Infer proposes question specifications for the document text. Specs with
// unknown question types or non-positive counts are dropped; an entirely
// unusable response is an error.
func (g *SpecGenerator) Infer(ctx context.Context, documentText string) ([]model.QuestionSpec, error) {
	if len(documentText) > specInferenceLimit {
		documentText = documentText[:specInferenceLimit]
	}

	var out struct {
		QuestionSpecs []model.QuestionSpec `json:"question_specs"`
	}
	if err := g.llm.CompleteJSON(ctx, specInferencePrompt(documentText), 0.2, &out); err != nil {
		return nil, fmt.Errorf("infer question specs: %w", err)
	}

	specs := make([]model.QuestionSpec, 0, len(out.QuestionSpecs))
	for _, spec := range out.QuestionSpecs {
		if !spec.QuestionType.Valid() || spec.Count < 1 {
			g.log.Warn().
				Str("type", string(spec.QuestionType)).
				Int("count", spec.Count).
				Msg("Dropping invalid inferred spec")
			continue
		}
		specs = append(specs, spec)
	}
	if len(specs) == 0 {
		return nil, fmt.Errorf("infer question specs: model returned no usable specs")
	}

	g.log.Info().Int("specs", len(specs)).Msg("Question specs inferred")
	return specs, nil
}
