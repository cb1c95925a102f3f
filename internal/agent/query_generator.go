package agent

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// QueryGenerator produces web search queries for a subject.
type QueryGenerator struct {
	llm Completer
	log zerolog.Logger
}

// NewQueryGenerator creates a QueryGenerator.
func NewQueryGenerator(llm Completer, log zerolog.Logger) *QueryGenerator {
	return &QueryGenerator{llm: llm, log: log.With().Str("component", "query_generator").Logger()}
}

// Queries generates n search queries for the subject and grade level.
// domain is "text" for article search or "image" for image search.
func (g *QueryGenerator) Queries(ctx context.Context, subject, gradeLevel string, n int, domain string) ([]string, error) {
	var out struct {
		Queries []string `json:"queries"`
	}
	if err := g.llm.CompleteJSON(ctx, queryPrompt(subject, gradeLevel, n, domain), 0.7, &out); err != nil {
		return nil, fmt.Errorf("generate %s queries: %w", domain, err)
	}
	if len(out.Queries) == 0 {
		return nil, fmt.Errorf("generate %s queries: model returned no queries", domain)
	}
	if len(out.Queries) > n {
		out.Queries = out.Queries[:n]
	}
	g.log.Debug().Strs("queries", out.Queries).Str("domain", domain).Msg("Generated search queries")
	return out.Queries, nil
}
