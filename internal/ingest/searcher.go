// Package ingest collects source material for a topic: web and image search,
// same-domain crawling, concurrent download and text extraction, and uploaded
// document processing. Everything it produces lands in the semantic store.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/searchlab/examgen-backend/internal/config"
)

const defaultSearchBaseURL = "https://www.googleapis.com/customsearch/v1"

// Result is one web or image search hit.
type Result struct {
	Link  string
	Title string
}

// Searcher queries the Google Custom Search JSON API.
type Searcher struct {
	client          *http.Client
	baseURL         string
	apiKey          string
	cseID           string
	maxResults      int
	maxImageResults int
	log             zerolog.Logger
}

// NewSearcher creates a Searcher from configuration.
func NewSearcher(cfg *config.Config, log zerolog.Logger) *Searcher {
	return &Searcher{
		client:          &http.Client{Timeout: cfg.DownloadTimeout},
		baseURL:         defaultSearchBaseURL,
		apiKey:          cfg.GoogleAPIKey,
		cseID:           cfg.GoogleCSEID,
		maxResults:      cfg.SearchMaxResults,
		maxImageResults: cfg.ImageSearchMaxResults,
		log:             log.With().Str("component", "searcher").Logger(),
	}
}

// Search runs every query as a web search and merges the hits, deduplicated
// by link, preserving query order.
func (s *Searcher) Search(ctx context.Context, queries []string) ([]Result, error) {
	return s.run(ctx, queries, "")
}

// SearchImages runs every query as an image search.
func (s *Searcher) SearchImages(ctx context.Context, queries []string) ([]Result, error) {
	return s.run(ctx, queries, "image")
}

func (s *Searcher) run(ctx context.Context, queries []string, searchType string) ([]Result, error) {
	perQuery := make([][]Result, len(queries))

	g, gctx := errgroup.WithContext(ctx)
	for i, query := range queries {
		i, query := i, query
		g.Go(func() error {
			hits, err := s.search(gctx, query, searchType)
			if err != nil {
				// A single failed query degrades the material, it does not
				// abort the job.
				s.log.Error().Err(err).Str("query", query).Msg("Search query failed")
				return nil
			}
			perQuery[i] = hits
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var merged []Result
	for _, hits := range perQuery {
		for _, hit := range hits {
			if _, dup := seen[hit.Link]; dup {
				continue
			}
			seen[hit.Link] = struct{}{}
			merged = append(merged, hit)
		}
	}
	s.log.Info().Int("queries", len(queries)).Int("results", len(merged)).Str("type", orText(searchType)).Msg("Search complete")
	return merged, nil
}

func (s *Searcher) search(ctx context.Context, query, searchType string) ([]Result, error) {
	num := s.maxResults
	if searchType == "image" {
		num = s.maxImageResults
	}

	params := url.Values{}
	params.Set("key", s.apiKey)
	params.Set("cx", s.cseID)
	params.Set("q", query)
	params.Set("num", strconv.Itoa(num))
	if searchType != "" {
		params.Set("searchType", searchType)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search API returned status %d", resp.StatusCode)
	}

	var body struct {
		Items []struct {
			Link  string `json:"link"`
			Title string `json:"title"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	results := make([]Result, 0, len(body.Items))
	for _, item := range body.Items {
		link := NormalizeURL(item.Link)
		if link == "" {
			continue
		}
		results = append(results, Result{Link: link, Title: item.Title})
	}
	return results, nil
}

func orText(searchType string) string {
	if searchType == "" {
		return "web"
	}
	return searchType
}
