package ingest

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/searchlab/examgen-backend/internal/config"
	"github.com/searchlab/examgen-backend/internal/model"
	"github.com/searchlab/examgen-backend/internal/stream"
	"github.com/searchlab/examgen-backend/internal/vectorstore"
)

// ErrNoSourceMaterial means ingestion finished without storing a single
// chunk, so generation has nothing to ground questions in.
var ErrNoSourceMaterial = errors.New("no source material could be ingested")

// Ingestion progress step ids.
const (
	StepStartIngestion  = "start_ingestion"
	StepTextQueryGen    = "text_query_gen"
	StepWebSearch       = "web_search"
	StepCrawling        = "crawling"
	StepTextProcessing  = "text_processing"
	StepImageQueryGen   = "image_query_gen"
	StepImageSearch     = "image_search"
	StepImageProcessing = "image_processing"
	StepFileProcessing  = "file_processing"
)

// QuerySource generates search queries for a subject. Satisfied by
// agent.QueryGenerator.
type QuerySource interface {
	Queries(ctx context.Context, subject, gradeLevel string, n int, domain string) ([]string, error)
}

// DocumentStore is the slice of the semantic store ingestion writes to.
// Satisfied by vectorstore.Store.
type DocumentStore interface {
	Reset(ctx context.Context, topic string) error
	AddDocuments(ctx context.Context, collection string, docs []vectorstore.Document) (int, error)
	Sources(ctx context.Context, collection string) ([]string, error)
}

// Service runs the ingestion phase: it gathers source material from the web
// or an uploaded file and loads it into the topic's collections.
type Service struct {
	queries   QuerySource
	searcher  *Searcher
	crawler   *Crawler
	processor *Processor
	store     DocumentStore
	cfg       *config.Config
	log       zerolog.Logger
}

// NewService creates an ingestion Service.
func NewService(queries QuerySource, searcher *Searcher, crawler *Crawler, processor *Processor, store DocumentStore, cfg *config.Config, log zerolog.Logger) *Service {
	return &Service{
		queries:   queries,
		searcher:  searcher,
		crawler:   crawler,
		processor: processor,
		store:     store,
		cfg:       cfg,
		log:       log.With().Str("component", "ingest").Logger(),
	}
}

// FromWeb researches the subject online and fills the topic's text and image
// collections. Progress is reported per stage through the sink.
func (s *Service) FromWeb(ctx context.Context, subject, gradeLevel string, sink stream.Sink) (model.IngestionSummary, error) {
	sink.Progress(StepStartIngestion, stream.StatusInProgress)
	if err := s.store.Reset(ctx, subject); err != nil {
		return model.IngestionSummary{}, fmt.Errorf("reset collections: %w", err)
	}
	sink.Progress(StepStartIngestion, stream.StatusCompleted)

	textChunks, textProcessed, err := s.ingestText(ctx, subject, gradeLevel, sink)
	if err != nil {
		return model.IngestionSummary{}, err
	}
	imageChunks, imageProcessed, err := s.ingestImages(ctx, subject, gradeLevel, sink)
	if err != nil {
		return model.IngestionSummary{}, err
	}

	if textChunks+imageChunks == 0 {
		return model.IngestionSummary{}, ErrNoSourceMaterial
	}

	var collections []string
	if textChunks > 0 {
		collections = append(collections, vectorstore.CollectionName(subject, vectorstore.KindText))
	}
	if imageChunks > 0 {
		collections = append(collections, vectorstore.CollectionName(subject, vectorstore.KindImages))
	}

	// The summary reports what actually landed in the store, not what the
	// processor attempted: sorted unique sources per created collection.
	seen := make(map[string]struct{})
	var sources []string
	for _, collection := range collections {
		stored, err := s.store.Sources(ctx, collection)
		if err != nil {
			return model.IngestionSummary{}, fmt.Errorf("list ingested sources: %w", err)
		}
		for _, src := range stored {
			if _, dup := seen[src]; dup {
				continue
			}
			seen[src] = struct{}{}
			sources = append(sources, src)
		}
	}
	sort.Strings(sources)

	summary := model.IngestionSummary{
		Message:               fmt.Sprintf("Ingestion complete for '%s'.", subject),
		ProcessedSourcesCount: textProcessed + imageProcessed,
		TotalChunksIngested:   textChunks + imageChunks,
		CollectionsCreated:    collections,
		IngestedSources:       sources,
	}
	s.log.Info().
		Str("subject", subject).
		Int("chunks", summary.TotalChunksIngested).
		Int("sources", summary.ProcessedSourcesCount).
		Msg("Web ingestion complete")
	return summary, nil
}

func (s *Service) ingestText(ctx context.Context, subject, gradeLevel string, sink stream.Sink) (int, int, error) {
	sink.Progress(StepTextQueryGen, stream.StatusInProgress)
	queries, err := s.queries.Queries(ctx, subject, gradeLevel, s.cfg.SearchQueries, "text")
	if err != nil {
		return 0, 0, err
	}
	sink.Progress(StepTextQueryGen, stream.StatusCompleted)
	sink.Log(fmt.Sprintf("Generated %d search queries.", len(queries)))

	sink.Progress(StepWebSearch, stream.StatusInProgress)
	hits, err := s.searcher.Search(ctx, queries)
	if err != nil {
		return 0, 0, fmt.Errorf("web search: %w", err)
	}
	sink.Progress(StepWebSearch, stream.StatusCompleted)
	sink.Log(fmt.Sprintf("Found %d web results.", len(hits)))

	sink.Progress(StepCrawling, stream.StatusInProgress)
	seeds := make([]string, 0, len(hits))
	for _, hit := range hits {
		seeds = append(seeds, hit.Link)
	}
	urls := s.crawler.Discover(ctx, seeds)
	sink.Progress(StepCrawling, stream.StatusCompleted)
	sink.Log(fmt.Sprintf("Crawling selected %d pages.", len(urls)))

	sink.Progress(StepTextProcessing, stream.StatusInProgress)
	docs := s.processor.Process(ctx, urls)
	chunks, err := s.store.AddDocuments(ctx, vectorstore.CollectionName(subject, vectorstore.KindText), docs)
	if err != nil {
		return 0, 0, fmt.Errorf("store text documents: %w", err)
	}
	sink.Progress(StepTextProcessing, stream.StatusCompleted)
	sink.Log(fmt.Sprintf("Ingested %d text chunks from %d pages.", chunks, len(docs)))

	return chunks, len(docs), nil
}

func (s *Service) ingestImages(ctx context.Context, subject, gradeLevel string, sink stream.Sink) (int, int, error) {
	sink.Progress(StepImageQueryGen, stream.StatusInProgress)
	queries, err := s.queries.Queries(ctx, subject, gradeLevel, s.cfg.ImageSearchQueries, "image")
	if err != nil {
		// Images enrich the exam but are not required for it.
		s.log.Warn().Err(err).Msg("Image query generation failed, continuing without images")
		sink.Log("Image search skipped.")
		return 0, 0, nil
	}
	sink.Progress(StepImageQueryGen, stream.StatusCompleted)

	sink.Progress(StepImageSearch, stream.StatusInProgress)
	hits, err := s.searcher.SearchImages(ctx, queries)
	if err != nil {
		s.log.Warn().Err(err).Msg("Image search failed, continuing without images")
		sink.Log("Image search skipped.")
		return 0, 0, nil
	}
	sink.Progress(StepImageSearch, stream.StatusCompleted)
	sink.Log(fmt.Sprintf("Found %d images.", len(hits)))

	sink.Progress(StepImageProcessing, stream.StatusInProgress)
	docs := s.processor.DescribeImages(hits)
	chunks, err := s.store.AddDocuments(ctx, vectorstore.CollectionName(subject, vectorstore.KindImages), docs)
	if err != nil {
		return 0, 0, fmt.Errorf("store image documents: %w", err)
	}
	sink.Progress(StepImageProcessing, stream.StatusCompleted)

	return chunks, len(docs), nil
}

// FromUpload loads an uploaded document into the topic's text collection and
// returns the extracted text for blueprint inference.
func (s *Service) FromUpload(ctx context.Context, subject, filename string, data []byte, sink stream.Sink) (model.IngestionSummary, string, error) {
	sink.Progress(StepFileProcessing, stream.StatusInProgress)
	if err := s.store.Reset(ctx, subject); err != nil {
		return model.IngestionSummary{}, "", fmt.Errorf("reset collections: %w", err)
	}

	text := ExtractUpload(filename, data)
	if text == "" {
		return model.IngestionSummary{}, "", ErrNoSourceMaterial
	}

	collection := vectorstore.CollectionName(subject, vectorstore.KindText)
	chunks, err := s.store.AddDocuments(ctx, collection, []vectorstore.Document{{Content: text, Source: filename}})
	if err != nil {
		return model.IngestionSummary{}, "", fmt.Errorf("store upload: %w", err)
	}
	if chunks == 0 {
		return model.IngestionSummary{}, "", ErrNoSourceMaterial
	}
	sink.Progress(StepFileProcessing, stream.StatusCompleted)
	sink.Log(fmt.Sprintf("Processed '%s' into %d chunks.", filename, chunks))

	summary := model.IngestionSummary{
		Message:               fmt.Sprintf("Ingestion complete for '%s'.", subject),
		ProcessedSourcesCount: 1,
		TotalChunksIngested:   chunks,
		CollectionsCreated:    []string{collection},
		IngestedSources:       []string{filename},
	}
	s.log.Info().Str("subject", subject).Str("file", filename).Int("chunks", chunks).Msg("Upload ingestion complete")
	return summary, text, nil
}
