// Package vectorstore implements the semantic document store: Redis-backed
// collections of text chunks with embedding vectors, searched by cosine
// similarity. Collections are keyed by sanitized topic name plus a kind
// suffix ("text" or "images").
package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/searchlab/examgen-backend/internal/config"
)

const (
	// KindText and KindImages are the two collection kinds a topic owns.
	KindText   = "text"
	KindImages = "images"

	collectionKeyPrefix = "vs:collection:"
	registryKey         = "vs:collections"
	embedBatchSize      = 100
)

// Document is one normalized text unit with its source identifier.
type Document struct {
	Content string `json:"content"`
	Source  string `json:"source"`
}

// chunkRecord is the stored form of one chunk.
type chunkRecord struct {
	Content   string    `json:"content"`
	Source    string    `json:"source"`
	Embedding []float32 `json:"embedding"`
}

// Embedder turns texts into embedding vectors. Satisfied by llm.Client.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Store manages all document collections.
type Store struct {
	rdb          *redis.Client
	embedder     Embedder
	chunkSize    int
	chunkOverlap int
	log          zerolog.Logger
}

// New creates a Store.
func New(rdb *redis.Client, embedder Embedder, cfg *config.Config, log zerolog.Logger) *Store {
	return &Store{
		rdb:          rdb,
		embedder:     embedder,
		chunkSize:    cfg.ChunkSize,
		chunkOverlap: cfg.ChunkOverlap,
		log:          log.With().Str("component", "vectorstore").Logger(),
	}
}

// CollectionName builds the collection name for a topic and kind.
func CollectionName(topic, kind string) string {
	return SanitizeName(topic) + "_" + kind
}

// Reset deletes every collection belonging to the topic. Each job starts
// from a clean slate so stale material from a previous run of the same
// subject cannot leak into prompts.
func (s *Store) Reset(ctx context.Context, topic string) error {
	prefix := SanitizeName(topic) + "_"

	names, err := s.rdb.SMembers(ctx, registryKey).Result()
	if err != nil {
		return fmt.Errorf("list collections: %w", err)
	}

	pipe := s.rdb.Pipeline()
	deleted := 0
	for _, name := range names {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		pipe.Del(ctx, collectionKeyPrefix+name)
		pipe.SRem(ctx, registryKey, name)
		deleted++
	}
	if deleted == 0 {
		return nil
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete collections: %w", err)
	}

	s.log.Warn().Str("topic", topic).Int("collections", deleted).Msg("Reset topic collections")
	return nil
}

// AddDocuments chunks, embeds, and stores the documents in the named
// collection. Returns the number of chunks ingested.
func (s *Store) AddDocuments(ctx context.Context, collection string, docs []Document) (int, error) {
	if len(docs) == 0 {
		s.log.Warn().Str("collection", collection).Msg("No documents provided")
		return 0, nil
	}

	var records []chunkRecord
	for _, doc := range docs {
		for _, chunk := range SplitText(doc.Content, s.chunkSize, s.chunkOverlap) {
			records = append(records, chunkRecord{Content: chunk, Source: doc.Source})
		}
	}
	if len(records) == 0 {
		s.log.Warn().Str("collection", collection).Msg("No processable chunks generated")
		return 0, nil
	}

	// Embed in batches to stay under API input limits.
	for start := 0; start < len(records); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(records) {
			end = len(records)
		}
		texts := make([]string, 0, end-start)
		for _, r := range records[start:end] {
			texts = append(texts, r.Content)
		}
		vectors, err := s.embedder.Embed(ctx, texts)
		if err != nil {
			return 0, fmt.Errorf("embed batch: %w", err)
		}
		for i := range vectors {
			records[start+i].Embedding = vectors[i]
		}
	}

	pipe := s.rdb.Pipeline()
	key := collectionKeyPrefix + collection
	for _, r := range records {
		raw, err := json.Marshal(r)
		if err != nil {
			return 0, fmt.Errorf("marshal chunk: %w", err)
		}
		pipe.RPush(ctx, key, raw)
	}
	pipe.SAdd(ctx, registryKey, collection)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("store chunks: %w", err)
	}

	s.log.Info().Str("collection", collection).Int("chunks", len(records)).Msg("Documents ingested")
	return len(records), nil
}

// Sources returns the sorted unique source identifiers in a collection.
// An unknown collection yields an empty slice.
func (s *Store) Sources(ctx context.Context, collection string) ([]string, error) {
	records, err := s.load(ctx, collection)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		if r.Source != "" {
			seen[r.Source] = struct{}{}
		}
	}
	sources := make([]string, 0, len(seen))
	for src := range seen {
		sources = append(sources, src)
	}
	sort.Strings(sources)
	return sources, nil
}

// Retriever returns a top-k similarity searcher over one collection.
func (s *Store) Retriever(collection string, k int) *Retriever {
	return &Retriever{store: s, collection: collection, k: k}
}

func (s *Store) load(ctx context.Context, collection string) ([]chunkRecord, error) {
	raws, err := s.rdb.LRange(ctx, collectionKeyPrefix+collection, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("load collection %s: %w", collection, err)
	}
	records := make([]chunkRecord, 0, len(raws))
	for _, raw := range raws {
		var r chunkRecord
		if err := json.Unmarshal([]byte(raw), &r); err != nil {
			s.log.Error().Err(err).Str("collection", collection).Msg("Skipping corrupt chunk record")
			continue
		}
		records = append(records, r)
	}
	return records, nil
}

// Retriever performs ranked similarity search against one collection.
type Retriever struct {
	store      *Store
	collection string
	k          int
}

// Search embeds the query and returns the top-k most similar documents.
// An empty or missing collection yields an empty result, not an error.
func (r *Retriever) Search(ctx context.Context, query string) ([]Document, error) {
	records, err := r.store.load(ctx, r.collection)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	vectors, err := r.store.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	queryVec := vectors[0]

	type scored struct {
		doc   Document
		score float64
	}
	results := make([]scored, 0, len(records))
	for _, rec := range records {
		results = append(results, scored{
			doc:   Document{Content: rec.Content, Source: rec.Source},
			score: CosineSimilarity(queryVec, rec.Embedding),
		})
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].score > results[j].score })

	k := r.k
	if k > len(results) {
		k = len(results)
	}
	docs := make([]Document, 0, k)
	for _, res := range results[:k] {
		docs = append(docs, res.doc)
	}
	return docs, nil
}

// CosineSimilarity computes the cosine of the angle between two vectors.
// Mismatched or zero-length vectors score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
