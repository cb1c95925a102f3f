// Package agent contains the LLM-backed agents of the generation pipeline:
// search-query generation, question generation (with retrieval context),
// type-dispatched solving, exam compilation, and question-spec inference
// for uploaded documents.
package agent

import (
	"context"
	"strings"

	"github.com/searchlab/examgen-backend/internal/config"
	"github.com/searchlab/examgen-backend/internal/vectorstore"
)

// Completer is the narrow LLM capability every agent consumes.
type Completer interface {
	CompleteJSON(ctx context.Context, prompt string, temperature float32, out interface{}) error
}

// ContextProvider builds the combined retrieval context block for a topic.
type ContextProvider interface {
	BuildContext(ctx context.Context, topic string) (string, error)
}

// ContextBuilder queries the topic's text and image collections and formats
// the hits into the combined context block generation prompts consume.
type ContextBuilder struct {
	store     *vectorstore.Store
	textTopK  int
	imageTopK int
}

// NewContextBuilder creates a ContextBuilder over the semantic store.
func NewContextBuilder(store *vectorstore.Store, cfg *config.Config) *ContextBuilder {
	return &ContextBuilder{
		store:     store,
		textTopK:  cfg.RetrieverTopK,
		imageTopK: cfg.ImageRetrieverTopK,
	}
}

// BuildContext retrieves text and image documents for the topic and renders
// them into one labeled context string. Empty retrieval results degrade to an
// explicit "No documents found." marker so prompts always receive a
// well-formed block.
func (b *ContextBuilder) BuildContext(ctx context.Context, topic string) (string, error) {
	textDocs, err := b.store.Retriever(vectorstore.CollectionName(topic, vectorstore.KindText), b.textTopK).Search(ctx, topic)
	if err != nil {
		return "", err
	}
	imageDocs, err := b.store.Retriever(vectorstore.CollectionName(topic, vectorstore.KindImages), b.imageTopK).Search(ctx, topic)
	if err != nil {
		return "", err
	}
	return CombineContext(textDocs, imageDocs), nil
}

// CombineContext renders retrieved text and image documents under the fixed
// section headers the question-generation prompt expects.
func CombineContext(textDocs, imageDocs []vectorstore.Document) string {
	return "Textual Content:\n" + FormatDocs(textDocs) + "\n\nAvailable Images:\n" + FormatDocs(imageDocs)
}

// FormatDocs renders documents as labeled blocks separated by rules. Image
// descriptions get an "[Image Source: …]" header so the model can tell
// illustrations from prose.
func FormatDocs(docs []vectorstore.Document) string {
	if len(docs) == 0 {
		return "No documents found."
	}

	blocks := make([]string, 0, len(docs))
	for _, doc := range docs {
		source := doc.Source
		if source == "" {
			source = "N/A"
		}
		header := "[Source: " + source + "]"
		if isImageContent(doc.Content) {
			header = "[Image Source: " + source + "]"
		}
		blocks = append(blocks, header+"\n"+doc.Content)
	}
	return strings.Join(blocks, "\n\n---\n\n")
}

func isImageContent(content string) bool {
	lower := strings.ToLower(content)
	return strings.HasPrefix(content, "Image of") ||
		strings.HasPrefix(content, "An image from") ||
		strings.Contains(lower, "description of an image")
}
