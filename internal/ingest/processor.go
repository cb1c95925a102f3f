package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"golang.org/x/net/html"
	"golang.org/x/sync/errgroup"

	"github.com/searchlab/examgen-backend/internal/config"
	"github.com/searchlab/examgen-backend/internal/vectorstore"
)

// maxDownloadBytes bounds how much of any one page is read.
const maxDownloadBytes = 2 << 20

// Processor downloads pages concurrently and extracts their text.
type Processor struct {
	client      *http.Client
	userAgent   string
	concurrency int
	log         zerolog.Logger
}

// NewProcessor creates a Processor from configuration.
func NewProcessor(cfg *config.Config, log zerolog.Logger) *Processor {
	return &Processor{
		client:      &http.Client{Timeout: cfg.DownloadTimeout},
		userAgent:   cfg.CrawlerUserAgent,
		concurrency: cfg.ConcurrentDownloads,
		log:         log.With().Str("component", "processor").Logger(),
	}
}

// Process downloads every URL with bounded concurrency and returns one
// document per page that yielded text. Failed or non-text downloads are
// skipped; source order is preserved.
func (p *Processor) Process(ctx context.Context, urls []string) []vectorstore.Document {
	slots := make([]vectorstore.Document, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, pageURL := range urls {
		i, pageURL := i, pageURL
		g.Go(func() error {
			text, err := p.fetchText(gctx, pageURL)
			if err != nil {
				p.log.Debug().Err(err).Str("url", pageURL).Msg("Skipping source")
				return nil
			}
			slots[i] = vectorstore.Document{Content: text, Source: pageURL}
			return nil
		})
	}
	_ = g.Wait()

	docs := make([]vectorstore.Document, 0, len(urls))
	for _, doc := range slots {
		if doc.Content != "" {
			docs = append(docs, doc)
		}
	}
	p.log.Info().Int("urls", len(urls)).Int("documents", len(docs)).Msg("Download pass complete")
	return docs
}

// DescribeImages turns image search hits into embeddable text documents. The
// image itself is never downloaded; its title stands in for its content.
func (p *Processor) DescribeImages(results []Result) []vectorstore.Document {
	docs := make([]vectorstore.Document, 0, len(results))
	for _, r := range results {
		content := "An image from " + r.Link
		if r.Title != "" {
			content = "Image of " + r.Title
		}
		docs = append(docs, vectorstore.Document{Content: content, Source: r.Link})
	}
	return docs
}

func (p *Processor) fetchText(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes))
	if err != nil {
		return "", err
	}

	contentType := resp.Header.Get("Content-Type")
	switch {
	case strings.Contains(contentType, "text/html"):
		return ExtractText(string(body)), nil
	case strings.Contains(contentType, "text/plain"):
		return strings.TrimSpace(string(body)), nil
	default:
		return "", fmt.Errorf("unsupported content type %q", contentType)
	}
}

// ExtractText strips an HTML document down to its visible text. Script,
// style, and other non-content elements are dropped and whitespace is
// collapsed.
func ExtractText(rawHTML string) string {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return ""
	}

	skip := map[string]struct{}{
		"script": {}, "style": {}, "noscript": {}, "iframe": {},
		"head": {}, "nav": {}, "footer": {},
	}

	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if _, skipped := skip[n.Data]; skipped {
				return
			}
		}
		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				sb.WriteString(text)
				sb.WriteByte(' ')
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)
	return strings.TrimSpace(sb.String())
}

// ExtractUpload converts an uploaded file's bytes to text. HTML files are
// stripped to visible text, anything else is treated as plain text. Binary
// content yields an empty string.
func ExtractUpload(filename string, data []byte) string {
	lower := strings.ToLower(filename)
	if strings.HasSuffix(lower, ".html") || strings.HasSuffix(lower, ".htm") {
		return ExtractText(string(data))
	}
	if !utf8.Valid(data) {
		return ""
	}
	return strings.TrimSpace(string(data))
}
