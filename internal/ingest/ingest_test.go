package ingest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/searchlab/examgen-backend/internal/config"
	"github.com/searchlab/examgen-backend/internal/stream"
	"github.com/searchlab/examgen-backend/internal/vectorstore"
)

func testConfig() *config.Config {
	return &config.Config{
		GoogleAPIKey:        "test-key",
		GoogleCSEID:         "test-cx",
		SearchMaxResults:    10,
		DownloadTimeout:     2 * time.Second,
		ConcurrentDownloads: 3,
		MaxDiscoveredURLs:   5,
		CrawlerUserAgent:    "TestBot/1.0",
	}
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"clean", "https://example.com/a", "https://example.com/a"},
		{"backslashes", `https:\\example.com\a`, "https://example.com/a"},
		{"collapsed scheme", "https:/example.com/a", "https://example.com/a"},
		{"collapsed http", "http:/example.com", "http://example.com"},
		{"surrounding space", "  https://example.com  ", "https://example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeURL(tt.in); got != tt.want {
				t.Errorf("NormalizeURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSearcherMergesAndDeduplicates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "test-key" || r.URL.Query().Get("cx") != "test-cx" {
			t.Errorf("missing credentials in query: %s", r.URL.RawQuery)
		}
		switch r.URL.Query().Get("q") {
		case "first":
			fmt.Fprint(w, `{"items": [{"link": "https://a.com/1", "title": "A"}, {"link": "https://b.com/2", "title": "B"}]}`)
		default:
			fmt.Fprint(w, `{"items": [{"link": "https://b.com/2", "title": "B again"}, {"link": "https://c.com/3", "title": "C"}]}`)
		}
	}))
	defer srv.Close()

	s := NewSearcher(testConfig(), zerolog.Nop())
	s.baseURL = srv.URL

	results, err := s.Search(context.Background(), []string{"first", "second"})
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3 after dedupe: %+v", len(results), results)
	}
	if results[0].Link != "https://a.com/1" || results[2].Link != "https://c.com/3" {
		t.Errorf("results out of order: %+v", results)
	}
}

func TestSearcherImageTypeParameter(t *testing.T) {
	var gotType atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotType.Store(r.URL.Query().Get("searchType"))
		fmt.Fprint(w, `{"items": []}`)
	}))
	defer srv.Close()

	s := NewSearcher(testConfig(), zerolog.Nop())
	s.baseURL = srv.URL

	if _, err := s.SearchImages(context.Background(), []string{"diagram"}); err != nil {
		t.Fatalf("SearchImages returned error: %v", err)
	}
	if gotType.Load() != "image" {
		t.Errorf("searchType = %v, want image", gotType.Load())
	}
}

func TestSearcherToleratesFailedQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") == "bad" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		fmt.Fprint(w, `{"items": [{"link": "https://a.com/1", "title": "A"}]}`)
	}))
	defer srv.Close()

	s := NewSearcher(testConfig(), zerolog.Nop())
	s.baseURL = srv.URL

	results, err := s.Search(context.Background(), []string{"bad", "good"})
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("got %d results, want 1 from the surviving query", len(results))
	}
}

func TestCrawlerDiscoverSameDomainOnly(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, `<html><body>
			<a href="/article/one">one</a>
			<a href="%s/article/two">two</a>
			<a href="https://other.example.com/elsewhere">offsite</a>
			<a href="/login">login</a>
			<a href="/styles.css">styles</a>
		</body></html>`, srv.URL)
	}))
	defer srv.Close()

	c := NewCrawler(testConfig(), zerolog.Nop())
	urls := c.Discover(context.Background(), []string{srv.URL + "/"})

	want := map[string]bool{
		srv.URL + "/":            true,
		srv.URL + "/article/one": true,
		srv.URL + "/article/two": true,
	}
	if len(urls) != len(want) {
		t.Fatalf("urls = %v, want %d entries", urls, len(want))
	}
	for _, u := range urls {
		if !want[u] {
			t.Errorf("unexpected url %q", u)
		}
	}
}

func TestCrawlerDiscoverCapsURLs(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		for i := 0; i < 20; i++ {
			fmt.Fprintf(w, `<a href="/page/%d">p</a>`, i)
		}
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.MaxDiscoveredURLs = 4
	c := NewCrawler(cfg, zerolog.Nop())

	urls := c.Discover(context.Background(), []string{srv.URL + "/"})
	if len(urls) != 4 {
		t.Errorf("got %d urls, want cap of 4", len(urls))
	}
}

func TestProcessorExtractsTextAndSkipsFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/html":
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, `<html><head><script>junk()</script></head><body><p>Visible prose.</p></body></html>`)
		case "/plain":
			w.Header().Set("Content-Type", "text/plain")
			fmt.Fprint(w, "plain text body")
		case "/binary":
			w.Header().Set("Content-Type", "application/octet-stream")
			w.Write([]byte{0x00, 0x01})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	p := NewProcessor(testConfig(), zerolog.Nop())
	docs := p.Process(context.Background(), []string{
		srv.URL + "/html",
		srv.URL + "/missing",
		srv.URL + "/binary",
		srv.URL + "/plain",
	})

	if len(docs) != 2 {
		t.Fatalf("got %d documents, want 2: %+v", len(docs), docs)
	}
	if docs[0].Content != "Visible prose." {
		t.Errorf("html doc content = %q", docs[0].Content)
	}
	if docs[1].Content != "plain text body" {
		t.Errorf("plain doc content = %q", docs[1].Content)
	}
}

func TestExtractTextSkipsNonContent(t *testing.T) {
	raw := `<html><head><style>p{}</style></head><body>
		<nav>Menu</nav>
		<p>First paragraph.</p>
		<script>var x = 1;</script>
		<p>Second paragraph.</p>
		<footer>Legal</footer>
	</body></html>`

	got := ExtractText(raw)
	if got != "First paragraph. Second paragraph." {
		t.Errorf("ExtractText = %q", got)
	}
}

func TestExtractUpload(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		data     []byte
		want     string
	}{
		{"plain text", "notes.txt", []byte("  some notes  "), "some notes"},
		{"html file", "page.html", []byte("<body><p>hello</p></body>"), "hello"},
		{"binary", "blob.txt", []byte{0xff, 0xfe, 0x00}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractUpload(tt.filename, tt.data); got != tt.want {
				t.Errorf("ExtractUpload = %q, want %q", got, tt.want)
			}
		})
	}
}

type fakeQuerySource struct {
	imageErr error
}

func (f *fakeQuerySource) Queries(_ context.Context, subject, _ string, n int, domain string) ([]string, error) {
	if domain == "image" && f.imageErr != nil {
		return nil, f.imageErr
	}
	return []string{subject + " overview"}, nil
}

type fakeDocStore struct {
	resetTopics []string
	added       map[string][]vectorstore.Document
	sources     map[string][]string
}

func (f *fakeDocStore) Reset(_ context.Context, topic string) error {
	f.resetTopics = append(f.resetTopics, topic)
	return nil
}

func (f *fakeDocStore) AddDocuments(_ context.Context, collection string, docs []vectorstore.Document) (int, error) {
	if f.added == nil {
		f.added = make(map[string][]vectorstore.Document)
	}
	f.added[collection] = append(f.added[collection], docs...)
	return len(docs), nil
}

func (f *fakeDocStore) Sources(_ context.Context, collection string) ([]string, error) {
	return f.sources[collection], nil
}

func newTestService(searchURL string, store DocumentStore, queries QuerySource) *Service {
	cfg := testConfig()
	cfg.SearchQueries = 1
	cfg.ImageSearchQueries = 1

	searcher := NewSearcher(cfg, zerolog.Nop())
	searcher.baseURL = searchURL
	crawler := NewCrawler(cfg, zerolog.Nop())
	processor := NewProcessor(cfg, zerolog.Nop())
	return NewService(queries, searcher, crawler, processor, store, cfg, zerolog.Nop())
}

func TestFromWebReportsStoredSources(t *testing.T) {
	pages := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body><p>Photosynthesis turns light into sugar.</p></body></html>`)
	}))
	defer pages.Close()

	search := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"items": [{"link": "%s/article", "title": "Article"}]}`, pages.URL)
	}))
	defer search.Close()

	store := &fakeDocStore{sources: map[string][]string{
		"physics_text": {"https://a.example/1", "https://z.example/9"},
	}}
	svc := newTestService(search.URL, store, &fakeQuerySource{imageErr: errors.New("llm down")})

	summary, err := svc.FromWeb(context.Background(), "Physics", "High School", stream.NopSink{})
	if err != nil {
		t.Fatalf("FromWeb returned error: %v", err)
	}

	// The summary carries what the store verified, sorted and deduplicated,
	// not the processor's raw per-document list.
	want := []string{"https://a.example/1", "https://z.example/9"}
	if !reflect.DeepEqual(summary.IngestedSources, want) {
		t.Errorf("IngestedSources = %v, want %v", summary.IngestedSources, want)
	}
	if len(store.resetTopics) != 1 || store.resetTopics[0] != "Physics" {
		t.Errorf("reset topics = %v", store.resetTopics)
	}
	if len(summary.CollectionsCreated) != 1 || summary.CollectionsCreated[0] != "physics_text" {
		t.Errorf("collections = %v", summary.CollectionsCreated)
	}
	if summary.TotalChunksIngested == 0 {
		t.Error("no chunks reported despite stored documents")
	}
}

func TestFromWebNoSourceMaterial(t *testing.T) {
	search := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"items": []}`)
	}))
	defer search.Close()

	svc := newTestService(search.URL, &fakeDocStore{}, &fakeQuerySource{})

	_, err := svc.FromWeb(context.Background(), "Physics", "High School", stream.NopSink{})
	if !errors.Is(err, ErrNoSourceMaterial) {
		t.Fatalf("err = %v, want ErrNoSourceMaterial", err)
	}
}

func TestDescribeImages(t *testing.T) {
	p := NewProcessor(testConfig(), zerolog.Nop())
	docs := p.DescribeImages([]Result{
		{Link: "https://img.example.com/cell.png", Title: "a labeled cell diagram"},
		{Link: "https://img.example.com/bare.png"},
	})

	if docs[0].Content != "Image of a labeled cell diagram" {
		t.Errorf("titled image content = %q", docs[0].Content)
	}
	if docs[1].Content != "An image from https://img.example.com/bare.png" {
		t.Errorf("untitled image content = %q", docs[1].Content)
	}
	if docs[0].Source != "https://img.example.com/cell.png" {
		t.Errorf("image source = %q", docs[0].Source)
	}
}
