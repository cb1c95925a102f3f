package ingest

import (
	"context"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/net/html"

	"github.com/searchlab/examgen-backend/internal/config"
)

// excludedPaths filters out navigation chrome and binary assets that never
// contain study material.
var excludedPaths = regexp.MustCompile(`(?i)(/(login|signin|signup|register|cart|checkout|privacy|terms|contact)([/?#]|$))|\.(css|js|json|xml|png|jpe?g|gif|svg|ico|pdf|zip|mp[34])([?#]|$)`)

// Crawler expands search hits with same-domain links found on those pages.
type Crawler struct {
	client    *http.Client
	userAgent string
	maxURLs   int
	log       zerolog.Logger
}

// NewCrawler creates a Crawler from configuration.
func NewCrawler(cfg *config.Config, log zerolog.Logger) *Crawler {
	return &Crawler{
		client:    &http.Client{Timeout: cfg.DownloadTimeout},
		userAgent: cfg.CrawlerUserAgent,
		maxURLs:   cfg.MaxDiscoveredURLs,
		log:       log.With().Str("component", "crawler").Logger(),
	}
}

// Discover fetches each seed page and collects links pointing back into the
// same host. The returned list starts with the seeds and is capped at the
// configured maximum; fetch failures skip the seed rather than failing the
// run.
func (c *Crawler) Discover(ctx context.Context, seeds []string) []string {
	seen := make(map[string]struct{}, len(seeds))
	var urls []string
	add := func(raw string) bool {
		if len(urls) >= c.maxURLs {
			return false
		}
		if _, dup := seen[raw]; dup {
			return true
		}
		seen[raw] = struct{}{}
		urls = append(urls, raw)
		return true
	}

	for _, seed := range seeds {
		if !add(seed) {
			break
		}
	}

	for _, seed := range seeds {
		if len(urls) >= c.maxURLs {
			break
		}
		base, err := url.Parse(seed)
		if err != nil || base.Host == "" {
			continue
		}
		for _, link := range c.pageLinks(ctx, seed) {
			resolved, err := base.Parse(link)
			if err != nil {
				continue
			}
			resolved.Fragment = ""
			if resolved.Host != base.Host || (resolved.Scheme != "http" && resolved.Scheme != "https") {
				continue
			}
			if excludedPaths.MatchString(resolved.String()) {
				continue
			}
			if !add(resolved.String()) {
				break
			}
		}
	}

	c.log.Info().Int("seeds", len(seeds)).Int("urls", len(urls)).Msg("Crawl complete")
	return urls
}

func (c *Crawler) pageLinks(ctx context.Context, pageURL string) []string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Debug().Err(err).Str("url", pageURL).Msg("Seed fetch failed")
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK || !strings.Contains(resp.Header.Get("Content-Type"), "text/html") {
		return nil
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil
	}

	var links []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, attr := range n.Attr {
				if attr.Key == "href" && attr.Val != "" {
					links = append(links, NormalizeURL(attr.Val))
				}
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)
	return links
}
