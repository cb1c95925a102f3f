package ingest

import (
	"regexp"
	"strings"
)

var missingSlashScheme = regexp.MustCompile(`^(https?):/([^/])`)

// NormalizeURL repairs the URL mangling that shows up in scraped pages and
// LLM output: backslashes instead of slashes and a collapsed scheme
// separator ("https:/example.com").
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.ReplaceAll(raw, `\`, "/")
	return missingSlashScheme.ReplaceAllString(raw, "$1://$2")
}
