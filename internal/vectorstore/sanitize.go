package vectorstore

import (
	"crypto/md5"
	"encoding/hex"
	"regexp"
	"strings"
)

var (
	nonCollectionChars = regexp.MustCompile(`[^a-z0-9.]+`)
	consecutiveDots    = regexp.MustCompile(`\.\.+`)
)

// SanitizeName converts an arbitrary topic string into a valid collection
// name: lowercase alphanumerics, underscores and dots only, alphanumeric at
// both ends, between 3 and 63 characters. Short inputs get a hash suffix so
// distinct topics stay distinct.
func SanitizeName(name string) string {
	sanitized := nonCollectionChars.ReplaceAllString(strings.ToLower(name), "_")
	sanitized = strings.Trim(sanitized, "_.")
	sanitized = consecutiveDots.ReplaceAllString(sanitized, ".")

	if len(sanitized) > 50 {
		sanitized = sanitized[:50]
	}

	if len(sanitized) < 3 {
		sum := md5.Sum([]byte(name))
		sanitized = sanitized + "_" + hex.EncodeToString(sum[:])[:8]
		if len(sanitized) > 63 {
			sanitized = sanitized[:63]
		}
	}

	if !isAlnum(sanitized[0]) {
		sanitized = "c" + sanitized[1:]
	}
	if !isAlnum(sanitized[len(sanitized)-1]) {
		sanitized = sanitized[:len(sanitized)-1] + "c"
	}
	return sanitized
}

func isAlnum(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9')
}
