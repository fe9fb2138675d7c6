package lake

import (
	"net/url"
	"strings"
)

// NormalizeAbsolutePath forces a leading slash, collapses duplicate
// separators, and strips any trailing slash except on the root.
func NormalizeAbsolutePath(path string) string {
	parts := strings.Split(path, "/")
	var cleaned []string
	for _, p := range parts {
		if p != "" {
			cleaned = append(cleaned, p)
		}
	}
	if len(cleaned) == 0 {
		return "/"
	}
	return "/" + strings.Join(cleaned, "/")
}

// JoinPath joins a base path and a child segment with a single separator.
func JoinPath(base, child string) string {
	base = NormalizeAbsolutePath(base)
	child = strings.Trim(child, "/")
	if child == "" {
		return base
	}
	if base == "/" {
		return "/" + child
	}
	return base + "/" + child
}

// encodePathSegments percent-encodes each path segment while keeping the
// separators literal, as the lake's path URIs require.
func encodePathSegments(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	encoded := make([]string, 0, len(segments))
	for _, s := range segments {
		if s == "" {
			continue
		}
		encoded = append(encoded, url.PathEscape(s))
	}
	return strings.Join(encoded, "/")
}

// EscapeHxql escapes single quotes for inclusion in an HXQL string literal.
func EscapeHxql(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
