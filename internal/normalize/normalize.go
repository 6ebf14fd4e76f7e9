// Package normalize holds the pure link, identity and date helpers.
// Nothing in here performs I/O.
package normalize

import "strings"

// CleanLink strips the query string from a listing link. Everything
// from the first '?' on is discarded; fragments ride along with the
// query on the listing pages this pipeline targets.
func CleanLink(link string) string {
	if i := strings.IndexByte(link, '?'); i >= 0 {
		return link[:i]
	}
	return link
}

// JobID derives the stable job identifier from a listing link. The
// expected link shape ends in a dash-delimited numeric identifier; in
// that case the trailing segment is the id and numeric reports true.
// When the trailing segment is not purely numeric the id falls back to
// the last path segment of the cleaned link, so equal links still
// derive equal ids, and numeric reports false so callers can log the
// degraded shape.
func JobID(link string) (id string, numeric bool) {
	clean := strings.TrimRight(CleanLink(link), "/")
	if i := strings.LastIndexByte(clean, '-'); i >= 0 {
		seg := clean[i+1:]
		if isDigits(seg) {
			return seg, true
		}
	}
	if i := strings.LastIndexByte(clean, '/'); i >= 0 {
		return clean[i+1:], false
	}
	return clean, false
}

// ShortURL builds the canonical detail-page URL from the fixed prefix
// and a derived job id.
func ShortURL(prefix, id string) string {
	return prefix + id
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
