package teststand

import (
	"strings"
)

// credentialsEnd returns the offset of the "@" closing the credentials of url, or -1.
// Passwords may contain any character, including "?", "/" and "@", so the separator is
// the last "@" followed by a "/" with no "?" in between.
func credentialsEnd(url string) int {
	for i := strings.LastIndexByte(url, '@'); i >= 0; i = strings.LastIndexByte(url[:i], '@') {
		rest := url[i+1:]
		slash := strings.IndexByte(rest, '/')
		if slash >= 0 && !strings.ContainsRune(rest[:slash], '?') {
			return i
		}
	}
	return -1
}

// locate returns the offset of the "/" preceding the database name, or -1, and the
// offset where the "?params" component starts (len(url) when there is none).
// Both are searched after the credentials only.
func locate(url string) (slash, query int) {
	from := credentialsEnd(url) + 1

	query = len(url)
	if i := strings.IndexByte(url[from:], '?'); i >= 0 {
		query = from + i
	}

	slash = strings.LastIndexByte(url[from:query], '/')
	if slash >= 0 {
		slash += from
	}

	return slash, query
}

// ExtractDatabaseName returns the database-name segment of a connection URL:
// everything after the last "/" and before any "?params". Credentials are skipped,
// so a password holding "/" or "?" does not move the segment.
// It reports false when the URL contains no "/" outside its credentials and params.
//
// The function is purely syntactic and makes no assumption about the
// database engine or the well-formedness of other URL components.
func ExtractDatabaseName(url string) (string, bool) {
	slash, query := locate(url)
	if slash < 0 {
		return "", false
	}

	return url[slash+1 : query], true
}

// RewriteDatabaseName replaces the database-name segment of url with name.
// All other bytes, including credentials and any "?params", are preserved.
// It reports false and returns url unchanged when url has no database segment.
func RewriteDatabaseName(url, name string) (string, bool) {
	slash, query := locate(url)
	if slash < 0 {
		return url, false
	}

	return url[:slash+1] + name + url[query:], true
}

// TemporaryName derives an ephemeral database name from a base name and a unique suffix.
func TemporaryName(base, suffix string) string {
	return base + "_" + suffix
}

// RedactURL masks the password of a connection URL for logging.
// URLs without credentials are returned unchanged.
func RedactURL(url string) string {
	at := credentialsEnd(url)
	if at < 0 {
		return url
	}

	start := 0
	if i := strings.Index(url[:at], "://"); i >= 0 {
		start = i + len("://")
	}

	colon := strings.IndexByte(url[start:at], ':')
	if colon < 0 {
		return url
	}

	return url[:start+colon+1] + "xxxxx" + url[at:]
}
