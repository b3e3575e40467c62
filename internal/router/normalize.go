package router

import (
	"regexp"
	"strings"
)

var duplicateSlashes = regexp.MustCompile(`([^:])/{2,}`)

// Clean strips trailing slashes and collapses leading slashes to one.
// Clean("/") is "".
func Clean(s string) string {
	s = strings.TrimRight(s, "/")
	if trimmed := strings.TrimLeft(s, "/"); len(trimmed) != len(s) {
		return "/" + trimmed
	}
	return s
}

// SplitQuery splits raw on the first "?". The query is "" when absent.
func SplitQuery(raw string) (path, query string) {
	path, query, _ = strings.Cut(raw, "?")
	return path, query
}

// Depth returns the number of "/"-separated segments in path after dropping
// one trailing slash. Depth("/a/b") is 3.
func Depth(path string) int {
	return strings.Count(strings.TrimSuffix(path, "/"), "/") + 1
}

// StripOrigin drops a leading "scheme://host[:port]" so absolute URLs and
// bare paths resolve alike.
func StripOrigin(raw string) string {
	scheme := strings.Index(raw, "://")
	if scheme <= 0 || strings.ContainsAny(raw[:scheme], "/?#") {
		return raw
	}
	rest := raw[scheme+3:]
	if i := strings.IndexAny(rest, "/?#"); i >= 0 {
		return rest[i:]
	}
	return ""
}

// StripFragment drops everything from the first "#".
func StripFragment(raw string) string {
	before, _, _ := strings.Cut(raw, "#")
	return before
}

// collapseSlashes reduces runs of slashes to one, except directly after a
// ":" so scheme separators survive.
func collapseSlashes(s string) string {
	return duplicateSlashes.ReplaceAllString(s, "${1}/")
}

// hashPath rewrites a leading "/#" or "#" to "/". Other input is returned
// unchanged.
func hashPath(s string) string {
	var rest string
	switch {
	case strings.HasPrefix(s, "/#"):
		rest = s[2:]
	case strings.HasPrefix(s, "#"):
		rest = s[1:]
	default:
		return s
	}
	return "/" + strings.TrimLeft(rest, "/")
}

// stripRoot removes the first occurrence of root from loc.
func stripRoot(loc, root string) string {
	if root == "" {
		return loc
	}
	if strings.HasPrefix(loc, root) {
		return loc[len(root):]
	}
	return strings.Replace(loc, root, "", 1)
}
