package router

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/dlclark/regexp2"
)

// Literal pattern building blocks.
const (
	paramGroup       = `([^/]+)`
	wildcardGroup    = `(?:.*)`
	followedBySlash  = `(?:/$|$)`
	ecmaMatchTimeout = 100 * time.Millisecond
)

// Expression is a compiled regular expression used as a raw route pattern.
// FindSubmatch reports the byte offset of the leftmost match in s and the
// text of every capture group in order. Groups that did not participate in
// the match are reported as empty strings.
type Expression interface {
	FindSubmatch(s string) (index int, groups []string, ok bool)
	String() string
}

// Pattern is a route pattern: either a literal path with :name and *
// tokens, or a raw Expression.
type Pattern struct {
	literal string
	expr    Expression
}

// Literal returns a literal path pattern.
func Literal(path string) Pattern {
	return Pattern{literal: path}
}

// Raw returns a pattern backed by a caller-compiled expression.
func Raw(expr Expression) Pattern {
	return Pattern{expr: expr}
}

// IsRaw reports whether p wraps an Expression.
func (p Pattern) IsRaw() bool {
	return p.expr != nil
}

// String returns the literal text or the expression source.
func (p Pattern) String() string {
	if p.expr != nil {
		return p.expr.String()
	}
	return p.literal
}

// regexpExpression adapts *regexp.Regexp to Expression.
type regexpExpression struct {
	re *regexp.Regexp
}

// RawRegexp wraps a Go regular expression for use with Raw or AddRaw.
func RawRegexp(re *regexp.Regexp) Expression {
	return regexpExpression{re: re}
}

func (e regexpExpression) FindSubmatch(s string) (int, []string, bool) {
	loc := e.re.FindStringSubmatchIndex(s)
	if loc == nil {
		return 0, nil, false
	}
	groups := make([]string, 0, len(loc)/2-1)
	for i := 2; i+1 < len(loc); i += 2 {
		if loc[i] < 0 {
			groups = append(groups, "")
			continue
		}
		groups = append(groups, s[loc[i]:loc[i+1]])
	}
	return loc[0], groups, true
}

func (e regexpExpression) String() string {
	return e.re.String()
}

// ecmaExpression adapts an ECMAScript-flavoured regexp2 expression.
type ecmaExpression struct {
	re *regexp2.Regexp
}

// RawECMAScript compiles expr with ECMAScript semantics, supporting
// lookahead, backreferences and the other constructs Go's RE2 syntax lacks.
func RawECMAScript(expr string) (Expression, error) {
	re, err := regexp2.Compile(expr, regexp2.ECMAScript)
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", expr, err)
	}
	re.MatchTimeout = ecmaMatchTimeout
	return ecmaExpression{re: re}, nil
}

// MustECMAScript is like RawECMAScript but panics on a bad expression.
func MustECMAScript(expr string) Expression {
	e, err := RawECMAScript(expr)
	if err != nil {
		panic("router: " + err.Error())
	}
	return e
}

func (e ecmaExpression) FindSubmatch(s string) (int, []string, bool) {
	m, err := e.re.FindStringMatch(s)
	if err != nil || m == nil {
		return 0, nil, false
	}
	all := m.Groups()
	groups := make([]string, 0, len(all))
	for _, g := range all[1:] {
		groups = append(groups, g.String())
	}
	// regexp2 reports rune offsets.
	return runeOffsetToByte(s, m.Index), groups, true
}

func (e ecmaExpression) String() string {
	return e.re.String()
}

func runeOffsetToByte(s string, runes int) int {
	offset := 0
	for i := 0; i < runes && offset < len(s); i++ {
		_, size := utf8.DecodeRuneInString(s[offset:])
		offset += size
	}
	return offset
}

// compiledMatcher is the matching form of a Pattern, built once at
// registration.
type compiledMatcher struct {
	expr     Expression
	names    []string
	anchored bool
	rootOnly bool
}

// compilePattern compiles p. Literal patterns always compile because every
// character outside a token is quoted.
func compilePattern(p Pattern) *compiledMatcher {
	if p.IsRaw() {
		return &compiledMatcher{expr: p.expr}
	}

	source, names := literalSource(p.literal)
	if source == "" {
		return &compiledMatcher{rootOnly: true}
	}

	re, err := cachedRegexp(source)
	if err != nil {
		panic(fmt.Sprintf("router: literal pattern %q produced invalid expression: %v", p.literal, err))
	}

	return &compiledMatcher{
		expr:     regexpExpression{re: re},
		names:    names,
		anchored: true,
	}
}

// literalSource translates a literal pattern into a regular expression
// source and the ordered list of parameter names. An empty source means the
// pattern addresses the root path only.
func literalSource(pattern string) (string, []string) {
	cleaned := Clean(pattern)
	if cleaned == "" {
		return "", nil
	}

	var (
		b     strings.Builder
		names []string
		run   strings.Builder
	)

	flush := func() {
		if run.Len() > 0 {
			b.WriteString(regexp.QuoteMeta(run.String()))
			run.Reset()
		}
	}

	for i := 0; i < len(cleaned); {
		switch c := cleaned[i]; c {
		case ':':
			j := i + 1
			for j < len(cleaned) && isWordChar(cleaned[j]) {
				j++
			}
			if j == i+1 {
				run.WriteByte(c)
				i++
				continue
			}
			flush()
			names = append(names, cleaned[i+1:j])
			b.WriteString(paramGroup)
			i = j
		case '*':
			flush()
			b.WriteString(wildcardGroup)
			i++
		default:
			run.WriteByte(c)
			i++
		}
	}
	flush()
	b.WriteString(followedBySlash)

	return b.String(), names
}

func isWordChar(c byte) bool {
	return c == '_' ||
		(c >= '0' && c <= '9') ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z')
}

// find locates the pattern anywhere in path.
func (m *compiledMatcher) find(path string) (int, []string, bool) {
	if m.rootOnly {
		return 0, nil, path == "" || path == "/"
	}
	return m.expr.FindSubmatch(path)
}

// match reports whether path is addressed by the pattern. Literal patterns
// are compared against the cleaned path and must match from its start, so
// "/a", "/a/" and "//a" are equivalent. Raw expressions see path verbatim.
func (m *compiledMatcher) match(path string) ([]string, bool) {
	if m.anchored || m.rootOnly {
		path = Clean(path)
	}
	index, groups, ok := m.find(path)
	if !ok || (m.anchored && index != 0) {
		return nil, false
	}
	return groups, true
}

// params maps captured groups onto parameter names. It returns nil when the
// pattern declares no names.
func (m *compiledMatcher) params(groups []string) Params {
	if len(m.names) == 0 {
		return nil
	}
	params := make(Params, len(m.names))
	for i, name := range m.names {
		if i < len(groups) {
			params[name] = groups[i]
		}
	}
	return params
}

// patternCacheMaxSize is the maximum number of entries in the compile cache.
const patternCacheMaxSize = 1000

type patternCacheEntry struct {
	regex       *regexp.Regexp
	accessOrder int64
}

// patternCache is a bounded LRU cache of compiled literal sources shared by
// every router in the process.
var (
	patternCache         = make(map[string]*patternCacheEntry)
	patternCacheMu       sync.Mutex
	patternAccessCounter int64
)

// cachedRegexp returns the compiled form of source, compiling it at most once
// while it stays in the cache.
func cachedRegexp(source string) (*regexp.Regexp, error) {
	metrics := getPatternCacheMetrics()

	patternCacheMu.Lock()
	if entry, ok := patternCache[source]; ok {
		patternAccessCounter++
		entry.accessOrder = patternAccessCounter
		patternCacheMu.Unlock()
		metrics.cacheHits.Inc()
		return entry.regex, nil
	}
	patternCacheMu.Unlock()

	metrics.cacheMisses.Inc()

	re, err := regexp.Compile(source)
	if err != nil {
		return nil, err
	}

	patternCacheMu.Lock()
	defer patternCacheMu.Unlock()

	// Another goroutine may have compiled the same source meanwhile.
	if existing, ok := patternCache[source]; ok {
		patternAccessCounter++
		existing.accessOrder = patternAccessCounter
		return existing.regex, nil
	}

	if len(patternCache) >= patternCacheMaxSize {
		evictLRUPattern()
		metrics.cacheEvictions.Inc()
	}

	patternAccessCounter++
	patternCache[source] = &patternCacheEntry{regex: re, accessOrder: patternAccessCounter}
	metrics.cacheSize.Set(float64(len(patternCache)))

	return re, nil
}

// evictLRUPattern removes the least recently used entry.
// Must be called with patternCacheMu held.
func evictLRUPattern() {
	var lruKey string
	var lruOrder int64 = -1

	for key, entry := range patternCache {
		if lruOrder == -1 || entry.accessOrder < lruOrder {
			lruOrder = entry.accessOrder
			lruKey = key
		}
	}

	if lruKey != "" {
		delete(patternCache, lruKey)
	}
}
