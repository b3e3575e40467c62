package router

// MatchResult describes a route that addresses a path.
type MatchResult struct {
	Route    *Route
	Params   Params
	Captures []string
}

// FindAll returns every route that matches path, in table order.
func FindAll(path string, routes []*Route) []MatchResult {
	var out []MatchResult
	for _, route := range routes {
		groups, ok := route.matcher.match(path)
		if !ok {
			continue
		}
		out = append(out, MatchResult{
			Route:    route,
			Params:   route.matcher.params(groups),
			Captures: groups,
		})
	}
	return out
}

// MatchFirst returns the first route in table order that matches path.
func MatchFirst(path string, routes []*Route) (MatchResult, bool) {
	for _, route := range routes {
		if groups, ok := route.matcher.match(path); ok {
			return MatchResult{
				Route:    route,
				Params:   route.matcher.params(groups),
				Captures: groups,
			}, true
		}
	}
	return MatchResult{}, false
}

// InferRoot derives the application root from a location path: the
// shortest prefix preceding a match of any route. Catch-all and root-only
// literal routes are ignored. Without a match the cleaned path is returned.
func InferRoot(path string, routes []*Route) string {
	root := Clean(path)
	for _, route := range routes {
		if !route.pattern.IsRaw() {
			if c := Clean(route.pattern.literal); c == "" || c == "*" {
				continue
			}
		}
		index, _, ok := route.matcher.find(path)
		if !ok {
			continue
		}
		if candidate := Clean(path[:index]); len(candidate) < len(root) {
			root = candidate
		}
	}
	return root
}
