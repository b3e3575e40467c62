// Package router maps browser-style locations to handlers.
//
// Routes are tried in registration order and the first match wins. Literal
// patterns use ":name" for a path segment parameter and "*" for any suffix:
//
//	r := router.New(router.WithRoot("/app"))
//	r.Add("/users/:id", func(ctx context.Context, p router.Params, query string) {
//	    fmt.Println("user", p["id"])
//	}, router.As("user"))
//	r.NotFound(func(ctx context.Context, query string) {})
//
//	r.ResolveLocation(ctx, "/app/users/42?tab=posts")
//
// Raw patterns wrap a Go regexp or an ECMAScript expression compiled with
// regexp2 and pass capture groups positionally.
//
// When no root is configured it is inferred from the first resolved
// location as the shortest prefix in front of a matching route. A resolution
// of the same path and query as the last dispatched one is suppressed.
package router
