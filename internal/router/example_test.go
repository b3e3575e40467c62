package router_test

import (
	"context"
	"fmt"
	"regexp"

	"github.com/vyrodovalexey/navroute/internal/location"
	"github.com/vyrodovalexey/navroute/internal/router"
)

func ExampleRouter_ResolveLocation() {
	r := router.New(router.WithRoot("/app"))
	r.Add("/users/:id", func(_ context.Context, p router.Params, query string) {
		fmt.Println("user", p["id"], query)
	})
	r.NotFound(func(_ context.Context, query string) {
		fmt.Println("not found")
	})

	ctx := context.Background()
	r.ResolveLocation(ctx, "https://example.com/app/users/42?tab=posts")
	res := r.ResolveLocation(ctx, "/app/users/42?tab=posts")
	fmt.Println(res.Status)
	r.ResolveLocation(ctx, "/app/missing")
	// Output:
	// user 42 tab=posts
	// duplicate
	// not found
}

func ExampleRouter_On() {
	r := router.New(router.WithRoot(""))
	r.On(map[string]router.Target{
		"/a":     {Uses: func(context.Context, router.Params, string) { fmt.Println("list") }},
		"/a/:id": {Uses: func(_ context.Context, p router.Params, _ string) { fmt.Println("item", p["id"]) }},
	})

	r.ResolveLocation(context.Background(), "/a/7")
	r.ResolveLocation(context.Background(), "/a")
	// Output:
	// item 7
	// list
}

func ExampleRouter_AddRaw() {
	r := router.New(router.WithRoot(""))
	r.AddRaw(router.RawRegexp(regexp.MustCompile(`^/archive/(\d{4})/(\d{2})$`)), func(_ context.Context, c ...string) {
		fmt.Println(c[0], c[1])
	})

	r.ResolveLocation(context.Background(), "/archive/2024/05")
	// Output: 2024 05
}

func ExampleRouter_Generate() {
	r := router.New()
	r.Add("/u/:id", nil, router.As("profile"))

	fmt.Println(r.Generate("profile", map[string]string{"id": "7"}))
	// Output: /u/7
}

func ExampleRouter_Root() {
	r := router.New()
	r.Add("/users/:id", nil)

	fmt.Println(r.Root("/app/users/5"))
	// Output: /app
}

func ExampleRouter_Navigate() {
	h := location.NewHistory("https://example.com/")
	r := router.New(router.WithRoot(""), router.WithReader(h), router.WithNavigator(h))
	r.Add("/users/:id", func(_ context.Context, p router.Params, _ string) {
		fmt.Println("showing", p["id"])
	})

	_ = r.Navigate(context.Background(), "/users/3")
	fmt.Println(h.Current())
	// Output:
	// showing 3
	// https://example.com/users/3
}
