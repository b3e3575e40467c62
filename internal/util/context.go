package util

import (
	"context"
	"time"
)

// Context keys.
type ctxKey string

const (
	ctxKeyLocation   ctxKey = "location"
	ctxKeyRoute      ctxKey = "route"
	ctxKeyRouteName  ctxKey = "route_name"
	ctxKeyPathParams ctxKey = "path_params"
	ctxKeyStartTime  ctxKey = "start_time"
)

// ContextWithLocation adds the resolved location path to the context.
func ContextWithLocation(ctx context.Context, location string) context.Context {
	return context.WithValue(ctx, ctxKeyLocation, location)
}

// LocationFromContext extracts the resolved location path from the context.
func LocationFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyLocation).(string); ok {
		return v
	}
	return ""
}

// ContextWithRoute adds the matched route pattern to the context.
func ContextWithRoute(ctx context.Context, route string) context.Context {
	return context.WithValue(ctx, ctxKeyRoute, route)
}

// RouteFromContext extracts the matched route pattern from the context.
func RouteFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyRoute).(string); ok {
		return v
	}
	return ""
}

// ContextWithRouteName adds the matched route name to the context.
func ContextWithRouteName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, ctxKeyRouteName, name)
}

// RouteNameFromContext extracts the matched route name from the context.
func RouteNameFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyRouteName).(string); ok {
		return v
	}
	return ""
}

// ContextWithPathParams adds extracted path parameters to the context.
func ContextWithPathParams(ctx context.Context, params map[string]string) context.Context {
	return context.WithValue(ctx, ctxKeyPathParams, params)
}

// PathParamsFromContext extracts path parameters from the context.
func PathParamsFromContext(ctx context.Context) map[string]string {
	if v, ok := ctx.Value(ctxKeyPathParams).(map[string]string); ok {
		return v
	}
	return nil
}

// ContextWithStartTime records when a resolution started.
func ContextWithStartTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ctxKeyStartTime, t)
}

// StartTimeFromContext extracts the resolution start time from the context.
func StartTimeFromContext(ctx context.Context) time.Time {
	if v, ok := ctx.Value(ctxKeyStartTime).(time.Time); ok {
		return v
	}
	return time.Time{}
}

// ElapsedTime returns the time since the resolution started.
func ElapsedTime(ctx context.Context) time.Duration {
	start := StartTimeFromContext(ctx)
	if start.IsZero() {
		return 0
	}
	return time.Since(start)
}
