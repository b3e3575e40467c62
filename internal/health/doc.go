// Package health serves liveness and readiness endpoints for long-running
// navroute processes.
//
//	checker := health.NewChecker(version)
//	checker.RegisterCheck("router", health.RouterCheck(r))
//
//	mux := http.NewServeMux()
//	checker.Register(mux)
//
// /health always answers 200 while the process runs. /ready answers 503
// once any registered check is unhealthy.
package health
