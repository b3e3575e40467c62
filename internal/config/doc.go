// Package config provides the navroute configuration file model.
//
// A configuration file declares router options, ordered routes, a bulk
// route map and the ambient logging, tracing and metrics settings.
// ${VAR} and ${VAR:-default} references are substituted from the
// environment before parsing, and "$$" produces a literal dollar sign.
//
//	cfg, err := config.LoadConfig("navroute.yaml")
//	if err != nil {
//	    return err
//	}
//	if err := config.ValidateConfig(cfg); err != nil {
//	    return err
//	}
//
// Validation reports every problem at once, so a single run lists all
// broken routes and guards.
//
// A Watcher reloads the file when it changes. A reload that fails to
// parse or validate is rejected and the previous configuration stays in
// effect.
package config
