package config

import (
	"time"

	"github.com/vyrodovalexey/navroute/internal/observability"
)

// Route pattern syntaxes for raw routes.
const (
	SyntaxECMAScript = "ecmascript"
	SyntaxRE2        = "re2"
)

// Config is the navroute configuration file.
type Config struct {
	Router   RouterConfig             `yaml:"router"`
	Logging  LoggingConfig            `yaml:"logging"`
	Tracing  TracingConfig            `yaml:"tracing"`
	Metrics  MetricsConfig            `yaml:"metrics"`
	Routes   []RouteSpec              `yaml:"routes,omitempty"`
	RouteMap map[string]RouteMapEntry `yaml:"routeMap,omitempty"`
}

// RouterConfig configures location handling.
type RouterConfig struct {
	// Root is the application root. When unset it is inferred from the
	// first resolved location; an empty string disables root stripping.
	Root         *string          `yaml:"root,omitempty"`
	Hash         bool             `yaml:"hash"`
	PollInterval Duration         `yaml:"pollInterval"`
	Navigation   NavigationConfig `yaml:"navigation"`
}

// NavigationConfig limits navigation. A zero rate means unlimited.
type NavigationConfig struct {
	Rate  float64 `yaml:"rate"`
	Burst int     `yaml:"burst"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// TracingConfig configures OpenTelemetry tracing.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"samplingRate"`
	ServiceName  string  `yaml:"serviceName"`
}

// MetricsConfig configures the metrics endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    int    `yaml:"port"`
	Path    string `yaml:"path"`
}

// RouteSpec is one ordered route registration.
type RouteSpec struct {
	Path string `yaml:"path"`
	Name string `yaml:"name,omitempty"`
	// Guard is a CEL expression; the route only dispatches when it is true.
	Guard string `yaml:"guard,omitempty"`
	// Raw marks Path as a regular expression.
	Raw bool `yaml:"raw,omitempty"`
	// Syntax selects the raw expression dialect, SyntaxECMAScript by default.
	Syntax string `yaml:"syntax,omitempty"`
	// Redirect navigates to another location instead of dispatching.
	Redirect string `yaml:"redirect,omitempty"`
}

// RouteMapEntry is a bulk registration entry keyed by literal path.
type RouteMapEntry struct {
	Name     string `yaml:"name,omitempty"`
	Guard    string `yaml:"guard,omitempty"`
	Redirect string `yaml:"redirect,omitempty"`
}

// DefaultConfig returns the configuration used for unset fields.
func DefaultConfig() *Config {
	return &Config{
		Router: RouterConfig{
			PollInterval: Duration(200 * time.Millisecond),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stderr",
		},
		Tracing: TracingConfig{
			SamplingRate: 1.0,
			ServiceName:  "navroute",
		},
		Metrics: MetricsConfig{
			Port: 9090,
			Path: "/metrics",
		},
	}
}

// LogConfig returns the logger configuration.
func (c *Config) LogConfig() observability.LogConfig {
	return observability.LogConfig{
		Level:  c.Logging.Level,
		Format: c.Logging.Format,
		Output: c.Logging.Output,
	}
}

// TracerConfig returns the tracer configuration.
func (c *Config) TracerConfig() observability.TracerConfig {
	return observability.TracerConfig{
		ServiceName:  c.Tracing.ServiceName,
		OTLPEndpoint: c.Tracing.Endpoint,
		SamplingRate: c.Tracing.SamplingRate,
		Enabled:      c.Tracing.Enabled,
	}
}

// RawSyntax returns the effective raw expression syntax of the route.
func (r RouteSpec) RawSyntax() string {
	if r.Syntax == "" {
		return SyntaxECMAScript
	}
	return r.Syntax
}
