package config

import (
	"fmt"
	"strings"

	"github.com/vyrodovalexey/navroute/internal/guard"
	"github.com/vyrodovalexey/navroute/internal/router"
	"github.com/vyrodovalexey/navroute/internal/util"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Path    string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:\n", len(e))
	for i, err := range e {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

// HasErrors returns true if there are validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Is reports ValidationErrors as util.ErrConfigInvalid.
func (e ValidationErrors) Is(target error) bool {
	return target == util.ErrConfigInvalid
}

// Validator validates navroute configuration. It collects every problem
// instead of stopping at the first one.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new configuration validator.
func NewValidator() *Validator {
	return &Validator{
		errors: make(ValidationErrors, 0),
	}
}

// ValidateConfig validates a configuration.
func ValidateConfig(config *Config) error {
	return NewValidator().Validate(config)
}

// Validate validates the configuration and returns any errors.
func (v *Validator) Validate(config *Config) error {
	v.errors = make(ValidationErrors, 0)

	if config == nil {
		v.addError("", "configuration is nil")
		return v.errors
	}

	v.validateRouter(&config.Router)
	v.validateLogging(&config.Logging)
	v.validateTracing(&config.Tracing)
	v.validateMetrics(&config.Metrics)
	v.validateRoutes(config.Routes)
	v.validateRouteMap(config.RouteMap)

	if v.errors.HasErrors() {
		return v.errors
	}
	return nil
}

func (v *Validator) validateRouter(rc *RouterConfig) {
	if err := util.ValidatePositiveDuration(rc.PollInterval.Duration()); err != nil {
		v.addError("router.pollInterval", err.Error())
	}
	if rc.Navigation.Rate < 0 {
		v.addError("router.navigation.rate", "rate must not be negative")
	}
	if rc.Navigation.Burst < 0 {
		v.addError("router.navigation.burst", "burst must not be negative")
	}
	if rc.Navigation.Rate > 0 && rc.Navigation.Burst == 0 {
		v.addError("router.navigation.burst", "burst is required when rate is set")
	}
}

func (v *Validator) validateLogging(lc *LoggingConfig) {
	if err := util.ValidateOneOf(lc.Level, "debug", "info", "warn", "error"); err != nil {
		v.addError("logging.level", err.Error())
	}
	if err := util.ValidateOneOf(lc.Format, "json", "console"); err != nil {
		v.addError("logging.format", err.Error())
	}
	if err := util.ValidateOneOf(lc.Output, "stdout", "stderr"); err != nil {
		v.addError("logging.output", err.Error())
	}
}

func (v *Validator) validateTracing(tc *TracingConfig) {
	if err := util.ValidateRatio(tc.SamplingRate); err != nil {
		v.addError("tracing.samplingRate", err.Error())
	}
	if tc.Enabled && tc.Endpoint == "" {
		v.addError("tracing.endpoint", "endpoint is required when tracing is enabled")
	}
}

func (v *Validator) validateMetrics(mc *MetricsConfig) {
	if !mc.Enabled {
		return
	}
	if err := util.ValidatePort(mc.Port); err != nil {
		v.addError("metrics.port", err.Error())
	}
	if !strings.HasPrefix(mc.Path, "/") {
		v.addError("metrics.path", "path must start with '/'")
	}
}

func (v *Validator) validateRoutes(routes []RouteSpec) {
	for i := range routes {
		route := &routes[i]
		path := fmt.Sprintf("routes[%d]", i)

		if err := util.ValidateNonEmpty(route.Path, "path"); err != nil {
			v.addError(path+".path", err.Error())
		}
		if route.Raw {
			v.validateRawRoute(route, path)
		} else if route.Syntax != "" {
			v.addError(path+".syntax", "syntax only applies to raw routes")
		}
		v.validateGuard(route.Guard, path+".guard")
	}
}

func (v *Validator) validateRawRoute(route *RouteSpec, path string) {
	if route.Redirect != "" {
		v.addError(path+".redirect", "raw routes cannot redirect")
	}

	switch route.RawSyntax() {
	case SyntaxECMAScript:
		if _, err := router.RawECMAScript(route.Path); err != nil {
			v.addError(path+".path", fmt.Sprintf("invalid expression: %v", err))
		}
	case SyntaxRE2:
		if err := util.ValidateRegex(route.Path); err != nil {
			v.addError(path+".path", err.Error())
		}
	default:
		v.addError(path+".syntax", fmt.Sprintf("unknown syntax %q", route.Syntax))
	}
}

func (v *Validator) validateRouteMap(entries map[string]RouteMapEntry) {
	for key, entry := range entries {
		path := fmt.Sprintf("routeMap[%s]", key)
		v.validateGuard(entry.Guard, path+".guard")
	}
}

func (v *Validator) validateGuard(expr, path string) {
	if expr == "" {
		return
	}
	if _, err := guard.Compile(expr); err != nil {
		v.addError(path, err.Error())
	}
}

// addError adds a validation error.
func (v *Validator) addError(path, message string) {
	v.errors = append(v.errors, ValidationError{
		Path:    path,
		Message: message,
	})
}
