package main

import (
	"encoding/json"
	"fmt"
	"io"
	"runtime"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vyrodovalexey/navroute/internal/config"
	"github.com/vyrodovalexey/navroute/internal/location"
	"github.com/vyrodovalexey/navroute/internal/router"
	"github.com/vyrodovalexey/navroute/internal/util"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

type matchOutput struct {
	Path     string            `json:"path"`
	Matched  bool              `json:"matched"`
	Route    string            `json:"route,omitempty"`
	Name     string            `json:"name,omitempty"`
	Params   map[string]string `json:"params,omitempty"`
	Captures []string          `json:"captures,omitempty"`
}

func matchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "match <path>",
		Short: "Print the first route matching a path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := newBuilder(a.config, a.logger).build()
			if err != nil {
				return err
			}
			defer r.Destroy()

			path, _ := router.SplitQuery(router.StripOrigin(args[0]))
			out := matchOutput{Path: path}
			if m, ok := r.Match(path); ok {
				out.Matched = true
				out.Route = m.Route.Pattern().String()
				out.Name = m.Route.Name()
				out.Params = m.Params
				if m.Route.Pattern().IsRaw() {
					out.Captures = m.Captures
				}
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
}

func rootCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "root <location>",
		Short: "Print the application root inferred from a location",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := newBuilder(a.config, a.logger).build()
			if err != nil {
				return err
			}
			defer r.Destroy()

			path, _ := router.SplitQuery(router.StripFragment(router.StripOrigin(args[0])))
			return printJSON(cmd.OutOrStdout(), map[string]string{
				"location": args[0],
				"root":     r.Root(path),
			})
		},
	}
}

func generateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "generate <name> [key=value...]",
		Short: "Build a path from a named route",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := parseParams(args[1:])
			if err != nil {
				return err
			}

			r, err := newBuilder(a.config, a.logger).build()
			if err != nil {
				return err
			}
			defer r.Destroy()

			path, err := r.URLFor(args[0], params)
			if util.IsNotFound(err) {
				return fmt.Errorf("%w (named routes: %s)", err, strings.Join(routeNames(a.config), ", "))
			}
			if err != nil {
				return util.WrapError(err, "generate "+args[0])
			}
			return printJSON(cmd.OutOrStdout(), map[string]string{"name": args[0], "path": path})
		},
	}
}

func parseParams(args []string) (map[string]string, error) {
	params := make(map[string]string, len(args))
	var verr *util.ValidationError
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			if verr == nil {
				verr = util.NewValidationError("expected key=value")
			}
			verr.AddField(arg, "malformed parameter")
			continue
		}
		params[key] = value
	}
	if verr != nil {
		return nil, verr
	}
	return params, nil
}

// routeNames lists the configured route names in sorted order.
func routeNames(cfg *config.Config) []string {
	var names []string
	for _, spec := range cfg.Routes {
		if spec.Name != "" {
			names = append(names, spec.Name)
		}
	}
	for _, entry := range cfg.RouteMap {
		if entry.Name != "" {
			names = append(names, entry.Name)
		}
	}
	slices.Sort(names)
	return names
}

type resolveOutput struct {
	Location     string     `json:"location"`
	Outcome      string     `json:"outcome"`
	Path         string     `json:"path"`
	Query        string     `json:"query,omitempty"`
	Route        string     `json:"route,omitempty"`
	ResolutionID string     `json:"resolutionId"`
	Vetoed       bool       `json:"vetoed,omitempty"`
	Dispatches   []dispatch `json:"dispatches,omitempty"`
}

func resolveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <location>...",
		Short: "Resolve locations in sequence on one router",
		Long: `Resolve each location in order on a single router and print one
JSON record per location. Repeated locations are reported as duplicates and
redirects are followed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(cmd, a, args)
		},
	}
}

func runResolve(cmd *cobra.Command, a *app, locations []string) error {
	ctx := cmd.Context()
	b := newBuilder(a.config, a.logger)
	hist := location.NewHistory(locations[0])

	r, err := b.build(router.WithReader(hist), router.WithNavigator(b.navigator(hist)))
	if err != nil {
		return err
	}
	defer r.Destroy()

	// Fragment navigation is announced by the history; entering a location
	// below is not.
	var entering bool
	cancel := hist.Subscribe(func() {
		if !entering {
			r.Resolve(ctx)
		}
	})
	defer cancel()

	out := cmd.OutOrStdout()
	for _, loc := range locations {
		entering = true
		_ = hist.Replace(loc)
		entering = false

		res := r.ResolveLocation(ctx, loc)
		record := resolveOutput{
			Location:     loc,
			Outcome:      res.Status.String(),
			Path:         res.Path,
			Query:        res.Query,
			ResolutionID: res.ResolutionID,
			Vetoed:       res.Vetoed,
			Dispatches:   b.rec.drain(),
		}
		if res.Match != nil {
			record.Route = res.Match.Route.Pattern().String()
		}
		if err := printJSON(out, record); err != nil {
			return err
		}
	}
	return nil
}

func versionCmd() *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			if short {
				fmt.Fprintln(out, version)
				return
			}
			fmt.Fprintf(out, "navroute version %s\n", version)
			fmt.Fprintf(out, "  Build time: %s\n", buildTime)
			fmt.Fprintf(out, "  Git commit: %s\n", gitCommit)
			fmt.Fprintf(out, "  Go version: %s\n", runtime.Version())
		},
	}

	cmd.Flags().BoolVarP(&short, "short", "s", false, "Print only the version number")

	return cmd
}
