package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vyrodovalexey/navroute/internal/config"
	"github.com/vyrodovalexey/navroute/internal/health"
	"github.com/vyrodovalexey/navroute/internal/location"
	"github.com/vyrodovalexey/navroute/internal/observability"
	"github.com/vyrodovalexey/navroute/internal/router"
)

const shutdownTimeout = 10 * time.Second

type watchFlags struct {
	locationFile string
	poll         bool
}

func watchCmd(a *app) *cobra.Command {
	var flags watchFlags

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Drive a router from a location file",
		Long: `Watch a location file and resolve its first line whenever it
changes, printing one JSON record per dispatch. The configuration file is
reloaded on change. With --poll the file is read at the configured poll
interval instead of through file system notifications.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, a, flags, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&flags.locationFile, "location-file", "", "File holding the current location")
	cmd.Flags().BoolVar(&flags.poll, "poll", false, "Poll the location file instead of watching it")
	_ = cmd.MarkFlagRequired("location-file")

	return cmd
}

// watchSession holds the components of a running watch command.
type watchSession struct {
	app     *app
	builder *builder
	router  *router.Router
	files   *location.FileSource
	watcher *config.Watcher
	server  *http.Server
	tracer  *observability.Tracer
	checker *health.Checker
	reloads *health.ReloadTracker
	logger  observability.Logger
	baseCtx context.Context
}

func runWatch(ctx context.Context, a *app, flags watchFlags, out io.Writer) error {
	s, err := startWatch(ctx, a, flags, out)
	if err != nil {
		return err
	}

	<-ctx.Done()
	s.logger.Info("shutting down")
	return s.shutdown()
}

func startWatch(ctx context.Context, a *app, flags watchFlags, out io.Writer) (*watchSession, error) {
	cfg := a.config
	s := &watchSession{
		app:     a,
		builder: newBuilder(cfg, a.logger),
		checker: health.NewChecker(version),
		reloads: &health.ReloadTracker{},
		logger:  a.logger,
		baseCtx: ctx,
	}

	tracer, err := observability.NewTracer(cfg.TracerConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}
	observability.SetInternalLogger(a.logger)
	s.tracer = tracer
	s.builder.tracer = tracer

	if cfg.Metrics.Enabled {
		s.builder.metrics = newMetrics(a.logger)
	}

	var mu sync.Mutex
	s.builder.rec.sink = func(d dispatch) {
		mu.Lock()
		defer mu.Unlock()
		if err := printJSON(out, d); err != nil {
			a.logger.Error("failed to write dispatch", observability.Error(err))
		}
	}

	if err := s.startRouter(ctx, flags); err != nil {
		_ = s.shutdown()
		return nil, err
	}

	s.checker.RegisterCheck("router", health.RouterCheck(s.router))
	s.checker.RegisterCheck("config", s.reloads.Check)

	if a.flags.configPath != "" {
		if err := s.startConfigWatcher(ctx); err != nil {
			_ = s.shutdown()
			return nil, err
		}
	}

	if cfg.Metrics.Enabled {
		s.startServer()
	}

	s.router.Resolve(ctx)
	return s, nil
}

func newMetrics(logger observability.Logger) *observability.Metrics {
	m := observability.NewMetrics("navroute")
	m.SetBuildInfo(version, gitCommit, buildTime)
	for _, c := range router.PatternCacheCollectors() {
		if err := m.RegisterCollector(c); err != nil {
			logger.Warn("failed to register pattern cache collector", observability.Error(err))
		}
	}
	return m
}

func (s *watchSession) startRouter(ctx context.Context, flags watchFlags) error {
	cfg := s.app.config

	files, err := location.NewFileSource(flags.locationFile, location.WithFileLogger(s.logger))
	if err != nil {
		return err
	}
	s.files = files

	var reader location.Reader = files
	var source location.Source = files
	if flags.poll {
		poller := location.NewPoller(location.ReaderFunc(files.Read),
			location.WithPollInterval(cfg.Router.PollInterval.Duration()),
			location.WithPollerLogger(s.logger),
		)
		reader, source = poller, poller
	} else if err := files.Start(ctx); err != nil {
		return err
	}

	r, err := s.builder.build(
		router.WithReader(reader),
		router.WithNavigator(s.builder.navigator(files)),
		router.WithSource(source),
	)
	if err != nil {
		return err
	}
	s.router = r

	s.logger.Info("router started",
		observability.String("location_file", flags.locationFile),
		observability.Bool("poll", flags.poll),
		observability.Int("routes", r.Len()),
	)
	return nil
}

func (s *watchSession) startConfigWatcher(ctx context.Context) error {
	w, err := config.NewWatcher(s.app.flags.configPath, s.applyConfig,
		config.WithLogger(s.logger),
		config.WithMetrics(s.builder.metrics),
		config.WithErrorCallback(s.reloads.Observe),
	)
	if err != nil {
		return err
	}
	s.watcher = w
	return w.Start(ctx)
}

// applyConfig swaps the route table for the one in cfg. Router options
// such as the root and the hash mode only change on restart.
func (s *watchSession) applyConfig(cfg *config.Config) {
	s.reloads.Observe(nil)

	current := s.app.config
	if cfg.Router.Hash != current.Router.Hash || !sameRoot(cfg.Router.Root, current.Router.Root) {
		s.logger.Warn("router options changed, restart to apply them")
	}

	s.router.Pause(true)
	s.router.Clear()
	err := s.builder.register(s.router, cfg)
	s.router.Pause(false)
	if err != nil {
		s.logger.Error("failed to apply routes", observability.Error(err))
		s.reloads.Observe(err)
		return
	}

	s.logger.Info("routes reloaded", observability.Int("routes", s.router.Len()))
	s.router.Resolve(s.baseCtx)
}

func sameRoot(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (s *watchSession) startServer() {
	cfg := s.app.config.Metrics

	mux := http.NewServeMux()
	mux.Handle(cfg.Path, s.builder.metrics.Handler())
	s.checker.Register(mux)

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           mux,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
	}

	s.logger.Info("starting metrics server",
		observability.String("address", s.server.Addr),
		observability.String("metrics_path", cfg.Path),
	)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("metrics server error", observability.Error(err))
		}
	}()
}

func (s *watchSession) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if s.watcher != nil {
		errs = append(errs, s.watcher.Stop())
	}
	if s.server != nil {
		errs = append(errs, s.server.Shutdown(ctx))
	}
	if s.router != nil {
		s.router.Destroy()
	}
	if s.files != nil {
		errs = append(errs, s.files.Stop())
	}
	if s.tracer != nil {
		errs = append(errs, s.tracer.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
