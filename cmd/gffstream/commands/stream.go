// Package commands implements CLI command handlers for gffstream.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Sumatoshi-tech/gffstream/internal/config"
	"github.com/Sumatoshi-tech/gffstream/internal/observability"
	"github.com/Sumatoshi-tech/gffstream/pkg/gffsource"
	"github.com/Sumatoshi-tech/gffstream/pkg/rangecache"
	"github.com/Sumatoshi-tech/gffstream/pkg/stream"
	"github.com/Sumatoshi-tech/gffstream/pkg/version"
)

var (
	// ErrRegionRequired is returned when --region is missing.
	ErrRegionRequired = errors.New("--region is required")
	// ErrRegionNotFound is returned when the session ended on a missing region.
	ErrRegionNotFound = errors.New("region not found")
)

// StreamCommand holds the flags of the stream command.
type StreamCommand struct {
	configPath string
	annotation string
	region     string
	start      int64
	end        int64
	windowSize int64
	filters    stream.Filters
	maxWindows int
	maxFeats   int
	format     string
	noColor    bool
	noCache    bool
}

// NewStreamCommand creates the stream command.
func NewStreamCommand() *cobra.Command {
	sc := &StreamCommand{format: FormatTable}

	cmd := &cobra.Command{
		Use:   "stream <file>",
		Short: "Stream the features of one sequence window by window",
		Long: `Walk one reference sequence of a GFF3 file window by window, the way a
scrolling view would, and print the features collected when the session stops.

The session stops after several consecutive empty windows, at --end, or when
--max-windows fetches ran.`,
		Args: cobra.ExactArgs(1),
		RunE: sc.run,
	}

	cmd.Flags().StringVar(&sc.configPath, "config", "", "Config file (default: .gffstream.yaml in . or $HOME)")
	cmd.Flags().StringVar(&sc.annotation, "annotation", "", "Annotation ID the file is served as (default: file name)")
	cmd.Flags().StringVarP(&sc.region, "region", "r", "", "Reference sequence to stream (required)")
	cmd.Flags().Int64Var(&sc.start, "start", 0, "First coordinate of the session")
	cmd.Flags().Int64Var(&sc.end, "end", 0, "Last coordinate of the session (0 = unbounded)")
	cmd.Flags().Int64Var(&sc.windowSize, "window-size", 0, "Span requested per fetch (default from config)")
	cmd.Flags().StringVar(&sc.filters.Type, "type", "", "Only features of this type")
	cmd.Flags().StringVar(&sc.filters.Source, "source", "", "Only features from this source")
	cmd.Flags().StringVar(&sc.filters.Biotype, "biotype", "", "Only features with this biotype")
	cmd.Flags().IntVar(&sc.maxWindows, "max-windows", 0, "Stop after this many fetches (0 = until exhausted)")
	cmd.Flags().IntVar(&sc.maxFeats, "max-features", 0, "Buffer cap (default from config)")
	cmd.Flags().StringVar(&sc.format, "format", FormatTable, "Output format: table, json, yaml")
	cmd.Flags().BoolVar(&sc.noColor, "no-color", false, "Disable colored output")
	cmd.Flags().BoolVar(&sc.noCache, "no-cache", false, "Bypass the range cache")

	return cmd
}

func (sc *StreamCommand) run(cmd *cobra.Command, args []string) error {
	if sc.region == "" {
		return ErrRegionRequired
	}

	err := validateFormat(sc.format)
	if err != nil {
		return err
	}

	cfg, err := config.LoadConfig(sc.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	sc.applyFlags(cmd, cfg)

	err = cfg.Validate()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	base := observability.DefaultConfig()
	base.Mode = observability.ModeStream
	base.ServiceVersion = version.Version
	base.LogOutput = cmd.ErrOrStderr()

	providers, err := observability.Init(cfg.ObservabilityConfig(base))
	if err != nil {
		return fmt.Errorf("init observability: %w", err)
	}

	defer func() {
		shutdownErr := providers.Shutdown(context.Background())
		if shutdownErr != nil {
			providers.Logger.Warn("observability shutdown failed", "error", shutdownErr)
		}
	}()

	snap, runErr := sc.session(cmd.Context(), cfg, providers, args[0])
	if snap == nil {
		return runErr
	}

	err = render(cmd.OutOrStdout(), sc.format, *snap)
	if err != nil {
		return err
	}

	printOutcome(cmd.ErrOrStderr(), *snap, sc.noColor)

	if runErr != nil {
		return runErr
	}

	if snap.Outcome() == stream.OutcomeRegionNotFound {
		return fmt.Errorf("%w: %s", ErrRegionNotFound, snap.RegionError)
	}

	return nil
}

// applyFlags lets explicitly set flags override the loaded configuration.
func (sc *StreamCommand) applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()

	if flags.Changed("window-size") {
		cfg.Stream.WindowSize = sc.windowSize
	}

	if flags.Changed("max-features") {
		cfg.Stream.MaxFeatures = sc.maxFeats
	}

	if flags.Changed("max-windows") {
		cfg.Stream.MaxWindows = sc.maxWindows
	}

	if sc.noCache {
		cfg.Cache.Enabled = false
	}
}

// session opens the source, runs the pump to completion and returns the
// final snapshot. A nil snapshot means the session never started.
func (sc *StreamCommand) session(
	ctx context.Context, cfg *config.Config, providers observability.Providers, path string,
) (*stream.Snapshot, error) {
	logger := providers.Logger

	src, err := gffsource.Open(path,
		gffsource.WithAnnotationID(sc.annotation),
		gffsource.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	querier, release, err := sc.querier(cfg, providers, src)
	if err != nil {
		return nil, err
	}
	defer release()

	metrics, err := observability.NewStreamMetrics(providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("create stream metrics: %w", err)
	}

	opts := append(cfg.DriverOptions(),
		stream.WithLogger(logger),
		stream.WithTracer(providers.Tracer),
		stream.WithObserver(metrics),
	)

	driver, err := stream.NewDriver(querier, stream.Params{
		AnnotationID: src.AnnotationID(),
		Region:       sc.region,
		Start:        sc.start,
		End:          sc.end,
		WindowSize:   cfg.Stream.WindowSize,
		Filters:      sc.filters,
	}, opts...)
	if err != nil {
		return nil, err
	}

	snap, err := pump(ctx, cfg, providers, driver, logger)

	return &snap, err
}

// querier wraps src in the range cache unless it is disabled. The returned
// function unregisters cache metrics.
func (sc *StreamCommand) querier(
	cfg *config.Config, providers observability.Providers, src *gffsource.File,
) (stream.RangeQuerier, func(), error) {
	if !cfg.Cache.Enabled {
		return src, func() {}, nil
	}

	maxBytes, err := cfg.CacheBytes()
	if err != nil {
		return nil, nil, err
	}

	cached := rangecache.New(src, maxBytes, rangecache.WithLogger(providers.Logger))

	unregister, err := observability.RegisterCacheMetrics(providers.Meter, cached.Stats)
	if err != nil {
		return nil, nil, fmt.Errorf("register cache metrics: %w", err)
	}

	return cached, func() {
		unregErr := unregister()
		if unregErr != nil {
			providers.Logger.Warn("cache metrics unregister failed", "error", unregErr)
		}
	}, nil
}

// pump drives the session. With a diagnostics address configured the
// diagnostics server runs alongside it and stops when the pump returns.
func pump(
	ctx context.Context,
	cfg *config.Config,
	providers observability.Providers,
	driver *stream.Driver,
	logger *slog.Logger,
) (stream.Snapshot, error) {
	pumpCfg := cfg.PumpConfig()

	addr := cfg.Observability.DiagnosticsAddr
	if addr == "" {
		return stream.Pump(ctx, driver, pumpCfg)
	}

	server, err := observability.NewDiagnosticsServer(ctx, addr, providers.MetricsHandler, sessionReady(driver))
	if err != nil {
		return driver.Snapshot(), err
	}

	logger.Info("diagnostics server listening", "addr", server.Addr())

	var (
		snap    stream.Snapshot
		pumpErr error
	)

	group, groupCtx := errgroup.WithContext(ctx)
	serveCtx, stopServe := context.WithCancel(groupCtx)

	group.Go(func() error {
		return server.Serve(serveCtx)
	})

	group.Go(func() error {
		defer stopServe()

		snap, pumpErr = stream.Pump(groupCtx, driver, pumpCfg)

		return nil
	})

	err = group.Wait()

	return snap, errors.Join(pumpErr, err)
}

// sessionReady reports not ready once the session failed.
func sessionReady(driver *stream.Driver) observability.ReadyCheck {
	return func(context.Context) error {
		snap := driver.Snapshot()
		if snap.Outcome() == stream.OutcomeFailed {
			return errors.New(snap.LastError)
		}

		return nil
	}
}

// writerOrDiscard is used by commands that print optional summaries.
func writerOrDiscard(w io.Writer, enabled bool) io.Writer {
	if !enabled {
		return io.Discard
	}

	return w
}
