package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"github.com/bbernstein/flowebb/tideclock/internal/cache"
	"github.com/bbernstein/flowebb/tideclock/internal/config"
	"github.com/bbernstein/flowebb/tideclock/internal/fetch"
	"github.com/bbernstein/flowebb/tideclock/internal/gate"
	"github.com/bbernstein/flowebb/tideclock/internal/models"
	"github.com/bbernstein/flowebb/tideclock/internal/tide"
	"github.com/bbernstein/flowebb/tideclock/pkg/http/client"
	"github.com/rs/zerolog/log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

const renderPollInterval = time.Second

type daemonFlags struct {
	configPath string
	once       bool
}

func parseFlags() daemonFlags {
	var f daemonFlags
	flag.StringVar(&f.configPath, "config", "/etc/tideclock/tideclock.toml", "Path to TOML settings file")
	flag.BoolVar(&f.once, "once", false, "Run a single update, print the curve and exit")
	flag.Parse()
	return f
}

func main() {
	flags := parseFlags()

	cfg, err := config.LoadFile(flags.configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", flags.configPath).Msg("Failed to load settings")
	}
	cfg.InitializeLogging()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, config.GetStorageConfig(), flags.once); err != nil {
		log.Error().Err(err).Msg("Tide daemon stopped with error")
		os.Exit(1)
	}
}

// daemon owns the device pipeline and its local storage
type daemon struct {
	cfg      *config.Config
	pipeline *tide.Pipeline
	counter  *gate.BadgerStore
	display  renderer
}

func newDaemon(cfg *config.Config, storage *config.StorageConfig, network tide.Network, display renderer) (*daemon, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if storage.Backend != config.BackendFile {
		return nil, fmt.Errorf("device daemon needs the %q backend, got %q", config.BackendFile, storage.Backend)
	}
	if err := storage.Validate(); err != nil {
		return nil, fmt.Errorf("invalid storage config: %w", err)
	}

	counter, err := gate.OpenBadgerStore(storage.BadgerDir)
	if err != nil {
		return nil, fmt.Errorf("opening fetch counter: %w", err)
	}

	curves, err := cache.NewCurveCache(storage.CurveLRUSize)
	if err != nil {
		_ = counter.Close()
		return nil, fmt.Errorf("creating curve cache: %w", err)
	}

	httpClient := client.New(client.Options{
		BaseURL: cfg.StormglassBaseURL,
		Timeout: cfg.HTTPTimeout,
		Headers: map[string]string{"Authorization": cfg.StormglassAPIKey},
	})

	pipeline := tide.NewPipeline(tide.Dependencies{
		Store:   cache.NewFileStore(storage.CacheFile),
		Gate:    gate.New(counter),
		Fetcher: fetch.NewStormglassFetcher(httpClient, cfg.Latitude, cfg.Longitude),
		Network: network,
		Curves:  curves,
	}, tide.WithHistoryHours(cfg.HistoryHours))

	return &daemon{
		cfg:      cfg,
		pipeline: pipeline,
		counter:  counter,
		display:  display,
	}, nil
}

func (d *daemon) Close() error {
	return d.counter.Close()
}

func run(ctx context.Context, cfg *config.Config, storage *config.StorageConfig, once bool) error {
	network, err := newTCPProbe(cfg.StormglassBaseURL, cfg.HTTPTimeout)
	if err != nil {
		return err
	}

	d, err := newDaemon(cfg, storage, network, logRenderer{})
	if err != nil {
		return err
	}
	defer func() {
		if err := d.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing fetch counter")
		}
	}()

	log.Info().
		Float64("lat", cfg.Latitude).
		Float64("lng", cfg.Longitude).
		Dur("update_interval", cfg.UpdateInterval).
		Str("cache_file", storage.CacheFile).
		Msg("Tide daemon starting")

	if once {
		result, err := d.updateOnce(ctx)
		if !result.HasData() {
			if !d.pipeline.RestoreCache(ctx) {
				return err
			}
			log.Warn().Str("result", result.String()).Msg("Update failed, showing cached tides")
		}
		d.renderIfDirty()
		return nil
	}

	d.loop(ctx)
	return nil
}

// loop drives updates from one goroutine and rendering from another until ctx ends.
func (d *daemon) loop(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		d.updateLoop(ctx)
	}()
	go func() {
		defer wg.Done()
		d.renderLoop(ctx)
	}()

	wg.Wait()
	log.Info().Msg("Tide daemon stopped")
}

func (d *daemon) updateLoop(ctx context.Context) {
	ticker := time.NewTicker(d.cfg.UpdateInterval)
	defer ticker.Stop()

	_, _ = d.updateOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = d.updateOnce(ctx)
		}
	}
}

func (d *daemon) updateOnce(ctx context.Context) (tide.UpdateResult, error) {
	result, err := d.pipeline.Update(ctx, d.cfg.HorizonHours)
	if err != nil {
		var updateErr *tide.UpdateError
		if errors.As(err, &updateErr) && updateErr.Result == tide.ResultTimeNotReady {
			log.Info().Msg("Waiting for clock sync")
		} else {
			log.Warn().Err(err).Str("result", result.String()).Msg("Tide update failed")
		}
	}
	return result, err
}

func (d *daemon) renderLoop(ctx context.Context) {
	ticker := time.NewTicker(renderPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.renderIfDirty()
		}
	}
}

// renderIfDirty redraws only when a new set has been published.
func (d *daemon) renderIfDirty() bool {
	if !d.pipeline.TakeDirtyFlag() {
		return false
	}

	curve, err := d.pipeline.GetTideCurve(d.cfg.UISamples)
	if err != nil {
		log.Error().Err(err).Msg("Cannot build tide curve")
		return false
	}

	d.display.Render(curve, d.pipeline.PhaseNow(), d.pipeline.TrendNow())
	return true
}

// renderer is whatever draws the curve; the daemon only logs it.
type renderer interface {
	Render(curve *models.SampleCurve, phase float64, trend models.TideType)
}

type logRenderer struct{}

func (logRenderer) Render(curve *models.SampleCurve, phase float64, trend models.TideType) {
	minH, maxH := curve.Heights[0], curve.Heights[0]
	for _, h := range curve.Heights {
		if h < minH {
			minH = h
		}
		if h > maxH {
			maxH = h
		}
	}

	log.Info().
		Int("samples", curve.Count()).
		Int64("step_seconds", curve.StepSeconds).
		Time("from", time.Unix(curve.FirstSampleUTC, 0).UTC()).
		Time("to", time.Unix(curve.LastSampleUTC(), 0).UTC()).
		Float64("min_height", minH).
		Float64("max_height", maxH).
		Float64("phase", phase).
		Str("trend", string(trend)).
		Msg("Tide curve updated")
}
