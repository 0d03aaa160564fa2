// Package analysis runs the full analysis of an air purifier dataset: load,
// describe, give the readings a timeline, resample, chart and export.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/mtraver/air-quality-analysis/chart"
	"github.com/mtraver/air-quality-analysis/dataset"
	"github.com/mtraver/air-quality-analysis/export"
	"github.com/mtraver/air-quality-analysis/observation"
	"github.com/mtraver/air-quality-analysis/summary"
	"github.com/mtraver/air-quality-analysis/timeline"
)

// Chart file names, relative to Config.OutDir.
const (
	AQITimeSeriesFile    = "aqi_time_series.png"
	OxygenTimeSeriesFile = "oxygen_time_series.png"
	OverlayFile          = "time_series_plot.png"
	DistributionsFile    = "distributions_plot.png"
)

type Config struct {
	// Path is the dataset file, .xlsx or .csv.
	Path string
	// Columns maps the dataset's two columns to fields. Required.
	Columns observation.ColumnOrder
	// OutDir is where charts are written. Charts are skipped if empty.
	OutDir string
	// Cadence is the resampling bucket width. Zero means timeline.DefaultCadence.
	Cadence time.Duration
}

// Result is what one run produced.
type Result struct {
	Observations int
	Granularity  time.Duration
	Summary      summary.Summary
	Series       []observation.Timestamped
	Bins         []observation.Bin
	Charts       []string
	// Failures joins the errors of steps that failed without stopping the run,
	// such as charts that couldn't be written or exports that were rejected.
	Failures error
}

type Analyzer struct {
	cfg      Config
	registry *export.Registry
	logger   *log.Logger
	out      io.Writer

	// Runs may be triggered from a scheduler and a file watcher at once;
	// only one runs at a time.
	mu sync.Mutex
}

// New returns an Analyzer that writes its report to out, logs to logger and
// exports to everything in registry. registry may be nil.
func New(cfg Config, registry *export.Registry, logger *log.Logger, out io.Writer) *Analyzer {
	if cfg.Cadence == 0 {
		cfg.Cadence = timeline.DefaultCadence
	}
	if registry == nil {
		registry = export.NewRegistry()
	}

	return &Analyzer{
		cfg:      cfg,
		registry: registry,
		logger:   logger,
		out:      out,
	}
}

// DatasetName is the dataset's file name without its extension.
func (a *Analyzer) DatasetName() string {
	base := filepath.Base(a.cfg.Path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Run analyzes the dataset once. The synthesized timeline starts at epoch,
// which callers normally get from timeline.StartOfDay(time.Now()).
//
// Loading, describing and resampling must succeed or Run returns an error.
// Chart and export failures are logged and reported in Result.Failures.
func (a *Analyzer) Run(ctx context.Context, epoch time.Time) (Result, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.logger.Printf("Loading %s with columns %s", a.cfg.Path, a.cfg.Columns)
	obs, err := dataset.Load(a.cfg.Path, a.cfg.Columns)
	if err != nil {
		return Result{}, err
	}
	a.logger.Printf("Loaded %d observations", len(obs))

	s, err := summary.Describe(obs)
	if err != nil {
		return Result{}, err
	}
	fmt.Fprintln(a.out, "--- Statistical Summary ---")
	if err := s.Report(a.out); err != nil {
		return Result{}, fmt.Errorf("analysis: writing report: %v", err)
	}

	step, err := timeline.Granularity(len(obs))
	if err != nil {
		return Result{}, err
	}
	series, err := timeline.Attach(obs, epoch)
	if err != nil {
		return Result{}, err
	}
	a.logger.Printf("Synthesized timeline from %s at %v spacing", epoch.Format(time.RFC3339), step)

	bins, err := timeline.Resample(series, a.cfg.Cadence)
	if err != nil {
		return Result{}, err
	}
	a.logger.Printf("Resampled to %d bins of %v", len(bins), a.cfg.Cadence)

	res := Result{
		Observations: len(obs),
		Granularity:  step,
		Summary:      s,
		Series:       series,
		Bins:         bins,
	}

	var failures []error
	if a.cfg.OutDir != "" {
		charts, errs := a.charts(obs, series, bins)
		res.Charts = charts
		failures = append(failures, errs...)
	}
	failures = append(failures, a.export(ctx, s.Table(), bins, res.Charts)...)

	res.Failures = errors.Join(failures...)
	return res, nil
}

func (a *Analyzer) charts(obs []observation.Observation, series []observation.Timestamped, bins []observation.Bin) ([]string, []error) {
	jobs := []struct {
		file   string
		render func(path string) error
	}{
		{AQITimeSeriesFile, func(p string) error { return chart.TimeSeries(bins, observation.AQI, p) }},
		{OxygenTimeSeriesFile, func(p string) error { return chart.TimeSeries(bins, observation.Oxygen, p) }},
		{OverlayFile, func(p string) error { return chart.Overlay(series, p) }},
		{DistributionsFile, func(p string) error { return chart.Distributions(obs, p) }},
	}

	var written []string
	var errs []error
	for _, j := range jobs {
		path := filepath.Join(a.cfg.OutDir, j.file)
		if err := j.render(path); err != nil {
			a.logger.Printf("Failed to render %s: %v", j.file, err)
			errs = append(errs, err)
			continue
		}
		a.logger.Printf("Saved %s", path)
		written = append(written, path)
	}
	return written, errs
}

func (a *Analyzer) export(ctx context.Context, t summary.Table, bins []observation.Bin, charts []string) []error {
	var errs []error

	for _, name := range a.registry.Exporters() {
		e, err := a.registry.Get(name)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		if err := e.Export(ctx, t); err != nil {
			a.logger.Printf("Failed to export to %s: %v", name, err)
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		a.logger.Printf("Exported summary to %s", name)
	}

	for name, sink := range a.registry.Sinks() {
		if err := sink.WriteSeries(ctx, a.DatasetName(), bins); err != nil {
			a.logger.Printf("Failed to write series to %s: %v", name, err)
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		a.logger.Printf("Wrote %d bins to %s", len(bins), name)
	}

	if len(charts) == 0 {
		return errs
	}
	for name, sink := range a.registry.FileSinks() {
		if err := sink.StoreFiles(ctx, a.DatasetName(), charts); err != nil {
			a.logger.Printf("Failed to store charts in %s: %v", name, err)
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		a.logger.Printf("Stored %d charts in %s", len(charts), name)
	}

	return errs
}
