// Package etl runs decode, assemble and load over a batch of cached pages.
package etl

import (
	"context"
	"errors"
	"fmt"
	"keiba-etl/internal/assemble"
	"keiba-etl/internal/assert"
	"keiba-etl/internal/chrono"
	"keiba-etl/internal/loader"
	"keiba-etl/internal/racedata"
	"keiba-etl/internal/telemetry"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mazen160/go-random"
	"github.com/panjf2000/ants/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var tracer = otel.Tracer("keiba.internal.etl")
var meter = otel.Meter("keiba.internal.etl")

const (
	report_etl_race     = "race"
	report_etl_loaded   = "races-loaded"
	report_etl_failed   = "races-failed"
	report_etl_unknowns = "unknown-placeholders"
)

type Config struct {
	HtmlDir string `json:"html_dir"`
	Workers int    `json:"workers"`
	FailLog string `json:"fail_log"`
}

type Failure struct {
	RaceID string
	Path   string
	Err    error
}

type Result struct {
	// RunID tags every report of a single run.
	RunID      string
	StartedAt  time.Time
	Elapsed    time.Duration
	Total      int
	Succeeded  int
	Failed     int
	ZeroRunner int
	// Skipped counts pages never scheduled, the run was cancelled or the pool
	// refused them.
	Skipped  int
	Dropped  int
	Unknowns racedata.UnknownCounts
	Failures []Failure
}

type Runner struct {
	assembler *assemble.Assembler
	loader    *loader.Loader
	workers   int
	tel       telemetry.API
	clock     chrono.TimeAPI

	loaded   metric.Int64Counter
	failed   metric.Int64Counter
	unknowns metric.Int64Counter
}

func NewRunner(assembler *assemble.Assembler, loader *loader.Loader, workers int, tel telemetry.API) (*Runner, error) {
	assert.NotNil(assembler)
	assert.NotNil(loader)
	if workers <= 0 {
		workers = 1
	}

	loaded, err := meter.Int64Counter("etl.races_loaded")
	if err != nil {
		return nil, err
	}
	failed, err := meter.Int64Counter("etl.races_failed")
	if err != nil {
		return nil, err
	}
	unknowns, err := meter.Int64Counter("etl.unknown_placeholders")
	if err != nil {
		return nil, err
	}

	return &Runner{
		assembler: assembler,
		loader:    loader,
		workers:   workers,
		tel:       telemetry.NewScopedAPI("etl", tel),
		clock:     chrono.NewStandardTime(),
		loaded:    loaded,
		failed:    failed,
		unknowns:  unknowns,
	}, nil
}

type outcome struct {
	source   Source
	runners  int
	dropped  int
	unknowns racedata.UnknownCounts
	err      error
}

// Run processes every source on the worker pool. A failing race never stops
// the batch, cancelling ctx stops scheduling new races but lets the ones in
// flight finish.
func (r *Runner) Run(ctx context.Context, sources []Source) (Result, error) {
	runID, err := random.String(8)
	if err != nil {
		return Result{}, fmt.Errorf("generate run id: %w", err)
	}
	ctx, span := tracer.Start(ctx, "Run")
	defer span.End()
	span.SetAttributes(attribute.String("run_id", runID), attribute.Int("sources", len(sources)))

	result := Result{RunID: runID, Total: len(sources), StartedAt: r.clock.Now()}

	pool, err := ants.NewPool(r.workers)
	if err != nil {
		return result, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	outcomes := make(chan outcome, len(sources))
	var succeeded atomic.Int32
	var failed atomic.Int32

	var submitErr error
	var workers sync.WaitGroup
	for i, source := range sources {
		if ctx.Err() != nil {
			result.Skipped = len(sources) - i
			break
		}

		source := source
		workers.Add(1)
		if err := pool.Submit(func() {
			defer workers.Done()

			// a race that has started is short and atomic, it is never cut off
			out := r.safeProcess(context.WithoutCancel(ctx), runID, source)
			if out.err != nil {
				failed.Add(1)
				r.failed.Add(ctx, 1)
			} else {
				succeeded.Add(1)
				r.loaded.Add(ctx, 1)
			}
			outcomes <- out
		}); err != nil {
			workers.Done()
			result.Skipped = len(sources) - i
			submitErr = fmt.Errorf("submit race %s to worker pool: %w", source.RaceID, err)
			break
		}
	}

	workers.Wait()
	close(outcomes)

	for out := range outcomes {
		result.Dropped += out.dropped
		result.Unknowns.Add(out.unknowns)
		if out.err != nil {
			result.Failures = append(result.Failures, Failure{
				RaceID: out.source.RaceID,
				Path:   out.source.Path,
				Err:    out.err,
			})
			continue
		}
		if out.runners == 0 {
			result.ZeroRunner++
		}
	}
	sort.Slice(result.Failures, func(i, j int) bool {
		return result.Failures[i].RaceID < result.Failures[j].RaceID
	})

	result.Elapsed = r.clock.Now().Sub(result.StartedAt)
	result.Succeeded = int(succeeded.Load())
	result.Failed = int(failed.Load())
	r.unknowns.Add(ctx, int64(result.Unknowns.Total()))

	r.tel.ReportCount(report_etl_loaded, int64(result.Succeeded))
	r.tel.ReportCount(report_etl_failed, int64(result.Failed))
	r.tel.ReportCount(report_etl_unknowns, int64(result.Unknowns.Total()))

	if submitErr != nil {
		return result, submitErr
	}
	if result.Skipped > 0 {
		return result, ctx.Err()
	}
	return result, nil
}

// safeProcess turns a panic while processing a race into a failure of that
// race, so that every scheduled race ends up either succeeded or failed.
func (r *Runner) safeProcess(ctx context.Context, runID string, source Source) (out outcome) {
	defer func() {
		if recovered := recover(); recovered != nil {
			out = outcome{
				source: source,
				err:    fmt.Errorf("panic: %v", recovered),
			}
			r.tel.ReportBroken(report_etl_race, source.RaceID, runID, out.err)
		}
	}()
	return r.process(ctx, runID, source)
}

func (r *Runner) process(ctx context.Context, runID string, source Source) outcome {
	out := outcome{source: source}

	raw, err := os.ReadFile(source.Path)
	if err != nil {
		out.err = fmt.Errorf("read page: %w", err)
		r.tel.ReportBroken(report_etl_race, source.RaceID, runID, out.err)
		return out
	}

	page, err := r.assembler.Assemble(ctx, source.RaceID, raw)
	if err != nil {
		out.err = err
		r.tel.ReportBroken(report_etl_race, source.RaceID, runID, err)
		return out
	}
	out.unknowns = page.Unknowns

	res, err := r.loader.Load(ctx, page)
	out.runners = res.Runners
	out.dropped = page.DroppedRows + res.Dropped
	if err != nil {
		out.err = err
		r.tel.ReportBroken(report_etl_race, source.RaceID, runID, err)
		return out
	}
	return out
}

// AppendFailLog appends one "<race_id>\t<path>\t<error>" line per failure.
func AppendFailLog(path string, failures []Failure) error {
	if path == "" || len(failures) == 0 {
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	var b strings.Builder
	for _, failure := range failures {
		msg := strings.ReplaceAll(failure.Err.Error(), "\n", " ")
		fmt.Fprintf(&b, "%s\t%s\t%s\n", failure.RaceID, failure.Path, msg)
	}
	_, err = f.WriteString(b.String())
	return errors.Join(err, f.Close())
}
