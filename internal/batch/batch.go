// Package batch builds life tables for many selections in parallel.
package batch

import (
	"context"
	"fmt"
	"runtime"

	"github.com/sourcegraph/conc/pool"

	"github.com/demostat/lifedecomp/internal/dataset"
	"github.com/demostat/lifedecomp/internal/errors"
	"github.com/demostat/lifedecomp/internal/lifetable"
	"github.com/demostat/lifedecomp/internal/logging"
)

// Source resolves a selection into an age-ordered series.
type Source interface {
	Select(sel dataset.Selection) (*dataset.Series, error)
}

// Result is the outcome for one selection. Exactly one of Table and Err is
// set, except that Table stays set when only the handler failed.
type Result struct {
	Selection dataset.Selection
	Table     *lifetable.Table
	Err       error
}

// Handler is called from the worker goroutine after a table is built, for
// example to export it. Its error is recorded on the Result.
type Handler func(ctx context.Context, res Result) error

// Runner builds life tables with bounded parallelism.
type Runner struct {
	maxParallel int
	logger      *logging.Logger
	handler     Handler
}

// Option configures a Runner.
type Option func(*Runner)

// WithMaxParallel bounds the number of concurrent builds. Values below one
// use GOMAXPROCS.
func WithMaxParallel(n int) Option {
	return func(r *Runner) {
		r.maxParallel = n
	}
}

// WithLogger sets the logger for per-selection progress.
func WithLogger(logger *logging.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithHandler runs h for every successfully built table.
func WithHandler(h Handler) Option {
	return func(r *Runner) {
		r.handler = h
	}
}

// NewRunner creates a Runner.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{logger: logging.NopLogger()}
	for _, opt := range opts {
		opt(r)
	}
	if r.maxParallel < 1 {
		r.maxParallel = runtime.GOMAXPROCS(0)
	}
	return r
}

// MaxParallel returns the concurrency bound.
func (r *Runner) MaxParallel() int {
	return r.maxParallel
}

// Run builds one table per selection. Results are in input order. A failed
// selection does not stop the others; its error is kept on its Result.
// Run returns ctx.Err() if the context was cancelled, in which case
// selections that never started carry that error too.
func (r *Runner) Run(ctx context.Context, src Source, sels []dataset.Selection) ([]Result, error) {
	results := make([]Result, len(sels))
	p := pool.New().WithMaxGoroutines(r.maxParallel)

	for i, sel := range sels {
		results[i].Selection = sel
		p.Go(func() {
			results[i] = r.runOne(ctx, src, sel)
		})
	}
	p.Wait()

	return results, ctx.Err()
}

func (r *Runner) runOne(ctx context.Context, src Source, sel dataset.Selection) Result {
	res := Result{Selection: sel}
	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}

	log := r.logger.WithSelection(sel.Country, sel.Sex).WithYear(sel.Year)

	series, err := src.Select(sel)
	if err != nil {
		log.Warn("selection failed", "error", err)
		res.Err = err
		return res
	}
	res.Table, err = series.LifeTable()
	if err != nil {
		log.Warn("life table failed", "error", err)
		res.Table = nil
		res.Err = fmt.Errorf("%s: %w", sel, err)
		return res
	}
	log.Debug("built life table", "e0", res.Table.E0())

	if r.handler != nil {
		if err := r.handler(ctx, res); err != nil {
			log.Error("handler failed", "error", err)
			res.Err = err
		}
	}
	return res
}

// Err joins the errors of all failed results, or returns nil.
func Err(results []Result) error {
	var errs []error
	for _, res := range results {
		if res.Err != nil {
			errs = append(errs, res.Err)
		}
	}
	return errors.Join(errs...)
}

// Years builds one selection per year for a fixed country and sex.
func Years(country, sex string, years []int) []dataset.Selection {
	sels := make([]dataset.Selection, len(years))
	for i, y := range years {
		sels[i] = dataset.Selection{Year: y, Country: country, Sex: sex}
	}
	return sels
}
