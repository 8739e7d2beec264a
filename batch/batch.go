// Package batch dispatches independent circuit-generation tasks across a
// worker pool, collects results keyed by task index, and reports completions
// to a progress observer. Tasks share only the read-only seed array and the
// structural parameters; a failed task never aborts its siblings.
package batch

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/amartinfer/qcbatch/circuit"
	"github.com/amartinfer/qcbatch/generate"
	"github.com/amartinfer/qcbatch/observe"
	"github.com/amartinfer/qcbatch/progress"
	"github.com/amartinfer/qcbatch/store"
)

var (
	ErrBadSpec  = errors.New("batch: bad spec")
	ErrCanceled = errors.New("batch: task canceled before start")
)

// Spec declares one batch run: Circuits independent tasks over the same
// width/depth, each picking its own entry of Seeds.
type Spec struct {
	Circuits int
	Width    int
	Depth    int
	Seeds    []int64
	Workers  int
}

func (spec Spec) validate() error {
	if spec.Circuits < 1 {
		return errors.Wrapf(ErrBadSpec, "circuits %d", spec.Circuits)
	}
	if len(spec.Seeds) < spec.Circuits {
		return errors.Wrapf(ErrBadSpec, "%d seeds for %d circuits", len(spec.Seeds), spec.Circuits)
	}
	// width and depth are deliberately not checked here: an invalid
	// structural parameter is an invalid-argument failure local to each
	// task, surfaced per index once all tasks settle.
	return nil
}

type Option struct {
	reporter progress.Reporter
	recorder observe.Factory
	archive  store.Archive
	limiter  *rate.Limiter
}

func WithReporter(reporter progress.Reporter) Option {
	return Option{reporter: reporter}
}

func WithRecorder(factory observe.Factory) Option {
	return Option{recorder: factory}
}

func WithArchive(archive store.Archive) Option {
	return Option{archive: archive}
}

// WithRateLimit throttles task starts.
func WithRateLimit(limiter *rate.Limiter) Option {
	return Option{limiter: limiter}
}

type profile struct {
	reporter progress.Reporter
	recorder observe.Factory
	archive  store.Archive
	limiter  *rate.Limiter
}

func (p profile) withOpts(opts []Option) profile {
	for _, opt := range opts {
		if opt.reporter != nil {
			p.reporter = opt.reporter
		}
		if opt.recorder != nil {
			p.recorder = opt.recorder
		}
		if opt.archive != nil {
			p.archive = opt.archive
		}
		if opt.limiter != nil {
			p.limiter = opt.limiter
		}
	}
	return p
}

// TaskResult is the settled outcome of one task index: either the output
// pair or the task's failure. Both circuits are owned exclusively by the
// caller once the batch returns.
type TaskResult struct {
	Index   int
	Seed    int64
	Full    *circuit.Circuit
	Reduced *circuit.Circuit
	Err     error
	Elapsed time.Duration
}

// Result holds every task outcome, ordered by task index regardless of
// completion order.
type Result struct {
	Results []TaskResult
	Elapsed time.Duration
}

// Failed lists the indices of tasks that did not produce an output pair.
func (res *Result) Failed() []int {
	var failed []int
	for _, tr := range res.Results {
		if tr.Err != nil {
			failed = append(failed, tr.Index)
		}
	}
	return failed
}

// Err aggregates all task failures into one error naming the failed
// indices, or nil if every task settled cleanly.
func (res *Result) Err() error {
	failed := res.Failed()
	if len(failed) == 0 {
		return nil
	}
	first := res.Results[failed[0]].Err
	return errors.Wrapf(first, "batch: %d of %d tasks failed, indices %v, first failure",
		len(failed), len(res.Results), failed)
}

// Runner executes one Spec.
type Runner struct {
	spec    Spec
	profile profile
}

func NewRunner(spec Spec, opts ...Option) (*Runner, error) {
	if err := spec.validate(); err != nil {
		return nil, err
	}
	if spec.Workers < 1 {
		spec.Workers = runtime.NumCPU()
	}
	return &Runner{
		spec:    spec,
		profile: profile{}.withOpts(opts),
	}, nil
}

// Run dispatches all tasks and blocks until every started task settles.
// Cancelling ctx stops feeding not-yet-started tasks (they settle with
// ErrCanceled); in-flight tasks run to completion. The returned Result is
// complete either way; the error reports only dispatch-level failure.
func (runner *Runner) Run(ctx context.Context) (*Result, error) {
	var (
		spec    = runner.spec
		start   = time.Now()
		results = make([]TaskResult, spec.Circuits)
		pool    = NewPool(spec.Workers)
		wg      sync.WaitGroup
	)
	defer pool.Close()

	var feedErr error
	for i := 0; i < spec.Circuits; i++ {
		if runner.profile.limiter != nil {
			if err := runner.profile.limiter.Wait(ctx); err != nil {
				feedErr = err
			}
		}
		if feedErr != nil {
			results[i] = TaskResult{
				Index: i,
				Seed:  spec.Seeds[i],
				Err:   errors.Wrapf(ErrCanceled, "%v", feedErr),
			}
			continue
		}

		index := i
		wg.Add(1)
		err := pool.Feed(ctx, func(taskCtx context.Context, _ int) {
			defer wg.Done()
			results[index] = runner.runTask(taskCtx, index)
			if rep := runner.profile.reporter; rep != nil {
				rep.Advance(1)
			}
		})
		if err != nil {
			wg.Done()
			feedErr = err
			results[i] = TaskResult{
				Index: i,
				Seed:  spec.Seeds[i],
				Err:   errors.Wrapf(ErrCanceled, "%v", err),
			}
		}
	}

	wg.Wait()
	if rep := runner.profile.reporter; rep != nil {
		rep.Finish()
	}

	res := &Result{
		Results: results,
		Elapsed: time.Since(start),
	}
	if feedErr != nil {
		return res, errors.Wrap(feedErr, "batch dispatch interrupted")
	}
	return res, nil
}

func (runner *Runner) runTask(ctx context.Context, index int) (tr TaskResult) {
	spec := runner.spec
	tr = TaskResult{
		Index: index,
		Seed:  spec.Seeds[index],
	}
	start := time.Now()

	var rec observe.Recorder
	if factory := runner.profile.recorder; factory != nil {
		rec, ctx = factory.TaskRecorder(ctx, "generate",
			observe.Int("index", index),
		)
	}

	defer func() {
		if r := recover(); r != nil {
			tr.Err = errors.Errorf("task %d panic: %v", index, r)
		}
		tr.Elapsed = time.Since(start)
		if rec != nil {
			rec.Commit(tr.Err)
		}
	}()

	full, reduced, err := generate.Generate(index, spec.Seeds, spec.Width, spec.Depth)
	if err != nil {
		tr.Err = err
		return tr
	}
	tr.Full, tr.Reduced = full, reduced

	if archive := runner.profile.archive; archive != nil {
		if err := archive.Save(ctx, store.Record{
			Index:     index,
			Seed:      spec.Seeds[index],
			Full:      full,
			Reduced:   reduced,
			CreatedAt: time.Now(),
		}); err != nil {
			tr.Err = errors.Wrapf(err, "archive task %d", index)
		}
	}
	return tr
}
