// Package mirror implements the resolution engine: a concurrent fixpoint
// traversal over the dependency graph declared by a set of starting
// coordinates, mirroring every policy-selected artifact into a local cache
// directory.
//
// Each unique group:artifact key is fetched at most once per run. The run
// completes when no scheduled task is left outstanding, however deep the
// transitive graph turns out to be. The first task failure aborts the run
// with that error; already-launched siblings are not cancelled unless
// [Options.CancelOnError] is set, so their cache writes may still land.
package mirror

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/klibmirror/klibmirror/pkg/maven"
)

// DefaultWorkers is the worker pool size used when Options.Workers is not
// set. It bounds concurrent fetches against the remote repository.
const DefaultWorkers = 16

// Fetcher performs the per-coordinate I/O of a resolution task. The
// [maven.Client] is the standard implementation.
//
// Both methods are called concurrently from multiple worker goroutines and
// must be safe for concurrent use.
type Fetcher interface {
	// Download ensures the coordinate's binary artifact is present in
	// cacheDir, fetching it only on a cache miss.
	Download(ctx context.Context, coord maven.Coordinate, cacheDir string) error

	// Dependencies returns the compact coordinate strings of the
	// coordinate's policy-selected direct dependencies.
	Dependencies(ctx context.Context, coord maven.Coordinate, policy maven.Policy, refresh bool) ([]string, error)
}

// Options configures a resolution run.
type Options struct {
	// Policy selects which dependency variant is followed transitively.
	// Defaults to [maven.PolicyStandard].
	Policy maven.Policy

	// Workers is the worker pool size. Defaults to [DefaultWorkers].
	Workers int

	// Refresh bypasses the descriptor response cache.
	Refresh bool

	// CancelOnError cancels in-flight sibling tasks once a task has
	// failed. Off by default: siblings run to completion and their cache
	// writes land even though the run reports the first failure.
	CancelOnError bool

	// Logf receives progress messages. Defaults to a no-op.
	Logf func(format string, args ...any)
}

// WithDefaults returns a copy of opts with unset fields set to defaults.
func (o Options) WithDefaults() Options {
	if o.Policy == "" {
		o.Policy = maven.PolicyStandard
	}
	if o.Workers <= 0 {
		o.Workers = DefaultWorkers
	}
	if o.Logf == nil {
		o.Logf = func(string, ...any) {}
	}
	return o
}

// Edge is a discovered dependency relation between two dedup keys.
type Edge struct {
	From string // Parent key ("group:artifact")
	To   string // Child key
}

// Report summarizes a completed resolution run.
type Report struct {
	// Artifacts lists every mirrored coordinate in completion order. Its
	// length equals the number of distinct group:artifact keys reachable
	// from the initial coordinates under the active policy.
	Artifacts []maven.Coordinate

	// Edges lists the dependency relations discovered during traversal,
	// including edges into already-scheduled keys (diamonds stay visible).
	Edges []Edge
}

// Resolver mirrors transitive dependency closures into a cache directory.
//
// Use [NewResolver] to construct instances. A Resolver holds no per-run
// state; Resolve may be called repeatedly and concurrently.
type Resolver struct {
	fetcher  Fetcher
	cacheDir string
}

// NewResolver creates a Resolver that fetches through the given Fetcher and
// writes binary artifacts into cacheDir.
func NewResolver(fetcher Fetcher, cacheDir string) *Resolver {
	return &Resolver{fetcher: fetcher, cacheDir: cacheDir}
}

// CacheDir returns the artifact cache directory.
func (r *Resolver) CacheDir() string { return r.cacheDir }

// Resolve mirrors the full transitive closure of the given coordinate
// strings.
//
// All initial coordinates are parsed before any task is created, so a
// malformed input fails with MALFORMED_COORDINATE without a single network
// call. Each accepted coordinate is marked seen under the lock at the
// enqueue boundary, strictly before any fetch begins; this check-and-insert
// is what guarantees at-most-one fetch per key no matter how many parents
// declare it.
//
// Every task downloads the binary and fetches/parses the descriptor
// concurrently; descriptor-derived children feed back into the enqueue
// step until the outstanding count drains to zero.
func (r *Resolver) Resolve(ctx context.Context, coords []string, opts Options) (*Report, error) {
	opts = opts.WithDefaults()

	seeds := make([]maven.Coordinate, 0, len(coords))
	for _, s := range coords {
		coord, err := maven.ParseCoordinate(s)
		if err != nil {
			return nil, err
		}
		seeds = append(seeds, coord)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	run := &run{
		ctx:      ctx,
		cancel:   cancel,
		opts:     opts,
		fetcher:  r.fetcher,
		cacheDir: r.cacheDir,
		seen:     make(map[string]bool),
		edges:    make(map[Edge]bool),
		jobs:     make(chan maven.Coordinate, opts.Workers*2),
		results:  make(chan result, opts.Workers*2),
	}
	return run.resolve(seeds)
}

// run holds the mutable state of one resolution. The seen map is the only
// state shared with worker goroutines; everything else is touched solely by
// the collect loop.
type run struct {
	ctx      context.Context
	cancel   context.CancelFunc
	opts     Options
	fetcher  Fetcher
	cacheDir string

	jobs    chan maven.Coordinate
	results chan result
	workers sync.WaitGroup
	sends   sync.WaitGroup // In-flight enqueue goroutines

	mu      sync.Mutex
	seen    map[string]bool
	pending int64 // Outstanding scheduled-but-unfinished tasks

	report Report
	edges  map[Edge]bool
}

// result is the outcome of one resolution task.
type result struct {
	coord    maven.Coordinate
	children []string
	err      error
}

func (r *run) resolve(seeds []maven.Coordinate) (*Report, error) {
	for range r.opts.Workers {
		r.workers.Add(1)
		go r.worker()
	}

	scheduled := false
	for _, coord := range seeds {
		scheduled = r.schedule(coord) || scheduled
	}
	if !scheduled {
		r.shutdown()
		return &r.report, nil
	}
	if err := r.collect(); err != nil {
		r.shutdown()
		return nil, err
	}

	r.shutdown()
	return &r.report, nil
}

// shutdown quiesces the pool. Once a coordinate has been accepted into the
// seen set its task runs to completion: the jobs channel closes only after
// every in-flight enqueue has delivered, and workers keep draining it until
// then. Unless the run was cancelled, results arriving after the collect
// loop has returned are drained and discarded here; their cache writes have
// already landed.
func (r *run) shutdown() {
	if r.opts.CancelOnError {
		r.cancel()
	}
	go func() {
		r.sends.Wait()
		close(r.jobs)
		r.workers.Wait()
		close(r.results)
	}()

	// Drain concurrently so neither a worker blocked on a result send nor
	// an enqueue blocked on a full job queue can stall the waits above.
	for range r.results {
	}
}

// worker consumes coordinates from the job queue until it closes. The
// binary download and the descriptor fetch+parse run concurrently; the task
// finishes only once both have.
func (r *run) worker() {
	defer r.workers.Done()
	for coord := range r.jobs {
		if err := r.ctx.Err(); err != nil {
			r.results <- result{coord: coord, err: err}
			continue
		}

		download := make(chan error, 1)
		go func() {
			download <- r.fetcher.Download(r.ctx, coord, r.cacheDir)
		}()
		children, depErr := r.fetcher.Dependencies(r.ctx, coord, r.opts.Policy, r.opts.Refresh)
		dlErr := <-download

		res := result{coord: coord}
		switch {
		case dlErr != nil:
			res.err = dlErr
		case depErr != nil:
			res.err = depErr
		default:
			res.children = children
		}
		r.results <- res
	}
}

// schedule marks the coordinate's key seen and hands it to the worker pool.
// Returns false if the key was already scheduled in this run. The seen
// insert happens under the lock with no I/O in between; the channel send
// runs in its own sends-tracked goroutine, so the collect loop can never
// deadlock against a full job queue and shutdown never closes the queue
// out from under a pending send.
func (r *run) schedule(coord maven.Coordinate) bool {
	r.mu.Lock()
	if r.seen[coord.Key()] {
		r.mu.Unlock()
		return false
	}
	r.seen[coord.Key()] = true
	r.mu.Unlock()

	atomic.AddInt64(&r.pending, 1)

	r.sends.Add(1)
	go func() {
		defer r.sends.Done()
		select {
		case r.jobs <- coord:
		case <-r.ctx.Done():
			atomic.AddInt64(&r.pending, -1)
		}
	}()
	return true
}

// collect processes task results until the outstanding count drains to
// zero. The first failed task aborts the wait with its error. Children are
// scheduled before the parent is counted finished, so the pending counter
// can never reach zero while discovered work remains.
func (r *run) collect() error {
	for {
		select {
		case res := <-r.results:
			if res.err != nil {
				return res.err
			}
			if err := r.handle(res); err != nil {
				return err
			}
			if atomic.AddInt64(&r.pending, -1) == 0 {
				return nil
			}
		case <-r.ctx.Done():
			return r.ctx.Err()
		}
	}
}

// handle records a completed artifact and feeds its children back into the
// schedule step.
func (r *run) handle(res result) error {
	r.report.Artifacts = append(r.report.Artifacts, res.coord)
	r.opts.Logf("mirrored %s (%d dependencies)", res.coord.Filename(), len(res.children))

	for _, child := range res.children {
		coord, err := maven.ParseCoordinate(child)
		if err != nil {
			return err
		}
		edge := Edge{From: res.coord.Key(), To: coord.Key()}
		if !r.edges[edge] {
			r.edges[edge] = true
			r.report.Edges = append(r.report.Edges, edge)
		}
		r.schedule(coord)
	}
	return nil
}
