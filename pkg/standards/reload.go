package standards

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/accredmap/backend/pkg/common"
	"github.com/accredmap/backend/pkg/corpus"
	"github.com/accredmap/backend/pkg/leaselock"
	"github.com/accredmap/backend/pkg/logger"
)

// ErrReloadInProgress is returned when a reload is requested while another
// reload is already running. Reloads are rare, heavyweight, and serialized;
// callers should retry later.
var ErrReloadInProgress = errors.New("corpus reload already in progress")

const reloadLeaseKey = "standards:reload"

// WarmupFunc is invoked after a new generation is swapped in, typically to
// pre-compute standard-text embeddings. Warmup failures are logged and do
// not fail the reload.
type WarmupFunc func(ctx context.Context, gen *Generation) error

// Graph owns the current standards graph generation and serializes reloads.
// Readers pin a snapshot with Current and keep using it for the duration of
// a call; a concurrent reload swaps the pointer without disturbing them.
type Graph struct {
	current atomic.Pointer[Generation]
	lastGen atomic.Int64

	reloadMu sync.Mutex
	lease    *leaselock.Client
	warmup   WarmupFunc
}

type GraphOption func(*Graph)

// WithLease makes reloads also take a database lease, serializing reloads
// across processes that share the same database.
func WithLease(client *leaselock.Client) GraphOption {
	return func(g *Graph) {
		g.lease = client
	}
}

// WithWarmup registers a hook run after each successful swap.
func WithWarmup(fn WarmupFunc) GraphOption {
	return func(g *Graph) {
		g.warmup = fn
	}
}

func NewGraph(opts ...GraphOption) *Graph {
	g := &Graph{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(g)
	}
	return g
}

// Current returns the generation serving traffic right now, or nil before
// the first successful reload. Callers must hold on to the returned pointer
// for the duration of their operation instead of calling Current repeatedly.
func (g *Graph) Current() *Generation {
	return g.current.Load()
}

// ReloadStats reports what a reload accomplished, including per-accreditor
// errors for files that were skipped.
type ReloadStats struct {
	Generation        int64              `json:"generation"`
	AccreditorsLoaded int                `json:"accreditors_loaded"`
	Errors            []corpus.LoadError `json:"errors"`
	UsedSeed          bool               `json:"used_seed"`
}

// Reload runs the corpus loader against dir, builds a new generation off to
// the side, and atomically swaps it in once it is fully built and has at
// least one accreditor. When the directory yields nothing and fallbackToSeed
// is set, the bundled seed corpus is used instead. On failure the previous
// generation keeps serving traffic: stale-but-available over unavailable.
func (g *Graph) Reload(ctx context.Context, dir string, fallbackToSeed bool) (*ReloadStats, error) {
	if !g.reloadMu.TryLock() {
		return nil, ErrReloadInProgress
	}
	defer g.reloadMu.Unlock()

	if g.lease == nil {
		return g.reload(ctx, dir, fallbackToSeed)
	}

	var stats *ReloadStats
	err := g.lease.WithLease(ctx, reloadLeaseKey, leaselock.Options{}, func(ctx context.Context) error {
		var err error
		stats, err = g.reload(ctx, dir, fallbackToSeed)
		return err
	})
	if errors.Is(err, leaselock.ErrBusy) {
		return nil, ErrReloadInProgress
	}
	return stats, err
}

// reload does the actual load/build/swap under whatever locks Reload holds.
func (g *Graph) reload(ctx context.Context, dir string, fallbackToSeed bool) (*ReloadStats, error) {
	result, err := corpus.Load(ctx, dir)
	if err != nil {
		return nil, err
	}

	stats := &ReloadStats{Errors: result.Errors}

	accreditors := result.Accreditors
	if len(accreditors) == 0 {
		if !fallbackToSeed {
			return stats, corpus.ErrEmptyCorpus
		}
		logger.Warn("[Standards] Corpus empty, falling back to seed", "dir", dir)
		seed, err := corpus.Seed()
		if err != nil {
			return stats, err
		}
		accreditors = seed
		stats.UsedSeed = true
	}

	gen, err := Build(accreditors)
	if err != nil {
		if !fallbackToSeed || stats.UsedSeed {
			return stats, err
		}
		logger.Warn("[Standards] Build failed, retrying with seed corpus", "err", err)
		seed, seedErr := corpus.Seed()
		if seedErr != nil {
			return stats, seedErr
		}
		gen, err = Build(seed)
		if err != nil {
			return stats, err
		}
		stats.UsedSeed = true
	}

	gen.id = g.lastGen.Add(1)
	g.current.Store(gen)

	stats.Generation = gen.id
	stats.AccreditorsLoaded = len(gen.Accreditors())

	logger.Info("[Standards] Generation swapped in",
		"generation", gen.id,
		"accreditors", stats.AccreditorsLoaded,
		"standards", gen.TotalStandards(),
		"used_seed", stats.UsedSeed,
	)

	if g.warmup != nil {
		if err := g.warmup(ctx, gen); err != nil {
			logger.Warn("[Standards] Generation warmup failed", "generation", gen.id, "err", err)
		}
	}

	return stats, nil
}

// ScopeStandards resolves a candidate scope to the standards of the
// requested accreditors. An empty scope means every accreditor in the
// generation. Unknown codes are skipped; a scope that matches nothing
// resolves to an empty list, which is a valid outcome, not an error.
func ScopeStandards(gen *Generation, scope []string) []*common.Standard {
	if gen == nil {
		return nil
	}
	codes := scope
	if len(codes) == 0 {
		for _, acc := range gen.Accreditors() {
			codes = append(codes, acc.Code)
		}
	}
	var out []*common.Standard
	for _, code := range codes {
		out = append(out, gen.StandardsFor(code)...)
	}
	return out
}
