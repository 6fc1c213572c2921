package resolver

import (
	"context"
	"sync"

	"github.com/halcyon/model-bridge-api/internal/cache"
	"github.com/halcyon/model-bridge-api/internal/config"
	"go.uber.org/zap"
)

// Prober tests whether a public name is accepted by the upstream as-is.
type Prober interface {
	Probe(ctx context.Context, model string) error
}

// Recorder receives a record of every completed resolution. Implemented by
// the analytics ingestor; nil disables recording.
type Recorder interface {
	RecordResolution(public, backend, source string, thinking bool)
}

// resolution is a cached probe outcome. Known=false is meaningful: the
// probe failed and the fallback heuristic applies. Failures are cached for
// the process lifetime on purpose; if the upstream later learns the model,
// the bridge will not notice until restart.
type resolution struct {
	Name  string `json:"name"`
	Known bool   `json:"known"`
}

// Resolution sources, for logs and the audit trail.
const (
	SourceAlias    = "alias"
	SourceCache    = "cache"
	SourceShared   = "shared"
	SourceProbe    = "probe"
	SourceFallback = "fallback"
)

// Resolver maps public model names to backend model names. Resolve never
// fails: an alias hit, a successful probe, or the fallback heuristic always
// produces a usable backend model.
type Resolver struct {
	aliases  map[string]string
	thinking map[string]struct{}
	tiers    config.FallbackConfig
	probe    Prober
	shared   cache.Store // optional second level, nil when disabled
	recorder Recorder
	logger   *zap.Logger

	mu    sync.Mutex
	cache map[string]resolution
}

func New(cfg config.ResolverConfig, thinkingModels []string, probe Prober, shared cache.Store, recorder Recorder, logger *zap.Logger) *Resolver {
	thinking := make(map[string]struct{}, len(thinkingModels))
	for _, m := range thinkingModels {
		thinking[m] = struct{}{}
	}

	aliases := make(map[string]string, len(cfg.Aliases))
	for k, v := range cfg.Aliases {
		aliases[k] = v
	}

	return &Resolver{
		aliases:  aliases,
		thinking: thinking,
		tiers:    cfg.Fallback,
		probe:    probe,
		shared:   shared,
		recorder: recorder,
		logger:   logger,
		cache:    make(map[string]resolution),
	}
}

// Resolve maps a public model name to a backend model name.
//
// Order: alias table, local cache, shared cache, probe, fallback heuristic.
// Concurrent first-time resolutions of the same name may each probe once;
// the probes are idempotent and last-write-wins, so this costs a duplicate
// call at worst.
func (r *Resolver) Resolve(ctx context.Context, public string) string {
	if backend, ok := r.aliases[public]; ok {
		r.record(public, backend, SourceAlias)
		return backend
	}

	res, source, cached := r.lookup(ctx, public)
	if !cached {
		res = r.probeFor(ctx, public)
		source = SourceProbe

		r.mu.Lock()
		r.cache[public] = res
		r.mu.Unlock()
		r.storeShared(ctx, public, res)
	}

	if res.Known {
		r.record(public, res.Name, source)
		return res.Name
	}

	backend := r.fallbackFor(public)
	r.record(public, backend, SourceFallback)
	return backend
}

// ThinkingEligible reports whether a backend model accepts the thinking
// directive.
func (r *Resolver) ThinkingEligible(backend string) bool {
	_, ok := r.thinking[backend]
	return ok
}

// Aliases returns a copy of the alias table for the model-listing endpoint.
func (r *Resolver) Aliases() map[string]string {
	out := make(map[string]string, len(r.aliases))
	for k, v := range r.aliases {
		out[k] = v
	}
	return out
}

func (r *Resolver) lookup(ctx context.Context, public string) (resolution, string, bool) {
	r.mu.Lock()
	res, ok := r.cache[public]
	r.mu.Unlock()
	if ok {
		return res, SourceCache, true
	}

	if r.shared == nil {
		return resolution{}, "", false
	}

	if err := r.shared.Get(ctx, "resolve:"+public, &res); err != nil {
		return resolution{}, "", false
	}

	// Adopt the shared result locally so later calls stay in-process.
	r.mu.Lock()
	r.cache[public] = res
	r.mu.Unlock()
	return res, SourceShared, true
}

func (r *Resolver) probeFor(ctx context.Context, public string) resolution {
	if err := r.probe.Probe(ctx, public); err != nil {
		return resolution{}
	}
	return resolution{Name: public, Known: true}
}

func (r *Resolver) storeShared(ctx context.Context, public string, res resolution) {
	if r.shared == nil {
		return
	}
	// ttl 0: probe outcomes never expire, matching the local cache.
	// Concurrent probes for the same name overwrite each other here,
	// last-write-wins, same as the local cache.
	if err := r.shared.Set(ctx, "resolve:"+public, res, 0); err != nil {
		r.logger.Warn("failed to publish resolution to shared cache",
			zap.String("model", public), zap.Error(err))
	}
}

func (r *Resolver) record(public, backend, source string) {
	thinking := r.ThinkingEligible(backend)

	r.logger.Info("model resolved",
		zap.String("requested", public),
		zap.String("backend", backend),
		zap.String("source", source),
		zap.Bool("thinking", thinking),
	)

	if r.recorder != nil {
		r.recorder.RecordResolution(public, backend, source, thinking)
	}
}
