/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package featuregate

import (
	"sort"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/rs/xid"
	"github.com/vasayxtx/go-glob"
	"go.uber.org/atomic"

	"github.com/acronis/go-accelkit/log"
)

// DefaultErrorThreshold is a default number of recorded errors
// after which a feature is force-disabled until reset.
const DefaultErrorThreshold = 5

// Registry tracks named features, answers deterministic inclusion checks
// and force-disables a feature once its error count reaches the threshold.
//
// All methods are safe for concurrent use.
// The registry holds no global locks on the inclusion fast path beyond a read lock.
type Registry struct {
	mu       sync.RWMutex
	features map[string]*feature

	// nonce substitutes the request key in percentage decisions when the caller
	// passes no key. It is fixed at construction, so keyless decisions are
	// stable within a registry but vary between instances.
	nonce string

	errorThreshold int64
	disabled       atomic.Bool // global kill switch

	logger  log.FieldLogger
	metrics MetricsCollector
}

type feature struct {
	mode       Mode
	errorCount atomic.Int64
}

// RegistryOpts contains optional parameters for constructing Registry.
type RegistryOpts struct {
	// ErrorThreshold is the number of recorded errors after which the feature is
	// force-disabled. Negative value disables circuit breaking entirely.
	// DefaultErrorThreshold is used when zero.
	ErrorThreshold int

	// Logger is used for logging circuit state changes. Disabled logger by default.
	Logger log.FieldLogger

	// MetricsCollector collects gating metrics. May be nil.
	MetricsCollector MetricsCollector
}

// NewRegistry creates a new Registry with default options.
func NewRegistry() *Registry {
	return NewRegistryWithOpts(RegistryOpts{})
}

// NewRegistryWithOpts creates a new Registry
// with an ability to specify different optional parameters.
func NewRegistryWithOpts(opts RegistryOpts) *Registry {
	threshold := int64(opts.ErrorThreshold)
	if threshold == 0 {
		threshold = DefaultErrorThreshold
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewDisabledLogger()
	}
	metrics := opts.MetricsCollector
	if metrics == nil {
		metrics = disabledMetrics{}
	}
	return &Registry{
		features:       make(map[string]*feature),
		nonce:          xid.New().String(),
		errorThreshold: threshold,
		logger:         logger,
		metrics:        metrics,
	}
}

// Register adds a feature with the given mode,
// replacing the mode and clearing the error count if the feature already exists.
func (r *Registry) Register(name string, mode Mode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f := r.features[name]
	if f == nil {
		f = &feature{}
		r.features[name] = f
	}
	f.mode = mode
	f.errorCount.Store(0)
}

// SetMode changes the mode of a registered feature keeping its error count.
// Unknown features are reported with ErrUnknownFeature.
func (r *Registry) SetMode(name string, mode Mode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f := r.features[name]
	if f == nil {
		return ErrUnknownFeature
	}
	f.mode = mode
	return nil
}

// IsEnabled reports whether the feature applies to the request identified by key.
//
// Unknown features are disabled. A tripped circuit or the global kill switch
// force the result to false independent of the configured mode.
// For canary/rollout modes the decision is a deterministic hash of (name, key),
// stable across calls while the configuration is unchanged.
func (r *Registry) IsEnabled(name, key string) bool {
	enabled := r.checkEnabled(name, key)
	if enabled {
		r.metrics.IncAccepted(name)
	} else {
		r.metrics.IncRejected(name)
	}
	return enabled
}

func (r *Registry) checkEnabled(name, key string) bool {
	if r.disabled.Load() {
		return false
	}

	r.mu.RLock()
	f := r.features[name]
	var mode Mode
	var tripped bool
	if f != nil {
		mode = f.mode
		tripped = r.errorThreshold >= 0 && f.errorCount.Load() >= r.errorThreshold
	}
	r.mu.RUnlock()

	if f == nil || tripped {
		return false
	}

	switch mode.Kind {
	case ModeEnabled:
		return true
	case ModeCanary, ModeRollout:
		if key == "" {
			key = r.nonce
		}
		return xxhash.Sum64String(name+":"+key)%100 < uint64(mode.Percentage)
	}
	return false
}

// RecordError atomically increments the error count of the feature
// and returns the new value. Reaching the threshold trips the circuit:
// the feature stays force-disabled until Reset.
// Unknown features are ignored and reported as zero.
func (r *Registry) RecordError(name string) int64 {
	r.mu.RLock()
	f := r.features[name]
	r.mu.RUnlock()
	if f == nil {
		return 0
	}
	count := f.errorCount.Inc()
	r.metrics.IncErrors(name)
	if r.errorThreshold >= 0 && count == r.errorThreshold {
		r.metrics.IncTripped(name)
		r.logger.Warn("feature force-disabled after too many errors",
			log.String("feature", name), log.Int64("error_count", count))
	}
	return count
}

// Reset clears the error count of the feature re-opening its circuit.
// Unknown features are ignored.
func (r *Registry) Reset(name string) {
	r.mu.RLock()
	f := r.features[name]
	r.mu.RUnlock()
	if f != nil {
		f.errorCount.Store(0)
	}
}

// ResetAll clears error counts of all registered features.
func (r *Registry) ResetAll() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, f := range r.features {
		f.errorCount.Store(0)
	}
}

// ResetMatching clears error counts of all features whose name matches
// the glob pattern ("*" wildcards).
func (r *Registry) ResetMatching(pattern string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for name, f := range r.features {
		if glob.Glob(pattern, name) {
			f.errorCount.Store(0)
		}
	}
}

// SetGlobalEnabled switches the registry-wide kill switch.
// When disabled, IsEnabled returns false for every feature.
func (r *Registry) SetGlobalEnabled(enabled bool) {
	r.disabled.Store(!enabled)
}

// Status describes the momentary state of a feature.
type Status struct {
	Mode       Mode
	ErrorCount int64

	// CircuitOpen is true when the error count reached the threshold
	// and the feature is force-disabled.
	CircuitOpen bool

	// EffectivelyEnabled is true when the configured mode can admit at least
	// some requests and neither the circuit nor the kill switch forces the
	// feature off.
	EffectivelyEnabled bool
}

// Status returns the momentary state of the feature.
// The second result is false for unknown features.
func (r *Registry) Status(name string) (Status, bool) {
	r.mu.RLock()
	f := r.features[name]
	r.mu.RUnlock()
	if f == nil {
		return Status{}, false
	}
	count := f.errorCount.Load()
	tripped := r.errorThreshold >= 0 && count >= r.errorThreshold
	enabled := !tripped && !r.disabled.Load() &&
		(f.mode.Kind == ModeEnabled || (f.mode.Kind != ModeDisabled && f.mode.Percentage > 0))
	return Status{
		Mode:               f.mode,
		ErrorCount:         count,
		CircuitOpen:        tripped,
		EffectivelyEnabled: enabled,
	}, true
}

// Features returns the sorted names of all registered features.
func (r *Registry) Features() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.features))
	for name := range r.features {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}
