// Package registry holds the monitored domain lists and the set of domains
// last observed as blocked. It is the single owned state shared by the
// scheduler and the intake paths.
package registry

import (
	"sync"
	"time"

	bitsbloom "github.com/bits-and-blooms/bloom/v3"

	"github.com/haukened/blockwatch/internal/watch/common/clock"
	"github.com/haukened/blockwatch/internal/watch/common/log"
	"github.com/haukened/blockwatch/internal/watch/domain"
	"github.com/haukened/blockwatch/internal/watch/infra/metrics"
)

const (
	defaultBloomCapacity = 1024
	defaultBloomFPRate   = 0.01
)

// Options configures a Registry. Zero values pick sensible defaults.
type Options struct {
	Clock   clock.Clock
	Logger  log.Logger
	Metrics *metrics.Metrics

	// BloomCapacity is the initial expected number of blocked domains.
	// The filter is rebuilt at twice the size when it fills up.
	BloomCapacity uint
	BloomFPRate   float64
}

// orderedSet keeps insertion order with O(1) membership.
type orderedSet struct {
	items []domain.Domain
	index map[domain.Domain]struct{}
}

func newOrderedSet() *orderedSet {
	return &orderedSet{index: make(map[domain.Domain]struct{})}
}

func (s *orderedSet) add(d domain.Domain) bool {
	if _, ok := s.index[d]; ok {
		return false
	}
	s.index[d] = struct{}{}
	s.items = append(s.items, d)
	return true
}

// Registry owns the main and alternative lists and the blocked marker set.
// Entries are never removed.
type Registry struct {
	mu      sync.RWMutex
	lists   map[domain.List]*orderedSet
	blocked map[domain.Domain]time.Time

	// filter answers "definitely not blocked" without touching the map.
	filter   *bitsbloom.BloomFilter
	capacity uint
	fpRate   float64

	clock   clock.Clock
	logger  log.Logger
	metrics *metrics.Metrics
}

// New returns an empty Registry.
func New(opts Options) *Registry {
	if opts.Clock == nil {
		opts.Clock = &clock.RealClock{}
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNoopLogger()
	}
	if opts.BloomCapacity == 0 {
		opts.BloomCapacity = defaultBloomCapacity
	}
	if opts.BloomFPRate <= 0 || opts.BloomFPRate >= 1 {
		opts.BloomFPRate = defaultBloomFPRate
	}
	return &Registry{
		lists: map[domain.List]*orderedSet{
			domain.ListMain:        newOrderedSet(),
			domain.ListAlternative: newOrderedSet(),
		},
		blocked:  make(map[domain.Domain]time.Time),
		filter:   bitsbloom.NewWithEstimates(opts.BloomCapacity, opts.BloomFPRate),
		capacity: opts.BloomCapacity,
		fpRate:   opts.BloomFPRate,
		clock:    opts.Clock,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
	}
}

// AddDomain normalizes raw and inserts it into list. Adding a domain that
// is already present is a no-op that returns the normalized form.
func (r *Registry) AddDomain(list domain.List, raw string) (domain.Domain, error) {
	if err := list.Validate(); err != nil {
		return "", err
	}
	d, err := domain.NormalizeDomain(raw)
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	set := r.lists[list]
	added := set.add(d)
	count := len(set.items)
	r.mu.Unlock()

	if added {
		r.metrics.SetRegistryDomains(string(list), count)
		r.logger.Info(map[string]any{
			"domain": d.String(),
			"list":   string(list),
		}, "domain added")
	}
	return d, nil
}

// MarkBlocked records d as blocked. It returns true only when d was not
// already marked, which is what makes an alert fire exactly once.
func (r *Registry) MarkBlocked(d domain.Domain) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.blocked[d]; ok {
		return false
	}
	r.blocked[d] = r.clock.Now()
	if uint(len(r.blocked)) > r.capacity {
		r.rebuildFilterLocked()
	} else {
		r.filter.AddString(string(d))
	}
	return true
}

// IsBlocked reports whether d is currently marked as blocked.
func (r *Registry) IsBlocked(d domain.Domain) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.filter.TestString(string(d)) {
		return false
	}
	_, ok := r.blocked[d]
	return ok
}

// rebuildFilterLocked doubles the filter capacity and reinserts every
// blocked domain. Caller must hold the write lock.
func (r *Registry) rebuildFilterLocked() {
	r.capacity *= 2
	r.filter = bitsbloom.NewWithEstimates(r.capacity, r.fpRate)
	for d := range r.blocked {
		r.filter.AddString(string(d))
	}
	r.logger.Debug(map[string]any{
		"capacity": r.capacity,
		"blocked":  len(r.blocked),
	}, "blocked filter rebuilt")
}

// Snapshot returns a copy of the registry. The lists keep insertion order.
func (r *Registry) Snapshot() domain.Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := domain.Snapshot{
		Main:        append([]domain.Domain(nil), r.lists[domain.ListMain].items...),
		Alternative: append([]domain.Domain(nil), r.lists[domain.ListAlternative].items...),
		Blocked:     make(map[domain.Domain]time.Time, len(r.blocked)),
	}
	for d, at := range r.blocked {
		s.Blocked[d] = at
	}
	return s
}
