// Package ratelimit provides an advisory in-process rate limiter keyed by
// subject. Counts are per process; a multi-node deployment enforces an
// approximate global limit, which is the intended behavior.
package ratelimit

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	shardCount = 32

	// DefaultPruneInterval controls how often idle subjects are evicted.
	DefaultPruneInterval = 5 * time.Minute

	// DefaultIdleTTL is how long a subject must be quiet before eviction.
	DefaultIdleTTL = 15 * time.Minute
)

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type shard struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// Limiter tracks a token bucket per subject across a fixed set of shards so
// concurrent requests for different subjects rarely contend on one lock.
type Limiter struct {
	limit rate.Limit
	burst int

	shards [shardCount]*shard

	pruneInterval time.Duration
	idleTTL       time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a limiter allowing rps sustained requests per subject with the
// given burst, and starts the background pruner.
func New(rps float64, burst int) *Limiter {
	ctx, cancel := context.WithCancel(context.Background())

	l := &Limiter{
		limit:         rate.Limit(rps),
		burst:         burst,
		pruneInterval: DefaultPruneInterval,
		idleTTL:       DefaultIdleTTL,
		ctx:           ctx,
		cancel:        cancel,
	}
	for i := range l.shards {
		l.shards[i] = &shard{entries: make(map[string]*entry)}
	}

	l.wg.Add(1)
	go l.pruneLoop()

	return l
}

// Allow reports whether the subject may proceed right now, consuming one
// token when it may. When denied, retryAfter is how long until a token
// becomes available.
func (l *Limiter) Allow(subject string) (ok bool, retryAfter time.Duration) {
	s := l.shardFor(subject)

	s.mu.Lock()
	e, exists := s.entries[subject]
	if !exists {
		e = &entry{limiter: rate.NewLimiter(l.limit, l.burst)}
		s.entries[subject] = e
	}
	e.lastSeen = time.Now()
	s.mu.Unlock()

	res := e.limiter.Reserve()
	if delay := res.Delay(); delay > 0 {
		res.Cancel()
		return false, delay
	}

	return true, 0
}

// Stop halts the background pruner. Allow remains safe to call after Stop.
func (l *Limiter) Stop() {
	l.cancel()
	l.wg.Wait()
}

func (l *Limiter) shardFor(subject string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(subject))
	return l.shards[h.Sum32()%shardCount]
}

func (l *Limiter) pruneLoop() {
	defer l.wg.Done()

	ticker := time.NewTicker(l.pruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.ctx.Done():
			return
		case <-ticker.C:
			l.prune()
		}
	}
}

// prune evicts subjects idle past the TTL so the maps do not grow without
// bound under churning client populations.
func (l *Limiter) prune() {
	cutoff := time.Now().Add(-l.idleTTL)
	evicted := 0

	for _, s := range l.shards {
		s.mu.Lock()
		for subject, e := range s.entries {
			if e.lastSeen.Before(cutoff) {
				delete(s.entries, subject)
				evicted++
			}
		}
		s.mu.Unlock()
	}

	if evicted > 0 {
		log.Debug().Int("evicted", evicted).Msg("Pruned idle rate limit subjects")
	}
}
