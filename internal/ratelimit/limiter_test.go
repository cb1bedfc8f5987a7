package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func allowed(l *Limiter, subject string) bool {
	ok, _ := l.Allow(subject)
	return ok
}

func TestAllow(t *testing.T) {
	t.Run("burst is honored then exhausted", func(t *testing.T) {
		l := New(1, 3)
		defer l.Stop()

		for i := 0; i < 3; i++ {
			require.True(t, allowed(l, "10.0.0.1"))
		}

		ok, retryAfter := l.Allow("10.0.0.1")
		require.False(t, ok)
		require.Greater(t, retryAfter, time.Duration(0))
	})

	t.Run("subjects are independent", func(t *testing.T) {
		l := New(1, 1)
		defer l.Stop()

		require.True(t, allowed(l, "10.0.0.1"))
		require.False(t, allowed(l, "10.0.0.1"))
		require.True(t, allowed(l, "10.0.0.2"))
	})

	t.Run("tokens refill over time", func(t *testing.T) {
		l := New(100, 1)
		defer l.Stop()

		require.True(t, allowed(l, "10.0.0.1"))
		require.False(t, allowed(l, "10.0.0.1"))

		time.Sleep(20 * time.Millisecond)
		require.True(t, allowed(l, "10.0.0.1"))
	})
}

func TestAllowConcurrent(t *testing.T) {
	l := New(1000, 1000)
	defer l.Stop()

	var wg sync.WaitGroup
	subjects := []string{"10.0.0.1", "10.0.0.2", "10.0.0.3", "10.0.0.4"}
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(subject string) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				l.Allow(subject)
			}
		}(subjects[i%len(subjects)])
	}
	wg.Wait()
}

func TestPrune(t *testing.T) {
	l := New(1, 1)
	defer l.Stop()

	l.Allow("10.0.0.1")
	l.Allow("10.0.0.2")

	l.idleTTL = 0
	time.Sleep(time.Millisecond)
	l.prune()

	total := 0
	for _, s := range l.shards {
		s.mu.Lock()
		total += len(s.entries)
		s.mu.Unlock()
	}
	require.Zero(t, total)
}

func TestStopIsIdempotentForAllow(t *testing.T) {
	l := New(1, 1)
	l.Stop()
	require.True(t, allowed(l, "10.0.0.1"))
}
