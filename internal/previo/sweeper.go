package previo

import (
	"log"
	"sync"
	"time"
)

const (
	// SweepInterval is how often stale grants are collected.
	SweepInterval = 30 * time.Minute
	// ExpiryGrace is how long past check-out a grant is kept before removal.
	ExpiryGrace = time.Hour
)

// Stale reports whether the grant's check-out lies more than ExpiryGrace in
// the past. A grant whose check-out cannot be parsed is never reported stale;
// expiry cannot be judged safely, so it is left in place and flagged.
func (g Grant) Stale(now time.Time) bool {
	checkout, ok := ParseInstant(g.Checkout)
	if !ok {
		log.Printf("[Sweeper] Grant %s has unparseable check-out %q, leaving untouched", g.Key(), g.Checkout)
		return false
	}
	return now.Sub(checkout) > ExpiryGrace
}

// GrantStore is the surface the sweeper drives. The implementation decides
// which grants are stale (via Grant.Stale) and deletes them atomically.
type GrantStore interface {
	SweepStaleGrants(now time.Time) int
}

// Sweeper removes expired reservation grants on a fixed interval. One sweep
// also runs immediately on Start so a restart does not wait half an hour to
// clear a backlog.
type Sweeper struct {
	store    GrantStore
	interval time.Duration

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func NewSweeper(store GrantStore) *Sweeper {
	return &Sweeper{
		store:    store,
		interval: SweepInterval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the sweep loop in its own goroutine.
func (s *Sweeper) Start() {
	go s.run()
}

func (s *Sweeper) run() {
	defer close(s.done)

	s.sweep()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stop:
			return
		}
	}
}

func (s *Sweeper) sweep() {
	if removed := s.store.SweepStaleGrants(time.Now()); removed > 0 {
		log.Printf("[Sweeper] Removed %d expired reservation grants", removed)
	}
}

// Stop halts the loop and waits for it to finish. Safe to call twice.
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done
}
