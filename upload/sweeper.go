package upload

import (
	"context"
	"log"
	"time"
)

// Sweeper periodically expires overdue upload sessions. onExpired (optional)
// runs for each removed session, e.g. to notify its owner.
type Sweeper struct {
	manager   *Manager
	interval  time.Duration
	stopChan  chan struct{}
	onExpired func(*Session)
}

func NewSweeper(manager *Manager, interval time.Duration, onExpired func(*Session)) *Sweeper {
	return &Sweeper{
		manager:   manager,
		interval:  interval,
		stopChan:  make(chan struct{}),
		onExpired: onExpired,
	}
}

func (s *Sweeper) Start() {
	go s.run()
}

func (s *Sweeper) Stop() {
	close(s.stopChan)
}

func (s *Sweeper) run() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweep()
	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Sweeper) sweep() {
	expired, err := s.manager.ExpireSessions(context.Background())
	if err != nil {
		log.Printf("expiry sweep failed: %v", err)
		return
	}
	if len(expired) > 0 {
		log.Printf("expiry sweep removed %d session(s)", len(expired))
	}
	if s.onExpired == nil {
		return
	}
	for _, sess := range expired {
		s.onExpired(sess)
	}
}
