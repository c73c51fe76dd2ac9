package server

import (
	"context"
	"time"
)

// DefaultSessionTTL is how long a session may sit unused before the
// reaper closes it.
const DefaultSessionTTL = 30 * time.Minute

// ReapAction describes a session closed by the Reaper.
type ReapAction struct {
	SessionID string
	Idle      time.Duration
}

// Reaper closes sessions nobody has used for TTL. Clients of a closed
// session get 404 and start a new one.
type Reaper struct {
	Server *Server
	TTL    time.Duration    // sessions idle this long are closed
	Now    func() time.Time // injectable clock for testing; defaults to time.Now
}

// Run closes every idle session once.
func (r *Reaper) Run() []ReapAction {
	ttl := r.TTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	now := time.Now()
	if r.Now != nil {
		now = r.Now()
	}

	s := r.Server
	var (
		actions []ReapAction
		stale   []*session
	)
	s.mu.Lock()
	for id, entry := range s.sessions {
		idle := entry.idle(now)
		if idle < ttl {
			continue
		}
		delete(s.sessions, id)
		stale = append(stale, entry)
		actions = append(actions, ReapAction{SessionID: id, Idle: idle})
	}
	s.mu.Unlock()

	for _, entry := range stale {
		entry.close()
	}
	return actions
}

// Loop runs the reaper every interval until ctx is done. report, if not
// nil, is called with each non-empty batch of actions.
func (r *Reaper) Loop(ctx context.Context, interval time.Duration, report func([]ReapAction)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if actions := r.Run(); len(actions) > 0 && report != nil {
				report(actions)
			}
		}
	}
}
