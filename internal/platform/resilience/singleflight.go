package resilience

import "sync"

// SingleFlight collapses concurrent calls for the same key into one
// upstream execution; joiners block until the leader finishes and share
// its outcome. The key is forgotten once the leader returns, so a later
// call starts fresh. The Sleeper client keys flights by request path to
// keep duplicate bulk-catalog fetches off the wire.
type SingleFlight struct {
	mu       sync.Mutex
	inflight map[string]*flight
}

type flight struct {
	done chan struct{}
	val  any
	err  error
}

// Do executes fn once per key across concurrent callers. The boolean
// reports whether the result was shared from another caller's flight.
func (g *SingleFlight) Do(key string, fn func() (any, error)) (any, error, bool) {
	g.mu.Lock()
	if g.inflight == nil {
		g.inflight = make(map[string]*flight)
	}
	if f, ok := g.inflight[key]; ok {
		g.mu.Unlock()
		<-f.done
		return f.val, f.err, true
	}

	f := &flight{done: make(chan struct{})}
	g.inflight[key] = f
	g.mu.Unlock()

	f.val, f.err = fn()

	g.mu.Lock()
	delete(g.inflight, key)
	g.mu.Unlock()
	close(f.done)

	return f.val, f.err, false
}
