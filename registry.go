package redissub

import (
	"sort"
	"sync"
)

// registry is the authoritative record of the subscriptions the caller
// wants, independent of connection state. Mutations land here first;
// wire commands are best-effort on top. On reconnect the registry is the
// source of truth for replay.
type registry struct {
	mu       sync.RWMutex
	channels map[string]struct{}
	patterns map[string]struct{}
}

// newRegistry creates an empty registry
func newRegistry() *registry {
	return &registry{
		channels: make(map[string]struct{}),
		patterns: make(map[string]struct{}),
	}
}

// addChannel records a channel subscription. Adding an existing channel
// is a no-op.
func (r *registry) addChannel(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channels[name] = struct{}{}
}

// removeChannel removes a channel subscription and reports whether it
// was present
func (r *registry) removeChannel(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.channels[name]; !ok {
		return false
	}
	delete(r.channels, name)
	return true
}

// addPattern records a pattern subscription. Adding an existing pattern
// is a no-op.
func (r *registry) addPattern(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.patterns[name] = struct{}{}
}

// removePattern removes a pattern subscription and reports whether it
// was present
func (r *registry) removePattern(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.patterns[name]; !ok {
		return false
	}
	delete(r.patterns, name)
	return true
}

// snapshot returns copies of both sets for replay. Results are sorted so
// replay order is deterministic; callers must not hold replay I/O under
// the registry lock.
func (r *registry) snapshot() (channels, patterns []string) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	channels = make([]string, 0, len(r.channels))
	for name := range r.channels {
		channels = append(channels, name)
	}
	patterns = make([]string, 0, len(r.patterns))
	for name := range r.patterns {
		patterns = append(patterns, name)
	}

	sort.Strings(channels)
	sort.Strings(patterns)
	return channels, patterns
}

// counts returns the current set sizes
func (r *registry) counts() (channels, patterns int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.channels), len(r.patterns)
}
