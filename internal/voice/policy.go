// Package voice tracks the reader's active voice and classifies voices by
// whether they need the remote synthesis service. On-device voices speak
// instantly and bypass caching entirely.
package voice

import "sync"

// Policy answers the two questions the pipeline asks before every cache
// or prefetch operation: which voice is active, and does it require
// network synthesis.
type Policy interface {
	// Current returns the active voice identifier.
	Current() string

	// Cacheable reports whether the active voice requires network
	// synthesis and therefore benefits from the cache.
	Cacheable() bool
}

// Prefs is an in-memory Policy backed by user preferences. Network
// voices are registered up front; everything else is treated as an
// on-device voice.
type Prefs struct {
	mu      sync.RWMutex
	current string
	network map[string]bool
}

// NewPrefs creates a preference store with the given active voice and
// the set of voices that require network synthesis.
func NewPrefs(current string, networkVoices []string) *Prefs {
	network := make(map[string]bool, len(networkVoices))
	for _, v := range networkVoices {
		network[v] = true
	}
	return &Prefs{current: current, network: network}
}

// Current returns the active voice.
func (p *Prefs) Current() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

// Cacheable reports whether the active voice is a network voice.
func (p *Prefs) Cacheable() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.network[p.current]
}

// SetVoice switches the active voice.
func (p *Prefs) SetVoice(v string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = v
}
