// Package coordinator deduplicates and serializes speech synthesis.
// Concurrent requests for the same sentence coalesce onto one in-flight
// synthesis, and a single global lane keeps the remote voice service from
// ever seeing two calls at once. Successful results are written through
// to the disk cache.
package coordinator

import (
	"context"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/lectern-app/lectern/internal/cache"
	"github.com/lectern-app/lectern/internal/speech"
	"github.com/lectern-app/lectern/internal/voice"
)

// Source tells the caller where a result came from.
type Source int

const (
	// SourceCache means the audio was already on disk.
	SourceCache Source = iota
	// SourceNetwork means this request paid for a synthesis call.
	SourceNetwork
)

// Result is a playable synthesis: audio bytes plus word timings. All
// callers coalesced onto one synthesis receive the same Result value.
type Result struct {
	Audio      []byte
	Timestamps []speech.Timestamp
	Source     Source
}

// inflight is a write-once result slot shared by every caller waiting on
// the same key. result is set before done is closed and never after; a
// nil result after done means the synthesis failed.
type inflight struct {
	done   chan struct{}
	result *Result
}

// Coordinator is the concurrency core of the pipeline.
type Coordinator struct {
	store  *cache.Store
	synth  speech.Synthesizer
	policy voice.Policy
	logger *log.Logger

	mu       sync.Mutex
	requests map[cache.Key]*inflight

	// synthMu serializes every network synthesis call regardless of key,
	// so prefetch bursts cannot saturate the voice service.
	synthMu sync.Mutex
}

// New creates a coordinator over the given cache, synthesizer, and voice
// policy.
func New(store *cache.Store, synth speech.Synthesizer, policy voice.Policy) *Coordinator {
	return &Coordinator{
		store:    store,
		synth:    synth,
		policy:   policy,
		logger:   log.Default().With("component", "coordinator"),
		requests: make(map[cache.Key]*inflight),
	}
}

// GetOrSynthesize returns cached or freshly synthesized audio for text
// under the active voice, or nil when no network result is available and
// the caller should fall back to the on-device engine.
//
// For any key, at most one synthesis call is made no matter how many
// callers arrive concurrently; the rest wait on the owner's result. A
// waiter whose ctx expires returns nil early, but the synthesis itself
// is never cancelled, since other waiters may still need it.
func (c *Coordinator) GetOrSynthesize(ctx context.Context, text string) *Result {
	if strings.TrimSpace(text) == "" || !c.policy.Cacheable() {
		return nil
	}
	voiceID := c.policy.Current()
	key := cache.NewKey(text, voiceID)

	if entry, ok := c.store.Read(key); ok {
		return &Result{Audio: entry.Audio, Timestamps: entry.Timestamps(), Source: SourceCache}
	}

	c.mu.Lock()
	if fl, ok := c.requests[key]; ok {
		c.mu.Unlock()
		return c.await(ctx, fl)
	}
	fl := &inflight{done: make(chan struct{})}
	c.requests[key] = fl
	c.mu.Unlock()

	c.synthesize(key, text, voiceID, fl)
	return c.await(ctx, fl)
}

// await parks the caller until the in-flight request resolves. ctx
// expiry abandons the wait, not the synthesis.
func (c *Coordinator) await(ctx context.Context, fl *inflight) *Result {
	select {
	case <-fl.done:
		return fl.result
	case <-ctx.Done():
		return nil
	}
}

// synthesize runs the owning side of an in-flight request: acquire the
// global lane, recheck the cache, call the service, write through. The
// handle always resolves and always leaves the registry, success or not.
func (c *Coordinator) synthesize(key cache.Key, text, voiceID string, fl *inflight) {
	defer func() {
		c.mu.Lock()
		delete(c.requests, key)
		c.mu.Unlock()
		close(fl.done)
	}()

	c.synthMu.Lock()
	defer c.synthMu.Unlock()

	// Another request may have completed and written this entry while we
	// waited for the lane.
	if entry, ok := c.store.Read(key); ok {
		fl.result = &Result{Audio: entry.Audio, Timestamps: entry.Timestamps(), Source: SourceCache}
		return
	}

	syn, err := c.synth.Synthesize(context.Background(), text, voiceID)
	if err != nil {
		c.logger.Warn("synthesis failed, waiters will fall back",
			"voice", voiceID, "textLength", len(text), "error", err)
		return
	}

	c.store.Write(key, syn.Audio, syn.Raw)
	fl.result = &Result{Audio: syn.Audio, Timestamps: syn.Timestamps(), Source: SourceNetwork}
}
