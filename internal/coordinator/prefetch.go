package coordinator

import (
	"context"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/lectern-app/lectern/internal/cache"
	"github.com/lectern-app/lectern/internal/voice"
)

// LookaheadCount is how many upcoming sentences the prefetcher warms.
const LookaheadCount = 10

// Prefetcher speculatively synthesizes upcoming sentences so that cache
// hits are waiting when the reader gets there. Best-effort only: results
// are not awaited and failures are not reported.
type Prefetcher struct {
	coord  *Coordinator
	store  *cache.Store
	policy voice.Policy
	logger *log.Logger
}

// NewPrefetcher creates a prefetcher feeding the given coordinator.
func NewPrefetcher(coord *Coordinator, store *cache.Store, policy voice.Policy) *Prefetcher {
	return &Prefetcher{
		coord:  coord,
		store:  store,
		policy: policy,
		logger: log.Default().With("component", "prefetch"),
	}
}

// Prefetch scans the window of LookaheadCount sentences strictly after
// currentIndex and submits the ones that are non-blank and not already
// cached as background work. Each submission goes through the
// coordinator, so a prefetch and a foreground request for the same
// sentence coalesce onto one synthesis.
func (p *Prefetcher) Prefetch(sentences []string, currentIndex int) {
	if !p.policy.Cacheable() {
		return
	}
	voiceID := p.policy.Current()

	end := currentIndex + 1 + LookaheadCount
	if end > len(sentences) {
		end = len(sentences)
	}

	submitted := 0
	for i := currentIndex + 1; i < end; i++ {
		s := sentences[i]
		if strings.TrimSpace(s) == "" {
			continue
		}
		if p.store.Has(cache.NewKey(s, voiceID)) {
			continue
		}
		submitted++
		go func(sentence string) {
			if p.coord.GetOrSynthesize(context.Background(), sentence) == nil {
				p.logger.Debug("prefetch yielded no result", "textLength", len(sentence))
			}
		}(s)
	}
	if submitted > 0 {
		p.logger.Debug("prefetch window submitted", "count", submitted, "after", currentIndex)
	}
}
