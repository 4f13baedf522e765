// Package wordmatch locates where a word begins inside synthesized audio
// by scanning its word timestamps. Used to clip audio up to a word the
// reader speaks themselves, or to resume narration just past it.
package wordmatch

import (
	"strings"
	"unicode"

	"github.com/lectern-app/lectern/internal/speech"
)

// containmentMinLen gates substring matching: targets shorter than this
// produce too many spurious hits inside unrelated tokens.
const containmentMinLen = 3

// FindWordStart returns the start offset in milliseconds of target within
// the timestamp list, or ok=false when no token matches.
//
// Tokens and the target are normalized to lowercase letters and
// apostrophes before comparison. The service may attach punctuation to a
// token ("Mirror,") or fuse adjacent words ("Mirror-Cliffs"), so after
// exact equality a containment pass checks whether a token swallowed the
// target. With preferLast the scan keeps going and the last matching
// token of either kind wins; otherwise the first exact match wins, then
// the first containment match.
func FindWordStart(timestamps []speech.Timestamp, target string, preferLast bool) (int64, bool) {
	norm := Normalize(target)
	if norm == "" {
		return 0, false
	}
	contains := len(norm) >= containmentMinLen

	if preferLast {
		var offset int64
		found := false
		for _, ts := range timestamps {
			cand := Normalize(ts.Word)
			if cand == norm || (contains && strings.Contains(cand, norm)) {
				offset = ts.StartMs
				found = true
			}
		}
		return offset, found
	}

	for _, ts := range timestamps {
		if Normalize(ts.Word) == norm {
			return ts.StartMs, true
		}
	}
	if contains {
		for _, ts := range timestamps {
			if strings.Contains(Normalize(ts.Word), norm) {
				return ts.StartMs, true
			}
		}
	}
	return 0, false
}

// Normalize lowercases a token and strips everything except letters and
// apostrophes, so "Mirror," and "mirror" compare equal.
func Normalize(word string) string {
	var b strings.Builder
	b.Grow(len(word))
	for _, r := range strings.ToLower(word) {
		if (r >= 'a' && r <= 'z') || r == '\'' || (r > unicode.MaxASCII && unicode.IsLetter(r)) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
