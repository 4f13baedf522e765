// Package speech talks to the remote voice model: wire contract, word
// timestamps, and the HTTP client that performs synthesis.
package speech

// RawTimestamp is a word timing as the synthesis service reports it,
// with offsets in float seconds. This is also the sidecar format the
// cache persists, so it round-trips without conversion.
type RawTimestamp struct {
	Word      string  `json:"word"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
}

// Timestamp is the in-memory representation with millisecond offsets,
// ordered by StartMs ascending as delivered by the service.
type Timestamp struct {
	Word    string
	StartMs int64
	EndMs   int64
}

// ToMillis converts service timestamps to the millisecond form used by
// playback and matching.
func ToMillis(raw []RawTimestamp) []Timestamp {
	if len(raw) == 0 {
		return nil
	}
	out := make([]Timestamp, len(raw))
	for i, r := range raw {
		out[i] = Timestamp{
			Word:    r.Word,
			StartMs: int64(r.StartTime * 1000),
			EndMs:   int64(r.EndTime * 1000),
		}
	}
	return out
}

// Synthesis is the result of one synthesis call: raw audio plus the
// service's word timings.
type Synthesis struct {
	Audio []byte
	Raw   []RawTimestamp
}

// Timestamps returns the millisecond view of the synthesis timings.
func (s *Synthesis) Timestamps() []Timestamp {
	return ToMillis(s.Raw)
}
