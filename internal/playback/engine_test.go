package playback

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/lectern-app/lectern/internal/speech"
)

// pcmBytes returns ms milliseconds worth of silent PCM.
func pcmBytes(ms int64) []byte {
	return make([]byte, msToByteOffset(ms))
}

// highlightRecorder collects highlights thread-safely.
type highlightRecorder struct {
	mu   sync.Mutex
	seen []Highlight
}

func (h *highlightRecorder) record(hl Highlight) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seen = append(h.seen, hl)
}

func (h *highlightRecorder) all() []Highlight {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Highlight(nil), h.seen...)
}

func waitForHighlights(t *testing.T, rec *highlightRecorder, want int) []Highlight {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		got := rec.all()
		if len(got) >= want {
			return got
		}
		if time.Now().After(deadline) {
			t.Fatalf("saw %d highlights, want %d: %v", len(got), want, got)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHighlightDelay(t *testing.T) {
	tests := []struct {
		name        string
		wordStartMs int64
		clipStartMs int64
		speed       float64
		want        time.Duration
	}{
		{"offset and speed corrected", 5000, 2000, 2.0, 1500 * time.Millisecond},
		{"no clip normal speed", 750, 0, 1.0, 750 * time.Millisecond},
		{"half speed stretches", 1000, 0, 0.5, 2 * time.Second},
		{"word at clip start", 2000, 2000, 1.5, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := highlightDelay(tt.wordStartMs, tt.clipStartMs, tt.speed); got != tt.want {
				t.Errorf("highlightDelay(%d, %d, %v) = %v, want %v",
					tt.wordStartMs, tt.clipStartMs, tt.speed, got, tt.want)
			}
		})
	}
}

func TestPlayFullSentence(t *testing.T) {
	sink := NewMockSink()
	engine := NewEngine(sink, t.TempDir())
	rec := &highlightRecorder{}

	completed := make(chan struct{})
	audio := pcmBytes(200)
	timestamps := []speech.Timestamp{
		{Word: "Mirror", StartMs: 0, EndMs: 40},
		{Word: "mirror", StartMs: 50, EndMs: 90},
		{Word: ",", StartMs: 90, EndMs: 95},
		{Word: "shine.", StartMs: 100, EndMs: 160},
	}
	err := engine.Play(audio, timestamps, Options{
		Text:       "Mirror mirror shine.",
		OnWord:     rec.record,
		OnComplete: func() { close(completed) },
	})
	if err != nil {
		t.Fatalf("Play: %v", err)
	}

	if len(sink.LastData) != len(audio) {
		t.Errorf("sink received %d bytes, want full %d", len(sink.LastData), len(audio))
	}

	// Punctuation-only "," never fires, the three words do.
	got := waitForHighlights(t, rec, 3)
	if len(got) != 3 {
		t.Fatalf("highlights = %v", got)
	}
	if got[0] != (Highlight{Word: "Mirror", Start: 0, End: 6}) {
		t.Errorf("first highlight = %+v", got[0])
	}
	// Repeated word resolves to the next occurrence, not the first.
	if got[1] != (Highlight{Word: "mirror", Start: 7, End: 13}) {
		t.Errorf("second highlight = %+v", got[1])
	}
	if got[2] != (Highlight{Word: "shine.", Start: 14, End: 20}) {
		t.Errorf("third highlight = %+v", got[2])
	}

	sink.Finish()
	select {
	case <-completed:
	case <-time.After(2 * time.Second):
		t.Fatal("OnComplete never fired after natural end")
	}
}

func TestPlayClipsAudioAndHighlights(t *testing.T) {
	sink := NewMockSink()
	engine := NewEngine(sink, t.TempDir())
	rec := &highlightRecorder{}

	audio := pcmBytes(1000)
	timestamps := []speech.Timestamp{
		{Word: "before", StartMs: 50, EndMs: 90},    // outside clip
		{Word: "inside", StartMs: 150, EndMs: 190},  // inside clip
		{Word: "after", StartMs: 700, EndMs: 750},   // outside clip
	}
	err := engine.Play(audio, timestamps, Options{
		Text:    "before inside after",
		StartMs: 100,
		EndMs:   300,
		OnWord:  rec.record,
	})
	if err != nil {
		t.Fatalf("Play: %v", err)
	}

	wantBytes := msToByteOffset(300) - msToByteOffset(100)
	if int64(len(sink.LastData)) != wantBytes {
		t.Errorf("sink received %d bytes, want clipped %d", len(sink.LastData), wantBytes)
	}

	got := waitForHighlights(t, rec, 1)
	time.Sleep(100 * time.Millisecond)
	got = rec.all()
	if len(got) != 1 || got[0].Word != "inside" {
		t.Errorf("highlights = %v, want only the in-clip word", got)
	}
	if got[0].Start != 7 || got[0].End != 13 {
		t.Errorf("highlight range = [%d, %d), want [7, 13)", got[0].Start, got[0].End)
	}
	engine.Stop()
}

func TestPlaySpeedAdjustsAudio(t *testing.T) {
	sink := NewMockSink()
	engine := NewEngine(sink, t.TempDir())

	audio := pcmBytes(400)
	err := engine.Play(audio, nil, Options{Text: "fast", Speed: 2.0})
	if err != nil {
		t.Fatalf("Play: %v", err)
	}

	if int64(len(sink.LastData)) != int64(len(audio)/2) {
		t.Errorf("sink received %d bytes at 2x, want %d", len(sink.LastData), len(audio)/2)
	}
	engine.Stop()
}

func TestStopCancelsHighlightsAndSink(t *testing.T) {
	sink := NewMockSink()
	engine := NewEngine(sink, t.TempDir())
	rec := &highlightRecorder{}

	completed := false
	err := engine.Play(pcmBytes(2000), []speech.Timestamp{
		{Word: "never", StartMs: 500, EndMs: 600},
	}, Options{
		Text:       "never spoken",
		OnWord:     rec.record,
		OnComplete: func() { completed = true },
	})
	if err != nil {
		t.Fatalf("Play: %v", err)
	}

	engine.Stop()
	time.Sleep(700 * time.Millisecond)

	if got := rec.all(); len(got) != 0 {
		t.Errorf("highlights after Stop = %v, want none", got)
	}
	if completed {
		t.Error("OnComplete fired after explicit Stop")
	}
	if sink.Stops == 0 {
		t.Error("Stop must release the sink")
	}
}

func TestNewPlayReplacesSession(t *testing.T) {
	sink := NewMockSink()
	engine := NewEngine(sink, t.TempDir())

	firstCompleted := make(chan struct{})
	secondCompleted := make(chan struct{})

	if err := engine.Play(pcmBytes(100), nil, Options{
		Text:       "first",
		OnComplete: func() { close(firstCompleted) },
	}); err != nil {
		t.Fatalf("first Play: %v", err)
	}
	if err := engine.Play(pcmBytes(100), nil, Options{
		Text:       "second",
		OnComplete: func() { close(secondCompleted) },
	}); err != nil {
		t.Fatalf("second Play: %v", err)
	}

	sink.Finish()
	select {
	case <-secondCompleted:
	case <-time.After(2 * time.Second):
		t.Fatal("second session never completed")
	}
	select {
	case <-firstCompleted:
		t.Error("replaced session must not report completion")
	default:
	}
	if sink.Starts != 2 {
		t.Errorf("sink starts = %d, want 2", sink.Starts)
	}
}

func TestPlayEmptyClipRange(t *testing.T) {
	engine := NewEngine(NewMockSink(), t.TempDir())
	err := engine.Play(pcmBytes(100), nil, Options{Text: "x", StartMs: 500})
	if !errors.Is(err, ErrPlaybackFailed) {
		t.Errorf("err = %v, want ErrPlaybackFailed for clip past end", err)
	}
}

func TestPlaySinkFailure(t *testing.T) {
	sink := NewMockSink()
	sink.FailNextStart(ErrAudioDevice)
	engine := NewEngine(sink, t.TempDir())

	err := engine.Play(pcmBytes(100), nil, Options{Text: "x"})
	if !errors.Is(err, ErrAudioDevice) {
		t.Errorf("err = %v, want ErrAudioDevice surfaced", err)
	}
}
