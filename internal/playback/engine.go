package playback

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/charmbracelet/log"

	"github.com/lectern-app/lectern/internal/speech"
)

// Highlight reports a spoken word located in the sentence text as a
// character range [Start, End).
type Highlight struct {
	Word  string
	Start int
	End   int
}

// Options configures one playback session.
type Options struct {
	// Text is the original unclipped sentence; highlight ranges index
	// into it.
	Text string

	// StartMs and EndMs clip playback to [StartMs, EndMs). EndMs zero
	// means play to the natural end.
	StartMs int64
	EndMs   int64

	// Speed is the playback rate multiplier. Zero means 1.0.
	Speed float64

	// OnWord fires once per highlighted word, offset- and
	// speed-corrected relative to playback start.
	OnWord func(Highlight)

	// OnComplete fires on natural end-of-media, not on Stop.
	OnComplete func()
}

// Engine plays synthesized audio and schedules word highlights. At most
// one session is active; a new Play or an explicit Stop tears down the
// previous session before anything else proceeds.
type Engine struct {
	sink       Sink
	scratchDir string
	logger     *log.Logger

	mu      sync.Mutex
	current *session
}

// session is one playback run: its scratch file, pending highlight
// timers, and the word-search cursor into the sentence text.
type session struct {
	mu        sync.Mutex
	stopped   bool
	timers    []*time.Timer
	scratch   string
	text      string
	textLower string
	cursor    int
	onWord    func(Highlight)
}

// NewEngine creates a playback engine over the given sink. Scratch audio
// files are written under scratchDir (the OS temp dir when empty).
func NewEngine(sink Sink, scratchDir string) *Engine {
	if scratchDir == "" {
		scratchDir = os.TempDir()
	}
	return &Engine{
		sink:       sink,
		scratchDir: scratchDir,
		logger:     log.Default().With("component", "playback"),
	}
}

// Play starts a playback session for audio with the given word
// timestamps. Any session already running is stopped first.
func (e *Engine) Play(audio []byte, timestamps []speech.Timestamp, opts Options) error {
	e.Stop()

	speed := opts.Speed
	if speed <= 0 {
		speed = 1.0
	}
	startMs := opts.StartMs
	if startMs < 0 {
		startMs = 0
	}

	// The sink consumes a seekable stream, so the audio goes to a
	// scratch file first.
	scratch, err := os.CreateTemp(e.scratchDir, "lectern-*.pcm")
	if err != nil {
		return fmt.Errorf("%w: scratch file: %v", ErrPlaybackFailed, err)
	}
	if _, err := scratch.Write(audio); err != nil {
		scratch.Close()
		os.Remove(scratch.Name())
		return fmt.Errorf("%w: scratch write: %v", ErrPlaybackFailed, err)
	}

	startOff := msToByteOffset(startMs)
	endOff := int64(len(audio))
	if opts.EndMs > 0 {
		if off := msToByteOffset(opts.EndMs); off < endOff {
			endOff = off
		}
	}
	if startOff >= endOff {
		scratch.Close()
		os.Remove(scratch.Name())
		return fmt.Errorf("%w: empty clip range [%d, %d)", ErrPlaybackFailed, opts.StartMs, opts.EndMs)
	}

	var src io.Reader = io.NewSectionReader(scratch, startOff, endOff-startOff)
	if speed != 1.0 {
		clip := make([]byte, endOff-startOff)
		if _, err := io.ReadFull(io.NewSectionReader(scratch, startOff, endOff-startOff), clip); err != nil {
			scratch.Close()
			os.Remove(scratch.Name())
			return fmt.Errorf("%w: clip read: %v", ErrPlaybackFailed, err)
		}
		src = bytes.NewReader(AdjustRate(clip, speed))
	}

	sess := &session{
		scratch:   scratch.Name(),
		text:      opts.Text,
		textLower: strings.ToLower(opts.Text),
		onWord:    opts.OnWord,
	}

	for _, ts := range timestamps {
		if !containsAlnum(ts.Word) {
			continue
		}
		if ts.StartMs < startMs {
			continue
		}
		if opts.EndMs > 0 && ts.StartMs >= opts.EndMs {
			continue
		}
		word := ts.Word
		sess.timers = append(sess.timers, time.AfterFunc(highlightDelay(ts.StartMs, startMs, speed), func() {
			sess.fireHighlight(word)
		}))
	}

	done, err := e.sink.Start(src)
	if err != nil {
		sess.stop()
		scratch.Close()
		os.Remove(sess.scratch)
		return err
	}

	e.mu.Lock()
	e.current = sess
	e.mu.Unlock()

	e.logger.Debug("playback started",
		"bytes", endOff-startOff, "startMs", startMs, "endMs", opts.EndMs,
		"speed", speed, "highlights", len(sess.timers))

	go func() {
		<-done
		natural := sess.stop()
		scratch.Close()
		os.Remove(sess.scratch)
		if natural && opts.OnComplete != nil {
			opts.OnComplete()
		}
	}()
	return nil
}

// Stop cancels all pending highlights and releases the sink. Safe to
// call with no session active.
func (e *Engine) Stop() {
	e.mu.Lock()
	sess := e.current
	e.current = nil
	e.mu.Unlock()

	if sess == nil {
		return
	}
	sess.stop()
	e.sink.Stop()
}

// highlightDelay is how long after playback start the highlight for a
// word at startMs fires, corrected for the clip offset and compressed by
// the playback speed.
func highlightDelay(wordStartMs, clipStartMs int64, speed float64) time.Duration {
	return time.Duration(float64(wordStartMs-clipStartMs) / speed * float64(time.Millisecond))
}

// stop marks the session dead and cancels pending timers. It returns
// true on the first call if the session was still live, which the
// done-watcher uses to tell natural completion from an explicit stop.
func (s *session) stop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	s.stopped = true
	for _, t := range s.timers {
		t.Stop()
	}
	s.timers = nil
	return true
}

// fireHighlight locates the spoken token in the sentence text, searching
// forward from the previous match so repeated words resolve to
// successive occurrences.
func (s *session) fireHighlight(word string) {
	s.mu.Lock()
	if s.stopped || s.onWord == nil {
		s.mu.Unlock()
		return
	}
	idx := strings.Index(s.textLower[s.cursor:], strings.ToLower(word))
	if idx < 0 {
		s.mu.Unlock()
		return
	}
	start := s.cursor + idx
	end := start + len(word)
	s.cursor = end
	onWord := s.onWord
	s.mu.Unlock()

	onWord(Highlight{Word: word, Start: start, End: end})
}

// containsAlnum reports whether the token has at least one letter or
// digit. Punctuation-only tokens from the synthesis service get no
// highlight.
func containsAlnum(word string) bool {
	for _, r := range word {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
