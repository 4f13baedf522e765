package playback

import (
	"errors"
	"fmt"
	"io"
	"runtime"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// Playback fault classes. Unlike cache faults these reach the caller,
// since a dead audio device is a user-visible condition.
var (
	// ErrAudioDevice indicates the device audio context cannot be used.
	ErrAudioDevice = errors.New("audio device unavailable")

	// ErrPlaybackFailed indicates a playback session could not start.
	ErrPlaybackFailed = errors.New("audio playback failed")
)

// Sink renders a PCM stream on an audio device. Start begins playback
// and returns immediately; the returned channel closes when the stream
// is exhausted or the sink is stopped. Stop halts playback and releases
// the device player.
type Sink interface {
	Start(src io.Reader) (<-chan struct{}, error)
	Stop()
}

// Shared audio context. oto allows only one per process.
var (
	otoCtx  *oto.Context
	otoErr  error
	otoOnce sync.Once
)

func otoContext() (*oto.Context, error) {
	otoOnce.Do(func() {
		options := &oto.NewContextOptions{
			SampleRate:   SampleRate,
			ChannelCount: Channels,
			Format:       oto.FormatSignedInt16LE,
		}
		switch runtime.GOOS {
		case "darwin":
			options.BufferSize = 100 * time.Millisecond
		default:
			options.BufferSize = 50 * time.Millisecond
		}

		ctx, ready, err := oto.NewContext(options)
		if err != nil {
			otoErr = err
			return
		}
		<-ready
		otoCtx = ctx
	})
	return otoCtx, otoErr
}

// DeviceSink plays audio through the system output via oto.
type DeviceSink struct {
	mu     sync.Mutex
	player *oto.Player
}

// NewDeviceSink creates a sink bound to the process audio context.
func NewDeviceSink() *DeviceSink {
	return &DeviceSink{}
}

// Start begins playing src, replacing any previous player.
func (s *DeviceSink) Start(src io.Reader) (<-chan struct{}, error) {
	ctx, err := otoContext()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAudioDevice, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.player != nil {
		s.player.Close()
		s.player = nil
	}

	player := ctx.NewPlayer(src)
	player.Play()
	s.player = player

	done := make(chan struct{})
	go func() {
		defer close(done)
		for player.IsPlaying() {
			time.Sleep(20 * time.Millisecond)
		}
	}()
	return done, nil
}

// Stop halts the current player, if any. The done channel from the
// matching Start closes shortly after.
func (s *DeviceSink) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.player != nil {
		s.player.Close()
		s.player = nil
	}
}
