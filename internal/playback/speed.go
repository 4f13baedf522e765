package playback

import (
	"fmt"
	"sync"
)

// Playback rate bounds and presets.
var (
	SpeedSteps = []float64{0.5, 0.75, 1.0, 1.25, 1.5, 2.0}
	MinSpeed   = 0.5
	MaxSpeed   = 2.0
)

// SpeedController steps the narration rate through discrete presets.
type SpeedController struct {
	mu    sync.RWMutex
	index int
}

// NewSpeedController starts at normal speed.
func NewSpeedController() *SpeedController {
	sc := &SpeedController{}
	for i, s := range SpeedSteps {
		if s == 1.0 {
			sc.index = i
		}
	}
	return sc
}

// Speed returns the current rate.
func (sc *SpeedController) Speed() float64 {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return SpeedSteps[sc.index]
}

// SetSpeed snaps to the preset matching the given rate.
func (sc *SpeedController) SetSpeed(speed float64) error {
	if speed < MinSpeed || speed > MaxSpeed {
		return fmt.Errorf("speed %.2f out of range [%.2f, %.2f]", speed, MinSpeed, MaxSpeed)
	}
	sc.mu.Lock()
	defer sc.mu.Unlock()
	best := 0
	for i, s := range SpeedSteps {
		if diff(s, speed) < diff(SpeedSteps[best], speed) {
			best = i
		}
	}
	sc.index = best
	return nil
}

// Faster moves one preset up, clamped at the top.
func (sc *SpeedController) Faster() float64 {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.index < len(SpeedSteps)-1 {
		sc.index++
	}
	return SpeedSteps[sc.index]
}

// Slower moves one preset down, clamped at the bottom.
func (sc *SpeedController) Slower() float64 {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.index > 0 {
		sc.index--
	}
	return SpeedSteps[sc.index]
}

func diff(a, b float64) float64 {
	if a > b {
		return a - b
	}
	return b - a
}
