// Package playback renders cached audio through a device sink, with
// optional clipping to a millisecond range and word-highlight callbacks
// scheduled against speed-adjusted playback time.
package playback

// Audio format for synthesized speech: 16-bit signed little-endian
// mono PCM at 22050 Hz.
const (
	SampleRate     = 22050
	Channels       = 1
	BitDepth       = 16
	BytesPerSample = BitDepth / 8 * Channels

	bytesPerSecond = SampleRate * BytesPerSample
)

// msToByteOffset converts a millisecond offset to a sample-aligned byte
// offset into a PCM stream.
func msToByteOffset(ms int64) int64 {
	off := ms * bytesPerSecond / 1000
	return off - off%BytesPerSample
}

// AdjustRate resamples 16-bit mono PCM so it plays back at the given
// speed multiplier: speed 2.0 halves the duration. Nearest-sample
// decimation/duplication is plenty for narration.
func AdjustRate(pcm []byte, speed float64) []byte {
	if speed == 1.0 || len(pcm) < BytesPerSample {
		return pcm
	}
	nIn := len(pcm) / BytesPerSample
	nOut := int(float64(nIn) / speed)
	if nOut < 1 {
		nOut = 1
	}
	out := make([]byte, nOut*BytesPerSample)
	for i := 0; i < nOut; i++ {
		src := int(float64(i) * speed)
		if src >= nIn {
			src = nIn - 1
		}
		copy(out[i*BytesPerSample:(i+1)*BytesPerSample], pcm[src*BytesPerSample:(src+1)*BytesPerSample])
	}
	return out
}
