//go:build !((linux && cgo) || windows || darwin)

package player

// AudioAvailable indicates whether audio output is supported in this build.
// Audio requires cgo on linux for the native sound libraries.
const AudioAvailable = false

// DefaultSink returns a sink that discards audio.
func DefaultSink() Sink {
	return SilentSink()
}
