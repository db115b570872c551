// Package native defines the contract between the managed frame pipeline
// and the platform media backends (Media Foundation on Windows,
// AVFoundation on macOS, GStreamer on Linux, plus a synthetic backend for
// tests and tooling).
//
// The decode/render loop lives on the backend's own threads, outside
// managed control. The managed side interacts with a backend only through
// non-blocking polling calls issued from a single render goroutine.
package native

// Backend is the capability surface one platform player implementation
// must provide. One implementation is selected at startup by target OS
// detection; the pipeline never switches backends at runtime.
//
// Implementations must guarantee:
//   - All getters are non-blocking polling reads returning in microseconds.
//   - Before Open succeeds (and while a backend error is active), getters
//     return zero/empty defaults. They never block and never panic.
//   - Open tears down any previously loaded source on the same instance;
//     calling it repeatedly is safe.
//   - Play and Pause are idempotent.
//   - LatestFrame is a single-slot handoff: the returned bytes are valid
//     only until the next frame-advancing call. The caller must copy them
//     before polling again (the render pump does exactly that).
//   - Close releases all native resources. It is called exactly once by
//     the managed wrapper; behavior of any other call after Close is
//     undefined at this layer (the wrapper guards with a closed flag).
type Backend interface {
	// Open begins loading uri, tearing down any previous source first.
	// URI interpretation (http/https/file schemes) is entirely the
	// backend's business.
	Open(uri string) error

	// Play starts or resumes playback. No-op while already playing.
	Play() error

	// Pause suspends playback. No-op while already paused.
	Pause() error

	// Stop halts playback and rewinds to the start.
	Stop() error

	// SeekTo moves the playback position, clamping to [0, duration].
	// While duration is still unknown the seek is ignored, never an error.
	SeekTo(seconds float64) error

	// SetVolume sets the audio volume. The managed wrapper clamps the
	// value to [0, 1] before it reaches this call; backends do not
	// re-validate.
	SetVolume(volume float64)

	// Volume returns the current audio volume.
	Volume() float64

	// SetRate sets the playback speed. Clamped to [0.5, 2.0] by the
	// managed wrapper before this call.
	SetRate(rate float64)

	// Rate returns the current playback speed.
	Rate() float64

	// LatestFrame returns the most recent decoded BGRA frame with the
	// dimensions it was decoded at, or false when no frame is available
	// yet. Bytes and geometry come from one snapshot: a frame published
	// between this call and a later FrameWidth/FrameHeight poll never
	// changes what LatestFrame already returned. The bytes are valid
	// only until the next frame-advancing call.
	LatestFrame() (data []byte, width, height int, ok bool)

	// FrameWidth returns the current frame width in pixels, 0 before
	// media is ready.
	FrameWidth() int

	// FrameHeight returns the current frame height in pixels, 0 before
	// media is ready.
	FrameHeight() int

	// Duration returns the media duration in seconds, 0 while unknown.
	Duration() float64

	// Position returns the current playback position in seconds.
	Position() float64

	// AudioLevels returns the momentary left/right audio levels in
	// [0, 1], zero when unavailable.
	AudioLevels() (left, right float64)

	// Media returns the currently loaded media's metadata, zero values
	// for fields the backend has not discovered yet.
	Media() MediaInfo

	// LastError returns the most recent backend error, or nil. Polling
	// it does not clear it; Open resets it.
	LastError() *PlayerError

	// Close releases all native resources held by the backend.
	Close() error
}

// MediaInfo carries the metadata getters' results in one snapshot.
type MediaInfo struct {
	// Title is the media title from container tags, empty if untagged.
	Title string

	// Bitrate is the nominal video bitrate in bits per second, 0 if unknown.
	Bitrate int64

	// MimeType identifies the container/codec (e.g. "video/mp4"), empty if unknown.
	MimeType string

	// AudioChannels is the channel count of the primary audio stream.
	AudioChannels int

	// SampleRate is the audio sample rate in Hz.
	SampleRate int
}

// PlayerError is a classified backend failure. Polling getters keep
// returning safe defaults while one is active; the error detail travels
// through this separate query path instead of panicking a render tick.
type PlayerError struct {
	Category ErrorCategory
	Message  string
}

// Error implements the error interface.
func (e *PlayerError) Error() string {
	return "native: [" + e.Category.String() + "] " + e.Message
}
