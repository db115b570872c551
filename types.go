package framebridge

import "github.com/decklight/framebridge/internal/native"

// MediaInfo is re-exported from the internal backend contract so
// callers can consume metadata without importing internal packages.
type MediaInfo = native.MediaInfo

// PlayerError is a classified backend error, re-exported from the
// internal backend contract.
type PlayerError = native.PlayerError

// ErrorCategory classifies backend failures.
type ErrorCategory = native.ErrorCategory

// Error categories surfaced through PlayerError.
const (
	CategoryCodec   = native.CategoryCodec
	CategoryNetwork = native.CategoryNetwork
	CategorySource  = native.CategorySource
	CategoryUnknown = native.CategoryUnknown
)

// State is the managed player's lifecycle state.
type State int

const (
	StateCreated State = iota
	StateOpening
	StateReady
	StatePlaying
	StatePaused
	StateStopped
	StateEnded
	StateError
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateOpening:
		return "opening"
	case StateReady:
		return "ready"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	case StateEnded:
		return "ended"
	case StateError:
		return "error"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Telemetry is one poll's worth of playback readings. Values are the
// backend's latest and are not cached between polls.
type Telemetry struct {
	Position   float64 // seconds
	Duration   float64 // seconds, 0 while unknown
	LeftLevel  float64 // [0,1]
	RightLevel float64 // [0,1]
	Volume     float64 // [0,1]
	Rate       float64 // [0.5,2.0]
}

// FrameBuffer is the pump's reusable display buffer: one BGRA frame
// with a possibly padded row stride. The pump owns and reuses it;
// present callbacks must not retain Data past their return.
type FrameBuffer struct {
	Data     []byte
	Width    int
	Height   int
	RowBytes int
}
