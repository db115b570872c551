package framebridge

import (
	"errors"

	"github.com/decklight/framebridge/internal/blit"
)

// Lifecycle errors returned by Player methods.
var (
	// ErrNotInitialized is returned by NewPlayer before Init has run.
	ErrNotInitialized = errors.New("framebridge: Init has not been called")

	// ErrPlayerClosed is returned by every Player method except Close
	// after the player has been closed.
	ErrPlayerClosed = errors.New("framebridge: player is closed")

	// ErrNoMedia is returned by transport methods before a source has
	// been opened successfully.
	ErrNoMedia = errors.New("framebridge: no media loaded")

	// ErrBackendUnavailable is returned when no native backend exists
	// for the current platform and build configuration.
	ErrBackendUnavailable = errors.New("framebridge: no media backend available on this platform")
)

// Argument errors re-exported from the copier so callers can test
// with errors.Is without importing internal packages.
var (
	ErrBadDimensions  = blit.ErrBadDimensions
	ErrRowStride      = blit.ErrRowStride
	ErrSourceTooSmall = blit.ErrSourceTooSmall
	ErrDestTooSmall   = blit.ErrDestTooSmall
)
