// Package blit implements the pixel-level core of the frame delivery
// pipeline: the row-aware BGRA buffer copy and the sampled frame hash
// used for change detection.
//
// Both operations sit on the hot path (called once per render tick,
// commonly 60 times per second) and therefore allocate nothing.
package blit

import (
	"errors"
	"fmt"
)

// BytesPerPixel is the size of one packed BGRA pixel.
const BytesPerPixel = 4

// Argument errors returned by CopyBGRA. Each names the violated
// constraint; callers can match them with errors.Is.
var (
	// ErrBadDimensions indicates a non-positive width or height.
	ErrBadDimensions = errors.New("blit: width and height must be positive")

	// ErrRowStride indicates dstRowBytes cannot fit one packed row.
	ErrRowStride = errors.New("blit: destination row stride smaller than packed row")

	// ErrSourceTooSmall indicates src cannot hold width*4*height bytes.
	ErrSourceTooSmall = errors.New("blit: source buffer too small")

	// ErrDestTooSmall indicates dst cannot hold dstRowBytes*height bytes.
	ErrDestTooSmall = errors.New("blit: destination buffer too small")
)

// CopyBGRA copies one tightly packed BGRA frame from src into dst, whose
// row stride may exceed the packed row width due to alignment padding
// required by downstream bitmap APIs.
//
// Validation is fail-fast: every precondition is checked before any byte
// is touched, and a violated constraint is reported by name (wrapping one
// of the sentinel errors above). The copy never silently truncates.
//
// Semantics:
//   - dstRowBytes == width*4: single contiguous copy of the whole frame.
//   - dstRowBytes > width*4: row-by-row copy; the padding bytes at the
//     end of each destination row are left exactly as they were (callers
//     must not assume padding is zeroed).
//
// dst is mutated in place; src is neither modified nor retained.
// Zero allocations per call.
func CopyBGRA(src, dst []byte, width, height, dstRowBytes int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: got %dx%d", ErrBadDimensions, width, height)
	}

	srcRowBytes := width * BytesPerPixel
	if dstRowBytes < srcRowBytes {
		return fmt.Errorf("%w: need >= %d, got %d", ErrRowStride, srcRowBytes, dstRowBytes)
	}
	if len(src) < srcRowBytes*height {
		return fmt.Errorf("%w: need %d bytes, got %d", ErrSourceTooSmall, srcRowBytes*height, len(src))
	}
	if len(dst) < dstRowBytes*height {
		return fmt.Errorf("%w: need %d bytes, got %d", ErrDestTooSmall, dstRowBytes*height, len(dst))
	}

	// Fast path: both sides tightly packed, one bulk copy.
	if dstRowBytes == srcRowBytes {
		copy(dst[:srcRowBytes*height], src[:srcRowBytes*height])
		return nil
	}

	// General path: per-row copy, destination padding untouched.
	for row := 0; row < height; row++ {
		srcOff := row * srcRowBytes
		dstOff := row * dstRowBytes
		copy(dst[dstOff:dstOff+srcRowBytes], src[srcOff:srcOff+srcRowBytes])
	}
	return nil
}
