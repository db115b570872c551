package framebridge

import (
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/decklight/framebridge/internal/blit"
	"github.com/decklight/framebridge/internal/native"
	"github.com/decklight/framebridge/internal/native/sim"
)

// envBackend selects the backend factory at Init time. The only
// recognized value is "sim"; anything else (including unset) selects
// the platform's native backend.
const envBackend = "FRAMEBRIDGE_BACKEND"

var (
	initOnce    sync.Once
	initErr     error
	initialized atomic.Bool

	newBackend func() (native.Backend, error)
)

// Init performs the one-time process-wide setup: loading the platform
// host library (Windows/macOS) or preparing the GStreamer runtime
// (Linux), and choosing the backend factory. Idempotent; every call
// after the first returns the first call's result.
//
// Embedding applications call Init from their startup path before the
// first NewPlayer. It is never triggered implicitly.
func Init() error {
	initOnce.Do(func() {
		if os.Getenv(envBackend) == "sim" {
			newBackend = func() (native.Backend, error) { return sim.New(), nil }
			initialized.Store(true)
			slog.Info("framebridge: initialized with synthetic backend")
			return
		}

		if err := initPlatform(); err != nil {
			initErr = err
			slog.Error("framebridge: platform init failed", "error", err)
			return
		}
		newBackend = newPlatformBackend
		initialized.Store(true)
		slog.Info("framebridge: initialized", "backend", platformName)
	})
	return initErr
}

// CopyBGRA copies one tightly packed BGRA frame from src into dst,
// whose rows may be padded to dstRowBytes. See internal/blit for the
// full contract; argument violations return the Err* sentinels from
// this package.
func CopyBGRA(src, dst []byte, width, height, dstRowBytes int) error {
	return blit.CopyBGRA(src, dst, width, height, dstRowBytes)
}

// FrameHash fingerprints a strided sample of buf's first pixelCount
// 32-bit pixels for change detection. pixelCount <= 0 hashes to 0.
func FrameHash(buf []byte, pixelCount int) int32 {
	return blit.FrameHash(buf, pixelCount)
}
