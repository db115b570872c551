package framebridge

import (
	"github.com/decklight/framebridge/internal/native"
	"github.com/decklight/framebridge/internal/native/gstplay"
)

const platformName = "gstreamer"

// initPlatform is a no-op on Linux; gst.Init runs when the first
// pipeline is built and the go-gst bindings link at build time.
func initPlatform() error {
	return nil
}

func newPlatformBackend() (native.Backend, error) {
	return gstplay.New()
}
