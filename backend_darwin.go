package framebridge

import (
	"github.com/decklight/framebridge/internal/native"
	"github.com/decklight/framebridge/internal/native/ffi"
)

const platformName = "avfoundation"

func initPlatform() error {
	return ffi.Load()
}

func newPlatformBackend() (native.Backend, error) {
	return ffi.New()
}
