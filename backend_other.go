//go:build !windows && !darwin && !linux

package framebridge

import "github.com/decklight/framebridge/internal/native"

const platformName = "none"

func initPlatform() error {
	return ErrBackendUnavailable
}

func newPlatformBackend() (native.Backend, error) {
	return nil, ErrBackendUnavailable
}
