//go:build windows || darwin

// Package ffi binds the platform host player library over purego: the
// Media Foundation host DLL on Windows and the AVFoundation host dylib on
// macOS. Both libraries export the same primitive-only C surface, so one
// symbol table serves both; only library discovery differs per OS.
//
// Library locations checked (in order):
//   - FRAMEBRIDGE_NATIVE_LIB environment variable (full path)
//   - the platform default name on the system library search path
//
// Decoding, rendering and all blocking I/O happen inside the host
// library on its own threads; every bound function here is a
// microsecond-scale call.
package ffi

import (
	"fmt"
	"os"
	"sync"
)

var (
	loadOnce   sync.Once
	loadErr    error
	loadedPath string
)

// envLibPath overrides library discovery, mainly for tests and
// non-standard installs.
const envLibPath = "FRAMEBRIDGE_NATIVE_LIB"

// Host library function pointers, registered by load. The handle values
// are opaque player handles created by createVideoPlayer; 0 means
// allocation failed.
var (
	createVideoPlayer  func() uintptr
	openUri            func(handle uintptr, uri string)
	playVideo          func(handle uintptr)
	pauseVideo         func(handle uintptr)
	stopVideo          func(handle uintptr)
	seekTo             func(handle uintptr, seconds float64)
	setVolume          func(handle uintptr, volume float32)
	getVolume          func(handle uintptr) float32
	setPlaybackSpeed   func(handle uintptr, speed float32)
	getPlaybackSpeed   func(handle uintptr) float32
	getLatestFrame     func(handle uintptr) uintptr
	getFrameWidth      func(handle uintptr) int32
	getFrameHeight     func(handle uintptr) int32
	getVideoDuration   func(handle uintptr) float64
	getCurrentTime     func(handle uintptr) float64
	getLeftAudioLevel  func(handle uintptr) float32
	getRightAudioLevel func(handle uintptr) float32
	getVideoTitle      func(handle uintptr) string
	getVideoBitrate    func(handle uintptr) int64
	getVideoMimeType   func(handle uintptr) string
	getAudioChannels   func(handle uintptr) int32
	getAudioSampleRate func(handle uintptr) int32
	getLastError       func(handle uintptr) string
	disposeVideoPlayer func(handle uintptr)
)

// registerAll binds every function pointer to its exported C name.
// Kept in one place so the pointer block above stays in sync.
func registerAll(handle uintptr) {
	register(&createVideoPlayer, handle, "createVideoPlayer")
	register(&openUri, handle, "openUri")
	register(&playVideo, handle, "playVideo")
	register(&pauseVideo, handle, "pauseVideo")
	register(&stopVideo, handle, "stopVideo")
	register(&seekTo, handle, "seekTo")
	register(&setVolume, handle, "setVolume")
	register(&getVolume, handle, "getVolume")
	register(&setPlaybackSpeed, handle, "setPlaybackSpeed")
	register(&getPlaybackSpeed, handle, "getPlaybackSpeed")
	register(&getLatestFrame, handle, "getLatestFrame")
	register(&getFrameWidth, handle, "getFrameWidth")
	register(&getFrameHeight, handle, "getFrameHeight")
	register(&getVideoDuration, handle, "getVideoDuration")
	register(&getCurrentTime, handle, "getCurrentTime")
	register(&getLeftAudioLevel, handle, "getLeftAudioLevel")
	register(&getRightAudioLevel, handle, "getRightAudioLevel")
	register(&getVideoTitle, handle, "getVideoTitle")
	register(&getVideoBitrate, handle, "getVideoBitrate")
	register(&getVideoMimeType, handle, "getVideoMimeType")
	register(&getAudioChannels, handle, "getAudioChannels")
	register(&getAudioSampleRate, handle, "getAudioSampleRate")
	register(&getLastError, handle, "getLastError")
	register(&disposeVideoPlayer, handle, "disposeVideoPlayer")
}

// Load resolves the host library and registers every symbol. Idempotent;
// subsequent calls return the first outcome. Safe for concurrent use.
func Load() error {
	loadOnce.Do(func() {
		// purego reports missing symbols by panicking; convert that to a
		// regular load error so construction stays fail-fast, not fatal.
		defer func() {
			if r := recover(); r != nil {
				loadErr = fmt.Errorf("ffi: symbol registration failed: %v", r)
			}
		}()

		path := os.Getenv(envLibPath)
		if path == "" {
			path = defaultLibName
		}

		handle, err := openLibrary(path)
		if err != nil {
			loadErr = fmt.Errorf("ffi: cannot load host player library %q: %w", path, err)
			return
		}
		registerAll(handle)
		loadedPath = path
	})
	return loadErr
}

// LoadedPath returns the path of the host library after a successful
// Load, empty otherwise.
func LoadedPath() string {
	return loadedPath
}
