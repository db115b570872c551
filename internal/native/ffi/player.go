//go:build windows || darwin

package ffi

import (
	"fmt"
	"log/slog"
	"unsafe"

	"github.com/decklight/framebridge/internal/native"
)

// Player implements native.Backend over an opaque host-library handle.
//
// The handle is created by createVideoPlayer and released exactly once by
// disposeVideoPlayer; it never escapes this struct. All methods are
// issued from the managed wrapper's single render/control path, matching
// the host library's call-ordering contract: the frame pointer returned
// by getLatestFrame is valid only until the next frame-advancing call, so
// LatestFrame's result must be copied before any other method runs.
type Player struct {
	handle uintptr
}

// New loads the host library (idempotently) and allocates a native
// player. Returns an error when the library is unavailable or the host
// side fails to allocate; no partial handle is ever returned.
func New() (*Player, error) {
	if err := Load(); err != nil {
		return nil, err
	}

	handle := createVideoPlayer()
	if handle == 0 {
		return nil, fmt.Errorf("ffi: host library failed to allocate a player")
	}

	slog.Debug("ffi: native player created", "library", LoadedPath())
	return &Player{handle: handle}, nil
}

// Open begins loading uri. The host side tears down any previous source
// on the same handle first; loading and error reporting are asynchronous
// and surface through LastError and the polling getters.
func (p *Player) Open(uri string) error {
	openUri(p.handle, uri)
	if msg := getLastError(p.handle); msg != "" {
		return &native.PlayerError{Category: native.Classify(msg), Message: msg}
	}
	return nil
}

// Play resumes playback; the host side treats play-while-playing as a no-op.
func (p *Player) Play() error {
	playVideo(p.handle)
	return nil
}

// Pause suspends playback; pause-while-paused is a host-side no-op.
func (p *Player) Pause() error {
	pauseVideo(p.handle)
	return nil
}

// Stop halts playback and rewinds.
func (p *Player) Stop() error {
	stopVideo(p.handle)
	return nil
}

// SeekTo jumps playback. The host side clamps to [0, duration] and
// ignores seeks while the duration is still unknown.
func (p *Player) SeekTo(seconds float64) error {
	seekTo(p.handle, seconds)
	return nil
}

// SetVolume forwards the pre-clamped volume.
func (p *Player) SetVolume(volume float64) {
	setVolume(p.handle, float32(volume))
}

// Volume reads the current volume.
func (p *Player) Volume() float64 {
	return float64(getVolume(p.handle))
}

// SetRate forwards the pre-clamped playback speed.
func (p *Player) SetRate(rate float64) {
	setPlaybackSpeed(p.handle, float32(rate))
}

// Rate reads the current playback speed.
func (p *Player) Rate() float64 {
	return float64(getPlaybackSpeed(p.handle))
}

// LatestFrame returns the newest decoded BGRA frame and the geometry it
// was decoded at. The host library keeps the frame pointer and its
// dimensions consistent until the next frame-advancing call, so reading
// them back-to-back here is one snapshot. The bytes alias host-library
// memory; the caller must copy them immediately.
func (p *Player) LatestFrame() (data []byte, width, height int, ok bool) {
	ptr := getLatestFrame(p.handle)
	if ptr == 0 {
		return nil, 0, 0, false
	}
	width = int(getFrameWidth(p.handle))
	height = int(getFrameHeight(p.handle))
	if width <= 0 || height <= 0 {
		return nil, 0, 0, false
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(ptr)), width*height*4), width, height, true
}

// FrameWidth polls the current frame width, 0 before media is ready.
func (p *Player) FrameWidth() int {
	return int(getFrameWidth(p.handle))
}

// FrameHeight polls the current frame height, 0 before media is ready.
func (p *Player) FrameHeight() int {
	return int(getFrameHeight(p.handle))
}

// Duration polls the media duration in seconds, 0 while unknown.
func (p *Player) Duration() float64 {
	return getVideoDuration(p.handle)
}

// Position polls the playback position in seconds.
func (p *Player) Position() float64 {
	return getCurrentTime(p.handle)
}

// AudioLevels polls the momentary left/right levels.
func (p *Player) AudioLevels() (left, right float64) {
	return float64(getLeftAudioLevel(p.handle)), float64(getRightAudioLevel(p.handle))
}

// Media polls the metadata getters into one snapshot.
func (p *Player) Media() native.MediaInfo {
	return native.MediaInfo{
		Title:         getVideoTitle(p.handle),
		Bitrate:       getVideoBitrate(p.handle),
		MimeType:      getVideoMimeType(p.handle),
		AudioChannels: int(getAudioChannels(p.handle)),
		SampleRate:    int(getAudioSampleRate(p.handle)),
	}
}

// LastError polls the host-side error string and classifies it, nil when
// healthy.
func (p *Player) LastError() *native.PlayerError {
	msg := getLastError(p.handle)
	if msg == "" {
		return nil
	}
	return &native.PlayerError{Category: native.Classify(msg), Message: msg}
}

// Close releases the native player. The managed wrapper guarantees this
// runs exactly once and that no other call follows it.
func (p *Player) Close() error {
	disposeVideoPlayer(p.handle)
	p.handle = 0
	slog.Debug("ffi: native player disposed")
	return nil
}
