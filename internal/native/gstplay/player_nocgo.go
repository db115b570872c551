//go:build linux && !cgo

package gstplay

import (
	"errors"

	"github.com/decklight/framebridge/internal/native"
)

// Player is a placeholder for builds without cgo. The GStreamer
// bindings require cgo; New always fails so callers can fall back to
// another backend or surface a configuration error.
type Player struct{}

var errNoCgo = errors.New("gstplay: built without cgo, GStreamer backend unavailable")

func New() (*Player, error) { return nil, errNoCgo }

func (p *Player) Open(uri string) error              { return errNoCgo }
func (p *Player) Play() error                        { return errNoCgo }
func (p *Player) Pause() error                       { return errNoCgo }
func (p *Player) Stop() error                        { return errNoCgo }
func (p *Player) SeekTo(seconds float64) error       { return errNoCgo }
func (p *Player) SetVolume(v float64)                {}
func (p *Player) Volume() float64                    { return 0 }
func (p *Player) SetRate(rate float64)               {}
func (p *Player) Rate() float64                      { return 1 }
func (p *Player) LatestFrame() ([]byte, int, int, bool) { return nil, 0, 0, false }
func (p *Player) FrameWidth() int                    { return 0 }
func (p *Player) FrameHeight() int                   { return 0 }
func (p *Player) Duration() float64                  { return 0 }
func (p *Player) Position() float64                  { return 0 }
func (p *Player) AudioLevels() (left, right float64) { return 0, 0 }
func (p *Player) Media() native.MediaInfo            { return native.MediaInfo{} }
func (p *Player) LastError() *native.PlayerError     { return nil }
func (p *Player) Close() error                       { return nil }
