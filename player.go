package framebridge

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/decklight/framebridge/internal/metrics"
	"github.com/decklight/framebridge/internal/native"
)

// Volume and rate bounds enforced by the managed layer before values
// reach the backend. The backend trusts its input.
const (
	minVolume = 0.0
	maxVolume = 1.0
	minRate   = 0.5
	maxRate   = 2.0
)

// Player is the managed wrapper around one native backend handle.
//
// It owns the lifecycle state machine, clamps volume and rate before
// they reach the native layer, absorbs backend errors into safe
// polling defaults, and guarantees single-dispose semantics: Close is
// idempotent, and every other method returns ErrPlayerClosed after it.
//
// Thread-safety: all methods are safe for concurrent use. Frame
// polling (used by the pump) takes the backend's own slot lock, not
// the player mutex, so transport calls never stall the render tick.
type Player struct {
	mu      sync.Mutex
	backend native.Backend
	state   State
	volume  float64
	rate    float64
	loop    bool
	closed  bool
}

// NewPlayer creates a player on the backend selected at Init.
// Returns ErrNotInitialized if Init has not been called or failed.
func NewPlayer() (*Player, error) {
	if !initialized.Load() {
		return nil, ErrNotInitialized
	}
	backend, err := newBackend()
	if err != nil {
		return nil, fmt.Errorf("framebridge: failed to create backend: %w", err)
	}
	metrics.Default().PlayersOpen.Inc()
	return &Player{
		backend: backend,
		state:   StateCreated,
		volume:  1,
		rate:    1,
	}, nil
}

// newPlayerWith builds a player on an explicit backend. Used by tests
// and the probe tool.
func newPlayerWith(backend native.Backend) *Player {
	metrics.Default().PlayersOpen.Inc()
	return &Player{
		backend: backend,
		state:   StateCreated,
		volume:  1,
		rate:    1,
	}
}

// Open loads uri, tearing down any previously loaded source on the
// same handle. On failure the player enters StateError and the
// classified cause is available via LastError.
func (p *Player) Open(uri string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPlayerClosed
	}

	p.state = StateOpening
	if err := p.backend.Open(uri); err != nil {
		p.state = StateError
		category := CategoryUnknown.String()
		if perr := p.backend.LastError(); perr != nil {
			category = perr.Category.String()
		}
		metrics.Default().OpenFailures.WithLabelValues(category).Inc()
		slog.Error("framebridge: open failed",
			"uri", uri,
			"category", category,
			"error", err,
		)
		return fmt.Errorf("framebridge: open %q: %w", uri, err)
	}

	p.state = StateReady
	p.backend.SetVolume(p.volume)
	if p.rate != 1 {
		p.backend.SetRate(p.rate)
	}
	return nil
}

// Play starts or resumes playback. Idempotent while playing.
func (p *Player) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPlayerClosed
	}
	if !p.hasMediaLocked() {
		return ErrNoMedia
	}
	if p.state == StatePlaying {
		return nil
	}
	if err := p.backend.Play(); err != nil {
		return fmt.Errorf("framebridge: play: %w", err)
	}
	p.state = StatePlaying
	return nil
}

// Pause suspends playback, keeping the current frame. Idempotent
// while paused.
func (p *Player) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPlayerClosed
	}
	if !p.hasMediaLocked() {
		return ErrNoMedia
	}
	if p.state == StatePaused {
		return nil
	}
	if err := p.backend.Pause(); err != nil {
		return fmt.Errorf("framebridge: pause: %w", err)
	}
	p.state = StatePaused
	return nil
}

// Stop halts playback and rewinds to the start. Play restarts from
// the beginning afterwards.
func (p *Player) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPlayerClosed
	}
	if !p.hasMediaLocked() {
		return ErrNoMedia
	}
	if err := p.backend.Stop(); err != nil {
		return fmt.Errorf("framebridge: stop: %w", err)
	}
	p.state = StateStopped
	return nil
}

// SeekTo jumps to seconds, clamped to [0, duration] by the backend.
// Ignored while the duration is still unknown.
func (p *Player) SeekTo(seconds float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPlayerClosed
	}
	if !p.hasMediaLocked() {
		return ErrNoMedia
	}
	if err := p.backend.SeekTo(seconds); err != nil {
		return fmt.Errorf("framebridge: seek: %w", err)
	}
	if p.state == StateEnded {
		p.state = StatePaused
	}
	return nil
}

// SetVolume sets the playback volume, clamped to [0,1] before it
// reaches the backend.
func (p *Player) SetVolume(v float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPlayerClosed
	}
	p.volume = clamp(v, minVolume, maxVolume)
	p.backend.SetVolume(p.volume)
	return nil
}

// Volume reports the last volume set through this player.
func (p *Player) Volume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

// SetRate sets the playback rate, clamped to [0.5,2.0] before it
// reaches the backend.
func (p *Player) SetRate(rate float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPlayerClosed
	}
	p.rate = clamp(rate, minRate, maxRate)
	p.backend.SetRate(p.rate)
	return nil
}

// Rate reports the last playback rate set through this player.
func (p *Player) Rate() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rate
}

// SetLoop controls whether playback restarts from zero when the
// position reaches the duration.
func (p *Player) SetLoop(loop bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loop = loop
}

// Loop reports whether looping is enabled.
func (p *Player) Loop() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loop
}

// State reports the current lifecycle state, folding in end-of-media
// detection (and the loop restart, when enabled).
func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.detectEndedLocked()
	return p.state
}

// Telemetry polls the backend for one snapshot of playback readings.
// All values are zero before media is loaded.
func (p *Player) Telemetry() Telemetry {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return Telemetry{}
	}
	p.detectEndedLocked()

	left, right := p.backend.AudioLevels()
	return Telemetry{
		Position:   p.backend.Position(),
		Duration:   p.backend.Duration(),
		LeftLevel:  left,
		RightLevel: right,
		Volume:     p.volume,
		Rate:       p.rate,
	}
}

// Media reports the loaded source's metadata, zero values before a
// source is loaded.
func (p *Player) Media() MediaInfo {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return MediaInfo{}
	}
	return p.backend.Media()
}

// LastError reports the most recent classified backend error, nil if
// none is active.
func (p *Player) LastError() *PlayerError {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	return p.backend.LastError()
}

// Close releases the native handle. Idempotent: the first call
// disposes, every later call returns nil without touching the
// backend. All other methods return ErrPlayerClosed afterwards.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	p.state = StateClosed
	metrics.Default().PlayersOpen.Dec()
	return p.backend.Close()
}

// latestFrame is the pump's polling entry: newest unconsumed frame
// plus its geometry. Nil and false after Close or before any frame.
func (p *Player) latestFrame() (data []byte, width, height int, ok bool) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, 0, 0, false
	}
	backend := p.backend
	p.mu.Unlock()

	// The slot read happens outside the player lock; backends
	// synchronize frame access themselves. Bytes and geometry arrive
	// in one snapshot so a frame published mid-poll cannot pair old
	// pixels with new dimensions.
	return backend.LatestFrame()
}

// hasMediaLocked reports whether a source is loaded. Caller holds p.mu.
func (p *Player) hasMediaLocked() bool {
	switch p.state {
	case StateReady, StatePlaying, StatePaused, StateStopped, StateEnded:
		return true
	default:
		return false
	}
}

// detectEndedLocked transitions Playing → Ended when the position
// reaches a known duration, or restarts from zero when looping.
// Caller holds p.mu.
func (p *Player) detectEndedLocked() {
	if p.closed || p.state != StatePlaying {
		return
	}
	duration := p.backend.Duration()
	if duration <= 0 {
		return
	}
	if p.backend.Position() < duration {
		return
	}
	if p.loop {
		err := p.backend.SeekTo(0)
		if err == nil {
			err = p.backend.Play()
		}
		if err == nil {
			return
		}
		// Restart failed: report Ended rather than a playing state
		// nothing is actually playing in.
		slog.Error("framebridge: loop restart failed", "error", err)
	}
	p.state = StateEnded
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
