// Package sim implements a synthetic media backend producing generated
// BGRA test patterns on a decoder-style producer goroutine.
//
// It exists for three reasons: unit tests of the managed pipeline, probe
// tooling on machines without a native media stack, and CI. It honors the
// full backend contract (single-slot frame handoff, idempotent
// transport controls, zero defaults before Open) so anything that works
// against sim works against a real platform backend.
//
// Sources are sim:// URIs:
//
//	sim://sweep?w=320&h=240&fps=30&d=60
//	sim://solid?w=64&h=64
//	sim://bars
//
// Patterns: "sweep" repaints every frame (exercises the change-detection
// path), "solid" paints one frame and then repeats it byte-identically
// (exercises redraw skipping), "bars" paints static vertical color bars.
package sim

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/decklight/framebridge/internal/native"
)

// Defaults applied when the URI does not override them.
const (
	defaultWidth    = 320
	defaultHeight   = 240
	defaultFPS      = 30.0
	defaultDuration = 60.0

	maxFPS = 240.0
)

// Player is the synthetic backend. It implements native.Backend.
//
// Thread-safety: all methods are safe for concurrent use; the producer
// goroutine shares state through the mutex and the frame slot only.
type Player struct {
	mu sync.Mutex

	// Source parameters, set by Open.
	pattern  string
	width    int
	height   int
	fps      float64
	duration float64
	title    string

	// Transport state.
	opened   bool
	playing  bool
	position float64
	volume   float64
	rate     float64

	lastErr *native.PlayerError

	slot *native.FrameSlot

	// Producer lifecycle.
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Reusable paint buffer, producer goroutine only.
	paint []byte
}

// New creates a synthetic player with no media loaded.
func New() *Player {
	return &Player{
		slot:   native.NewFrameSlot(),
		volume: 1.0,
		rate:   1.0,
	}
}

// Open parses a sim:// URI and prepares the pattern source, tearing down
// any previously loaded one.
func (p *Player) Open(uri string) error {
	u, err := url.Parse(uri)
	if err != nil {
		return p.failOpen(fmt.Sprintf("invalid URI %q: %v", uri, err))
	}
	if u.Scheme != "sim" {
		return p.failOpen(fmt.Sprintf("unsupported scheme %q (want sim://)", u.Scheme))
	}

	pattern := u.Host
	switch pattern {
	case "sweep", "solid", "bars":
	case "":
		pattern = "sweep"
	default:
		return p.failOpen(fmt.Sprintf("unknown pattern %q", pattern))
	}

	q := u.Query()
	width := queryInt(q, "w", defaultWidth)
	height := queryInt(q, "h", defaultHeight)
	fps := queryFloat(q, "fps", defaultFPS)
	duration := queryFloat(q, "d", defaultDuration)
	if width <= 0 || height <= 0 {
		return p.failOpen(fmt.Sprintf("invalid dimensions %dx%d", width, height))
	}
	if fps <= 0 || fps > maxFPS {
		return p.failOpen(fmt.Sprintf("invalid fps %.1f (must be 0-%g)", fps, maxFPS))
	}

	// Tear down the previous source before loading the new one.
	p.stopProducer()

	p.mu.Lock()
	p.pattern = pattern
	p.width = width
	p.height = height
	p.fps = fps
	p.duration = duration
	p.title = q.Get("title")
	if p.title == "" {
		p.title = "Synthetic " + pattern
	}
	p.opened = true
	p.playing = false
	p.position = 0
	p.lastErr = nil
	p.slot.Reset()
	p.mu.Unlock()

	slog.Debug("sim: source opened",
		"pattern", pattern,
		"resolution", fmt.Sprintf("%dx%d", width, height),
		"fps", fps,
		"duration_s", duration,
	)
	return nil
}

// failOpen records the classified error and tears down whatever source
// was loaded before, so every getter returns zero defaults while the
// error is active.
func (p *Player) failOpen(msg string) error {
	p.stopProducer()

	perr := &native.PlayerError{Category: native.Classify(msg), Message: msg}
	p.mu.Lock()
	p.lastErr = perr
	p.opened = false
	p.playing = false
	p.position = 0
	p.slot.Reset()
	p.mu.Unlock()
	return perr
}

// Play starts or resumes frame production. No-op while already playing
// or before Open.
func (p *Player) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.opened {
		return nil
	}
	p.playing = true
	if p.cancel == nil {
		ctx, cancel := context.WithCancel(context.Background())
		p.cancel = cancel
		p.wg.Add(1)
		go p.produce(ctx)
	}
	return nil
}

// Pause suspends frame production and the position clock. Idempotent.
func (p *Player) Pause() error {
	p.mu.Lock()
	p.playing = false
	p.mu.Unlock()
	return nil
}

// Stop pauses and rewinds to the start.
func (p *Player) Stop() error {
	p.mu.Lock()
	p.playing = false
	p.position = 0
	p.mu.Unlock()
	return nil
}

// SeekTo clamps to [0, duration] and jumps the position clock.
func (p *Player) SeekTo(seconds float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.opened || p.duration <= 0 {
		return nil // duration unknown: ignore, never fail
	}
	if seconds < 0 {
		seconds = 0
	}
	if seconds > p.duration {
		seconds = p.duration
	}
	p.position = seconds
	return nil
}

// SetVolume stores the (pre-clamped) volume.
func (p *Player) SetVolume(volume float64) {
	p.mu.Lock()
	p.volume = volume
	p.mu.Unlock()
}

// Volume returns the current volume.
func (p *Player) Volume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

// SetRate stores the (pre-clamped) playback speed.
func (p *Player) SetRate(rate float64) {
	p.mu.Lock()
	p.rate = rate
	p.mu.Unlock()
}

// Rate returns the current playback speed.
func (p *Player) Rate() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rate
}

// LatestFrame returns the newest produced frame and its geometry via
// the slot, which snapshots both under one lock.
func (p *Player) LatestFrame() (data []byte, width, height int, ok bool) {
	return p.slot.Latest()
}

// FrameWidth returns the frame width, 0 before the first frame.
func (p *Player) FrameWidth() int {
	w, _ := p.slot.Dimensions()
	return w
}

// FrameHeight returns the frame height, 0 before the first frame.
func (p *Player) FrameHeight() int {
	_, h := p.slot.Dimensions()
	return h
}

// Duration returns the configured duration, 0 before Open.
func (p *Player) Duration() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.opened {
		return 0
	}
	return p.duration
}

// Position returns the current position clock.
func (p *Player) Position() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.position
}

// AudioLevels synthesizes levels from the position clock while playing,
// zero otherwise.
func (p *Player) AudioLevels() (left, right float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.playing {
		return 0, 0
	}
	left = 0.5 + 0.5*math.Sin(p.position*2*math.Pi)
	right = 0.5 + 0.5*math.Cos(p.position*2*math.Pi)
	return left, right
}

// Media reports synthetic metadata derived from the source parameters.
func (p *Player) Media() native.MediaInfo {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.opened {
		return native.MediaInfo{}
	}
	return native.MediaInfo{
		Title:         p.title,
		Bitrate:       int64(float64(p.width*p.height*4*8) * p.fps),
		MimeType:      "video/x-raw",
		AudioChannels: 2,
		SampleRate:    48000,
	}
}

// LastError returns the most recent failure, nil when healthy.
func (p *Player) LastError() *native.PlayerError {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

// Close stops the producer goroutine and releases the source.
func (p *Player) Close() error {
	p.stopProducer()
	p.mu.Lock()
	p.opened = false
	p.playing = false
	p.mu.Unlock()
	return nil
}

// Drops reports frames the consumer never picked up (test/tooling hook).
func (p *Player) Drops() uint64 { return p.slot.Drops() }

func (p *Player) stopProducer() {
	p.mu.Lock()
	cancel := p.cancel
	p.cancel = nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
		p.wg.Wait()
	}
}

// produce is the decoder-stand-in goroutine: it paints and publishes one
// frame per tick while the transport is playing, and advances the
// position clock by rate-scaled tick intervals.
func (p *Player) produce(ctx context.Context) {
	defer p.wg.Done()

	p.mu.Lock()
	interval := time.Duration(float64(time.Second) / p.fps)
	p.mu.Unlock()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var frameIdx uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		p.mu.Lock()
		if !p.playing {
			p.mu.Unlock()
			continue
		}
		p.position += interval.Seconds() * p.rate
		if p.duration > 0 && p.position >= p.duration {
			// End of media: clamp and stop the transport.
			p.position = p.duration
			p.playing = false
		}
		width, height, pattern := p.width, p.height, p.pattern
		p.mu.Unlock()

		need := width * height * 4
		if cap(p.paint) < need {
			p.paint = make([]byte, need)
		}
		p.paint = p.paint[:need]

		paintPattern(p.paint, width, height, pattern, frameIdx)
		p.slot.Publish(p.paint, width, height)
		frameIdx++
	}
}

// paintPattern fills buf (packed BGRA) with the named test pattern.
func paintPattern(buf []byte, width, height int, pattern string, frameIdx uint64) {
	switch pattern {
	case "solid":
		// Mid-gray, identical every frame.
		for i := 0; i < len(buf); i += 4 {
			buf[i+0] = 0x80 // B
			buf[i+1] = 0x80 // G
			buf[i+2] = 0x80 // R
			buf[i+3] = 0xFF // A
		}

	case "bars":
		// Eight static vertical color bars, SMPTE-ish.
		colors := [8][3]byte{
			{0xC0, 0xC0, 0xC0}, // white (B, G, R)
			{0x00, 0xC0, 0xC0}, // yellow
			{0xC0, 0xC0, 0x00}, // cyan
			{0x00, 0xC0, 0x00}, // green
			{0xC0, 0x00, 0xC0}, // magenta
			{0x00, 0x00, 0xC0}, // red
			{0xC0, 0x00, 0x00}, // blue
			{0x00, 0x00, 0x00}, // black
		}
		barWidth := width / len(colors)
		if barWidth == 0 {
			barWidth = 1
		}
		for y := 0; y < height; y++ {
			row := y * width * 4
			for x := 0; x < width; x++ {
				bar := x / barWidth
				if bar >= len(colors) {
					bar = len(colors) - 1
				}
				off := row + x*4
				buf[off+0] = colors[bar][0]
				buf[off+1] = colors[bar][1]
				buf[off+2] = colors[bar][2]
				buf[off+3] = 0xFF
			}
		}

	default: // "sweep"
		// A diagonal gradient phase-shifted by the frame index, so every
		// frame differs from the previous one at every pixel.
		phase := byte(frameIdx)
		for y := 0; y < height; y++ {
			row := y * width * 4
			for x := 0; x < width; x++ {
				off := row + x*4
				buf[off+0] = byte(x) + phase
				buf[off+1] = byte(y) + phase
				buf[off+2] = byte(x+y) - phase
				buf[off+3] = 0xFF
			}
		}
	}
}

func queryInt(q url.Values, key string, def int) int {
	v := q.Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func queryFloat(q url.Values, key string, def float64) float64 {
	v := q.Get(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}
