package framebridge

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/decklight/framebridge/internal/blit"
	"github.com/decklight/framebridge/internal/metrics"
)

// defaultTickInterval approximates a 60 Hz frame clock.
const defaultTickInterval = 16 * time.Millisecond

// PresentFunc receives the freshly copied display buffer. The buffer
// is reused on the next presented frame; implementations must finish
// with Data (or copy it) before returning. traceID identifies this
// presentation in logs.
type PresentFunc func(fb *FrameBuffer, traceID string)

// Pump drives the per-tick frame delivery: poll the player for the
// latest decoded frame, hash-sample it, and only when the hash
// changed copy it into the reusable display buffer and present it.
//
// The display buffer is owned by the pump and reallocated only when
// the frame geometry changes; a steady-state tick allocates nothing
// beyond the presentation trace ID.
//
// Thread-safety: Tick must be called from one goroutine at a time
// (the render thread, or Run's loop). Stats is safe concurrently.
type Pump struct {
	player   *Player
	present  PresentFunc
	rowAlign int

	buf      FrameBuffer
	lastHash int32
	hasLast  bool

	ticks      atomic.Uint64
	presented  atomic.Uint64
	skipped    atomic.Uint64
	emptyPolls atomic.Uint64
	copyErrs   atomic.Uint64
	lastTick   atomic.Int64 // unix nanos of last presented frame
}

// PumpStats is an operational snapshot of the pump's counters.
type PumpStats struct {
	Ticks         uint64
	Presented     uint64
	Skipped       uint64
	EmptyPolls    uint64
	CopyErrors    uint64
	LastPresented time.Time
}

// NewPump creates a pump presenting player's frames through present.
func NewPump(player *Player, present PresentFunc) *Pump {
	return &Pump{player: player, present: present}
}

// SetRowAlignment pads the display buffer's row stride up to a
// multiple of align bytes. Downstream bitmap APIs commonly require
// 4-, 16- or 64-byte row alignment. Zero (the default) keeps rows
// tightly packed. Must be set before the first Tick.
func (p *Pump) SetRowAlignment(align int) {
	if align > 0 {
		p.rowAlign = align
	}
}

// Tick runs one poll-hash-copy-present cycle. It returns nil when
// there is no new frame or the frame is unchanged; the only error is
// a copy argument violation, which indicates corrupt geometry from
// the backend.
func (p *Pump) Tick() error {
	p.ticks.Add(1)
	m := metrics.Default()
	m.Ticks.Inc()

	frame, width, height, ok := p.player.latestFrame()
	if !ok || width <= 0 || height <= 0 {
		p.emptyPolls.Add(1)
		m.EmptyPolls.Inc()
		return nil
	}

	// A hash from a different geometry never counts as "unchanged",
	// even on collision.
	if p.buf.Width != width || p.buf.Height != height {
		p.hasLast = false
	}

	hash := blit.FrameHash(frame, width*height)
	if p.hasLast && hash == p.lastHash {
		p.skipped.Add(1)
		m.RedrawsSkipped.Inc()
		return nil
	}

	rowBytes := width * blit.BytesPerPixel
	if p.rowAlign > 0 {
		rowBytes = alignUp(rowBytes, p.rowAlign)
	}
	p.ensureBuffer(width, height, rowBytes)

	start := time.Now()
	if err := blit.CopyBGRA(frame, p.buf.Data, width, height, rowBytes); err != nil {
		p.copyErrs.Add(1)
		m.CopyErrors.Inc()
		slog.Error("framebridge: frame copy failed",
			"width", width,
			"height", height,
			"row_bytes", rowBytes,
			"error", err,
		)
		return err
	}
	m.CopyDuration.Observe(time.Since(start).Seconds())
	m.FrameBytes.Observe(float64(width * height * blit.BytesPerPixel))

	p.lastHash = hash
	p.hasLast = true
	p.presented.Add(1)
	m.FramesPresented.Inc()
	p.lastTick.Store(time.Now().UnixNano())

	traceID := uuid.New().String()
	slog.Debug("framebridge: frame presented",
		"width", width,
		"height", height,
		"trace_id", traceID,
	)
	p.present(&p.buf, traceID)
	return nil
}

// Run ticks at interval until ctx is cancelled. interval <= 0 selects
// the default ~60 Hz clock. Copy errors are logged inside Tick and do
// not stop the loop; a backend producing corrupt geometry one tick
// may produce a good frame the next.
func (p *Pump) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = defaultTickInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.Info("framebridge: pump started", "interval", interval)
	for {
		select {
		case <-ctx.Done():
			slog.Info("framebridge: pump stopped",
				"ticks", p.ticks.Load(),
				"presented", p.presented.Load(),
				"skipped", p.skipped.Load(),
			)
			return
		case <-ticker.C:
			p.Tick()
		}
	}
}

// Stats returns a snapshot of the pump's operational counters.
func (p *Pump) Stats() PumpStats {
	s := PumpStats{
		Ticks:      p.ticks.Load(),
		Presented:  p.presented.Load(),
		Skipped:    p.skipped.Load(),
		EmptyPolls: p.emptyPolls.Load(),
		CopyErrors: p.copyErrs.Load(),
	}
	if ns := p.lastTick.Load(); ns > 0 {
		s.LastPresented = time.Unix(0, ns)
	}
	return s
}

// ensureBuffer resizes the display buffer when the frame geometry
// changes. Steady-state frames reuse the existing allocation.
func (p *Pump) ensureBuffer(width, height, rowBytes int) {
	if p.buf.Width == width && p.buf.Height == height && p.buf.RowBytes == rowBytes {
		return
	}
	need := rowBytes * height
	if cap(p.buf.Data) < need {
		p.buf.Data = make([]byte, need)
	}
	p.buf.Data = p.buf.Data[:need]
	p.buf.Width = width
	p.buf.Height = height
	p.buf.RowBytes = rowBytes
	// Geometry changed: the previous hash belongs to a different
	// resolution, force the next frame through.
	p.hasLast = false
}

func alignUp(n, align int) int {
	rem := n % align
	if rem == 0 {
		return n
	}
	return n + align - rem
}
