package framebridge

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/decklight/framebridge/internal/native"
)

// scriptedBackend hands the pump a fixed frame on every poll, letting
// tests control exactly what the hash gate sees.
type scriptedBackend struct {
	frame  []byte
	width  int
	height int
}

func (b *scriptedBackend) Open(uri string) error      { return nil }
func (b *scriptedBackend) Play() error                { return nil }
func (b *scriptedBackend) Pause() error               { return nil }
func (b *scriptedBackend) Stop() error                { return nil }
func (b *scriptedBackend) SeekTo(seconds float64) error { return nil }
func (b *scriptedBackend) SetVolume(volume float64)   {}
func (b *scriptedBackend) Volume() float64            { return 1 }
func (b *scriptedBackend) SetRate(rate float64)       {}
func (b *scriptedBackend) Rate() float64              { return 1 }
func (b *scriptedBackend) LatestFrame() ([]byte, int, int, bool) {
	if b.frame == nil {
		return nil, 0, 0, false
	}
	return b.frame, b.width, b.height, true
}
func (b *scriptedBackend) FrameWidth() int                    { return b.width }
func (b *scriptedBackend) FrameHeight() int                   { return b.height }
func (b *scriptedBackend) Duration() float64                  { return 0 }
func (b *scriptedBackend) Position() float64                  { return 0 }
func (b *scriptedBackend) AudioLevels() (left, right float64) { return 0, 0 }
func (b *scriptedBackend) Media() native.MediaInfo            { return native.MediaInfo{} }
func (b *scriptedBackend) LastError() *native.PlayerError     { return nil }
func (b *scriptedBackend) Close() error                       { return nil }

func packedFrame(width, height int, fill byte) []byte {
	buf := make([]byte, width*height*4)
	for i := range buf {
		buf[i] = fill
	}
	return buf
}

// TestPumpPresentsOnlyOnChange verifies the hash gate: identical
// consecutive frames produce exactly one present, and a change at a
// sampled pixel produces the next one.
func TestPumpPresentsOnlyOnChange(t *testing.T) {
	backend := &scriptedBackend{
		frame:  packedFrame(10, 10, 0x40),
		width:  10,
		height: 10,
	}
	player := newPlayerWith(backend)
	defer player.Close()

	var presents int
	pump := NewPump(player, func(fb *FrameBuffer, traceID string) {
		presents++
		if traceID == "" {
			t.Error("present callback received empty trace ID")
		}
	})

	for i := 0; i < 5; i++ {
		if err := pump.Tick(); err != nil {
			t.Fatalf("Tick() = %v", err)
		}
	}
	if presents != 1 {
		t.Fatalf("presents after 5 identical frames = %d, want 1", presents)
	}

	// 100 pixels, stride 1: every pixel is sampled, any change shows.
	backend.frame[0] = 0x41
	if err := pump.Tick(); err != nil {
		t.Fatalf("Tick() = %v", err)
	}
	if presents != 2 {
		t.Fatalf("presents after sampled-pixel change = %d, want 2", presents)
	}

	stats := pump.Stats()
	if stats.Ticks != 6 || stats.Presented != 2 || stats.Skipped != 4 {
		t.Errorf("Stats() = %+v, want ticks=6 presented=2 skipped=4", stats)
	}
	if stats.LastPresented.IsZero() {
		t.Error("Stats().LastPresented is zero after a present")
	}
}

// TestPumpUnsampledChangeMaySkip documents the heuristic limitation:
// with 2000 pixels the sampler reads every 10th pixel, so a change
// confined to an unsampled pixel does not trigger a redraw.
func TestPumpUnsampledChangeMaySkip(t *testing.T) {
	const width, height = 40, 50 // 2000 pixels, step 10
	backend := &scriptedBackend{
		frame:  packedFrame(width, height, 0x10),
		width:  width,
		height: height,
	}
	player := newPlayerWith(backend)
	defer player.Close()

	var presents int
	pump := NewPump(player, func(fb *FrameBuffer, traceID string) { presents++ })

	if err := pump.Tick(); err != nil {
		t.Fatalf("Tick() = %v", err)
	}

	// Pixel 5 is not on the sampling stride; only its bytes change.
	backend.frame[5*4] ^= 0xFF
	if err := pump.Tick(); err != nil {
		t.Fatalf("Tick() = %v", err)
	}
	if presents != 1 {
		t.Errorf("presents = %d, want 1 (unsampled change skipped)", presents)
	}

	// Pixel 10 is on the stride; the change must be presented.
	backend.frame[10*4] ^= 0xFF
	if err := pump.Tick(); err != nil {
		t.Fatalf("Tick() = %v", err)
	}
	if presents != 2 {
		t.Errorf("presents = %d, want 2 (sampled change detected)", presents)
	}
}

// TestPumpCopiesFrameIntoReusableBuffer checks the presented buffer's
// contents and that the allocation is reused across presents.
func TestPumpCopiesFrameIntoReusableBuffer(t *testing.T) {
	backend := &scriptedBackend{
		frame:  packedFrame(4, 2, 0xAB),
		width:  4,
		height: 2,
	}
	player := newPlayerWith(backend)
	defer player.Close()

	var first []byte
	var presents int
	pump := NewPump(player, func(fb *FrameBuffer, traceID string) {
		presents++
		if fb.Width != 4 || fb.Height != 2 || fb.RowBytes != 16 {
			t.Errorf("FrameBuffer geometry = %dx%d stride %d, want 4x2 stride 16", fb.Width, fb.Height, fb.RowBytes)
		}
		if !bytes.Equal(fb.Data, backend.frame) {
			t.Error("presented data does not match the source frame")
		}
		if first == nil {
			first = fb.Data[:1]
		} else if &first[0] != &fb.Data[0] {
			t.Error("display buffer was reallocated between same-geometry presents")
		}
	})

	if err := pump.Tick(); err != nil {
		t.Fatalf("Tick() = %v", err)
	}
	backend.frame[0] ^= 0xFF
	if err := pump.Tick(); err != nil {
		t.Fatalf("Tick() = %v", err)
	}
	if presents != 2 {
		t.Fatalf("presents = %d, want 2", presents)
	}
}

// TestPumpRowAlignment pads the display stride up to the requested
// alignment and leaves rows intact at their unpadded prefix.
func TestPumpRowAlignment(t *testing.T) {
	backend := &scriptedBackend{
		frame:  packedFrame(3, 2, 0x5C),
		width:  3,
		height: 2,
	}
	player := newPlayerWith(backend)
	defer player.Close()

	pump := NewPump(player, func(fb *FrameBuffer, traceID string) {
		if fb.RowBytes != 16 {
			t.Fatalf("RowBytes = %d, want 16 (3*4 aligned up)", fb.RowBytes)
		}
		if len(fb.Data) != 32 {
			t.Fatalf("len(Data) = %d, want 32", len(fb.Data))
		}
		for row := 0; row < fb.Height; row++ {
			got := fb.Data[row*fb.RowBytes : row*fb.RowBytes+12]
			want := backend.frame[row*12 : row*12+12]
			if !bytes.Equal(got, want) {
				t.Errorf("row %d = % x, want % x", row, got, want)
			}
		}
	})
	pump.SetRowAlignment(16)

	if err := pump.Tick(); err != nil {
		t.Fatalf("Tick() = %v", err)
	}
	if pump.Stats().Presented != 1 {
		t.Fatalf("Presented = %d, want 1", pump.Stats().Presented)
	}
}

// TestPumpEmptyPolls: a backend with no frame yet produces no
// presents, only empty-poll counts.
func TestPumpEmptyPolls(t *testing.T) {
	player := newPlayerWith(&scriptedBackend{})
	defer player.Close()

	pump := NewPump(player, func(fb *FrameBuffer, traceID string) {
		t.Error("present callback fired with no frame available")
	})

	for i := 0; i < 3; i++ {
		if err := pump.Tick(); err != nil {
			t.Fatalf("Tick() = %v", err)
		}
	}
	stats := pump.Stats()
	if stats.EmptyPolls != 3 || stats.Presented != 0 {
		t.Errorf("Stats() = %+v, want 3 empty polls and 0 presents", stats)
	}
}

// TestPumpGeometryChangeForcesPresent: a resolution switch always
// presents, regardless of hash history, and resizes the buffer.
func TestPumpGeometryChangeForcesPresent(t *testing.T) {
	backend := &scriptedBackend{
		frame:  packedFrame(8, 8, 0x33),
		width:  8,
		height: 8,
	}
	player := newPlayerWith(backend)
	defer player.Close()

	var geometries [][2]int
	pump := NewPump(player, func(fb *FrameBuffer, traceID string) {
		geometries = append(geometries, [2]int{fb.Width, fb.Height})
	})

	if err := pump.Tick(); err != nil {
		t.Fatalf("Tick() = %v", err)
	}

	backend.frame = packedFrame(16, 4, 0x33)
	backend.width, backend.height = 16, 4
	if err := pump.Tick(); err != nil {
		t.Fatalf("Tick() = %v", err)
	}

	want := [][2]int{{8, 8}, {16, 4}}
	if len(geometries) != 2 || geometries[0] != want[0] || geometries[1] != want[1] {
		t.Errorf("presented geometries = %v, want %v", geometries, want)
	}
}

// TestPumpRunStopsOnCancel verifies the ticker loop honors context
// cancellation.
func TestPumpRunStopsOnCancel(t *testing.T) {
	backend := &scriptedBackend{
		frame:  packedFrame(4, 4, 0x01),
		width:  4,
		height: 4,
	}
	player := newPlayerWith(backend)
	defer player.Close()

	pump := NewPump(player, func(fb *FrameBuffer, traceID string) {})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		pump.Run(ctx, time.Millisecond)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for pump.Stats().Ticks == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
	if pump.Stats().Ticks == 0 {
		t.Error("Run never ticked before cancellation")
	}
}

// driftingBackend reports a newer geometry from the width/height polls
// than the frame snapshot it hands out, imitating a decoder that
// publishes a resized frame between two backend calls.
type driftingBackend struct {
	scriptedBackend
	polledWidth  int
	polledHeight int
}

func (b *driftingBackend) FrameWidth() int  { return b.polledWidth }
func (b *driftingBackend) FrameHeight() int { return b.polledHeight }

// TestPumpPairsBytesWithSnapshotGeometry verifies the pump sizes the
// display buffer from the dimensions delivered with the frame bytes,
// never from a separate poll that may already see a resized frame.
// Mispairing would copy a 6x4 frame as 12x8 and fail (or garble the
// present).
func TestPumpPairsBytesWithSnapshotGeometry(t *testing.T) {
	backend := &driftingBackend{
		scriptedBackend: scriptedBackend{
			frame:  packedFrame(6, 4, 0x2A),
			width:  6,
			height: 4,
		},
		polledWidth:  12,
		polledHeight: 8,
	}
	player := newPlayerWith(backend)
	defer player.Close()

	var gotWidth, gotHeight, gotLen int
	pump := NewPump(player, func(fb *FrameBuffer, traceID string) {
		gotWidth, gotHeight, gotLen = fb.Width, fb.Height, len(fb.Data)
	})

	if err := pump.Tick(); err != nil {
		t.Fatalf("Tick() = %v", err)
	}
	if gotWidth != 6 || gotHeight != 4 {
		t.Errorf("presented geometry = %dx%d, want 6x4 (snapshot, not polled)", gotWidth, gotHeight)
	}
	if want := 6 * 4 * 4; gotLen != want {
		t.Errorf("presented buffer length = %d, want %d", gotLen, want)
	}
	if s := pump.Stats(); s.CopyErrors != 0 || s.Presented != 1 {
		t.Errorf("Stats() = %+v, want 1 present and no copy errors", s)
	}
}
