package sim

import (
	"errors"
	"testing"
	"time"

	"github.com/decklight/framebridge/internal/native"
)

// waitForFrame polls until the player has produced at least one frame or
// the deadline passes.
func waitForFrame(t *testing.T, p *Player, deadline time.Duration) []byte {
	t.Helper()
	stop := time.Now().Add(deadline)
	for time.Now().Before(stop) {
		if data, _, _, ok := p.LatestFrame(); ok {
			return data
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("no frame produced before deadline")
	return nil
}

// TestDefaultsBeforeOpen validates the contract that every getter
// returns zero/empty values before media is loaded, never an error
// and never a panic.
func TestDefaultsBeforeOpen(t *testing.T) {
	p := New()
	defer p.Close()

	if _, _, _, ok := p.LatestFrame(); ok {
		t.Error("LatestFrame() reported a frame before Open")
	}
	if w, h := p.FrameWidth(), p.FrameHeight(); w != 0 || h != 0 {
		t.Errorf("dimensions before Open = %dx%d, want 0x0", w, h)
	}
	if d := p.Duration(); d != 0 {
		t.Errorf("Duration() before Open = %f, want 0", d)
	}
	if pos := p.Position(); pos != 0 {
		t.Errorf("Position() before Open = %f, want 0", pos)
	}
	if l, r := p.AudioLevels(); l != 0 || r != 0 {
		t.Errorf("AudioLevels() before Open = %f,%f, want 0,0", l, r)
	}
	if m := p.Media(); m != (native.MediaInfo{}) {
		t.Errorf("Media() before Open = %+v, want zero value", m)
	}
	if err := p.Play(); err != nil {
		t.Errorf("Play() before Open should be a no-op, got %v", err)
	}
}

// TestOpenValidation validates URI parsing and error classification.
func TestOpenValidation(t *testing.T) {
	cases := []struct {
		name string
		uri  string
		want native.ErrorCategory
	}{
		{"bad scheme", "http://example.com/clip.mp4", native.CategorySource},
		{"unknown pattern", "sim://plasma", native.CategoryUnknown},
		{"bad dimensions", "sim://sweep?w=0&h=10", native.CategoryUnknown},
		{"bad fps", "sim://sweep?fps=9000", native.CategoryUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := New()
			defer p.Close()

			err := p.Open(tc.uri)
			if err == nil {
				t.Fatal("Open() accepted an invalid URI")
			}

			var perr *native.PlayerError
			if !errors.As(err, &perr) {
				t.Fatalf("Open() error is %T, want *native.PlayerError", err)
			}
			if perr.Category != tc.want {
				t.Errorf("category = %s, want %s", perr.Category, tc.want)
			}
			if p.LastError() == nil {
				t.Error("LastError() is nil after a failed Open")
			}
		})
	}
}

// TestOpenResetsPreviousSource validates that Open on an already-loaded
// player tears down the old source: counters and errors reset, getters
// reflect the new source.
func TestOpenResetsPreviousSource(t *testing.T) {
	p := New()
	defer p.Close()

	// Fail once to set an error, then open a real source.
	_ = p.Open("ftp://nope")
	if err := p.Open("sim://solid?w=16&h=8&fps=120&d=5"); err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if p.LastError() != nil {
		t.Error("LastError() not cleared by successful Open")
	}
	if d := p.Duration(); d != 5 {
		t.Errorf("Duration() = %f, want 5", d)
	}

	// Reopen with different geometry while playing.
	p.Play()
	waitForFrame(t, p, time.Second)

	if err := p.Open("sim://bars?w=24&h=6&fps=120"); err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	if _, _, _, ok := p.LatestFrame(); ok {
		t.Error("stale frame survived reopen")
	}
	if pos := p.Position(); pos != 0 {
		t.Errorf("Position() = %f after reopen, want 0", pos)
	}
}

// TestFailedReopenTearsDownSource validates that an Open that fails
// validation still tears down the source playing before it: the
// producer stops, the slot empties, and the position clock rewinds.
// Getters must report zero defaults while the error is active.
func TestFailedReopenTearsDownSource(t *testing.T) {
	p := New()
	defer p.Close()

	if err := p.Open("sim://sweep?w=8&h=8&fps=120&d=10"); err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	p.Play()
	waitForFrame(t, p, time.Second)

	if err := p.Open("ftp://bad"); err == nil {
		t.Fatal("Open(ftp://) succeeded, want error")
	}
	if p.LastError() == nil {
		t.Error("LastError() = nil after failed reopen")
	}

	if _, _, _, ok := p.LatestFrame(); ok {
		t.Error("LatestFrame() reported a frame while an open error is active")
	}
	if pos := p.Position(); pos != 0 {
		t.Errorf("Position() = %f after failed reopen, want 0", pos)
	}
	if d := p.Duration(); d != 0 {
		t.Errorf("Duration() = %f after failed reopen, want 0", d)
	}

	// The producer must be stopped, not merely outpublished: nothing may
	// land in the slot after the failure.
	seqAfterFail := p.slot.Seq()
	time.Sleep(50 * time.Millisecond)
	if got := p.slot.Seq(); got != seqAfterFail {
		t.Errorf("producer still publishing after failed reopen: seq %d → %d", seqAfterFail, got)
	}
	if _, _, _, ok := p.LatestFrame(); ok {
		t.Error("frame appeared after failed reopen")
	}
	if pos := p.Position(); pos != 0 {
		t.Errorf("Position() advanced to %f while error active, want 0", pos)
	}
}

// TestFrameGeometry validates produced frames are packed BGRA of exactly
// width*height*4 bytes with opaque alpha.
func TestFrameGeometry(t *testing.T) {
	p := New()
	defer p.Close()

	const w, h = 32, 8
	if err := p.Open("sim://sweep?w=32&h=8&fps=120"); err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	p.Play()

	data := waitForFrame(t, p, time.Second)
	if len(data) != w*h*4 {
		t.Fatalf("frame size = %d, want %d", len(data), w*h*4)
	}
	if p.FrameWidth() != w || p.FrameHeight() != h {
		t.Errorf("dimensions = %dx%d, want %dx%d", p.FrameWidth(), p.FrameHeight(), w, h)
	}
	for i := 3; i < len(data); i += 4 {
		if data[i] != 0xFF {
			t.Fatalf("alpha at byte %d = %#x, want 0xFF", i, data[i])
		}
	}
}

// TestTransportIdempotency validates Play-while-playing and
// Pause-while-paused are no-ops.
func TestTransportIdempotency(t *testing.T) {
	p := New()
	defer p.Close()

	if err := p.Open("sim://solid?fps=120"); err != nil {
		t.Fatalf("Open() failed: %v", err)
	}

	if err := p.Play(); err != nil {
		t.Fatalf("Play() failed: %v", err)
	}
	if err := p.Play(); err != nil {
		t.Errorf("second Play() = %v, want nil no-op", err)
	}
	if err := p.Pause(); err != nil {
		t.Fatalf("Pause() failed: %v", err)
	}
	if err := p.Pause(); err != nil {
		t.Errorf("second Pause() = %v, want nil no-op", err)
	}
}

// TestSeekClamping validates SeekTo clamps into [0, duration] and is
// ignored before media is loaded.
func TestSeekClamping(t *testing.T) {
	p := New()
	defer p.Close()

	// Before Open: ignored, not an error.
	if err := p.SeekTo(42); err != nil {
		t.Errorf("SeekTo before Open = %v, want nil", err)
	}

	if err := p.Open("sim://solid?d=10"); err != nil {
		t.Fatalf("Open() failed: %v", err)
	}

	p.SeekTo(-5)
	if pos := p.Position(); pos != 0 {
		t.Errorf("Position() after SeekTo(-5) = %f, want 0", pos)
	}

	p.SeekTo(99)
	if pos := p.Position(); pos != 10 {
		t.Errorf("Position() after SeekTo(99) = %f, want clamp to 10", pos)
	}

	p.SeekTo(3.5)
	if pos := p.Position(); pos != 3.5 {
		t.Errorf("Position() after SeekTo(3.5) = %f, want 3.5", pos)
	}
}

// TestPositionAdvancesWhilePlaying validates the position clock moves
// only while playing and stops at the configured duration.
func TestPositionAdvancesWhilePlaying(t *testing.T) {
	p := New()
	defer p.Close()

	if err := p.Open("sim://solid?fps=120&d=0.05"); err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	p.Play()

	// 50ms of media at 120fps finishes quickly.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if p.Position() >= 0.05 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if pos := p.Position(); pos != 0.05 {
		t.Fatalf("Position() = %f, want clamp at duration 0.05", pos)
	}

	// Transport stopped at end of media: position must hold still.
	time.Sleep(30 * time.Millisecond)
	if pos := p.Position(); pos != 0.05 {
		t.Errorf("Position() advanced past end of media: %f", pos)
	}
}

// TestMediaMetadata validates the synthetic metadata snapshot.
func TestMediaMetadata(t *testing.T) {
	p := New()
	defer p.Close()

	if err := p.Open("sim://bars?w=100&h=50&fps=10&title=Test+Card"); err != nil {
		t.Fatalf("Open() failed: %v", err)
	}

	m := p.Media()
	if m.Title != "Test Card" {
		t.Errorf("Title = %q, want %q", m.Title, "Test Card")
	}
	if m.MimeType != "video/x-raw" {
		t.Errorf("MimeType = %q, want video/x-raw", m.MimeType)
	}
	if m.AudioChannels != 2 || m.SampleRate != 48000 {
		t.Errorf("audio = %d ch @ %d Hz, want 2 ch @ 48000 Hz", m.AudioChannels, m.SampleRate)
	}
	if want := int64(100 * 50 * 4 * 8 * 10); m.Bitrate != want {
		t.Errorf("Bitrate = %d, want %d", m.Bitrate, want)
	}
}

// TestCloseStopsProducer validates Close ends frame production and that
// the player reports no media afterwards.
func TestCloseStopsProducer(t *testing.T) {
	p := New()

	if err := p.Open("sim://sweep?fps=120"); err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	p.Play()
	waitForFrame(t, p, time.Second)

	if err := p.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	seqAfterClose := p.slot.Seq()
	time.Sleep(50 * time.Millisecond)
	if got := p.slot.Seq(); got != seqAfterClose {
		t.Errorf("producer still publishing after Close: seq %d → %d", seqAfterClose, got)
	}
	if d := p.Duration(); d != 0 {
		t.Errorf("Duration() after Close = %f, want 0", d)
	}
}
