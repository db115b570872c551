// Package framebridge implements the native desktop frame-delivery
// pipeline for embedding platform video players: a row-aware BGRA
// buffer copier, a strided frame-hash change detector, and a managed
// lifecycle around the opaque native player handle.
//
// # Philosophy
//
// "Copy once, redraw only on change."
//
// A video surface redraws at the UI's frame clock (~60 Hz) whether or
// not the decoder produced anything new. framebridge keeps that loop
// cheap: every tick polls the native handle for the latest decoded
// frame, fingerprints a strided sample of its pixels, and only when
// the fingerprint changes pays for the one copy into the reusable
// display buffer. Unchanged frames cost a hash (~200 pixel reads)
// and nothing else.
//
// # Architecture
//
// The pipeline sits between a native decoder and a UI blitter:
//
//	native decoder → frame slot → Pump.Tick → CopyBGRA → Present
//	 (own threads)   (mailbox)    (hash gate)  (display buffer)
//
// The frame slot is a single-slot mailbox: the decoder overwrites,
// never queues. The pump owns the display buffer for its entire
// lifetime and reuses it across frames; per-tick allocation is zero.
//
// Three desktop backends share the pipeline and differ only in how
// they reach the decoder:
//
//   - Windows: Media Foundation host library over purego (no cgo)
//   - macOS: AVFoundation host library over purego (no cgo)
//   - Linux: GStreamer playbin via go-gst (cgo)
//
// A synthetic backend is selectable with FRAMEBRIDGE_BACKEND=sim for
// tests and machines without a native media stack.
//
// # Basic Usage
//
//	if err := framebridge.Init(); err != nil {
//	    log.Fatalf("framebridge init failed: %v", err)
//	}
//
//	player, err := framebridge.NewPlayer()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer player.Close()
//
//	if err := player.Open("file:///movies/clip.mp4"); err != nil {
//	    log.Fatal(err)
//	}
//	player.Play()
//
//	pump := framebridge.NewPump(player, func(fb *framebridge.FrameBuffer, traceID string) {
//	    blitToScreen(fb.Data, fb.Width, fb.Height, fb.RowBytes)
//	})
//
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//	go pump.Run(ctx, 0) // 0 = default ~60 Hz
//
// Stop the pump before closing the player; cancellation at this layer
// is coarse (stop ticking, then Close).
//
// # Change Detection Semantics
//
// FrameHash samples at most ~200 pixels regardless of resolution, so
// two frames differing only in unsampled pixels can hash equal. That
// false negative is the accepted trade-off for O(1) cost per tick; it
// is a redraw heuristic, not a comparison.
//
// # Monitoring
//
// Pump.Stats() returns an operational snapshot (ticks, presents,
// skips, empty polls). The same figures are exported as Prometheus
// collectors under the framebridge_ namespace for embedding apps that
// scrape.
package framebridge
