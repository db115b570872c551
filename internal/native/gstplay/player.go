//go:build linux && cgo

package gstplay

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"

	"github.com/decklight/framebridge/internal/native"
)

// openTimeout bounds how long Open waits for the pipeline to preroll.
const openTimeout = 10 * time.Second

// Player is the GStreamer-backed implementation of native.Backend.
//
// playbin owns demuxing, decoding and audio output; the player owns
// the appsink drain, the bus watch and the frame slot. Decoded BGRA
// frames are published into the slot from GStreamer's streaming thread
// and consumed by the render pump without further synchronization
// requirements on the caller.
type Player struct {
	mu sync.Mutex

	elems *pipelineElements
	slot  *native.FrameSlot

	opened  bool
	playing bool
	ended   bool
	closed  bool
	rate    float64

	duration float64 // cached once known, seconds
	media    native.MediaInfo
	levels   [2]float64
	lastErr  *native.PlayerError

	watchCancel context.CancelFunc
	watchWG     sync.WaitGroup
}

// New builds the playbin pipeline in the NULL state. The returned
// player reports zero defaults until Open succeeds.
func New() (*Player, error) {
	elems, err := buildPipeline()
	if err != nil {
		return nil, err
	}

	p := &Player{
		elems: elems,
		slot:  native.NewFrameSlot(),
		rate:  1,
	}

	p.elems.sink.SetCallbacks(&app.SinkCallbacks{
		NewSampleFunc: p.onNewSample,
	})

	return p, nil
}

// onNewSample drains the appsink from GStreamer's streaming thread.
// The mapped buffer is only valid until Unmap, so Publish copies it
// into the slot's scratch buffer before returning.
func (p *Player) onNewSample(sink *app.Sink) gst.FlowReturn {
	sample := sink.PullSample()
	if sample == nil {
		// A single bad sample should not kill the pipeline.
		slog.Warn("gstplay: failed to pull sample from appsink, skipping frame")
		return gst.FlowOK
	}

	width, height, ok := sampleDims(sample)
	if !ok {
		slog.Warn("gstplay: sample missing caps geometry, skipping frame")
		return gst.FlowOK
	}

	buffer := sample.GetBuffer()
	if buffer == nil {
		slog.Warn("gstplay: failed to get buffer from sample, skipping frame")
		return gst.FlowOK
	}

	mapInfo := buffer.Map(gst.MapRead)
	data := mapInfo.Bytes()
	if len(data) < width*height*4 {
		buffer.Unmap()
		slog.Warn("gstplay: short buffer from appsink",
			"have", len(data),
			"want", width*height*4,
		)
		return gst.FlowOK
	}

	p.slot.Publish(data[:width*height*4], width, height)
	buffer.Unmap()

	return gst.FlowOK
}

// Open points playbin at uri and prerolls it. Failures reported on the
// bus during preroll (missing file, unsupported codec, unreachable
// host) are classified and returned; they also remain readable via
// LastError.
func (p *Player) Open(uri string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return fmt.Errorf("gstplay: player is closed")
	}
	if uri == "" {
		perr := &native.PlayerError{Category: native.CategorySource, Message: "empty uri"}
		p.lastErr = perr
		return perr
	}

	// Tear down any previous source before rewiring the pipeline.
	p.stopWatchLocked()
	if err := p.elems.pipeline.SetState(gst.StateNull); err != nil {
		return fmt.Errorf("gstplay: failed to reset pipeline: %w", err)
	}
	p.slot.Reset()
	p.opened = false
	p.playing = false
	p.ended = false
	p.rate = 1
	p.duration = 0
	p.media = native.MediaInfo{}
	p.levels = [2]float64{}
	p.lastErr = nil

	p.elems.playbin.SetProperty("uri", uri)

	if err := p.elems.pipeline.SetState(gst.StatePaused); err != nil {
		perr := &native.PlayerError{
			Category: native.Classify(err.Error()),
			Message:  err.Error(),
		}
		p.lastErr = perr
		return perr
	}

	// Drain the bus inline until preroll completes or fails, so Open
	// reports immediate source and codec problems synchronously.
	if perr := p.waitPreroll(); perr != nil {
		p.elems.pipeline.SetState(gst.StateNull)
		p.lastErr = perr
		return perr
	}

	p.opened = true
	p.queryDurationLocked()
	p.startWatchLocked()

	slog.Info("gstplay: media opened",
		"uri", uri,
		"duration_s", p.duration,
	)
	return nil
}

// waitPreroll pops bus messages until ASYNC_DONE (preroll complete),
// an error, or the open timeout.
func (p *Player) waitPreroll() *native.PlayerError {
	bus := p.elems.pipeline.GetPipelineBus()
	deadline := time.Now().Add(openTimeout)

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return &native.PlayerError{
				Category: native.CategoryNetwork,
				Message:  fmt.Sprintf("timed out waiting for preroll after %v", openTimeout),
			}
		}

		msg := bus.TimedPop(remaining)
		if msg == nil {
			continue
		}

		switch msg.Type() {
		case gst.MessageAsyncDone:
			return nil

		case gst.MessageError:
			gerr := msg.ParseError()
			return &native.PlayerError{
				Category: native.Classify(gerr.Error() + " " + gerr.DebugString()),
				Message:  gerr.Error(),
			}

		case gst.MessageTag:
			p.absorbTagsLocked(msg)
		}
	}
}

// startWatchLocked spawns the bus watch goroutine. Caller holds p.mu.
func (p *Player) startWatchLocked() {
	ctx, cancel := context.WithCancel(context.Background())
	p.watchCancel = cancel
	p.watchWG.Add(1)
	go func() {
		defer p.watchWG.Done()
		p.watchBus(ctx)
	}()
}

// stopWatchLocked cancels the bus watch and waits for it. Caller holds
// p.mu; the watch goroutine never takes p.mu while holding the bus, so
// waiting here cannot deadlock (watchBus acquires p.mu only briefly
// between pops).
func (p *Player) stopWatchLocked() {
	if p.watchCancel == nil {
		return
	}
	cancel := p.watchCancel
	p.watchCancel = nil
	p.mu.Unlock()
	cancel()
	p.watchWG.Wait()
	p.mu.Lock()
}

// watchBus polls the pipeline bus for errors, EOS, tags and audio
// level reports until the context is cancelled.
func (p *Player) watchBus(ctx context.Context) {
	bus := p.elems.pipeline.GetPipelineBus()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		msg := bus.TimedPop(50 * time.Millisecond)
		if msg == nil {
			continue
		}

		switch msg.Type() {
		case gst.MessageEOS:
			p.mu.Lock()
			p.ended = true
			p.playing = false
			p.mu.Unlock()
			slog.Info("gstplay: end of stream")

		case gst.MessageError:
			gerr := msg.ParseError()
			perr := &native.PlayerError{
				Category: native.Classify(gerr.Error() + " " + gerr.DebugString()),
				Message:  gerr.Error(),
			}
			p.mu.Lock()
			p.lastErr = perr
			p.playing = false
			p.mu.Unlock()
			slog.Error("gstplay: pipeline error",
				"error", gerr.Error(),
				"debug", gerr.DebugString(),
				"category", perr.Category.String(),
			)

		case gst.MessageTag:
			p.absorbTags(msg)

		case gst.MessageElement:
			p.absorbLevels(msg)

		case gst.MessageDurationChanged:
			p.mu.Lock()
			p.queryDurationLocked()
			p.mu.Unlock()
		}
	}
}

// absorbTags folds a tag message into the cached media metadata.
// Later tags win field by field; streams emit tags incrementally.
func (p *Player) absorbTags(msg *gst.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.absorbTagsLocked(msg)
}

// absorbTagsLocked is absorbTags for callers already holding p.mu
// (the preroll drain runs under the lock).
func (p *Player) absorbTagsLocked(msg *gst.Message) {
	tags := msg.ParseTags()
	if tags == nil {
		return
	}

	if title, ok := tags.GetString(gst.TagTitle); ok && title != "" {
		p.media.Title = title
	}
	if bitrate, ok := tags.GetUint(gst.TagBitrate); ok && bitrate > 0 {
		p.media.Bitrate = int64(bitrate)
	}
	if mime, ok := tags.GetString(gst.TagContainerFormat); ok && mime != "" {
		p.media.MimeType = mime
	}
}

// absorbLevels extracts per-channel RMS from a level element message
// and converts dB to linear [0,1].
func (p *Player) absorbLevels(msg *gst.Message) {
	structure := msg.GetStructure()
	if structure == nil || structure.Name() != "level" {
		return
	}

	val, err := structure.GetValue("rms")
	if err != nil {
		return
	}
	arr, ok := val.([]interface{})
	if !ok || len(arr) == 0 {
		return
	}

	toLinear := func(v interface{}) float64 {
		db, ok := v.(float64)
		if !ok {
			return 0
		}
		lin := math.Pow(10, db/20)
		if lin > 1 {
			lin = 1
		}
		return lin
	}

	left := toLinear(arr[0])
	right := left
	if len(arr) > 1 {
		right = toLinear(arr[1])
	}

	p.mu.Lock()
	p.levels = [2]float64{left, right}
	p.mu.Unlock()
}

// queryDurationLocked refreshes the cached duration. Caller holds p.mu.
// Live and not-yet-negotiated sources legitimately report no duration.
func (p *Player) queryDurationLocked() {
	q := gst.NewDurationQuery(gst.FormatTime)
	if !p.elems.pipeline.Query(q) {
		return
	}
	_, ns := q.ParseDuration()
	if ns > 0 {
		p.duration = float64(ns) / float64(time.Second)
	}
}

// Play starts or resumes playback. Idempotent while playing.
func (p *Player) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed || !p.opened || p.playing {
		return nil
	}
	if err := p.elems.pipeline.SetState(gst.StatePlaying); err != nil {
		return fmt.Errorf("gstplay: failed to start playback: %w", err)
	}
	p.playing = true
	p.ended = false
	return nil
}

// Pause suspends playback, keeping the last frame in the slot.
// Idempotent while paused.
func (p *Player) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed || !p.opened || !p.playing {
		return nil
	}
	if err := p.elems.pipeline.SetState(gst.StatePaused); err != nil {
		return fmt.Errorf("gstplay: failed to pause playback: %w", err)
	}
	p.playing = false
	return nil
}

// Stop halts playback and rewinds to the start.
func (p *Player) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed || !p.opened {
		return nil
	}
	if err := p.elems.pipeline.SetState(gst.StatePaused); err != nil {
		return fmt.Errorf("gstplay: failed to halt playback: %w", err)
	}
	p.playing = false
	p.ended = false
	p.seekLocked(0)
	return nil
}

// SeekTo jumps to seconds, clamped to [0, duration]. Ignored when the
// duration is unknown (live or still negotiating).
func (p *Player) SeekTo(seconds float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed || !p.opened || p.duration <= 0 {
		return nil // duration unknown: ignore, never fail
	}
	if seconds < 0 {
		seconds = 0
	}
	if seconds > p.duration {
		seconds = p.duration
	}
	p.ended = false
	p.seekLocked(seconds)
	return nil
}

// seekLocked issues a flushing seek at the current rate. Caller holds
// p.mu.
func (p *Player) seekLocked(seconds float64) {
	ev := gst.NewSeekEvent(
		p.rate,
		gst.FormatTime,
		gst.SeekFlagFlush|gst.SeekFlagKeyUnit,
		gst.SeekTypeSet, int64(seconds*float64(time.Second)),
		gst.SeekTypeNone, 0,
	)
	if !p.elems.pipeline.SendEvent(ev) {
		slog.Warn("gstplay: seek rejected by pipeline", "target_s", seconds)
	}
}

// SetVolume sets playbin's linear volume. The managed layer clamps
// before calling; this trusts its input.
func (p *Player) SetVolume(v float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.elems.playbin.SetProperty("volume", v)
}

// Volume reports playbin's current linear volume.
func (p *Player) Volume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return 0
	}
	val, err := p.elems.playbin.GetProperty("volume")
	if err != nil {
		return 0
	}
	v, ok := val.(float64)
	if !ok {
		return 0
	}
	return v
}

// SetRate changes the playback rate by reseeking at the current
// position. Rate changes are ignored until a source is open.
func (p *Player) SetRate(rate float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed || !p.opened || rate <= 0 {
		return
	}
	p.rate = rate
	p.seekLocked(p.positionLocked())
}

// Rate reports the current playback rate.
func (p *Player) Rate() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rate
}

// LatestFrame returns the newest unconsumed BGRA frame and its geometry
// from the slot, snapshotted together under the slot lock.
func (p *Player) LatestFrame() (data []byte, width, height int, ok bool) {
	return p.slot.Latest()
}

// FrameWidth reports the width of the most recent frame.
func (p *Player) FrameWidth() int {
	w, _ := p.slot.Dimensions()
	return w
}

// FrameHeight reports the height of the most recent frame.
func (p *Player) FrameHeight() int {
	_, h := p.slot.Dimensions()
	return h
}

// Duration reports the media duration in seconds, 0 when unknown.
func (p *Player) Duration() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.duration <= 0 {
		p.queryDurationLocked()
	}
	return p.duration
}

// Position reports the playback position in seconds.
func (p *Player) Position() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.positionLocked()
}

func (p *Player) positionLocked() float64 {
	if p.closed || !p.opened {
		return 0
	}
	q := gst.NewPositionQuery(gst.FormatTime)
	if !p.elems.pipeline.Query(q) {
		return 0
	}
	_, ns := q.ParsePosition()
	if ns < 0 {
		return 0
	}
	return float64(ns) / float64(time.Second)
}

// AudioLevels reports the most recent per-channel RMS in [0,1].
func (p *Player) AudioLevels() (left, right float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.levels[0], p.levels[1]
}

// Media reports metadata accumulated from stream tags so far.
func (p *Player) Media() native.MediaInfo {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.media
}

// LastError reports the most recent classified pipeline error, nil if
// none occurred since the last successful Open.
func (p *Player) LastError() *native.PlayerError {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

// Close tears the pipeline down to NULL and releases it. Safe to call
// once; subsequent calls are no-ops.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	p.stopWatchLocked()
	destroyPipeline(p.elems)
	p.opened = false
	p.playing = false
	return nil
}
