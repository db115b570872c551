//go:build linux && cgo

// Package gstplay implements the Linux media backend on GStreamer's
// playbin, with a BGRA-capped appsink feeding the frame slot.
//
// Requires the gstreamer1.0 runtime (base/good plugin sets). playbin
// handles URI interpretation, demuxing, decoding and audio output on its
// own threads; this package only configures the pipeline, drains the
// appsink into the single-slot mailbox, and watches the bus.
package gstplay

import (
	"fmt"
	"log/slog"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"
)

// pipelineElements holds references needed across the player's lifetime.
type pipelineElements struct {
	pipeline *gst.Pipeline
	playbin  *gst.Element
	sink     *app.Sink
	level    *gst.Element
}

// buildPipeline creates a playbin wired to a BGRA appsink and an audio
// level probe, hosted in an outer pipeline so bus messages can be
// drained with GetPipelineBus. The pipeline is configured but left in
// the NULL state; the caller drives state transitions.
func buildPipeline() (*pipelineElements, error) {
	gst.Init(nil)

	pipeline, err := gst.NewPipeline("")
	if err != nil {
		return nil, fmt.Errorf("gstplay: failed to create pipeline: %w", err)
	}

	playbin, err := gst.NewElement("playbin")
	if err != nil {
		return nil, fmt.Errorf("gstplay: failed to create playbin: %w", err)
	}

	sink, err := app.NewAppSink()
	if err != nil {
		return nil, fmt.Errorf("gstplay: failed to create appsink: %w", err)
	}

	// BGRA lock on the sink: playbin inserts whatever videoconvert the
	// negotiation needs, so every decoder output lands here packed BGRA.
	sink.SetProperty("caps", gst.NewCapsFromString("video/x-raw,format=BGRA"))

	// Single-slot behavior at the sink too: keep only the newest sample,
	// drop instead of queueing, stay clock-synced for real-time pacing.
	sink.SetProperty("sync", true)
	sink.SetProperty("max-buffers", 1)
	sink.SetProperty("drop", true)

	playbin.SetProperty("video-sink", sink.Element)

	// Momentary audio levels come from a level element in the audio path;
	// it posts "level" element messages on the bus (~10 Hz by default).
	level, err := gst.NewElement("level")
	if err != nil {
		// Level metering is optional; playback works without it.
		slog.Warn("gstplay: level element unavailable, audio levels report zero", "error", err)
		level = nil
	} else {
		playbin.SetProperty("audio-filter", level)
	}

	if err := pipeline.AddMany(playbin); err != nil {
		return nil, fmt.Errorf("gstplay: failed to add playbin to pipeline: %w", err)
	}

	return &pipelineElements{pipeline: pipeline, playbin: playbin, sink: sink, level: level}, nil
}

// sampleDims extracts width and height from a sample's negotiated caps.
func sampleDims(sample *gst.Sample) (width, height int, ok bool) {
	caps := sample.GetCaps()
	if caps == nil {
		return 0, 0, false
	}
	structure := caps.GetStructureAt(0)
	if structure == nil {
		return 0, 0, false
	}

	wv, err := structure.GetValue("width")
	if err != nil {
		return 0, 0, false
	}
	hv, err := structure.GetValue("height")
	if err != nil {
		return 0, 0, false
	}

	w, wok := wv.(int)
	h, hok := hv.(int)
	if !wok || !hok || w <= 0 || h <= 0 {
		return 0, 0, false
	}
	return w, h, true
}

// destroyPipeline tears the pipeline down to NULL and releases it.
func destroyPipeline(elems *pipelineElements) {
	if elems == nil || elems.pipeline == nil {
		return
	}
	if err := elems.pipeline.SetState(gst.StateNull); err != nil {
		slog.Error("gstplay: failed to reach NULL state on teardown", "error", err)
	}
}
