// framebridge-probe opens a media URI on the platform backend, runs the
// render pump for a while, and reports what the pipeline delivered.
// Useful for verifying a machine's native media stack and for eyeballing
// decoded frames (saved as PNG/JPEG) without a UI embedding.
//
// The backend can be forced with FRAMEBRIDGE_BACKEND=sim (also honored
// from a .env file in the working directory), so the probe runs on CI
// boxes with no media stack:
//
//	framebridge-probe --url "sim://sweep?w=320&h=240&fps=30&d=10" --output ./frames
package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/decklight/framebridge"
)

const version = "v0.1.0"

func main() {
	// Load .env if present; real env vars win.
	if err := godotenv.Load(); err == nil {
		slog.Debug("loaded .env file")
	}

	url := flag.String("url", "", "Media URI to open (required)")
	duration := flag.Duration("duration", 0, "Stop after this long (0 = until interrupted)")
	outputDir := flag.String("output", "", "Directory to save presented frames (optional)")
	outputFormat := flag.String("format", "png", "Output format: png, jpeg")
	jpegQuality := flag.Int("jpeg-quality", 90, "JPEG quality (1-100, only for jpeg format)")
	maxFrames := flag.Int("max-frames", 0, "Maximum frames to save (0 = unlimited)")
	statsInterval := flag.Int("stats-interval", 10, "Seconds between stats reports")
	tick := flag.Duration("tick", 0, "Pump tick interval (0 = default ~60Hz)")
	rowAlign := flag.Int("row-align", 0, "Display buffer row alignment in bytes (0 = packed)")
	rate := flag.Float64("rate", 1.0, "Playback rate (clamped to 0.5-2.0)")
	volume := flag.Float64("volume", 1.0, "Volume (clamped to 0-1)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("framebridge-probe %s\n", version)
		os.Exit(0)
	}

	if *url == "" {
		fmt.Fprintf(os.Stderr, "Error: --url flag is required\n\n")
		fmt.Fprintf(os.Stderr, "Usage example:\n")
		fmt.Fprintf(os.Stderr, "  framebridge-probe --url file:///movies/clip.mp4\n")
		fmt.Fprintf(os.Stderr, "  framebridge-probe --url \"sim://sweep?w=320&h=240\" --output ./frames\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	if *outputFormat != "png" && *outputFormat != "jpeg" {
		log.Fatalf("Invalid output format: %s (must be png or jpeg)", *outputFormat)
	}
	if *outputDir != "" {
		if err := os.MkdirAll(*outputDir, 0755); err != nil {
			log.Fatalf("Failed to create output directory: %v", err)
		}
		slog.Info("Frame saving enabled",
			"directory", *outputDir,
			"format", *outputFormat,
		)
	}

	fmt.Printf("\n")
	fmt.Printf("framebridge-probe %s\n", version)
	fmt.Printf("  URL:        %s\n", *url)
	if backend := os.Getenv("FRAMEBRIDGE_BACKEND"); backend != "" {
		fmt.Printf("  Backend:    %s (forced)\n", backend)
	}
	if *outputDir != "" {
		fmt.Printf("  Output Dir: %s\n", *outputDir)
	}
	fmt.Printf("\n")

	if err := framebridge.Init(); err != nil {
		log.Fatalf("framebridge init failed: %v", err)
	}

	player, err := framebridge.NewPlayer()
	if err != nil {
		log.Fatalf("Failed to create player: %v", err)
	}
	defer player.Close()

	if err := player.Open(*url); err != nil {
		if perr := player.LastError(); perr != nil {
			log.Fatalf("Failed to open %s: [%s] %s", *url, perr.Category, perr.Message)
		}
		log.Fatalf("Failed to open %s: %v", *url, err)
	}

	media := player.Media()
	fmt.Printf("Media opened:\n")
	fmt.Printf("  Title:       %s\n", orNone(media.Title))
	fmt.Printf("  MIME Type:   %s\n", orNone(media.MimeType))
	fmt.Printf("  Bitrate:     %d bps\n", media.Bitrate)
	fmt.Printf("  Audio:       %d ch @ %d Hz\n", media.AudioChannels, media.SampleRate)
	fmt.Printf("  Duration:    %.1f s\n", player.Telemetry().Duration)
	fmt.Printf("\n")

	player.SetVolume(*volume)
	player.SetRate(*rate)
	if err := player.Play(); err != nil {
		log.Fatalf("Failed to start playback: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if *duration > 0 {
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigChan:
			fmt.Printf("\nReceived interrupt signal, shutting down...\n")
			cancel()
		case <-ctx.Done():
		}
	}()

	framesSaved := 0
	saveErrors := 0

	pump := framebridge.NewPump(player, func(fb *framebridge.FrameBuffer, traceID string) {
		slog.Debug("frame presented",
			"geometry", fmt.Sprintf("%dx%d", fb.Width, fb.Height),
			"row_bytes", fb.RowBytes,
			"trace_id", traceID,
		)
		if *outputDir == "" {
			return
		}
		if *maxFrames > 0 && framesSaved >= *maxFrames {
			return
		}
		if err := saveFrame(*outputDir, fb, framesSaved, *outputFormat, *jpegQuality); err != nil {
			slog.Error("Failed to save frame", "error", err)
			saveErrors++
			return
		}
		framesSaved++
		if *maxFrames > 0 && framesSaved >= *maxFrames {
			fmt.Printf("\nReached maximum frames (%d), stopping...\n", *maxFrames)
			cancel()
		}
	})
	if *rowAlign > 0 {
		pump.SetRowAlignment(*rowAlign)
	}

	startTime := time.Now()
	statsTicker := time.NewTicker(time.Duration(*statsInterval) * time.Second)
	defer statsTicker.Stop()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-statsTicker.C:
				printStats(player, pump, time.Since(startTime), framesSaved)
			}
		}
	}()

	fmt.Printf("Pumping frames... press Ctrl+C to stop\n\n")
	pump.Run(ctx, *tick)

	// Stop polling before disposing the handle.
	if err := player.Stop(); err != nil {
		slog.Error("Error stopping playback", "error", err)
	}

	stats := pump.Stats()
	uptime := time.Since(startTime)
	fmt.Printf("\n")
	fmt.Printf("Final Statistics\n")
	fmt.Printf("  Uptime:           %s\n", uptime.Round(time.Second))
	fmt.Printf("  Ticks:            %d\n", stats.Ticks)
	fmt.Printf("  Frames Presented: %d\n", stats.Presented)
	fmt.Printf("  Redraws Skipped:  %d\n", stats.Skipped)
	fmt.Printf("  Empty Polls:      %d\n", stats.EmptyPolls)
	fmt.Printf("  Copy Errors:      %d\n", stats.CopyErrors)
	if *outputDir != "" {
		fmt.Printf("  Frames Saved:     %d\n", framesSaved)
		fmt.Printf("  Save Errors:      %d\n", saveErrors)
	}
	if stats.Ticks > 0 {
		fmt.Printf("  Present Rate:     %.1f%%\n", float64(stats.Presented)/float64(stats.Ticks)*100)
	}
	fmt.Printf("\n")

	slog.Info("Probe completed")
}

// printStats reports pump counters and playback telemetry.
func printStats(player *framebridge.Player, pump *framebridge.Pump, uptime time.Duration, framesSaved int) {
	stats := pump.Stats()
	tel := player.Telemetry()

	fmt.Printf("\n")
	fmt.Printf("── Stats (uptime %s) ──\n", uptime.Round(time.Second))
	fmt.Printf("  State:            %s\n", player.State())
	fmt.Printf("  Position:         %.1f / %.1f s\n", tel.Position, tel.Duration)
	fmt.Printf("  Audio Levels:     L %.2f / R %.2f\n", tel.LeftLevel, tel.RightLevel)
	fmt.Printf("  Ticks:            %d\n", stats.Ticks)
	fmt.Printf("  Frames Presented: %d\n", stats.Presented)
	fmt.Printf("  Redraws Skipped:  %d\n", stats.Skipped)
	fmt.Printf("  Frames Saved:     %d\n", framesSaved)
	if perr := player.LastError(); perr != nil {
		fmt.Printf("  Last Error:       [%s] %s\n", perr.Category, perr.Message)
	}
	fmt.Printf("\n")
}

// saveFrame writes one presented BGRA frame as PNG or JPEG.
func saveFrame(outputDir string, fb *framebridge.FrameBuffer, seq int, format string, jpegQuality int) error {
	filename := fmt.Sprintf("frame_%06d_%s.%s", seq, time.Now().Format("20060102_150405.000"), format)
	path := filepath.Join(outputDir, filename)

	img := image.NewRGBA(image.Rect(0, 0, fb.Width, fb.Height))

	// BGRA rows (possibly padded) to packed RGBA: swap B and R.
	for y := 0; y < fb.Height; y++ {
		src := fb.Data[y*fb.RowBytes:]
		dst := img.Pix[y*img.Stride:]
		for x := 0; x < fb.Width; x++ {
			dst[x*4+0] = src[x*4+2] // R
			dst[x*4+1] = src[x*4+1] // G
			dst[x*4+2] = src[x*4+0] // B
			dst[x*4+3] = src[x*4+3] // A
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	switch format {
	case "png":
		if err := png.Encode(file, img); err != nil {
			return fmt.Errorf("failed to encode PNG: %w", err)
		}
	case "jpeg":
		if err := jpeg.Encode(file, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
			return fmt.Errorf("failed to encode JPEG: %w", err)
		}
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
	return nil
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
