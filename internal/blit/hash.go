package blit

// hashSampleTarget caps the number of pixels sampled by FrameHash.
//
// Rationale:
//   - 200 samples is enough to catch any visible frame change in practice
//     (a 1080p frame has ~2M pixels; real playback changes thousands).
//   - Cost stays O(1) relative to resolution: ~200 reads per tick whether
//     the frame is 320x240 or 4K.
const hashSampleTarget = 200

// FrameHash computes a cheap fingerprint over a strided sample of packed
// 32-bit BGRA pixels, used to decide whether a newly polled frame differs
// from the one already displayed.
//
// Contract:
//   - pixelCount <= 0 returns 0 (the "empty frame" fingerprint) without
//     touching buf.
//   - Sampling stride is 1 for pixelCount <= 200, else pixelCount/200.
//   - Accumulates hash = 31*hash + pixelWord (little-endian), seeded at 1,
//     with int32 wraparound.
//
// Guarantees: deterministic for identical contents and pixelCount. Two
// frames differing only in unsampled pixels may hash equal, an accepted
// false-negative trade-off; this is a change-detection heuristic, not an
// exhaustive comparison or a cryptographic digest.
//
// Pure function, no side effects, no allocation.
func FrameHash(buf []byte, pixelCount int) int32 {
	if pixelCount <= 0 {
		return 0
	}

	// Never read past the buffer, even if the caller's dimensions raced
	// ahead of the decoder's actual output.
	if max := len(buf) / BytesPerPixel; pixelCount > max {
		pixelCount = max
		if pixelCount == 0 {
			return 0
		}
	}

	step := 1
	if pixelCount > hashSampleTarget {
		step = pixelCount / hashSampleTarget
	}

	hash := int32(1)
	for i := 0; i < pixelCount; i += step {
		off := i * BytesPerPixel
		word := uint32(buf[off]) |
			uint32(buf[off+1])<<8 |
			uint32(buf[off+2])<<16 |
			uint32(buf[off+3])<<24
		hash = 31*hash + int32(word)
	}
	return hash
}
