package native

import "strings"

// ErrorCategory classifies backend failures for telemetry and for the UI
// layer's error surfaces.
type ErrorCategory int

const (
	// CategoryCodec indicates decode/format failures (missing decoder,
	// caps negotiation, corrupt stream).
	CategoryCodec ErrorCategory = iota
	// CategoryNetwork indicates transport failures (connection, timeout, DNS).
	CategoryNetwork
	// CategorySource indicates the source itself is bad (missing file,
	// malformed URI, access denied).
	CategorySource
	// CategoryUnknown indicates an unclassified failure.
	CategoryUnknown
)

// String returns a human-readable label for the category.
func (c ErrorCategory) String() string {
	switch c {
	case CategoryCodec:
		return "codec"
	case CategoryNetwork:
		return "network"
	case CategorySource:
		return "source"
	default:
		return "unknown"
	}
}

// Classify categorizes a backend error message.
//
// This enables better debugging in production by distinguishing between
// source problems (fix the URI), network problems (retry may help) and
// codec problems (retry will not help).
//
// Classification is keyword-based: native frameworks report errors as
// free-form strings, so string matching is the only portable channel.
// Priority order is source > codec > network; the most specific class
// wins when a message matches several.
func Classify(msg string) ErrorCategory {
	if msg == "" {
		return CategoryUnknown
	}
	lower := strings.ToLower(msg)

	if containsAny(lower, sourceKeywords) {
		return CategorySource
	}
	if containsAny(lower, codecKeywords) {
		return CategoryCodec
	}
	if containsAny(lower, networkKeywords) {
		return CategoryNetwork
	}
	return CategoryUnknown
}

var sourceKeywords = []string{
	"no such file",
	"not found",
	"404",
	"unauthorized",
	"401",
	"403",
	"forbidden",
	"access denied",
	"permission",
	"invalid uri",
	"unsupported scheme",
	"malformed",
}

var codecKeywords = []string{
	"codec",
	"decode",
	"decoder",
	"format",
	"negotiation",
	"caps",
	"h264",
	"h265",
	"hevc",
	"vp8",
	"vp9",
	"not negotiated",
	"missing plugin",
	"unsupported media",
}

var networkKeywords = []string{
	"connection",
	"timeout",
	"timed out",
	"unreachable",
	"network",
	"dns",
	"resolve",
	"socket",
	"tcp",
	"tls",
	"reset by peer",
	"could not connect",
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
