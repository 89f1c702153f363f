// Package compress implements the chunk-level compression facade (none,
// Brotli, or Zstd behind one interface) and its text options grammar (spec
// §5), grounded on pebble's sstable/block compressor.go Compressor facade
// and internal/compression's per-algorithm files, generalized from
// block-level compression to whole chunk streams.
package compress

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// Algorithm selects the compression method used for a chunk's data
// streams.
type Algorithm int

const (
	// None stores data uncompressed.
	None Algorithm = iota
	// Brotli is the default algorithm, favoring density over speed.
	Brotli
	// Zstd favors speed over density relative to Brotli at a comparable
	// level.
	Zstd
)

func (a Algorithm) String() string {
	switch a {
	case None:
		return "uncompressed"
	case Brotli:
		return "brotli"
	case Zstd:
		return "zstd"
	default:
		return "unknown"
	}
}

const (
	minBrotliLevel     = 0
	maxBrotliLevel     = 11
	defaultBrotliLevel = 9

	minZstdLevel     = 1
	maxZstdLevel     = 22
	defaultZstdLevel = 9

	// DefaultWindowLog means "use the algorithm's own default": 22 for
	// Brotli. The Zstd backends do not set a window log at all, so for Zstd
	// neither this nor an explicit WindowLog has any effect; the library's
	// level-based default window applies.
	DefaultWindowLog = -1
	minWindowLog     = 10
	maxWindowLog     = 31
)

// Options holds a parsed compression configuration: which algorithm, at
// what level, and with what LZ77 window size.
type Options struct {
	Algorithm  Algorithm
	Level      int
	WindowLog  int
}

// Default matches riegeli's own CompressorOptions default: Brotli at its
// default level, with the default window log.
func Default() Options {
	return Options{Algorithm: Brotli, Level: defaultBrotliLevel, WindowLog: DefaultWindowLog}
}

// Parse decodes a text options string of the grammar:
//
//	options ::= option? ("," option?)*
//	option ::=
//	  "uncompressed" |
//	  "brotli" (":" brotli_level)? |
//	  "zstd" (":" zstd_level)? |
//	  "window_log" ":" window_log
//	brotli_level ::= integer 0..11 (default 9)
//	zstd_level   ::= integer 1..22 (default 9)
//	window_log   ::= "auto" or integer 10..31
func Parse(text string) (Options, error) {
	opts := Default()
	if text == "" {
		return opts, nil
	}
	for _, part := range strings.Split(text, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, arg, hasArg := part, "", false
		if i := strings.IndexByte(part, ':'); i >= 0 {
			name, arg, hasArg = part[:i], part[i+1:], true
		}
		switch name {
		case "uncompressed":
			if hasArg {
				return Options{}, errors.Newf("riegeli: compression option %q does not take a value", name)
			}
			opts.Algorithm = None
			opts.Level = 0
		case "brotli":
			level := defaultBrotliLevel
			if hasArg {
				v, err := strconv.Atoi(arg)
				if err != nil || v < minBrotliLevel || v > maxBrotliLevel {
					return Options{}, errors.Newf("riegeli: invalid brotli level %q, must be %d..%d", arg, minBrotliLevel, maxBrotliLevel)
				}
				level = v
			}
			opts.Algorithm = Brotli
			opts.Level = level
		case "zstd":
			level := defaultZstdLevel
			if hasArg {
				v, err := strconv.Atoi(arg)
				if err != nil || v < minZstdLevel || v > maxZstdLevel {
					return Options{}, errors.Newf("riegeli: invalid zstd level %q, must be %d..%d", arg, minZstdLevel, maxZstdLevel)
				}
				level = v
			}
			opts.Algorithm = Zstd
			opts.Level = level
		case "window_log":
			if !hasArg {
				return Options{}, errors.Newf("riegeli: window_log option requires a value")
			}
			if arg == "auto" {
				opts.WindowLog = DefaultWindowLog
				continue
			}
			v, err := strconv.Atoi(arg)
			if err != nil || v < minWindowLog || v > maxWindowLog {
				return Options{}, errors.Newf("riegeli: invalid window_log %q, must be %q or %d..%d", arg, "auto", minWindowLog, maxWindowLog)
			}
			opts.WindowLog = v
		default:
			return Options{}, errors.Newf("riegeli: unknown compression option %q", name)
		}
	}
	if opts.WindowLog != DefaultWindowLog && opts.Algorithm == None {
		return Options{}, errors.Newf("riegeli: window_log is not applicable to uncompressed data")
	}
	return opts, nil
}

// String renders Options back into the text grammar Parse accepts.
func (o Options) String() string {
	var b strings.Builder
	switch o.Algorithm {
	case None:
		b.WriteString("uncompressed")
	case Brotli:
		b.WriteString("brotli:")
		b.WriteString(strconv.Itoa(o.Level))
	case Zstd:
		b.WriteString("zstd:")
		b.WriteString(strconv.Itoa(o.Level))
	}
	if o.WindowLog != DefaultWindowLog {
		b.WriteString(",window_log:")
		b.WriteString(strconv.Itoa(o.WindowLog))
	}
	return b.String()
}

// effectiveWindowLog translates WindowLog into the value to configure the
// underlying library with, applying each algorithm's own default.
func (o Options) effectiveWindowLog() int {
	if o.WindowLog != DefaultWindowLog {
		return o.WindowLog
	}
	switch o.Algorithm {
	case Brotli:
		return 22
	default:
		return DefaultWindowLog
	}
}
