package base

import "github.com/cockroachdb/errors"

// CorruptionErrorf reports malformed input detected while decoding a chunk:
// a truncated stream, an invalid varint, an out-of-range buffer index, a
// state machine with an implicit loop, non-monotonic limits, or a
// sizes/values length mismatch (spec §7, "Malformed input").
func CorruptionErrorf(format string, args ...interface{}) error {
	return errors.Newf("riegeli: corrupt chunk: "+format, args...)
}

// LimitErrorf reports a resource-limit violation: record count overflow,
// writer position overflow, or decoded size overflow (spec §7,
// "Resource limit").
func LimitErrorf(format string, args ...interface{}) error {
	return errors.Newf("riegeli: "+format, args...)
}
