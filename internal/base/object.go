// Package base provides the lifecycle and error-reporting primitives shared
// by every stream and codec in the riegeli chunk encoding core: readers,
// writers, and the simple/transpose encoders and decoders all embed Object to
// get consistent healthy/closed/failed bookkeeping.
package base

import (
	"sync/atomic"

	"github.com/cockroachdb/errors"
)

// status is the tri-state lifecycle of an Object: healthy, closed
// successfully, or failed with a message (which implies closed once Close
// has additionally been called on it).
type status int32

const (
	statusHealthy status = iota
	statusClosedOK
	statusFailed
)

// Object is embedded by every stream and codec type in this module to share
// open/closed/failed bookkeeping. It is not safe for concurrent mutation by
// multiple goroutines, but healthy() and Message() may be read from another
// goroutine while the owning goroutine continues to operate on the Object:
// the status word is accessed with atomic loads/stores using acquire/release
// ordering, mirroring riegeli's tagged status pointer (see
// riegeli/base/object.cc) using a sum type instead of pointer tagging, which
// Go's lack of aligned-pointer tricks makes the natural translation.
type Object struct {
	st      atomic.Int32
	failure atomic.Pointer[string]
	closed  atomic.Bool
}

// Healthy reports whether the Object has not failed. A closed object that
// never failed is still considered healthy in the sense that no error
// occurred, but most operations on a closed Object should not be attempted;
// callers should check Closed() too where relevant.
func (o *Object) Healthy() bool {
	return status(o.st.Load()) != statusFailed
}

// Closed reports whether Close has been called.
func (o *Object) Closed() bool {
	return o.closed.Load()
}

// Message returns a human-readable description of the Object's state:
// "Healthy", "Closed", or the failure message passed to Fail.
func (o *Object) Message() string {
	switch status(o.st.Load()) {
	case statusHealthy:
		return "Healthy"
	case statusClosedOK:
		return "Closed"
	default:
		if m := o.failure.Load(); m != nil {
			return *m
		}
		return "Healthy"
	}
}

// Fail transitions the Object to the failed state with the given message.
// It is a no-op (and returns false, as all Fail variants do) if the Object
// already failed: the first failure message wins, matching riegeli's
// compare-exchange-based Object::Fail.
//
// Fail always returns false so that call sites can write
// `return o.Fail("...")` from a function returning (bool) or (error) by
// pairing it with Err().
func (o *Object) Fail(format string, args ...interface{}) bool {
	if status(o.st.Load()) != statusHealthy {
		return false
	}
	msg := format
	if len(args) > 0 {
		msg = errors.Newf(format, args...).Error()
	}
	// The message is stored before the failed status is published, so an
	// observer that sees statusFailed also sees the message.
	o.failure.Store(&msg)
	o.st.Store(int32(statusFailed))
	return false
}

// FailWith propagates the failure of another Object, embedding its message.
// Precondition: !src.Healthy().
func (o *Object) FailWith(context string, src *Object) bool {
	if src.Healthy() {
		panic(errors.AssertionFailedf("FailWith: source object is healthy"))
	}
	if context == "" {
		return o.Fail(src.Message())
	}
	return o.Fail("%s: %s", context, src.Message())
}

// Err returns an error wrapping Message() if the Object has failed, or nil
// otherwise. This is the usual bridge between the healthy()/Message() style
// used internally and idiomatic Go error returns at package boundaries.
func (o *Object) Err() error {
	if !o.Healthy() {
		return errors.New(o.Message())
	}
	return nil
}

// MarkHealthy resets the Object to the healthy, open state. Used by Reset()
// methods that recycle an encoder or decoder for a new chunk.
func (o *Object) MarkHealthy() {
	o.st.Store(int32(statusHealthy))
	o.failure.Store(nil)
	o.closed.Store(false)
}

// Close runs done (if non-nil) exactly once and transitions the Object to
// closed. It mirrors riegeli's Object::Close fallthrough: a failed-but-not-
// yet-closed object still runs done before being marked closed, but a
// healthy object that fails inside done is recorded as failed rather than
// healthy. Close is idempotent: the second and later calls are no-ops and
// return the same value as the first call.
func (o *Object) Close(done func()) bool {
	if o.closed.Swap(true) {
		return status(o.st.Load()) != statusFailed
	}
	if done != nil {
		done()
	}
	if status(o.st.Load()) == statusHealthy {
		o.st.CompareAndSwap(int32(statusHealthy), int32(statusClosedOK))
	}
	return status(o.st.Load()) != statusFailed
}
