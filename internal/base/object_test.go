package base

import "testing"

func TestObjectHealthyByDefault(t *testing.T) {
	var o Object
	if !o.Healthy() {
		t.Fatalf("new Object should be healthy")
	}
	if o.Message() != "Healthy" {
		t.Fatalf("Message() = %q, want %q", o.Message(), "Healthy")
	}
}

func TestObjectFailSticky(t *testing.T) {
	var o Object
	o.Fail("boom %d", 1)
	if o.Healthy() {
		t.Fatalf("object should be unhealthy after Fail")
	}
	if got, want := o.Message(), "boom 1"; got != want {
		t.Fatalf("Message() = %q, want %q", got, want)
	}
	// Second failure does not overwrite the first message.
	o.Fail("boom %d", 2)
	if got, want := o.Message(), "boom 1"; got != want {
		t.Fatalf("Message() = %q, want %q (first failure should win)", got, want)
	}
}

func TestObjectCloseIdempotent(t *testing.T) {
	var o Object
	calls := 0
	done := func() { calls++ }
	if ok := o.Close(done); !ok {
		t.Fatalf("first Close of healthy object should return true")
	}
	if ok := o.Close(done); !ok {
		t.Fatalf("second Close should return the same value as the first (true)")
	}
	if calls != 1 {
		t.Fatalf("done callback should run exactly once, ran %d times", calls)
	}
	if !o.Closed() {
		t.Fatalf("Closed() should be true after Close")
	}
}

func TestObjectCloseAfterFail(t *testing.T) {
	var o Object
	o.Fail("oops")
	if ok := o.Close(nil); ok {
		t.Fatalf("Close of failed object should return false")
	}
	if ok := o.Close(nil); ok {
		t.Fatalf("second Close of failed object should still return false")
	}
}

func TestObjectFailWithPropagatesMessage(t *testing.T) {
	var src Object
	src.Fail("inner failure")

	var dst Object
	dst.FailWith("outer", &src)
	if got, want := dst.Message(), "outer: inner failure"; got != want {
		t.Fatalf("Message() = %q, want %q", got, want)
	}
}

func TestObjectMarkHealthyResets(t *testing.T) {
	var o Object
	o.Fail("boom")
	o.MarkHealthy()
	if !o.Healthy() {
		t.Fatalf("object should be healthy after MarkHealthy")
	}
	if o.Closed() {
		t.Fatalf("object should not be closed after MarkHealthy")
	}
}

func TestObjectErr(t *testing.T) {
	var o Object
	if err := o.Err(); err != nil {
		t.Fatalf("Err() on healthy object = %v, want nil", err)
	}
	o.Fail("broke")
	if err := o.Err(); err == nil || err.Error() != "broke" {
		t.Fatalf("Err() = %v, want error \"broke\"", err)
	}
}
