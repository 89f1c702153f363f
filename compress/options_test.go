package compress

import "testing"

func TestParseDefault(t *testing.T) {
	opts, err := Parse("")
	if err != nil {
		t.Fatal(err)
	}
	if opts.Algorithm != Brotli || opts.Level != defaultBrotliLevel {
		t.Fatalf("Parse(\"\") = %+v, want default Brotli", opts)
	}
}

func TestParseUncompressed(t *testing.T) {
	opts, err := Parse("uncompressed")
	if err != nil {
		t.Fatal(err)
	}
	if opts.Algorithm != None {
		t.Fatalf("Parse(uncompressed) = %+v", opts)
	}
}

func TestParseBrotliLevel(t *testing.T) {
	opts, err := Parse("brotli:5")
	if err != nil {
		t.Fatal(err)
	}
	if opts.Algorithm != Brotli || opts.Level != 5 {
		t.Fatalf("Parse(brotli:5) = %+v", opts)
	}
}

func TestParseZstdWithWindowLog(t *testing.T) {
	opts, err := Parse("zstd:19,window_log:20")
	if err != nil {
		t.Fatal(err)
	}
	if opts.Algorithm != Zstd || opts.Level != 19 || opts.WindowLog != 20 {
		t.Fatalf("Parse(zstd:19,window_log:20) = %+v", opts)
	}
}

func TestParseWindowLogAuto(t *testing.T) {
	opts, err := Parse("brotli,window_log:auto")
	if err != nil {
		t.Fatal(err)
	}
	if opts.WindowLog != DefaultWindowLog {
		t.Fatalf("window_log:auto did not reset to default: %+v", opts)
	}
}

func TestParseInvalidLevel(t *testing.T) {
	if _, err := Parse("brotli:99"); err == nil {
		t.Fatalf("expected an error for out-of-range brotli level")
	}
}

func TestParseUnknownOption(t *testing.T) {
	if _, err := Parse("snappy"); err == nil {
		t.Fatalf("expected an error for an unknown option")
	}
}

func TestParseWindowLogUncompressedRejected(t *testing.T) {
	if _, err := Parse("uncompressed,window_log:20"); err == nil {
		t.Fatalf("expected window_log to be rejected for uncompressed")
	}
}

func TestStringRoundTrip(t *testing.T) {
	opts, err := Parse("zstd:12,window_log:15")
	if err != nil {
		t.Fatal(err)
	}
	again, err := Parse(opts.String())
	if err != nil {
		t.Fatal(err)
	}
	if again != opts {
		t.Fatalf("round trip mismatch: %+v != %+v", again, opts)
	}
}
