package rdb

import "testing"

func TestLZFDecompressLiteralRun(t *testing.T) {
	t.Parallel()
	// ctrl byte < 32 means "ctrl+1 literal bytes follow", no back-references.
	in := append([]byte{4}, []byte("hello")...)
	out, err := lzfDecompress(in, 5)
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != "hello" {
		t.Fatalf("got %q", out)
	}
}

func TestLZFDecompressBackReference(t *testing.T) {
	t.Parallel()
	// "ababab": literal "ab" (ctrl=1, 2 bytes), then a back-reference of
	// length 4 at offset 2 (copies "abab" from the 2 bytes just written).
	// ctrl = (length-2)<<5 | high bits of offset; offset-1 = 1 (0-based
	// distance 2 back from the copy point encodes as offset field 1).
	in := []byte{1, 'a', 'b', byte(2<<5) | 0, 1}
	out, err := lzfDecompress(in, 6)
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != "ababab" {
		t.Fatalf("got %q", out)
	}
}

func TestLZFDecompressRejectsTruncatedInput(t *testing.T) {
	t.Parallel()
	if _, err := lzfDecompress([]byte{10, 'a'}, 11); err == nil {
		t.Fatal("expected truncation error")
	}
}
