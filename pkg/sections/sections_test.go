package sections

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"testing"
)

func TestDecompressZdebugPassesThroughUncompressed(t *testing.T) {
	in := []byte{1, 2, 3, 4}
	out, err := decompressZdebug(in)
	if err != nil {
		t.Fatalf("decompressZdebug: %v", err)
	}
	if !bytes.Equal(out, in) {
		t.Fatalf("got %v, want %v (pass-through)", out, in)
	}
}

func TestDecompressZdebugInflatesZlibPayload(t *testing.T) {
	payload := []byte("the quick brown fox jumps over the lazy dog")

	var compressed bytes.Buffer
	w := zlib.NewWriter(&compressed)
	if _, err := w.Write(payload); err != nil {
		t.Fatalf("zlib write: %v", err)
	}
	w.Close()

	var header bytes.Buffer
	header.WriteString("ZLIB")
	lenBuf := make([]byte, 8)
	binary.BigEndian.PutUint64(lenBuf, uint64(len(payload)))
	header.Write(lenBuf)
	header.Write(compressed.Bytes())

	out, err := decompressZdebug(header.Bytes())
	if err != nil {
		t.Fatalf("decompressZdebug: %v", err)
	}
	if !bytes.Equal(out, payload) {
		t.Fatalf("got %q, want %q", out, payload)
	}
}
