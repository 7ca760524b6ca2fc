package utils

import (
	"strings"
	"testing"
)

func TestCompressTextRoundTrip(t *testing.T) {
	original := strings.Repeat("What is your experience with municipal network upgrades? ", 50)

	compressed, algorithm, err := CompressText(original)
	if err != nil {
		t.Fatalf("compress failed: %v", err)
	}
	if algorithm != CompressionGzip {
		t.Fatalf("expected gzip for large text, got %q", algorithm)
	}
	if len(compressed) >= len(original) {
		t.Errorf("repetitive text should compress smaller: %d >= %d", len(compressed), len(original))
	}

	restored, err := DecompressText(compressed, algorithm)
	if err != nil {
		t.Fatalf("decompress failed: %v", err)
	}
	if restored != original {
		t.Error("round trip altered the text")
	}
}

func TestCompressTextSkipsSmallPayloads(t *testing.T) {
	small := "short snapshot"

	compressed, algorithm, err := CompressText(small)
	if err != nil {
		t.Fatalf("compress failed: %v", err)
	}
	if algorithm != CompressionNone {
		t.Fatalf("small text should not be compressed, got %q", algorithm)
	}

	restored, err := DecompressText(compressed, algorithm)
	if err != nil {
		t.Fatalf("decompress failed: %v", err)
	}
	if restored != small {
		t.Errorf("round trip altered the text: %q", restored)
	}
}

func TestDecompressDataRejectsGarbage(t *testing.T) {
	if _, err := DecompressData([]byte("not gzip"), CompressionGzip); err == nil {
		t.Error("expected error for invalid gzip input")
	}
	if _, err := DecompressData([]byte("not zlib"), CompressionZlib); err == nil {
		t.Error("expected error for invalid zlib input")
	}
}
