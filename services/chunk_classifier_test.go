package services

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestSplitChunksOverlap(t *testing.T) {
	text := strings.Repeat("a", 6000)

	chunks := SplitChunks(text, 2500, 500)

	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if len(chunks[0]) != 2500 || len(chunks[1]) != 2500 {
		t.Errorf("full chunks should be 2500 chars, got %d and %d", len(chunks[0]), len(chunks[1]))
	}
	// Third chunk starts at 4000 and runs to the end.
	if len(chunks[2]) != 2000 {
		t.Errorf("final chunk should be 2000 chars, got %d", len(chunks[2]))
	}
}

func TestSplitChunksRuneSafe(t *testing.T) {
	text := strings.Repeat("ü", 100)

	chunks := SplitChunks(text, 30, 10)

	for i, chunk := range chunks {
		if strings.ContainsRune(chunk, '�') {
			t.Errorf("chunk %d contains replacement character", i)
		}
	}
	if len([]rune(chunks[0])) != 30 {
		t.Errorf("chunk boundary not rune-aligned: %d runes", len([]rune(chunks[0])))
	}
}

func TestSplitChunksShortInput(t *testing.T) {
	chunks := SplitChunks("short document", 2500, 500)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != "short document" {
		t.Errorf("unexpected chunk content: %q", chunks[0])
	}
}

func TestParseChunkClassificationFenced(t *testing.T) {
	raw := "```json\n{\"questions\": [\"What is your lead time?\"], \"context\": [], \"instructions\": []}\n```"

	result, err := ParseChunkClassification(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Questions) != 1 || result.Questions[0] != "What is your lead time?" {
		t.Errorf("unexpected questions: %+v", result.Questions)
	}
}

func TestParseChunkClassificationRejectsMalformed(t *testing.T) {
	if _, err := ParseChunkClassification("not json at all"); err == nil {
		t.Error("expected error for non-JSON input")
	}
	if _, err := ParseChunkClassification(`{"unrelated": true}`); err == nil {
		t.Error("expected error when no expected key is present")
	}
}

func TestClassifyChunkErrorCarriesOrdinal(t *testing.T) {
	client := &fakeCompletionClient{errs: []error{errors.New("upstream unavailable"), errors.New("upstream unavailable")}}
	c := NewChunkClassifier(testConfig(), client)

	_, err := c.classifyChunk(context.Background(), 3, "some chunk text")
	if err == nil {
		t.Fatal("expected an error from a failing client")
	}

	var classErr *ClassificationError
	if !errors.As(err, &classErr) {
		t.Fatalf("expected a ClassificationError, got %T: %v", err, err)
	}
	if classErr.Chunk != 3 {
		t.Errorf("expected chunk ordinal 3, got %d", classErr.Chunk)
	}
	if !strings.Contains(classErr.Error(), "chunk 3") {
		t.Errorf("ordinal missing from message: %q", classErr.Error())
	}

	_, err = c.classifyChunk(context.Background(), 1, "another chunk")
	if errors.As(err, &classErr) && classErr.Chunk != 1 {
		t.Errorf("expected chunk ordinal 1, got %d", classErr.Chunk)
	}
}

func TestParseChunkClassificationAcceptsPartialKeys(t *testing.T) {
	result, err := ParseChunkClassification(`{"questions": [], "context": ["some background"], "instructions": []}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Context) != 1 {
		t.Errorf("unexpected context: %+v", result.Context)
	}
}
