package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"tender-response-platform/models"
)

func testPipeline() *Pipeline {
	return &Pipeline{
		config:   testConfig(),
		detector: NewQuestionDetector(),
		sections: NewSectionClassifier(),
	}
}

func TestSegmentHeuristicsOnly(t *testing.T) {
	p := testPipeline()

	text := `1. BACKGROUND
The council is replacing its legacy telephony estate with a cloud platform
serving around two thousand staff across a dozen buildings.

2. QUESTIONS
What is your experience with public sector telephony migrations?
Describe your proposed support model after go-live
`

	snapshot, stageErrors := p.segment(context.Background(), text)

	if len(stageErrors) != 0 {
		t.Fatalf("unexpected stage errors: %+v", stageErrors)
	}
	if len(snapshot.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %d: %+v", len(snapshot.Questions), snapshot.Questions)
	}
	if snapshot.Questions[0].Index != 1 || snapshot.Questions[1].Index != 2 {
		t.Errorf("question indexes not dense: %+v", snapshot.Questions)
	}
	if len(snapshot.Context) < 1 {
		t.Fatalf("expected at least 1 context item, got %+v", snapshot.Context)
	}
	if !strings.Contains(snapshot.Context[0].Text, "legacy telephony estate") {
		t.Errorf("wrong context content: %q", snapshot.Context[0].Text)
	}
}

func TestSegmentShortDocumentWithInlineBackground(t *testing.T) {
	p := testPipeline()

	text := "1. Describe your quality policy.\n2. Do you hold ISO 9001?\n\nBackground: We are seeking a contractor for the refurbishment of our district heating network across three sites."

	snapshot, stageErrors := p.segment(context.Background(), text)

	if len(stageErrors) != 0 {
		t.Fatalf("unexpected stage errors: %+v", stageErrors)
	}
	if len(snapshot.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %d: %+v", len(snapshot.Questions), snapshot.Questions)
	}
	if snapshot.Questions[0].Index != 1 || snapshot.Questions[1].Index != 2 {
		t.Errorf("question indexes not dense: %+v", snapshot.Questions)
	}
	if len(snapshot.Context) < 1 {
		t.Fatalf("expected at least 1 context item for the background passage, got %+v", snapshot.Context)
	}
	if !strings.Contains(snapshot.Context[0].Text, "Background: We are seeking a contractor") {
		t.Errorf("wrong context content: %q", snapshot.Context[0].Text)
	}
}

func TestSegmentFallbackOnUnclassifiableText(t *testing.T) {
	p := testPipeline()

	text := strings.Repeat("plain unstructured prose with nothing resembling structure at all ", 4)
	snapshot, stageErrors := p.segment(context.Background(), text)

	if len(stageErrors) != 1 {
		t.Fatalf("expected a fallback stage error, got %+v", stageErrors)
	}
	if len(snapshot.Context) != 1 {
		t.Fatalf("fallback must yield exactly one context item, got %d", len(snapshot.Context))
	}
	if len(snapshot.Questions) != 0 {
		t.Errorf("no questions expected, got %+v", snapshot.Questions)
	}
}

func TestSegmentFallbackTruncatesToChunkSize(t *testing.T) {
	p := testPipeline()

	text := strings.Repeat("x", 10000)
	snapshot, _ := p.segment(context.Background(), text)

	if len(snapshot.Context) != 1 {
		t.Fatalf("expected one fallback context item, got %d", len(snapshot.Context))
	}
	if got := len(snapshot.Context[0].Text); got > p.config.ChunkSize {
		t.Errorf("fallback context not truncated: %d chars", got)
	}
}

type fakeSummarizer struct {
	fakeCompletionClient
	text  string
	err   error
	calls int
}

func (f *fakeSummarizer) GenerateText(ctx context.Context, system, prompt string) (string, error) {
	f.calls++
	return f.text, f.err
}

func TestSummarizeUsesTextCompletion(t *testing.T) {
	summarizer := &fakeSummarizer{text: "  A telephony replacement tender across twelve buildings.  "}
	p := NewPipeline(testConfig(), nil, nil, summarizer, nil)

	snapshot := &models.SegmentSnapshot{
		Context: []models.TextItem{{Text: "The council is replacing its legacy telephony estate."}},
	}

	got := p.summarize(context.Background(), snapshot)
	if got != "A telephony replacement tender across twelve buildings." {
		t.Errorf("unexpected summary: %q", got)
	}
	if summarizer.calls != 1 {
		t.Errorf("expected 1 completion call, got %d", summarizer.calls)
	}
}

func TestSummarizeSkipsWhenUnavailable(t *testing.T) {
	p := testPipeline()
	snapshot := &models.SegmentSnapshot{
		Context: []models.TextItem{{Text: "Some background text."}},
	}
	if got := p.summarize(context.Background(), snapshot); got != "" {
		t.Errorf("nil summarizer must yield no summary, got %q", got)
	}

	summarizer := &fakeSummarizer{text: "unused"}
	p = NewPipeline(testConfig(), nil, nil, summarizer, nil)
	if got := p.summarize(context.Background(), &models.SegmentSnapshot{}); got != "" {
		t.Errorf("empty context must yield no summary, got %q", got)
	}
	if summarizer.calls != 0 {
		t.Errorf("no completion call expected without context, got %d", summarizer.calls)
	}

	failing := &fakeSummarizer{err: errors.New("service unavailable")}
	p = NewPipeline(testConfig(), nil, nil, failing, nil)
	snapshot = &models.SegmentSnapshot{
		Context: []models.TextItem{{Text: "Some background text."}},
	}
	if got := p.summarize(context.Background(), snapshot); got != "" {
		t.Errorf("failed completion must yield no summary, got %q", got)
	}
}

func TestSnapshotTextFlattensAllCategories(t *testing.T) {
	p := testPipeline()

	text := `What warranty terms do you offer on installed hardware?

REQUIREMENTS
All responses must follow the template provided in appendix two without deviation.
`
	snapshot, _ := p.segment(context.Background(), text)

	flattened := snapshotText(snapshot)
	if !strings.Contains(flattened, "warranty terms") {
		t.Errorf("questions missing from flattened snapshot: %q", flattened)
	}
	if !strings.Contains(flattened, "appendix two") {
		t.Errorf("instructions missing from flattened snapshot: %q", flattened)
	}
}
