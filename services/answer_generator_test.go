package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"tender-response-platform/internal/config"
	"tender-response-platform/models"
)

type fakeCompletionClient struct {
	responses []string
	errs      []error
	calls     int
}

func (f *fakeCompletionClient) GenerateJSON(ctx context.Context, system, prompt string) (string, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return "", errors.New("no scripted response")
}

func (f *fakeCompletionClient) ModelName() string { return "fake-model" }

type fakeResponseStore struct {
	responses map[string]*models.TenderResponse
}

func newFakeResponseStore() *fakeResponseStore {
	return &fakeResponseStore{responses: make(map[string]*models.TenderResponse)}
}

func (s *fakeResponseStore) UpsertResponse(ctx context.Context, r *models.TenderResponse) error {
	key := fmt.Sprintf("%s:%d", r.TenderID, r.QuestionIndex)
	s.responses[key] = r
	return nil
}

func generatorConfig() *config.Config {
	return &config.Config{
		AnswerBatchSize: 5,
		MaxContextWords: 1000,
	}
}

func scriptedBatch(questions []models.Question) string {
	answers := make([]batchAnswer, len(questions))
	for i, q := range questions {
		answers[i] = batchAnswer{Question: q.Text, Answer: "Answer for: " + q.Text}
	}
	body, _ := json.Marshal(answers)
	return string(body)
}

func testQuestions(n int) []models.Question {
	questions := make([]models.Question, n)
	for i := range questions {
		questions[i] = models.Question{
			Text:  fmt.Sprintf("What is your policy regarding topic number %d?", i+1),
			Index: i + 1,
		}
	}
	return questions
}

func TestGenerateAllPersistsByUpsertKey(t *testing.T) {
	questions := testQuestions(2)
	client := &fakeCompletionClient{responses: []string{scriptedBatch(questions)}}
	store := newFakeResponseStore()
	g := &AnswerGenerator{config: generatorConfig(), client: client, store: store}

	outcome := g.GenerateAll(context.Background(), "tender-1", questions,
		BuildEnrichment(models.UnknownCompanyProfile("co-1"), nil, nil), nil)

	if outcome.TotalAnswers != 2 {
		t.Fatalf("expected 2 answers, got %d", outcome.TotalAnswers)
	}
	if outcome.Batches != 1 {
		t.Errorf("expected 1 batch, got %d", outcome.Batches)
	}
	for i := 1; i <= 2; i++ {
		r, ok := store.responses[fmt.Sprintf("tender-1:%d", i)]
		if !ok {
			t.Fatalf("missing response for question %d", i)
		}
		if r.Approved {
			t.Errorf("question %d: approved must be false on generation", i)
		}
		if r.Model != "fake-model" {
			t.Errorf("question %d: unexpected model %q", i, r.Model)
		}
		if r.ResponseLength != len(r.Answer) {
			t.Errorf("question %d: response length mismatch", i)
		}
	}
}

func TestGenerateAllBatching(t *testing.T) {
	questions := testQuestions(7)
	client := &fakeCompletionClient{responses: []string{
		scriptedBatch(questions[:5]),
		scriptedBatch(questions[5:]),
	}}
	store := newFakeResponseStore()
	g := &AnswerGenerator{config: generatorConfig(), client: client, store: store}

	var progressCalls []int
	outcome := g.GenerateAll(context.Background(), "tender-2", questions,
		BuildEnrichment(models.UnknownCompanyProfile("co-1"), nil, nil),
		func(answered, total int) {
			progressCalls = append(progressCalls, answered)
		})

	if outcome.Batches != 2 {
		t.Fatalf("expected 2 batches, got %d", outcome.Batches)
	}
	if outcome.TotalAnswers != 7 {
		t.Errorf("expected 7 answers, got %d", outcome.TotalAnswers)
	}
	if len(progressCalls) != 2 || progressCalls[0] != 5 || progressCalls[1] != 7 {
		t.Errorf("unexpected progress reporting: %v", progressCalls)
	}
}

func TestGenerateAllFallbackAfterRepeatedFailure(t *testing.T) {
	questions := testQuestions(2)
	client := &fakeCompletionClient{errs: []error{
		errors.New("service unavailable"),
		errors.New("service unavailable"),
	}}
	store := newFakeResponseStore()
	g := &AnswerGenerator{config: generatorConfig(), client: client, store: store}

	outcome := g.GenerateAll(context.Background(), "tender-3", questions,
		BuildEnrichment(models.UnknownCompanyProfile("co-1"), nil, nil), nil)

	if client.calls != 2 {
		t.Errorf("expected exactly 2 attempts (1 retry), got %d", client.calls)
	}
	if outcome.FallbackAnswers != 2 {
		t.Errorf("expected 2 fallback answers, got %d", outcome.FallbackAnswers)
	}
	if outcome.TotalAnswers != 2 {
		t.Errorf("fallback answers must still be persisted, got %d", outcome.TotalAnswers)
	}
	if len(outcome.Errors) != 1 {
		t.Errorf("expected 1 stage error, got %d", len(outcome.Errors))
	}

	r := store.responses["tender-3:1"]
	if r == nil {
		t.Fatal("fallback answer not persisted")
	}
	if !strings.Contains(r.Answer, "unable to provide") {
		t.Errorf("fallback answer should state inability: %q", r.Answer)
	}
}

func TestGenerateBatchErrorCarriesBatchOrdinal(t *testing.T) {
	client := &fakeCompletionClient{errs: []error{
		errors.New("service unavailable"),
		errors.New("service unavailable"),
	}}
	g := &AnswerGenerator{config: generatorConfig(), client: client}

	// First index an exact multiple of the batch size, where a
	// recomputed ordinal would come out wrong.
	batch := []models.Question{{Text: "What accreditations do your engineers hold?", Index: 5}}

	_, err := g.generateBatch(context.Background(), 1,
		batch, BuildEnrichment(models.UnknownCompanyProfile("co-1"), nil, nil))
	if err == nil {
		t.Fatal("expected an error from a failing client")
	}

	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("expected a GenerationError, got %T: %v", err, err)
	}
	if genErr.Batch != 1 {
		t.Errorf("expected batch ordinal 1, got %d", genErr.Batch)
	}
}

func TestGenerateAllNilClientUsesFallback(t *testing.T) {
	questions := testQuestions(1)
	store := newFakeResponseStore()
	g := &AnswerGenerator{config: generatorConfig(), client: nil, store: store}

	outcome := g.GenerateAll(context.Background(), "tender-4", questions,
		BuildEnrichment(models.UnknownCompanyProfile("co-1"), nil, nil), nil)

	if outcome.TotalAnswers != 1 || outcome.FallbackAnswers != 1 {
		t.Fatalf("expected 1 persisted fallback answer, got %+v", outcome)
	}
	if store.responses["tender-4:1"].Model != "fallback" {
		t.Errorf("unexpected model: %q", store.responses["tender-4:1"].Model)
	}
}

func TestBuildPromptTruncatesContext(t *testing.T) {
	g := &AnswerGenerator{config: generatorConfig()}

	longContext := []models.TextItem{{Text: strings.Repeat("background word ", 800)}}
	enrichment := BuildEnrichment(models.UnknownCompanyProfile("co-1"), nil,
		&models.SegmentSnapshot{Context: longContext})

	prompt := g.buildPrompt(testQuestions(1), enrichment)

	if !strings.Contains(prompt, contextTruncationMarker) {
		t.Error("truncated context must carry the truncation marker")
	}
	if got := len(strings.Fields(prompt)); got > 1200 {
		t.Errorf("prompt not truncated, has %d words", got)
	}
}

func TestBuildPromptKeepsShortContextUnmarked(t *testing.T) {
	g := &AnswerGenerator{config: generatorConfig()}

	enrichment := BuildEnrichment(models.UnknownCompanyProfile("co-1"), nil,
		&models.SegmentSnapshot{Context: []models.TextItem{{Text: "a short background passage"}}})

	prompt := g.buildPrompt(testQuestions(1), enrichment)

	if strings.Contains(prompt, contextTruncationMarker) {
		t.Error("short context must not carry the truncation marker")
	}
}

func TestBuildPromptCarriesProfileSentinels(t *testing.T) {
	g := &AnswerGenerator{config: generatorConfig()}

	prompt := g.buildPrompt(testQuestions(1),
		BuildEnrichment(models.UnknownCompanyProfile("co-1"), nil, nil))

	if !strings.Contains(prompt, "Industry: "+models.NotAvailable) {
		t.Error("missing profile fields must appear as N/A, not be omitted")
	}
}

func TestBuildPromptIncludesInstructionsVerbatim(t *testing.T) {
	g := &AnswerGenerator{config: generatorConfig()}

	instruction := "Responses exceeding ten pages will be disqualified."
	enrichment := BuildEnrichment(models.UnknownCompanyProfile("co-1"), nil,
		&models.SegmentSnapshot{Instructions: []models.TextItem{{Text: instruction}}})

	prompt := g.buildPrompt(testQuestions(1), enrichment)

	if !strings.Contains(prompt, instruction) {
		t.Error("instructions must appear verbatim in the prompt")
	}
}

func TestMatchAnswersOutOfOrder(t *testing.T) {
	batch := []models.Question{
		{Text: "What is your turnover?", Index: 1},
		{Text: "Describe your team structure", Index: 2},
	}
	answers := []batchAnswer{
		{Question: "Describe your team structure", Answer: "structure answer"},
		{Question: "What is your turnover?", Answer: "turnover answer"},
	}

	matched := matchAnswers(batch, answers)

	if matched[1] != "turnover answer" || matched[2] != "structure answer" {
		t.Errorf("out-of-order answers not matched by text: %v", matched)
	}
}
