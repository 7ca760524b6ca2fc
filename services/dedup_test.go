package services

import (
	"strings"
	"testing"

	"tender-response-platform/models"
)

func TestDedupeQuestionsMergesEnumeratedVariants(t *testing.T) {
	candidates := []models.Question{
		{Text: "1. What is your experience?", Source: models.SourceHeuristic, Confidence: 0.9},
		{Text: "What is your experience?", Source: models.SourceAI, Confidence: 0.8},
		{Text: "2) what is your experience?", Source: models.SourceHeuristic, Confidence: 0.9},
	}

	result := DedupeQuestions(candidates)

	if len(result) != 1 {
		t.Fatalf("expected 1 question, got %d", len(result))
	}
	if result[0].Index != 1 {
		t.Errorf("expected index 1, got %d", result[0].Index)
	}
	if result[0].Text != "What is your experience?" {
		t.Errorf("unexpected text: %q", result[0].Text)
	}
	if result[0].Source != models.SourceHeuristic {
		t.Errorf("expected first occurrence kept, got source %q", result[0].Source)
	}
}

func TestDedupeQuestionsReindexesDensely(t *testing.T) {
	candidates := []models.Question{
		{Text: "Q1: Describe your quality assurance process in detail"},
		{Text: "short"},
		{Text: "Question 2: What certifications does your team hold?"},
		{Text: "q.2) What certifications does your team hold?"},
		{Text: "3. Provide three references from previous clients"},
	}

	result := DedupeQuestions(candidates)

	if len(result) != 3 {
		t.Fatalf("expected 3 questions, got %d", len(result))
	}
	for i, q := range result {
		if q.Index != i+1 {
			t.Errorf("question %d has index %d, want %d", i, q.Index, i+1)
		}
	}
}

func TestDedupeQuestionsStripsStackedMarkers(t *testing.T) {
	result := DedupeQuestions([]models.Question{
		{Text: "  1)  Q:  (a) Describe   your   approach to data protection"},
	})

	if len(result) != 1 {
		t.Fatalf("expected 1 question, got %d", len(result))
	}
	if result[0].Text != "Describe your approach to data protection" {
		t.Errorf("markers not fully stripped: %q", result[0].Text)
	}
}

func TestDedupeQuestionsDiscardsShortCandidates(t *testing.T) {
	result := DedupeQuestions([]models.Question{
		{Text: "1. Why?"},
		{Text: "- yes"},
	})

	if len(result) != 0 {
		t.Fatalf("expected 0 questions, got %d", len(result))
	}
}

func TestDedupeTextItemsPrefixKey(t *testing.T) {
	long := strings.Repeat("the project covers network infrastructure ", 10)
	items := []models.TextItem{
		{Text: long + "tail one"},
		{Text: long + "tail two"},
		{Text: "a distinct context passage about delivery timelines"},
		{Text: "too short"},
	}

	result := DedupeTextItems(items)

	// The two long items share a 100-char prefix and collapse to one.
	if len(result) != 2 {
		t.Fatalf("expected 2 items, got %d", len(result))
	}
}
