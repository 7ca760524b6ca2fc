package services

import (
	"testing"

	"tender-response-platform/models"
)

func TestDetectObviousQuestionMark(t *testing.T) {
	d := NewQuestionDetector()

	questions := d.DetectObvious("Some intro text about the project.\nWhat is your company's annual turnover?\n")

	if len(questions) != 1 {
		t.Fatalf("expected 1 question, got %d", len(questions))
	}
	if questions[0].Confidence != 0.9 {
		t.Errorf("expected confidence 0.9 for direct '?', got %v", questions[0].Confidence)
	}
	if questions[0].Source != models.SourceHeuristic {
		t.Errorf("expected heuristic source, got %q", questions[0].Source)
	}
}

func TestDetectObviousImperativeAndPrefix(t *testing.T) {
	d := NewQuestionDetector()

	text := `Question 3: your approach to risk management
Describe the structure of your delivery team
The contract runs for three years.
- how do you handle personal data`

	questions := d.DetectObvious(text)

	if len(questions) != 3 {
		t.Fatalf("expected 3 questions, got %d: %+v", len(questions), questions)
	}
	for _, q := range questions {
		if q.Confidence != 0.7 {
			t.Errorf("expected confidence 0.7 for %q, got %v", q.Text, q.Confidence)
		}
	}
}

func TestDetectObviousStripsMarkers(t *testing.T) {
	d := NewQuestionDetector()

	questions := d.DetectObvious("2. Do you hold ISO 27001 certification?")

	if len(questions) != 1 {
		t.Fatalf("expected 1 question, got %d", len(questions))
	}
	if questions[0].Text != "Do you hold ISO 27001 certification?" {
		t.Errorf("marker not stripped: %q", questions[0].Text)
	}
}

func TestDetectObviousIgnoresShortAndPlainLines(t *testing.T) {
	d := NewQuestionDetector()

	text := `Why?
This is an ordinary declarative sentence about the tender.
Section 4`

	if questions := d.DetectObvious(text); len(questions) != 0 {
		t.Fatalf("expected no questions, got %d: %+v", len(questions), questions)
	}
}

func TestDetectObviousOrderPreserving(t *testing.T) {
	d := NewQuestionDetector()

	text := `What is your headcount?
Provide a summary of relevant experience
Can you start within thirty days?`

	questions := d.DetectObvious(text)
	if len(questions) != 3 {
		t.Fatalf("expected 3 questions, got %d", len(questions))
	}
	for i, q := range questions {
		if q.Index != i+1 {
			t.Errorf("question %d has index %d", i, q.Index)
		}
	}
	if questions[1].Text != "Provide a summary of relevant experience" {
		t.Errorf("document order not preserved: %q", questions[1].Text)
	}
}
