package services

import (
	"strings"
	"testing"
)

const sampleDocument = `1. INTRODUCTION
This tender concerns the renewal of the council's network infrastructure across
all municipal buildings, including switches, routers and structured cabling.

2. SUBMISSION REQUIREMENTS
Responses must be submitted electronically as a single PDF no larger than
twenty megabytes, before the deadline stated on the portal.

3. PROJECT SCOPE
The project covers seventeen sites across the borough and is expected to be
delivered over an eighteen month period beginning next spring.
`

func TestClassifyByHeadersSplitsContextAndInstructions(t *testing.T) {
	c := NewSectionClassifier()

	result := c.ClassifyByHeaders(sampleDocument)

	if len(result.Context) != 2 {
		t.Fatalf("expected 2 context items, got %d: %+v", len(result.Context), result.Context)
	}
	if len(result.Instructions) != 1 {
		t.Fatalf("expected 1 instruction item, got %d: %+v", len(result.Instructions), result.Instructions)
	}
	if !strings.Contains(result.Instructions[0].Text, "submitted electronically") {
		t.Errorf("wrong section classified as instructions: %q", result.Instructions[0].Text)
	}
}

func TestClassifyByHeadersSkipsShortSections(t *testing.T) {
	c := NewSectionClassifier()

	result := c.ClassifyByHeaders("BACKGROUND\ntoo short\n")

	if len(result.Context) != 0 || len(result.Instructions) != 0 {
		t.Fatalf("short section should be skipped, got %+v", result)
	}
}

func TestClassifyByHeadersSkipsQuestionSections(t *testing.T) {
	c := NewSectionClassifier()

	text := "EVALUATION CRITERIA\nGiven the scale of this engagement, what discounts can you offer on your standard day rates?\n"
	result := c.ClassifyByHeaders(text)

	if len(result.Instructions) != 0 {
		t.Fatalf("question-ending section should be skipped, got %+v", result.Instructions)
	}
}

func TestClassifyByHeadersInlineKeywordPrefix(t *testing.T) {
	c := NewSectionClassifier()

	text := "Background: We are seeking a contractor for the refurbishment of our district heating network across three sites.\n"
	result := c.ClassifyByHeaders(text)

	if len(result.Context) != 1 {
		t.Fatalf("expected 1 context item from inline header, got %+v", result)
	}
	if !strings.HasPrefix(result.Context[0].Text, "Background: We are seeking") {
		t.Errorf("inline-header body should keep the full line: %q", result.Context[0].Text)
	}

	// A colon prefix outside the keyword sets stays part of the surrounding body.
	plain := "INTRODUCTION\nNote: the figures below are indicative and will be confirmed at contract award stage.\n"
	result = c.ClassifyByHeaders(plain)
	if len(result.Context) != 1 || !strings.Contains(result.Context[0].Text, "Note: the figures") {
		t.Fatalf("non-keyword colon prefix should not split the section, got %+v", result)
	}
}

func TestClassifyByHeadersIgnoresUnmatchedHeaders(t *testing.T) {
	c := NewSectionClassifier()

	text := "MISCELLANEOUS\nThis body text sits under a header matching neither keyword set and is long enough to qualify.\n"
	result := c.ClassifyByHeaders(text)

	if len(result.Context) != 0 || len(result.Instructions) != 0 {
		t.Fatalf("unmatched header should classify nothing, got %+v", result)
	}
}

func TestIsHeaderLineVariants(t *testing.T) {
	cases := []struct {
		line string
		want bool
	}{
		{"1. INTRODUCTION", true},
		{"2.3 Evaluation Criteria", true},
		{"SUBMISSION REQUIREMENTS", true},
		{"Technical Requirements:", true},
		{"----------", true},
		{"Project Scope", true},
		{"This is a normal sentence that carries on for a while without looking like any header.", false},
		{"", false},
	}

	for _, tc := range cases {
		if got := isHeaderLine(tc.line); got != tc.want {
			t.Errorf("isHeaderLine(%q) = %v, want %v", tc.line, got, tc.want)
		}
	}
}
