package services

import (
	"regexp"
	"strings"

	"tender-response-platform/models"
)

// SectionClassifier splits a document into header-delimited sections and
// sorts each one into context or instructions by keyword matching against
// its header. Deterministic, runs before any AI pass.
type SectionClassifier struct{}

func NewSectionClassifier() *SectionClassifier {
	return &SectionClassifier{}
}

// SectionResult is the output of header-driven classification.
type SectionResult struct {
	Context      []models.TextItem
	Instructions []models.TextItem
}

var instructionKeywords = []string{
	"requirement", "submission", "submit", "terms", "format", "deadline",
	"evaluation", "criteria", "compliance", "mandatory", "must", "should",
	"instruction", "condition",
}

var contextKeywords = []string{
	"introduction", "background", "objectives", "objective", "scope",
	"overview", "purpose", "technical", "specification", "description",
	"about",
}

const minSectionChars = 50

var (
	numberedHeaderRe = regexp.MustCompile(`^\s*\d+(?:\.\d+)*[\.\)]?\s+\S`)
	delimiterLineRe  = regexp.MustCompile(`^\s*[-=_*#]{3,}\s*$`)
	titleColonRe     = regexp.MustCompile(`^[A-Z][A-Za-z0-9 ,&/\-]{2,60}:\s*$`)
	inlineHeaderRe   = regexp.MustCompile(`^([A-Z][A-Za-z0-9 ,&/\-]{2,40}):\s+\S`)
)

// ClassifyByHeaders splits text into sections and assigns each body to
// context or instructions based on its header. Sections under 50 characters
// or ending in '?' are skipped.
func (c *SectionClassifier) ClassifyByHeaders(text string) *SectionResult {
	result := &SectionResult{}

	sections := splitSections(text)
	for _, s := range sections {
		body := strings.TrimSpace(s.body)
		if len(body) < minSectionChars || strings.HasSuffix(body, "?") {
			continue
		}

		item := models.TextItem{
			Text:       body,
			Source:     models.SourceRules,
			Confidence: 0.8,
		}

		switch classifyHeader(s.header) {
		case "instructions":
			result.Instructions = append(result.Instructions, item)
		case "context":
			result.Context = append(result.Context, item)
		}
	}

	return result
}

type section struct {
	header string
	body   string
}

// splitSections walks the document line by line, starting a new section at
// every detected header.
func splitSections(text string) []section {
	var sections []section
	current := section{}
	var bodyLines []string

	flush := func() {
		current.body = strings.Join(bodyLines, "\n")
		if current.header != "" || strings.TrimSpace(current.body) != "" {
			sections = append(sections, current)
		}
		bodyLines = nil
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if isHeaderLine(trimmed) {
			flush()
			current = section{header: trimmed}
			continue
		}
		// A "Background: body text..." line carries its header inline. Only a
		// prefix matching a known category keyword starts a section, so prose
		// like "Note: ..." stays in the surrounding body.
		if m := inlineHeaderRe.FindStringSubmatch(trimmed); m != nil && classifyHeader(m[1]) != "" {
			flush()
			current = section{header: m[1]}
			bodyLines = append(bodyLines, trimmed)
			continue
		}
		bodyLines = append(bodyLines, line)
	}
	flush()

	return sections
}

func isHeaderLine(line string) bool {
	if line == "" || len(line) > 80 {
		return false
	}
	if delimiterLineRe.MatchString(line) {
		return true
	}
	if numberedHeaderRe.MatchString(line) && len(line) < 70 && !strings.HasSuffix(line, "?") {
		return true
	}
	if titleColonRe.MatchString(line) {
		return true
	}
	if isAllCaps(line) {
		return true
	}
	// Short title-case line without terminal punctuation.
	if len(line) < 50 && isTitleCase(line) && !strings.ContainsAny(string(line[len(line)-1]), ".?!,;") {
		return true
	}
	return false
}

func isAllCaps(line string) bool {
	letters := 0
	for _, r := range line {
		if r >= 'a' && r <= 'z' {
			return false
		}
		if r >= 'A' && r <= 'Z' {
			letters++
		}
	}
	return letters >= 3
}

func isTitleCase(line string) bool {
	words := strings.Fields(line)
	if len(words) == 0 || len(words) > 6 {
		return false
	}
	for _, w := range words {
		r := rune(w[0])
		if r >= 'a' && r <= 'z' {
			return false
		}
	}
	return true
}

func classifyHeader(header string) string {
	lower := strings.ToLower(header)
	for _, kw := range instructionKeywords {
		if strings.Contains(lower, kw) {
			return "instructions"
		}
	}
	for _, kw := range contextKeywords {
		if strings.Contains(lower, kw) {
			return "context"
		}
	}
	return ""
}
