package services

import (
	"regexp"
	"strings"

	"tender-response-platform/models"
)

// QuestionDetector runs a fast, deterministic pass over raw text and flags
// lines that are obviously questions. AI classification may add more
// candidates later but never replaces these.
type QuestionDetector struct{}

func NewQuestionDetector() *QuestionDetector {
	return &QuestionDetector{}
}

var (
	leadingMarkerRe  = regexp.MustCompile(`^\s*(?:\d+[\.\)]\s*|[a-zA-Z][\.\)]\s+|\([a-zA-Z0-9]+\)\s*|[-*•‣▪]\s*)+`)
	questionPrefixRe = regexp.MustCompile(`(?i)^(?:question\s*\d+|q\.?\s*\d+)\b[:\.\)]?\s*`)
	bulletLineRe     = regexp.MustCompile(`^\s*[-*•‣▪]\s+`)
)

// Imperative verbs that open a question-shaped requirement in tender
// documents.
var imperativeVerbs = []string{
	"describe", "provide", "explain", "list", "confirm", "detail",
	"outline", "specify", "state", "demonstrate", "indicate", "identify",
	"summarise", "summarize", "supply",
}

var interrogativeWords = []string{
	"what", "how", "why", "when", "where", "who", "which",
	"do", "does", "can", "will", "is", "are", "has", "have",
}

// DetectObvious scans text line by line and returns question candidates in
// document order. Confidence is 0.9 for a direct '?' ending and 0.7 for
// prefix/imperative matches.
func (d *QuestionDetector) DetectObvious(text string) []models.Question {
	var questions []models.Question
	index := 1

	for _, rawLine := range strings.Split(text, "\n") {
		line := strings.TrimSpace(rawLine)
		if line == "" {
			continue
		}

		isBullet := bulletLineRe.MatchString(rawLine)
		cleaned := strings.TrimSpace(leadingMarkerRe.ReplaceAllString(line, ""))
		cleaned = strings.TrimSpace(questionPrefixRe.ReplaceAllString(cleaned, ""))
		if len(cleaned) < 10 {
			continue
		}

		confidence := 0.0
		switch {
		case strings.HasSuffix(cleaned, "?"):
			confidence = 0.9
		case questionPrefixRe.MatchString(line):
			confidence = 0.7
		case startsWithAny(cleaned, imperativeVerbs):
			confidence = 0.7
		case isBullet && (startsWithAny(cleaned, interrogativeWords) || startsWithAny(cleaned, imperativeVerbs)):
			confidence = 0.7
		}

		if confidence == 0 {
			continue
		}

		questions = append(questions, models.Question{
			Text:       cleaned,
			Index:      index,
			Confidence: confidence,
			Source:     models.SourceHeuristic,
		})
		index++
	}

	return questions
}

func startsWithAny(line string, words []string) bool {
	lower := strings.ToLower(line)
	for _, w := range words {
		if strings.HasPrefix(lower, w+" ") {
			return true
		}
	}
	return false
}
