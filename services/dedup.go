package services

import (
	"regexp"
	"strings"

	"tender-response-platform/models"
)

// Ordered prefix-stripping rules applied repeatedly until the text is
// stable. Order matters: enumeration markers often stack ("1. Q: ...").
var prefixRules = []*regexp.Regexp{
	regexp.MustCompile(`^\d+[\.\):]\s*`),
	regexp.MustCompile(`(?i)^question\s*\d*\s*[:\.\)]\s*`),
	regexp.MustCompile(`(?i)^q\.?\s*\d*\s*[:\.\)]\s*`),
	regexp.MustCompile(`^[a-zA-Z][\.\)]\s+`),
	regexp.MustCompile(`^\([a-zA-Z0-9]+\)\s*`),
	regexp.MustCompile(`^[-*•‣▪]\s*`),
}

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	punctRe      = regexp.MustCompile(`[^\p{L}\p{N}\s]`)
)

const (
	minQuestionChars = 10
	minTextItemChars = 20
	textItemKeyLen   = 100
)

// normalizeCandidate collapses whitespace and strips leading enumeration
// markers, iterating until no rule applies.
func normalizeCandidate(text string) string {
	cleaned := strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
	for {
		before := cleaned
		for _, rule := range prefixRules {
			cleaned = rule.ReplaceAllString(cleaned, "")
		}
		cleaned = strings.TrimSpace(cleaned)
		if cleaned == before {
			return cleaned
		}
	}
}

// dedupKey builds a case-insensitive, punctuation-stripped key.
func dedupKey(text string) string {
	key := strings.ToLower(text)
	key = punctRe.ReplaceAllString(key, "")
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(key, " "))
}

// DedupeQuestions merges question candidates from all detection passes:
// normalize, discard short candidates, keep the first occurrence per key and
// re-index densely starting at 1.
func DedupeQuestions(candidates []models.Question) []models.Question {
	seen := make(map[string]bool)
	result := make([]models.Question, 0, len(candidates))

	for _, q := range candidates {
		cleaned := normalizeCandidate(q.Text)
		if len(cleaned) < minQuestionChars {
			continue
		}

		key := dedupKey(cleaned)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true

		q.Text = cleaned
		q.Index = len(result) + 1
		result = append(result, q)
	}

	return result
}

// DedupeTextItems applies the same normalization to context/instruction
// items, keyed on a 100-character prefix so near-duplicate long passages
// collapse.
func DedupeTextItems(items []models.TextItem) []models.TextItem {
	seen := make(map[string]bool)
	result := make([]models.TextItem, 0, len(items))

	for _, item := range items {
		cleaned := normalizeCandidate(item.Text)
		if len(cleaned) < minTextItemChars {
			continue
		}

		keySource := cleaned
		if runes := []rune(keySource); len(runes) > textItemKeyLen {
			keySource = string(runes[:textItemKeyLen])
		}
		key := dedupKey(keySource)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true

		item.Text = cleaned
		result = append(result, item)
	}

	return result
}
