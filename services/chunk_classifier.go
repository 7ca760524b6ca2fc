package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"tender-response-platform/internal/config"
	"tender-response-platform/internal/logger"
	"tender-response-platform/models"
)

// CompletionClient is the structured-completion contract the classifier and
// answer generator depend on. Satisfied by ai.GeminiClient.
type CompletionClient interface {
	GenerateJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	ModelName() string
}

// ChunkClassifier sends overlapping document chunks to the completion
// service and collects extracted questions, context and instructions.
// Every chunk failure is soft: it is logged and skipped, never fatal.
type ChunkClassifier struct {
	config *config.Config
	client CompletionClient
}

func NewChunkClassifier(cfg *config.Config, client CompletionClient) *ChunkClassifier {
	return &ChunkClassifier{
		config: cfg,
		client: client,
	}
}

// ChunkClassification is the fixed JSON shape the completion service must
// return per chunk.
type ChunkClassification struct {
	Questions    []string `json:"questions"`
	Context      []string `json:"context"`
	Instructions []string `json:"instructions"`
}

const classifierSystemPrompt = `You are a tender document analyst. You extract verbatim text spans from procurement documents. You never paraphrase, summarize or invent text. You respond only with JSON.`

const classifierPromptTemplate = `Classify the text below into three categories. Extract VERBATIM text only, do not rephrase.

Categories:
- "questions": questions or requests the bidder must answer
- "context": background information about the project or buyer
- "instructions": submission requirements, formats, deadlines, compliance terms

Return exactly this JSON shape, with empty arrays for absent categories:
{"questions": [], "context": [], "instructions": []}

Text:
%s`

// Enabled reports whether AI classification can run at all. Without an API
// key segmentation falls back to heuristics only.
func (c *ChunkClassifier) Enabled() bool {
	return c != nil && c.client != nil
}

// ClassifyAll splits the document into overlapping chunks and classifies
// each one, aggregating whatever succeeds.
func (c *ChunkClassifier) ClassifyAll(ctx context.Context, text string) (questions []models.Question, contextItems, instructions []models.TextItem) {
	chunks := SplitChunks(text, c.config.ChunkSize, c.config.ChunkOverlap)

	for i, chunk := range chunks {
		classification, err := c.classifyChunk(ctx, i+1, chunk)
		if err != nil {
			logger.Warn("chunk classification failed, skipping chunk",
				"chunk", i+1, "total_chunks", len(chunks), "error", err)
			continue
		}

		for _, q := range classification.Questions {
			questions = append(questions, models.Question{
				Text:       strings.TrimSpace(q),
				Confidence: 0.8,
				Source:     models.SourceAI,
			})
		}
		for _, item := range classification.Context {
			contextItems = append(contextItems, models.TextItem{
				Text:       strings.TrimSpace(item),
				Source:     models.SourceAI,
				Confidence: 0.8,
			})
		}
		for _, item := range classification.Instructions {
			instructions = append(instructions, models.TextItem{
				Text:       strings.TrimSpace(item),
				Source:     models.SourceAI,
				Confidence: 0.8,
			})
		}
	}

	return questions, contextItems, instructions
}

func (c *ChunkClassifier) classifyChunk(ctx context.Context, ordinal int, chunk string) (*ChunkClassification, error) {
	raw, err := c.client.GenerateJSON(ctx, classifierSystemPrompt, fmt.Sprintf(classifierPromptTemplate, chunk))
	if err != nil {
		return nil, &ClassificationError{Chunk: ordinal, Reason: "completion call failed", Err: err}
	}

	classification, err := ParseChunkClassification(raw)
	if err != nil {
		return nil, &ClassificationError{Chunk: ordinal, Reason: "malformed response", Err: err}
	}
	return classification, nil
}

// ParseChunkClassification decodes a completion response into the expected
// shape, tolerating markdown code fences around the JSON.
func ParseChunkClassification(raw string) (*ChunkClassification, error) {
	cleaned := StripJSONFences(raw)

	var classification ChunkClassification
	if err := json.Unmarshal([]byte(cleaned), &classification); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if classification.Questions == nil && classification.Context == nil && classification.Instructions == nil {
		return nil, fmt.Errorf("response has none of the expected keys")
	}
	return &classification, nil
}

// StripJSONFences removes a surrounding ```json ... ``` block if present.
func StripJSONFences(raw string) string {
	cleaned := strings.TrimSpace(raw)
	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimPrefix(cleaned, "```")
		if idx := strings.LastIndex(cleaned, "```"); idx >= 0 {
			cleaned = cleaned[:idx]
		}
		cleaned = strings.TrimSpace(cleaned)
	}
	return cleaned
}

// SplitChunks slices text into overlapping chunks, rune-safe so multi-byte
// characters never straddle a boundary.
func SplitChunks(text string, size, overlap int) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	if size <= 0 {
		return []string{text}
	}
	if overlap >= size {
		overlap = size / 4
	}

	var chunks []string
	step := size - overlap
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}
