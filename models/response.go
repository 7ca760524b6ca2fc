package models

import "time"

// TenderResponse is one generated draft answer. Upserted by
// (tender_id, question_index) so regeneration never duplicates rows.
type TenderResponse struct {
	TenderID       string    `bson:"tender_id" json:"tender_id"`
	QuestionIndex  int       `bson:"question_index" json:"question_index"`
	Question       string    `bson:"question" json:"question"`
	Answer         string    `bson:"answer" json:"answer"`
	Approved       bool      `bson:"approved" json:"approved"`
	Model          string    `bson:"model" json:"model"`
	ResponseLength int       `bson:"response_length" json:"response_length"`
	GeneratedAt    time.Time `bson:"generated_at" json:"generated_at"`
}

// RetrievedSnippet is a previously approved answer surfaced by similarity
// search. Read-only input to generation.
type RetrievedSnippet struct {
	Question   string  `bson:"question" json:"question"`
	Answer     string  `bson:"answer" json:"answer"`
	Similarity float64 `bson:"similarity" json:"similarity"`
	Confidence float64 `bson:"confidence" json:"confidence"`
	UsageCount int     `bson:"usage_count" json:"usage_count"`
}

// AnswerSnippet is the stored form of an approved historical answer, including
// its embedding for vector search.
type AnswerSnippet struct {
	ID         string    `bson:"_id" json:"id"`
	CompanyID  string    `bson:"company_id" json:"company_id"`
	Question   string    `bson:"question" json:"question"`
	Answer     string    `bson:"answer" json:"answer"`
	Confidence float64   `bson:"confidence" json:"confidence"`
	UsageCount int       `bson:"usage_count" json:"usage_count"`
	Vector     []float32 `bson:"vector" json:"-"`
	CreatedAt  time.Time `bson:"created_at" json:"created_at"`
}

// EnrichmentBundle combines everything generation needs beyond the questions
// themselves. Assembled by pure code; snippets are keyed by question index.
type EnrichmentBundle struct {
	Profile      CompanyProfile           `json:"profile"`
	Snippets     map[int][]RetrievedSnippet `json:"snippets"`
	Context      []TextItem               `json:"context"`
	Instructions []TextItem               `json:"instructions"`
}

// StageError records a recoverable failure inside one pipeline stage.
type StageError struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

// PipelineResult is the terminal envelope: every pipeline run produces exactly
// one, regardless of internal failures.
type PipelineResult struct {
	Success           bool         `json:"success"`
	TenderID          string       `json:"tender_id"`
	Status            string       `json:"status"`
	Message           string       `json:"message"`
	QuestionCount     int          `json:"question_count"`
	ContextCount      int          `json:"context_count"`
	InstructionCount  int          `json:"instruction_count"`
	AnswerCount       int          `json:"answer_count"`
	FallbackAnswers   int          `json:"fallback_answers,omitempty"`
	Errors            []StageError `json:"errors,omitempty"`
	DurationMS        int64        `json:"duration_ms"`
}
