package models

import (
	"time"
)

// Tender represents one uploaded procurement document and its processing record.
// It is mutated only by the processing pipeline; the UI polls it for progress.
type Tender struct {
	ID                 string              `bson:"_id" json:"id"`
	CompanyID          string              `bson:"company_id" json:"company_id"`
	OriginalName       string              `bson:"original_name" json:"original_name"`
	FilePath           string              `bson:"file_path" json:"file_path"` // object storage key
	FileHash           string              `bson:"file_hash" json:"file_hash"` // for duplicate detection
	Status             string              `bson:"status" json:"status"`
	Progress           int                 `bson:"progress" json:"progress"`
	ProcessingStage    string              `bson:"processing_stage,omitempty" json:"processing_stage,omitempty"`
	TotalQuestions     int                 `bson:"total_questions" json:"total_questions"`
	ProcessedQuestions int                 `bson:"processed_questions" json:"processed_questions"`
	Segments           *SegmentSnapshot    `bson:"segments,omitempty" json:"segments,omitempty"`
	CompressedSegments []byte              `bson:"compressed_segments,omitempty" json:"-"`
	SegmentCompression string              `bson:"segment_compression,omitempty" json:"-"`
	Extraction         *ExtractionMetadata `bson:"extraction,omitempty" json:"extraction,omitempty"`
	Summary            string              `bson:"summary,omitempty" json:"summary,omitempty"`
	ErrorMessage       string              `bson:"error_message,omitempty" json:"error_message,omitempty"`
	UploadedAt         time.Time           `bson:"uploaded_at" json:"uploaded_at"`
	ProcessedAt        *time.Time          `bson:"processed_at,omitempty" json:"processed_at,omitempty"`
	UpdatedAt          time.Time           `bson:"updated_at" json:"updated_at"`
}

// Tender lifecycle statuses. Transitions are one-directional:
// uploaded -> processing -> segmented -> enriched -> draft | failed.
const (
	StatusUploaded   = "uploaded"
	StatusProcessing = "processing"
	StatusSegmented  = "segmented"
	StatusEnriched   = "enriched"
	StatusDraft      = "draft"
	StatusFailed     = "failed"
)

// Pipeline stages reported through Tender.ProcessingStage.
const (
	StageValidating = "validating"
	StageExtracting = "extracting"
	StageSegmenting = "segmenting"
	StageEnriching  = "enriching"
	StageGenerating = "generating"
	StageFinalizing = "finalizing"
)

// ExtractionMetadata records how the raw text was recovered.
type ExtractionMetadata struct {
	Format         string  `bson:"format" json:"format"`
	Method         string  `bson:"method" json:"method"`
	QualityScore   float64 `bson:"quality_score" json:"quality_score"`
	WordCount      int     `bson:"word_count" json:"word_count"`
	CharacterCount int     `bson:"character_count" json:"character_count"`
	Pages          int     `bson:"pages,omitempty" json:"pages,omitempty"`
}

// TenderUploadResponse is returned after a successful upload.
type TenderUploadResponse struct {
	ID           string    `json:"id"`
	OriginalName string    `json:"original_name"`
	Status       string    `json:"status"`
	TaskID       string    `json:"task_id,omitempty"`
	Duplicate    bool      `json:"duplicate,omitempty"`
	UploadedAt   time.Time `json:"uploaded_at"`
	Message      string    `json:"message"`
}
