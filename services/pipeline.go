package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tender-response-platform/internal/config"
	"tender-response-platform/internal/logger"
	"tender-response-platform/internal/telemetry"
	"tender-response-platform/models"
	"tender-response-platform/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// TextCompleter is the free-text completion contract, used for the document
// summary written during finalization. ai.GeminiClient satisfies it.
type TextCompleter interface {
	GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Pipeline sequences the full tender processing run: extract, segment,
// enrich, generate, finalize. Run never returns an error to the caller;
// every failure mode ends in a structured PipelineResult.
type Pipeline struct {
	config     *config.Config
	db         *mongo.Database
	storage    *ObjectStorage
	extractor  *TextExtractor
	detector   *QuestionDetector
	sections   *SectionClassifier
	classifier *ChunkClassifier
	retriever  *SnippetRetriever
	generator  *AnswerGenerator
	summarizer TextCompleter
}

// NewPipeline wires the full stage chain. client and retriever may be nil
// when no completion/embedding credentials are configured; the pipeline then
// runs heuristics-only with fallback answers.
func NewPipeline(cfg *config.Config, db *mongo.Database, storage *ObjectStorage, client CompletionClient, ocr *OCRClient) *Pipeline {
	var classifier *ChunkClassifier
	var retriever *SnippetRetriever
	if client != nil {
		classifier = NewChunkClassifier(cfg, client)
		retriever = NewSnippetRetriever(cfg, db)
	}

	var summarizer TextCompleter
	if tc, ok := client.(TextCompleter); ok {
		summarizer = tc
	}

	return &Pipeline{
		config:     cfg,
		db:         db,
		storage:    storage,
		extractor:  NewTextExtractor(cfg, ocr),
		detector:   NewQuestionDetector(),
		sections:   NewSectionClassifier(),
		classifier: classifier,
		retriever:  retriever,
		generator:  NewAnswerGenerator(cfg, client, NewMongoResponseStore(db), db),
		summarizer: summarizer,
	}
}

// Run processes one tender end to end. extractedText, when non-empty,
// bypasses download and extraction (used by reprocessing and tests). The
// returned result is always well-formed; only a missing tender record or a
// wholly absent text source is fatal.
func (p *Pipeline) Run(ctx context.Context, tenderID, extractedText string) *models.PipelineResult {
	started := time.Now()
	ctx, span := otel.Tracer("pipeline").Start(ctx, "pipeline.run")
	defer span.End()
	span.SetAttributes(attribute.String("tender.id", tenderID))

	if p.config.PipelineTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(p.config.PipelineTimeout)*time.Second)
		defer cancel()
	}

	result := &models.PipelineResult{TenderID: tenderID}

	tender, err := p.loadTender(ctx, tenderID)
	if err != nil {
		return p.fail(ctx, result, started, fmt.Errorf("%w: %s", ErrTenderNotFound, tenderID))
	}

	p.updateTender(ctx, tenderID, bson.M{
		"status":           models.StatusProcessing,
		"processing_stage": models.StageValidating,
		"progress":         5,
		"error_message":    "",
	})

	text, extraction, err := p.obtainText(ctx, tender, extractedText)
	if err != nil {
		return p.fail(ctx, result, started, err)
	}
	if extraction != nil {
		p.updateTender(ctx, tenderID, bson.M{"extraction": extraction})
	}

	p.updateTender(ctx, tenderID, bson.M{
		"processing_stage": models.StageSegmenting,
		"progress":         25,
	})

	snapshot, stageErrors := p.segment(ctx, text)
	result.Errors = append(result.Errors, stageErrors...)
	result.QuestionCount, result.ContextCount, result.InstructionCount = snapshot.Counts()

	p.persistSnapshot(ctx, tenderID, snapshot)
	p.updateTender(ctx, tenderID, bson.M{
		"status":           models.StatusSegmented,
		"processing_stage": models.StageEnriching,
		"progress":         50,
		"total_questions":  len(snapshot.Questions),
	})

	enrichment := p.enrich(ctx, tender.CompanyID, snapshot)

	p.updateTender(ctx, tenderID, bson.M{
		"status":           models.StatusEnriched,
		"processing_stage": models.StageGenerating,
		"progress":         65,
	})

	outcome := p.generator.GenerateAll(ctx, tenderID, snapshot.Questions, enrichment, func(answered, total int) {
		progress := 65
		if total > 0 {
			progress = 65 + (30*answered)/total
		}
		p.updateTender(ctx, tenderID, bson.M{
			"processed_questions": answered,
			"progress":            progress,
		})
	})
	result.AnswerCount = outcome.TotalAnswers
	result.FallbackAnswers = outcome.FallbackAnswers
	result.Errors = append(result.Errors, outcome.Errors...)

	now := time.Now().UTC()
	finalize := bson.M{
		"status":           models.StatusDraft,
		"processing_stage": models.StageFinalizing,
		"progress":         100,
		"processed_at":     now,
	}
	if summary := p.summarize(ctx, snapshot); summary != "" {
		finalize["summary"] = summary
	}
	p.updateTender(ctx, tenderID, finalize)

	result.Success = true
	result.Status = models.StatusDraft
	result.Message = fmt.Sprintf("%d questions, %d context items, %d answers generated",
		result.QuestionCount, result.ContextCount, result.AnswerCount)
	result.DurationMS = time.Since(started).Milliseconds()

	telemetry.RecordPipelineRun(ctx, result.Status, time.Since(started).Seconds(),
		result.AnswerCount, result.FallbackAnswers)

	logger.Info("pipeline completed", "tender_id", tenderID,
		"questions", result.QuestionCount, "answers", result.AnswerCount,
		"fallback_answers", result.FallbackAnswers,
		"duration_ms", result.DurationMS)

	return result
}

func (p *Pipeline) loadTender(ctx context.Context, tenderID string) (*models.Tender, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var tender models.Tender
	if err := p.db.Collection("tenders").FindOne(ctx, bson.M{"_id": tenderID}).Decode(&tender); err != nil {
		return nil, err
	}
	return &tender, nil
}

// obtainText resolves the pipeline's text source: pre-extracted text if
// given, otherwise download and extract the stored document.
func (p *Pipeline) obtainText(ctx context.Context, tender *models.Tender, extractedText string) (string, *models.ExtractionMetadata, error) {
	if strings.TrimSpace(extractedText) != "" {
		return extractedText, nil, nil
	}
	if tender.FilePath == "" {
		return "", nil, ErrNoTextSource
	}

	p.updateTender(ctx, tender.ID, bson.M{
		"processing_stage": models.StageExtracting,
		"progress":         10,
	})

	data, err := p.storage.Download(ctx, tender.FilePath)
	if err != nil {
		return "", nil, fmt.Errorf("%w: download failed: %v", ErrNoTextSource, err)
	}

	extraction, err := p.extractor.Extract(ctx, tender.OriginalName, data)
	if err != nil {
		return "", nil, err
	}

	return extraction.Text, &models.ExtractionMetadata{
		Format:         extraction.Format,
		Method:         extraction.Method,
		QualityScore:   extraction.QualityScore,
		WordCount:      extraction.WordCount,
		CharacterCount: extraction.CharacterCount,
		Pages:          extraction.Pages,
	}, nil
}

// segment merges all three detection passes and deduplicates. Heuristic and
// rule results are always present; the AI pass is additive and soft-failing.
func (p *Pipeline) segment(ctx context.Context, text string) (*models.SegmentSnapshot, []models.StageError) {
	var stageErrors []models.StageError

	questions := p.detector.DetectObvious(text)
	sections := p.sections.ClassifyByHeaders(text)
	contextItems := sections.Context
	instructions := sections.Instructions

	if p.classifier.Enabled() {
		aiQuestions, aiContext, aiInstructions := p.classifier.ClassifyAll(ctx, text)
		questions = append(questions, aiQuestions...)
		contextItems = append(contextItems, aiContext...)
		instructions = append(instructions, aiInstructions...)
	}

	snapshot := &models.SegmentSnapshot{
		Questions:    DedupeQuestions(questions),
		Context:      DedupeTextItems(contextItems),
		Instructions: DedupeTextItems(instructions),
	}

	// Minimal fallback: a document where nothing classified still yields one
	// context item, so enrichment and review have something to show.
	if len(snapshot.Questions) == 0 && len(snapshot.Context) == 0 && len(snapshot.Instructions) == 0 {
		stageErrors = append(stageErrors, models.StageError{
			Stage:   models.StageSegmenting,
			Message: "no segments detected, falling back to raw text context",
		})
		fallback := text
		if runes := []rune(fallback); len(runes) > p.config.ChunkSize {
			fallback = string(runes[:p.config.ChunkSize])
		}
		snapshot.Context = []models.TextItem{{
			Text:       strings.TrimSpace(fallback),
			Source:     models.SourceRules,
			Confidence: 0.1,
		}}
	}

	return snapshot, stageErrors
}

const summarySystemPrompt = `You summarize procurement documents for bid teams. You write three sentences at most, plain prose, no markdown.`

// summarize produces a short overview of the classified document for the
// tender record. Best-effort: no summarizer or a failed call just means no
// summary is stored.
func (p *Pipeline) summarize(ctx context.Context, snapshot *models.SegmentSnapshot) string {
	if p.summarizer == nil {
		return ""
	}

	material := TruncateWords(joinItems(snapshot.Context), p.config.MaxContextWords, contextTruncationMarker)
	if strings.TrimSpace(material) == "" {
		return ""
	}

	prompt := fmt.Sprintf("Summarize this tender for the bid team (%d questions to answer):\n\n%s",
		len(snapshot.Questions), material)

	summary, err := p.summarizer.GenerateText(ctx, summarySystemPrompt, prompt)
	if err != nil {
		logger.Debug("summary generation failed", "error", err)
		return ""
	}
	return strings.TrimSpace(summary)
}

// enrich never fails: profile lookup falls back to the N/A sentinel profile
// and snippet retrieval degrades to empty per question.
func (p *Pipeline) enrich(ctx context.Context, companyID string, snapshot *models.SegmentSnapshot) *models.EnrichmentBundle {
	profile := FetchCompanyProfile(ctx, p.db, companyID)

	var snippets map[int][]models.RetrievedSnippet
	if p.retriever != nil {
		snippets = p.retriever.RetrieveForQuestions(ctx, companyID, snapshot.Questions)
	}

	return BuildEnrichment(profile, snippets, snapshot)
}

// persistSnapshot stores the segmentation both in full and compressed;
// failures are logged, not propagated.
func (p *Pipeline) persistSnapshot(ctx context.Context, tenderID string, snapshot *models.SegmentSnapshot) {
	update := bson.M{"segments": snapshot}

	if compressed, algorithm, err := utils.CompressText(snapshotText(snapshot)); err == nil {
		update["compressed_segments"] = compressed
		update["segment_compression"] = string(algorithm)
	} else {
		logger.Debug("segment compression failed", "tender_id", tenderID, "error", err)
	}

	p.updateTender(ctx, tenderID, update)
}

func snapshotText(snapshot *models.SegmentSnapshot) string {
	var sb strings.Builder
	for _, q := range snapshot.Questions {
		sb.WriteString(q.Text)
		sb.WriteByte('\n')
	}
	for _, item := range snapshot.Context {
		sb.WriteString(item.Text)
		sb.WriteByte('\n')
	}
	for _, item := range snapshot.Instructions {
		sb.WriteString(item.Text)
		sb.WriteByte('\n')
	}
	return sb.String()
}

func (p *Pipeline) fail(ctx context.Context, result *models.PipelineResult, started time.Time, cause error) *models.PipelineResult {
	result.Success = false
	result.Status = models.StatusFailed
	result.Message = cause.Error()
	result.DurationMS = time.Since(started).Milliseconds()

	if !errors.Is(cause, ErrTenderNotFound) {
		p.updateTender(ctx, result.TenderID, bson.M{
			"status":        models.StatusFailed,
			"error_message": cause.Error(),
		})
	}

	telemetry.RecordPipelineRun(ctx, models.StatusFailed, time.Since(started).Seconds(), 0, 0)
	logger.Error("pipeline failed", "tender_id", result.TenderID, "error", cause)
	return result
}

// updateTender is best-effort: progress writes must never take the pipeline
// down.
func (p *Pipeline) updateTender(ctx context.Context, tenderID string, fields bson.M) {
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	fields["updated_at"] = time.Now().UTC()
	_, err := p.db.Collection("tenders").UpdateOne(writeCtx, bson.M{"_id": tenderID}, bson.M{"$set": fields})
	if err != nil {
		perr := &PersistenceError{TenderID: tenderID, Err: err}
		logger.Warn("tender progress update failed", "tender_id", tenderID, "error", perr)
	}
}
