package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"tender-response-platform/internal/ai"
	"tender-response-platform/internal/config"
	"tender-response-platform/internal/logger"
	"tender-response-platform/models"
	"tender-response-platform/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ResponseStore persists generated answers. Upsert semantics keyed by
// (tender_id, question_index) make regeneration idempotent.
type ResponseStore interface {
	UpsertResponse(ctx context.Context, response *models.TenderResponse) error
}

// MongoResponseStore writes answers to the tender_responses collection.
type MongoResponseStore struct {
	db *mongo.Database
}

func NewMongoResponseStore(db *mongo.Database) *MongoResponseStore {
	return &MongoResponseStore{db: db}
}

func (s *MongoResponseStore) UpsertResponse(ctx context.Context, response *models.TenderResponse) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	filter := bson.M{
		"tender_id":      response.TenderID,
		"question_index": response.QuestionIndex,
	}
	update := bson.M{"$set": response}

	_, err := s.db.Collection("tender_responses").UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return &PersistenceError{TenderID: response.TenderID, QuestionIndex: response.QuestionIndex, Err: err}
	}
	return nil
}

// AnswerGenerator produces draft answers for detected questions in fixed
// batches, persisting each batch as soon as it lands.
type AnswerGenerator struct {
	config     *config.Config
	client     CompletionClient
	store      ResponseStore
	db         *mongo.Database
	retryDelay time.Duration
}

func NewAnswerGenerator(cfg *config.Config, client CompletionClient, store ResponseStore, db *mongo.Database) *AnswerGenerator {
	return &AnswerGenerator{
		config:     cfg,
		client:     client,
		store:      store,
		db:         db,
		retryDelay: 2 * time.Second,
	}
}

// GenerationOutcome summarizes a full generation run.
type GenerationOutcome struct {
	TotalAnswers    int
	FallbackAnswers int
	Batches         int
	Errors          []models.StageError
}

type batchAnswer struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

const generatorSystemPrompt = `You write draft tender responses on behalf of a company. You use ONLY the facts given in the company profile and prior answers. Where the profile says "N/A" you state that the information is not available instead of inventing it. You respond only with JSON.`

const fallbackAnswerTemplate = `We are unable to provide a complete answer to this question automatically. Please contact %s directly for detailed information regarding: %s`

const contextTruncationMarker = "[context truncated at 1000 words]"

// GenerateAll answers every question in order, in batches of AnswerBatchSize.
// A batch that fails twice gets safe fallback answers rather than being
// dropped. progress is invoked after each persisted batch with the running
// answered count.
func (g *AnswerGenerator) GenerateAll(ctx context.Context, tenderID string, questions []models.Question, enrichment *models.EnrichmentBundle, progress func(answered, total int)) *GenerationOutcome {
	outcome := &GenerationOutcome{}
	if len(questions) == 0 {
		return outcome
	}
	if enrichment == nil {
		enrichment = BuildEnrichment(models.UnknownCompanyProfile(""), nil, nil)
	}

	quotaBlocked := g.checkQuota(ctx, tenderID, questions)

	batchSize := g.config.AnswerBatchSize
	if batchSize <= 0 {
		batchSize = 5
	}

	answered := 0
	for start := 0; start < len(questions); start += batchSize {
		end := start + batchSize
		if end > len(questions) {
			end = len(questions)
		}
		batch := questions[start:end]
		outcome.Batches++

		var answers map[int]string
		if quotaBlocked || g.client == nil {
			answers = g.fallbackAnswers(batch, enrichment.Profile)
			outcome.FallbackAnswers += len(batch)
		} else {
			generated, err := g.generateBatch(ctx, outcome.Batches, batch, enrichment)
			if err != nil {
				logger.Warn("batch generation failed, substituting fallback answers",
					"tender_id", tenderID, "batch", outcome.Batches, "error", err)
				outcome.Errors = append(outcome.Errors, models.StageError{
					Stage:   models.StageGenerating,
					Message: fmt.Sprintf("batch %d: %v", outcome.Batches, err),
				})
				answers = g.fallbackAnswers(batch, enrichment.Profile)
				outcome.FallbackAnswers += len(batch)
			} else {
				answers = generated
			}
		}

		for _, q := range batch {
			answer, ok := answers[q.Index]
			if !ok || strings.TrimSpace(answer) == "" {
				answer = g.fallbackAnswers([]models.Question{q}, enrichment.Profile)[q.Index]
				outcome.FallbackAnswers++
			}

			response := &models.TenderResponse{
				TenderID:       tenderID,
				QuestionIndex:  q.Index,
				Question:       q.Text,
				Answer:         answer,
				Approved:       false,
				Model:          g.modelName(),
				ResponseLength: len(answer),
				GeneratedAt:    time.Now().UTC(),
			}
			if err := g.store.UpsertResponse(ctx, response); err != nil {
				logger.Error("failed to persist answer", "tender_id", tenderID,
					"question_index", q.Index, "error", err)
				outcome.Errors = append(outcome.Errors, models.StageError{
					Stage:   models.StageGenerating,
					Message: fmt.Sprintf("persist question %d: %v", q.Index, err),
				})
				continue
			}
			outcome.TotalAnswers++
		}

		answered += len(batch)
		if progress != nil {
			progress(answered, len(questions))
		}
	}

	return outcome
}

// checkQuota estimates the run's token cost against the company quota.
// Check errors are advisory (generation proceeds); an over-quota verdict
// degrades the whole run to fallback answers.
func (g *AnswerGenerator) checkQuota(ctx context.Context, tenderID string, questions []models.Question) bool {
	if g.db == nil {
		return false
	}

	companyID := g.lookupCompanyID(ctx, tenderID)
	if companyID == "" {
		return false
	}

	estimated := 500 * len(questions)
	err := ai.CheckCompanyQuota(ctx, g.db, companyID, estimated, g.config.DailyTokenLimit)
	if err == nil {
		return false
	}
	if errors.Is(err, ai.ErrQuotaExceeded) {
		logger.Warn("company over daily token quota, degrading to fallback answers",
			"company_id", companyID, "tender_id", tenderID)
		return true
	}
	logger.Warn("quota check failed, proceeding anyway", "company_id", companyID, "error", err)
	return false
}

func (g *AnswerGenerator) lookupCompanyID(ctx context.Context, tenderID string) string {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var tender struct {
		CompanyID string `bson:"company_id"`
	}
	if err := g.db.Collection("tenders").FindOne(ctx, bson.M{"_id": tenderID}).Decode(&tender); err != nil {
		if err != mongo.ErrNoDocuments {
			logger.Debug("company lookup for quota failed", "tender_id", tenderID, "error", err)
		}
		return ""
	}
	return tender.CompanyID
}

// generateBatch builds the prompt for one batch and parses the structured
// response, retrying once before giving up.
func (g *AnswerGenerator) generateBatch(ctx context.Context, ordinal int, batch []models.Question, enrichment *models.EnrichmentBundle) (map[int]string, error) {
	prompt := g.buildPrompt(batch, enrichment)

	answers, err := utils.WithRetry(ctx, 2, g.retryDelay, func(ctx context.Context) ([]batchAnswer, error) {
		raw, err := g.client.GenerateJSON(ctx, generatorSystemPrompt, prompt)
		if err != nil {
			return nil, err
		}
		var parsed []batchAnswer
		if err := json.Unmarshal([]byte(StripJSONFences(raw)), &parsed); err != nil {
			return nil, fmt.Errorf("malformed batch response: %w", err)
		}
		if len(parsed) == 0 {
			return nil, fmt.Errorf("empty batch response")
		}
		return parsed, nil
	})
	if err != nil {
		return nil, &GenerationError{Batch: ordinal, Err: err}
	}

	return matchAnswers(batch, answers), nil
}

// matchAnswers pairs returned answers with batch questions, first by
// position, then by question-text match for out-of-order responses.
func matchAnswers(batch []models.Question, answers []batchAnswer) map[int]string {
	result := make(map[int]string, len(batch))

	for i, q := range batch {
		if i < len(answers) && textMatches(q.Text, answers[i].Question) {
			result[q.Index] = answers[i].Answer
			continue
		}
		for _, a := range answers {
			if textMatches(q.Text, a.Question) {
				result[q.Index] = a.Answer
				break
			}
		}
		if _, ok := result[q.Index]; !ok && i < len(answers) {
			result[q.Index] = answers[i].Answer
		}
	}

	return result
}

func textMatches(a, b string) bool {
	na, nb := dedupKey(a), dedupKey(b)
	if na == "" || nb == "" {
		return false
	}
	return na == nb || strings.Contains(na, nb) || strings.Contains(nb, na)
}

// buildPrompt assembles the company profile, truncated document context,
// verbatim instructions, prior approved answers and the batch questions.
func (g *AnswerGenerator) buildPrompt(batch []models.Question, enrichment *models.EnrichmentBundle) string {
	var sb strings.Builder
	profile := enrichment.Profile

	sb.WriteString("COMPANY PROFILE:\n")
	fmt.Fprintf(&sb, "Name: %s\nIndustry: %s\nServices: %s\nMission: %s\nValues: %s\nPast projects: %s\nCertifications: %s\nTeam size: %s\nFounded: %s\nWebsite: %s\n",
		profile.Name, profile.Industry, profile.Services, profile.Mission,
		profile.Values, profile.PastProjects, profile.Certifications,
		profile.TeamSize, profile.Founded, profile.Website)

	if contextBlock := TruncateWords(joinItems(enrichment.Context), g.config.MaxContextWords, contextTruncationMarker); contextBlock != "" {
		sb.WriteString("\nDOCUMENT CONTEXT:\n")
		sb.WriteString(contextBlock)
		sb.WriteByte('\n')
	}

	if len(enrichment.Instructions) > 0 {
		sb.WriteString("\nCOMPLIANCE INSTRUCTIONS (follow verbatim):\n")
		for _, item := range enrichment.Instructions {
			sb.WriteString("- ")
			sb.WriteString(item.Text)
			sb.WriteByte('\n')
		}
	}

	wroteSnippetHeader := false
	for _, q := range batch {
		for _, s := range enrichment.Snippets[q.Index] {
			if !wroteSnippetHeader {
				sb.WriteString("\nPREVIOUSLY APPROVED ANSWERS (reuse where relevant):\n")
				wroteSnippetHeader = true
			}
			fmt.Fprintf(&sb, "Q: %s\nA: %s\n", s.Question, s.Answer)
		}
	}

	sb.WriteString("\nQUESTIONS TO ANSWER:\n")
	for _, q := range batch {
		fmt.Fprintf(&sb, "%d. %s\n", q.Index, q.Text)
	}

	sb.WriteString("\nAnswer every question. Return a JSON array of objects with keys \"question\" and \"answer\", one per question, in order.")
	return sb.String()
}

func (g *AnswerGenerator) fallbackAnswers(batch []models.Question, profile models.CompanyProfile) map[int]string {
	name := "the company"
	if profile.Name != "" && profile.Name != models.NotAvailable {
		name = profile.Name
	}
	answers := make(map[int]string, len(batch))
	for _, q := range batch {
		answers[q.Index] = fmt.Sprintf(fallbackAnswerTemplate, name, q.Text)
	}
	return answers
}

func (g *AnswerGenerator) modelName() string {
	if g.client != nil {
		return g.client.ModelName()
	}
	return "fallback"
}

func joinItems(items []models.TextItem) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		parts = append(parts, item.Text)
	}
	return strings.Join(parts, "\n\n")
}

// TruncateWords cuts text at the word limit, appending marker whenever
// anything was dropped.
func TruncateWords(text string, maxWords int, marker string) string {
	if maxWords <= 0 {
		return text
	}
	words := strings.Fields(text)
	if len(words) <= maxWords {
		return text
	}
	return strings.Join(words[:maxWords], " ") + "\n" + marker
}
