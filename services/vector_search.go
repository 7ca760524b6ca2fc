package services

import (
	"context"
	"time"

	"tender-response-platform/internal/ai"
	"tender-response-platform/internal/config"
	"tender-response-platform/internal/logger"
	"tender-response-platform/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// SnippetRetriever embeds questions and looks up previously approved answers
// in the vector index over answer_snippets.
type SnippetRetriever struct {
	config *config.Config
	db     *mongo.Database
}

func NewSnippetRetriever(cfg *config.Config, db *mongo.Database) *SnippetRetriever {
	return &SnippetRetriever{
		config: cfg,
		db:     db,
	}
}

// RetrieveForQuestions runs a similarity search per question, capped to the
// first EmbedQuestionCap questions to bound embedding cost. A per-question
// failure yields zero snippets for that question, never an error.
func (r *SnippetRetriever) RetrieveForQuestions(ctx context.Context, companyID string, questions []models.Question) map[int][]models.RetrievedSnippet {
	results := make(map[int][]models.RetrievedSnippet)
	if !r.config.VectorSearchEnabled {
		return results
	}

	limit := len(questions)
	if limit > r.config.EmbedQuestionCap {
		limit = r.config.EmbedQuestionCap
	}

	for _, q := range questions[:limit] {
		snippets, err := r.searchOne(ctx, companyID, q.Text)
		if err != nil {
			logger.Warn("snippet retrieval failed for question",
				"question_index", q.Index, "error", err)
			continue
		}
		if len(snippets) > 0 {
			results[q.Index] = snippets
		}
	}

	return results
}

func (r *SnippetRetriever) searchOne(ctx context.Context, companyID, questionText string) ([]models.RetrievedSnippet, error) {
	embedCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	vector, err := ai.GenerateEmbedding(embedCtx, r.config, questionText)
	if err != nil {
		return nil, err
	}

	pipeline := mongo.Pipeline{
		{{Key: "$vectorSearch", Value: bson.M{
			"index":         r.config.VectorIndexName,
			"path":          "vector",
			"queryVector":   vector,
			"numCandidates": r.config.SnippetLimit * 20,
			"limit":         r.config.SnippetLimit,
			"filter":        bson.M{"company_id": companyID},
		}}},
		{{Key: "$project", Value: bson.M{
			"question":    1,
			"answer":      1,
			"confidence":  1,
			"usage_count": 1,
			"similarity":  bson.M{"$meta": "vectorSearchScore"},
		}}},
	}

	searchCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	cursor, err := r.db.Collection("answer_snippets").Aggregate(searchCtx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(searchCtx)

	var raw []models.RetrievedSnippet
	if err := cursor.All(searchCtx, &raw); err != nil {
		return nil, err
	}

	snippets := make([]models.RetrievedSnippet, 0, len(raw))
	for _, s := range raw {
		if s.Similarity >= r.config.SimilarityThreshold {
			snippets = append(snippets, s)
		}
	}
	return snippets, nil
}
