package config

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func ConnectMongoDB(cfg *Config) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %v", err)
	}

	// Test connection
	err = client.Ping(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %v", err)
	}

	// Create indexes
	err = createIndexes(client, cfg.DBName)
	if err != nil {
		return nil, fmt.Errorf("failed to create indexes: %v", err)
	}

	return client, nil
}

func createIndexes(client *mongo.Client, dbName string) error {
	db := client.Database(dbName)
	ctx := context.Background()

	// Tenders: company lookups, duplicate detection by content hash, and the
	// stuck-tender reaper scan.
	tendersCollection := db.Collection("tenders")
	tenderIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "company_id", Value: 1}, {Key: "uploaded_at", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "company_id", Value: 1}, {Key: "file_hash", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "status", Value: 1}, {Key: "updated_at", Value: 1}},
		},
	}
	if _, err := tendersCollection.Indexes().CreateMany(ctx, tenderIndexes); err != nil {
		return err
	}

	// Tender responses: the upsert key must be unique so regeneration never
	// duplicates rows.
	responsesCollection := db.Collection("tender_responses")
	responseIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "tender_id", Value: 1}, {Key: "question_index", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	if _, err := responsesCollection.Indexes().CreateMany(ctx, responseIndexes); err != nil {
		return err
	}

	// Company profiles: one per company.
	profilesCollection := db.Collection("company_profiles")
	profileIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "company_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	if _, err := profilesCollection.Indexes().CreateMany(ctx, profileIndexes); err != nil {
		return err
	}

	// Approved answer snippets, filtered by company during vector search.
	snippetsCollection := db.Collection("answer_snippets")
	snippetIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "company_id", Value: 1}}},
		{Keys: bson.D{{Key: "company_id", Value: 1}, {Key: "usage_count", Value: -1}}},
	}
	if _, err := snippetsCollection.Indexes().CreateMany(ctx, snippetIndexes); err != nil {
		return err
	}

	// Per-company daily token quotas.
	quotasCollection := db.Collection("gemini_quotas")
	quotaIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "company_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	if _, err := quotasCollection.Indexes().CreateMany(ctx, quotaIndexes); err != nil {
		return err
	}

	return nil
}
