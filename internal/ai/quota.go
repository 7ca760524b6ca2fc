package ai

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrQuotaExceeded is the definitive over-budget verdict. Any other error from
// CheckCompanyQuota means the check itself failed and is advisory only.
var ErrQuotaExceeded = errors.New("daily quota exceeded")

// CompanyQuota tracks per-company daily token spend against the completion
// service.
type CompanyQuota struct {
	CompanyID       string    `bson:"company_id"`
	DailyTokenLimit int       `bson:"daily_token_limit"`
	TokensUsedToday int       `bson:"tokens_used_today"`
	RequestsToday   int       `bson:"requests_today"`
	LastResetDate   time.Time `bson:"last_reset_date"`
	CreatedAt       time.Time `bson:"created_at"`
	UpdatedAt       time.Time `bson:"updated_at"`
}

// CheckCompanyQuota verifies the company can spend estimatedTokens today and
// records the spend. Returns ErrQuotaExceeded when over budget.
func CheckCompanyQuota(ctx context.Context, db *mongo.Database, companyID string, estimatedTokens, defaultLimit int) error {
	col := db.Collection("gemini_quotas")

	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	// Roll the ledger over on the first check of a new day.
	_, _ = col.UpdateOne(ctx,
		bson.M{"company_id": companyID, "last_reset_date": bson.M{"$lt": today}},
		bson.M{"$set": bson.M{
			"tokens_used_today": 0,
			"requests_today":    0,
			"last_reset_date":   today,
			"updated_at":        now,
		}},
	)

	var quota CompanyQuota
	err := col.FindOne(ctx, bson.M{"company_id": companyID}).Decode(&quota)
	if err != nil {
		if err != mongo.ErrNoDocuments {
			return err
		}
		quota = CompanyQuota{
			CompanyID:       companyID,
			DailyTokenLimit: defaultLimit,
			LastResetDate:   today,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if _, err := col.InsertOne(ctx, quota); err != nil {
			return err
		}
	}

	if quota.TokensUsedToday+estimatedTokens > quota.DailyTokenLimit {
		return ErrQuotaExceeded
	}

	_, err = col.UpdateOne(ctx,
		bson.M{"company_id": companyID},
		bson.M{
			"$inc": bson.M{
				"tokens_used_today": estimatedTokens,
				"requests_today":    1,
			},
			"$set": bson.M{"updated_at": now},
		},
	)
	return err
}

// GetCompanyQuotaStatus returns the current ledger for a company.
func GetCompanyQuotaStatus(ctx context.Context, db *mongo.Database, companyID string) (*CompanyQuota, error) {
	col := db.Collection("gemini_quotas")

	var quota CompanyQuota
	if err := col.FindOne(ctx, bson.M{"company_id": companyID}).Decode(&quota); err != nil {
		return nil, err
	}
	return &quota, nil
}

// SetCompanyQuotaLimit sets the daily token limit for a company.
func SetCompanyQuotaLimit(ctx context.Context, db *mongo.Database, companyID string, dailyLimit int) error {
	col := db.Collection("gemini_quotas")

	_, err := col.UpdateOne(ctx,
		bson.M{"company_id": companyID},
		bson.M{"$set": bson.M{
			"daily_token_limit": dailyLimit,
			"updated_at":        time.Now(),
		}},
		options.Update().SetUpsert(true),
	)
	return err
}
