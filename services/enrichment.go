package services

import (
	"context"
	"time"

	"tender-response-platform/internal/logger"
	"tender-response-platform/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// FetchCompanyProfile loads a company's profile, falling back to a fully
// populated "N/A" profile on miss or error. Every field is always set so the
// generator can tell "known empty" from "not requested".
func FetchCompanyProfile(ctx context.Context, db *mongo.Database, companyID string) models.CompanyProfile {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var profile models.CompanyProfile
	err := db.Collection("company_profiles").FindOne(ctx, bson.M{"company_id": companyID}).Decode(&profile)
	if err != nil {
		if err != mongo.ErrNoDocuments {
			logger.Warn("company profile lookup failed, using fallback", "company_id", companyID, "error", err)
		}
		return models.UnknownCompanyProfile(companyID)
	}

	return profile.Normalized()
}

// BuildEnrichment assembles the generation inputs: profile, retrieved
// snippets and the document's own context/instructions. Pure, no I/O.
func BuildEnrichment(profile models.CompanyProfile, snippets map[int][]models.RetrievedSnippet, segments *models.SegmentSnapshot) *models.EnrichmentBundle {
	bundle := &models.EnrichmentBundle{
		Profile:  profile.Normalized(),
		Snippets: snippets,
	}
	if bundle.Snippets == nil {
		bundle.Snippets = map[int][]models.RetrievedSnippet{}
	}
	if segments != nil {
		bundle.Context = segments.Context
		bundle.Instructions = segments.Instructions
	}
	return bundle
}
