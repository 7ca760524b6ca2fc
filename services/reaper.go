package services

import (
	"context"
	"time"

	"tender-response-platform/internal/config"
	"tender-response-platform/internal/logger"
	"tender-response-platform/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// StuckTenderReaper marks tenders that have sat in processing states past
// the configured timeout as failed, so crashed workers never leave a tender
// spinning forever in the UI.
type StuckTenderReaper struct {
	config *config.Config
	db     *mongo.Database
}

func NewStuckTenderReaper(cfg *config.Config, db *mongo.Database) *StuckTenderReaper {
	return &StuckTenderReaper{
		config: cfg,
		db:     db,
	}
}

// Start runs the reaper loop until ctx is cancelled. Intended to be launched
// as a goroutine at worker startup.
func (r *StuckTenderReaper) Start(ctx context.Context) {
	interval := 5 * time.Minute
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info("stuck tender reaper started",
		"interval", interval.String(),
		"timeout_seconds", r.config.StuckTenderTimeout)

	for {
		select {
		case <-ctx.Done():
			logger.Info("stuck tender reaper stopped")
			return
		case <-ticker.C:
			r.ReapOnce(ctx)
		}
	}
}

// ReapOnce fails every tender stuck in a non-terminal processing state
// longer than StuckTenderTimeout and returns the number reaped.
func (r *StuckTenderReaper) ReapOnce(ctx context.Context) int64 {
	cutoff := time.Now().UTC().Add(-time.Duration(r.config.StuckTenderTimeout) * time.Second)

	opCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	result, err := r.db.Collection("tenders").UpdateMany(opCtx,
		bson.M{
			"status":     bson.M{"$in": []string{models.StatusProcessing, models.StatusSegmented, models.StatusEnriched}},
			"updated_at": bson.M{"$lt": cutoff},
		},
		bson.M{"$set": bson.M{
			"status":        models.StatusFailed,
			"error_message": "processing timed out",
			"updated_at":    time.Now().UTC(),
		}},
	)
	if err != nil {
		logger.Error("stuck tender sweep failed", "error", err)
		return 0
	}

	if result.ModifiedCount > 0 {
		logger.Warn("reaped stuck tenders", "count", result.ModifiedCount, "cutoff", cutoff)
	}
	return result.ModifiedCount
}
