package services

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"tender-response-platform/internal/config"
	"tender-response-platform/internal/logger"
	"tender-response-platform/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ProcessEnqueuer schedules asynchronous pipeline runs. Implemented by the
// task queue; nil disables background processing (tests, degraded mode).
type ProcessEnqueuer interface {
	EnqueueTenderProcess(ctx context.Context, tenderID string) (string, error)
}

// TenderService owns the tender upload surface: validation, duplicate
// detection, object storage and queueing.
type TenderService struct {
	config   *config.Config
	db       *mongo.Database
	storage  *ObjectStorage
	enqueuer ProcessEnqueuer
}

func NewTenderService(cfg *config.Config, db *mongo.Database, storage *ObjectStorage, enqueuer ProcessEnqueuer) *TenderService {
	return &TenderService{
		config:   cfg,
		db:       db,
		storage:  storage,
		enqueuer: enqueuer,
	}
}

// Upload validates and stores a document, records the tender and enqueues
// processing. Re-uploading identical bytes for the same company returns the
// existing tender instead of creating a new one.
func (s *TenderService) Upload(ctx context.Context, companyID, filename string, data []byte) (*models.TenderUploadResponse, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !s.extensionAllowed(ext) {
		return nil, fmt.Errorf("file type %q is not supported", ext)
	}
	if int64(len(data)) > s.config.MaxFileSize {
		return nil, fmt.Errorf("file exceeds maximum size of %d bytes", s.config.MaxFileSize)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty file")
	}

	sum := md5.Sum(data)
	fileHash := hex.EncodeToString(sum[:])

	if existing := s.findDuplicate(ctx, companyID, fileHash); existing != nil {
		return &models.TenderUploadResponse{
			ID:           existing.ID,
			OriginalName: existing.OriginalName,
			Status:       existing.Status,
			Duplicate:    true,
			UploadedAt:   existing.UploadedAt,
			Message:      "identical document already uploaded",
		}, nil
	}

	tenderID := uuid.New().String()
	objectKey := fmt.Sprintf("%s/%s%s", companyID, tenderID, ext)

	contentType := mime.TypeByExtension(ext)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	if _, err := s.storage.Upload(ctx, objectKey, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return nil, fmt.Errorf("failed to store document: %w", err)
	}

	now := time.Now().UTC()
	tender := models.Tender{
		ID:           tenderID,
		CompanyID:    companyID,
		OriginalName: filename,
		FilePath:     objectKey,
		FileHash:     fileHash,
		Status:       models.StatusUploaded,
		UploadedAt:   now,
		UpdatedAt:    now,
	}

	insertCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if _, err := s.db.Collection("tenders").InsertOne(insertCtx, tender); err != nil {
		return nil, fmt.Errorf("failed to record tender: %w", err)
	}

	response := &models.TenderUploadResponse{
		ID:           tenderID,
		OriginalName: filename,
		Status:       models.StatusUploaded,
		UploadedAt:   now,
		Message:      "document uploaded, processing queued",
	}

	if s.enqueuer != nil {
		taskID, err := s.enqueuer.EnqueueTenderProcess(ctx, tenderID)
		if err != nil {
			logger.Error("failed to enqueue tender processing", "tender_id", tenderID, "error", err)
			response.Message = "document uploaded, processing must be triggered manually"
		} else {
			response.TaskID = taskID
		}
	}

	return response, nil
}

func (s *TenderService) extensionAllowed(ext string) bool {
	for _, allowed := range s.config.AllowedExtensions {
		if strings.EqualFold(strings.TrimSpace(allowed), ext) {
			return true
		}
	}
	return false
}

func (s *TenderService) findDuplicate(ctx context.Context, companyID, fileHash string) *models.Tender {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var tender models.Tender
	err := s.db.Collection("tenders").FindOne(ctx, bson.M{
		"company_id": companyID,
		"file_hash":  fileHash,
	}).Decode(&tender)
	if err != nil {
		if err != mongo.ErrNoDocuments {
			logger.Warn("duplicate lookup failed", "company_id", companyID, "error", err)
		}
		return nil
	}
	return &tender
}

// Get returns one tender scoped to its owning company.
func (s *TenderService) Get(ctx context.Context, companyID, tenderID string) (*models.Tender, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var tender models.Tender
	err := s.db.Collection("tenders").FindOne(ctx, bson.M{
		"_id":        tenderID,
		"company_id": companyID,
	}).Decode(&tender)
	if err == mongo.ErrNoDocuments {
		return nil, ErrTenderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tender, nil
}

// List returns a company's tenders, newest first.
func (s *TenderService) List(ctx context.Context, companyID string, limit int64) ([]models.Tender, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if limit <= 0 || limit > 100 {
		limit = 50
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "uploaded_at", Value: -1}}).
		SetLimit(limit)

	cursor, err := s.db.Collection("tenders").Find(ctx, bson.M{"company_id": companyID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	tenders := []models.Tender{}
	if err := cursor.All(ctx, &tenders); err != nil {
		return nil, err
	}
	return tenders, nil
}

// Delete removes a tender, its stored document and its generated responses.
// The stored object is cleaned up best-effort; a dangling object never blocks
// record deletion.
func (s *TenderService) Delete(ctx context.Context, companyID, tenderID string) error {
	tender, err := s.Get(ctx, companyID, tenderID)
	if err != nil {
		return err
	}

	if tender.FilePath != "" && s.storage != nil {
		if err := s.storage.Delete(ctx, tender.FilePath); err != nil {
			logger.Warn("failed to delete stored document", "tender_id", tenderID,
				"object", tender.FilePath, "error", err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, err := s.db.Collection("tender_responses").DeleteMany(ctx, bson.M{"tender_id": tenderID}); err != nil {
		return fmt.Errorf("failed to delete responses: %w", err)
	}
	if _, err := s.db.Collection("tenders").DeleteOne(ctx, bson.M{"_id": tenderID, "company_id": companyID}); err != nil {
		return fmt.Errorf("failed to delete tender: %w", err)
	}
	return nil
}

// Responses returns the generated answers for a tender in question order.
func (s *TenderService) Responses(ctx context.Context, companyID, tenderID string) ([]models.TenderResponse, error) {
	if _, err := s.Get(ctx, companyID, tenderID); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "question_index", Value: 1}})
	cursor, err := s.db.Collection("tender_responses").Find(ctx, bson.M{"tender_id": tenderID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	responses := []models.TenderResponse{}
	if err := cursor.All(ctx, &responses); err != nil {
		return nil, err
	}
	return responses, nil
}
