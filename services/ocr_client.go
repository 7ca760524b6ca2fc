package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"tender-response-platform/internal/config"
)

// OCRClient talks to the external OCR sidecar used for scanned PDFs and
// images. True OCR is never performed in-process.
type OCRClient struct {
	config     *config.Config
	httpClient *http.Client
	baseURL    string
}

// OCRResult is the sidecar's extraction response.
type OCRResult struct {
	Success        bool    `json:"success"`
	Text           string  `json:"text"`
	Pages          int     `json:"pages"`
	ProcessingTime float64 `json:"processing_time"`
	QualityScore   float64 `json:"quality_score"`
	WordCount      int     `json:"word_count"`
	CharacterCount int     `json:"character_count"`
	Error          string  `json:"error,omitempty"`
}

type ocrHealthResponse struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
}

// NewOCRClient creates a new OCR client
func NewOCRClient(cfg *config.Config) *OCRClient {
	baseURL := cfg.OCRServiceURL
	if baseURL == "" {
		baseURL = "http://localhost:8001"
	}

	timeout := time.Duration(cfg.OCRTimeout) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}

	return &OCRClient{
		config:     cfg,
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
	}
}

// Enabled reports whether the sidecar is configured for use.
func (c *OCRClient) Enabled() bool {
	return c != nil && c.config.OCRServiceEnabled
}

// IsHealthy checks if the OCR service is healthy
func (c *OCRClient) IsHealthy(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/health", nil)
	if err != nil {
		return false, fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("health check request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("OCR service unhealthy: status %d", resp.StatusCode)
	}

	var health ocrHealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return false, fmt.Errorf("failed to decode health response: %w", err)
	}

	return health.Status == "healthy" && health.ModelLoaded, nil
}

// ExtractText sends document bytes to the sidecar and returns recovered text.
func (c *OCRClient) ExtractText(ctx context.Context, filename string, data []byte) (*OCRResult, error) {
	healthy, err := c.IsHealthy(ctx)
	if err != nil {
		return nil, fmt.Errorf("OCR service health check failed: %w", err)
	}
	if !healthy {
		return nil, fmt.Errorf("OCR service is not healthy")
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	fileWriter, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := fileWriter.Write(data); err != nil {
		return nil, fmt.Errorf("failed to write file data: %w", err)
	}
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/ocr/extract", &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create OCR request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("OCR request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("OCR request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var result OCRResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode OCR response: %w", err)
	}

	if !result.Success {
		return nil, fmt.Errorf("OCR processing failed: %s", result.Error)
	}

	return &result, nil
}
