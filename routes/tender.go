package routes

import (
	"io"
	"net/http"
	"strconv"

	"tender-response-platform/internal/config"
	"tender-response-platform/internal/logger"
	"tender-response-platform/middleware"
	"tender-response-platform/services"
	"tender-response-platform/utils"

	"github.com/gin-gonic/gin"
)

// CompanyIDHeader identifies the acting company. Authentication is handled
// upstream of this service; the header is trusted as-is.
const CompanyIDHeader = "X-Company-ID"

func companyID(c *gin.Context) string {
	if id := c.GetHeader(CompanyIDHeader); id != "" {
		return id
	}
	return c.Query("company_id")
}

// HandleTenderUpload accepts a multipart document upload, stores it and
// queues pipeline processing.
func HandleTenderUpload(cfg *config.Config, svc *services.TenderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		company := companyID(c)
		if company == "" {
			utils.RespondWithError(c, http.StatusBadRequest, "missing_company", "Company ID header is required", nil)
			return
		}

		if err := c.Request.ParseMultipartForm(cfg.MaxFileSize); err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "file_too_large", "File size exceeds maximum limit", nil)
			return
		}

		file, header, err := c.Request.FormFile("file")
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "no_file", "No document provided in 'file' field", nil)
			return
		}
		defer file.Close()

		if header.Size > cfg.MaxFileSize {
			utils.RespondWithError(c, http.StatusBadRequest, "file_too_large", "File size exceeds maximum limit", nil)
			return
		}

		data, err := io.ReadAll(io.LimitReader(file, cfg.MaxFileSize+1))
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "invalid_file", "Cannot read uploaded file", nil)
			return
		}

		result, err := svc.Upload(c.Request.Context(), company, header.Filename, data)
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "upload_rejected", err.Error(), nil)
			return
		}

		status := http.StatusCreated
		if result.Duplicate {
			status = http.StatusOK
		}
		c.JSON(status, result)
	}
}

// HandleTenderProcess runs the pipeline synchronously for one tender. It
// always answers HTTP 200 with the result envelope: failures are reported in
// the body, never as transport errors.
func HandleTenderProcess(pipeline *services.Pipeline) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenderID := c.Param("id")

		var body struct {
			ExtractedText string `json:"extracted_text"`
		}
		// Body is optional; a bare POST processes the stored document.
		_ = c.ShouldBindJSON(&body)

		logger.Info("pipeline run requested", "tender_id", tenderID,
			"request_id", middleware.GetRequestID(c))

		result := pipeline.Run(c.Request.Context(), tenderID, body.ExtractedText)
		c.JSON(http.StatusOK, result)
	}
}

// HandleTenderStatus returns the tender record for progress polling.
func HandleTenderStatus(svc *services.TenderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		company := companyID(c)
		if company == "" {
			utils.RespondWithError(c, http.StatusBadRequest, "missing_company", "Company ID header is required", nil)
			return
		}

		tender, err := svc.Get(c.Request.Context(), company, c.Param("id"))
		if err == services.ErrTenderNotFound {
			utils.RespondWithNotFound(c, "Tender not found")
			return
		}
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to load tender", nil)
			return
		}

		c.JSON(http.StatusOK, tender)
	}
}

// HandleTenderList returns a company's tenders, newest first.
func HandleTenderList(svc *services.TenderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		company := companyID(c)
		if company == "" {
			utils.RespondWithError(c, http.StatusBadRequest, "missing_company", "Company ID header is required", nil)
			return
		}

		limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "50"), 10, 64)
		tenders, err := svc.List(c.Request.Context(), company, limit)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to list tenders", nil)
			return
		}

		c.JSON(http.StatusOK, gin.H{"tenders": tenders, "count": len(tenders)})
	}
}

// HandleTenderDelete removes a tender together with its stored document and
// generated responses.
func HandleTenderDelete(svc *services.TenderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		company := companyID(c)
		if company == "" {
			utils.RespondWithBadRequest(c, "Company ID header is required", nil)
			return
		}

		tenderID := c.Param("id")
		err := svc.Delete(c.Request.Context(), company, tenderID)
		if err == services.ErrTenderNotFound {
			utils.RespondWithNotFound(c, "Tender not found")
			return
		}
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to delete tender", nil)
			return
		}

		c.JSON(http.StatusOK, gin.H{"id": tenderID, "deleted": true})
	}
}

// HandleTenderResponses returns generated answers in question order.
func HandleTenderResponses(svc *services.TenderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		company := companyID(c)
		if company == "" {
			utils.RespondWithError(c, http.StatusBadRequest, "missing_company", "Company ID header is required", nil)
			return
		}

		responses, err := svc.Responses(c.Request.Context(), company, c.Param("id"))
		if err == services.ErrTenderNotFound {
			utils.RespondWithNotFound(c, "Tender not found")
			return
		}
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to load responses", nil)
			return
		}

		c.JSON(http.StatusOK, gin.H{"responses": responses, "count": len(responses)})
	}
}
