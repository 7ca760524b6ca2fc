package routes

import (
	"net/http"

	"tender-response-platform/internal/ai"
	"tender-response-platform/internal/config"
	"tender-response-platform/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
)

// HandleQuotaStatus returns the company's daily token ledger. A company that
// has never spent tokens gets a fresh view at the default limit.
func HandleQuotaStatus(cfg *config.Config, db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		company := companyID(c)
		if company == "" {
			utils.RespondWithBadRequest(c, "Company ID header is required", nil)
			return
		}

		quota, err := ai.GetCompanyQuotaStatus(c.Request.Context(), db, company)
		if err == mongo.ErrNoDocuments {
			c.JSON(http.StatusOK, gin.H{
				"company_id":        company,
				"daily_token_limit": cfg.DailyTokenLimit,
				"tokens_used_today": 0,
				"requests_today":    0,
			})
			return
		}
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to load quota", nil)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"company_id":        quota.CompanyID,
			"daily_token_limit": quota.DailyTokenLimit,
			"tokens_used_today": quota.TokensUsedToday,
			"requests_today":    quota.RequestsToday,
			"last_reset_date":   quota.LastResetDate,
		})
	}
}

// HandleQuotaLimit sets the company's daily token limit.
func HandleQuotaLimit(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		company := companyID(c)
		if company == "" {
			utils.RespondWithBadRequest(c, "Company ID header is required", nil)
			return
		}

		var body struct {
			DailyTokenLimit int `json:"daily_token_limit"`
		}
		if err := c.ShouldBindJSON(&body); err != nil || body.DailyTokenLimit <= 0 {
			utils.RespondWithBadRequest(c, "daily_token_limit must be a positive integer", nil)
			return
		}

		if err := ai.SetCompanyQuotaLimit(c.Request.Context(), db, company, body.DailyTokenLimit); err != nil {
			utils.RespondWithInternalError(c, "Failed to update quota limit", nil)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"company_id":        company,
			"daily_token_limit": body.DailyTokenLimit,
		})
	}
}
