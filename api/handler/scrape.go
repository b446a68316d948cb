package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/uselens/pagelens/models"
	"github.com/uselens/pagelens/pipeline"
)

// Scrape returns a handler for POST /api/v1/scrape.
//
// Flow:
//  1. Parse request, gate the URL (400 before any network access).
//  2. Pipeline.Run → assembled result (success or error-shaped).
//  3. 200 with the result, or 500 with the persisted error record.
func Scrape(p *pipeline.Pipeline) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.ScrapeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
			return
		}
		if !models.ValidScrapeURL(req.URL) {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid URL provided"})
			return
		}
		req.Defaults()

		result, err := p.Run(c.Request.Context(), &req)
		if err != nil {
			if models.ErrorCode(err) == models.ErrCodeInvalidInput {
				c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: models.ErrorMessage(err)})
				return
			}
			// Fetch/extraction failures: the error record is still a
			// well-formed body, never a bare message.
			c.JSON(http.StatusInternalServerError, result)
			return
		}

		c.JSON(http.StatusOK, result)
	}
}
