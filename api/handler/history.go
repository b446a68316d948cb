package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/uselens/pagelens/models"
)

// ScrapeStore is the read side of the persistence layer consumed by the
// history and health endpoints.
type ScrapeStore interface {
	FindByID(ctx context.Context, id string) (*models.ScrapeResult, error)
	List(ctx context.Context, limit int) ([]*models.ScrapeResult, error)
	Ping(ctx context.Context) error
}

// ListScrapes returns a handler for GET /api/v1/scrapes.
// Supports ?limit=N up to the configured default.
func ListScrapes(st ScrapeStore, defaultLimit int) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := defaultLimit
		if v := c.Query("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid limit parameter"})
				return
			}
			if n < limit {
				limit = n
			}
		}

		results, err := st.List(c.Request.Context(), limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to list scrapes"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"scrapes": results})
	}
}

// GetScrape returns a handler for GET /api/v1/scrapes/:id.
func GetScrape(st ScrapeStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := st.FindByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			if models.ErrorCode(err) == models.ErrCodeNotFound {
				c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "scrape not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to load scrape"})
			return
		}
		c.JSON(http.StatusOK, result)
	}
}
