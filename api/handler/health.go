package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status  string `json:"status"` // "healthy" or "degraded"
	Uptime  string `json:"uptime"`
	Storage string `json:"storage"` // "ok" or "unreachable"
	Version string `json:"version"`
}

// Health returns a handler for GET /api/v1/health.
//
// Degrades status when the store is unreachable; scraping itself still
// works in that state (results fall back to local IDs).
func Health(st ScrapeStore, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := "healthy"
		storage := "ok"
		if err := st.Ping(c.Request.Context()); err != nil {
			status = "degraded"
			storage = "unreachable"
		}

		c.JSON(http.StatusOK, HealthResponse{
			Status:  status,
			Uptime:  time.Since(startTime).Round(time.Second).String(),
			Storage: storage,
			Version: "0.1.0",
		})
	}
}
