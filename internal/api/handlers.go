package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/leafscan/backend/internal/detector"
	"github.com/leafscan/backend/internal/types"
)

// Pinger reports whether a backing store is reachable.
type Pinger func(ctx context.Context) error

// HealthCheck returns the health status of the API. A failing database
// reports "degraded" but the endpoint still answers 200.
func HealthCheck(ping Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp := types.HealthResponse{
			Status:         "healthy",
			CatalogVersion: detector.CatalogVersion,
			Database:       "ok",
		}
		if ping != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := ping(ctx); err != nil {
				resp.Status = "degraded"
				resp.Database = "unavailable"
			}
		}
		c.JSON(http.StatusOK, resp)
	}
}

// Catalog describes the labels and color indicators the classifier uses.
func Catalog(c *gin.Context) {
	indicators := make([]types.IndicatorResponse, 0, len(detector.Indicators))
	for _, r := range detector.Indicators {
		indicators = append(indicators, types.IndicatorResponse{
			Name:  r.Name,
			Lower: [3]uint8{r.Lower.H, r.Lower.S, r.Lower.V},
			Upper: [3]uint8{r.Upper.H, r.Upper.S, r.Upper.V},
		})
	}
	c.JSON(http.StatusOK, types.CatalogResponse{
		Version:    detector.CatalogVersion,
		Labels:     detector.Catalog,
		Indicators: indicators,
	})
}
