package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/baselineanalytics/portal/internal/monitoring"
	"github.com/baselineanalytics/portal/pkg/errors"
	"github.com/baselineanalytics/portal/pkg/response"
)

// Health evaluates the readiness checks. Degraded dependencies still answer 200;
// a down dependency answers 503 with the report as error details.
func Health(manager *monitoring.HealthManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		report := manager.Evaluate(requestContext(c))
		if report.Status == monitoring.StatusDown {
			response.Error(c, errors.New("UNHEALTHY", "dependency unavailable", http.StatusServiceUnavailable).
				WithDetails(map[string]any{"checks": report.Checks}))
			return
		}
		response.Success(c, http.StatusOK, report)
	}
}
