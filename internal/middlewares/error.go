package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"

	logger "github.com/Brownie44l1/rop-api/internal/logger"
	"github.com/Brownie44l1/rop-api/internal/metrics"
	"github.com/Brownie44l1/rop-api/internal/roperrors"
)

type ErrorResponse struct {
	Detail    string `json:"detail"`
	RequestID string `json:"request_id,omitempty"`
}

func Error() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		err := c.Errors.Last()
		if err == nil || c.Writer.Written() {
			return
		}

		requestID := c.GetString(RequestIDKey)
		log := logger.WithRequestID(requestID)
		kind := roperrors.KindOf(err.Err)
		metrics.RequestFailureCount.WithLabelValues(kind.String()).Inc()

		switch kind {
		case roperrors.KindInvalidInput:
			log.Warnf("invalid request: %v", err.Err)
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Detail:    roperrors.Message(err.Err),
				RequestID: requestID,
			})
		case roperrors.KindNotReady:
			log.Warnf("model not ready: %v", err.Err)
			c.JSON(http.StatusServiceUnavailable, ErrorResponse{
				Detail:    roperrors.Message(err.Err),
				RequestID: requestID,
			})
		default:
			// Preprocess, inference and unknown errors
			log.Errorf("prediction failed: %+v", err.Err)
			c.JSON(http.StatusInternalServerError, ErrorResponse{
				Detail:    "Prediction failed: " + err.Err.Error(),
				RequestID: requestID,
			})
		}
	}
}
