package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Brownie44l1/rop-api/internal/roperrors"
	"github.com/Brownie44l1/rop-api/internal/types"
)

func (h *Handlers) GetHealth(ctx *gin.Context) {
	if !h.classifier.Ready() {
		ctx.Error(roperrors.New(roperrors.KindNotReady, "Model not loaded - API not ready")) // nolint: errcheck
		return
	}

	ctx.JSON(http.StatusOK, types.HealthResponse{
		Status:      types.StatusHealthy,
		ModelLoaded: true,
		ModelInfo:   h.classifier.Info(),
		Ready:       true,
	})
}
