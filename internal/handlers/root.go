package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Brownie44l1/rop-api/internal/types"
)

const apiMessage = "ROP Classifier API"

// GetRoot reports whether the service is running with a loaded model.
func (h *Handlers) GetRoot(ctx *gin.Context) {
	ready := h.classifier.Ready()
	status := types.StatusRunning
	if !ready {
		status = types.StatusModelNotLoaded
	}

	ctx.JSON(http.StatusOK, types.RootResponse{
		Message:     apiMessage,
		Status:      status,
		ModelLoaded: ready,
		Ready:       ready,
	})
}
