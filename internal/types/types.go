package types

import "github.com/Brownie44l1/rop-api/internal/model"

const (
	StatusRunning        = "running"
	StatusModelNotLoaded = "model_not_loaded"
	StatusHealthy        = "healthy"
)

type RootResponse struct {
	Message     string `json:"message"`
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
	Ready       bool   `json:"ready"`
}

type HealthResponse struct {
	Status      string          `json:"status"`
	ModelLoaded bool            `json:"model_loaded"`
	ModelInfo   model.ModelInfo `json:"model_info"`
	Ready       bool            `json:"ready"`
}

type PredictResponse struct {
	Predictions   []model.ClassScore `json:"predictions"`
	TopPrediction model.ClassScore   `json:"topPrediction"`
	Success       bool               `json:"success"`
	ModelInfo     model.ModelInfo    `json:"model_info"`
	Timestamp     string             `json:"timestamp"`
	RequestID     string             `json:"request_id,omitempty"`
}
