package model

import "github.com/Brownie44l1/rop-api/internal/config"

//go:generate mockgen -destination mocks/engine_mock.go -source engine.go -package mocks

// Engine runs a gradient-free forward pass. Implementations must allow
// concurrent Forward calls.
type Engine interface {
	// Forward maps one flattened 1x3xSxS input to one logit vector.
	Forward(input []float32) ([]float32, error)

	// Metadata describes the loaded model.
	Metadata() EngineMetadata

	// Close releases runtime resources.
	Close() error
}

// Loader opens and validates a model, returning a ready engine.
type Loader func(cfg *config.ModelConfig) (Engine, error)
