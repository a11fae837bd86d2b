package model

import (
	"fmt"
	"math"
	"sort"

	"github.com/docker/go-units"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/atomic"

	"github.com/Brownie44l1/rop-api/internal/config"
	logger "github.com/Brownie44l1/rop-api/internal/logger"
	"github.com/Brownie44l1/rop-api/internal/metrics"
	"github.com/Brownie44l1/rop-api/internal/preprocess"
	"github.com/Brownie44l1/rop-api/internal/roperrors"
)

const modelType = "VGG16+SegNet"

// Classifier owns the single loaded model. Load runs once before serving,
// everything after is read-only.
type Classifier struct {
	config    *config.ModelConfig
	transform *preprocess.Transform
	engine    Engine
	info      ModelInfo
	loaded    *atomic.Bool
}

func NewClassifier(cfg *config.ModelConfig, transform *preprocess.Transform) *Classifier {
	return &Classifier{
		config:    cfg,
		transform: transform,
		loaded:    atomic.NewBool(false),
	}
}

// Load opens the model with load and marks the classifier ready.
func (c *Classifier) Load(load Loader) error {
	if c.loaded.Load() {
		return roperrors.New(roperrors.KindLoad, "model already loaded")
	}

	logger.WithModel(c.config.Path).Infof("loading model")
	engine, err := load(c.config)
	if err != nil {
		if roperrors.KindOf(err) != roperrors.KindLoad {
			err = roperrors.Wrap(roperrors.KindLoad, err, "failed to load model")
		}
		return err
	}

	metadata := engine.Metadata()
	if !compatibleShape(metadata.InputShape, c.transform.Shape()) {
		if err := engine.Close(); err != nil {
			logger.Errorf("release rejected model: %s", err.Error())
		}
		return roperrors.Newf(roperrors.KindLoad, "model input shape %v does not accept preprocessed shape %v", metadata.InputShape, c.transform.Shape())
	}

	c.engine = engine
	c.info = ModelInfo{
		ModelType:           modelType,
		Device:              metadata.Device,
		InputSize:           fmt.Sprintf("%dx%d", c.config.ImageSize, c.config.ImageSize),
		InputName:           metadata.InputName,
		OutputName:          metadata.OutputName,
		InputShape:          metadata.InputShape,
		OutputShape:         metadata.OutputShape,
		Classes:             c.config.Classes,
		ModelFile:           c.config.Path,
		FileSize:            units.BytesSize(float64(metadata.FileSize)),
		Preprocessing:       c.transform.String(),
		ConfidenceThreshold: c.config.ConfidenceThreshold,
	}
	c.loaded.Store(true)
	metrics.ModelLoadedGauge.Set(1)

	logger.With("device", metadata.Device, "classes", c.config.Classes, "inputSize", c.info.InputSize).
		Infof("model loaded successfully")
	return nil
}

func (c *Classifier) Ready() bool {
	return c.loaded.Load()
}

// Info returns model metadata, the zero value before Load.
func (c *Classifier) Info() ModelInfo {
	if !c.Ready() {
		return ModelInfo{}
	}

	return c.info
}

// Predict runs a forward pass over a preprocessed tensor and returns the class distribution.
func (c *Classifier) Predict(input []float32) (*Prediction, error) {
	if !c.Ready() {
		return nil, roperrors.New(roperrors.KindNotReady, "Model not loaded! Cannot make predictions.")
	}

	if len(input) != c.transform.Len() {
		return nil, roperrors.Newf(roperrors.KindInference, "expected %d input values, got %d", c.transform.Len(), len(input))
	}

	timer := prometheus.NewTimer(metrics.InferenceDuration)
	logits, err := c.engine.Forward(input)
	timer.ObserveDuration()
	if err != nil {
		if roperrors.KindOf(err) != roperrors.KindInference {
			err = roperrors.Wrap(roperrors.KindInference, err, "inference failed")
		}
		return nil, err
	}

	if len(logits) != len(c.config.Classes) {
		return nil, roperrors.Newf(roperrors.KindInference, "model output shape (1, %d) != expected (1, %d)", len(logits), len(c.config.Classes))
	}

	probabilities := Softmax(logits)
	scores := make([]ClassScore, len(probabilities))
	for i, p := range probabilities {
		if math.IsNaN(p) {
			return nil, roperrors.New(roperrors.KindInference, "model produced a non-finite output")
		}
		scores[i] = ClassScore{Class: c.config.Classes[i], Confidence: p}
	}

	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Confidence > scores[j].Confidence
	})

	top := scores[0]
	metrics.PredictionCount.WithLabelValues(top.Class).Inc()
	if top.Confidence < c.config.ConfidenceThreshold {
		metrics.LowConfidenceCount.Inc()
		logger.Warnf("low confidence prediction: %s (%.3f)", top.Class, top.Confidence)
	}

	return &Prediction{
		Predictions: scores,
		Top:         top,
	}, nil
}

// Close releases the engine.
func (c *Classifier) Close() error {
	if !c.loaded.CAS(true, false) {
		return nil
	}

	metrics.ModelLoadedGauge.Set(0)
	return c.engine.Close()
}

// Softmax normalizes logits into a probability distribution.
func Softmax(logits []float32) []float64 {
	if len(logits) == 0 {
		return nil
	}

	maxLogit := math.Inf(-1)
	for _, v := range logits {
		maxLogit = math.Max(maxLogit, float64(v))
	}

	var sum float64
	probabilities := make([]float64, len(logits))
	for i, v := range logits {
		probabilities[i] = math.Exp(float64(v) - maxLogit)
		sum += probabilities[i]
	}

	for i := range probabilities {
		probabilities[i] /= sum
	}

	return probabilities
}
