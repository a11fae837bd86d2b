package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/docker/go-units"
	"github.com/gin-gonic/gin"
	"github.com/go-http-utils/headers"

	logger "github.com/Brownie44l1/rop-api/internal/logger"
	"github.com/Brownie44l1/rop-api/internal/middlewares"
	"github.com/Brownie44l1/rop-api/internal/roperrors"
	"github.com/Brownie44l1/rop-api/internal/types"
)

const (
	// FormFileField is the multipart field carrying the image.
	FormFileField = "file"

	// multipartOverhead is the slack allowed on top of the upload limit for multipart framing.
	multipartOverhead = 1 << 20
)

// Predict classifies one uploaded image.
func (h *Handlers) Predict(ctx *gin.Context) {
	ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, h.maxUploadSize+multipartOverhead)
	fileHeader, err := ctx.FormFile(FormFileField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			ctx.Error(roperrors.New(roperrors.KindInvalidInput, "No file provided")) // nolint: errcheck
			return
		}

		ctx.Error(roperrors.Wrap(roperrors.KindInvalidInput, err, "Invalid upload")) // nolint: errcheck
		return
	}

	if !strings.HasPrefix(fileHeader.Header.Get(headers.ContentType), "image/") {
		ctx.Error(roperrors.New(roperrors.KindInvalidInput, "File must be an image")) // nolint: errcheck
		return
	}

	if fileHeader.Size > h.maxUploadSize {
		err := roperrors.Newf(roperrors.KindInvalidInput, "File too large: %s exceeds %s",
			units.HumanSize(float64(fileHeader.Size)), units.HumanSize(float64(h.maxUploadSize)))
		ctx.Error(err) // nolint: errcheck
		return
	}

	if !h.classifier.Ready() {
		ctx.Error(roperrors.New(roperrors.KindNotReady, "Model not loaded! Cannot make predictions.")) // nolint: errcheck
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		ctx.Error(roperrors.Wrap(roperrors.KindPreprocess, err, "Error reading upload")) // nolint: errcheck
		return
	}
	defer file.Close()

	requestID := ctx.GetString(middlewares.RequestIDKey)
	log := logger.WithRequestID(requestID)

	img, format, err := h.transform.Decode(file)
	if err != nil {
		ctx.Error(err) // nolint: errcheck
		return
	}
	log.Infof("processing %s (%s, %dx%d)", fileHeader.Filename, format, img.Bounds().Dx(), img.Bounds().Dy())

	input, err := h.transform.Apply(img)
	if err != nil {
		ctx.Error(err) // nolint: errcheck
		return
	}

	prediction, err := h.classifier.Predict(input)
	if err != nil {
		ctx.Error(err) // nolint: errcheck
		return
	}
	log.Infof("prediction: %s (%.3f)", prediction.Top.Class, prediction.Top.Confidence)

	ctx.JSON(http.StatusOK, types.PredictResponse{
		Predictions:   prediction.Predictions,
		TopPrediction: prediction.Top,
		Success:       true,
		ModelInfo:     h.classifier.Info(),
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		RequestID:     requestID,
	})
}
