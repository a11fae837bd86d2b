package handlers

import (
	"github.com/Brownie44l1/rop-api/internal/model"
	"github.com/Brownie44l1/rop-api/internal/preprocess"
)

type Handlers struct {
	classifier    *model.Classifier
	transform     *preprocess.Transform
	maxUploadSize int64
}

func New(classifier *model.Classifier, transform *preprocess.Transform, maxUploadSize int64) *Handlers {
	return &Handlers{
		classifier:    classifier,
		transform:     transform,
		maxUploadSize: maxUploadSize,
	}
}
