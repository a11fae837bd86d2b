package model

import (
	"math"
	"math/rand"
	"os"

	"github.com/docker/go-units"

	logger "github.com/Brownie44l1/rop-api/internal/logger"
	"github.com/Brownie44l1/rop-api/internal/roperrors"
)

// minModelFileSize is the size below which a model file is suspicious.
const minModelFileSize = 1 << 20

// checkModelFile verifies the model file exists, is a regular readable file.
func checkModelFile(path string) (os.FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, roperrors.Wrapf(roperrors.KindLoad, err, "model file %q not found", path)
		}
		return nil, roperrors.Wrapf(roperrors.KindLoad, err, "stat model file %q", path)
	}

	if !info.Mode().IsRegular() {
		return nil, roperrors.Newf(roperrors.KindLoad, "model file %q is not a regular file", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, roperrors.Wrapf(roperrors.KindLoad, err, "model file %q is not readable", path)
	}
	f.Close()

	log := logger.WithModel(path)
	if info.Size() < minModelFileSize {
		log.Warnf("model file is very small (%s), this might not be a valid trained model", units.BytesSize(float64(info.Size())))
	} else {
		log.Infof("model file found (%s)", units.BytesSize(float64(info.Size())))
	}

	return info, nil
}

// compatibleShape reports whether a declared tensor shape accepts want.
// Non-positive declared dimensions are dynamic.
func compatibleShape(declared, want []int64) bool {
	if len(declared) != len(want) {
		return false
	}

	for i, d := range declared {
		if d > 0 && d != want[i] {
			return false
		}
	}

	return true
}

// Probe runs one forward pass on random input and checks the output.
func Probe(engine Engine, inputLen, numClasses int) error {
	input := make([]float32, inputLen)
	for i := range input {
		input[i] = float32(rand.NormFloat64())
	}

	output, err := engine.Forward(input)
	if err != nil {
		return roperrors.Wrap(roperrors.KindLoad, err, "model functionality test failed")
	}

	if len(output) != numClasses {
		return roperrors.Newf(roperrors.KindLoad, "model output shape (1, %d) != expected (1, %d)", len(output), numClasses)
	}

	for i, v := range output {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return roperrors.Newf(roperrors.KindLoad, "model output %d is not finite: %v", i, v)
		}
	}

	return nil
}
