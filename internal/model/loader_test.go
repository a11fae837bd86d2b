package model

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Brownie44l1/rop-api/internal/config"
	"github.com/Brownie44l1/rop-api/internal/roperrors"
)

type funcEngine func(input []float32) ([]float32, error)

func (f funcEngine) Forward(input []float32) ([]float32, error) { return f(input) }
func (f funcEngine) Metadata() EngineMetadata                  { return EngineMetadata{} }
func (f funcEngine) Close() error                              { return nil }

func TestCheckModelFile(t *testing.T) {
	dir := t.TempDir()
	small := filepath.Join(dir, "small.onnx")
	require.NoError(t, os.WriteFile(small, []byte("onnx"), 0o644))

	tests := []struct {
		name   string
		path   string
		expect func(t *testing.T, info os.FileInfo, err error)
	}{
		{
			name: "missing file",
			path: filepath.Join(dir, "missing.onnx"),
			expect: func(t *testing.T, info os.FileInfo, err error) {
				assert := assert.New(t)
				assert.Nil(info)
				assert.True(errors.Is(err, roperrors.ErrLoad))
				assert.True(errors.Is(err, os.ErrNotExist))
				assert.Contains(err.Error(), "not found")
			},
		},
		{
			name: "directory",
			path: dir,
			expect: func(t *testing.T, info os.FileInfo, err error) {
				assert := assert.New(t)
				assert.Nil(info)
				assert.True(errors.Is(err, roperrors.ErrLoad))
				assert.Contains(err.Error(), "not a regular file")
			},
		},
		{
			name: "small file is accepted with a warning",
			path: small,
			expect: func(t *testing.T, info os.FileInfo, err error) {
				assert := assert.New(t)
				assert.NoError(err)
				assert.Equal(int64(4), info.Size())
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			info, err := checkModelFile(tc.path)
			tc.expect(t, info, err)
		})
	}
}

func TestLoadONNX_MissingFile(t *testing.T) {
	cfg := config.New().Model
	cfg.Path = filepath.Join(t.TempDir(), "missing.onnx")

	engine, err := LoadONNX(&cfg)
	assert.Nil(t, engine)
	assert.Equal(t, roperrors.KindLoad, roperrors.KindOf(err))
}

func TestCompatibleShape(t *testing.T) {
	tests := []struct {
		name     string
		declared []int64
		want     []int64
		expect   bool
	}{
		{
			name:     "exact",
			declared: []int64{1, 3, 244, 244},
			want:     []int64{1, 3, 244, 244},
			expect:   true,
		},
		{
			name:     "dynamic batch",
			declared: []int64{-1, 3, 244, 244},
			want:     []int64{1, 3, 244, 244},
			expect:   true,
		},
		{
			name:     "dynamic spatial",
			declared: []int64{-1, 3, -1, -1},
			want:     []int64{1, 3, 244, 244},
			expect:   true,
		},
		{
			name:     "wrong channels",
			declared: []int64{1, 1, 244, 244},
			want:     []int64{1, 3, 244, 244},
			expect:   false,
		},
		{
			name:     "wrong class count",
			declared: []int64{1, 10},
			want:     []int64{1, 4},
			expect:   false,
		},
		{
			name:     "wrong rank",
			declared: []int64{4},
			want:     []int64{1, 4},
			expect:   false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expect, compatibleShape(tc.declared, tc.want))
		})
	}
}

func TestProbe(t *testing.T) {
	tests := []struct {
		name   string
		engine funcEngine
		expect func(t *testing.T, err error)
	}{
		{
			name: "valid output",
			engine: func(input []float32) ([]float32, error) {
				if len(input) != 12 {
					return nil, errors.New("bad input")
				}
				return []float32{0.1, 0.2, 0.3, 0.4}, nil
			},
			expect: func(t *testing.T, err error) {
				assert.NoError(t, err)
			},
		},
		{
			name: "forward fails",
			engine: func(input []float32) ([]float32, error) {
				return nil, errors.New("shape mismatch")
			},
			expect: func(t *testing.T, err error) {
				assert := assert.New(t)
				assert.True(errors.Is(err, roperrors.ErrLoad))
				assert.Contains(err.Error(), "model functionality test failed")
			},
		},
		{
			name: "wrong output shape",
			engine: func(input []float32) ([]float32, error) {
				return []float32{0.1, 0.2}, nil
			},
			expect: func(t *testing.T, err error) {
				assert.EqualError(t, err, "model output shape (1, 2) != expected (1, 4)")
			},
		},
		{
			name: "non-finite output",
			engine: func(input []float32) ([]float32, error) {
				return []float32{0.1, float32(math.NaN()), 0.3, 0.4}, nil
			},
			expect: func(t *testing.T, err error) {
				assert.True(t, errors.Is(err, roperrors.ErrLoad))
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.expect(t, Probe(tc.engine, 12, 4))
		})
	}
}
