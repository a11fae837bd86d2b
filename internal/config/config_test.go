package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestConfig_Load(t *testing.T) {
	config := &Config{
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            9000,
			AllowedOrigin:   "https://rop.example.com",
			MaxUploadSize:   "5MB",
			ShutdownTimeout: 30 * time.Second,
		},
		Model: ModelConfig{
			Path:                "foo.onnx",
			SharedLibraryPath:   "/usr/lib/libonnxruntime.so",
			InputName:           "images",
			OutputName:          "logits",
			ImageSize:           224,
			Classes:             []string{"a", "b"},
			Mean:                []float32{0.485, 0.456, 0.406},
			Std:                 []float32{0.229, 0.224, 0.225},
			MaxImagePixels:      4096 * 4096,
			ConfidenceThreshold: 0.7,
			IntraOpThreads:      4,
			InterOpThreads:      1,
		},
		Log: LogConfig{
			Console:    false,
			Verbose:    true,
			Dir:        "foo",
			MaxSize:    512,
			MaxAge:     5,
			MaxBackups: 3,
		},
		Metrics: MetricsConfig{
			Enable: true,
			Addr:   ":8000",
		},
		Telemetry: TelemetryConfig{
			Jaeger:      "http://jaeger:14268/api/traces",
			ServiceName: "foo",
		},
		Profiler: true,
	}

	out, err := yaml.Marshal(config)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "rop-server.yaml")
	require.NoError(t, os.WriteFile(path, out, 0o644))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var loaded Config
	require.NoError(t, yaml.Unmarshal(data, &loaded))
	assert.EqualValues(t, config, &loaded)
}

func TestConfig_Convert(t *testing.T) {
	tests := []struct {
		name   string
		size   string
		expect func(t *testing.T, cfg *Config, err error)
	}{
		{
			name: "default size",
			size: DefaultMaxUploadSize,
			expect: func(t *testing.T, cfg *Config, err error) {
				assert := assert.New(t)
				assert.NoError(err)
				assert.Equal(int64(10*1024*1024), cfg.Server.MaxUploadSizeBytes)
			},
		},
		{
			name: "kilobytes",
			size: "512k",
			expect: func(t *testing.T, cfg *Config, err error) {
				assert := assert.New(t)
				assert.NoError(err)
				assert.Equal(int64(512*1024), cfg.Server.MaxUploadSizeBytes)
			},
		},
		{
			name: "invalid size",
			size: "lots",
			expect: func(t *testing.T, cfg *Config, err error) {
				assert.Error(t, err)
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := New()
			cfg.Server.MaxUploadSize = tc.size
			tc.expect(t, cfg, cfg.Convert())
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mock   func(cfg *Config)
		expect func(t *testing.T, err error)
	}{
		{
			name: "default config",
			mock: func(cfg *Config) {},
			expect: func(t *testing.T, err error) {
				assert.NoError(t, err)
			},
		},
		{
			name: "server requires parameter port",
			mock: func(cfg *Config) {
				cfg.Server.Port = 0
			},
			expect: func(t *testing.T, err error) {
				assert.ErrorContains(t, err, "Port")
			},
		},
		{
			name: "server requires valid allowedOrigin",
			mock: func(cfg *Config) {
				cfg.Server.AllowedOrigin = "not an origin"
			},
			expect: func(t *testing.T, err error) {
				assert.ErrorContains(t, err, "AllowedOrigin")
			},
		},
		{
			name: "model requires parameter path",
			mock: func(cfg *Config) {
				cfg.Model.Path = ""
			},
			expect: func(t *testing.T, err error) {
				assert.ErrorContains(t, err, "Path")
			},
		},
		{
			name: "model requires unique classes",
			mock: func(cfg *Config) {
				cfg.Model.Classes = []string{"Healthy", "Healthy"}
			},
			expect: func(t *testing.T, err error) {
				assert.ErrorContains(t, err, "Classes")
			},
		},
		{
			name: "model requires three channel mean",
			mock: func(cfg *Config) {
				cfg.Model.Mean = []float32{0.5}
			},
			expect: func(t *testing.T, err error) {
				assert.ErrorContains(t, err, "Mean")
			},
		},
		{
			name: "model requires non-zero std",
			mock: func(cfg *Config) {
				cfg.Model.Std = []float32{0.5, 0, 0.5}
			},
			expect: func(t *testing.T, err error) {
				assert.EqualError(t, err, "model requires non-zero std, channel 1")
			},
		},
		{
			name: "model requires threshold in range",
			mock: func(cfg *Config) {
				cfg.Model.ConfidenceThreshold = 1.5
			},
			expect: func(t *testing.T, err error) {
				assert.ErrorContains(t, err, "ConfidenceThreshold")
			},
		},
		{
			name: "model requires positive maxImagePixels",
			mock: func(cfg *Config) {
				cfg.Model.MaxImagePixels = 0
			},
			expect: func(t *testing.T, err error) {
				assert.ErrorContains(t, err, "MaxImagePixels")
			},
		},
		{
			name: "log requires parameter dir",
			mock: func(cfg *Config) {
				cfg.Log.Console = false
				cfg.Log.Dir = ""
			},
			expect: func(t *testing.T, err error) {
				assert.EqualError(t, err, "log requires parameter dir")
			},
		},
		{
			name: "metrics requires parameter addr",
			mock: func(cfg *Config) {
				cfg.Metrics.Enable = true
				cfg.Metrics.Addr = ""
			},
			expect: func(t *testing.T, err error) {
				assert.EqualError(t, err, "metrics requires parameter addr")
			},
		},
		{
			name: "telemetry requires parameter serviceName",
			mock: func(cfg *Config) {
				cfg.Telemetry.Jaeger = "http://jaeger:14268/api/traces"
				cfg.Telemetry.ServiceName = ""
			},
			expect: func(t *testing.T, err error) {
				assert.EqualError(t, err, "telemetry requires parameter serviceName")
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := New()
			require.NoError(t, cfg.Convert())
			tc.mock(cfg)
			tc.expect(t, cfg.Validate())
		})
	}
}
