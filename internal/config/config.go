package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/docker/go-units"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	// Server configuration.
	Server ServerConfig `yaml:"server" mapstructure:"server"`

	// Model configuration.
	Model ModelConfig `yaml:"model" mapstructure:"model"`

	// Log configuration.
	Log LogConfig `yaml:"log" mapstructure:"log"`

	// Metrics configuration.
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`

	// Telemetry configuration.
	Telemetry TelemetryConfig `yaml:"telemetry" mapstructure:"telemetry"`

	// Profiler enables statsview and pprof on a free local port.
	Profiler bool `yaml:"profiler" mapstructure:"profiler"`
}

type ServerConfig struct {
	// Host is listen host, like: 0.0.0.0, 127.0.0.1.
	Host string `yaml:"host" mapstructure:"host" validate:"required"`

	// Server port.
	Port int `yaml:"port" mapstructure:"port" validate:"min=1,max=65535"`

	// AllowedOrigin is the single origin permitted for browser callers.
	AllowedOrigin string `yaml:"allowedOrigin" mapstructure:"allowedOrigin" validate:"required,url"`

	// MaxUploadSize is the upper bound of an uploaded image, like: 10MB.
	MaxUploadSize string `yaml:"maxUploadSize" mapstructure:"maxUploadSize" validate:"required"`

	// MaxUploadSizeBytes is MaxUploadSize parsed by Convert.
	MaxUploadSizeBytes int64 `yaml:"-" mapstructure:"-"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" mapstructure:"shutdownTimeout" validate:"gt=0"`
}

type ModelConfig struct {
	// Path is the onnx model file with embedded weights.
	Path string `yaml:"path" mapstructure:"path" validate:"required"`

	// SharedLibraryPath is the onnxruntime shared library, empty uses the system default.
	SharedLibraryPath string `yaml:"sharedLibraryPath" mapstructure:"sharedLibraryPath"`

	// InputName is the name of the model input tensor.
	InputName string `yaml:"inputName" mapstructure:"inputName" validate:"required"`

	// OutputName is the name of the model output tensor.
	OutputName string `yaml:"outputName" mapstructure:"outputName" validate:"required"`

	// ImageSize is the square input resolution.
	ImageSize int `yaml:"imageSize" mapstructure:"imageSize" validate:"min=1"`

	// Classes is the label set in training order.
	Classes []string `yaml:"classes" mapstructure:"classes" validate:"min=2,unique,dive,required"`

	// Mean is the per-channel normalization mean.
	Mean []float32 `yaml:"mean" mapstructure:"mean" validate:"len=3"`

	// Std is the per-channel normalization standard deviation.
	Std []float32 `yaml:"std" mapstructure:"std" validate:"len=3"`

	// MaxImagePixels rejects uploads whose declared width*height exceeds it before decoding.
	MaxImagePixels int `yaml:"maxImagePixels" mapstructure:"maxImagePixels" validate:"gt=0"`

	// ConfidenceThreshold flags predictions below it as low confidence.
	ConfidenceThreshold float64 `yaml:"confidenceThreshold" mapstructure:"confidenceThreshold" validate:"gte=0,lte=1"`

	// IntraOpThreads is the onnxruntime intra-op thread count, 0 uses the runtime default.
	IntraOpThreads int `yaml:"intraOpThreads" mapstructure:"intraOpThreads" validate:"gte=0"`

	// InterOpThreads is the onnxruntime inter-op thread count, 0 uses the runtime default.
	InterOpThreads int `yaml:"interOpThreads" mapstructure:"interOpThreads" validate:"gte=0"`
}

type LogConfig struct {
	// Console writes logs to stdout instead of files.
	Console bool `yaml:"console" mapstructure:"console"`

	// Verbose enables debug level and gin debug mode.
	Verbose bool `yaml:"verbose" mapstructure:"verbose"`

	// Dir is the log directory.
	Dir string `yaml:"dir" mapstructure:"dir"`

	// Maximum size in megabytes of log files before rotation.
	MaxSize int `yaml:"maxSize" mapstructure:"maxSize" validate:"gte=0"`

	// Maximum number of days to retain old log files.
	MaxAge int `yaml:"maxAge" mapstructure:"maxAge" validate:"gte=0"`

	// Maximum number of old log files to keep.
	MaxBackups int `yaml:"maxBackups" mapstructure:"maxBackups" validate:"gte=0"`
}

type MetricsConfig struct {
	// Enable metrics service.
	Enable bool `yaml:"enable" mapstructure:"enable"`

	// Metrics service address.
	Addr string `yaml:"addr" mapstructure:"addr"`
}

type TelemetryConfig struct {
	// Jaeger is the collector endpoint, empty disables tracing.
	Jaeger string `yaml:"jaeger" mapstructure:"jaeger"`

	// ServiceName reported with spans.
	ServiceName string `yaml:"serviceName" mapstructure:"serviceName"`
}

// New default configuration.
func New() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            DefaultServerHost,
			Port:            DefaultServerPort,
			AllowedOrigin:   DefaultAllowedOrigin,
			MaxUploadSize:   DefaultMaxUploadSize,
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Model: ModelConfig{
			Path:                DefaultModelPath,
			InputName:           DefaultModelInputName,
			OutputName:          DefaultModelOutputName,
			ImageSize:           DefaultModelImageSize,
			Classes:             append([]string(nil), DefaultModelClasses...),
			Mean:                append([]float32(nil), DefaultModelMean...),
			Std:                 append([]float32(nil), DefaultModelStd...),
			MaxImagePixels:      DefaultMaxImagePixels,
			ConfidenceThreshold: DefaultConfidenceThreshold,
		},
		Log: LogConfig{
			Console:    true,
			Dir:        DefaultLogDir,
			MaxSize:    DefaultLogRotateMaxSize,
			MaxAge:     DefaultLogRotateMaxAge,
			MaxBackups: DefaultLogRotateMaxBackups,
		},
		Metrics: MetricsConfig{
			Enable: false,
			Addr:   DefaultMetricsAddr,
		},
		Telemetry: TelemetryConfig{
			ServiceName: DefaultTelemetryServiceName,
		},
	}
}

// Validate config parameters.
func (cfg *Config) Validate() error {
	if err := validator.New().Struct(cfg); err != nil {
		return err
	}

	for i, std := range cfg.Model.Std {
		if std == 0 {
			return fmt.Errorf("model requires non-zero std, channel %d", i)
		}
	}

	if cfg.Server.MaxUploadSizeBytes <= 0 {
		return errors.New("server requires parameter maxUploadSize")
	}

	if !cfg.Log.Console && cfg.Log.Dir == "" {
		return errors.New("log requires parameter dir")
	}

	if cfg.Metrics.Enable {
		if cfg.Metrics.Addr == "" {
			return errors.New("metrics requires parameter addr")
		}
	}

	if cfg.Telemetry.Jaeger != "" {
		if cfg.Telemetry.ServiceName == "" {
			return errors.New("telemetry requires parameter serviceName")
		}
	}

	return nil
}

// Convert derives computed fields, call it before Validate.
func (cfg *Config) Convert() error {
	size, err := units.RAMInBytes(cfg.Server.MaxUploadSize)
	if err != nil {
		return fmt.Errorf("parse maxUploadSize %q: %w", cfg.Server.MaxUploadSize, err)
	}
	cfg.Server.MaxUploadSizeBytes = size

	return nil
}
