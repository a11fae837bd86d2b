package config

import "time"

const (
	// DefaultServerHost is default listen host for the api server.
	DefaultServerHost = "0.0.0.0"

	// DefaultServerPort is default listen port for the api server.
	DefaultServerPort = 8000

	// DefaultAllowedOrigin is the only origin browsers may call the api from.
	DefaultAllowedOrigin = "http://localhost:3000"

	// DefaultMaxUploadSize is default upper bound of an uploaded image.
	DefaultMaxUploadSize = "10MB"

	// DefaultShutdownTimeout bounds graceful shutdown of the api server.
	DefaultShutdownTimeout = 10 * time.Second
)

const (
	// DefaultModelPath is default path of the onnx model file.
	DefaultModelPath = "models/ropnet.onnx"

	// DefaultModelInputName is default name of the model input tensor.
	DefaultModelInputName = "input"

	// DefaultModelOutputName is default name of the model output tensor.
	DefaultModelOutputName = "output"

	// DefaultModelImageSize is the square resolution the model was trained on.
	DefaultModelImageSize = 244

	// DefaultMaxImagePixels is the largest decoded image accepted, twice 89478485 like PIL.
	DefaultMaxImagePixels = 178956970

	// DefaultConfidenceThreshold flags predictions below it as low confidence.
	DefaultConfidenceThreshold = 0.5
)

var (
	// DefaultModelClasses is the label set in training order.
	DefaultModelClasses = []string{"Healthy", "Retinal Detachment", "Type-1", "Type-2"}

	// DefaultModelMean is default per-channel normalization mean.
	DefaultModelMean = []float32{0.5, 0.5, 0.5}

	// DefaultModelStd is default per-channel normalization standard deviation.
	DefaultModelStd = []float32{0.5, 0.5, 0.5}
)

const (
	// DefaultLogDir is default directory of log files.
	DefaultLogDir = "logs"

	// DefaultLogRotateMaxSize is default maximum size in megabytes of log files before rotation.
	DefaultLogRotateMaxSize = 1024

	// DefaultLogRotateMaxAge is default maximum number of days to retain old log files.
	DefaultLogRotateMaxAge = 7

	// DefaultLogRotateMaxBackups is default maximum number of old log files to keep.
	DefaultLogRotateMaxBackups = 20
)

const (
	// DefaultMetricsAddr is default address for metrics server.
	DefaultMetricsAddr = ":8002"

	// DefaultTelemetryServiceName is default service name reported to jaeger.
	DefaultTelemetryServiceName = "rop-server"
)
