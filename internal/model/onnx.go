package model

import (
	ort "github.com/yalue/onnxruntime_go"

	"github.com/Brownie44l1/rop-api/internal/config"
	logger "github.com/Brownie44l1/rop-api/internal/logger"
	"github.com/Brownie44l1/rop-api/internal/roperrors"
)

const cpuDevice = "cpu"

type onnxEngine struct {
	session     *ort.DynamicAdvancedSession
	inputShape  ort.Shape
	outputShape ort.Shape
	metadata    EngineMetadata
}

// LoadONNX opens an onnx model with embedded weights, validates its declared
// tensors against the configured geometry and probes it with a synthetic input.
func LoadONNX(cfg *config.ModelConfig) (Engine, error) {
	info, err := checkModelFile(cfg.Path)
	if err != nil {
		return nil, err
	}

	if cfg.SharedLibraryPath != "" {
		ort.SetSharedLibraryPath(cfg.SharedLibraryPath)
	}

	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, roperrors.Wrap(roperrors.KindLoad, err, "failed to initialize ONNX environment")
		}
	}

	var resources releaser
	resources.add(ort.DestroyEnvironment)
	fail := func(err error) (Engine, error) {
		if rerr := resources.release(); rerr != nil {
			logger.Errorf("release partially loaded model: %s", rerr.Error())
		}
		return nil, err
	}

	size := int64(cfg.ImageSize)
	numClasses := int64(len(cfg.Classes))
	inputShape := ort.NewShape(1, 3, size, size)
	outputShape := ort.NewShape(1, numClasses)

	if err := checkDeclaredTensors(cfg, inputShape, outputShape); err != nil {
		return fail(err)
	}

	session, err := newSession(cfg)
	if err != nil {
		return fail(err)
	}
	resources.add(session.Destroy)

	engine := &onnxEngine{
		session:     session,
		inputShape:  inputShape,
		outputShape: outputShape,
		metadata: EngineMetadata{
			InputName:   cfg.InputName,
			OutputName:  cfg.OutputName,
			InputShape:  []int64(inputShape),
			OutputShape: []int64(outputShape),
			Device:      cpuDevice,
			FileSize:    info.Size(),
		},
	}

	if err := Probe(engine, int(inputShape.FlattenedSize()), int(numClasses)); err != nil {
		return fail(err)
	}

	logger.WithModel(cfg.Path).Infof("model functionality verified, output shape: %s", outputShape.String())
	return engine, nil
}

// newSession creates the inference session. Its options are released before
// returning, while the environment is still alive.
func newSession(cfg *config.ModelConfig) (*ort.DynamicAdvancedSession, error) {
	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, roperrors.Wrap(roperrors.KindLoad, err, "failed to create session options")
	}
	defer options.Destroy()

	if cfg.IntraOpThreads > 0 {
		if err := options.SetIntraOpNumThreads(cfg.IntraOpThreads); err != nil {
			return nil, roperrors.Wrap(roperrors.KindLoad, err, "failed to set intra-op threads")
		}
	}

	if cfg.InterOpThreads > 0 {
		if err := options.SetInterOpNumThreads(cfg.InterOpThreads); err != nil {
			return nil, roperrors.Wrap(roperrors.KindLoad, err, "failed to set inter-op threads")
		}
	}

	session, err := ort.NewDynamicAdvancedSession(cfg.Path, []string{cfg.InputName}, []string{cfg.OutputName}, options)
	if err != nil {
		return nil, roperrors.Wrap(roperrors.KindLoad, err, "failed to create ONNX session")
	}

	return session, nil
}

func checkDeclaredTensors(cfg *config.ModelConfig, inputShape, outputShape ort.Shape) error {
	inputs, outputs, err := ort.GetInputOutputInfo(cfg.Path)
	if err != nil {
		return roperrors.Wrap(roperrors.KindLoad, err, "failed to read model inputs and outputs")
	}

	input, ok := findTensor(inputs, cfg.InputName)
	if !ok {
		return roperrors.Newf(roperrors.KindLoad, "model has no input named %q", cfg.InputName)
	}

	if !compatibleShape(input.Dimensions, inputShape) {
		return roperrors.Newf(roperrors.KindLoad, "model input shape %s is incompatible with %s", input.Dimensions.String(), inputShape.String())
	}

	if input.DataType != ort.TensorElementDataTypeFloat {
		return roperrors.Newf(roperrors.KindLoad, "model input %q must be float32", cfg.InputName)
	}

	output, ok := findTensor(outputs, cfg.OutputName)
	if !ok {
		return roperrors.Newf(roperrors.KindLoad, "model has no output named %q", cfg.OutputName)
	}

	if !compatibleShape(output.Dimensions, outputShape) {
		return roperrors.Newf(roperrors.KindLoad, "model output shape %s is incompatible with %s", output.Dimensions.String(), outputShape.String())
	}

	return nil
}

func findTensor(infos []ort.InputOutputInfo, name string) (ort.InputOutputInfo, bool) {
	for _, info := range infos {
		if info.Name == name {
			return info, true
		}
	}

	return ort.InputOutputInfo{}, false
}

// Forward allocates per-call tensors so concurrent calls share only the session.
func (e *onnxEngine) Forward(input []float32) ([]float32, error) {
	inputTensor, err := ort.NewTensor(e.inputShape, input)
	if err != nil {
		return nil, roperrors.Wrap(roperrors.KindInference, err, "failed to create input tensor")
	}
	defer inputTensor.Destroy()

	outputTensor, err := ort.NewEmptyTensor[float32](e.outputShape)
	if err != nil {
		return nil, roperrors.Wrap(roperrors.KindInference, err, "failed to create output tensor")
	}
	defer outputTensor.Destroy()

	if err := e.session.Run([]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor}); err != nil {
		return nil, roperrors.Wrap(roperrors.KindInference, err, "inference failed")
	}

	logits := make([]float32, len(outputTensor.GetData()))
	copy(logits, outputTensor.GetData())
	return logits, nil
}

func (e *onnxEngine) Metadata() EngineMetadata {
	return e.metadata
}

// Close destroys the session before the environment it was created in.
func (e *onnxEngine) Close() error {
	var resources releaser
	resources.add(ort.DestroyEnvironment)
	resources.add(e.session.Destroy)
	return resources.release()
}
