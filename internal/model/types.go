package model

// EngineMetadata describes a loaded engine.
type EngineMetadata struct {
	InputName   string
	OutputName  string
	InputShape  []int64
	OutputShape []int64
	Device      string
	FileSize    int64
}

// ModelInfo is reported by the health and predict endpoints.
type ModelInfo struct {
	ModelType           string   `json:"model_type"`
	Device              string   `json:"device"`
	InputSize           string   `json:"input_size"`
	InputName           string   `json:"input_name"`
	OutputName          string   `json:"output_name"`
	InputShape          []int64  `json:"input_shape"`
	OutputShape         []int64  `json:"output_shape"`
	Classes             []string `json:"classes"`
	ModelFile           string   `json:"model_file"`
	FileSize            string   `json:"file_size"`
	Preprocessing       string   `json:"preprocessing"`
	ConfidenceThreshold float64  `json:"confidence_threshold"`
}

type ClassScore struct {
	Class      string  `json:"class"`
	Confidence float64 `json:"confidence"`
}

// Prediction holds the full distribution sorted by descending confidence and its top entry.
type Prediction struct {
	Predictions []ClassScore
	Top         ClassScore
}
