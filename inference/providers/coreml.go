package providers

// CoreML flag bits accepted by the CoreML execution provider.
const (
	coreMLFlagUseCPUOnly              uint32 = 0x001
	coreMLFlagEnableOnSubgraph        uint32 = 0x002
	coreMLFlagOnlyEnableDeviceWithANE uint32 = 0x004
	coreMLFlagOnlyAllowStaticShapes   uint32 = 0x008
	coreMLFlagCreateMLProgram         uint32 = 0x010
)

// CoreMLOptions contains arguments for the CoreML backend.
// See: https://onnxruntime.ai/docs/execution-providers/CoreML-ExecutionProvider.html
type CoreMLOptions struct {
	// MLProgram requires Core ML 5 or later; NeuralNetwork requires Core ML 3 or later.
	// Default: NeuralNetwork
	ModelFormat string `json:"modelFormat" yaml:"modelFormat" validate:"omitempty,oneof=MLProgram NeuralNetwork"`
	// Limit CoreML to running on CPU only.
	CPUOnly bool `json:"cpuOnly" yaml:"cpuOnly"`
	// Enable CoreML on subgraphs in the body of control flow operators.
	EnableOnSubgraphs bool `json:"enableOnSubgraphs" yaml:"enableOnSubgraphs"`
	// Only enable CoreML on devices with an Apple Neural Engine.
	OnlyEnableDeviceWithANE bool `json:"onlyEnableDeviceWithANE" yaml:"onlyEnableDeviceWithANE"`
	// Only allow nodes with static input shapes.
	StaticInputShapes bool `json:"staticInputShapes" yaml:"staticInputShapes"`
}

// Flags packs the options into the CoreML provider flag word.
func (o CoreMLOptions) Flags() uint32 {
	var flags uint32
	if o.CPUOnly {
		flags |= coreMLFlagUseCPUOnly
	}
	if o.EnableOnSubgraphs {
		flags |= coreMLFlagEnableOnSubgraph
	}
	if o.OnlyEnableDeviceWithANE {
		flags |= coreMLFlagOnlyEnableDeviceWithANE
	}
	if o.StaticInputShapes {
		flags |= coreMLFlagOnlyAllowStaticShapes
	}
	if o.ModelFormat == "MLProgram" {
		flags |= coreMLFlagCreateMLProgram
	}
	return flags
}
