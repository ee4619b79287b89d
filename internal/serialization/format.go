package serialization

import (
	"time"
)

// Format constants.
//
// Fixed header layout (64 bytes, little endian):
//
//	0x00-0x03  magic "MLPW"
//	0x04-0x07  format version (uint32)
//	0x08-0x0B  flags (uint32)
//	0x0C-0x0F  reserved
//	0x10-0x17  JSON header size (uint64)
//	0x18-0x1F  data section size (uint64)
//	0x20-0x3F  SHA-256 of the data section
const (
	MagicBytes      = "MLPW"
	FormatVersion   = 1
	FixedHeaderSize = 64
	ChecksumSize    = 32
	ChecksumOffset  = 0x20
)

// DTypeFloat64 is the only element type written. Weights are stored as
// IEEE-754 binary64, little endian.
const DTypeFloat64 = "float64"

const elementSize = 8

// Flags for the weight file.
const (
	FlagHasMetadata   uint32 = 1 << 0 // custom metadata included
	FlagHasCheckpoint uint32 = 1 << 1 // training state included
)

// Header is the JSON header that follows the fixed header.
type Header struct {
	FormatVersion  int               `json:"format_version"`
	ModelID        string            `json:"model_id"` // UUID assigned when the file is first written
	CreatedAt      time.Time         `json:"created_at"`
	Topology       TopologyMeta      `json:"topology"`
	Activation     string            `json:"activation"`
	LearningRate   float64           `json:"learning_rate"`
	Tensors        []TensorMeta      `json:"tensors"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	CheckpointMeta *CheckpointMeta   `json:"checkpoint,omitempty"`
}

// TopologyMeta records the network shape: input length and neurons per layer,
// input side first.
type TopologyMeta struct {
	Inputs int   `json:"inputs"`
	Layers []int `json:"layers"`
}

// CheckpointMeta contains training state information for checkpoints.
type CheckpointMeta struct {
	Epoch        int            `json:"epoch"`                   // Completed epochs
	Loss         float64        `json:"loss"`                    // Mean squared error after Epoch
	TrainingMeta map[string]any `json:"training_meta,omitempty"` // Additional training metadata
}

// TensorMeta describes one weight vector in the data section.
type TensorMeta struct {
	Name   string `json:"name"`   // e.g. "layer.0.neuron.3.weight"
	DType  string `json:"dtype"`  // always "float64"
	Shape  []int  `json:"shape"`  // [number of weights]
	Offset int64  `json:"offset"` // bytes from the start of the data section
	Size   int64  `json:"size"`   // bytes
}

// NumElements returns the product of Shape.
func (m TensorMeta) NumElements() int {
	n := 1
	for _, d := range m.Shape {
		n *= d
	}
	return n
}
