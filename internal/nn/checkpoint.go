package nn

import (
	"fmt"
	"io"
	"time"

	"github.com/born-ml/backprop/internal/serialization"
)

// Checkpoint is the training state stored next to the weights, so that
// training can resume at Epoch+1.
type Checkpoint struct {
	Epoch    int            // Completed epochs
	Loss     float64        // Mean squared error after Epoch
	Metadata map[string]any // Additional training metadata
}

// SaveOptions configures Save.
type SaveOptions struct {
	ModelID    string            // Reused when non-empty; otherwise a new UUID is assigned
	Metadata   map[string]string // Custom metadata
	Checkpoint *Checkpoint       // Optional training state
}

// ModelInfo describes a loaded weight file.
type ModelInfo struct {
	ModelID    string
	CreatedAt  time.Time
	Metadata   map[string]string
	Checkpoint *Checkpoint
}

// Save writes the topology, activation, learning rate and every weight vector
// to w. Only fully connected networks in canonical wiring can be saved, since
// the file stores sizes rather than connections. The file holds a single
// learning rate, so every neuron must share it.
//
// Returns the model ID written to the file.
func (net *Network) Save(w io.Writer, opts SaveOptions) (string, error) {
	sd, header, err := net.saveHeader(opts)
	if err != nil {
		return "", err
	}
	header, err = serialization.NewWriter(w).WriteStateDict(sd, header)
	if err != nil {
		return "", fmt.Errorf("failed to save network: %w", err)
	}
	return header.ModelID, nil
}

// SaveFile is Save to a file at path.
func (net *Network) SaveFile(path string, opts SaveOptions) (string, error) {
	sd, header, err := net.saveHeader(opts)
	if err != nil {
		return "", err
	}
	header, err = serialization.WriteFile(path, sd, header)
	if err != nil {
		return "", fmt.Errorf("failed to save network: %w", err)
	}
	return header.ModelID, nil
}

func (net *Network) saveHeader(opts SaveOptions) (map[string][]float64, serialization.Header, error) {
	if !net.canonical {
		return nil, serialization.Header{}, &InvalidCallError{Op: "Save", Where: "network", Reason: "wiring is not in previous-layer order"}
	}
	lr := net.LearningRate()
	for _, layer := range net.layers {
		for _, n := range layer {
			if n.LearningRate() != lr {
				return nil, serialization.Header{}, &InvalidCallError{Op: "Save", Where: n.String(), Reason: "learning rate differs from the rest of the network"}
			}
		}
	}
	topo := net.Topology()
	header := serialization.Header{
		ModelID:      opts.ModelID,
		Topology:     serialization.TopologyMeta{Inputs: topo.Inputs, Layers: topo.Layers},
		Activation:   net.act.Name,
		LearningRate: lr,
		Metadata:     opts.Metadata,
	}
	if cp := opts.Checkpoint; cp != nil {
		header.CheckpointMeta = &serialization.CheckpointMeta{
			Epoch:        cp.Epoch,
			Loss:         cp.Loss,
			TrainingMeta: cp.Metadata,
		}
	}
	return net.StateDict(), header, nil
}

// Load reads a network written by Save. The activation must be one of the
// built-in ones; opts may override the learning rate.
func Load(r io.Reader, opts ...Option) (*Network, *ModelInfo, error) {
	reader, err := serialization.NewReader(r, serialization.DefaultReaderOptions())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load network: %w", err)
	}
	return fromReader(reader, opts)
}

// LoadFile is Load from the file at path.
func LoadFile(path string, opts ...Option) (*Network, *ModelInfo, error) {
	reader, err := serialization.ReadFile(path, serialization.DefaultReaderOptions())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load network: %w", err)
	}
	return fromReader(reader, opts)
}

func fromReader(reader *serialization.Reader, opts []Option) (*Network, *ModelInfo, error) {
	h := reader.Header()
	act, err := ActivationByName(h.Activation)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load network: %w", err)
	}

	base := []Option{
		WithActivation(act),
		WithLearningRate(h.LearningRate),
		WithInitializer(Constant(0)),
	}
	net, err := New(Topology{Inputs: h.Topology.Inputs, Layers: h.Topology.Layers}, append(base, opts...)...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load network: %w", err)
	}

	sd, err := reader.StateDict()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load network: %w", err)
	}
	if err := net.LoadStateDict(sd); err != nil {
		return nil, nil, fmt.Errorf("failed to load network: %w", err)
	}

	info := &ModelInfo{
		ModelID:   h.ModelID,
		CreatedAt: h.CreatedAt,
		Metadata:  h.Metadata,
	}
	if cp := h.CheckpointMeta; cp != nil {
		info.Checkpoint = &Checkpoint{Epoch: cp.Epoch, Loss: cp.Loss, Metadata: cp.TrainingMeta}
	}
	return net, info, nil
}
