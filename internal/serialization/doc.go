// Package serialization reads and writes network weight files.
//
//	Format Structure:
//	  [64 bytes: fixed header]
//	    magic "MLPW", version, flags, header size, data size, SHA-256 of data
//	  [Header: JSON metadata]
//	    model id, topology, activation, learning rate, tensor table,
//	    custom metadata, optional checkpoint state
//	  [Data: float64 little endian, tensors in name order]
//
// Each neuron's weight vector is one tensor, bias weight last.
//
// Example usage:
//
//	var buf bytes.Buffer
//	header, err := serialization.NewWriter(&buf).WriteStateDict(sd, serialization.Header{
//	    Topology:   serialization.TopologyMeta{Inputs: 2, Layers: []int{2, 1}},
//	    Activation: "sigmoid",
//	})
//
//	r, err := serialization.NewReader(&buf, serialization.DefaultReaderOptions())
//	sd, err := r.StateDict()
package serialization
