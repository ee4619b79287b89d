package nn

import "fmt"

// DeltaBuffer holds weight deltas for a whole network, indexed
// [layer][neuron][weight] with layers in input-to-output order.
//
// It lets several examples be accumulated without touching the weights, so
// that a batch can be applied at once after every example of the batch has
// finished its own forward and error pass.
type DeltaBuffer [][][]float64

// NewDeltaBuffer allocates a zeroed buffer shaped like the network.
func (net *Network) NewDeltaBuffer() DeltaBuffer {
	buf := make(DeltaBuffer, len(net.layers))
	for li := range buf {
		layer := net.at(li)
		buf[li] = make([][]float64, len(layer))
		for j, n := range layer {
			buf[li][j] = make([]float64, len(n.weights))
		}
	}
	return buf
}

// Reset zeroes the buffer.
func (b DeltaBuffer) Reset() {
	for _, layer := range b {
		for _, w := range layer {
			clear(w)
		}
	}
}

// Add accumulates other into b. Both must come from networks of the same shape.
func (b DeltaBuffer) Add(other DeltaBuffer) error {
	if err := b.sameShape("DeltaBuffer.Add", other); err != nil {
		return err
	}
	for li, layer := range other {
		for j, w := range layer {
			dst := b[li][j]
			for k, v := range w {
				dst[k] += v
			}
		}
	}
	return nil
}

func (b DeltaBuffer) sameShape(op string, other DeltaBuffer) error {
	if len(b) != len(other) {
		return &ShapeError{Op: op, Where: "delta buffer", Want: len(b), Got: len(other)}
	}
	for li := range b {
		if len(b[li]) != len(other[li]) {
			return &ShapeError{Op: op, Where: "delta buffer", Want: len(b[li]), Got: len(other[li])}
		}
		for j := range b[li] {
			if len(b[li][j]) != len(other[li][j]) {
				return &ShapeError{Op: op, Where: "delta buffer", Want: len(b[li][j]), Got: len(other[li][j])}
			}
		}
	}
	return nil
}

func (net *Network) checkBuffer(op string, buf DeltaBuffer) error {
	if len(buf) != len(net.layers) {
		return &ShapeError{Op: op, Where: "network", Want: len(net.layers), Got: len(buf)}
	}
	for li := range buf {
		layer := net.at(li)
		if len(buf[li]) != len(layer) {
			return &ShapeError{Op: op, Where: fmt.Sprintf("layer %d", li), Want: len(layer), Got: len(buf[li])}
		}
		for j, n := range layer {
			if len(buf[li][j]) != len(n.weights) {
				return &ShapeError{Op: op, Where: n.String(), Want: len(n.weights), Got: len(buf[li][j])}
			}
		}
	}
	return nil
}

// AccumulateDeltas adds the deltas of the current example to buf without
// changing any weight. CalcNetworkError must have run for the example. If
// any neuron fails, buf is left unchanged.
func (net *Network) AccumulateDeltas(buf DeltaBuffer) error {
	if err := net.checkBuffer("AccumulateDeltas", buf); err != nil {
		return err
	}
	if net.errorAt != net.clock.n {
		return &StateError{Op: "AccumulateDeltas", Where: "network", Reason: "errors not computed for the current example"}
	}
	if err := net.computeDeltas(); err != nil {
		return err
	}
	for li := range buf {
		for j, n := range net.at(li) {
			dst := buf[li][j]
			for k, v := range n.scratch {
				dst[k] += v
			}
		}
	}
	return nil
}

// ApplyDeltas adds scale × buf to the weights.
func (net *Network) ApplyDeltas(buf DeltaBuffer, scale float64) error {
	if err := net.checkBuffer("ApplyDeltas", buf); err != nil {
		return err
	}
	for li := range buf {
		for j, n := range net.at(li) {
			for k, v := range buf[li][j] {
				n.weights[k] += scale * v
			}
		}
	}
	return nil
}
