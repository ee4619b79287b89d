package nn

import (
	"fmt"
	"math/rand"
)

// BiasInput is the constant value of the bias input. The last weight of every
// neuron multiplies it.
const BiasInput = -1.0

// DefaultLearningRate is used when no learning rate option is given.
const DefaultLearningRate = 0.1

type slotKind uint8

const (
	slotScalar slotKind = iota
	slotNeuron
)

// InputSlot is one input of a Neuron: either a raw scalar or a reference to a
// neuron of the preceding layer. The reference does not own the neuron.
type InputSlot struct {
	kind  slotKind
	value float64
	ref   *Neuron
}

// Scalar returns a slot holding the raw value v.
func Scalar(v float64) InputSlot {
	return InputSlot{kind: slotScalar, value: v}
}

// Ref returns a slot reading the activation of n.
func Ref(n *Neuron) InputSlot {
	return InputSlot{kind: slotNeuron, ref: n}
}

// IsNeuron reports whether the slot references a neuron.
func (s InputSlot) IsNeuron() bool {
	return s.kind == slotNeuron
}

// Neuron returns the referenced neuron, or nil for a scalar slot.
func (s InputSlot) Neuron() *Neuron {
	if s.kind != slotNeuron {
		return nil
	}
	return s.ref
}

// Value returns the raw value of a scalar slot, or 0 for a neuron slot.
func (s InputSlot) Value() float64 {
	if s.kind != slotScalar {
		return 0
	}
	return s.value
}

// cycle counts training examples. Neurons of one network share a cycle; every
// cached value is stamped with the count at which it was computed and is only
// readable while the count is unchanged. Counting starts at 1 so that a zero
// stamp means "never computed".
type cycle struct {
	n uint64
}

func newCycle() *cycle {
	return &cycle{n: 1}
}

func (c *cycle) advance() {
	c.n++
}

// Neuron is a single perceptron: a weighted sum of its inputs plus a bias,
// passed through an activation function.
//
// Invariant: len(weights) == len(inputs)+1, the last weight belongs to the
// bias. The per-example caches (sum, activation, error signal) are valid only
// for the example during which they were computed.
type Neuron struct {
	inputs  []InputSlot
	weights []float64
	lr      float64
	act     Activation

	layer, index int // -1 until placed in a Network
	clock        *cycle
	inputsSet    bool

	sum, activation, errSignal float64
	sumAt, actAt, errAt        uint64
	updatedAt                  uint64

	scratch []float64
}

// Option configures neurons and networks.
type Option func(*options)

type options struct {
	act  Activation
	lr   float64
	init Initializer
	rng  *rand.Rand
}

func defaultOptions() options {
	return options{
		act:  Sigmoid,
		lr:   DefaultLearningRate,
		init: DefaultInitializer(),
	}
}

func buildOptions(opts []Option) (options, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if !o.act.valid() {
		return o, fmt.Errorf("activation %q is missing its function or derivative", o.act.Name)
	}
	if o.init == nil {
		o.init = DefaultInitializer()
	}
	if o.rng == nil {
		o.rng = defaultRand()
	}
	return o, nil
}

// WithActivation sets the activation/derivative pair (default Sigmoid).
func WithActivation(act Activation) Option {
	return func(o *options) {
		o.act = act
	}
}

// WithLearningRate sets the learning rate (default 0.1).
func WithLearningRate(lr float64) Option {
	return func(o *options) {
		o.lr = lr
	}
}

// WithInitializer sets the weight initializer (default Uniform(-2, 2)).
func WithInitializer(init Initializer) Option {
	return func(o *options) {
		o.init = init
	}
}

// WithRand sets the random source used by the initializer.
func WithRand(rng *rand.Rand) Option {
	return func(o *options) {
		o.rng = rng
	}
}

// WithSeed is shorthand for WithRand with a new source seeded by seed.
func WithSeed(seed int64) Option {
	return func(o *options) {
		//nolint:gosec // Using math/rand for weight initialization (not security-critical)
		o.rng = rand.New(rand.NewSource(seed))
	}
}

// NewNeuron creates a neuron over the given inputs with randomly initialized
// weights. Scalar slots count as bound inputs.
//
// A neuron referencing other neurons joins their example cycle. Wiring
// neurons into a Network with FromLayers rebinds all of them to the network.
func NewNeuron(inputs []InputSlot, opts ...Option) (*Neuron, error) {
	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}
	for i, slot := range inputs {
		if slot.kind == slotNeuron && slot.ref == nil {
			return nil, &InvalidCallError{Op: "NewNeuron", Where: "neuron", Reason: fmt.Sprintf("input %d references a nil neuron", i)}
		}
	}

	clock := newCycle()
	for _, slot := range inputs {
		if slot.kind == slotNeuron {
			clock = slot.ref.clock
			break
		}
	}
	for _, slot := range inputs {
		if slot.kind == slotNeuron && slot.ref.clock != clock {
			slot.ref.rebind(clock)
		}
	}

	return newNeuron(inputs, o, 0, clock, true), nil
}

// NewInputNeuron creates a neuron with n scalar inputs that must be bound with
// SetInput before the first forward pass.
func NewInputNeuron(n int, opts ...Option) (*Neuron, error) {
	if n <= 0 {
		return nil, &InvalidCallError{Op: "NewInputNeuron", Where: "neuron", Reason: fmt.Sprintf("input count must be positive, got %d", n)}
	}
	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}
	return newNeuron(make([]InputSlot, n), o, 0, newCycle(), false), nil
}

func newNeuron(inputs []InputSlot, o options, fanOut int, clock *cycle, bound bool) *Neuron {
	slots := make([]InputSlot, len(inputs))
	copy(slots, inputs)

	weights := make([]float64, len(slots)+1)
	o.init.Init(weights, len(slots), fanOut, o.rng)

	return &Neuron{
		inputs:    slots,
		weights:   weights,
		lr:        o.lr,
		act:       o.act,
		layer:     -1,
		index:     -1,
		clock:     clock,
		inputsSet: bound,
		scratch:   make([]float64, len(weights)),
	}
}

// rebind moves the neuron to another example cycle and drops its caches.
func (n *Neuron) rebind(c *cycle) {
	n.clock = c
	n.sumAt, n.actAt, n.errAt, n.updatedAt = 0, 0, 0, 0
}

func (n *Neuron) place(layer, index int) {
	n.layer, n.index = layer, index
}

// String names the neuron by its position, e.g. "layer 1 neuron 2".
func (n *Neuron) String() string {
	if n.layer < 0 {
		return "neuron"
	}
	return fmt.Sprintf("layer %d neuron %d", n.layer, n.index)
}

// Position returns the layer and index of the neuron within its network, or
// (-1, -1) when it has not been placed.
func (n *Neuron) Position() (layer, index int) {
	return n.layer, n.index
}

// NumInputs returns the number of input slots, bias excluded.
func (n *Neuron) NumInputs() int {
	return len(n.inputs)
}

// Inputs returns a copy of the input slots.
func (n *Neuron) Inputs() []InputSlot {
	out := make([]InputSlot, len(n.inputs))
	copy(out, n.inputs)
	return out
}

// Weights returns a copy of the weights; the last entry is the bias weight.
func (n *Neuron) Weights() []float64 {
	out := make([]float64, len(n.weights))
	copy(out, n.weights)
	return out
}

// SetWeights replaces all weights, bias weight last.
func (n *Neuron) SetWeights(weights []float64) error {
	if len(weights) != len(n.weights) {
		return &ShapeError{Op: "SetWeights", Where: n.String(), Want: len(n.weights), Got: len(weights)}
	}
	copy(n.weights, weights)
	return nil
}

// LearningRate returns the learning rate.
func (n *Neuron) LearningRate() float64 {
	return n.lr
}

// SetLearningRate changes the learning rate used by subsequent updates.
func (n *Neuron) SetLearningRate(lr float64) {
	n.lr = lr
}

// ActivationFunc returns the activation/derivative pair of the neuron.
func (n *Neuron) ActivationFunc() Activation {
	return n.act
}

// SetInput rebinds the scalar inputs without touching the weights. The bias is
// implicit and must not be included. On error nothing is modified.
func (n *Neuron) SetInput(values []float64) error {
	for i, slot := range n.inputs {
		if slot.kind == slotNeuron {
			return &InvalidCallError{Op: "SetInput", Where: n.String(), Reason: fmt.Sprintf("input %d is wired to %s", i, slot.ref)}
		}
	}
	if len(values) != len(n.inputs) {
		return &ShapeError{Op: "SetInput", Where: n.String(), Want: len(n.inputs), Got: len(values)}
	}
	for i, v := range values {
		n.inputs[i] = Scalar(v)
	}
	n.inputsSet = true
	n.clock.advance()
	return nil
}

// source returns the value feeding slot i: the raw scalar or the cached
// activation of the referenced neuron.
func (n *Neuron) source(op string, i int) (float64, error) {
	slot := n.inputs[i]
	switch slot.kind {
	case slotNeuron:
		v, err := slot.ref.Activation()
		if err != nil {
			return 0, fmt.Errorf("%s: %s input %d: %w", op, n, i, err)
		}
		return v, nil
	default:
		return slot.value, nil
	}
}

// Sum computes and caches Σ input_i·weight_i + BiasInput·bias_weight.
//
// Neuron inputs contribute their cached activation; the caller must have
// activated the preceding layer for the current example.
func (n *Neuron) Sum() (float64, error) {
	if !n.inputsSet {
		return 0, &StateError{Op: "Sum", Where: n.String(), Reason: "inputs were never set"}
	}
	var sum float64
	for i := range n.inputs {
		v, err := n.source("Sum", i)
		if err != nil {
			return 0, err
		}
		sum += v * n.weights[i]
	}
	sum += BiasInput * n.weights[len(n.inputs)]

	n.sum = sum
	n.sumAt = n.clock.n
	return sum, nil
}

// Activate computes the weighted sum and caches activation(sum). Any error
// signal computed earlier for this example is discarded.
func (n *Neuron) Activate() (float64, error) {
	sum, err := n.Sum()
	if err != nil {
		return 0, err
	}
	n.activation = n.act.F(sum)
	n.actAt = n.clock.n
	n.errAt = 0
	return n.activation, nil
}

// CachedSum returns the weighted sum computed for the current example.
func (n *Neuron) CachedSum() (float64, error) {
	if n.sumAt != n.clock.n {
		return 0, &StateError{Op: "CachedSum", Where: n.String(), Reason: "sum not computed for the current example"}
	}
	return n.sum, nil
}

// Activation returns the activation computed for the current example.
func (n *Neuron) Activation() (float64, error) {
	if n.actAt != n.clock.n {
		return 0, &StateError{Op: "Activation", Where: n.String(), Reason: "activation not computed for the current example"}
	}
	return n.activation, nil
}

// ErrorSignal returns the error signal computed for the current example.
func (n *Neuron) ErrorSignal() (float64, error) {
	if n.errAt != n.clock.n {
		return 0, &StateError{Op: "ErrorSignal", Where: n.String(), Reason: "error not computed for the current example"}
	}
	return n.errSignal, nil
}

// ErrorRequest selects how CalcError derives the error signal. Exactly one of
// the fields must be set; Expect and Upstream build valid requests.
type ErrorRequest struct {
	Expected *float64 // output mode: target value of this neuron
	Upstream *float64 // hidden mode: summed contribution from downstream neurons
}

// Expect builds an output-mode request.
func Expect(v float64) ErrorRequest {
	return ErrorRequest{Expected: &v}
}

// Upstream builds a hidden-mode request.
func Upstream(v float64) ErrorRequest {
	return ErrorRequest{Upstream: &v}
}

// CalcError computes and caches the error signal.
//
//	output mode: δ = f'(sum, out) · (expected − out)
//	hidden mode: δ = f'(sum, out) · upstream
func (n *Neuron) CalcError(req ErrorRequest) (float64, error) {
	switch {
	case req.Expected != nil && req.Upstream != nil:
		return 0, &InvalidCallError{Op: "CalcError", Where: n.String(), Reason: "both expected value and upstream error given"}
	case req.Expected == nil && req.Upstream == nil:
		return 0, &InvalidCallError{Op: "CalcError", Where: n.String(), Reason: "neither expected value nor upstream error given"}
	}
	if n.actAt != n.clock.n {
		return 0, &StateError{Op: "CalcError", Where: n.String(), Reason: "forward pass not run for the current example"}
	}

	d := n.act.Deriv(n.sum, n.activation)
	if req.Expected != nil {
		n.errSignal = d * (*req.Expected - n.activation)
	} else {
		n.errSignal = d * *req.Upstream
	}
	n.errAt = n.clock.n
	return n.errSignal, nil
}

// Contribution is the share of a neuron's error pushed back to one of its
// neuron inputs: error × weight of that slot.
type Contribution struct {
	Slot   int
	Source *Neuron
	Value  float64
}

// ErrorPerInput returns one Contribution per neuron-valued input slot, in slot
// order. Scalar slots and the bias contribute nothing.
func (n *Neuron) ErrorPerInput() ([]Contribution, error) {
	if n.errAt != n.clock.n {
		return nil, &StateError{Op: "ErrorPerInput", Where: n.String(), Reason: "error not computed for the current example"}
	}
	var out []Contribution
	for i, slot := range n.inputs {
		if slot.kind != slotNeuron {
			continue
		}
		out = append(out, Contribution{Slot: i, Source: slot.ref, Value: n.errSignal * n.weights[i]})
	}
	return out, nil
}

// Deltas writes lr · source_i · error for every weight into dst without
// applying them. dst must have one entry per weight, bias last.
func (n *Neuron) Deltas(dst []float64) error {
	if len(dst) != len(n.weights) {
		return &ShapeError{Op: "Deltas", Where: n.String(), Want: len(n.weights), Got: len(dst)}
	}
	if n.errAt != n.clock.n {
		return &StateError{Op: "Deltas", Where: n.String(), Reason: "error not computed for the current example"}
	}
	for i := range n.inputs {
		v, err := n.source("Deltas", i)
		if err != nil {
			return err
		}
		dst[i] = n.lr * v * n.errSignal
	}
	dst[len(n.inputs)] = n.lr * BiasInput * n.errSignal
	return nil
}

// ApplyDeltas adds d to the weights.
func (n *Neuron) ApplyDeltas(d []float64) error {
	if len(d) != len(n.weights) {
		return &ShapeError{Op: "ApplyDeltas", Where: n.String(), Want: len(n.weights), Got: len(d)}
	}
	for i, v := range d {
		n.weights[i] += v
	}
	return nil
}

// UpdateWeights applies weight_i += lr · source_i · error. It may run once per
// example, after CalcError.
func (n *Neuron) UpdateWeights() error {
	if n.updatedAt == n.clock.n {
		return &StateError{Op: "UpdateWeights", Where: n.String(), Reason: "weights already updated for the current example"}
	}
	if err := n.Deltas(n.scratch); err != nil {
		return err
	}
	if err := n.ApplyDeltas(n.scratch); err != nil {
		return err
	}
	n.updatedAt = n.clock.n
	return nil
}
