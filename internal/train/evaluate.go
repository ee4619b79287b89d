package train

import (
	"fmt"

	"github.com/born-ml/backprop/internal/nn"
)

// DecisionRule maps an output vector to a class label. Evaluate applies the
// same rule to the expected vector, so a prediction counts as correct when
// both map to the same label. A negative label means the rule cannot label
// the vector.
type DecisionRule func(v []float64) int

// MaxThresholdOutputs is the widest vector Threshold can label, one bit per
// entry in a non-negative int.
const MaxThresholdOutputs = 63

// Argmax labels a vector with the index of its largest entry ("highest
// activation wins"). Ties go to the lowest index; an empty vector is -1.
func Argmax(v []float64) int {
	best := -1
	for i, x := range v {
		if best < 0 || x > v[best] {
			best = i
		}
	}
	return best
}

// Threshold labels a vector by which entries exceed cut, bit i set for entry
// i. For a single output this is 1 above the cut and 0 otherwise. Vectors
// longer than MaxThresholdOutputs are labeled -1.
func Threshold(cut float64) DecisionRule {
	return func(v []float64) int {
		if len(v) > MaxThresholdOutputs {
			return -1
		}
		label := 0
		for i, x := range v {
			if x > cut {
				label |= 1 << i
			}
		}
		return label
	}
}

// Metrics summarizes a pass over a data set without training.
type Metrics struct {
	MSE      float64
	Correct  int
	Total    int
	Accuracy float64 // Correct / Total
}

// String formats the metrics, e.g. "accuracy 75.00% (3/4), mse 0.0612".
func (m Metrics) String() string {
	return fmt.Sprintf("accuracy %.2f%% (%d/%d), mse %.4f", 100*m.Accuracy, m.Correct, m.Total, m.MSE)
}

// Predict binds input and returns the network output.
func Predict(net *nn.Network, input []float64) ([]float64, error) {
	if err := net.SetInput(input); err != nil {
		return nil, err
	}
	return net.Forward()
}

// Evaluate runs every example forward and scores the outputs with rule.
// Weights are not changed. A nil rule counts nothing as correct and only
// reports MSE. A rule that returns a negative label fails the evaluation.
func Evaluate(net *nn.Network, examples []Example, rule DecisionRule) (Metrics, error) {
	if err := CheckExamples(net, examples); err != nil {
		return Metrics{}, err
	}
	var m Metrics
	var sse float64
	for i, ex := range examples {
		out, err := Predict(net, ex.Input)
		if err != nil {
			return Metrics{}, err
		}
		sse += nn.SumSquaredError(out, ex.Expected)
		if rule == nil {
			continue
		}
		got, want := rule(out), rule(ex.Expected)
		if got < 0 || want < 0 {
			return Metrics{}, &nn.InvalidCallError{Op: "Evaluate", Where: fmt.Sprintf("example %d", i), Reason: "decision rule cannot label the output"}
		}
		if got == want {
			m.Correct++
		}
	}
	m.Total = len(examples)
	m.MSE = sse / float64(len(examples)*net.OutputSize())
	m.Accuracy = float64(m.Correct) / float64(m.Total)
	return m, nil
}
