package nn

// MSE computes the mean squared error between outputs and targets.
//
// Loss = mean((outputs - targets)²)
func MSE(outputs, targets []float64) (float64, error) {
	if len(outputs) != len(targets) {
		return 0, &ShapeError{Op: "MSE", Where: "loss", Want: len(targets), Got: len(outputs)}
	}
	if len(outputs) == 0 {
		return 0, nil
	}
	return SumSquaredError(outputs, targets) / float64(len(outputs)), nil
}

// SumSquaredError returns Σ(outputs_i - targets_i)². The slices must have the
// same length.
func SumSquaredError(outputs, targets []float64) float64 {
	var sum float64
	for i, o := range outputs {
		d := o - targets[i]
		sum += d * d
	}
	return sum
}
