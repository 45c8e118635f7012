package engine

import "math"

// StepControl adjusts the step size from the weighted error of the last
// step. errRatio is the error measured in tolerance units: a value of 1
// sits exactly on the tolerance.
type StepControl struct {
	Safety   float64
	MinScale float64
	MaxScale float64
	Order    int // order of the error estimator
}

// DefaultStepControl returns the control constants used throughout.
func DefaultStepControl(order int) StepControl {
	return StepControl{
		Safety:   0.9,
		MinScale: 0.2,
		MaxScale: 10.0,
		Order:    order,
	}
}

// Accept reports whether a step with the given error ratio passes.
func (c StepControl) Accept(errRatio float64) bool {
	return errRatio <= 1.0
}

// Next returns the step size to use after a step with error ratio
// errRatio. Growth applies the usual 1/(order+1) exponent; shrink after
// a rejection uses a slightly harder 1/order exponent.
func (c StepControl) Next(h, errRatio float64) float64 {
	if errRatio <= 0 {
		return h * c.MaxScale
	}
	var scale float64
	if errRatio > 1 {
		scale = math.Max(c.MinScale, c.Safety*math.Pow(errRatio, -1.0/float64(c.Order)))
	} else {
		scale = math.Min(c.MaxScale, c.Safety*math.Pow(errRatio, -1.0/float64(c.Order+1)))
		if scale < 1 {
			scale = 1
		}
	}
	return h * scale
}
