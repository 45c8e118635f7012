// Package problems provides benchmark ODE systems expressed as
// time-dependent operators, scaling from trivially nonstiff to
// severely stiff.
package problems

import (
	"github.com/kstrom/odebridge/internal/operator"
	"github.com/kstrom/odebridge/internal/vec"
)

// Problem is a time-dependent operator bundled with its customary
// initial condition.
type Problem interface {
	operator.TimeDependent
	DefaultState() vec.Vector
}

// Stiff marks problems that need an implicit method at their default
// parameters.
type Stiff interface {
	Stiff() bool
}
