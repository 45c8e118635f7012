// Package multistage implements the Runge-Kutta engine family: explicit
// embedded-pair methods with adaptive step control, and a diagonally
// implicit method whose stages are solved through the registered
// linear-solve hook.
package multistage

// Tableau holds an explicit Runge-Kutta method with an embedded lower
// order solution for error estimation. A and C index the stages; B is
// the high-order weight row, BHat the embedded one.
type Tableau struct {
	Name  string
	Order int // order of the B row
	A     [][]float64
	B     []float64
	BHat  []float64
	C     []float64
}

func (tb Tableau) Stages() int { return len(tb.B) }

// DormandPrince returns the 5(4) pair used by default.
func DormandPrince() Tableau {
	return Tableau{
		Name:  "dormand-prince",
		Order: 5,
		A: [][]float64{
			{},
			{1.0 / 5},
			{3.0 / 40, 9.0 / 40},
			{44.0 / 45, -56.0 / 15, 32.0 / 9},
			{19372.0 / 6561, -25360.0 / 2187, 64448.0 / 6561, -212.0 / 729},
			{9017.0 / 3168, -355.0 / 33, 46732.0 / 5247, 49.0 / 176, -5103.0 / 18656},
			{35.0 / 384, 0, 500.0 / 1113, 125.0 / 192, -2187.0 / 6784, 11.0 / 84},
		},
		B:    []float64{35.0 / 384, 0, 500.0 / 1113, 125.0 / 192, -2187.0 / 6784, 11.0 / 84, 0},
		BHat: []float64{5179.0 / 57600, 0, 7571.0 / 16695, 393.0 / 640, -92097.0 / 339200, 187.0 / 2100, 1.0 / 40},
		C:    []float64{0, 1.0 / 5, 3.0 / 10, 4.0 / 5, 8.0 / 9, 1, 1},
	}
}

// BogackiShampine returns the 3(2) pair.
func BogackiShampine() Tableau {
	return Tableau{
		Name:  "bogacki-shampine",
		Order: 3,
		A: [][]float64{
			{},
			{1.0 / 2},
			{0, 3.0 / 4},
			{2.0 / 9, 1.0 / 3, 4.0 / 9},
		},
		B:    []float64{2.0 / 9, 1.0 / 3, 4.0 / 9, 0},
		BHat: []float64{7.0 / 24, 1.0 / 4, 1.0 / 3, 1.0 / 8},
		C:    []float64{0, 1.0 / 2, 3.0 / 4, 1},
	}
}

// HeunEuler returns the 2(1) pair, mostly useful in tests.
func HeunEuler() Tableau {
	return Tableau{
		Name:  "heun-euler",
		Order: 2,
		A: [][]float64{
			{},
			{1},
		},
		B:    []float64{1.0 / 2, 1.0 / 2},
		BHat: []float64{1, 0},
		C:    []float64{0, 1},
	}
}

// TableByName resolves the named tableau, defaulting to Dormand-Prince.
func TableByName(name string) Tableau {
	switch name {
	case "bogacki-shampine":
		return BogackiShampine()
	case "heun-euler":
		return HeunEuler()
	default:
		return DormandPrince()
	}
}
