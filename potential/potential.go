// Package potential builds smooth axisymmetric gravitational potentials from
// density models: separable disks split into an analytic ansatz plus a
// residual density, two-power-law spheroids, and a multipole expansion of any
// axisymmetric source approximated by a quintic spline in (ln r, cos theta).
//
// Units have G = 1, so that the Poisson equation reads Laplacian(Phi) = 4 pi rho.
// All models are immutable after construction and safe for concurrent use.
package potential

import (
	"errors"
	"math"

	"github.com/notargets/galpot/coord"
)

var (
	// ErrInvalidParams indicates a model parameter outside its valid range
	ErrInvalidParams = errors.New("potential: invalid parameters")
	// ErrNotAxisymmetric indicates a multipole source without axial symmetry
	ErrNotAxisymmetric = errors.New("potential: source density is not axisymmetric")
	// ErrGridExtent indicates an empty or non-positive radial grid
	ErrGridExtent = errors.New("potential: invalid radial grid extent")
	// ErrTooFewNodes indicates a grid too small for a quintic spline fit
	ErrTooFewNodes = errors.New("potential: too few grid nodes")
	// ErrNonFinite indicates a NaN or Inf produced while building a model
	ErrNonFinite = errors.New("potential: non-finite value during construction")
)

// Density is a model that provides the mass density at a point
type Density interface {
	Density(pos coord.PosCyl) float64
	Symmetry() coord.Symmetry
	Name() string
}

// Potential is a model that provides the gravitational potential and its
// derivatives in cylindrical coordinates. Eval returns the potential value
// and fills grad and hess only when they are non-nil.
type Potential interface {
	Density
	Eval(pos coord.PosCyl, grad *coord.GradCyl, hess *coord.HessCyl) float64
}

// Value is a shorthand for evaluating the potential only
func Value(pot Potential, pos coord.PosCyl) float64 {
	return pot.Eval(pos, nil, nil)
}

// EvalCar evaluates an axisymmetric potential at a cartesian position,
// converting the derivatives to cartesian coordinates
func EvalCar(pot Potential, pos coord.PosCar, grad *coord.GradCar, hess *coord.HessCar) (phi float64) {
	var (
		pc = coord.ToPosCyl(pos)
		g  coord.GradCyl
		h  coord.HessCyl
		hp *coord.HessCyl
	)
	if hess != nil {
		hp = &h
	}
	phi = pot.Eval(pc, &g, hp)
	if grad != nil {
		*grad = coord.ToGradCar(pc, g)
	}
	if hess != nil {
		*hess = coord.ToHessCar(pc, g, h)
	}
	return
}

// LaplacianDensity computes the density implied by a potential through the
// Poisson equation, rho = Laplacian(Phi) / (4 pi). On the z axis the term
// dPhi/dR / R is replaced by its limit d2Phi/dR2.
func LaplacianDensity(pot Potential, pos coord.PosCyl) float64 {
	var (
		g coord.GradCyl
		h coord.HessCyl
	)
	pot.Eval(pos, &g, &h)
	dRoverR := h.DR2
	if pos.R != 0 {
		dRoverR = g.DR / pos.R
	}
	return (h.DR2 + dRoverR + h.Dz2) / (4 * math.Pi)
}
