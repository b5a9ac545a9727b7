package potential

import (
	"math"
	"testing"

	"github.com/notargets/galpot/coord"
	"github.com/stretchr/testify/assert"
)

// checkDerivatives compares the gradient and Hessian returned by pot against
// central differences of its value and gradient
func checkDerivatives(t *testing.T, pot Potential, pos coord.PosCyl, relTol float64) {
	t.Helper()
	var (
		g    coord.GradCyl
		h    coord.HessCyl
		r    = pos.SphericalRadius()
		step = 1e-5 * r
	)
	pot.Eval(pos, &g, &h)
	shift := func(dR, dz float64) coord.PosCyl {
		return coord.PosCyl{R: pos.R + dR, Z: pos.Z + dz}
	}
	val := func(p coord.PosCyl) float64 { return pot.Eval(p, nil, nil) }
	grad := func(p coord.PosCyl) (gp coord.GradCyl) {
		pot.Eval(p, &gp, nil)
		return
	}
	var (
		dR     = (val(shift(step, 0)) - val(shift(-step, 0))) / (2 * step)
		dz     = (val(shift(0, step)) - val(shift(0, -step))) / (2 * step)
		gRp    = grad(shift(10*step, 0))
		gRm    = grad(shift(-10*step, 0))
		gzp    = grad(shift(0, 10*step))
		gzm    = grad(shift(0, -10*step))
		dR2    = (gRp.DR - gRm.DR) / (20 * step)
		dz2    = (gzp.Dz - gzm.Dz) / (20 * step)
		dRdz   = (gzp.DR - gzm.DR) / (20 * step)
		gScale = math.Max(math.Abs(g.DR), math.Abs(g.Dz))
		hScale = math.Max(math.Abs(h.DR2), math.Max(math.Abs(h.Dz2), math.Abs(h.DRdz)))
	)
	assert.InDeltaf(t, dR, g.DR, relTol*gScale, "dPhi/dR at %+v", pos)
	assert.InDeltaf(t, dz, g.Dz, relTol*gScale, "dPhi/dz at %+v", pos)
	assert.InDeltaf(t, dR2, h.DR2, relTol*hScale, "d2Phi/dR2 at %+v", pos)
	assert.InDeltaf(t, dz2, h.Dz2, relTol*hScale, "d2Phi/dz2 at %+v", pos)
	assert.InDeltaf(t, dRdz, h.DRdz, relTol*hScale, "d2Phi/dRdz at %+v", pos)
}

// finiteDifferenceLaplacian samples the potential on a five point stencil
// in each of R and z
func finiteDifferenceLaplacian(pot Potential, pos coord.PosCyl, step float64) float64 {
	val := func(dR, dz float64) float64 {
		return pot.Eval(coord.PosCyl{R: pos.R + dR, Z: pos.Z + dz}, nil, nil)
	}
	var (
		c    = val(0, 0)
		d2   = func(p, m float64) float64 { return (p - 2*c + m) / (step * step) }
		dRR  = d2(val(step, 0), val(-step, 0))
		dzz  = d2(val(0, step), val(0, -step))
		dR   = (val(step, 0) - val(-step, 0)) / (2 * step)
		lapl = dRR + dR/pos.R + dzz
	)
	return lapl / (4 * math.Pi)
}

type triaxialBlob struct{}

func (triaxialBlob) Density(pos coord.PosCyl) float64 { return math.Exp(-pos.SphericalRadius()) }
func (triaxialBlob) Symmetry() coord.Symmetry         { return coord.SymmetryTriaxial }
func (triaxialBlob) Name() string                     { return "TriaxialBlob" }

// poisonedCore is an axisymmetric density that turns NaN inside r = 1
type poisonedCore struct{}

func (poisonedCore) Density(pos coord.PosCyl) float64 {
	if pos.SphericalRadius() < 1 {
		return math.NaN()
	}
	return 1
}
func (poisonedCore) Symmetry() coord.Symmetry { return coord.SymmetryAxisymmetric }
func (poisonedCore) Name() string             { return "PoisonedCore" }
