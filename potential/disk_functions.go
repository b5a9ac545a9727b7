package potential

import (
	"math"

	"github.com/notargets/galpot/utils"
)

// DiskFunction is a one dimensional function returning its value and first
// two derivatives. The radial disk function returns f(R), f'(R), f''(R); the
// vertical one returns H(z), H'(z) and H''(z) = h(z), where H is the second
// antiderivative of the vertical density profile h with H(0) = H'(0) = 0.
type DiskFunction interface {
	Eval(x float64) (val, der, der2 float64)
}

var (
	_ DiskFunction = radialDisk{}
	_ DiskFunction = thinVertical{}
	_ DiskFunction = exponentialVertical{}
	_ DiskFunction = isothermalVertical{}
)

// f(R) = Sigma0 exp(-R0/R - R/Rd + eps cos(R/Rd))
type radialDisk struct {
	sigma0, scaleLength, innerCutoff, modulation float64
}

// NewRadialFunction returns the surface density law f(R) of a disk
func NewRadialFunction(p DiskParams) DiskFunction {
	return radialDisk{
		sigma0:      p.SurfaceDensity,
		scaleLength: p.ScaleLength,
		innerCutoff: p.InnerCutoffRadius,
		modulation:  p.ModulationAmplitude,
	}
}

func (f radialDisk) Eval(R float64) (val, der, der2 float64) {
	if f.innerCutoff > 0 && R <= 0 {
		return
	}
	var (
		Rd            = f.scaleLength
		sinx, cosx    = math.Sincos(R / Rd)
		expo          = -R/Rd + f.modulation*cosx
		dexpo, d2expo = -(1 + f.modulation*sinx) / Rd, -f.modulation * cosx / (Rd * Rd)
	)
	if f.innerCutoff > 0 {
		expo -= f.innerCutoff / R
		dexpo += f.innerCutoff / (R * R)
		d2expo -= 2 * f.innerCutoff / (R * R * R)
	}
	val = f.sigma0 * math.Exp(expo)
	if val == 0 {
		// the central hole underflows before its derivative terms overflow
		return 0, 0, 0
	}
	der = val * dexpo
	der2 = val * (dexpo*dexpo + d2expo)
	return
}

// NewVerticalFunction selects the vertical profile family from the sign of
// the scale height: zero gives an infinitesimally thin disk, positive an
// exponential and negative an isothermal (sech^2) profile.
func NewVerticalFunction(p DiskParams) DiskFunction {
	switch {
	case p.ScaleHeight > 0:
		return exponentialVertical{h: p.ScaleHeight}
	case p.ScaleHeight < 0:
		return isothermalVertical{h: -p.ScaleHeight}
	default:
		return thinVertical{}
	}
}

// h(z) = delta(z), H(z) = |z|/2. The delta function is not sampled pointwise.
type thinVertical struct{}

func (thinVertical) Eval(z float64) (val, der, der2 float64) {
	return 0.5 * math.Abs(z), 0.5 * utils.Sign(z), 0
}

// h(z) = exp(-|z|/h) / (2h)
type exponentialVertical struct{ h float64 }

func (v exponentialVertical) Eval(z float64) (val, der, der2 float64) {
	var (
		x = math.Abs(z) / v.h
		e = math.Exp(-x)
	)
	// h/2 (exp(-x) - 1 + x), written to keep precision at small x
	val = 0.5 * v.h * (x + math.Expm1(-x))
	der = -0.5 * utils.Sign(z) * math.Expm1(-x)
	der2 = 0.5 * e / v.h
	return
}

// h(z) = sech^2(z/(2h)) / (4h)
type isothermalVertical struct{ h float64 }

func (v isothermalVertical) Eval(z float64) (val, der, der2 float64) {
	var (
		x  = 0.5 * z / v.h
		th = math.Tanh(x)
	)
	val = v.h * utils.LogCosh(x)
	der = 0.5 * th
	der2 = 0.25 * (1 - th*th) / v.h
	return
}
