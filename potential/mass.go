package potential

import (
	"math"

	"github.com/notargets/galpot/coord"
	"gonum.org/v1/gonum/integrate/quad"
)

const (
	// e-folds in radius integrated below the requested radius
	massLogSpan   = 30
	massQuadOrder = 16
	// e-folds beyond unit radius tried before the total mass is taken as infinite
	massMaxEFolds = 200
	massTolerance = 1e-12
)

// EnclosedMass returns the mass of dens inside the sphere of radius r. The
// angle averaged density is integrated over ln(r) one e-fold at a time; mass
// further than massLogSpan e-folds inside r is dropped. A thin disk has no
// pointwise density and so no enclosed mass here.
func EnclosedMass(dens Density, r float64) (mass float64) {
	if !(r > 0) {
		return 0
	}
	var (
		shell = sphericalShell(dens)
		lnr   = math.Log(r)
	)
	for i := 0; i < massLogSpan; i++ {
		mass += quad.Fixed(shell, lnr-float64(i+1), lnr-float64(i), massQuadOrder, quad.Legendre{}, 0)
	}
	return
}

// TotalMass continues EnclosedMass(dens, 1) outward one e-fold at a time
// until a shell adds less than massTolerance of the mass. It returns +Inf when
// that does not happen within massMaxEFolds, as for densities falling no
// faster than r^-3.
func TotalMass(dens Density) (mass float64) {
	shell := sphericalShell(dens)
	mass = EnclosedMass(dens, 1)
	for i := 0; i < massMaxEFolds; i++ {
		dm := quad.Fixed(shell, float64(i), float64(i+1), massQuadOrder, quad.Legendre{}, 0)
		mass += dm
		if mass > 0 && math.Abs(dm) <= massTolerance*mass {
			return
		}
	}
	if mass == 0 {
		return
	}
	return math.Inf(1)
}

// sphericalShell returns dM/dln(r), the z-symmetrised density averaged with
// the multipole angular rule
func sphericalShell(dens Density) func(x float64) float64 {
	mu, w := angularRule()
	return func(x float64) float64 {
		var (
			rr  = math.Exp(x)
			avg float64
		)
		for q, m := range mu {
			R, z := rr*math.Sqrt((1-m)*(1+m)), rr*m
			avg += w[q] * 0.5 * (dens.Density(coord.PosCyl{R: R, Z: z}) + dens.Density(coord.PosCyl{R: R, Z: -z}))
		}
		return 4 * math.Pi * rr * rr * rr * avg
	}
}

// CircularVelocity returns sqrt(R dPhi/dR) in the equatorial plane, or zero
// where the radial force points outward
func CircularVelocity(pot Potential, R float64) float64 {
	var g coord.GradCyl
	pot.Eval(coord.PosCyl{R: R}, &g, nil)
	return math.Sqrt(math.Max(0, R*g.DR))
}
