package potential

import (
	"fmt"
	"math"

	"github.com/notargets/galpot/coord"
	"github.com/notargets/galpot/utils"
)

// SpheroidParams describes a flattened two-power-law density profile
type SpheroidParams struct {
	DensityNorm       float64 `json:"densityNorm"`       // rho0
	AxisRatio         float64 `json:"axisRatio"`         // q = z/R, in (0,1]
	Gamma             float64 `json:"gamma"`             // inner slope
	Beta              float64 `json:"beta"`              // outer slope
	ScaleRadius       float64 `json:"scaleRadius"`       // r0
	OuterCutoffRadius float64 `json:"outerCutoffRadius"` // rt, 0 disables the cutoff
}

func (p SpheroidParams) Validate() error {
	if !utils.IsFinite([]float64{p.DensityNorm, p.AxisRatio, p.Gamma, p.Beta,
		p.ScaleRadius, p.OuterCutoffRadius}) {
		return fmt.Errorf("%w: spheroid parameters must be finite: %+v", ErrInvalidParams, p)
	}
	switch {
	case p.AxisRatio <= 0 || p.AxisRatio > 1:
		return fmt.Errorf("%w: spheroid axis ratio must be in (0,1], got %g", ErrInvalidParams, p.AxisRatio)
	case p.Gamma >= 3:
		return fmt.Errorf("%w: spheroid inner slope must be < 3 for a finite central mass, got %g",
			ErrInvalidParams, p.Gamma)
	case p.ScaleRadius <= 0:
		return fmt.Errorf("%w: spheroid scale radius must be positive, got %g", ErrInvalidParams, p.ScaleRadius)
	case p.OuterCutoffRadius < 0:
		return fmt.Errorf("%w: spheroid cutoff radius must be non-negative, got %g",
			ErrInvalidParams, p.OuterCutoffRadius)
	case p.OuterCutoffRadius == 0 && p.Beta <= 2:
		return fmt.Errorf("%w: spheroid outer slope must be > 2 without a cutoff, got %g",
			ErrInvalidParams, p.Beta)
	}
	return nil
}

// SpheroidDensity is the profile
//
//	rho = rho0 (s/r0)^-gamma (1 + s/r0)^(gamma-beta) exp[-(s/rt)^2],  s = sqrt(R^2 + z^2/q^2)
//
// It has no potential of its own; its whole mass is a multipole source.
type SpheroidDensity struct {
	params SpheroidParams
}

func NewSpheroidDensity(p SpheroidParams) (sd *SpheroidDensity, err error) {
	if err = p.Validate(); err != nil {
		return nil, err
	}
	return &SpheroidDensity{params: p}, nil
}

func (sd *SpheroidDensity) Name() string { return "TwoPowerLawSpheroid" }

func (sd *SpheroidDensity) Symmetry() coord.Symmetry {
	if sd.params.AxisRatio == 1 {
		return coord.SymmetrySpherical
	}
	return coord.SymmetryAxisymmetric
}

func (sd *SpheroidDensity) Params() SpheroidParams { return sd.params }

func (sd *SpheroidDensity) Density(pos coord.PosCyl) (rho float64) {
	var (
		p  = sd.params
		zq = pos.Z / p.AxisRatio
		s  = math.Sqrt(pos.R*pos.R + zq*zq)
		m  = s / p.ScaleRadius
	)
	rho = p.DensityNorm * math.Pow(m, -p.Gamma) * math.Pow(1+m, p.Gamma-p.Beta)
	if p.OuterCutoffRadius > 0 {
		rho *= math.Exp(-utils.POW(s/p.OuterCutoffRadius, 2))
	}
	return
}
