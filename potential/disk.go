package potential

import (
	"fmt"
	"math"

	"github.com/notargets/galpot/coord"
	"github.com/notargets/galpot/utils"
)

// DiskParams describes a disk whose density is separable in cylindrical
// coordinates, rho(R,z) = f(R) h(z)
type DiskParams struct {
	SurfaceDensity      float64 `json:"surfaceDensity"`      // Sigma0
	ScaleLength         float64 `json:"scaleLength"`         // Rd
	ScaleHeight         float64 `json:"scaleHeight"`         // h: 0 thin, >0 exponential, <0 isothermal
	InnerCutoffRadius   float64 `json:"innerCutoffRadius"`   // R0, radius of the central hole
	ModulationAmplitude float64 `json:"modulationAmplitude"` // eps, adds eps*cos(R/Rd) to the exponent
}

func (p DiskParams) Validate() error {
	if !utils.IsFinite([]float64{p.SurfaceDensity, p.ScaleLength, p.ScaleHeight,
		p.InnerCutoffRadius, p.ModulationAmplitude}) {
		return fmt.Errorf("%w: disk parameters must be finite: %+v", ErrInvalidParams, p)
	}
	if p.ScaleLength <= 0 {
		return fmt.Errorf("%w: disk scale length must be positive, got %g", ErrInvalidParams, p.ScaleLength)
	}
	if p.InnerCutoffRadius < 0 {
		return fmt.Errorf("%w: disk inner cutoff radius must be non-negative, got %g",
			ErrInvalidParams, p.InnerCutoffRadius)
	}
	return nil
}

type diskFunctions struct {
	radial, vertical DiskFunction
}

func newDiskFunctions(p DiskParams) (df diskFunctions, err error) {
	if err = p.Validate(); err != nil {
		return
	}
	df = diskFunctions{
		radial:   NewRadialFunction(p),
		vertical: NewVerticalFunction(p),
	}
	return
}

// curvatureTerm returns 2 f'(r) [H(z) + z H'(z)] / r, taking the limit in the
// equatorial plane at r = 0
func curvatureTerm(r, z, dfr, H, dH float64) float64 {
	if r == 0 {
		return 0
	}
	return 2 * dfr * (H + z*dH) / r
}

// DiskDensity is the full separable disk density f(R) h(z). The thin disk
// has zero density away from z = 0.
type DiskDensity struct {
	fn diskFunctions
}

func NewDiskDensity(p DiskParams) (dd *DiskDensity, err error) {
	dd = &DiskDensity{}
	if dd.fn, err = newDiskFunctions(p); err != nil {
		return nil, err
	}
	return
}

func (dd *DiskDensity) Name() string             { return "Disk" }
func (dd *DiskDensity) Symmetry() coord.Symmetry { return coord.SymmetryAxisymmetric }

func (dd *DiskDensity) Density(pos coord.PosCyl) float64 {
	fR, _, _ := dd.fn.radial.Eval(pos.R)
	_, _, h := dd.fn.vertical.Eval(pos.Z)
	return fR * h
}

// DiskResidual is the density left over after subtracting the density of the
// DiskAnsatz potential from the disk density (Dehnen & Binney 1998, eq. 9):
//
//	rho_res = [f(R) - f(r)] h(z) - f''(r) H(z) - 2 f'(r) [H(z) + z H'(z)] / r
//
// with r the spherical radius.
type DiskResidual struct {
	fn diskFunctions
}

func NewDiskResidual(p DiskParams) (dr *DiskResidual, err error) {
	dr = &DiskResidual{}
	if dr.fn, err = newDiskFunctions(p); err != nil {
		return nil, err
	}
	return
}

func (dr *DiskResidual) Name() string             { return "DiskResidual" }
func (dr *DiskResidual) Symmetry() coord.Symmetry { return coord.SymmetryAxisymmetric }

func (dr *DiskResidual) Density(pos coord.PosCyl) float64 {
	var (
		R, z          = pos.R, pos.Z
		r             = math.Hypot(R, z)
		fR, _, _      = dr.fn.radial.Eval(R)
		fr, dfr, d2fr = dr.fn.radial.Eval(r)
		H, dH, h      = dr.fn.vertical.Eval(z)
	)
	return (fR-fr)*h - d2fr*H - curvatureTerm(r, z, dfr, H, dH)
}

// DiskAnsatz is the analytic part of a disk potential, 4 pi f(r) H(z)
type DiskAnsatz struct {
	fn diskFunctions
}

func NewDiskAnsatz(p DiskParams) (da *DiskAnsatz, err error) {
	da = &DiskAnsatz{}
	if da.fn, err = newDiskFunctions(p); err != nil {
		return nil, err
	}
	return
}

func (da *DiskAnsatz) Name() string             { return "DiskAnsatz" }
func (da *DiskAnsatz) Symmetry() coord.Symmetry { return coord.SymmetryAxisymmetric }

// Density is the Laplacian of the ansatz potential over 4 pi,
// f(r) h(z) + f''(r) H(z) + 2 f'(r) [H(z) + z H'(z)] / r. Added to the
// DiskResidual density it gives f(R) h(z).
func (da *DiskAnsatz) Density(pos coord.PosCyl) float64 {
	var (
		z             = pos.Z
		r             = math.Hypot(pos.R, z)
		fr, dfr, d2fr = da.fn.radial.Eval(r)
		H, dH, h      = da.fn.vertical.Eval(z)
	)
	return fr*h + d2fr*H + curvatureTerm(r, z, dfr, H, dH)
}

func (da *DiskAnsatz) Eval(pos coord.PosCyl, grad *coord.GradCyl, hess *coord.HessCyl) (phi float64) {
	var (
		R, z          = pos.R, pos.Z
		r             = math.Hypot(R, z)
		fr, dfr, d2fr = da.fn.radial.Eval(r)
		H, dH, h      = da.fn.vertical.Eval(z)
		fourPi        = 4 * math.Pi
	)
	phi = fourPi * fr * H
	if grad == nil && hess == nil {
		return
	}
	// derivatives of r; at the origin the direction cosines and the
	// curvature of r are multiplied by H(0) = 0 and drop out
	var rR, rz, rRR, rzz, rRz float64
	if r > 0 {
		rR, rz = R/r, z/r
		rRR, rzz, rRz = rz*rz/r, rR*rR/r, -rR*rz/r
	}
	if grad != nil {
		*grad = coord.GradCyl{
			DR: fourPi * dfr * rR * H,
			Dz: fourPi * (dfr*rz*H + fr*dH),
		}
	}
	if hess != nil {
		*hess = coord.HessCyl{
			DR2:  fourPi * (d2fr*rR*rR + dfr*rRR) * H,
			Dz2:  fourPi * ((d2fr*rz*rz+dfr*rzz)*H + 2*dfr*rz*dH + fr*h),
			DRdz: fourPi * ((d2fr*rR*rz+dfr*rRz)*H + dfr*rR*dH),
		}
	}
	return
}
