package coord

import "math"

// Symmetry describes the invariance properties advertised by a density or
// potential model. Larger values are stricter.
type Symmetry uint8

const (
	SymmetryNone Symmetry = iota
	SymmetryTriaxial
	SymmetryAxisymmetric
	SymmetrySpherical
)

func (s Symmetry) IsAxisymmetric() bool { return s >= SymmetryAxisymmetric }
func (s Symmetry) IsSpherical() bool    { return s == SymmetrySpherical }

func (s Symmetry) String() string {
	switch s {
	case SymmetryTriaxial:
		return "Triaxial"
	case SymmetryAxisymmetric:
		return "Axisymmetric"
	case SymmetrySpherical:
		return "Spherical"
	default:
		return "None"
	}
}

// Weakest returns the least strict of the given symmetries
func Weakest(syms ...Symmetry) (s Symmetry) {
	s = SymmetrySpherical
	for _, sym := range syms {
		if sym < s {
			s = sym
		}
	}
	return
}

type PosCyl struct {
	R, Z, Phi float64
}

type PosCar struct {
	X, Y, Z float64
}

// GradCyl holds the partial derivatives with respect to (R, z, phi)
type GradCyl struct {
	DR, Dz, Dphi float64
}

type GradCar struct {
	Dx, Dy, Dz float64
}

// HessCyl holds the second partial derivatives with respect to (R, z, phi)
type HessCyl struct {
	DR2, Dz2, Dphi2      float64
	DRdz, DRdphi, Dzdphi float64
}

type HessCar struct {
	Dx2, Dy2, Dz2    float64
	Dxdy, Dydz, Dxdz float64
}

func (p PosCyl) SphericalRadius() float64 { return math.Hypot(p.R, p.Z) }

func ToPosCyl(p PosCar) PosCyl {
	return PosCyl{R: math.Hypot(p.X, p.Y), Z: p.Z, Phi: math.Atan2(p.Y, p.X)}
}

func ToPosCar(p PosCyl) PosCar {
	sinPhi, cosPhi := math.Sincos(p.Phi)
	return PosCar{X: p.R * cosPhi, Y: p.R * sinPhi, Z: p.Z}
}

// ToGradCar converts the gradient of an axisymmetric function, given in
// cylindrical coordinates at pos, to cartesian coordinates.
func ToGradCar(pos PosCyl, g GradCyl) GradCar {
	sinPhi, cosPhi := math.Sincos(pos.Phi)
	return GradCar{Dx: g.DR * cosPhi, Dy: g.DR * sinPhi, Dz: g.Dz}
}

// ToHessCar converts the Hessian of an axisymmetric function to cartesian
// coordinates. On the z axis the term dPhi/dR / R is replaced by its limit
// d2Phi/dR2.
func ToHessCar(pos PosCyl, g GradCyl, h HessCyl) HessCar {
	var (
		sinPhi, cosPhi = math.Sincos(pos.Phi)
		dRoverR        float64
	)
	if pos.R == 0 {
		dRoverR = h.DR2
	} else {
		dRoverR = g.DR / pos.R
	}
	return HessCar{
		Dx2:  h.DR2*cosPhi*cosPhi + dRoverR*sinPhi*sinPhi,
		Dy2:  h.DR2*sinPhi*sinPhi + dRoverR*cosPhi*cosPhi,
		Dz2:  h.Dz2,
		Dxdy: (h.DR2 - dRoverR) * sinPhi * cosPhi,
		Dxdz: h.DRdz * cosPhi,
		Dydz: h.DRdz * sinPhi,
	}
}

// Add accumulates o into the receiver
func (g *GradCyl) Add(o GradCyl) {
	g.DR += o.DR
	g.Dz += o.Dz
	g.Dphi += o.Dphi
}

func (h *HessCyl) Add(o HessCyl) {
	h.DR2 += o.DR2
	h.Dz2 += o.Dz2
	h.Dphi2 += o.Dphi2
	h.DRdz += o.DRdz
	h.DRdphi += o.DRdphi
	h.Dzdphi += o.Dzdphi
}
