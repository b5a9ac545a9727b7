package potential

import (
	"fmt"
	"math"

	"github.com/notargets/galpot/coord"
)

// CompositeDensity is the sum of its component densities
type CompositeDensity struct {
	components []Density
}

func NewCompositeDensity(components ...Density) *CompositeDensity {
	cd := &CompositeDensity{components: make([]Density, len(components))}
	copy(cd.components, components)
	return cd
}

func (cd *CompositeDensity) Name() string { return "CompositeDensity" }

// Symmetry is the weakest symmetry of the components
func (cd *CompositeDensity) Symmetry() coord.Symmetry {
	syms := make([]coord.Symmetry, len(cd.components))
	for i, c := range cd.components {
		syms[i] = c.Symmetry()
	}
	return coord.Weakest(syms...)
}

func (cd *CompositeDensity) Density(pos coord.PosCyl) (rho float64) {
	for _, c := range cd.components {
		rho += c.Density(pos)
	}
	return
}

func (cd *CompositeDensity) Components() []Density {
	return append([]Density(nil), cd.components...)
}

// Composite is an ordered sum of potentials. Value, gradient and Hessian are
// the sums of those of the terms at the same point.
type Composite struct {
	terms []Potential
}

func NewComposite(terms ...Potential) *Composite {
	c := &Composite{terms: make([]Potential, len(terms))}
	copy(c.terms, terms)
	return c
}

func (c *Composite) Name() string { return "Composite" }

func (c *Composite) Symmetry() coord.Symmetry {
	syms := make([]coord.Symmetry, len(c.terms))
	for i, t := range c.terms {
		syms[i] = t.Symmetry()
	}
	return coord.Weakest(syms...)
}

func (c *Composite) Terms() []Potential {
	return append([]Potential(nil), c.terms...)
}

func (c *Composite) Density(pos coord.PosCyl) (rho float64) {
	for _, t := range c.terms {
		rho += t.Density(pos)
	}
	return
}

func (c *Composite) Eval(pos coord.PosCyl, grad *coord.GradCyl, hess *coord.HessCyl) (phi float64) {
	var (
		g  coord.GradCyl
		h  coord.HessCyl
		gp *coord.GradCyl
		hp *coord.HessCyl
	)
	if grad != nil {
		*grad = coord.GradCyl{}
		gp = &g
	}
	if hess != nil {
		*hess = coord.HessCyl{}
		hp = &h
	}
	for _, t := range c.terms {
		phi += t.Eval(pos, gp, hp)
		if grad != nil {
			grad.Add(g)
		}
		if hess != nil {
			hess.Add(h)
		}
	}
	return
}

// CreateGalaxyPotential assembles the potential of a galaxy made of separable
// disks and spheroids. Each disk contributes its DiskAnsatz as a term of its
// own and its DiskResidual to the source of a single Multipole, which also
// carries the whole of every spheroid. Zero-valued grid fields of mp are
// filled in from the components; see galaxyGridDefaults.
func CreateGalaxyPotential(disks []DiskParams, spheroids []SpheroidParams, mp MultipoleParams) (pot *Composite, err error) {
	var (
		terms   = make([]Potential, 0, len(disks)+1)
		sources = make([]Density, 0, len(disks)+len(spheroids))
	)
	for i, dp := range disks {
		var (
			da *DiskAnsatz
			dr *DiskResidual
		)
		if da, err = NewDiskAnsatz(dp); err != nil {
			return nil, fmt.Errorf("disk %d: %w", i, err)
		}
		if dr, err = NewDiskResidual(dp); err != nil {
			return nil, fmt.Errorf("disk %d: %w", i, err)
		}
		terms = append(terms, da)
		sources = append(sources, dr)
	}
	for i, sp := range spheroids {
		var sd *SpheroidDensity
		if sd, err = NewSpheroidDensity(sp); err != nil {
			return nil, fmt.Errorf("spheroid %d: %w", i, err)
		}
		sources = append(sources, sd)
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("%w: galaxy has no disk or spheroid", ErrInvalidParams)
	}
	mp = galaxyGridDefaults(disks, spheroids, mp)
	var mul *Multipole
	if mul, err = NewMultipole(NewCompositeDensity(sources...), mp); err != nil {
		return nil, fmt.Errorf("galaxy multipole: %w", err)
	}
	terms = append(terms, mul)
	return NewComposite(terms...), nil
}

// galaxyGridDefaults fills the zero-valued fields of mp. A zero grid extent
// is replaced by one spanning a tenth of the smallest to a hundred times the
// largest length scale of the components, and then the boundary slopes are
// taken from the spheroids: the steepest inner cusp and the shallowest outer
// slope among the spheroids without a cutoff.
func galaxyGridDefaults(disks []DiskParams, spheroids []SpheroidParams, mp MultipoleParams) MultipoleParams {
	def := DefaultMultipoleParams()
	if mp.NumNodes == 0 {
		mp.NumNodes = def.NumNodes
	}
	if mp.NumAngularNodes == 0 {
		mp.NumAngularNodes = def.NumAngularNodes
		if mp.LMax == 0 {
			mp.LMax = def.LMax
		}
	}
	if mp.RMin != 0 || mp.RMax != 0 {
		return mp
	}
	var (
		small, large = math.Inf(1), 0.
		betaSet      bool
	)
	for _, d := range disks {
		small, large = math.Min(small, d.ScaleLength), math.Max(large, d.ScaleLength)
		if d.ScaleHeight != 0 {
			small = math.Min(small, math.Abs(d.ScaleHeight))
		}
		if d.InnerCutoffRadius > 0 {
			small = math.Min(small, d.InnerCutoffRadius)
		}
	}
	mp.Gamma, mp.Beta = 0, def.Beta
	for _, s := range spheroids {
		small, large = math.Min(small, s.ScaleRadius), math.Max(large, s.ScaleRadius)
		mp.Gamma = math.Max(mp.Gamma, s.Gamma)
		if s.OuterCutoffRadius > 0 {
			large = math.Max(large, s.OuterCutoffRadius)
			continue
		}
		if !betaSet || s.Beta < mp.Beta {
			mp.Beta, betaSet = s.Beta, true
		}
	}
	mp.RMin, mp.RMax = 0.1*small, 100*large
	return mp
}
