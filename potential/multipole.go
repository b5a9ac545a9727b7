package potential

import (
	"fmt"
	"math"
	"runtime"

	kitlog "github.com/go-kit/kit/log"
	"github.com/notargets/galpot/coord"
	"github.com/notargets/galpot/quadrature"
	"github.com/notargets/galpot/spline"
	"github.com/notargets/galpot/utils"
	"gonum.org/v1/gonum/floats"
)

const (
	// Gauss points per ln(r) interval of the radial grid
	radialQuadOrder  = 8
	// Gauss points per segment of the angular moment integral
	angularQuadOrder = 12
)

// Segments of |cos(theta)| for the angular moment integral, graded toward the
// equatorial plane where disk residuals vary fastest
var angularSegments = []float64{0, 0.005, 0.02, 0.06, 0.15, 0.35, 0.65, 1}

// MultipoleParams sets the grid and the boundary behavior of a Multipole
type MultipoleParams struct {
	RMin            float64       `json:"rMin"`            // inner radius of the spline grid
	RMax            float64       `json:"rMax"`            // outer radius of the spline grid
	NumNodes        int           `json:"numNodes"`        // radial nodes, logarithmically spaced
	Gamma           float64       `json:"gamma"`           // density slope assumed inside RMin
	Beta            float64       `json:"beta"`            // density slope assumed outside RMax
	LMax            int           `json:"lMax"`            // highest harmonic order, even
	NumAngularNodes int           `json:"numAngularNodes"` // spline nodes in |cos(theta)|
	ParallelDegree  int           `json:"parallelDegree"`  // goroutines computing moments, 0 uses all CPUs
	Logger          kitlog.Logger `json:"-"`               // construction progress, nil discards
}

func DefaultMultipoleParams() MultipoleParams {
	return MultipoleParams{
		RMin:            1e-4,
		RMax:            1e3,
		NumNodes:        101,
		Gamma:           0,
		Beta:            4,
		LMax:            16,
		NumAngularNodes: 17,
	}
}

func (mp MultipoleParams) Validate() error {
	switch {
	case !(mp.RMin > 0) || !(mp.RMax > mp.RMin) || math.IsInf(mp.RMax, 1):
		return fmt.Errorf("%w: need 0 < RMin < RMax < Inf, got RMin=%g, RMax=%g",
			ErrGridExtent, mp.RMin, mp.RMax)
	case mp.NumNodes < spline.MinNodes:
		return fmt.Errorf("%w: %d radial nodes, need at least %d", ErrTooFewNodes, mp.NumNodes, spline.MinNodes)
	case mp.NumAngularNodes < spline.MinNodes:
		return fmt.Errorf("%w: %d angular nodes, need at least %d",
			ErrTooFewNodes, mp.NumAngularNodes, spline.MinNodes)
	case !utils.IsFinite([]float64{mp.Gamma, mp.Beta}):
		return fmt.Errorf("%w: boundary slopes must be finite, gamma=%g, beta=%g", ErrInvalidParams, mp.Gamma, mp.Beta)
	case mp.Gamma >= 3:
		return fmt.Errorf("%w: inner density slope must be < 3, got %g", ErrInvalidParams, mp.Gamma)
	case mp.Beta <= 2:
		return fmt.Errorf("%w: outer density slope must be > 2, got %g", ErrInvalidParams, mp.Beta)
	case mp.LMax < 0 || mp.LMax%2 != 0:
		return fmt.Errorf("%w: harmonic order must be even and non-negative, got %d", ErrInvalidParams, mp.LMax)
	}
	return nil
}

// Multipole is the potential of an axisymmetric density, obtained from the
// even spherical harmonic moments of the density and stored as a quintic
// spline in (ln r, |cos(theta)|). Outside [RMin, RMax] each harmonic follows
// a two-term power law matched in value and slope to the boundary node.
//
// A Multipole is immutable after construction and safe for concurrent use.
type Multipole struct {
	params       MultipoleParams
	symmetry     coord.Symmetry
	grid         *spline.Quintic2D
	inner, outer *powerLawTail
}

func NewMultipole(src Density, mp MultipoleParams) (m *Multipole, err error) {
	if src == nil {
		return nil, fmt.Errorf("%w: nil multipole source", ErrInvalidParams)
	}
	if !src.Symmetry().IsAxisymmetric() {
		return nil, fmt.Errorf("%w: %s has %s symmetry", ErrNotAxisymmetric, src.Name(), src.Symmetry())
	}
	if err = mp.Validate(); err != nil {
		return nil, err
	}
	if mp.ParallelDegree <= 0 {
		mp.ParallelDegree = runtime.NumCPU()
	}
	logger := mp.Logger
	if logger == nil {
		logger = kitlog.NewNopLogger()
	}
	logger = kitlog.With(logger, "potential", "AxisymmetricMultipole", "source", src.Name())
	mp.Logger = logger

	var (
		K     = mp.NumNodes
		radii = make([]float64, K)
	)
	floats.LogSpan(radii, mp.RMin, mp.RMax)
	radii[0], radii[K-1] = mp.RMin, mp.RMax
	logger.Log("stage", "grid", "rMin", mp.RMin, "rMax", mp.RMax, "nodes", K,
		"lMax", mp.LMax, "angularNodes", mp.NumAngularNodes)

	sr, sw := radialSamples(radii)
	moments, err := densityMoments(src, sr, mp.LMax, mp.ParallelDegree)
	if err != nil {
		return nil, err
	}
	logger.Log("stage", "moments", "samples", len(sr), "parallelDegree", mp.ParallelDegree)

	phi, dphi := radialSolve(radii, sr, sw, moments, mp.Gamma, mp.Beta)
	for k := range phi {
		if i := utils.NonFiniteIndex(phi[k]); i >= 0 {
			return nil, fmt.Errorf("%w: potential harmonic l=%d at r=%g is %g", ErrNonFinite, 2*k, radii[i], phi[k][i])
		}
		if i := utils.NonFiniteIndex(dphi[k]); i >= 0 {
			return nil, fmt.Errorf("%w: force harmonic l=%d at r=%g is %g", ErrNonFinite, 2*k, radii[i], dphi[k][i])
		}
	}

	m = &Multipole{
		params:   mp,
		symmetry: src.Symmetry(),
	}
	if m.grid, err = fitGrid(radii, mp.NumAngularNodes, mp.LMax, phi, dphi); err != nil {
		return nil, err
	}
	var (
		nl           = len(phi)
		innerExp     = make([]float64, nl)
		innerExp2    = make([]float64, nl)
		outerExp     = make([]float64, nl)
		outerExp2    = make([]float64, nl)
		u0, v0       = make([]float64, nl), make([]float64, nl)
		u1, v1       = make([]float64, nl), make([]float64, nl)
		lastRadialIx = K - 1
	)
	for k := 0; k < nl; k++ {
		l := float64(2 * k)
		innerExp[k], outerExp[k] = l, -(l + 1)
		innerExp2[k], outerExp2[k] = l+2-mp.Gamma, 2-mp.Beta
		u0[k], v0[k] = phi[k][0], dphi[k][0]
		u1[k], v1[k] = phi[k][lastRadialIx], dphi[k][lastRadialIx]
	}
	m.inner = newPowerLawTail(mp.RMin, innerExp, innerExp2, u0, v0)
	m.outer = newPowerLawTail(mp.RMax, outerExp, outerExp2, u1, v1)
	logger.Log("stage", "ready", "phiCenter", m.Eval(coord.PosCyl{}, nil, nil),
		"phiRMin", phi[0][0], "phiRMax", phi[0][lastRadialIx], "mem", utils.GetMemUsage())
	return
}

// radialSamples returns the radii at which the density moments are sampled
// with their Gauss-Legendre weights in ln(r). Sample 0 is RMin and the last
// sample is RMax, both with zero weight; interval i of the grid holds samples
// 1+i*radialQuadOrder up to (i+1)*radialQuadOrder.
func radialSamples(radii []float64) (sr, sw []float64) {
	var (
		K  = len(radii)
		nq = radialQuadOrder
		ns = (K-1)*nq + 2
	)
	sr, sw = make([]float64, ns), make([]float64, ns)
	sr[0], sr[ns-1] = radii[0], radii[K-1]
	for i := 0; i < K-1; i++ {
		X, W := quadrature.GaussLegendre(nq, math.Log(radii[i]), math.Log(radii[i+1]))
		for q := 0; q < nq; q++ {
			s := 1 + i*nq + q
			sr[s], sw[s] = math.Exp(X[q]), W[q]
		}
	}
	return
}

// angularRule is a composite Gauss-Legendre rule on [0,1]
func angularRule() (mu, w []float64) {
	for i := 0; i < len(angularSegments)-1; i++ {
		X, W := quadrature.GaussLegendre(angularQuadOrder, angularSegments[i], angularSegments[i+1])
		mu = append(mu, X...)
		w = append(w, W...)
	}
	return
}

// densityMoments returns, for each sample radius, the even harmonic moments
//
//	rho_l(r) = (2l+1) Int_0^1 [rho(r,mu) + rho(r,-mu)]/2 P_l(mu) dmu,  l = 0,2..lmax
//
// Radii are split across goroutines; each writes only its own rows.
func densityMoments(src Density, sr []float64, lmax, parallelDegree int) (moments [][]float64, err error) {
	var (
		nl    = lmax/2 + 1
		mu, w = angularRule()
		plw   = make([][]float64, len(mu))
		P     = make([]float64, lmax+1)
	)
	for q := range mu {
		quadrature.Legendre(lmax, mu[q], P, nil, nil)
		plw[q] = make([]float64, nl)
		for k := 0; k < nl; k++ {
			plw[q][k] = float64(4*k+1) * w[q] * P[2*k]
		}
	}
	moments = make([][]float64, len(sr))
	pm := utils.NewPartitionMap(parallelDegree, len(sr))
	pm.RunPartitioned(func(_, kMin, kMax int) {
		for s := kMin; s < kMax; s++ {
			row := make([]float64, nl)
			for q, m := range mu {
				var (
					R = sr[s] * math.Sqrt((1-m)*(1+m))
					z = sr[s] * m
				)
				rho := 0.5 * (src.Density(coord.PosCyl{R: R, Z: z}) + src.Density(coord.PosCyl{R: R, Z: -z}))
				for k := range row {
					row[k] += rho * plw[q][k]
				}
			}
			moments[s] = row
		}
	})
	for s := range moments {
		if k := utils.NonFiniteIndex(moments[s]); k >= 0 {
			return nil, fmt.Errorf("%w: density moment l=%d at r=%g is %g",
				ErrNonFinite, 2*k, sr[s], moments[s][k])
		}
	}
	return
}

// radialSolve integrates each harmonic of the Poisson equation over the grid.
// With the scaled inner and outer integrals
//
//	I(r) = r^-(l+3) Int_0^r rho_l r'^(l+2) dr'
//	E(r) = r^(l-2)  Int_r^inf rho_l r'^(1-l) dr'
//
// the harmonic potential is Phi_l = -4 pi/(2l+1) r^2 (I + E) and its
// logarithmic derivative is -4 pi/(2l+1) r^2 (l E - (l+1) I). Below RMin
// harmonic l of the density is continued as r^(l-gamma), which keeps a regular
// (gamma = 0) density smooth at the centre; above RMax it falls as r^-beta.
func radialSolve(radii, sr, sw []float64, moments [][]float64, gamma, beta float64) (phi, dphi [][]float64) {
	var (
		K    = len(radii)
		nl   = len(moments[0])
		nq   = radialQuadOrder
		last = len(sr) - 1
		I, E = make([]float64, K), make([]float64, K)
	)
	phi, dphi = make([][]float64, nl), make([][]float64, nl)
	for k := 0; k < nl; k++ {
		l := float64(2 * k)
		I[0] = moments[0][k] / (2*l + 3 - gamma)
		for i := 0; i < K-1; i++ {
			var sum float64
			for q := 0; q < nq; q++ {
				s := 1 + i*nq + q
				sum += sw[s] * moments[s][k] * math.Pow(sr[s]/radii[i+1], l+3)
			}
			I[i+1] = I[i]*math.Pow(radii[i]/radii[i+1], l+3) + sum
		}
		E[K-1] = moments[last][k] / (beta + l - 2)
		for i := K - 2; i >= 0; i-- {
			var sum float64
			for q := 0; q < nq; q++ {
				s := 1 + i*nq + q
				sum += sw[s] * moments[s][k] * math.Pow(sr[s]/radii[i], 2-l)
			}
			E[i] = E[i+1]*math.Pow(radii[i+1]/radii[i], 2-l) + sum
		}
		fac := -4 * math.Pi / (2*l + 1)
		phi[k], dphi[k] = make([]float64, K), make([]float64, K)
		for i, r := range radii {
			phi[k][i] = fac * r * r * (I[i] + E[i])
			dphi[k][i] = fac * r * r * (l*E[i] - (l+1)*I[i])
		}
	}
	return
}

// fitGrid sums the harmonics on the (ln r, |cos(theta)|) nodes and fits the
// spline to the potential and its derivatives there
func fitGrid(radii []float64, nAng, lmax int, phi, dphi [][]float64) (grid *spline.Quintic2D, err error) {
	var (
		K     = len(radii)
		x     = make([]float64, K)
		mu    = make([]float64, nAng)
		P, dP = make([]float64, lmax+1), make([]float64, lmax+1)
		f, fx = newTable(K, nAng), newTable(K, nAng)
		fy    = newTable(K, nAng)
		fxy   = newTable(K, nAng)
	)
	for i, r := range radii {
		x[i] = math.Log(r)
	}
	floats.Span(mu, 0, 1)
	for j, m := range mu {
		quadrature.Legendre(lmax, m, P, dP, nil)
		for i := 0; i < K; i++ {
			for k := range phi {
				l := 2 * k
				f[i][j] += phi[k][i] * P[l]
				fx[i][j] += dphi[k][i] * P[l]
				fy[i][j] += phi[k][i] * dP[l]
				fxy[i][j] += dphi[k][i] * dP[l]
			}
		}
	}
	for _, A := range [][][]float64{f, fx, fy, fxy} {
		if !utils.IsFinite(A) {
			return nil, fmt.Errorf("%w: multipole grid values", ErrNonFinite)
		}
	}
	if grid, err = spline.NewQuintic2D(x, mu, f, fx, fy, fxy); err != nil {
		return nil, fmt.Errorf("multipole spline fit: %w", err)
	}
	return
}

func newTable(nr, nc int) (A [][]float64) {
	A = make([][]float64, nr)
	for i := range A {
		A[i] = make([]float64, nc)
	}
	return
}

func (m *Multipole) Name() string             { return "AxisymmetricMultipole" }
func (m *Multipole) Symmetry() coord.Symmetry { return m.symmetry }

func (m *Multipole) Params() MultipoleParams { return m.params }

// Grid returns the spline fitted on the (ln r, |cos(theta)|) nodes
func (m *Multipole) Grid() *spline.Quintic2D { return m.grid }

// Density is the density implied by the multipole potential
func (m *Multipole) Density(pos coord.PosCyl) float64 {
	return LaplacianDensity(m, pos)
}

func (m *Multipole) Eval(pos coord.PosCyl, grad *coord.GradCyl, hess *coord.HessCyl) float64 {
	r := math.Hypot(pos.R, pos.Z)
	if r == 0 {
		return m.evalOrigin(grad, hess)
	}
	var (
		lnr = math.Log(r)
		mu  = pos.Z / r
		c   = pos.R / r
		d   spline.Deriv2D
	)
	switch {
	case r < m.params.RMin:
		d = m.inner.eval(lnr, mu)
	case r > m.params.RMax:
		d = m.outer.eval(lnr, mu)
	default:
		// the grid holds the upper half, Phi is even in mu
		d = m.grid.Eval(lnr, math.Abs(mu))
		if mu < 0 {
			d.Fy, d.Fxy = -d.Fy, -d.Fxy
		}
	}
	if grad == nil && hess == nil {
		return d.F
	}
	var (
		xR, xz   = c / r, mu / r
		muR, muz = -mu * c / r, c * c / r
	)
	if grad != nil {
		*grad = coord.GradCyl{
			DR: d.Fx*xR + d.Fy*muR,
			Dz: d.Fx*xz + d.Fy*muz,
		}
	}
	if hess != nil {
		var (
			r2               = r * r
			xRR, xzz, xRz    = (1 - 2*c*c) / r2, (1 - 2*mu*mu) / r2, -2 * c * mu / r2
			muRR, muzz, muRz = mu * (3*c*c - 1) / r2, -3 * mu * c * c / r2, c * (3*mu*mu - 1) / r2
			cross            = xR*muz + xz*muR
		)
		*hess = coord.HessCyl{
			DR2:  d.Fxx*xR*xR + 2*d.Fxy*xR*muR + d.Fyy*muR*muR + d.Fx*xRR + d.Fy*muRR,
			Dz2:  d.Fxx*xz*xz + 2*d.Fxy*xz*muz + d.Fyy*muz*muz + d.Fx*xzz + d.Fy*muzz,
			DRdz: d.Fxx*xR*xz + d.Fxy*cross + d.Fyy*muR*muz + d.Fx*xRz + d.Fy*muRz,
		}
	}
	return d.F
}

// evalOrigin takes the r -> 0 limit of the inner power law, approached in the
// equatorial plane. Harmonics that stay finite contribute their constant
// terms; if any harmonic diverges, the fastest growing terms decide the sign
// of the infinite result. Only exponent two terms of l = 0, 2 contribute to
// the Hessian. For a source with a central density cusp the Hessian diverges;
// its finite part is returned.
func (m *Multipole) evalOrigin(grad *coord.GradCyl, hess *coord.HessCyl) (phi float64) {
	var (
		t    = m.inner
		nl   = len(t.p)
		P    = make([]float64, 2*nl-1)
		lead divergence
	)
	quadrature.Legendre(2*(nl-1), 0, P, nil, nil)
	for k := 0; k < nl; k++ {
		lim, div := t.limitAtZero(k)
		phi += P[2*k] * lim
		div.c *= P[2*k]
		switch {
		case div.dominates(lead):
			lead = div
		case div.c != 0 && div.sameOrder(lead):
			lead.c += div.c
		}
	}
	if lead.c != 0 {
		phi = math.Inf(int(utils.Sign(lead.c)))
	}
	if grad != nil {
		*grad = coord.GradCyl{}
	}
	if hess != nil {
		*hess = coord.HessCyl{}
		r02 := t.r0 * t.r0
		for k := 0; k < nl && k < 2; k++ {
			c := t.coefficient(k, 2) / r02
			if c == 0 {
				continue
			}
			if k == 0 {
				hess.DR2 += 2 * c
			} else {
				hess.DR2 -= c
			}
			hess.Dz2 += 2 * c
		}
	}
	return
}

// divergence is the leading term c (r/r0)^e, times ln(r0/r) when log is set,
// of a harmonic as r -> 0. It is zero when c == 0.
type divergence struct {
	e, c float64
	log  bool
}

// dominates reports whether d grows faster than o as r -> 0
func (d divergence) dominates(o divergence) bool {
	switch {
	case d.c == 0:
		return false
	case o.c == 0:
		return true
	case math.Abs(d.e-o.e) >= tailExponentTol:
		return d.e < o.e
	}
	return d.log && !o.log
}

func (d divergence) sameOrder(o divergence) bool {
	return math.Abs(d.e-o.e) < tailExponentTol && d.log == o.log
}

// powerLawTail continues each harmonic beyond a boundary radius r0 as
//
//	phi_l(r) = P (r/r0)^a + Q (r/r0)^b,  or (P + Q ln(r/r0)) (r/r0)^a when a = b
//
// with P and Q matched to the value u and the logarithmic derivative v of the
// harmonic at r0. Inside RMin a = l and b = l+2-gamma; outside a = -(l+1) and
// b = 2-beta.
type powerLawTail struct {
	r0, lnr0 float64
	a, b     []float64
	p, q     []float64
}

const tailExponentTol = 1e-10

func newPowerLawTail(r0 float64, a, b []float64, u, v []float64) (t *powerLawTail) {
	var (
		nl = len(a)
	)
	t = &powerLawTail{
		r0:   r0,
		lnr0: math.Log(r0),
		a:    make([]float64, nl),
		b:    make([]float64, nl),
		p:    make([]float64, nl),
		q:    make([]float64, nl),
	}
	copy(t.a, a)
	copy(t.b, b)
	for k := 0; k < nl; k++ {
		if t.degenerate(k) {
			t.p[k], t.q[k] = u[k], v[k]-a[k]*u[k]
			continue
		}
		t.p[k] = (b[k]*u[k] - v[k]) / (b[k] - a[k])
		t.q[k] = (v[k] - a[k]*u[k]) / (b[k] - a[k])
	}
	return
}

func (t *powerLawTail) degenerate(k int) bool {
	return math.Abs(t.a[k]-t.b[k]) < tailExponentTol
}

// harmonic returns phi_l and its first two derivatives in s = ln(r/r0)
func (t *powerLawTail) harmonic(k int, s float64) (f, fs, fss float64) {
	var (
		a, b = t.a[k], t.b[k]
		P, Q = t.p[k], t.q[k]
	)
	if t.degenerate(k) {
		e := math.Exp(a * s)
		g := P + Q*s
		f = g * e
		fs = (Q + a*g) * e
		fss = (2*a*Q + a*a*g) * e
		return
	}
	ea, eb := math.Exp(a*s), math.Exp(b*s)
	f = P*ea + Q*eb
	fs = a*P*ea + b*Q*eb
	fss = a*a*P*ea + b*b*Q*eb
	return
}

func (t *powerLawTail) eval(lnr, mu float64) (d spline.Deriv2D) {
	var (
		nl         = len(t.p)
		lmax       = 2 * (nl - 1)
		s          = lnr - t.lnr0
		P, dP, d2P = make([]float64, lmax+1), make([]float64, lmax+1), make([]float64, lmax+1)
	)
	quadrature.Legendre(lmax, mu, P, dP, d2P)
	for k := 0; k < nl; k++ {
		l := 2 * k
		f, fs, fss := t.harmonic(k, s)
		d.F += f * P[l]
		d.Fx += fs * P[l]
		d.Fxx += fss * P[l]
		d.Fy += f * dP[l]
		d.Fxy += fs * dP[l]
		d.Fyy += f * d2P[l]
	}
	return
}

// coefficient returns the coefficient of the (r/r0)^e term of harmonic k, or
// zero when the harmonic has no such term
func (t *powerLawTail) coefficient(k int, e float64) (c float64) {
	if math.Abs(t.a[k]-e) < tailExponentTol {
		c += t.p[k]
		if t.degenerate(k) {
			return
		}
	}
	if math.Abs(t.b[k]-e) < tailExponentTol {
		c += t.q[k]
	}
	return
}

// limitAtZero returns the finite r -> 0 limit of harmonic k, or its leading
// divergent term
func (t *powerLawTail) limitAtZero(k int) (lim float64, div divergence) {
	var (
		a, b = t.a[k], t.b[k]
		P, Q = t.p[k], t.q[k]
	)
	if t.degenerate(k) {
		switch {
		case a > tailExponentTol:
		case Q != 0:
			// Q ln(r/r0) = -Q ln(r0/r)
			div = divergence{e: math.Min(a, 0), c: -Q, log: true}
		case a < -tailExponentTol:
			div = divergence{e: a, c: P}
		default:
			lim = P
		}
		return
	}
	for _, term := range [][2]float64{{a, P}, {b, Q}} {
		e, c := term[0], term[1]
		switch {
		case c == 0 || e > tailExponentTol:
		case e < -tailExponentTol:
			if d := (divergence{e: e, c: c}); d.dominates(div) {
				div = d
			}
		default:
			lim += c
		}
	}
	return
}
