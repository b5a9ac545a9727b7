package potential

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"

	kitlog "github.com/go-kit/kit/log"
	"github.com/notargets/galpot/coord"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// denseCore returns the potential and its radial derivatives of the
// gamma = 0, beta = 5 spheroid with rho0 = r0 = 1, together with its mass
func denseCore(r float64) (phi, dphi, d2phi, mass float64) {
	var (
		rho = math.Pow(1+r, -5)
	)
	phi = -math.Pi * (r*r + 3*r + 1) / (3 * math.Pow(1+r, 3))
	mass = math.Pi * r * r * r * (r + 4) / (3 * math.Pow(1+r, 4))
	dphi = mass / (r * r)
	d2phi = 4*math.Pi*rho - 2*mass/(r*r*r)
	return
}

func newDenseCoreMultipole(t *testing.T) *Multipole {
	t.Helper()
	sd, err := NewSpheroidDensity(SpheroidParams{DensityNorm: 1, AxisRatio: 1, Gamma: 0, Beta: 5, ScaleRadius: 1})
	require.NoError(t, err)
	m, err := NewMultipole(sd, MultipoleParams{
		RMin: 1e-4, RMax: 1e3, NumNodes: 81, Gamma: 0, Beta: 5, LMax: 4, NumAngularNodes: 9,
	})
	require.NoError(t, err)
	return m
}

func TestMultipoleSpherical(t *testing.T) {
	m := newDenseCoreMultipole(t)
	assert.Equal(t, "AxisymmetricMultipole", m.Name())
	assert.Equal(t, coord.SymmetrySpherical, m.Symmetry())
	nx, ny := m.Grid().Dims()
	assert.Equal(t, 81, nx)
	assert.Equal(t, 9, ny)

	// grid interior, inner power law and outer power law
	for _, r := range []float64{1e-5, 3e-3, 0.05, 0.5, 1, 3.7, 40, 250, 5e3, 1e5} {
		phi, dphi, d2phi, _ := denseCore(r)
		gradTol := 1e-5
		if r < m.Params().RMin {
			// the tail assumes a flat core, the profile has slope -5r
			gradTol = 1e-2
		}
		for _, mu := range []float64{-0.9, -0.2, 0, 0.45, 1} {
			var (
				c   = math.Sqrt(1 - mu*mu)
				pos = coord.PosCyl{R: r * c, Z: r * mu}
				g   coord.GradCyl
				h   coord.HessCyl
			)
			val := m.Eval(pos, &g, &h)
			assert.InEpsilonf(t, phi, val, 1e-6, "Phi at r=%g mu=%g", r, mu)
			assert.InDeltaf(t, dphi*c, g.DR, gradTol*dphi, "dPhi/dR at r=%g mu=%g", r, mu)
			assert.InDeltaf(t, dphi*mu, g.Dz, gradTol*dphi, "dPhi/dz at r=%g mu=%g", r, mu)
			if r < m.Params().RMin {
				continue
			}
			var (
				hScale = math.Max(math.Abs(d2phi), dphi/r)
				DR2    = d2phi*c*c + dphi/r*mu*mu
				Dz2    = d2phi*mu*mu + dphi/r*c*c
				DRdz   = (d2phi - dphi/r) * c * mu
			)
			assert.InDeltaf(t, DR2, h.DR2, 2e-4*hScale, "d2Phi/dR2 at r=%g mu=%g", r, mu)
			assert.InDeltaf(t, Dz2, h.Dz2, 2e-4*hScale, "d2Phi/dz2 at r=%g mu=%g", r, mu)
			assert.InDeltaf(t, DRdz, h.DRdz, 2e-4*hScale, "d2Phi/dRdz at r=%g mu=%g", r, mu)
		}
	}
}

func TestMultipoleOrigin(t *testing.T) {
	m := newDenseCoreMultipole(t)
	var (
		g = coord.GradCyl{DR: 1, Dz: 1}
		h coord.HessCyl
	)
	phi0 := m.Eval(coord.PosCyl{}, &g, &h)
	assert.InEpsilon(t, -math.Pi/3, phi0, 1e-6)
	assert.Equal(t, coord.GradCyl{}, g)
	assert.InEpsilon(t, 4*math.Pi/3, h.DR2, 1e-3)
	assert.InEpsilon(t, 4*math.Pi/3, h.Dz2, 1e-3)
	assert.Zero(t, h.DRdz)
	// the limit joins the values close to the center
	assert.InEpsilon(t, phi0, Value(m, coord.PosCyl{R: 1e-9}), 1e-12)
	assert.InEpsilon(t, phi0, Value(m, coord.PosCyl{Z: -1e-9}), 1e-12)
	// density from the Poisson equation
	assert.InEpsilon(t, 1, m.Density(coord.PosCyl{}), 1e-3)
}

func TestMultipoleCenterHessian(t *testing.T) {
	flat, err := NewSpheroidDensity(SpheroidParams{DensityNorm: 1, AxisRatio: 0.5, Gamma: 0, Beta: 4, ScaleRadius: 1})
	require.NoError(t, err)
	mp := DefaultMultipoleParams()
	mp.RMin, mp.RMax, mp.NumNodes = 1e-3, 1e3, 81
	m, err := NewMultipole(flat, mp)
	require.NoError(t, err)
	gal := newDiskGalaxy(t)

	// a flat core keeps the Hessian finite, the inner power law runs into
	// the value taken at r = 0
	for _, pot := range []Potential{m, gal.Terms()[1]} {
		var h0 coord.HessCyl
		pot.Eval(coord.PosCyl{}, nil, &h0)
		scale := math.Max(math.Abs(h0.DR2), math.Abs(h0.Dz2))
		require.Greater(t, scale, 0.)
		for _, r := range []float64{1e-4, 1e-6, 1e-8, 1e-12} {
			for _, pos := range []coord.PosCyl{{R: r}, {Z: r}, {Z: -r}} {
				var h coord.HessCyl
				pot.Eval(pos, nil, &h)
				assert.InDeltaf(t, h0.DR2, h.DR2, 1e-3*scale, "d2Phi/dR2 at R=%g z=%g", pos.R, pos.Z)
				assert.InDeltaf(t, h0.Dz2, h.Dz2, 1e-3*scale, "d2Phi/dz2 at R=%g z=%g", pos.R, pos.Z)
				assert.InDeltaf(t, 0, h.DRdz, 1e-3*scale, "d2Phi/dRdz at R=%g z=%g", pos.R, pos.Z)
			}
		}
	}
	// the oblate core pulls harder along z
	var h0 coord.HessCyl
	m.Eval(coord.PosCyl{}, nil, &h0)
	assert.Greater(t, h0.Dz2, h0.DR2)
	assert.InEpsilon(t, 1, m.Density(coord.PosCyl{}), 2e-2)
}

func TestMultipolePowerLaw(t *testing.T) {
	// rho = r^-2.5 has Phi = -16 pi r^-0.5, followed exactly by both tails
	sd, err := NewSpheroidDensity(SpheroidParams{DensityNorm: 1, AxisRatio: 1, Gamma: 2.5, Beta: 2.5, ScaleRadius: 1})
	require.NoError(t, err)
	mp := MultipoleParams{RMin: 0.1, RMax: 10, NumNodes: 25, Gamma: 2.5, Beta: 2.5, LMax: 2, NumAngularNodes: 7}
	m, err := NewMultipole(sd, mp)
	require.NoError(t, err)
	for _, r := range []float64{1e-4, 0.03, 0.1, 0.5, 2, 10, 70, 1e4} {
		var (
			pos = coord.PosCyl{R: 0.6 * r, Z: 0.8 * r}
			g   coord.GradCyl
		)
		want := -16 * math.Pi / math.Sqrt(r)
		assert.InEpsilonf(t, want, m.Eval(pos, &g, nil), 1e-6, "Phi at r=%g", r)
		assert.InEpsilonf(t, -0.5*want/r*0.6, g.DR, 1e-5, "dPhi/dR at r=%g", r)
		assert.InEpsilonf(t, -0.5*want/r*0.8, g.Dz, 1e-5, "dPhi/dz at r=%g", r)
	}

	// value and gradient are continuous across both ends of the grid
	for _, r0 := range []float64{mp.RMin, mp.RMax} {
		var (
			gIn, gOut coord.GradCyl
			in        = coord.PosCyl{R: r0 * (1 - 1e-9) * 0.6, Z: r0 * (1 - 1e-9) * 0.8}
			out       = coord.PosCyl{R: r0 * (1 + 1e-9) * 0.6, Z: r0 * (1 + 1e-9) * 0.8}
			phiIn     = m.Eval(in, &gIn, nil)
			phiOut    = m.Eval(out, &gOut, nil)
		)
		assert.InEpsilon(t, phiIn, phiOut, 1e-7)
		assert.InEpsilon(t, gIn.DR, gOut.DR, 1e-6)
		assert.InEpsilon(t, gIn.Dz, gOut.Dz, 1e-6)
	}

	// the cusp makes the central potential infinitely deep
	assert.True(t, math.IsInf(Value(m, coord.PosCyl{}), -1))
}

func TestMultipolePoisson(t *testing.T) {
	sd, err := NewSpheroidDensity(SpheroidParams{DensityNorm: 1, AxisRatio: 0.7, Gamma: 0, Beta: 4, ScaleRadius: 1})
	require.NoError(t, err)
	mp := DefaultMultipoleParams()
	mp.RMin, mp.RMax, mp.NumNodes = 1e-3, 1e3, 81
	m, err := NewMultipole(sd, mp)
	require.NoError(t, err)
	assert.Equal(t, coord.SymmetryAxisymmetric, m.Symmetry())

	for _, r := range []float64{0.2, 1, 4} {
		for _, mu := range []float64{0.1, 0.5, 0.85, -0.6} {
			pos := coord.PosCyl{R: r * math.Sqrt(1-mu*mu), Z: r * mu}
			rho := m.Density(pos)
			assert.InEpsilonf(t, sd.Density(pos), rho, 1e-2, "density at r=%g mu=%g", r, mu)
			assert.InEpsilonf(t, rho, finiteDifferenceLaplacian(m, pos, 1e-3*r), 1e-3,
				"finite difference density at r=%g mu=%g", r, mu)
			checkDerivatives(t, m, pos, 1e-4)
		}
	}
	// even in z
	for _, pos := range []coord.PosCyl{{R: 0.3, Z: 0.2}, {R: 2, Z: 5}, {R: 1e-5, Z: 3e-5}, {R: 3e3, Z: 1e3}} {
		var (
			g1, g2 coord.GradCyl
			h1, h2 coord.HessCyl
		)
		phi1 := m.Eval(pos, &g1, &h1)
		phi2 := m.Eval(coord.PosCyl{R: pos.R, Z: -pos.Z}, &g2, &h2)
		assert.InEpsilon(t, phi1, phi2, 1e-12)
		assert.InDelta(t, g1.DR, g2.DR, 1e-12*math.Abs(g1.DR))
		assert.InDelta(t, g1.Dz, -g2.Dz, 1e-12*math.Abs(g1.Dz))
		assert.InDelta(t, h1.DRdz, -h2.DRdz, 1e-12*math.Abs(h1.DRdz))
	}
}

func TestMultipoleDeterminism(t *testing.T) {
	sd, err := NewSpheroidDensity(SpheroidParams{DensityNorm: 2, AxisRatio: 0.5, Gamma: 1, Beta: 4, ScaleRadius: 0.7})
	require.NoError(t, err)
	mp := MultipoleParams{RMin: 1e-2, RMax: 1e2, NumNodes: 30, Gamma: 1, Beta: 4, LMax: 8, NumAngularNodes: 9}
	build := func(parallelDegree int) *Multipole {
		p := mp
		p.ParallelDegree = parallelDegree
		m, err := NewMultipole(sd, p)
		require.NoError(t, err)
		return m
	}
	var (
		m1     = build(1)
		m7     = build(7)
		mAgain = build(1)
		points = []coord.PosCyl{{R: 0.01, Z: 0.001}, {R: 0.5, Z: -0.5}, {R: 3}, {Z: 20}, {R: 400, Z: 300}}
	)
	evalAll := func(m *Multipole) (out [][4]float64) {
		for _, pos := range points {
			var g coord.GradCyl
			var h coord.HessCyl
			phi := m.Eval(pos, &g, &h)
			out = append(out, [4]float64{phi, g.DR, g.Dz, h.DRdz})
		}
		return
	}
	want := evalAll(m1)
	assert.Equal(t, want, evalAll(m7))
	assert.Equal(t, want, evalAll(mAgain))
	// repeated queries give the same answer
	assert.Equal(t, want, evalAll(m1))

	// concurrent queries on one instance
	var (
		wg      sync.WaitGroup
		results = make([][][4]float64, 8)
	)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = evalAll(m7)
		}(i)
	}
	wg.Wait()
	for _, res := range results {
		assert.Equal(t, want, res)
	}
}

func TestMultipoleErrors(t *testing.T) {
	sd, err := NewSpheroidDensity(SpheroidParams{DensityNorm: 1, AxisRatio: 1, Gamma: 0, Beta: 4, ScaleRadius: 1})
	require.NoError(t, err)
	good := MultipoleParams{RMin: 0.1, RMax: 10, NumNodes: 10, Gamma: 0, Beta: 4, LMax: 2, NumAngularNodes: 6}
	_, err = NewMultipole(sd, good)
	require.NoError(t, err)

	type testCase struct {
		name   string
		src    Density
		modify func(mp *MultipoleParams)
		want   error
	}
	for _, tc := range []testCase{
		{"triaxial source", triaxialBlob{}, nil, ErrNotAxisymmetric},
		{"nil source", nil, nil, ErrInvalidParams},
		{"zero inner radius", sd, func(mp *MultipoleParams) { mp.RMin = 0 }, ErrGridExtent},
		{"inverted extent", sd, func(mp *MultipoleParams) { mp.RMax = mp.RMin }, ErrGridExtent},
		{"infinite extent", sd, func(mp *MultipoleParams) { mp.RMax = math.Inf(1) }, ErrGridExtent},
		{"five radial nodes", sd, func(mp *MultipoleParams) { mp.NumNodes = 5 }, ErrTooFewNodes},
		{"three angular nodes", sd, func(mp *MultipoleParams) { mp.NumAngularNodes = 3 }, ErrTooFewNodes},
		{"inner slope", sd, func(mp *MultipoleParams) { mp.Gamma = 3 }, ErrInvalidParams},
		{"outer slope", sd, func(mp *MultipoleParams) { mp.Beta = 2 }, ErrInvalidParams},
		{"odd harmonic order", sd, func(mp *MultipoleParams) { mp.LMax = 3 }, ErrInvalidParams},
		{"negative harmonic order", sd, func(mp *MultipoleParams) { mp.LMax = -2 }, ErrInvalidParams},
		{"nan slope", sd, func(mp *MultipoleParams) { mp.Beta = math.NaN() }, ErrInvalidParams},
		{"nan density", poisonedCore{}, nil, ErrNonFinite},
	} {
		t.Run(tc.name, func(t *testing.T) {
			mp := good
			if tc.modify != nil {
				tc.modify(&mp)
			}
			m, err := NewMultipole(tc.src, mp)
			assert.Nil(t, m)
			assert.Truef(t, errors.Is(err, tc.want), "got %v", err)
		})
	}
}

func TestMultipoleLogging(t *testing.T) {
	var (
		buf bytes.Buffer
		mp  = DefaultMultipoleParams()
	)
	mp.NumNodes, mp.LMax, mp.NumAngularNodes = 20, 2, 6
	mp.Logger = kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(&buf))
	sd, err := NewSpheroidDensity(SpheroidParams{DensityNorm: 1, AxisRatio: 1, Beta: 4, ScaleRadius: 1})
	require.NoError(t, err)
	_, err = NewMultipole(sd, mp)
	require.NoError(t, err)
	out := buf.String()
	for _, stage := range []string{"stage=grid", "stage=moments", "stage=ready"} {
		assert.Contains(t, out, stage)
	}
	assert.Equal(t, 3, strings.Count(out, "source=TwoPowerLawSpheroid"))
}

func TestCircularVelocity(t *testing.T) {
	m := newDenseCoreMultipole(t)
	for _, R := range []float64{0.01, 0.7, 2, 50} {
		_, _, _, mass := denseCore(R)
		assert.InEpsilon(t, math.Sqrt(mass/R), CircularVelocity(m, R), 1e-5)
	}
	assert.Zero(t, CircularVelocity(m, 0))
}
