package spline

import (
	"fmt"
	"sort"

	"github.com/james-bowman/sparse"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// MinNodes is the smallest node count for which the quintic spline is fitted
// on a grid
const MinNodes = 6

// quinticSystem holds the node geometry of a quintic spline and the inverse
// of the linear system that yields the nodal second derivatives from the
// nodal values and first derivatives. The system enforces a continuous third
// derivative at interior nodes and a vanishing fourth derivative at the end
// nodes. It depends only on the abscissae, so one instance serves any number
// of data sets on the same nodes.
type quinticSystem struct {
	x, h []float64
	inv  *mat.Dense
}

func newQuinticSystem(x []float64) (qs *quinticSystem, err error) {
	var (
		n = len(x)
	)
	if n < 2 {
		return nil, fmt.Errorf("quintic spline needs at least 2 nodes, have %d", n)
	}
	qs = &quinticSystem{
		x: make([]float64, n),
		h: make([]float64, n-1),
	}
	copy(qs.x, x)
	for i := 0; i < n-1; i++ {
		qs.h[i] = x[i+1] - x[i]
		if !(qs.h[i] > 0) {
			return nil, fmt.Errorf("spline nodes must be strictly increasing, x[%d]=%g, x[%d]=%g",
				i, x[i], i+1, x[i+1])
		}
	}
	A := sparse.NewDOK(n, n)
	h := qs.h
	A.Set(0, 0, 36/h[0])
	A.Set(0, 1, -24/h[0])
	for j := 1; j < n-1; j++ {
		A.Set(j, j-1, -3/h[j-1])
		A.Set(j, j, 9*(1/h[j-1]+1/h[j]))
		A.Set(j, j+1, -3/h[j])
	}
	A.Set(n-1, n-2, -24/h[n-2])
	A.Set(n-1, n-1, 36/h[n-2])
	qs.inv = mat.NewDense(n, n, nil)
	if err = qs.inv.Inverse(A); err != nil {
		return nil, fmt.Errorf("quintic spline system: %w", err)
	}
	return
}

func (qs *quinticSystem) len() int { return len(qs.x) }

// secondDerivatives solves for the nodal second derivatives given nodal
// values f and first derivatives d, writing into s
func (qs *quinticSystem) secondDerivatives(f, d, s []float64) {
	rhs := make([]float64, len(qs.x))
	qs.fillRHS(f, d, rhs)
	for i := range s {
		s[i] = floats.Dot(qs.inv.RawRowView(i), rhs)
	}
}

// secondDerivativePair returns only the second derivatives at nodes k and
// k+1, the two an evaluation on interval k needs. rhs is scratch of the node
// count.
func (qs *quinticSystem) secondDerivativePair(f, d, rhs []float64, k int) (s0, s1 float64) {
	qs.fillRHS(f, d, rhs)
	return floats.Dot(qs.inv.RawRowView(k), rhs), floats.Dot(qs.inv.RawRowView(k+1), rhs)
}

func (qs *quinticSystem) fillRHS(f, d, rhs []float64) {
	var (
		n = len(qs.x)
		h = qs.h
	)
	rhs[0] = (360*(f[1]-f[0]) - h[0]*(192*d[0]+168*d[1])) / (h[0] * h[0] * h[0])
	for j := 1; j < n-1; j++ {
		hl, hr := h[j-1], h[j]
		rhs[j] = (60*(f[j+1]-f[j])-hr*(36*d[j]+24*d[j+1]))/(hr*hr*hr) -
			(60*(f[j]-f[j-1])-hl*(24*d[j-1]+36*d[j]))/(hl*hl*hl)
	}
	hl := h[n-2]
	rhs[n-1] = (360*(f[n-2]-f[n-1]) + hl*(168*d[n-2]+192*d[n-1])) / (hl * hl * hl)
}

// interval returns the index of the interval containing x, clamped to the
// grid so that points slightly outside use the end polynomial
func (qs *quinticSystem) interval(x float64) (i int) {
	i = sort.SearchFloat64s(qs.x, x) - 1
	if i < 0 {
		i = 0
	}
	if i > len(qs.x)-2 {
		i = len(qs.x) - 2
	}
	return
}

// hermite5 evaluates the quintic Hermite polynomial on an interval of width h
// with end values f0,f1, first derivatives d0,d1 and second derivatives s0,s1,
// at the scaled coordinate t in [0,1]. Derivatives are with respect to x.
func hermite5(t, h, f0, f1, d0, d1, s0, s1 float64) (v, dv, d2v float64) {
	var (
		t2, t3 = t * t, t * t * t
		t4, t5 = t3 * t, t3 * t2
	)
	H0 := 1 - 10*t3 + 15*t4 - 6*t5
	H2 := t - 6*t3 + 8*t4 - 3*t5
	H3 := -4*t3 + 7*t4 - 3*t5
	H4 := 0.5 * (t2 - 3*t3 + 3*t4 - t5)
	H5 := 0.5 * (t3 - 2*t4 + t5)

	dH0 := -30*t2 + 60*t3 - 30*t4
	dH2 := 1 - 18*t2 + 32*t3 - 15*t4
	dH3 := -12*t2 + 28*t3 - 15*t4
	dH4 := 0.5 * (2*t - 9*t2 + 12*t3 - 5*t4)
	dH5 := 0.5 * (3*t2 - 8*t3 + 5*t4)

	d2H0 := -60*t + 180*t2 - 120*t3
	d2H2 := -36*t + 96*t2 - 60*t3
	d2H3 := -24*t + 84*t2 - 60*t3
	d2H4 := 0.5 * (2 - 18*t + 36*t2 - 20*t3)
	d2H5 := 0.5 * (6*t - 24*t2 + 20*t3)

	df := f0 - f1
	hh := h * h
	v = f1 + df*H0 + h*(d0*H2+d1*H3) + hh*(s0*H4+s1*H5)
	dv = (df*dH0 + h*(d0*dH2+d1*dH3) + hh*(s0*dH4+s1*dH5)) / h
	d2v = (df*d2H0 + h*(d0*d2H2+d1*d2H3) + hh*(s0*d2H4+s1*d2H5)) / hh
	return
}

// Quintic1D is a piecewise quintic interpolant through given values and
// first derivatives with continuous derivatives up to third order.
type Quintic1D struct {
	sys     *quinticSystem
	f, d, s []float64
}

func NewQuintic1D(x, f, d []float64) (q *Quintic1D, err error) {
	if len(f) != len(x) || len(d) != len(x) {
		return nil, fmt.Errorf("quintic spline: len(x)=%d, len(f)=%d, len(d)=%d",
			len(x), len(f), len(d))
	}
	q = &Quintic1D{
		f: make([]float64, len(x)),
		d: make([]float64, len(x)),
		s: make([]float64, len(x)),
	}
	if q.sys, err = newQuinticSystem(x); err != nil {
		return nil, err
	}
	copy(q.f, f)
	copy(q.d, d)
	q.sys.secondDerivatives(q.f, q.d, q.s)
	return
}

// Eval returns the interpolated value and its first two derivatives at x
func (q *Quintic1D) Eval(x float64) (val, der, der2 float64) {
	i := q.sys.interval(x)
	h := q.sys.h[i]
	t := (x - q.sys.x[i]) / h
	return hermite5(t, h, q.f[i], q.f[i+1], q.d[i], q.d[i+1], q.s[i], q.s[i+1])
}

// SecondDerivatives returns a copy of the nodal second derivatives
func (q *Quintic1D) SecondDerivatives() (s []float64) {
	s = make([]float64, len(q.s))
	copy(s, q.s)
	return
}
