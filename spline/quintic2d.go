package spline

import (
	"fmt"
	"sync"
)

// Table columns stored per (x node, y node)
const (
	ColF    = iota // f
	ColFx          // df/dx
	ColFy          // df/dy
	ColFxy         // d2f/dxdy
	ColFxx         // d2f/dx2, fitted
	ColFyxx        // d3f/dydx2, fitted
	numCols
)

// Deriv2D carries the value and the derivatives up to second order of a
// function of two variables
type Deriv2D struct {
	F, Fx, Fy     float64
	Fxx, Fxy, Fyy float64
}

// Quintic2D is a tensor product quintic spline on a rectilinear grid built
// from nodal values f, derivatives f_x, f_y and the cross derivative f_xy.
// Along x each grid line carries a pair of 1D quintic splines (for f and for
// f_y); along y the spline is rebuilt at evaluation time from the x-interpolated
// values and y-derivatives using the precomputed y system.
//
// A Quintic2D is immutable after construction and safe for concurrent use.
type Quintic2D struct {
	xs, ys  *quinticSystem
	table   []float64 // (i*Ny + j)*numCols + col
	scratch sync.Pool // *lineScratch
}

// lineScratch holds one grid line x = const interpolated from the table:
// values and y-derivatives with their first two x-derivatives, plus the right
// hand side of the y system
type lineScratch struct {
	g, gx, gxx []float64
	p, px, pxx []float64
	rhs        []float64
}

func newLineScratch(Ny int) *lineScratch {
	buf := make([]float64, 7*Ny)
	return &lineScratch{
		g: buf[0:Ny], gx: buf[Ny : 2*Ny], gxx: buf[2*Ny : 3*Ny],
		p: buf[3*Ny : 4*Ny], px: buf[4*Ny : 5*Ny], pxx: buf[5*Ny : 6*Ny],
		rhs: buf[6*Ny:],
	}
}

func NewQuintic2D(x, y []float64, f, fx, fy, fxy [][]float64) (q *Quintic2D, err error) {
	var (
		Nx, Ny = len(x), len(y)
	)
	for _, A := range [][][]float64{f, fx, fy, fxy} {
		if len(A) != Nx {
			return nil, fmt.Errorf("quintic 2D spline: table has %d rows, want %d", len(A), Nx)
		}
		for i := range A {
			if len(A[i]) != Ny {
				return nil, fmt.Errorf("quintic 2D spline: row %d has %d columns, want %d",
					i, len(A[i]), Ny)
			}
		}
	}
	q = &Quintic2D{
		table: make([]float64, Nx*Ny*numCols),
	}
	if q.xs, err = newQuinticSystem(x); err != nil {
		return nil, err
	}
	if q.ys, err = newQuinticSystem(y); err != nil {
		return nil, err
	}
	q.scratch.New = func() any { return newLineScratch(Ny) }
	var (
		col, dcol, s = make([]float64, Nx), make([]float64, Nx), make([]float64, Nx)
	)
	fitColumn := func(j int, A, dA [][]float64, dst int) {
		for i := 0; i < Nx; i++ {
			col[i], dcol[i] = A[i][j], dA[i][j]
		}
		q.xs.secondDerivatives(col, dcol, s)
		for i := 0; i < Nx; i++ {
			q.table[q.index(i, j, dst)] = s[i]
		}
	}
	for i := 0; i < Nx; i++ {
		for j := 0; j < Ny; j++ {
			q.table[q.index(i, j, ColF)] = f[i][j]
			q.table[q.index(i, j, ColFx)] = fx[i][j]
			q.table[q.index(i, j, ColFy)] = fy[i][j]
			q.table[q.index(i, j, ColFxy)] = fxy[i][j]
		}
	}
	for j := 0; j < Ny; j++ {
		fitColumn(j, f, fx, ColFxx)
		fitColumn(j, fy, fxy, ColFyxx)
	}
	return
}

func (q *Quintic2D) index(i, j, col int) int {
	return (i*q.ys.len()+j)*numCols + col
}

// At returns the stored table entry for node (i,j), panicking on an out of
// range index
func (q *Quintic2D) At(i, j, col int) float64 {
	if i < 0 || i >= q.xs.len() || j < 0 || j >= q.ys.len() || col < 0 || col >= numCols {
		panic(fmt.Sprintf("quintic 2D spline: index (%d,%d,%d) out of range", i, j, col))
	}
	return q.table[q.index(i, j, col)]
}

func (q *Quintic2D) Dims() (Nx, Ny int) { return q.xs.len(), q.ys.len() }

func (q *Quintic2D) NodesX() (x []float64) {
	x = make([]float64, q.xs.len())
	copy(x, q.xs.x)
	return
}

func (q *Quintic2D) NodesY() (y []float64) {
	y = make([]float64, q.ys.len())
	copy(y, q.ys.x)
	return
}

// Eval interpolates the function and its derivatives up to second order at (x,y)
func (q *Quintic2D) Eval(x, y float64) (d Deriv2D) {
	var (
		Ny = q.ys.len()
		i  = q.xs.interval(x)
		hx = q.xs.h[i]
		tx = (x - q.xs.x[i]) / hx
		ls = q.scratch.Get().(*lineScratch)
	)
	defer q.scratch.Put(ls)
	for j := 0; j < Ny; j++ {
		a, b := q.index(i, j, 0), q.index(i+1, j, 0)
		lo, hi := q.table[a:a+numCols], q.table[b:b+numCols]
		ls.g[j], ls.gx[j], ls.gxx[j] = hermite5(tx, hx,
			lo[ColF], hi[ColF], lo[ColFx], hi[ColFx], lo[ColFxx], hi[ColFxx])
		ls.p[j], ls.px[j], ls.pxx[j] = hermite5(tx, hx,
			lo[ColFy], hi[ColFy], lo[ColFxy], hi[ColFxy], lo[ColFyxx], hi[ColFyxx])
	}
	var (
		k  = q.ys.interval(y)
		hy = q.ys.h[k]
		ty = (y - q.ys.x[k]) / hy
	)
	s0, s1 := q.ys.secondDerivativePair(ls.g, ls.p, ls.rhs, k)
	d.F, d.Fy, d.Fyy = hermite5(ty, hy, ls.g[k], ls.g[k+1], ls.p[k], ls.p[k+1], s0, s1)
	s0, s1 = q.ys.secondDerivativePair(ls.gx, ls.px, ls.rhs, k)
	d.Fx, d.Fxy, _ = hermite5(ty, hy, ls.gx[k], ls.gx[k+1], ls.px[k], ls.px[k+1], s0, s1)
	s0, s1 = q.ys.secondDerivativePair(ls.gxx, ls.pxx, ls.rhs, k)
	d.Fxx, _, _ = hermite5(ty, hy, ls.gxx[k], ls.gxx[k+1], ls.pxx[k], ls.pxx[k+1], s0, s1)
	return
}
