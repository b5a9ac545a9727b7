package quadrature

import (
	"math"

	"github.com/notargets/galpot/utils"
	"gonum.org/v1/gonum/mat"
)

func gamma0(alpha, beta float64) float64 {
	ab1 := alpha + beta + 1.
	a1 := alpha + 1.
	b1 := beta + 1.
	return math.Gamma(a1) * math.Gamma(b1) * math.Pow(2, ab1) / ab1 / math.Gamma(ab1)
}

// JacobiGQ computes the N+1 Gauss quadrature nodes and weights on [-1,1] for
// the weight function (1-x)^alpha (1+x)^beta, using the eigen decomposition
// of the Jacobi matrix (Golub-Welsch). Nodes are returned in ascending order.
func JacobiGQ(alpha, beta float64, N int) (X, W []float64) {
	var (
		fac        float64
		h1, d0, d1 []float64
		VVr        *mat.Dense
	)
	if N == 0 {
		X = []float64{-(alpha - beta) / (alpha + beta + 2.)}
		W = []float64{gamma0(alpha, beta)}
		return
	}

	h1 = make([]float64, N+1)
	for i := 0; i < N+1; i++ {
		h1[i] = 2*float64(i) + alpha + beta
	}

	// main diagonal: diag(-(alpha^2-beta^2)./(h1+2)./h1), the doubled half
	// diagonal of J + J'
	d0 = make([]float64, N+1)
	fac = -(alpha*alpha - beta*beta)
	for i := 0; i < N+1; i++ {
		val := h1[i]
		d0[i] = fac / (val * (val + 2.))
	}
	// Handle division by zero
	eps := 1.e-16
	if alpha+beta < 10*eps {
		d0[0] = 0.
	}

	// 1st upper diagonal
	var ip1 float64
	d1 = make([]float64, N)
	for i := 0; i < N; i++ {
		ip1 = float64(i + 1)
		val := h1[i]
		d1[i] = 2. / (val + 2.)
		d1[i] *= math.Sqrt(ip1 * (ip1 + alpha + beta) * (ip1 + alpha) * (ip1 + beta) / ((val + 1.) * (val + 3.)))
	}

	JJ := utils.NewSymTriDiagonal(d0, d1)

	var eig mat.EigenSym
	ok := eig.Factorize(JJ, true)
	if !ok {
		panic("eigenvalue decomposition failed")
	}
	X = eig.Values(nil)

	VVr = mat.NewDense(len(X), len(X), nil)
	eig.VectorsTo(VVr)
	W = make([]float64, len(X))
	g0 := gamma0(alpha, beta)
	for i, v := range VVr.RawRowView(0) {
		W[i] = v * v * g0
	}
	return X, W
}

// GaussLegendre returns the n point Gauss-Legendre rule mapped onto [a,b]
func GaussLegendre(n int, a, b float64) (X, W []float64) {
	if n < 1 {
		panic("Gauss-Legendre rule needs at least one node")
	}
	X, W = JacobiGQ(0, 0, n-1)
	var (
		half = 0.5 * (b - a)
		mid  = 0.5 * (b + a)
	)
	for i := range X {
		X[i] = mid + half*X[i]
		W[i] *= half
	}
	return
}
