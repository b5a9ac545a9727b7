package utils

import "gonum.org/v1/gonum/mat"

// NewSymTriDiagonal builds a symmetric matrix with main diagonal d0 and
// first off-diagonal d1, len(d1) == len(d0)-1
func NewSymTriDiagonal(d0, d1 []float64) (Tri *mat.SymDense) {
	var (
		N = len(d0)
	)
	if len(d1) != N-1 {
		panic("off diagonal length must be one less than the diagonal")
	}
	Tri = mat.NewSymDense(N, nil)
	for i := 0; i < N; i++ {
		Tri.SetSym(i, i, d0[i])
		if i < N-1 {
			Tri.SetSym(i, i+1, d1[i])
		}
	}
	return
}
