package quadrature

// Legendre fills P[l], dP[l] and d2P[l] for l = 0..lmax with the Legendre
// polynomial P_l(x) and its first two derivatives. Any of the output slices
// may be nil, otherwise they must have length lmax+1.
func Legendre(lmax int, x float64, P, dP, d2P []float64) {
	var (
		p  = make([]float64, lmax+1)
		dp = make([]float64, lmax+1)
	)
	p[0] = 1
	if lmax > 0 {
		p[1] = x
		dp[1] = 1
	}
	for l := 1; l < lmax; l++ {
		fl := float64(l)
		p[l+1] = ((2*fl+1)*x*p[l] - fl*p[l-1]) / (fl + 1)
		// P'_{l+1} = P'_{l-1} + (2l+1) P_l
		dp[l+1] = dp[l-1] + (2*fl+1)*p[l]
	}
	if P != nil {
		copy(P, p)
	}
	if dP != nil {
		copy(dP, dp)
	}
	if d2P != nil {
		d2P[0] = 0
		if lmax > 0 {
			d2P[1] = 0
		}
		for l := 1; l < lmax; l++ {
			d2P[l+1] = d2P[l-1] + float64(2*l+1)*dp[l]
		}
	}
}
