package utils

import (
	"math"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPartitionMap(t *testing.T) {
	getHisto := func(K, Np int) (histo map[int]int) {
		pm := NewPartitionMap(Np, K)
		histo = make(map[int]int)
		for np := 0; np < pm.ParallelDegree; np++ {
			histo[pm.GetBucketDimension(np)]++
		}
		return
	}
	getTotal := func(histo map[int]int) (total int) {
		for key, count := range histo {
			total += key * count
		}
		return
	}
	assert.Equal(t, map[int]int{0: 30, 1: 2}, getHisto(2, 32))
	assert.Equal(t, map[int]int{8: 32}, getHisto(256, 32))
	assert.Equal(t, map[int]int{8: 1, 9: 31}, getHisto(287, 32))
	for n := 40; n < 2000; n += 7 {
		var (
			keys   [2]float64
			keyNum int
		)
		histo := getHisto(n, 12)
		for key := range histo {
			keys[keyNum] = float64(key)
			keyNum++
		}
		if keyNum == 2 {
			assert.Equal(t, 1., math.Abs(keys[0]-keys[1])) // Maximum imbalance of 1
		}
		assert.Equal(t, n, getTotal(histo))
	}
	// buckets are contiguous and cover the range
	pm := NewPartitionMap(5, 23)
	next := 0
	for bn := 0; bn < pm.ParallelDegree; bn++ {
		kMin, kMax := pm.GetBucketRange(bn)
		assert.Equal(t, next, kMin)
		next = kMax
	}
	assert.Equal(t, 23, next)
}

func TestRunPartitioned(t *testing.T) {
	for _, pd := range []int{1, 3, 8, 50} {
		var (
			n     = 41
			out   = make([]int, n)
			calls int32
		)
		pm := NewPartitionMap(pd, n)
		pm.RunPartitioned(func(bn, kMin, kMax int) {
			atomic.AddInt32(&calls, 1)
			for k := kMin; k < kMax; k++ {
				out[k] = k * k
			}
		})
		for k := range out {
			assert.Equal(t, k*k, out[k])
		}
		// empty buckets are skipped
		assert.Equal(t, int32(min(pd, n)), calls)
	}
}
