package kernel

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func testBarrierReducesOffers(t *testing.T, b Barrier, n int) {
	t.Helper()
	var wg sync.WaitGroup
	offers := make([]int64, n)
	for i := 0; i < n; i++ {
		offers[i] = int64(i * 3)
	}
	lastArrivals := make([]int64, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			lastArrivals[i] = b.Wait(offers[i])
		}(i)
	}
	wg.Wait()

	numLast := 0
	for _, r := range lastArrivals {
		if r == -1 {
			numLast++
		}
	}
	assert.Equal(t, 1, numLast, "exactly one caller should observe the last-arrival return")
	assert.Equal(t, int64(0), b.Min())
	assert.Equal(t, int64((n-1)*3), b.Max())

	var wantSum int64
	for _, o := range offers {
		wantSum += o
	}
	assert.Equal(t, wantSum, b.Sum())
}

func TestCondvarBarrierReducesOffers(t *testing.T) {
	testBarrierReducesOffers(t, NewCondvarBarrier(8), 8)
}

func TestSpinBarrierReducesOffers(t *testing.T) {
	testBarrierReducesOffers(t, NewSpinBarrier(8), 8)
}

func TestBarrierIgnoresNegativeOffers(t *testing.T) {
	b := NewCondvarBarrier(3)
	var wg sync.WaitGroup
	offers := []int64{-1, 4, -1}
	for _, o := range offers {
		wg.Add(1)
		go func(o int64) {
			defer wg.Done()
			b.Wait(o)
		}(o)
	}
	wg.Wait()
	assert.Equal(t, int64(4), b.Min())
	assert.Equal(t, int64(4), b.Max())
	assert.Equal(t, int64(4), b.Sum())
}

func TestBarrierReusableAcrossGenerations(t *testing.T) {
	b := NewCondvarBarrier(2)
	var wg sync.WaitGroup
	for gen := 0; gen < 3; gen++ {
		wg.Add(2)
		go func() { defer wg.Done(); b.Wait(1) }()
		go func() { defer wg.Done(); b.Wait(2) }()
		wg.Wait()
		assert.Equal(t, int64(1), b.Min())
		assert.Equal(t, int64(2), b.Max())
	}
}
