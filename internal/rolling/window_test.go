package rolling

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func fp(v float64) *float64 { return &v }

func TestPrior_ExcludesCurrent(t *testing.T) {
	xs := []int{1, 2, 3, 4, 5}

	assert.Nil(t, Prior(xs, 0, 3))
	assert.Equal(t, []int{1}, Prior(xs, 1, 3))
	assert.Equal(t, []int{1, 2, 3}, Prior(xs, 3, 3))
	assert.Equal(t, []int{2, 3, 4}, Prior(xs, 4, 3))
	assert.Equal(t, []int{3, 4, 5}, Prior(xs, 5, 3))
	assert.Nil(t, Prior(xs, 2, 0))
}

func TestMean_SkipsAbsent(t *testing.T) {
	mean, n := Mean([]*float64{fp(1), nil, fp(3)})
	assert.Equal(t, 2, n)
	assert.InDelta(t, 2.0, *mean, 1e-12)

	mean, n = Mean([]*float64{nil, nil})
	assert.Nil(t, mean)
	assert.Zero(t, n)
}

func TestCount(t *testing.T) {
	assert.Nil(t, Count(nil))
	assert.Equal(t, 2.0, *Count([]*float64{fp(0), nil, fp(0)}))
}
