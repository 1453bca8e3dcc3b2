package projection

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoundCents(t *testing.T) {
	assert.Equal(t, 58.5, roundCents(58.5))
	assert.Equal(t, 1.01, roundCents(1.005))
	assert.Equal(t, 33.33, roundCents(100.0/3))
	assert.Equal(t, 0.0, roundCents(0))
}

func TestSumCents(t *testing.T) {
	assert.Equal(t, 0.3, sumCents([]float64{0.1, 0.2}))
	assert.Equal(t, 0.0, sumCents(nil))
	assert.Equal(t, 268.5, sumCents([]float64{120, 90, 58.5}))
}
