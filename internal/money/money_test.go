package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToMinorUnits(t *testing.T) {
	assert.Equal(t, int64(19790), ToMinorUnits(197.90))
	assert.Equal(t, int64(100), ToMinorUnits(1))
	assert.Equal(t, int64(1), ToMinorUnits(0.01))
	// half rounds away from zero
	assert.Equal(t, int64(101), ToMinorUnits(1.005))
	assert.Equal(t, int64(0), ToMinorUnits(0))
}

func TestRoundTrip(t *testing.T) {
	assert.Equal(t, 197.9, FromMinorUnits(ToMinorUnits(197.90)))
	assert.Equal(t, 0.5, FromMinorUnits(50))
}

func TestRescaleHeuristic(t *testing.T) {
	// >= 1000 is assumed to be cents
	assert.Equal(t, 197.9, RescaleHeuristic(19790))
	assert.Equal(t, 10.0, RescaleHeuristic(1000))
	// below the threshold the value is taken as-is
	assert.Equal(t, 50.0, RescaleHeuristic(50))
	assert.Equal(t, 999.99, RescaleHeuristic(999.99))
}
