package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"perknexus/internal/catalog"
)

func TestEstimateFixedReturnsValue(t *testing.T) {
	assert.Equal(t, 15.0, Estimate(catalog.KindFixed, 15))
	assert.Equal(t, 7.5, Estimate(catalog.KindFixed, 7.5))
	assert.Equal(t, 0.0, Estimate(catalog.KindFixed, 0))
}

func TestEstimatePercentageOfReferencePurchase(t *testing.T) {
	// With a 100-unit reference purchase, a v% discount saves v units.
	assert.Equal(t, 20.0, Estimate(catalog.KindPercentage, 20))
	assert.Equal(t, 50.0, Estimate(catalog.KindPercentage, 50))
	assert.Equal(t, 12.5, Estimate(catalog.KindPercentage, 12.5))
}

func TestEstimateFallbackForOtherKinds(t *testing.T) {
	assert.Equal(t, FallbackEstimate, Estimate(catalog.KindBuyXGetY, 3))
	assert.Equal(t, FallbackEstimate, Estimate(catalog.KindFreeItem, 0))
	assert.Equal(t, FallbackEstimate, Estimate(catalog.DiscountKind("mystery"), 99))
}
