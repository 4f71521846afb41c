package pricing_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/neexbeast/ecobalance/internal/pricing"
)

func TestValidate(t *testing.T) {
	const minimum = 13098

	assert.Equal(t, pricing.Validation{}, pricing.Validate(minimum-1, minimum))
	assert.Equal(t, pricing.Validation{OK: true}, pricing.Validate(minimum, minimum))
	assert.Equal(t, pricing.Validation{OK: true, IsVIP: true}, pricing.Validate(minimum+1, minimum))
	assert.Equal(t, pricing.Validation{OK: true, IsVIP: true}, pricing.Validate(1<<40, minimum))
	assert.Equal(t, pricing.Validation{}, pricing.Validate(0, minimum))
}
