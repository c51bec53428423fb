package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBroaden_GrowsEachLimitByLevel(t *testing.T) {
	limits := Broaden(2, 10, 30, 40, 5, 30, 40, 25)
	assert.Equal(t, 20, limits.ResultLimit)
	assert.Equal(t, 90, limits.SeedLimit)
	assert.Equal(t, 120, limits.RerankCap)
}

func TestBroaden_ClampsWhenExceedingMax(t *testing.T) {
	limits := Broaden(4, 10, 30, 40, 5, 30, 40, 25)
	assert.Equal(t, 25, limits.ResultLimit)
}
