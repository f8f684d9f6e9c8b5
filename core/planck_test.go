package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanckIntegralReference(t *testing.T) {
	got := PlanckIntegral(5778, 4000e-10, 7000e-10)
	assert.InEpsilon(t, 7359875.725388271, got, 1e-5)
}

func TestPlanckIntegralIsOrderIndependent(t *testing.T) {
	a := PlanckIntegral(5778, 4000e-10, 7000e-10)
	b := PlanckIntegral(5778, 7000e-10, 4000e-10)
	require.Equal(t, a, b)
	assert.Zero(t, PlanckIntegral(5778, 5000e-10, 5000e-10))
}

func TestCoolerSpotIsDimmer(t *testing.T) {
	ratio := PlanckIntegral(5115, 4000e-10, 7000e-10) / PlanckIntegral(5778, 4000e-10, 7000e-10)
	assert.InDelta(t, 0.5452, ratio, 1e-3)
}

func TestPlanckPeaksNearWien(t *testing.T) {
	// Wien's law puts the 5778 K peak near 501.5 nm.
	assert.Greater(t, Planck(500e-9, 5778), Planck(400e-9, 5778))
	assert.Greater(t, Planck(500e-9, 5778), Planck(700e-9, 5778))
}
