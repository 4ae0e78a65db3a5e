package particlefilter

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

// singleParticle returns a filter holding one particle at pose with the
// given landmark std-devs.
func singleParticle(t *testing.T, pose Pose, sx, sy float64) *ParticleFilter {
	t.Helper()
	cfg := testConfig(1)
	cfg.PositionStd = [3]float64{0, 0, 0}
	cfg.LandmarkStd = [2]float64{sx, sy}
	pf := New()
	require.NoError(t, pf.Init(pose, cfg, rand.NewSource(1)))
	return pf
}

func peak(sx, sy float64) float64 {
	return 1 / (2 * math.Pi * sx * sy)
}

func TestLikelihood(t *testing.T) {
	t.Parallel()

	sx, sy := 0.3, 0.5
	for _, off := range [][2]float64{{0, 0}, {0.1, -0.2}, {1, 1}, {-0.7, 0.05}} {
		dx, dy := off[0], off[1]
		want := peak(sx, sy) * math.Exp(-(dx*dx/(2*sx*sx) + dy*dy/(2*sy*sy)))
		assert.InDelta(t, want, Likelihood(dx, dy, sx, sy), 1e-12, "offset %v", off)
	}
}

func TestVisibleLandmarks(t *testing.T) {
	t.Parallel()

	landmarks := []Landmark{
		{X: 3, Y: 4, ID: 1},   // exactly at range
		{X: 10, Y: 0, ID: 2},  // outside
		{X: -1, Y: -1, ID: 3}, // inside
	}
	got := VisibleLandmarks(0, 0, 5, landmarks)
	assert.Equal(t, []Landmark{{X: 3, Y: 4, ID: 1}, {X: -1, Y: -1, ID: 3}}, got)
	assert.Empty(t, VisibleLandmarks(100, 100, 5, landmarks))
}

func TestToMapFrame(t *testing.T) {
	t.Parallel()

	identity := ToMapFrame(Pose{}, Landmark{X: 5, Y: 5})
	assert.InDelta(t, 5, identity.X, 1e-12)
	assert.InDelta(t, 5, identity.Y, 1e-12)

	// Facing +y, a point 2m ahead and 1m to the left lands at (-1, 2)
	// relative to the vehicle.
	got := ToMapFrame(Pose{X: 10, Y: 20, Phi: math.Pi / 2}, Landmark{X: 2, Y: 1, ID: 7})
	assert.InDelta(t, 9, got.X, 1e-12)
	assert.InDelta(t, 22, got.Y, 1e-12)
	assert.Equal(t, 7, got.ID)
}

func TestNearest(t *testing.T) {
	t.Parallel()

	candidates := []Landmark{
		{X: 1, Y: 0, ID: 10},
		{X: -1, Y: 0, ID: 11},
		{X: 0, Y: 3, ID: 12},
	}

	assert.Equal(t, 2, Nearest(Landmark{X: 0, Y: 2.5}, candidates, 100))
	assert.Equal(t, 0, Nearest(Landmark{}, candidates, 100), "ties keep the first candidate")
	assert.Equal(t, -1, Nearest(Landmark{}, candidates, 1), "distance must be strictly below the gate")
	assert.Equal(t, -1, Nearest(Landmark{}, nil, 100))
}

func TestAssociate(t *testing.T) {
	t.Parallel()

	candidates := []Landmark{{X: 0, Y: 0, ID: 4}, {X: 10, Y: 0, ID: 9}}
	obs := []Landmark{{X: 9, Y: 1}, {X: 0.5, Y: 0}, {X: 100, Y: 100}}

	matches := Associate(obs, candidates, 20)
	assert.Equal(t, []int{1, 0, -1}, matches)
	assert.Equal(t, 9, obs[0].ID)
	assert.Equal(t, 4, obs[1].ID)
	assert.Equal(t, 0, obs[2].ID)
}

func TestUpdateWeightsNoVisibleLandmarks(t *testing.T) {
	t.Parallel()

	pf := singleParticle(t, Pose{}, 0.3, 0.3)
	far := []Landmark{{X: 500, Y: 500, ID: 1}}
	require.NoError(t, pf.UpdateWeights([]Landmark{{X: 1, Y: 1}, {X: 2, Y: 2}}, far))

	assert.Equal(t, pf.Config().Epsilon, pf.Particles()[0].Weight)
}

func TestUpdateWeightsAlignedLandmark(t *testing.T) {
	t.Parallel()

	// Particle at the origin facing +x: vehicle frame equals map frame.
	pf := singleParticle(t, Pose{}, 0.3, 0.3)
	require.NoError(t, pf.UpdateWeights([]Landmark{{X: 5, Y: 5}}, []Landmark{{X: 5, Y: 5, ID: 1}}))

	w := pf.Particles()[0].Weight
	assert.InDelta(t, peak(0.3, 0.3), w, 1e-9)
	assert.InDelta(t, 1.768, w, 1e-3)
}

func TestUpdateWeightsRotatedParticle(t *testing.T) {
	t.Parallel()

	pf := singleParticle(t, Pose{X: 2, Y: 3, Phi: math.Pi}, 0.2, 0.4)
	// Facing -x, a landmark at map (-1, 3) is 3m straight ahead.
	require.NoError(t, pf.UpdateWeights([]Landmark{{X: 3, Y: 0}}, []Landmark{{X: -1, Y: 3, ID: 1}}))

	assert.InDelta(t, peak(0.2, 0.4), pf.Particles()[0].Weight, 1e-9)
}

func TestUpdateWeightsNoObservations(t *testing.T) {
	t.Parallel()

	pf := singleParticle(t, Pose{}, 0.3, 0.3)
	require.NoError(t, pf.UpdateWeights(nil, []Landmark{{X: 1, Y: 1, ID: 1}}))
	assert.Equal(t, 1.0, pf.Particles()[0].Weight)
}

func TestUpdateWeightsFloors(t *testing.T) {
	t.Parallel()

	landmarks := []Landmark{{X: 5, Y: 5, ID: 1}}
	eps := testConfig(1).Epsilon
	p := peak(0.3, 0.3)

	tests := []struct {
		name string
		obs  []Landmark
		want float64
	}{
		{
			name: "low likelihood term is floored",
			obs:  []Landmark{{X: 5, Y: 8}},
			want: eps,
		},
		{
			name: "per-term floor keeps the product",
			obs:  []Landmark{{X: 5, Y: 5}, {X: 5, Y: 8}},
			want: p * eps,
		},
		{
			name: "unmatched observation discards the product",
			obs:  []Landmark{{X: 5, Y: 5}, {X: 5, Y: 5}, {X: 200, Y: 5}},
			want: eps,
		},
		{
			name: "terms after a reset multiply into epsilon",
			obs:  []Landmark{{X: 200, Y: 5}, {X: 5, Y: 5}},
			want: eps * p,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			pf := singleParticle(t, Pose{}, 0.3, 0.3)
			require.NoError(t, pf.UpdateWeights(tt.obs, landmarks))
			assert.InDelta(t, tt.want, pf.Particles()[0].Weight, tt.want*1e-9)
		})
	}
}

func TestUpdateWeightsParallelMatchesSequential(t *testing.T) {
	t.Parallel()

	landmarks := []Landmark{{X: 5, Y: 5, ID: 1}, {X: -3, Y: 7, ID: 2}, {X: 20, Y: -4, ID: 3}}
	obs := []Landmark{{X: 5.1, Y: 4.8}, {X: -2.7, Y: 7.3}}

	build := func(workers int) *ParticleFilter {
		cfg := testConfig(64)
		cfg.PositionStd = [3]float64{1, 1, 0.1}
		cfg.Workers = workers
		pf := New()
		require.NoError(t, pf.Init(Pose{}, cfg, rand.NewSource(21)))
		require.NoError(t, pf.UpdateWeights(obs, landmarks))
		return pf
	}

	assert.Equal(t, build(1).Particles(), build(5).Particles())
}
