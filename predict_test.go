package particlefilter

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

func noiselessFilter(t *testing.T, n int, seed Pose, dt float64) *ParticleFilter {
	t.Helper()
	cfg := testConfig(n)
	cfg.PositionStd = [3]float64{0, 0, 0}
	cfg.Dt = dt
	pf := New()
	require.NoError(t, pf.Init(seed, cfg, rand.NewSource(1)))
	return pf
}

func TestMove(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		from Pose
		c    Controls
		dt   float64
		want Pose
	}{
		{
			name: "straight along x",
			from: Pose{},
			c:    Controls{Velocity: 2, Yawrate: 0},
			dt:   1,
			want: Pose{X: 2},
		},
		{
			name: "straight along heading",
			from: Pose{X: 1, Y: 1, Phi: math.Pi / 2},
			c:    Controls{Velocity: 3},
			dt:   0.5,
			want: Pose{X: 1, Y: 2.5, Phi: math.Pi / 2},
		},
		{
			name: "yawrate below epsilon is straight",
			from: Pose{},
			c:    Controls{Velocity: 1, Yawrate: 1e-7},
			dt:   1,
			want: Pose{X: 1},
		},
		{
			name: "curved",
			from: Pose{},
			c:    Controls{Velocity: 1, Yawrate: 0.1},
			dt:   1,
			want: Pose{
				X:   10 * math.Sin(0.1),
				Y:   10 * (1 - math.Cos(0.1)),
				Phi: 0.1,
			},
		},
		{
			name: "heading is not wrapped",
			from: Pose{Phi: 3 * math.Pi},
			c:    Controls{Velocity: 0, Yawrate: math.Pi},
			dt:   1,
			want: Pose{Phi: 4 * math.Pi},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Move(tt.from, tt.c, tt.dt, 1e-5)
			assert.InDelta(t, tt.want.X, got.X, 1e-9)
			assert.InDelta(t, tt.want.Y, got.Y, 1e-9)
			assert.InDelta(t, tt.want.Phi, got.Phi, 1e-9)
		})
	}
}

func TestPredictStraight(t *testing.T) {
	t.Parallel()

	pf := noiselessFilter(t, 20, Pose{}, 1.0)
	require.NoError(t, pf.Predict(Controls{Velocity: 2.0, Yawrate: 0}, rand.NewSource(2)))

	for _, p := range pf.Particles() {
		assert.InDelta(t, 2.0, p.X, 1e-12)
		assert.InDelta(t, 0, p.Y, 1e-12)
		assert.InDelta(t, 0, p.Phi, 1e-12)
	}
}

func TestPredictCurved(t *testing.T) {
	t.Parallel()

	pf := noiselessFilter(t, 20, Pose{}, 1.0)
	require.NoError(t, pf.Predict(Controls{Velocity: 1.0, Yawrate: 0.1}, rand.NewSource(2)))

	wantX := (1.0 / 0.1) * (math.Sin(0.1) - math.Sin(0))
	wantY := (1.0 / 0.1) * (math.Cos(0) - math.Cos(0.1))
	for _, p := range pf.Particles() {
		assert.InDelta(t, wantX, p.X, 1e-12)
		assert.InDelta(t, wantY, p.Y, 1e-12)
		assert.InDelta(t, 0.1, p.Phi, 1e-12)
	}
}

func TestPredictResetsWeightsAndKeepsIDs(t *testing.T) {
	t.Parallel()

	pf := New()
	require.NoError(t, pf.Init(Pose{}, testConfig(8), rand.NewSource(1)))
	require.NoError(t, pf.UpdateWeights([]Landmark{{X: 1, Y: 1}}, nil))
	for _, p := range pf.Particles() {
		require.Equal(t, pf.Config().Epsilon, p.Weight)
	}

	require.NoError(t, pf.Predict(Controls{Velocity: 1, Yawrate: 0.2}, rand.NewSource(5)))
	for i, p := range pf.Particles() {
		assert.Equal(t, i+1, p.ID)
		assert.Equal(t, 1.0, p.Weight)
	}
}

func TestPredictAddsProcessNoise(t *testing.T) {
	t.Parallel()

	cfg := testConfig(5000)
	cfg.PositionStd = [3]float64{0.5, 0.5, 0.1}
	cfg.Dt = 1
	pf := New()
	require.NoError(t, pf.Init(Pose{}, cfg, rand.NewSource(11)))
	require.NoError(t, pf.Predict(Controls{Velocity: 1}, rand.NewSource(12)))

	var sumX, sumSq float64
	for _, p := range pf.Particles() {
		sumX += p.X
	}
	mean := sumX / 5000
	for _, p := range pf.Particles() {
		sumSq += (p.X - mean) * (p.X - mean)
	}
	// Initial spread and one step of process noise add in variance.
	assert.InDelta(t, 0.5, sumSq/5000, 0.05)
	assert.InDelta(t, 1.0, mean, 0.05)
}

func TestPredictDeterministic(t *testing.T) {
	t.Parallel()

	for _, workers := range []int{1, 4} {
		run := func() []Particle {
			cfg := testConfig(101)
			cfg.Workers = workers
			pf := New()
			src := rand.NewSource(42)
			require.NoError(t, pf.Init(Pose{X: 1, Y: 2, Phi: 0.3}, cfg, src))
			require.NoError(t, pf.Predict(Controls{Velocity: 5, Yawrate: 0.4}, src))
			require.NoError(t, pf.Predict(Controls{Velocity: 5, Yawrate: 0}, src))
			return pf.Particles()
		}
		if diff := cmp.Diff(run(), run()); diff != "" {
			t.Errorf("workers=%d: same seed produced different ensembles:\n%s", workers, diff)
		}
	}
}

func TestPredictParallelMatchesSequentialWithoutNoise(t *testing.T) {
	t.Parallel()

	seq := noiselessFilter(t, 37, Pose{X: 3, Y: 4, Phi: 1}, 0.1)
	par := New()
	cfg := seq.Config()
	cfg.Workers = 6
	require.NoError(t, par.Init(Pose{X: 3, Y: 4, Phi: 1}, cfg, rand.NewSource(1)))

	c := Controls{Velocity: 10, Yawrate: -0.3}
	require.NoError(t, seq.Predict(c, rand.NewSource(9)))
	require.NoError(t, par.Predict(c, rand.NewSource(9)))

	if diff := cmp.Diff(seq.Particles(), par.Particles(), cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("parallel prediction differs (-seq +par):\n%s", diff)
	}
}

func TestPredictNilSource(t *testing.T) {
	t.Parallel()

	pf := noiselessFilter(t, 3, Pose{}, 1)
	before := pf.Particles()
	assert.ErrorIs(t, pf.Predict(Controls{Velocity: 1}, nil), ErrNilSource)
	assert.Equal(t, before, pf.Particles())
}

func TestSpans(t *testing.T) {
	t.Parallel()

	tests := []struct {
		n, workers int
		want       []span
	}{
		{10, 0, []span{{0, 10}}},
		{10, 1, []span{{0, 10}}},
		{10, 3, []span{{0, 4}, {4, 7}, {7, 10}}},
		{2, 5, []span{{0, 1}, {1, 2}}},
		{0, 4, []span{{0, 0}}},
	}
	for _, tt := range tests {
		got := spans(tt.n, tt.workers)
		assert.Equal(t, tt.want, got, "n=%d workers=%d", tt.n, tt.workers)
	}
}
