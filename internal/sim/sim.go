// Package sim generates synthetic localization datasets: a random landmark
// map, a constant turn-rate vehicle trajectory, noisy controls and noisy
// range-limited observations in the vehicle frame.
package sim

import (
	"errors"
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	particlefilter "github.com/jhoydich/landmark-pf"
	"github.com/jhoydich/landmark-pf/internal/dataset"
)

// Scenario describes a synthetic run.
type Scenario struct {
	Steps int
	Dt    float64
	Start particlefilter.Pose
	// True vehicle controls, held constant over the run.
	Velocity float64
	Yawrate  float64

	Landmarks int
	// Landmarks are scattered uniformly within Spread meters of the
	// trajectory's bounding box.
	Spread      float64
	SensorRange float64

	// ControlStd is the (velocity, yawrate) noise on recorded controls.
	ControlStd [2]float64
	// ObservationStd is the (x, y) noise on vehicle-frame observations.
	ObservationStd [2]float64
}

// Default returns a loop of a few hundred meters with a modest landmark map.
func Default() Scenario {
	return Scenario{
		Steps:          200,
		Dt:             0.1,
		Start:          particlefilter.Pose{X: 6.2785, Y: 1.9598, Phi: 0},
		Velocity:       10,
		Yawrate:        0.15,
		Landmarks:      40,
		Spread:         30,
		SensorRange:    50,
		ControlStd:     [2]float64{0.1, 0.005},
		ObservationStd: [2]float64{0.1, 0.1},
	}
}

// Validate rejects scenarios that cannot be generated.
func (s Scenario) Validate() error {
	switch {
	case s.Steps <= 0:
		return fmt.Errorf("steps must be positive, got %d", s.Steps)
	case s.Dt <= 0:
		return fmt.Errorf("dt must be positive, got %g", s.Dt)
	case s.Landmarks < 0:
		return fmt.Errorf("landmarks must be non-negative, got %d", s.Landmarks)
	case s.SensorRange <= 0:
		return fmt.Errorf("sensor range must be positive, got %g", s.SensorRange)
	case s.Spread < 0:
		return fmt.Errorf("spread must be non-negative, got %g", s.Spread)
	}
	for _, v := range []float64{s.ControlStd[0], s.ControlStd[1], s.ObservationStd[0], s.ObservationStd[1]} {
		if v < 0 {
			return errors.New("noise std-devs must be non-negative")
		}
	}
	return nil
}

// Generate builds a dataset for s, drawing all randomness from src.
func Generate(s Scenario, src rand.Source) (*dataset.Dataset, error) {
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	truth := make([]particlefilter.Pose, s.Steps)
	truth[0] = s.Start
	trueControls := particlefilter.Controls{Velocity: s.Velocity, Yawrate: s.Yawrate}
	for i := 1; i < s.Steps; i++ {
		truth[i] = particlefilter.Move(truth[i-1], trueControls, s.Dt, 1e-9)
	}

	ds := &dataset.Dataset{
		Landmarks:    scatterLandmarks(truth, s, src),
		Controls:     make([]particlefilter.Controls, s.Steps-1),
		Observations: make([][]particlefilter.Landmark, s.Steps),
		GroundTruth:  truth,
	}

	vNoise := distuv.Normal{Sigma: s.ControlStd[0], Src: src}
	yNoise := distuv.Normal{Sigma: s.ControlStd[1], Src: src}
	for i := range ds.Controls {
		ds.Controls[i] = particlefilter.Controls{
			Velocity: s.Velocity + vNoise.Rand(),
			Yawrate:  s.Yawrate + yNoise.Rand(),
		}
	}

	oxNoise := distuv.Normal{Sigma: s.ObservationStd[0], Src: src}
	oyNoise := distuv.Normal{Sigma: s.ObservationStd[1], Src: src}
	for i, pose := range truth {
		batch := []particlefilter.Landmark{}
		for _, lm := range particlefilter.VisibleLandmarks(pose.X, pose.Y, s.SensorRange, ds.Landmarks) {
			obs := ToVehicleFrame(pose, lm)
			obs.X += oxNoise.Rand()
			obs.Y += oyNoise.Rand()
			batch = append(batch, obs)
		}
		ds.Observations[i] = batch
	}
	return ds, nil
}

// ToVehicleFrame expresses the map point lm relative to pose. It is the
// inverse of particlefilter.ToMapFrame; the returned ID is zero.
func ToVehicleFrame(pose particlefilter.Pose, lm particlefilter.Landmark) particlefilter.Landmark {
	sin, cos := math.Sincos(pose.Phi)
	dx, dy := lm.X-pose.X, lm.Y-pose.Y
	return particlefilter.Landmark{
		X: dx*cos + dy*sin,
		Y: -dx*sin + dy*cos,
	}
}

func scatterLandmarks(truth []particlefilter.Pose, s Scenario, src rand.Source) []particlefilter.Landmark {
	minX, maxX := truth[0].X, truth[0].X
	minY, maxY := truth[0].Y, truth[0].Y
	for _, p := range truth[1:] {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}

	ux := distuv.Uniform{Min: minX - s.Spread, Max: maxX + s.Spread, Src: src}
	uy := distuv.Uniform{Min: minY - s.Spread, Max: maxY + s.Spread, Src: src}
	out := make([]particlefilter.Landmark, s.Landmarks)
	for i := range out {
		out[i] = particlefilter.Landmark{X: ux.Rand(), Y: uy.Rand(), ID: i + 1}
	}
	return out
}
