package particlefilter

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidConfig is wrapped by every configuration validation failure.
var ErrInvalidConfig = errors.New("invalid filter configuration")

// Config holds the parameters fixed at initialization.
type Config struct {
	// Particles is the ensemble size N.
	Particles int
	// PositionStd is the (x, y, phi) std-dev of the initial pose estimate.
	// It is also used as process noise during prediction.
	PositionStd [3]float64
	// LandmarkStd is the (x, y) std-dev of landmark measurements.
	LandmarkStd [2]float64
	// Dt is the elapsed time covered by one Controls sample.
	Dt float64
	// SensorRange is the maximum distance at which a landmark is visible.
	SensorRange float64
	// Epsilon floors weights and guards the straight-motion branch.
	Epsilon float64
	// Workers splits per-particle work across goroutines. 0 and 1 run sequentially.
	Workers int
}

// Validate reports the first invalid field, wrapped in ErrInvalidConfig.
func (c Config) Validate() error {
	if c.Particles <= 0 {
		return fmt.Errorf("%w: particle count must be positive, got %d", ErrInvalidConfig, c.Particles)
	}
	if !positive(c.SensorRange) {
		return fmt.Errorf("%w: sensor range must be positive, got %g", ErrInvalidConfig, c.SensorRange)
	}
	if !positive(c.Epsilon) {
		return fmt.Errorf("%w: epsilon must be positive, got %g", ErrInvalidConfig, c.Epsilon)
	}
	if !positive(c.Dt) {
		return fmt.Errorf("%w: dt must be positive, got %g", ErrInvalidConfig, c.Dt)
	}
	for i, s := range c.PositionStd {
		if math.IsNaN(s) || math.IsInf(s, 0) || s < 0 {
			return fmt.Errorf("%w: position std[%d] must be finite and non-negative, got %g", ErrInvalidConfig, i, s)
		}
	}
	for i, s := range c.LandmarkStd {
		if !positive(s) {
			return fmt.Errorf("%w: landmark std[%d] must be positive, got %g", ErrInvalidConfig, i, s)
		}
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must be non-negative, got %d", ErrInvalidConfig, c.Workers)
	}
	return nil
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}
