package particlefilter

import (
	"math"

	"golang.org/x/exp/rand"
)

// Move applies the deterministic motion model to p for one interval dt.
// When |yawrate| < epsilon the vehicle moves in a straight line and the
// heading is unchanged; otherwise the constant turn-rate model is used.
// Heading is not wrapped.
func Move(p Pose, c Controls, dt, epsilon float64) Pose {
	if math.Abs(c.Yawrate) < epsilon {
		p.X += c.Velocity * dt * math.Cos(p.Phi)
		p.Y += c.Velocity * dt * math.Sin(p.Phi)
		return p
	}
	r := c.Velocity / c.Yawrate
	turned := p.Phi + c.Yawrate*dt
	p.X += r * (math.Sin(turned) - math.Sin(p.Phi))
	p.Y += r * (math.Cos(p.Phi) - math.Cos(turned))
	p.Phi = turned
	return p
}

// Predict advances every particle by one interval using c, adds process
// noise drawn from src and resets each weight to 1.
//
// With more than one worker, each span of particles draws from its own
// source seeded from src before the fan-out, so a fixed seed reproduces the
// same ensemble for a fixed worker count.
func (pf *ParticleFilter) Predict(c Controls, src rand.Source) error {
	if !pf.initialized {
		return ErrNotInitialized
	}
	if src == nil {
		return ErrNilSource
	}

	ss := spans(len(pf.particles), pf.cfg.Workers)
	sources := make([]rand.Source, len(ss))
	if len(ss) == 1 {
		sources[0] = src
	} else {
		seeder := rand.New(src)
		for k := range sources {
			sources[k] = rand.NewSource(seeder.Uint64())
		}
	}

	cur := pf.particles
	next := make([]Particle, len(cur))
	err := eachSpan(ss, func(k int, s span) error {
		xNoise, yNoise, phiNoise := pf.xNoise, pf.yNoise, pf.phiNoise
		xNoise.Src, yNoise.Src, phiNoise.Src = sources[k], sources[k], sources[k]
		for i := s.lo; i < s.hi; i++ {
			pose := Move(cur[i].Pose(), c, pf.cfg.Dt, pf.cfg.Epsilon)
			next[i] = Particle{
				ID:     cur[i].ID,
				X:      pose.X + xNoise.Rand(),
				Y:      pose.Y + yNoise.Rand(),
				Phi:    pose.Phi + phiNoise.Rand(),
				Weight: 1.0,
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	pf.particles = next
	return nil
}
