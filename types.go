package particlefilter

// Landmark is a static map feature. Raw observations reuse the type with ID
// left at zero until association assigns one.
type Landmark struct {
	X  float64
	Y  float64
	ID int
}

// Controls is one sample of vehicle control input covering the filter's dt.
type Controls struct {
	Velocity float64
	Yawrate  float64
}

// Particle is a single weighted pose hypothesis.
type Particle struct {
	ID     int
	X      float64
	Y      float64
	Phi    float64
	Weight float64
}

// Pose returns the position and heading of the particle.
func (p Particle) Pose() Pose {
	return Pose{X: p.X, Y: p.Y, Phi: p.Phi}
}

// Pose is a 2D position plus heading in radians.
type Pose struct {
	X   float64
	Y   float64
	Phi float64
}
