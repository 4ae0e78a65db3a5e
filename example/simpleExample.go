package main

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/rand"

	pf "github.com/jhoydich/landmark-pf"
	"github.com/jhoydich/landmark-pf/internal/sim"
)

func main() {
	src := rand.NewSource(42)

	scenario := sim.Default()
	scenario.Steps = 50
	ds, err := sim.Generate(scenario, src)
	if err != nil {
		log.Fatalf("failed to generate scenario: %v", err)
	}

	cfg := pf.Config{
		Particles:   100,
		PositionStd: [3]float64{.3, .3, .01},
		LandmarkStd: [2]float64{.3, .3},
		Dt:          scenario.Dt,
		SensorRange: scenario.SensorRange,
		Epsilon:     1e-5,
	}

	filter := pf.New()
	if err := filter.Init(ds.GroundTruth[0], cfg, src); err != nil {
		log.Fatalf("failed to init filter: %v", err)
	}

	for i, obs := range ds.Observations {
		var c *pf.Controls
		if i > 0 {
			c = &ds.Controls[i-1]
		}
		best, err := filter.Step(obs, ds.Landmarks, c, src)
		if err != nil {
			log.Fatalf("step %d: %v", i+1, err)
		}
		truth := ds.GroundTruth[i]
		fmt.Printf("step %3d  truth: %7.3f %7.3f %6.3f  filter: %7.3f %7.3f %6.3f\n",
			i+1, truth.X, truth.Y, truth.Phi, best.X, best.Y, best.Phi)
	}

	errs, err := filter.BestError(ds.GroundTruth[len(ds.Observations)-1])
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("final error:", errs.X, errs.Y, errs.Phi)
}
