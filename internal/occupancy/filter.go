// Package occupancy turns noisy ultrasonic distance readings into a
// debounced Free/Occupied decision for the parking spot, and drives the
// parking-assist tone and the spot indicator LEDs.
package occupancy

import (
	"sort"
	"time"

	"github.com/bove903/NextGarage-IoT-System/internal/config"
	"github.com/bove903/NextGarage-IoT-System/internal/hal"
)

// unknownDistance is the filter output before any valid burst has been
// read. Far beyond every threshold, so it never looks like a vehicle.
const unknownDistance = 999

// Filter reads the distance sensor in short bursts and smooths the
// result: implausible samples are discarded, the burst is trimmed-mean
// averaged, and the result is blended with the previous output so the
// value changes slowly instead of jumping.
type Filter struct {
	sensor hal.DistanceSensor
	cfg    *config.Config

	// sleep is the inter-sample pause, injectable for tests.
	sleep func(time.Duration)

	last   float64
	seeded bool
}

// NewFilter wraps the sensor with the burst-and-smooth pipeline.
func NewFilter(sensor hal.DistanceSensor, cfg *config.Config) *Filter {
	return &Filter{
		sensor: sensor,
		cfg:    cfg,
		sleep:  time.Sleep,
		last:   unknownDistance,
	}
}

// Read takes one burst and returns the new filtered distance. When the
// whole burst fails (timeouts, implausible readings) the previous
// output is retained; transient hardware trouble never propagates.
func (f *Filter) Read() float64 {
	readings := make([]float64, 0, f.cfg.BurstSamples)
	for i := 0; i < f.cfg.BurstSamples; i++ {
		d, err := f.sensor.DistanceCm()
		if err == nil && d > f.cfg.MinValidCm && d < f.cfg.MaxValidCm {
			readings = append(readings, d)
		}
		f.sleep(f.cfg.BurstPause())
	}
	if len(readings) == 0 {
		return f.last
	}

	// With enough survivors, drop the single lowest and highest: they
	// are usually echo noise.
	sort.Float64s(readings)
	if len(readings) >= 5 {
		readings = readings[1 : len(readings)-1]
	}
	sum := 0.0
	for _, d := range readings {
		sum += d
	}
	avg := sum / float64(len(readings))

	if !f.seeded {
		f.last = avg
		f.seeded = true
	} else {
		alpha := f.cfg.FilterAlpha
		f.last = avg*alpha + f.last*(1-alpha)
	}
	return f.last
}

// Last returns the most recent filtered value without sampling.
func (f *Filter) Last() float64 {
	return f.last
}
