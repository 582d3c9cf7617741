package occupancy

import (
	"testing"
	"time"

	"github.com/bove903/NextGarage-IoT-System/internal/config"
	"github.com/bove903/NextGarage-IoT-System/internal/hal"
)

func newTestFilter(samples []float64) (*Filter, *config.Config) {
	cfg := config.Default()
	f := NewFilter(hal.NewFakeDistance(samples), &cfg)
	f.sleep = func(time.Duration) {}
	return f, &cfg
}

func TestFilterSeedsWithFirstBurst(t *testing.T) {
	f, _ := newTestFilter([]float64{10})
	got := f.Read()
	if got != 10 {
		t.Errorf("expected seed value 10, got %v", got)
	}
}

func TestFilterUnknownBeforeFirstRead(t *testing.T) {
	f, _ := newTestFilter([]float64{10})
	if f.Last() != unknownDistance {
		t.Errorf("expected %v before first read, got %v", unknownDistance, f.Last())
	}
}

func TestFilterTrimsExtremes(t *testing.T) {
	// One low and one high outlier among steady readings; both must be
	// dropped by the trim before averaging.
	f, _ := newTestFilter([]float64{10, 100, 10, 10, 1, 10, 10})
	got := f.Read()
	if got != 10 {
		t.Errorf("expected trimmed mean 10, got %v", got)
	}
}

func TestFilterNoTrimWithFewSurvivors(t *testing.T) {
	// Four samples are out of the plausible range, three survive: too
	// few to trim, so the result is the plain average.
	f, _ := newTestFilter([]float64{0.2, 400, 12, 10, 11, 0.1, 350})
	got := f.Read()
	if got != 11 {
		t.Errorf("expected mean 11, got %v", got)
	}
}

func TestFilterKeepsLastOnDeadBurst(t *testing.T) {
	samples := []float64{10, 10, 10, 10, 10, 10, 10}
	f, _ := newTestFilter(samples)
	if got := f.Read(); got != 10 {
		t.Fatalf("expected 10, got %v", got)
	}

	// Every sample of the next burst fails.
	fake := f.sensor.(*hal.FakeDistance)
	fake.Reset()
	fake.Errs = []error{hal.ErrTimeout, hal.ErrTimeout, hal.ErrTimeout, hal.ErrTimeout, hal.ErrTimeout, hal.ErrTimeout, hal.ErrTimeout}
	if got := f.Read(); got != 10 {
		t.Errorf("dead burst must keep last value 10, got %v", got)
	}
}

func TestFilterSmoothsAcrossBursts(t *testing.T) {
	samples := make([]float64, 0, 14)
	for i := 0; i < 7; i++ {
		samples = append(samples, 10)
	}
	for i := 0; i < 7; i++ {
		samples = append(samples, 20)
	}
	f, _ := newTestFilter(samples)

	if got := f.Read(); got != 10 {
		t.Fatalf("expected seeded 10, got %v", got)
	}
	// 0.7 new + 0.3 old.
	got := f.Read()
	if got < 16.99 || got > 17.01 {
		t.Errorf("expected smoothed ~17, got %v", got)
	}
}
