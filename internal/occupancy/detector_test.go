package occupancy

import (
	"testing"
	"time"

	"github.com/bove903/NextGarage-IoT-System/internal/buzzer"
	"github.com/bove903/NextGarage-IoT-System/internal/config"
	"github.com/bove903/NextGarage-IoT-System/internal/hal"
)

type detectorHarness struct {
	det      *Detector
	distance *hal.FakeDistance
	tone     *hal.FakeTone
	leds     *hal.FakeSpotLEDs
	buzz     *buzzer.Controller
	cfg      *config.Config
}

// newDetectorHarness wires a detector whose filter passes the scripted
// distance straight through (alpha 1, no smoothing lag).
func newDetectorHarness(initial float64) *detectorHarness {
	cfg := config.Default()
	cfg.FilterAlpha = 1.0

	h := &detectorHarness{
		distance: hal.NewFakeDistance([]float64{initial}),
		tone:     &hal.FakeTone{},
		leds:     &hal.FakeSpotLEDs{},
		cfg:      &cfg,
	}
	h.buzz = buzzer.New(h.tone)
	filter := NewFilter(h.distance, &cfg)
	filter.sleep = func(time.Duration) {}
	h.det = NewDetector(&cfg, filter, h.buzz, h.leds)
	return h
}

// setDistance changes what every subsequent sensor sample reports.
func (h *detectorHarness) setDistance(d float64) {
	h.distance.Samples[0] = d
}

func TestDetectorStartsFree(t *testing.T) {
	h := newDetectorHarness(20)
	if h.det.State() != Free {
		t.Errorf("expected Free, got %s", h.det.State())
	}
	if h.leds.Occupied {
		t.Error("green spot LED should be lit at start")
	}
	if h.det.Full() {
		t.Error("fresh detector must not report full")
	}
}

func TestOccupiedAfterConfirmDwell(t *testing.T) {
	h := newDetectorHarness(2)
	t0 := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	if h.det.Check(t0) {
		t.Fatal("first stop-zone reading must not flip yet")
	}
	if h.det.State() != PendingOccupied {
		t.Fatalf("expected PendingOccupied, got %s", h.det.State())
	}
	if h.tone.Freq != stopToneHz {
		t.Errorf("expected stop tone %d Hz, got %d", stopToneHz, h.tone.Freq)
	}
	if h.det.Full() {
		t.Error("pending occupied must not count as full")
	}

	if h.det.Check(t0.Add(1500 * time.Millisecond)) {
		t.Fatal("dwell not elapsed, must not flip")
	}

	if !h.det.Check(t0.Add(3 * time.Second)) {
		t.Fatal("expected flip to Occupied after the confirm dwell")
	}
	if h.det.State() != Occupied {
		t.Fatalf("expected Occupied, got %s", h.det.State())
	}
	if !h.leds.Occupied {
		t.Error("red spot LED should be lit")
	}
	if h.tone.Freq != 0 {
		t.Errorf("tone must stop once occupied, still at %d Hz", h.tone.Freq)
	}
	if !h.det.Full() {
		t.Error("occupied spot must report full")
	}
}

func TestPendingSurvivesWobbleWithinTolerance(t *testing.T) {
	h := newDetectorHarness(2)
	t0 := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	h.det.Check(t0)

	// Drifts past the near threshold, but stays inside the widened
	// window: the dwell keeps running from t0.
	h.setDistance(3.8)
	h.det.Check(t0.Add(time.Second))
	if h.det.State() != PendingOccupied {
		t.Fatalf("wobble within tolerance must keep pending, got %s", h.det.State())
	}

	h.setDistance(2)
	if !h.det.Check(t0.Add(3 * time.Second)) {
		t.Error("dwell anchored at first detection must complete at t0+3s")
	}
}

func TestWobbleBeyondToleranceResetsDwell(t *testing.T) {
	h := newDetectorHarness(2)
	t0 := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	h.det.Check(t0)

	// Out past the widened window: back to Free, dwell discarded.
	h.setDistance(5)
	h.det.Check(t0.Add(500 * time.Millisecond))
	if h.det.State() != Free {
		t.Fatalf("expected Free after leaving the stop zone, got %s", h.det.State())
	}
	if !h.det.Assist() {
		t.Error("approach band must keep assistance active")
	}

	// Re-enter: the dwell restarts, so t0+3s is too early now.
	h.setDistance(2)
	h.det.Check(t0.Add(time.Second))
	if h.det.Check(t0.Add(3 * time.Second)) {
		t.Error("restarted dwell must not complete at t0+3s")
	}
	if !h.det.Check(t0.Add(4 * time.Second)) {
		t.Error("restarted dwell must complete at t0+4s")
	}
}

func TestApproachTonePitch(t *testing.T) {
	h := newDetectorHarness(6)
	t0 := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	// Outer half of the approach band.
	h.det.Check(t0)
	if h.tone.Freq != outerToneHz {
		t.Errorf("expected outer tone %d Hz, got %d", outerToneHz, h.tone.Freq)
	}
	if !h.det.Assist() {
		t.Error("assist should be active in the approach band")
	}

	// Inner half.
	h.setDistance(3.2)
	h.det.Check(t0.Add(200 * time.Millisecond))
	if h.tone.Freq != innerToneHz {
		t.Errorf("expected inner tone %d Hz, got %d", innerToneHz, h.tone.Freq)
	}

	// Far away again: silent.
	h.setDistance(20)
	h.det.Check(t0.Add(400 * time.Millisecond))
	if h.tone.Freq != 0 {
		t.Errorf("expected silence, got %d Hz", h.tone.Freq)
	}
	if h.det.Assist() {
		t.Error("assist must drop once the vehicle is far away")
	}
}

// occupy drives a fresh harness into Occupied and returns the time of
// the flip.
func occupy(t *testing.T, h *detectorHarness) time.Time {
	t.Helper()
	t0 := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	h.setDistance(2)
	h.det.Check(t0)
	if !h.det.Check(t0.Add(3 * time.Second)) {
		t.Fatal("setup: expected flip to Occupied")
	}
	return t0.Add(3 * time.Second)
}

func TestFreeRequiresMarginAndDwell(t *testing.T) {
	h := newDetectorHarness(2)
	t1 := occupy(t, h)

	// Past the far threshold but inside the margin: still occupied.
	h.setDistance(8)
	h.det.Check(t1.Add(200 * time.Millisecond))
	if h.det.State() != Occupied {
		t.Fatalf("inside the free margin must stay Occupied, got %s", h.det.State())
	}

	// Decisively out: pending, still reported full.
	h.setDistance(12)
	h.det.Check(t1.Add(400 * time.Millisecond))
	if h.det.State() != PendingFree {
		t.Fatalf("expected PendingFree, got %s", h.det.State())
	}
	if !h.det.Full() {
		t.Error("pending free must still count as full")
	}

	if h.det.Check(t1.Add(time.Second)) {
		t.Fatal("free dwell not elapsed, must not flip")
	}
	if !h.det.Check(t1.Add(2500 * time.Millisecond)) {
		t.Fatal("expected flip to Free after the free-confirm dwell")
	}
	if h.det.State() != Free {
		t.Errorf("expected Free, got %s", h.det.State())
	}
	if h.leds.Occupied {
		t.Error("green spot LED should be lit again")
	}
}

func TestReturnDuringPendingFreeReverts(t *testing.T) {
	h := newDetectorHarness(2)
	t1 := occupy(t, h)

	h.setDistance(12)
	h.det.Check(t1.Add(200 * time.Millisecond))
	if h.det.State() != PendingFree {
		t.Fatalf("expected PendingFree, got %s", h.det.State())
	}

	// Vehicle settles back in before the dwell completes.
	h.setDistance(2)
	h.det.Check(t1.Add(time.Second))
	if h.det.State() != Occupied {
		t.Fatalf("return must revert to Occupied, got %s", h.det.State())
	}

	// And the old dwell is gone: staying out must start over.
	h.setDistance(12)
	h.det.Check(t1.Add(1200 * time.Millisecond))
	if h.det.Check(t1.Add(2500 * time.Millisecond)) {
		t.Error("free dwell must restart after a revert")
	}
}

func TestNoAssistToneWhileOccupied(t *testing.T) {
	h := newDetectorHarness(2)
	t1 := occupy(t, h)

	// Occupied-side readings never drive the assist tone.
	h.setDistance(5)
	h.det.Check(t1.Add(200 * time.Millisecond))
	if h.tone.Freq != 0 {
		t.Errorf("expected silence while occupied, got %d Hz", h.tone.Freq)
	}
	if h.det.Assist() {
		t.Error("assist must stay off while occupied")
	}
}

func TestSpotStateString(t *testing.T) {
	if got := SpotState(9).String(); got != "UNKNOWN" {
		t.Errorf("expected UNKNOWN, got %q", got)
	}
	if got := PendingFree.String(); got != "PENDING_FREE" {
		t.Errorf("expected PENDING_FREE, got %q", got)
	}
}
