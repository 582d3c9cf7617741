package occupancy

import (
	"time"

	"github.com/bove903/NextGarage-IoT-System/internal/buzzer"
	"github.com/bove903/NextGarage-IoT-System/internal/config"
	"github.com/bove903/NextGarage-IoT-System/internal/hal"
)

// SpotState is the debounced occupancy decision. The Pending variants
// exist while a confirmation dwell is running; pendingSince is non-zero
// exactly in those two states.
type SpotState int

const (
	Free SpotState = iota
	PendingOccupied
	Occupied
	PendingFree
)

func (s SpotState) String() string {
	switch s {
	case Free:
		return "FREE"
	case PendingOccupied:
		return "PENDING_OCCUPIED"
	case Occupied:
		return "OCCUPIED"
	case PendingFree:
		return "PENDING_FREE"
	}
	return "UNKNOWN"
}

// Tone frequencies for the assist buzzer: continuous stop tone in the
// confirmation zone, faster/slower pitch across the approach band.
const (
	stopToneHz  = 2000
	innerToneHz = 1500
	outerToneHz = 800
)

// Detector runs the occupancy hysteresis machine over the filtered
// distance. Entering Occupied requires the distance to hold at or under
// the near threshold for the occupied-confirm dwell; leaving requires
// it to hold beyond the far threshold plus a margin for the (shorter)
// free-confirm dwell. A single violating sample resets the running
// dwell.
type Detector struct {
	cfg    *config.Config
	filter *Filter
	buzz   *buzzer.Controller
	leds   hal.SpotLEDs

	state        SpotState
	pendingSince time.Time
	assist       bool
	lastDistance float64
}

// NewDetector starts in Free with the green spot LED lit.
func NewDetector(cfg *config.Config, filter *Filter, buzz *buzzer.Controller, leds hal.SpotLEDs) *Detector {
	d := &Detector{
		cfg:          cfg,
		filter:       filter,
		buzz:         buzz,
		leds:         leds,
		state:        Free,
		lastDistance: unknownDistance,
	}
	d.leds.SetFree()
	return d
}

// Check takes one filtered reading and advances the machine. It returns
// true when the Free/Occupied decision flipped, so the caller can
// publish the retained spot state.
func (d *Detector) Check(now time.Time) bool {
	distance := d.filter.Read()
	d.lastDistance = distance

	if d.state == Free || d.state == PendingOccupied {
		return d.checkFreeSide(distance, now)
	}
	return d.checkOccupiedSide(distance, now)
}

func (d *Detector) checkFreeSide(distance float64, now time.Time) bool {
	// Once the confirmation timer runs, widen the stop threshold so a
	// minor wobble cannot zero it.
	limit := d.cfg.NearCm
	if d.state == PendingOccupied {
		limit += d.cfg.ConfirmToleranceCm
	}

	switch {
	case distance > 0 && distance <= limit:
		// Stop zone: steady tone, run the confirmation dwell.
		d.buzz.SetParkingTone(stopToneHz)
		if d.state == Free {
			d.state = PendingOccupied
			d.pendingSince = now
		}
		if now.Sub(d.pendingSince) >= d.cfg.OccupiedConfirm() {
			d.state = Occupied
			d.pendingSince = time.Time{}
			d.assist = false
			d.buzz.StopParking()
			d.leds.SetOccupied()
			return true
		}

	case distance <= d.cfg.FarCm:
		// Approach band: assistance tone pitched by proximity. The
		// dwell resets because the vehicle backed out of the stop zone.
		d.assist = true
		d.state = Free
		d.pendingSince = time.Time{}
		if distance < d.cfg.FarCm/2 {
			d.buzz.SetParkingTone(innerToneHz)
		} else {
			d.buzz.SetParkingTone(outerToneHz)
		}

	default:
		d.assist = false
		d.buzz.StopParking()
		d.state = Free
		d.pendingSince = time.Time{}
	}
	return false
}

func (d *Detector) checkOccupiedSide(distance float64, now time.Time) bool {
	d.assist = false
	d.buzz.StopParking()

	// Freeing requires a decisive exit: past the far threshold plus the
	// margin, continuously for the free-confirm dwell.
	if distance > d.cfg.FarCm+d.cfg.FreeMarginCm {
		if d.state == Occupied {
			d.state = PendingFree
			d.pendingSince = now
		}
		if now.Sub(d.pendingSince) >= d.cfg.FreeConfirm() {
			d.state = Free
			d.pendingSince = time.Time{}
			d.leds.SetFree()
			return true
		}
	} else {
		d.state = Occupied
		d.pendingSince = time.Time{}
	}
	return false
}

// Full implements gate.LotStatus: the lot is full while the spot is
// occupied, including while a free-confirmation dwell is still running.
func (d *Detector) Full() bool {
	return d.state == Occupied || d.state == PendingFree
}

// State returns the current hysteresis state.
func (d *Detector) State() SpotState {
	return d.state
}

// Assist reports whether parking assistance is active.
func (d *Detector) Assist() bool {
	return d.assist
}

// LastDistance returns the most recent filtered distance.
func (d *Detector) LastDistance() float64 {
	return d.lastDistance
}
