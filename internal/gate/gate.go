// Package gate implements the barrier state machine: it owns the servo
// motion profile and the entrance traffic signal, and consumes the
// entrance/exit detectors, the open button, and remote open/close
// requests. All timing is injected via time.Time parameters; the
// package never sleeps.
package gate

import (
	"log"
	"time"

	"github.com/bove903/NextGarage-IoT-System/internal/hal"
)

// State is the barrier's logical state. Exactly one is active at a time.
type State int

const (
	// Idle: barrier closed, red on, waiting for a vehicle.
	Idle State = iota
	// Green: entrance vehicle detected and the lot has room; waiting
	// for the button.
	Green
	// Opening: barrier stepping toward open, yellow blinking.
	Opening
	// WaitClear: barrier open, waiting for both detectors to stay clear
	// for the safety dwell before closing.
	WaitClear
	// Closing: barrier stepping toward closed, yellow blinking. Any
	// detection reverses immediately back to Opening.
	Closing
	// ManualOpen: held open by a remote request until an accepted
	// remote close.
	ManualOpen
)

func (s State) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case Green:
		return "GREEN"
	case Opening:
		return "OPENING"
	case WaitClear:
		return "WAIT_CLEAR"
	case Closing:
		return "CLOSING"
	case ManualOpen:
		return "MANUAL_OPEN"
	}
	return "UNKNOWN"
}

// LotStatus answers whether the tracked spot can take another vehicle.
// The controller polls it read-only; any occupancy implementation (or a
// test stub) can satisfy it.
type LotStatus interface {
	Full() bool
}

// Config holds the motion profile and servo calibration. Angles are
// logical: 0 = closed, 90 = open.
type Config struct {
	OpenAngle   int
	ClosedAngle int
	Step        int

	StepInterval  time.Duration
	BlinkInterval time.Duration
	SafeDelay     time.Duration

	// Pulse mapping: duty = PulseMin + physical*PulseSpan/180, as a
	// 16-bit value in a 50 Hz frame.
	PulseMin  uint32
	PulseSpan uint32
}

// Controller is the gate state machine. It is owned by the scheduler
// and must only be mutated through Update, RequestOpen, and
// RequestClose on the loop's goroutine.
type Controller struct {
	cfg Config

	entrance hal.PresenceSensor
	exit     hal.PresenceSensor
	button   hal.Button
	signal   hal.TrafficSignal
	servo    hal.Servo
	lot      LotStatus

	state  State
	angle  int
	target int
	manual bool

	// Edge-triggered remote requests, consumed once per Update.
	reqOpen  bool
	reqClose bool

	clearSince time.Time // zero = dwell not running
	lastBlink  time.Time
	lastStep   time.Time

	// Last known-good detector values, held over transient read errors.
	lastEntrance bool
	lastExit     bool
	lastButton   bool
}

// New constructs the controller in Idle with the barrier driven to the
// closed position.
func New(cfg Config, entrance, exit hal.PresenceSensor, button hal.Button, signal hal.TrafficSignal, servo hal.Servo, lot LotStatus) *Controller {
	c := &Controller{
		cfg:      cfg,
		entrance: entrance,
		exit:     exit,
		button:   button,
		signal:   signal,
		servo:    servo,
		lot:      lot,
		state:    Idle,
		angle:    cfg.ClosedAngle,
		target:   cfg.ClosedAngle,
	}
	c.applyAngle(c.angle)
	c.signal.SetRed(true)
	return c
}

// RequestOpen latches a remote open request. Opening remotely always
// forces manual mode, so the barrier stays up until a remote close.
func (c *Controller) RequestOpen() {
	c.reqOpen = true
	c.manual = true
}

// RequestClose latches a remote close request. It is consumed on the
// next Update and denied (dropped, not queued) while either detector
// reports an obstruction.
func (c *Controller) RequestClose() {
	c.reqClose = true
}

// Update runs one tick of the state machine.
func (c *Controller) Update(now time.Time) {
	entrance := c.samplePresence(c.entrance, &c.lastEntrance, "entrance")
	exit := c.samplePresence(c.exit, &c.lastExit, "exit")
	pressed := c.sampleButton()

	// Consume both remote flags exactly once, before state logic.
	reqOpen, reqClose := c.reqOpen, c.reqClose
	c.reqOpen, c.reqClose = false, false

	if reqOpen && c.state != Opening && c.state != ManualOpen {
		c.state = Opening
		c.target = c.cfg.OpenAngle
		c.manual = true
		c.lastStep = now
		c.lastBlink = now
		c.signal.SetGreen(false)
		c.signal.SetRed(false)
		return
	}

	if reqClose && (c.state == WaitClear || c.state == ManualOpen) && !entrance && !exit {
		c.state = Closing
		c.target = c.cfg.ClosedAngle
		c.manual = false
		c.lastStep = now
		c.lastBlink = now
	}

	switch c.state {
	case Idle:
		c.signal.SetRed(true)
		c.signal.SetYellow(false)

		// Exit is always allowed, full lot or not.
		if exit {
			c.signal.SetRed(false)
			c.beginMotion(now, c.cfg.OpenAngle)
			c.state = Opening
			c.manual = false
			return
		}
		if c.lot.Full() {
			return // stay closed, ignore the entrance detector entirely
		}
		if entrance {
			c.state = Green
		}

	case Green:
		if c.lot.Full() {
			c.signal.SetGreen(false)
			c.state = Idle
			return
		}
		c.signal.SetGreen(true)

		if exit {
			c.signal.SetGreen(false)
			c.beginMotion(now, c.cfg.OpenAngle)
			c.state = Opening
			c.manual = false
			return
		}
		if pressed {
			c.signal.SetGreen(false)
			c.beginMotion(now, c.cfg.OpenAngle)
			c.state = Opening
			c.manual = false
		} else if !entrance {
			c.signal.SetGreen(false)
			c.state = Idle
		}

	case Opening:
		c.blinkYellow(now)
		if now.Sub(c.lastStep) >= c.cfg.StepInterval {
			c.angle += c.cfg.Step
			if c.angle > c.target {
				c.angle = c.target
			}
			c.applyAngle(c.angle)
			c.lastStep = now
			if c.angle >= c.cfg.OpenAngle {
				c.signal.SetYellow(false)
				if c.manual {
					c.state = ManualOpen
				} else {
					c.state = WaitClear
				}
				c.clearSince = time.Time{}
			}
		}

	case WaitClear:
		c.signal.AllOff()
		if !entrance && !exit {
			if c.clearSince.IsZero() {
				c.clearSince = now
			}
			// The dwell is continuous, not cumulative.
			if now.Sub(c.clearSince) >= c.cfg.SafeDelay {
				c.beginMotion(now, c.cfg.ClosedAngle)
				c.state = Closing
			}
		} else {
			c.clearSince = time.Time{}
		}

	case Closing:
		c.blinkYellow(now)

		// Safety reversal: any detection aborts straight back to
		// Opening, bypassing everything else this tick.
		if entrance || exit {
			c.state = Opening
			c.target = c.cfg.OpenAngle
			return
		}
		if now.Sub(c.lastStep) >= c.cfg.StepInterval {
			c.angle -= c.cfg.Step
			if c.angle < c.target {
				c.angle = c.target
			}
			c.applyAngle(c.angle)
			c.lastStep = now
			if c.angle <= c.cfg.ClosedAngle {
				c.signal.SetYellow(false)
				c.signal.SetRed(true)
				c.state = Idle
			}
		}

	case ManualOpen:
		// Held open; an accepted remote close was handled above.
	}
}

// beginMotion arms the step and blink timers and sets the target.
// Callers set the state.
func (c *Controller) beginMotion(now time.Time, target int) {
	c.target = target
	c.lastStep = now
	c.lastBlink = now
}

func (c *Controller) blinkYellow(now time.Time) {
	if now.Sub(c.lastBlink) >= c.cfg.BlinkInterval {
		c.signal.ToggleYellow()
		c.lastBlink = now
	}
}

// applyAngle maps a logical angle to the servo pulse and applies it.
// The servo is mounted mirrored, so the physical angle is inverted
// before the pulse mapping. Out-of-range values are clamped, never
// rejected; actuation errors are logged without retry.
func (c *Controller) applyAngle(logical int) {
	logical = clampAngle(logical)
	physical := clampAngle(90 - logical)
	duty := c.cfg.PulseMin + uint32(physical)*c.cfg.PulseSpan/180
	if err := c.servo.SetPulse(duty); err != nil {
		log.Printf("servo: %v", err)
	}
}

func clampAngle(a int) int {
	if a < 0 {
		return 0
	}
	if a > 180 {
		return 180
	}
	return a
}

func (c *Controller) samplePresence(s hal.PresenceSensor, last *bool, name string) bool {
	v, err := s.Detected()
	if err != nil {
		log.Printf("%s detector: %v", name, err)
		return *last
	}
	*last = v
	return v
}

func (c *Controller) sampleButton() bool {
	v, err := c.button.Pressed()
	if err != nil {
		log.Printf("gate button: %v", err)
		return c.lastButton
	}
	c.lastButton = v
	return v
}

// State returns the current state.
func (c *Controller) State() State {
	return c.state
}

// Angle returns the current logical angle.
func (c *Controller) Angle() int {
	return c.angle
}

// Moving reports whether the barrier is mid-motion. The scheduler uses
// this to tighten the loop for smooth servo stepping.
func (c *Controller) Moving() bool {
	if c.state == Opening || c.state == Closing {
		return c.angle != c.target
	}
	return false
}

// IsOpen reports whether the barrier is open or opening.
func (c *Controller) IsOpen() bool {
	return c.state == Opening || c.state == WaitClear || c.state == ManualOpen
}
