//go:build linux

package hal

import (
	"fmt"
	"log"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// Chip wraps the GPIO character device and hands out lines. All digital
// sensors and indicators share one chip handle.
type Chip struct {
	chip  *gpiocdev.Chip
	lines []*gpiocdev.Line
}

// OpenChip opens the default GPIO chip.
func OpenChip() (*Chip, error) {
	c, err := gpiocdev.NewChip("gpiochip0")
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}
	return &Chip{chip: c}, nil
}

// Close releases every requested line, then the chip.
func (c *Chip) Close() error {
	var firstErr error
	for _, l := range c.lines {
		if err := l.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := c.chip.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

func (c *Chip) input(pin int, opts ...gpiocdev.LineReqOption) (*gpiocdev.Line, error) {
	opts = append([]gpiocdev.LineReqOption{gpiocdev.AsInput}, opts...)
	l, err := c.chip.RequestLine(pin, opts...)
	if err != nil {
		return nil, fmt.Errorf("request input pin %d: %w", pin, err)
	}
	c.lines = append(c.lines, l)
	return l, nil
}

func (c *Chip) output(pin, initial int) (*gpiocdev.Line, error) {
	l, err := c.chip.RequestLine(pin, gpiocdev.AsOutput(initial))
	if err != nil {
		return nil, fmt.Errorf("request output pin %d: %w", pin, err)
	}
	c.lines = append(c.lines, l)
	return l, nil
}

// IRSensor is an active-low reflective IR detector.
type IRSensor struct {
	line *gpiocdev.Line
	name string
}

// NewIRSensor requests the sensor line. The modules drive the pin low
// while an obstacle reflects the beam.
func (c *Chip) NewIRSensor(pin int, name string) (*IRSensor, error) {
	l, err := c.input(pin)
	if err != nil {
		return nil, err
	}
	return &IRSensor{line: l, name: name}, nil
}

// Detected returns true while an object is present (line low).
func (s *IRSensor) Detected() (bool, error) {
	v, err := s.line.Value()
	if err != nil {
		return false, fmt.Errorf("%s: %w: %v", s.name, ErrBus, err)
	}
	return v == 0, nil
}

// PushButton is an active-low button with the internal pull-up enabled.
type PushButton struct {
	line *gpiocdev.Line
	name string
}

func (c *Chip) NewPushButton(pin int, name string) (*PushButton, error) {
	l, err := c.input(pin, gpiocdev.WithPullUp)
	if err != nil {
		return nil, err
	}
	return &PushButton{line: l, name: name}, nil
}

// Pressed returns true while the button is held (line low).
func (b *PushButton) Pressed() (bool, error) {
	v, err := b.line.Value()
	if err != nil {
		return false, fmt.Errorf("%s: %w: %v", b.name, ErrBus, err)
	}
	return v == 0, nil
}

// OutputPin is a single digital output (LED, lamp relay).
type OutputPin struct {
	line *gpiocdev.Line
}

func (c *Chip) NewOutputPin(pin int) (*OutputPin, error) {
	l, err := c.output(pin, 0)
	if err != nil {
		return nil, err
	}
	return &OutputPin{line: l}, nil
}

func (p *OutputPin) Set(on bool) error {
	v := 0
	if on {
		v = 1
	}
	if err := p.line.SetValue(v); err != nil {
		return fmt.Errorf("%w: %v", ErrBus, err)
	}
	return nil
}

// TrafficLight drives the red/yellow/green signal head. Write errors are
// logged, not propagated: a stuck lamp must not stall the state machine.
type TrafficLight struct {
	red, yellow, green *OutputPin
	yellowOn           bool
}

func (c *Chip) NewTrafficLight(redPin, yellowPin, greenPin int) (*TrafficLight, error) {
	red, err := c.NewOutputPin(redPin)
	if err != nil {
		return nil, err
	}
	yellow, err := c.NewOutputPin(yellowPin)
	if err != nil {
		return nil, err
	}
	green, err := c.NewOutputPin(greenPin)
	if err != nil {
		return nil, err
	}
	return &TrafficLight{red: red, yellow: yellow, green: green}, nil
}

func (t *TrafficLight) set(p *OutputPin, on bool) {
	if err := p.Set(on); err != nil {
		log.Printf("traffic light write: %v", err)
	}
}

func (t *TrafficLight) SetRed(on bool)   { t.set(t.red, on) }
func (t *TrafficLight) SetGreen(on bool) { t.set(t.green, on) }

func (t *TrafficLight) SetYellow(on bool) {
	t.yellowOn = on
	t.set(t.yellow, on)
}

func (t *TrafficLight) ToggleYellow() {
	t.SetYellow(!t.yellowOn)
}

func (t *TrafficLight) AllOff() {
	t.SetRed(false)
	t.SetYellow(false)
	t.SetGreen(false)
}

// SpotIndicator is the red/green pair above the parking spot.
type SpotIndicator struct {
	red, green *OutputPin
}

func (c *Chip) NewSpotIndicator(redPin, greenPin int) (*SpotIndicator, error) {
	red, err := c.NewOutputPin(redPin)
	if err != nil {
		return nil, err
	}
	green, err := c.NewOutputPin(greenPin)
	if err != nil {
		return nil, err
	}
	return &SpotIndicator{red: red, green: green}, nil
}

func (s *SpotIndicator) SetOccupied() {
	s.red.Set(true)
	s.green.Set(false)
}

func (s *SpotIndicator) SetFree() {
	s.red.Set(false)
	s.green.Set(true)
}

// echoTimeout bounds each HC-SR04 echo wait. 10 ms covers ~170 cm of
// round trip, well past the sensor's useful range here.
const echoTimeout = 10 * time.Millisecond

// HCSR04 is a bit-banged ultrasonic ranger: a 10 µs trigger pulse, then
// the echo line goes high for a duration proportional to the distance.
type HCSR04 struct {
	trig *gpiocdev.Line
	echo *gpiocdev.Line
}

func (c *Chip) NewHCSR04(trigPin, echoPin int) (*HCSR04, error) {
	trig, err := c.output(trigPin, 0)
	if err != nil {
		return nil, err
	}
	echo, err := c.input(echoPin)
	if err != nil {
		return nil, err
	}
	return &HCSR04{trig: trig, echo: echo}, nil
}

// DistanceCm fires one measurement. Both echo waits are bounded busy
// polls; ErrTimeout is returned if either edge never arrives.
func (u *HCSR04) DistanceCm() (float64, error) {
	if err := u.trig.SetValue(1); err != nil {
		return 0, fmt.Errorf("trigger: %w: %v", ErrBus, err)
	}
	time.Sleep(10 * time.Microsecond)
	if err := u.trig.SetValue(0); err != nil {
		return 0, fmt.Errorf("trigger: %w: %v", ErrBus, err)
	}

	// Wait for the echo pulse to start.
	deadline := time.Now().Add(echoTimeout)
	for {
		v, err := u.echo.Value()
		if err != nil {
			return 0, fmt.Errorf("echo: %w: %v", ErrBus, err)
		}
		if v != 0 {
			break
		}
		if time.Now().After(deadline) {
			return 0, fmt.Errorf("echo start: %w", ErrTimeout)
		}
	}
	start := time.Now()

	// Wait for it to end.
	deadline = start.Add(echoTimeout)
	for {
		v, err := u.echo.Value()
		if err != nil {
			return 0, fmt.Errorf("echo: %w: %v", ErrBus, err)
		}
		if v == 0 {
			break
		}
		if time.Now().After(deadline) {
			return 0, fmt.Errorf("echo end: %w", ErrTimeout)
		}
	}

	// Speed of sound 0.0343 cm/µs, halved for the round trip.
	pulse := time.Since(start)
	return float64(pulse.Microseconds()) * 0.0343 / 2, nil
}
