// Package buzzer drives the piezo in one of two mutually exclusive
// modes: a continuous parking-assist tone, or a blinking alarm toggled
// by polling. There is no timer interrupt; Update must be called every
// loop tick.
package buzzer

import (
	"log"
	"time"

	"github.com/bove903/NextGarage-IoT-System/internal/hal"
)

// Mode identifies what the buzzer is currently doing.
type Mode int

const (
	Off Mode = iota
	Parking
	Alarm
)

func (m Mode) String() string {
	switch m {
	case Off:
		return "OFF"
	case Parking:
		return "PARKING"
	case Alarm:
		return "ALARM"
	}
	return "UNKNOWN"
}

// Controller owns the tone output. Whichever caller last selected a
// mode wins.
type Controller struct {
	out hal.ToneOutput

	mode   Mode
	active bool

	alarmFreq     int
	alarmInterval time.Duration
	lastToggle    time.Time
	sounding      bool // alarm phase: tone vs silent
}

func New(out hal.ToneOutput) *Controller {
	return &Controller{out: out}
}

// SetParkingTone sounds a continuous tone at freqHz, switching to
// parking mode.
func (c *Controller) SetParkingTone(freqHz int) {
	if err := c.out.Tone(freqHz); err != nil {
		log.Printf("buzzer tone: %v", err)
	}
	c.mode = Parking
	c.active = true
}

// StartAlarm switches to alarm mode: the tone blinks at the given
// interval, driven by Update.
func (c *Controller) StartAlarm(freqHz int, interval time.Duration, now time.Time) {
	c.alarmFreq = freqHz
	c.alarmInterval = interval
	c.lastToggle = now
	c.mode = Alarm
	c.active = true
	c.sounding = false
}

// StopParking silences the buzzer only if it is in parking mode.
func (c *Controller) StopParking() {
	if c.mode != Parking {
		return
	}
	c.silence()
}

// StopAlarm silences the buzzer only if it is in alarm mode.
func (c *Controller) StopAlarm() {
	if c.mode != Alarm {
		return
	}
	c.silence()
}

// Stop silences the buzzer regardless of mode.
func (c *Controller) Stop() {
	c.silence()
}

func (c *Controller) silence() {
	if err := c.out.Silence(); err != nil {
		log.Printf("buzzer silence: %v", err)
	}
	c.mode = Off
	c.active = false
	c.sounding = false
}

// Update advances the alarm blink. Non-blocking; call once per tick.
func (c *Controller) Update(now time.Time) {
	if c.mode != Alarm || !c.active {
		return
	}
	if now.Sub(c.lastToggle) < c.alarmInterval {
		return
	}
	if c.sounding {
		if err := c.out.Silence(); err != nil {
			log.Printf("buzzer silence: %v", err)
		}
		c.sounding = false
	} else {
		if err := c.out.Tone(c.alarmFreq); err != nil {
			log.Printf("buzzer tone: %v", err)
		}
		c.sounding = true
	}
	c.lastToggle = now
}

// Mode returns the current mode.
func (c *Controller) Mode() Mode {
	return c.mode
}

// Active reports whether either mode is engaged.
func (c *Controller) Active() bool {
	return c.active
}
