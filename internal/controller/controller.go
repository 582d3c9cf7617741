// Package controller runs the cooperative control loop. There is one
// logical thread of execution: each iteration updates the gate first
// and unconditionally, then (unless the barrier is mid-motion) runs
// the remaining tasks, each on its own deadline. While the barrier
// moves, the loop tightens to a short fixed sleep so servo steps stay
// regular; every other task waits.
package controller

import (
	"context"
	"errors"
	"log"
	"math"
	"strconv"
	"time"

	"github.com/bove903/NextGarage-IoT-System/internal/buzzer"
	"github.com/bove903/NextGarage-IoT-System/internal/config"
	"github.com/bove903/NextGarage-IoT-System/internal/gas"
	"github.com/bove903/NextGarage-IoT-System/internal/gate"
	"github.com/bove903/NextGarage-IoT-System/internal/hal"
	"github.com/bove903/NextGarage-IoT-System/internal/mqtt"
	"github.com/bove903/NextGarage-IoT-System/internal/occupancy"
	"github.com/bove903/NextGarage-IoT-System/internal/status"
)

// ErrResetRequested is returned by Run after a sustained hold of the
// master button. The process exits and the supervisor restarts it; this
// is the only intentional, fatal-by-design termination.
var ErrResetRequested = errors.New("operator reset requested")

// Deps wires the loop to its collaborators. Lux, Lamp, Publisher,
// ConnStatus, and Tracker may be nil; the corresponding tasks degrade
// to no-ops.
type Deps struct {
	Config     *config.Config
	ConfigPath string // empty disables persistence

	Gate   *gate.Controller
	Spot   *occupancy.Detector
	Gas    *gas.Watchdog
	Buzzer *buzzer.Controller

	Lux         hal.LuxSensor
	Lamp        hal.DimmableLight
	ResetButton hal.Button

	Commands   <-chan mqtt.Command
	Publisher  mqtt.Publisher
	ConnStatus mqtt.ConnectionStatus
	Tracker    *status.Tracker
}

// Controller is the scheduler. All fields are owned by the loop
// goroutine; only the command channel is fed from outside.
type Controller struct {
	d   Deps
	cfg *config.Config

	lastCommandPoll time.Time
	lastDistance    time.Time
	lastGas         time.Time
	lastLight       time.Time
	lastDisplay     time.Time
	lastTelemetry   time.Time

	pressStart time.Time // zero = master button not held
	wasMoving  bool
	lastLux    float64
}

func New(d Deps) *Controller {
	return &Controller{d: d, cfg: d.Config}
}

// Step runs one loop iteration at the given instant and returns how
// long to sleep before the next one. A non-nil error terminates the
// loop (only ErrResetRequested today).
func (c *Controller) Step(now time.Time) (time.Duration, error) {
	// The gate runs first, every tick, so it always sees the freshest
	// sensor values before anything else executes.
	c.d.Gate.Update(now)

	if c.d.Gate.Moving() {
		// Tight loop for smooth stepping; everything else waits.
		c.wasMoving = true
		return c.cfg.MoveSleep(), nil
	}

	if c.wasMoving {
		// Motion just finished: refresh the slow consumers right away
		// instead of waiting out their deadlines.
		c.wasMoving = false
		c.checkLight()
		c.lastLight = now
		c.publishTelemetry()
		c.lastTelemetry = now
		c.refreshDisplay()
		c.lastDisplay = now
	}

	if due(&c.lastCommandPoll, c.cfg.CommandPoll(), now) {
		c.pollCommands(now)
	}

	if err := c.checkResetButton(now); err != nil {
		return 0, err
	}

	if due(&c.lastDistance, c.cfg.DistanceCheck(), now) && !c.d.Gas.Alarm() {
		// Occupancy is suppressed entirely while the gas alarm is
		// active; safety owns the buzzer then.
		if c.d.Spot.Check(now) {
			occupied := c.d.Spot.Full()
			log.Printf("spot %s (%.1f cm)", mqtt.SpotPayload(occupied), c.d.Spot.LastDistance())
			if c.d.Publisher != nil {
				if err := c.d.Publisher.PublishSpot(occupied); err != nil {
					log.Printf("publish spot: %v", err)
				}
			}
		}
	}

	if due(&c.lastGas, c.cfg.GasCheck(), now) {
		if c.d.Gas.Check(now) {
			if c.d.Publisher != nil {
				if err := c.d.Publisher.PublishGasAlarm(c.d.Gas.Alarm()); err != nil {
					log.Printf("publish gas alarm: %v", err)
				}
			}
		}
	}

	if due(&c.lastLight, c.cfg.LightCheck(), now) {
		c.checkLight()
	}

	if due(&c.lastDisplay, c.cfg.Display(), now) {
		c.refreshDisplay()
	}

	if due(&c.lastTelemetry, c.cfg.Telemetry(), now) {
		c.publishTelemetry()
	}

	// Non-blocking, every tick: the alarm blink has no timer of its own.
	c.d.Buzzer.Update(now)

	return c.cfg.IdleSleep(), nil
}

// Run executes Step until the context is cancelled or a step fails.
func (c *Controller) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		sleep, err := c.Step(time.Now())
		if err != nil {
			return err
		}
		time.Sleep(sleep)
	}
}

// due reports whether interval has elapsed since *last and, if so,
// advances it. A zero *last is immediately due.
func due(last *time.Time, interval time.Duration, now time.Time) bool {
	if !last.IsZero() && now.Sub(*last) < interval {
		return false
	}
	*last = now
	return true
}

// pollCommands drains everything queued since the previous poll. Each
// command is applied synchronously on the loop goroutine.
func (c *Controller) pollCommands(now time.Time) {
	for {
		select {
		case cmd := <-c.d.Commands:
			c.apply(cmd, now)
		default:
			return
		}
	}
}

func (c *Controller) apply(cmd mqtt.Command, now time.Time) {
	switch cmd.Kind {
	case mqtt.CmdOpenGate:
		log.Printf("remote open requested")
		c.d.Gate.RequestOpen()

	case mqtt.CmdCloseGate:
		log.Printf("remote close requested")
		c.d.Gate.RequestClose()

	case mqtt.CmdLightMode:
		if err := c.cfg.UpdateLightMode(cmd.Value); err != nil {
			log.Printf("light mode: %v", err)
			return
		}
		log.Printf("light mode set to %s", c.cfg.LightMode)
		c.applyLightMode()
		c.saveConfig()

	case mqtt.CmdResetConfig:
		log.Printf("resetting thresholds to defaults")
		c.cfg.ResetThresholds()
		c.applyLightMode()
		c.saveConfig()
		// Re-sync the dashboard's controls.
		if c.d.Publisher != nil {
			c.broadcastConfig()
		}

	case mqtt.CmdSetThreshold:
		if err := c.cfg.UpdateThreshold(cmd.Param, cmd.Value); err != nil {
			log.Printf("threshold update: %v", err)
			return
		}
		log.Printf("threshold %s set to %s", cmd.Param, cmd.Value)
		c.saveConfig()
		if c.d.Publisher != nil {
			if err := c.d.Publisher.ConfirmThreshold(cmd.Param, cmd.Value); err != nil {
				log.Printf("confirm %s: %v", cmd.Param, err)
			}
		}

	default:
		log.Printf("ignoring unknown command kind %d", cmd.Kind)
	}
}

func (c *Controller) broadcastConfig() {
	values := map[string]string{
		"mq2_threshold":        strconv.Itoa(c.cfg.GasThreshold),
		"mq2_hyst":             strconv.Itoa(c.cfg.GasHysteresis),
		"lux_threshold":        strconv.FormatFloat(c.cfg.LuxThreshold, 'f', -1, 64),
		"near_cm":              strconv.FormatFloat(c.cfg.NearCm, 'f', -1, 64),
		"far_cm":               strconv.FormatFloat(c.cfg.FarCm, 'f', -1, 64),
		"confirm_tolerance_cm": strconv.FormatFloat(c.cfg.ConfirmToleranceCm, 'f', -1, 64),
	}
	for param, value := range values {
		if err := c.d.Publisher.PublishConfigValue(param, value); err != nil {
			log.Printf("broadcast %s: %v", param, err)
		}
	}
}

func (c *Controller) saveConfig() {
	if c.d.ConfigPath == "" {
		return
	}
	if err := c.cfg.Save(c.d.ConfigPath); err != nil {
		log.Printf("save config: %v", err)
	}
}

// checkResetButton tracks a sustained master-button hold. The loop
// keeps running until the hold reaches the long-press duration.
func (c *Controller) checkResetButton(now time.Time) error {
	if c.d.ResetButton == nil {
		return nil
	}
	pressed, err := c.d.ResetButton.Pressed()
	if err != nil {
		log.Printf("master button: %v", err)
		return nil
	}
	if !pressed {
		c.pressStart = time.Time{}
		return nil
	}
	if c.pressStart.IsZero() {
		c.pressStart = now
		return nil
	}
	if now.Sub(c.pressStart) >= c.cfg.LongPress() {
		log.Printf("master button held %v, restarting", c.cfg.LongPress())
		return ErrResetRequested
	}
	return nil
}

// checkLight runs the AUTO lamp policy. Manual ON/OFF modes are applied
// once on change; read errors skip the adjustment.
func (c *Controller) checkLight() {
	if c.cfg.LightMode != "AUTO" || c.d.Lux == nil || c.d.Lamp == nil {
		return
	}
	lux, err := c.d.Lux.ReadLux()
	if err != nil {
		log.Printf("lux sensor: %v", err)
		return
	}
	c.lastLux = lux
	if lux < c.cfg.LuxThreshold {
		if err := c.d.Lamp.On(100); err != nil {
			log.Printf("parking lamp: %v", err)
		}
	} else {
		if err := c.d.Lamp.Off(); err != nil {
			log.Printf("parking lamp: %v", err)
		}
	}
}

// applyLightMode enforces a manual mode immediately. AUTO defers to the
// periodic check.
func (c *Controller) applyLightMode() {
	if c.d.Lamp == nil {
		return
	}
	switch c.cfg.LightMode {
	case "ON":
		if err := c.d.Lamp.On(100); err != nil {
			log.Printf("parking lamp: %v", err)
		}
	case "OFF":
		if err := c.d.Lamp.Off(); err != nil {
			log.Printf("parking lamp: %v", err)
		}
	default:
		c.checkLight()
	}
}

func (c *Controller) publishTelemetry() {
	if c.d.Publisher == nil {
		return
	}
	t := mqtt.Telemetry{
		GateState:    c.d.Gate.State().String(),
		SpotOccupied: c.d.Spot.Full(),
		DistanceCm:   c.cappedDistance(),
		GasLevel:     c.d.Gas.LastRaw(),
		GasAlarm:     c.d.Gas.Alarm(),
		Lux:          c.lastLux,
	}
	if err := c.d.Publisher.PublishTelemetry(t); err != nil {
		log.Printf("publish telemetry: %v", err)
	}
}

// cappedDistance clamps the filtered distance to the dashboard cap and
// rounds to one decimal.
func (c *Controller) cappedDistance() float64 {
	d := c.d.Spot.LastDistance()
	if d > c.cfg.DistanceCapCm {
		d = c.cfg.DistanceCapCm
	}
	return math.Round(d*10) / 10
}

func (c *Controller) refreshDisplay() {
	if c.d.Tracker == nil {
		return
	}
	if c.d.ConnStatus != nil {
		c.d.Tracker.SetMQTTConnected(c.d.ConnStatus.IsConnected())
	}
	c.d.Tracker.Update(status.Reading{
		GateState:  c.d.Gate.State().String(),
		GateOpen:   c.d.Gate.IsOpen(),
		SpotState:  c.d.Spot.State().String(),
		Occupied:   c.d.Spot.Full(),
		Assist:     c.d.Spot.Assist(),
		DistanceCm: c.d.Spot.LastDistance(),
		GasRaw:     c.d.Gas.LastRaw(),
		GasAlarm:   c.d.Gas.Alarm(),
		Lux:        c.lastLux,
		LightMode:  c.cfg.LightMode,
	})
}
