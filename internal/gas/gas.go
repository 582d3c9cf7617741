// Package gas watches the MQ-2 raw level and raises a hysteretic alarm:
// it trips when the level exceeds the threshold and clears only when it
// drops below threshold minus hysteresis, so readings in between never
// flap the state.
package gas

import (
	"log"
	"time"

	"github.com/bove903/NextGarage-IoT-System/internal/buzzer"
	"github.com/bove903/NextGarage-IoT-System/internal/config"
	"github.com/bove903/NextGarage-IoT-System/internal/hal"
)

// Watchdog owns the alarm decision and its actuators: the buzzer's
// alarm mode and the alarm LED.
type Watchdog struct {
	cfg    *config.Config
	sensor hal.LevelSensor
	buzz   *buzzer.Controller
	led    hal.LED

	alarm   bool
	lastRaw int
}

func NewWatchdog(cfg *config.Config, sensor hal.LevelSensor, buzz *buzzer.Controller, led hal.LED) *Watchdog {
	return &Watchdog{cfg: cfg, sensor: sensor, buzz: buzz, led: led}
}

// Check reads the sensor and updates the alarm. It returns true when
// the alarm state changed. A failed read keeps the last known-good
// level; the alarm decision is then re-evaluated against that.
func (w *Watchdog) Check(now time.Time) bool {
	raw, err := w.sensor.ReadRaw()
	if err != nil {
		log.Printf("gas sensor: %v", err)
		raw = w.lastRaw
	} else {
		w.lastRaw = raw
	}

	switch {
	case !w.alarm && raw > w.cfg.GasThreshold:
		log.Printf("gas alarm raised: raw=%d threshold=%d", raw, w.cfg.GasThreshold)
		w.alarm = true
		w.buzz.StartAlarm(w.cfg.AlarmFreqHz, w.cfg.AlarmInterval(), now)
		if err := w.led.Set(true); err != nil {
			log.Printf("alarm led: %v", err)
		}
		return true

	case w.alarm && raw < w.cfg.GasThreshold-w.cfg.GasHysteresis:
		log.Printf("gas alarm cleared: raw=%d", raw)
		w.alarm = false
		w.buzz.StopAlarm()
		if err := w.led.Set(false); err != nil {
			log.Printf("alarm led: %v", err)
		}
		return true
	}
	return false
}

// Alarm reports whether the alarm is active. While it is, the caller
// suppresses occupancy checks: safety outranks parking logic.
func (w *Watchdog) Alarm() bool {
	return w.alarm
}

// LastRaw returns the last known-good raw level.
func (w *Watchdog) LastRaw() int {
	return w.lastRaw
}
