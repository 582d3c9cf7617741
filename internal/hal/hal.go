// Package hal defines the hardware contracts the controller depends on.
// Real implementations use the Linux GPIO character device (digital lines)
// and periph.io (PWM, I2C); fakes allow testing without hardware.
//
// Hardware failures are reported as explicit error kinds so that callers
// decide the fallback policy instead of the lowest layer hiding it.
package hal

import "errors"

// Error kinds returned by real sensor implementations. Wrap with
// fmt.Errorf("...: %w", ...) and test with errors.Is.
var (
	// ErrTimeout means a bounded hardware wait expired (e.g. no echo pulse).
	ErrTimeout = errors.New("hal: timeout")
	// ErrBus means the underlying GPIO or I2C transaction failed.
	ErrBus = errors.New("hal: bus error")
	// ErrNotPresent means an optional device was not found at startup.
	ErrNotPresent = errors.New("hal: device not present")
)

// PresenceSensor is a boolean object detector (IR reflective sensor).
type PresenceSensor interface {
	// Detected returns true while an object is in front of the sensor.
	Detected() (bool, error)
}

// DistanceSensor measures the distance to the nearest object.
type DistanceSensor interface {
	// DistanceCm returns the distance in centimeters. The measurement is
	// bounded by an internal timeout; ErrTimeout is returned on expiry.
	DistanceCm() (float64, error)
}

// LevelSensor reads a raw analog level (gas concentration proxy).
type LevelSensor interface {
	// ReadRaw returns the raw ADC level, 0..4095.
	ReadRaw() (int, error)
}

// LuxSensor reads ambient light. Optional: construction fails with
// ErrNotPresent when the device is absent and the feature is skipped.
type LuxSensor interface {
	ReadLux() (float64, error)
}

// Button is a momentary push-button, pressed while held.
type Button interface {
	Pressed() (bool, error)
}

// TrafficSignal drives the three-light entrance signal. Each light is
// switched independently; ToggleYellow flips the yellow lamp for blinking.
type TrafficSignal interface {
	SetRed(on bool)
	SetYellow(on bool)
	SetGreen(on bool)
	ToggleYellow()
	AllOff()
}

// Servo positions the barrier. SetPulse takes a 16-bit PWM duty value
// (50 Hz frame) already mapped from the physical angle.
type Servo interface {
	SetPulse(duty uint32) error
}

// ToneOutput is a PWM buzzer.
type ToneOutput interface {
	// Tone sounds continuously at the given frequency.
	Tone(freqHz int) error
	// Silence stops the output.
	Silence() error
}

// LED is a single on/off indicator.
type LED interface {
	Set(on bool) error
}

// SpotLEDs is the red/green pair above the parking spot.
type SpotLEDs interface {
	SetOccupied()
	SetFree()
}

// DimmableLight is the PWM parking lamp.
type DimmableLight interface {
	// On sets brightness as a percentage, clamped to 0..100.
	On(percent int) error
	Off() error
}
