//go:build linux

package hal

import (
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

var hostOnce sync.Once
var hostErr error

// initHost initialises periph host drivers. Safe to call repeatedly.
func initHost() error {
	hostOnce.Do(func() {
		_, hostErr = host.Init()
	})
	return hostErr
}

func pinByName(name string) (gpio.PinIO, error) {
	if err := initHost(); err != nil {
		return nil, fmt.Errorf("periph init: %w", err)
	}
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("pin %s: %w", name, ErrNotPresent)
	}
	return p, nil
}

// ServoPWM drives the barrier servo with a 50 Hz PWM frame.
type ServoPWM struct {
	pin gpio.PinIO
}

// NewServoPWM looks up the pin by name, e.g. "GPIO18" (a hardware PWM
// capable pin on the Pi).
func NewServoPWM(pinName string) (*ServoPWM, error) {
	p, err := pinByName(pinName)
	if err != nil {
		return nil, err
	}
	return &ServoPWM{pin: p}, nil
}

// SetPulse applies a 16-bit duty value, rescaled to periph's duty range.
func (s *ServoPWM) SetPulse(duty uint32) error {
	if duty > 65535 {
		duty = 65535
	}
	d := gpio.Duty(uint64(duty) * uint64(gpio.DutyMax) / 65535)
	if err := s.pin.PWM(d, 50*physic.Hertz); err != nil {
		return fmt.Errorf("servo pwm: %w: %v", ErrBus, err)
	}
	return nil
}

// BuzzerPWM is a piezo buzzer on a PWM pin, driven at half duty.
type BuzzerPWM struct {
	pin gpio.PinIO
}

func NewBuzzerPWM(pinName string) (*BuzzerPWM, error) {
	p, err := pinByName(pinName)
	if err != nil {
		return nil, err
	}
	return &BuzzerPWM{pin: p}, nil
}

func (b *BuzzerPWM) Tone(freqHz int) error {
	if freqHz <= 0 {
		return b.Silence()
	}
	f := physic.Frequency(freqHz) * physic.Hertz
	if err := b.pin.PWM(gpio.DutyHalf, f); err != nil {
		return fmt.Errorf("buzzer pwm: %w: %v", ErrBus, err)
	}
	return nil
}

func (b *BuzzerPWM) Silence() error {
	if err := b.pin.Out(gpio.Low); err != nil {
		return fmt.Errorf("buzzer off: %w: %v", ErrBus, err)
	}
	return nil
}

// LampPWM is the dimmable parking lamp.
type LampPWM struct {
	pin gpio.PinIO
}

func NewLampPWM(pinName string) (*LampPWM, error) {
	p, err := pinByName(pinName)
	if err != nil {
		return nil, err
	}
	return &LampPWM{pin: p}, nil
}

func (l *LampPWM) On(percent int) error {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	d := gpio.Duty(uint64(percent) * uint64(gpio.DutyMax) / 100)
	if err := l.pin.PWM(d, physic.KiloHertz); err != nil {
		return fmt.Errorf("lamp pwm: %w: %v", ErrBus, err)
	}
	return nil
}

func (l *LampPWM) Off() error {
	if err := l.pin.Out(gpio.Low); err != nil {
		return fmt.Errorf("lamp off: %w: %v", ErrBus, err)
	}
	return nil
}

// MQ2 reads the gas sensor's analog output through an MCP3008 ADC on
// SPI (the Pi has no on-chip ADC). Readings are rescaled from the
// converter's 10 bits to the 0..4095 range the thresholds use.
type MQ2 struct {
	conn     spi.Conn
	port     spi.PortCloser
	channel  int
	baseline int
}

// NewMQ2 opens the SPI port ("" picks the first one) and takes a
// clean-air baseline average.
func NewMQ2(portName string, channel int) (*MQ2, error) {
	if err := initHost(); err != nil {
		return nil, fmt.Errorf("periph init: %w", err)
	}
	port, err := spireg.Open(portName)
	if err != nil {
		return nil, fmt.Errorf("open spi: %w", err)
	}
	conn, err := port.Connect(physic.MegaHertz, spi.Mode0, 8)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("spi connect: %w", err)
	}
	m := &MQ2{conn: conn, port: port, channel: channel}

	total := 0
	for i := 0; i < 10; i++ {
		v, err := m.ReadRaw()
		if err != nil {
			port.Close()
			return nil, fmt.Errorf("baseline read: %w", err)
		}
		total += v
		time.Sleep(time.Millisecond)
	}
	m.baseline = total / 10
	return m, nil
}

// ReadRaw returns the averaged raw level, 0..4095.
func (m *MQ2) ReadRaw() (int, error) {
	total := 0
	for i := 0; i < 3; i++ {
		v, err := m.readOnce()
		if err != nil {
			return 0, err
		}
		total += v
	}
	return total / 3, nil
}

func (m *MQ2) readOnce() (int, error) {
	// MCP3008 single-ended read: start bit, SGL|channel, then 10 bits back.
	w := []byte{0x01, byte(0x80 | m.channel<<4), 0x00}
	r := make([]byte, 3)
	if err := m.conn.Tx(w, r); err != nil {
		return 0, fmt.Errorf("mcp3008: %w: %v", ErrBus, err)
	}
	raw := int(r[1]&0x03)<<8 | int(r[2])
	return raw << 2, nil
}

// Baseline returns the clean-air level sampled at startup.
func (m *MQ2) Baseline() int {
	return m.baseline
}

// Percentage normalises the raw level to 0..100. Indicative only, not a
// calibrated concentration.
func (m *MQ2) Percentage() (float64, error) {
	raw, err := m.ReadRaw()
	if err != nil {
		return 0, err
	}
	pct := float64(raw) / 4095 * 100
	if pct > 100 {
		pct = 100
	}
	return pct, nil
}

// Close releases the SPI port.
func (m *MQ2) Close() error {
	return m.port.Close()
}
