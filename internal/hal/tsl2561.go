//go:build linux

package hal

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
)

// TSL2561 register map.
const (
	tslCommandBit  = 0x80
	tslWordBit     = 0x20
	tslRegControl  = 0x00
	tslRegTiming   = 0x01
	tslRegID       = 0x0A
	tslRegChan0Low = 0x0C
	tslRegChan1Low = 0x0E

	tslPowerOn  = 0x03
	tslPowerOff = 0x00

	// 402 ms integration, 1x gain.
	tslIntegration402 = 0x02
	tslGain1x         = 0x00
)

// TSL2561 is the ambient light sensor on the I2C bus. Default address
// 0x39 (ADDR floating).
type TSL2561 struct {
	dev i2c.Dev
	bus i2c.BusCloser
}

// NewTSL2561 opens the bus ("" picks the first one) and probes the ID
// register. A missing or foreign device yields ErrNotPresent so callers
// can degrade the light feature to a no-op.
func NewTSL2561(busName string, addr uint16) (*TSL2561, error) {
	if err := initHost(); err != nil {
		return nil, fmt.Errorf("periph init: %w", err)
	}
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("open i2c: %w", err)
	}
	t := &TSL2561{dev: i2c.Dev{Bus: bus, Addr: addr}, bus: bus}

	id, err := t.readByte(tslRegID)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("tsl2561 probe at 0x%02x: %w", addr, ErrNotPresent)
	}
	// Part number nibble: 0000 = TSL2560, 0001 = TSL2561.
	if id&0xF0 != 0x00 && id&0xF0 != 0x10 {
		bus.Close()
		return nil, fmt.Errorf("tsl2561 id 0x%02x at 0x%02x: %w", id, addr, ErrNotPresent)
	}

	if err := t.writeByte(tslRegControl, tslPowerOn); err != nil {
		bus.Close()
		return nil, err
	}
	if err := t.writeByte(tslRegTiming, tslIntegration402|tslGain1x); err != nil {
		bus.Close()
		return nil, err
	}
	return t, nil
}

func (t *TSL2561) writeByte(reg, val byte) error {
	if err := t.dev.Tx([]byte{tslCommandBit | reg, val}, nil); err != nil {
		return fmt.Errorf("tsl2561 write 0x%02x: %w: %v", reg, ErrBus, err)
	}
	return nil
}

func (t *TSL2561) readByte(reg byte) (byte, error) {
	r := make([]byte, 1)
	if err := t.dev.Tx([]byte{tslCommandBit | reg}, r); err != nil {
		return 0, fmt.Errorf("tsl2561 read 0x%02x: %w: %v", reg, ErrBus, err)
	}
	return r[0], nil
}

func (t *TSL2561) readWord(reg byte) (uint16, error) {
	r := make([]byte, 2)
	if err := t.dev.Tx([]byte{tslCommandBit | tslWordBit | reg}, r); err != nil {
		return 0, fmt.Errorf("tsl2561 read 0x%02x: %w: %v", reg, ErrBus, err)
	}
	return uint16(r[1])<<8 | uint16(r[0]), nil
}

// ReadLux samples both channels and applies the datasheet's piecewise
// ratio approximation for the 402 ms / 1x configuration. Saturated
// readings return 0.
func (t *TSL2561) ReadLux() (float64, error) {
	// Let one integration cycle complete.
	time.Sleep(450 * time.Millisecond)

	broadband, err := t.readWord(tslRegChan0Low)
	if err != nil {
		return 0, err
	}
	infrared, err := t.readWord(tslRegChan1Low)
	if err != nil {
		return 0, err
	}
	return tslLux(broadband, infrared), nil
}

// tslLux converts raw channel counts to lux. Integer math follows the
// TSL2561 datasheet (T package coefficients), scaled for 1x gain.
func tslLux(broadband, infrared uint16) float64 {
	if broadband == 0xFFFF || infrared == 0xFFFF {
		return 0 // saturated
	}

	// 402 ms integration needs no time scaling; shift 4 compensates 1x gain.
	ch0 := uint32(broadband) << 4
	ch1 := uint32(infrared) << 4
	if ch0 == 0 {
		return 0
	}

	ratio := (ch1 << 10) / ch0
	var lux int64
	switch {
	case ratio <= 0x50:
		lux = (0x030*int64(ch0) - 0x066*int64(ch1)) / 100
	case ratio <= 0xA8:
		lux = (0x022*int64(ch0) - 0x055*int64(ch1)) / 100
	case ratio <= 0xEC:
		lux = (0x012*int64(ch0) - 0x037*int64(ch1)) / 100
	case ratio <= 0x190:
		lux = (0x00E*int64(ch0) - 0x029*int64(ch1)) / 100
	default:
		lux = 0
	}
	if lux < 0 {
		lux = 0
	}
	return float64(lux)
}

// Close powers the sensor down and releases the bus.
func (t *TSL2561) Close() error {
	t.writeByte(tslRegControl, tslPowerOff)
	return t.bus.Close()
}
