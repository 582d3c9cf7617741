//go:build !linux

package hal

import "errors"

// The real drivers need the Linux GPIO character device and periph.io
// host support. On other platforms every constructor fails; run the
// daemon against fakes instead.

var errUnsupported = errors.New("hal: not supported on this platform (requires Linux)")

type Chip struct{}

func OpenChip() (*Chip, error) { return nil, errUnsupported }
func (c *Chip) Close() error   { return nil }

type IRSensor struct{}

func (c *Chip) NewIRSensor(pin int, name string) (*IRSensor, error) { return nil, errUnsupported }
func (s *IRSensor) Detected() (bool, error)                         { return false, errUnsupported }

type PushButton struct{}

func (c *Chip) NewPushButton(pin int, name string) (*PushButton, error) { return nil, errUnsupported }
func (b *PushButton) Pressed() (bool, error)                            { return false, errUnsupported }

type OutputPin struct{}

func (c *Chip) NewOutputPin(pin int) (*OutputPin, error) { return nil, errUnsupported }
func (p *OutputPin) Set(on bool) error                   { return errUnsupported }

type TrafficLight struct{}

func (c *Chip) NewTrafficLight(redPin, yellowPin, greenPin int) (*TrafficLight, error) {
	return nil, errUnsupported
}
func (t *TrafficLight) SetRed(on bool)    {}
func (t *TrafficLight) SetYellow(on bool) {}
func (t *TrafficLight) SetGreen(on bool)  {}
func (t *TrafficLight) ToggleYellow()     {}
func (t *TrafficLight) AllOff()           {}

type SpotIndicator struct{}

func (c *Chip) NewSpotIndicator(redPin, greenPin int) (*SpotIndicator, error) {
	return nil, errUnsupported
}
func (s *SpotIndicator) SetOccupied() {}
func (s *SpotIndicator) SetFree()     {}

type HCSR04 struct{}

func (c *Chip) NewHCSR04(trigPin, echoPin int) (*HCSR04, error) { return nil, errUnsupported }
func (u *HCSR04) DistanceCm() (float64, error)                  { return 0, errUnsupported }

type ServoPWM struct{}

func NewServoPWM(pinName string) (*ServoPWM, error) { return nil, errUnsupported }
func (s *ServoPWM) SetPulse(duty uint32) error      { return errUnsupported }

type BuzzerPWM struct{}

func NewBuzzerPWM(pinName string) (*BuzzerPWM, error) { return nil, errUnsupported }
func (b *BuzzerPWM) Tone(freqHz int) error            { return errUnsupported }
func (b *BuzzerPWM) Silence() error                   { return errUnsupported }

type LampPWM struct{}

func NewLampPWM(pinName string) (*LampPWM, error) { return nil, errUnsupported }
func (l *LampPWM) On(percent int) error           { return errUnsupported }
func (l *LampPWM) Off() error                     { return errUnsupported }

type MQ2 struct{}

func NewMQ2(portName string, channel int) (*MQ2, error) { return nil, errUnsupported }
func (m *MQ2) ReadRaw() (int, error)                    { return 0, errUnsupported }
func (m *MQ2) Baseline() int                            { return 0 }
func (m *MQ2) Percentage() (float64, error)             { return 0, errUnsupported }
func (m *MQ2) Close() error                             { return nil }

type TSL2561 struct{}

func NewTSL2561(busName string, addr uint16) (*TSL2561, error) { return nil, errUnsupported }
func (t *TSL2561) ReadLux() (float64, error)                   { return 0, errUnsupported }
func (t *TSL2561) Close() error                                { return nil }
