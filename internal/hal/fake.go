package hal

// Test doubles for every hardware contract. Settable fakes hold a value
// the test flips between update calls; scripted fakes consume a sample
// per read and repeat the last one when exhausted, matching how the
// control loop polls.

// FakePresence is a settable presence detector.
type FakePresence struct {
	Value bool
	// Err, if set, is returned by Detected.
	Err error
}

func (f *FakePresence) Detected() (bool, error) {
	if f.Err != nil {
		return false, f.Err
	}
	return f.Value, nil
}

// FakeDistance returns scripted distance samples.
type FakeDistance struct {
	Samples []float64
	// Errs, if non-nil, is consulted per sample; a non-nil entry is
	// returned instead of the reading.
	Errs  []error
	index int
}

func NewFakeDistance(samples []float64) *FakeDistance {
	return &FakeDistance{Samples: samples}
}

func (f *FakeDistance) DistanceCm() (float64, error) {
	i := f.index
	if i > len(f.Samples)-1 {
		i = len(f.Samples) - 1
	}
	if f.index < len(f.Samples)-1 {
		f.index++
	}
	if f.Errs != nil && i >= 0 && i < len(f.Errs) && f.Errs[i] != nil {
		return 0, f.Errs[i]
	}
	if i < 0 {
		return 0, ErrTimeout
	}
	return f.Samples[i], nil
}

// Reset rewinds to the first sample.
func (f *FakeDistance) Reset() { f.index = 0 }

// FakeLevel is a settable raw-level sensor.
type FakeLevel struct {
	Value int
	Err   error
}

func (f *FakeLevel) ReadRaw() (int, error) {
	if f.Err != nil {
		return 0, f.Err
	}
	return f.Value, nil
}

// FakeLux is a settable lux sensor.
type FakeLux struct {
	Value float64
	Err   error
}

func (f *FakeLux) ReadLux() (float64, error) {
	if f.Err != nil {
		return 0, f.Err
	}
	return f.Value, nil
}

// FakeButton is a settable push-button.
type FakeButton struct {
	Value bool
	Err   error
}

func (f *FakeButton) Pressed() (bool, error) {
	if f.Err != nil {
		return false, f.Err
	}
	return f.Value, nil
}

// FakeSignal records the traffic signal lamp states.
type FakeSignal struct {
	Red, Yellow, Green bool
	YellowToggles      int
}

func (f *FakeSignal) SetRed(on bool)    { f.Red = on }
func (f *FakeSignal) SetYellow(on bool) { f.Yellow = on }
func (f *FakeSignal) SetGreen(on bool)  { f.Green = on }

func (f *FakeSignal) ToggleYellow() {
	f.Yellow = !f.Yellow
	f.YellowToggles++
}

func (f *FakeSignal) AllOff() {
	f.Red, f.Yellow, f.Green = false, false, false
}

// FakeServo records every pulse applied.
type FakeServo struct {
	Pulses []uint32
	Err    error
}

func (f *FakeServo) SetPulse(duty uint32) error {
	if f.Err != nil {
		return f.Err
	}
	f.Pulses = append(f.Pulses, duty)
	return nil
}

// Last returns the most recent pulse, or 0 if none was applied.
func (f *FakeServo) Last() uint32 {
	if len(f.Pulses) == 0 {
		return 0
	}
	return f.Pulses[len(f.Pulses)-1]
}

// FakeTone records buzzer commands.
type FakeTone struct {
	Freq     int // current frequency, 0 when silent
	Tones    []int
	Silences int
}

func (f *FakeTone) Tone(freqHz int) error {
	f.Freq = freqHz
	f.Tones = append(f.Tones, freqHz)
	return nil
}

func (f *FakeTone) Silence() error {
	f.Freq = 0
	f.Silences++
	return nil
}

// FakeLED records an indicator state.
type FakeLED struct {
	On bool
}

func (f *FakeLED) Set(on bool) error {
	f.On = on
	return nil
}

// FakeSpotLEDs records the spot indicator state.
type FakeSpotLEDs struct {
	Occupied bool
	Changes  int
}

func (f *FakeSpotLEDs) SetOccupied() {
	f.Occupied = true
	f.Changes++
}

func (f *FakeSpotLEDs) SetFree() {
	f.Occupied = false
	f.Changes++
}

// FakeLamp records the parking lamp state.
type FakeLamp struct {
	Percent int // 0 = off
}

func (f *FakeLamp) On(percent int) error {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	f.Percent = percent
	return nil
}

func (f *FakeLamp) Off() error {
	f.Percent = 0
	return nil
}
