package mqtt

// FakeClient records outbound messages and lets tests inject inbound
// commands.
type FakeClient struct {
	// Telemetry contains every snapshot published.
	Telemetry []Telemetry

	// SpotStates contains retained spot payloads in publish order.
	SpotStates []string

	// GasAlarms contains retained gas alarm payloads in publish order.
	GasAlarms []string

	// ConfigValues maps param -> last broadcast value.
	ConfigValues map[string]string

	// Confirms maps param -> last confirmed value.
	Confirms map[string]string

	// PublishError, if set, is returned by every publish method.
	PublishError error

	// Connected controls IsConnected.
	Connected bool

	// Closed tracks whether Close was called.
	Closed bool

	commands chan Command
}

// NewFakeClient creates a connected fake with a buffered command queue.
func NewFakeClient() *FakeClient {
	return &FakeClient{
		ConfigValues: make(map[string]string),
		Confirms:     make(map[string]string),
		Connected:    true,
		commands:     make(chan Command, commandQueueSize),
	}
}

// Inject queues an inbound command as if it arrived from the broker.
func (f *FakeClient) Inject(cmd Command) {
	f.commands <- cmd
}

func (f *FakeClient) Commands() <-chan Command {
	return f.commands
}

func (f *FakeClient) IsConnected() bool {
	return f.Connected
}

func (f *FakeClient) PublishTelemetry(t Telemetry) error {
	if f.PublishError != nil {
		return f.PublishError
	}
	f.Telemetry = append(f.Telemetry, t)
	return nil
}

func (f *FakeClient) PublishSpot(occupied bool) error {
	if f.PublishError != nil {
		return f.PublishError
	}
	f.SpotStates = append(f.SpotStates, SpotPayload(occupied))
	return nil
}

func (f *FakeClient) PublishGasAlarm(active bool) error {
	if f.PublishError != nil {
		return f.PublishError
	}
	f.GasAlarms = append(f.GasAlarms, GasAlarmPayload(active))
	return nil
}

func (f *FakeClient) PublishConfigValue(param, value string) error {
	if f.PublishError != nil {
		return f.PublishError
	}
	f.ConfigValues[param] = value
	return nil
}

func (f *FakeClient) ConfirmThreshold(param, value string) error {
	if f.PublishError != nil {
		return f.PublishError
	}
	f.Confirms[param] = value
	return nil
}

func (f *FakeClient) Close() error {
	f.Closed = true
	return nil
}
