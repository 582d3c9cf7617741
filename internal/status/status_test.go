package status

import (
	"testing"
	"time"
)

func TestTrackerSnapshot(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tr := NewTracker(start, Config{Broker: "tcp://broker:1883", HTTPAddr: ":80", ConfigPath: "/etc/nextgarage/config.json"})

	snap := tr.Snapshot()
	if !snap.StartTime.Equal(start) {
		t.Errorf("expected start time %v, got %v", start, snap.StartTime)
	}
	if snap.Config.Broker != "tcp://broker:1883" {
		t.Errorf("unexpected broker %q", snap.Config.Broker)
	}
	if snap.GateState != "" {
		t.Errorf("expected empty gate state before first update, got %q", snap.GateState)
	}
}

func TestTrackerUpdate(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	tr.Update(Reading{
		GateState:  "WAIT_CLEAR",
		GateOpen:   true,
		SpotState:  "OCCUPIED",
		Occupied:   true,
		DistanceCm: 2.5,
		GasRaw:     300,
		Lux:        120,
		LightMode:  "AUTO",
	})

	snap := tr.Snapshot()
	if snap.GateState != "WAIT_CLEAR" || !snap.GateOpen {
		t.Errorf("gate not recorded: %+v", snap.Reading)
	}
	if snap.SpotState != "OCCUPIED" || !snap.Occupied {
		t.Errorf("spot not recorded: %+v", snap.Reading)
	}
	if snap.DistanceCm != 2.5 || snap.GasRaw != 300 {
		t.Errorf("sensor values not recorded: %+v", snap.Reading)
	}
}

func TestTrackerMQTTConnected(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	if tr.Snapshot().MQTTConnected {
		t.Error("expected disconnected initially")
	}
	tr.SetMQTTConnected(true)
	if !tr.Snapshot().MQTTConnected {
		t.Error("expected connected after set")
	}

	// An update must not clobber the connection flag.
	tr.Update(Reading{GateState: "IDLE"})
	if !tr.Snapshot().MQTTConnected {
		t.Error("update must preserve the connection flag")
	}
}

func TestSnapshotUptime(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	snap := Snapshot{StartTime: start, Now: start.Add(90 * time.Second)}
	if snap.Uptime() != 90*time.Second {
		t.Errorf("expected 90s uptime, got %v", snap.Uptime())
	}
}
