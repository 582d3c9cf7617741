// Package mqtt carries the controller's command and telemetry surface.
// Inbound commands arrive on parking/cmd/# and parking/cfg/# and are
// queued for the control loop; outbound state goes to retained topics a
// dashboard can pick up at any time.
package mqtt

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Topic layout.
const (
	TopicPrefix = "parking"

	TopicCmdOpenGate  = "parking/cmd/open_gate"
	TopicCmdCloseGate = "parking/cmd/close_gate"
	TopicCmdLightMode = "parking/cmd/parking_light_mode"
	TopicCmdReset     = "parking/cmd/reset_config"

	TopicCfgPrefix = "parking/cfg/"

	TopicSystem   = "parking/system"
	TopicGate     = "parking/state/gate"
	TopicSpot     = "parking/state/spot"
	TopicGasAlarm = "parking/alarms/gas"
	TopicDistance = "parking/ultrasonic/distance"
	TopicGasLevel = "parking/sensors/gas"
	TopicLight    = "parking/env/light"
)

// CommandKind identifies an inbound command.
type CommandKind int

const (
	CmdOpenGate CommandKind = iota
	CmdCloseGate
	CmdLightMode
	CmdResetConfig
	CmdSetThreshold
)

// Command is a parsed inbound message. Param/Value are set for light
// mode and threshold updates.
type Command struct {
	Kind  CommandKind
	Param string
	Value string
}

// ErrConfirmEcho marks our own retained confirmation messages looping
// back through the cfg subscription. Callers drop these silently.
var ErrConfirmEcho = errors.New("mqtt: confirmation echo")

// ParseCommand maps a topic/payload pair to a Command. Malformed or
// unknown messages yield an error; the caller logs and discards them
// without any state change.
func ParseCommand(topic, payload string) (Command, error) {
	payload = strings.TrimSpace(payload)

	if strings.HasSuffix(topic, "/confirm") {
		return Command{}, ErrConfirmEcho
	}

	switch topic {
	case TopicCmdOpenGate:
		return Command{Kind: CmdOpenGate}, nil
	case TopicCmdCloseGate:
		return Command{Kind: CmdCloseGate}, nil
	case TopicCmdLightMode:
		if payload == "" {
			return Command{}, fmt.Errorf("light mode: empty payload")
		}
		return Command{Kind: CmdLightMode, Value: payload}, nil
	case TopicCmdReset:
		return Command{Kind: CmdResetConfig}, nil
	}

	if param, ok := strings.CutPrefix(topic, TopicCfgPrefix); ok {
		if param == "" || strings.Contains(param, "/") {
			return Command{}, fmt.Errorf("bad cfg topic %q", topic)
		}
		if payload == "" {
			return Command{}, fmt.Errorf("cfg %s: empty payload", param)
		}
		return Command{Kind: CmdSetThreshold, Param: param, Value: payload}, nil
	}

	return Command{}, fmt.Errorf("unknown command topic %q", topic)
}

// Telemetry is one periodic snapshot published by the control loop.
type Telemetry struct {
	GateState    string
	SpotOccupied bool
	DistanceCm   float64 // already clamped for the dashboard gauge
	GasLevel     int
	GasAlarm     bool
	Lux          float64
}

// Publisher publishes controller state. Implementations must never let
// a publish failure reach the control loop as anything but an error
// value.
type Publisher interface {
	// PublishTelemetry fans the snapshot out to the per-value topics.
	PublishTelemetry(t Telemetry) error

	// PublishSpot updates the retained spot state immediately on a flip.
	PublishSpot(occupied bool) error

	// PublishGasAlarm updates the retained alarm state.
	PublishGasAlarm(active bool) error

	// PublishConfigValue broadcasts a retained configuration value
	// (used after a reset so the dashboard re-syncs its controls).
	PublishConfigValue(param, value string) error

	// ConfirmThreshold acknowledges a threshold update on
	// parking/cfg/<param>/confirm, retained.
	ConfirmThreshold(param, value string) error

	// Close disconnects from the broker.
	Close() error
}

// CommandSource exposes the inbound command queue drained by the loop.
type CommandSource interface {
	Commands() <-chan Command
}

// ConnectionStatus reports whether the broker connection is live.
type ConnectionStatus interface {
	IsConnected() bool
}

// SpotPayload renders the retained spot state.
func SpotPayload(occupied bool) string {
	if occupied {
		return "OCCUPIED"
	}
	return "FREE"
}

// GasAlarmPayload renders the retained gas alarm state.
func GasAlarmPayload(active bool) string {
	if active {
		return "ALARM"
	}
	return "OK"
}

// DistancePayload renders a distance with one decimal, matching the
// dashboard gauge.
func DistancePayload(cm float64) string {
	return strconv.FormatFloat(cm, 'f', 1, 64)
}
