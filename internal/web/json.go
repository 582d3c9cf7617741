package web

import (
	"encoding/json"
	"time"

	"github.com/bove903/NextGarage-IoT-System/internal/status"
)

// StatusJSON is the JSON representation of the controller status.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Gate          string     `json:"gate"`
	GateOpen      bool       `json:"gate_open"`
	Spot          string     `json:"spot"`
	Occupied      bool       `json:"occupied"`
	Assist        bool       `json:"assist"`
	DistanceCm    float64    `json:"distance_cm"`
	GasRaw        int        `json:"gas_raw"`
	GasAlarm      bool       `json:"gas_alarm"`
	Lux           float64    `json:"lux"`
	LightMode     string     `json:"light_mode"`
	UptimeSeconds int64      `json:"uptime_seconds"`
	StartTime     string     `json:"start_time"`
	Timestamp     string     `json:"timestamp"`
	MQTT          MQTTStatus `json:"mqtt"`
	Config        ConfigJSON `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Broker     string `json:"broker"`
	HTTPAddr   string `json:"http_addr"`
	ConfigPath string `json:"config_path"`
}

func formatJSON(snap status.Snapshot) []byte {
	gate := snap.GateState
	if gate == "" {
		gate = "UNKNOWN"
	}
	spot := snap.SpotState
	if spot == "" {
		spot = "UNKNOWN"
	}

	sj := StatusJSON{
		Status: StatusInner{
			Gate:          gate,
			GateOpen:      snap.GateOpen,
			Spot:          spot,
			Occupied:      snap.Occupied,
			Assist:        snap.Assist,
			DistanceCm:    snap.DistanceCm,
			GasRaw:        snap.GasRaw,
			GasAlarm:      snap.GasAlarm,
			Lux:           snap.Lux,
			LightMode:     snap.LightMode,
			UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
			StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
			Timestamp:     snap.Now.UTC().Format(time.RFC3339),
			MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
			Config: ConfigJSON{
				Broker:     snap.Config.Broker,
				HTTPAddr:   snap.Config.HTTPAddr,
				ConfigPath: snap.Config.ConfigPath,
			},
		},
	}

	data, _ := json.MarshalIndent(sj, "", "  ")
	return data
}
