package web

import (
	"fmt"
	"html/template"
	"io"
	"log"
	"time"

	"github.com/bove903/NextGarage-IoT-System/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"orUnknown": func(s string) string {
		if s == "" {
			return "UNKNOWN"
		}
		return s
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="1">
<title>NextGarage</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.ok { color: green; font-weight: bold; }
.busy { color: #888; }
.alarm { color: red; font-weight: bold; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>NextGarage</h1>

<h2>Gate</h2>
<table>
<tr><th>State</th><td>{{orUnknown .GateState}}</td></tr>
<tr><th>Barrier</th><td>{{if .GateOpen}}open{{else}}closed{{end}}</td></tr>
</table>

<h2>Parking Spot</h2>
<table>
<tr><th>Spot</th><td class="{{if .Occupied}}busy{{else}}ok{{end}}">{{orUnknown .SpotState}}</td></tr>
<tr><th>Distance</th><td>{{printf "%.1f" .DistanceCm}} cm</td></tr>
<tr><th>Assist</th><td>{{if .Assist}}active{{else}}off{{end}}</td></tr>
</table>

<h2>Environment</h2>
<table>
<tr><th>Gas (raw)</th><td class="{{if .GasAlarm}}alarm{{end}}">{{.GasRaw}}{{if .GasAlarm}} / ALARM{{end}}</td></tr>
<tr><th>Ambient light</th><td>{{printf "%.0f" .Lux}} lux</td></tr>
<tr><th>Light mode</th><td>{{orUnknown .LightMode}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Config file</th><td>{{.Config.ConfigPath}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	if err := indexTmpl.Execute(w, snap); err != nil {
		log.Printf("render status page: %v", err)
	}
}
