package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/temp-logger/internal/status"
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
	"temp": func(v status.ChannelValue) string {
		if !v.Valid {
			return "ERROR"
		}
		return fmt.Sprintf("%.3f °C", v.Temp)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="3">
<title>Temperature Logger</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.running { color: green; font-weight: bold; }
.waiting { color: orange; font-weight: bold; }
.exporting { color: orange; }
.idle { color: #888; }
.error { color: red; }
.connected { color: green; }
.disconnected { color: red; }
button { font-family: monospace; padding: 6px 16px; margin-right: 8px; }
</style>
</head>
<body>
<h1>Temperature Logger</h1>

<h2>State</h2>
<table>
<tr><th>Measurement</th><td class="{{.State}}">{{.State}}</td></tr>
{{if .Session}}<tr><th>Session</th><td>{{.Session.Name}} #{{.Session.Counter}}</td></tr>
<tr><th>Samples</th><td>{{.Session.Rows}}</td></tr>
<tr><th>Folder</th><td>{{.Session.Folder}}</td></tr>{{end}}
</table>

<h2>Sensors</h2>
<table>
{{range .LastReading}}<tr><th>{{.Name}}</th><td{{if not .Valid}} class="error"{{end}}>{{temp .}}</td></tr>
{{else}}<tr><td>no sensors found</td></tr>
{{end}}</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{if .Config.Broker}}{{.Config.Broker}}{{else}}not configured{{end}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Log interval</th><td>{{.Config.LogIntervalSec}}s</td></tr>
<tr><th>View interval</th><td>{{.Config.ViewIntervalSec}}s</td></tr>
<tr><th>Results</th><td>{{.Config.ResultsFolder}}</td></tr>
</table>

<form method="post" action="/start" style="display:inline"><button{{if ne .State "idle"}} disabled{{end}}>Start</button></form>
<form method="post" action="/stop" style="display:inline"><button{{if eq .State "idle"}} disabled{{end}}>Stop</button></form>

<p><a href="/index.json">JSON</a> · <a href="/metrics">metrics</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	indexTmpl.Execute(w, data)
}
