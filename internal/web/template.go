package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/nhonchu/fridge-truck/internal/status"
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
	"onOff": func(b bool) string {
		if b {
			return "ON"
		}
		return "OFF"
	},
	"openClosed": func(b bool) string {
		if b {
			return "OPEN"
		}
		return "CLOSED"
	},
	"temp": func(v float64) string {
		return fmt.Sprintf("%.1f °C", v)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Fridge Truck {{.Config.TruckID}}</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.open { color: orange; font-weight: bold; }
.connected { color: green; }
.disconnected { color: red; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
.live-dot.pending { background: orange; }
</style>
</head>
<body>
<h1>Fridge Truck {{.Config.TruckID}}<span id="live-dot" class="live-dot pending" title="connecting"></span></h1>

<h2>Truck</h2>
<table>
<tr><th>Temperature</th><td id="temp">{{temp .State.Temperature}}</td></tr>
<tr><th>Fan</th><td id="fan" class="{{if .State.FanOn}}on{{else}}off{{end}}">{{onOff .State.FanOn}}</td></tr>
<tr><th>Fan duration</th><td id="fan-duration">{{.State.FanDuration}}</td></tr>
<tr><th>Door</th><td id="door" class="{{if .State.DoorOpen}}open{{else}}off{{end}}">{{openClosed .State.DoorOpen}}</td></tr>
<tr><th>Pending samples</th><td id="pending">{{.PendingSamples}}</td></tr>
{{if .LastFix}}<tr><th>Position</th><td>{{printf "%.4f, %.4f" .LastFix.Lat .LastFix.Lon}} ({{.LastFix.Quality}})</td></tr>{{end}}
</table>

<h2>Settings</h2>
<table>
<tr><th>Target temp</th><td>{{temp .Settings.TargetTemp}}</td></tr>
<tr><th>Outside temp</th><td>{{.Settings.OutsideTemp}} °C</td></tr>
<tr><th>Data gen</th><td>{{.Settings.DataGenInterval}}</td></tr>
<tr><th>Data push</th><td>{{.Settings.DataPushInterval}}</td></tr>
<tr><th>Board rev</th><td>{{.Settings.BoardRev}}</td></tr>
</table>

<h2>Cloud</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
<tr><th>Batches sent</th><td>{{.Counters.BatchesSent}}</td></tr>
<tr><th>Batches spooled</th><td>{{.Counters.BatchesSpooled}}</td></tr>
<tr><th>State pushes</th><td>{{.Counters.StatePushes}}</td></tr>
<tr><th>Commands served</th><td>{{.Counters.CommandsServed}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
<tr><th>Spool DB</th><td>{{.Config.DBPath}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
<script>
(function() {
  var dot = document.getElementById("live-dot");

  function setDot(cls, title) {
    dot.className = "live-dot " + cls;
    dot.title = title;
  }

  function connect() {
    var proto = location.protocol === "https:" ? "wss://" : "ws://";
    var ws = new WebSocket(proto + location.host + "/ws?interval=2s");

    ws.onopen = function() { setDot("ok", "live"); };
    ws.onclose = function() {
      setDot("err", "disconnected");
      setTimeout(connect, 5000);
    };
    ws.onmessage = function(evt) {
      try {
        var st = JSON.parse(evt.data).status;
        document.getElementById("temp").textContent = st.temperature.toFixed(1) + " °C";
        var fan = document.getElementById("fan");
        fan.textContent = st.fan_on ? "ON" : "OFF";
        fan.className = st.fan_on ? "on" : "off";
        document.getElementById("fan-duration").textContent = st.fan_duration;
        var door = document.getElementById("door");
        door.textContent = st.door_open ? "OPEN" : "CLOSED";
        door.className = st.door_open ? "open" : "off";
        document.getElementById("pending").textContent = st.pending_samples;
      } catch (e) {}
    };
  }

  connect();
})();
</script>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but the template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	indexTmpl.Execute(w, data)
}
