package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event          string        `json:"event,omitempty"`
	Reason         string        `json:"reason,omitempty"`
	Temperature    float64       `json:"temperature"`
	FanOn          bool          `json:"fan_on"`
	FanDuration    int           `json:"fan_duration"`
	DoorOpen       bool          `json:"door_open"`
	PendingSamples int           `json:"pending_samples"`
	UptimeSeconds  int64         `json:"uptime_seconds"`
	StartTime      string        `json:"start_time"`
	Timestamp      string        `json:"timestamp"`
	MQTT           MQTTStatus    `json:"mqtt"`
	Counters       CountersJSON  `json:"counters"`
	Position       *PositionJSON `json:"position,omitempty"`
	Settings       SettingsJSON  `json:"settings"`
	Config         ConfigJSON    `json:"config"`
}

// MQTTStatus reports the cloud connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountersJSON is the JSON representation of batch accounting.
type CountersJSON struct {
	BatchesSent    int `json:"batches_sent"`
	BatchesSpooled int `json:"batches_spooled"`
	StatePushes    int `json:"state_pushes"`
	CommandsServed int `json:"commands_served"`
}

// PositionJSON is the JSON representation of the last fix.
type PositionJSON struct {
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Quality string  `json:"quality"`
	Time    string  `json:"time"`
}

// SettingsJSON is the JSON representation of the active settings.
type SettingsJSON struct {
	TargetTemp      float64 `json:"target_temp"`
	OutsideTemp     int     `json:"outside_temp"`
	DataGenSeconds  int64   `json:"datagen_s"`
	DataPushSeconds int64   `json:"datapush_s"`
	BoardRev        string  `json:"board_rev"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Broker     string `json:"broker"`
	TruckID    string `json:"truck_id"`
	HTTPAddr   string `json:"http_addr"`
	DBPath     string `json:"db_path"`
	ConfigPath string `json:"config_path,omitempty"`
}

func buildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		Temperature:    snap.State.Temperature,
		FanOn:          snap.State.FanOn,
		FanDuration:    snap.State.FanDuration,
		DoorOpen:       snap.State.DoorOpen,
		PendingSamples: snap.PendingSamples,
		UptimeSeconds:  int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:      snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:      snap.Now.UTC().Format(time.RFC3339),
		MQTT:           MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counters: CountersJSON{
			BatchesSent:    snap.Counters.BatchesSent,
			BatchesSpooled: snap.Counters.BatchesSpooled,
			StatePushes:    snap.Counters.StatePushes,
			CommandsServed: snap.Counters.CommandsServed,
		},
		Settings: SettingsJSON{
			TargetTemp:      snap.Settings.TargetTemp,
			OutsideTemp:     snap.Settings.OutsideTemp,
			DataGenSeconds:  int64(snap.Settings.DataGenInterval / time.Second),
			DataPushSeconds: int64(snap.Settings.DataPushInterval / time.Second),
			BoardRev:        snap.Settings.BoardRev,
		},
		Config: ConfigJSON{
			Broker:     snap.Config.Broker,
			TruckID:    snap.Config.TruckID,
			HTTPAddr:   snap.Config.HTTPAddr,
			DBPath:     snap.Config.DBPath,
			ConfigPath: snap.Config.ConfigPath,
		},
	}

	if snap.LastFix != nil {
		inner.Position = &PositionJSON{
			Lat:     snap.LastFix.Lat,
			Lon:     snap.LastFix.Lon,
			Quality: snap.LastFix.Quality,
			Time:    snap.LastFix.Time.UTC().Format(time.RFC3339),
		}
	}

	return inner
}

// FormatJSON returns the JSON status for the web endpoint and websocket feed.
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
