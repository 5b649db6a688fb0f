// Package config persists the truck settings and daemon options in a YAML
// file. Settings written from the cloud are saved back on change, so a
// restart resumes with the last values.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/nhonchu/fridge-truck/internal/sim"
)

// Config keys for the persisted truck settings.
const (
	keyTargetTemp       = "truck.target_temp"
	keyOutsideTemp      = "truck.outside_temp"
	keyDataGenInterval  = "truck.datagen_interval"
	keyDataPushInterval = "truck.datapush_interval"
	keyBoardRev         = "truck.board_rev"
)

// Config keys for daemon options (not cloud-writable).
const (
	keyBroker   = "broker"
	keyTruckID  = "truck_id"
	keyHTTPAddr = "http_addr"
	keyDBPath   = "db_path"
	keyLogLevel = "log_level"
)

// Store reads and writes the config file.
type Store struct {
	v    *viper.Viper
	path string
}

// NewStore creates a store bound to the given file path.
func NewStore(path string) *Store {
	v := viper.New()
	v.SetConfigFile(path)

	def := sim.DefaultSettings()
	v.SetDefault(keyTargetTemp, def.TargetTemp)
	v.SetDefault(keyOutsideTemp, def.OutsideTemp)
	v.SetDefault(keyDataGenInterval, def.DataGenInterval.String())
	v.SetDefault(keyDataPushInterval, def.DataPushInterval.String())
	v.SetDefault(keyBoardRev, def.BoardRev)

	v.SetDefault(keyBroker, "tcp://127.0.0.1:1883")
	v.SetDefault(keyTruckID, "TRK-001")
	v.SetDefault(keyHTTPAddr, ":8080")
	v.SetDefault(keyDBPath, "fridge-truck.db")
	v.SetDefault(keyLogLevel, "info")

	return &Store{v: v, path: path}
}

// Load reads the config file and returns the truck settings. The second
// return value reports whether settings were restored from an existing
// file; on a first start the defaults are written back so the file exists
// for later setting writes.
func (s *Store) Load() (sim.Settings, bool, error) {
	restored := true
	if err := s.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || os.IsNotExist(err) {
			restored = false
		} else {
			return sim.Settings{}, false, fmt.Errorf("read config %s: %w", s.path, err)
		}
	}

	set := sim.Settings{
		TargetTemp:       s.v.GetFloat64(keyTargetTemp),
		OutsideTemp:      s.v.GetInt(keyOutsideTemp),
		DataGenInterval:  s.v.GetDuration(keyDataGenInterval),
		DataPushInterval: s.v.GetDuration(keyDataPushInterval),
		BoardRev:         s.v.GetString(keyBoardRev),
	}

	// Guard against hand-edited files with broken intervals.
	def := sim.DefaultSettings()
	if set.DataGenInterval <= 0 {
		set.DataGenInterval = def.DataGenInterval
	}
	if set.DataPushInterval <= 0 {
		set.DataPushInterval = def.DataPushInterval
	}

	// Write the settings back when any truck key is absent — a first start
	// or a hand-trimmed file — so later setting writes land in a complete
	// config tree.
	for _, key := range []string{
		keyTargetTemp, keyOutsideTemp, keyDataGenInterval, keyDataPushInterval, keyBoardRev,
	} {
		if s.v.InConfig(key) {
			continue
		}
		if err := s.Save(set); err != nil {
			return sim.Settings{}, false, fmt.Errorf("seed config: %w", err)
		}
		break
	}

	return set, restored, nil
}

// Save writes the truck settings to the config file, preserving the
// daemon option keys.
func (s *Store) Save(set sim.Settings) error {
	s.v.Set(keyTargetTemp, set.TargetTemp)
	s.v.Set(keyOutsideTemp, set.OutsideTemp)
	s.v.Set(keyDataGenInterval, set.DataGenInterval.String())
	s.v.Set(keyDataPushInterval, set.DataPushInterval.String())
	s.v.Set(keyBoardRev, set.BoardRev)

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}
	if err := s.v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("write config %s: %w", s.path, err)
	}
	return nil
}

// Broker returns the MQTT broker address.
func (s *Store) Broker() string { return s.v.GetString(keyBroker) }

// TruckID returns the fleet-unique truck identifier.
func (s *Store) TruckID() string { return s.v.GetString(keyTruckID) }

// HTTPAddr returns the status-server listen address (empty disables).
func (s *Store) HTTPAddr() string { return s.v.GetString(keyHTTPAddr) }

// DBPath returns the path of the local spool database.
func (s *Store) DBPath() string { return s.v.GetString(keyDBPath) }

// LogLevel returns the configured log level.
func (s *Store) LogLevel() string { return s.v.GetString(keyLogLevel) }
