package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nhonchu/fridge-truck/internal/sim"
)

func TestLoadSeedsDefaultsOnFirstStart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	store := NewStore(path)

	set, restored, err := store.Load()
	require.NoError(t, err)
	require.False(t, restored, "first start should not report restored settings")
	require.Equal(t, sim.DefaultSettings(), set)

	// Defaults must have been written back.
	_, err = os.Stat(path)
	require.NoError(t, err, "config file should exist after first load")
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")

	set := sim.Settings{
		TargetTemp:       -1.5,
		OutsideTemp:      32,
		DataGenInterval:  10 * time.Second,
		DataPushInterval: time.Minute,
		BoardRev:         "B",
	}
	require.NoError(t, NewStore(path).Save(set))

	// Fresh store simulates a restart.
	got, restored, err := NewStore(path).Load()
	require.NoError(t, err)
	require.True(t, restored)
	require.Equal(t, set, got)
}

func TestLoadSeedsMissingKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("truck:\n  target_temp: 3.5\n"), 0o644))

	set, restored, err := NewStore(path).Load()
	require.NoError(t, err)
	require.True(t, restored)
	require.Equal(t, 3.5, set.TargetTemp)

	def := sim.DefaultSettings()
	require.Equal(t, def.DataGenInterval, set.DataGenInterval)
	require.Equal(t, def.BoardRev, set.BoardRev)

	// The absent keys were written back to the file.
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(raw), "datagen_interval")
	require.Contains(t, string(raw), "datapush_interval")
	require.Contains(t, string(raw), "board_rev")
}

func TestLoadRepairsBrokenIntervals(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(
		"truck:\n  datagen_interval: 0s\n  datapush_interval: -5s\n"), 0o644))

	set, restored, err := NewStore(path).Load()
	require.NoError(t, err)
	require.True(t, restored)

	def := sim.DefaultSettings()
	require.Equal(t, def.DataGenInterval, set.DataGenInterval)
	require.Equal(t, def.DataPushInterval, set.DataPushInterval)
}

func TestDaemonOptionDefaults(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "config.yml"))
	_, _, err := store.Load()
	require.NoError(t, err)

	require.Equal(t, "tcp://127.0.0.1:1883", store.Broker())
	require.Equal(t, "TRK-001", store.TruckID())
	require.Equal(t, ":8080", store.HTTPAddr())
	require.Equal(t, "fridge-truck.db", store.DBPath())
	require.Equal(t, "info", store.LogLevel())
}

func TestDaemonOptionsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(
		"broker: tcp://broker.fleet.example:1883\ntruck_id: TRK-042\nhttp_addr: \":9090\"\n"), 0o644))

	store := NewStore(path)
	_, _, err := store.Load()
	require.NoError(t, err)

	require.Equal(t, "tcp://broker.fleet.example:1883", store.Broker())
	require.Equal(t, "TRK-042", store.TruckID())
	require.Equal(t, ":9090", store.HTTPAddr())
}

func TestSavePreservesDaemonOptions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("truck_id: TRK-042\n"), 0o644))

	store := NewStore(path)
	set, _, err := store.Load()
	require.NoError(t, err)

	set.OutsideTemp = 35
	require.NoError(t, store.Save(set))

	reread := NewStore(path)
	got, _, err := reread.Load()
	require.NoError(t, err)
	require.Equal(t, 35, got.OutsideTemp)
	require.Equal(t, "TRK-042", reread.TruckID())
}
