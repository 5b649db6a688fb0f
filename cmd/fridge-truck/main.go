// Command fridge-truck simulates a refrigerated truck compartment and
// exchanges telemetry with a fleet-management service over MQTT.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nhonchu/fridge-truck/internal/config"
	"github.com/nhonchu/fridge-truck/internal/gpio"
	"github.com/nhonchu/fridge-truck/internal/logger"
	"github.com/nhonchu/fridge-truck/internal/position"
	"github.com/nhonchu/fridge-truck/internal/sim"
	"github.com/nhonchu/fridge-truck/internal/status"
	"github.com/nhonchu/fridge-truck/internal/store"
	"github.com/nhonchu/fridge-truck/internal/telemetry"
	"github.com/nhonchu/fridge-truck/internal/web"
)

// Setting fields writable from the cloud.
const (
	fieldDataGen  = "datagen"
	fieldDataPush = "datapush"
	fieldTarget   = "target"
	fieldOutside  = "outside"
	fieldBoardRev = "boardRev"
)

// Commands the cloud can send.
const (
	cmdStartFan  = "startFan"
	cmdStopFan   = "stopFan"
	cmdOpenDoor  = "openDoor"
	cmdCloseDoor = "closeDoor"
)

type options struct {
	configPath string
	broker     string
	truckID    string
	httpAddr   string
	dbPath     string
	logLevel   string
	noHardware bool
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "config.yml", "config file path")
	flag.StringVar(&opts.broker, "broker", "", "MQTT broker address (overrides config)")
	flag.StringVar(&opts.truckID, "truck-id", "", "fleet-unique truck identifier (overrides config)")
	flag.StringVar(&opts.httpAddr, "http", "", `HTTP status address (overrides config, "off" disables)`)
	flag.StringVar(&opts.dbPath, "db", "", "local spool database path (overrides config)")
	flag.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")
	flag.BoolVar(&opts.noHardware, "no-hardware", false, "use a simulated carrier board instead of GPIO")
	flag.Parse()

	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	cfg := config.NewStore(opts.configPath)
	settings, restored, err := cfg.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	broker := orConfig(opts.broker, cfg.Broker())
	truckID := orConfig(opts.truckID, cfg.TruckID())
	dbPath := orConfig(opts.dbPath, cfg.DBPath())
	httpAddr := orConfig(opts.httpAddr, cfg.HTTPAddr())
	if httpAddr == "off" {
		httpAddr = ""
	}

	log := logger.Get(orConfig(opts.logLevel, cfg.LogLevel()))

	// A restored config means the truck sat somewhere warm while the daemon
	// was down; a fresh install starts at the scenario baseline.
	startTemp := sim.DefaultStartTemp
	if restored {
		startTemp = sim.RestoredStartTemp
	}
	truck := sim.New(settings, startTemp)

	board, err := newBoard(opts.noHardware, settings.BoardRev)
	if err != nil {
		return fmt.Errorf("init board: %w", err)
	}
	defer board.Close()

	// Reflect the baseline state on the outputs: fan running, door closed.
	if err := board.SetFanMotor(true); err != nil {
		return fmt.Errorf("set fan motor: %w", err)
	}
	if err := board.SetDoorLED(false); err != nil {
		return fmt.Errorf("set door led: %w", err)
	}

	spool, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open spool: %w", err)
	}
	defer spool.Close()

	publisher, err := telemetry.NewClient(broker, truckID, log)
	if err != nil {
		return fmt.Errorf("connect broker %s: %w", broker, err)
	}
	defer publisher.Close()

	pos := position.NewSimProvider(time.Now())
	defer pos.Close()

	tracker := status.NewTracker(time.Now(), status.Config{
		Broker:     broker,
		TruckID:    truckID,
		HTTPAddr:   httpAddr,
		DBPath:     dbPath,
		ConfigPath: opts.configPath,
	})
	tracker.Update(truck.State(), 0)
	tracker.SetSettings(settings)
	tracker.SetMQTTConnected(publisher.IsConnected())

	snap := tracker.Snapshot()
	startup := telemetry.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startup); err != nil {
		log.Warnw("startup event publish failed", "err", err)
	}
	if err := publisher.PublishSettings(settings); err != nil {
		log.Warnw("settings echo failed", "err", err)
	}

	if httpAddr != "" {
		srv := web.New(httpAddr, tracker, log)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Errorw("http server error", "err", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Infow("http status server listening", "addr", httpAddr)
	}

	log.Infow("started",
		"truck_id", truckID,
		"broker", broker,
		"datagen", settings.DataGenInterval,
		"datapush", settings.DataPushInterval,
		"board_rev", settings.BoardRev,
		"restored", restored,
	)

	gen := time.NewTicker(settings.DataGenInterval)
	defer gen.Stop()
	push := time.NewTicker(settings.DataPushInterval)
	defer push.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	d := &daemon{
		truck:      truck,
		board:      board,
		publisher:  publisher,
		mqttStatus: publisher,
		pos:        pos,
		spool:      spool,
		cfg:        cfg,
		tracker:    tracker,
		acc:        telemetry.NewAccumulator(truckID),
		log:        log,
		resetGen:   gen.Reset,
		resetPush:  push.Reset,
	}

	return runLoop(d, gen.C, push.C, publisher.Inbound(), board.DoorEvents(), sigCh, time.Now)
}

func newBoard(noHardware bool, rev string) (gpio.Board, error) {
	if noHardware {
		return gpio.NewFakeBoard(), nil
	}
	return gpio.NewRealBoard(rev)
}

func orConfig(flagVal, cfgVal string) string {
	if flagVal != "" {
		return flagVal
	}
	return cfgVal
}

// daemon owns all mutable state. Every method runs on the run-loop
// goroutine; peripheral callbacks only feed the channels runLoop selects on.
type daemon struct {
	truck      *sim.Truck
	board      gpio.Board
	publisher  telemetry.Publisher
	mqttStatus telemetry.ConnectionStatus
	pos        position.Provider
	spool      *store.Spool
	cfg        *config.Store
	tracker    *status.Tracker
	acc        *telemetry.Accumulator
	log        *logger.Logger

	counters  status.Counters
	resetGen  func(time.Duration)
	resetPush func(time.Duration)
}

func runLoop(d *daemon, genC, pushC <-chan time.Time, inbound <-chan telemetry.Inbound, doorC <-chan gpio.DoorEvent, sig <-chan os.Signal, now func() time.Time) error {
	// Produce a first sample and state push right away rather than waiting
	// a full period.
	d.emulate(now())
	d.pushState(now())

	for {
		select {
		case s := <-sig:
			d.log.Infow("shutting down", "signal", s)
			d.shutdown(signalName(s), now())
			return nil

		case t := <-genC:
			d.emulate(t)

		case t := <-pushC:
			d.pushState(t)

		case in := <-inbound:
			d.handleInbound(in, now())

		case ev := <-doorC:
			d.handleDoorPress(ev.Time)
		}
	}
}

// emulate advances the simulation one step: converge the temperature,
// accumulate the sample and flush the batch when it is full. A position fix
// is pushed whenever a new batch opens.
func (d *daemon) emulate(t time.Time) {
	sample, events := d.truck.Tick(t)

	for _, ev := range events {
		if ev.Type == sim.EventFanStopped {
			d.log.Infow("target temperature reached, fan stopped", "temperature", ev.State.Temperature)
			if err := d.board.SetFanMotor(false); err != nil {
				d.log.Errorw("fan motor write failed", "err", err)
			}
			d.pushState(ev.Timestamp)
		}
	}

	if d.acc.Empty() {
		fix, err := d.pos.Current(context.Background())
		if err != nil {
			d.log.Warnw("position fix failed", "err", err)
		} else {
			if err := d.publisher.PublishPosition(fix); err != nil {
				d.log.Warnw("position push failed", "err", err)
			}
			d.tracker.SetFix(fix)
		}
	}

	full, err := d.acc.Append(sample, t)
	if err != nil {
		// The batch was already full; flush it and retry.
		d.flushSeries(t)
		full, _ = d.acc.Append(sample, t)
	}
	if full {
		d.flushSeries(t)
	}

	d.syncTracker()
}

// flushSeries pushes the pending batch. On failure the batch is spooled to
// the local database; on success any previously spooled batches are retried.
func (d *daemon) flushSeries(t time.Time) {
	series := d.acc.Drain(t)

	if err := d.publisher.PublishSeries(series); err != nil {
		d.log.Warnw("series push failed, spooling", "batch_id", series.BatchID, "err", err)
		if err := d.spool.Enqueue(context.Background(), series); err != nil {
			d.log.Errorw("spool enqueue failed, batch lost", "batch_id", series.BatchID, "err", err)
			return
		}
		d.counters.BatchesSpooled++
		return
	}

	d.counters.BatchesSent++
	d.log.Debugw("series pushed", "batch_id", series.BatchID, "samples", len(series.Samples))
	d.retrySpooled()
}

func (d *daemon) retrySpooled() {
	ctx := context.Background()
	batches, err := d.spool.DequeueAll(ctx)
	if err != nil {
		d.log.Errorw("spool dequeue failed", "err", err)
		return
	}
	if len(batches) == 0 {
		return
	}

	d.log.Infow("retrying spooled batches", "count", len(batches))
	for i, series := range batches {
		if err := d.publisher.PublishSeries(series); err != nil {
			d.log.Warnw("spooled batch push failed, re-spooling", "batch_id", series.BatchID, "err", err)
			for _, rest := range batches[i:] {
				if err := d.spool.Enqueue(ctx, rest); err != nil {
					d.log.Errorw("spool re-enqueue failed, batch lost", "batch_id", rest.BatchID, "err", err)
				}
			}
			return
		}
		d.counters.BatchesSent++
	}
}

func (d *daemon) pushState(t time.Time) {
	if err := d.publisher.PublishState(d.truck.State(), t); err != nil {
		d.log.Warnw("state push failed", "err", err)
	} else {
		d.counters.StatePushes++
	}
	d.syncTracker()
}

func (d *daemon) handleInbound(in telemetry.Inbound, t time.Time) {
	switch in.Kind {
	case telemetry.KindSettingWrite:
		d.applySettingWrite(in, t)
	case telemetry.KindCommand:
		d.handleCommand(in, t)
	default:
		d.log.Warnw("unknown inbound kind", "kind", in.Kind)
	}
}

// applySettingWrite applies one cloud-initiated setting write: update the
// simulation, persist the new settings and echo them back. Interval writes
// restart the corresponding timer. Writes matching the current value are
// no-ops and are not persisted or echoed.
func (d *daemon) applySettingWrite(in telemetry.Inbound, t time.Time) {
	set := d.truck.Settings()

	switch in.Name {
	case fieldDataGen:
		dur, err := in.Seconds()
		if err != nil {
			d.log.Warnw("rejected setting write", "err", err)
			return
		}
		if dur == set.DataGenInterval {
			return
		}
		set.DataGenInterval = dur
		d.resetGen(dur)

	case fieldDataPush:
		dur, err := in.Seconds()
		if err != nil {
			d.log.Warnw("rejected setting write", "err", err)
			return
		}
		if dur == set.DataPushInterval {
			return
		}
		set.DataPushInterval = dur
		d.resetPush(dur)

	case fieldTarget:
		v, err := in.Float64()
		if err != nil {
			d.log.Warnw("rejected setting write", "err", err)
			return
		}
		if v == set.TargetTemp {
			return
		}
		set.TargetTemp = v

	case fieldOutside:
		v, err := in.Int()
		if err != nil {
			d.log.Warnw("rejected setting write", "err", err)
			return
		}
		if v == set.OutsideTemp {
			return
		}
		set.OutsideTemp = v

	case fieldBoardRev:
		v, err := in.Text()
		if err != nil {
			d.log.Warnw("rejected setting write", "err", err)
			return
		}
		if v == set.BoardRev {
			return
		}
		// Pins are claimed at startup; the new mapping applies on restart.
		d.log.Infow("board revision updated, effective at next start", "board_rev", v)
		set.BoardRev = v

	default:
		d.log.Warnw("unknown setting field", "field", in.Name)
		return
	}

	d.truck.SetSettings(set)
	if err := d.cfg.Save(set); err != nil {
		d.log.Errorw("config save failed", "err", err)
	}
	if err := d.publisher.PublishSettings(set); err != nil {
		d.log.Warnw("settings echo failed", "err", err)
	}
	d.tracker.SetSettings(set)
	d.log.Infow("setting applied", "field", in.Name)
}

func (d *daemon) handleCommand(in telemetry.Inbound, t time.Time) {
	var err error
	switch in.Name {
	case cmdStartFan:
		err = d.switchFan(true, t)
	case cmdStopFan:
		err = d.switchFan(false, t)
	case cmdOpenDoor:
		err = d.switchDoor(true, t)
	case cmdCloseDoor:
		err = d.switchDoor(false, t)
	default:
		err = fmt.Errorf("unknown command %q", in.Name)
	}

	ack := telemetry.CommandAck{Command: in.Name, Result: telemetry.AckOK, Timestamp: t}
	if err != nil {
		d.log.Warnw("command failed", "command", in.Name, "err", err)
		ack.Result = telemetry.AckError
		ack.Detail = err.Error()
	} else {
		d.counters.CommandsServed++
		d.log.Infow("command served", "command", in.Name)
	}

	if err := d.publisher.PublishCommandAck(ack); err != nil {
		d.log.Warnw("command ack failed", "command", in.Name, "err", err)
	}
	d.syncTracker()
}

// handleDoorPress toggles the door on a debounced push of the door switch.
// The LED mirrors the door: inverting its last value gives the new state.
func (d *daemon) handleDoorPress(t time.Time) {
	open := !d.board.DoorLED()
	d.log.Infow("door switch pressed", "open", open)
	if err := d.switchDoor(open, t); err != nil {
		d.log.Errorw("door toggle failed", "err", err)
	}
	d.syncTracker()
}

// switchFan drives the fan motor and simulation together. Already being in
// the requested state is a no-op.
func (d *daemon) switchFan(on bool, t time.Time) error {
	if d.truck.State().FanOn == on {
		return nil
	}
	if err := d.board.SetFanMotor(on); err != nil {
		return fmt.Errorf("fan motor: %w", err)
	}
	d.truck.SetFan(on, t)
	d.pushState(t)
	return nil
}

func (d *daemon) switchDoor(open bool, t time.Time) error {
	if d.truck.State().DoorOpen == open {
		return nil
	}
	if err := d.board.SetDoorLED(open); err != nil {
		return fmt.Errorf("door led: %w", err)
	}
	d.truck.SetDoor(open, t)
	d.pushState(t)
	return nil
}

func (d *daemon) syncTracker() {
	d.tracker.Update(d.truck.State(), d.acc.Len())
	d.tracker.SetCounters(d.counters)
	if d.mqttStatus != nil {
		d.tracker.SetMQTTConnected(d.mqttStatus.IsConnected())
	}
}

func (d *daemon) shutdown(reason string, t time.Time) {
	d.syncTracker()
	snap := d.tracker.Snapshot()
	event := telemetry.SystemEvent{
		Timestamp:  t,
		Event:      "SHUTDOWN",
		Reason:     reason,
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "SHUTDOWN", reason),
	}
	if err := d.publisher.PublishSystem(event); err != nil {
		d.log.Warnw("shutdown event publish failed", "err", err)
	}
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	default:
		return "UNKNOWN"
	}
}
