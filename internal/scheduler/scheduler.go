// Package scheduler orchestrates the measurement lifecycle: the waiting
// poll for autonomous start, the view/log cadences, the stop-condition and
// duration watchdog, and the handoff to the export pipeline.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/sweeney/temp-logger/internal/config"
	"github.com/sweeney/temp-logger/internal/export"
	"github.com/sweeney/temp-logger/internal/gpio"
	"github.com/sweeney/temp-logger/internal/logic"
	"github.com/sweeney/temp-logger/internal/metrics"
	"github.com/sweeney/temp-logger/internal/mqtt"
	"github.com/sweeney/temp-logger/internal/onewire"
	"github.com/sweeney/temp-logger/internal/session"
	"github.com/sweeney/temp-logger/internal/status"
)

// State is the lifecycle state of the controller.
type State string

const (
	StateIdle      State = "idle"
	StateWaiting   State = "waiting"
	StateRunning   State = "running"
	StateExporting State = "exporting"
)

// Stop reasons published with MEASUREMENT_STOPPED.
const (
	ReasonUser      = "USER"
	ReasonCondition = "CONDITION"
	ReasonDuration  = "DURATION"
)

const (
	// defaultCondPoll is the watchdog tick: deliberately fast so stop
	// triggers and the duration cutoff react promptly.
	defaultCondPoll = 100 * time.Millisecond

	// defaultWaitPoll is the start-condition poll while waiting.
	defaultWaitPoll = time.Second

	// condSampleEvery limits how often the watchdog performs a hardware
	// sweep of its own; a DS18B20 conversion takes ~750 ms, so the 100 ms
	// watchdog must not sample on every tick.
	condSampleEvery = time.Second
)

// run bundles the cancellation scope of one lifecycle phase. Each cadence is
// a single goroutine on its own ticker, so tick bodies are single-flight by
// construction; cancellation waits on the group, so no callback can fire
// after stop returns.
type run struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func newRun() *run {
	ctx, cancel := context.WithCancel(context.Background())
	return &run{ctx: ctx, cancel: cancel}
}

// Controller owns the lifecycle state machine. All state mutation happens
// under one exclusive lock; hardware reads, journal writes and exports run
// on background goroutines, never on the caller's thread.
type Controller struct {
	sampler   *onewire.Sampler
	sessions  *session.Manager
	exporter  *export.Exporter
	tracker   *status.Tracker
	publisher mqtt.Publisher // may be nil
	indicator gpio.Indicator

	now func() time.Time

	// tick intervals, overridable in tests
	condPoll  time.Duration
	waitPoll  time.Duration
	logEvery  time.Duration // 0: derive from settings
	viewEvery time.Duration

	mu             sync.Mutex
	state          State
	settings       config.Settings
	cur            *run
	measureStart   time.Time
	lastReading    logic.Reading
	hasReading     bool
	lastCondSample time.Time
}

// New creates an idle Controller. indicator may be gpio.Nop{}; publisher may
// be nil when no broker is configured.
func New(sampler *onewire.Sampler, sessions *session.Manager, exporter *export.Exporter,
	tracker *status.Tracker, publisher mqtt.Publisher, indicator gpio.Indicator) *Controller {
	if indicator == nil {
		indicator = gpio.Nop{}
	}
	return &Controller{
		sampler:   sampler,
		sessions:  sessions,
		exporter:  exporter,
		tracker:   tracker,
		publisher: publisher,
		indicator: indicator,
		now:       time.Now,
		condPoll:  defaultCondPoll,
		waitPoll:  defaultWaitPoll,
		state:     StateIdle,
		settings:  config.DefaultSettings(),
	}
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// MeasureStart returns when elapsed time is measured from: the trigger
// instant for autonomous starts, the user's start otherwise.
func (c *Controller) MeasureStart() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.measureStart
}

// Settings returns a copy of the current settings.
func (c *Controller) Settings() config.Settings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settings
}

// ApplySettings replaces the settings and pushes sensor enable flags and
// names down to the sampler. Rejected while a measurement is in progress.
// Invalid conditions are reported as warnings, not errors: an enabled rule
// set of invalid conditions simply can never trigger.
func (c *Controller) ApplySettings(st config.Settings) error {
	c.mu.Lock()
	if c.state != StateIdle {
		s := c.state
		c.mu.Unlock()
		return fmt.Errorf("cannot change settings while %s", s)
	}
	c.settings = st
	c.mu.Unlock()

	if st.ActiveSensors != nil || len(st.SensorNames) > 0 {
		c.sampler.ApplyConfig(st.ActiveSensors, st.SensorNames)
	}

	ids := c.sampler.IDs()
	for _, p := range logic.Validate(st.StartConditions, ids) {
		log.Printf("scheduler: start %s", p)
	}
	for _, p := range logic.Validate(st.StopConditions, ids) {
		log.Printf("scheduler: stop %s", p)
	}
	return nil
}

// Start begins a measurement. With autonomous start enabled it enters the
// waiting state and polls the start conditions; the session is created at
// the trigger instant, not now. Otherwise the session starts immediately.
func (c *Controller) Start() error {
	c.mu.Lock()
	if c.state != StateIdle {
		s := c.state
		c.mu.Unlock()
		return fmt.Errorf("cannot start while %s", s)
	}
	st := c.settings

	if st.StartEnabled {
		r := newRun()
		c.state = StateWaiting
		c.cur = r
		c.mu.Unlock()

		c.setState(StateWaiting)
		log.Printf("scheduler: waiting for start condition")
		r.wg.Add(1)
		go c.waitLoop(r, st)
		return nil
	}

	// Claim the running state before touching the filesystem so a second
	// Start cannot race in; beginSession reverts to idle on failure.
	c.state = StateRunning
	c.mu.Unlock()
	return c.beginSession(c.now(), st)
}

// Stop ends the measurement (user action). From waiting it simply cancels
// the poll; from running it seals the session and hands the buffer to the
// export pipeline. Rejected while exporting so two sessions can never share
// a counter or an export target.
func (c *Controller) Stop() error {
	c.mu.Lock()
	switch c.state {
	case StateIdle:
		c.mu.Unlock()
		return fmt.Errorf("no measurement in progress")
	case StateExporting:
		c.mu.Unlock()
		return fmt.Errorf("export in progress")
	case StateWaiting:
		r := c.cur
		c.state = StateIdle
		c.cur = nil
		c.mu.Unlock()

		r.cancel()
		r.wg.Wait()
		c.setState(StateIdle)
		log.Printf("scheduler: start-condition wait cancelled")
		return nil
	default: // StateRunning
		if c.cur == nil {
			// Mid-transition (autonomous trigger is creating the session).
			c.mu.Unlock()
			return fmt.Errorf("measurement starting, try again")
		}
		c.mu.Unlock()
		c.stopRunning(ReasonUser)
		return nil
	}
}

// beginSession creates the session and launches the cadences. The caller has
// already claimed StateRunning. A failure to create the session folder or
// journal is fatal to this start attempt only: the controller returns to
// idle with nothing partially started.
func (c *Controller) beginSession(trigger time.Time, st config.Settings) error {
	cols := c.columns()
	snap, err := c.sessions.Start(st.MeasurementName, cols)
	if err != nil {
		c.mu.Lock()
		c.state = StateIdle
		c.cur = nil
		c.mu.Unlock()
		c.setState(StateIdle)
		return fmt.Errorf("start measurement: %w", err)
	}

	r := newRun()
	c.mu.Lock()
	c.cur = r
	c.measureStart = trigger
	c.lastCondSample = time.Time{}
	c.hasReading = false
	c.mu.Unlock()

	c.setState(StateRunning)
	c.tracker.SetSession(&status.SessionInfo{
		Name:      snap.Name,
		Counter:   snap.Counter,
		Token:     snap.Token,
		StartTime: snap.StartTime,
		Folder:    snap.Folder,
	})
	metrics.SessionsStartedTotal.Inc()
	if err := c.indicator.Set(true); err != nil {
		log.Printf("scheduler: indicator: %v", err)
	}
	c.publishSystem("MEASUREMENT_STARTED", "")
	log.Printf("scheduler: measurement started, session folder: %s", snap.Folder)

	logEvery := c.logEvery
	if logEvery == 0 {
		logEvery = time.Duration(st.LogInterval) * time.Second
	}
	viewEvery := c.viewEvery
	if viewEvery == 0 {
		viewEvery = time.Duration(st.ViewInterval) * time.Second
	}

	r.wg.Add(3)
	go c.tickLoop(r, logEvery, c.logTick)
	go c.tickLoop(r, viewEvery, c.viewTick)
	go c.tickLoop(r, c.condPoll, c.condTick)
	return nil
}

// tickLoop drives one cadence. One goroutine per cadence means a slow tick
// body delays the next tick instead of overlapping it.
func (c *Controller) tickLoop(r *run, every time.Duration, tick func(time.Time)) {
	defer r.wg.Done()
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			tick(c.now())
		}
	}
}

// waitLoop polls the start conditions while in the waiting state.
func (c *Controller) waitLoop(r *run, st config.Settings) {
	defer r.wg.Done()
	ticker := time.NewTicker(c.waitPoll)
	defer ticker.Stop()
	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			if c.waitTick(c.now(), st) {
				return
			}
		}
	}
}

// waitTick samples the sensors and checks the start conditions. On trigger
// it hands over to the running state asynchronously (this goroutine must
// exit so the transition can wait on it) and reports true.
func (c *Controller) waitTick(now time.Time, st config.Settings) bool {
	c.mu.Lock()
	if c.state != StateWaiting {
		c.mu.Unlock()
		return true
	}
	c.mu.Unlock()

	reading := c.sampler.ReadAll(now)
	c.storeReading(reading)
	c.updateTracker(reading)

	if !logic.Evaluate(st.StartConditions, reading.Values) {
		return false
	}

	log.Printf("scheduler: start condition met")
	go c.triggerStart(reading.Timestamp, st)
	return true
}

// triggerStart performs the waiting -> running transition. Elapsed time is
// measured from the trigger reading's timestamp, not from the user's start.
func (c *Controller) triggerStart(trigger time.Time, st config.Settings) {
	c.mu.Lock()
	if c.state != StateWaiting {
		c.mu.Unlock()
		return
	}
	r := c.cur
	c.state = StateRunning
	c.cur = nil
	c.mu.Unlock()

	r.cancel()
	r.wg.Wait()

	if err := c.beginSession(trigger, st); err != nil {
		log.Printf("scheduler: %v", err)
	}
}

// logTick performs one authoritative sample: one hardware sweep, buffered
// and journaled exactly once, then mirrored to the display surfaces.
func (c *Controller) logTick(now time.Time) {
	reading := c.sampler.ReadAll(now)

	c.mu.Lock()
	if c.state != StateRunning {
		// Late tick racing a stop; the buffer is sealed, drop it.
		c.mu.Unlock()
		return
	}
	reading.Seconds = now.Sub(c.measureStart).Seconds()
	c.lastReading = reading
	c.hasReading = true
	c.mu.Unlock()

	if err := c.sessions.Append("LOG", reading); err != nil {
		log.Printf("scheduler: append: %v", err)
		return
	}
	c.updateTracker(reading)
	c.updateSessionRows()
	c.publishReading("LOG", reading)
}

// viewTick refreshes the display surfaces from the last known reading. It
// never samples the hardware: the log cadence and the watchdog own the
// sweeps, so one logical sample is never taken twice at two rates.
func (c *Controller) viewTick(now time.Time) {
	c.mu.Lock()
	if c.state != StateRunning || !c.hasReading {
		c.mu.Unlock()
		return
	}
	reading := c.lastReading
	c.mu.Unlock()

	c.updateTracker(reading)
	c.publishReading("VIEW", reading)
}

// condTick is the watchdog: the duration cutoff is checked on every tick,
// the stop conditions at condSampleEvery granularity with a fresh sweep.
func (c *Controller) condTick(now time.Time) {
	c.mu.Lock()
	if c.state != StateRunning {
		c.mu.Unlock()
		return
	}
	st := c.settings
	start := c.measureStart
	due := now.Sub(c.lastCondSample) >= condSampleEvery
	if due {
		c.lastCondSample = now
	}
	c.mu.Unlock()

	if d := st.DurationSeconds(); d > 0 && now.Sub(start).Seconds() >= d {
		log.Printf("scheduler: measurement stopped due to duration")
		go c.stopRunning(ReasonDuration)
		return
	}

	if !st.StopEnabled || len(st.StopConditions) == 0 || !due {
		return
	}

	reading := c.sampler.ReadAll(now)
	c.mu.Lock()
	reading.Seconds = now.Sub(c.measureStart).Seconds()
	c.mu.Unlock()
	c.storeReading(reading)
	c.updateTracker(reading)

	if logic.Evaluate(st.StopConditions, reading.Values) {
		log.Printf("scheduler: measurement stopped due to temperature condition")
		go c.stopRunning(ReasonCondition)
	}
}

// stopRunning performs the running -> exporting transition exactly once:
// claim the state, cancel every cadence, wait until none can fire again,
// seal the session, then export off this thread.
func (c *Controller) stopRunning(reason string) {
	c.mu.Lock()
	if c.state != StateRunning || c.cur == nil {
		c.mu.Unlock()
		return
	}
	r := c.cur
	c.cur = nil
	c.state = StateExporting
	c.mu.Unlock()

	r.cancel()
	r.wg.Wait()

	snap, err := c.sessions.Finish()
	if err != nil {
		log.Printf("scheduler: finish session: %v", err)
	}

	c.setState(StateExporting)
	if err := c.indicator.Set(false); err != nil {
		log.Printf("scheduler: indicator: %v", err)
	}
	c.publishSystem("MEASUREMENT_STOPPED", reason)
	log.Printf("scheduler: measurement stopped (%s), %d samples", reason, len(snap.Rows))

	go c.runExport(snap)
}

// runExport writes the artifacts and returns the controller to idle. Export
// failures are reported but never leave the controller stuck in exporting.
func (c *Controller) runExport(snap session.Snapshot) {
	if err := c.exporter.Export(snap, export.AllFormats); err != nil {
		log.Printf("scheduler: export: %v", err)
	}
	c.sessions.Reset()
	c.tracker.SetSession(nil)

	c.mu.Lock()
	c.state = StateIdle
	c.mu.Unlock()
	c.setState(StateIdle)
}

func (c *Controller) columns() []session.Column {
	channels := c.sampler.Channels()
	cols := make([]session.Column, len(channels))
	for i, ch := range channels {
		cols[i] = session.Column{ID: ch.ID, Name: ch.Name}
	}
	return cols
}

func (c *Controller) storeReading(r logic.Reading) {
	c.mu.Lock()
	c.lastReading = r
	c.hasReading = true
	c.mu.Unlock()
}

func (c *Controller) updateTracker(r logic.Reading) {
	channels := c.sampler.Channels()
	values := make([]status.ChannelValue, 0, len(channels))
	for _, ch := range channels {
		v := r.Values[ch.ID]
		values = append(values, status.ChannelValue{
			ID:    ch.ID,
			Name:  ch.Name,
			Temp:  v.Temp,
			Valid: v.Valid,
		})
	}
	c.tracker.SetReading(r.Timestamp, values)
}

func (c *Controller) updateSessionRows() {
	if snap, ok := c.sessions.Current(); ok {
		c.tracker.SetSession(&status.SessionInfo{
			Name:      snap.Name,
			Counter:   snap.Counter,
			Token:     snap.Token,
			StartTime: snap.StartTime,
			Folder:    snap.Folder,
			Rows:      len(snap.Rows),
		})
	}
}

func (c *Controller) publishReading(kind string, r logic.Reading) {
	if c.publisher == nil {
		return
	}
	channels := c.sampler.Channels()
	values := make([]mqtt.ChannelReading, 0, len(channels))
	for _, ch := range channels {
		v := r.Values[ch.ID]
		values = append(values, mqtt.ChannelReading{
			ID:    ch.ID,
			Name:  ch.Name,
			Temp:  v.Temp,
			Valid: v.Valid,
		})
	}
	err := c.publisher.PublishReading(mqtt.ReadingEvent{
		Timestamp: r.Timestamp,
		Kind:      kind,
		Seconds:   r.Seconds,
		Values:    values,
	})
	if err != nil {
		log.Printf("scheduler: publish reading: %v", err)
	}
}

func (c *Controller) publishSystem(event, reason string) {
	if c.publisher == nil {
		return
	}
	err := c.publisher.PublishSystem(mqtt.SystemEvent{
		Timestamp: c.now(),
		Event:     event,
		Reason:    reason,
		Retained:  true,
	})
	if err != nil {
		log.Printf("scheduler: publish %s: %v", event, err)
	}
}

func (c *Controller) setState(s State) {
	c.tracker.SetState(string(s))
	switch s {
	case StateIdle:
		metrics.State.Set(0)
	case StateWaiting:
		metrics.State.Set(1)
	case StateRunning:
		metrics.State.Set(2)
	case StateExporting:
		metrics.State.Set(3)
	}
}
