package automation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/homepulse/homepulse-core/internal/device"
)

// HealthReader supplies the latest value of a health metric. The ok
// return is false when no snapshot carries the metric. Satisfied by the
// health store; nil disables health triggers.
type HealthReader interface {
	LatestMetric(ctx context.Context, metric string) (value int, ok bool, err error)
}

// Scheduler evaluates automation triggers.
//
// It runs a periodic tick for time, sunrise, sunset and health triggers,
// and an event hook (OnDeviceChange) for device triggers. Each firing
// automation is dispatched on its own goroutine so a slow run never
// stalls the evaluation of the rest of the tick; overlap protection is
// the executor's single-flight guard.
//
// Calendar triggers (time, sunrise, sunset) fire at most once per day.
// The dedup compares the persisted LastTriggeredDate against today in
// the site timezone, so it survives restarts and daylight-saving shifts.
//
// Health triggers are edge-debounced: once fired, a trigger re-arms only
// after the metric crosses back over its threshold, so a value sitting
// past threshold does not refire every tick.
//
// Start and Stop are idempotent and safe for concurrent use.
type Scheduler struct {
	store    *Store
	executor *Executor
	health   HealthReader // may be nil
	location *time.Location
	lat, lon float64
	tick     time.Duration
	logger   Logger
	now      func() time.Time // injectable clock for tests

	mu      sync.Mutex
	cron    *cron.Cron
	cancel  context.CancelFunc
	runCtx  context.Context
	running bool

	// disarmed holds health-trigger automation IDs that have fired and
	// not yet re-armed. Guarded by mu.
	disarmed map[string]bool

	// solar caches today's sun events; recomputed when the date rolls.
	solar SolarTimes
}

// NewScheduler creates a scheduler.
//
// Parameters:
//   - store: Automation store, read each tick
//   - executor: Action executor for firing automations
//   - location: Site timezone
//   - lat, lon: Site coordinates for sunrise/sunset computation
//   - tick: Evaluation interval, zero defaults to one minute
func NewScheduler(store *Store, executor *Executor, location *time.Location, lat, lon float64, tick time.Duration) *Scheduler {
	if location == nil {
		location = time.UTC
	}
	if tick <= 0 {
		tick = time.Minute
	}
	return &Scheduler{
		store:    store,
		executor: executor,
		location: location,
		lat:      lat,
		lon:      lon,
		tick:     tick,
		logger:   noopLogger{},
		now:      time.Now,
		disarmed: make(map[string]bool),
	}
}

// SetLogger sets the logger for the scheduler.
func (s *Scheduler) SetLogger(logger Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// SetHealthReader sets the source for health trigger values.
func (s *Scheduler) SetHealthReader(h HealthReader) {
	s.health = h
}

// Start begins trigger evaluation. Calling Start on a running scheduler
// is a no-op.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	s.runCtx, s.cancel = context.WithCancel(context.Background())

	c := cron.New(cron.WithLocation(s.location))
	spec := fmt.Sprintf("@every %s", s.tick)
	if _, err := c.AddFunc(spec, s.tickOnce); err != nil {
		s.cancel()
		return fmt.Errorf("scheduling tick: %w", err)
	}
	c.Start()

	s.cron = c
	s.running = true
	s.logger.Info("scheduler started", "tick", s.tick.String())
	return nil
}

// Stop halts trigger evaluation and cancels in-flight runs; their
// remaining actions are recorded as skipped. Calling Stop on a stopped
// scheduler is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	s.cron.Stop()
	s.cancel()
	s.cron = nil
	s.running = false
	s.logger.Info("scheduler stopped")
}

// Running reports whether the scheduler is evaluating triggers.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// OnDeviceChange is the event hook for device triggers. Wire it to the
// device cache:
//
//	cache.Subscribe(scheduler.OnDeviceChange)
//
// It dispatches matching automations and returns immediately; it is
// safe to call from the cache's notification path.
func (s *Scheduler) OnDeviceChange(ev device.ChangeEvent) {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	ctx := s.runCtx
	s.mu.Unlock()

	for _, a := range s.store.ListEnabledAutomations(ctx) {
		t := a.Trigger
		if t.Type != TriggerDevice || t.DeviceID != ev.DeviceID || t.Attribute != ev.Attribute {
			continue
		}
		s.dispatch(ctx, a.ID, TriggerDevice)
	}
}

// TickNow runs one evaluation pass immediately. Exposed for tests and
// for the API's debugging endpoint; normal operation relies on the
// periodic tick.
func (s *Scheduler) TickNow() {
	s.tickOnce()
}

// tickOnce evaluates every enabled automation's trigger at the current
// instant.
func (s *Scheduler) tickOnce() {
	s.mu.Lock()
	ctx := s.runCtx
	if ctx == nil {
		ctx = context.Background()
	}
	now := s.now().In(s.location)
	s.refreshSolarLocked(now)
	solar := s.solar
	s.mu.Unlock()

	today := now.Format("2006-01-02")

	for _, a := range s.store.ListEnabledAutomations(ctx) {
		switch a.Trigger.Type {
		case TriggerTime:
			if a.LastTriggeredDate == today {
				continue
			}
			if s.clockDue(a.Trigger.Time, now) {
				s.dispatch(ctx, a.ID, TriggerTime)
			}
		case TriggerSunrise:
			if a.LastTriggeredDate == today {
				continue
			}
			if s.instantDue(solar.Sunrise, now) {
				s.dispatch(ctx, a.ID, TriggerSunrise)
			}
		case TriggerSunset:
			if a.LastTriggeredDate == today {
				continue
			}
			if s.instantDue(solar.Sunset, now) {
				s.dispatch(ctx, a.ID, TriggerSunset)
			}
		case TriggerHealth:
			s.evaluateHealthTrigger(ctx, a)
		case TriggerDevice:
			// Edge-triggered via OnDeviceChange, nothing to do per tick.
		}
	}
}

// clockDue reports whether the HH:MM target falls within the current
// tick window, i.e. target <= now < target + tick granularity.
func (s *Scheduler) clockDue(clock string, now time.Time) bool {
	target, ok := clockMinutes(clock)
	if !ok {
		return false
	}
	nowMin := now.Hour()*60 + now.Minute()
	// Round the window up so a tick that is not a whole-minute multiple
	// still covers every target minute. Overlapping windows cannot
	// double-fire: firing is deduplicated per calendar day.
	window := int((s.tick + time.Minute - 1) / time.Minute)
	if window < 1 {
		window = 1
	}
	return nowMin >= target && nowMin-target < window
}

// instantDue reports whether the given instant falls within the current
// tick window. Zero instants (polar days with no sunrise/sunset) are
// never due.
func (s *Scheduler) instantDue(at time.Time, now time.Time) bool {
	if at.IsZero() {
		return false
	}
	window := s.tick
	if window < time.Minute {
		window = time.Minute
	}
	return !now.Before(at) && now.Sub(at) < window
}

// evaluateHealthTrigger fires when the metric satisfies the threshold,
// then holds fire until the metric crosses back (edge debounce).
func (s *Scheduler) evaluateHealthTrigger(ctx context.Context, a Automation) {
	if s.health == nil {
		return
	}

	value, ok, err := s.health.LatestMetric(ctx, string(a.Trigger.Metric))
	if err != nil {
		s.logger.Warn("health metric read failed",
			"automation_id", a.ID,
			"metric", string(a.Trigger.Metric),
			"error", err)
		return
	}
	if !ok {
		return
	}

	satisfied := compareMetric(value, a.Trigger.Comparison, a.Trigger.Threshold)

	s.mu.Lock()
	wasDisarmed := s.disarmed[a.ID]
	if satisfied {
		s.disarmed[a.ID] = true
	} else {
		delete(s.disarmed, a.ID)
	}
	s.mu.Unlock()

	if satisfied && !wasDisarmed {
		s.dispatch(ctx, a.ID, TriggerHealth)
	}
}

// dispatch fires an automation on its own goroutine so the tick never
// blocks on action delays.
func (s *Scheduler) dispatch(ctx context.Context, automationID string, trigger TriggerType) {
	go func() {
		_, err := s.executor.ExecuteAutomation(ctx, automationID, string(trigger), false)
		switch {
		case err == nil:
		case errors.Is(err, ErrConditionsNotMet):
			s.logger.Debug("trigger suppressed by conditions",
				"automation_id", automationID,
				"trigger", string(trigger))
		case errors.Is(err, ErrAlreadyRunning):
			s.logger.Debug("overlapping firing dropped", "automation_id", automationID)
		default:
			s.logger.Error("automation firing failed",
				"automation_id", automationID,
				"trigger", string(trigger),
				"error", err)
		}
	}()
}

// refreshSolarLocked recomputes sun events when the date rolls over.
// Caller must hold mu.
func (s *Scheduler) refreshSolarLocked(now time.Time) {
	today := now.Format("2006-01-02")
	if s.solar.Date == today {
		return
	}
	s.solar = solarTimesFor(now, s.lat, s.lon, s.location)
	s.logger.Debug("solar times computed",
		"date", today,
		"sunrise", s.solar.Sunrise.Format("15:04"),
		"sunset", s.solar.Sunset.Format("15:04"))
}

// compareMetric applies a health comparison. Above and below are
// inclusive of the threshold, matching the suggestion rule table.
func compareMetric(value int, cmp Comparison, threshold int) bool {
	switch cmp {
	case ComparisonAbove:
		return value >= threshold
	case ComparisonBelow:
		return value <= threshold
	case ComparisonEquals:
		return value == threshold
	default:
		return false
	}
}
