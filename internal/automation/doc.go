// Package automation provides the rule engine for HomePulse Core.
//
// Scenes are named bundles of device actions executed on demand.
// Automations bind a trigger (time, sunrise, sunset, device attribute
// change, or health metric threshold) to AND-ed conditions and an
// ordered action list, evaluated continuously while enabled.
//
// Architecture:
//
//	┌───────────────────────────────────────────────────────┐
//	│               Scheduler (scheduler.go)                 │
//	│  Periodic tick + device change hook; dispatches one    │
//	│  goroutine per firing automation                       │
//	│        │                                               │
//	│        ▼                                               │
//	│  ┌──────────────┐    ┌──────────────┐                 │
//	│  │  Evaluator   │    │    Store     │───▶ Repository  │
//	│  │(evaluator.go)│    │  (store.go)  │   (repository.go)│
//	│  └──────┬───────┘    └──────┬───────┘                 │
//	│         │ conditions pass   │ cached reads            │
//	│         ▼                   ▼                          │
//	│  ┌──────────────────────────────────────────────┐     │
//	│  │  Executor (executor.go)                      │     │
//	│  │  1. Mark triggered (once-per-day dedup)      │     │
//	│  │  2. Run actions sequentially, delay first    │     │
//	│  │  3. Continue past failures, skip on cancel   │     │
//	│  │  4. Persist execution log                    │     │
//	│  │  5. Broadcast WebSocket event                │     │
//	│  │  6. Write history point to InfluxDB          │     │
//	│  └──────────────────────────────────────────────┘     │
//	└───────────────────────────────────────────────────────┘
//
// # Key Types
//
//   - Scene: Named action bundle with optional health trigger metadata
//   - Automation: Trigger + Conditions + Actions rule with firing state
//   - Execution: Audit record of one run with per-action results
//   - Store: Thread-safe cached CRUD wrapping Repository
//   - Executor: Sequential action runner with single-flight per automation
//   - Scheduler: Trigger evaluation loop with calendar-day dedup
//
// # Thread Safety
//
// Store, Executor and Scheduler are safe for concurrent use from
// multiple goroutines. All public methods use appropriate
// synchronisation.
//
// # Usage
//
//	repo := automation.NewSQLiteRepository(db)
//	store := automation.NewStore(repo)
//	store.SetLogger(log)
//
//	if err := store.RefreshCache(ctx); err != nil {
//	    return err
//	}
//
//	executor := automation.NewExecutor(store, commander, cache, loc)
//	scheduler := automation.NewScheduler(store, executor, loc, lat, lon, time.Minute)
//	cache.Subscribe(scheduler.OnDeviceChange)
//	if err := scheduler.Start(); err != nil {
//	    return err
//	}
package automation
