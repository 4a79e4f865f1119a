// Package app is the composition root for arenaview.
//
// # Overview
//
// Run loads configuration, wires the pipeline and starts its services under
// a suture supervisor:
//
//	┌──────────────┐
//	│   Run()      │
//	└──────┬───────┘
//	       ├─────> config.Load()          TOML + ARENAVIEW_* env
//	       ├─────> cache.Open()           per-card metadata files
//	       ├─────> cache.LoadLedger()     persisted art overrides
//	       ├─────> scryfall.NewClient()   rate limited, circuit broken
//	       ├─────> stats.Load()           optional 17Lands ratings
//	       ├─────> orchestrator.New()     events → store
//	       └─────> supervisor
//	                ├─ tailer | replay    Player.log → orchestrator
//	                ├─ ws hub, forwarder  store → WebSocket clients
//	                ├─ http server        /ws /snapshot /metrics /api
//	                └─ snapshot logger    headless only
//
// Without -headless the Bubble Tea overlay runs in the foreground and logs
// go to log_file. Quitting the overlay stops the supervisor.
//
// # Services
//
// A missing client log is reported once and the tailer is not restarted; the
// HTTP feed keeps serving the (empty) state. A replay feeds a finished log
// through the same parser and orchestrator, then stops. In headless mode the
// whole process exits after the replay.
//
// # Errors
//
// Configuration, cache directory and client construction errors are fatal
// and returned from Run. Everything after startup is logged and handled by
// the supervisor's restart policy.
package app
