// Package main hosts the profile-screener entrypoint.
//
// Architecture overview:
//   - HTTP API: internal/api.Server exposes health, metrics, and the profile screening routes. Requests are
//     validated, rate limited per client IP, and handed to the screener with the request context so a client
//     disconnect or the per-request timeout aborts the browser work.
//   - Acquisition: internal/acquire.Controller admits at most browser.max_sessions concurrent sessions, launches
//     one headless Chrome per request through internal/browser/headless, and runs the stage pipeline (configure,
//     navigate, detect, authenticate, extract, normalize). The session is closed on every path.
//   - Scoring: internal/scoring turns the normalized record into a score and narrative analysis.
//   - Configuration & plumbing: Viper populates config from env (SCREENER_*), an optional file and flags; zap provides
//     structured logging; Prometheus metrics are exported on /metrics.
//
// Quick checklist:
//   - Run the server: profilescreener serve --config config.yaml (or rely solely on env overrides).
//   - Screen once: profilescreener screen https://www.linkedin.com/in/someone/ [--email ... --password ...].
//   - Containers usually need SCREENER_BROWSER_NO_SANDBOX=true and a Chrome binary on PATH or
//     SCREENER_BROWSER_EXEC_PATH.
package main
