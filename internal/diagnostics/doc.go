// Package diagnostics turns dispatcher state into something operators can read.
//
//   - sink.go: Sink, the error callback. Counts every condition per code,
//     feeds evcore_dispatch_errors_total and writes rate-limited log lines.
//   - collector.go: Collector, a prometheus.Collector over Dispatcher.Stats.
//   - service.go: Service, the backend of the diagnostics HTTP API.
package diagnostics
