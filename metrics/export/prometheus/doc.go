// Package prometheus exposes sessionkit counters as a client_golang
// [prometheus.Collector].
//
// [NewExporter] wraps a [sessionkit.Store]; register the exporter with any
// registry or mount [Exporter.Handler], which serves it from a private one.
// Counter names are prefixed sessionkit_*_total; the single histogram is
// sessionkit_sign_in_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in the global Prometheus registry.
//   - Mutate store state.
package prometheus
