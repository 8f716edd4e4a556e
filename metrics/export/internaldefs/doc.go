// Package internaldefs holds the metric names, help strings, and bucket
// bounds shared by the Prometheus and OTel exporters so both publish the
// same series.
//
// # What this package must NOT do
//
//   - Import either exporter package.
//   - Perform I/O.
package internaldefs
