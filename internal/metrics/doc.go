// Package metrics provides build observability for sitebuilder.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so instrumentation never needs nil checks:
//
//	b := site.NewBuilder(cfg, deps) // NoopRecorder
//	b.SetRecorder(metrics.NewPrometheusRecorder(reg))
//
// The Prometheus implementation backs both the `serve` command's /metrics
// endpoint and the optional textfile written at the end of `build`.
package metrics
