// Package metrics provides the observability hooks for nscale synchronization runs.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so metrics collection never requires nil checks:
//
//	rec := metrics.Recorder(metrics.NoopRecorder{})
//	if textfile != "" {
//	    rec = metrics.NewPrometheusRecorder(nil)
//	}
//
// A one-shot CLI has no scrape endpoint, so PrometheusRecorder.WriteTextfile
// exports the registry for node_exporter's textfile collector after the run.
package metrics
