// Package metric provides Prometheus metrics for the serial bridge.
//
// # Overview
//
// The package has three parts:
//
//   - Metrics: the core bridge metrics (pipeline, decode, publish, broker),
//     with nil-safe recorder methods
//   - Registry: a wrapper around a prometheus.Registry that owns the core
//     metrics and lets components register their own under a
//     "component.metric" key
//   - Server: an HTTP server exposing the registry at /metrics via promhttp
//
// # Nil Safety
//
// Instrumented code takes a *Metrics and records unconditionally; every
// recorder method is a no-op on a nil receiver. Unit tests and tools that
// do not care about metrics simply pass nil.
//
//	var m *metric.Metrics // nil is fine
//	m.RecordReadingDecoded("boiler", "ksum")
//
// # Usage
//
//	registry := metric.NewRegistry()
//	core := registry.CoreMetrics()
//	core.RecordBrokerStatus(true)
//
//	server := metric.NewServer(9090, "/metrics", registry)
//	go func() { _ = server.Start() }()
//	defer func() { _ = server.Stop() }()
//
// Component-specific collectors go through the Registrar interface:
//
//	counter := prometheus.NewCounter(prometheus.CounterOpts{...})
//	if err := registry.RegisterCounter("serialport", "reopens_total", counter); err != nil {
//	    return err
//	}
package metric
