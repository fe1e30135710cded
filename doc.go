// Package serialbridge documents the serial-to-mqtt module, a bridge
// that polls serial-attached sensors and publishes their readings to a
// NATS broker.
//
// # Architecture
//
// Data flows through a small set of composable layers:
//
//	┌─────────────────────────────────────┐
//	│            bridge.Service           │  Lifecycle, wiring,
//	│     (Initialize, Start, Stop)       │  per-sensor assembly
//	└─────────────────────────────────────┘
//	           ↓ runs
//	┌─────────────────────────────────────┐
//	│          pipeline (per sensor)      │  read → decode → publish,
//	│   (Looped, Async, Collection)       │  one goroutine per sensor
//	└─────────────────────────────────────┘
//	           ↓ built from
//	┌──────────┬──────────┬───────────────┐
//	│serialport│ frame    │ protocol      │  Port I/O, message
//	│          │          │ (ksum,modbus) │  framing, decoding
//	└──────────┴──────────┴───────────────┘
//	           ↓ publishes via
//	┌─────────────────────────────────────┐
//	│             natspub                 │  NATS client + JSON
//	│       (Client, Publisher)           │  reading publisher
//	└─────────────────────────────────────┘
//
// Fallible steps return result.Result values instead of (T, error)
// pairs so a pipeline stage can carry a failure to the end of the
// cycle without aborting the loop.
//
// Supporting packages: config (YAML configuration with environment
// overrides), metric (Prometheus registry and HTTP exposition),
// errors (classified errors), pkg/retry (exponential backoff).
//
// The cmd/serial-to-mqtt binary assembles everything from a single
// YAML file.
package serialbridge
