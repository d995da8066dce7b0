// Package services defines shared utilities consumed by the job poller, the
// workflow managers, and the backend adapter.
//
// Key responsibilities:
//   - Context helpers that stamp chapter IDs, stage names, job IDs, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper so submission, transport,
//     and job-level failures stay distinguishable after wrapping.
//
// Use these helpers when wiring new stage logic so error handling and
// observability stay uniform across the pipeline.
package services
