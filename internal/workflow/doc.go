// Package workflow drives a chapter through the generation pipeline.
//
// A Session owns the chapter's entity store, concurrency tracker and job
// poller, and exposes one manager per entity slice (characters, scenes, shots
// with their keyframes, transitions). Managers admit at most one job per
// (stage, entity) pair, submit work to the backend, follow it through the
// poller, reload the affected slice when the job ends and only then release
// the tracker entry and resolve the returned Job.
//
// Terminal outcomes are recorded to the journal and published as
// notifications when the session is configured with them.
package workflow
