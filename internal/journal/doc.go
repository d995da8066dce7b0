// Package journal persists a history of terminal job outcomes in SQLite.
//
// The journal records what happened to each submitted job (success with batch
// counts, failure with its classification, or cancellation) for the history
// command and for operators debugging a chapter. It is not used to resume
// in-flight jobs; sessions rebuild state from the entity store on start.
package journal
