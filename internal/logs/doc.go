// Package logs reads the JSON log file written under the configured log
// directory.
//
// Read returns the last N records, optionally narrowed to one chapter, along
// with the byte offset where reading stopped. Follow resumes from that offset
// and delivers new records until its context is cancelled. Lines that are not
// JSON objects are passed through with only Raw set.
package logs
