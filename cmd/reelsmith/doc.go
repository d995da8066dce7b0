// Package main hosts the reelsmith CLI.
//
// Each chapter command opens a workflow session (taking the chapter lock),
// refreshes the entity view from the backend, runs one operation and, unless
// --no-wait is given, follows the submitted job until it ends. Job history is
// read from the local journal.
package main
