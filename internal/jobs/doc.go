// Package jobs models generation jobs executed by the external backend and
// provides the Poller that follows a submitted job to its terminal state.
//
// A job is identified by the opaque id returned from Backend.SubmitJob. Each
// Poller.Submit call owns an independent polling goroutine; the returned
// Handle cancels it. Exactly one of the success or failure callbacks fires per
// submission unless the handle is cancelled first, in which case neither does.
package jobs
