// Package backend talks to the generation service over HTTP.
//
// Client implements jobs.Backend for submitting and polling generation tasks
// and entitystore.Source for reading and deleting chapter entities. Every
// job kind maps to one fixed POST route; task status comes from the
// service's task endpoint and is translated from Celery states.
package backend
