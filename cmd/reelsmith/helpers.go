package main

import (
	"strings"
	"unicode/utf8"

	"reelsmith/internal/film"
	"reelsmith/internal/tracker"
	"reelsmith/internal/workflow"
)

func truncate(value string, limit int) string {
	value = strings.Join(strings.Fields(value), " ")
	if limit <= 0 || utf8.RuneCountInString(value) <= limit {
		return value
	}
	runes := []rune(value)
	return string(runes[:limit-1]) + "…"
}

func busyLabel(session *workflow.Session, stage film.Stage, id string) string {
	switch {
	case session.Busy(stage, id):
		return "running"
	case session.Busy(stage, tracker.BatchKey):
		return "batch"
	default:
		return ""
	}
}
