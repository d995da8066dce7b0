package film

import "slices"

// SortScenes orders scenes by OrderIndex ascending, in place.
func SortScenes(scenes []Scene) {
	slices.SortStableFunc(scenes, func(a, b Scene) int { return a.OrderIndex - b.OrderIndex })
}

// SortShots orders shots by OrderIndex ascending, in place.
func SortShots(shots []Shot) {
	slices.SortStableFunc(shots, func(a, b Shot) int { return a.OrderIndex - b.OrderIndex })
}

// SortTransitions orders transitions by OrderIndex ascending, in place.
func SortTransitions(transitions []Transition) {
	slices.SortStableFunc(transitions, func(a, b Transition) int { return a.OrderIndex - b.OrderIndex })
}
