// Package film defines the chapter-to-film data model shared by the
// orchestration core: chapters, scripts, scenes, shots, characters and
// transitions, the pipeline Stage enum, and immutable snapshots of the five
// collections for one chapter.
//
// Ordering within a parent collection is always by OrderIndex; helpers here
// never rely on insertion order and never reassign indices.
package film
