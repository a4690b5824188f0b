// Package planning drives the AI side of newsletter planning: suggesting how
// many newsletters a launch needs, the bounded planning chat that converges
// on one plan per newsletter, the four-question product wizard, and title
// suggestions.
//
// The chat counts user turns in the transcript. From MaxTurns user turns on,
// or when the caller forces completion, the model is told to stop asking and
// the result is always a proposal with exactly the requested number of plans,
// padded from a deterministic fallback when the model falls short.
package planning
