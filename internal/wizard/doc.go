// Package wizard drives the newsletter creation flow as an explicit state
// machine.
//
// A session moves ProductSelect -> CountSuggest -> ChatPlan -> Confirm ->
// Generate -> Select -> FinalEdit -> Done. Every step is an Event checked
// against a fixed transition table and a guard; an illegal event returns
// ErrIllegalTransition and the stored session is left as it was.
//
// Sessions are server-side (Redis or memory) and owned by one user.
package wizard
