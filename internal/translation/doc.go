// Package translation plans and advances per-card translation step chains.
// Plans are snapshots of the board's translation configuration taken at card
// creation; execution routes each step through one of the enabled providers,
// with manual text entry as the universal bypass.
package translation
