// Package services holds the cross-cutting error vocabulary and context
// annotations shared by the coordination components.
//
// Sentinel markers distinguish authorization denials, validation problems,
// lost compare-and-set races, and provider failures from plain infrastructure
// errors, so API and CLI boundaries can classify without string matching.
// Context helpers carry card/board/user/request identifiers into structured
// logs.
package services
