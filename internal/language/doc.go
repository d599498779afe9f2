// Package language normalizes the language identifiers used by board
// translation configuration, accepting two and three letter ISO codes and
// resolving display names for CLI and API output.
package language
