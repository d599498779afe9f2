// Package logging builds the slog loggers used across the daemon and CLI.
//
// Two handler formats are supported: a compact console format that hoists the
// component attribute into the message prefix, and standard JSON with
// normalized ts/level/msg keys. Context helpers lift board, card, user, and
// request identifiers from a context.Context into structured attributes so
// every mutation can be traced end to end.
package logging
