// Package api defines wire-format types, converters, and the service layer
// that the HTTP server and CLI both call. It translates internal board and
// card models into transport-friendly DTOs so consumers never couple to
// storage types.
//
// # Key Types
//
// Board/Card: transport representations with stages, custom field values,
// translation steps, and the lock view rendered for the requesting user.
//
// CreateBoardRequest/CreateCardRequest/UpdateCardRequest: validated input
// payloads; update requests use pointers so absent fields stay untouched.
//
// # Services
//
// BoardService validates board definitions (stage ids, field kinds,
// translation languages, enabled providers) and enforces membership.
//
// CardService coordinates the engines: sequence allocation on create, lock
// arbitration on edit, the stage authorizer on moves, and the translation
// pipeline on step operations.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Internal enums are exposed as lowercase
// strings. Timestamps use RFC3339 with milliseconds. Every service error is
// tagged with a services sentinel so the HTTP layer can map it to a status
// code without string matching.
package api
