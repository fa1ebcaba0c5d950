// Package web implements the HTTP transport for the alarm service.
//
// It exposes a JSON control API and an embedded control page, and guards
// both behind an explicit basic-auth middleware. The handlers call into a
// provided business-service interface and map domain errors to HTTP status
// codes.
package web
