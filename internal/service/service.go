// Package service contains the business rules of the application.
//
//	Handler (HTTP)  → parses requests, writes responses
//	Service         → validates, authorizes, orchestrates
//	Repository      → reads and writes storage
//
// Services take repository interfaces, never *sqlite.DB, so tests can run
// them against in-memory fakes. They return apperror values and know nothing
// about HTTP.
package service

import "strings"

// Authorizer answers permission questions. *authz.Enforcer satisfies it.
type Authorizer interface {
	Allowed(relations []string, object, action string) (bool, error)
}

// normalizeEmail is the canonical form every email is stored and compared in.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
