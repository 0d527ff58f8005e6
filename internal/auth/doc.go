// Package auth holds the credential primitives of the server: bcrypt password
// verification, directory (LDAP) binds, and signed session tokens.
//
// Nothing in this package logs credential material. Callers decide how to
// report failures; the errors returned here are for internal classification.
package auth
