// Package auth implements email/password identity for the fintrack server:
// the users store, credential verification with login lockout, JWT issuing
// and validation, registration and the fiber middleware that guards
// protected routes.
package auth
