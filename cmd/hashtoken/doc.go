// Command hashtoken manages the admin token used by the PDF preview
// service's administrative endpoints.
//
// It supports the following operations:
//   - hash: Prompt for a new token and print its bcrypt hash
//   - verify: Check a token against the hash in ADMIN_TOKEN_HASH
//
// Usage:
//
//	hashtoken <command>
//
// Commands:
//
//	hash    Read a token from the terminal (with confirmation) and print
//	        the bcrypt hash to set as ADMIN_TOKEN_HASH in the service
//	        environment.
//
//	verify  Read a token from the terminal and report whether it matches
//	        the hash currently in ADMIN_TOKEN_HASH.
//
// Environment:
//
//	ADMIN_TOKEN_HASH - bcrypt hash of the admin token (used by verify)
//
// Notes:
//
// The service disables admin endpoints entirely when ADMIN_TOKEN_HASH is
// unset. The raw token is never stored; only the hash appears in the
// environment.
package main
