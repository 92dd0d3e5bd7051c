// Package middleware provides HTTP middleware: W3C Extended Log Format
// request logging, Prometheus request metrics, and an optional bcrypt
// token guard for destructive admin routes.
package middleware
