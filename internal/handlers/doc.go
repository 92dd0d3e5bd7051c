// Package handlers implements the HTTP API: document CRUD and uploads,
// processing triggers, capability inspection, preview serving, cache
// administration, and health endpoints.
package handlers
