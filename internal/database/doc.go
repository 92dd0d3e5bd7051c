// Package database provides SQLite storage for the PDF preview pipeline.
//
// It holds one processing record per uploaded document (extraction state,
// page geometry, preview reference) plus a small key/value metadata table
// used for operational timestamps such as the last cache cleanup run.
//
// The database uses WAL mode for improved concurrent read performance
// and includes automatic schema initialization.
package database
