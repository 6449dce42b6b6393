// Package storage provides the generic persisted key-value store used for
// caches, calendar selections, and dismissal sets. Values are stored as
// JSON-serialized strings in a local SQLite database.
package storage
