// Package metadata is the client's durable key/value store, kept in the
// metadata table of the local SQLite database. LoadJSON and SaveJSON layer
// JSON values (tokens, saved filters) on top of the raw byte interface.
package metadata
